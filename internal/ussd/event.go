package ussd

import "strings"

// DialEvent is one gateway callback.
type DialEvent struct {
	SessionID   string
	ServiceCode string
	PhoneNumber string
	Text        string
}

func (e DialEvent) complete() bool {
	return strings.TrimSpace(e.SessionID) != "" && strings.TrimSpace(e.PhoneNumber) != ""
}
