package ussd

import (
	"errors"
	"fmt"
)

var ErrIncompleteEvent = errors.New("dial event is missing session or phone number")

// UpstreamError marks a collaborator failure. The engine turns it into a
// generic terminal message and logs the cause.
type UpstreamError struct {
	Collaborator string
	Op           string
	Err          error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Collaborator, e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func upstream(collaborator, op string, err error) error {
	if err == nil {
		return nil
	}
	return &UpstreamError{Collaborator: collaborator, Op: op, Err: err}
}

var (
	// ErrPINLocked is returned by Custody.VerifyPin while a phone is in
	// its wrong-PIN cooldown.
	ErrPINLocked = errors.New("pin attempts are temporarily locked")
	// ErrAccountNotFound is returned by Payments.ResolveAccount when the
	// bank reports no such account.
	ErrAccountNotFound = errors.New("bank account not found")
)
