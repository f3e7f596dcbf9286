// Package notify delivers out-of-band SMS messages off the dialog path.
package notify

import (
	"context"
	"log/slog"
)

// Sender delivers one SMS.
type Sender interface {
	Send(ctx context.Context, to, message string) error
}

// LogSender writes messages to the log instead of a carrier. It backs
// sandbox deployments.
type LogSender struct {
	Logger *slog.Logger
}

func (s LogSender) Send(_ context.Context, to, message string) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("sms (not sent)", "phone", to, "chars", len(message))
	return nil
}
