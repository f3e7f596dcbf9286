package identity

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrAlreadyExists = errors.New("identity record already exists")
	ErrInvalidRecord = errors.New("identity record is invalid")
	ErrStoreClosed   = errors.New("identity store is closed")
)

// Store persists identity records. Create must be exclusive: of two racing
// creates for the same key exactly one succeeds and the other observes
// ErrAlreadyExists.
type Store interface {
	Get(ctx context.Context, key string) (Record, bool, error)
	Create(ctx context.Context, rec Record) error
	Close() error
}

// StoreError reports a backend failure. It is never used for a missing record.
type StoreError struct {
	Backend string
	Op      string
	Err     error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("identity store %s %s: %v", e.Backend, e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func validateForCreate(rec Record) error {
	if !rec.Valid() {
		return ErrInvalidRecord
	}
	return nil
}
