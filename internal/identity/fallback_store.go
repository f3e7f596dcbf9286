package identity

import (
	"context"
	"errors"
	"fmt"
)

// Policy declares how a FallbackStore uses its secondary backend.
type Policy string

const (
	// PolicyPrimaryOnly never touches the fallback.
	PolicyPrimaryOnly Policy = "primary-only"
	// PolicyReadFallback serves reads from the fallback when the primary
	// fails. Creates always go to the primary. Only a fallback hit answers;
	// a fallback miss cannot prove the record is absent.
	PolicyReadFallback Policy = "read-fallback"
	// PolicyMirror is PolicyReadFallback plus a best-effort copy of every
	// successful create into the fallback.
	PolicyMirror Policy = "mirror"
)

func ParsePolicy(raw string) (Policy, error) {
	switch Policy(raw) {
	case "", PolicyPrimaryOnly:
		return PolicyPrimaryOnly, nil
	case PolicyReadFallback, PolicyMirror:
		return Policy(raw), nil
	default:
		return "", fmt.Errorf("unknown identity fallback policy %q", raw)
	}
}

// DegradedFunc observes operations that succeeded only partially, e.g. a read
// answered by the fallback after the primary failed.
type DegradedFunc func(op string, err error)

// FallbackStore composes two stores under an explicit policy. Primary
// failures are never absorbed silently: they surface either as a
// *FallbackError or through the degraded hook.
type FallbackStore struct {
	primary  Store
	fallback Store
	policy   Policy
	degraded DegradedFunc
}

// FallbackError carries both backend failures when neither could serve.
type FallbackError struct {
	Op       string
	Primary  error
	Fallback error
}

func (e *FallbackError) Error() string {
	if e.Fallback == nil {
		return fmt.Sprintf("identity %s: primary: %v", e.Op, e.Primary)
	}
	return fmt.Sprintf("identity %s: primary: %v; fallback: %v", e.Op, e.Primary, e.Fallback)
}

func (e *FallbackError) Unwrap() []error {
	out := []error{e.Primary}
	if e.Fallback != nil {
		out = append(out, e.Fallback)
	}
	return out
}

func NewFallbackStore(primary, fallback Store, policy Policy, degraded DegradedFunc) *FallbackStore {
	if fallback == nil {
		policy = PolicyPrimaryOnly
	}
	if degraded == nil {
		degraded = func(string, error) {}
	}
	return &FallbackStore{primary: primary, fallback: fallback, policy: policy, degraded: degraded}
}

func (s *FallbackStore) Get(ctx context.Context, key string) (Record, bool, error) {
	rec, ok, err := s.primary.Get(ctx, key)
	if err == nil || s.policy == PolicyPrimaryOnly {
		return rec, ok, err
	}
	frec, fok, ferr := s.fallback.Get(ctx, key)
	if ferr != nil {
		return Record{}, false, &FallbackError{Op: "get", Primary: err, Fallback: ferr}
	}
	if !fok {
		return Record{}, false, &FallbackError{Op: "get", Primary: err}
	}
	s.degraded("get", err)
	return frec, true, nil
}

func (s *FallbackStore) Create(ctx context.Context, rec Record) error {
	if err := s.primary.Create(ctx, rec); err != nil {
		if errors.Is(err, ErrAlreadyExists) || errors.Is(err, ErrInvalidRecord) {
			return err
		}
		return &FallbackError{Op: "create", Primary: err}
	}
	if s.policy != PolicyMirror {
		return nil
	}
	if err := s.fallback.Create(ctx, rec); err != nil && !errors.Is(err, ErrAlreadyExists) {
		s.degraded("mirror", err)
	}
	return nil
}

func (s *FallbackStore) Close() error {
	err := s.primary.Close()
	if s.fallback != nil {
		err = errors.Join(err, s.fallback.Close())
	}
	return err
}
