package breaker

import (
	"errors"
	"testing"
	"time"
)

var errRemote = errors.New("remote down")

func TestOpensAfterConsecutiveFailures(t *testing.T) {
	b := New(Settings{Name: "test", Failures: 2, Cooldown: time.Hour})
	calls := 0
	fail := func() (string, error) { calls++; return "", errRemote }

	for i := 0; i < 2; i++ {
		if _, err := Do(b, fail); !errors.Is(err, errRemote) {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if _, err := Do(b, fail); !errors.Is(err, ErrOpen) {
		t.Fatalf("expected open breaker, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("open breaker must not call out, calls=%d", calls)
	}
	if b.State() != "open" {
		t.Fatalf("state = %s", b.State())
	}
}

func TestIgnoredErrorsDoNotTrip(t *testing.T) {
	errNotFound := errors.New("not found")
	b := New(Settings{Name: "test", Failures: 1, Ignore: func(err error) bool { return errors.Is(err, errNotFound) }})
	for i := 0; i < 3; i++ {
		if _, err := Do(b, func() (int, error) { return 0, errNotFound }); !errors.Is(err, errNotFound) {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if b.State() != "closed" {
		t.Fatalf("state = %s", b.State())
	}
	got, err := Do(b, func() (int, error) { return 7, nil })
	if err != nil || got != 7 {
		t.Fatalf("got %d, %v", got, err)
	}
}

func TestNilBreakerCallsThrough(t *testing.T) {
	got, err := Do(nil, func() (string, error) { return "ok", nil })
	if err != nil || got != "ok" {
		t.Fatalf("got %q, %v", got, err)
	}
}
