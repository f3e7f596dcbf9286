package ratelimiter

import (
	"fmt"
	"testing"
	"time"
)

func TestNewRejectsInvalidArgs(t *testing.T) {
	if New(0, 1, 0) != nil || New(1, 0, 0) != nil {
		t.Fatal("expected nil limiter for invalid args")
	}
	var l *MapLimiter
	if !l.Allow("+2348000000001", time.Now()) {
		t.Fatal("nil limiter must allow")
	}
}

func TestAllowEnforcesBurstPerKey(t *testing.T) {
	l := New(1, 2, time.Minute)
	now := time.Unix(1_700_000_000, 0)
	if !l.Allow("a", now) || !l.Allow("a", now) {
		t.Fatal("burst should be allowed")
	}
	if l.Allow("a", now) {
		t.Fatal("third call within the same instant should be limited")
	}
	if !l.Allow("b", now) {
		t.Fatal("keys must not share a bucket")
	}
	if !l.Allow("a", now.Add(time.Second)) {
		t.Fatal("bucket should refill")
	}
	if !l.Allow("  ", now) {
		t.Fatal("blank key must not be limited")
	}
}

func TestIdleBucketsAreSwept(t *testing.T) {
	l := New(10, 10, time.Minute)
	start := time.Unix(1_700_000_000, 0)
	for i := 0; i < sweepEvery-1; i++ {
		l.Allow(fmt.Sprintf("k%d", i), start)
	}
	if l.Len() != sweepEvery-1 {
		t.Fatalf("unexpected bucket count %d", l.Len())
	}
	l.Allow("fresh", start.Add(2*time.Minute))
	if l.Len() != 1 {
		t.Fatalf("expected idle buckets swept, have %d", l.Len())
	}
}
