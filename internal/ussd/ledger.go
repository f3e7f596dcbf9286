package ussd

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

const (
	defaultLedgerSize = 4096
	defaultLedgerTTL  = 10 * time.Minute
)

// CommitLedger makes commit steps at-most-once per delivered history. A
// gateway that redelivers the final PIN-bearing call with the same session
// and text gets the stored receipt instead of a second transfer or payout.
// Concurrent duplicates share one execution.
type CommitLedger struct {
	group   singleflight.Group
	results *expirable.LRU[string, Response]
}

func NewCommitLedger(size int, ttl time.Duration) *CommitLedger {
	if size <= 0 {
		size = defaultLedgerSize
	}
	if ttl <= 0 {
		ttl = defaultLedgerTTL
	}
	return &CommitLedger{results: expirable.NewLRU[string, Response](size, nil, ttl)}
}

// CommitKey identifies one delivered history.
func CommitKey(ev DialEvent) string {
	sum := sha256.Sum256([]byte(ev.SessionID + "\x00" + ev.PhoneNumber + "\x00" + ev.Text))
	return hex.EncodeToString(sum[:])
}

// Lookup returns the stored response for key, if any.
func (l *CommitLedger) Lookup(key string) (Response, bool) {
	return l.results.Get(key)
}

// Do runs fn once per key. fn reports whether it committed; only committed
// responses are remembered, so a step that failed before committing can be
// retried by redialling.
func (l *CommitLedger) Do(key string, fn func() (Response, bool, error)) (Response, error) {
	v, err, _ := l.group.Do(key, func() (any, error) {
		if r, ok := l.results.Get(key); ok {
			return r, nil
		}
		r, committed, err := fn()
		if err != nil {
			return Response{}, err
		}
		if committed {
			l.results.Add(key, r)
		}
		return r, nil
	})
	if err != nil {
		return Response{}, err
	}
	return v.(Response), nil
}
