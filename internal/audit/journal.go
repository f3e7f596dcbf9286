// Package audit keeps an operator-visible history of session milestones.
package audit

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"olink/go-backend/internal/platform/privacylog"
)

// Entry is one recorded milestone.
type Entry struct {
	Seq       int64             `json:"seq"`
	Kind      string            `json:"kind"`
	Attrs     map[string]string `json:"attrs,omitempty"`
	Timestamp time.Time         `json:"ts"`
}

// fingerprinted attributes never leave the process in the clear.
var fingerprinted = map[string]struct{}{
	"phone":      {},
	"session_id": {},
}

// Journal is a bounded in-memory history with live subscribers. When a sink
// is attached every entry is also appended to it as one JSON line.
type Journal struct {
	mu      sync.Mutex
	nextSeq int64
	limit   int
	history []Entry
	subs    map[int]chan Entry
	nextSub int
	sink    io.WriteCloser
	log     *slog.Logger
	now     func() time.Time
}

func NewJournal(limit int, logger *slog.Logger) *Journal {
	if limit < 1 {
		limit = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Journal{
		limit: limit,
		subs:  make(map[int]chan Entry),
		log:   logger,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// OpenFile attaches an append-only JSON-lines file at path.
func (j *Journal) OpenFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open audit file: %w", err)
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.sink != nil {
		_ = j.sink.Close()
	}
	j.sink = f
	return nil
}

// Publish records a milestone. Phone and session identifiers are replaced by
// their fingerprints.
func (j *Journal) Publish(kind string, attrs map[string]string) {
	clean := make(map[string]string, len(attrs))
	for k, v := range attrs {
		if _, ok := fingerprinted[k]; ok {
			clean[k+"_fp"] = privacylog.FingerprintID(v)
			continue
		}
		clean[k] = v
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	j.nextSeq++
	entry := Entry{Seq: j.nextSeq, Kind: kind, Attrs: clean, Timestamp: j.now()}
	j.history = append(j.history, entry)
	if len(j.history) > j.limit {
		j.history = append([]Entry(nil), j.history[len(j.history)-j.limit:]...)
	}
	if j.sink != nil {
		if err := json.NewEncoder(j.sink).Encode(entry); err != nil {
			j.log.Warn("audit append failed", "kind", kind, "err", err)
		}
	}
	for id, ch := range j.subs {
		select {
		case ch <- entry:
		default:
			close(ch)
			delete(j.subs, id)
		}
	}
}

// Since returns retained entries with a sequence number above seq.
func (j *Journal) Since(seq int64) []Entry {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]Entry, 0)
	for _, e := range j.history {
		if e.Seq > seq {
			out = append(out, e)
		}
	}
	return out
}

// Subscribe replays entries after fromSeq and streams new ones. A subscriber
// that falls behind is disconnected by closing its channel.
func (j *Journal) Subscribe(fromSeq int64) ([]Entry, <-chan Entry, func()) {
	j.mu.Lock()
	defer j.mu.Unlock()

	replay := make([]Entry, 0)
	for _, e := range j.history {
		if e.Seq > fromSeq {
			replay = append(replay, e)
		}
	}
	id := j.nextSub
	j.nextSub++
	ch := make(chan Entry, 128)
	j.subs[id] = ch

	cancel := func() {
		j.mu.Lock()
		defer j.mu.Unlock()
		if sub, ok := j.subs[id]; ok {
			close(sub)
			delete(j.subs, id)
		}
	}
	return replay, ch, cancel
}

func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	for id, ch := range j.subs {
		close(ch)
		delete(j.subs, id)
	}
	if j.sink == nil {
		return nil
	}
	err := j.sink.Close()
	j.sink = nil
	return err
}
