package identity

import (
	"context"
	"sync"

	"olink/go-backend/internal/securestore"
)

// FileStore keeps all records in memory and rewrites a sealed snapshot on
// every create. It suits single-node deployments and the sandbox.
type FileStore struct {
	mu      sync.RWMutex
	records map[string]Record
	path    string
	secret  string
	closed  bool
}

func NewFileStore(path, secret string) (*FileStore, error) {
	s := &FileStore{
		records: make(map[string]Record),
		path:    path,
		secret:  secret,
	}
	if err := s.load(); err != nil {
		return nil, &StoreError{Backend: "file", Op: "load", Err: err}
	}
	return s, nil
}

func (s *FileStore) Get(_ context.Context, key string) (Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return Record{}, false, ErrStoreClosed
	}
	rec, ok := s.records[key]
	if !ok {
		return Record{}, false, nil
	}
	return cloneRecord(rec), true, nil
}

func (s *FileStore) Create(_ context.Context, rec Record) error {
	if err := validateForCreate(rec); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	if _, ok := s.records[rec.PhoneKey]; ok {
		return ErrAlreadyExists
	}
	next := make(map[string]Record, len(s.records)+1)
	for k, v := range s.records {
		next[k] = v
	}
	next[rec.PhoneKey] = cloneRecord(rec)
	if err := s.persistSnapshotLocked(next); err != nil {
		return &StoreError{Backend: "file", Op: "create", Err: err}
	}
	s.records = next
	return nil
}

func (s *FileStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

type fileSnapshot struct {
	Records map[string]Record `json:"records"`
}

func (s *FileStore) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.path == "" {
		return nil
	}
	var snapshot fileSnapshot
	found, err := securestore.ReadSealedJSON(s.path, s.secret, &snapshot)
	if err != nil || !found {
		return err
	}
	if snapshot.Records != nil {
		s.records = snapshot.Records
	}
	return nil
}

func (s *FileStore) persistSnapshotLocked(records map[string]Record) error {
	if s.path == "" {
		return nil
	}
	return securestore.WriteSealedJSON(s.path, s.secret, fileSnapshot{Records: records})
}
