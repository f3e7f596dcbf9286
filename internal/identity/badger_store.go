package identity

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dgraph-io/badger/v2"
)

const badgerKeyPrefix = "identity/"

// BadgerStore persists records in an embedded badger database. Exclusive
// create relies on badger's serializable transactions: a concurrent writer
// of the same key fails with badger.ErrConflict and is reported as
// ErrAlreadyExists once the winner is visible.
type BadgerStore struct {
	db *badger.DB
}

func OpenBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, &StoreError{Backend: "badger", Op: "open", Err: err}
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Get(ctx context.Context, key string) (Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, false, err
	}
	var rec Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerKeyPrefix + key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, &StoreError{Backend: "badger", Op: "get", Err: err}
	}
	return rec, true, nil
}

func (s *BadgerStore) Create(ctx context.Context, rec Record) error {
	if err := validateForCreate(rec); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	value, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	key := []byte(badgerKeyPrefix + rec.PhoneKey)
	err = s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return ErrAlreadyExists
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, value)
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrAlreadyExists), errors.Is(err, badger.ErrConflict):
		return ErrAlreadyExists
	default:
		return &StoreError{Backend: "badger", Op: "create", Err: err}
	}
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
