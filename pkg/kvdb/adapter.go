// Copyright 2025 Certen Protocol
//
// KV wraps a CometBFT dbm.DB behind a small interface the store package
// builds on. The spec treats persistence as "an in-memory map satisfies the
// contract" — dbm.NewMemDB() is exactly that, with the concurrency-safety
// and iteration a raw map lacks.

package kvdb

import (
	dbm "github.com/cometbft/cometbft-db"
)

// KV is a minimal, ordered key/value store.
type KV interface {
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	Set(key, value []byte) error
	Delete(key []byte) error
	// IteratePrefix calls fn for every key with the given prefix, in
	// ascending key order, until fn returns false or the keys are
	// exhausted.
	IteratePrefix(prefix []byte, fn func(key, value []byte) bool) error
}

// Adapter wraps a dbm.DB as a KV.
type Adapter struct {
	db dbm.DB
}

// NewAdapter wraps db. A nil db is accepted and behaves like an empty,
// always-miss store, useful in tests that don't care about storage.
func NewAdapter(db dbm.DB) *Adapter {
	return &Adapter{db: db}
}

// NewMemory returns an Adapter over a fresh in-memory CometBFT DB.
func NewMemory() *Adapter {
	return NewAdapter(dbm.NewMemDB())
}

func (a *Adapter) Get(key []byte) ([]byte, error) {
	if a.db == nil {
		return nil, nil
	}
	return a.db.Get(key)
}

func (a *Adapter) Has(key []byte) (bool, error) {
	if a.db == nil {
		return false, nil
	}
	return a.db.Has(key)
}

func (a *Adapter) Set(key, value []byte) error {
	if a.db == nil {
		return nil
	}
	return a.db.SetSync(key, value)
}

func (a *Adapter) Delete(key []byte) error {
	if a.db == nil {
		return nil
	}
	return a.db.DeleteSync(key)
}

func (a *Adapter) IteratePrefix(prefix []byte, fn func(key, value []byte) bool) error {
	if a.db == nil {
		return nil
	}
	end := prefixEnd(prefix)
	it, err := a.db.Iterator(prefix, end)
	if err != nil {
		return err
	}
	defer it.Close()

	for ; it.Valid(); it.Next() {
		if !fn(it.Key(), it.Value()) {
			break
		}
	}
	return it.Error()
}

// prefixEnd returns the smallest key that is strictly greater than every
// key starting with prefix, for use as an exclusive iterator upper bound.
func prefixEnd(prefix []byte) []byte {
	if len(prefix) == 0 {
		return nil
	}
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil // prefix is all 0xff bytes; unbounded
}
