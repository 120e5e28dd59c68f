// Copyright 2025 Certen Protocol
//
// Tier-2 Persistent Key/Value Store
// Wraps CometBFT's dbm.DB interface behind a minimal Store contract so the
// compilation cache (pkg/compiler) doesn't depend on a concrete database
// package directly.

package kvstore

import (
	"fmt"
	"path/filepath"

	dbm "github.com/cometbft/cometbft-db"
)

// Store is the minimal persistence contract the two-tier compilation cache
// needs from its Tier-2 backing store: durable get/set/delete/has, plus
// iteration over all stored pairs.
type Store interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Delete(key []byte) error
	Has(key []byte) (bool, error)
	Iterate(fn func(key, value []byte) error) error
	Close() error
}

// Adapter wraps a CometBFT dbm.DB and exposes Store.
type Adapter struct {
	db dbm.DB
}

// NewAdapter wraps an already-opened dbm.DB.
func NewAdapter(db dbm.DB) *Adapter {
	return &Adapter{db: db}
}

// OpenGoLevelDB opens (creating if necessary) a GoLevelDB-backed store rooted
// at dir/name, matching the layout the reference node uses for its
// compilation cache directory (cache.cache_dir in the configuration table).
func OpenGoLevelDB(name, dir string) (*Adapter, error) {
	db, err := dbm.NewGoLevelDB(name, dir)
	if err != nil {
		return nil, fmt.Errorf("open goleveldb at %s: %w", filepath.Join(dir, name), err)
	}
	return NewAdapter(db), nil
}

// Get returns the value for key, or (nil, nil) if absent.
func (a *Adapter) Get(key []byte) ([]byte, error) {
	if a.db == nil {
		return nil, nil
	}
	v, err := a.db.Get(key)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Set writes key/value durably (SetSync, matching the teacher's durability
// choice for committed ledger writes).
func (a *Adapter) Set(key, value []byte) error {
	if a.db == nil {
		return nil
	}
	return a.db.SetSync(key, value)
}

// Delete removes key, if present.
func (a *Adapter) Delete(key []byte) error {
	if a.db == nil {
		return nil
	}
	return a.db.DeleteSync(key)
}

// Has reports whether key is present.
func (a *Adapter) Has(key []byte) (bool, error) {
	if a.db == nil {
		return false, nil
	}
	return a.db.Has(key)
}

// Iterate walks every key/value pair in the store in key order. fn errors
// abort the walk and are returned to the caller.
func (a *Adapter) Iterate(fn func(key, value []byte) error) error {
	if a.db == nil {
		return nil
	}
	it, err := a.db.Iterator(nil, nil)
	if err != nil {
		return err
	}
	defer it.Close()

	for ; it.Valid(); it.Next() {
		if err := fn(it.Key(), it.Value()); err != nil {
			return err
		}
	}
	return it.Error()
}

// Close releases the underlying database handle.
func (a *Adapter) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
