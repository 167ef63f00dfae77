// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package actor

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// anonKeyPrefix namespaces anonymous ids in the registry.
const anonKeyPrefix = "anon:"

// Registration is what the registry keeps per anonymous id.
type Registration struct {
	IssuedAt time.Time `json:"issued_at"`
	LastSeen time.Time `json:"last_seen"`
}

// Registry records issued anonymous ids in BadgerDB. Entries expire with
// the cookie they were issued in; every visit extends them.
type Registry struct {
	db  *badger.DB
	ttl time.Duration
}

// OpenRegistry opens the registry at path. An empty path keeps the
// registry in memory.
func OpenRegistry(path string, ttl time.Duration) (*Registry, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil // Suppress BadgerDB logs

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for actors: %w", err)
	}
	return &Registry{db: db, ttl: ttl}, nil
}

// Close closes the underlying BadgerDB.
func (r *Registry) Close() error {
	return r.db.Close()
}

// Get returns the registration of id, or false when the id was never
// issued here or has expired.
func (r *Registry) Get(id string) (Registration, bool, error) {
	var reg Registration
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(anonKeyPrefix + id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &reg)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Registration{}, false, nil
	}
	if err != nil {
		return Registration{}, false, fmt.Errorf("get actor: %w", err)
	}
	return reg, true, nil
}

// Touch records a visit of id, registering it when it is unknown. It
// reports whether the id was newly registered.
func (r *Registry) Touch(id string, now time.Time) (bool, error) {
	created := false
	err := r.db.Update(func(txn *badger.Txn) error {
		key := []byte(anonKeyPrefix + id)
		reg := Registration{IssuedAt: now}

		item, err := txn.Get(key)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			created = true
		case err != nil:
			return err
		default:
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &reg)
			}); err != nil {
				return err
			}
		}
		reg.LastSeen = now

		data, err := json.Marshal(reg)
		if err != nil {
			return fmt.Errorf("marshal registration: %w", err)
		}
		entry := badger.NewEntry(key, data)
		if r.ttl > 0 {
			entry = entry.WithTTL(r.ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		return false, fmt.Errorf("touch actor: %w", err)
	}
	return created, nil
}

// Count returns the number of live registrations.
func (r *Registry) Count() (int, error) {
	n := 0
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(anonKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count actors: %w", err)
	}
	return n, nil
}
