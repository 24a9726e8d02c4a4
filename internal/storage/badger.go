// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package storage

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/tejzpr/armis/internal/apierr"
	"github.com/tejzpr/armis/internal/item"
)

var (
	badgerCurrentKey = []byte("meta/current")
	badgerGenPrefix  = []byte("gen/")
)

// Badger keeps one key per item in an embedded key-value store. Each
// Save writes a fresh generation of keys and then flips meta/current to
// it in a single transaction, so readers see either the old collection
// or the new one. Keys carry the zero-padded position so prefix
// iteration returns items in collection order.
type Badger struct {
	db  *badger.DB
	dir string
	mu  sync.Mutex // serializes Save
}

// NewBadger opens (or creates) a badger database in dir
func NewBadger(dir string) (*Badger, error) {
	opts := badger.DefaultOptions(dir).
		WithLoggingLevel(badger.ERROR)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}
	return &Badger{db: db, dir: dir}, nil
}

// Name returns the backend identifier reported by /health
func (s *Badger) Name() string { return BackendBadger }

func generationPrefix(gen uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d/", badgerGenPrefix, gen))
}

func currentGeneration(txn *badger.Txn) (uint64, error) {
	entry, err := txn.Get(badgerCurrentKey)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var gen uint64
	err = entry.Value(func(val []byte) error {
		if len(val) != 8 {
			return fmt.Errorf("malformed generation pointer (%d bytes)", len(val))
		}
		gen = binary.BigEndian.Uint64(val)
		return nil
	})
	return gen, err
}

// Load returns the items of the current generation in stored order
func (s *Badger) Load(ctx context.Context) ([]item.ContextItem, error) {
	items := []item.ContextItem{}

	// The pointer and the items are read from the same snapshot
	err := s.db.View(func(txn *badger.Txn) error {
		gen, err := currentGeneration(txn)
		if err != nil || gen == 0 {
			return err
		}

		prefix := generationPrefix(gen)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var ci item.ContextItem
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &ci)
			}); err != nil {
				return fmt.Errorf("failed to decode %s: %w", it.Item().Key(), err)
			}
			item.Normalize(&ci)
			items = append(items, ci)
		}
		return nil
	})
	if err != nil {
		return nil, apierr.Storage(err, "failed to load context items")
	}
	return items, nil
}

// Save writes items as a new generation, makes it current, then removes
// every other generation.
func (s *Badger) Save(ctx context.Context, items []item.ContextItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var cur uint64
	if err := s.db.View(func(txn *badger.Txn) error {
		var err error
		cur, err = currentGeneration(txn)
		return err
	}); err != nil {
		return apierr.Storage(err, "failed to read current generation")
	}
	next := cur + 1
	prefix := generationPrefix(next)

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for i, ci := range items {
		data, err := json.Marshal(ci)
		if err != nil {
			return apierr.Storage(err, "failed to encode context item %s", ci.ID)
		}
		key := append(append([]byte{}, prefix...), fmt.Sprintf("%09d", i)...)
		if err := wb.Set(key, data); err != nil {
			return apierr.Storage(err, "failed to stage context item %s", ci.ID)
		}
	}
	if err := wb.Flush(); err != nil {
		return apierr.Storage(err, "failed to write context items")
	}

	ptr := make([]byte, 8)
	binary.BigEndian.PutUint64(ptr, next)
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerCurrentKey, ptr)
	}); err != nil {
		return apierr.Storage(err, "failed to switch to new generation")
	}

	if err := s.dropGenerationsExcept(prefix); err != nil {
		return apierr.Storage(err, "failed to remove stale context items")
	}
	return nil
}

// dropGenerationsExcept deletes item keys outside keep. Deletes are
// versioned, so readers still holding an older snapshot are unaffected.
func (s *Badger) dropGenerationsExcept(keep []byte) error {
	var stale [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = badgerGenPrefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(badgerGenPrefix); it.ValidForPrefix(badgerGenPrefix); it.Next() {
			if !bytes.HasPrefix(it.Item().Key(), keep) {
				stale = append(stale, it.Item().KeyCopy(nil))
			}
		}
		return nil
	})
	if err != nil || len(stale) == 0 {
		return err
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range stale {
		if err := wb.Delete(key); err != nil {
			return err
		}
	}
	return wb.Flush()
}

// Close releases the badger database
func (s *Badger) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
