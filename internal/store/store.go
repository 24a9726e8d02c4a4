// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package store implements the context store: CRUD, filtered listing and
// bulk export/import over a whole-collection storage backend.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/tejzpr/armis/internal/apierr"
	"github.com/tejzpr/armis/internal/item"
	"github.com/tejzpr/armis/internal/logger"
	"github.com/tejzpr/armis/internal/storage"
)

// ImportResult reports the outcome of an import
type ImportResult struct {
	Imported int `json:"imported"`
	Total    int `json:"total"`
}

// Store owns the read-modify-write cycle over a backend. Mutations in
// one process are serialized; writers in other processes still race
// and the last full write wins.
type Store struct {
	backend storage.Backend
	log     *logger.Logger
	mu      sync.Mutex
	now     func() time.Time
}

// New creates a store over backend
func New(backend storage.Backend, log *logger.Logger) *Store {
	if log == nil {
		log = logger.Nop()
	}
	return &Store{
		backend: backend,
		log:     log.With("component", "store", "backend", backend.Name()),
		now:     item.Now,
	}
}

// Backend returns the underlying storage backend
func (s *Store) Backend() storage.Backend {
	return s.backend
}

// List returns the items matching filter plus filtered and total counts
func (s *Store) List(ctx context.Context, filter item.Filter) (*item.ListResult, error) {
	items, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	matched := filter.Apply(items)
	return &item.ListResult{
		Items:    matched,
		Total:    len(matched),
		AllItems: len(items),
	}, nil
}

// Get returns the item with id
func (s *Store) Get(ctx context.Context, id string) (*item.ContextItem, error) {
	items, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	i := indexOf(items, id)
	if i < 0 {
		return nil, notFound(id)
	}
	return &items[i], nil
}

// Create validates draft, assigns a new id and timestamps, and persists it
func (s *Store) Create(ctx context.Context, draft item.Draft) (*item.ContextItem, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	created := draft.Build(s.now())
	for indexOf(items, created.ID) >= 0 {
		created.ID = item.NewID()
	}

	items = append(items, created)
	if err := s.save(ctx, items); err != nil {
		return nil, err
	}

	s.log.Info("context item created", "id", created.ID, "type", created.Type)
	return &created, nil
}

// Update merges patch onto the item with id and persists the result.
// Only the supplied fields are validated.
func (s *Store) Update(ctx context.Context, id string, patch item.Patch) (*item.ContextItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	i := indexOf(items, id)
	if i < 0 {
		return nil, notFound(id)
	}

	if err := patch.Validate(); err != nil {
		return nil, err
	}

	updated := items[i]
	patch.Apply(&updated, s.now())
	item.Normalize(&updated)

	items[i] = updated
	if err := s.save(ctx, items); err != nil {
		return nil, err
	}

	s.log.Info("context item updated", "id", id)
	return &updated, nil
}

// Delete removes the item with id
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load(ctx)
	if err != nil {
		return err
	}

	i := indexOf(items, id)
	if i < 0 {
		return notFound(id)
	}

	items = append(items[:i], items[i+1:]...)
	if err := s.save(ctx, items); err != nil {
		return err
	}

	s.log.Info("context item deleted", "id", id)
	return nil
}

// Export wraps the live collection and its category statistics
func (s *Store) Export(ctx context.Context) (*item.Envelope, error) {
	items, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	return &item.Envelope{
		Version:    item.EnvelopeVersion,
		ExportedAt: s.now(),
		Items:      items,
		Categories: item.Categories(items),
	}, nil
}

// Import appends the envelope items whose id is not already stored. The
// first writer of an id wins; a differing incoming item with a known id
// is skipped. Items without an id get a fresh one.
func (s *Store) Import(ctx context.Context, env item.Envelope) (*ImportResult, error) {
	if env.Items == nil {
		return nil, apierr.Validation("Invalid import data: items must be an array")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(items)+len(env.Items))
	for _, it := range items {
		seen[it.ID] = true
	}

	imported := 0
	for _, incoming := range env.Items {
		if incoming.ID == "" {
			incoming.ID = item.NewID()
		}
		if seen[incoming.ID] {
			continue
		}
		seen[incoming.ID] = true
		item.Normalize(&incoming)
		items = append(items, incoming)
		imported++
	}

	if imported > 0 {
		if err := s.save(ctx, items); err != nil {
			return nil, err
		}
	}

	s.log.Info("context items imported", "imported", imported, "total", len(items))
	return &ImportResult{Imported: imported, Total: len(items)}, nil
}

// Append persists a batch of fully built items in one write and returns
// the resulting collection size
func (s *Store) Append(ctx context.Context, batch []item.ContextItem) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load(ctx)
	if err != nil {
		return 0, err
	}
	if len(batch) == 0 {
		return len(items), nil
	}

	for _, it := range batch {
		for indexOf(items, it.ID) >= 0 || it.ID == "" {
			it.ID = item.NewID()
		}
		item.Normalize(&it)
		items = append(items, it)
	}

	if err := s.save(ctx, items); err != nil {
		return 0, err
	}
	return len(items), nil
}

func (s *Store) load(ctx context.Context) ([]item.ContextItem, error) {
	items, err := s.backend.Load(ctx)
	if err != nil {
		s.log.Error("failed to load context items", "error", err)
		if apierr.KindOf(err) == "" {
			return nil, apierr.Storage(err, "failed to load context items")
		}
		return nil, err
	}
	return items, nil
}

func (s *Store) save(ctx context.Context, items []item.ContextItem) error {
	if err := s.backend.Save(ctx, items); err != nil {
		s.log.Error("failed to save context items", "error", err, "count", len(items))
		if apierr.KindOf(err) == "" {
			return apierr.Storage(err, "failed to save context items")
		}
		return err
	}
	return nil
}

func indexOf(items []item.ContextItem, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}

func notFound(id string) error {
	return apierr.NotFound("Context item not found: %s", id)
}
