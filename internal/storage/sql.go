// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package storage

import (
	"context"
	"fmt"

	"github.com/tejzpr/armis/internal/apierr"
	"github.com/tejzpr/armis/internal/database"
	"github.com/tejzpr/armis/internal/item"
	"gorm.io/gorm"
)

const sqlBatchSize = 200

// SQL stores one row per item in a relational database
type SQL struct {
	db *gorm.DB
}

// NewSQL connects to the configured database and migrates the schema
func NewSQL(cfg *database.Config) (*SQL, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}
	return NewSQLFromDB(db)
}

// NewSQLFromDB wraps an existing connection
func NewSQLFromDB(db *gorm.DB) (*SQL, error) {
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	return &SQL{db: db}, nil
}

// Name returns the backend identifier reported by /health
func (s *SQL) Name() string { return BackendSQL }

// Ping reports whether the database connection is usable
func (s *SQL) Ping(ctx context.Context) error {
	return database.Ping(ctx, s.db)
}

// Load returns every row ordered by position
func (s *SQL) Load(ctx context.Context) ([]item.ContextItem, error) {
	var records []database.ContextItemRecord
	if err := s.db.WithContext(ctx).Order("position asc").Find(&records).Error; err != nil {
		return nil, apierr.Storage(err, "failed to load context items")
	}

	items := make([]item.ContextItem, 0, len(records))
	for _, r := range records {
		items = append(items, r.ToItem())
	}
	return items, nil
}

// Save replaces every row inside a single transaction
func (s *SQL) Save(ctx context.Context, items []item.ContextItem) error {
	records := make([]database.ContextItemRecord, 0, len(items))
	for i, it := range items {
		records = append(records, database.FromItem(it, i))
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&database.ContextItemRecord{}).Error; err != nil {
			return fmt.Errorf("failed to clear context items: %w", err)
		}
		if len(records) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(records, sqlBatchSize).Error; err != nil {
			return fmt.Errorf("failed to insert context items: %w", err)
		}
		return nil
	})
	if err != nil {
		return apierr.Storage(err, "failed to save context items")
	}
	return nil
}

// Close releases the database connection pool
func (s *SQL) Close() error {
	return database.Close(s.db)
}
