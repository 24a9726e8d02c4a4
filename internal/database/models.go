// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package database

import (
	"time"

	"github.com/tejzpr/armis/internal/item"
	"gorm.io/datatypes"
)

// ContextItemRecord is the row form of a context item. Position keeps
// the collection order stable across whole-collection rewrites.
type ContextItemRecord struct {
	ID           string                      `gorm:"primaryKey;size:64" json:"id"`
	Position     int                         `gorm:"index;not null" json:"position"`
	Title        string                      `gorm:"not null" json:"title"`
	Content      string                      `gorm:"type:text;not null" json:"content"`
	Type         string                      `gorm:"size:32;not null" json:"type"`
	Tags         datatypes.JSONSlice[string] `json:"tags"`
	Category     string                      `gorm:"index;not null" json:"category"`
	Priority     string                      `gorm:"size:16;not null" json:"priority"`
	IsActive     bool                        `gorm:"not null" json:"is_active"`
	CreatedAt    time.Time                   `gorm:"autoCreateTime:false" json:"created_at"`
	UpdatedAt    time.Time                   `gorm:"autoUpdateTime:false" json:"updated_at"`
	RelatedFiles datatypes.JSONSlice[string] `json:"related_files"`
	Metadata     datatypes.JSONMap           `json:"metadata"`
}

// TableName specifies the table name for ContextItemRecord
func (ContextItemRecord) TableName() string {
	return "armis_context_items"
}

// FromItem converts a context item into a record at the given position
func FromItem(it item.ContextItem, position int) ContextItemRecord {
	return ContextItemRecord{
		ID:           it.ID,
		Position:     position,
		Title:        it.Title,
		Content:      it.Content,
		Type:         string(it.Type),
		Tags:         datatypes.JSONSlice[string](it.Tags),
		Category:     it.Category,
		Priority:     string(it.Priority),
		IsActive:     it.IsActive,
		CreatedAt:    it.CreatedAt,
		UpdatedAt:    it.UpdatedAt,
		RelatedFiles: datatypes.JSONSlice[string](it.RelatedFiles),
		Metadata:     datatypes.JSONMap(it.Metadata),
	}
}

// ToItem converts the record back into a context item
func (r ContextItemRecord) ToItem() item.ContextItem {
	it := item.ContextItem{
		ID:           r.ID,
		Title:        r.Title,
		Content:      r.Content,
		Type:         item.Type(r.Type),
		Tags:         []string(r.Tags),
		Category:     r.Category,
		Priority:     item.Priority(r.Priority),
		IsActive:     r.IsActive,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
		RelatedFiles: []string(r.RelatedFiles),
		Metadata:     map[string]interface{}(r.Metadata),
	}
	item.Normalize(&it)
	return it
}
