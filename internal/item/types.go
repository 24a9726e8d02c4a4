// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package item

import "time"

// Type is the kind of a context item
type Type string

// Type constants
const (
	TypeRule          Type = "rule"
	TypeDocumentation Type = "documentation"
	TypeSnippet       Type = "snippet"
	TypeNote          Type = "note"
	TypeReference     Type = "reference"
)

// Priority ranks how important a context item is
type Priority string

// Priority constants
const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// EnvelopeVersion is written into every export envelope
const EnvelopeVersion = "1.0"

// ContextItem is a single user-curated note, snippet or reference
type ContextItem struct {
	ID           string                 `json:"id" yaml:"id"`
	Title        string                 `json:"title" yaml:"title"`
	Content      string                 `json:"content" yaml:"content"`
	Type         Type                   `json:"type" yaml:"type"`
	Tags         []string               `json:"tags" yaml:"tags"`
	Category     string                 `json:"category" yaml:"category"`
	Priority     Priority               `json:"priority" yaml:"priority"`
	IsActive     bool                   `json:"isActive" yaml:"isActive"`
	CreatedAt    time.Time              `json:"createdAt" yaml:"createdAt"`
	UpdatedAt    time.Time              `json:"updatedAt" yaml:"updatedAt"`
	RelatedFiles []string               `json:"relatedFiles" yaml:"relatedFiles"`
	Metadata     map[string]interface{} `json:"metadata" yaml:"metadata"`
}

// Draft holds the fields supplied when creating an item
type Draft struct {
	Title        string                 `json:"title" validate:"required"`
	Content      string                 `json:"content" validate:"required"`
	Type         Type                   `json:"type" validate:"required,oneof=rule documentation snippet note reference"`
	Tags         []string               `json:"tags,omitempty"`
	Category     string                 `json:"category" validate:"required"`
	Priority     Priority               `json:"priority" validate:"required,oneof=low medium high critical"`
	IsActive     *bool                  `json:"isActive,omitempty"`
	RelatedFiles []string               `json:"relatedFiles,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// Category describes one distinct category value in an export
type Category struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	ItemCount int    `json:"itemCount" yaml:"itemCount"`
}

// Envelope is the versioned wrapper used for bulk export and import
type Envelope struct {
	Version    string        `json:"version" yaml:"version"`
	ExportedAt time.Time     `json:"exportedAt" yaml:"exportedAt"`
	Items      []ContextItem `json:"items" yaml:"items"`
	Categories []Category    `json:"categories" yaml:"categories"`
}

// ListResult is the outcome of a filtered listing
type ListResult struct {
	Items    []ContextItem `json:"items"`
	Total    int           `json:"total"`
	AllItems int           `json:"allItems"`
}

// Now returns the current time in the precision items are stamped with
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// Normalize replaces nil collections with empty ones
func Normalize(it *ContextItem) {
	if it.Tags == nil {
		it.Tags = []string{}
	}
	if it.RelatedFiles == nil {
		it.RelatedFiles = []string{}
	}
	if it.Metadata == nil {
		it.Metadata = map[string]interface{}{}
	}
}

// Build turns a validated draft into a new item with a fresh id
func (d Draft) Build(now time.Time) ContextItem {
	active := true
	if d.IsActive != nil {
		active = *d.IsActive
	}
	it := ContextItem{
		ID:           NewID(),
		Title:        d.Title,
		Content:      d.Content,
		Type:         d.Type,
		Tags:         d.Tags,
		Category:     d.Category,
		Priority:     d.Priority,
		IsActive:     active,
		CreatedAt:    now,
		UpdatedAt:    now,
		RelatedFiles: d.RelatedFiles,
		Metadata:     d.Metadata,
	}
	Normalize(&it)
	return it
}
