// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package item

import "time"

// Patch lists the mutable fields of an item. A nil field is left alone;
// a supplied field replaces the stored value wholesale, including slices
// and the metadata map. id and createdAt cannot be patched.
type Patch struct {
	Title        *string                `json:"title,omitempty"`
	Content      *string                `json:"content,omitempty"`
	Type         *Type                  `json:"type,omitempty"`
	Tags         []string               `json:"tags,omitempty"`
	Category     *string                `json:"category,omitempty"`
	Priority     *Priority              `json:"priority,omitempty"`
	IsActive     *bool                  `json:"isActive,omitempty"`
	RelatedFiles []string               `json:"relatedFiles,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// Apply merges the patch onto it and refreshes UpdatedAt
func (p Patch) Apply(it *ContextItem, now time.Time) {
	if p.Title != nil {
		it.Title = *p.Title
	}
	if p.Content != nil {
		it.Content = *p.Content
	}
	if p.Type != nil {
		it.Type = *p.Type
	}
	if p.Tags != nil {
		it.Tags = p.Tags
	}
	if p.Category != nil {
		it.Category = *p.Category
	}
	if p.Priority != nil {
		it.Priority = *p.Priority
	}
	if p.IsActive != nil {
		it.IsActive = *p.IsActive
	}
	if p.RelatedFiles != nil {
		it.RelatedFiles = p.RelatedFiles
	}
	if p.Metadata != nil {
		it.Metadata = p.Metadata
	}
	it.UpdatedAt = now
}
