// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package item

import "strings"

// Filter narrows a listing. All set fields must match (AND); an empty
// field imposes no constraint.
type Filter struct {
	Types      []string `json:"type,omitempty"`
	Categories []string `json:"category,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Priorities []string `json:"priority,omitempty"`
	IsActive   *bool    `json:"isActive,omitempty"`
	Search     string   `json:"search,omitempty"`
}

// Match reports whether it satisfies every constraint of the filter
func (f Filter) Match(it ContextItem) bool {
	if len(f.Types) > 0 && !contains(f.Types, string(it.Type)) {
		return false
	}
	if len(f.Categories) > 0 && !contains(f.Categories, it.Category) {
		return false
	}
	if len(f.Tags) > 0 && !intersects(f.Tags, it.Tags) {
		return false
	}
	if len(f.Priorities) > 0 && !contains(f.Priorities, string(it.Priority)) {
		return false
	}
	if f.IsActive != nil && it.IsActive != *f.IsActive {
		return false
	}
	if f.Search != "" && !matchesSearch(it, strings.ToLower(f.Search)) {
		return false
	}
	return true
}

// Apply returns the items that match, in their original order
func (f Filter) Apply(items []ContextItem) []ContextItem {
	out := make([]ContextItem, 0, len(items))
	for _, it := range items {
		if f.Match(it) {
			out = append(out, it)
		}
	}
	return out
}

func matchesSearch(it ContextItem, needle string) bool {
	if strings.Contains(strings.ToLower(it.Title), needle) ||
		strings.Contains(strings.ToLower(it.Content), needle) {
		return true
	}
	for _, tag := range it.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func intersects(want, have []string) bool {
	for _, h := range have {
		if contains(want, h) {
			return true
		}
	}
	return false
}

// SplitList parses a comma-separated query value, dropping empty entries
func SplitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
