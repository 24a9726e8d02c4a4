// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package item

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// slugRegex matches characters that should be dropped from slugs
	slugRegex = regexp.MustCompile(`[^a-z0-9\s-]`)
	// multiSpaceRegex matches runs of spaces/dashes
	multiSpaceRegex = regexp.MustCompile(`[\s-]+`)
	controlRegex    = regexp.MustCompile(`[\x00-\x1F\x7F]`)
)

// Slugify creates a lowercase dash-separated identifier from a name
func Slugify(name string) string {
	slug := strings.ToLower(name)
	slug = slugRegex.ReplaceAllString(slug, "")
	slug = multiSpaceRegex.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return "uncategorized"
	}
	return slug
}

// SanitizeTitle trims whitespace and removes control characters
func SanitizeTitle(title string) string {
	title = strings.TrimSpace(title)
	return controlRegex.ReplaceAllString(title, "")
}

// Categories counts items per distinct category, in first-seen order.
// Names that slugify to the same id get -2, -3 and so on appended in
// the order they are first seen.
func Categories(items []ContextItem) []Category {
	index := make(map[string]int)
	used := make(map[string]bool)
	out := make([]Category, 0)
	for _, it := range items {
		if i, ok := index[it.Category]; ok {
			out[i].ItemCount++
			continue
		}
		index[it.Category] = len(out)
		out = append(out, Category{
			ID:        uniqueSlug(Slugify(it.Category), used),
			Name:      it.Category,
			ItemCount: 1,
		})
	}
	return out
}

func uniqueSlug(slug string, used map[string]bool) string {
	id := slug
	for n := 2; used[id]; n++ {
		id = fmt.Sprintf("%s-%d", slug, n)
	}
	used[id] = true
	return id
}
