// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package ingest

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Frontmatter holds the YAML header fields ingestion understands
type Frontmatter struct {
	Title string   `yaml:"title"`
	Tags  []string `yaml:"tags"`
}

// Document is a file after frontmatter extraction and normalization
type Document struct {
	Frontmatter
	Content string
}

// Parse normalizes a file's text. Markdown frontmatter is parsed and
// removed; a header that is unclosed or not valid YAML is kept as text.
func Parse(filename, text string) Document {
	if FormatOf(filename) != FormatMarkdown {
		return Document{Content: Normalize(filename, text)}
	}

	var doc Document
	header, body, err := splitFrontmatter(text)
	if err == nil && header != "" {
		if yerr := yaml.Unmarshal([]byte(header), &doc.Frontmatter); yerr == nil {
			text = body
		} else {
			doc.Frontmatter = Frontmatter{}
		}
	}
	doc.Title = strings.TrimSpace(doc.Title)
	doc.Content = StripMarkdown(text)
	return doc
}

// splitFrontmatter splits markdown content into frontmatter and body
func splitFrontmatter(content string) (string, string, error) {
	content = strings.TrimSpace(strings.ReplaceAll(content, "\r\n", "\n"))

	if !strings.HasPrefix(content, "---") {
		return "", content, nil
	}

	lines := strings.Split(content, "\n")
	if len(lines) < 3 {
		return "", content, nil
	}

	closingIndex := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			closingIndex = i
			break
		}
	}
	if closingIndex == -1 {
		return "", content, fmt.Errorf("frontmatter not properly closed")
	}

	frontmatter := strings.Join(lines[1:closingIndex], "\n")
	body := ""
	if closingIndex+1 < len(lines) {
		body = strings.Join(lines[closingIndex+1:], "\n")
	}
	return frontmatter, body, nil
}
