// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Format is the normalization applied to a file, chosen by extension
type Format string

// Format constants
const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatText     Format = "text"
)

var (
	fenceRegex       = regexp.MustCompile("(?s)(```|~~~).*?(```|~~~)")
	imageRegex       = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	linkRegex        = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	headingRegex     = regexp.MustCompile(`(?m)^[ \t]{0,3}#{1,6}[ \t]+`)
	boldStarRegex    = regexp.MustCompile(`\*\*([^*\n]+)\*\*`)
	boldUnderRegex   = regexp.MustCompile(`__([^_\n]+)__`)
	italStarRegex    = regexp.MustCompile(`\*([^*\n]+)\*`)
	italUnderRegex   = regexp.MustCompile(`\b_([^_\n]+)_\b`)
	inlineCodeRegex  = regexp.MustCompile("`([^`\n]+)`")
	placeholderRegex = regexp.MustCompile(`\x00([0-9]+)\x00`)
	blankLinesRegex  = regexp.MustCompile(`\n[ \t]*\n(?:[ \t]*\n)+`)
)

// Extension returns the lowercase extension of filename without the dot,
// or "txt" when there is none
func Extension(filename string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ext == "" {
		return "txt"
	}
	return ext
}

// FormatOf classifies filename by its extension
func FormatOf(filename string) Format {
	switch Extension(filename) {
	case "md", "markdown":
		return FormatMarkdown
	case "json":
		return FormatJSON
	default:
		return FormatText
	}
}

// Normalize cleans text according to the format of filename
func Normalize(filename, text string) string {
	switch FormatOf(filename) {
	case FormatMarkdown:
		return StripMarkdown(text)
	case FormatJSON:
		return IndentJSON(text)
	default:
		return CollapseBlankLines(text)
	}
}

// StripMarkdown removes markdown syntax and keeps the readable text.
// Fenced code blocks and images are dropped, links keep their label.
func StripMarkdown(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = fenceRegex.ReplaceAllString(text, "")

	// Code spans are swapped for placeholders so emphasis and link
	// patterns never match inside them
	var spans []string
	text = inlineCodeRegex.ReplaceAllStringFunc(text, func(m string) string {
		spans = append(spans, m[1:len(m)-1])
		return fmt.Sprintf("\x00%d\x00", len(spans)-1)
	})

	text = imageRegex.ReplaceAllString(text, "")
	text = linkRegex.ReplaceAllString(text, "$1")
	text = headingRegex.ReplaceAllString(text, "")
	text = boldStarRegex.ReplaceAllString(text, "$1")
	text = boldUnderRegex.ReplaceAllString(text, "$1")
	text = italStarRegex.ReplaceAllString(text, "$1")
	text = italUnderRegex.ReplaceAllString(text, "$1")
	text = placeholderRegex.ReplaceAllStringFunc(text, func(m string) string {
		i, err := strconv.Atoi(m[1 : len(m)-1])
		if err != nil || i >= len(spans) {
			return m
		}
		return spans[i]
	})
	return CollapseBlankLines(text)
}

// IndentJSON re-indents valid JSON with two spaces, keeping key order.
// Invalid JSON is returned unchanged.
func IndentJSON(text string) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(text), "", "  "); err != nil {
		return text
	}
	return strings.TrimSpace(buf.String())
}

// CollapseBlankLines reduces runs of blank lines to a single blank line
func CollapseBlankLines(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = blankLinesRegex.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
