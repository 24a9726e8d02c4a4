// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package scrape

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	noiseSelector = "script, style, noscript, iframe, svg, form, nav, header, footer, aside, button"
	blockSelector = "h1, h2, h3, h4, h5, h6, p, pre, li, blockquote, td, dt, dd, figcaption"
)

// contentSelectors are tried in order; the first with enough text wins
var contentSelectors = []string{
	"main", "article", "[role='main']", ".content", "#content",
	".post", ".entry-content", ".article-body",
}

// selectorText extracts the main content using common container
// selectors, falling back to the whole body
func selectorText(doc *goquery.Document) string {
	root := doc.Selection.Clone()
	root.Find(noiseSelector).Remove()

	for _, selector := range contentSelectors {
		content := textOf(root, selector)
		if len(content) > 100 {
			return content
		}
	}
	return textOf(root, "body")
}

func textOf(root *goquery.Selection, selector string) string {
	var texts []string
	root.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(blockText(s)); text != "" {
			texts = append(texts, text)
		}
	})
	return strings.Join(texts, "\n\n")
}

// blockText joins the text of leaf block elements with blank lines
func blockText(s *goquery.Selection) string {
	var parts []string
	s.Find(blockSelector).Each(func(_ int, b *goquery.Selection) {
		if b.Find(blockSelector).Length() > 0 {
			return
		}
		if text := collapseSpace(b.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	if len(parts) == 0 {
		return collapseSpace(s.Text())
	}
	return strings.Join(parts, "\n\n")
}
