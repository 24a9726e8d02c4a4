// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package scrape

import (
	"net/url"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// readableText runs Mozilla's readability algorithm over doc and returns
// the article text split into blocks. pageURL resolves relative links.
// An empty string means no article was found. doc is not modified.
func readableText(doc *goquery.Document, pageURL *url.URL) string {
	root := doc.Get(0)
	if root == nil {
		return ""
	}

	article, err := readability.FromDocument(root, pageURL)
	if err != nil || article.Node == nil {
		return ""
	}
	return blockText(goquery.NewDocumentFromNode(article.Node).Selection)
}
