// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package scrape fetches web pages and extracts their readable text.
package scrape

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/tejzpr/armis/internal/apierr"
	"github.com/tejzpr/armis/internal/logger"
)

// Extractor names recorded on a Page
const (
	ExtractorReadability = "readability"
	ExtractorSelector    = "selector"
)

// minReadableLength is the amount of text the readability pass must
// produce before its result is trusted over the selector fallback
const minReadableLength = 250

// Config controls the HTTP client used for scraping
type Config struct {
	Timeout          time.Duration
	UserAgent        string
	MaxContentLength int
	MaxRedirects     int
}

// DefaultConfig returns the default scraper configuration
func DefaultConfig() Config {
	return Config{
		Timeout:          30 * time.Second,
		UserAgent:        "Mozilla/5.0 (compatible; Armis/1.0; +https://github.com/tejzpr/armis)",
		MaxContentLength: 50000,
		MaxRedirects:     10,
	}
}

// Page is the result of scraping one URL
type Page struct {
	Title            string  `json:"title"`
	Description      string  `json:"description"`
	Content          string  `json:"content"`
	URL              string  `json:"url"`
	Status           int     `json:"status"`
	ReadabilityScore float64 `json:"readabilityScore"`
	WordCount        int     `json:"wordCount"`
	ReadingTime      int     `json:"readingTime"`
	Extractor        string  `json:"extractor"`
}

// Client scrapes web pages
type Client struct {
	http *resty.Client
	cfg  Config
	log  *logger.Logger
}

// New creates a scraper client
func New(cfg Config, log *logger.Logger) *Client {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.MaxContentLength <= 0 {
		cfg.MaxContentLength = def.MaxContentLength
	}
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = def.MaxRedirects
	}
	if log == nil {
		log = logger.Nop()
	}

	httpClient := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8").
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(cfg.MaxRedirects))

	return &Client{
		http: httpClient,
		cfg:  cfg,
		log:  log.With("component", "scraper"),
	}
}

// Extract fetches rawURL once and extracts its title, description and
// main text. The readability pass runs first; when it finds too little
// text the selector-based extractor is used instead.
func (c *Client) Extract(ctx context.Context, rawURL string) (*Page, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, apierr.Validation("invalid URL: %s", rawURL)
	}

	doc, status, err := c.fetch(ctx, u.String())
	if err != nil {
		return nil, err
	}

	page := &Page{
		URL:         u.String(),
		Status:      status,
		Title:       pageTitle(doc),
		Description: pageDescription(doc),
	}

	content := readableText(doc, u)
	page.Extractor = ExtractorReadability
	if len(content) < minReadableLength {
		c.log.Debug("readability extraction too short, using selectors", "url", page.URL, "length", len(content))
		content = selectorText(doc)
		page.Extractor = ExtractorSelector
	}
	page.Content = truncate(content, c.cfg.MaxContentLength)

	page.WordCount = WordCount(page.Content)
	page.ReadingTime = ReadingTime(page.WordCount)
	page.ReadabilityScore = FleschReadingEase(page.Content)

	c.log.Info("page scraped", "url", page.URL, "extractor", page.Extractor, "words", page.WordCount)
	return page, nil
}

func (c *Client) fetch(ctx context.Context, target string) (*goquery.Document, int, error) {
	resp, err := c.http.R().SetContext(ctx).Get(target)
	if err != nil {
		return nil, 0, apierr.Upstream(http.StatusBadGateway, err, "failed to fetch %s", target)
	}
	if !resp.IsSuccess() {
		return nil, resp.StatusCode(), apierr.Upstream(resp.StatusCode(), nil,
			"failed to fetch %s: HTTP %d", target, resp.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
	if err != nil {
		return nil, resp.StatusCode(), apierr.Upstream(http.StatusBadGateway, err, "failed to parse %s", target)
	}
	return doc, resp.StatusCode(), nil
}

func pageTitle(doc *goquery.Document) string {
	if og, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok && strings.TrimSpace(og) != "" {
		return strings.TrimSpace(og)
	}
	if title := collapseSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	return collapseSpace(doc.Find("h1").First().Text())
}

func pageDescription(doc *goquery.Document) string {
	for _, sel := range []string{`meta[name="description"]`, `meta[property="og:description"]`} {
		if desc, ok := doc.Find(sel).First().Attr("content"); ok && strings.TrimSpace(desc) != "" {
			return strings.TrimSpace(desc)
		}
	}
	return ""
}

func truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return strings.TrimSpace(string(runes[:max])) + "..."
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
