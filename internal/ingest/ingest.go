// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package ingest turns uploaded files, local folders and web pages into
// context items.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tejzpr/armis/internal/item"
	"github.com/tejzpr/armis/internal/logger"
	"github.com/tejzpr/armis/internal/scrape"
	"github.com/tejzpr/armis/internal/store"
)

// Categories and tags stamped on ingested items
const (
	CategoryUpload = "Uploaded Files"
	CategoryFolder = "Folder Import"
	CategoryWeb    = "Web Content"

	TagUpload = "file-upload"
	TagFolder = "folder-import"
	TagWeb    = "web-import"
	TagURL    = "url"
)

// DefaultMaxFileSize is the largest file read during ingestion
const DefaultMaxFileSize int64 = 10 << 20

// DefaultMaxUploadSize caps a whole upload request body
const DefaultMaxUploadSize int64 = 100 << 20

// Scraper extracts the readable content of a web page
type Scraper interface {
	Extract(ctx context.Context, url string) (*scrape.Page, error)
}

// Upload is one file received from a client
type Upload struct {
	Filename     string
	MimeType     string
	Size         int64
	LastModified time.Time
	Data         []byte
}

// Source lists what to ingest. Every non-empty part contributes.
type Source struct {
	Files  []Upload
	Folder string
	URL    string
}

// Result reports the items created by one ingestion
type Result struct {
	Created []item.ContextItem `json:"items"`
	Total   int                `json:"total"`
}

// Ingester builds context items from external content and appends them
// to the store in a single write
type Ingester struct {
	store       *store.Store
	scraper     Scraper
	log         *logger.Logger
	maxFileSize int64
	now         func() time.Time
}

// New creates an ingester. scraper may be nil, in which case URL
// ingestion contributes nothing.
func New(st *store.Store, scraper Scraper, maxFileSize int64, log *logger.Logger) *Ingester {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Ingester{
		store:       st,
		scraper:     scraper,
		log:         log.With("component", "ingest"),
		maxFileSize: maxFileSize,
		now:         item.Now,
	}
}

// Ingest processes every part of src. Failures of single files, the
// folder or the URL are logged and skipped; only persisting the batch
// can fail the call.
func (in *Ingester) Ingest(ctx context.Context, src Source) (*Result, error) {
	var created []item.ContextItem
	created = append(created, in.fromUploads(src.Files)...)
	if strings.TrimSpace(src.Folder) != "" {
		created = append(created, in.fromFolder(src.Folder)...)
	}
	if strings.TrimSpace(src.URL) != "" {
		created = append(created, in.fromURL(ctx, strings.TrimSpace(src.URL))...)
	}

	total, err := in.store.Append(ctx, created)
	if err != nil {
		return nil, err
	}

	if created == nil {
		created = []item.ContextItem{}
	}
	in.log.Info("ingestion finished", "created", len(created), "total", total)
	return &Result{Created: created, Total: total}, nil
}

func (in *Ingester) fromUploads(files []Upload) []item.ContextItem {
	var out []item.ContextItem
	for _, f := range files {
		if int64(len(f.Data)) > in.maxFileSize {
			in.log.Warn("uploaded file too large, skipping", "file", f.Filename, "size", len(f.Data))
			continue
		}

		size := f.Size
		if size <= 0 {
			size = int64(len(f.Data))
		}
		modified := f.LastModified
		if modified.IsZero() {
			modified = in.now()
		}

		it, err := in.fileItem(f.Filename, f.Data, TagUpload, CategoryUpload, f.Filename, map[string]interface{}{
			"originalSize": size,
			"mimeType":     f.MimeType,
			"lastModified": modified.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			in.log.Warn("failed to process uploaded file", "file", f.Filename, "error", err)
			continue
		}
		out = append(out, it)
	}
	return out
}

func (in *Ingester) fromFolder(folder string) []item.ContextItem {
	abs, err := filepath.Abs(folder)
	if err != nil {
		in.log.Warn("failed to resolve folder", "folder", folder, "error", err)
		return nil
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		in.log.Warn("failed to read folder", "folder", abs, "error", err)
		return nil
	}

	var out []item.ContextItem
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}

		path := filepath.Join(abs, entry.Name())
		info, err := entry.Info()
		if err != nil {
			in.log.Warn("failed to stat file", "path", path, "error", err)
			continue
		}
		if info.Size() > in.maxFileSize {
			in.log.Warn("file too large, skipping", "path", path, "size", info.Size())
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			in.log.Warn("failed to read file", "path", path, "error", err)
			continue
		}

		it, err := in.fileItem(entry.Name(), data, TagFolder, CategoryFolder, path, map[string]interface{}{
			"sourceFolder": abs,
			"filename":     entry.Name(),
		})
		if err != nil {
			in.log.Warn("failed to process file", "path", path, "error", err)
			continue
		}
		out = append(out, it)
	}
	return out
}

func (in *Ingester) fromURL(ctx context.Context, url string) []item.ContextItem {
	if in.scraper == nil {
		in.log.Warn("no scraper configured, skipping url", "url", url)
		return nil
	}

	page, err := in.scraper.Extract(ctx, url)
	if err != nil {
		in.log.Warn("failed to scrape url", "url", url, "error", err)
		return nil
	}

	title := item.SanitizeTitle(page.Title)
	if title == "" {
		title = url
	}

	draft := item.Draft{
		Title:        title,
		Content:      strings.TrimSpace(page.Content),
		Type:         item.TypeReference,
		Tags:         []string{TagWeb, TagURL},
		Category:     CategoryWeb,
		Priority:     item.PriorityMedium,
		RelatedFiles: []string{url},
		Metadata: map[string]interface{}{
			"url":              url,
			"readabilityScore": page.ReadabilityScore,
			"wordCount":        page.WordCount,
			"readingTime":      page.ReadingTime,
			"description":      page.Description,
			"extractor":        page.Extractor,
		},
	}
	if err := draft.Validate(); err != nil {
		in.log.Warn("scraped page produced no usable item", "url", url, "error", err)
		return nil
	}
	return []item.ContextItem{draft.Build(in.now())}
}

func (in *Ingester) fileItem(name string, data []byte, sourceTag, category, related string, metadata map[string]interface{}) (item.ContextItem, error) {
	if !utf8.Valid(data) {
		return item.ContextItem{}, fmt.Errorf("%s is not a text file", name)
	}

	ext := Extension(name)
	doc := Parse(name, string(data))

	title := item.SanitizeTitle(doc.Title)
	if title == "" {
		base := filepath.Base(name)
		title = item.SanitizeTitle(strings.TrimSuffix(base, filepath.Ext(base)))
		if title == "" {
			title = base
		}
	}

	tags := []string{sourceTag, ext}
	for _, tag := range doc.Tags {
		tag = strings.TrimSpace(tag)
		if tag != "" && tag != sourceTag && tag != ext {
			tags = append(tags, tag)
		}
	}

	draft := item.Draft{
		Title:        title,
		Content:      doc.Content,
		Type:         item.TypeDocumentation,
		Tags:         tags,
		Category:     category,
		Priority:     item.PriorityMedium,
		RelatedFiles: []string{related},
		Metadata:     metadata,
	}
	if err := draft.Validate(); err != nil {
		return item.ContextItem{}, err
	}
	return draft.Build(in.now()), nil
}
