// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tejzpr/armis/internal/item"
	"github.com/tejzpr/armis/internal/logger"
	"github.com/tejzpr/armis/internal/scrape"
	"github.com/tejzpr/armis/internal/storage"
	"github.com/tejzpr/armis/internal/store"
)

type fakeScraper struct {
	page *scrape.Page
	err  error
	urls []string
}

func (f *fakeScraper) Extract(ctx context.Context, url string) (*scrape.Page, error) {
	f.urls = append(f.urls, url)
	return f.page, f.err
}

func newTestIngester(t *testing.T, scraper Scraper) (*Ingester, *store.Store) {
	t.Helper()
	backend := storage.NewJSONFile(t.TempDir(), storage.DefaultFileName, logger.Nop())
	st := store.New(backend, logger.Nop())
	return New(st, scraper, 0, logger.Nop()), st
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		input    string
		want     string
	}{
		{"markdown heading and bold", "doc.md", "# Title\n**bold** text", "Title\nbold text"},
		{"markdown link keeps label", "doc.md", "See [the docs](https://example.com) now", "See the docs now"},
		{"markdown image removed", "doc.markdown", "Before ![logo](logo.png) after", "Before  after"},
		{"markdown fenced code removed", "doc.md", "Intro\n\n```go\nfmt.Println()\n```\n\nOutro", "Intro\n\nOutro"},
		{"markdown italic and code", "doc.md", "An *emphasis* and _another_ with `code`", "An emphasis and another with code"},
		{"markdown keeps snake_case", "doc.md", "use snake_case_names", "use snake_case_names"},
		{"markdown code keeps stars", "doc.md", "Glob `a*b*c` here", "Glob a*b*c here"},
		{"markdown code keeps dunder", "doc.md", "Define `__init__` first", "Define __init__ first"},
		{"markdown code keeps link syntax", "doc.md", "Write `[x](y)` and **bold**", "Write [x](y) and bold"},
		{"json reindented in order", "data.json", `{"b":1,"a":[1,2]}`, "{\n  \"b\": 1,\n  \"a\": [\n    1,\n    2\n  ]\n}"},
		{"invalid json unchanged", "data.json", `{"b":`, `{"b":`},
		{"text blank lines collapsed", "notes.txt", "one\n\n\n\ntwo\n \n\nthree", "one\n\ntwo\n\nthree"},
		{"unknown extension treated as text", "Makefile", "all:\n\n\n\tgo build\n", "all:\n\n\tgo build"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.filename, tt.input))
		})
	}
}

func TestExtension(t *testing.T) {
	assert.Equal(t, "md", Extension("README.MD"))
	assert.Equal(t, "json", Extension("/tmp/a.b.json"))
	assert.Equal(t, "txt", Extension("LICENSE"))
	assert.Equal(t, FormatMarkdown, FormatOf("x.markdown"))
	assert.Equal(t, FormatText, FormatOf("x.yaml"))
}

func TestParse_Frontmatter(t *testing.T) {
	doc := Parse("note.md", "---\ntitle: From Header\ntags:\n  - go\n  - style\n---\n\n# Body\nText")
	assert.Equal(t, "From Header", doc.Title)
	assert.Equal(t, []string{"go", "style"}, doc.Tags)
	assert.Equal(t, "Body\nText", doc.Content)

	unclosed := Parse("note.md", "---\ntitle: x\nbody without end")
	assert.Empty(t, unclosed.Title)
	assert.Contains(t, unclosed.Content, "body without end")

	invalid := Parse("note.md", "---\ntitle: [unclosed\n---\nbody")
	assert.Empty(t, invalid.Title)
	assert.Contains(t, invalid.Content, "body")

	plain := Parse("data.txt", "---\ntitle: ignored\n---\n")
	assert.Empty(t, plain.Title)
}

func TestIngest_Uploads(t *testing.T) {
	in, st := newTestIngester(t, nil)
	ctx := context.Background()

	res, err := in.Ingest(ctx, Source{Files: []Upload{
		{Filename: "guide.md", MimeType: "text/markdown", Data: []byte("# Title\n**bold** text")},
		{Filename: "empty.txt", MimeType: "text/plain", Data: []byte("   ")},
		{Filename: "blob.bin", MimeType: "application/octet-stream", Data: []byte{0xff, 0xfe, 0x00}},
	}})
	require.NoError(t, err)
	require.Len(t, res.Created, 1)
	assert.Equal(t, 1, res.Total)

	it := res.Created[0]
	assert.Equal(t, "guide", it.Title)
	assert.Equal(t, "Title\nbold text", it.Content)
	assert.Equal(t, item.TypeDocumentation, it.Type)
	assert.Equal(t, CategoryUpload, it.Category)
	assert.Equal(t, item.PriorityMedium, it.Priority)
	assert.Equal(t, []string{TagUpload, "md"}, it.Tags)
	assert.Equal(t, []string{"guide.md"}, it.RelatedFiles)
	assert.Equal(t, "text/markdown", it.Metadata["mimeType"])
	assert.EqualValues(t, 21, it.Metadata["originalSize"])
	assert.NotEmpty(t, it.Metadata["lastModified"])
	assert.True(t, it.IsActive)

	stored, err := st.Get(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, "Title\nbold text", stored.Content)
}

func TestIngest_UploadTooLarge(t *testing.T) {
	backend := storage.NewJSONFile(t.TempDir(), storage.DefaultFileName, logger.Nop())
	in := New(store.New(backend, logger.Nop()), nil, 4, logger.Nop())

	res, err := in.Ingest(context.Background(), Source{Files: []Upload{
		{Filename: "big.txt", Data: []byte("more than four bytes")},
	}})
	require.NoError(t, err)
	assert.Empty(t, res.Created)
	assert.Equal(t, 0, res.Total)
}

func TestIngest_Folder(t *testing.T) {
	in, _ := newTestIngester(t, nil)
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("---\ntitle: Alpha\ntags: [md, extra]\n---\nAlpha **body**"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.json"), []byte(`{"k":"v"}`), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "c.txt"), []byte("not imported"), 0644))

	res, err := in.Ingest(context.Background(), Source{Folder: dir})
	require.NoError(t, err)
	require.Len(t, res.Created, 2)

	byTitle := make(map[string]item.ContextItem)
	for _, it := range res.Created {
		byTitle[it.Title] = it
	}

	alpha, ok := byTitle["Alpha"]
	require.True(t, ok)
	assert.Equal(t, "Alpha body", alpha.Content)
	assert.Equal(t, CategoryFolder, alpha.Category)
	assert.Equal(t, []string{TagFolder, "md", "extra"}, alpha.Tags)
	absDir, err := filepath.Abs(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(absDir, "a.md")}, alpha.RelatedFiles)
	assert.Equal(t, absDir, alpha.Metadata["sourceFolder"])
	assert.Equal(t, "a.md", alpha.Metadata["filename"])

	b, ok := byTitle["b"]
	require.True(t, ok)
	assert.Equal(t, "{\n  \"k\": \"v\"\n}", b.Content)
	assert.Equal(t, []string{TagFolder, "json"}, b.Tags)
}

func TestIngest_MissingFolderDoesNotAbortOtherSources(t *testing.T) {
	in, _ := newTestIngester(t, nil)

	res, err := in.Ingest(context.Background(), Source{
		Folder: filepath.Join(t.TempDir(), "does-not-exist"),
		Files:  []Upload{{Filename: "keep.txt", Data: []byte("kept")}},
	})
	require.NoError(t, err)
	require.Len(t, res.Created, 1)
	assert.Equal(t, "keep", res.Created[0].Title)
}

func TestIngest_URL(t *testing.T) {
	scraper := &fakeScraper{page: &scrape.Page{
		Title:            "",
		Description:      "desc",
		Content:          "Scraped body text",
		ReadabilityScore: 62.5,
		WordCount:        3,
		ReadingTime:      1,
		Extractor:        scrape.ExtractorReadability,
	}}
	in, _ := newTestIngester(t, scraper)

	res, err := in.Ingest(context.Background(), Source{URL: " https://example.com/page "})
	require.NoError(t, err)
	require.Len(t, res.Created, 1)
	assert.Equal(t, []string{"https://example.com/page"}, scraper.urls)

	it := res.Created[0]
	assert.Equal(t, "https://example.com/page", it.Title)
	assert.Equal(t, item.TypeReference, it.Type)
	assert.Equal(t, CategoryWeb, it.Category)
	assert.Equal(t, []string{TagWeb, TagURL}, it.Tags)
	assert.Equal(t, []string{"https://example.com/page"}, it.RelatedFiles)
	assert.Equal(t, 62.5, it.Metadata["readabilityScore"])
	assert.Equal(t, 3, it.Metadata["wordCount"])
	assert.Equal(t, "https://example.com/page", it.Metadata["url"])
}

func TestIngest_URLFailureContributesNothing(t *testing.T) {
	scraper := &fakeScraper{err: errors.New("connection refused")}
	in, _ := newTestIngester(t, scraper)

	res, err := in.Ingest(context.Background(), Source{
		URL:   "https://example.com",
		Files: []Upload{{Filename: "one.txt", Data: []byte("one")}},
	})
	require.NoError(t, err)
	assert.Len(t, res.Created, 1)
	assert.Equal(t, 1, res.Total)
}

func TestIngest_NothingToDo(t *testing.T) {
	in, _ := newTestIngester(t, nil)

	res, err := in.Ingest(context.Background(), Source{URL: "https://example.com"})
	require.NoError(t, err)
	assert.NotNil(t, res.Created)
	assert.Empty(t, res.Created)
	assert.Equal(t, 0, res.Total)
}
