// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tejzpr/armis/internal/database"
	"github.com/tejzpr/armis/internal/git"
	"github.com/tejzpr/armis/internal/ingest"
	"github.com/tejzpr/armis/internal/item"
	"github.com/tejzpr/armis/internal/logger"
	"github.com/tejzpr/armis/internal/storage"
	"github.com/tejzpr/armis/internal/store"
	"gopkg.in/yaml.v3"
)

type fakeHistory struct {
	snapshots []git.CommitInfo
	err       error
}

func (f *fakeHistory) Snapshots(limit int) ([]git.CommitInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit > 0 && limit < len(f.snapshots) {
		return f.snapshots[:limit], nil
	}
	return f.snapshots, nil
}

// pingBackend is a json backend that reports a connection state
type pingBackend struct {
	storage.Backend
	err error
}

func (p *pingBackend) Ping(ctx context.Context) error { return p.err }

const (
	testMaxFileSize   = 1024
	testMaxUploadSize = 8192
)

func newTestRouter(t *testing.T, history HistoryProvider) *gin.Engine {
	t.Helper()
	return newBackendRouter(t, storage.NewJSONFile(t.TempDir(), storage.DefaultFileName, logger.Nop()), history)
}

func newBackendRouter(t *testing.T, backend storage.Backend, history HistoryProvider) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := store.New(backend, logger.Nop())
	in := ingest.New(st, nil, testMaxFileSize, logger.Nop())
	limits := UploadLimits{MaxFileSize: testMaxFileSize, MaxUploadSize: testMaxUploadSize}

	return NewRouter(RouterConfig{
		ContextHandler: NewContextHandler(st, in, history, limits, logger.Nop()),
		HealthHandler:  NewHealthHandler(backend, logger.Nop()),
		Log:            logger.Nop(),
	})
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func createItem(t *testing.T, r http.Handler, body map[string]interface{}) item.ContextItem {
	t.Helper()
	rec := doJSON(t, r, http.MethodPost, "/context", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var it item.ContextItem
	decodeBody(t, rec, &it)
	return it
}

func noteBody() map[string]interface{} {
	return map[string]interface{}{
		"title": "A", "content": "B", "type": "note", "category": "C", "priority": "low",
	}
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t, nil)

	rec := doJSON(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","backend":"json"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(headerRequestID))
}

func TestHealth_PingFailureIsDegraded(t *testing.T) {
	backend := &pingBackend{
		Backend: storage.NewJSONFile(t.TempDir(), storage.DefaultFileName, logger.Nop()),
		err:     errors.New("connection refused"),
	}
	r := newBackendRouter(t, backend, nil)

	rec := doJSON(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"degraded","backend":"json","error":"connection refused"}`, rec.Body.String())

	backend.err = nil
	rec = doJSON(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","backend":"json"}`, rec.Body.String())
}

func TestHealth_SQLBackend(t *testing.T) {
	backend, err := storage.Open(storage.Options{
		Backend: storage.BackendSQL,
		SQL:     database.Config{Type: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "armis.db")},
	}, logger.Nop())
	require.NoError(t, err)
	r := newBackendRouter(t, backend, nil)

	rec := doJSON(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","backend":"sql"}`, rec.Body.String())

	require.NoError(t, backend.Close())
	rec = doJSON(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body map[string]string
	decodeBody(t, rec, &body)
	assert.Equal(t, "degraded", body["status"])
	assert.NotEmpty(t, body["error"])
}

func TestRequestIDIsEchoed(t *testing.T) {
	r := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(headerRequestID, "abc-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get(headerRequestID))
}

func TestCreateThenListByType(t *testing.T) {
	r := newTestRouter(t, nil)

	created := createItem(t, r, noteBody())
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)
	assert.True(t, created.IsActive)

	createItem(t, r, map[string]interface{}{
		"title": "R", "content": "x", "type": "rule", "category": "C", "priority": "high",
		"tags": []string{"go"},
	})

	var res item.ListResult
	rec := doJSON(t, r, http.MethodGet, "/context?type=note", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &res)
	assert.Equal(t, 1, res.Total)
	assert.Equal(t, 2, res.AllItems)
	require.Len(t, res.Items, 1)
	assert.Equal(t, created.ID, res.Items[0].ID)
}

func TestList_QueryFilters(t *testing.T) {
	r := newTestRouter(t, nil)
	createItem(t, r, noteBody())
	inactive := noteBody()
	inactive["isActive"] = false
	inactive["tags"] = []string{"old", "draft"}
	createItem(t, r, inactive)

	tests := []struct {
		name  string
		query string
		total int
	}{
		{"no filter", "", 2},
		{"active only", "?isActive=true", 1},
		{"inactive only", "?isActive=false", 1},
		{"unparsable isActive ignored", "?isActive=maybe", 2},
		{"tag intersection", "?tags=draft,missing", 1},
		{"priority list", "?priority=high,critical", 0},
		{"search is case insensitive", "?search=DRAFT", 1},
		{"category and type", "?category=C&type=note,rule", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var res item.ListResult
			rec := doJSON(t, r, http.MethodGet, "/context"+tt.query, nil)
			require.Equal(t, http.StatusOK, rec.Code)
			decodeBody(t, rec, &res)
			assert.Equal(t, tt.total, res.Total)
			assert.Len(t, res.Items, tt.total)
			assert.Equal(t, 2, res.AllItems)
		})
	}
}

func TestCreate_Errors(t *testing.T) {
	r := newTestRouter(t, nil)

	rec := doJSON(t, r, http.MethodPost, "/context", map[string]interface{}{"title": "only"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body ErrorBody
	decodeBody(t, rec, &body)
	assert.Contains(t, body.Error, "Missing required fields")
	assert.Contains(t, body.Error, "content")

	rec = doJSON(t, r, http.MethodPost, "/context", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	decodeBody(t, rec, &body)
	assert.Equal(t, "Invalid request body", body.Error)
	assert.NotEmpty(t, body.Details)

	bad := noteBody()
	bad["priority"] = "urgent"
	rec = doJSON(t, r, http.MethodPost, "/context", bad)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetUpdateDelete(t *testing.T) {
	r := newTestRouter(t, nil)
	created := createItem(t, r, noteBody())

	rec := doJSON(t, r, http.MethodGet, "/context/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	time.Sleep(2 * time.Millisecond)
	rec = doJSON(t, r, http.MethodPut, "/context/"+created.ID, map[string]interface{}{"priority": "high"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated item.ContextItem
	decodeBody(t, rec, &updated)
	assert.Equal(t, item.PriorityHigh, updated.Priority)
	assert.Equal(t, created.Title, updated.Title)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

	rec = doJSON(t, r, http.MethodDelete, "/context/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Context item deleted successfully"}`, rec.Body.String())

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		rec = doJSON(t, r, method, "/context/"+created.ID, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, method)
	}
	rec = doJSON(t, r, http.MethodPut, "/context/"+created.ID, map[string]interface{}{"title": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdate_InvalidMerge(t *testing.T) {
	r := newTestRouter(t, nil)
	created := createItem(t, r, noteBody())

	rec := doJSON(t, r, http.MethodPut, "/context/"+created.ID, map[string]interface{}{"type": "bogus"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, r, http.MethodPut, "/context/"+created.ID, "[1,2]")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportImport(t *testing.T) {
	src := newTestRouter(t, nil)
	createItem(t, src, noteBody())
	createItem(t, src, noteBody())

	rec := doJSON(t, src, http.MethodGet, "/context/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "context-export-")
	var env item.Envelope
	decodeBody(t, rec, &env)
	assert.Equal(t, item.EnvelopeVersion, env.Version)
	assert.Len(t, env.Items, 2)
	assert.Equal(t, []item.Category{{ID: "c", Name: "C", ItemCount: 2}}, env.Categories)

	dst := newTestRouter(t, nil)
	rec = doJSON(t, dst, http.MethodPost, "/context/export", env)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res struct {
		Message  string `json:"message"`
		Imported int    `json:"imported"`
		Total    int    `json:"total"`
	}
	decodeBody(t, rec, &res)
	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, 2, res.Total)

	rec = doJSON(t, dst, http.MethodPost, "/context/export", env)
	decodeBody(t, rec, &res)
	assert.Equal(t, 0, res.Imported)
	assert.Equal(t, 2, res.Total)

	var listed item.ListResult
	decodeBody(t, doJSON(t, dst, http.MethodGet, "/context", nil), &listed)
	ids := map[string]bool{}
	for _, it := range listed.Items {
		ids[it.ID] = true
	}
	for _, it := range env.Items {
		assert.True(t, ids[it.ID], it.ID)
	}
}

func TestExport_YAML(t *testing.T) {
	r := newTestRouter(t, nil)
	createItem(t, r, noteBody())

	rec := doJSON(t, r, http.MethodGet, "/context/export?format=yaml", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".yaml")

	var env item.Envelope
	require.NoError(t, yaml.Unmarshal(rec.Body.Bytes(), &env))
	require.Len(t, env.Items, 1)
	assert.Equal(t, "A", env.Items[0].Title)
}

func TestImport_InvalidShape(t *testing.T) {
	r := newTestRouter(t, nil)

	for name, body := range map[string]string{
		"not json":      "{oops",
		"missing items": `{"version":"1.0"}`,
		"items object":  `{"items":{"a":1}}`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := doJSON(t, r, http.MethodPost, "/context/export", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func multipartBody(t *testing.T, field string, files map[string]string, values map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, content := range files {
		part, err := w.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	for k, v := range values {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

type uploadResponse struct {
	Message string             `json:"message"`
	Created int                `json:"created"`
	Total   int                `json:"total"`
	Items   []item.ContextItem `json:"items"`
}

func TestUpload_Markdown(t *testing.T) {
	r := newTestRouter(t, nil)

	body, contentType := multipartBody(t, "files[]", map[string]string{
		"notes.md": "# Title\n**bold** text",
	}, nil)
	req := httptest.NewRequest(http.MethodPost, "/context/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res uploadResponse
	decodeBody(t, rec, &res)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 1, res.Total)
	require.Len(t, res.Items, 1)

	it := res.Items[0]
	assert.Equal(t, "notes", it.Title)
	assert.Equal(t, "Title\nbold text", it.Content)
	assert.Equal(t, item.TypeDocumentation, it.Type)
	assert.Equal(t, ingest.CategoryUpload, it.Category)
	assert.Equal(t, []string{"notes.md"}, it.RelatedFiles)
	assert.Contains(t, it.Tags, ingest.TagUpload)
	assert.Contains(t, it.Tags, "md")
}

func TestUpload_SkipsOversizeAndKeepsRest(t *testing.T) {
	r := newTestRouter(t, nil)

	body, contentType := multipartBody(t, "files", map[string]string{
		"big.txt":   strings.Repeat("x", 2048),
		"small.txt": "fine",
	}, nil)
	req := httptest.NewRequest(http.MethodPost, "/context/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var res uploadResponse
	decodeBody(t, rec, &res)
	require.Equal(t, 1, res.Created)
	assert.Equal(t, "small", res.Items[0].Title)
}

func TestUpload_BodyOverLimit(t *testing.T) {
	r := newTestRouter(t, nil)

	files := map[string]string{}
	for i := 0; i < 12; i++ {
		files[fmt.Sprintf("part-%02d.txt", i)] = strings.Repeat("y", 1000)
	}
	body, contentType := multipartBody(t, "files", files, nil)
	require.Greater(t, body.Len(), testMaxUploadSize)

	req := httptest.NewRequest(http.MethodPost, "/context/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())

	rec = doJSON(t, r, http.MethodPost, "/context/upload", map[string]string{
		"folder": strings.Repeat("z", testMaxUploadSize),
	})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())

	// Nothing was stored
	rec = doJSON(t, r, http.MethodGet, "/context", nil)
	var res item.ListResult
	decodeBody(t, rec, &res)
	assert.Equal(t, 0, res.AllItems)
}

func TestUpload_FolderField(t *testing.T) {
	r := newTestRouter(t, nil)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("alpha"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.json"), []byte(`{"k":1}`), 0644))

	body, contentType := multipartBody(t, "files", nil, map[string]string{"folder": dir})
	req := httptest.NewRequest(http.MethodPost, "/context/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res uploadResponse
	decodeBody(t, rec, &res)
	assert.Equal(t, 2, res.Created)

	rec = doJSON(t, r, http.MethodPost, "/context/upload", map[string]string{"folder": dir})
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &res)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 4, res.Total)
}

func TestUpload_BadForm(t *testing.T) {
	r := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/context/upload", strings.NewReader("garbage"))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=nope")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistory(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		rec := doJSON(t, newTestRouter(t, nil), http.MethodGet, "/context/history", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("lists snapshots", func(t *testing.T) {
		h := &fakeHistory{snapshots: []git.CommitInfo{
			{Hash: "b", Message: "snapshot(interval): 2 context items"},
			{Hash: "a", Message: "snapshot(interval): 1 context items"},
		}}
		rec := doJSON(t, newTestRouter(t, h), http.MethodGet, "/context/history?limit=1", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var res struct {
			Snapshots []git.CommitInfo `json:"snapshots"`
		}
		decodeBody(t, rec, &res)
		require.Len(t, res.Snapshots, 1)
		assert.Equal(t, "b", res.Snapshots[0].Hash)
	})

	t.Run("provider error", func(t *testing.T) {
		h := &fakeHistory{err: errors.New("repository corrupt")}
		rec := doJSON(t, newTestRouter(t, h), http.MethodGet, "/context/history", nil)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name    string
		origins []string
		origin  string
		want    string
	}{
		{"any origin when unset", nil, "http://example.test", "*"},
		{"listed origin", []string{"http://localhost:5173"}, "http://localhost:5173", "http://localhost:5173"},
		{"unlisted origin", []string{"http://localhost:5173"}, "http://evil.test", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(CORS(tt.origins))
			r.GET("/context", func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(http.MethodGet, "/context", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}
