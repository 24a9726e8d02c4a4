// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tejzpr/armis/internal/apierr"
	"github.com/tejzpr/armis/internal/git"
	"github.com/tejzpr/armis/internal/ingest"
	"github.com/tejzpr/armis/internal/item"
	"github.com/tejzpr/armis/internal/logger"
	"github.com/tejzpr/armis/internal/storage"
	"github.com/tejzpr/armis/internal/store"
	"gopkg.in/yaml.v3"
)

const defaultHistoryLimit = 50

// HistoryProvider lists git snapshots of the data file
type HistoryProvider interface {
	Snapshots(limit int) ([]git.CommitInfo, error)
}

// UploadLimits bounds /context/upload. Zero values use the ingest defaults.
type UploadLimits struct {
	MaxFileSize   int64 // per file
	MaxUploadSize int64 // whole request body
}

// ContextHandler serves the /context endpoints
type ContextHandler struct {
	store    *store.Store
	ingester *ingest.Ingester
	history  HistoryProvider
	limits   UploadLimits
	log      *logger.Logger
}

// NewContextHandler creates the handler. history may be nil.
func NewContextHandler(st *store.Store, in *ingest.Ingester, history HistoryProvider, limits UploadLimits, log *logger.Logger) *ContextHandler {
	if limits.MaxFileSize <= 0 {
		limits.MaxFileSize = ingest.DefaultMaxFileSize
	}
	if limits.MaxUploadSize <= 0 {
		limits.MaxUploadSize = ingest.DefaultMaxUploadSize
	}
	if log == nil {
		log = logger.Nop()
	}
	return &ContextHandler{
		store:    st,
		ingester: in,
		history:  history,
		limits:   limits,
		log:      log.With("handler", "ContextHandler"),
	}
}

// GET /context?type=&category=&tags=&priority=&isActive=&search=
func (h *ContextHandler) List(c *gin.Context) {
	filter := item.Filter{
		Types:      item.SplitList(c.Query("type")),
		Categories: item.SplitList(c.Query("category")),
		Tags:       item.SplitList(c.Query("tags")),
		Priorities: item.SplitList(c.Query("priority")),
		Search:     strings.TrimSpace(c.Query("search")),
	}
	switch c.Query("isActive") {
	case "true":
		active := true
		filter.IsActive = &active
	case "false":
		active := false
		filter.IsActive = &active
	}

	res, err := h.store.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.log, "list", err)
		return
	}
	respondOK(c, res)
}

// POST /context
func (h *ContextHandler) Create(c *gin.Context) {
	var draft item.Draft
	if err := c.ShouldBindJSON(&draft); err != nil {
		respondError(c, h.log, "create", apierr.Validation("Invalid request body").WithDetails(err.Error()))
		return
	}

	created, err := h.store.Create(c.Request.Context(), draft)
	if err != nil {
		respondError(c, h.log, "create", err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// GET /context/:id
func (h *ContextHandler) Get(c *gin.Context) {
	it, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, "get", err)
		return
	}
	respondOK(c, it)
}

// PUT /context/:id
func (h *ContextHandler) Update(c *gin.Context) {
	var patch item.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		respondError(c, h.log, "update", apierr.Validation("Invalid request body").WithDetails(err.Error()))
		return
	}

	updated, err := h.store.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		respondError(c, h.log, "update", err)
		return
	}
	respondOK(c, updated)
}

// DELETE /context/:id
func (h *ContextHandler) Delete(c *gin.Context) {
	if err := h.store.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.log, "delete", err)
		return
	}
	respondOK(c, gin.H{"message": "Context item deleted successfully"})
}

// GET /context/export?format=json|yaml
func (h *ContextHandler) Export(c *gin.Context) {
	env, err := h.store.Export(c.Request.Context())
	if err != nil {
		respondError(c, h.log, "export", err)
		return
	}

	stamp := env.ExportedAt.Format("2006-01-02")
	if strings.EqualFold(c.Query("format"), "yaml") {
		data, err := yaml.Marshal(env)
		if err != nil {
			respondError(c, h.log, "export", apierr.Storage(err, "Failed to encode export"))
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=context-export-%s.yaml", stamp))
		c.Data(http.StatusOK, "application/yaml", data)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=context-export-%s.json", stamp))
	respondOK(c, env)
}

// POST /context/export
func (h *ContextHandler) Import(c *gin.Context) {
	var env item.Envelope
	if err := c.ShouldBindJSON(&env); err != nil {
		respondError(c, h.log, "import", apierr.Validation("Invalid import data").WithDetails(err.Error()))
		return
	}

	res, err := h.store.Import(c.Request.Context(), env)
	if err != nil {
		respondError(c, h.log, "import", err)
		return
	}
	respondOK(c, gin.H{
		"message":  fmt.Sprintf("Successfully imported %d items", res.Imported),
		"imported": res.Imported,
		"total":    res.Total,
	})
}

type ingestRequest struct {
	Folder string `json:"folder"`
	URL    string `json:"url"`
}

// POST /context/upload
//
// Accepts a multipart form with files under "files" or "files[]" plus
// optional "folder" and "url" values, or a JSON body {folder, url}.
func (h *ContextHandler) Upload(c *gin.Context) {
	var src ingest.Source
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.limits.MaxUploadSize)

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		form, err := c.MultipartForm()
		if err != nil {
			respondError(c, h.log, "upload", h.bodyError("Invalid multipart form", err))
			return
		}
		src.Folder = formValue(form, "folder")
		src.URL = formValue(form, "url")

		headers := append(form.File["files"], form.File["files[]"]...)
		for _, fh := range headers {
			up, err := h.readUpload(fh)
			if err != nil {
				h.log.Warn("cannot read uploaded file, skipping", "file", fh.Filename, "error", err)
				continue
			}
			src.Files = append(src.Files, up)
		}
	} else if c.Request.ContentLength != 0 {
		var req ingestRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, h.log, "upload", h.bodyError("Invalid request body", err))
			return
		}
		src.Folder = req.Folder
		src.URL = req.URL
	}

	res, err := h.ingester.Ingest(c.Request.Context(), src)
	if err != nil {
		respondError(c, h.log, "upload", err)
		return
	}
	respondOK(c, gin.H{
		"message": fmt.Sprintf("Successfully processed %d items", len(res.Created)),
		"created": len(res.Created),
		"total":   res.Total,
		"items":   res.Created,
	})
}

func (h *ContextHandler) bodyError(msg string, err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apierr.TooLarge("Upload exceeds %d bytes", tooLarge.Limit)
	}
	return apierr.Validation("%s", msg).WithDetails(err.Error())
}

// readUpload reads at most one byte past the size limit so the ingester
// can reject oversize files without buffering them whole
func (h *ContextHandler) readUpload(fh *multipart.FileHeader) (ingest.Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return ingest.Upload{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.limits.MaxFileSize+1))
	if err != nil {
		return ingest.Upload{}, err
	}

	mimeType := fh.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return ingest.Upload{
		Filename: fh.Filename,
		MimeType: mimeType,
		Size:     fh.Size,
		Data:     data,
	}, nil
}

func formValue(form *multipart.Form, key string) string {
	if v := form.Value[key]; len(v) > 0 {
		return strings.TrimSpace(v[0])
	}
	return ""
}

// GET /context/history?limit=50
func (h *ContextHandler) History(c *gin.Context) {
	if h.history == nil {
		respondError(c, h.log, "history", apierr.NotFound("History is not enabled"))
		return
	}

	limit := defaultHistoryLimit
	if v := strings.TrimSpace(c.Query("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	snapshots, err := h.history.Snapshots(limit)
	if err != nil {
		respondError(c, h.log, "history", err)
		return
	}
	if snapshots == nil {
		snapshots = []git.CommitInfo{}
	}
	respondOK(c, gin.H{"snapshots": snapshots})
}

const healthPingTimeout = 2 * time.Second

// HealthHandler reports liveness and the active backend. Backends with a
// connection are pinged on every check.
type HealthHandler struct {
	backend storage.Backend
	log     *logger.Logger
}

func NewHealthHandler(backend storage.Backend, log *logger.Logger) *HealthHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &HealthHandler{backend: backend, log: log.With("handler", "HealthHandler")}
}

// GET /health
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	name := h.backend.Name()
	if p, ok := h.backend.(storage.Pinger); ok {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthPingTimeout)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			h.log.Warn("backend ping failed", "backend", name, "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "backend": name, "error": err.Error()})
			return
		}
	}
	respondOK(c, gin.H{"status": "ok", "backend": name})
}
