// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/tejzpr/armis/internal/apierr"
	"github.com/tejzpr/armis/internal/item"
	"github.com/tejzpr/armis/internal/logger"
)

// JSONFile keeps the collection as a JSON array in a single file
type JSONFile struct {
	dir  string
	path string
	log  *logger.Logger
}

// NewJSONFile creates a JSON file backend at dir/name
func NewJSONFile(dir, name string, log *logger.Logger) *JSONFile {
	if log == nil {
		log = logger.Nop()
	}
	return &JSONFile{
		dir:  dir,
		path: filepath.Join(dir, name),
		log:  log,
	}
}

// Name returns the backend identifier reported by /health
func (s *JSONFile) Name() string { return BackendJSON }

// Path returns the backing file path
func (s *JSONFile) Path() string { return s.path }

// Load reads the collection. A missing, empty or unparsable file is an
// empty collection.
func (s *JSONFile) Load(ctx context.Context) ([]item.ContextItem, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []item.ContextItem{}, nil
		}
		return nil, apierr.Storage(err, "failed to read context store")
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return []item.ContextItem{}, nil
	}

	var items []item.ContextItem
	if err := json.Unmarshal(data, &items); err != nil {
		s.log.Warn("context store file is not valid JSON, treating as empty", "path", s.path, "error", err)
		return []item.ContextItem{}, nil
	}
	if items == nil {
		items = []item.ContextItem{}
	}
	for i := range items {
		item.Normalize(&items[i])
	}
	return items, nil
}

// Save rewrites the whole file. The data is written to a temporary file
// in the same directory and renamed over the target.
func (s *JSONFile) Save(ctx context.Context, items []item.ContextItem) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return apierr.Storage(err, "failed to create data directory")
	}

	if items == nil {
		items = []item.ContextItem{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return apierr.Storage(err, "failed to encode context items")
	}

	tmp, err := os.CreateTemp(s.dir, ".context-items-*.tmp")
	if err != nil {
		return apierr.Storage(err, "failed to create temporary file")
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return apierr.Storage(err, "failed to write context items")
	}
	if err := tmp.Close(); err != nil {
		return apierr.Storage(err, "failed to write context items")
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return apierr.Storage(err, "failed to replace context store file")
	}
	return nil
}

// Close is a no-op for the file backend
func (s *JSONFile) Close() error { return nil }
