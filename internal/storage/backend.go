// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package storage

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/tejzpr/armis/internal/database"
	"github.com/tejzpr/armis/internal/item"
	"github.com/tejzpr/armis/internal/logger"
	gormlogger "gorm.io/gorm/logger"
)

// Backend names
const (
	BackendJSON   = "json"
	BackendSQL    = "sql"
	BackendBadger = "badger"
)

// DefaultFileName is the JSON backing file inside the data directory
const DefaultFileName = "context-items.json"

// Backend persists the whole context item collection. Load returns the
// full collection in stored order; Save replaces it entirely.
type Backend interface {
	Name() string
	Load(ctx context.Context) ([]item.ContextItem, error)
	Save(ctx context.Context, items []item.ContextItem) error
	Close() error
}

// Pinger is implemented by backends that hold a connection worth
// checking from /health
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options selects and configures a backend
type Options struct {
	Backend  string
	DataDir  string
	FileName string
	SQL      database.Config
}

// ValidBackends returns all supported backend names
func ValidBackends() []string {
	return []string{BackendJSON, BackendSQL, BackendBadger}
}

// Open creates the backend described by opts
func Open(opts Options, log *logger.Logger) (Backend, error) {
	switch opts.Backend {
	case "", BackendJSON:
		name := opts.FileName
		if name == "" {
			name = DefaultFileName
		}
		return NewJSONFile(opts.DataDir, name, log), nil

	case BackendSQL:
		sqlCfg := opts.SQL
		if sqlCfg.LogLevel == 0 {
			sqlCfg.LogLevel = gormlogger.Silent
		}
		return NewSQL(&sqlCfg)

	case BackendBadger:
		return NewBadger(filepath.Join(opts.DataDir, "badger"))

	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", opts.Backend)
	}
}
