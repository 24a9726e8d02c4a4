// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package app wires configuration into the store and its collaborators.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tejzpr/armis/internal/apierr"
	"github.com/tejzpr/armis/internal/config"
	"github.com/tejzpr/armis/internal/database"
	"github.com/tejzpr/armis/internal/git"
	"github.com/tejzpr/armis/internal/ingest"
	"github.com/tejzpr/armis/internal/item"
	"github.com/tejzpr/armis/internal/logger"
	"github.com/tejzpr/armis/internal/scrape"
	"github.com/tejzpr/armis/internal/storage"
	"github.com/tejzpr/armis/internal/store"
	"github.com/tejzpr/armis/pkg/scheduler"
)

// App holds the wired components of a running instance
type App struct {
	Config   *config.Config
	Log      *logger.Logger
	Backend  storage.Backend
	Store    *store.Store
	Scraper  *scrape.Client
	Ingester *ingest.Ingester

	history   *git.Snapshotter
	scheduler *scheduler.Scheduler
}

// New opens the configured backend and builds the store, scraper,
// ingester and, when enabled, the history snapshotter
func New(cfg *config.Config, log *logger.Logger) (*App, error) {
	if log == nil {
		log = logger.Nop()
	}

	backend, err := storage.Open(storage.Options{
		Backend:  cfg.Storage.Backend,
		DataDir:  cfg.Storage.DataDir,
		FileName: cfg.Storage.FileName,
		SQL: database.Config{
			Type:         cfg.Storage.SQL.Type,
			SQLitePath:   cfg.Storage.SQL.SQLitePath,
			PostgresDSN:  cfg.Storage.SQL.PostgresDSN,
			BusyTimeout:  time.Duration(cfg.Storage.SQL.BusyTimeoutMS) * time.Millisecond,
			MaxOpenConns: cfg.Storage.SQL.MaxOpenConns,
		},
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Storage.Backend, err)
	}

	st := store.New(backend, log)
	scraper := scrape.New(scrape.Config{
		Timeout:          time.Duration(cfg.Scraper.Timeout) * time.Second,
		UserAgent:        cfg.Scraper.UserAgent,
		MaxContentLength: cfg.Scraper.MaxContentLength,
		MaxRedirects:     cfg.Scraper.MaxRedirects,
	}, log)

	a := &App{
		Config:   cfg,
		Log:      log,
		Backend:  backend,
		Store:    st,
		Scraper:  scraper,
		Ingester: ingest.New(st, scraper, cfg.Ingest.MaxFileSize, log),
	}

	if cfg.History.Enabled {
		snap, err := git.NewSnapshotter(cfg.Storage.DataDir, cfg.Storage.FileName,
			cfg.History.Author, cfg.History.Email, log)
		if err != nil {
			backend.Close()
			return nil, fmt.Errorf("failed to open history repository: %w", err)
		}
		a.history = snap
		a.scheduler = scheduler.NewScheduler("history-snapshot",
			time.Duration(cfg.History.Interval)*time.Minute, func() error {
				_, err := a.Snapshot("interval")
				return err
			}, log)
	}

	return a, nil
}

// HistoryEnabled reports whether snapshots are recorded
func (a *App) HistoryEnabled() bool {
	return a.history != nil
}

// StartHistory starts periodic snapshots when history is enabled
func (a *App) StartHistory() {
	if a.scheduler != nil {
		a.scheduler.Start()
	}
}

// Snapshot commits the data file now. An unchanged file is not an error
// and yields a nil commit.
func (a *App) Snapshot(reason string) (*git.CommitInfo, error) {
	if a.history == nil {
		return nil, historyDisabled()
	}
	info, err := a.history.Snapshot(reason)
	if errors.Is(err, git.ErrNoChanges) {
		return nil, nil
	}
	return info, err
}

// Snapshots lists recorded snapshots, newest first
func (a *App) Snapshots(limit int) ([]git.CommitInfo, error) {
	if a.history == nil {
		return nil, historyDisabled()
	}
	commits, err := a.history.History(limit)
	if err != nil {
		return nil, apierr.Storage(err, "failed to read history")
	}
	return commits, nil
}

// SnapshotItems returns the collection as recorded at ref
func (a *App) SnapshotItems(ref string) ([]item.ContextItem, error) {
	if a.history == nil {
		return nil, historyDisabled()
	}
	data, err := a.history.At(ref)
	if err != nil {
		return nil, apierr.NotFound("Snapshot not found: %s", ref).WithDetails(err.Error())
	}

	var items []item.ContextItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, apierr.Storage(err, "snapshot %s is not a valid collection", ref)
	}
	return items, nil
}

// Restore imports the items recorded at ref. Items still present are
// kept as they are; only missing ids come back.
func (a *App) Restore(ctx context.Context, ref string) (*store.ImportResult, error) {
	items, err := a.SnapshotItems(ref)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []item.ContextItem{}
	}

	res, err := a.Store.Import(ctx, item.Envelope{Items: items})
	if err != nil {
		return nil, err
	}
	if res.Imported > 0 {
		if _, err := a.history.Restored(ref, res.Imported); err != nil && !errors.Is(err, git.ErrNoChanges) {
			a.Log.Warn("failed to record restore", "ref", ref, "error", err)
		}
	}
	return res, nil
}

// Close stops the scheduler, records a final snapshot and closes the
// backend
func (a *App) Close() error {
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.history != nil {
		if _, err := a.Snapshot("shutdown"); err != nil {
			a.Log.Warn("final snapshot failed", "error", err)
		}
	}
	return a.Backend.Close()
}

func historyDisabled() error {
	return apierr.NotFound("History is not enabled")
}
