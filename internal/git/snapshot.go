// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package git

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tejzpr/armis/internal/logger"
)

// Snapshotter versions a single data file inside its directory's
// git repository
type Snapshotter struct {
	repo *Repository
	file string
	opts CommitOptions
	log  *logger.Logger
	mu   sync.Mutex
}

// NewSnapshotter opens (or initializes) the repository at dir and
// tracks fileName inside it
func NewSnapshotter(dir, fileName, author, email string, log *logger.Logger) (*Snapshotter, error) {
	repo, err := OpenOrInit(dir)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}

	opts := DefaultCommitOptions()
	if author != "" {
		opts.Author = author
	}
	if email != "" {
		opts.Email = email
	}

	return &Snapshotter{
		repo: repo,
		file: filepath.Join(dir, fileName),
		opts: *opts,
		log:  log.With("component", "history", "file", fileName),
	}, nil
}

// Repository returns the underlying repository
func (s *Snapshotter) Repository() *Repository {
	return s.repo
}

// Snapshot commits the data file when it changed since the last
// snapshot. ErrNoChanges is returned otherwise.
func (s *Snapshotter) Snapshot(reason string) (*CommitInfo, error) {
	return s.commit(func(count int) string {
		return CommitMessageFormats{}.Snapshot(reason, count)
	})
}

// Restored records the data file after items were restored from ref
func (s *Snapshotter) Restored(ref string, imported int) (*CommitInfo, error) {
	return s.commit(func(int) string {
		return CommitMessageFormats{}.Restore(ref, imported)
	})
}

func (s *Snapshotter) commit(message func(count int) string) (*CommitInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.file)
	if os.IsNotExist(err) {
		return nil, ErrNoChanges
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read data file: %w", err)
	}

	opts := s.opts
	opts.Message = message(countItems(data))

	hash, err := s.repo.AddAndCommit([]string{s.file}, &opts)
	if err != nil {
		return nil, err
	}

	s.log.Info("snapshot committed", "hash", hash, "message", opts.Message)
	return &CommitInfo{
		Hash:      hash,
		Message:   opts.Message,
		Author:    opts.Author,
		Email:     opts.Email,
		Timestamp: time.Now().UTC(),
	}, nil
}

// History lists snapshots of the data file, newest first
func (s *Snapshotter) History(limit int) ([]CommitInfo, error) {
	return s.repo.Log(s.file, limit)
}

// At returns the data file as it was at ref
func (s *Snapshotter) At(ref string) ([]byte, error) {
	return s.repo.FileAtRevision(s.file, ref)
}

func countItems(data []byte) int {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return 0
	}
	return len(items)
}
