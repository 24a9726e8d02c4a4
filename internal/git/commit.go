// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package git

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ErrNoChanges is returned when there is nothing to commit
var ErrNoChanges = errors.New("no changes to commit")

// CommitOptions holds options for creating commits
type CommitOptions struct {
	Author  string
	Email   string
	Message string
}

// DefaultCommitOptions returns default commit options
func DefaultCommitOptions() *CommitOptions {
	return &CommitOptions{
		Author: "Armis",
		Email:  "armis@localhost",
	}
}

// AddAndCommit stages files and commits them, returning the new commit
// hash. ErrNoChanges is returned when the files are unchanged.
func (r *Repository) AddAndCommit(files []string, opts *CommitOptions) (string, error) {
	if opts == nil {
		opts = DefaultCommitOptions()
	}

	worktree, err := r.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to get worktree: %w", err)
	}

	for _, file := range files {
		relPath := file
		if filepath.IsAbs(file) {
			if rel, err := filepath.Rel(r.Path, file); err == nil {
				relPath = rel
			}
		}

		if _, err := worktree.Add(relPath); err != nil {
			return "", fmt.Errorf("failed to add file %s: %w", relPath, err)
		}
	}

	status, err := worktree.Status()
	if err != nil {
		return "", fmt.Errorf("failed to get status: %w", err)
	}
	staged := false
	for _, fs := range status {
		if fs.Staging != git.Unmodified && fs.Staging != git.Untracked {
			staged = true
			break
		}
	}
	if !staged {
		return "", ErrNoChanges
	}

	hash, err := worktree.Commit(opts.Message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  opts.Author,
			Email: opts.Email,
			When:  time.Now(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to commit: %w", err)
	}

	return hash.String(), nil
}

// CommitMessageFormats provides standard commit message formats
type CommitMessageFormats struct{}

// Snapshot returns the message for a snapshot of the data file
func (CommitMessageFormats) Snapshot(reason string, count int) string {
	return fmt.Sprintf("snapshot(%s): %d context items", reason, count)
}

// Restore returns the message recorded after restoring from a revision
func (CommitMessageFormats) Restore(ref string, imported int) string {
	return fmt.Sprintf("restore: %d context items from %s", imported, ref)
}
