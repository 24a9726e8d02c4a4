// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package git

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// CommitInfo represents information about a commit
type CommitInfo struct {
	Hash      string    `json:"hash"`
	Message   string    `json:"message"`
	Author    string    `json:"author"`
	Email     string    `json:"email"`
	Timestamp time.Time `json:"timestamp"`
}

// Log returns up to limit commits touching filePath, newest first. An
// empty path lists every commit; limit <= 0 means no limit. A
// repository without commits yields an empty list.
func (r *Repository) Log(filePath string, limit int) ([]CommitInfo, error) {
	commits := []CommitInfo{}

	ref, err := r.repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return commits, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD: %w", err)
	}

	logOpts := &git.LogOptions{From: ref.Hash()}
	if filePath != "" {
		rel := r.relative(filePath)
		logOpts.FileName = &rel
	}

	iter, err := r.repo.Log(logOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to get commit log: %w", err)
	}
	defer iter.Close()

	err = iter.ForEach(func(c *object.Commit) error {
		if limit > 0 && len(commits) >= limit {
			return storer.ErrStop
		}
		commits = append(commits, CommitInfo{
			Hash:      c.Hash.String(),
			Message:   strings.TrimSpace(c.Message),
			Author:    c.Author.Name,
			Email:     c.Author.Email,
			Timestamp: c.Author.When.UTC(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate commits: %w", err)
	}

	return commits, nil
}

// FileAtRevision returns the content of a file at a specific revision
func (r *Repository) FileAtRevision(filePath string, ref string) ([]byte, error) {
	hash, err := r.resolveRef(ref)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve ref '%s': %w", ref, err)
	}

	commit, err := r.repo.CommitObject(hash)
	if err != nil {
		return nil, fmt.Errorf("failed to get commit: %w", err)
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get tree: %w", err)
	}

	file, err := tree.File(r.relative(filePath))
	if err != nil {
		return nil, fmt.Errorf("file not found at revision: %w", err)
	}

	content, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("failed to read file content: %w", err)
	}

	return []byte(content), nil
}

// resolveRef resolves a reference string to a hash
// Supports: HEAD, HEAD~N, branch names, tag names, and commit hashes
func (r *Repository) resolveRef(ref string) (plumbing.Hash, error) {
	if ref == "" {
		ref = "HEAD"
	}

	if ref == "HEAD" || strings.HasPrefix(ref, "HEAD~") {
		headRef, err := r.repo.Head()
		if err != nil {
			return plumbing.ZeroHash, err
		}
		if ref == "HEAD" {
			return headRef.Hash(), nil
		}

		var n int
		if _, err := fmt.Sscanf(strings.TrimPrefix(ref, "HEAD~"), "%d", &n); err != nil {
			return plumbing.ZeroHash, fmt.Errorf("invalid ref format: %s", ref)
		}

		// Walk back N commits
		commit, err := r.repo.CommitObject(headRef.Hash())
		if err != nil {
			return plumbing.ZeroHash, err
		}
		for i := 0; i < n; i++ {
			parent, err := commit.Parent(0)
			if err != nil {
				return plumbing.ZeroHash, fmt.Errorf("cannot go back %d commits: %w", n, err)
			}
			commit = parent
		}
		return commit.Hash, nil
	}

	// Full or abbreviated commit hash
	if len(ref) >= 4 {
		if hash, err := r.repo.ResolveRevision(plumbing.Revision(ref)); err == nil {
			return *hash, nil
		}
	}

	if refObj, err := r.repo.Reference(plumbing.NewBranchReferenceName(ref), true); err == nil {
		return refObj.Hash(), nil
	}
	if refObj, err := r.repo.Reference(plumbing.NewTagReferenceName(ref), true); err == nil {
		return refObj.Hash(), nil
	}

	return plumbing.ZeroHash, fmt.Errorf("cannot resolve reference: %s", ref)
}

func (r *Repository) relative(path string) string {
	if !filepath.IsAbs(path) {
		return filepath.ToSlash(path)
	}
	rel, err := filepath.Rel(r.Path, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
