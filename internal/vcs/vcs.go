// internal/vcs/vcs.go
package vcs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"committer/internal/tree"
)

var (
	ErrNoPaths         = errors.New("no paths specified")
	ErrEmptyMessage    = errors.New("commit message is required")
	ErrNothingToCommit = errors.New("nothing to commit")
	ErrOutsideRoot     = errors.New("path is outside the repository")
)

// Repository is the version-control collaborator the session drives.
// Paths are slash-separated and relative to the repository root.
// Implementations return failures as-is; nothing here retries.
type Repository interface {
	// Status reports pending changes grouped by category.
	Status(ctx context.Context) (tree.Snapshot, error)
	// Add stages paths.
	Add(ctx context.Context, paths []string) error
	// Commit stages paths and records a commit, returning its hash.
	Commit(ctx context.Context, paths []string, message string) (string, error)
	// Push sends local commits to the configured remote.
	Push(ctx context.Context) error
	// Pull fetches and integrates the configured remote.
	Pull(ctx context.Context) error
	// Revert discards working-tree and staged changes of paths.
	Revert(ctx context.Context, paths []string) error
}

// CheckCommit validates commit arguments shared by every backend.
func CheckCommit(paths []string, message string) error {
	if strings.TrimSpace(message) == "" {
		return ErrEmptyMessage
	}
	if len(paths) == 0 {
		return ErrNoPaths
	}
	return nil
}

// CleanPaths converts caller paths into root-relative slash paths,
// rejecting anything that escapes the root.
func CleanPaths(root string, paths []string) ([]string, error) {
	if len(paths) == 0 {
		return nil, ErrNoPaths
	}

	out := make([]string, 0, len(paths))
	seen := make(map[string]bool)
	for _, p := range paths {
		rel := p
		if filepath.IsAbs(p) {
			r, err := filepath.Rel(root, p)
			if err != nil {
				return nil, fmt.Errorf("relativizing %s: %w", p, err)
			}
			rel = r
		}
		rel = filepath.ToSlash(filepath.Clean(rel))
		if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
			return nil, fmt.Errorf("%w: %q", ErrOutsideRoot, p)
		}
		if !seen[rel] {
			seen[rel] = true
			out = append(out, rel)
		}
	}
	sort.Strings(out)
	return out, nil
}

// HasGitDir reports whether dir holds a .git directory or gitfile.
func HasGitDir(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil
}
