// internal/tree/builder.go
package tree

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	apperrors "committer/internal/errors"

	"go.uber.org/zap"
)

// Snapshot is the raw result of a status query, paths relative to the
// repository root.
type Snapshot struct {
	Created  []string `json:"created"`
	Modified []string `json:"modified"`
	Deleted  []string `json:"deleted"`
	NotAdded []string `json:"not_added"`
}

// Len returns the number of entries over all four categories.
func (s Snapshot) Len() int {
	return len(s.Created) + len(s.Modified) + len(s.Deleted) + len(s.NotAdded)
}

// SubmodulePolicy decides what happens to status entries that are directories
type SubmodulePolicy string

const (
	// SubmoduleIgnore leaves nested repositories out of the tree.
	SubmoduleIgnore SubmodulePolicy = "ignore"
	// SubmoduleFlatten walks them and lists their files as plain files.
	SubmoduleFlatten SubmodulePolicy = "flatten"
)

func ParseSubmodulePolicy(s string) (SubmodulePolicy, error) {
	switch SubmodulePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", SubmoduleIgnore:
		return SubmoduleIgnore, nil
	case SubmoduleFlatten:
		return SubmoduleFlatten, nil
	}
	return "", fmt.Errorf("unknown submodule policy %q", s)
}

// Options configures a Builder
type Options struct {
	Submodules SubmodulePolicy
	// FS overrides the filesystem used to inspect entries; defaults to
	// os.DirFS(repoRoot) per build.
	FS fs.FS
}

// Builder turns status snapshots into FileGroups. It holds no per-build
// state and may be shared.
type Builder struct {
	logger     *zap.Logger
	submodules SubmodulePolicy
	fsys       fs.FS
}

func NewBuilder(logger *zap.Logger, opts Options) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Submodules == "" {
		opts.Submodules = SubmoduleIgnore
	}
	return &Builder{
		logger:     logger,
		submodules: opts.Submodules,
		fsys:       opts.FS,
	}
}

// Build groups the snapshot into changed and untracked forests. It fails
// with an invalid-state error when repoRoot has not been resolved.
func (b *Builder) Build(snap Snapshot, repoRoot string) (FileGroup, error) {
	if repoRoot == "" {
		return FileGroup{}, apperrors.InvalidState("repository root not established; initialize the session first")
	}

	fsys := b.fsys
	if fsys == nil {
		fsys = os.DirFS(repoRoot)
	}

	group := b.group(snap, fsys)

	b.logger.Debug("built status tree",
		zap.String("root", repoRoot),
		zap.Int("entries", snap.Len()),
		zap.Int("changed", countFiles(group.Changed)),
		zap.Int("untracked", countFiles(group.Untracked)))

	return group, nil
}

func (b *Builder) group(snap Snapshot, fsys fs.FS) FileGroup {
	changed := NewForest()
	b.insertAll(changed, fsys, snap.Created, StatusAdded)
	b.insertAll(changed, fsys, snap.Modified, StatusModified)
	b.insertAll(changed, fsys, snap.Deleted, StatusDeleted)

	untracked := NewForest()
	for _, p := range snap.NotAdded {
		if n, ok := changed.Lookup(p); ok && n.Kind() == KindFile {
			b.logger.Warn("path reported both changed and untracked; keeping changed",
				zap.String("path", p))
			continue
		}
		b.insert(untracked, fsys, p, StatusUntracked)
	}

	Aggregate(changed.Nodes())
	Aggregate(untracked.Nodes())

	return FileGroup{
		Changed:   nonNil(changed.Nodes()),
		Untracked: nonNil(untracked.Nodes()),
	}
}

func (b *Builder) insertAll(f *Forest, fsys fs.FS, paths []string, status Status) {
	for _, p := range paths {
		b.insert(f, fsys, p, status)
	}
}

func (b *Builder) insert(f *Forest, fsys fs.FS, relPath string, status Status) {
	segs, err := Classify(relPath, status)
	switch {
	case errors.Is(err, ErrDirectoryEntry):
		b.directoryEntry(f, fsys, strings.TrimSuffix(relPath, Sep), status)
		return
	case err != nil:
		b.logger.Warn("skipping status path", zap.String("path", relPath), zap.Error(err))
		return
	}

	if isDir(fsys, relPath) {
		b.directoryEntry(f, fsys, relPath, status)
		return
	}

	f.Insert(segs)
}

// directoryEntry handles a status entry naming a directory, which is how
// nested repositories show up.
func (b *Builder) directoryEntry(f *Forest, fsys fs.FS, dir string, status Status) {
	if b.submodules != SubmoduleFlatten {
		b.logger.Debug("skipping nested repository", zap.String("path", dir))
		return
	}
	if !fs.ValidPath(dir) || dir == "." {
		b.logger.Warn("skipping invalid directory entry", zap.String("path", dir))
		return
	}

	err := fs.WalkDir(fsys, dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Name() == ".git" {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		segs, err := Classify(p, status)
		if err != nil {
			b.logger.Warn("skipping nested path", zap.String("path", p), zap.Error(err))
			return nil
		}
		f.Insert(segs)
		return nil
	})
	if err != nil {
		b.logger.Warn("walking nested repository", zap.String("path", dir), zap.Error(err))
	}
}

func isDir(fsys fs.FS, relPath string) bool {
	if fsys == nil || !fs.ValidPath(relPath) {
		return false
	}
	info, err := fs.Stat(fsys, relPath)
	return err == nil && info.IsDir()
}

func countFiles(nodes []Node) int {
	n := 0
	for _, node := range nodes {
		switch v := node.(type) {
		case *Dir:
			n += v.FileNum
		case *File:
			n++
		}
	}
	return n
}

func nonNil(nodes []Node) []Node {
	if nodes == nil {
		return []Node{}
	}
	return nodes
}
