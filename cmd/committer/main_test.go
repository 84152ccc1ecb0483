package main

import (
	"path/filepath"
	"testing"
	"testing/fstest"

	"committer/internal/tree"
	"committer/internal/vcs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectPaths(t *testing.T) {
	b := tree.NewBuilder(nil, tree.Options{FS: fstest.MapFS{}})
	group, err := b.Build(tree.Snapshot{
		Modified: []string{"notes/a.md", "notes/daily/b.md", "root.md"},
		NotAdded: []string{"drafts/x.md"},
	}, "/vault")
	require.NoError(t, err)

	assert.Equal(t, []string{"notes/daily/b.md", "notes/a.md"}, selectPaths(group, []string{"notes/"}, false))
	assert.Equal(t, []string{"root.md", "gone.md"}, selectPaths(group, []string{"root.md", "gone.md"}, false))
	assert.Equal(t,
		[]string{"notes/daily/b.md", "notes/a.md", "root.md", "drafts/x.md"},
		selectPaths(group, nil, true))
	assert.Equal(t,
		[]string{"notes/daily/b.md", "notes/a.md", "root.md", "drafts/x.md"},
		selectPaths(group, []string{""}, false))
}

func TestRootRelative(t *testing.T) {
	root := filepath.FromSlash("/vault")
	cwd := filepath.Join(root, "notes")

	got, err := rootRelative(root, cwd, []string{
		"a.md",
		"daily/",
		filepath.FromSlash("../root.md"),
		filepath.Join(root, "drafts", "x.md"),
		".",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"notes/a.md", "notes/daily", "root.md", "drafts/x.md", "notes"}, got)

	got, err = rootRelative(root, root, []string{"."})
	require.NoError(t, err)
	assert.Equal(t, []string{""}, got)

	_, err = rootRelative(root, cwd, []string{filepath.FromSlash("../../etc/passwd")})
	assert.ErrorIs(t, err, vcs.ErrOutsideRoot)
}

func TestShort(t *testing.T) {
	assert.Equal(t, "abcdef1", short("abcdef1234"))
	assert.Equal(t, "abc", short("abc"))
}
