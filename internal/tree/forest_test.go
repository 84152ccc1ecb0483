package tree

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustClassify(t *testing.T, path string, status Status) []Segment {
	t.Helper()
	segs, err := Classify(path, status)
	require.NoError(t, err)
	return segs
}

func TestForestInsertIdempotent(t *testing.T) {
	once := NewForest()
	once.Insert(mustClassify(t, "a/b/c.md", StatusAdded))

	twice := NewForest()
	twice.Insert(mustClassify(t, "a/b/c.md", StatusAdded))
	twice.Insert(mustClassify(t, "a/b/c.md", StatusAdded))

	assert.Equal(t, once.Len(), twice.Len())

	a, err := json.Marshal(once.Nodes())
	require.NoError(t, err)
	b, err := json.Marshal(twice.Nodes())
	require.NoError(t, err)
	assert.JSONEq(t, string(a), string(b))
}

func TestForestSharesDirectories(t *testing.T) {
	f := NewForest()
	f.Insert(mustClassify(t, "x/1.md", StatusModified))
	f.Insert(mustClassify(t, "x/2.md", StatusModified))
	f.Insert(mustClassify(t, "y.md", StatusDeleted))

	require.Len(t, f.Nodes(), 2)
	assert.Equal(t, 4, f.Len())

	x, ok := f.Lookup("x")
	require.True(t, ok)
	dir := x.(*Dir)
	require.Len(t, dir.Children, 2)
	assert.Equal(t, "x/1.md", dir.Children[0].NodePath())
	assert.Equal(t, "x/2.md", dir.Children[1].NodePath())
}

func TestForestKeepsFirstStatus(t *testing.T) {
	f := NewForest()
	f.Insert(mustClassify(t, "a.md", StatusAdded))
	f.Insert(mustClassify(t, "a.md", StatusDeleted))

	n, ok := f.Lookup("a.md")
	require.True(t, ok)
	assert.Equal(t, StatusAdded, n.(*File).Status)
}

func TestForestPromotesFileToDir(t *testing.T) {
	f := NewForest()
	f.Insert(mustClassify(t, "first.md", StatusAdded))
	f.Insert(mustClassify(t, "notes", StatusAdded))
	f.Insert(mustClassify(t, "notes/inner.md", StatusAdded))

	require.Len(t, f.Nodes(), 2)
	dir, ok := f.Nodes()[1].(*Dir)
	require.True(t, ok, "node gaining a child must become a directory")
	assert.Equal(t, "notes", dir.Path)
	require.Len(t, dir.Children, 1)

	indexed, _ := f.Lookup("notes")
	assert.Same(t, dir, indexed)
}

func TestForestSameNameDifferentPath(t *testing.T) {
	f := NewForest()
	f.Insert(mustClassify(t, "a/index", StatusAdded))
	f.Insert(mustClassify(t, "b/index", StatusAdded))

	assert.Equal(t, 4, f.Len())
	a, _ := f.Lookup("a/index")
	b, _ := f.Lookup("b/index")
	assert.NotSame(t, a, b)
}
