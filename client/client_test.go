package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"committer/internal/api"
	"committer/internal/errors"
	"committer/internal/session"
	"committer/internal/tree"
	"committer/internal/vcs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupClient(t *testing.T, snap tree.Snapshot) (*vcs.MockRepository, *Client) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))

	repo := vcs.NewMockRepository(snap)
	s, err := session.New(root, repo, nil, nil)
	require.NoError(t, err)

	mux := http.NewServeMux()
	api.NewRepoHandler(s, nil).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return repo, New(srv.URL + "/")
}

func TestClientRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo, c := setupClient(t, tree.Snapshot{
		Modified: []string{"notes/a.md", "notes/b.md"},
		NotAdded: []string{"c.md"},
	})

	group, err := c.Status(ctx)
	require.NoError(t, err)
	require.Len(t, group.Changed, 1)
	assert.Equal(t, 2, group.Changed[0].(*tree.Dir).FileNum)
	assert.Equal(t, []string{"notes/a.md", "notes/b.md"}, tree.Files(group.Changed[0]))

	require.NoError(t, c.Add(ctx, []string{"c.md"}))
	assert.True(t, repo.Staged("c.md"))

	hash, err := c.Commit(ctx, tree.Files(group.Changed[0]), "notes")
	require.NoError(t, err)
	assert.Len(t, hash, 40)

	require.NoError(t, c.Push(ctx))
	require.NoError(t, c.Pull(ctx))
	require.NoError(t, c.Revert(ctx, []string{"c.md"}))

	group, err = c.Status(ctx)
	require.NoError(t, err)
	assert.Empty(t, group.Changed)
	assert.Empty(t, group.Untracked)

	entries, err := c.Journal(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestClientErrors(t *testing.T) {
	_, c := setupClient(t, tree.Snapshot{})

	_, err := c.Commit(context.Background(), []string{"a.md"}, "")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
	assert.Equal(t, http.StatusBadRequest, errors.HTTPStatus(err))
}

func TestClientEvents(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	s, err := session.New(root, vcs.NewMockRepository(tree.Snapshot{Modified: []string{"a.md"}}), nil, nil)
	require.NoError(t, err)

	n := api.NewNotifier(nil)
	mux := http.NewServeMux()
	api.NewRepoHandler(s, nil).WithEvents(n).Register(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()
	defer n.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	events, err := New(srv.URL).Events(ctx)
	require.NoError(t, err)

	n.Publish(api.ChangeEvent{Changed: 1})
	select {
	case e, ok := <-events:
		require.True(t, ok)
		assert.Equal(t, 1, e.Changed)
	case <-ctx.Done():
		t.Fatal("no event received")
	}

	n.Close()
	for range events {
	}
}
