package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"committer/internal/config"
	apperrors "committer/internal/errors"
	"committer/internal/journal"
	"committer/internal/storage"
	"committer/internal/tree"
	"committer/internal/vcs"

	"github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeRepoDir(t *testing.T, dirs ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, d := range dirs {
		require.NoError(t, os.MkdirAll(filepath.Join(root, filepath.FromSlash(d)), 0o755))
	}
	return root
}

func TestFindRoot(t *testing.T) {
	root := makeRepoDir(t, ".git", "notes/daily", "nested/.git", "nested/deep")

	got, err := FindRoot(filepath.Join(root, "notes", "daily"))
	require.NoError(t, err)
	assert.Equal(t, root, got)

	got, err = FindRoot(filepath.Join(root, "nested", "deep"))
	require.NoError(t, err)
	assert.Equal(t, root, got, "outermost repository wins")

	_, err = FindRoot(t.TempDir())
	assert.ErrorIs(t, err, ErrRootNotFound)
}

func newSession(t *testing.T, repo vcs.Repository) *Session {
	t.Helper()
	root := makeRepoDir(t, ".git")
	db, err := storage.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	j, err := journal.New(db, journal.Options{}, nil)
	require.NoError(t, err)

	builder := tree.NewBuilder(nil, tree.Options{FS: os.DirFS(root)})
	s, err := New(root, repo, builder, nil, WithJournal(j))
	require.NoError(t, err)
	return s
}

func TestZeroSessionIsInvalidState(t *testing.T) {
	ctx := context.Background()
	var zero Session
	var nilSession *Session

	_, err := zero.Status(ctx)
	assert.ErrorIs(t, err, apperrors.InvalidState(""))
	assert.ErrorIs(t, zero.Push(ctx), apperrors.InvalidState(""))
	_, err = nilSession.Commit(ctx, []string{"a.md"}, "msg")
	assert.ErrorIs(t, err, apperrors.InvalidState(""))
	assert.Equal(t, "", nilSession.Root())
}

func TestStatusBuildsTree(t *testing.T) {
	repo := vcs.NewMockRepository(tree.Snapshot{
		Modified: []string{"notes/a.md", "root.md"},
		NotAdded: []string{"drafts/x.md"},
	})
	s := newSession(t, repo)

	group, err := s.Status(context.Background())
	require.NoError(t, err)
	require.Len(t, group.Changed, 2)
	dir, ok := group.Changed[0].(*tree.Dir)
	require.True(t, ok)
	assert.Equal(t, "notes", dir.Path)
	assert.Equal(t, 1, dir.FileNum)
	require.Len(t, group.Untracked, 1)
}

func TestOperationsAreJournaled(t *testing.T) {
	ctx := context.Background()
	repo := vcs.NewMockRepository(tree.Snapshot{Modified: []string{"a.md"}})
	s := newSession(t, repo)

	require.NoError(t, s.Add(ctx, []string{"a.md"}))
	hash, err := s.Commit(ctx, []string{"a.md"}, "daily notes")
	require.NoError(t, err)

	boom := errors.New("rejected")
	repo.Fail["push"] = boom
	assert.ErrorIs(t, s.Push(ctx), boom)

	history, err := s.History(10)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, journal.OpPush, history[0].Op)
	assert.Equal(t, "rejected", history[0].Error)
	assert.Equal(t, hash, history[1].Hash)
	assert.Equal(t, journal.OpAdd, history[2].Op)

	group, err := s.Status(ctx)
	require.NoError(t, err)
	assert.Empty(t, group.Changed)
}

func TestCloseInvalidatesSession(t *testing.T) {
	s := newSession(t, vcs.NewMockRepository(tree.Snapshot{}))
	require.NoError(t, s.Close())

	_, err := s.Status(context.Background())
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInvalidState))
}

func TestNewRequiresRepository(t *testing.T) {
	_, err := New(t.TempDir(), nil, nil, nil)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestOpenWiresJournal(t *testing.T) {
	root := makeRepoDir(t, ".git", "notes")
	cfg := config.Default()
	cfg.VCS.Backend = config.BackendExec

	s, err := Open(filepath.Join(root, "notes"), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, root, s.Root())
	assert.DirExists(t, filepath.Join(root, ".git", "committer"))

	history, err := s.History(5)
	require.NoError(t, err)
	assert.Empty(t, history)
	require.NoError(t, s.Close())
}

func TestNewRepositoryRejectsUnknownBackend(t *testing.T) {
	cfg := config.Default()
	cfg.VCS.Backend = "svn"
	_, err := NewRepository(t.TempDir(), cfg, nil)
	assert.Error(t, err)
}

func TestNewRepositoryConfiguresRemoteURL(t *testing.T) {
	root := t.TempDir()
	_, err := git.PlainInit(root, false)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.VCS.RemoteURL = "https://example.com/vault.git"
	_, err = NewRepository(root, cfg, nil)
	require.NoError(t, err)

	r, err := git.PlainOpen(root)
	require.NoError(t, err)
	rem, err := r.Remote("origin")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/vault.git"}, rem.Config().URLs)
}
