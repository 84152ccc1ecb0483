package gogit

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"committer/internal/tree"
	"committer/internal/vcs"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRepo(t *testing.T) (string, *Repo) {
	t.Helper()
	dir := t.TempDir()
	_, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	r, err := Open(dir, Options{AuthorName: "Test", AuthorEmail: "test@example.com"}, nil)
	require.NoError(t, err)
	return dir, r
}

func write(t *testing.T, root, rel, body string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
}

func TestOpenMissingRepository(t *testing.T) {
	_, err := Open(t.TempDir(), Options{}, nil)
	assert.ErrorIs(t, err, git.ErrRepositoryNotExists)
}

func TestStatusAndCommit(t *testing.T) {
	ctx := context.Background()
	root, r := setupRepo(t)

	write(t, root, "a.md", "one")
	write(t, root, "b.md", "one")

	snap, err := r.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.md", "b.md"}, snap.NotAdded)

	hash, err := r.Commit(ctx, []string{"a.md", "b.md"}, "first")
	require.NoError(t, err)
	assert.Len(t, hash, 40)

	write(t, root, "a.md", "two")
	require.NoError(t, os.Remove(filepath.Join(root, "b.md")))
	write(t, root, "notes/new.md", "draft")
	require.NoError(t, r.Add(ctx, []string{"notes/new.md"}))

	snap, err = r.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.md"}, snap.Modified)
	assert.Equal(t, []string{"b.md"}, snap.Deleted)
	assert.Equal(t, []string{"notes/new.md"}, snap.Created)
	assert.Empty(t, snap.NotAdded)

	_, err = r.Commit(ctx, []string{"b.md"}, "remove b")
	require.NoError(t, err)
	snap, err = r.Status(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Deleted)
}

func TestCommitValidation(t *testing.T) {
	_, r := setupRepo(t)
	_, err := r.Commit(context.Background(), []string{"a.md"}, "")
	assert.ErrorIs(t, err, vcs.ErrEmptyMessage)
}

func TestRevert(t *testing.T) {
	ctx := context.Background()
	root, r := setupRepo(t)

	write(t, root, "a.md", "one")
	_, err := r.Commit(ctx, []string{"a.md"}, "first")
	require.NoError(t, err)

	write(t, root, "a.md", "two")
	write(t, root, "drafts/x.md", "x")
	write(t, root, "staged.md", "s")
	require.NoError(t, r.Add(ctx, []string{"staged.md"}))

	require.NoError(t, r.Revert(ctx, []string{"a.md", "drafts", "staged.md"}))

	snap, err := r.Status(ctx)
	require.NoError(t, err)
	assert.Zero(t, snap.Len())

	body, err := os.ReadFile(filepath.Join(root, "a.md"))
	require.NoError(t, err)
	assert.Equal(t, "one", string(body))
	assert.NoFileExists(t, filepath.Join(root, "drafts", "x.md"))
}

func TestPushToLocalRemote(t *testing.T) {
	ctx := context.Background()
	root, r := setupRepo(t)

	remote := t.TempDir()
	_, err := git.PlainInit(remote, true)
	require.NoError(t, err)
	_, err = r.repo.CreateRemote(&gitconfig.RemoteConfig{Name: "origin", URLs: []string{remote}})
	require.NoError(t, err)

	write(t, root, "a.md", "one")
	_, err = r.Commit(ctx, []string{"a.md"}, "first")
	require.NoError(t, err)

	require.NoError(t, r.Push(ctx))
	require.NoError(t, r.Push(ctx), "up to date is not an error")
}

func TestStatusCollapsesNestedRepository(t *testing.T) {
	ctx := context.Background()
	root, r := setupRepo(t)

	write(t, root, "sub/inner.md", "inner")
	write(t, root, "sub/deep/more.md", "more")
	_, err := git.PlainInit(filepath.Join(root, "sub"), false)
	require.NoError(t, err)
	write(t, root, "top.md", "top")

	snap, err := r.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"sub/", "top.md"}, snap.NotAdded)

	group, err := tree.NewBuilder(nil, tree.Options{}).Build(snap, root)
	require.NoError(t, err)
	require.Len(t, group.Untracked, 1)
	assert.Equal(t, "top.md", group.Untracked[0].Key())
}

func TestStatusListsFilesOfNewFolder(t *testing.T) {
	ctx := context.Background()
	root, r := setupRepo(t)

	write(t, root, "journal/day1.md", "one")
	write(t, root, "journal/day2.md", "two")

	snap, err := r.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"journal/day1.md", "journal/day2.md"}, snap.NotAdded)

	group, err := tree.NewBuilder(nil, tree.Options{}).Build(snap, root)
	require.NoError(t, err)
	require.Len(t, group.Untracked, 1)
	dir, ok := group.Untracked[0].(*tree.Dir)
	require.True(t, ok)
	assert.Equal(t, 2, dir.FileNum)
}

func TestEnsureRemote(t *testing.T) {
	ctx := context.Background()
	_, r := setupRepo(t)

	require.NoError(t, r.EnsureRemote(ctx, "https://example.com/vault.git"))
	require.NoError(t, r.EnsureRemote(ctx, "https://example.com/vault.git"))
	require.NoError(t, r.EnsureRemote(ctx, "https://example.com/other.git"))

	rem, err := r.repo.Remote("origin")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/other.git"}, rem.Config().URLs)
}
