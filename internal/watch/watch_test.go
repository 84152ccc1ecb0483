package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherDebouncesBursts(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "notes"), 0o755))

	w, err := New(root, nil, 50*time.Millisecond)
	require.NoError(t, err)
	defer w.Close()

	for _, name := range []string{"a.md", "b.md", "c.md"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, "notes", name), []byte("x"), 0o644))
	}

	select {
	case <-w.Events():
	case <-time.After(5 * time.Second):
		t.Fatal("no event after writes")
	}

	select {
	case <-w.Events():
		t.Fatal("burst produced more than one event")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcherFollowsNewDirectories(t *testing.T) {
	root := t.TempDir()
	w, err := New(root, nil, 20*time.Millisecond)
	require.NoError(t, err)
	defer w.Close()

	dir := filepath.Join(root, "daily")
	require.NoError(t, os.Mkdir(dir, 0o755))
	select {
	case <-w.Events():
	case <-time.After(5 * time.Second):
		t.Fatal("no event for mkdir")
	}

	require.Eventually(t, func() bool {
		w.mu.Lock()
		defer w.mu.Unlock()
		_, ok := w.paths[dir]
		return ok
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "today.md"), []byte("x"), 0o644))
	select {
	case <-w.Events():
	case <-time.After(5 * time.Second):
		t.Fatal("no event inside new directory")
	}
}

func TestIgnored(t *testing.T) {
	w := &Watcher{root: "/vault"}
	assert.True(t, w.ignored("/vault/.git/objects/ab"))
	assert.True(t, w.ignored("/vault/.git/index.lock"))
	assert.False(t, w.ignored("/vault/.git/index"))
	assert.False(t, w.ignored("/vault/notes/a.md"))
	assert.True(t, w.ignored("/vault/node_modules/x.js"))
}

func TestCloseClosesEvents(t *testing.T) {
	w, err := New(t.TempDir(), nil, 0)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	_, ok := <-w.Events()
	assert.False(t, ok)
}
