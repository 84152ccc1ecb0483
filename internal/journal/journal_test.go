package journal

import (
	"fmt"
	"testing"

	"committer/internal/storage"

	apperrors "committer/internal/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := storage.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecordAndRecent(t *testing.T) {
	db := setupTestDB(t)
	j, err := New(db, Options{}, nil)
	require.NoError(t, err)

	first, err := j.Record(Entry{Op: OpAdd, Paths: []string{"a.md"}})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.False(t, first.CreatedAt.IsZero())

	_, err = j.Record(Entry{Op: OpCommit, Paths: []string{"a.md"}, Message: "notes", Hash: "abc"})
	require.NoError(t, err)
	last, err := j.Record(Entry{Op: OpPush})
	require.NoError(t, err)

	recent, err := j.Recent(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, last.ID, recent[0].ID)
	assert.Equal(t, OpCommit, recent[1].Op)
	assert.Equal(t, "notes", recent[1].Message)

	all, err := j.Recent(0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, first.ID, all[2].ID)
}

func TestLargeEntriesSurviveReopen(t *testing.T) {
	db := setupTestDB(t)
	j, err := New(db, Options{CompressAbove: 64}, nil)
	require.NoError(t, err)

	paths := make([]string, 200)
	for i := range paths {
		paths[i] = fmt.Sprintf("notes/daily/2024-01-%03d.md", i)
	}
	e, err := j.Record(Entry{Op: OpCommit, Paths: paths, Message: "bulk"})
	require.NoError(t, err)

	var rec record
	require.NoError(t, storage.NewBadgerStore(db, prefix).Get(e.ID, &rec))
	assert.Equal(t, zstdMagic, rec.Data[:4])

	// A fresh journal has an empty cache and must decode from disk.
	reopened, err := New(db, Options{CompressAbove: 64}, nil)
	require.NoError(t, err)
	got, err := reopened.Get(e.ID)
	require.NoError(t, err)
	assert.Equal(t, paths, got.Paths)
	assert.Equal(t, "bulk", got.Message)

	recent, err := reopened.Recent(1)
	require.NoError(t, err)
	assert.Equal(t, paths, recent[0].Paths)
}

func TestGetMissing(t *testing.T) {
	j, err := New(setupTestDB(t), Options{}, nil)
	require.NoError(t, err)

	_, err = j.Get("nope")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}
