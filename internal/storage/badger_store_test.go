package storage

import (
	"encoding/json"
	"testing"

	apperrors "committer/internal/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (i *item) GetID() string { return i.ID }

func setupTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestBadgerStore(t *testing.T) {
	db := setupTestDB(t)
	store := NewBadgerStore(db, "items")
	other := NewBadgerStore(db, "other")

	for _, id := range []string{"b", "a", "c"} {
		require.NoError(t, store.Create(&item{ID: id, Name: "item " + id}))
	}
	require.NoError(t, other.Create(&item{ID: "z"}))

	t.Run("Get", func(t *testing.T) {
		var got item
		require.NoError(t, store.Get("a", &got))
		assert.Equal(t, "item a", got.Name)

		err := store.Get("missing", &got)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	})

	t.Run("Duplicate", func(t *testing.T) {
		err := store.Create(&item{ID: "a"})
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInvalidState))
		assert.True(t, apperrors.IsType(store.Create(&item{}), apperrors.ErrorTypeValidation))
	})

	collect := func(reverse bool, limit int) []string {
		var ids []string
		require.NoError(t, store.Each(reverse, func(id string, val []byte) (bool, error) {
			var it item
			if err := json.Unmarshal(val, &it); err != nil {
				return false, err
			}
			ids = append(ids, it.ID)
			return len(ids) < limit, nil
		}))
		return ids
	}

	t.Run("Each", func(t *testing.T) {
		assert.Equal(t, []string{"a", "b", "c"}, collect(false, 10))
		assert.Equal(t, []string{"c", "b", "a"}, collect(true, 10))
		assert.Equal(t, []string{"c", "b"}, collect(true, 2))
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete("b"))
		assert.Equal(t, []string{"a", "c"}, collect(false, 10))
		assert.True(t, apperrors.IsType(store.Delete("b"), apperrors.ErrorTypeNotFound))
	})
}
