// internal/storage/badger_store.go
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	apperrors "committer/internal/errors"

	"github.com/dgraph-io/badger/v4"
)

// Entity represents any storable entity with an ID
type Entity interface {
	GetID() string
}

// Open opens a badger database at path. An empty path keeps everything in
// memory.
func Open(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithLoggingLevel(badger.WARNING)
	if path == "" {
		opts = opts.
			WithInMemory(true).
			WithNumVersionsToKeep(1).
			WithLogger(nil)
	} else if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

// BadgerStore stores JSON entities under "<prefix>:<id>" keys. Iteration
// follows key order, so sortable ids give ordered listings.
type BadgerStore struct {
	db     *badger.DB
	prefix string
}

func NewBadgerStore(db *badger.DB, prefix string) *BadgerStore {
	return &BadgerStore{
		db:     db,
		prefix: prefix,
	}
}

func (s *BadgerStore) makeKey(id string) []byte {
	return []byte(fmt.Sprintf("%s:%s", s.prefix, id))
}

func (s *BadgerStore) stripPrefix(key []byte) string {
	return strings.TrimPrefix(string(key), s.prefix+":")
}

func (s *BadgerStore) Create(entity Entity) error {
	if entity.GetID() == "" {
		return apperrors.ValidationError("entity ID cannot be empty", nil)
	}

	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("marshaling entity: %w", err)
	}

	key := s.makeKey(entity.GetID())
	return s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return apperrors.InvalidState(fmt.Sprintf("entity already exists: %s", entity.GetID()))
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		return txn.Set(key, data)
	})
}

func (s *BadgerStore) Get(id string, entity Entity) error {
	key := s.makeKey(id)

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, entity)
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return apperrors.NotFound(fmt.Sprintf("entity not found: %s", id))
	}
	return err
}

func (s *BadgerStore) Delete(id string) error {
	key := s.makeKey(id)

	return s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return apperrors.NotFound(fmt.Sprintf("entity not found: %s", id))
		} else if err != nil {
			return err
		}

		return txn.Delete(key)
	})
}

// Each calls fn with the id and raw value of every entity, in key order
// or reverse key order, until fn returns false.
func (s *BadgerStore) Each(reverse bool, fn func(id string, val []byte) (bool, error)) error {
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = reverse
		prefix := []byte(s.prefix + ":")
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		start := prefix
		if reverse {
			start = append(append([]byte{}, prefix...), 0xFF)
		}

		for it.Seek(start); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			more, err := fn(s.stripPrefix(item.Key()), val)
			if err != nil {
				return err
			}
			if !more {
				return nil
			}
		}
		return nil
	})

	if err != nil {
		return fmt.Errorf("listing entities: %w", err)
	}
	return nil
}
