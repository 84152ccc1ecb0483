// Package journal keeps a local history of the operations a session ran
// against the repository: what was staged, committed, pushed, pulled or
// reverted, and whether it failed.
package journal

import (
	"encoding/json"
	"fmt"
	"time"

	"committer/internal/storage"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

const prefix = "journal"

type Op string

const (
	OpAdd    Op = "add"
	OpCommit Op = "commit"
	OpPush   Op = "push"
	OpPull   Op = "pull"
	OpRevert Op = "revert"
)

// Entry is one recorded operation.
type Entry struct {
	ID        string    `json:"id"`
	Op        Op        `json:"op"`
	Paths     []string  `json:"paths,omitempty"`
	Message   string    `json:"message,omitempty"`
	Hash      string    `json:"hash,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// record is the stored form: the entry JSON, zstd-compressed when large.
type record struct {
	ID   string `json:"id"`
	Data []byte `json:"data"`
}

func (r *record) GetID() string { return r.ID }

type Options struct {
	CacheSize     int // entries kept decoded in memory
	CompressAbove int // payload size in bytes that triggers compression
}

func DefaultOptions() Options {
	return Options{
		CacheSize:     256,
		CompressAbove: 1024,
	}
}

type Journal struct {
	store  *storage.BadgerStore
	cache  *lru.Cache[string, Entry]
	comp   *compressor
	logger *zap.Logger
}

func New(db *badger.DB, opts Options, logger *zap.Logger) (*Journal, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultOptions()
	if opts.CacheSize <= 0 {
		opts.CacheSize = def.CacheSize
	}
	if opts.CompressAbove <= 0 {
		opts.CompressAbove = def.CompressAbove
	}

	cache, err := lru.New[string, Entry](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating cache: %w", err)
	}
	comp, err := newCompressor(opts.CompressAbove, 2)
	if err != nil {
		return nil, err
	}

	return &Journal{
		store:  storage.NewBadgerStore(db, prefix),
		cache:  cache,
		comp:   comp,
		logger: logger,
	}, nil
}

// Record assigns e a time-ordered ID and creation time and stores it.
func (j *Journal) Record(e Entry) (Entry, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Entry{}, fmt.Errorf("generating id: %w", err)
	}
	e.ID = id.String()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(e)
	if err != nil {
		return Entry{}, fmt.Errorf("marshaling entry: %w", err)
	}
	if err := j.store.Create(&record{ID: e.ID, Data: j.comp.compress(data)}); err != nil {
		return Entry{}, fmt.Errorf("storing entry: %w", err)
	}

	j.cache.Add(e.ID, e)
	j.logger.Debug("journal entry recorded",
		zap.String("id", e.ID),
		zap.String("op", string(e.Op)),
		zap.Int("paths", len(e.Paths)))
	return e, nil
}

func (j *Journal) Get(id string) (Entry, error) {
	if e, ok := j.cache.Get(id); ok {
		return e, nil
	}
	var rec record
	if err := j.store.Get(id, &rec); err != nil {
		return Entry{}, err
	}
	e, err := j.decode(rec.Data)
	if err != nil {
		return Entry{}, err
	}
	j.cache.Add(id, e)
	return e, nil
}

// Recent returns up to limit entries, newest first. A limit of zero or
// less returns everything.
func (j *Journal) Recent(limit int) ([]Entry, error) {
	entries := []Entry{}
	err := j.store.Each(true, func(id string, val []byte) (bool, error) {
		e, ok := j.cache.Get(id)
		if !ok {
			var rec record
			if err := json.Unmarshal(val, &rec); err != nil {
				return false, fmt.Errorf("decoding record %s: %w", id, err)
			}
			var err error
			if e, err = j.decode(rec.Data); err != nil {
				return false, err
			}
		}
		entries = append(entries, e)
		return limit <= 0 || len(entries) < limit, nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (j *Journal) decode(data []byte) (Entry, error) {
	raw, err := j.comp.decompress(data)
	if err != nil {
		return Entry{}, err
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, fmt.Errorf("decoding entry: %w", err)
	}
	return e, nil
}
