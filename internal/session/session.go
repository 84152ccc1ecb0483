// Package session ties one repository root to its version-control
// backend, the tree builder and the operation journal. Callers create a
// Session explicitly and pass it around; there is no global instance.
package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	apperrors "committer/internal/errors"
	"committer/internal/journal"
	"committer/internal/tree"
	"committer/internal/vcs"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

var ErrRootNotFound = errors.New("repository root not found")

// FindRoot walks from startDir to the filesystem root and returns the
// outermost directory that holds a .git entry.
func FindRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	var found []string
	for {
		if vcs.HasGitDir(dir) {
			found = append(found, dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	if len(found) == 0 {
		return "", fmt.Errorf("%w from %s", ErrRootNotFound, startDir)
	}
	return found[len(found)-1], nil
}

type Option func(*Session)

// WithJournal records every repository operation to j.
func WithJournal(j *journal.Journal) Option {
	return func(s *Session) { s.journal = j }
}

// Session serializes operations against a single repository.
type Session struct {
	root    string
	repo    vcs.Repository
	builder *tree.Builder
	journal *journal.Journal
	db      *badger.DB // owned when built by Open
	logger  *zap.Logger

	mu     sync.Mutex
	closed bool
}

// New resolves the repository root above startDir and binds repo to it.
// A nil builder gets the default options.
func New(startDir string, repo vcs.Repository, builder *tree.Builder, logger *zap.Logger, opts ...Option) (*Session, error) {
	if repo == nil {
		return nil, apperrors.ValidationError("repository backend is required", nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	root, err := FindRoot(startDir)
	if err != nil {
		return nil, err
	}
	if builder == nil {
		builder = tree.NewBuilder(logger, tree.Options{})
	}

	s := &Session{
		root:    root,
		repo:    repo,
		builder: builder,
		logger:  logger.With(zap.String("root", root)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Session) Root() string {
	if s == nil {
		return ""
	}
	return s.root
}

// ready must be called with mu held.
func (s *Session) ready() error {
	if s.root == "" || s.repo == nil {
		return apperrors.InvalidState("repository session is not initialized")
	}
	if s.closed {
		return apperrors.InvalidState("repository session is closed")
	}
	return nil
}

func (s *Session) lock() error {
	if s == nil {
		return apperrors.InvalidState("repository session is not initialized")
	}
	s.mu.Lock()
	if err := s.ready(); err != nil {
		s.mu.Unlock()
		return err
	}
	return nil
}

// Status queries the backend and builds a fresh FileGroup.
func (s *Session) Status(ctx context.Context) (tree.FileGroup, error) {
	if err := s.lock(); err != nil {
		return tree.FileGroup{}, err
	}
	defer s.mu.Unlock()

	snap, err := s.repo.Status(ctx)
	if err != nil {
		return tree.FileGroup{}, fmt.Errorf("querying status: %w", err)
	}
	return s.builder.Build(snap, s.root)
}

func (s *Session) Add(ctx context.Context, paths []string) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()

	err := s.repo.Add(ctx, paths)
	s.record(journal.Entry{Op: journal.OpAdd, Paths: paths}, err)
	if err != nil {
		return fmt.Errorf("adding: %w", err)
	}
	return nil
}

// Commit returns the new commit hash.
func (s *Session) Commit(ctx context.Context, paths []string, message string) (string, error) {
	if err := s.lock(); err != nil {
		return "", err
	}
	defer s.mu.Unlock()

	hash, err := s.repo.Commit(ctx, paths, message)
	s.record(journal.Entry{Op: journal.OpCommit, Paths: paths, Message: message, Hash: hash}, err)
	if err != nil {
		return "", fmt.Errorf("committing: %w", err)
	}
	return hash, nil
}

func (s *Session) Push(ctx context.Context) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()

	err := s.repo.Push(ctx)
	s.record(journal.Entry{Op: journal.OpPush}, err)
	if err != nil {
		return fmt.Errorf("pushing: %w", err)
	}
	return nil
}

func (s *Session) Pull(ctx context.Context) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()

	err := s.repo.Pull(ctx)
	s.record(journal.Entry{Op: journal.OpPull}, err)
	if err != nil {
		return fmt.Errorf("pulling: %w", err)
	}
	return nil
}

func (s *Session) Revert(ctx context.Context, paths []string) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()

	err := s.repo.Revert(ctx, paths)
	s.record(journal.Entry{Op: journal.OpRevert, Paths: paths}, err)
	if err != nil {
		return fmt.Errorf("reverting: %w", err)
	}
	return nil
}

// History returns the most recent journal entries, newest first. Without
// a journal it is always empty.
func (s *Session) History(limit int) ([]journal.Entry, error) {
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	if s.journal == nil {
		return []journal.Entry{}, nil
	}
	return s.journal.Recent(limit)
}

// Close marks the session unusable. A database opened by Open is closed
// with it; one passed through WithJournal stays open.
func (s *Session) Close() error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	s.closed = true
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Session) record(e journal.Entry, opErr error) {
	if opErr != nil {
		e.Error = opErr.Error()
		s.logger.Warn("repository operation failed", zap.String("op", string(e.Op)), zap.Error(opErr))
	} else {
		s.logger.Info("repository operation", zap.String("op", string(e.Op)), zap.Int("paths", len(e.Paths)))
	}
	if s.journal == nil {
		return
	}
	if _, err := s.journal.Record(e); err != nil {
		s.logger.Error("failed to record journal entry", zap.Error(err))
	}
}
