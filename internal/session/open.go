package session

import (
	"context"
	"fmt"

	"committer/internal/config"
	"committer/internal/journal"
	"committer/internal/storage"
	"committer/internal/tree"
	"committer/internal/vcs"
	"committer/internal/vcs/execgit"
	"committer/internal/vcs/gogit"

	"go.uber.org/zap"
)

// NewRepository picks the backend named by cfg. When cfg carries a remote
// URL the remote is created or repointed before the backend is returned.
func NewRepository(root string, cfg *config.Config, logger *zap.Logger) (vcs.Repository, error) {
	repo, err := newBackend(root, cfg, logger)
	if err != nil {
		return nil, err
	}
	if cfg.VCS.RemoteURL == "" {
		return repo, nil
	}
	rc, ok := repo.(remoteConfigurer)
	if !ok {
		return nil, fmt.Errorf("backend %q cannot configure remotes", cfg.VCS.Backend)
	}
	if err := rc.EnsureRemote(context.Background(), cfg.VCS.RemoteURL); err != nil {
		return nil, fmt.Errorf("configuring remote: %w", err)
	}
	return repo, nil
}

type remoteConfigurer interface {
	EnsureRemote(ctx context.Context, url string) error
}

func newBackend(root string, cfg *config.Config, logger *zap.Logger) (vcs.Repository, error) {
	switch cfg.VCS.Backend {
	case config.BackendExec:
		return execgit.New(root, execgit.Options{
			GitBin: cfg.VCS.GitBin,
			Remote: cfg.VCS.Remote,
		}, logger), nil
	case config.BackendGoGit, "":
		return gogit.Open(root, gogit.Options{
			Remote:      cfg.VCS.Remote,
			AuthorName:  cfg.VCS.AuthorName,
			AuthorEmail: cfg.VCS.AuthorEmail,
		}, logger)
	}
	return nil, fmt.Errorf("unknown vcs backend %q", cfg.VCS.Backend)
}

// Open builds a fully wired Session for the repository above startDir:
// backend, tree builder and a journal stored under cfg's database path.
// Close releases the database.
func Open(startDir string, cfg *config.Config, logger *zap.Logger) (*Session, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	root, err := FindRoot(startDir)
	if err != nil {
		return nil, err
	}
	repo, err := NewRepository(root, cfg, logger)
	if err != nil {
		return nil, err
	}

	db, err := storage.Open(cfg.DatabasePath(root))
	if err != nil {
		return nil, err
	}
	j, err := journal.New(db, journal.DefaultOptions(), logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing journal: %w", err)
	}

	builder := tree.NewBuilder(logger, tree.Options{Submodules: cfg.SubmodulePolicy()})
	s, err := New(root, repo, builder, logger, WithJournal(j))
	if err != nil {
		db.Close()
		return nil, err
	}
	s.db = db
	return s, nil
}
