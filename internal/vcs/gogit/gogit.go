// Package gogit implements vcs.Repository with go-git, so no git binary
// has to be installed on the host.
package gogit

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"committer/internal/tree"
	"committer/internal/vcs"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
	"go.uber.org/zap"
)

// Options configures a Repo.
type Options struct {
	Remote      string
	AuthorName  string
	AuthorEmail string
}

// Repo is a go-git backed work tree.
type Repo struct {
	root   string
	repo   *git.Repository
	opts   Options
	logger *zap.Logger
}

// Open opens the repository whose work tree is root.
func Open(root string, opts Options, logger *zap.Logger) (*Repo, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r, err := git.PlainOpen(root)
	if err != nil {
		return nil, fmt.Errorf("opening repository %s: %w", root, err)
	}
	if opts.Remote == "" {
		opts.Remote = git.DefaultRemoteName
	}
	return &Repo{root: root, repo: r, opts: opts, logger: logger}, nil
}

func (r *Repo) Status(ctx context.Context) (tree.Snapshot, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return tree.Snapshot{}, err
	}
	st, err := wt.Status()
	if err != nil {
		return tree.Snapshot{}, fmt.Errorf("reading status: %w", err)
	}

	var snap tree.Snapshot
	nested := make(map[string]bool)
	collapsed := make(map[string]bool)
	for path, fs := range st {
		switch {
		case fs.Staging == git.Untracked && fs.Worktree == git.Untracked:
			dir, ok := r.nestedRoot(path, nested)
			switch {
			case !ok:
				snap.NotAdded = append(snap.NotAdded, path)
			case !collapsed[dir]:
				collapsed[dir] = true
				snap.NotAdded = append(snap.NotAdded, dir+"/")
			}
		case fs.Staging == git.Deleted || fs.Worktree == git.Deleted:
			snap.Deleted = append(snap.Deleted, path)
		case fs.Staging == git.Added || fs.Staging == git.Copied || fs.Staging == git.Renamed:
			snap.Created = append(snap.Created, path)
		case fs.Staging == git.Unmodified && fs.Worktree == git.Unmodified:
		default:
			snap.Modified = append(snap.Modified, path)
		}
	}
	sort.Strings(snap.Created)
	sort.Strings(snap.Modified)
	sort.Strings(snap.Deleted)
	sort.Strings(snap.NotAdded)
	return snap, nil
}

// nestedRoot returns the outermost directory above path that holds its
// own repository, the way git reports an untracked nested repository as a
// single "dir/" entry. Lookups are memoized in seen.
func (r *Repo) nestedRoot(path string, seen map[string]bool) (string, bool) {
	parts := strings.Split(path, "/")
	for i := 1; i < len(parts); i++ {
		dir := strings.Join(parts[:i], "/")
		isRepo, ok := seen[dir]
		if !ok {
			isRepo = vcs.HasGitDir(filepath.Join(r.root, filepath.FromSlash(dir)))
			seen[dir] = isRepo
		}
		if isRepo {
			return dir, true
		}
	}
	return "", false
}

func (r *Repo) Add(ctx context.Context, paths []string) error {
	paths, err := vcs.CleanPaths(r.root, paths)
	if err != nil {
		return err
	}
	wt, err := r.repo.Worktree()
	if err != nil {
		return err
	}
	return r.stage(wt, paths)
}

// stage adds present paths and removes missing ones from the index.
func (r *Repo) stage(wt *git.Worktree, paths []string) error {
	for _, p := range paths {
		if _, err := os.Lstat(filepath.Join(r.root, filepath.FromSlash(p))); errors.Is(err, os.ErrNotExist) {
			if _, err := wt.Remove(p); err != nil {
				return fmt.Errorf("staging removal of %s: %w", p, err)
			}
			continue
		}
		if _, err := wt.Add(p); err != nil {
			return fmt.Errorf("staging %s: %w", p, err)
		}
	}
	return nil
}

// Commit stages paths and commits the index. Anything staged earlier is
// included too.
func (r *Repo) Commit(ctx context.Context, paths []string, message string) (string, error) {
	if err := vcs.CheckCommit(paths, message); err != nil {
		return "", err
	}
	paths, err := vcs.CleanPaths(r.root, paths)
	if err != nil {
		return "", err
	}
	wt, err := r.repo.Worktree()
	if err != nil {
		return "", err
	}
	if err := r.stage(wt, paths); err != nil {
		return "", err
	}

	hash, err := wt.Commit(message, &git.CommitOptions{Author: r.signature()})
	if errors.Is(err, git.ErrEmptyCommit) {
		return "", vcs.ErrNothingToCommit
	}
	if err != nil {
		return "", fmt.Errorf("committing: %w", err)
	}
	r.logger.Info("committed", zap.String("hash", hash.String()), zap.Int("paths", len(paths)))
	return hash.String(), nil
}

func (r *Repo) signature() *object.Signature {
	name, email := r.opts.AuthorName, r.opts.AuthorEmail
	if name == "" || email == "" {
		if cfg, err := r.repo.ConfigScoped(gitconfig.GlobalScope); err == nil {
			if name == "" {
				name = cfg.User.Name
			}
			if email == "" {
				email = cfg.User.Email
			}
		}
	}
	if name == "" {
		name = "committer"
	}
	return &object.Signature{Name: name, Email: email, When: time.Now()}
}

func (r *Repo) Push(ctx context.Context) error {
	err := r.repo.PushContext(ctx, &git.PushOptions{RemoteName: r.opts.Remote})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	return err
}

// EnsureRemote points the configured remote at url, creating it when
// missing.
func (r *Repo) EnsureRemote(ctx context.Context, url string) error {
	rem, err := r.repo.Remote(r.opts.Remote)
	switch {
	case errors.Is(err, git.ErrRemoteNotFound):
	case err != nil:
		return fmt.Errorf("reading remote %s: %w", r.opts.Remote, err)
	default:
		if urls := rem.Config().URLs; len(urls) == 1 && urls[0] == url {
			return nil
		}
		if err := r.repo.DeleteRemote(r.opts.Remote); err != nil {
			return fmt.Errorf("replacing remote %s: %w", r.opts.Remote, err)
		}
	}
	if _, err := r.repo.CreateRemote(&gitconfig.RemoteConfig{Name: r.opts.Remote, URLs: []string{url}}); err != nil {
		return fmt.Errorf("creating remote %s: %w", r.opts.Remote, err)
	}
	r.logger.Info("configured remote", zap.String("remote", r.opts.Remote))
	return nil
}

func (r *Repo) Pull(ctx context.Context) error {
	wt, err := r.repo.Worktree()
	if err != nil {
		return err
	}
	err = wt.PullContext(ctx, &git.PullOptions{RemoteName: r.opts.Remote})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	return err
}

// Revert deletes untracked paths, drops newly added ones and restores
// the rest from HEAD.
func (r *Repo) Revert(ctx context.Context, paths []string) error {
	paths, err := vcs.CleanPaths(r.root, paths)
	if err != nil {
		return err
	}
	wt, err := r.repo.Worktree()
	if err != nil {
		return err
	}
	st, err := wt.Status()
	if err != nil {
		return fmt.Errorf("reading status: %w", err)
	}

	var tracked []string
	for _, p := range expand(st, paths) {
		fs := st[p]
		switch {
		case fs.Staging == git.Untracked:
			if err := os.RemoveAll(filepath.Join(r.root, filepath.FromSlash(p))); err != nil {
				return fmt.Errorf("removing %s: %w", p, err)
			}
		case fs.Staging == git.Added:
			if _, err := wt.Remove(p); err != nil {
				return fmt.Errorf("dropping %s: %w", p, err)
			}
		default:
			tracked = append(tracked, p)
		}
	}
	if len(tracked) == 0 {
		return nil
	}
	return wt.Restore(&git.RestoreOptions{Staged: true, Worktree: true, Files: tracked})
}

// expand replaces directory paths with the changed files beneath them.
// Paths without changes are dropped.
func expand(st git.Status, paths []string) []string {
	var out []string
	for _, p := range paths {
		if _, ok := st[p]; ok {
			out = append(out, p)
			continue
		}
		prefix := p + "/"
		var under []string
		for changed := range st {
			if strings.HasPrefix(changed, prefix) {
				under = append(under, changed)
			}
		}
		sort.Strings(under)
		out = append(out, under...)
	}
	return out
}

var _ vcs.Repository = (*Repo)(nil)
