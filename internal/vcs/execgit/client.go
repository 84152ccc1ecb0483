// Package execgit implements vcs.Repository on top of the git binary.
package execgit

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"committer/internal/tree"
	"committer/internal/vcs"

	"go.uber.org/zap"
)

// Client drives the git binary inside one work tree.
type Client struct {
	root   string
	remote string
	r      Runner
	logger *zap.Logger
}

// Options configures a Client
type Options struct {
	GitBin string
	Remote string
	Runner Runner // overrides GitBin
}

func New(root string, opts Options, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := opts.Runner
	if r == nil {
		r = NewExecRunner(opts.GitBin)
	}
	return &Client{root: root, remote: opts.Remote, r: r, logger: logger}
}

func (c *Client) Status(ctx context.Context) (tree.Snapshot, error) {
	out, err := c.r.Run(ctx, c.root, "status", "--porcelain=v1", "-z", "--untracked-files=all")
	if err != nil {
		return tree.Snapshot{}, err
	}
	return ParsePorcelain(out), nil
}

// ParsePorcelain reads `git status --porcelain=v1 -z --untracked-files=all`
// output. Nested repositories keep their trailing slash; the source of a
// rename is reported as deleted.
func ParsePorcelain(out string) tree.Snapshot {
	var snap tree.Snapshot
	entries := strings.Split(out, "\x00")
	for i := 0; i < len(entries); i++ {
		entry := entries[i]
		if len(entry) < 4 {
			continue
		}
		x, y, path := entry[0], entry[1], entry[3:]

		// renames and copies carry their source as the next entry
		var orig string
		if (x == 'R' || x == 'C') && i+1 < len(entries) {
			i++
			orig = entries[i]
		}

		switch {
		case x == '?' && y == '?':
			snap.NotAdded = append(snap.NotAdded, path)
		case x == '!' && y == '!':
		case x == 'D' || y == 'D':
			snap.Deleted = append(snap.Deleted, path)
		case x == 'R' || x == 'C' || x == 'A':
			snap.Created = append(snap.Created, path)
		default:
			snap.Modified = append(snap.Modified, path)
		}
		if x == 'R' && orig != "" {
			snap.Deleted = append(snap.Deleted, orig)
		}
	}
	return snap
}

func (c *Client) Add(ctx context.Context, paths []string) error {
	paths, err := vcs.CleanPaths(c.root, paths)
	if err != nil {
		return err
	}
	_, err = c.r.Run(ctx, c.root, append([]string{"add", "-A", "--"}, paths...)...)
	return err
}

func (c *Client) Commit(ctx context.Context, paths []string, message string) (string, error) {
	if err := vcs.CheckCommit(paths, message); err != nil {
		return "", err
	}
	if err := c.Add(ctx, paths); err != nil {
		return "", fmt.Errorf("staging: %w", err)
	}

	paths, _ = vcs.CleanPaths(c.root, paths)
	args := append([]string{"commit", "-m", message, "--"}, paths...)
	if _, err := c.r.Run(ctx, c.root, args...); err != nil {
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) && strings.Contains(cmdErr.Msg, "nothing to commit") {
			return "", vcs.ErrNothingToCommit
		}
		return "", err
	}

	out, err := c.r.Run(ctx, c.root, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("resolving commit: %w", err)
	}
	hash := strings.TrimSpace(out)
	c.logger.Info("committed", zap.String("hash", hash), zap.Int("paths", len(paths)))
	return hash, nil
}

func (c *Client) Push(ctx context.Context) error {
	_, err := c.r.Run(ctx, c.root, c.remoteArgs("push")...)
	return err
}

func (c *Client) Pull(ctx context.Context) error {
	_, err := c.r.Run(ctx, c.root, c.remoteArgs("pull")...)
	return err
}

// EnsureRemote points the configured remote, origin when unset, at url
// and adds it when missing.
func (c *Client) EnsureRemote(ctx context.Context, url string) error {
	name := c.remote
	if name == "" {
		name = "origin"
	}
	out, err := c.r.Run(ctx, c.root, "remote", "get-url", name)
	if err != nil {
		if _, err := c.r.Run(ctx, c.root, "remote", "add", name, url); err != nil {
			return fmt.Errorf("adding remote %s: %w", name, err)
		}
		c.logger.Info("added remote", zap.String("remote", name))
		return nil
	}
	if strings.TrimSpace(out) == url {
		return nil
	}
	if _, err := c.r.Run(ctx, c.root, "remote", "set-url", name, url); err != nil {
		return fmt.Errorf("updating remote %s: %w", name, err)
	}
	c.logger.Info("updated remote", zap.String("remote", name))
	return nil
}

func (c *Client) remoteArgs(op string) []string {
	if c.remote == "" {
		return []string{op}
	}
	return []string{op, c.remote}
}

// Revert removes untracked files, unstages and deletes newly added ones,
// and restores everything else from HEAD. A directory path stands for
// the changed files below it.
func (c *Client) Revert(ctx context.Context, paths []string) error {
	paths, err := vcs.CleanPaths(c.root, paths)
	if err != nil {
		return err
	}

	snap, err := c.Status(ctx)
	if err != nil {
		return fmt.Errorf("reading status: %w", err)
	}
	untracked := set(snap.NotAdded)
	created := set(snap.Created)

	var added, tracked []string
	for _, p := range expand(snap, paths) {
		switch {
		case untracked[p] || untracked[p+"/"]:
			if err := os.RemoveAll(filepath.Join(c.root, filepath.FromSlash(p))); err != nil {
				return fmt.Errorf("removing %s: %w", p, err)
			}
		case created[p]:
			added = append(added, p)
		default:
			tracked = append(tracked, p)
		}
	}

	if len(added) > 0 {
		if _, err := c.r.Run(ctx, c.root, append([]string{"rm", "-f", "--"}, added...)...); err != nil {
			return err
		}
	}
	if len(tracked) > 0 {
		args := append([]string{"restore", "--staged", "--worktree", "--source=HEAD", "--"}, tracked...)
		if _, err := c.r.Run(ctx, c.root, args...); err != nil {
			return err
		}
	}
	return nil
}

// expand replaces a path that names no status entry with the entries
// below it. Paths with nothing below them are kept as given.
func expand(snap tree.Snapshot, paths []string) []string {
	var all []string
	for _, list := range [][]string{snap.Created, snap.Modified, snap.Deleted, snap.NotAdded} {
		all = append(all, list...)
	}
	known := set(all)

	var out []string
	for _, p := range paths {
		if known[p] || known[p+"/"] {
			out = append(out, p)
			continue
		}
		prefix := p + "/"
		var under []string
		for _, changed := range all {
			if strings.HasPrefix(changed, prefix) {
				under = append(under, strings.TrimSuffix(changed, "/"))
			}
		}
		if len(under) == 0 {
			out = append(out, p)
			continue
		}
		sort.Strings(under)
		out = append(out, under...)
	}
	return out
}

func set(list []string) map[string]bool {
	m := make(map[string]bool, len(list))
	for _, s := range list {
		m[s] = true
	}
	return m
}

var _ vcs.Repository = (*Client)(nil)
