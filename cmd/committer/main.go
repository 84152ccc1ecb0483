// cmd/committer/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"committer/internal/config"
	"committer/internal/logging"
	"committer/internal/render"
	"committer/internal/session"
	"committer/internal/tree"
	"committer/internal/vcs"
	"committer/internal/watch"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	verbose    bool
	submodules string
	backend    string

	logger = logging.Nop()
	cfg    *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "committer",
	Short: "Review and commit the changes in a notes vault",
	Long: `committer shows the pending changes of the git repository backing a notes
vault as a directory tree, and stages, commits, reverts, pushes and pulls them.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func setup(cmd *cobra.Command, args []string) error {
	l, err := logging.NewDevelopment(verbose)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	logger = l

	cfg, err = loadConfig(configPath)
	if err != nil {
		return err
	}
	if submodules != "" {
		cfg.Submodules = submodules
	}
	if backend != "" {
		cfg.VCS.Backend = backend
	}
	return cfg.Validate()
}

// loadConfig reads an explicit path, then the per-environment file, and
// falls back to defaults when neither exists.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		c, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		return c, nil
	}
	c, err := config.Load(config.Path())
	if errors.Is(err, os.ErrNotExist) {
		return config.Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return c, nil
}

func openSession() (*session.Session, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting current directory: %w", err)
	}
	s, err := session.Open(cwd, cfg, logger.Logger)
	if err != nil {
		return nil, fmt.Errorf("opening repository: %w", err)
	}
	return s, nil
}

// withSession runs fn against a session that is closed afterwards.
func withSession(fn func(ctx context.Context, s *session.Session) error) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return fn(ctx, s)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (json or yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&submodules, "submodules", "", "nested repositories: ignore or flatten")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", "git backend: gogit or exec")

	var statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show pending changes as a tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")
			collapse, _ := cmd.Flags().GetStringSlice("collapse")

			return withSession(func(ctx context.Context, s *session.Session) error {
				group, err := s.Status(ctx)
				if err != nil {
					return err
				}
				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(group)
				}
				return render.Tree(cmd.OutOrStdout(), group, render.Options{Collapsed: collapsedSet(collapse)})
			})
		},
	}
	statusCmd.Flags().Bool("json", false, "print the tree as JSON")
	statusCmd.Flags().StringSlice("collapse", nil, "directory paths to show folded")

	var addCmd = &cobra.Command{
		Use:   "add [paths...]",
		Short: "Stage files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(ctx context.Context, s *session.Session) error {
				group, err := s.Status(ctx)
				if err != nil {
					return err
				}
				rel, err := fromWorkingDir(s.Root(), args)
				if err != nil {
					return err
				}
				paths := selectPaths(group, rel, false)
				if len(paths) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Nothing to stage")
					return nil
				}
				if err := s.Add(ctx, paths); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s staged %d path(s)\n", color.GreenString("✓"), len(paths))
				return nil
			})
		},
	}

	var commitCmd = &cobra.Command{
		Use:   "commit [paths...]",
		Short: "Commit files",
		Long: `Commit the given paths. Directories select every changed file below them.
With --all every pending change, untracked files included, is committed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			message, _ := cmd.Flags().GetString("message")
			all, _ := cmd.Flags().GetBool("all")
			if strings.TrimSpace(message) == "" {
				return errors.New("a commit message is required (-m)")
			}
			if len(args) == 0 && !all {
				return errors.New("no paths given; pass paths or --all")
			}

			return withSession(func(ctx context.Context, s *session.Session) error {
				group, err := s.Status(ctx)
				if err != nil {
					return err
				}
				rel, err := fromWorkingDir(s.Root(), args)
				if err != nil {
					return err
				}
				paths := selectPaths(group, rel, all)
				if len(paths) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Nothing to commit")
					return nil
				}

				hash, err := s.Commit(ctx, paths, message)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s (%d file(s))\n",
					color.GreenString("✓"), color.YellowString(short(hash)), message, len(paths))
				return nil
			})
		},
	}
	commitCmd.Flags().StringP("message", "m", "", "commit message")
	commitCmd.Flags().BoolP("all", "a", false, "commit every pending change")

	var revertCmd = &cobra.Command{
		Use:   "revert [paths...]",
		Short: "Discard changes to files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(ctx context.Context, s *session.Session) error {
				group, err := s.Status(ctx)
				if err != nil {
					return err
				}
				rel, err := fromWorkingDir(s.Root(), args)
				if err != nil {
					return err
				}
				paths := selectPaths(group, rel, false)
				if len(paths) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Nothing to revert")
					return nil
				}
				if err := s.Revert(ctx, paths); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s reverted %d file(s)\n", color.RedString("↺"), len(paths))
				return nil
			})
		},
	}

	var pushCmd = &cobra.Command{
		Use:   "push",
		Short: "Push commits to the remote",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(ctx context.Context, s *session.Session) error {
				if err := s.Push(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("✓"), "pushed")
				return nil
			})
		},
	}

	var pullCmd = &cobra.Command{
		Use:   "pull",
		Short: "Pull commits from the remote",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(ctx context.Context, s *session.Session) error {
				if err := s.Pull(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("✓"), "pulled")
				return nil
			})
		},
	}

	var logCmd = &cobra.Command{
		Use:   "log",
		Short: "Show recent operations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			return withSession(func(ctx context.Context, s *session.Session) error {
				entries, err := s.History(limit)
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No operations recorded")
					return nil
				}
				for _, e := range entries {
					status := color.GreenString("ok")
					if e.Error != "" {
						status = color.RedString("failed: %s", e.Error)
					}
					line := fmt.Sprintf("%s  %-6s %s", e.CreatedAt.Local().Format(time.DateTime), e.Op, status)
					if e.Hash != "" {
						line += " " + color.YellowString(short(e.Hash))
					}
					if e.Message != "" {
						line += " " + e.Message
					}
					if len(e.Paths) > 0 {
						line += fmt.Sprintf(" (%d path(s))", len(e.Paths))
					}
					fmt.Fprintln(cmd.OutOrStdout(), line)
				}
				return nil
			})
		},
	}
	logCmd.Flags().IntP("limit", "n", 20, "number of entries")

	var watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Redraw the status tree whenever the vault changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(ctx context.Context, s *session.Session) error {
				w, err := watch.New(s.Root(), logger.Logger, cfg.Debounce())
				if err != nil {
					return err
				}
				defer w.Close()

				draw := func() {
					group, err := s.Status(ctx)
					if err != nil {
						logger.Error("status failed", zap.Error(err))
						return
					}
					out := cmd.OutOrStdout()
					fmt.Fprintf(out, "\n%s\n", color.CyanString("── %s ──", time.Now().Format(time.TimeOnly)))
					if err := render.Tree(out, group, render.Options{}); err != nil {
						logger.Error("render failed", zap.Error(err))
					}
				}

				draw()
				for {
					select {
					case <-ctx.Done():
						return nil
					case _, ok := <-w.Events():
						if !ok {
							return nil
						}
						draw()
					}
				}
			})
		},
	}

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(commitCmd)
	rootCmd.AddCommand(revertCmd)
	rootCmd.AddCommand(pushCmd)
	rootCmd.AddCommand(pullCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(watchCmd)
}

func fromWorkingDir(root string, args []string) ([]string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting current directory: %w", err)
	}
	return rootRelative(root, cwd, args)
}

// rootRelative rewrites paths given relative to cwd as slash paths
// relative to root. The root itself becomes "".
func rootRelative(root, cwd string, args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for _, a := range args {
		p := a
		if !filepath.IsAbs(p) {
			p = filepath.Join(cwd, p)
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", a, err)
		}
		rel = filepath.ToSlash(rel)
		if rel == ".." || strings.HasPrefix(rel, "../") {
			return nil, fmt.Errorf("%w: %s", vcs.ErrOutsideRoot, a)
		}
		if rel == "." {
			rel = ""
		}
		out = append(out, rel)
	}
	return out, nil
}

// selectPaths resolves root-relative arguments against the status tree: a
// directory argument expands to the changed files below it and "" selects
// everything. Arguments that match no node are passed through so
// deletions of unknown paths still reach the backend.
func selectPaths(group tree.FileGroup, args []string, all bool) []string {
	roots := append(append([]tree.Node{}, group.Changed...), group.Untracked...)
	if all {
		var paths []string
		for _, n := range roots {
			paths = append(paths, tree.Files(n)...)
		}
		return paths
	}

	checked := make(map[string]bool, len(args))
	var unknown []string
	known := make(map[string]bool)
	for _, row := range tree.Flatten(roots, nil) {
		known[row.Node.Key()] = true
	}
	for _, a := range args {
		key := strings.Trim(strings.ReplaceAll(a, "\\", "/"), "/")
		if key == "" {
			for _, n := range roots {
				checked[n.Key()] = true
			}
			continue
		}
		if known[key] {
			checked[key] = true
		} else {
			unknown = append(unknown, a)
		}
	}
	return append(tree.Select(roots, checked), unknown...)
}

func collapsedSet(paths []string) map[string]bool {
	set := make(map[string]bool, len(paths))
	for _, p := range paths {
		set[strings.Trim(p, "/")] = true
	}
	return set
}

func short(hash string) string {
	if len(hash) > 7 {
		return hash[:7]
	}
	return hash
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		os.Exit(1)
	}
}
