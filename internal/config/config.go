// internal/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"committer/internal/tree"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Host string `json:"host" yaml:"host"`
		Port int    `json:"port" yaml:"port"`
	} `json:"server" yaml:"server"`

	Database struct {
		Path string `json:"path" yaml:"path"`
	} `json:"database" yaml:"database"`

	VCS struct {
		Backend     string `json:"backend" yaml:"backend"` // gogit, exec
		GitBin      string `json:"git_bin" yaml:"git_bin"`
		Remote      string `json:"remote" yaml:"remote"`
		RemoteURL   string `json:"remote_url" yaml:"remote_url"`
		AuthorName  string `json:"author_name" yaml:"author_name"`
		AuthorEmail string `json:"author_email" yaml:"author_email"`
	} `json:"vcs" yaml:"vcs"`

	Submodules string `json:"submodules" yaml:"submodules"` // ignore, flatten

	Watch struct {
		DebounceMS int `json:"debounce_ms" yaml:"debounce_ms"`
	} `json:"watch" yaml:"watch"`

	Environment string `json:"environment" yaml:"environment"` // dev, prod
	LogLevel    string `json:"log_level" yaml:"log_level"`     // debug, info, warn, error
}

const (
	BackendGoGit = "gogit"
	BackendExec  = "exec"
)

// Default returns the settings used when no file is given.
func Default() *Config {
	var c Config
	c.Server.Host = "127.0.0.1"
	c.Server.Port = 27124
	c.VCS.Backend = BackendGoGit
	c.VCS.Remote = "origin"
	c.Submodules = string(tree.SubmoduleIgnore)
	c.Watch.DebounceMS = 300
	c.Environment = "development"
	c.LogLevel = "info"
	return &c
}

// Path returns the per-environment config file, chosen by COMMITTER_ENV.
func Path() string {
	env := os.Getenv("COMMITTER_ENV")
	if env == "" {
		env = "development"
	}
	return fmt.Sprintf("config/config.%s.json", env)
}

// Load reads path over the defaults. JSON and YAML are picked by extension.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, config)
	default:
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return config, nil
}

func (c *Config) Validate() error {
	switch c.VCS.Backend {
	case BackendGoGit, BackendExec:
	default:
		return fmt.Errorf("unknown vcs backend %q", c.VCS.Backend)
	}
	if _, err := tree.ParseSubmodulePolicy(c.Submodules); err != nil {
		return err
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	return nil
}

// SubmodulePolicy returns the validated submodule handling.
func (c *Config) SubmodulePolicy() tree.SubmodulePolicy {
	p, err := tree.ParseSubmodulePolicy(c.Submodules)
	if err != nil {
		return tree.SubmoduleIgnore
	}
	return p
}

// DatabasePath resolves the journal database location for a repository.
// An empty path keeps it inside the .git directory so it never shows up
// as an untracked change; relative paths are taken from root.
func (c *Config) DatabasePath(root string) string {
	p := c.Database.Path
	switch {
	case p == "":
		gitDir := filepath.Join(root, ".git")
		if info, err := os.Stat(gitDir); err == nil && info.IsDir() {
			return filepath.Join(gitDir, "committer")
		}
		if cache, err := os.UserCacheDir(); err == nil {
			return filepath.Join(cache, "committer", filepath.Base(root))
		}
		return filepath.Join(root, ".committer")
	case filepath.IsAbs(p):
		return p
	default:
		return filepath.Join(root, p)
	}
}

func (c *Config) Debounce() time.Duration {
	if c.Watch.DebounceMS <= 0 {
		return 300 * time.Millisecond
	}
	return time.Duration(c.Watch.DebounceMS) * time.Millisecond
}
