package config

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPostsDir       = "_posts"
	DefaultCategory       = "gists"
	DefaultForkedCategory = "gists-forked"
	DefaultTag            = "gist"
	DefaultForkedTag      = "forked"
	DefaultListenAddr     = ":8080"
	DefaultPerPage        = 100
)

// Config represents the complete gistsync configuration
type Config struct {
	GitHub GitHubConfig `yaml:"github"`
	Site   SiteConfig   `yaml:"site"`
	Sync   SyncConfig   `yaml:"sync"`
	Posts  PostsConfig  `yaml:"posts"`
	Hooks  HooksConfig  `yaml:"hooks"`
	Serve  ServeConfig  `yaml:"serve"`
}

// GitHubConfig configures the gist source
type GitHubConfig struct {
	User      string `yaml:"user"`
	TokenFile string `yaml:"token_file"`
	// Token is never read from the config file; it is filled from the
	// environment or the token file.
	Token   string `yaml:"-"`
	BaseURL string `yaml:"base_url"`
	PerPage int    `yaml:"per_page"`
}

// SiteConfig configures the local site layout
type SiteConfig struct {
	SourceDir string `yaml:"source_dir"`
	PostsDir  string `yaml:"posts_dir"`
}

// SyncConfig configures sync behavior
type SyncConfig struct {
	Force      bool  `yaml:"force"`
	SkipForked *bool `yaml:"skip_forked"`
}

// PostsConfig configures the categories and tags assigned to imported posts
type PostsConfig struct {
	Category       string `yaml:"category"`
	ForkedCategory string `yaml:"forked_category"`
	Tag            string `yaml:"tag"`
	ForkedTag      string `yaml:"forked_tag"`
}

// HooksConfig configures commands run after a sync changed posts
type HooksConfig struct {
	AfterSync []string `yaml:"after_sync"`
	WorkDir   string   `yaml:"workdir"`
}

// ServeConfig configures the trigger server
type ServeConfig struct {
	ListenAddr string        `yaml:"listen_addr"`
	SecretFile string        `yaml:"secret_file"`
	Interval   time.Duration `yaml:"interval"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	// Expand environment variables in path
	path = os.ExpandEnv(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.expandEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// expandEnv expands environment variables in all string fields
func (c *Config) expandEnv() {
	c.GitHub.User = os.ExpandEnv(c.GitHub.User)
	c.GitHub.TokenFile = expandPath(c.GitHub.TokenFile)
	c.GitHub.BaseURL = os.ExpandEnv(c.GitHub.BaseURL)
	c.Site.SourceDir = expandPath(c.Site.SourceDir)
	c.Site.PostsDir = os.ExpandEnv(c.Site.PostsDir)
	c.Hooks.WorkDir = expandPath(c.Hooks.WorkDir)
	for i, arg := range c.Hooks.AfterSync {
		c.Hooks.AfterSync[i] = os.ExpandEnv(arg)
	}
	c.Serve.ListenAddr = os.ExpandEnv(c.Serve.ListenAddr)
	c.Serve.SecretFile = expandPath(c.Serve.SecretFile)
}

// expandPath expands environment variables and a leading "~/"
func expandPath(p string) string {
	p = os.ExpandEnv(p)
	if strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, p[2:])
		}
	}
	return p
}

// applyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) applyDefaults() {
	if c.Site.PostsDir == "" {
		c.Site.PostsDir = DefaultPostsDir
	}
	if c.GitHub.PerPage <= 0 {
		c.GitHub.PerPage = DefaultPerPage
	}
	if c.Posts.Category == "" {
		c.Posts.Category = DefaultCategory
	}
	if c.Posts.ForkedCategory == "" {
		c.Posts.ForkedCategory = DefaultForkedCategory
	}
	if c.Posts.Tag == "" {
		c.Posts.Tag = DefaultTag
	}
	if c.Posts.ForkedTag == "" {
		c.Posts.ForkedTag = DefaultForkedTag
	}
	if c.Serve.ListenAddr == "" {
		c.Serve.ListenAddr = DefaultListenAddr
	}
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.Site.SourceDir == "" {
		return fmt.Errorf("site.source_dir is required")
	}
	if !filepath.IsAbs(c.Site.SourceDir) {
		return fmt.Errorf("site.source_dir must be an absolute path: %s", c.Site.SourceDir)
	}

	if path.IsAbs(c.Site.PostsDir) || strings.HasPrefix(path.Clean(c.Site.PostsDir), "..") {
		return fmt.Errorf("site.posts_dir must be relative to site.source_dir: %s", c.Site.PostsDir)
	}

	if c.Posts.Category == c.Posts.ForkedCategory {
		return fmt.Errorf("posts.category and posts.forked_category must differ (both %q)", c.Posts.Category)
	}

	if c.GitHub.BaseURL != "" &&
		!strings.HasPrefix(c.GitHub.BaseURL, "https://") && !strings.HasPrefix(c.GitHub.BaseURL, "http://") {
		return fmt.Errorf("github.base_url must be an http(s) URL: %s", c.GitHub.BaseURL)
	}

	if c.Hooks.WorkDir != "" && !filepath.IsAbs(c.Hooks.WorkDir) {
		return fmt.Errorf("hooks.workdir must be an absolute path: %s", c.Hooks.WorkDir)
	}
	if c.Hooks.WorkDir != "" && len(c.Hooks.AfterSync) == 0 {
		return fmt.Errorf("hooks.workdir is set but hooks.after_sync is empty")
	}

	if c.Serve.Interval < 0 {
		return fmt.Errorf("serve.interval must not be negative: %s", c.Serve.Interval)
	}

	return nil
}

// ValidateServe checks the settings only the trigger server needs
func (c *Config) ValidateServe() error {
	if c.Serve.ListenAddr == "" {
		return fmt.Errorf("serve.listen_addr is required")
	}
	if c.Serve.SecretFile == "" {
		return fmt.Errorf("serve.secret_file is required")
	}
	if c.GitHub.User == "" {
		return fmt.Errorf("github.user is required when serving")
	}
	return nil
}

// SkipForked returns whether forked gists are skipped on import. It
// defaults to true when unset.
func (c *Config) SkipForked() bool {
	if c.Sync.SkipForked == nil {
		return true
	}
	return *c.Sync.SkipForked
}

// LoadToken fills GitHub.Token from the token file unless a token was
// already provided.
func (c *Config) LoadToken() error {
	if c.GitHub.Token != "" || c.GitHub.TokenFile == "" {
		return nil
	}

	data, err := os.ReadFile(c.GitHub.TokenFile)
	if err != nil {
		return fmt.Errorf("failed to read token file: %w", err)
	}

	c.GitHub.Token = strings.TrimSpace(string(data))
	return nil
}

// AuthMethod returns a description of the configured auth method
func (c *Config) AuthMethod() string {
	if c.GitHub.Token != "" || c.GitHub.TokenFile != "" {
		return "token"
	}
	return "none"
}

// PostsPath returns the absolute path of the posts directory
func (c *Config) PostsPath() string {
	return filepath.Join(c.Site.SourceDir, filepath.FromSlash(c.Site.PostsDir))
}
