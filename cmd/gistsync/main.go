package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/schaermu/gistsync/internal/config"
	"github.com/schaermu/gistsync/internal/gist"
	"github.com/schaermu/gistsync/internal/hook"
	"github.com/schaermu/gistsync/internal/post"
	"github.com/schaermu/gistsync/internal/prompt"
	"github.com/schaermu/gistsync/internal/sync"
	"github.com/schaermu/gistsync/internal/webhook"
)

var (
	// Set by goreleaser
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Global flags
	cfgFile   string
	logLevel  string
	logFormat string
	dryRun    bool
	force     bool
	skipFork  bool

	// newPrompter is replaced in tests
	newPrompter = func() credentialPrompter { return prompt.New() }
)

// credentialPrompter asks for missing credentials
type credentialPrompter interface {
	Interactive() bool
	Username() (string, error)
	Password(username string) (string, error)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "gistsync",
	Short: "Import GitHub Gists as static site posts",
	Long: `gistsync mirrors the public Markdown gists of a GitHub user into the post
directory of a Hexo-style static site.

Gists are created, updated or removed so the local posts match the remote
gists. It can run as a oneshot sync or as a long-running server that syncs
on an interval and on signed trigger requests.`,
	SilenceUsage:      true,
	PersistentPreRunE: bindEnv,
}

var syncCmd = &cobra.Command{
	Use:   "sync [username]",
	Short: "Perform a one-time sync from gists to the posts directory",
	Long: `Sync lists the gists of the given user (or github.user from the config),
compares them with previously imported posts and writes the differences.

Only gists with exactly one Markdown file are imported. Forked gists are
skipped unless sync.skip_forked is disabled.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSync,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the trigger server",
	Long: `Serve performs an initial sync and then keeps running. A sync is triggered
by POST requests signed with the configured secret (X-Hub-Signature-256)
and every serve.interval when set. GET /healthz reports the last result.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("gistsync %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/gistsync/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")

	// Sync command flags
	syncCmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be done without making changes")
	syncCmd.Flags().BoolVarP(&force, "force", "f", false, "rewrite every imported post")
	syncCmd.Flags().BoolVar(&skipFork, "skip-forked", true, "do not import forked gists")

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	logger := setupLogger()

	cfg, err := loadConfig(logger)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return fmt.Errorf("failed to load config: %w", err)
	}

	p := newPrompter()

	username, err := resolveUsername(args, cfg, p)
	if err != nil {
		logger.Error("no gist user", "error", err)
		return err
	}

	password := ""
	if cfg.GitHub.Token == "" && p.Interactive() {
		if password, err = p.Password(username); err != nil {
			logger.Error("failed to read password", "error", err)
			return err
		}
	}

	client, err := newGistClient(cfg, username, password)
	if err != nil {
		logger.Error("failed to create github client", "error", err)
		return err
	}

	store := post.NewOSStore(cfg.Site.SourceDir, cfg.Site.PostsDir, logger)
	hooks := hook.NewCommandRunner(cfg.Hooks.AfterSync, cfg.Hooks.WorkDir, logger)
	engine := sync.NewEngine(cfg, client, store, hooks, logger, viperBool("dry-run", dryRun))

	result, err := engine.Sync(ctx, syncOptions(cfg, username))
	if err != nil {
		logger.Error("sync failed", "error", err)
		return err
	}

	if result.DryRun {
		fmt.Fprintf(cmd.OutOrStdout(), "dry-run: %s\n", result)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "synced gists of %s: %s\n", username, result)
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	logger := setupLogger()

	cfg, err := loadConfig(logger)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.ValidateServe(); err != nil {
		logger.Error("invalid serve configuration", "error", err)
		return fmt.Errorf("invalid serve configuration: %w", err)
	}

	client, err := newGistClient(cfg, cfg.GitHub.User, "")
	if err != nil {
		logger.Error("failed to create github client", "error", err)
		return err
	}

	store := post.NewOSStore(cfg.Site.SourceDir, cfg.Site.PostsDir, logger)
	hooks := hook.NewCommandRunner(cfg.Hooks.AfterSync, cfg.Hooks.WorkDir, logger)
	engine := sync.NewEngine(cfg, client, store, hooks, logger, false)

	server, err := webhook.NewServer(cfg, engine, syncOptions(cfg, cfg.GitHub.User), logger)
	if err != nil {
		logger.Error("failed to create webhook server", "error", err)
		return err
	}

	return server.Start(ctx)
}

// resolveUsername picks the gist owner from the argument, the config or an
// interactive prompt, in that order
func resolveUsername(args []string, cfg *config.Config, p credentialPrompter) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	if cfg.GitHub.User != "" {
		return cfg.GitHub.User, nil
	}

	username, err := p.Username()
	if errors.Is(err, prompt.ErrNotInteractive) {
		return "", fmt.Errorf("no username given: pass it as argument or set github.user")
	}
	return username, err
}

// syncOptions merges flags and environment over the config file
func syncOptions(cfg *config.Config, username string) sync.Options {
	return sync.Options{
		Username:    username,
		ForceUpdate: viperBool("force", cfg.Sync.Force),
		SkipForked:  viperBool("skip-forked", cfg.SkipForked()),
	}
}

func newGistClient(cfg *config.Config, username, password string) (*gist.Client, error) {
	return gist.NewClient(gist.Options{
		BaseURL:   cfg.GitHub.BaseURL,
		Token:     cfg.GitHub.Token,
		Username:  username,
		Password:  password,
		PerPage:   cfg.GitHub.PerPage,
		UserAgent: "gistsync/" + version,
	})
}

// setupLogger builds the stderr logger; stdout carries only the summary
func setupLogger() *slog.Logger {
	level := slog.LevelInfo
	if err := level.UnmarshalText([]byte(viperString("log-level", logLevel))); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if viperString("log-format", logFormat) == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func loadConfig(logger *slog.Logger) (*config.Config, error) {
	configPath := viperString("config", cfgFile)
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		configPath = filepath.Join(home, ".config", "gistsync", "config.yaml")
	}

	logger.Info("loading configuration", "path", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.LoadToken(); err != nil {
		return nil, err
	}

	logger.Debug("configuration loaded",
		"user", cfg.GitHub.User,
		"auth", cfg.AuthMethod(),
		"posts_dir", cfg.PostsPath())

	return cfg, nil
}

func setupSignalHandler() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
