package main

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/schaermu/gistsync/internal/config"
)

// v holds flag and environment values. Keys are flag names or the dotted
// config path, so GISTSYNC_GITHUB_USER overrides github.user.
var v = viper.New()

// envFiles are loaded in order. godotenv never overwrites a variable that
// is already set, so the first file wins.
var envFiles = []string{".env.local", ".env"}

// envOverrides are the config settings the environment may override
var envOverrides = []string{
	"github.user",
	"github.base_url",
	"site.source_dir",
	"site.posts_dir",
	"serve.listen_addr",
	"serve.secret_file",
}

// bindEnv loads .env files and binds the environment and the flags of cmd
func bindEnv(cmd *cobra.Command, _ []string) error {
	loadEnvFiles()

	v.SetEnvPrefix("GISTSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.BindEnv("token", "GISTSYNC_TOKEN", "GITHUB_TOKEN"); err != nil {
		return fmt.Errorf("failed to bind token variable: %w", err)
	}

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}
	return nil
}

func loadEnvFiles() {
	for _, f := range envFiles {
		_ = godotenv.Load(f)
	}
}

// viperString returns the flag or environment value of key when either
// was set explicitly
func viperString(key, fallback string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return fallback
}

func viperBool(key string, fallback bool) bool {
	if v.IsSet(key) {
		return v.GetBool(key)
	}
	return fallback
}

// applyEnv overlays environment values on a loaded config and validates
// the result again
func applyEnv(cfg *config.Config) error {
	fields := map[string]*string{
		"github.user":       &cfg.GitHub.User,
		"github.base_url":   &cfg.GitHub.BaseURL,
		"site.source_dir":   &cfg.Site.SourceDir,
		"site.posts_dir":    &cfg.Site.PostsDir,
		"serve.listen_addr": &cfg.Serve.ListenAddr,
		"serve.secret_file": &cfg.Serve.SecretFile,
	}

	changed := false
	for _, key := range envOverrides {
		if v.IsSet(key) {
			*fields[key] = v.GetString(key)
			changed = true
		}
	}

	if v.IsSet("token") {
		cfg.GitHub.Token = v.GetString("token")
	}

	if !changed {
		return nil
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration after environment overrides: %w", err)
	}
	return nil
}
