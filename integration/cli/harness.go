//go:build integration

package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/schaermu/gistsync/internal/testutil"
)

const defaultTimeout = 2 * time.Minute

// Harness builds the gistsync binary once and runs it against a site
// directory and a fake GitHub API
type Harness struct {
	t         *testing.T
	binary    string
	siteDir   string
	configDir string
	GitHub    *testutil.FakeGitHub
}

// NewHarness builds the binary and prepares an empty site
func NewHarness(t *testing.T, user string) *Harness {
	t.Helper()

	root, err := testutil.FindProjectRoot()
	if err != nil {
		t.Fatalf("find project root: %v", err)
	}

	tmp := t.TempDir()
	h := &Harness{
		t:         t,
		binary:    filepath.Join(tmp, "gistsync"),
		siteDir:   filepath.Join(tmp, "site"),
		configDir: filepath.Join(tmp, "config"),
		GitHub:    testutil.NewFakeGitHub(t, user),
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "go", "build", "-o", h.binary, "./cmd/gistsync")
	cmd.Dir = root
	cmd.Stdout = &testutil.TestWriter{T: t, Prefix: "[build] "}
	cmd.Stderr = &testutil.TestWriter{T: t, Prefix: "[build] "}
	if err := cmd.Run(); err != nil {
		t.Fatalf("go build: %v", err)
	}

	for _, dir := range []string{filepath.Join(h.siteDir, "source"), h.configDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}

	return h
}

// WriteConfig writes the config file with extra YAML appended
func (h *Harness) WriteConfig(extra string) string {
	h.t.Helper()

	content := fmt.Sprintf("github:\n  base_url: %q\nsite:\n  source_dir: %q\n%s",
		h.GitHub.URL(), filepath.Join(h.siteDir, "source"), extra)

	path := filepath.Join(h.configDir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		h.t.Fatalf("write config: %v", err)
	}
	return path
}

// Run executes the binary and returns stdout, stderr and the exit code
func (h *Harness) Run(args ...string) (string, string, int) {
	h.t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, h.binary, args...)
	cmd.Dir = h.configDir
	cmd.Env = append(os.Environ(), "GITHUB_TOKEN=", "GISTSYNC_TOKEN=")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	code := 0
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			h.t.Fatalf("run %v: %v", args, err)
		}
		code = exitErr.ExitCode()
	}

	for _, line := range strings.Split(stderr.String(), "\n") {
		if line != "" {
			h.t.Log("[gistsync] " + line)
		}
	}
	return stdout.String(), stderr.String(), code
}

// PostPath returns the absolute path of a post below the posts directory
func (h *Harness) PostPath(rel string) string {
	return filepath.Join(h.siteDir, "source", "_posts", filepath.FromSlash(rel))
}

// ReadPost reads a post file
func (h *Harness) ReadPost(rel string) (string, error) {
	data, err := os.ReadFile(h.PostPath(rel))
	return string(data), err
}

// PostExists reports whether a post file exists
func (h *Harness) PostExists(rel string) bool {
	_, err := os.Stat(h.PostPath(rel))
	return err == nil
}
