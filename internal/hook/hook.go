package hook

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
)

// Runner runs the commands that follow a sync which changed posts
type Runner interface {
	// AfterSync runs the after-sync command. Implementations return nil
	// when no command is configured.
	AfterSync(ctx context.Context) error
}

// CommandRunner implements Runner by shelling out to a configured argv,
// typically the site generator ("hexo generate").
type CommandRunner struct {
	argv    []string
	workDir string
	logger  *slog.Logger
}

// NewCommandRunner creates a runner for argv executed in workDir. An empty
// argv yields a runner that does nothing.
func NewCommandRunner(argv []string, workDir string, logger *slog.Logger) *CommandRunner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &CommandRunner{
		argv:    argv,
		workDir: workDir,
		logger:  logger,
	}
}

// Enabled reports whether a command is configured
func (r *CommandRunner) Enabled() bool {
	return len(r.argv) > 0
}

// AfterSync executes the configured command and waits for it to finish.
// Combined output is attached to the error on failure.
func (r *CommandRunner) AfterSync(ctx context.Context) error {
	if !r.Enabled() {
		return nil
	}

	r.logger.Info("running after-sync hook", "command", strings.Join(r.argv, " "), "workdir", r.workDir)

	cmd := exec.CommandContext(ctx, r.argv[0], r.argv[1:]...)
	cmd.Dir = r.workDir
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("after-sync hook %s failed: %w: %s", r.argv[0], err, strings.TrimSpace(string(output)))
	}

	r.logger.Debug("after-sync hook finished", "output", strings.TrimSpace(string(output)))
	return nil
}
