package hook

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAfterSync_NoCommand(t *testing.T) {
	r := NewCommandRunner(nil, "", nil)
	if r.Enabled() {
		t.Fatal("runner without argv should be disabled")
	}
	if err := r.AfterSync(context.Background()); err != nil {
		t.Fatalf("AfterSync with no command returned error: %v", err)
	}
}

func TestAfterSync_RunsInWorkDir(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh available")
	}

	dir := t.TempDir()
	r := NewCommandRunner([]string{"/bin/sh", "-c", "echo done > marker"}, dir, nil)

	if err := r.AfterSync(context.Background()); err != nil {
		t.Fatalf("AfterSync failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "marker"))
	if err != nil {
		t.Fatalf("hook did not run in workdir: %v", err)
	}
	if string(data) != "done\n" {
		t.Errorf("unexpected marker content %q", string(data))
	}
}

func TestAfterSync_FailureIncludesOutput(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh available")
	}

	r := NewCommandRunner([]string{"/bin/sh", "-c", "echo broken theme >&2; exit 3"}, t.TempDir(), nil)

	err := r.AfterSync(context.Background())
	if err == nil {
		t.Fatal("expected error from failing hook")
	}
	if got := err.Error(); !strings.Contains(got, "broken theme") {
		t.Errorf("error %q does not include command output", got)
	}
}

func TestAfterSync_MissingBinary(t *testing.T) {
	r := NewCommandRunner([]string{"gistsync-no-such-binary"}, "", nil)
	if err := r.AfterSync(context.Background()); err == nil {
		t.Fatal("expected error for missing binary")
	}
}

func TestAfterSync_CanceledContext(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh available")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewCommandRunner([]string{"/bin/sh", "-c", "sleep 5"}, "", nil)
	if err := r.AfterSync(ctx); err == nil {
		t.Fatal("expected error for canceled context")
	}
}
