package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindProjectRoot(t *testing.T) {
	root, err := FindProjectRoot()
	if err != nil {
		t.Fatalf("FindProjectRoot returned error: %v", err)
	}
	if root == "" {
		t.Fatal("FindProjectRoot returned empty string")
	}

	goMod := filepath.Join(root, "go.mod")
	if _, err := os.Stat(goMod); err != nil {
		t.Fatalf("go.mod not found at %s: %v", goMod, err)
	}
}

func TestTestWriter(t *testing.T) {
	w := &TestWriter{T: t, Prefix: "[test] "}

	n, err := w.Write([]byte("first\n\nsecond\n"))
	if err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	if n != len("first\n\nsecond\n") {
		t.Errorf("Write returned %d, want full length", n)
	}
}
