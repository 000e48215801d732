package runtimepath

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestDir_UsesOverrideWhenSet(t *testing.T) {
	td := t.TempDir()
	t.Setenv("FLASHTOGGLE_RUNTIME_DIR", td)
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())

	got, err := Dir()
	if err != nil {
		t.Fatalf("Dir() error: %v", err)
	}
	if got != td {
		t.Fatalf("Dir() = %q, want %q", got, td)
	}
}

func TestDir_UsesXDGRuntimeDirWhenSet(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("LOCALAPPDATA takes precedence on Windows")
	}
	td := t.TempDir()
	t.Setenv("FLASHTOGGLE_RUNTIME_DIR", "")
	t.Setenv("XDG_RUNTIME_DIR", td)

	got, err := Dir()
	if err != nil {
		t.Fatalf("Dir() error: %v", err)
	}
	if got != td {
		t.Fatalf("Dir() = %q, want %q", got, td)
	}
}

func TestDir_FallbacksWhenXDGRuntimeDirMissing(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("LOCALAPPDATA takes precedence on Windows")
	}
	t.Setenv("FLASHTOGGLE_RUNTIME_DIR", "")
	t.Setenv("XDG_RUNTIME_DIR", "")

	got, err := Dir()
	if err != nil {
		t.Fatalf("Dir() error: %v", err)
	}
	if got == "" {
		t.Fatal("Dir() returned empty path")
	}

	wantRun := fmt.Sprintf("/run/user/%d", os.Getuid())
	wantTmp := filepath.Join(os.TempDir(), fmt.Sprintf("flashtoggle-runtime-%d", os.Getuid()))
	if got != wantRun && got != wantTmp {
		t.Fatalf("Dir() = %q, want %q or %q", got, wantRun, wantTmp)
	}
}

func TestSocketPath(t *testing.T) {
	td := t.TempDir()
	t.Setenv("FLASHTOGGLE_RUNTIME_DIR", td)

	socket, err := SocketPath()
	if err != nil {
		t.Fatalf("SocketPath() error: %v", err)
	}
	if socket != filepath.Join(td, "flashtoggle.sock") {
		t.Fatalf("SocketPath() = %q", socket)
	}
}
