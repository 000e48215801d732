package runtimepath

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// Dir returns the runtime directory holding the daemon IPC socket.
// Priority:
// 1) FLASHTOGGLE_RUNTIME_DIR (if set)
// 2) %LOCALAPPDATA%\flashtoggle on Windows (created)
// 3) XDG_RUNTIME_DIR (if set)
// 4) /run/user/<uid> (if present)
// 5) <tmp>/flashtoggle-runtime-<uid> (created)
func Dir() (string, error) {
	if dir := os.Getenv("FLASHTOGGLE_RUNTIME_DIR"); dir != "" {
		return dir, nil
	}

	if runtime.GOOS == "windows" {
		if local := os.Getenv("LOCALAPPDATA"); local != "" {
			dir := filepath.Join(local, "flashtoggle")
			if err := os.MkdirAll(dir, 0700); err != nil {
				return "", fmt.Errorf("failed to create runtime dir: %w", err)
			}
			return dir, nil
		}
	}

	if runtimeDir := os.Getenv("XDG_RUNTIME_DIR"); runtimeDir != "" {
		return runtimeDir, nil
	}

	uid := os.Getuid()
	runUserDir := fmt.Sprintf("/run/user/%d", uid)
	if info, err := os.Stat(runUserDir); err == nil && info.IsDir() {
		return runUserDir, nil
	}

	tmpDir := filepath.Join(os.TempDir(), fmt.Sprintf("flashtoggle-runtime-%d", uid))
	if err := os.MkdirAll(tmpDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create runtime dir: %w", err)
	}
	return tmpDir, nil
}

// SocketPath returns the daemon IPC socket path.
func SocketPath() (string, error) {
	runtimeDir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(runtimeDir, "flashtoggle.sock"), nil
}
