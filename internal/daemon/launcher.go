package daemon

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"
)

// Launcher shows or hides the search picker.
type Launcher interface {
	Toggle() error
}

// ProcessLauncher runs the picker as a child process in its own console.
// Toggling while it runs closes it.
type ProcessLauncher struct {
	args   []string
	logger *slog.Logger

	mu  sync.Mutex
	cmd *exec.Cmd
}

// NewProcessLauncher launches the current executable with args.
func NewProcessLauncher(logger *slog.Logger, args ...string) *ProcessLauncher {
	if len(args) == 0 {
		args = []string{"search"}
	}
	return &ProcessLauncher{args: args, logger: logger}
}

func (l *ProcessLauncher) Toggle() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cmd != nil {
		if err := l.cmd.Process.Kill(); err != nil {
			l.logger.Debug("picker already exited", "error", err)
		}
		l.cmd = nil
		return nil
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to find executable: %w", err)
	}
	cmd := exec.Command(exe, l.args...)
	cmd.SysProcAttr = newConsoleAttr()
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to launch picker: %w", err)
	}
	l.cmd = cmd

	go func() {
		if err := cmd.Wait(); err != nil {
			l.logger.Debug("picker exited", "error", err)
		}
		l.mu.Lock()
		if l.cmd == cmd {
			l.cmd = nil
		}
		l.mu.Unlock()
	}()
	return nil
}
