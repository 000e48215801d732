package daemon

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/flashtoggle/flashtoggle/internal/platform"
)

// ForegroundWatcherConfig holds configuration for the foreground watcher.
type ForegroundWatcherConfig struct {
	// Interval is re-read before every poll so config reloads apply.
	Interval func() time.Duration
	Clock    clockwork.Clock
	Logger   *slog.Logger
}

// ForegroundWatcher polls the foreground window and reports changes.
type ForegroundWatcher struct {
	backend  platform.Backend
	interval func() time.Duration
	clock    clockwork.Clock
	onChange func(platform.Handle)
	logger   *slog.Logger
	last     platform.Handle
}

// NewForegroundWatcher creates a watcher calling onChange whenever a new
// non-zero foreground window is observed.
func NewForegroundWatcher(cfg ForegroundWatcherConfig, backend platform.Backend, onChange func(platform.Handle)) *ForegroundWatcher {
	interval := cfg.Interval
	if interval == nil {
		interval = func() time.Duration { return 250 * time.Millisecond }
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ForegroundWatcher{
		backend:  backend,
		interval: interval,
		clock:    clock,
		onChange: onChange,
		logger:   logger,
	}
}

// Run starts the polling loop. Blocks until context is cancelled.
func (w *ForegroundWatcher) Run(ctx context.Context) {
	w.logger.Info("foreground watcher started", "interval", w.interval())

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("foreground watcher stopped")
			return
		case <-w.clock.After(w.interval()):
			w.poll()
		}
	}
}

// poll performs a single check.
func (w *ForegroundWatcher) poll() {
	// Recover from panics to prevent crashing the daemon
	defer func() {
		if err := recover(); err != nil {
			w.logger.Error("foreground watcher panic recovered", "error", err)
		}
	}()

	h := w.backend.ForegroundWindow()
	if h == 0 || h == w.last {
		return
	}
	w.last = h
	w.onChange(h)
}

// PollNow triggers an immediate check.
func (w *ForegroundWatcher) PollNow() {
	w.poll()
}
