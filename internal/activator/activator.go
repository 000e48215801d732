// Package activator brings a window to the foreground, crossing virtual
// desktops and working around the foreground lock where needed.
package activator

import (
	"errors"
	"log/slog"
	"runtime"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/flashtoggle/flashtoggle/internal/desktop"
	"github.com/flashtoggle/flashtoggle/internal/platform"
	"github.com/flashtoggle/flashtoggle/internal/window"
)

const (
	DefaultSettleDelay = 100 * time.Millisecond
	DefaultBackoff     = 50 * time.Millisecond
	DefaultAttempts    = 3
)

// Options tunes activation timing. Zero values select the defaults.
type Options struct {
	// SettleDelay is waited after a desktop switch or move.
	SettleDelay time.Duration
	// Backoff is multiplied by the attempt number between retries.
	Backoff  time.Duration
	Attempts int
	Clock    clockwork.Clock
	Logger   *slog.Logger
}

// Activator performs foreground activation. It never panics and never
// returns errors: the outcome is a bool and diagnostics go to the logger.
type Activator struct {
	backend  platform.Backend
	bridge   desktop.Bridge
	settle   time.Duration
	backoff  time.Duration
	attempts int
	clock    clockwork.Clock
	logger   *slog.Logger
}

// New creates an activator over backend and bridge.
func New(backend platform.Backend, bridge desktop.Bridge, opts Options) *Activator {
	a := &Activator{
		backend:  backend,
		bridge:   bridge,
		settle:   opts.SettleDelay,
		backoff:  opts.Backoff,
		attempts: opts.Attempts,
		clock:    opts.Clock,
		logger:   opts.Logger,
	}
	if a.settle <= 0 {
		a.settle = DefaultSettleDelay
	}
	if a.backoff <= 0 {
		a.backoff = DefaultBackoff
	}
	if a.attempts <= 0 {
		a.attempts = DefaultAttempts
	}
	if a.clock == nil {
		a.clock = clockwork.NewRealClock()
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	if a.bridge == nil {
		a.bridge = desktop.Null{}
	}
	return a
}

// Activate brings rec's window to the foreground. Desktop placement is
// always queried fresh; the record's DesktopID may be stale.
func (a *Activator) Activate(rec window.Record) bool {
	return a.ActivateHandle(rec.Handle)
}

// ActivateHandle is Activate for a bare handle.
func (a *Activator) ActivateHandle(h platform.Handle) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("activation panic recovered", "handle", h, "error", r)
			ok = false
		}
	}()

	if !a.backend.IsWindow(h) {
		a.logger.Debug("activation skipped: window is gone", "handle", h)
		return false
	}

	minimized := a.backend.IsMinimized(h)
	if a.backend.ForegroundWindow() == h && !minimized {
		return true
	}

	a.ensureOnCurrentDesktop(h)

	cmd := platform.ShowShow
	if minimized {
		cmd = platform.ShowRestore
	}
	if err := a.backend.ShowWindow(h, cmd); err != nil {
		a.logger.Warn("show window failed", "handle", h, "error", err)
	}

	for attempt := 1; attempt <= a.attempts; attempt++ {
		if a.tryForeground(h) {
			return true
		}
		if attempt < a.attempts {
			a.clock.Sleep(a.backoff * time.Duration(attempt))
		}
	}

	a.logger.Warn("activation failed", "handle", h, "attempts", a.attempts)
	return false
}

func (a *Activator) ensureOnCurrentDesktop(h platform.Handle) {
	if a.bridge.IsOnCurrentDesktop(h) {
		return
	}

	if id, ok := a.bridge.DesktopID(h); ok {
		err := a.bridge.SwitchTo(id)
		if err == nil {
			a.clock.Sleep(a.settle)
			return
		}
		if !errors.Is(err, desktop.ErrSwitchUnsupported) {
			a.logger.Warn("desktop switch failed", "handle", h, "desktop", id, "error", err)
		}
	}

	current, ok := a.bridge.CurrentDesktopID()
	if !ok {
		a.logger.Warn("current desktop unknown, activating in place", "handle", h)
		return
	}
	if err := a.bridge.MoveToDesktop(h, current); err != nil {
		a.logger.Warn("move to current desktop failed", "handle", h, "desktop", current, "error", err)
		return
	}
	a.clock.Sleep(a.settle)
}

// tryForeground makes one attempt. The input queue is attached to the
// current foreground thread for the duration of the attempt only. The
// goroutine stays on one OS thread so the attached queue is the one that
// calls SetForeground.
func (a *Activator) tryForeground(h platform.Handle) bool {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	current := a.backend.CurrentThreadID()
	fgThread := a.backend.WindowThreadID(a.backend.ForegroundWindow())
	if fgThread != 0 && fgThread != current {
		if err := a.backend.AttachThreadInput(current, fgThread, true); err != nil {
			a.logger.Debug("attach thread input failed", "handle", h, "error", err)
		} else {
			defer func() {
				if err := a.backend.AttachThreadInput(current, fgThread, false); err != nil {
					a.logger.Debug("detach thread input failed", "handle", h, "error", err)
				}
			}()
		}
	}

	if err := a.backend.BringToTop(h); err != nil {
		a.logger.Debug("bring to top failed", "handle", h, "error", err)
	}
	a.backend.SetForeground(h)
	if a.backend.ForegroundWindow() == h {
		return true
	}

	// A synthesized Alt press counts as user input and lifts the lock.
	a.backend.KeyEvent(platform.VKMenu, false)
	a.backend.SetForeground(h)
	a.backend.KeyEvent(platform.VKMenu, true)
	return a.backend.ForegroundWindow() == h
}
