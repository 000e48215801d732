// Package pinned manages windows the user captured for hide/show and topmost
// toggling, each optionally bound to its own hotkey.
package pinned

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/flashtoggle/flashtoggle/internal/config"
	"github.com/flashtoggle/flashtoggle/internal/hotkeys"
	"github.com/flashtoggle/flashtoggle/internal/platform"
	"github.com/flashtoggle/flashtoggle/internal/window"
)

var (
	ErrNotPinned     = errors.New("window is not pinned")
	ErrAlreadyPinned = errors.New("window is already pinned")
	ErrNoForeground  = errors.New("no foreground window")
	ErrUntitled      = errors.New("window has no title")
	ErrWindowGone    = errors.New("window no longer exists")
	ErrNoHotkeys     = errors.New("hotkeys are not available")
)

// Window is a pinned window.
type Window struct {
	Handle  platform.Handle `json:"handle"`
	Title   string          `json:"title"`
	Process string          `json:"process,omitempty"`
	Hotkey  string          `json:"hotkey,omitempty"`
	Hidden  bool            `json:"hidden"`
	Topmost bool            `json:"topmost"`
}

// Binder attaches hotkeys to callbacks. *hotkeys.Handler satisfies it.
type Binder interface {
	RegisterFunc(keySequence string, callback func()) error
	Unregister(keySequence string) error
}

// Manager tracks pinned windows.
type Manager struct {
	backend  platform.Backend
	activate func(platform.Handle) bool
	binder   Binder
	logger   *slog.Logger

	mu      sync.Mutex
	windows map[platform.Handle]*Window
	order   []platform.Handle
}

// New creates a manager. activate is used when showing a hidden window;
// binder may be nil, in which case SetHotkey fails.
func New(backend platform.Backend, activate func(platform.Handle) bool, binder Binder, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		backend:  backend,
		activate: activate,
		binder:   binder,
		logger:   logger,
		windows:  make(map[platform.Handle]*Window),
	}
}

// Capture pins the current foreground window.
func (m *Manager) Capture() (Window, error) {
	h := m.backend.ForegroundWindow()
	if h == 0 {
		return Window{}, ErrNoForeground
	}
	return m.Pin(h)
}

// Pin adds h to the pinned set.
func (m *Manager) Pin(h platform.Handle) (Window, error) {
	if !m.backend.IsWindow(h) {
		return Window{}, ErrWindowGone
	}
	title, err := m.backend.WindowText(h)
	if err != nil {
		return Window{}, fmt.Errorf("read title of %s: %w", h, err)
	}
	if strings.TrimSpace(title) == "" {
		return Window{}, ErrUntitled
	}

	w := &Window{
		Handle:  h,
		Title:   title,
		Process: m.processName(h),
		Topmost: m.backend.IsTopmost(h),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.windows[h]; ok {
		return Window{}, ErrAlreadyPinned
	}
	m.windows[h] = w
	m.order = append(m.order, h)
	m.logger.Info("window pinned", "handle", h, "title", title)
	return *w, nil
}

func (m *Manager) processName(h platform.Handle) string {
	pid, err := m.backend.ProcessID(h)
	if err != nil {
		return ""
	}
	name, err := m.backend.ProcessName(pid)
	if err != nil {
		return ""
	}
	return name
}

// ToggleVisibility hides a visible pinned window or shows and activates a
// hidden one. It returns the new hidden state.
func (m *Manager) ToggleVisibility(h platform.Handle) (bool, error) {
	m.mu.Lock()
	w, ok := m.windows[h]
	if !ok {
		m.mu.Unlock()
		return false, ErrNotPinned
	}
	hidden := w.Hidden
	title := w.Title
	m.mu.Unlock()

	if !m.backend.IsWindow(h) {
		m.Release(h)
		return false, ErrWindowGone
	}

	if !hidden {
		if err := m.backend.ShowWindow(h, platform.ShowHide); err != nil {
			return false, fmt.Errorf("hide %s: %w", h, err)
		}
		m.setHidden(h, true)
		m.logger.Info("window hidden", "handle", h, "title", title)
		return true, nil
	}

	if err := m.backend.ShowWindow(h, platform.ShowShow); err != nil {
		return true, fmt.Errorf("show %s: %w", h, err)
	}
	m.setHidden(h, false)
	if m.activate != nil && !m.activate(h) {
		m.logger.Warn("shown window could not be activated", "handle", h)
	}
	m.logger.Info("window shown", "handle", h, "title", title)
	return false, nil
}

func (m *Manager) setHidden(h platform.Handle, hidden bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.windows[h]; ok {
		w.Hidden = hidden
	}
}

// ToggleTopmost flips the always-on-top state of a pinned window and returns
// the new state.
func (m *Manager) ToggleTopmost(h platform.Handle) (bool, error) {
	m.mu.Lock()
	w, ok := m.windows[h]
	if !ok {
		m.mu.Unlock()
		return false, ErrNotPinned
	}
	topmost := !w.Topmost
	m.mu.Unlock()

	if err := m.backend.SetTopmost(h, topmost); err != nil {
		return !topmost, fmt.Errorf("set topmost on %s: %w", h, err)
	}

	m.mu.Lock()
	if w, ok := m.windows[h]; ok {
		w.Topmost = topmost
	}
	m.mu.Unlock()
	m.logger.Info("topmost toggled", "handle", h, "topmost", topmost)
	return topmost, nil
}

// ToggleActiveTopmost flips the always-on-top state of the foreground
// window without pinning it.
func (m *Manager) ToggleActiveTopmost() (platform.Handle, bool, error) {
	h := m.backend.ForegroundWindow()
	if h == 0 {
		return 0, false, ErrNoForeground
	}
	topmost := !m.backend.IsTopmost(h)
	if err := m.backend.SetTopmost(h, topmost); err != nil {
		return h, !topmost, fmt.Errorf("set topmost on %s: %w", h, err)
	}

	m.mu.Lock()
	if w, ok := m.windows[h]; ok {
		w.Topmost = topmost
	}
	m.mu.Unlock()
	m.logger.Info("topmost toggled", "handle", h, "topmost", topmost)
	return h, topmost, nil
}

// SetHotkey binds keySequence to the visibility toggle of h, replacing any
// previous binding. An empty sequence only removes the binding.
func (m *Manager) SetHotkey(h platform.Handle, keySequence string) error {
	canonical := ""
	if strings.TrimSpace(keySequence) != "" {
		hk, err := hotkeys.Parse(keySequence)
		if err != nil {
			return err
		}
		canonical = hk.String()
	}

	m.mu.Lock()
	w, ok := m.windows[h]
	if !ok {
		m.mu.Unlock()
		return ErrNotPinned
	}
	previous := w.Hotkey
	m.mu.Unlock()

	if previous == canonical {
		return nil
	}
	if m.binder == nil {
		return ErrNoHotkeys
	}

	// Binder calls may block on the hotkey thread; m.mu must not be held.
	if previous != "" {
		if err := m.binder.Unregister(previous); err != nil {
			m.logger.Warn("failed to release hotkey", "handle", h, "hotkey", previous, "error", err)
		}
	}
	if canonical != "" {
		err := m.binder.RegisterFunc(canonical, func() {
			if _, err := m.ToggleVisibility(h); err != nil {
				m.logger.Warn("pinned hotkey failed", "handle", h, "error", err)
			}
		})
		if err != nil {
			m.mu.Lock()
			if w, ok := m.windows[h]; ok {
				w.Hotkey = ""
			}
			m.mu.Unlock()
			return err
		}
	}

	m.mu.Lock()
	if w, ok := m.windows[h]; ok {
		w.Hotkey = canonical
	}
	m.mu.Unlock()
	m.logger.Info("pinned hotkey set", "handle", h, "hotkey", canonical)
	return nil
}

// Release unpins h, dropping its hotkey. A hidden window is shown again so
// it is not left unreachable.
func (m *Manager) Release(h platform.Handle) bool {
	m.mu.Lock()
	w, ok := m.windows[h]
	if !ok {
		m.mu.Unlock()
		return false
	}
	delete(m.windows, h)
	for i, o := range m.order {
		if o == h {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	released := *w
	m.mu.Unlock()

	m.unpin(released)
	return true
}

// Clear releases every pinned window and returns how many there were.
func (m *Manager) Clear() int {
	m.mu.Lock()
	released := make([]Window, 0, len(m.order))
	for _, h := range m.order {
		released = append(released, *m.windows[h])
	}
	m.windows = make(map[platform.Handle]*Window)
	m.order = nil
	m.mu.Unlock()

	for _, w := range released {
		m.unpin(w)
	}
	if len(released) > 0 {
		m.logger.Info("pinned windows cleared", "count", len(released))
	}
	return len(released)
}

func (m *Manager) unpin(w Window) {
	if w.Hotkey != "" && m.binder != nil {
		if err := m.binder.Unregister(w.Hotkey); err != nil {
			m.logger.Warn("failed to release hotkey", "handle", w.Handle, "hotkey", w.Hotkey, "error", err)
		}
	}
	if w.Hidden && m.backend.IsWindow(w.Handle) {
		if err := m.backend.ShowWindow(w.Handle, platform.ShowShow); err != nil {
			m.logger.Warn("failed to show released window", "handle", w.Handle, "error", err)
		}
	}
	m.logger.Info("window released", "handle", w.Handle, "title", w.Title)
}

// Get returns the pinned state of h.
func (m *Manager) Get(h platform.Handle) (Window, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.windows[h]
	if !ok {
		return Window{}, false
	}
	return *w, true
}

// List returns the pinned windows in capture order.
func (m *Manager) List() []Window {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Window, 0, len(m.order))
	for _, h := range m.order {
		out = append(out, *m.windows[h])
	}
	return out
}

// Saved returns the pinned windows as config entries.
func (m *Manager) Saved() []config.SavedWindow {
	list := m.List()
	out := make([]config.SavedWindow, 0, len(list))
	for _, w := range list {
		out = append(out, config.SavedWindow{
			Title:   w.Title,
			Process: w.Process,
			Hotkey:  w.Hotkey,
			Topmost: w.Topmost,
		})
	}
	return out
}

// Restore re-pins saved windows by matching titles (and process names when
// saved) against records. It returns the number of windows restored.
func (m *Manager) Restore(saved []config.SavedWindow, records []window.Record) int {
	restored := 0
	for _, s := range saved {
		rec, ok := findRecord(s, records)
		if !ok {
			m.logger.Debug("saved window not found", "title", s.Title)
			continue
		}
		if _, err := m.Pin(rec.Handle); err != nil {
			if !errors.Is(err, ErrAlreadyPinned) {
				m.logger.Warn("failed to restore pinned window", "title", s.Title, "error", err)
			}
			continue
		}
		if s.Hotkey != "" {
			if err := m.SetHotkey(rec.Handle, s.Hotkey); err != nil {
				m.logger.Warn("failed to restore pinned hotkey", "title", s.Title, "hotkey", s.Hotkey, "error", err)
			}
		}
		if w, _ := m.Get(rec.Handle); s.Topmost && !w.Topmost {
			if _, err := m.ToggleTopmost(rec.Handle); err != nil {
				m.logger.Warn("failed to restore topmost", "title", s.Title, "error", err)
			}
		}
		restored++
	}
	return restored
}

func findRecord(s config.SavedWindow, records []window.Record) (window.Record, bool) {
	for _, rec := range records {
		if rec.Title != s.Title {
			continue
		}
		if s.Process != "" && !strings.EqualFold(rec.ProcessName, s.Process) {
			continue
		}
		return rec, true
	}
	return window.Record{}, false
}
