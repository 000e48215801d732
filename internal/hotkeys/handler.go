package hotkeys

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Registrar binds hotkeys with the operating system.
type Registrar interface {
	Register(hk Hotkey, callback func()) (id int, err error)
	Unregister(id int) error
	Close() error
}

// Action names understood by Bind.
const (
	ActionToggleSearch  = "toggle_search"
	ActionJumpPrevious  = "jump_previous"
	ActionJumpNext      = "jump_next"
	ActionCaptureWindow = "capture_window"
	ActionToggleTopmost = "toggle_topmost"
	ActionClearPinned   = "clear_pinned"
)

// Table maps action names to their callbacks.
type Table map[string]func()

// Handler manages global keyboard shortcuts.
type Handler struct {
	registrar Registrar
	logger    *slog.Logger

	mu       sync.Mutex
	bindings map[string]int
}

// NewHandler creates a hotkey handler on top of registrar.
func NewHandler(registrar Registrar, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		registrar: registrar,
		logger:    logger,
		bindings:  make(map[string]int),
	}
}

// RegisterFunc registers an arbitrary hotkey callback. Sequences are
// canonicalized, so "Alt+Ctrl+X" and "ctrl+alt+x" are the same binding.
func (h *Handler) RegisterFunc(keySequence string, callback func()) error {
	hk, err := Parse(keySequence)
	if err != nil {
		return err
	}
	key := hk.String()

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.bindings[key]; ok {
		return fmt.Errorf("hotkey %s is already bound", key)
	}
	id, err := h.registrar.Register(hk, callback)
	if err != nil {
		return fmt.Errorf("failed to register %s: %w", key, err)
	}
	h.bindings[key] = id
	return nil
}

// Unregister releases keySequence. Unknown sequences are ignored.
func (h *Handler) Unregister(keySequence string) error {
	hk, err := Parse(keySequence)
	if err != nil {
		return err
	}
	key := hk.String()

	h.mu.Lock()
	defer h.mu.Unlock()
	id, ok := h.bindings[key]
	if !ok {
		return nil
	}
	delete(h.bindings, key)
	return h.registrar.Unregister(id)
}

// UnregisterAll releases every binding.
func (h *Handler) UnregisterAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for key, id := range h.bindings {
		if err := h.registrar.Unregister(id); err != nil {
			h.logger.Warn("failed to unregister hotkey", "hotkey", key, "error", err)
		}
	}
	h.bindings = make(map[string]int)
}

// Bound returns the canonical sequences currently registered.
func (h *Handler) Bound() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.bindings))
	for key := range h.bindings {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

// Bind registers every configured action that has a callback in table.
// Failures are logged and skipped so one bad binding does not disable the
// rest. It returns the number of bindings registered.
func (h *Handler) Bind(bindings map[string]string, table Table) int {
	names := make([]string, 0, len(bindings))
	for name := range bindings {
		names = append(names, name)
	}
	sort.Strings(names)

	bound := 0
	for _, name := range names {
		seq := bindings[name]
		if seq == "" {
			continue
		}
		callback, ok := table[name]
		if !ok {
			h.logger.Warn("no action for hotkey", "action", name, "hotkey", seq)
			continue
		}
		if err := h.RegisterFunc(seq, callback); err != nil {
			h.logger.Warn("failed to register hotkey", "action", name, "hotkey", seq, "error", err)
			continue
		}
		h.logger.Info("hotkey registered", "action", name, "hotkey", seq)
		bound++
	}
	return bound
}

// Close releases all bindings and the registrar.
func (h *Handler) Close() error {
	h.UnregisterAll()
	return h.registrar.Close()
}
