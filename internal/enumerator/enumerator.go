// Package enumerator lists the top-level windows a user would consider
// switchable.
package enumerator

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/flashtoggle/flashtoggle/internal/platform"
)

// DefaultExcludedClasses are shell and UWP host classes that are never
// user-facing windows on their own.
var DefaultExcludedClasses = []string{
	"Windows.UI.Core.CoreWindow",
	"ApplicationFrameWindow",
	"Windows.UI.Composition.DesktopWindowContentBridge",
	"Shell_TrayWnd",
	"Progman",
	"WorkerW",
}

// Enumerator filters the OS window list down to valid application windows.
type Enumerator struct {
	backend  platform.Backend
	logger   *slog.Logger
	mu       sync.RWMutex
	excluded map[string]bool
}

// New creates an enumerator that excludes DefaultExcludedClasses plus extra.
func New(backend platform.Backend, extra []string, logger *slog.Logger) *Enumerator {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Enumerator{backend: backend, logger: logger}
	e.UpdateExcludedClasses(extra)
	return e
}

// UpdateExcludedClasses replaces the user-configured exclusions.
func (e *Enumerator) UpdateExcludedClasses(extra []string) {
	classes := make(map[string]bool, len(DefaultExcludedClasses)+len(extra))
	for _, class := range DefaultExcludedClasses {
		classes[class] = true
	}
	for _, class := range extra {
		if class = strings.TrimSpace(class); class != "" {
			classes[class] = true
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.excluded = classes
}

// Enumerate returns the valid top-level windows in OS order. A failure on one
// handle drops only that handle; an error is returned only when the OS list
// itself could not be obtained.
func (e *Enumerator) Enumerate() ([]platform.Handle, error) {
	all, err := e.backend.EnumWindows()
	if err != nil {
		return nil, fmt.Errorf("enumerate windows: %w", err)
	}

	valid := make([]platform.Handle, 0, len(all))
	for _, h := range all {
		ok, err := e.Valid(h)
		if err != nil {
			e.logger.Debug("skipping window", "handle", h, "error", err)
			continue
		}
		if ok {
			valid = append(valid, h)
		}
	}
	return valid, nil
}

// Valid applies the switchable-window predicate: visible, titled, not an
// excluded class and not a popup.
func (e *Enumerator) Valid(h platform.Handle) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok, err = false, fmt.Errorf("window %s: panic: %v", h, r)
		}
	}()

	style, err := e.backend.Style(h)
	if err != nil {
		return false, err
	}
	if style&platform.StyleVisible == 0 || style&platform.StylePopup != 0 {
		return false, nil
	}

	title, err := e.backend.WindowText(h)
	if err != nil {
		return false, err
	}
	if strings.TrimSpace(title) == "" {
		return false, nil
	}

	class, err := e.backend.ClassName(h)
	if err != nil {
		return false, err
	}
	return !e.isExcluded(class), nil
}

func (e *Enumerator) isExcluded(class string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.excluded[class]
}
