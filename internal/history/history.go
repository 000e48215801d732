// Package history keeps a bounded back/forward list of activated windows.
//
// Recording from the middle of the list drops everything after the cursor,
// the way editor navigation history does. Dead handles are pruned lazily
// while jumping.
package history

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/flashtoggle/flashtoggle/internal/platform"
)

// DefaultCapacity is the number of entries kept when none is configured.
const DefaultCapacity = 50

// Liveness reports whether a handle still refers to an existing window.
type Liveness interface {
	IsWindow(h platform.Handle) bool
}

// ActivateFunc brings a window to the foreground and reports success.
type ActivateFunc func(h platform.Handle) bool

// History is safe for concurrent use.
type History struct {
	mu       sync.Mutex
	entries  []platform.Handle
	cursor   int
	capacity int

	// jumping suppresses Record calls made while a jump is in flight. The
	// watcher's later report of the jumped-to window is dropped by Record's
	// same-as-cursor check instead.
	jumping atomic.Bool

	alive    Liveness
	activate ActivateFunc
	logger   *slog.Logger
}

// New creates an empty history. capacity <= 0 selects DefaultCapacity.
func New(capacity int, alive Liveness, activate ActivateFunc, logger *slog.Logger) *History {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &History{
		cursor:   -1,
		capacity: capacity,
		alive:    alive,
		activate: activate,
		logger:   logger,
	}
}

// Record appends h after the cursor, truncating any forward entries.
// It is a no-op during a jump, for dead handles, and when h is already the
// entry at the cursor.
func (hs *History) Record(h platform.Handle) {
	if h == 0 || hs.jumping.Load() {
		return
	}
	if !hs.isAlive(h) {
		return
	}

	hs.mu.Lock()
	defer hs.mu.Unlock()

	if hs.cursor >= 0 && hs.entries[hs.cursor] == h {
		return
	}
	hs.entries = append(hs.entries[:hs.cursor+1], h)
	if over := len(hs.entries) - hs.capacity; over > 0 {
		hs.entries = append([]platform.Handle(nil), hs.entries[over:]...)
	}
	hs.cursor = len(hs.entries) - 1
}

// JumpToPrevious activates the entry before the cursor.
func (hs *History) JumpToPrevious() bool {
	return hs.jump(-1)
}

// JumpToNext activates the entry after the cursor.
func (hs *History) JumpToNext() bool {
	return hs.jump(+1)
}

func (hs *History) jump(step int) bool {
	if !hs.jumping.CompareAndSwap(false, true) {
		return false
	}
	defer hs.jumping.Store(false)

	for {
		hs.mu.Lock()
		target := hs.cursor + step
		if len(hs.entries) == 0 || target < 0 || target >= len(hs.entries) {
			hs.mu.Unlock()
			return false
		}
		h := hs.entries[target]
		hs.mu.Unlock()

		if !hs.isAlive(h) {
			hs.mu.Lock()
			if target < len(hs.entries) && hs.entries[target] == h {
				hs.removeAt(target)
			}
			hs.mu.Unlock()
			hs.logger.Debug("pruned closed window from history", "handle", h)
			continue
		}

		if !hs.activate(h) {
			hs.logger.Info("history jump failed", "handle", h)
			return false
		}

		hs.mu.Lock()
		hs.moveCursorTo(target, h)
		hs.mu.Unlock()
		return true
	}
}

// JumpTo activates the entry at index i and moves the cursor there.
func (hs *History) JumpTo(i int) bool {
	if !hs.jumping.CompareAndSwap(false, true) {
		return false
	}
	defer hs.jumping.Store(false)

	hs.mu.Lock()
	if i < 0 || i >= len(hs.entries) {
		hs.mu.Unlock()
		return false
	}
	h := hs.entries[i]
	hs.mu.Unlock()

	if !hs.isAlive(h) {
		hs.mu.Lock()
		if i < len(hs.entries) && hs.entries[i] == h {
			hs.removeAt(i)
		}
		hs.mu.Unlock()
		return false
	}
	if !hs.activate(h) {
		return false
	}

	hs.mu.Lock()
	hs.moveCursorTo(i, h)
	hs.mu.Unlock()
	return true
}

// moveCursorTo points the cursor at h, preferring index i. Callers hold mu.
func (hs *History) moveCursorTo(i int, h platform.Handle) {
	if i >= 0 && i < len(hs.entries) && hs.entries[i] == h {
		hs.cursor = i
		return
	}
	for j, e := range hs.entries {
		if e == h {
			hs.cursor = j
			return
		}
	}
}

// removeAt deletes entry i and keeps the cursor on the same logical entry.
// Callers hold mu.
func (hs *History) removeAt(i int) {
	hs.entries = append(hs.entries[:i], hs.entries[i+1:]...)
	if i < hs.cursor || hs.cursor >= len(hs.entries) {
		hs.cursor--
	}
	if len(hs.entries) == 0 {
		hs.cursor = -1
	}
}

// Remove drops every occurrence of h. It reports whether anything changed.
func (hs *History) Remove(h platform.Handle) bool {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	removed := false
	for i := len(hs.entries) - 1; i >= 0; i-- {
		if hs.entries[i] == h {
			hs.removeAt(i)
			removed = true
		}
	}
	return removed
}

// Clear empties the history.
func (hs *History) Clear() {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	hs.entries = nil
	hs.cursor = -1
}

// SetCapacity changes the bound, evicting the oldest entries if needed.
func (hs *History) SetCapacity(capacity int) {
	if capacity <= 0 {
		return
	}
	hs.mu.Lock()
	defer hs.mu.Unlock()

	hs.capacity = capacity
	if over := len(hs.entries) - capacity; over > 0 {
		hs.entries = append([]platform.Handle(nil), hs.entries[over:]...)
		hs.cursor -= over
		if hs.cursor < 0 {
			hs.cursor = 0
		}
	}
}

// Entries returns a copy of the list, oldest first.
func (hs *History) Entries() []platform.Handle {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	return append([]platform.Handle(nil), hs.entries...)
}

// Cursor returns the index of the current entry, or -1 when empty.
func (hs *History) Cursor() int {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	return hs.cursor
}

// Len returns the number of entries.
func (hs *History) Len() int {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	return len(hs.entries)
}

// Jumping reports whether a jump is in progress.
func (hs *History) Jumping() bool {
	return hs.jumping.Load()
}

func (hs *History) isAlive(h platform.Handle) bool {
	if hs.alive == nil {
		return true
	}
	return hs.alive.IsWindow(h)
}
