// Package window defines the indexed view of a top-level OS window.
package window

import (
	"time"

	"github.com/flashtoggle/flashtoggle/internal/platform"
)

// UnknownProcess is the process name used when the owning executable cannot
// be resolved (protected or already exited processes).
const UnknownProcess = "unknown"

// Record is one indexed top-level window.
type Record struct {
	Handle      platform.Handle `json:"handle"`
	Title       string          `json:"title"`
	ProcessID   uint32          `json:"process_id"`
	ProcessName string          `json:"process_name"`
	// DesktopID is the virtual desktop GUID; empty when unknown.
	DesktopID   string    `json:"desktop_id,omitempty"`
	IsVisible   bool      `json:"is_visible"`
	IsMinimized bool      `json:"is_minimized"`
	LastActive  time.Time `json:"last_active,omitempty"`
	Tags        string    `json:"tags"`
}

// ActiveEver reports whether the window has ever been observed in the
// foreground.
func (r Record) ActiveEver() bool {
	return !r.LastActive.IsZero()
}
