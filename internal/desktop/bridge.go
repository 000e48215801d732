// Package desktop wraps the OS virtual-desktop manager behind a small
// capability interface. Every query is non-throwing: failures degrade to a
// documented default and callers decide what to log.
package desktop

import (
	"errors"

	"github.com/flashtoggle/flashtoggle/internal/platform"
)

var (
	// ErrUnavailable is returned when the virtual desktop service could not
	// be created (older OS, COM failure, non-Windows build).
	ErrUnavailable = errors.New("desktop: virtual desktop service unavailable")
	// ErrSwitchUnsupported is returned by SwitchTo when the bridge cannot
	// change the active desktop. Callers fall back to MoveToDesktop.
	ErrSwitchUnsupported = errors.New("desktop: switching desktops is not supported")
)

// Bridge is the virtual desktop capability used by the index and the
// activator.
type Bridge interface {
	// IsOnCurrentDesktop reports whether h is on the active desktop.
	// It returns true when the answer cannot be determined.
	IsOnCurrentDesktop(h platform.Handle) bool
	// DesktopID returns the desktop GUID of h. ok is false on any failure.
	DesktopID(h platform.Handle) (id string, ok bool)
	// CurrentDesktopID returns the GUID of the active desktop.
	CurrentDesktopID() (id string, ok bool)
	// SwitchTo makes desktop id active.
	SwitchTo(id string) error
	// MoveToDesktop moves h onto desktop id. Moving windows owned by other
	// processes is refused by the OS on most builds.
	MoveToDesktop(h platform.Handle, id string) error
	Close() error
}

// NullDesktopID is the id the Null bridge assigns to every window.
const NullDesktopID = "{00000000-0000-0000-0000-000000000000}"

// Null is a single-desktop bridge: every window lives on one desktop that is
// always current. It is used when the OS service is unavailable.
type Null struct{}

var _ Bridge = Null{}

func (Null) IsOnCurrentDesktop(platform.Handle) bool { return true }

func (Null) DesktopID(platform.Handle) (string, bool) { return NullDesktopID, true }

func (Null) CurrentDesktopID() (string, bool) { return NullDesktopID, true }

func (Null) SwitchTo(string) error { return nil }

func (Null) MoveToDesktop(platform.Handle, string) error { return nil }

func (Null) Close() error { return nil }
