// Package desktoptest provides a scriptable desktop.Bridge for tests.
package desktoptest

import (
	"sync"

	"github.com/flashtoggle/flashtoggle/internal/desktop"
	"github.com/flashtoggle/flashtoggle/internal/platform"
)

// Bridge keeps window placement in memory.
type Bridge struct {
	mu       sync.Mutex
	current  string
	placed   map[platform.Handle]string
	failing  map[platform.Handle]bool
	switches []string
	moves    []platform.Handle

	// SwitchErr is returned by SwitchTo. When nil the switch succeeds.
	SwitchErr error
	// MoveErr is returned by MoveToDesktop. When nil the move succeeds.
	MoveErr error
}

var _ desktop.Bridge = (*Bridge)(nil)

// New returns a bridge whose active desktop is current.
func New(current string) *Bridge {
	return &Bridge{
		current: current,
		placed:  make(map[platform.Handle]string),
		failing: make(map[platform.Handle]bool),
	}
}

// Place puts h on desktop id.
func (b *Bridge) Place(h platform.Handle, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.placed[h] = id
}

// Fail makes every query about h fail.
func (b *Bridge) Fail(h platform.Handle, failing bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failing[h] = failing
}

// Current returns the active desktop.
func (b *Bridge) Current() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Switches returns the desktops passed to successful SwitchTo calls.
func (b *Bridge) Switches() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.switches...)
}

// Moves returns the handles moved by successful MoveToDesktop calls.
func (b *Bridge) Moves() []platform.Handle {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]platform.Handle(nil), b.moves...)
}

func (b *Bridge) IsOnCurrentDesktop(h platform.Handle) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failing[h] {
		return true
	}
	id, ok := b.placed[h]
	if !ok {
		return true
	}
	return id == b.current
}

func (b *Bridge) DesktopID(h platform.Handle) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failing[h] {
		return "", false
	}
	id, ok := b.placed[h]
	if !ok {
		return b.current, true
	}
	return id, true
}

func (b *Bridge) CurrentDesktopID() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current, b.current != ""
}

func (b *Bridge) SwitchTo(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.SwitchErr != nil {
		return b.SwitchErr
	}
	b.current = id
	b.switches = append(b.switches, id)
	return nil
}

func (b *Bridge) MoveToDesktop(h platform.Handle, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.MoveErr != nil {
		return b.MoveErr
	}
	b.placed[h] = id
	b.moves = append(b.moves, h)
	return nil
}

func (b *Bridge) Close() error { return nil }
