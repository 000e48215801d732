package pinned

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flashtoggle/flashtoggle/internal/config"
	"github.com/flashtoggle/flashtoggle/internal/hotkeys"
	"github.com/flashtoggle/flashtoggle/internal/platform"
	"github.com/flashtoggle/flashtoggle/internal/platform/platformtest"
	"github.com/flashtoggle/flashtoggle/internal/window"
)

type fakeBinder struct {
	mu    sync.Mutex
	bound map[string]func()
	fail  error
}

func newFakeBinder() *fakeBinder {
	return &fakeBinder{bound: make(map[string]func())}
}

func (b *fakeBinder) RegisterFunc(seq string, fn func()) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail != nil {
		return b.fail
	}
	if _, ok := b.bound[seq]; ok {
		return errors.New("already bound")
	}
	b.bound[seq] = fn
	return nil
}

func (b *fakeBinder) Unregister(seq string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.bound, seq)
	return nil
}

func (b *fakeBinder) fire(seq string) bool {
	b.mu.Lock()
	fn, ok := b.bound[seq]
	b.mu.Unlock()
	if ok {
		fn()
	}
	return ok
}

func newManager(t *testing.T) (*Manager, *platformtest.Backend, *fakeBinder, *[]platform.Handle) {
	t.Helper()
	backend := platformtest.New()
	binder := newFakeBinder()
	activated := &[]platform.Handle{}
	m := New(backend, func(h platform.Handle) bool {
		*activated = append(*activated, h)
		return true
	}, binder, nil)
	return m, backend, binder, activated
}

func TestCapture(t *testing.T) {
	m, backend, _, _ := newManager(t)

	_, err := m.Capture()
	assert.ErrorIs(t, err, ErrNoForeground)

	backend.AddVisible(0x10, "Notes", "notepad.exe")
	backend.Focus(0x10)
	w, err := m.Capture()
	require.NoError(t, err)
	assert.Equal(t, "Notes", w.Title)
	assert.Equal(t, "notepad.exe", w.Process)

	_, err = m.Capture()
	assert.ErrorIs(t, err, ErrAlreadyPinned)

	backend.Add(0x20, platformtest.Window{Title: "  ", Style: platform.StyleVisible})
	backend.Focus(0x20)
	_, err = m.Capture()
	assert.ErrorIs(t, err, ErrUntitled)

	assert.Len(t, m.List(), 1)
}

func TestToggleVisibility(t *testing.T) {
	m, backend, _, activated := newManager(t)
	backend.AddVisible(0x10, "Notes", "notepad.exe")
	_, err := m.Pin(0x10)
	require.NoError(t, err)

	hidden, err := m.ToggleVisibility(0x10)
	require.NoError(t, err)
	assert.True(t, hidden)
	w, _ := backend.Window(0x10)
	assert.True(t, w.Hidden)

	hidden, err = m.ToggleVisibility(0x10)
	require.NoError(t, err)
	assert.False(t, hidden)
	w, _ = backend.Window(0x10)
	assert.False(t, w.Hidden)
	assert.Equal(t, []platform.Handle{0x10}, *activated)

	_, err = m.ToggleVisibility(0x99)
	assert.ErrorIs(t, err, ErrNotPinned)
}

func TestToggleVisibilityReleasesClosedWindow(t *testing.T) {
	m, backend, _, _ := newManager(t)
	backend.AddVisible(0x10, "Notes", "notepad.exe")
	_, err := m.Pin(0x10)
	require.NoError(t, err)

	backend.Remove(0x10)
	_, err = m.ToggleVisibility(0x10)
	assert.ErrorIs(t, err, ErrWindowGone)
	assert.Empty(t, m.List())
}

func TestToggleTopmost(t *testing.T) {
	m, backend, _, _ := newManager(t)
	backend.AddVisible(0x10, "Notes", "notepad.exe")
	_, err := m.Pin(0x10)
	require.NoError(t, err)

	on, err := m.ToggleTopmost(0x10)
	require.NoError(t, err)
	assert.True(t, on)
	assert.True(t, backend.IsTopmost(0x10))

	on, err = m.ToggleTopmost(0x10)
	require.NoError(t, err)
	assert.False(t, on)
	assert.False(t, backend.IsTopmost(0x10))
}

func TestToggleActiveTopmost(t *testing.T) {
	m, backend, _, _ := newManager(t)
	_, _, err := m.ToggleActiveTopmost()
	assert.ErrorIs(t, err, ErrNoForeground)

	backend.AddVisible(0x10, "Browser", "browser.exe")
	backend.Focus(0x10)
	h, on, err := m.ToggleActiveTopmost()
	require.NoError(t, err)
	assert.Equal(t, platform.Handle(0x10), h)
	assert.True(t, on)
	assert.Empty(t, m.List(), "active topmost does not pin")
}

func TestSetHotkeyBindsVisibilityToggle(t *testing.T) {
	m, backend, binder, _ := newManager(t)
	backend.AddVisible(0x10, "Notes", "notepad.exe")
	_, err := m.Pin(0x10)
	require.NoError(t, err)

	require.NoError(t, m.SetHotkey(0x10, "Alt+Ctrl+N"))
	w, _ := m.Get(0x10)
	assert.Equal(t, "ctrl+alt+n", w.Hotkey)

	require.True(t, binder.fire("ctrl+alt+n"))
	w, _ = m.Get(0x10)
	assert.True(t, w.Hidden)

	require.NoError(t, m.SetHotkey(0x10, "ctrl+alt+m"))
	assert.False(t, binder.fire("ctrl+alt+n"), "old binding released")
	assert.True(t, binder.fire("ctrl+alt+m"))

	require.NoError(t, m.SetHotkey(0x10, ""))
	assert.Empty(t, binder.bound)

	assert.ErrorIs(t, m.SetHotkey(0x10, "ctrl+nope"), hotkeys.ErrInvalidHotkey)
	assert.ErrorIs(t, m.SetHotkey(0x99, "ctrl+alt+x"), ErrNotPinned)
}

func TestSetHotkeyFailureClearsBinding(t *testing.T) {
	m, backend, binder, _ := newManager(t)
	backend.AddVisible(0x10, "Notes", "notepad.exe")
	_, err := m.Pin(0x10)
	require.NoError(t, err)

	binder.fail = errors.New("taken by another app")
	assert.Error(t, m.SetHotkey(0x10, "ctrl+alt+n"))
	w, _ := m.Get(0x10)
	assert.Empty(t, w.Hotkey)
}

func TestReleaseShowsHiddenWindow(t *testing.T) {
	m, backend, binder, _ := newManager(t)
	backend.AddVisible(0x10, "Notes", "notepad.exe")
	backend.AddVisible(0x20, "Todo", "todo.exe")
	_, _ = m.Pin(0x10)
	_, _ = m.Pin(0x20)
	require.NoError(t, m.SetHotkey(0x10, "ctrl+alt+n"))
	_, err := m.ToggleVisibility(0x10)
	require.NoError(t, err)

	assert.True(t, m.Release(0x10))
	assert.False(t, m.Release(0x10))
	w, _ := backend.Window(0x10)
	assert.False(t, w.Hidden)
	assert.Empty(t, binder.bound)

	assert.Equal(t, 1, m.Clear())
	assert.Empty(t, m.List())
}

func TestSavedAndRestore(t *testing.T) {
	m, backend, binder, _ := newManager(t)
	backend.AddVisible(0x10, "Notes", "notepad.exe")
	backend.AddVisible(0x20, "Notes", "other.exe")

	saved := []config.SavedWindow{
		{Title: "Notes", Process: "OTHER.EXE", Hotkey: "ctrl+alt+n", Topmost: true},
		{Title: "Missing"},
	}
	records := []window.Record{
		{Handle: 0x10, Title: "Notes", ProcessName: "notepad.exe"},
		{Handle: 0x20, Title: "Notes", ProcessName: "other.exe"},
	}

	assert.Equal(t, 1, m.Restore(saved, records))
	w, ok := m.Get(0x20)
	require.True(t, ok)
	assert.Equal(t, "ctrl+alt+n", w.Hotkey)
	assert.True(t, w.Topmost)
	assert.Contains(t, binder.bound, "ctrl+alt+n")

	assert.Equal(t, []config.SavedWindow{
		{Title: "Notes", Process: "other.exe", Hotkey: "ctrl+alt+n", Topmost: true},
	}, m.Saved())

	// Restoring again is a no-op for already pinned windows.
	assert.Equal(t, 0, m.Restore(saved, records))
}
