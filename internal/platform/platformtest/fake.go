// Package platformtest provides an in-memory platform.Backend for tests.
package platformtest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/flashtoggle/flashtoggle/internal/platform"
)

// Window describes one fake top-level window.
type Window struct {
	Title     string
	Class     string
	Style     uint32
	PID       uint32
	Process   string
	Thread    uint32
	Minimized bool
	Topmost   bool
	Hidden    bool

	// TitleErr makes WindowText fail for this handle.
	TitleErr error
	// ProcessErr makes ProcessName fail for this window's pid.
	ProcessErr error
	// PanicOnStyle makes Style panic, simulating a crashing OS call.
	PanicOnStyle bool
}

// Backend is a scriptable platform.Backend.
type Backend struct {
	mu         sync.Mutex
	windows    map[platform.Handle]*Window
	order      []platform.Handle
	foreground platform.Handle

	// EnumErr makes EnumWindows fail.
	EnumErr error
	// RefuseForeground is the number of SetForeground calls that fail
	// before one succeeds. Negative refuses forever.
	RefuseForeground int

	shows    []ShowCall
	attached int
	detached int
	keys     []string
}

// ShowCall records a ShowWindow invocation.
type ShowCall struct {
	Handle platform.Handle
	Cmd    platform.ShowCommand
}

var _ platform.Backend = (*Backend)(nil)

// New returns an empty fake backend.
func New() *Backend {
	return &Backend{windows: make(map[platform.Handle]*Window)}
}

// Add registers a window; later calls for the same handle replace it.
func (b *Backend) Add(h platform.Handle, w Window) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.windows[h]; !ok {
		b.order = append(b.order, h)
	}
	if w.Thread == 0 {
		w.Thread = uint32(h)
	}
	cp := w
	b.windows[h] = &cp
}

// AddVisible is a shorthand for a plain visible, titled application window.
func (b *Backend) AddVisible(h platform.Handle, title, process string) {
	b.Add(h, Window{
		Title:   title,
		Class:   "ApplicationWindow",
		Style:   platform.StyleVisible,
		PID:     uint32(h) + 1000,
		Process: process,
	})
}

// Remove closes a window.
func (b *Backend) Remove(h platform.Handle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.windows, h)
	for i, o := range b.order {
		if o == h {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	if b.foreground == h {
		b.foreground = 0
	}
}

// SetTitle renames a window.
func (b *Backend) SetTitle(h platform.Handle, title string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if w, ok := b.windows[h]; ok {
		w.Title = title
	}
}

// SetMinimized toggles the minimized state of a window.
func (b *Backend) SetMinimized(h platform.Handle, minimized bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if w, ok := b.windows[h]; ok {
		w.Minimized = minimized
	}
}

// Focus makes h the foreground window without going through SetForeground.
func (b *Backend) Focus(h platform.Handle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.foreground = h
}

// Shows returns the ShowWindow calls seen so far.
func (b *Backend) Shows() []ShowCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]ShowCall(nil), b.shows...)
}

// AttachCounts returns how many times input queues were attached and detached.
func (b *Backend) AttachCounts() (attached, detached int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attached, b.detached
}

// Keys returns the synthesized key events as "down:0x12" / "up:0x12".
func (b *Backend) Keys() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.keys...)
}

// Window returns a copy of the fake window state.
func (b *Backend) Window(h platform.Handle) (Window, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, ok := b.windows[h]
	if !ok {
		return Window{}, false
	}
	return *w, true
}

func (b *Backend) get(h platform.Handle) (*Window, error) {
	w, ok := b.windows[h]
	if !ok {
		return nil, fmt.Errorf("invalid window handle %s", h)
	}
	return w, nil
}

func (b *Backend) EnumWindows() ([]platform.Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.EnumErr != nil {
		return nil, b.EnumErr
	}
	return append([]platform.Handle(nil), b.order...), nil
}

func (b *Backend) WindowText(h platform.Handle) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, err := b.get(h)
	if err != nil {
		return "", err
	}
	if w.TitleErr != nil {
		return "", w.TitleErr
	}
	return w.Title, nil
}

func (b *Backend) ClassName(h platform.Handle) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, err := b.get(h)
	if err != nil {
		return "", err
	}
	return w.Class, nil
}

func (b *Backend) Style(h platform.Handle) (uint32, error) {
	b.mu.Lock()
	w, err := b.get(h)
	if err != nil {
		b.mu.Unlock()
		return 0, err
	}
	panicking := w.PanicOnStyle
	style := w.Style
	if w.Hidden {
		style &^= platform.StyleVisible
	}
	if w.Minimized {
		style |= platform.StyleMinimize
	}
	b.mu.Unlock()
	if panicking {
		panic("fake: style query crashed")
	}
	return style, nil
}

func (b *Backend) ProcessID(h platform.Handle) (uint32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, err := b.get(h)
	if err != nil {
		return 0, err
	}
	return w.PID, nil
}

func (b *Backend) ProcessName(pid uint32) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, w := range b.windows {
		if w.PID != pid {
			continue
		}
		if w.ProcessErr != nil {
			return "", w.ProcessErr
		}
		return w.Process, nil
	}
	return "", errors.New("no such process")
}

func (b *Backend) IsWindow(h platform.Handle) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.windows[h]
	return ok
}

func (b *Backend) IsMinimized(h platform.Handle) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, ok := b.windows[h]
	return ok && w.Minimized
}

func (b *Backend) IsTopmost(h platform.Handle) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, ok := b.windows[h]
	return ok && w.Topmost
}

func (b *Backend) ForegroundWindow() platform.Handle {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.foreground
}

func (b *Backend) WindowThreadID(h platform.Handle) uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if w, ok := b.windows[h]; ok {
		return w.Thread
	}
	return 0
}

func (b *Backend) CurrentThreadID() uint32 {
	return 1
}

func (b *Backend) AttachThreadInput(from, to uint32, attach bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if attach {
		b.attached++
	} else {
		b.detached++
	}
	return nil
}

func (b *Backend) ShowWindow(h platform.Handle, cmd platform.ShowCommand) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, err := b.get(h)
	if err != nil {
		return err
	}
	b.shows = append(b.shows, ShowCall{Handle: h, Cmd: cmd})
	switch cmd {
	case platform.ShowHide:
		w.Hidden = true
		if b.foreground == h {
			b.foreground = 0
		}
	case platform.ShowRestore:
		w.Hidden = false
		w.Minimized = false
	default:
		w.Hidden = false
	}
	return nil
}

func (b *Backend) BringToTop(h platform.Handle) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := b.get(h)
	return err
}

func (b *Backend) SetForeground(h platform.Handle) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.windows[h]; !ok {
		return false
	}
	if b.RefuseForeground != 0 {
		if b.RefuseForeground > 0 {
			b.RefuseForeground--
		}
		return false
	}
	b.foreground = h
	return true
}

func (b *Backend) SetTopmost(h platform.Handle, topmost bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, err := b.get(h)
	if err != nil {
		return err
	}
	w.Topmost = topmost
	return nil
}

func (b *Backend) KeyEvent(vk uint8, up bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	dir := "down"
	if up {
		dir = "up"
	}
	b.keys = append(b.keys, fmt.Sprintf("%s:0x%02X", dir, vk))
}
