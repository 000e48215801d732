//go:build windows

package platform

import (
	"fmt"
	"path/filepath"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32                       = windows.NewLazySystemDLL("user32.dll")
	procEnumWindows              = user32.NewProc("EnumWindows")
	procGetWindowTextW           = user32.NewProc("GetWindowTextW")
	procGetWindowTextLengthW     = user32.NewProc("GetWindowTextLengthW")
	procGetClassNameW            = user32.NewProc("GetClassNameW")
	procGetWindowLongW           = user32.NewProc("GetWindowLongW")
	procGetWindowThreadProcessId = user32.NewProc("GetWindowThreadProcessId")
	procIsWindow                 = user32.NewProc("IsWindow")
	procIsIconic                 = user32.NewProc("IsIconic")
	procGetForegroundWindow      = user32.NewProc("GetForegroundWindow")
	procSetForegroundWindow      = user32.NewProc("SetForegroundWindow")
	procBringWindowToTop         = user32.NewProc("BringWindowToTop")
	procShowWindow               = user32.NewProc("ShowWindow")
	procSetWindowPos             = user32.NewProc("SetWindowPos")
	procAttachThreadInput        = user32.NewProc("AttachThreadInput")
	procKeybdEvent               = user32.NewProc("keybd_event")
)

const (
	gwlStyle   = -16
	gwlExStyle = -20

	wsExTopmost = 0x00000008

	swpNoSize     = 0x0001
	swpNoMove     = 0x0002
	swpNoActivate = 0x0010

	keyEventFKeyUp = 0x0002
)

var (
	hwndTopmost   = ^uintptr(0)     // (HWND)-1
	hwndNoTopmost = ^uintptr(0) - 1 // (HWND)-2
)

// enumCallback is created once; the runtime caps the number of callbacks a
// process may allocate.
var (
	enumMu       sync.Mutex
	enumHandles  []Handle
	enumCallback = windows.NewCallback(func(hwnd uintptr, _ uintptr) uintptr {
		enumHandles = append(enumHandles, Handle(hwnd))
		return 1
	})
)

// WindowsBackend drives user32 directly.
type WindowsBackend struct{}

var _ Backend = (*WindowsBackend)(nil)

// NewBackend returns the native backend for this OS.
func NewBackend() (Backend, error) {
	if err := user32.Load(); err != nil {
		return nil, fmt.Errorf("failed to load user32.dll: %w", err)
	}
	return &WindowsBackend{}, nil
}

func (b *WindowsBackend) EnumWindows() ([]Handle, error) {
	enumMu.Lock()
	defer enumMu.Unlock()

	enumHandles = enumHandles[:0]
	r, _, err := procEnumWindows.Call(enumCallback, 0)
	if r == 0 {
		return nil, fmt.Errorf("EnumWindows: %w", err)
	}
	out := make([]Handle, len(enumHandles))
	copy(out, enumHandles)
	return out, nil
}

func (b *WindowsBackend) WindowText(h Handle) (string, error) {
	length, _, _ := procGetWindowTextLengthW.Call(uintptr(h))
	if length == 0 {
		return "", nil
	}
	buf := make([]uint16, length+1)
	n, _, err := procGetWindowTextW.Call(uintptr(h), uintptr(unsafe.Pointer(&buf[0])), uintptr(length+1))
	if n == 0 && err != windows.ERROR_SUCCESS {
		return "", fmt.Errorf("GetWindowTextW %s: %w", h, err)
	}
	return windows.UTF16ToString(buf), nil
}

func (b *WindowsBackend) ClassName(h Handle) (string, error) {
	buf := make([]uint16, 256)
	n, _, err := procGetClassNameW.Call(uintptr(h), uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	if n == 0 {
		return "", fmt.Errorf("GetClassNameW %s: %w", h, err)
	}
	return windows.UTF16ToString(buf[:n]), nil
}

func (b *WindowsBackend) Style(h Handle) (uint32, error) {
	return windowLong(h, gwlStyle)
}

func windowLong(h Handle, index int32) (uint32, error) {
	r, _, err := procGetWindowLongW.Call(uintptr(h), uintptr(index))
	if r == 0 && err != windows.ERROR_SUCCESS {
		return 0, fmt.Errorf("GetWindowLongW %s: %w", h, err)
	}
	return uint32(r), nil
}

func (b *WindowsBackend) ProcessID(h Handle) (uint32, error) {
	var pid uint32
	tid, _, err := procGetWindowThreadProcessId.Call(uintptr(h), uintptr(unsafe.Pointer(&pid)))
	if tid == 0 {
		return 0, fmt.Errorf("GetWindowThreadProcessId %s: %w", h, err)
	}
	return pid, nil
}

func (b *WindowsBackend) ProcessName(pid uint32) (string, error) {
	ph, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, pid)
	if err != nil {
		return "", fmt.Errorf("OpenProcess %d: %w", pid, err)
	}
	defer windows.CloseHandle(ph)

	buf := make([]uint16, windows.MAX_LONG_PATH)
	size := uint32(len(buf))
	if err := windows.QueryFullProcessImageName(ph, 0, &buf[0], &size); err != nil {
		return "", fmt.Errorf("QueryFullProcessImageName %d: %w", pid, err)
	}
	return filepath.Base(windows.UTF16ToString(buf[:size])), nil
}

func (b *WindowsBackend) IsWindow(h Handle) bool {
	if h == 0 {
		return false
	}
	r, _, _ := procIsWindow.Call(uintptr(h))
	return r != 0
}

func (b *WindowsBackend) IsMinimized(h Handle) bool {
	r, _, _ := procIsIconic.Call(uintptr(h))
	return r != 0
}

func (b *WindowsBackend) IsTopmost(h Handle) bool {
	ex, err := windowLong(h, gwlExStyle)
	return err == nil && ex&wsExTopmost != 0
}

func (b *WindowsBackend) ForegroundWindow() Handle {
	r, _, _ := procGetForegroundWindow.Call()
	return Handle(r)
}

func (b *WindowsBackend) WindowThreadID(h Handle) uint32 {
	tid, _, _ := procGetWindowThreadProcessId.Call(uintptr(h), 0)
	return uint32(tid)
}

func (b *WindowsBackend) CurrentThreadID() uint32 {
	return windows.GetCurrentThreadId()
}

func (b *WindowsBackend) AttachThreadInput(from, to uint32, attach bool) error {
	var flag uintptr
	if attach {
		flag = 1
	}
	r, _, err := procAttachThreadInput.Call(uintptr(from), uintptr(to), flag)
	if r == 0 {
		return fmt.Errorf("AttachThreadInput %d->%d: %w", from, to, err)
	}
	return nil
}

// ShowWindow returns nil regardless of the previous visibility state, which
// is what the Win32 return value encodes.
func (b *WindowsBackend) ShowWindow(h Handle, cmd ShowCommand) error {
	if !b.IsWindow(h) {
		return fmt.Errorf("ShowWindow %s: invalid window handle", h)
	}
	procShowWindow.Call(uintptr(h), uintptr(cmd))
	return nil
}

func (b *WindowsBackend) BringToTop(h Handle) error {
	r, _, err := procBringWindowToTop.Call(uintptr(h))
	if r == 0 {
		return fmt.Errorf("BringWindowToTop %s: %w", h, err)
	}
	return nil
}

func (b *WindowsBackend) SetForeground(h Handle) bool {
	r, _, _ := procSetForegroundWindow.Call(uintptr(h))
	return r != 0
}

func (b *WindowsBackend) SetTopmost(h Handle, topmost bool) error {
	insertAfter := hwndNoTopmost
	if topmost {
		insertAfter = hwndTopmost
	}
	r, _, err := procSetWindowPos.Call(uintptr(h), insertAfter, 0, 0, 0, 0, swpNoMove|swpNoSize|swpNoActivate)
	if r == 0 {
		return fmt.Errorf("SetWindowPos %s: %w", h, err)
	}
	return nil
}

func (b *WindowsBackend) KeyEvent(vk uint8, up bool) {
	var flags uintptr
	if up {
		flags = keyEventFKeyUp
	}
	procKeybdEvent.Call(uintptr(vk), 0, flags, 0)
}
