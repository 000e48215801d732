package platform

import (
	"errors"
	"fmt"
)

// Handle is an opaque top-level window handle (HWND).
type Handle uintptr

// String formats the handle the way Spy++ shows it.
func (h Handle) String() string {
	return fmt.Sprintf("0x%08X", uintptr(h))
}

// Window style bits read from GWL_STYLE.
const (
	StyleVisible  uint32 = 0x10000000
	StyleMinimize uint32 = 0x20000000
	StylePopup    uint32 = 0x80000000
)

// ShowCommand mirrors the nCmdShow values accepted by ShowWindow.
type ShowCommand int

const (
	ShowHide    ShowCommand = 0
	ShowNormal  ShowCommand = 1
	ShowShow    ShowCommand = 5
	ShowRestore ShowCommand = 9
)

// VKMenu is the virtual-key code of the Alt key.
const VKMenu uint8 = 0x12

// ErrUnsupported is returned by backends that cannot drive the window system.
var ErrUnsupported = errors.New("platform: window system not supported on this OS")

// Backend abstracts the window-system primitives used by the enumerator,
// the index and the activator.
type Backend interface {
	// EnumWindows lists every top-level window handle in Z-order.
	EnumWindows() ([]Handle, error)
	WindowText(h Handle) (string, error)
	ClassName(h Handle) (string, error)
	Style(h Handle) (uint32, error)
	ProcessID(h Handle) (uint32, error)
	// ProcessName returns the executable base name of pid.
	ProcessName(pid uint32) (string, error)

	IsWindow(h Handle) bool
	IsMinimized(h Handle) bool
	IsTopmost(h Handle) bool
	ForegroundWindow() Handle

	WindowThreadID(h Handle) uint32
	CurrentThreadID() uint32
	AttachThreadInput(from, to uint32, attach bool) error

	ShowWindow(h Handle, cmd ShowCommand) error
	BringToTop(h Handle) error
	SetForeground(h Handle) bool
	SetTopmost(h Handle, topmost bool) error
	KeyEvent(vk uint8, up bool)
}
