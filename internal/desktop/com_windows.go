//go:build windows

package desktop

import (
	"fmt"
	"runtime"
	"syscall"
	"unsafe"

	ole "github.com/go-ole/go-ole"

	"github.com/flashtoggle/flashtoggle/internal/platform"
)

const (
	clsidVirtualDesktopManager = "{AA509086-5CA9-4C25-8F95-589D3C07B48A}"
	iidIVirtualDesktopManager  = "{A5CD92FF-29BE-454C-8D04-D82879FB3F1B}"
	comQueueDepth              = 16
)

type virtualDesktopManagerVtbl struct {
	ole.IUnknownVtbl
	IsWindowOnCurrentVirtualDesktop uintptr
	GetWindowDesktopId              uintptr
	MoveWindowToDesktop             uintptr
}

type virtualDesktopManager struct {
	ole.IUnknown
}

func (m *virtualDesktopManager) vtbl() *virtualDesktopManagerVtbl {
	return (*virtualDesktopManagerVtbl)(unsafe.Pointer(m.RawVTable))
}

func (m *virtualDesktopManager) isOnCurrent(h platform.Handle) (bool, error) {
	var onCurrent int32
	hr, _, _ := syscall.SyscallN(m.vtbl().IsWindowOnCurrentVirtualDesktop,
		uintptr(unsafe.Pointer(m)), uintptr(h), uintptr(unsafe.Pointer(&onCurrent)))
	if hr != 0 {
		return false, ole.NewError(hr)
	}
	return onCurrent != 0, nil
}

func (m *virtualDesktopManager) desktopID(h platform.Handle) (*ole.GUID, error) {
	var id ole.GUID
	hr, _, _ := syscall.SyscallN(m.vtbl().GetWindowDesktopId,
		uintptr(unsafe.Pointer(m)), uintptr(h), uintptr(unsafe.Pointer(&id)))
	if hr != 0 {
		return nil, ole.NewError(hr)
	}
	return &id, nil
}

func (m *virtualDesktopManager) moveToDesktop(h platform.Handle, id *ole.GUID) error {
	hr, _, _ := syscall.SyscallN(m.vtbl().MoveWindowToDesktop,
		uintptr(unsafe.Pointer(m)), uintptr(h), uintptr(unsafe.Pointer(id)))
	if hr != 0 {
		return ole.NewError(hr)
	}
	return nil
}

// COMBridge talks to IVirtualDesktopManager. COM objects are apartment bound,
// so every call is marshalled onto one goroutine locked to its OS thread.
type COMBridge struct {
	foreground func() platform.Handle
	calls      chan func(*virtualDesktopManager)
	done       chan struct{}
}

var _ Bridge = (*COMBridge)(nil)

// NewCOMBridge creates the virtual desktop manager on a dedicated thread.
// foreground is used to resolve the current desktop, which the public COM
// surface does not expose directly.
func NewCOMBridge(foreground func() platform.Handle) (Bridge, error) {
	b := &COMBridge{
		foreground: foreground,
		calls:      make(chan func(*virtualDesktopManager), comQueueDepth),
		done:       make(chan struct{}),
	}

	ready := make(chan error, 1)
	go b.loop(ready)
	if err := <-ready; err != nil {
		return nil, err
	}
	return b, nil
}

func (b *COMBridge) loop(ready chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(b.done)

	if err := ole.CoInitializeEx(0, ole.COINIT_APARTMENTTHREADED); err != nil {
		// S_FALSE means COM was already initialized on this thread.
		if oleErr, ok := err.(*ole.OleError); !ok || oleErr.Code() != 1 {
			ready <- fmt.Errorf("%w: CoInitializeEx: %v", ErrUnavailable, err)
			return
		}
	}
	defer ole.CoUninitialize()

	unk, err := ole.CreateInstance(ole.NewGUID(clsidVirtualDesktopManager), ole.NewGUID(iidIVirtualDesktopManager))
	if err != nil {
		ready <- fmt.Errorf("%w: CreateInstance: %v", ErrUnavailable, err)
		return
	}
	mgr := (*virtualDesktopManager)(unsafe.Pointer(unk))
	defer mgr.Release()

	ready <- nil
	for fn := range b.calls {
		fn(mgr)
	}
}

// do runs fn on the COM thread and waits for it. A panic inside fn is
// converted into an error.
func (b *COMBridge) do(fn func(*virtualDesktopManager) error) (err error) {
	result := make(chan error, 1)
	call := func(m *virtualDesktopManager) {
		defer func() {
			if r := recover(); r != nil {
				result <- fmt.Errorf("desktop: COM call panicked: %v", r)
			}
		}()
		result <- fn(m)
	}

	defer func() {
		if r := recover(); r != nil {
			err = ErrUnavailable
		}
	}()
	select {
	case b.calls <- call:
	case <-b.done:
		return ErrUnavailable
	}
	return <-result
}

func (b *COMBridge) IsOnCurrentDesktop(h platform.Handle) bool {
	onCurrent := true
	err := b.do(func(m *virtualDesktopManager) error {
		v, err := m.isOnCurrent(h)
		if err != nil {
			return err
		}
		onCurrent = v
		return nil
	})
	if err != nil {
		return true
	}
	return onCurrent
}

func (b *COMBridge) DesktopID(h platform.Handle) (string, bool) {
	var id string
	err := b.do(func(m *virtualDesktopManager) error {
		guid, err := m.desktopID(h)
		if err != nil {
			return err
		}
		id = guid.String()
		return nil
	})
	if err != nil || id == "" {
		return "", false
	}
	return id, true
}

func (b *COMBridge) CurrentDesktopID() (string, bool) {
	if b.foreground == nil {
		return "", false
	}
	fg := b.foreground()
	if fg == 0 {
		return "", false
	}
	return b.DesktopID(fg)
}

// SwitchTo is not reachable through the documented COM interface.
func (b *COMBridge) SwitchTo(string) error {
	return ErrSwitchUnsupported
}

func (b *COMBridge) MoveToDesktop(h platform.Handle, id string) error {
	guid := ole.NewGUID(id)
	if guid == nil {
		return fmt.Errorf("desktop: invalid desktop id %q", id)
	}
	return b.do(func(m *virtualDesktopManager) error {
		if err := m.moveToDesktop(h, guid); err != nil {
			return fmt.Errorf("MoveWindowToDesktop %s: %w", h, err)
		}
		return nil
	})
}

// Close stops the COM thread. Calls made after Close degrade to defaults.
func (b *COMBridge) Close() error {
	select {
	case <-b.done:
		return nil
	default:
	}
	close(b.calls)
	<-b.done
	return nil
}
