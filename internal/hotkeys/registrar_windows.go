//go:build windows

package hotkeys

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32                 = windows.NewLazySystemDLL("user32.dll")
	procRegisterHotKey     = user32.NewProc("RegisterHotKey")
	procUnregisterHotKey   = user32.NewProc("UnregisterHotKey")
	procGetMessageW        = user32.NewProc("GetMessageW")
	procPeekMessageW       = user32.NewProc("PeekMessageW")
	procPostThreadMessageW = user32.NewProc("PostThreadMessageW")
)

const (
	wmHotkey     = 0x0312
	wmApp        = 0x8000
	wmAppRequest = wmApp + 1
	wmAppQuit    = wmApp + 2

	modNoRepeat = 0x4000
	pmNoRemove  = 0x0000

	dispatchQueueDepth = 32
)

type point struct {
	X, Y int32
}

type msg struct {
	Hwnd    uintptr
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt      point
	Private uint32
}

type request struct {
	register bool
	id       int
	hotkey   Hotkey
	reply    chan error
}

// WindowsRegistrar owns a thread with a message queue. RegisterHotKey
// delivers WM_HOTKEY to the registering thread, so registration and the
// GetMessage loop share one locked OS thread.
type WindowsRegistrar struct {
	logger   *slog.Logger
	threadID uint32
	requests chan request
	dispatch chan func()
	done     chan struct{}

	mu        sync.Mutex
	nextID    int
	callbacks map[int]func()
	closeOnce sync.Once
}

// NewRegistrar starts the hotkey message loop.
func NewRegistrar(logger *slog.Logger) (Registrar, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &WindowsRegistrar{
		logger:    logger,
		requests:  make(chan request, 8),
		dispatch:  make(chan func(), dispatchQueueDepth),
		done:      make(chan struct{}),
		callbacks: make(map[int]func()),
	}

	ready := make(chan error, 1)
	go r.loop(ready)
	if err := <-ready; err != nil {
		return nil, err
	}
	go r.dispatchLoop()
	return r, nil
}

func (r *WindowsRegistrar) loop(ready chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(r.done)

	r.threadID = windows.GetCurrentThreadId()

	// Force creation of the thread message queue before anyone posts to it.
	var m msg
	procPeekMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0, pmNoRemove)
	ready <- nil

	registered := make(map[int]bool)
	defer func() {
		for id := range registered {
			procUnregisterHotKey.Call(0, uintptr(id))
		}
	}()

	for {
		ret, _, err := procGetMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
		switch int32(ret) {
		case -1:
			r.logger.Error("hotkey message loop failed", "error", err)
			return
		case 0:
			return
		}

		switch m.Message {
		case wmHotkey:
			r.fire(int(m.WParam))
		case wmAppRequest:
			r.serveRequests(registered)
		case wmAppQuit:
			return
		}
	}
}

func (r *WindowsRegistrar) serveRequests(registered map[int]bool) {
	for {
		select {
		case req := <-r.requests:
			if req.register {
				ok, _, err := procRegisterHotKey.Call(0, uintptr(req.id),
					uintptr(req.hotkey.Mods)|modNoRepeat, uintptr(req.hotkey.Key))
				if ok == 0 {
					req.reply <- fmt.Errorf("RegisterHotKey %s: %w", req.hotkey, err)
					continue
				}
				registered[req.id] = true
				req.reply <- nil
			} else {
				if registered[req.id] {
					procUnregisterHotKey.Call(0, uintptr(req.id))
					delete(registered, req.id)
				}
				req.reply <- nil
			}
		default:
			return
		}
	}
}

func (r *WindowsRegistrar) fire(id int) {
	r.mu.Lock()
	callback := r.callbacks[id]
	r.mu.Unlock()
	if callback == nil {
		return
	}
	select {
	case r.dispatch <- callback:
	default:
		r.logger.Warn("hotkey dropped: dispatch queue full", "id", id)
	}
}

// dispatchLoop runs callbacks one at a time off the message thread so a
// slow activation never stalls WM_HOTKEY delivery.
func (r *WindowsRegistrar) dispatchLoop() {
	for {
		select {
		case <-r.done:
			return
		case callback := <-r.dispatch:
			func() {
				defer func() {
					if err := recover(); err != nil {
						r.logger.Error("hotkey callback panic recovered", "error", err)
					}
				}()
				callback()
			}()
		}
	}
}

func (r *WindowsRegistrar) send(req request) error {
	req.reply = make(chan error, 1)
	select {
	case r.requests <- req:
	case <-r.done:
		return fmt.Errorf("hotkey registrar closed")
	}
	ok, _, err := procPostThreadMessageW.Call(uintptr(r.threadID), wmAppRequest, 0, 0)
	if ok == 0 {
		return fmt.Errorf("PostThreadMessageW: %w", err)
	}
	select {
	case err := <-req.reply:
		return err
	case <-r.done:
		return fmt.Errorf("hotkey registrar closed")
	}
}

func (r *WindowsRegistrar) Register(hk Hotkey, callback func()) (int, error) {
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.callbacks[id] = callback
	r.mu.Unlock()

	if err := r.send(request{register: true, id: id, hotkey: hk}); err != nil {
		r.mu.Lock()
		delete(r.callbacks, id)
		r.mu.Unlock()
		return 0, err
	}
	return id, nil
}

func (r *WindowsRegistrar) Unregister(id int) error {
	err := r.send(request{id: id})
	r.mu.Lock()
	delete(r.callbacks, id)
	r.mu.Unlock()
	return err
}

func (r *WindowsRegistrar) Close() error {
	r.closeOnce.Do(func() {
		procPostThreadMessageW.Call(uintptr(r.threadID), wmAppQuit, 0, 0)
		<-r.done
	})
	return nil
}
