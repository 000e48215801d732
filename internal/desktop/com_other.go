//go:build !windows

package desktop

import "github.com/flashtoggle/flashtoggle/internal/platform"

// NewCOMBridge is only available on Windows.
func NewCOMBridge(foreground func() platform.Handle) (Bridge, error) {
	return nil, ErrUnavailable
}
