//go:build !windows

package hotkeys

import (
	"log/slog"

	"github.com/flashtoggle/flashtoggle/internal/platform"
)

// NewRegistrar is only available on Windows.
func NewRegistrar(logger *slog.Logger) (Registrar, error) {
	return nil, platform.ErrUnsupported
}
