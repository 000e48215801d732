//go:build !windows

package platform

// NewBackend returns the native backend for this OS.
func NewBackend() (Backend, error) {
	return nil, ErrUnsupported
}
