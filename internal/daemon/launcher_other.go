//go:build !windows

package daemon

import "syscall"

func newConsoleAttr() *syscall.SysProcAttr {
	return nil
}
