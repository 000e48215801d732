//go:build windows

package daemon

import (
	"syscall"

	"golang.org/x/sys/windows"
)

func newConsoleAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{CreationFlags: windows.CREATE_NEW_CONSOLE}
}
