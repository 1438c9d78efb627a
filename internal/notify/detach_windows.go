//go:build windows

package notify

import "syscall"

const detachedProcess = 0x00000008

// detachAttr starts the child without a console in a new process group.
func detachAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP | detachedProcess,
	}
}
