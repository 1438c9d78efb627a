//go:build !windows

package notify

import "syscall"

// detachAttr places the child in its own session so it outlives the hook
// and never touches the host's terminal.
func detachAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}
