//go:build !windows

package detach

import "syscall"

// New session: no controlling terminal, immune to the parent's group signals.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}
