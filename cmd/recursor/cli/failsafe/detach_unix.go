//go:build !windows

package failsafe

import "syscall"

// detachedAttr puts the child in its own session so it outlives the hook
// process and the editor's process group.
func detachedAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}
