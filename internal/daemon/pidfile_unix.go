//go:build !windows

package daemon

import "syscall"

// alive reports whether pid exists; signal 0 only checks.
func alive(pid int) bool {
	return syscall.Kill(pid, 0) == nil
}

func terminate(pid int) error {
	return syscall.Kill(pid, syscall.SIGTERM)
}
