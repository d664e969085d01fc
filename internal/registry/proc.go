package registry

import (
	"errors"
	"syscall"
)

// IsProcessRunning reports whether pid refers to a live process. It sends
// signal 0, which performs the existence check without delivering anything:
// success or EPERM (alive but owned by another user) mean running, ESRCH
// and everything else mean not running.
func IsProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, syscall.Signal(0))
	if err == nil {
		return true
	}
	return errors.Is(err, syscall.EPERM)
}
