// Package daemon detaches the serving process from the invoking terminal.
//
// Detach has two outcomes, mirroring the classic double-fork sequence: the
// parent returns immediately with the child's pid and is expected to exit
// after any parent-side work (opening the browser), while the daemon side
// continues with its session detached from the controlling terminal and
// stdout/stderr redirected to the instance's log file.
package daemon

import (
	"fmt"
	"os"

	godaemon "github.com/sevlyar/go-daemon"
)

// Handle represents an in-progress detach. Exactly one of the two roles
// applies to the current process; IsParent distinguishes them.
type Handle struct {
	ctx      *godaemon.Context
	childPID int
	parent   bool
}

// IsParent reports whether the current process is the foreground parent.
func (h *Handle) IsParent() bool { return h.parent }

// ChildPID returns the detached child's pid. Only meaningful in the parent.
func (h *Handle) ChildPID() int { return h.childPID }

// Release frees the detach context in the daemon process. Call it before
// the daemon exits.
func (h *Handle) Release() error {
	if h.parent || h.ctx == nil {
		return nil
	}
	return h.ctx.Release()
}

// Detach re-executes the current process into a new session with
// stdout/stderr redirected to logPath and stdin detached. The work
// directory is reset to / and a restrictive umask applied so the daemon
// holds no reference to where it was launched from.
//
// The child runs the same command line from the top; env carries the
// decisions (port, log path) the parent already made so the child does
// not re-derive them differently.
func Detach(logPath string, env map[string]string) (*Handle, error) {
	environ := os.Environ()
	for k, v := range env {
		environ = append(environ, k+"="+v)
	}

	ctx := &godaemon.Context{
		LogFileName: logPath,
		LogFilePerm: 0o640,
		WorkDir:     "/",
		Umask:       0o27,
		Env:         environ,
	}

	child, err := ctx.Reborn()
	if err != nil {
		return nil, fmt.Errorf("daemon: detach failed: %w", err)
	}
	if child != nil {
		return &Handle{parent: true, childPID: child.Pid}, nil
	}
	return &Handle{ctx: ctx}, nil
}

// PID returns the current process id.
func PID() int { return os.Getpid() }
