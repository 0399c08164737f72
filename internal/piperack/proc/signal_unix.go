//go:build !windows

package proc

import (
	"syscall"

	"github.com/piperack/piperack/internal/piperack/event"
)

// unixSignaler delivers signals to the child's process group. Children are
// started with Setpgid so that the group leader's PID doubles as the PGID
// (see internal/piperack/supervisor/spawn.go), which lets us reach the
// whole tree of a shell-wrapped command with one kill(2) call.
type unixSignaler struct{}

// NewSignaler returns the platform signal bridge.
func NewSignaler() Signaler { return unixSignaler{} }

func (unixSignaler) Signal(pid int, sig event.Signal) error {
	s := syscall.SIGINT
	if sig == event.SigTerm {
		s = syscall.SIGTERM
	}
	// Negative PID targets the whole process group.
	if err := syscall.Kill(-pid, s); err != nil {
		return syscall.Kill(pid, s)
	}
	return nil
}

func (unixSignaler) Kill(pid int) error {
	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil {
		return syscall.Kill(pid, syscall.SIGKILL)
	}
	return nil
}
