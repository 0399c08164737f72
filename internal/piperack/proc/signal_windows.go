//go:build windows

package proc

import (
	"golang.org/x/sys/windows"

	"github.com/piperack/piperack/internal/piperack/event"
)

// windowsSignaler has no POSIX signal equivalent available. Both
// escalation stages deliver CTRL_BREAK_EVENT to the child's console
// process group; the shutdown state machine still waits out both
// configured deadlines before forcing termination.
type windowsSignaler struct{}

// NewSignaler returns the platform signal bridge.
func NewSignaler() Signaler { return windowsSignaler{} }

func (windowsSignaler) Signal(pid int, _ event.Signal) error {
	return windows.GenerateConsoleCtrlEvent(windows.CTRL_BREAK_EVENT, uint32(pid))
}

func (windowsSignaler) Kill(pid int) error {
	h, err := windows.OpenProcess(windows.PROCESS_TERMINATE, false, uint32(pid))
	if err != nil {
		return err
	}
	defer windows.CloseHandle(h)
	return windows.TerminateProcess(h, 1)
}
