//go:build windows

package supervisor

import (
	"os/exec"
	"syscall"
)

// detach requests a new process group equivalent so the child can be
// signaled (via CTRL_BREAK) independently of the supervisor's own
// console.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	}
}

func cmdPID(cmd *exec.Cmd) int {
	if cmd.Process == nil {
		return 0
	}
	return cmd.Process.Pid
}

// killGroup is cmd.Cancel's implementation. Windows has no process-group
// kill(2) equivalent reachable from os/exec; terminating the process itself
// is the best available backstop when the supervisor's lifetime context
// ends without a clean shutdown having run first.
func killGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}
