package supervisor

import (
	"io"
	"os/exec"
	"regexp"
	"sync"

	"github.com/piperack/piperack/internal/piperack/proc"
	"github.com/piperack/piperack/internal/piperack/spec"
)

// managedProcess is the mutable runtime record paired 1:1 with a process
// spec. Every field below is guarded by mu; the spec field is immutable
// and safe to read without it.
type managedProcess struct {
	spec spec.ProcessSpec

	// readyRegex is compiled once at construction when Ready.Kind is
	// ReadyLog, shared read-only by the stream reader goroutine.
	readyRegex *regexp.Regexp

	mu sync.Mutex

	cmd       *exec.Cmd
	stdin     io.WriteCloser
	pid       int
	started   bool
	ready     bool
	waitingOn []string
	shutdown  *proc.State
	attempt   uint64

	// waitResult receives the reaped exit state from the goroutine spawn
	// starts alongside the child, so PollExits can check for exit without
	// ever blocking on cmd.Wait itself.
	waitResult chan waitOutcome

	// readyFired latches within one attempt so a readiness prober (in
	// particular the log matcher, which sees every line) emits Ready at
	// most once per attempt.
	readyFired bool
}

func newManagedProcess(s spec.ProcessSpec) (*managedProcess, error) {
	mp := &managedProcess{spec: s}
	if s.Ready.Kind == spec.ReadyLog {
		re, err := regexp.Compile(s.Ready.Regex)
		if err != nil {
			return nil, err
		}
		mp.readyRegex = re
	}
	return mp, nil
}

func (mp *managedProcess) isRunning() bool {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.cmd != nil
}

func (mp *managedProcess) isReady() bool {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.ready
}

func (mp *managedProcess) currentAttempt() uint64 {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.attempt
}
