package supervisor

import (
	"context"
	"time"

	"github.com/piperack/piperack/internal/piperack/event"
	"github.com/piperack/piperack/internal/piperack/proc"
)

// reapTimeout bounds how long PollExits waits for a child to die after the
// escalation machine force-kills it.
const reapTimeout = 500 * time.Millisecond

// PollExits is the host's periodic tick: for every child with a live
// handle it checks for exit without blocking, and advances any in-progress
// shutdown escalation.
func (s *Supervisor) PollExits(ctx context.Context) {
	for _, name := range s.specNames() {
		mp := s.lookup(name)
		if mp == nil {
			continue
		}
		s.pollOne(name, mp)
	}
}

func (s *Supervisor) pollOne(name string, mp *managedProcess) {
	mp.mu.Lock()
	if mp.cmd == nil {
		mp.mu.Unlock()
		return
	}
	attempt := mp.attempt
	pid := mp.pid
	sd := mp.shutdown
	waitResult := mp.waitResult
	mp.mu.Unlock()

	select {
	case outcome := <-waitResult:
		s.finishExit(name, mp, attempt, outcome)
		return
	default:
	}

	if sd == nil {
		return
	}

	next, sig, escalate, kill := proc.Advance(s.shutdownCfg, *sd, time.Now())

	mp.mu.Lock()
	mp.shutdown = &next
	mp.mu.Unlock()

	if escalate {
		s.dispatchSignal(name, attempt, pid, sig)
		return
	}

	if kill {
		_ = s.signaler.Kill(pid)
		select {
		case outcome := <-waitResult:
			s.finishExit(name, mp, attempt, outcome)
		case <-time.After(reapTimeout):
			// left running; the next tick will observe it once the OS
			// finishes tearing the process down.
		}
	}
}

func (s *Supervisor) finishExit(name string, mp *managedProcess, attempt uint64, outcome waitOutcome) {
	mp.mu.Lock()
	mp.cmd = nil
	mp.stdin = nil
	mp.pid = 0
	mp.ready = false
	mp.shutdown = nil
	mp.waitResult = nil
	mp.mu.Unlock()

	if outcome.err != nil {
		s.emit(event.Failed{ID: name, Attempt: attempt, Err: outcome.err})
		return
	}
	s.emit(event.Exited{ID: name, Attempt: attempt, Code: outcome.code})
}
