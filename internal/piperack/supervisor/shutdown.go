package supervisor

import (
	"context"
	"time"

	"github.com/piperack/piperack/internal/piperack/event"
	"github.com/piperack/piperack/internal/piperack/proc"
)

// BeginShutdown starts the escalation state machine for one child. It is
// a no-op if the child has no live handle or a shutdown is already in
// progress; PollExits drives the machine to completion.
func (s *Supervisor) BeginShutdown(id string, initial event.Signal) {
	mp := s.lookup(id)
	if mp == nil {
		return
	}
	s.beginShutdown(id, mp, initial)
}

func (s *Supervisor) beginShutdown(id string, mp *managedProcess, initial event.Signal) {
	mp.mu.Lock()
	if mp.cmd == nil || mp.shutdown != nil {
		mp.mu.Unlock()
		return
	}
	pid := mp.pid
	attempt := mp.attempt
	state, sig := proc.Begin(s.shutdownCfg, initial, time.Now())
	mp.shutdown = &state
	mp.mu.Unlock()

	s.dispatchSignal(id, attempt, pid, sig)
}

// BeginShutdownAll starts shutdown for every child with a live handle, in
// construction order, all with the same initial signal.
func (s *Supervisor) BeginShutdownAll(initial event.Signal) {
	for _, name := range s.specNames() {
		mp := s.lookup(name)
		if mp == nil {
			continue
		}
		s.beginShutdown(name, mp, initial)
	}
}

// ShutdownAll is the synchronous, exhaustive teardown used on process exit:
// it begins shutdown for every running child and polls until none remain.
func (s *Supervisor) ShutdownAll(ctx context.Context, initial event.Signal) {
	s.BeginShutdownAll(initial)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		if !s.AnyRunning() {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.PollExits(ctx)
		}
	}
}

// AnyRunning reports whether any managed process currently has a live
// handle, used by the event-loop host to decide when a shutdown is complete.
func (s *Supervisor) AnyRunning() bool {
	for _, name := range s.specNames() {
		mp := s.lookup(name)
		if mp != nil && mp.isRunning() {
			return true
		}
	}
	return false
}

func (s *Supervisor) dispatchSignal(id string, attempt uint64, pid int, sig *event.Signal) {
	if sig == nil {
		return
	}
	if err := s.signaler.Signal(pid, *sig); err != nil {
		return
	}
	s.emit(event.SignalSent{ID: id, Attempt: attempt, Signal: *sig})
}
