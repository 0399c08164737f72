// Package supervisor implements the process-supervision engine: the
// facade, scheduler, spawner, stream readers, readiness probers, and
// shutdown state machine. It owns every child process and is the sole
// writer of the shared event channel; the event-loop host
// (internal/piperack/host) is the sole reader.
package supervisor

import (
	"context"
	"fmt"
	"sync"

	"github.com/piperack/piperack/internal/piperack/event"
	"github.com/piperack/piperack/internal/piperack/proc"
	"github.com/piperack/piperack/internal/piperack/spec"
)

// Supervisor owns the managed-process records for one run and routes every
// operation in its public contract to them.
type Supervisor struct {
	mu        sync.RWMutex
	order     []string // spec names in construction order, for stable iteration
	processes map[string]*managedProcess

	shutdownCfg proc.Config
	signaler    proc.Signaler

	events chan event.Event

	// lifeCtx bounds every spawned child's exec.Cmd. Canceling it (via
	// Close) kills every still-running child even if the caller never ran
	// a clean shutdown sequence first, e.g. after a panic in the host.
	lifeCtx    context.Context
	lifeCancel context.CancelFunc
}

// New validates the process specs for unique names and builds a
// supervisor ready to run. Construction is the only operation that can
// fail before the event channel exists.
func New(specs []spec.ProcessSpec, sigIntMs, sigTermMs int) (*Supervisor, error) {
	if err := spec.Validate(specs); err != nil {
		return nil, err
	}

	lifeCtx, lifeCancel := context.WithCancel(context.Background())

	s := &Supervisor{
		processes: make(map[string]*managedProcess, len(specs)),
		order:     make([]string, 0, len(specs)),
		shutdownCfg: proc.Config{
			SigIntMs:  sigIntMs,
			SigTermMs: sigTermMs,
		},
		signaler: proc.NewSignaler(),
		// Buffered generously: stream readers, probers, the watcher, and
		// the signal bridge all send concurrently and must never block
		// on a slow-draining consumer for long.
		events:     make(chan event.Event, 1024),
		lifeCtx:    lifeCtx,
		lifeCancel: lifeCancel,
	}

	for _, sp := range specs {
		mp, err := newManagedProcess(sp)
		if err != nil {
			return nil, fmt.Errorf("process %q: %w", sp.Name, err)
		}
		s.processes[sp.Name] = mp
		s.order = append(s.order, sp.Name)
	}

	return s, nil
}

// Events returns the single, totally-ordered event stream. The caller
// must drain it promptly.
func (s *Supervisor) Events() <-chan event.Event {
	return s.events
}

// Close kills every child still running under this supervisor's lifetime
// context. It is safe to call after a clean shutdown (a no-op, since
// nothing is left running) and is the defensive backstop for callers that
// exit without one, e.g. a panic unwinding through the host.
func (s *Supervisor) Close() {
	s.lifeCancel()
}

func (s *Supervisor) emit(e event.Event) {
	s.events <- e
}

// lookup returns the managed record for name, or nil if unknown.
func (s *Supervisor) lookup(name string) *managedProcess {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.processes[name]
}

// specNames returns the construction-order list of spec names.
func (s *Supervisor) specNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
