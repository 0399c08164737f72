package supervisor

import (
	"context"
	"time"

	"github.com/piperack/piperack/internal/piperack/event"
)

// Restart tears a running child down gracefully and respawns it immediately,
// bypassing the scheduler's dependency gating: a restart is an explicit
// request about one already-started spec, not a fresh launch.
// It blocks until the old instance has been reaped (escalating through the
// shutdown stages to a forced kill if needed) or ctx ends, so the caller can
// rely on the new attempt's PID being current by the time Restart returns.
func (s *Supervisor) Restart(ctx context.Context, id string) {
	mp := s.lookup(id)
	if mp == nil {
		return
	}

	if mp.isRunning() {
		s.beginShutdown(id, mp, event.SigInt)
		s.drainShutdown(ctx, id, mp)
	}

	mp.mu.Lock()
	mp.started = false
	mp.mu.Unlock()

	s.spawn(ctx, id, mp)
}

// drainShutdown polls id until its handle clears or the context ends,
// giving the escalation machine room to run its full course.
func (s *Supervisor) drainShutdown(ctx context.Context, id string, mp *managedProcess) {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for mp.isRunning() {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.pollOne(id, mp)
		}
	}
}
