package supervisor

import (
	"context"

	"github.com/piperack/piperack/internal/piperack/event"
)

// StartAll runs the dependency-gated scheduler to a fixed point: every
// spec whose dependencies are all ready gets spawned, possibly in chained
// waves within this single call.
func (s *Supervisor) StartAll(ctx context.Context) {
	s.updateScheduler(ctx)
}

// MarkReady is the consumer-facing operation that unblocks dependents:
// callers invoke it after observing a Ready event for id.
func (s *Supervisor) MarkReady(ctx context.Context, id string) {
	mp := s.lookup(id)
	if mp == nil {
		return
	}
	mp.mu.Lock()
	mp.ready = true
	mp.mu.Unlock()
	s.updateScheduler(ctx)
}

// updateScheduler implements the fixed-point algorithm: loop over
// every not-yet-started spec, compute its missing dependency set, and
// either spawn it (if empty) or report/update Waiting. Repeat until a
// pass makes no further progress, so a chain of Immediate-ready specs
// resolves within one call.
func (s *Supervisor) updateScheduler(ctx context.Context) {
	for {
		changed := false
		for _, name := range s.specNames() {
			mp := s.lookup(name)
			if mp == nil {
				continue
			}

			mp.mu.Lock()
			if mp.started {
				mp.mu.Unlock()
				continue
			}
			deps := mp.spec.DependsOn
			mp.mu.Unlock()

			missing := s.missingDeps(deps)

			if len(missing) == 0 {
				s.spawn(ctx, name, mp)
				changed = true
				continue
			}

			mp.mu.Lock()
			if !stringSliceEqual(mp.waitingOn, missing) {
				mp.waitingOn = missing
				mp.mu.Unlock()
				s.emit(event.Waiting{ID: name, MissingDeps: missing})
				continue
			}
			mp.mu.Unlock()
		}
		if !changed {
			return
		}
	}
}

// missingDeps returns the subset of deps whose managed record is not
// ready, or that do not exist at all — both cases (self-dependency,
// cycle, unknown name) perpetually block.
func (s *Supervisor) missingDeps(deps []string) []string {
	var missing []string
	for _, dep := range deps {
		mp := s.lookup(dep)
		if mp == nil || !mp.isReady() {
			missing = append(missing, dep)
		}
	}
	return missing
}

func stringSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
