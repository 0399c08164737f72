// Package host implements the event-loop policies layered on top of the
// supervisor: restart-on-failure backoff, success/kill-others policies,
// OS signal handling, stdin forwarding, and wiring the file watcher's
// restart requests back into the supervisor.
package host

import (
	"bufio"
	"context"
	"errors"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/piperack/piperack/internal/piperack/event"
	"github.com/piperack/piperack/internal/piperack/spec"
	"github.com/piperack/piperack/internal/piperack/supervisor"
	"github.com/piperack/piperack/internal/piperack/watch"
)

const pollInterval = 50 * time.Millisecond

// Sink receives every event the host observes, in order: supervisor
// events plus the host's own Shutdown/Stdin events. A TUI or line-oriented
// printer is the typical consumer.
type Sink interface {
	Handle(event.Event)
}

// SinkFunc adapts a plain function to Sink.
type SinkFunc func(event.Event)

func (f SinkFunc) Handle(e event.Event) { f(e) }

// Host runs one supervised session to completion and reports whether the
// overall run should be considered successful.
type Host struct {
	sup      *supervisor.Supervisor
	settings spec.RunSettings
	specs    map[string]spec.ProcessSpec
	order    []string

	restarts map[string]*restartState
	exits    *exitState

	// shutdownInProgress and shutdownCh are touched from both the event
	// loop goroutine and whatever goroutine calls RequestShutdown (the
	// TUI runs its own Update loop), so the flag is atomic and the
	// channel is closed at most once via CompareAndSwap.
	shutdownInProgress atomic.Bool
	shutdownInitial    event.Signal
	shutdownCh         chan struct{}
}

// New builds a host bound to an already-constructed supervisor.
func New(sup *supervisor.Supervisor, specs []spec.ProcessSpec, settings spec.RunSettings) *Host {
	byName := make(map[string]spec.ProcessSpec, len(specs))
	order := make([]string, 0, len(specs))
	for _, sp := range specs {
		byName[sp.Name] = sp
		order = append(order, sp.Name)
	}
	return &Host{
		sup:        sup,
		settings:   settings,
		specs:      byName,
		order:      order,
		restarts:   make(map[string]*restartState),
		exits:      newExitState(order),
		shutdownCh: make(chan struct{}),
	}
}

// RequestShutdown begins a shutdown the way an exit-policy decision or an OS
// signal would, so callers outside the event loop (e.g. the TUI's quit key)
// go through the same shutdownInProgress bookkeeping instead of only telling
// the supervisor, which would leave maybeRestart free to respawn a process
// the caller just asked to stop.
func (h *Host) RequestShutdown(sig event.Signal) {
	h.beginShutdownAll(sig)
}

// Run drives the event loop until every process has exited under the
// configured success policy, or an external shutdown signal arrives. It
// returns an error if the run's outcome should be treated as a failure.
func (h *Host) Run(ctx context.Context, sink Sink) error {
	specList := make([]spec.ProcessSpec, 0, len(h.order))
	for _, name := range h.order {
		specList = append(specList, h.specs[name])
	}

	watchRestarts := make(chan event.Event, 16)
	watch.Spawn(specList, watchRestarts)

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var stdinCh chan []byte
	if h.settings.HandleInput {
		stdinCh = make(chan []byte, 16)
		go readStdin(stdinCh)
	}

	h.sup.StartAll(ctx)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var result error
	quit := false

	for !quit {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case sig := <-sigCh:
			s := event.SigInt
			if sig == syscall.SIGTERM {
				s = event.SigTerm
			}
			sink.Handle(event.Shutdown{Signal: s})
			h.beginShutdownAll(s)

		case raw := <-stdinCh:
			sink.Handle(event.Stdin{Bytes: raw})
			h.sup.SendInputBytesToAll(raw)

		case e := <-watchRestarts:
			if r, ok := e.(event.Restart); ok {
				if !h.shutdownInProgress.Load() {
					h.sup.Restart(ctx, r.ID)
				}
				continue
			}
			// Not a restart request: a watcher setup error, which the
			// caller expects surfaced to the sink rather than dropped.
			sink.Handle(e)

		case e, ok := <-h.sup.Events():
			if !ok {
				quit = true
				break
			}
			sink.Handle(e)
			h.handle(ctx, e, &result, &quit)

		case <-ticker.C:
			h.sup.PollExits(ctx)
		}
	}

	return result
}

func (h *Host) beginShutdownAll(initial event.Signal) {
	if !h.shutdownInProgress.CompareAndSwap(false, true) {
		return
	}
	h.shutdownInitial = initial
	close(h.shutdownCh)
	h.sup.BeginShutdownAll(initial)
}

func (h *Host) handle(ctx context.Context, e event.Event, result *error, quit *bool) {
	switch ev := e.(type) {
	case event.Ready:
		h.sup.MarkReady(ctx, ev.ID)

	case event.Exited:
		h.onExit(ctx, ev.ID, ev.Code, result)

	case event.Failed:
		h.onExit(ctx, ev.ID, nil, result)
	}

	if h.shutdownInProgress.Load() && !h.sup.AnyRunning() {
		*quit = true
	}
}

func (h *Host) onExit(ctx context.Context, id string, code *int, result *error) {
	if h.shutdownInProgress.Load() {
		return
	}

	h.exits.record(id, code)

	h.maybeRestart(ctx, id, code)

	failed := code == nil || *code != 0

	if h.settings.KillOthers || (h.settings.KillOthersOnFail && failed) {
		h.beginShutdownAll(event.SigInt)
		return
	}

	switch h.settings.Success {
	case spec.SuccessFirst:
		if !failed {
			h.beginShutdownAll(event.SigInt)
		}
	case spec.SuccessAll:
		if h.exits.allExited() {
			if h.exits.anyFailed() {
				*result = errors.New("one or more processes failed")
			}
			h.beginShutdownAll(event.SigInt)
		}
	default: // SuccessLast
		if h.exits.allExited() {
			if h.exits.lastCode == nil || *h.exits.lastCode != 0 {
				*result = errors.New("last process failed")
			}
			h.beginShutdownAll(event.SigInt)
		}
	}
}

// maybeRestart schedules a backoff-delayed restart for a failed process
// with RestartOnFail set, honoring RestartTries and RestartDelay. Scheduling
// a restart never suppresses the kill-others/success policy evaluation for
// this exit; the caller runs both unconditionally, matching how a restarted
// process can still trigger kill-others-on-fail on the exit that preceded it.
func (h *Host) maybeRestart(ctx context.Context, id string, code *int) bool {
	sp, ok := h.specs[id]
	if !ok || !sp.RestartOnFail {
		return false
	}
	failed := code == nil || *code != 0
	if !failed {
		delete(h.restarts, id)
		return false
	}

	rs, ok := h.restarts[id]
	if !ok {
		rs = newRestartState()
		h.restarts[id] = rs
	}

	delay, attempt := rs.next()
	if h.settings.RestartDelay > 0 {
		delay = h.settings.RestartDelay
	}
	if h.settings.RestartTries != nil && attempt > *h.settings.RestartTries {
		return false
	}

	go func() {
		select {
		case <-ctx.Done():
		case <-h.shutdownCh:
		case <-time.After(delay):
			h.sup.Restart(ctx, id)
		}
	}()
	return true
}

func readStdin(out chan<- []byte) {
	reader := bufio.NewReader(os.Stdin)
	buf := make([]byte, 1024)
	for {
		n, err := reader.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			out <- chunk
		}
		if err != nil {
			return
		}
	}
}
