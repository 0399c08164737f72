package supervisor

import (
	"context"
	"net"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piperack/piperack/internal/piperack/event"
	"github.com/piperack/piperack/internal/piperack/spec"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("spawns sh -c, unix-only")
	}
}

// collectUntil drains sup.Events() until pred returns true for some event,
// or the deadline elapses, returning every event observed along the way.
func collectUntil(t *testing.T, sup *Supervisor, timeout time.Duration, pred func(event.Event) bool) []event.Event {
	t.Helper()
	var got []event.Event
	deadline := time.After(timeout)
	for {
		select {
		case e := <-sup.Events():
			got = append(got, e)
			if pred(e) {
				return got
			}
		case <-deadline:
			t.Fatalf("timed out waiting for event; saw %d events: %+v", len(got), got)
			return nil
		}
	}
}

func hasEventFor(events []event.Event, id string, match func(event.Event) bool) bool {
	for _, e := range events {
		if match(e) {
			switch ev := e.(type) {
			case event.Starting:
				if ev.ID == id {
					return true
				}
			case event.Started:
				if ev.ID == id {
					return true
				}
			case event.Waiting:
				if ev.ID == id {
					return true
				}
			case event.Ready:
				if ev.ID == id {
					return true
				}
			}
		}
	}
	return false
}

func TestStartAllGatesOnDependencies(t *testing.T) {
	skipOnWindows(t)

	specs := []spec.ProcessSpec{
		{Name: "b", Cmd: "sh", Args: []string{"-c", "sleep 1"}, Ready: spec.ReadyCheck{Kind: spec.ReadyDelay, Delay: 20 * time.Millisecond}},
		{Name: "a", Cmd: "sh", Args: []string{"-c", "sleep 1"}, DependsOn: []string{"b"}},
	}
	sup, err := New(specs, 100, 100)
	require.NoError(t, err)

	ctx := context.Background()
	sup.StartAll(ctx)

	events := collectUntil(t, sup, 2*time.Second, func(e event.Event) bool {
		_, ok := e.(event.Waiting)
		return ok
	})
	assert.True(t, hasEventFor(events, "b", func(event.Event) bool { return true }))
	assert.False(t, hasEventFor(events, "a", func(e event.Event) bool {
		_, ok := e.(event.Started)
		return ok
	}), "a must not start before its dependency is ready")

	events = collectUntil(t, sup, 2*time.Second, func(e event.Event) bool {
		ev, ok := e.(event.Ready)
		return ok && ev.ID == "b"
	})
	sup.MarkReady(ctx, "b")

	events = collectUntil(t, sup, 2*time.Second, func(e event.Event) bool {
		ev, ok := e.(event.Started)
		return ok && ev.ID == "a"
	})
	assert.True(t, hasEventFor(events, "a", func(e event.Event) bool {
		_, ok := e.(event.Started)
		return ok
	}))
}

func TestShutdownEscalationTerminatesWithinDeadline(t *testing.T) {
	skipOnWindows(t)

	specs := []spec.ProcessSpec{
		{Name: "long", Cmd: "sh", Args: []string{"-c", "sleep 30"}},
	}
	sup, err := New(specs, 50, 50)
	require.NoError(t, err)

	ctx := context.Background()
	sup.StartAll(ctx)
	collectUntil(t, sup, time.Second, func(e event.Event) bool {
		_, ok := e.(event.Started)
		return ok
	})

	sup.BeginShutdownAll(event.SigInt)

	deadline := time.After(2 * time.Second)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for sup.AnyRunning() {
		select {
		case <-ticker.C:
			sup.PollExits(ctx)
		case <-deadline:
			t.Fatal("shutdown did not terminate the child within the escalation deadline")
		}
	}
}

func TestTCPReadinessFiresOnceListenerAccepts(t *testing.T) {
	skipOnWindows(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	specs := []spec.ProcessSpec{
		{Name: "srv", Cmd: "sh", Args: []string{"-c", "sleep 1"}, Ready: spec.ReadyCheck{Kind: spec.ReadyTCP, Port: port}},
	}
	sup, err := New(specs, 100, 100)
	require.NoError(t, err)

	ctx := context.Background()
	sup.StartAll(ctx)

	events := collectUntil(t, sup, 2*time.Second, func(e event.Event) bool {
		ev, ok := e.(event.Ready)
		return ok && ev.ID == "srv"
	})
	assert.True(t, hasEventFor(events, "srv", func(e event.Event) bool {
		_, ok := e.(event.Ready)
		return ok
	}))
}

func TestRestartRespawnsWithNewAttempt(t *testing.T) {
	skipOnWindows(t)

	specs := []spec.ProcessSpec{
		{Name: "worker", Cmd: "sh", Args: []string{"-c", "sleep 30"}},
	}
	sup, err := New(specs, 50, 50)
	require.NoError(t, err)

	ctx := context.Background()
	sup.StartAll(ctx)
	started := collectUntil(t, sup, time.Second, func(e event.Event) bool {
		_, ok := e.(event.Started)
		return ok
	})
	firstPID := 0
	for _, e := range started {
		if ev, ok := e.(event.Started); ok {
			firstPID = ev.PID
		}
	}
	require.NotZero(t, firstPID)

	sup.Restart(ctx, "worker")

	restarted := collectUntil(t, sup, 2*time.Second, func(e event.Event) bool {
		_, ok := e.(event.Started)
		return ok
	})
	var secondPID int
	for _, e := range restarted {
		if ev, ok := e.(event.Started); ok {
			secondPID = ev.PID
		}
	}
	assert.NotEqual(t, firstPID, secondPID)
}

func TestCloseKillsRunningChildren(t *testing.T) {
	skipOnWindows(t)

	specs := []spec.ProcessSpec{
		{Name: "long", Cmd: "sh", Args: []string{"-c", "sleep 30"}},
	}
	sup, err := New(specs, 800, 800)
	require.NoError(t, err)

	ctx := context.Background()
	sup.StartAll(ctx)
	collectUntil(t, sup, time.Second, func(e event.Event) bool {
		_, ok := e.(event.Started)
		return ok
	})

	sup.Close()

	deadline := time.After(2 * time.Second)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for sup.AnyRunning() {
		select {
		case <-ticker.C:
			sup.PollExits(ctx)
		case <-deadline:
			t.Fatal("Close did not terminate the running child")
		}
	}
}
