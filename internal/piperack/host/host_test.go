package host

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piperack/piperack/internal/piperack/event"
	"github.com/piperack/piperack/internal/piperack/spec"
	"github.com/piperack/piperack/internal/piperack/supervisor"
)

func intPtr(i int) *int { return &i }

// canceledCtx returns an already-done context, so a maybeRestart call's
// background goroutine takes the ctx.Done() branch immediately instead of
// firing a real restart after its backoff delay elapses past test teardown.
func canceledCtx() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

func newTestHost(t *testing.T, specs []spec.ProcessSpec, settings spec.RunSettings) *Host {
	t.Helper()
	sup, err := supervisor.New(specs, 50, 50)
	require.NoError(t, err)
	t.Cleanup(sup.Close)
	return New(sup, specs, settings)
}

func TestOnExitKillOthersOnFailAlwaysEvaluatesEvenWhenRestartScheduled(t *testing.T) {
	specs := []spec.ProcessSpec{
		{Name: "flaky", RestartOnFail: true},
		{Name: "other"},
	}
	settings := spec.DefaultRunSettings()
	settings.KillOthersOnFail = true

	h := newTestHost(t, specs, settings)

	var result error
	h.onExit(canceledCtx(), "flaky", intPtr(1), &result)

	assert.Contains(t, h.restarts, "flaky", "a restart must still be scheduled for the failed process")
	assert.True(t, h.shutdownInProgress.Load(), "kill-others-on-fail must fire even though a restart was scheduled")
}

func TestOnExitRestartOnFailWithoutKillOthersDoesNotShutDown(t *testing.T) {
	specs := []spec.ProcessSpec{
		{Name: "flaky", RestartOnFail: true},
	}
	settings := spec.DefaultRunSettings()

	h := newTestHost(t, specs, settings)

	var result error
	h.onExit(canceledCtx(), "flaky", intPtr(1), &result)

	assert.Contains(t, h.restarts, "flaky")
	assert.False(t, h.shutdownInProgress.Load())
}

func TestSuccessPolicyFirstEndsRunOnFirstCleanExit(t *testing.T) {
	specs := []spec.ProcessSpec{{Name: "a"}, {Name: "b"}}
	settings := spec.DefaultRunSettings()
	settings.Success = spec.SuccessFirst

	h := newTestHost(t, specs, settings)

	var result error
	h.onExit(canceledCtx(), "a", intPtr(0), &result)

	assert.NoError(t, result)
	assert.True(t, h.shutdownInProgress.Load())
}

func TestSuccessPolicyAllWaitsForEveryExit(t *testing.T) {
	specs := []spec.ProcessSpec{{Name: "a"}, {Name: "b"}}
	settings := spec.DefaultRunSettings()
	settings.Success = spec.SuccessAll

	h := newTestHost(t, specs, settings)

	var result error
	h.onExit(canceledCtx(), "a", intPtr(0), &result)
	assert.NoError(t, result)
	assert.False(t, h.shutdownInProgress.Load(), "must wait for b before deciding success")

	h.onExit(canceledCtx(), "b", intPtr(1), &result)
	assert.Error(t, result, "any failure under SuccessAll fails the run")
	assert.True(t, h.shutdownInProgress.Load())
}

func TestSuccessPolicyLastUsesFinalExitCode(t *testing.T) {
	specs := []spec.ProcessSpec{{Name: "a"}, {Name: "b"}}
	settings := spec.DefaultRunSettings()
	settings.Success = spec.SuccessLast

	h := newTestHost(t, specs, settings)

	var result error
	h.onExit(canceledCtx(), "a", intPtr(1), &result)
	assert.NoError(t, result, "only the last exit's code should decide the outcome")

	h.onExit(canceledCtx(), "b", intPtr(0), &result)
	assert.NoError(t, result)
	assert.True(t, h.shutdownInProgress.Load())
}

func TestMaybeRestartRespectsRestartTries(t *testing.T) {
	specs := []spec.ProcessSpec{{Name: "flaky", RestartOnFail: true}}
	settings := spec.DefaultRunSettings()
	settings.RestartTries = intPtr(1)
	settings.RestartDelay = 0

	h := newTestHost(t, specs, settings)

	scheduled := h.maybeRestart(canceledCtx(), "flaky", intPtr(1))
	assert.True(t, scheduled, "first attempt is within restart_tries")

	scheduled = h.maybeRestart(canceledCtx(), "flaky", intPtr(1))
	assert.False(t, scheduled, "second attempt exceeds restart_tries=1")
}

func TestMaybeRestartResetsOnCleanExit(t *testing.T) {
	specs := []spec.ProcessSpec{{Name: "flaky", RestartOnFail: true}}
	settings := spec.DefaultRunSettings()

	h := newTestHost(t, specs, settings)

	h.maybeRestart(canceledCtx(), "flaky", intPtr(1))
	require.Contains(t, h.restarts, "flaky")

	scheduled := h.maybeRestart(canceledCtx(), "flaky", intPtr(0))
	assert.False(t, scheduled)
	assert.NotContains(t, h.restarts, "flaky", "a clean exit clears backoff state")
}

func TestMaybeRestartIgnoresSpecsWithoutRestartOnFail(t *testing.T) {
	specs := []spec.ProcessSpec{{Name: "plain"}}
	settings := spec.DefaultRunSettings()

	h := newTestHost(t, specs, settings)

	scheduled := h.maybeRestart(canceledCtx(), "plain", intPtr(1))
	assert.False(t, scheduled)
}

func TestRequestShutdownCancelsPendingRestart(t *testing.T) {
	specs := []spec.ProcessSpec{
		{Name: "flaky", Cmd: "sh", Args: []string{"-c", "sleep 30"}, RestartOnFail: true},
	}
	settings := spec.DefaultRunSettings()
	settings.RestartDelay = 30 * time.Millisecond

	h := newTestHost(t, specs, settings)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduled := h.maybeRestart(ctx, "flaky", intPtr(1))
	require.True(t, scheduled)

	h.RequestShutdown(event.SigInt)

	time.Sleep(100 * time.Millisecond)
	assert.False(t, h.sup.AnyRunning(), "a shutdown decided before the backoff elapsed must cancel the pending restart")
}
