package proc

import (
	"time"

	"github.com/piperack/piperack/internal/piperack/event"
)

// Stage is one of the three shutdown escalation stages.
type Stage int

const (
	StageSigInt Stage = iota
	StageSigTerm
	StageKill
)

// Config carries the two escalation timeouts. A zero value disables that
// stage entirely.
type Config struct {
	SigIntMs  int
	SigTermMs int
}

func (c Config) sigIntEnabled() bool  { return c.SigIntMs > 0 }
func (c Config) sigTermEnabled() bool { return c.SigTermMs > 0 }

func (c Config) sigIntTimeout() time.Duration  { return time.Duration(c.SigIntMs) * time.Millisecond }
func (c Config) sigTermTimeout() time.Duration { return time.Duration(c.SigTermMs) * time.Millisecond }

// State is the per-child escalation state, present only while a shutdown
// is in progress.
type State struct {
	Stage    Stage
	Deadline time.Time
}

// Begin computes the initial escalation stage for a begin-shutdown call.
// It returns the new state and the signal to dispatch immediately (nil if
// the state starts at StageKill,
// meaning both stages are disabled and the caller should force-terminate
// without sending a signal first).
func Begin(cfg Config, initial event.Signal, now time.Time) (State, *event.Signal) {
	switch initial {
	case event.SigInt:
		if cfg.sigIntEnabled() {
			sig := event.SigInt
			return State{Stage: StageSigInt, Deadline: now.Add(cfg.sigIntTimeout())}, &sig
		}
		if cfg.sigTermEnabled() {
			sig := event.SigTerm
			return State{Stage: StageSigTerm, Deadline: now.Add(cfg.sigTermTimeout())}, &sig
		}
	case event.SigTerm:
		if cfg.sigTermEnabled() {
			sig := event.SigTerm
			return State{Stage: StageSigTerm, Deadline: now.Add(cfg.sigTermTimeout())}, &sig
		}
		if cfg.sigIntEnabled() {
			sig := event.SigInt
			return State{Stage: StageSigInt, Deadline: now.Add(cfg.sigIntTimeout())}, &sig
		}
	}
	return State{Stage: StageKill, Deadline: now}, nil
}

// Advance is called on every poll tick for a child with an in-progress
// shutdown. If the deadline has not yet passed, it returns the state
// unchanged with escalate=false and kill=false, and the caller should do
// nothing. Otherwise it returns the next state (escalate)
// and the signal to send, or escalate=false + kill=true once the final
// stage has elapsed, meaning the caller should force-terminate the child.
func Advance(cfg Config, state State, now time.Time) (next State, signal *event.Signal, escalate bool, kill bool) {
	if now.Before(state.Deadline) {
		return state, nil, false, false
	}
	switch state.Stage {
	case StageSigInt:
		if cfg.sigTermEnabled() {
			sig := event.SigTerm
			return State{Stage: StageSigTerm, Deadline: now.Add(cfg.sigTermTimeout())}, &sig, true, false
		}
		return State{Stage: StageKill}, nil, false, true
	case StageSigTerm:
		return State{Stage: StageKill}, nil, false, true
	default:
		return State{Stage: StageKill}, nil, false, true
	}
}
