package host

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// restartBackoffBase and friends reproduce the fixed escalation schedule
// 1s, 2s, 4s, 8s, 16s, 30s, 30s, ... when no explicit restart delay is
// configured.
const (
	restartBackoffBase = time.Second
	restartBackoffMax  = 30 * time.Second
)

// newRestartBackoff returns an exponential backoff with no jitter, doubling
// from 1s up to a 30s ceiling.
func newRestartBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = restartBackoffBase
	b.Multiplier = 2
	b.MaxInterval = restartBackoffMax
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0 // never stop offering a next interval
	return b
}

// restartState tracks the per-process backoff sequence and attempt count
// across consecutive failures; a successful exit resets it.
type restartState struct {
	backoff *backoff.ExponentialBackOff
	attempt int
}

func newRestartState() *restartState {
	return &restartState{backoff: newRestartBackoff()}
}

func (r *restartState) next() (time.Duration, int) {
	r.attempt++
	return r.backoff.NextBackOff(), r.attempt
}

func (r *restartState) reset() {
	r.backoff.Reset()
	r.attempt = 0
}
