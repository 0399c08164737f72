// Package proc isolates the platform-specific signal bridge and the
// pure shutdown-escalation state machine from the supervisor that drives
// them, so the escalation logic can be unit tested without spawning any
// real processes.
package proc

import "github.com/piperack/piperack/internal/piperack/event"

// Signaler delivers shutdown signals to a child process (or its process
// group, where the platform supports one) and force-terminates it.
//
// On Unix this targets the negative PID (the process group) so that
// grandchildren started by a shell wrapper also receive the signal. On
// Windows there is no signal equivalent; both SigInt and SigTerm collapse
// to a single console-break event.
type Signaler interface {
	Signal(pid int, sig event.Signal) error
	Kill(pid int) error
}
