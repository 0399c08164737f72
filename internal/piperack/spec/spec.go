// Package spec defines the immutable description of a supervised process
// and the run-wide settings that govern the supervisor's policies.
package spec

import (
	"fmt"
	"time"
)

// ReadyKind selects which readiness probe a process uses.
type ReadyKind int

const (
	// ReadyImmediate reports ready as soon as the process has started.
	ReadyImmediate ReadyKind = iota
	// ReadyTCP reports ready once a loopback TCP connect succeeds.
	ReadyTCP
	// ReadyDelay reports ready after a fixed delay.
	ReadyDelay
	// ReadyLog reports ready once a line from the process matches a regex.
	ReadyLog
)

func (k ReadyKind) String() string {
	switch k {
	case ReadyTCP:
		return "tcp"
	case ReadyDelay:
		return "delay"
	case ReadyLog:
		return "log"
	default:
		return "immediate"
	}
}

// ReadyCheck is a tagged union over the four readiness strategies.
type ReadyCheck struct {
	Kind  ReadyKind
	Port  int           // ReadyTCP
	Delay time.Duration // ReadyDelay
	Regex string        // ReadyLog
}

// Watch describes the filesystem watch configuration for one process.
type Watch struct {
	Paths                []string
	Ignore               []string
	IgnoreGitignore      bool
	Debounce             time.Duration
}

// Enabled reports whether this spec has anything to watch.
func (w Watch) Enabled() bool {
	return len(w.Paths) > 0
}

// ProcessSpec is the immutable description of one supervised child.
// Specs are constructed once at startup and never mutated afterward.
type ProcessSpec struct {
	Name          string
	Cmd           string
	Args          []string
	Cwd           string
	Env           map[string]string
	PreCmd        string
	RestartOnFail bool
	Ready         ReadyCheck
	DependsOn     []string
	Watch         Watch
	Tags          []string

	// UI-only hints; the supervisor never reads these.
	Color  string
	Follow bool
}

// SuccessPolicy controls how the event-loop host decides overall success.
type SuccessPolicy int

const (
	SuccessFirst SuccessPolicy = iota
	SuccessLast
	SuccessAll
)

// ParseSuccessPolicy parses the "first"/"last"/"all" configuration value.
func ParseSuccessPolicy(value string) (SuccessPolicy, error) {
	switch value {
	case "", "last":
		return SuccessLast, nil
	case "first":
		return SuccessFirst, nil
	case "all":
		return SuccessAll, nil
	default:
		return 0, fmt.Errorf("invalid success policy: %q", value)
	}
}

func (p SuccessPolicy) String() string {
	switch p {
	case SuccessFirst:
		return "first"
	case SuccessAll:
		return "all"
	default:
		return "last"
	}
}

// OutputMode controls non-TUI output formatting; purely a UI hint here.
type OutputMode int

const (
	OutputGrouped OutputMode = iota
	OutputCombined
	OutputRaw
)

// ParseOutputMode parses the "combined"/"grouped"/"raw" configuration value.
func ParseOutputMode(value string) (OutputMode, error) {
	switch value {
	case "", "grouped":
		return OutputGrouped, nil
	case "combined":
		return OutputCombined, nil
	case "raw":
		return OutputRaw, nil
	default:
		return 0, fmt.Errorf("invalid output mode: %q", value)
	}
}

// RunSettings is the immutable, run-wide policy configuration produced by
// the configuration/CLI layer.
type RunSettings struct {
	MaxLines     int
	Symbols      bool
	Raw          bool
	Prefix       string
	PrefixLength int
	PrefixColors bool
	Timestamp    bool
	Output       OutputMode
	Success      SuccessPolicy

	KillOthers       bool
	KillOthersOnFail bool

	// RestartTries is the maximum number of restart attempts for a spec
	// with RestartOnFail set. Nil means unbounded.
	RestartTries *int
	// RestartDelay, if non-zero, is used verbatim instead of the
	// exponential backoff schedule.
	RestartDelay time.Duration

	ShutdownSigIntMs  int
	ShutdownSigTermMs int

	HandleInput bool
	LogFile     string

	// NoUI disables the TUI in favor of line-oriented stdout output.
	NoUI bool
}

// DefaultRunSettings returns the documented defaults.
func DefaultRunSettings() RunSettings {
	return RunSettings{
		Symbols:           true,
		Success:           SuccessLast,
		ShutdownSigIntMs:  800,
		ShutdownSigTermMs: 800,
		HandleInput:       true,
	}
}

// Validate checks spec-set invariants that must hold before a supervisor
// can be constructed: names must be unique.
func Validate(specs []ProcessSpec) error {
	seen := make(map[string]struct{}, len(specs))
	for _, s := range specs {
		if s.Name == "" {
			return fmt.Errorf("process spec has empty name")
		}
		if _, dup := seen[s.Name]; dup {
			return fmt.Errorf("duplicate process name: %q", s.Name)
		}
		seen[s.Name] = struct{}{}
	}
	return nil
}
