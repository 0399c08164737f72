// Package config loads piperack.toml and merges it with CLI overrides into
// the immutable spec.ProcessSpec / spec.RunSettings the supervisor needs.
package config

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/piperack/piperack/internal/piperack/spec"
)

// fileConfig mirrors the top-level piperack.toml schema. Every field is
// optional so a config can override only what it needs to; zero values
// are distinguished from "absent" with pointers where that distinction
// matters for merging with CLI flags.
type fileConfig struct {
	MaxLines         *int    `toml:"max_lines"`
	Symbols          *bool   `toml:"symbols"`
	Raw              *bool   `toml:"raw"`
	Prefix           *string `toml:"prefix"`
	PrefixLength     *int    `toml:"prefix_length"`
	PrefixColors     *bool   `toml:"prefix_colors"`
	Timestamp        *bool   `toml:"timestamp"`
	Output           *string `toml:"output"`
	Success          *string `toml:"success"`
	KillOthers       *bool   `toml:"kill_others"`
	KillOthersOnFail *bool   `toml:"kill_others_on_fail"`
	RestartTries     *int    `toml:"restart_tries"`
	RestartDelayMs   *int    `toml:"restart_delay_ms"`
	HandleInput      *bool   `toml:"handle_input"`
	LogFile          *string `toml:"log_file"`
	ShutdownSigInt   *int    `toml:"shutdown_sigint_ms"`
	ShutdownSigTerm  *int    `toml:"shutdown_sigterm_ms"`
	NoUI             *bool   `toml:"no_ui"`

	Process []processConfig `toml:"process"`
}

type processConfig struct {
	Name                 string            `toml:"name"`
	Cmd                  string            `toml:"cmd"`
	Cwd                  *string           `toml:"cwd"`
	Color                *string           `toml:"color"`
	Env                  map[string]string `toml:"env"`
	RestartOnFail        *bool             `toml:"restart_on_fail"`
	Follow               *bool             `toml:"follow"`
	PreCmd               *string           `toml:"pre_cmd"`
	Watch                []string          `toml:"watch"`
	WatchIgnore          []string          `toml:"watch_ignore"`
	WatchIgnoreGitignore *bool             `toml:"watch_ignore_gitignore"`
	WatchDebounceMs      *int              `toml:"watch_debounce_ms"`
	DependsOn            []string          `toml:"depends_on"`
	ReadyCheck           toml.Primitive    `toml:"ready_check"`
	Tags                 []string          `toml:"tags"`
}

// Load reads and parses path into a (specs, settings) pair ready for
// spec.Validate and supervisor.New. Specs are sorted by (first tag, name)
// to give the TUI a stable, grouped default ordering.
func Load(path string) ([]spec.ProcessSpec, spec.RunSettings, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, spec.RunSettings{}, fmt.Errorf("read config %s: %w", path, err)
	}

	var fc fileConfig
	md, err := toml.Decode(string(raw), &fc)
	if err != nil {
		return nil, spec.RunSettings{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	settings, err := buildSettings(fc)
	if err != nil {
		return nil, spec.RunSettings{}, err
	}

	specs := make([]spec.ProcessSpec, 0, len(fc.Process))
	for _, pc := range fc.Process {
		sp, err := buildSpec(pc, md)
		if err != nil {
			return nil, spec.RunSettings{}, err
		}
		specs = append(specs, sp)
	}

	sortSpecs(specs)

	return specs, settings, nil
}

func buildSettings(fc fileConfig) (spec.RunSettings, error) {
	s := spec.DefaultRunSettings()

	if fc.MaxLines != nil {
		s.MaxLines = *fc.MaxLines
	}
	if fc.Symbols != nil {
		s.Symbols = *fc.Symbols
	}
	if fc.Raw != nil {
		s.Raw = *fc.Raw
	}
	if fc.Prefix != nil {
		s.Prefix = *fc.Prefix
	}
	if fc.PrefixLength != nil {
		s.PrefixLength = *fc.PrefixLength
	}
	if fc.PrefixColors != nil {
		s.PrefixColors = *fc.PrefixColors
	}
	if fc.Timestamp != nil {
		s.Timestamp = *fc.Timestamp
	}
	if fc.Output != nil {
		mode, err := spec.ParseOutputMode(*fc.Output)
		if err != nil {
			return s, err
		}
		s.Output = mode
	}
	if fc.Success != nil {
		policy, err := spec.ParseSuccessPolicy(*fc.Success)
		if err != nil {
			return s, err
		}
		s.Success = policy
	}
	if fc.KillOthers != nil {
		s.KillOthers = *fc.KillOthers
	}
	if fc.KillOthersOnFail != nil {
		s.KillOthersOnFail = *fc.KillOthersOnFail
	}
	if fc.RestartTries != nil {
		tries := *fc.RestartTries
		s.RestartTries = &tries
	}
	if fc.RestartDelayMs != nil {
		s.RestartDelay = time.Duration(*fc.RestartDelayMs) * time.Millisecond
	}
	if fc.HandleInput != nil {
		s.HandleInput = *fc.HandleInput
	}
	if fc.LogFile != nil {
		s.LogFile = *fc.LogFile
	}
	if fc.ShutdownSigInt != nil {
		s.ShutdownSigIntMs = *fc.ShutdownSigInt
	}
	if fc.ShutdownSigTerm != nil {
		s.ShutdownSigTermMs = *fc.ShutdownSigTerm
	}
	if fc.NoUI != nil {
		s.NoUI = *fc.NoUI
	}

	return s, nil
}

func buildSpec(pc processConfig, md toml.MetaData) (spec.ProcessSpec, error) {
	if pc.Name == "" {
		return spec.ProcessSpec{}, fmt.Errorf("process entry missing name")
	}
	if pc.Cmd == "" {
		return spec.ProcessSpec{}, fmt.Errorf("process %q missing cmd", pc.Name)
	}

	sp := spec.ProcessSpec{
		Name:      pc.Name,
		Cmd:       pc.Cmd,
		Env:       pc.Env,
		DependsOn: pc.DependsOn,
		Tags:      pc.Tags,
		Follow:    true,
	}

	if pc.Cwd != nil {
		sp.Cwd = *pc.Cwd
	}
	if pc.Color != nil {
		sp.Color = *pc.Color
	}
	if pc.RestartOnFail != nil {
		sp.RestartOnFail = *pc.RestartOnFail
	}
	if pc.Follow != nil {
		sp.Follow = *pc.Follow
	}
	if pc.PreCmd != nil {
		sp.PreCmd = *pc.PreCmd
	}

	sp.Watch = spec.Watch{
		Paths:           pc.Watch,
		Ignore:          pc.WatchIgnore,
		IgnoreGitignore: pc.WatchIgnoreGitignore != nil && *pc.WatchIgnoreGitignore,
		Debounce:        200 * time.Millisecond,
	}
	if pc.WatchDebounceMs != nil {
		sp.Watch.Debounce = time.Duration(*pc.WatchDebounceMs) * time.Millisecond
	}

	ready, err := decodeReadyCheck(pc, md)
	if err != nil {
		return spec.ProcessSpec{}, fmt.Errorf("process %q: %w", pc.Name, err)
	}
	sp.Ready = ready

	return sp, nil
}

// decodeReadyCheck resolves the ready_check inline table, whose shape
// (tcp = <port> | delay = <ms> | log = "<regex>") is a tagged union TOML
// has no native representation for. The field is decoded into a
// toml.Primitive up front; here it is decoded a second time into each
// candidate shape and the one whose key was actually present wins. An
// absent ready_check decodes to a Primitive with no matching keys, which
// falls through to ReadyImmediate.
func decodeReadyCheck(pc processConfig, md toml.MetaData) (spec.ReadyCheck, error) {
	var asTCP struct {
		TCP *int `toml:"tcp"`
	}
	if err := md.PrimitiveDecode(pc.ReadyCheck, &asTCP); err == nil && asTCP.TCP != nil {
		return spec.ReadyCheck{Kind: spec.ReadyTCP, Port: *asTCP.TCP}, nil
	}

	var asDelay struct {
		Delay *int `toml:"delay"`
	}
	if err := md.PrimitiveDecode(pc.ReadyCheck, &asDelay); err == nil && asDelay.Delay != nil {
		return spec.ReadyCheck{Kind: spec.ReadyDelay, Delay: time.Duration(*asDelay.Delay) * time.Millisecond}, nil
	}

	var asLog struct {
		Log *string `toml:"log"`
	}
	if err := md.PrimitiveDecode(pc.ReadyCheck, &asLog); err == nil && asLog.Log != nil {
		return spec.ReadyCheck{Kind: spec.ReadyLog, Regex: *asLog.Log}, nil
	}

	return spec.ReadyCheck{Kind: spec.ReadyImmediate}, nil
}

// sortSpecs orders by (first tag, name), giving processes without tags an
// empty-string group that sorts first.
func sortSpecs(specs []spec.ProcessSpec) {
	sort.SliceStable(specs, func(i, j int) bool {
		ti, tj := firstTag(specs[i]), firstTag(specs[j])
		if ti != tj {
			return ti < tj
		}
		return specs[i].Name < specs[j].Name
	})
}

func firstTag(sp spec.ProcessSpec) string {
	if len(sp.Tags) == 0 {
		return ""
	}
	return sp.Tags[0]
}
