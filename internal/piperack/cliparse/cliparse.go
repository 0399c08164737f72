// Package cliparse implements piperack's command-line surface: the
// help/version/banner subcommands, global flag overrides, and the two CLI
// process-definition grammars (comma-separated --names shorthand and the
// repeatable --name ... -- cmd long form).
package cliparse

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-shellwords"
	"github.com/spf13/cobra"

	"github.com/piperack/piperack/internal/piperack/spec"
)

// Command identifies which top-level action was requested.
type Command int

const (
	CommandRun Command = iota
	CommandHelp
	CommandVersion
	CommandBanner
	CommandInspect
)

// Overrides carries CLI flag values that should take precedence over
// piperack.toml when both are present. Pointer fields distinguish "not
// given" from an explicit false/zero.
type Overrides struct {
	MaxLines         *int
	NoUI             bool
	Raw              *bool
	Prefix           *string
	PrefixLength     *int
	PrefixColors     *bool
	Timestamp        *bool
	Output           *string
	Success          *string
	KillOthers       *bool
	KillOthersOnFail *bool
	RestartTries     *int
	RestartDelayMs   *int
	ShutdownSigInt   *int
	ShutdownSigTerm  *int
	NoInput          bool
	LogFile          *string
}

// Result is everything the cliparse layer learned from argv.
type Result struct {
	Command    Command
	ConfigPath string
	NoConfig   bool
	Overrides  Overrides
	// CLISpecs holds process definitions built from --names or repeated
	// --name ... -- cmd, to be appended after any piperack.toml processes.
	CLISpecs []spec.ProcessSpec
	// InspectPID is set when Command is CommandInspect.
	InspectPID int
}

// Parse interprets argv (as in os.Args[1:]). The repeatable --name long
// form is handled outside cobra's flag parser: once "--name" appears, every
// remaining token is treated as process-definition grammar, mirroring how
// the original CLI's trailing-var-arg captures everything from the first
// unrecognized positional onward.
func Parse(argv []string) (Result, error) {
	nameIdx := -1
	for i, a := range argv {
		if a == "--name" {
			nameIdx = i
			break
		}
	}

	globalArgs := argv
	var trailing []string
	if nameIdx >= 0 {
		globalArgs = argv[:nameIdx]
		trailing = argv[nameIdx:]
	}

	var res Result
	var namesFlag string
	var cwdList, envList, colorList, preList []string
	var restartOnFailFlag bool

	root := &cobra.Command{
		Use:           "piperack [flags] [commands...]",
		Short:         "Concurrent command runner with a TUI",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if namesFlag != "" {
				specs, err := parseNamedCommands(namesFlag, args, cwdList, envList, colorList, preList, restartOnFailFlag)
				if err != nil {
					return err
				}
				res.CLISpecs = specs
			}
			return nil
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	var raw, prefixColors, timestamp, killOthers, killOthersOnFail, noUI, noInput, noConfig bool
	var output, success, prefix, logFile, configPath string
	var maxLines, prefixLength, restartTries int
	var restartDelayMs, shutdownSigIntMs, shutdownSigTermMs int

	flags := root.Flags()
	flags.StringVar(&configPath, "config", "", "path to piperack.toml")
	flags.BoolVar(&noConfig, "no-config", false, "ignore piperack.toml in the current directory")
	flags.IntVar(&maxLines, "max-lines", 0, "max log lines per process")
	flags.BoolVar(&noUI, "no-ui", false, "disable the TUI and print to stdout")
	flags.BoolVar(&raw, "raw", false, "disable prefixed output in non-TUI mode")
	flags.StringVar(&prefix, "prefix", "", `prefix template, e.g. "[{name}]"`)
	flags.IntVar(&prefixLength, "prefix-length", 0, "pad or truncate prefix to length")
	flags.BoolVar(&prefixColors, "prefix-colors", false, "colorize prefixes in non-TUI output")
	flags.BoolVar(&timestamp, "timestamp", false, "prepend timestamp to each line")
	flags.StringVar(&output, "output", "", "output mode: combined|grouped|raw")
	flags.StringVar(&success, "success", "", "success policy: first|last|all")
	flags.BoolVar(&killOthers, "kill-others", false, "stop other processes when any exits")
	flags.BoolVar(&killOthersOnFail, "kill-others-on-fail", false, "stop other processes when any exits with failure")
	flags.IntVar(&restartTries, "restart-tries", 0, "max restart attempts for restart_on_fail")
	flags.IntVar(&restartDelayMs, "restart-delay-ms", 0, "delay before restarting (ms)")
	flags.IntVar(&shutdownSigIntMs, "shutdown-sigint-ms", 0, "time to wait after SIGINT before escalating (ms)")
	flags.IntVar(&shutdownSigTermMs, "shutdown-sigterm-ms", 0, "time to wait after SIGTERM before force-killing (ms)")
	flags.BoolVar(&noInput, "no-input", false, "disable input forwarding")
	flags.StringVar(&logFile, "log-file", "", `log file template, e.g. "logs/{name}.log"`)
	flags.StringVar(&namesFlag, "names", "", "comma-separated process names (shorthand)")
	flags.StringArrayVar(&cwdList, "cwd", nil, "working directories aligned with --names commands")
	flags.StringArrayVar(&envList, "env", nil, "env entries: KEY=VAL or name:KEY=VAL")
	flags.StringArrayVar(&colorList, "color", nil, "colors aligned with --names commands")
	flags.StringArrayVar(&preList, "pre", nil, "pre-commands aligned with --names commands")
	flags.BoolVar(&restartOnFailFlag, "restart-on-fail", false, "restart CLI-defined processes on failure")

	root.AddCommand(
		&cobra.Command{Use: "help", Short: "Show help information", RunE: func(*cobra.Command, []string) error {
			res.Command = CommandHelp
			return nil
		}},
		&cobra.Command{Use: "version", Short: "Show version information", RunE: func(*cobra.Command, []string) error {
			res.Command = CommandVersion
			return nil
		}},
		&cobra.Command{Use: "banner", Short: "Print the ANSI banner", RunE: func(*cobra.Command, []string) error {
			res.Command = CommandBanner
			return nil
		}},
		&cobra.Command{
			Use:   "inspect <pid>",
			Short: "Print procfs diagnostics for a running child pid",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				pid, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid pid %q: %w", args[0], err)
				}
				res.Command = CommandInspect
				res.InspectPID = pid
				return nil
			},
		},
	)

	root.SetArgs(globalArgs)
	if err := root.Execute(); err != nil {
		return Result{}, err
	}

	res.ConfigPath = configPath
	res.NoConfig = noConfig

	if flags.Changed("max-lines") {
		res.Overrides.MaxLines = &maxLines
	}
	if flags.Changed("raw") {
		res.Overrides.Raw = &raw
	}
	if flags.Changed("prefix") {
		res.Overrides.Prefix = &prefix
	}
	if flags.Changed("prefix-length") {
		res.Overrides.PrefixLength = &prefixLength
	}
	if flags.Changed("prefix-colors") {
		res.Overrides.PrefixColors = &prefixColors
	}
	if flags.Changed("timestamp") {
		res.Overrides.Timestamp = &timestamp
	}
	if flags.Changed("output") {
		res.Overrides.Output = &output
	}
	if flags.Changed("success") {
		res.Overrides.Success = &success
	}
	if flags.Changed("kill-others") {
		res.Overrides.KillOthers = &killOthers
	}
	if flags.Changed("kill-others-on-fail") {
		res.Overrides.KillOthersOnFail = &killOthersOnFail
	}
	if flags.Changed("restart-tries") {
		res.Overrides.RestartTries = &restartTries
	}
	if flags.Changed("restart-delay-ms") {
		res.Overrides.RestartDelayMs = &restartDelayMs
	}
	if flags.Changed("shutdown-sigint-ms") {
		res.Overrides.ShutdownSigInt = &shutdownSigIntMs
	}
	if flags.Changed("shutdown-sigterm-ms") {
		res.Overrides.ShutdownSigTerm = &shutdownSigTermMs
	}
	if flags.Changed("log-file") {
		res.Overrides.LogFile = &logFile
	}
	res.Overrides.NoUI = noUI
	res.Overrides.NoInput = noInput

	if len(trailing) > 0 {
		specs, err := parseRepeatableLongForm(trailing, restartOnFailFlag)
		if err != nil {
			return Result{}, err
		}
		res.CLISpecs = append(res.CLISpecs, specs...)
	}

	return res, nil
}

func splitEnv(entry string) (string, string, error) {
	idx := strings.Index(entry, "=")
	if idx < 0 {
		return "", "", fmt.Errorf("invalid env entry %q, expected KEY=VALUE", entry)
	}
	return entry[:idx], entry[idx+1:], nil
}

func splitCmd(command string) (string, []string, error) {
	parser := shellwords.NewParser()
	parts, err := parser.Parse(command)
	if err != nil {
		return "", nil, err
	}
	if len(parts) == 0 {
		return "", nil, fmt.Errorf("empty command %q", command)
	}
	return parts[0], parts[1:], nil
}

// parseNamedCommands implements the comma-separated --names a,b,c shorthand:
// one trailing positional command per name, with --cwd/--color/--pre/--env
// arrays aligned by index (or "name:KEY=VAL" / "index:KEY=VAL" for env).
func parseNamedCommands(namesRaw string, commands, cwdList, envList, colorList, preList []string, restartOnFail bool) ([]spec.ProcessSpec, error) {
	var names []string
	for _, n := range strings.Split(namesRaw, ",") {
		n = strings.TrimSpace(n)
		if n != "" {
			names = append(names, n)
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("--names provided but no names parsed")
	}
	if len(commands) != len(names) {
		return nil, fmt.Errorf("expected %d commands for --names, got %d", len(names), len(commands))
	}

	envMaps := make([]map[string]string, len(names))
	for i := range envMaps {
		envMaps[i] = map[string]string{}
	}
	global := map[string]string{}
	for _, entry := range envList {
		if prefix, rest, ok := strings.Cut(entry, ":"); ok {
			if idx, err := strconv.Atoi(prefix); err == nil && idx >= 0 && idx < len(names) {
				k, v, err := splitEnv(rest)
				if err != nil {
					return nil, err
				}
				envMaps[idx][k] = v
				continue
			}
			if pos := indexOfString(names, prefix); pos >= 0 {
				k, v, err := splitEnv(rest)
				if err != nil {
					return nil, err
				}
				envMaps[pos][k] = v
				continue
			}
		}
		k, v, err := splitEnv(entry)
		if err != nil {
			return nil, err
		}
		global[k] = v
	}
	for _, m := range envMaps {
		for k, v := range global {
			m[k] = v
		}
	}

	specs := make([]spec.ProcessSpec, 0, len(names))
	for i, command := range commands {
		cmd, args, err := splitCmd(command)
		if err != nil {
			return nil, fmt.Errorf("command %q: %w", command, err)
		}
		sp := spec.ProcessSpec{
			Name:          names[i],
			Cmd:           cmd,
			Args:          args,
			Env:           envMaps[i],
			RestartOnFail: restartOnFail,
			Follow:        true,
		}
		if i < len(cwdList) {
			sp.Cwd = cwdList[i]
		}
		if i < len(colorList) {
			sp.Color = colorList[i]
		}
		if i < len(preList) {
			sp.PreCmd = preList[i]
		}
		specs = append(specs, sp)
	}
	return specs, nil
}

// parseRepeatableLongForm implements `--name N [options] -- cmd args...`
// repeated any number of times.
func parseRepeatableLongForm(args []string, defaultRestartOnFail bool) ([]spec.ProcessSpec, error) {
	var specs []spec.ProcessSpec
	i := 0
	for i < len(args) {
		if args[i] != "--name" {
			return nil, fmt.Errorf("expected --name, got %q", args[i])
		}
		i++
		if i >= len(args) {
			return nil, fmt.Errorf("missing name after --name")
		}
		name := args[i]
		i++

		var cwd, color, preCmd string
		env := map[string]string{}
		follow := true
		restartOnFail := defaultRestartOnFail
		var watchPaths, watchIgnore []string
		watchDebounce := 200 * time.Millisecond

		for i < len(args) && args[i] != "--" {
			switch args[i] {
			case "--cwd":
				i++
				if i >= len(args) {
					return nil, fmt.Errorf("missing value for --cwd")
				}
				cwd = args[i]
			case "--env":
				i++
				if i >= len(args) {
					return nil, fmt.Errorf("missing value for --env")
				}
				k, v, err := splitEnv(args[i])
				if err != nil {
					return nil, err
				}
				env[k] = v
			case "--color":
				i++
				if i >= len(args) {
					return nil, fmt.Errorf("missing value for --color")
				}
				color = args[i]
			case "--pre":
				i++
				if i >= len(args) {
					return nil, fmt.Errorf("missing value for --pre")
				}
				preCmd = args[i]
			case "--follow":
				follow = true
			case "--no-follow":
				follow = false
			case "--restart-on-fail":
				restartOnFail = true
			case "--no-restart-on-fail":
				restartOnFail = false
			case "--watch":
				i++
				if i >= len(args) {
					return nil, fmt.Errorf("missing value for --watch")
				}
				watchPaths = append(watchPaths, args[i])
			case "--watch-ignore":
				i++
				if i >= len(args) {
					return nil, fmt.Errorf("missing value for --watch-ignore")
				}
				watchIgnore = append(watchIgnore, args[i])
			case "--watch-debounce-ms":
				i++
				if i >= len(args) {
					return nil, fmt.Errorf("missing value for --watch-debounce-ms")
				}
				ms, err := strconv.Atoi(args[i])
				if err != nil {
					return nil, fmt.Errorf("invalid --watch-debounce-ms %q: %w", args[i], err)
				}
				watchDebounce = time.Duration(ms) * time.Millisecond
			default:
				return nil, fmt.Errorf("unrecognized option %q for process %q", args[i], name)
			}
			i++
		}
		if i >= len(args) || args[i] != "--" {
			return nil, fmt.Errorf("expected -- before command for process %q", name)
		}
		i++

		var cmdParts []string
		for i < len(args) && args[i] != "--name" {
			cmdParts = append(cmdParts, args[i])
			i++
		}
		if len(cmdParts) == 0 {
			return nil, fmt.Errorf("missing command for process %q", name)
		}

		specs = append(specs, spec.ProcessSpec{
			Name:          name,
			Cmd:           cmdParts[0],
			Args:          cmdParts[1:],
			Cwd:           cwd,
			Color:         color,
			Env:           env,
			PreCmd:        preCmd,
			Follow:        follow,
			RestartOnFail: restartOnFail,
			Watch: spec.Watch{
				Paths:    watchPaths,
				Ignore:   watchIgnore,
				Debounce: watchDebounce,
			},
		})
	}
	return specs, nil
}

func indexOfString(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
