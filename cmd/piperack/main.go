// Command piperack runs a set of processes concurrently, restarting,
// watching, and reporting on them as one supervised group.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/piperack/piperack/internal/piperack/cliparse"
	"github.com/piperack/piperack/internal/piperack/config"
	"github.com/piperack/piperack/internal/piperack/event"
	"github.com/piperack/piperack/internal/piperack/host"
	"github.com/piperack/piperack/internal/piperack/logging"
	"github.com/piperack/piperack/internal/piperack/procinfo"
	"github.com/piperack/piperack/internal/piperack/spec"
	"github.com/piperack/piperack/internal/piperack/supervisor"
	"github.com/piperack/piperack/internal/piperack/tui"
	"github.com/piperack/piperack/internal/piperack/update"
)

const version = "0.1.0"

const banner = `
 ____  ___ ____  _____ ____      _    ____ _  __
|  _ \|_ _|  _ \| ____|  _ \    / \  / ___| |/ /
| |_) || || |_) |  _| | |_) |  / _ \| |   | ' /
|  __/ | ||  __/| |___|  _ <  / ___ \ |___| . \
|_|   |___|_|   |_____|_| \_\/_/   \_\____|_|\_\
`

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "piperack:", err)
		os.Exit(1)
	}
}

func run() error {
	res, err := cliparse.Parse(os.Args[1:])
	if err != nil {
		return err
	}

	switch res.Command {
	case cliparse.CommandHelp:
		fmt.Println(banner)
		fmt.Println("Usage: piperack [flags]")
		fmt.Println("       piperack --names web,api \"pnpm dev\" \"cargo run\"")
		fmt.Println("       piperack --name web -- pnpm dev --name api -- cargo run")
		fmt.Println("       piperack inspect <pid>")
		return nil
	case cliparse.CommandVersion:
		fmt.Println("piperack", version)
		return nil
	case cliparse.CommandBanner:
		fmt.Println(banner)
		return nil
	case cliparse.CommandInspect:
		snap, err := procinfo.Read(res.InspectPID)
		if err != nil {
			return err
		}
		fmt.Println(snap.String())
		return nil
	}

	specs, settings, err := loadSpecsAndSettings(res)
	if err != nil {
		return err
	}
	if err := spec.Validate(specs); err != nil {
		return err
	}
	if len(specs) == 0 {
		return fmt.Errorf("no processes to run")
	}

	logger := logging.New(false)
	defer logger.Sync()

	go func() {
		if info, err := update.Check(version); err == nil && info != nil {
			logger.Info("update available", zap.String("current", info.Current), zap.String("latest", info.Latest))
		}
	}()

	sup, err := supervisor.New(specs, settings.ShutdownSigIntMs, settings.ShutdownSigTermMs)
	if err != nil {
		return err
	}
	defer sup.Close()

	h := host.New(sup, specs, settings)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if settings.NoUI {
		return h.Run(ctx, host.SinkFunc(func(e event.Event) {
			printLine(e)
		}))
	}

	prog := tui.NewProgram(specs, func(sig event.Signal) {
		h.RequestShutdown(sig)
	})

	runErrCh := make(chan error, 1)
	go func() {
		runErrCh <- h.Run(ctx, prog)
		prog.Quit()
	}()

	if err := prog.Run(); err != nil {
		return err
	}
	return <-runErrCh
}

func loadSpecsAndSettings(res cliparse.Result) ([]spec.ProcessSpec, spec.RunSettings, error) {
	settings := spec.DefaultRunSettings()
	var specs []spec.ProcessSpec

	configPath := res.ConfigPath
	if configPath == "" {
		configPath = "piperack.toml"
	}
	if !res.NoConfig {
		if _, err := os.Stat(configPath); err == nil {
			loaded, loadedSettings, err := config.Load(configPath)
			if err != nil {
				return nil, spec.RunSettings{}, err
			}
			specs = loaded
			settings = loadedSettings
		} else if res.ConfigPath != "" {
			return nil, spec.RunSettings{}, fmt.Errorf("read config %s: %w", configPath, err)
		}
	}

	specs = append(specs, res.CLISpecs...)
	applyOverrides(&settings, res.Overrides)

	return specs, settings, nil
}

func applyOverrides(s *spec.RunSettings, o cliparse.Overrides) {
	if o.MaxLines != nil {
		s.MaxLines = *o.MaxLines
	}
	if o.NoUI {
		s.NoUI = true
	}
	if o.Raw != nil {
		s.Raw = *o.Raw
	}
	if o.Prefix != nil {
		s.Prefix = *o.Prefix
	}
	if o.PrefixLength != nil {
		s.PrefixLength = *o.PrefixLength
	}
	if o.PrefixColors != nil {
		s.PrefixColors = *o.PrefixColors
	}
	if o.Timestamp != nil {
		s.Timestamp = *o.Timestamp
	}
	if o.Output != nil {
		if mode, err := spec.ParseOutputMode(*o.Output); err == nil {
			s.Output = mode
		}
	}
	if o.Success != nil {
		if policy, err := spec.ParseSuccessPolicy(*o.Success); err == nil {
			s.Success = policy
		}
	}
	if o.KillOthers != nil {
		s.KillOthers = *o.KillOthers
	}
	if o.KillOthersOnFail != nil {
		s.KillOthersOnFail = *o.KillOthersOnFail
	}
	if o.RestartTries != nil {
		tries := *o.RestartTries
		s.RestartTries = &tries
	}
	if o.RestartDelayMs != nil {
		s.RestartDelay = msToDuration(*o.RestartDelayMs)
	}
	if o.ShutdownSigInt != nil {
		s.ShutdownSigIntMs = *o.ShutdownSigInt
	}
	if o.ShutdownSigTerm != nil {
		s.ShutdownSigTermMs = *o.ShutdownSigTerm
	}
	if o.NoInput {
		s.HandleInput = false
	}
	if o.LogFile != nil {
		s.LogFile = *o.LogFile
	}
}

func msToDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func printLine(e event.Event) {
	switch ev := e.(type) {
	case event.Output:
		fmt.Printf("[%s] %s\n", ev.ID, ev.Line)
	case event.Started:
		fmt.Printf("[%s] started (pid %d)\n", ev.ID, ev.PID)
	case event.Exited:
		if ev.Code != nil {
			fmt.Printf("[%s] exited with code %d\n", ev.ID, *ev.Code)
		} else {
			fmt.Printf("[%s] exited (signal)\n", ev.ID)
		}
	case event.Failed:
		fmt.Printf("[%s] failed: %v\n", ev.ID, ev.Err)
	}
}
