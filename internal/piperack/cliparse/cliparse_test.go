package cliparse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNamesShorthandAlignsListsByIndex(t *testing.T) {
	specs, err := parseNamedCommands(
		"web,api",
		[]string{"pnpm dev", "cargo run --release"},
		[]string{"./frontend", "./backend"},
		[]string{"api:PORT=3000", "LOG_LEVEL=debug"},
		[]string{"cyan", "magenta"},
		nil,
		false,
	)
	require.NoError(t, err)
	require.Len(t, specs, 2)

	assert.Equal(t, "web", specs[0].Name)
	assert.Equal(t, "pnpm", specs[0].Cmd)
	assert.Equal(t, []string{"dev"}, specs[0].Args)
	assert.Equal(t, "./frontend", specs[0].Cwd)
	assert.Equal(t, "cyan", specs[0].Color)
	assert.Equal(t, "debug", specs[0].Env["LOG_LEVEL"])

	assert.Equal(t, "api", specs[1].Name)
	assert.Equal(t, "cargo", specs[1].Cmd)
	assert.Equal(t, []string{"run", "--release"}, specs[1].Args)
	assert.Equal(t, "3000", specs[1].Env["PORT"])
	assert.Equal(t, "debug", specs[1].Env["LOG_LEVEL"])
}

func TestParseNamesShorthandRejectsCountMismatch(t *testing.T) {
	_, err := parseNamedCommands("web,api", []string{"pnpm dev"}, nil, nil, nil, nil, false)
	assert.Error(t, err)
}

func TestParseRepeatableLongFormParsesMultipleProcesses(t *testing.T) {
	args := []string{
		"--name", "web",
		"--cwd", "./frontend",
		"--env", "PORT=3000",
		"--color", "cyan",
		"--no-restart-on-fail",
		"--", "pnpm", "dev",
		"--name", "api",
		"--restart-on-fail",
		"--", "cargo", "run", "--release",
	}

	specs, err := parseRepeatableLongForm(args, false)
	require.NoError(t, err)
	require.Len(t, specs, 2)

	assert.Equal(t, "web", specs[0].Name)
	assert.Equal(t, "pnpm", specs[0].Cmd)
	assert.Equal(t, []string{"dev"}, specs[0].Args)
	assert.Equal(t, "./frontend", specs[0].Cwd)
	assert.Equal(t, "3000", specs[0].Env["PORT"])
	assert.Equal(t, "cyan", specs[0].Color)
	assert.False(t, specs[0].RestartOnFail)

	assert.Equal(t, "api", specs[1].Name)
	assert.Equal(t, "cargo", specs[1].Cmd)
	assert.Equal(t, []string{"run", "--release"}, specs[1].Args)
	assert.True(t, specs[1].RestartOnFail)
}

func TestParseRepeatableLongFormParsesWatchOptions(t *testing.T) {
	args := []string{
		"--name", "web",
		"--watch", "src",
		"--watch", "config",
		"--watch-ignore", "*.log",
		"--watch-debounce-ms", "500",
		"--", "pnpm", "dev",
	}

	specs, err := parseRepeatableLongForm(args, false)
	require.NoError(t, err)
	require.Len(t, specs, 1)

	assert.Equal(t, []string{"src", "config"}, specs[0].Watch.Paths)
	assert.Equal(t, []string{"*.log"}, specs[0].Watch.Ignore)
	assert.Equal(t, 500*time.Millisecond, specs[0].Watch.Debounce)
}

func TestParseRepeatableLongFormRequiresSeparator(t *testing.T) {
	_, err := parseRepeatableLongForm([]string{"--name", "web", "pnpm", "dev"}, false)
	assert.Error(t, err)
}

func TestParseGlobalFlagsAndTrailingLongForm(t *testing.T) {
	res, err := Parse([]string{
		"--kill-others-on-fail",
		"--restart-tries", "5",
		"--name", "web", "--", "pnpm", "dev",
	})
	require.NoError(t, err)

	require.NotNil(t, res.Overrides.KillOthersOnFail)
	assert.True(t, *res.Overrides.KillOthersOnFail)
	require.NotNil(t, res.Overrides.RestartTries)
	assert.Equal(t, 5, *res.Overrides.RestartTries)

	require.Len(t, res.CLISpecs, 1)
	assert.Equal(t, "web", res.CLISpecs[0].Name)
}

func TestParseSubcommands(t *testing.T) {
	res, err := Parse([]string{"version"})
	require.NoError(t, err)
	assert.Equal(t, CommandVersion, res.Command)

	res, err = Parse([]string{"banner"})
	require.NoError(t, err)
	assert.Equal(t, CommandBanner, res.Command)

	res, err = Parse([]string{"inspect", "1234"})
	require.NoError(t, err)
	assert.Equal(t, CommandInspect, res.Command)
	assert.Equal(t, 1234, res.InspectPID)
}
