//go:build linux

package procinfo

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadOwnProcess(t *testing.T) {
	snap, err := Read(os.Getpid())
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), snap.PID)
	assert.NotEmpty(t, snap.State)
	assert.GreaterOrEqual(t, snap.Threads, 1)
}

func TestReadUnknownPIDFails(t *testing.T) {
	_, err := Read(1<<30 - 1)
	assert.Error(t, err)
}

func TestStringIncludesPID(t *testing.T) {
	snap := Snapshot{PID: 42, Name: "sleep", State: "S (sleeping)"}
	assert.Contains(t, snap.String(), "pid=42")
	assert.Contains(t, snap.String(), "name=sleep")
}
