package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/piperack/piperack/internal/piperack/event"
	"github.com/piperack/piperack/internal/piperack/spec"
)

func keyMsgCtrlC() tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyCtrlC}
}

func testSpecs() []spec.ProcessSpec {
	return []spec.ProcessSpec{
		{Name: "web", Cmd: "pnpm", Args: []string{"dev"}},
		{Name: "api", Cmd: "cargo", Args: []string{"run"}},
	}
}

func TestModelTracksProcessStatus(t *testing.T) {
	m := New(testSpecs(), nil)

	updated, _ := m.Update(eventMsg{event.Started{ID: "web", PID: 123}})
	mm := updated.(Model)
	if mm.procs["web"].status != statusRunning {
		t.Fatalf("expected web running, got %v", mm.procs["web"].status)
	}

	updated, _ = mm.Update(eventMsg{event.Ready{ID: "web"}})
	mm = updated.(Model)
	if mm.procs["web"].status != statusReady {
		t.Fatalf("expected web ready, got %v", mm.procs["web"].status)
	}

	code := 0
	updated, _ = mm.Update(eventMsg{event.Exited{ID: "web", Code: &code}})
	mm = updated.(Model)
	if mm.procs["web"].status != statusExited {
		t.Fatalf("expected web exited, got %v", mm.procs["web"].status)
	}
}

func TestModelAppendsOutputLines(t *testing.T) {
	m := New(testSpecs(), nil)
	updated, _ := m.Update(eventMsg{event.Output{ID: "api", Line: "listening on :3000"}})
	mm := updated.(Model)
	if len(mm.lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(mm.lines))
	}
}

func TestModelCtrlCInvokesOnQuit(t *testing.T) {
	var gotSignal event.Signal = -1
	m := New(testSpecs(), func(s event.Signal) { gotSignal = s })

	_, _ = m.Update(keyMsgCtrlC())
	if gotSignal != event.SigInt {
		t.Fatalf("expected onQuit called with SigInt, got %v", gotSignal)
	}
}
