package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/piperack/piperack/internal/piperack/event"
	"github.com/piperack/piperack/internal/piperack/spec"
)

// Program pairs a running bubbletea program with a host.Sink that forwards
// supervisor events into it.
type Program struct {
	tea *tea.Program
}

// NewProgram builds the bubbletea program for specs. onQuit is invoked from
// the UI goroutine when the user presses ctrl+c; the caller is expected to
// begin a graceful shutdown in response.
func NewProgram(specs []spec.ProcessSpec, onQuit func(event.Signal)) *Program {
	model := New(specs, onQuit)
	return &Program{tea: tea.NewProgram(model, tea.WithAltScreen())}
}

// Run blocks until the program exits (ctrl+c followed by "q", or the
// program receiving tea.Quit from elsewhere).
func (p *Program) Run() error {
	_, err := p.tea.Run()
	return err
}

// Handle implements host.Sink by forwarding the event into the bubbletea
// event loop. Safe to call concurrently from the host's goroutine.
func (p *Program) Handle(e event.Event) {
	p.tea.Send(eventMsg{e})
}

// Quit requests the bubbletea program stop, used once the host's run loop
// has finished so the TUI doesn't outlive the supervised processes.
func (p *Program) Quit() {
	p.tea.Send(quitRequestedMsg{})
}
