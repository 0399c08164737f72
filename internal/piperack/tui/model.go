// Package tui implements the interactive status view: one colored status
// line per supervised process plus a scrolling combined log pane, built on
// bubbletea/bubbles/lipgloss.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/piperack/piperack/internal/piperack/event"
	"github.com/piperack/piperack/internal/piperack/spec"
)

const maxViewportLines = 2000

type status int

const (
	statusWaiting status = iota
	statusStarting
	statusRunning
	statusReady
	statusExited
	statusFailed
)

func (s status) label() string {
	switch s {
	case statusStarting:
		return "starting"
	case statusRunning:
		return "running"
	case statusReady:
		return "ready"
	case statusExited:
		return "exited"
	case statusFailed:
		return "failed"
	default:
		return "waiting"
	}
}

type procState struct {
	name      string
	color     string
	status    status
	code      *int
	missing   []string
	startedAt time.Time
}

// eventMsg wraps a domain event for delivery through bubbletea's Update.
type eventMsg struct{ event.Event }

// quitRequestedMsg tells the program to exit, sent once the host's run
// loop has finished so the TUI doesn't outlive the supervised processes.
type quitRequestedMsg struct{}

// Model is the root bubbletea model for the status view.
type Model struct {
	order    []string
	procs    map[string]*procState
	spinner  spinner.Model
	vp       viewport.Model
	lines    []string
	ready    bool
	quitting bool
	onQuit   func(event.Signal)
}

// New builds a Model for the given process specs, in display order.
func New(specs []spec.ProcessSpec, onQuit func(event.Signal)) Model {
	procs := make(map[string]*procState, len(specs))
	order := make([]string, 0, len(specs))
	for _, sp := range specs {
		procs[sp.Name] = &procState{name: sp.Name, color: sp.Color}
		order = append(order, sp.Name)
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		order:   order,
		procs:   procs,
		spinner: sp,
		onQuit:  onQuit,
	}
}

// Init satisfies tea.Model.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update satisfies tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		headerHeight := len(m.order) + 2
		if !m.ready {
			m.vp = viewport.New(msg.Width, msg.Height-headerHeight)
			m.vp.SetContent(strings.Join(m.lines, "\n"))
			m.ready = true
		} else {
			m.vp.Width = msg.Width
			m.vp.Height = msg.Height - headerHeight
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.quitting = true
			if m.onQuit != nil {
				m.onQuit(event.SigInt)
			}
			return m, nil
		case "q":
			if m.quitting {
				return m, tea.Quit
			}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case eventMsg:
		m.apply(msg.Event)
		if m.ready {
			m.vp.SetContent(strings.Join(m.lines, "\n"))
			m.vp.GotoBottom()
		}
		return m, nil

	case quitRequestedMsg:
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(msg)
	return m, cmd
}

func (m *Model) apply(e event.Event) {
	switch ev := e.(type) {
	case event.Starting:
		if p := m.procs[ev.ID]; p != nil {
			p.status = statusStarting
		}
	case event.Started:
		if p := m.procs[ev.ID]; p != nil {
			p.status = statusRunning
			p.startedAt = time.Now()
			p.code = nil
		}
	case event.Ready:
		if p := m.procs[ev.ID]; p != nil {
			p.status = statusReady
		}
	case event.Waiting:
		if p := m.procs[ev.ID]; p != nil {
			p.missing = ev.MissingDeps
		}
	case event.Output:
		m.appendLine(ev.ID, ev.Line)
	case event.Exited:
		if p := m.procs[ev.ID]; p != nil {
			p.status = statusExited
			p.code = ev.Code
		}
		m.appendLine(ev.ID, exitSummary(ev.Code))
	case event.Failed:
		if p := m.procs[ev.ID]; p != nil {
			p.status = statusFailed
		}
		m.appendLine(ev.ID, fmt.Sprintf("error: %v", ev.Err))
	case event.SignalSent:
		m.appendLine(ev.ID, fmt.Sprintf("-> %s", ev.Signal.Label()))
	}
}

func exitSummary(code *int) string {
	if code == nil {
		return "exited (signal)"
	}
	return fmt.Sprintf("exited (code %d)", *code)
}

func (m *Model) appendLine(id, line string) {
	style := m.prefixStyle(id)
	m.lines = append(m.lines, fmt.Sprintf("%s %s", style.Render(pad(id)), line))
	if len(m.lines) > maxViewportLines {
		m.lines = m.lines[len(m.lines)-maxViewportLines:]
	}
}

func (m *Model) prefixStyle(id string) lipgloss.Style {
	if p := m.procs[id]; p != nil && p.color != "" {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(p.color))
	}
	return prefixStyleFor(id)
}

func pad(name string) string {
	const width = 12
	if len(name) >= width {
		return name[:width]
	}
	return name + strings.Repeat(" ", width-len(name))
}

// View satisfies tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "initializing...\n"
	}

	var header strings.Builder
	for _, name := range m.order {
		p := m.procs[name]
		header.WriteString(m.statusLine(p))
		header.WriteByte('\n')
	}
	header.WriteString(strings.Repeat("-", m.vp.Width))
	header.WriteByte('\n')

	return header.String() + m.vp.View()
}

func (m Model) statusLine(p *procState) string {
	dot := statusDotFor(p.status)
	var extra string
	switch p.status {
	case statusWaiting:
		if len(p.missing) > 0 {
			extra = "waiting on " + strings.Join(p.missing, ", ")
		}
	case statusStarting, statusRunning, statusReady:
		if !p.startedAt.IsZero() {
			extra = formatDuration(time.Since(p.startedAt))
		}
		if p.status == statusStarting || p.status == statusRunning {
			extra = m.spinner.View() + " " + extra
		}
	case statusExited, statusFailed:
		extra = exitSummary(p.code)
	}

	name := m.prefixStyle(p.name).Render(pad(p.name))
	return fmt.Sprintf("%s %s %-8s %s", dot, name, p.status.label(), extra)
}

func statusDotFor(s status) string {
	style := lipgloss.NewStyle()
	switch s {
	case statusReady, statusExited:
		style = style.Foreground(lipgloss.Color("2"))
	case statusFailed:
		style = style.Foreground(lipgloss.Color("1"))
	case statusRunning, statusStarting:
		style = style.Foreground(lipgloss.Color("3"))
	default:
		style = style.Foreground(lipgloss.Color("8"))
	}
	return style.Render("*")
}

func prefixStyleFor(name string) lipgloss.Style {
	colors := []string{"2", "4", "5", "6", "3", "9", "10", "12"}
	sum := 0
	for _, c := range name {
		sum += int(c)
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(colors[sum%len(colors)]))
}
