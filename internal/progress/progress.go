// Package progress renders a passive live-progress view for a running
// recovery: which phase is active and a running file count per
// Collector. It never drives the recovery itself — it only reflects
// Events an Orchestrator emits from its own goroutine.
package progress

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	phaseStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Bold(true)
)

// Phase names a recovery stage.
type Phase string

const (
	PhaseCache Phase = "cache"
	PhaseUber  Phase = "uber"
	PhaseBrute Phase = "brute"
	PhaseDone  Phase = "done"
)

// Event is one phase-transition or progress tick, emitted by an
// Orchestrator running on its own goroutine.
type Event struct {
	Phase      Phase
	UberCount  int
	BruteCount int
	Err        error
}

// Model is the bubbletea model driving the progress view.
type Model struct {
	spinner    spinner.Model
	events     <-chan Event
	phase      Phase
	uberCount  int
	bruteCount int
	err        error
	done       bool
}

// New builds a Model that reads phase events from events until it is
// closed or emits a PhaseDone event.
func New(events <-chan Event) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))

	return Model{spinner: s, events: events, phase: PhaseCache}
}

type eventMsg Event
type closedMsg struct{}

func waitForEvent(events <-chan Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return closedMsg{}
		}
		return eventMsg(ev)
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForEvent(m.events))
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case eventMsg:
		m.phase = msg.Phase
		m.uberCount = msg.UberCount
		m.bruteCount = msg.BruteCount
		m.err = msg.Err
		if m.phase == PhaseDone {
			m.done = true
			return m, tea.Quit
		}
		return m, waitForEvent(m.events)
	case closedMsg:
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	var s strings.Builder
	s.WriteString(titleStyle.Render(" zfinds recovery "))
	s.WriteString("\n\n")

	if m.err != nil {
		s.WriteString(errorStyle.Render("error: " + m.err.Error()))
		s.WriteString("\n\n")
	}

	if m.done {
		s.WriteString(successStyle.Render("recovery complete"))
	} else {
		s.WriteString(m.spinner.View())
		s.WriteString(" ")
		s.WriteString(phaseStyle.Render(string(m.phase)))
	}
	s.WriteString("\n\n")

	s.WriteString(fmt.Sprintf("uber files found:  %d\n", m.uberCount))
	s.WriteString(fmt.Sprintf("brute files found: %d\n", m.bruteCount))

	s.WriteString("\n")
	s.WriteString(helpStyle.Render("press q to quit"))
	return s.String()
}

// Run blocks running the progress TUI until events closes or a
// PhaseDone event arrives.
func Run(events <-chan Event) error {
	_, err := tea.NewProgram(New(events)).Run()
	return err
}
