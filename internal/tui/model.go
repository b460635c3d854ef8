package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/ah-its-andy/webpconv/internal/result"
	tea "github.com/charmbracelet/bubbletea"
)

const maxListed = 8

var spinnerFrames = []string{"|", "/", "-", "\\"}

// Model shows a running batch until its outcome arrives.
type Model struct {
	names       []string
	destination string
	outcomeCh   <-chan result.Outcome
	started     time.Time
	frame       int
	width       int
	done        bool
	result      result.Outcome
}

type doneMsg result.Outcome

type tickMsg time.Time

func NewModel(names []string, destination string, outcome <-chan result.Outcome) Model {
	return Model{names: names, destination: destination, outcomeCh: outcome, started: time.Now()}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForOutcome(m.outcomeCh), tick())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case doneMsg:
		m.done = true
		m.result = result.Outcome(msg)
		return m, tea.Quit
	case tickMsg:
		m.frame = (m.frame + 1) % len(spinnerFrames)
		return m, tick()
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	default:
		// the batch cannot be interrupted, so keys are ignored
		return m, nil
	}
}

func (m Model) View() string {
	if m.done {
		return ""
	}
	lines := []string{
		titleStyle.Render("webpconv") + " " + spinnerFrames[m.frame],
		labelStyle.Render(fmt.Sprintf("Converting %d images into %s", len(m.names), m.destination)),
	}
	for i, n := range m.names {
		if i == maxListed {
			lines = append(lines, dimStyle.Render(fmt.Sprintf("  ... and %d more", len(m.names)-maxListed)))
			break
		}
		lines = append(lines, dimStyle.Render("  "+truncate(n, m.width-4)))
	}
	lines = append(lines, dimStyle.Render(fmt.Sprintf("Elapsed: %s", time.Since(m.started).Round(time.Second))))
	return strings.Join(lines, "\n")
}

// outcome returns the batch result once the model has quit.
func (m Model) outcome() (result.Outcome, bool) {
	return m.result, m.done
}

func waitForOutcome(ch <-chan result.Outcome) tea.Cmd {
	return func() tea.Msg {
		return doneMsg(<-ch)
	}
}

func tick() tea.Cmd {
	return tea.Tick(120*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func truncate(s string, width int) string {
	if width <= 3 || len(s) <= width {
		return s
	}
	return s[:width-3] + "..."
}
