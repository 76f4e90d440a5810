package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rodentplay/rodentbot/internal/events"
)

const maxFood = 20

// StatusPaneModel shows the latest agent snapshot.
type StatusPaneModel struct {
	status  events.StatusEvent
	seen    bool
	width   int
	height  int
	focused bool
}

// NewStatusPaneModel creates a new status pane model.
func NewStatusPaneModel() StatusPaneModel {
	return StatusPaneModel{}
}

// Update handles messages for the status pane.
func (m StatusPaneModel) Update(msg tea.Msg) (StatusPaneModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case events.StatusEvent:
		m.status = msg
		m.seen = true
	}

	return m, nil
}

// View renders the status pane.
func (m StatusPaneModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	var b strings.Builder

	title := StyleTitle.Render("Agent")
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", lipgloss.Width(title)))
	b.WriteString("\n\n")

	if !m.seen {
		b.WriteString(StyleStatusPending.Render("Waiting for the first tick..."))
	} else {
		b.WriteString(m.body())
	}

	style := StyleUnfocusedBorder
	if m.focused {
		style = StyleFocusedBorder
	}

	return style.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(b.String())
}

func (m StatusPaneModel) body() string {
	s := m.status
	var b strings.Builder

	switch {
	case s.Defending:
		b.WriteString(fmt.Sprintf("Doing:   %s\n", StyleStatusFailed.Render("self-defense")))
	case s.Current != "":
		b.WriteString(fmt.Sprintf("Doing:   %s\n", StyleStatusRunning.Render(s.Current)))
	default:
		b.WriteString(fmt.Sprintf("Doing:   %s\n", StyleStatusPending.Render("idle")))
	}
	b.WriteString(fmt.Sprintf("Queued:  %d\n", len(s.Pending)))
	for i, name := range s.Pending {
		b.WriteString(fmt.Sprintf("  %d. %s\n", i+1, name))
	}
	b.WriteString("\n")

	b.WriteString(fmt.Sprintf("Mode:    %s\n", mode(s)))
	if s.Eating {
		b.WriteString(StyleStatusRunning.Render("Eating"))
		b.WriteString("\n")
	}
	b.WriteString(fmt.Sprintf("Health:  %.1f\n", s.Health))
	b.WriteString(fmt.Sprintf("Food:    [%s] %d/%d\n", m.foodBar(), s.Food, maxFood))

	return b.String()
}

func (m StatusPaneModel) foodBar() string {
	barWidth := max(1, min(m.width-20, maxFood))
	filled := min(barWidth, (max(0, m.status.Food)*barWidth)/maxFood)

	style := StyleStatusComplete
	if m.status.Food < 10 {
		style = StyleStatusFailed
	}
	return style.Render(strings.Repeat("=", filled)) +
		StyleStatusPending.Render(strings.Repeat(".", barWidth-filled))
}

func mode(s events.StatusEvent) string {
	var parts []string
	if s.Staying {
		parts = append(parts, "staying")
	}
	if s.Following != "" {
		parts = append(parts, "following "+s.Following)
	}
	if s.Guarding != "" {
		parts = append(parts, "guarding "+s.Guarding)
	}
	if len(parts) == 0 {
		return "free"
	}
	return strings.Join(parts, ", ")
}

// Status returns the latest snapshot and whether one arrived yet.
func (m StatusPaneModel) Status() (events.StatusEvent, bool) {
	return m.status, m.seen
}

// SetSize updates the pane dimensions.
func (m *StatusPaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// SetFocused updates the focus state.
func (m *StatusPaneModel) SetFocused(focused bool) {
	m.focused = focused
}
