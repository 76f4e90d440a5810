package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/rodentplay/rodentbot/internal/chat"
	"github.com/rodentplay/rodentbot/internal/events"
)

const (
	listWidth = 25

	// maxTranscript bounds the combined transcript kept in memory.
	maxTranscript = 1000
)

// TaskState is what the log pane knows about one task.
type TaskState struct {
	TaskID    string
	Name      string
	Requester string
	Status    string // "pending", "running", "preempted", "completed", "failed", "cancelled"
	Attempts  int
	Output    []string
}

// LogPaneModel shows the task list next to a scrollable transcript. The
// first list entry is the whole transcript; the others filter it to one task.
type LogPaneModel struct {
	tasks       map[string]*TaskState
	taskOrder   []string
	transcript  []string
	selectedIdx int // 0 is the full transcript
	viewport    viewport.Model
	width       int
	height      int
	focused     bool
	updateTag   int
}

// NewLogPaneModel creates an empty log pane.
func NewLogPaneModel() LogPaneModel {
	return LogPaneModel{
		tasks:    make(map[string]*TaskState),
		viewport: viewport.New(0, 0),
	}
}

// tickMsg debounces viewport refreshes during bursts of output.
type tickMsg struct {
	tag int
}

// Update handles messages for the log pane.
func (m LogPaneModel) Update(msg tea.Msg) (LogPaneModel, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeViewport()

	case tea.KeyMsg:
		if !m.focused {
			break
		}
		switch msg.String() {
		case KeyJ, KeyDown:
			if m.selectedIdx < len(m.taskOrder) {
				m.selectedIdx++
				m.updateViewportContent()
			}
		case KeyK, KeyUp:
			if m.selectedIdx > 0 {
				m.selectedIdx--
				m.updateViewportContent()
			}
		default:
			m.viewport, cmd = m.viewport.Update(msg)
		}

	case tickMsg:
		if msg.tag == m.updateTag {
			m.updateViewportContent()
		}

	case events.Event:
		if m.record(msg) {
			m.updateTag++
			tag := m.updateTag
			return m, tea.Tick(50*time.Millisecond, func(time.Time) tea.Msg {
				return tickMsg{tag: tag}
			})
		}
	}

	return m, cmd
}

// record folds ev into the task table and transcript. It reports whether
// anything visible changed.
func (m *LogPaneModel) record(ev events.Event) bool {
	changed := false

	switch e := ev.(type) {
	case events.TaskQueuedEvent:
		if _, exists := m.tasks[e.ID]; !exists {
			m.tasks[e.ID] = &TaskState{TaskID: e.ID, Name: e.Name, Requester: e.Requester, Status: "pending"}
			m.taskOrder = append(m.taskOrder, e.ID)
			changed = true
		}
	case events.TaskStartedEvent:
		changed = m.setStatus(e.ID, "running") || changed
		if t, ok := m.tasks[e.ID]; ok {
			t.Attempts = e.Attempt
		}
	case events.TaskPreemptedEvent:
		changed = m.setStatus(e.ID, "preempted")
	case events.TaskCompletedEvent:
		changed = m.setStatus(e.ID, "completed")
	case events.TaskFailedEvent:
		changed = m.setStatus(e.ID, "failed")
	case events.TaskCancelledEvent:
		changed = m.setStatus(e.ID, "cancelled")
	case events.StatusEvent:
		return false
	}

	line, ok := chat.Render(ev)
	if !ok {
		return changed
	}
	stamped := fmt.Sprintf("%s %s", eventTime(ev).Format("15:04:05"), line)
	if _, isDefense := ev.(events.DefenseEvent); isDefense {
		stamped = StyleDefense.Render(stamped)
	}

	m.transcript = append(m.transcript, stamped)
	if over := len(m.transcript) - maxTranscript; over > 0 {
		m.transcript = m.transcript[over:]
	}
	if t, ok := m.tasks[ev.TaskID()]; ok {
		t.Output = append(t.Output, stamped)
	}
	return true
}

// Echo appends a line typed by the local user to the transcript.
func (m *LogPaneModel) Echo(line string, at time.Time) {
	m.transcript = append(m.transcript, StyleStatusPending.Render(fmt.Sprintf("%s %s", at.Format("15:04:05"), line)))
	m.updateViewportContent()
}

func (m *LogPaneModel) setStatus(id, status string) bool {
	t, ok := m.tasks[id]
	if !ok {
		// Started without a queued event, e.g. the pane attached late.
		t = &TaskState{TaskID: id}
		m.tasks[id] = t
		m.taskOrder = append(m.taskOrder, id)
	}
	t.Status = status
	return true
}

// eventTime extracts the timestamp every concrete event carries.
func eventTime(ev events.Event) time.Time {
	switch e := ev.(type) {
	case events.TaskQueuedEvent:
		return e.Timestamp
	case events.TaskStartedEvent:
		return e.Timestamp
	case events.TaskOutputEvent:
		return e.Timestamp
	case events.TaskCompletedEvent:
		return e.Timestamp
	case events.TaskFailedEvent:
		return e.Timestamp
	case events.TaskPreemptedEvent:
		return e.Timestamp
	case events.TaskCancelledEvent:
		return e.Timestamp
	case events.TaskRejectedEvent:
		return e.Timestamp
	case events.QueueClearedEvent:
		return e.Timestamp
	case events.DefenseEvent:
		return e.Timestamp
	case events.NoticeEvent:
		return e.Timestamp
	case events.StatusEvent:
		return e.Timestamp
	}
	return time.Time{}
}

// View renders the log pane.
func (m LogPaneModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	viewportWidth := m.width - listWidth - 4

	content := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.renderTaskList(listWidth),
		lipgloss.NewStyle().
			Width(viewportWidth).
			Height(m.height-2).
			Render(m.viewport.View()),
	)

	style := StyleUnfocusedBorder
	if m.focused {
		style = StyleFocusedBorder
	}

	return style.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(content)
}

func (m LogPaneModel) renderTaskList(width int) string {
	var b strings.Builder

	title := StyleTitle.Render("Tasks")
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", min(width, lipgloss.Width(title))))
	b.WriteString("\n\n")

	entries := append([]string{"All chat"}, m.taskOrder...)
	for i, id := range entries {
		line := id
		if i > 0 {
			t := m.tasks[id]
			name := t.Name
			if name == "" {
				name = "task"
			}
			if len(name) > width-6 {
				name = name[:width-9] + "..."
			}
			line = fmt.Sprintf("%s %s", StatusIcon(t.Status), name)
		}
		if i == m.selectedIdx {
			line = StyleSelected.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	return lipgloss.NewStyle().
		Width(width).
		Height(m.height - 2).
		Render(b.String())
}

// StatusIcon returns a styled status indicator.
func StatusIcon(status string) string {
	switch status {
	case "running":
		return StyleStatusRunning.Render("●")
	case "preempted":
		return StyleStatusPaused.Render("‖")
	case "completed":
		return StyleStatusComplete.Render("✓")
	case "failed":
		return StyleStatusFailed.Render("✗")
	case "cancelled":
		return StyleStatusPending.Render("-")
	default:
		return StyleStatusPending.Render("○")
	}
}

// Selected returns the selected task, or nil while the full transcript is
// shown.
func (m LogPaneModel) Selected() *TaskState {
	if m.selectedIdx <= 0 || m.selectedIdx > len(m.taskOrder) {
		return nil
	}
	return m.tasks[m.taskOrder[m.selectedIdx-1]]
}

// Task returns the state recorded for id.
func (m LogPaneModel) Task(id string) (TaskState, bool) {
	t, ok := m.tasks[id]
	if !ok {
		return TaskState{}, false
	}
	return *t, true
}

// Transcript returns the rendered lines in arrival order.
func (m LogPaneModel) Transcript() []string {
	return append([]string(nil), m.transcript...)
}

func (m *LogPaneModel) updateViewportContent() {
	lines := m.transcript
	if t := m.Selected(); t != nil {
		lines = t.Output
	}
	if len(lines) == 0 {
		m.viewport.SetContent("Waiting for chat...")
		return
	}
	m.viewport.SetContent(strings.Join(lines, "\n"))
	m.viewport.GotoBottom()
}

func (m *LogPaneModel) resizeViewport() {
	viewportWidth := m.width - listWidth - 4
	viewportHeight := m.height - 4

	if viewportWidth < 10 {
		viewportWidth = 10
	}
	if viewportHeight < 5 {
		viewportHeight = 5
	}

	m.viewport.Width = viewportWidth
	m.viewport.Height = viewportHeight
}

// SetSize updates the pane dimensions.
func (m *LogPaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.resizeViewport()
}

// SetFocused updates the focus state.
func (m *LogPaneModel) SetFocused(focused bool) {
	m.focused = focused
}
