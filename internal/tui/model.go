package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rodentplay/rodentbot/internal/chat"
	"github.com/rodentplay/rodentbot/internal/events"
)

// PaneID identifies which pane is focused.
type PaneID int

const (
	PaneLog PaneID = iota
	PaneStatus
	PaneInput
	paneCount
)

// SubmitFunc handles one line typed into the command input. It runs off the
// UI goroutine and may block.
type SubmitFunc func(msg chat.Message)

// Model is the root Bubble Tea model for the TUI.
type Model struct {
	logPane     LogPaneModel
	statusPane  StatusPaneModel
	input       textinput.Model
	focusedPane PaneID
	eventSub    <-chan events.Event
	user        string
	submit      SubmitFunc
	now         func() time.Time
	width       int
	height      int
	quitting    bool
}

// New creates a new TUI model reading from sub. Lines typed into the input
// are attributed to user unless they carry their own "name:" prefix.
func New(sub *events.Subscription, user string, submit SubmitFunc) Model {
	in := textinput.New()
	in.Placeholder = "!rodent help"
	in.Prompt = "> "
	in.CharLimit = 256

	m := Model{
		logPane:     NewLogPaneModel(),
		statusPane:  NewStatusPaneModel(),
		input:       in,
		focusedPane: PaneInput,
		eventSub:    sub.C,
		user:        user,
		submit:      submit,
		now:         time.Now,
	}
	m.updateFocusStates()
	return m
}

// Init initializes the model and returns the initial command.
func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForEvent(m.eventSub), textinput.Blink)
}

// busClosedMsg reports that the event subscription ended.
type busClosedMsg struct{}

// waitForEvent returns a command that waits for the next event from the event bus.
func waitForEvent(sub <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-sub
		if !ok {
			return busClosedMsg{}
		}
		return event
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case KeyCtrlC:
			m.quitting = true
			return m, tea.Quit
		case KeyTab:
			m.focusedPane = (m.focusedPane + 1) % paneCount
			m.updateFocusStates()
			return m, nil
		case KeyShiftTab:
			m.focusedPane = (m.focusedPane + paneCount - 1) % paneCount
			m.updateFocusStates()
			return m, nil
		}

		// The input swallows printable keys while it has focus.
		if m.focusedPane == PaneInput {
			switch msg.String() {
			case KeyEnter:
				cmds = append(cmds, m.send())
			case KeyEsc:
				m.focusedPane = PaneLog
				m.updateFocusStates()
			default:
				var cmd tea.Cmd
				m.input, cmd = m.input.Update(msg)
				cmds = append(cmds, cmd)
			}
			return m, tea.Batch(cmds...)
		}

		switch msg.String() {
		case KeyQuit:
			m.quitting = true
			return m, tea.Quit
		case KeyPane1:
			m.focusedPane = PaneLog
			m.updateFocusStates()
		case KeyPane2:
			m.focusedPane = PaneStatus
			m.updateFocusStates()
		case KeyPane3:
			m.focusedPane = PaneInput
			m.updateFocusStates()
		default:
			if m.focusedPane == PaneLog {
				var cmd tea.Cmd
				m.logPane, cmd = m.logPane.Update(msg)
				cmds = append(cmds, cmd)
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.computeLayout()

	case tickMsg:
		var cmd tea.Cmd
		m.logPane, cmd = m.logPane.Update(msg)
		cmds = append(cmds, cmd)

	case events.StatusEvent:
		m.statusPane, _ = m.statusPane.Update(msg)
		cmds = append(cmds, waitForEvent(m.eventSub))

	case events.Event:
		var cmd tea.Cmd
		m.logPane, cmd = m.logPane.Update(msg)
		cmds = append(cmds, cmd, waitForEvent(m.eventSub))

	case busClosedMsg:
		m.quitting = true
		return m, tea.Quit

	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// send hands the typed line to the submit callback.
func (m *Model) send() tea.Cmd {
	text := strings.TrimSpace(m.input.Value())
	m.input.Reset()
	if text == "" {
		return nil
	}

	msg := chat.ParseLine(text, m.user)
	msg.Time = m.now()
	m.logPane.Echo("<"+msg.From+"> "+msg.Text, msg.Time)

	submit := m.submit
	if submit == nil {
		return nil
	}
	return func() tea.Msg {
		submit(msg)
		return nil
	}
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}

	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	mainContent := lipgloss.JoinHorizontal(lipgloss.Top, m.logPane.View(), m.statusPane.View())

	inputStyle := StyleUnfocusedBorder
	if m.focusedPane == PaneInput {
		inputStyle = StyleFocusedBorder
	}
	inputBox := inputStyle.Width(m.width - 2).Render(m.input.View())

	return lipgloss.JoinVertical(lipgloss.Left, mainContent, inputBox, HelpView())
}

// computeLayout calculates pane dimensions and updates all child models.
func (m *Model) computeLayout() {
	leftWidth := (m.width * 65) / 100
	rightWidth := m.width - leftWidth
	// help bar plus a bordered single-line input
	availableHeight := m.height - 4

	m.logPane.SetSize(leftWidth, availableHeight)
	m.statusPane.SetSize(rightWidth, availableHeight)
	m.input.Width = max(10, m.width-6)

	m.updateFocusStates()
}

// updateFocusStates updates the focus state of all panes.
func (m *Model) updateFocusStates() {
	m.logPane.SetFocused(m.focusedPane == PaneLog)
	m.statusPane.SetFocused(m.focusedPane == PaneStatus)
	if m.focusedPane == PaneInput {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
}
