package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/aristath/tower/internal/events"
)

const maxLogLines = 500

// LogPaneModel is a scrollable feed of bus events.
type LogPaneModel struct {
	lines     []string
	viewport  viewport.Model
	width     int
	height    int
	updateTag int // for debouncing
}

// NewLogPaneModel creates a new log pane model.
func NewLogPaneModel() LogPaneModel {
	return LogPaneModel{viewport: viewport.New(0, 0)}
}

// logTickMsg is used for debouncing viewport updates.
type logTickMsg struct {
	tag int
}

// Update handles messages for the log pane.
func (m LogPaneModel) Update(msg tea.Msg) (LogPaneModel, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		m.viewport, cmd = m.viewport.Update(msg)

	case logTickMsg:
		if msg.tag == m.updateTag {
			m.refresh()
		}

	case events.Event:
		line := FormatEvent(msg)
		if line == "" {
			break
		}
		m.lines = append(m.lines, line)
		if len(m.lines) > maxLogLines {
			m.lines = m.lines[len(m.lines)-maxLogLines:]
		}
		m.updateTag++
		tag := m.updateTag
		return m, tea.Tick(50*time.Millisecond, func(time.Time) tea.Msg {
			return logTickMsg{tag: tag}
		})
	}

	return m, cmd
}

// Lines returns the buffered log lines.
func (m LogPaneModel) Lines() []string {
	return m.lines
}

// FormatEvent renders an event as a single log line, or "" to skip it.
func FormatEvent(e events.Event) string {
	var ts time.Time
	var text string

	switch ev := e.(type) {
	case events.ExitReachedEvent:
		ts = ev.Timestamp
		text = fmt.Sprintf("exit reached: floor %d up=%v symbol=%q", ev.FloorID, ev.IsUp, ev.Symbol)
	case events.GotoFloorEvent:
		ts = ev.Timestamp
		text = fmt.Sprintf("goto floor %d", ev.FloorID)
	case events.RespawnRequestedEvent:
		ts = ev.Timestamp
		text = "respawn requested"
	case events.BattleOverEvent:
		ts = ev.Timestamp
		if ev.Won {
			text = fmt.Sprintf("battle won, drop %d", ev.DropItem)
		} else {
			text = "battle lost"
		}
	case events.AdvanceTaskEvent:
		ts = ev.Timestamp
		text = fmt.Sprintf("advance task %d", ev.TaskID)
	case events.TransitionPhaseEvent:
		// Phases are shown live in the floor pane
		return ""
	case events.TransitionOutcomeEvent:
		ts = ev.Timestamp
		text = fmt.Sprintf("floor %d: %s", ev.FloorID, ev.Outcome)
		if ev.Err != nil {
			text = StyleStatusFailed.Render(fmt.Sprintf("%s (%v)", text, ev.Err))
		}
	case events.ItemAcquiredEvent:
		ts = ev.Timestamp
		text = fmt.Sprintf("item %d acquired", ev.ItemID)
		if ev.Finished {
			text += fmt.Sprintf(", task %d finished", ev.TaskID)
		}
	case events.TaskStateEvent:
		ts = ev.Timestamp
		text = fmt.Sprintf("task %d is now %s", ev.TaskID, ev.State)
	default:
		text = e.EventType()
	}

	if ts.IsZero() {
		return text
	}
	return fmt.Sprintf("%s %s", StyleStatusPending.Render(ts.Format("15:04:05")), text)
}

// View renders the log pane.
func (m LogPaneModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	title := StyleTitle.Render("Events")
	return StyleUnfocusedBorder.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(title + "\n" + m.viewport.View())
}

func (m *LogPaneModel) refresh() {
	m.viewport.SetContent(strings.Join(m.lines, "\n"))
	m.viewport.GotoBottom()
}

// SetSize updates the pane dimensions.
func (m *LogPaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.viewport.Width = max(w-4, 10)
	m.viewport.Height = max(h-3, 3)
}
