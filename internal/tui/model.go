package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/tower/internal/events"
)

const statusInterval = 100 * time.Millisecond

type statusTickMsg struct{}

// Model is the root Bubble Tea model for the TUI.
type Model struct {
	floorPane FloorPaneModel
	questPane QuestPaneModel
	logPane   LogPaneModel
	panelPane PanelPaneModel
	eventSub  <-chan events.Event
	triggers  events.Publisher
	status    StatusFunc
	current   Status
	width     int
	height    int
	quitting  bool
}

// New creates a new TUI model.
// It subscribes to all events from the event bus using SubscribeAll and
// publishes player input back to the bus as trigger events.
func New(eventBus *events.EventBus, status StatusFunc) Model {
	m := Model{
		floorPane: NewFloorPaneModel(),
		questPane: NewQuestPaneModel(),
		logPane:   NewLogPaneModel(),
		panelPane: NewPanelPaneModel(),
		eventSub:  eventBus.SubscribeAll(256),
		triggers:  eventBus,
		status:    status,
	}
	m.refreshStatus()
	return m
}

// Init initializes the model and returns the initial command.
func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForEvent(m.eventSub), tickStatus())
}

// waitForEvent returns a command that waits for the next event from the event bus.
func waitForEvent(sub <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-sub
		if !ok {
			return nil // bus closed
		}
		return event
	}
}

func tickStatus() tea.Cmd {
	return tea.Tick(statusInterval, func(time.Time) tea.Msg {
		return statusTickMsg{}
	})
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == KeyCtrlC {
			m.quitting = true
			return m, tea.Quit
		}

		// An open panel takes all keys (modal behavior)
		if m.panelPane.Visible() {
			var cmd tea.Cmd
			m.panelPane, cmd = m.panelPane.Update(msg)
			return m, cmd
		}

		switch msg.String() {
		case KeyQuit:
			m.quitting = true
			return m, tea.Quit

		case KeyAscend:
			m.trigger(events.ExitReachedEvent{
				FloorID: m.current.FloorID + 1,
				IsUp:    true,
				Symbol:  "down",
			})

		case KeyDescend:
			if m.current.FloorID > 0 {
				m.trigger(events.ExitReachedEvent{
					FloorID: m.current.FloorID - 1,
					IsUp:    false,
					Symbol:  "up",
				})
			}

		case KeyRespawn:
			m.trigger(events.RespawnRequestedEvent{})

		case KeyWin:
			m.trigger(events.BattleOverEvent{Won: true, DropItem: int(m.current.Drop)})

		case KeyLose:
			m.trigger(events.BattleOverEvent{Won: false})

		case KeyJ, KeyK, KeyUp, KeyDown:
			var cmd tea.Cmd
			m.logPane, cmd = m.logPane.Update(msg)
			cmds = append(cmds, cmd)

		default:
			if id, ok := taskKey(msg.String()); ok {
				m.trigger(events.AdvanceTaskEvent{TaskID: id})
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.computeLayout()
		m.panelPane.SetSize(msg.Width, msg.Height)

	case statusTickMsg:
		m.refreshStatus()
		cmds = append(cmds, tickStatus())

	case openPanelMsg:
		cmds = append(cmds, m.panelPane.Open(msg.kind, msg.payload))

	case closePanelsMsg:
		m.panelPane.Close()

	case logTickMsg:
		var cmd tea.Cmd
		m.logPane, cmd = m.logPane.Update(msg)
		cmds = append(cmds, cmd)

	case events.Event:
		var cmd tea.Cmd
		m.floorPane, cmd = m.floorPane.Update(msg)
		cmds = append(cmds, cmd)
		m.logPane, cmd = m.logPane.Update(msg)
		cmds = append(cmds, cmd)
		m.refreshStatus()
		// Also wait for next event
		cmds = append(cmds, waitForEvent(m.eventSub))

	default:
		// Forward everything else (form internals, cursor blinks) to an open panel
		if m.panelPane.Visible() {
			var cmd tea.Cmd
			m.panelPane, cmd = m.panelPane.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) trigger(e events.Event) {
	switch ev := e.(type) {
	case events.ExitReachedEvent:
		ev.Timestamp = time.Now()
		e = ev
	case events.RespawnRequestedEvent:
		ev.Timestamp = time.Now()
		e = ev
	case events.BattleOverEvent:
		ev.Timestamp = time.Now()
		e = ev
	case events.AdvanceTaskEvent:
		ev.Timestamp = time.Now()
		e = ev
	}
	m.triggers.Publish(events.TopicTrigger, e)
}

func (m *Model) refreshStatus() {
	if m.status == nil {
		return
	}
	m.current = m.status()
	m.floorPane.SetStatus(m.current)
	m.questPane.SetStatus(m.current)
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}

	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	// Panels render as a full-screen overlay
	if m.panelPane.Visible() {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.panelPane.View())
	}

	left := lipgloss.JoinVertical(lipgloss.Left, m.floorPane.View(), m.questPane.View())
	mainContent := lipgloss.JoinHorizontal(lipgloss.Top, left, m.logPane.View())

	return lipgloss.JoinVertical(lipgloss.Left, mainContent, HelpView())
}

// computeLayout calculates pane dimensions and updates all child models.
func (m *Model) computeLayout() {
	leftWidth := (m.width * 45) / 100
	rightWidth := m.width - leftWidth
	availableHeight := m.height - 1 // reserve 1 line for help bar
	floorHeight := (availableHeight * 55) / 100
	questHeight := availableHeight - floorHeight

	m.floorPane.SetSize(leftWidth, floorHeight)
	m.questPane.SetSize(leftWidth, questHeight)
	m.logPane.SetSize(rightWidth, availableHeight)
}
