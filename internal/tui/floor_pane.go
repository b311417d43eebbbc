package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/tower/internal/events"
)

// FloorPaneModel shows where the hero is and how the last transition went.
type FloorPaneModel struct {
	status      Status
	lastFloor   int
	lastOutcome string
	lastErr     error
	lastTook    time.Duration
	width       int
	height      int
}

// NewFloorPaneModel creates a new floor pane model.
func NewFloorPaneModel() FloorPaneModel {
	return FloorPaneModel{}
}

// Update handles messages for the floor pane.
func (m FloorPaneModel) Update(msg tea.Msg) (FloorPaneModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case events.TransitionOutcomeEvent:
		m.lastFloor = msg.FloorID
		m.lastOutcome = msg.Outcome
		m.lastErr = msg.Err
		m.lastTook = msg.Duration
	}

	return m, nil
}

// SetStatus replaces the rendered status.
func (m *FloorPaneModel) SetStatus(st Status) {
	m.status = st
}

// View renders the floor pane.
func (m FloorPaneModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	var b strings.Builder
	st := m.status

	title := StyleTitle.Render("Floor")
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", lipgloss.Width(title)))
	b.WriteString("\n\n")

	row := func(label, value string) {
		b.WriteString(StyleLabel.Render(label))
		b.WriteString(value)
		b.WriteString("\n")
	}

	row("Site", st.Site)
	row("Floor", fmt.Sprintf("%d", st.FloorID))
	row("Phase", phaseStyle(st.Phase).Render(st.Phase))
	row("Checkpoint", fmt.Sprintf("floor %d, up %q, max %d", st.Checkpoint.FloorID, st.Checkpoint.UpSymbol, st.Checkpoint.MaxFloorID))
	row("Assets", fmt.Sprintf("%d files cached", st.AssetFiles))
	row("Hero", fmt.Sprintf("HP %d/%d, respawns %d", st.HP, st.MaxHP, st.Respawns))
	row("Mask", maskBar(st.Mask, min(m.width-18, 20)))
	row("Music", st.Track)
	if st.Effect != "" {
		row("Sound", st.Effect)
	}

	if m.lastOutcome != "" {
		last := fmt.Sprintf("%s floor %d", m.lastOutcome, m.lastFloor)
		switch {
		case m.lastErr != nil:
			last = StyleStatusFailed.Render(fmt.Sprintf("%s: %v", last, m.lastErr))
		case m.lastOutcome == "completed":
			last = StyleStatusComplete.Render(fmt.Sprintf("%s in %v", last, m.lastTook.Round(time.Millisecond)))
		}
		row("Last", last)
	}

	return StyleUnfocusedBorder.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(b.String())
}

func phaseStyle(phase string) lipgloss.Style {
	if phase == "" || phase == "idle" {
		return StyleStatusPending
	}
	return StyleStatusRunning
}

// maskBar renders opacity as a fill bar.
func maskBar(opacity float64, width int) string {
	if width <= 0 {
		return ""
	}
	filled := int(opacity*float64(width) + 0.5)
	filled = max(0, min(filled, width))
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}

// SetSize updates the pane dimensions.
func (m *FloorPaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}
