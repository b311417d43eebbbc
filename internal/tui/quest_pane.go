package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/aristath/tower/internal/quest"
)

// QuestPaneModel lists tasks and the bag contents.
type QuestPaneModel struct {
	st     Status
	width  int
	height int
}

// NewQuestPaneModel creates a new quest pane model.
func NewQuestPaneModel() QuestPaneModel {
	return QuestPaneModel{}
}

// SetStatus copies the quest view from st.
func (m *QuestPaneModel) SetStatus(st Status) {
	m.st = st
}

// View renders the quest pane.
func (m QuestPaneModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	var b strings.Builder

	title := StyleTitle.Render("Quests")
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", lipgloss.Width(title)))
	b.WriteString("\n\n")

	if len(m.st.Tasks) == 0 {
		b.WriteString(StyleStatusPending.Render("No tasks"))
		b.WriteString("\n")
	}
	for _, t := range m.st.Tasks {
		b.WriteString(fmt.Sprintf("%s %d %-9s %s\n", StateIcon(t.State), t.ID, t.State, m.truncate(t.Name, 18)))
	}

	b.WriteString("\n")
	b.WriteString(StyleLabel.Render("Active"))
	if !m.st.Questing {
		b.WriteString(StyleStatusPending.Render("none"))
	}
	b.WriteString("\n")
	for _, a := range m.st.Active {
		line := fmt.Sprintf("  %d %s", a.ID, m.truncate(a.Name, 24))
		if a.Item != 0 {
			line += fmt.Sprintf(" (item %d: %d/1)", a.Item, min(a.Held, 1))
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	if len(m.st.Available) > 0 {
		b.WriteString(StyleLabel.Render("Next"))
		b.WriteString("\n")
		for _, t := range m.st.Available {
			b.WriteString(fmt.Sprintf("  %d %s\n", t.ID, m.truncate(t.Name, 8)))
		}
	}

	b.WriteString("\n")
	b.WriteString(StyleLabel.Render("Bag"))
	if len(m.st.Items) == 0 {
		b.WriteString(StyleStatusPending.Render("empty"))
	} else {
		slots := make([]string, len(m.st.Items))
		for i, it := range m.st.Items {
			slots[i] = fmt.Sprintf("%d x%d", it.ID, it.Count)
		}
		b.WriteString(strings.Join(slots, ", "))
	}

	return StyleUnfocusedBorder.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(b.String())
}

// truncate fits s into the pane width minus reserved columns.
func (m QuestPaneModel) truncate(s string, reserved int) string {
	limit := m.width - reserved
	if limit <= 3 {
		return s
	}
	return ansi.Truncate(s, limit, "...")
}

// StateIcon returns a styled task state indicator.
func StateIcon(s quest.State) string {
	switch s {
	case quest.StateAccepted:
		return StyleStatusRunning.Render("●")
	case quest.StateFinished:
		return StyleStatusComplete.Render("◆")
	case quest.StateEnd:
		return StyleStatusComplete.Render("✓")
	default:
		return StyleStatusPending.Render("○")
	}
}

// SetSize updates the pane dimensions.
func (m *QuestPaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}
