package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/tower/internal/router"
	"github.com/aristath/tower/internal/transition"
)

// PanelPaneModel is the modal overlay for game panels.
// Only one panel is shown at a time; opening another replaces it.
type PanelPaneModel struct {
	kind    string
	payload any
	form    *huh.Form
	useItem *bool // bound to the lose panel's confirm field
	width   int
	height  int
	visible bool
}

// NewPanelPaneModel creates a hidden panel pane.
func NewPanelPaneModel() PanelPaneModel {
	return PanelPaneModel{}
}

// Open shows a panel of the given kind.
func (m *PanelPaneModel) Open(kind string, payload any) tea.Cmd {
	m.kind = kind
	m.payload = payload
	m.visible = true
	m.form = nil

	if kind != transition.PanelLose {
		return nil
	}

	useItem := true
	m.useItem = &useItem
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Key("useItem").
				Title("You were defeated").
				Description("Use a respawn item to keep fighting?").
				Affirmative("Use item").
				Negative("Go home").
				Value(m.useItem),
		),
	)
	if m.width > 0 {
		m.form.WithWidth(max(m.width-8, 20))
	}
	return m.form.Init()
}

// Close hides the panel. A pending lose choice is resolved as cancel so
// the hero is never left without a decision.
func (m *PanelPaneModel) Close() {
	if m.visible && m.kind == transition.PanelLose {
		if choice, ok := m.payload.(router.LoseChoice); ok && choice.Cancel != nil {
			choice.Cancel()
		}
	}
	m.visible = false
	m.kind = ""
	m.payload = nil
	m.form = nil
}

// Update handles messages while the panel is visible.
func (m PanelPaneModel) Update(msg tea.Msg) (PanelPaneModel, tea.Cmd) {
	if !m.visible {
		return m, nil
	}

	if m.form == nil {
		if key, ok := msg.(tea.KeyMsg); ok {
			switch key.String() {
			case KeyEnter, KeyEsc, " ":
				m.Close()
			}
		}
		return m, nil
	}

	// Lose panel
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == KeyEsc {
		m.Close()
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		choice, _ := m.payload.(router.LoseChoice)
		if *m.useItem && choice.Confirm != nil {
			choice.Confirm()
			m.resolved()
		} else {
			m.Close()
		}
	case huh.StateAborted:
		m.Close()
	}

	return m, cmd
}

// resolved hides the panel without running its cancel handler.
func (m *PanelPaneModel) resolved() {
	m.visible = false
	m.kind = ""
	m.payload = nil
	m.form = nil
}

// View renders the panel.
func (m PanelPaneModel) View() string {
	if !m.visible {
		return ""
	}

	var title, body string
	switch m.kind {
	case transition.PanelPreface:
		n, _ := m.payload.(transition.Narrative)
		title = "Preface"
		if n.TitleArt != "" {
			title = fmt.Sprintf("Preface [%s]", n.TitleArt)
		}
		body = n.Text + "\n\n" + StyleHelp.Render("enter: continue")
	case transition.PanelGetItem:
		title = "Item found"
		body = fmt.Sprintf("You obtained item %v.", m.payload) + "\n\n" + StyleHelp.Render("enter: continue")
	case transition.PanelLose:
		title = "Defeat"
		body = m.form.View()
	default:
		title = m.kind
		body = fmt.Sprintf("%v", m.payload)
	}

	heading := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("214")).
		Render(title)

	style := StylePanelBorder
	if m.width > 8 {
		style = style.Width(min(m.width-8, 60))
	}
	return lipgloss.JoinVertical(lipgloss.Left, heading, style.Render(body))
}

// Visible reports whether a panel is shown.
func (m PanelPaneModel) Visible() bool {
	return m.visible
}

// Kind returns the kind of the shown panel.
func (m PanelPaneModel) Kind() string {
	return m.kind
}

// SetSize updates the dimensions of the panel pane.
func (m *PanelPaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	if m.form != nil {
		m.form.WithWidth(max(w-8, 20))
	}
}
