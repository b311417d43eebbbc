package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// Sender delivers messages to a running program. *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

type openPanelMsg struct {
	kind    string
	payload any
}

type closePanelsMsg struct{}

// PanelHost implements the panel service on top of the TUI. Calls are
// forwarded to the program's update loop, so they must not be made from
// inside it.
type PanelHost struct {
	mu     sync.Mutex
	sender Sender
}

// NewPanelHost creates a detached panel host. Panels opened before Attach
// are discarded.
func NewPanelHost() *PanelHost {
	return &PanelHost{}
}

// Attach connects the host to a program.
func (h *PanelHost) Attach(s Sender) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sender = s
}

// CloseAll hides every open panel.
func (h *PanelHost) CloseAll() {
	h.send(closePanelsMsg{})
}

// Open shows a panel.
func (h *PanelHost) Open(kind string, payload any) {
	h.send(openPanelMsg{kind: kind, payload: payload})
}

func (h *PanelHost) send(msg tea.Msg) {
	h.mu.Lock()
	s := h.sender
	h.mu.Unlock()
	if s != nil {
		s.Send(msg)
	}
}
