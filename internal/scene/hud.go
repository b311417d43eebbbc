package scene

import (
	"fmt"
	"sync"
)

// HUD tracks the site label shown on screen.
type HUD struct {
	mu   sync.RWMutex
	site string
}

func NewHUD() *HUD {
	return &HUD{}
}

// ChangeSite updates the site label for a floor.
func (h *HUD) ChangeSite(floorID int) {
	label := "Home"
	if floorID > 0 {
		label = fmt.Sprintf("Tower %dF", floorID)
	}
	h.mu.Lock()
	h.site = label
	h.mu.Unlock()
}

// Site returns the current label.
func (h *HUD) Site() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.site
}
