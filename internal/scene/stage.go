package scene

import (
	"sync"

	"github.com/aristath/tower/internal/transition"
)

// Stage holds the current background node.
type Stage struct {
	mu         sync.RWMutex
	background transition.Node
	swaps      int
}

func NewStage() *Stage {
	return &Stage{}
}

// ReplaceBackground drops the previous background and installs node.
func (s *Stage) ReplaceBackground(node transition.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.background = node
	s.swaps++
}

// Background returns the installed background and how many swaps happened.
func (s *Stage) Background() (transition.Node, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.background, s.swaps
}
