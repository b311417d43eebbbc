package scene

import "sync"

// WorldState is a copy of the world's observable fields.
type WorldState struct {
	FloorID  int
	IsUp     bool
	Symbol   string // entry stair the hero stands on
	HP       int
	MaxHP    int
	Respawns int
}

// World is the mutable floor state.
type World struct {
	mu    sync.RWMutex
	state WorldState
}

// NewWorld creates a world with a hero at full health.
func NewWorld(maxHP int) *World {
	return &World{state: WorldState{HP: maxHP, MaxHP: maxHP}}
}

// InitFloor rebuilds the floor and places the hero at the entry stair.
func (w *World) InitFloor(floorID int, isUp bool, symbol string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.FloorID = floorID
	w.state.IsUp = isUp
	w.state.Symbol = symbol
}

// RespawnHero revives the hero at full health.
func (w *World) RespawnHero() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.HP = w.state.MaxHP
	w.state.Respawns++
}

// RestoreHealth refills HP without moving the hero.
func (w *World) RestoreHealth() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.HP = w.state.MaxHP
}

// Kill drops the hero to zero HP.
func (w *World) Kill() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.HP = 0
}

// State returns a copy of the world state.
func (w *World) State() WorldState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}
