package tui

import (
	"github.com/aristath/tower/internal/quest"
	"github.com/aristath/tower/internal/transition"
)

// TaskLine is one row of the quest pane.
type TaskLine struct {
	ID    quest.TaskID
	Name  string
	State quest.State
}

// ActiveLine is a running task and its item objective.
type ActiveLine struct {
	TaskLine
	Item quest.ItemID // 0 when the task has no item objective
	Held int          // copies of Item in the bag
}

// ItemCount is one bag slot.
type ItemCount struct {
	ID    quest.ItemID
	Count int
}

// Status is a point-in-time view of the game for rendering.
type Status struct {
	FloorID    int
	Site       string
	Phase      string
	Checkpoint transition.Checkpoint
	AssetFiles int // files cached for the current floor
	HP         int
	MaxHP      int
	Respawns   int
	Mask       float64 // 0 transparent, 1 opaque
	Track      string
	Effect     string // last sound effect

	Tasks     []TaskLine
	Questing  bool // any task accepted or finished
	Active    []ActiveLine
	Available []TaskLine // new tasks whose prerequisites have ended
	Items     []ItemCount
	Drop      quest.ItemID // item carried by the next monster, 0 for none
}

// StatusFunc produces the current status. It is called from the UI loop
// and must not block.
type StatusFunc func() Status
