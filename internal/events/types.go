package events

import (
	"time"
)

// Event is the base interface for all events.
type Event interface {
	EventType() string
}

// Topic constants
const (
	TopicTrigger = "trigger" // external requests consumed by the router
	TopicFloor   = "floor"   // transition progress published by the orchestrator
	TopicQuest   = "quest"   // task progress published by the router
)

// Event type constants
const (
	EventTypeExitReached       = "trigger.exit"
	EventTypeGotoFloor         = "trigger.goto"
	EventTypeRespawnRequested  = "trigger.respawn"
	EventTypeBattleOver        = "trigger.battle_over"
	EventTypeAdvanceTask       = "trigger.advance_task"
	EventTypeTransitionPhase   = "floor.phase"
	EventTypeTransitionOutcome = "floor.outcome"
	EventTypeItemAcquired      = "quest.item_acquired"
	EventTypeTaskState         = "quest.task_state"
)

// ExitReachedEvent is published when the hero steps on a stair connector.
type ExitReachedEvent struct {
	FloorID   int
	IsUp      bool
	Symbol    string
	Timestamp time.Time
}

func (e ExitReachedEvent) EventType() string { return EventTypeExitReached }

// GotoFloorEvent is a scripted jump to a floor, always treated as ascending.
type GotoFloorEvent struct {
	FloorID   int
	Timestamp time.Time
}

func (e GotoFloorEvent) EventType() string { return EventTypeGotoFloor }

// RespawnRequestedEvent asks for the hero to be sent home with full health.
type RespawnRequestedEvent struct {
	Timestamp time.Time
}

func (e RespawnRequestedEvent) EventType() string { return EventTypeRespawnRequested }

// BattleOverEvent reports the result of a fight.
// DropItem is zero when the monster carries nothing.
type BattleOverEvent struct {
	Won       bool
	DropItem  int
	Timestamp time.Time
}

func (e BattleOverEvent) EventType() string { return EventTypeBattleOver }

// AdvanceTaskEvent asks for a task to move to its next state, e.g. after
// talking to the task's NPC.
type AdvanceTaskEvent struct {
	TaskID    int
	Timestamp time.Time
}

func (e AdvanceTaskEvent) EventType() string { return EventTypeAdvanceTask }

// TransitionPhaseEvent is published each time a floor transition enters a new phase.
type TransitionPhaseEvent struct {
	FloorID   int
	Phase     string
	Timestamp time.Time
}

func (e TransitionPhaseEvent) EventType() string { return EventTypeTransitionPhase }

// TransitionOutcomeEvent is published once per admitted transition, after
// the guard is released. Rejected and dropped requests publish nothing.
type TransitionOutcomeEvent struct {
	FloorID   int
	Outcome   string
	Err       error
	Duration  time.Duration
	Timestamp time.Time
}

func (e TransitionOutcomeEvent) EventType() string { return EventTypeTransitionOutcome }

// ItemAcquiredEvent is published when a drop is added to the bag.
// TaskID is set only when the item finished a task.
type ItemAcquiredEvent struct {
	ItemID    int
	TaskID    int
	Finished  bool
	Timestamp time.Time
}

func (e ItemAcquiredEvent) EventType() string { return EventTypeItemAcquired }

// TaskStateEvent is published when a task changes state.
type TaskStateEvent struct {
	TaskID    int
	State     string
	Timestamp time.Time
}

func (e TaskStateEvent) EventType() string { return EventTypeTaskState }
