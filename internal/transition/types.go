package transition

import (
	"context"
	"errors"
	"fmt"

	"github.com/aristath/tower/internal/quest"
)

// Request asks for the hero to be moved to another floor.
type Request struct {
	FloorID     int
	IsUp        bool   // ascending entry
	EntrySymbol string // connector the hero enters from
}

// Checkpoint is the persisted resume point.
type Checkpoint struct {
	FloorID    int
	UpSymbol   string
	MaxFloorID int
}

// Next returns the checkpoint written after a successful change to req.
func (c Checkpoint) Next(req Request) Checkpoint {
	next := Checkpoint{
		FloorID:    req.FloorID,
		UpSymbol:   c.UpSymbol,
		MaxFloorID: c.MaxFloorID,
	}
	if req.IsUp {
		next.UpSymbol = req.EntrySymbol
	}
	if req.FloorID > next.MaxFloorID {
		next.MaxFloorID = req.FloorID
	}
	return next
}

// Node is a loaded scene fragment.
type Node struct {
	Path string
	Name string
	Data []byte
}

// Narrative is the per-floor story shown when ascending into a floor.
type Narrative struct {
	Text     string
	TitleArt string
	IconArt  string
}

// Phase is the position of a transition in the pipeline.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAdmitted
	PhaseLoading
	PhaseMutating
	PhasePersisting
	PhasePresenting
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAdmitted:
		return "admitted"
	case PhaseLoading:
		return "loading"
	case PhaseMutating:
		return "mutating"
	case PhasePersisting:
		return "persisting"
	case PhasePresenting:
		return "presenting"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Outcome is the result of a floor-change request.
type Outcome int

const (
	OutcomeCompleted Outcome = iota
	OutcomeRejected          // gating task not ended
	OutcomeDropped           // another transition in flight
	OutcomeAborted           // a step failed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeRejected:
		return "rejected"
	case OutcomeDropped:
		return "dropped"
	case OutcomeAborted:
		return "aborted"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// ErrInFlight is returned by Start when a transition already holds the guard.
var ErrInFlight = errors.New("floor transition already in flight")

// StepError wraps the failure that aborted a transition.
type StepError struct {
	Phase   Phase
	Step    string
	FloorID int
	Err     error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("floor %d: %s (%s): %v", e.FloorID, e.Step, e.Phase, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Panel kinds opened by the orchestrator and the router.
const (
	PanelPreface = "preface"
	PanelGetItem = "get_item"
	PanelLose    = "lose"
)

// Sound effect names.
const (
	EffectChangeFloor = "change-floor"
	EffectLose        = "lose"
	EffectRespawn     = "respawn"
)

// Gate decides whether floor changes are admitted.
type Gate interface {
	IsTaskEnd(id quest.TaskID) bool
}

// AssetLoader loads floor content.
type AssetLoader interface {
	LoadFloorAssets(ctx context.Context, floorID int) error
	LoadNode(ctx context.Context, path string) (Node, error)
}

// CheckpointStore persists the resume point.
type CheckpointStore interface {
	ReadCheckpoint(ctx context.Context) (Checkpoint, error)
	WriteCheckpoint(ctx context.Context, cp Checkpoint) error
}

// NarrativeSource looks up floor narratives.
type NarrativeSource interface {
	NarrativeForFloor(floorID int) (Narrative, bool)
}

// SceneResolver maps floors to scene ids (used for music).
type SceneResolver interface {
	SceneID(floorID int) int
}

// Audio is fire-and-forget: calls never block the pipeline or report errors.
type Audio interface {
	PlayEffect(name string)
	PlayMusicForScene(sceneID int)
	StopMusic()
}

// PanelService opens and closes modal panels.
type PanelService interface {
	CloseAll()
	Open(kind string, payload any)
}

// Mask is the full-screen fade used to hide scene swaps.
type Mask interface {
	Cover()
	In(ctx context.Context) error
	Out(ctx context.Context) error
}

// Stage holds the background subtree.
type Stage interface {
	ReplaceBackground(node Node)
}

// World is the mutable floor state.
type World interface {
	InitFloor(floorID int, isUp bool, symbol string)
	RespawnHero()
}

// HUD is the on-screen chrome.
type HUD interface {
	ChangeSite(floorID int)
}
