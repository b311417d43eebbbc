package transition

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/aristath/tower/internal/events"
	"github.com/aristath/tower/internal/quest"
)

const (
	homeBackgroundPath  = "prefabs/game/home_bg"
	towerBackgroundPath = "prefabs/game/tower_bg"
	prefacePath         = "prefabs/game/preface"
)

// Config wires the orchestrator to its collaborators.
type Config struct {
	GatingTask quest.TaskID // task that must be End before floors can change

	Loader     AssetLoader
	Store      CheckpointStore
	Narratives NarrativeSource
	Scenes     SceneResolver
	Audio      Audio
	Panels     PanelService
	Mask       Mask
	Stage      Stage
	World      World
	HUD        HUD

	Events  events.Publisher // optional
	Metrics *Metrics         // optional
	Logger  *log.Logger      // optional
}

// mode selects the variant of the shared pipeline.
type mode int

const (
	modeChange mode = iota
	modeRespawn
	modeStartup
)

// Orchestrator runs floor transitions one at a time.
type Orchestrator struct {
	cfg    Config
	gate   Gate
	guard  Guard
	logger *log.Logger

	mu         sync.RWMutex
	phase      Phase
	floorID    int
	checkpoint Checkpoint
}

// NewOrchestrator creates an orchestrator admitting requests through gate.
func NewOrchestrator(cfg Config, gate Gate) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Orchestrator{
		cfg:    cfg,
		gate:   gate,
		logger: logger.WithPrefix("transition"),
	}
}

// Start restores the floor stored in the checkpoint. The mask is covered
// immediately and faded out once the floor is installed.
func (o *Orchestrator) Start(ctx context.Context) error {
	cp, err := o.cfg.Store.ReadCheckpoint(ctx)
	if err != nil {
		return fmt.Errorf("failed to read checkpoint: %w", err)
	}

	o.mu.Lock()
	o.checkpoint = cp
	o.mu.Unlock()

	req := Request{FloorID: cp.FloorID, IsUp: true, EntrySymbol: cp.UpSymbol}
	outcome, err := o.run(ctx, req, modeStartup)
	if outcome == OutcomeDropped {
		return ErrInFlight
	}
	return err
}

// RequestChange moves the hero to another floor.
// Rejected and dropped requests return a nil error and have no side effects.
func (o *Orchestrator) RequestChange(ctx context.Context, req Request) (Outcome, error) {
	if !o.gate.IsTaskEnd(o.cfg.GatingTask) {
		o.logger.Debug("floor change rejected", "floor", req.FloorID, "gating_task", o.cfg.GatingTask)
		o.cfg.Metrics.observe(OutcomeRejected, 0)
		return OutcomeRejected, nil
	}
	return o.run(ctx, req, modeChange)
}

// Respawn sends the hero home with full health through the same guarded pipeline.
// Death is not a floor exit, so the gating task is not consulted.
func (o *Orchestrator) Respawn(ctx context.Context) (Outcome, error) {
	return o.run(ctx, Request{FloorID: 0, IsUp: false}, modeRespawn)
}

// Phase returns the phase of the transition in flight, or PhaseIdle.
func (o *Orchestrator) Phase() Phase {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.phase
}

// CurrentFloor returns the floor installed by the last successful transition.
func (o *Orchestrator) CurrentFloor() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.floorID
}

// Checkpoint returns the last persisted checkpoint.
func (o *Orchestrator) Checkpoint() Checkpoint {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.checkpoint
}

// InFlight reports whether a transition holds the guard.
func (o *Orchestrator) InFlight() bool {
	return o.guard.Held()
}

func (o *Orchestrator) run(ctx context.Context, req Request, m mode) (Outcome, error) {
	if !o.guard.TryAcquire() {
		o.logger.Debug("floor change dropped, transition in flight", "floor", req.FloorID)
		o.cfg.Metrics.observe(OutcomeDropped, 0)
		return OutcomeDropped, nil
	}

	started := time.Now()
	o.setPhase(req.FloorID, PhaseAdmitted)

	outcome := OutcomeCompleted
	err := o.pipeline(ctx, req, m)
	if err != nil {
		outcome = OutcomeAborted
		o.logger.Error("floor change aborted", "floor", req.FloorID, "err", err)
		o.recoverMask(ctx)
	} else {
		o.logger.Info("floor changed", "floor", req.FloorID, "up", req.IsUp, "symbol", req.EntrySymbol)
	}

	// Outcome subscribers may retrigger, so the guard is free before they hear about it.
	o.setPhase(req.FloorID, PhaseIdle)
	o.guard.Release()

	elapsed := time.Since(started)
	o.cfg.Metrics.observe(outcome, elapsed)
	o.publish(events.TransitionOutcomeEvent{
		FloorID:   req.FloorID,
		Outcome:   outcome.String(),
		Err:       err,
		Duration:  elapsed,
		Timestamp: time.Now(),
	})
	return outcome, err
}

// pipeline runs the ordered steps. Nothing visible to the player changes
// before the floor assets and background have loaded.
func (o *Orchestrator) pipeline(ctx context.Context, req Request, m mode) error {
	fail := func(phase Phase, step string, err error) error {
		return &StepError{Phase: phase, Step: step, FloorID: req.FloorID, Err: err}
	}

	if m == modeChange {
		o.cfg.Audio.PlayEffect(EffectChangeFloor)
	}
	if m == modeStartup {
		o.cfg.Mask.Cover()
	} else if err := o.cfg.Mask.In(ctx); err != nil {
		return fail(PhaseAdmitted, "mask in", err)
	}

	o.setPhase(req.FloorID, PhaseLoading)
	if err := o.cfg.Loader.LoadFloorAssets(ctx, req.FloorID); err != nil {
		return fail(PhaseLoading, "load floor assets", err)
	}
	bg, err := o.cfg.Loader.LoadNode(ctx, backgroundPath(req.FloorID))
	if err != nil {
		return fail(PhaseLoading, "load background", err)
	}

	o.setPhase(req.FloorID, PhaseMutating)
	o.cfg.Stage.ReplaceBackground(bg)
	o.cfg.World.InitFloor(req.FloorID, req.IsUp, req.EntrySymbol)
	o.cfg.HUD.ChangeSite(req.FloorID)

	o.setPhase(req.FloorID, PhasePersisting)
	o.mu.RLock()
	next := o.checkpoint.Next(req)
	o.mu.RUnlock()
	if err := o.cfg.Store.WriteCheckpoint(ctx, next); err != nil {
		return fail(PhasePersisting, "write checkpoint", err)
	}
	o.mu.Lock()
	o.checkpoint = next
	o.floorID = req.FloorID
	o.mu.Unlock()

	o.setPhase(req.FloorID, PhasePresenting)
	o.cfg.Panels.CloseAll()
	o.cfg.Audio.PlayMusicForScene(o.cfg.Scenes.SceneID(req.FloorID))

	if m == modeChange && req.IsUp {
		o.showNarrative(ctx, req.FloorID)
	}
	if m == modeRespawn {
		o.cfg.World.RespawnHero()
	}

	if err := o.cfg.Mask.Out(ctx); err != nil {
		return fail(PhasePresenting, "mask out", err)
	}
	return nil
}

// showNarrative opens the one-shot story popup for floors that have one.
// A popup that cannot be loaded is skipped; the floor change already succeeded.
func (o *Orchestrator) showNarrative(ctx context.Context, floorID int) {
	narrative, ok := o.cfg.Narratives.NarrativeForFloor(floorID)
	if !ok {
		return
	}
	if _, err := o.cfg.Loader.LoadNode(ctx, prefacePath); err != nil {
		o.logger.Warn("skipping floor narrative", "floor", floorID, "err", err)
		return
	}
	o.cfg.Panels.Open(PanelPreface, narrative)
}

// recoverMask lifts the mask after an abort so the player is not left
// behind an opaque screen. The world is untouched.
func (o *Orchestrator) recoverMask(ctx context.Context) {
	if err := o.cfg.Mask.Out(context.WithoutCancel(ctx)); err != nil {
		o.logger.Warn("failed to lift mask after abort", "err", err)
	}
}

func (o *Orchestrator) setPhase(floorID int, phase Phase) {
	o.mu.Lock()
	o.phase = phase
	o.mu.Unlock()

	o.publish(events.TransitionPhaseEvent{
		FloorID:   floorID,
		Phase:     phase.String(),
		Timestamp: time.Now(),
	})
}

func (o *Orchestrator) publish(e events.Event) {
	if o.cfg.Events != nil {
		o.cfg.Events.Publish(events.TopicFloor, e)
	}
}

func backgroundPath(floorID int) string {
	if floorID == 0 {
		return homeBackgroundPath
	}
	return towerBackgroundPath
}
