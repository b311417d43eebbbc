// Package router turns trigger events into floor transitions and quest updates.
package router

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/aristath/tower/internal/events"
	"github.com/aristath/tower/internal/quest"
	"github.com/aristath/tower/internal/transition"
)

// Transitions is the part of the orchestrator the router drives.
type Transitions interface {
	RequestChange(ctx context.Context, req transition.Request) (transition.Outcome, error)
	Respawn(ctx context.Context) (transition.Outcome, error)
	CurrentFloor() int
}

// Quests is the part of the task tracker the router reads and updates.
type Quests interface {
	NeedsItem(item quest.ItemID) bool
	OnItemAcquired(item quest.ItemID) (quest.TaskID, bool)
	State(id quest.TaskID) quest.State
	Advance(id quest.TaskID, to quest.State) error
}

// Bag is the hero's inventory.
type Bag interface {
	HasItem(item quest.ItemID) bool
	AddItem(item quest.ItemID, count int)
	ReduceItem(item quest.ItemID, count int) bool
}

// Hero is the fighter whose health a battle decides.
type Hero interface {
	Kill()
	RestoreHealth()
}

// LoseChoice is the payload of the lose panel. The panel calls exactly one
// of the handlers.
type LoseChoice struct {
	Confirm func() // spend a respawn item and keep fighting
	Cancel  func() // go home
}

// Config wires the router to its collaborators.
type Config struct {
	Transitions Transitions
	Quests      Quests
	Bag         Bag
	Hero        Hero
	Panels      transition.PanelService
	Audio       transition.Audio
	Scenes      transition.SceneResolver
	RespawnItem quest.ItemID

	Events events.Publisher // optional
	Logger *log.Logger      // optional
}

// Router dispatches trigger events.
type Router struct {
	cfg    Config
	logger *log.Logger
	wg     sync.WaitGroup
}

// New creates a router.
func New(cfg Config) *Router {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Router{cfg: cfg, logger: logger.WithPrefix("router")}
}

// ExitReached handles the hero stepping on a stair connector.
func (r *Router) ExitReached(ctx context.Context, req transition.Request) (transition.Outcome, error) {
	return r.cfg.Transitions.RequestChange(ctx, req)
}

// GotoFloor is a scripted jump. It is always treated as ascending.
func (r *Router) GotoFloor(ctx context.Context, floorID int) (transition.Outcome, error) {
	return r.cfg.Transitions.RequestChange(ctx, transition.Request{FloorID: floorID, IsUp: true})
}

// RespawnRequested sends the hero home.
func (r *Router) RespawnRequested(ctx context.Context) (transition.Outcome, error) {
	return r.cfg.Transitions.Respawn(ctx)
}

// BattleOver settles a fight. A won fight may award a quest item; a lost
// fight either offers the respawn item or sends the hero home.
func (r *Router) BattleOver(ctx context.Context, won bool, drop quest.ItemID) {
	if won {
		r.awardDrop(drop)
	} else {
		r.handleLoss(ctx)
		r.cfg.Audio.PlayEffect(transition.EffectLose)
	}
	r.cfg.Audio.PlayMusicForScene(r.cfg.Scenes.SceneID(r.cfg.Transitions.CurrentFloor()))
}

// AdvanceTask moves a task to its next state.
func (r *Router) AdvanceTask(id quest.TaskID) error {
	to, ok := r.cfg.Quests.State(id).Next()
	if !ok {
		return fmt.Errorf("task %d already ended: %w", id, quest.ErrInvalidTransition)
	}
	if err := r.cfg.Quests.Advance(id, to); err != nil {
		return err
	}
	r.logger.Info("task advanced", "task", id, "state", to.String())
	r.publish(events.TopicQuest, events.TaskStateEvent{
		TaskID:    int(id),
		State:     to.String(),
		Timestamp: time.Now(),
	})
	return nil
}

func (r *Router) awardDrop(drop quest.ItemID) {
	// Only items an accepted task is waiting for drop, and only once
	if drop == 0 || !r.cfg.Quests.NeedsItem(drop) || r.cfg.Bag.HasItem(drop) {
		return
	}

	r.cfg.Bag.AddItem(drop, 1)
	taskID, finished := r.cfg.Quests.OnItemAcquired(drop)
	r.cfg.Panels.Open(transition.PanelGetItem, drop)
	r.logger.Info("item acquired", "item", drop, "task", taskID, "finished", finished)

	r.publish(events.TopicQuest, events.ItemAcquiredEvent{
		ItemID:    int(drop),
		TaskID:    int(taskID),
		Finished:  finished,
		Timestamp: time.Now(),
	})
}

func (r *Router) handleLoss(ctx context.Context) {
	r.cfg.Hero.Kill()
	if !r.cfg.Bag.HasItem(r.cfg.RespawnItem) {
		r.respawnAsync(ctx)
		return
	}

	r.cfg.Panels.Open(transition.PanelLose, LoseChoice{
		Confirm: func() {
			if !r.cfg.Bag.ReduceItem(r.cfg.RespawnItem, 1) {
				r.respawnAsync(ctx)
				return
			}
			r.cfg.Hero.RestoreHealth()
			r.cfg.Audio.PlayEffect(transition.EffectRespawn)
		},
		Cancel: func() {
			r.respawnAsync(ctx)
		},
	})
}

// respawnAsync runs the respawn transition without blocking the caller,
// which may be the UI loop answering the lose panel.
func (r *Router) respawnAsync(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if _, err := r.cfg.Transitions.Respawn(ctx); err != nil {
			r.logger.Error("respawn failed", "err", err)
		}
	}()
}

// Run consumes trigger events until ctx is done or sub is closed. Each
// event is dispatched on its own goroutine so that concurrent triggers
// reach the transition guard independently.
func (r *Router) Run(ctx context.Context, sub <-chan events.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-sub:
			if !ok {
				return
			}
			r.wg.Add(1)
			go func() {
				defer r.wg.Done()
				r.Dispatch(ctx, e)
			}()
		}
	}
}

// Wait blocks until all dispatched events have been handled.
func (r *Router) Wait() {
	r.wg.Wait()
}

// Dispatch handles a single trigger event synchronously.
func (r *Router) Dispatch(ctx context.Context, e events.Event) {
	var err error
	switch ev := e.(type) {
	case events.ExitReachedEvent:
		_, err = r.ExitReached(ctx, transition.Request{FloorID: ev.FloorID, IsUp: ev.IsUp, EntrySymbol: ev.Symbol})
	case events.GotoFloorEvent:
		_, err = r.GotoFloor(ctx, ev.FloorID)
	case events.RespawnRequestedEvent:
		_, err = r.RespawnRequested(ctx)
	case events.BattleOverEvent:
		r.BattleOver(ctx, ev.Won, quest.ItemID(ev.DropItem))
	case events.AdvanceTaskEvent:
		err = r.AdvanceTask(quest.TaskID(ev.TaskID))
	default:
		r.logger.Debug("ignoring event", "type", e.EventType())
		return
	}
	if err != nil {
		r.logger.Warn("trigger failed", "type", e.EventType(), "err", err)
	}
}

func (r *Router) publish(topic string, e events.Event) {
	if r.cfg.Events != nil {
		r.cfg.Events.Publish(topic, e)
	}
}
