package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aristath/tower/internal/assets"
	"github.com/aristath/tower/internal/audio"
	"github.com/aristath/tower/internal/config"
	"github.com/aristath/tower/internal/events"
	"github.com/aristath/tower/internal/persistence"
	"github.com/aristath/tower/internal/quest"
	"github.com/aristath/tower/internal/router"
	"github.com/aristath/tower/internal/scene"
	"github.com/aristath/tower/internal/transition"
	"github.com/aristath/tower/internal/tui"
)

const heroMaxHP = 100

// app holds every long-lived component of a game session.
type app struct {
	cfg      *config.GameConfig
	logger   *charmlog.Logger
	store    persistence.Store
	registry *prometheus.Registry

	catalog *quest.Catalog
	tracker *quest.Tracker
	assets  *assets.FSLoader
	bag     *scene.Bag
	world   *scene.World
	hud     *scene.HUD
	stage   *scene.Stage
	mask    *scene.Mask
	jukebox *audio.Jukebox
	panels  *tui.PanelHost

	bus      *events.EventBus
	triggers <-chan events.Event
	orch     *transition.Orchestrator
	router   *router.Router
}

// newApp wires the session around an open store. The tracker is restored
// from the store and the catalog's item objectives are registered on top.
func newApp(ctx context.Context, cfg *config.GameConfig, logger *charmlog.Logger, store persistence.Store) (*app, error) {
	catalog, err := cfg.Catalog()
	if err != nil {
		return nil, fmt.Errorf("failed to build task catalog: %w", err)
	}

	records, err := store.LoadTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}
	tracker := quest.NewTracker()
	tracker.Restore(records)
	catalog.Register(tracker)

	fsLoader, err := assets.NewFSLoader(cfg.AssetRoot,
		assets.WithCacheSize(cfg.Assets.CacheSize),
		assets.WithConcurrency(cfg.Assets.Concurrency),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create asset loader: %w", err)
	}
	loader := assets.NewBreakerLoader(fsLoader, assets.DefaultBreakerSettings(), logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	a := &app{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		registry: registry,
		catalog:  catalog,
		tracker:  tracker,
		assets:   fsLoader,
		bag:      scene.NewBag(),
		world:    scene.NewWorld(heroMaxHP),
		hud:      scene.NewHUD(),
		stage:    scene.NewStage(),
		mask:     scene.NewMask(time.Duration(cfg.MaskFadeMS) * time.Millisecond),
		jukebox:  audio.NewJukebox(cfg.Music, logger),
		panels:   tui.NewPanelHost(),
		bus:      events.NewEventBus(),
	}
	a.triggers = a.bus.Subscribe(events.TopicTrigger, 64)

	a.orch = transition.NewOrchestrator(transition.Config{
		GatingTask: quest.TaskID(cfg.GatingTaskID),
		Loader:     loader,
		Store:      store,
		Narratives: cfg,
		Scenes:     cfg,
		Audio:      a.jukebox,
		Panels:     a.panels,
		Mask:       a.mask,
		Stage:      a.stage,
		World:      a.world,
		HUD:        a.hud,
		Events:     a.bus,
		Metrics:    transition.NewMetrics(registry),
		Logger:     logger,
	}, tracker)

	a.router = router.New(router.Config{
		Transitions: a.orch,
		Quests:      tracker,
		Bag:         a.bag,
		Hero:        a.world,
		Panels:      a.panels,
		Audio:       a.jukebox,
		Scenes:      cfg,
		RespawnItem: quest.ItemID(cfg.RespawnItemID),
		Events:      a.bus,
		Logger:      logger,
	})

	return a, nil
}

// status builds the TUI snapshot.
func (a *app) status() tui.Status {
	ws := a.world.State()
	floorID := a.orch.CurrentFloor()
	st := tui.Status{
		FloorID:    floorID,
		Site:       a.hud.Site(),
		Phase:      a.orch.Phase().String(),
		Checkpoint: a.orch.Checkpoint(),
		HP:         ws.HP,
		MaxHP:      ws.MaxHP,
		Respawns:   ws.Respawns,
		Mask:       a.mask.Opacity(),
		Track:      a.jukebox.Current(),
		Effect:     a.jukebox.LastEffect(),
		Questing:   a.tracker.HasRunningTasks(),
	}
	if bundle, ok := a.assets.Bundle(floorID); ok {
		st.AssetFiles = len(bundle.Files)
	}

	for _, def := range a.catalog.Definitions() {
		st.Tasks = append(st.Tasks, tui.TaskLine{ID: def.ID, Name: def.Name, State: a.tracker.State(def.ID)})
	}
	for _, def := range a.catalog.Available(a.tracker) {
		st.Available = append(st.Available, tui.TaskLine{ID: def.ID, Name: def.Name, State: quest.StateNew})
	}

	for _, r := range a.tracker.RunningTasks() {
		line := tui.ActiveLine{TaskLine: tui.TaskLine{ID: r.TaskID, State: r.State}}
		if def, ok := a.catalog.Get(r.TaskID); ok {
			line.Name = def.Name
		}
		if item, ok := a.tracker.RequiredItem(r.TaskID); ok {
			line.Item = item
			line.Held = a.bag.Count(item)
		}
		st.Active = append(st.Active, line)

		// The next monster carries the first item an accepted task still lacks
		if st.Drop == 0 && line.Item != 0 && r.State == quest.StateAccepted && line.Held == 0 {
			st.Drop = line.Item
		}
	}

	for _, id := range a.bag.Items() {
		st.Items = append(st.Items, tui.ItemCount{ID: id, Count: a.bag.Count(id)})
	}
	return st
}

// saveProfile persists task progress.
func (a *app) saveProfile(ctx context.Context) error {
	if err := a.store.SaveTasks(ctx, a.tracker.Snapshot()); err != nil {
		return fmt.Errorf("failed to save tasks: %w", err)
	}
	return nil
}

// finish joins in-flight trigger handling, including respawns started from
// the lose panel, then saves progress within timeout. The game context must
// already be canceled so no new triggers arrive.
func (a *app) finish(timeout time.Duration) error {
	a.router.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return a.saveProfile(ctx)
}

// floorIDs returns the configured floors in ascending order.
func floorIDs(cfg *config.GameConfig) []int {
	ids := make([]int, 0, len(cfg.Floors))
	for id := range cfg.Floors {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// serveMetrics exposes the registry until ctx is done.
func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, logger *charmlog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server failed", "err", err)
	}
}
