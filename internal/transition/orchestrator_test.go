package transition

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/aristath/tower/internal/events"
	"github.com/aristath/tower/internal/quest"
)

const gatingTask quest.TaskID = 1

// recorder collects collaborator calls in the order they happen.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	copy(out, r.calls)
	return out
}

func (r *recorder) count(prefix string) int {
	n := 0
	for _, c := range r.list() {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

type fakeLoader struct {
	rec      *recorder
	floorErr error
	nodeErrs map[string]error

	// When set, LoadFloorAssets closes entered and waits on release.
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (l *fakeLoader) LoadFloorAssets(ctx context.Context, floorID int) error {
	l.rec.add("load floor %d", floorID)
	if l.entered != nil {
		l.once.Do(func() { close(l.entered) })
		<-l.release
	}
	return l.floorErr
}

func (l *fakeLoader) LoadNode(ctx context.Context, path string) (Node, error) {
	l.rec.add("load node %s", path)
	if err := l.nodeErrs[path]; err != nil {
		return Node{}, err
	}
	return Node{Path: path, Name: path[strings.LastIndex(path, "/")+1:]}, nil
}

type fakeStore struct {
	rec      *recorder
	mu       sync.Mutex
	stored   Checkpoint
	writes   []Checkpoint
	readErr  error
	writeErr error
}

func (s *fakeStore) ReadCheckpoint(ctx context.Context) (Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stored, s.readErr
}

func (s *fakeStore) WriteCheckpoint(ctx context.Context, cp Checkpoint) error {
	s.rec.add("write checkpoint %d", cp.FloorID)
	if s.writeErr != nil {
		return s.writeErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stored = cp
	s.writes = append(s.writes, cp)
	return nil
}

func (s *fakeStore) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.writes)
}

type fakeScene struct {
	rec      *recorder
	payloads []any
}

func (f *fakeScene) Cover()                                { f.rec.add("mask cover") }
func (f *fakeScene) In(ctx context.Context) error          { f.rec.add("mask in"); return nil }
func (f *fakeScene) Out(ctx context.Context) error         { f.rec.add("mask out"); return nil }
func (f *fakeScene) ReplaceBackground(node Node)           { f.rec.add("background %s", node.Name) }
func (f *fakeScene) InitFloor(id int, up bool, sym string) { f.rec.add("init floor %d up=%v", id, up) }
func (f *fakeScene) RespawnHero()                          { f.rec.add("respawn hero") }
func (f *fakeScene) ChangeSite(id int)                     { f.rec.add("site %d", id) }
func (f *fakeScene) PlayEffect(name string)                { f.rec.add("effect %s", name) }
func (f *fakeScene) PlayMusicForScene(id int)              { f.rec.add("music %d", id) }
func (f *fakeScene) StopMusic()                            { f.rec.add("stop music") }
func (f *fakeScene) CloseAll()                             { f.rec.add("close panels") }
func (f *fakeScene) SceneID(floorID int) int               { return 100 + floorID }

func (f *fakeScene) Open(kind string, payload any) {
	f.rec.add("open %s", kind)
	f.payloads = append(f.payloads, payload)
}

type narratives map[int]Narrative

func (n narratives) NarrativeForFloor(floorID int) (Narrative, bool) {
	v, ok := n[floorID]
	return v, ok
}

type harness struct {
	rec     *recorder
	loader  *fakeLoader
	store   *fakeStore
	scene   *fakeScene
	tracker *quest.Tracker
	metrics *Metrics
	orch    *Orchestrator
}

func newHarness(t *testing.T, bus events.Publisher) *harness {
	t.Helper()

	rec := &recorder{}
	h := &harness{
		rec:     rec,
		loader:  &fakeLoader{rec: rec, nodeErrs: map[string]error{}},
		store:   &fakeStore{rec: rec},
		scene:   &fakeScene{rec: rec},
		tracker: quest.NewTracker(),
		metrics: NewMetrics(prometheus.NewRegistry()),
	}
	h.tracker.SetState(gatingTask, quest.StateEnd)

	h.orch = NewOrchestrator(Config{
		GatingTask: gatingTask,
		Loader:     h.loader,
		Store:      h.store,
		Narratives: narratives{3: {Text: "The third floor hums.", TitleArt: "title_3", IconArt: "icon_3"}},
		Scenes:     h.scene,
		Audio:      h.scene,
		Panels:     h.scene,
		Mask:       h.scene,
		Stage:      h.scene,
		World:      h.scene,
		HUD:        h.scene,
		Events:     bus,
		Metrics:    h.metrics,
	}, h.tracker)
	return h
}

func assertCalls(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("call count = %d, want %d\ngot:  %q\nwant: %q", len(got), len(want), got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRequestChangeRejectedWhenGateNotEnded(t *testing.T) {
	bus := events.NewEventBus()
	defer bus.Close()
	sub := bus.Subscribe(events.TopicFloor, 8)

	h := newHarness(t, bus)
	h.tracker.SetState(gatingTask, quest.StateAccepted)

	outcome, err := h.orch.RequestChange(context.Background(), Request{FloorID: 3, IsUp: true, EntrySymbol: "down"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeRejected {
		t.Errorf("outcome = %s, want rejected", outcome)
	}
	if calls := h.rec.list(); len(calls) != 0 {
		t.Errorf("rejected request had side effects: %q", calls)
	}
	if h.store.writeCount() != 0 {
		t.Error("checkpoint written for rejected request")
	}
	if h.orch.InFlight() {
		t.Error("guard held after rejection")
	}
	if got := testutil.ToFloat64(h.metrics.outcomes.WithLabelValues("rejected")); got != 1 {
		t.Errorf("rejected counter = %v, want 1", got)
	}
	select {
	case e := <-sub:
		t.Errorf("rejected request published %T", e)
	default:
	}
}

func TestRequestChangeAscendingWithNarrative(t *testing.T) {
	h := newHarness(t, nil)
	h.store.stored = Checkpoint{FloorID: 1, UpSymbol: "old", MaxFloorID: 1}
	if err := h.orch.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	h.rec.calls = nil

	outcome, err := h.orch.RequestChange(context.Background(), Request{FloorID: 3, IsUp: true, EntrySymbol: "down"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeCompleted {
		t.Fatalf("outcome = %s, want completed", outcome)
	}

	assertCalls(t, h.rec.list(), []string{
		"effect change-floor",
		"mask in",
		"load floor 3",
		"load node prefabs/game/tower_bg",
		"background tower_bg",
		"init floor 3 up=true",
		"site 3",
		"write checkpoint 3",
		"close panels",
		"music 103",
		"load node prefabs/game/preface",
		"open preface",
		"mask out",
	})

	want := Checkpoint{FloorID: 3, UpSymbol: "down", MaxFloorID: 3}
	if h.store.stored != want {
		t.Errorf("stored checkpoint = %+v, want %+v", h.store.stored, want)
	}
	if h.orch.Checkpoint() != want {
		t.Errorf("cached checkpoint = %+v, want %+v", h.orch.Checkpoint(), want)
	}
	if n, ok := h.scene.payloads[0].(Narrative); !ok || n.TitleArt != "title_3" {
		t.Errorf("preface payload = %#v", h.scene.payloads[0])
	}
	if h.orch.InFlight() || h.orch.Phase() != PhaseIdle {
		t.Error("orchestrator not idle after completion")
	}
	if h.orch.CurrentFloor() != 3 {
		t.Errorf("CurrentFloor() = %d, want 3", h.orch.CurrentFloor())
	}
}

func TestRequestChangeCheckpointRules(t *testing.T) {
	tests := []struct {
		name    string
		prev    Checkpoint
		req     Request
		want    Checkpoint
		preface bool
	}{
		{
			name: "descending keeps up symbol and max",
			prev: Checkpoint{FloorID: 5, UpSymbol: "a", MaxFloorID: 5},
			req:  Request{FloorID: 3, IsUp: false, EntrySymbol: "up"},
			want: Checkpoint{FloorID: 3, UpSymbol: "a", MaxFloorID: 5},
		},
		{
			name:    "ascending below max keeps max",
			prev:    Checkpoint{FloorID: 2, UpSymbol: "a", MaxFloorID: 7},
			req:     Request{FloorID: 3, IsUp: true, EntrySymbol: "b"},
			want:    Checkpoint{FloorID: 3, UpSymbol: "b", MaxFloorID: 7},
			preface: true,
		},
		{
			name: "ascending without narrative",
			prev: Checkpoint{FloorID: 3, UpSymbol: "a", MaxFloorID: 3},
			req:  Request{FloorID: 4, IsUp: true, EntrySymbol: "c"},
			want: Checkpoint{FloorID: 4, UpSymbol: "c", MaxFloorID: 4},
		},
		{
			name: "home uses plain max",
			prev: Checkpoint{FloorID: 1, UpSymbol: "a", MaxFloorID: 1},
			req:  Request{FloorID: 0, IsUp: false},
			want: Checkpoint{FloorID: 0, UpSymbol: "a", MaxFloorID: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			h.store.stored = tt.prev
			if err := h.orch.Start(context.Background()); err != nil {
				t.Fatalf("Start failed: %v", err)
			}

			if _, err := h.orch.RequestChange(context.Background(), tt.req); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if h.store.stored != tt.want {
				t.Errorf("stored checkpoint = %+v, want %+v", h.store.stored, tt.want)
			}
			if got := h.rec.count("open preface") == 1; got != tt.preface {
				t.Errorf("preface shown = %v, want %v", got, tt.preface)
			}
		})
	}
}

func TestRequestChangeHomeBackground(t *testing.T) {
	h := newHarness(t, nil)

	if _, err := h.orch.RequestChange(context.Background(), Request{FloorID: 0}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.rec.count("load node prefabs/game/home_bg") != 1 || h.rec.count("background home_bg") != 1 {
		t.Errorf("home background not installed: %q", h.rec.list())
	}
}

func TestRequestChangeAssetLoadFailure(t *testing.T) {
	for _, tt := range []struct {
		name  string
		setup func(h *harness)
	}{
		{name: "floor assets", setup: func(h *harness) { h.loader.floorErr = errors.New("disk gone") }},
		{name: "background", setup: func(h *harness) {
			h.loader.nodeErrs[towerBackgroundPath] = errors.New("missing prefab")
		}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			h.store.stored = Checkpoint{FloorID: 2, UpSymbol: "s", MaxFloorID: 2}
			if err := h.orch.Start(context.Background()); err != nil {
				t.Fatalf("Start failed: %v", err)
			}
			h.rec.calls = nil
			tt.setup(h)

			outcome, err := h.orch.RequestChange(context.Background(), Request{FloorID: 3, IsUp: true, EntrySymbol: "down"})
			if outcome != OutcomeAborted {
				t.Errorf("outcome = %s, want aborted", outcome)
			}
			var stepErr *StepError
			if !errors.As(err, &stepErr) || stepErr.Phase != PhaseLoading {
				t.Fatalf("error = %v, want loading StepError", err)
			}

			for _, prefix := range []string{"background", "init floor", "site", "write checkpoint", "close panels", "music", "open"} {
				if n := h.rec.count(prefix); n != 0 {
					t.Errorf("%q happened %d times after load failure", prefix, n)
				}
			}
			if h.store.writeCount() != 1 {
				t.Errorf("checkpoint writes = %d, want only the startup write", h.store.writeCount())
			}
			if h.orch.Checkpoint().FloorID != 2 || h.orch.CurrentFloor() != 2 {
				t.Error("checkpoint or floor changed after abort")
			}
			if h.orch.InFlight() {
				t.Error("guard still held after abort")
			}
			if h.rec.count("mask out") != 1 {
				t.Error("mask not lifted after abort")
			}

			// Guard is free for a retrigger
			h.loader.floorErr = nil
			delete(h.loader.nodeErrs, towerBackgroundPath)
			if outcome, err := h.orch.RequestChange(context.Background(), Request{FloorID: 3, IsUp: true}); err != nil || outcome != OutcomeCompleted {
				t.Errorf("retrigger = (%s, %v), want completed", outcome, err)
			}
		})
	}
}

func TestRequestChangePersistenceFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.store.writeErr = errors.New("database is locked")

	outcome, err := h.orch.RequestChange(context.Background(), Request{FloorID: 4, IsUp: true})
	if outcome != OutcomeAborted {
		t.Errorf("outcome = %s, want aborted", outcome)
	}
	var stepErr *StepError
	if !errors.As(err, &stepErr) || stepErr.Phase != PhasePersisting {
		t.Fatalf("error = %v, want persisting StepError", err)
	}
	if !strings.Contains(err.Error(), "database is locked") {
		t.Errorf("error does not wrap cause: %v", err)
	}
	if h.orch.Checkpoint() != (Checkpoint{}) {
		t.Errorf("cached checkpoint changed: %+v", h.orch.Checkpoint())
	}
	if h.rec.count("music") != 0 || h.rec.count("open") != 0 {
		t.Error("presentation steps ran after persistence failure")
	}
	if h.orch.InFlight() {
		t.Error("guard still held after abort")
	}
}

func TestRequestChangeDropsConcurrentRequest(t *testing.T) {
	h := newHarness(t, nil)
	h.loader.entered = make(chan struct{})
	h.loader.release = make(chan struct{})

	type result struct {
		outcome Outcome
		err     error
	}
	first := make(chan result, 1)
	go func() {
		outcome, err := h.orch.RequestChange(context.Background(), Request{FloorID: 3, IsUp: true, EntrySymbol: "down"})
		first <- result{outcome, err}
	}()

	select {
	case <-h.loader.entered:
	case <-time.After(time.Second):
		t.Fatal("first transition never reached asset loading")
	}

	// Second request while the first is suspended in loading
	outcome, err := h.orch.RequestChange(context.Background(), Request{FloorID: 5, IsUp: true, EntrySymbol: "down"})
	if err != nil || outcome != OutcomeDropped {
		t.Errorf("second request = (%s, %v), want dropped", outcome, err)
	}

	close(h.loader.release)

	select {
	case r := <-first:
		if r.err != nil || r.outcome != OutcomeCompleted {
			t.Errorf("first request = (%s, %v), want completed", r.outcome, r.err)
		}
	case <-time.After(time.Second):
		t.Fatal("first transition did not complete")
	}

	if n := h.rec.count("load floor"); n != 1 {
		t.Errorf("floor loads = %d, want 1", n)
	}
	if n := h.rec.count("effect"); n != 1 {
		t.Errorf("effects = %d, want 1", n)
	}
	if h.store.writeCount() != 1 || h.store.stored.FloorID != 3 {
		t.Errorf("checkpoint = %+v after %d writes", h.store.stored, h.store.writeCount())
	}
	if got := testutil.ToFloat64(h.metrics.outcomes.WithLabelValues("dropped")); got != 1 {
		t.Errorf("dropped counter = %v, want 1", got)
	}
}

func TestRespawnUsesGuardedPipeline(t *testing.T) {
	h := newHarness(t, nil)
	h.tracker.SetState(gatingTask, quest.StateAccepted) // respawn ignores the gate

	outcome, err := h.orch.Respawn(context.Background())
	if err != nil || outcome != OutcomeCompleted {
		t.Fatalf("Respawn = (%s, %v), want completed", outcome, err)
	}

	calls := h.rec.list()
	if calls[len(calls)-2] != "respawn hero" || calls[len(calls)-1] != "mask out" {
		t.Errorf("respawn must run just before mask out: %q", calls)
	}
	if h.rec.count("load node prefabs/game/home_bg") != 1 {
		t.Error("respawn did not load the home background")
	}
	if h.rec.count("open preface") != 0 {
		t.Error("respawn showed a narrative")
	}
	if h.rec.count("effect") != 0 {
		t.Error("respawn played the floor change effect")
	}

	// A respawn while a transition is in flight is dropped like any other request
	h.orch.guard.TryAcquire()
	defer h.orch.guard.Release()
	if outcome, _ := h.orch.Respawn(context.Background()); outcome != OutcomeDropped {
		t.Errorf("respawn during transition = %s, want dropped", outcome)
	}
}

func TestStartRestoresCheckpoint(t *testing.T) {
	h := newHarness(t, nil)
	h.store.stored = Checkpoint{FloorID: 3, UpSymbol: "down", MaxFloorID: 4}

	if err := h.orch.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	calls := h.rec.list()
	if calls[0] != "mask cover" {
		t.Errorf("first call = %q, want mask cover", calls[0])
	}
	if h.rec.count("effect") != 0 || h.rec.count("mask in") != 0 {
		t.Error("startup played the transition effect or faded in")
	}
	if h.rec.count("open preface") != 0 {
		t.Error("startup showed a narrative")
	}
	if h.store.stored != (Checkpoint{FloorID: 3, UpSymbol: "down", MaxFloorID: 4}) {
		t.Errorf("startup rewrote checkpoint as %+v", h.store.stored)
	}

	h.store.readErr = errors.New("corrupt")
	if err := h.orch.Start(context.Background()); err == nil {
		t.Error("expected error when checkpoint cannot be read")
	}
}

func TestPhaseEventsPublished(t *testing.T) {
	bus := events.NewEventBus()
	defer bus.Close()
	sub := bus.Subscribe(events.TopicFloor, 32)

	h := newHarness(t, bus)
	if _, err := h.orch.RequestChange(context.Background(), Request{FloorID: 2, IsUp: false}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var phases []string
	var outcome string
	for outcome == "" {
		select {
		case e := <-sub:
			switch ev := e.(type) {
			case events.TransitionPhaseEvent:
				phases = append(phases, ev.Phase)
			case events.TransitionOutcomeEvent:
				outcome = ev.Outcome
			}
		case <-time.After(time.Second):
			t.Fatalf("timeout, phases so far: %v", phases)
		}
	}

	want := []string{"admitted", "loading", "mutating", "persisting", "presenting", "idle"}
	if strings.Join(phases, ",") != strings.Join(want, ",") {
		t.Errorf("phases = %v, want %v", phases, want)
	}
	if outcome != "completed" {
		t.Errorf("outcome = %q, want completed", outcome)
	}
}

// retrigger requests another floor change as soon as it hears an outcome.
type retrigger struct {
	orch     *Orchestrator
	mu       sync.Mutex
	inFlight []bool
	phases   []Phase
	outcomes []Outcome
}

func (r *retrigger) Publish(topic string, e events.Event) {
	ev, ok := e.(events.TransitionOutcomeEvent)
	if !ok || ev.FloorID != 2 {
		return
	}
	r.mu.Lock()
	r.inFlight = append(r.inFlight, r.orch.InFlight())
	r.phases = append(r.phases, r.orch.Phase())
	r.mu.Unlock()

	outcome, _ := r.orch.RequestChange(context.Background(), Request{FloorID: 3, IsUp: false})
	r.mu.Lock()
	r.outcomes = append(r.outcomes, outcome)
	r.mu.Unlock()
}

func TestOutcomeSubscriberCanRetrigger(t *testing.T) {
	rt := &retrigger{}
	h := newHarness(t, rt)
	rt.orch = h.orch

	if _, err := h.orch.RequestChange(context.Background(), Request{FloorID: 2, IsUp: false}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()
	if len(rt.outcomes) != 1 {
		t.Fatalf("retriggers = %d, want 1", len(rt.outcomes))
	}
	if rt.inFlight[0] {
		t.Error("guard still held when outcome was published")
	}
	if rt.phases[0] != PhaseIdle {
		t.Errorf("phase at outcome = %v, want idle", rt.phases[0])
	}
	if rt.outcomes[0] != OutcomeCompleted {
		t.Errorf("retrigger outcome = %v, want completed", rt.outcomes[0])
	}
	if got := h.orch.CurrentFloor(); got != 3 {
		t.Errorf("current floor = %d, want 3", got)
	}
}
