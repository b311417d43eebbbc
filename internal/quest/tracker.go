package quest

import (
	"sync"
)

// Running is one entry of RunningTasks.
type Running struct {
	TaskID TaskID
	State  State
}

// Record is the persisted projection of a single tracked task.
type Record struct {
	TaskID          TaskID
	State           State
	RequiredItem    ItemID
	HasRequiredItem bool
}

// Tracker maps task ids to lifecycle states and to the item that completes them.
//
// The tracker is a lookup table, not a workflow engine: SetState overwrites
// without checking order. Callers that want ordering enforced use Advance.
type Tracker struct {
	mu sync.RWMutex

	states     map[TaskID]State
	stateOrder []TaskID // first-write order of states

	needs     map[TaskID]ItemID
	needOrder []TaskID // first-write order of needs
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		states: make(map[TaskID]State),
		needs:  make(map[TaskID]ItemID),
	}
}

// State returns the last written state, or StateNew for unseen tasks.
func (t *Tracker) State(id TaskID) State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.states[id]
}

// IsTaskEnd reports whether the task has reached StateEnd.
func (t *Tracker) IsTaskEnd(id TaskID) bool {
	return t.State(id) == StateEnd
}

// SetState overwrites the task state unconditionally.
func (t *Tracker) SetState(id TaskID, state State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.setLocked(id, state)
}

func (t *Tracker) setLocked(id TaskID, state State) {
	if _, seen := t.states[id]; !seen {
		t.stateOrder = append(t.stateOrder, id)
	}
	t.states[id] = state
}

// Advance moves a task one step along New -> Accepted -> Finished -> End.
// Any other change returns a *TransitionError and leaves the state untouched.
func (t *Tracker) Advance(id TaskID, to State) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	from := t.states[id]
	if want, ok := next[from]; !ok || want != to {
		return &TransitionError{TaskID: id, From: from, To: to}
	}
	t.setLocked(id, to)
	return nil
}

// SetRequiredItem associates exactly one required item with a task.
func (t *Tracker) SetRequiredItem(id TaskID, item ItemID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, seen := t.needs[id]; !seen {
		t.needOrder = append(t.needOrder, id)
	}
	t.needs[id] = item
}

// RequiredItem returns the item associated with a task, if any.
func (t *Tracker) RequiredItem(id TaskID) (ItemID, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	item, ok := t.needs[id]
	return item, ok
}

// RunningTasks returns every task in StateAccepted or StateFinished.
func (t *Tracker) RunningTasks() []Running {
	t.mu.RLock()
	defer t.mu.RUnlock()

	running := []Running{}
	for _, id := range t.stateOrder {
		if state := t.states[id]; state.Running() {
			running = append(running, Running{TaskID: id, State: state})
		}
	}
	return running
}

// HasRunningTasks reports whether any task is accepted or finished.
func (t *Tracker) HasRunningTasks() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, state := range t.states {
		if state.Running() {
			return true
		}
	}
	return false
}

// NeedsItem reports whether an accepted task is waiting on the item.
func (t *Tracker) NeedsItem(item ItemID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, id := range t.needOrder {
		if t.needs[id] == item && t.states[id] == StateAccepted {
			return true
		}
	}
	return false
}

// OnItemAcquired finishes the first accepted task that requires the item.
// At most one task changes per call, even when several share the item.
func (t *Tracker) OnItemAcquired(item ItemID) (TaskID, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, id := range t.needOrder {
		if t.needs[id] == item && t.states[id] == StateAccepted {
			t.setLocked(id, StateFinished)
			return id, true
		}
	}
	return 0, false
}

// Snapshot returns every tracked task, states first then item-only tasks.
func (t *Tracker) Snapshot() []Record {
	t.mu.RLock()
	defer t.mu.RUnlock()

	records := make([]Record, 0, len(t.stateOrder)+len(t.needOrder))
	seen := make(map[TaskID]bool, len(t.stateOrder))
	for _, id := range t.stateOrder {
		item, ok := t.needs[id]
		records = append(records, Record{TaskID: id, State: t.states[id], RequiredItem: item, HasRequiredItem: ok})
		seen[id] = true
	}
	for _, id := range t.needOrder {
		if seen[id] {
			continue
		}
		records = append(records, Record{TaskID: id, State: StateNew, RequiredItem: t.needs[id], HasRequiredItem: true})
	}
	return records
}

// Restore replaces all tracked state with the given records.
func (t *Tracker) Restore(records []Record) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.states = make(map[TaskID]State, len(records))
	t.needs = make(map[TaskID]ItemID, len(records))
	t.stateOrder = nil
	t.needOrder = nil

	for _, r := range records {
		t.setLocked(r.TaskID, r.State)
		if r.HasRequiredItem {
			if _, seen := t.needs[r.TaskID]; !seen {
				t.needOrder = append(t.needOrder, r.TaskID)
			}
			t.needs[r.TaskID] = r.RequiredItem
		}
	}
}
