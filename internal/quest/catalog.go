package quest

import (
	"errors"
	"fmt"

	"github.com/gammazero/toposort"
)

// ErrCycle is returned when task prerequisites form a cycle.
var ErrCycle = errors.New("task prerequisites contain a cycle")

// Definition describes a task as configured for the tower.
type Definition struct {
	ID           TaskID
	Name         string
	RequiredItem ItemID // zero means the task has no item objective
	After        []TaskID
}

// Catalog is the static list of task definitions.
type Catalog struct {
	defs  []Definition
	index map[TaskID]int
}

// NewCatalog builds a catalog and validates it.
func NewCatalog(defs []Definition) (*Catalog, error) {
	c := &Catalog{
		defs:  make([]Definition, len(defs)),
		index: make(map[TaskID]int, len(defs)),
	}
	copy(c.defs, defs)

	for i, def := range c.defs {
		if _, dup := c.index[def.ID]; dup {
			return nil, fmt.Errorf("duplicate task id %d", def.ID)
		}
		c.index[def.ID] = i
	}

	if _, err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Get returns the definition for a task id.
func (c *Catalog) Get(id TaskID) (Definition, bool) {
	i, ok := c.index[id]
	if !ok {
		return Definition{}, false
	}
	return c.defs[i], true
}

// Definitions returns the definitions in configuration order.
func (c *Catalog) Definitions() []Definition {
	out := make([]Definition, len(c.defs))
	copy(out, c.defs)
	return out
}

// Validate checks prerequisite references and returns task ids in dependency order.
func (c *Catalog) Validate() ([]TaskID, error) {
	var edges []toposort.Edge
	for _, def := range c.defs {
		if len(def.After) == 0 {
			edges = append(edges, toposort.Edge{nil, def.ID})
			continue
		}
		for _, dep := range def.After {
			if _, ok := c.index[dep]; !ok {
				return nil, fmt.Errorf("task %d depends on unknown task %d", def.ID, dep)
			}
			edges = append(edges, toposort.Edge{dep, def.ID})
		}
	}

	sorted, err := toposort.Toposort(edges)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCycle, err)
	}

	order := make([]TaskID, 0, len(c.defs))
	for _, id := range sorted {
		if id != nil {
			order = append(order, id.(TaskID))
		}
	}
	return order, nil
}

// Register records every item objective in the tracker.
func (c *Catalog) Register(t *Tracker) {
	for _, def := range c.defs {
		if def.RequiredItem != 0 {
			t.SetRequiredItem(def.ID, def.RequiredItem)
		}
	}
}

// Available lists tasks still New whose prerequisites have all ended.
func (c *Catalog) Available(t *Tracker) []Definition {
	available := []Definition{}
	for _, def := range c.defs {
		if t.State(def.ID) != StateNew {
			continue
		}
		ready := true
		for _, dep := range def.After {
			if !t.IsTaskEnd(dep) {
				ready = false
				break
			}
		}
		if ready {
			available = append(available, def)
		}
	}
	return available
}
