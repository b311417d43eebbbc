package scene

import (
	"sort"
	"sync"

	"github.com/aristath/tower/internal/quest"
)

// Bag is the hero's inventory of item counts.
type Bag struct {
	mu    sync.Mutex
	items map[quest.ItemID]int
}

func NewBag() *Bag {
	return &Bag{items: make(map[quest.ItemID]int)}
}

// HasItem reports whether at least one of item is held.
func (b *Bag) HasItem(item quest.ItemID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.items[item] > 0
}

// AddItem adds count of item. Non-positive counts are ignored.
func (b *Bag) AddItem(item quest.ItemID, count int) {
	if count <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items[item] += count
}

// ReduceItem removes count of item and reports whether enough were held.
// Nothing is removed when the bag holds fewer than count.
func (b *Bag) ReduceItem(item quest.ItemID, count int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.items[item] < count {
		return false
	}
	b.items[item] -= count
	if b.items[item] == 0 {
		delete(b.items, item)
	}
	return true
}

// Count returns how many of item are held.
func (b *Bag) Count(item quest.ItemID) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.items[item]
}

// Items returns held item ids in ascending order.
func (b *Bag) Items() []quest.ItemID {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make([]quest.ItemID, 0, len(b.items))
	for id := range b.items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
