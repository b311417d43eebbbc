package transition

import "sync/atomic"

// Guard is the single in-flight token for floor transitions.
// A request that finds it held is dropped, never queued.
type Guard struct {
	held atomic.Bool
}

// TryAcquire takes the token if it is free.
func (g *Guard) TryAcquire() bool {
	return g.held.CompareAndSwap(false, true)
}

// Release frees the token. It must follow every successful TryAcquire.
func (g *Guard) Release() {
	g.held.Store(false)
}

// Held reports whether a transition is in flight.
func (g *Guard) Held() bool {
	return g.held.Load()
}
