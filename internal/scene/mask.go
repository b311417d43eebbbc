// Package scene holds the in-process scene collaborators driven by floor
// transitions: the fade mask, the background stage, the floor world, the HUD
// and the hero's bag. Each is safe for concurrent use.
package scene

import (
	"context"
	"sync"
	"time"
)

const maskFrame = 16 * time.Millisecond

// Mask is a full-screen fade. Opacity 1 hides the scene, 0 shows it.
type Mask struct {
	mu       sync.Mutex
	opacity  float64
	duration time.Duration
	onChange func(opacity float64)
}

// NewMask creates a transparent mask that fades over duration.
// A zero duration makes fades instant.
func NewMask(duration time.Duration) *Mask {
	return &Mask{duration: duration}
}

// OnChange registers a callback invoked on every opacity change.
func (m *Mask) OnChange(fn func(opacity float64)) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

// Opacity returns the current opacity.
func (m *Mask) Opacity() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opacity
}

// Covered reports whether the scene is fully hidden.
func (m *Mask) Covered() bool {
	return m.Opacity() >= 1
}

// Cover hides the scene immediately.
func (m *Mask) Cover() {
	m.set(1)
}

// In fades the mask to opaque.
func (m *Mask) In(ctx context.Context) error {
	return m.fade(ctx, 1)
}

// Out fades the mask to transparent.
func (m *Mask) Out(ctx context.Context) error {
	return m.fade(ctx, 0)
}

func (m *Mask) fade(ctx context.Context, target float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	start := m.Opacity()
	if m.duration <= 0 || start == target {
		m.set(target)
		return nil
	}

	ticker := time.NewTicker(maskFrame)
	defer ticker.Stop()
	began := time.Now()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			progress := float64(now.Sub(began)) / float64(m.duration)
			if progress >= 1 {
				m.set(target)
				return nil
			}
			m.set(start + (target-start)*progress)
		}
	}
}

func (m *Mask) set(opacity float64) {
	m.mu.Lock()
	m.opacity = opacity
	fn := m.onChange
	m.mu.Unlock()

	if fn != nil {
		fn(opacity)
	}
}
