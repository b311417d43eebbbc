package assets

import (
	"context"
	"errors"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/sony/gobreaker"

	"github.com/aristath/tower/internal/transition"
)

// BreakerSettings configures the circuit breaker around a loader.
type BreakerSettings struct {
	MaxFailures uint32        // consecutive failures before the circuit opens
	OpenTimeout time.Duration // how long the circuit stays open before probing
}

// DefaultBreakerSettings returns the default breaker configuration.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		MaxFailures: 3,
		OpenTimeout: 10 * time.Second,
	}
}

// BreakerLoader wraps an AssetLoader so repeated failures fail fast.
// A missing asset is not counted as a loader failure.
type BreakerLoader struct {
	next transition.AssetLoader
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerLoader wraps next with a circuit breaker.
func NewBreakerLoader(next transition.AssetLoader, settings BreakerSettings, logger *charmlog.Logger) *BreakerLoader {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "assets",
		MaxRequests: 1,
		Interval:    0,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.MaxFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if logger != nil {
				logger.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
			}
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			// Caller cancellation and missing content say nothing about loader health
			return errors.Is(err, context.Canceled) ||
				errors.Is(err, context.DeadlineExceeded) ||
				errors.Is(err, ErrNotFound)
		},
	})
	return &BreakerLoader{next: next, cb: cb}
}

// State returns the breaker state.
func (b *BreakerLoader) State() gobreaker.State {
	return b.cb.State()
}

func (b *BreakerLoader) LoadFloorAssets(ctx context.Context, floorID int) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.LoadFloorAssets(ctx, floorID)
	})
	return err
}

func (b *BreakerLoader) LoadNode(ctx context.Context, path string) (transition.Node, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.LoadNode(ctx, path)
	})
	if err != nil {
		return transition.Node{}, err
	}
	return result.(transition.Node), nil
}
