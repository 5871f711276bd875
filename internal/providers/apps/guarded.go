package apps

import (
	"context"

	"github.com/zou/appbridge/internal/infrastructure/resilience"
	"github.com/zou/appbridge/internal/shared/types"
)

// Guarded wraps a Registry with a circuit breaker. While the breaker is open
// calls fail fast with resilience.ErrCircuitOpen instead of reaching the
// platform. Negative answers are not failures.
type Guarded struct {
	inner   Registry
	breaker *resilience.Breaker
}

// NewGuarded wraps inner with breaker
func NewGuarded(inner Registry, breaker *resilience.Breaker) *Guarded {
	return &Guarded{inner: inner, breaker: breaker}
}

// IsInstalled implements Registry
func (g *Guarded) IsInstalled(ctx context.Context, appID string) (bool, error) {
	var installed bool
	err := g.breaker.Do(ctx, func(ctx context.Context) error {
		var err error
		installed, err = g.inner.IsInstalled(ctx, appID)
		return err
	})
	return installed, err
}

// Launch implements Registry
func (g *Guarded) Launch(ctx context.Context, appID string) (bool, error) {
	var launched bool
	err := g.breaker.Do(ctx, func(ctx context.Context) error {
		var err error
		launched, err = g.inner.Launch(ctx, appID)
		return err
	})
	return launched, err
}

// List passes through to the inner registry when it can enumerate
func (g *Guarded) List(ctx context.Context) ([]types.AppEntry, error) {
	lister, ok := g.inner.(Lister)
	if !ok {
		return nil, nil
	}
	return lister.List(ctx)
}

// Breaker exposes the breaker for health reporting
func (g *Guarded) Breaker() *resilience.Breaker {
	return g.breaker
}
