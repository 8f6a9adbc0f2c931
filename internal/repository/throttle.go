package repository

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/blockedby/listingbot/internal/listing"
)

// Throttled limits the request rate against a remote listing store.
type Throttled struct {
	inner   listing.Repository
	limiter *rate.Limiter
}

var _ listing.Repository = (*Throttled)(nil)

// NewThrottled wraps inner with a limiter of rps requests per second.
// rps <= 0 disables limiting.
func NewThrottled(inner listing.Repository, rps float64, burst int) *Throttled {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &Throttled{
		inner:   inner,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// GetByUID waits for the limiter, then delegates.
func (t *Throttled) GetByUID(ctx context.Context, uid string) (*listing.Listing, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("throttle get listing: %w", err)
	}
	return t.inner.GetByUID(ctx, uid)
}

// Upsert waits for the limiter, then delegates.
func (t *Throttled) Upsert(ctx context.Context, l *listing.Listing) (*listing.Listing, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("throttle upsert listing: %w", err)
	}
	return t.inner.Upsert(ctx, l)
}
