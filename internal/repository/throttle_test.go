package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockedby/listingbot/internal/listing"
)

type countingRepo struct {
	gets, upserts int
}

func (c *countingRepo) GetByUID(context.Context, string) (*listing.Listing, error) {
	c.gets++
	return nil, nil
}

func (c *countingRepo) Upsert(_ context.Context, l *listing.Listing) (*listing.Listing, error) {
	c.upserts++
	return l, nil
}

func TestThrottled_Delegates(t *testing.T) {
	inner := &countingRepo{}
	repo := NewThrottled(inner, 0, 0)
	ctx := context.Background()

	_, err := repo.GetByUID(ctx, "u")
	require.NoError(t, err)
	_, err = repo.Upsert(ctx, &listing.Listing{UID: "u"})
	require.NoError(t, err)

	assert.Equal(t, 1, inner.gets)
	assert.Equal(t, 1, inner.upserts)
}

func TestThrottled_RespectsContext(t *testing.T) {
	inner := &countingRepo{}
	repo := NewThrottled(inner, 0.01, 1)

	// first call consumes the burst
	_, err := repo.GetByUID(context.Background(), "u")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = repo.Upsert(ctx, &listing.Listing{UID: "u"})
	assert.Error(t, err)
	assert.Equal(t, 0, inner.upserts)
}
