package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockedby/listingbot/internal/events"
	"github.com/blockedby/listingbot/internal/listing"
)

func TestStatsRepository_GetStats(t *testing.T) {
	repo := setupListingsRepo(t)
	ctx := context.Background()
	today := time.Date(2024, 5, 2, 15, 0, 0, 0, time.UTC)

	seed := []*listing.Listing{
		{UID: "a", OwnerID: "o", Group: events.GroupSouthBayEast, LastUpdated: today.Add(-time.Hour)},
		{UID: "b", OwnerID: "o", Group: events.GroupSouthBayEast, LastUpdated: today.Add(-48 * time.Hour)},
		{UID: "c", OwnerID: "o", Group: events.GroupSeattle, LastUpdated: today},
	}
	for _, l := range seed {
		_, err := repo.Upsert(ctx, l)
		require.NoError(t, err)
	}

	stats := NewStatsRepository(repo.db)
	stats.now = func() time.Time { return today }

	got, err := stats.GetStats(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(3), got.Total)
	assert.Equal(t, int64(2), got.UpdatedToday)
	assert.Equal(t, map[string]int64{"SouthBayEast": 2, "Seattle": 1}, got.ByGroup)
}

func TestStatsRepository_Empty(t *testing.T) {
	repo := setupListingsRepo(t)

	got, err := NewStatsRepository(repo.db).GetStats(context.Background())
	require.NoError(t, err)

	assert.Zero(t, got.Total)
	assert.Empty(t, got.ByGroup)
}
