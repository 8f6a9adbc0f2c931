package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/blockedby/listingbot/internal/events"
)

// ListingStats contains aggregated statistics over collected listings.
type ListingStats struct {
	Total        int64            `json:"total"`
	UpdatedToday int64            `json:"updated_today"`
	ByGroup      map[string]int64 `json:"by_group"`
}

// StatsRepository provides access to statistics data in the database.
type StatsRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewStatsRepository creates a new StatsRepository.
func NewStatsRepository(db *gorm.DB) *StatsRepository {
	return &StatsRepository{db: db, now: time.Now}
}

// GetStats counts listings per group and those touched since UTC midnight.
func (r *StatsRepository) GetStats(ctx context.Context) (*ListingStats, error) {
	stats := &ListingStats{ByGroup: map[string]int64{}}

	var rows []struct {
		GroupID int
		Count   int64
	}
	err := r.db.WithContext(ctx).
		Model(&listingRow{}).
		Select("group_id, COUNT(*) AS count").
		Group("group_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("get group stats: %w", err)
	}
	for _, row := range rows {
		stats.ByGroup[events.Group(row.GroupID).String()] += row.Count
		stats.Total += row.Count
	}

	midnight := r.now().UTC().Truncate(24 * time.Hour)
	err = r.db.WithContext(ctx).
		Model(&listingRow{}).
		Where("last_updated >= ?", midnight).
		Count(&stats.UpdatedToday).Error
	if err != nil {
		return nil, fmt.Errorf("get daily stats: %w", err)
	}

	return stats, nil
}
