package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/blockedby/listingbot/internal/events"
	"github.com/blockedby/listingbot/internal/listing"
	"github.com/blockedby/listingbot/internal/logger"
)

// listingRow is the listings table layout.
type listingRow struct {
	UID           string    `gorm:"column:uid;primaryKey"`
	OwnerID       string    `gorm:"column:owner_id;not null"`
	Title         string    `gorm:"column:title"`
	Content       string    `gorm:"column:content"`
	GroupID       int       `gorm:"column:group_id"`
	ContactChatID string    `gorm:"column:contact_chat_id;index"`
	ImageIDs      []string  `gorm:"column:image_ids;serializer:json"`
	LastUpdated   time.Time `gorm:"column:last_updated"`
}

func (listingRow) TableName() string { return "listings" }

// ListingsRepository stores listings through GORM.
type ListingsRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

var _ listing.Repository = (*ListingsRepository)(nil)

// NewListingsRepository creates a new listings repository
func NewListingsRepository(db *gorm.DB, log *logger.Logger) *ListingsRepository {
	return &ListingsRepository{db: db, log: log}
}

// AutoMigrate creates the listings table when missing.
func (r *ListingsRepository) AutoMigrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&listingRow{}); err != nil {
		return fmt.Errorf("migrate listings: %w", err)
	}
	return nil
}

// GetByUID returns the listing or nil when there is none.
func (r *ListingsRepository) GetByUID(ctx context.Context, uid string) (*listing.Listing, error) {
	var row listingRow
	err := r.db.WithContext(ctx).Where("uid = ?", uid).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get listing by uid: %w", err)
	}
	return row.toListing(), nil
}

// Upsert replaces the whole record keyed by uid.
func (r *ListingsRepository) Upsert(ctx context.Context, l *listing.Listing) (*listing.Listing, error) {
	row := fromListing(l)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "uid"}},
			UpdateAll: true,
		}).
		Create(&row).Error
	if err != nil {
		return nil, fmt.Errorf("upsert listing: %w", err)
	}

	r.log.Debug().
		Str("uid", row.UID).
		Int("images", len(row.ImageIDs)).
		Msg("upserted listing")

	return row.toListing(), nil
}

func fromListing(l *listing.Listing) listingRow {
	return listingRow{
		UID:           l.UID,
		OwnerID:       l.OwnerID,
		Title:         l.Title,
		Content:       l.Content,
		GroupID:       int(l.Group),
		ContactChatID: l.ContactChatID,
		ImageIDs:      append([]string(nil), l.ImageIDs...),
		LastUpdated:   l.LastUpdated.UTC(),
	}
}

func (row listingRow) toListing() *listing.Listing {
	return &listing.Listing{
		UID:           row.UID,
		OwnerID:       row.OwnerID,
		Title:         row.Title,
		Content:       row.Content,
		Group:         events.Group(row.GroupID),
		ContactChatID: row.ContactChatID,
		ImageIDs:      append([]string(nil), row.ImageIDs...),
		LastUpdated:   row.LastUpdated.UTC(),
	}
}
