package api

import (
	"time"

	"github.com/blockedby/listingbot/internal/listing"
	"github.com/blockedby/listingbot/internal/repository"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string `json:"status" example:"ok" description:"Health status"`
	Version string `json:"version" example:"dev" description:"Application version"`
}

// LogCounters are the counters of one append-only log.
type LogCounters struct {
	Written int64 `json:"written" description:"Records appended"`
	Dropped int64 `json:"dropped" description:"Records lost to write failures"`
}

// StatsResponse reports stored listings and both append-only logs.
type StatsResponse struct {
	Listings   *repository.ListingStats `json:"listings,omitempty"`
	EventLog   LogCounters              `json:"event_log"`
	ListingLog LogCounters              `json:"listing_log"`
}

// DebugRequest carries an operator note.
type DebugRequest struct {
	Note string `json:"note" example:"restarted after deploy" description:"Free-form note"`
}

// DebugResponse acknowledges a note.
type DebugResponse struct {
	Status string `json:"status" example:"logged"`
}

// ListingResponse represents a listing in API responses.
type ListingResponse struct {
	UID           string    `json:"uid" description:"Listing key derived from the poster"`
	OwnerID       string    `json:"owner_id" description:"Account the listing is filed under"`
	Title         string    `json:"title" description:"First characters of the content"`
	Content       string    `json:"content"`
	Group         string    `json:"group" example:"SouthBayEast" description:"Housing group the post came from"`
	ContactChatID string    `json:"contact_chat_id,omitempty" description:"Poster id on the chat network"`
	ImageIDs      []string  `json:"image_ids" description:"Image references in arrival order"`
	LastUpdated   time.Time `json:"last_updated"`
}

// ListingFromDomain converts a stored listing.
func ListingFromDomain(l *listing.Listing) ListingResponse {
	images := l.ImageIDs
	if images == nil {
		images = []string{}
	}
	return ListingResponse{
		UID:           l.UID,
		OwnerID:       l.OwnerID,
		Title:         l.Title,
		Content:       l.Content,
		Group:         l.Group.String(),
		ContactChatID: l.ContactChatID,
		ImageIDs:      images,
		LastUpdated:   l.LastUpdated,
	}
}
