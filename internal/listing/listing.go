// Package listing aggregates chat messages and images into per-contact
// listings persisted through a Repository.
package listing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/blockedby/listingbot/internal/events"
)

// TitleLength is the number of characters of content kept as title.
const TitleLength = 25

// ErrNotFound may be returned by a Repository for a missing uid. It is
// treated exactly like a nil result.
var ErrNotFound = errors.New("listing: not found")

// Listing is a record collected from a group on behalf of OwnerID.
type Listing struct {
	UID           string       `json:"uid"`
	OwnerID       string       `json:"owner_id"`
	Title         string       `json:"title"`
	Content       string       `json:"content"`
	Group         events.Group `json:"group"`
	ContactChatID string       `json:"contact_chat_id"`
	ImageIDs      []string     `json:"image_ids"`
	LastUpdated   time.Time    `json:"last_updated"`
}

// Repository is the data-access boundary for listings. GetByUID returns
// (nil, nil) or ErrNotFound when absent. Upsert replaces the full record
// (last write wins) and returns what was stored.
type Repository interface {
	GetByUID(ctx context.Context, uid string) (*Listing, error)
	Upsert(ctx context.Context, l *Listing) (*Listing, error)
}

// Message is the part of an inbound chat message the aggregator needs.
type Message struct {
	Sender        events.Contact
	GroupNickname string
	Content       string
}

// KeyStrategy selects what a listing uid is derived from.
type KeyStrategy int

const (
	// KeyDisplayName derives the uid from the sender's display name.
	// Distinct contacts sharing a display name share one listing.
	KeyDisplayName KeyStrategy = iota
	// KeyContactID derives the uid from the chat-network identifier.
	KeyContactID
)

// ParseKeyStrategy maps config values ("display_name", "contact_id").
func ParseKeyStrategy(s string) (KeyStrategy, error) {
	switch s {
	case "", "display_name":
		return KeyDisplayName, nil
	case "contact_id":
		return KeyContactID, nil
	}
	return KeyDisplayName, fmt.Errorf("unknown listing key strategy %q", s)
}

// DeriveUID returns prefix plus the key part selected by strategy.
func DeriveUID(prefix string, strategy KeyStrategy, c events.Contact) string {
	if strategy == KeyContactID {
		return prefix + c.ID
	}
	return prefix + c.Name
}

// Title returns the first TitleLength characters of content.
func Title(content string) string {
	runes := []rune(content)
	if len(runes) <= TitleLength {
		return content
	}
	return string(runes[:TitleLength])
}

// Clone returns a deep copy.
func (l *Listing) Clone() *Listing {
	if l == nil {
		return nil
	}
	cp := *l
	cp.ImageIDs = append([]string(nil), l.ImageIDs...)
	return &cp
}

// mirrorRecord is the flattened projection appended to the listing log.
type mirrorRecord struct {
	Kind          string `json:"kind"`
	Contact       string `json:"contact"`
	GroupNickname string `json:"group_nickname,omitempty"`
	Content       string `json:"content"`
}

func (mirrorRecord) RecordKind() string { return "listing" }
