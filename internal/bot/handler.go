// Package bot turns inbound chat-network events into log records and
// listing updates.
package bot

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/blockedby/listingbot/internal/eventlog"
	"github.com/blockedby/listingbot/internal/events"
	"github.com/blockedby/listingbot/internal/listing"
	"github.com/blockedby/listingbot/internal/logger"
)

// EventLog is the append-only log lifecycle events go to.
type EventLog interface {
	Append(ctx context.Context, rec eventlog.Record) error
}

// ListingRecorder merges listing content.
type ListingRecorder interface {
	RecordText(ctx context.Context, msg listing.Message, group events.Group) error
	RecordImage(ctx context.Context, msg listing.Message, group events.Group, imageRef string) (*listing.Listing, error)
}

// Inbound is a chat message as delivered by the connection layer.
type Inbound struct {
	ChatID        int64
	Sender        events.Contact
	GroupNickname string
	Text          string
	ImageRef      string // already-uploaded image, empty for text
	Raw           json.RawMessage
}

// Handler routes inbound events.
type Handler struct {
	events   EventLog
	listings ListingRecorder
	groups   *GroupTable
	log      *logger.Logger
}

// NewHandler creates a new handler. listings may be nil to disable
// listing collection.
func NewHandler(eventLog EventLog, listings ListingRecorder, groups *GroupTable, log *logger.Logger) *Handler {
	return &Handler{
		events:   eventLog,
		listings: listings,
		groups:   groups,
		log:      log,
	}
}

// Debug appends a debug note.
func (h *Handler) Debug(ctx context.Context, note string) error {
	return h.events.Append(ctx, events.NewDebugInfo(note))
}

// FriendRequest logs a friend request.
func (h *Handler) FriendRequest(ctx context.Context, contact events.Contact, hello string) error {
	h.log.Info().Str("contact", contact.Name).Msg("friend request")
	return h.events.Append(ctx, events.NewFriendRequest(&contact, hello))
}

// BotAddedToGroup logs the bot joining chatID, invited by inviter.
func (h *Handler) BotAddedToGroup(ctx context.Context, inviter events.Contact, chatID int64) error {
	group := h.groups.Classify(chatID)
	h.log.Info().
		Int64("chat_id", chatID).
		Str("group", group.String()).
		Str("inviter", inviter.Name).
		Msg("bot added to group")
	return h.events.Append(ctx, events.NewBotAddedToGroup(&inviter, group))
}

// Message logs a chat message and, when it was posted in a classified
// group, feeds it to the listing aggregator.
func (h *Handler) Message(ctx context.Context, in Inbound) error {
	if err := h.events.Append(ctx, events.NewChatEvent(&in.Sender, in.Raw)); err != nil {
		return fmt.Errorf("log chat event: %w", err)
	}

	group := h.groups.Classify(in.ChatID)
	if group == events.GroupNone || h.listings == nil {
		return nil
	}

	msg := listing.Message{
		Sender:        in.Sender,
		GroupNickname: in.GroupNickname,
		Content:       in.Text,
	}

	switch {
	case in.ImageRef != "":
		l, err := h.listings.RecordImage(ctx, msg, group, in.ImageRef)
		if err != nil {
			return fmt.Errorf("record image listing: %w", err)
		}
		h.log.Info().
			Str("uid", l.UID).
			Int("images", len(l.ImageIDs)).
			Msg("listing image collected")
	case in.Text != "":
		if err := h.listings.RecordText(ctx, msg, group); err != nil {
			return fmt.Errorf("record text listing: %w", err)
		}
		h.log.Info().
			Str("contact", in.Sender.Name).
			Str("group", group.String()).
			Msg("listing text collected")
	}

	return nil
}
