// Package telegram connects the bot handler to Telegram through MTProto.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gotd/td/tg"

	"github.com/blockedby/listingbot/internal/bot"
	"github.com/blockedby/listingbot/internal/events"
	"github.com/blockedby/listingbot/internal/logger"
)

// channelIDOffset turns MTProto channel ids into Bot API style chat ids
// (-100xxxxxxxxxx), the form used in groups.yaml.
const channelIDOffset = 1_000_000_000_000

// Handler receives converted updates.
type Handler interface {
	Message(ctx context.Context, in bot.Inbound) error
	FriendRequest(ctx context.Context, contact events.Contact, hello string) error
	BotAddedToGroup(ctx context.Context, inviter events.Contact, chatID int64) error
}

// Updates converts raw MTProto updates for a Handler.
type Updates struct {
	h      Handler
	selfID atomic.Int64
	log    *logger.Logger

	// users outside the contact list that already greeted the bot
	// during this process lifetime
	greetedMu sync.Mutex
	greeted   map[int64]struct{}
}

// NewUpdates creates the update adapter.
func NewUpdates(h Handler, log *logger.Logger) *Updates {
	return &Updates{h: h, log: log, greeted: make(map[int64]struct{})}
}

// SetSelfID records the bot account id, needed to spot the bot being
// added to a group.
func (u *Updates) SetSelfID(id int64) {
	u.selfID.Store(id)
}

// Register installs the message handlers on d.
func (u *Updates) Register(d tg.UpdateDispatcher) {
	d.OnNewMessage(func(ctx context.Context, e tg.Entities, upd *tg.UpdateNewMessage) error {
		return u.handle(ctx, e, upd.Message)
	})
	d.OnNewChannelMessage(func(ctx context.Context, e tg.Entities, upd *tg.UpdateNewChannelMessage) error {
		return u.handle(ctx, e, upd.Message)
	})
}

// handle never fails the update loop; errors are logged.
func (u *Updates) handle(ctx context.Context, e tg.Entities, msg tg.MessageClass) error {
	var err error
	switch m := msg.(type) {
	case *tg.Message:
		if m.Out {
			return nil
		}
		if userID, ok := u.firstGreeting(e, m); ok {
			if ferr := u.h.FriendRequest(ctx, contactFor(e, userID), m.Message); ferr != nil {
				u.log.Error().Err(ferr).Int64("user_id", userID).Msg("telegram: failed to handle friend request")
			}
		}
		err = u.h.Message(ctx, ToInbound(e, m))
	case *tg.MessageService:
		if inviter, chatID, ok := u.botAdded(e, m); ok {
			err = u.h.BotAddedToGroup(ctx, inviter, chatID)
		}
	}

	if err != nil {
		u.log.Error().Err(err).Int("message_id", msg.GetID()).Msg("telegram: failed to handle update")
	}
	return nil
}

// firstGreeting reports whether m is the first private message from a
// user who is not in the account's contact list. Telegram has no friend
// request for user accounts; a stranger writing in is the equivalent.
func (u *Updates) firstGreeting(e tg.Entities, m *tg.Message) (int64, bool) {
	peer, ok := m.PeerID.(*tg.PeerUser)
	if !ok {
		return 0, false
	}
	user := e.Users[peer.UserID]
	if user == nil || user.Contact || user.Bot || user.Self {
		return 0, false
	}

	u.greetedMu.Lock()
	defer u.greetedMu.Unlock()
	if _, seen := u.greeted[peer.UserID]; seen {
		return 0, false
	}
	u.greeted[peer.UserID] = struct{}{}
	return peer.UserID, true
}

func (u *Updates) botAdded(e tg.Entities, m *tg.MessageService) (events.Contact, int64, bool) {
	action, ok := m.Action.(*tg.MessageActionChatAddUser)
	if !ok {
		return events.Contact{}, 0, false
	}

	self := u.selfID.Load()
	for _, id := range action.Users {
		if id == self && self != 0 {
			inviter := events.Contact{}
			if from, ok := m.GetFromID(); ok {
				if pu, ok := from.(*tg.PeerUser); ok {
					inviter = contactFor(e, pu.UserID)
				}
			}
			return inviter, ChatID(m.PeerID), true
		}
	}
	return events.Contact{}, 0, false
}

// ChatID maps a peer to a Bot API style chat id.
func ChatID(peer tg.PeerClass) int64 {
	switch p := peer.(type) {
	case *tg.PeerUser:
		return p.UserID
	case *tg.PeerChat:
		return -p.ChatID
	case *tg.PeerChannel:
		return -(channelIDOffset + p.ChannelID)
	}
	return 0
}

// rawMessage is the payload retained with chat events.
type rawMessage struct {
	ID       int       `json:"id"`
	ChatID   int64     `json:"chat_id"`
	FromID   int64     `json:"from_id,omitempty"`
	Date     time.Time `json:"date"`
	Text     string    `json:"text,omitempty"`
	ImageRef string    `json:"image_ref,omitempty"`
}

// ToInbound converts a message using the users delivered with the update.
func ToInbound(e tg.Entities, m *tg.Message) bot.Inbound {
	in := bot.Inbound{
		ChatID:   ChatID(m.PeerID),
		Text:     m.Message,
		ImageRef: ImageRef(m),
	}

	if userID, ok := senderID(m); ok {
		in.Sender = contactFor(e, userID)
		if user := e.Users[userID]; user != nil && user.Username != "" {
			in.GroupNickname = "@" + user.Username
		}
	}

	raw := rawMessage{
		ID:       m.ID,
		ChatID:   in.ChatID,
		Date:     time.Unix(int64(m.Date), 0).UTC(),
		Text:     m.Message,
		ImageRef: in.ImageRef,
	}
	if userID, ok := senderID(m); ok {
		raw.FromID = userID
	}
	if data, err := json.Marshal(raw); err == nil {
		in.Raw = data
	}

	return in
}

// ImageRef identifies the photo attached to m, or "" without one.
func ImageRef(m *tg.Message) string {
	media, ok := m.GetMedia()
	if !ok {
		return ""
	}
	mp, ok := media.(*tg.MessageMediaPhoto)
	if !ok {
		return ""
	}
	photo, ok := mp.GetPhoto()
	if !ok {
		return ""
	}
	p, ok := photo.(*tg.Photo)
	if !ok {
		return ""
	}
	return fmt.Sprintf("tg-photo:%d", p.ID)
}

// senderID returns the sending user; private chats carry it in PeerID.
func senderID(m *tg.Message) (int64, bool) {
	if from, ok := m.GetFromID(); ok {
		if pu, ok := from.(*tg.PeerUser); ok {
			return pu.UserID, true
		}
		return 0, false
	}
	if pu, ok := m.PeerID.(*tg.PeerUser); ok {
		return pu.UserID, true
	}
	return 0, false
}

func contactFor(e tg.Entities, userID int64) events.Contact {
	c := events.Contact{ID: strconv.FormatInt(userID, 10)}
	if user := e.Users[userID]; user != nil {
		c.Name = DisplayName(user)
	}
	if c.Name == "" {
		c.Name = c.ID
	}
	return c
}

// DisplayName is the user's full name, falling back to the username.
func DisplayName(u *tg.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.Username
	}
	return name
}
