package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// now is swapped in tests.
var now = time.Now

// Contact identifies the chat-network user an event originated from.
type Contact struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Fields carries the optional payload of a LogEvent. Only the fields
// relevant to the chosen Kind are kept; the rest are dropped silently.
type Fields struct {
	Contact           *Contact
	Group             *Group
	RawMessage        json.RawMessage
	FriendRequestText string
	DebugText         string
}

// LogEvent is one immutable, write-once record of something the bot saw.
type LogEvent struct {
	id        uuid.UUID
	kind      Kind
	timestamp time.Time
	fields    Fields
}

// New builds a LogEvent stamped with the current time. No validation is
// done: a chat event without a payload is still a valid, sparse record.
func New(kind Kind, f Fields) *LogEvent {
	ev := &LogEvent{
		id:        uuid.New(),
		kind:      kind,
		timestamp: now().UTC(),
	}

	switch kind {
	case KindChatEvent:
		ev.fields.Contact = copyContact(f.Contact)
		ev.fields.RawMessage = normalizeRaw(f.RawMessage)
	case KindFriendRequest:
		ev.fields.Contact = copyContact(f.Contact)
		ev.fields.FriendRequestText = f.FriendRequestText
	case KindBotAddedToGroup:
		ev.fields.Contact = copyContact(f.Contact)
		if f.Group != nil {
			g := *f.Group
			ev.fields.Group = &g
		}
	case KindDebugInfo:
		ev.fields.DebugText = f.DebugText
	}

	return ev
}

// NewDebugInfo records a free-form debug note.
func NewDebugInfo(text string) *LogEvent {
	return New(KindDebugInfo, Fields{DebugText: text})
}

// NewChatEvent records an inbound chat message.
func NewChatEvent(contact *Contact, raw json.RawMessage) *LogEvent {
	return New(KindChatEvent, Fields{Contact: contact, RawMessage: raw})
}

// NewFriendRequest records a friend request and its greeting.
func NewFriendRequest(contact *Contact, hello string) *LogEvent {
	return New(KindFriendRequest, Fields{Contact: contact, FriendRequestText: hello})
}

// NewBotAddedToGroup records the bot being added to a classified group.
func NewBotAddedToGroup(contact *Contact, group Group) *LogEvent {
	return New(KindBotAddedToGroup, Fields{Contact: contact, Group: &group})
}

func (e *LogEvent) ID() uuid.UUID        { return e.id }
func (e *LogEvent) Kind() Kind           { return e.kind }
func (e *LogEvent) Timestamp() time.Time { return e.timestamp }

// Contact returns a copy of the originating contact, if any.
func (e *LogEvent) Contact() (Contact, bool) {
	if e.fields.Contact == nil {
		return Contact{}, false
	}
	return *e.fields.Contact, true
}

// Group returns the group classification, if any.
func (e *LogEvent) Group() (Group, bool) {
	if e.fields.Group == nil {
		return GroupNone, false
	}
	return *e.fields.Group, true
}

// RawMessage returns a copy of the retained message payload.
func (e *LogEvent) RawMessage() json.RawMessage { return cloneRaw(e.fields.RawMessage) }

func (e *LogEvent) FriendRequestText() string { return e.fields.FriendRequestText }
func (e *LogEvent) DebugText() string         { return e.fields.DebugText }

// RecordKind names the record for the append-only log.
func (e *LogEvent) RecordKind() string { return e.kind.String() }

type groupRecord struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// record is the stable on-disk projection of a LogEvent.
type record struct {
	ID                string          `json:"id"`
	Kind              string          `json:"kind"`
	KindID            int             `json:"kind_id"`
	Timestamp         time.Time       `json:"timestamp"`
	Contact           *Contact        `json:"contact,omitempty"`
	Group             *groupRecord    `json:"group,omitempty"`
	RawMessage        json.RawMessage `json:"raw_message,omitempty"`
	FriendRequestText string          `json:"friend_request_text,omitempty"`
	DebugText         string          `json:"debug_text,omitempty"`
}

// MarshalJSON writes the fixed field-by-field projection.
func (e *LogEvent) MarshalJSON() ([]byte, error) {
	r := record{
		ID:                e.id.String(),
		Kind:              e.kind.String(),
		KindID:            int(e.kind),
		Timestamp:         e.timestamp,
		Contact:           e.fields.Contact,
		RawMessage:        e.fields.RawMessage,
		FriendRequestText: e.fields.FriendRequestText,
		DebugText:         e.fields.DebugText,
	}
	if g := e.fields.Group; g != nil {
		r.Group = &groupRecord{ID: int(*g), Name: g.String()}
	}
	return json.Marshal(r)
}

// UnmarshalJSON reads a record back. kind_id is authoritative; the name is
// informational only.
func (e *LogEvent) UnmarshalJSON(data []byte) error {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}

	id, err := uuid.Parse(r.ID)
	if err != nil {
		return fmt.Errorf("parse event id: %w", err)
	}

	*e = LogEvent{
		id:        id,
		kind:      Kind(r.KindID),
		timestamp: r.Timestamp,
		fields: Fields{
			Contact:           r.Contact,
			RawMessage:        r.RawMessage,
			FriendRequestText: r.FriendRequestText,
			DebugText:         r.DebugText,
		},
	}
	if r.Group != nil {
		g := Group(r.Group.ID)
		e.fields.Group = &g
	}
	return nil
}

func copyContact(c *Contact) *Contact {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

// normalizeRaw keeps valid JSON as is and quotes anything else as a string.
func normalizeRaw(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	if json.Valid(raw) {
		return cloneRaw(raw)
	}
	quoted, _ := json.Marshal(string(raw))
	return quoted
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	return append(json.RawMessage(nil), raw...)
}
