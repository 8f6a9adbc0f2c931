package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow(t *testing.T, ts time.Time) {
	t.Helper()
	prev := now
	now = func() time.Time { return ts }
	t.Cleanup(func() { now = prev })
}

func TestNew_KeepsOnlyRelevantFields(t *testing.T) {
	contact := &Contact{ID: "42", Name: "Alice"}
	group := GroupEastBay
	all := Fields{
		Contact:           contact,
		Group:             &group,
		RawMessage:        json.RawMessage(`{"text":"hi"}`),
		FriendRequestText: "hello there",
		DebugText:         "note",
	}

	tests := []struct {
		kind        Kind
		wantContact bool
		wantGroup   bool
		wantRaw     bool
		wantHello   bool
		wantDebug   bool
	}{
		{KindDebugInfo, false, false, false, false, true},
		{KindChatEvent, true, false, true, false, false},
		{KindFriendRequest, true, false, false, true, false},
		{KindBotAddedToGroup, true, true, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			ev := New(tt.kind, all)

			_, hasContact := ev.Contact()
			_, hasGroup := ev.Group()
			assert.Equal(t, tt.kind, ev.Kind())
			assert.Equal(t, tt.wantContact, hasContact, "contact")
			assert.Equal(t, tt.wantGroup, hasGroup, "group")
			assert.Equal(t, tt.wantRaw, len(ev.RawMessage()) > 0, "raw message")
			assert.Equal(t, tt.wantHello, ev.FriendRequestText() != "", "friend request text")
			assert.Equal(t, tt.wantDebug, ev.DebugText() != "", "debug text")
		})
	}
}

func TestNew_StampsTimestampAtConstruction(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	fixedNow(t, ts)

	ev := NewDebugInfo("boot")

	assert.Equal(t, ts, ev.Timestamp())
}

func TestNew_CopiesInputs(t *testing.T) {
	contact := &Contact{ID: "1", Name: "Bob"}
	raw := json.RawMessage(`{"a":1}`)

	ev := NewChatEvent(contact, raw)
	contact.Name = "Mallory"
	raw[2] = 'b'

	got, ok := ev.Contact()
	require.True(t, ok)
	assert.Equal(t, "Bob", got.Name)
	assert.JSONEq(t, `{"a":1}`, string(ev.RawMessage()))
}

func TestNew_SparseChatEventAccepted(t *testing.T) {
	ev := NewChatEvent(nil, nil)

	data, err := json.Marshal(ev)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "chat_event", m["kind"])
	assert.NotContains(t, m, "contact")
	assert.NotContains(t, m, "raw_message")
}

func TestNew_InvalidRawMessageIsQuoted(t *testing.T) {
	ev := NewChatEvent(nil, json.RawMessage("not json"))

	assert.Equal(t, `"not json"`, string(ev.RawMessage()))
	_, err := json.Marshal(ev)
	assert.NoError(t, err)
}

func TestMarshalJSON_Projection(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	fixedNow(t, ts)

	ev := NewBotAddedToGroup(&Contact{ID: "7", Name: "Carol"}, GroupSeattle)
	data, err := json.Marshal(ev)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"id": "`+ev.ID().String()+`",
		"kind": "bot_added_to_group",
		"kind_id": 4,
		"timestamp": "2024-03-01T12:00:00Z",
		"contact": {"id": "7", "name": "Carol"},
		"group": {"id": 8, "name": "Seattle"}
	}`, string(data))
}

func TestUnmarshalJSON_TrustsKindID(t *testing.T) {
	line := `{"id":"5b7f3c1e-8f5e-4b8a-9a55-0c6f7b1f2a10","kind":"renamed","kind_id":3,"timestamp":"2024-03-01T12:00:00Z","friend_request_text":"hi"}`

	var ev LogEvent
	require.NoError(t, json.Unmarshal([]byte(line), &ev))

	assert.Equal(t, KindFriendRequest, ev.Kind())
	assert.Equal(t, "hi", ev.FriendRequestText())
}
