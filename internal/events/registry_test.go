package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// ids below are persisted in logs and must never change
func TestKind_PermanentIDs(t *testing.T) {
	assert.Equal(t, 1, int(KindDebugInfo))
	assert.Equal(t, 2, int(KindChatEvent))
	assert.Equal(t, 3, int(KindFriendRequest))
	assert.Equal(t, 4, int(KindBotAddedToGroup))
}

func TestGroup_PermanentIDs(t *testing.T) {
	want := map[string]int{
		"None":         -1,
		"TestGroup":    0,
		"SouthBayEast": 1,
		"SouthBayWest": 2,
		"EastBay":      3,
		"SanFrancisco": 4,
		"MidPeninsula": 5,
		"ShortTerm":    6,
		"OldFriends":   7,
		"Seattle":      8,
	}
	require.Len(t, groupNames, len(want))
	for name, id := range want {
		g, err := ParseGroup(name)
		require.NoError(t, err, name)
		assert.Equal(t, id, int(g), name)
	}
}

func TestParseKind(t *testing.T) {
	for k, name := range kindNames {
		got, err := ParseKind(name)
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}

	_, err := ParseKind("nope")
	assert.Error(t, err)
}

func TestInvert_PanicsOnDuplicateName(t *testing.T) {
	assert.Panics(t, func() {
		invert(map[int]string{1: "a", 2: "a"})
	})
}

func TestKind_StringUnknown(t *testing.T) {
	assert.Equal(t, "kind(99)", Kind(99).String())
	assert.False(t, Kind(99).Known())
}

func TestGroup_TextRoundTripInYAML(t *testing.T) {
	var doc struct {
		Group Group `yaml:"group"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("group: MidPeninsula\n"), &doc))
	assert.Equal(t, GroupMidPeninsula, doc.Group)

	err := yaml.Unmarshal([]byte("group: Atlantis\n"), &doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrUnknownGroup.Error())
}

func TestGroup_MarshalUnknownFails(t *testing.T) {
	_, err := Group(42).MarshalText()
	assert.ErrorIs(t, err, ErrUnknownGroup)
}
