package events

import (
	"errors"
	"fmt"
)

// ErrUnknownGroup is returned when a group name is not registered.
var ErrUnknownGroup = errors.New("unknown group")

// Group classifies the chat group a message or listing came from.
//
// Next id: 9.
type Group int

// Group constants. Permanent.
const (
	GroupNone         Group = -1
	GroupTest         Group = 0
	GroupSouthBayEast Group = 1
	GroupSouthBayWest Group = 2
	GroupEastBay      Group = 3
	GroupSanFrancisco Group = 4
	GroupMidPeninsula Group = 5
	GroupShortTerm    Group = 6
	GroupOldFriends   Group = 7
	GroupSeattle      Group = 8
)

var groupNames = map[Group]string{
	GroupNone:         "None",
	GroupTest:         "TestGroup",
	GroupSouthBayEast: "SouthBayEast",
	GroupSouthBayWest: "SouthBayWest",
	GroupEastBay:      "EastBay",
	GroupSanFrancisco: "SanFrancisco",
	GroupMidPeninsula: "MidPeninsula",
	GroupShortTerm:    "ShortTerm",
	GroupOldFriends:   "OldFriends",
	GroupSeattle:      "Seattle",
}

var groupByName = invert(groupNames)

func (g Group) String() string {
	if name, ok := groupNames[g]; ok {
		return name
	}
	return fmt.Sprintf("group(%d)", int(g))
}

// Known reports whether g is a registered group.
func (g Group) Known() bool {
	_, ok := groupNames[g]
	return ok
}

// ParseGroup resolves a group name such as "SouthBayEast".
func ParseGroup(name string) (Group, error) {
	if g, ok := groupByName[name]; ok {
		return g, nil
	}
	return GroupNone, fmt.Errorf("%w: %q", ErrUnknownGroup, name)
}

// MarshalText implements encoding.TextMarshaler.
func (g Group) MarshalText() ([]byte, error) {
	if !g.Known() {
		return nil, fmt.Errorf("%w: id %d", ErrUnknownGroup, int(g))
	}
	return []byte(g.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (g *Group) UnmarshalText(text []byte) error {
	parsed, err := ParseGroup(string(text))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}
