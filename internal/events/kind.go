// Package events defines the loggable bot events and the chat-group taxonomy.
//
// Numeric identifiers of Kind and Group end up in persisted logs. Never
// reuse or reassign one; extend by appending new constants.
package events

import "fmt"

// Kind discriminates LogEvent records.
//
// Next id: 5.
type Kind int

// Kind constants. Permanent.
const (
	KindDebugInfo       Kind = 1
	KindChatEvent       Kind = 2
	KindFriendRequest   Kind = 3
	KindBotAddedToGroup Kind = 4
)

// kindNames is the kind registry. Two constants sharing an id fail to
// compile as duplicate map keys; duplicate names are caught in init.
var kindNames = map[Kind]string{
	KindDebugInfo:       "debug_info",
	KindChatEvent:       "chat_event",
	KindFriendRequest:   "friend_request",
	KindBotAddedToGroup: "bot_added_to_group",
}

var kindByName = invert(kindNames)

// String returns the wire name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Known reports whether k is a registered kind.
func (k Kind) Known() bool {
	_, ok := kindNames[k]
	return ok
}

// ParseKind resolves a wire name to its Kind.
func ParseKind(name string) (Kind, error) {
	if k, ok := kindByName[name]; ok {
		return k, nil
	}
	return 0, fmt.Errorf("unknown event kind %q", name)
}

// invert builds the name index of a registry and panics on duplicate names.
func invert[T comparable](reg map[T]string) map[string]T {
	out := make(map[string]T, len(reg))
	for id, name := range reg {
		if prev, dup := out[name]; dup {
			panic(fmt.Sprintf("events: name %q registered for both %v and %v", name, prev, id))
		}
		out[name] = id
	}
	return out
}
