package bot

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/blockedby/listingbot/internal/events"
)

// GroupEntry maps one chat to its classification. Group is required;
// nil means the key was missing from the document.
type GroupEntry struct {
	ChatID int64         `yaml:"chat_id"`
	Title  string        `yaml:"title,omitempty"`
	Group  *events.Group `yaml:"group"`
}

// GroupsFile is the YAML document listing classified chats.
type GroupsFile struct {
	Groups []GroupEntry `yaml:"groups"`
}

// GroupTable classifies chats by id. The zero value classifies nothing.
type GroupTable struct {
	byChat map[int64]events.Group
}

// NewGroupTable builds a table, rejecting entries without a group and
// chats listed twice.
func NewGroupTable(entries []GroupEntry) (*GroupTable, error) {
	t := &GroupTable{byChat: make(map[int64]events.Group, len(entries))}
	for _, e := range entries {
		if e.Group == nil {
			return nil, fmt.Errorf("chat %d has no group", e.ChatID)
		}
		if prev, dup := t.byChat[e.ChatID]; dup {
			return nil, fmt.Errorf("chat %d listed as both %s and %s", e.ChatID, prev, *e.Group)
		}
		t.byChat[e.ChatID] = *e.Group
	}
	return t, nil
}

// ParseGroups decodes a groups document.
func ParseGroups(r io.Reader) (*GroupTable, error) {
	var doc GroupsFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode groups: %w", err)
	}
	return NewGroupTable(doc.Groups)
}

// LoadGroups reads the groups file at path. A missing file yields an
// empty table.
func LoadGroups(path string) (*GroupTable, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewGroupTable(nil)
		}
		return nil, fmt.Errorf("open groups file: %w", err)
	}
	defer f.Close()

	return ParseGroups(f)
}

// Classify returns the group of chatID, or GroupNone when unknown.
func (t *GroupTable) Classify(chatID int64) events.Group {
	if t == nil {
		return events.GroupNone
	}
	if g, ok := t.byChat[chatID]; ok {
		return g
	}
	return events.GroupNone
}

// Len returns the number of classified chats.
func (t *GroupTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.byChat)
}
