package domain

import (
	"fmt"
	"time"

	"github.com/iyunix/go-juri/internal/idgen"
)

// Collection is the ordered set of conversations plus the active one.
// It is not safe for concurrent use; the chat controller serializes access.
type Collection struct {
	items  []*Conversation
	active string
}

// NewCollection wraps previously stored conversations. Nothing is active.
func NewCollection(convs []*Conversation) *Collection {
	c := &Collection{}
	c.Append(convs...)
	return c
}

// Create appends a fresh conversation titled "Chat N" and makes it active.
func (c *Collection) Create(now time.Time) *Conversation {
	conv := NewConversation(idgen.ConversationID(), fmt.Sprintf("Chat %d", len(c.items)+1), now)
	c.items = append(c.items, conv)
	c.active = conv.ID
	return conv
}

// Append adds conversations at the end, assigning fresh ids to ones that have none
// or whose id is already taken. Message ids are unique across the collection, so
// messages whose id is taken get a new one too.
func (c *Collection) Append(convs ...*Conversation) {
	taken := c.messageIDs()
	for _, conv := range CompactConversations(convs) {
		if conv.ID == "" || c.IndexOf(conv.ID) >= 0 {
			conv.ID = idgen.ConversationID()
		}
		for _, m := range conv.Messages {
			if _, dup := taken[m.ID]; dup {
				m.ID = idgen.MessageID()
			}
			taken[m.ID] = struct{}{}
		}
		c.items = append(c.items, conv)
	}
}

func (c *Collection) messageIDs() map[string]struct{} {
	ids := make(map[string]struct{})
	for _, conv := range c.items {
		for _, m := range conv.Messages {
			ids[m.ID] = struct{}{}
		}
	}
	return ids
}

func (c *Collection) Len() int {
	return len(c.items)
}

func (c *Collection) At(i int) *Conversation {
	if i < 0 || i >= len(c.items) {
		return nil
	}
	return c.items[i]
}

func (c *Collection) IndexOf(id string) int {
	for i, conv := range c.items {
		if conv.ID == id {
			return i
		}
	}
	return -1
}

func (c *Collection) Find(id string) (*Conversation, bool) {
	if i := c.IndexOf(id); i >= 0 {
		return c.items[i], true
	}
	return nil, false
}

func (c *Collection) ActiveID() string {
	return c.active
}

func (c *Collection) Active() *Conversation {
	if c.active == "" {
		return nil
	}
	conv, _ := c.Find(c.active)
	return conv
}

func (c *Collection) Activate(id string) error {
	if c.IndexOf(id) < 0 {
		return NewNotFoundError("activate", "conversation not found")
	}
	c.active = id
	return nil
}

// Delete removes a conversation. When it was active, the conversation that now sits
// at the same position (or the new last one) becomes active.
func (c *Collection) Delete(id string) error {
	idx := c.IndexOf(id)
	if idx < 0 {
		return NewNotFoundError("delete_conversation", "conversation not found")
	}

	c.items[idx] = nil
	c.items = append(c.items[:idx], c.items[idx+1:]...)

	if c.active != id {
		return nil
	}
	if len(c.items) == 0 {
		c.active = ""
		return nil
	}
	next := idx
	if next > len(c.items)-1 {
		next = len(c.items) - 1
	}
	c.active = c.items[next].ID
	return nil
}

func (c *Collection) DeleteAll() {
	c.items = nil
	c.active = ""
}

// Items returns the live conversations in order. Callers must not keep the slice.
func (c *Collection) Items() []*Conversation {
	return c.items
}

// Snapshot returns a deep copy of every conversation, in order.
func (c *Collection) Snapshot() []*Conversation {
	out := make([]*Conversation, len(c.items))
	for i, conv := range c.items {
		out[i] = conv.Clone()
	}
	return out
}
