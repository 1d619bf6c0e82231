package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/iyunix/go-juri/internal/idgen"
)

const (
	// TitleMaxRunes is how much of the first user message becomes the title.
	TitleMaxRunes = 40
	titleEllipsis = "..."
)

// Conversation represents a single chat thread.
type Conversation struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Messages  []*Message `json:"messages"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// NewConversation creates a conversation seeded with the welcome message.
func NewConversation(id, title string, now time.Time) *Conversation {
	return &Conversation{
		ID:        id,
		Title:     title,
		Messages:  []*Message{NewWelcomeMessage(now)},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Append adds msg at the end and derives the title from the first user message.
func (c *Conversation) Append(msg *Message) {
	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = msg.Timestamp

	if msg.Origin == OriginUser && !msg.IsWelcome && c.UserMessageCount() == 1 {
		if text := strings.TrimSpace(msg.Text); text != "" {
			c.Title = DeriveTitle(text)
		}
	}
}

// EditMessage replaces the text of a user message and drops everything after it.
func (c *Conversation) EditMessage(messageID, newText string, now time.Time) (*Message, error) {
	text := strings.TrimSpace(newText)
	if text == "" {
		return nil, NewValidationError("edit_message", "message cannot be empty")
	}

	idx := c.MessageIndex(messageID)
	if idx < 0 {
		return nil, NewNotFoundError("edit_message", "message not found")
	}
	msg := c.Messages[idx]
	if !msg.Editable() {
		return nil, NewValidationError("edit_message", "only user messages can be edited")
	}

	msg.Text = text
	msg.Edited = true
	editedAt := now
	msg.EditedAt = &editedAt

	c.TruncateAfter(idx, now)
	c.UpdatedAt = now
	return msg, nil
}

// TruncateAfter removes the messages strictly after index. A negative index empties
// the conversation; an index past the end is a no-op.
func (c *Conversation) TruncateAfter(index int, now time.Time) {
	if index >= len(c.Messages)-1 {
		return
	}
	if index < -1 {
		index = -1
	}
	for i := index + 1; i < len(c.Messages); i++ {
		c.Messages[i] = nil
	}
	c.Messages = c.Messages[:index+1]
	c.UpdatedAt = now
}

func (c *Conversation) MessageIndex(messageID string) int {
	for i, m := range c.Messages {
		if m.ID == messageID {
			return i
		}
	}
	return -1
}

func (c *Conversation) Message(messageID string) (*Message, bool) {
	if idx := c.MessageIndex(messageID); idx >= 0 {
		return c.Messages[idx], true
	}
	return nil, false
}

// PrecedingUserMessage returns the nearest user message before index, or -1.
func (c *Conversation) PrecedingUserMessage(index int) int {
	if index > len(c.Messages) {
		index = len(c.Messages)
	}
	for i := index - 1; i >= 0; i-- {
		if c.Messages[i].Origin == OriginUser {
			return i
		}
	}
	return -1
}

// UserMessageCount counts user-authored messages; the welcome message never counts.
func (c *Conversation) UserMessageCount() int {
	n := 0
	for _, m := range c.Messages {
		if m.Origin == OriginUser && !m.IsWelcome {
			n++
		}
	}
	return n
}

func (c *Conversation) LastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return c.Messages[len(c.Messages)-1]
}

// Compact drops nil messages and gives id-less messages a fresh id.
func (c *Conversation) Compact() {
	kept := make([]*Message, 0, len(c.Messages))
	for _, m := range c.Messages {
		if m == nil {
			continue
		}
		if m.ID == "" {
			m.ID = idgen.MessageID()
		}
		kept = append(kept, m)
	}
	c.Messages = kept
}

// CompactConversations drops nil conversations and compacts the rest. Decoded
// documents go through it before use.
func CompactConversations(convs []*Conversation) []*Conversation {
	out := make([]*Conversation, 0, len(convs))
	for _, c := range convs {
		if c == nil {
			continue
		}
		c.Compact()
		out = append(out, c)
	}
	return out
}

// Clone returns a deep copy.
func (c *Conversation) Clone() *Conversation {
	cp := *c
	cp.Messages = make([]*Message, len(c.Messages))
	for i, m := range c.Messages {
		cp.Messages[i] = m.Clone()
	}
	return &cp
}

// DeriveTitle shortens text to TitleMaxRunes runes plus an ellipsis.
func DeriveTitle(text string) string {
	if utf8.RuneCountInString(text) <= TitleMaxRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:TitleMaxRunes]) + titleEllipsis
}
