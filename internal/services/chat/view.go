package chat

import (
	"strings"
	"unicode/utf8"

	"github.com/iyunix/go-juri/internal/domain"
)

const previewRunes = 80

// Conversations lists every conversation in collection order.
func (c *Controller) Conversations() []Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	active := c.convs.ActiveID()
	items := c.convs.Items()
	out := make([]Summary, 0, len(items))
	for _, conv := range items {
		s := Summary{
			ID:               conv.ID,
			Title:            conv.Title,
			MessageCount:     len(conv.Messages),
			UserMessageCount: conv.UserMessageCount(),
			CreatedAt:        conv.CreatedAt,
			UpdatedAt:        conv.UpdatedAt,
			Active:           conv.ID == active,
		}
		if last := conv.LastMessage(); last != nil {
			s.LastMessage = preview(last.Text)
		}
		out = append(out, s)
	}
	return out
}

// Conversation returns a copy of one conversation.
func (c *Controller) Conversation(id string) (*domain.Conversation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	conv, ok := c.convs.Find(id)
	if !ok {
		return nil, domain.NewNotFoundError("get_conversation", "conversation not found")
	}
	return conv.Clone(), nil
}

// Active returns a copy of the active conversation, or nil.
func (c *Controller) Active() *domain.Conversation {
	c.mu.Lock()
	defer c.mu.Unlock()

	if conv := c.convs.Active(); conv != nil {
		return conv.Clone()
	}
	return nil
}

// Message returns a copy of one message.
func (c *Controller) Message(conversationID, messageID string) (*domain.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	conv, ok := c.convs.Find(conversationID)
	if !ok {
		return nil, domain.NewNotFoundError("get_message", "conversation not found")
	}
	msg, ok := conv.Message(messageID)
	if !ok {
		return nil, domain.NewNotFoundError("get_message", "message not found")
	}
	return msg.Clone(), nil
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

// Waiting is the global gate for sends, edits and regenerations.
func (c *Controller) Waiting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight != nil
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Status{
		State:         c.stateLocked(),
		ActiveID:      c.convs.ActiveID(),
		Draft:         c.draft,
		Waiting:       c.inflight != nil,
		Conversations: c.convs.Len(),
	}
	if c.inflight != nil {
		s.PendingConversationID = c.inflight.conversationID
	}
	if c.editing != nil {
		s.EditingMessageID = c.editing.messageID
	}
	return s
}

func (c *Controller) stateLocked() State {
	switch {
	case c.inflight != nil:
		return StateWaiting
	case c.editing != nil:
		return StateEditing
	case c.convs.Active() != nil:
		return StateViewing
	default:
		return StateIdle
	}
}

func (c *Controller) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// SetDraft stores the text currently in the input box.
func (c *Controller) SetDraft(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = text
}

func preview(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= previewRunes {
		return text
	}
	return string([]rune(text)[:previewRunes]) + "..."
}
