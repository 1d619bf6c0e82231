package domain

import (
	"fmt"
	"time"

	"github.com/iyunix/go-juri/internal/idgen"
)

// Origin says who authored a message.
type Origin uint8

const (
	OriginUser Origin = iota + 1
	OriginAssistant
)

func (o Origin) String() string {
	switch o {
	case OriginUser:
		return "user"
	case OriginAssistant:
		return "assistant"
	default:
		return "unknown"
	}
}

func (o Origin) MarshalText() ([]byte, error) {
	switch o {
	case OriginUser, OriginAssistant:
		return []byte(o.String()), nil
	default:
		return nil, fmt.Errorf("invalid message origin %d", o)
	}
}

// UnmarshalText also accepts "ai", the name older exports used for the assistant.
func (o *Origin) UnmarshalText(text []byte) error {
	switch string(text) {
	case "user":
		*o = OriginUser
	case "assistant", "ai":
		*o = OriginAssistant
	default:
		return fmt.Errorf("invalid message origin %q", string(text))
	}
	return nil
}

// Endpoint names the remote endpoint that produced an assistant reply.
type Endpoint string

const (
	EndpointQuery    Endpoint = "query"
	EndpointDocument Endpoint = "document"
)

// Message represents a single message within a conversation.
type Message struct {
	ID        string    `json:"id"`
	Origin    Origin    `json:"from"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`

	IsWelcome   bool       `json:"isWelcome,omitempty"`
	IsError     bool       `json:"isError,omitempty"`
	Edited      bool       `json:"edited,omitempty"`
	EditedAt    *time.Time `json:"editedAt,omitempty"`
	Regenerated bool       `json:"regenerated,omitempty"`

	Endpoint         Endpoint `json:"webhookUsed,omitempty"`
	AttachedFileName string   `json:"fileName,omitempty"`
}

func NewUserMessage(text, fileName string, now time.Time) *Message {
	return &Message{
		ID:               idgen.MessageID(),
		Origin:           OriginUser,
		Text:             text,
		Timestamp:        now,
		AttachedFileName: fileName,
	}
}

func NewAssistantMessage(text string, endpoint Endpoint, now time.Time) *Message {
	return &Message{
		ID:        idgen.MessageID(),
		Origin:    OriginAssistant,
		Text:      text,
		Timestamp: now,
		Endpoint:  endpoint,
	}
}

// NewErrorMessage builds the assistant message that stands in for a failed turn.
func NewErrorMessage(text string, now time.Time) *Message {
	return &Message{
		ID:        idgen.MessageID(),
		Origin:    OriginAssistant,
		Text:      text,
		Timestamp: now,
		IsError:   true,
	}
}

func NewWelcomeMessage(now time.Time) *Message {
	return &Message{
		ID:        idgen.MessageID(),
		Origin:    OriginAssistant,
		Text:      WelcomeText,
		Timestamp: now,
		IsWelcome: true,
	}
}

// Editable reports whether the message can be edited and resent.
func (m *Message) Editable() bool {
	switch m.Origin {
	case OriginUser:
		return true
	case OriginAssistant:
		return false
	default:
		return false
	}
}

// Regenerable reports whether the message can be replaced by a fresh reply.
func (m *Message) Regenerable() bool {
	switch m.Origin {
	case OriginAssistant:
		return !m.IsWelcome
	case OriginUser:
		return false
	default:
		return false
	}
}

// Clone returns a deep copy.
func (m *Message) Clone() *Message {
	c := *m
	if m.EditedAt != nil {
		t := *m.EditedAt
		c.EditedAt = &t
	}
	return &c
}

// WelcomeText seeds every new conversation.
const WelcomeText = `Hello! I'm Juri, your AI legal assistant. I can help you with:

**UK Legal Queries**
- Employment rights and regulations
- Contract law and disputes
- Property and tenancy law
- Business and corporate law
- Consumer rights and protection

**Document Processing**
- Legal document analysis
- Contract review and summary
- Policy interpretation
- Compliance checking

Feel free to ask me any legal question or upload a document for analysis. How can I assist you today?`
