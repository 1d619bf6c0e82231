package chat

import (
	"errors"
	"time"
)

// Logger defines the logging interface used across chat services
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

var ErrClosed = errors.New("chat controller is closed")

// State is derived from the controller's fields on every read.
type State int

const (
	StateIdle State = iota
	StateViewing
	StateWaiting
	StateEditing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateViewing:
		return "viewing"
	case StateWaiting:
		return "waiting"
	case StateEditing:
		return "editing"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type EventKind string

const (
	// EventChanged means conversations or controller state changed and views should refresh.
	EventChanged EventKind = "changed"
	// EventNotice carries a transient user notification.
	EventNotice EventKind = "notice"
)

type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

type Notice struct {
	Level NoticeLevel `json:"level"`
	Text  string      `json:"text"`
}

// Event is delivered to the change hook.
type Event struct {
	Kind           EventKind `json:"kind"`
	ConversationID string    `json:"conversationId,omitempty"`
	Notice         *Notice   `json:"notice,omitempty"`
	At             time.Time `json:"at"`
}

// Summary is the list view of one conversation.
type Summary struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	MessageCount     int       `json:"messageCount"`
	UserMessageCount int       `json:"userMessageCount"`
	LastMessage      string    `json:"lastMessage,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
	Active           bool      `json:"active"`
}

// Status is a point-in-time view of the controller.
type Status struct {
	State                 State  `json:"state"`
	ActiveID              string `json:"activeId,omitempty"`
	Draft                 string `json:"draft"`
	Waiting               bool   `json:"waiting"`
	PendingConversationID string `json:"pendingConversationId,omitempty"`
	EditingMessageID      string `json:"editingMessageId,omitempty"`
	Conversations         int    `json:"conversations"`
}
