package store

import (
	"context"

	"github.com/iyunix/go-juri/internal/domain"
)

// Store is the durable home of the conversation collection. Every backend offers the
// same four operations and must be safe for concurrent use.
type Store interface {
	// LoadAll returns the stored conversations in order. Missing or corrupt data
	// yields an empty result, not an error.
	LoadAll(ctx context.Context) ([]*domain.Conversation, error)
	LoadOne(ctx context.Context, id string) (*domain.Conversation, error)
	// Persist replaces the stored collection with convs.
	Persist(ctx context.Context, convs []*domain.Conversation) error
	Delete(ctx context.Context, id string) error
}

// Logger is the subset of services.Logger used here.
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}
