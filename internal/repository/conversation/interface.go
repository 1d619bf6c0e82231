package conversation

import (
	"context"

	"github.com/iyunix/go-juri/internal/domain"
)

// ConversationRepository handles server-side conversation persistence.
type ConversationRepository interface {
	ListAll(ctx context.Context) ([]*domain.Conversation, error)
	FindByID(ctx context.Context, id string) (*domain.Conversation, error)
	Save(ctx context.Context, conv *domain.Conversation) error
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
}
