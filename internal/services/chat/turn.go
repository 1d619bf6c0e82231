package chat

import (
	"context"

	"github.com/iyunix/go-juri/internal/domain"
)

// Turn tracks one outstanding request. It completes when the reply or the error
// message has been appended, or when the reply was dropped.
type Turn struct {
	ConversationID string
	Regenerated    bool

	done  chan struct{}
	reply *domain.Message
}

func newTurn(conversationID string, regenerated bool) *Turn {
	return &Turn{
		ConversationID: conversationID,
		Regenerated:    regenerated,
		done:           make(chan struct{}),
	}
}

func (t *Turn) Done() <-chan struct{} {
	return t.done
}

// Reply blocks until the turn completes and returns the appended assistant message,
// or nil if the reply was dropped.
func (t *Turn) Reply() *domain.Message {
	<-t.done
	return t.reply
}

// Wait blocks until the turn completes or ctx ends.
func (t *Turn) Wait(ctx context.Context) (*domain.Message, error) {
	select {
	case <-t.done:
		return t.reply, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *Turn) finish(reply *domain.Message) {
	t.reply = reply
	close(t.done)
}
