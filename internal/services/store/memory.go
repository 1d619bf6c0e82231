package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/iyunix/go-juri/internal/domain"
)

// MemoryStore keeps deep copies in process memory. Nothing survives a restart.
type MemoryStore struct {
	mu    sync.RWMutex
	convs []*domain.Conversation
	err   error
}

func NewMemoryStore(convs ...*domain.Conversation) *MemoryStore {
	return &MemoryStore{convs: cloneAll(convs)}
}

// FailWith makes every following Persist return err. Pass nil to recover.
func (s *MemoryStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *MemoryStore) LoadAll(ctx context.Context) ([]*domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.convs), nil
}

func (s *MemoryStore) LoadOne(ctx context.Context, id string) (*domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.convs {
		if c.ID == id {
			return c.Clone(), nil
		}
	}
	return nil, domain.NewNotFoundError("load_conversation", fmt.Sprintf("conversation %s not found", id))
}

func (s *MemoryStore) Persist(ctx context.Context, convs []*domain.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return domain.NewStorageError("persist", "failed to save conversations", s.err)
	}
	s.convs = cloneAll(convs)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.convs {
		if c.ID == id {
			s.convs = append(s.convs[:i], s.convs[i+1:]...)
			return nil
		}
	}
	return domain.NewNotFoundError("delete_conversation", fmt.Sprintf("conversation %s not found", id))
}

func cloneAll(convs []*domain.Conversation) []*domain.Conversation {
	out := make([]*domain.Conversation, 0, len(convs))
	for _, c := range convs {
		if c != nil {
			out = append(out, c.Clone())
		}
	}
	return out
}
