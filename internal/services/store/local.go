package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/iyunix/go-juri/internal/domain"
	"github.com/iyunix/go-juri/internal/repository/kv"
)

// StorageKey is the key the whole collection is stored under.
const StorageKey = "juriChats"

// LocalStore keeps the collection as one JSON document in the key-value table.
type LocalStore struct {
	repo   kv.KVRepository
	key    string
	logger Logger

	mu sync.Mutex
}

func NewLocalStore(repo kv.KVRepository, logger Logger) *LocalStore {
	return &LocalStore{repo: repo, key: StorageKey, logger: logger}
}

func (s *LocalStore) LoadAll(ctx context.Context) ([]*domain.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx), nil
}

// load never fails: read errors and corrupt documents are logged and treated as empty.
func (s *LocalStore) load(ctx context.Context) []*domain.Conversation {
	raw, err := s.repo.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, kv.ErrKeyNotFound) {
			s.logger.Error("failed to read stored conversations", "key", s.key, "error", err)
		}
		return []*domain.Conversation{}
	}

	var convs []*domain.Conversation
	if err := json.Unmarshal([]byte(raw), &convs); err != nil {
		s.logger.Warn("stored conversations are corrupt, starting empty", "key", s.key, "error", err)
		return []*domain.Conversation{}
	}

	return domain.CompactConversations(convs)
}

func (s *LocalStore) LoadOne(ctx context.Context, id string) (*domain.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.load(ctx) {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, domain.NewNotFoundError("load_conversation", fmt.Sprintf("conversation %s not found", id))
}

func (s *LocalStore) Persist(ctx context.Context, convs []*domain.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(ctx, convs)
}

func (s *LocalStore) write(ctx context.Context, convs []*domain.Conversation) error {
	if convs == nil {
		convs = []*domain.Conversation{}
	}
	raw, err := json.Marshal(convs)
	if err != nil {
		return domain.NewStorageError("persist", "failed to encode conversations", err)
	}
	if err := s.repo.Put(ctx, s.key, string(raw)); err != nil {
		return domain.NewStorageError("persist", "failed to save conversations", err)
	}
	s.logger.Debug("conversations saved", "count", len(convs), "bytes", len(raw))
	return nil
}

func (s *LocalStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	convs := s.load(ctx)
	kept := make([]*domain.Conversation, 0, len(convs))
	for _, c := range convs {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	if len(kept) == len(convs) {
		return domain.NewNotFoundError("delete_conversation", fmt.Sprintf("conversation %s not found", id))
	}
	return s.write(ctx, kept)
}
