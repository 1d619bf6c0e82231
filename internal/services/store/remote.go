package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/iyunix/go-juri/internal/domain"
)

const conversationsPath = "/api/conversations"

// RemoteStore talks to the server-side conversation endpoints.
type RemoteStore struct {
	baseURL string
	client  *http.Client
	logger  Logger

	mu sync.Mutex
	// known tracks what the server holds, as last seen by this store, so Persist only
	// uploads changed conversations and only deletes ones it knows about.
	known map[string]revision
}

type revision struct {
	updatedAt int64
	title     string
	messages  int
}

func revisionOf(c *domain.Conversation) revision {
	return revision{updatedAt: c.UpdatedAt.UnixNano(), title: c.Title, messages: len(c.Messages)}
}

type listResponse struct {
	Conversations []*domain.Conversation `json:"conversations"`
}

type oneResponse struct {
	Conversation *domain.Conversation `json:"conversation"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewRemoteStore(baseURL string, client *http.Client, logger Logger) *RemoteStore {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &RemoteStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		logger:  logger,
		known:   make(map[string]revision),
	}
}

func (s *RemoteStore) LoadAll(ctx context.Context) ([]*domain.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	body, err := s.do(ctx, http.MethodGet, conversationsPath, nil, "load_conversations")
	if err != nil {
		return nil, err
	}

	var resp listResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		s.logger.Warn("remote conversations are corrupt, starting empty", "error", err)
		return []*domain.Conversation{}, nil
	}

	out := make([]*domain.Conversation, 0, len(resp.Conversations))
	s.known = make(map[string]revision, len(resp.Conversations))
	for _, c := range domain.CompactConversations(resp.Conversations) {
		if c.ID == "" {
			continue
		}
		s.known[c.ID] = revisionOf(c)
		out = append(out, c)
	}
	return out, nil
}

func (s *RemoteStore) LoadOne(ctx context.Context, id string) (*domain.Conversation, error) {
	body, err := s.do(ctx, http.MethodGet, conversationsPath+"/"+url.PathEscape(id), nil, "load_conversation")
	if err != nil {
		return nil, err
	}
	var resp oneResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.Conversation == nil {
		return nil, domain.NewStorageError("load_conversation", "invalid response from conversation server", err)
	}
	resp.Conversation.Compact()
	return resp.Conversation, nil
}

// Persist uploads new or changed conversations and deletes the ones that disappeared.
// A conversation the server rejects does not stop the others from being saved; an
// unreachable server does.
func (s *RemoteStore) Persist(ctx context.Context, convs []*domain.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	present := make(map[string]struct{}, len(convs))
	for _, c := range convs {
		present[c.ID] = struct{}{}
		rev := revisionOf(c)
		if prev, ok := s.known[c.ID]; ok && prev == rev {
			continue
		}
		payload, err := json.Marshal(c)
		if err != nil {
			errs = append(errs, domain.NewStorageError("persist", "failed to encode conversation", err))
			continue
		}
		if _, err := s.do(ctx, http.MethodPut, conversationsPath+"/"+url.PathEscape(c.ID), payload, "persist"); err != nil {
			s.logger.Warn("conversation upload failed", "conversation_id", c.ID, "error", err)
			var transportErr *url.Error
			if errors.As(err, &transportErr) {
				return err
			}
			errs = append(errs, err)
			continue
		}
		s.known[c.ID] = rev
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	for id := range s.known {
		if _, ok := present[id]; ok {
			continue
		}
		if err := s.deleteLocked(ctx, id); err != nil && !domain.IsKind(err, domain.ErrKindNotFound) {
			return err
		}
	}
	return nil
}

func (s *RemoteStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteLocked(ctx, id)
}

func (s *RemoteStore) deleteLocked(ctx context.Context, id string) error {
	_, err := s.do(ctx, http.MethodDelete, conversationsPath+"/"+url.PathEscape(id), nil, "delete_conversation")
	if err == nil || domain.IsKind(err, domain.ErrKindNotFound) {
		delete(s.known, id)
	}
	return err
}

func (s *RemoteStore) do(ctx context.Context, method, path string, payload []byte, op string) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return nil, domain.NewStorageError(op, "failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, domain.NewStorageError(op, "conversation server unreachable", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewStorageError(op, "failed to read response", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, domain.NewNotFoundError(op, "conversation not found")
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		msg := fmt.Sprintf("conversation server returned %d", resp.StatusCode)
		var e errorResponse
		if json.Unmarshal(respBody, &e) == nil && e.Error != "" {
			msg += ": " + e.Error
		}
		return nil, domain.NewStorageError(op, msg, nil)
	}
	return respBody, nil
}
