package chat

import (
	"encoding/json"
	"fmt"

	"github.com/iyunix/go-juri/internal/domain"
)

// Export renders every conversation as an indented JSON array.
func (c *Controller) Export() ([]byte, error) {
	c.mu.Lock()
	snapshot := c.convs.Snapshot()
	c.mu.Unlock()

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode export: %w", err)
	}
	return data, nil
}

// Import appends the conversations of an exported JSON array. Malformed input changes
// nothing. Conversations whose id is missing or taken get a new one.
func (c *Controller) Import(data []byte) (int, error) {
	var convs []*domain.Conversation
	if err := json.Unmarshal(data, &convs); err != nil {
		return 0, domain.NewValidationError("import_chats", "invalid chat export file")
	}

	valid := domain.CompactConversations(convs)
	if len(valid) == 0 {
		return 0, domain.NewValidationError("import_chats", "the file contains no chats")
	}

	c.mu.Lock()
	defer c.unlock()

	if c.closed {
		return 0, ErrClosed
	}
	c.convs.Append(valid...)
	c.persistLocked()
	c.emit(EventChanged, "", nil)
	c.noticeLocked(NoticeSuccess, fmt.Sprintf("Imported %d chats", len(valid)))
	c.logger.Info("chats imported", "count", len(valid))
	return len(valid), nil
}
