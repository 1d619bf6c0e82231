// Package idgen hands out identifiers for conversations and messages.
package idgen

import (
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
)

var (
	node    *snowflake.Node
	nodeErr error
	once    sync.Once
)

// Init sets the snowflake node id. Only the first call has an effect; callers that
// never call Init get node 0.
func Init(nodeID int64) error {
	once.Do(func() {
		node, nodeErr = snowflake.NewNode(nodeID)
	})
	return nodeErr
}

// MessageID returns a time-ordered unique id for a message.
func MessageID() string {
	if err := Init(0); err != nil {
		// Init only fails for out-of-range node ids; fall back to a random id.
		return uuid.NewString()
	}
	return node.Generate().String()
}

// ConversationID returns a random unique id for a conversation.
func ConversationID() string {
	return uuid.NewString()
}
