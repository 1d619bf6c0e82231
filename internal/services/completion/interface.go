package completion

import (
	"context"

	"github.com/iyunix/go-juri/internal/domain"
)

// Attachment is a file forwarded unmodified with a turn.
type Attachment struct {
	Name string
	Data []byte
}

// Request is one turn sent to the remote endpoint.
type Request struct {
	Text           string
	File           *Attachment
	ConversationID string
}

// Result is the normalized reply.
type Result struct {
	Text     string
	Endpoint domain.Endpoint
}

// Completer performs exactly one round trip per call. Implementations do not retry.
type Completer interface {
	Complete(ctx context.Context, req *Request) (*Result, error)
}

// Logger is the subset of services.Logger used here.
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}
