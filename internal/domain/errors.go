package domain

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	ErrKindValidation      ErrorKind = "VALIDATION"
	ErrKindUnsupportedFile ErrorKind = "UNSUPPORTED_FILE"
	ErrKindTimeout         ErrorKind = "TIMEOUT"
	ErrKindHTTP            ErrorKind = "HTTP"
	ErrKindNetwork         ErrorKind = "NETWORK"
	ErrKindStorage         ErrorKind = "STORAGE"
	ErrKindNotFound        ErrorKind = "NOT_FOUND"
	ErrKindCancelled       ErrorKind = "CANCELLED"
)

var (
	// ErrRequestInFlight is returned when an operation needs the controller idle.
	ErrRequestInFlight = errors.New("a response is still pending")
	// ErrNoActiveConversation is returned when an operation needs an active conversation.
	ErrNoActiveConversation = errors.New("no active conversation")
)

// ChatError is the error type shared by the model, the completion client and the stores.
type ChatError struct {
	Kind      ErrorKind
	Operation string
	Message   string
	Status    int // HTTP status, only set for ErrKindHTTP
	Cause     error
}

func (e *ChatError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("Chat %s error in %s: %s (caused by: %v)",
			e.Kind, e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("Chat %s error in %s: %s", e.Kind, e.Operation, e.Message)
}

func (e *ChatError) Unwrap() error {
	return e.Cause
}

// KindOf returns the kind of the first ChatError in err's chain, or "" if there is none.
func KindOf(err error) ErrorKind {
	var chatErr *ChatError
	if errors.As(err, &chatErr) {
		return chatErr.Kind
	}
	return ""
}

// IsKind reports whether err carries a ChatError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

func NewValidationError(operation, msg string) *ChatError {
	return &ChatError{Kind: ErrKindValidation, Operation: operation, Message: msg}
}

func NewUnsupportedFileError(operation, msg string) *ChatError {
	return &ChatError{Kind: ErrKindUnsupportedFile, Operation: operation, Message: msg}
}

func NewTimeoutError(operation string, cause error) *ChatError {
	return &ChatError{
		Kind:      ErrKindTimeout,
		Operation: operation,
		Message:   "request timed out, the AI service may be busy",
		Cause:     cause,
	}
}

func NewHTTPError(operation string, status int, msg string) *ChatError {
	return &ChatError{Kind: ErrKindHTTP, Operation: operation, Status: status, Message: msg}
}

func NewNetworkError(operation string, cause error) *ChatError {
	return &ChatError{
		Kind:      ErrKindNetwork,
		Operation: operation,
		Message:   "failed to reach the AI service",
		Cause:     cause,
	}
}

func NewStorageError(operation, msg string, cause error) *ChatError {
	return &ChatError{Kind: ErrKindStorage, Operation: operation, Message: msg, Cause: cause}
}

func NewNotFoundError(operation, msg string) *ChatError {
	return &ChatError{Kind: ErrKindNotFound, Operation: operation, Message: msg}
}

func NewCancelledError(operation string, cause error) *ChatError {
	return &ChatError{
		Kind:      ErrKindCancelled,
		Operation: operation,
		Message:   "request was cancelled",
		Cause:     cause,
	}
}
