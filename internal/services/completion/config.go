package completion

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	BackendWebhook = "webhook"
	BackendOpenAI  = "openai"
)

// FilePolicy limits which attachments may be forwarded.
type FilePolicy struct {
	MaxFileSize       int64
	AllowedExtensions []string
}

// DefaultFilePolicy accepts pdf, docx, rtf, doc and txt files up to 10 MB.
func DefaultFilePolicy() FilePolicy {
	return FilePolicy{
		MaxFileSize:       10 * 1024 * 1024,
		AllowedExtensions: []string{"pdf", "docx", "rtf", "doc", "txt"},
	}
}

type Config struct {
	Backend string

	// Webhook endpoints: QueryURL serves text-only turns, DocumentURL turns with a file.
	QueryURL    string
	DocumentURL string

	// OpenAI-compatible backend
	OpenAIKey     string
	OpenAIBaseURL string
	OpenAIModel   string
	Temperature   float32

	// Deadline applied to every request
	Timeout time.Duration

	FilePolicy

	// Forward the conversation id to the remote endpoint
	SendConversationID bool
}

func (c *Config) Validate() error {
	switch c.Backend {
	case BackendWebhook:
		if err := validateURL("query_url", c.QueryURL); err != nil {
			return err
		}
		if err := validateURL("document_url", c.DocumentURL); err != nil {
			return err
		}
	case BackendOpenAI:
		if c.OpenAIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for the openai backend")
		}
		if c.OpenAIModel == "" {
			return fmt.Errorf("openai_model is required")
		}
	default:
		return fmt.Errorf("unknown completion backend %q", c.Backend)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxFileSize <= 0 {
		return fmt.Errorf("max_file_size must be positive")
	}
	if len(c.AllowedExtensions) == 0 {
		return fmt.Errorf("at least one allowed extension is required")
	}
	return nil
}

func validateURL(name, raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("%s is required", name)
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL", name)
	}
	return nil
}

func DefaultConfig() *Config {
	return &Config{
		Backend:     BackendWebhook,
		OpenAIModel: "gpt-4o-mini",
		Temperature: 0.2,
		Timeout:     30 * time.Second,
		FilePolicy:  DefaultFilePolicy(),
	}
}
