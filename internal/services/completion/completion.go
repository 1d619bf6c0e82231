package completion

import (
	"fmt"
	"net/http"
)

// New builds the Completer selected by config.Backend.
func New(config *Config, httpClient *http.Client, logger Logger) (Completer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid completion config: %w", err)
	}
	switch config.Backend {
	case BackendOpenAI:
		return NewOpenAIClient(config, httpClient, logger), nil
	default:
		return NewWebhookClient(config, httpClient, logger), nil
	}
}
