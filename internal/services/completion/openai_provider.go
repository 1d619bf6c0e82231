package completion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"

	openai "github.com/sashabaranov/go-openai"

	"github.com/iyunix/go-juri/internal/domain"
)

const systemPrompt = "You are Juri, an AI legal assistant focused on UK law. " +
	"Answer clearly, cite the relevant legislation where you can, and say when a question needs a qualified solicitor."

// OpenAIClient answers turns through an OpenAI-compatible chat completions API.
type OpenAIClient struct {
	config *Config
	client *openai.Client
	logger Logger
}

func NewOpenAIClient(config *Config, httpClient *http.Client, logger Logger) *OpenAIClient {
	clientConfig := openai.DefaultConfig(config.OpenAIKey)
	if config.OpenAIBaseURL != "" {
		clientConfig.BaseURL = config.OpenAIBaseURL
	}
	if httpClient != nil {
		clientConfig.HTTPClient = httpClient
	}
	return &OpenAIClient{
		config: config,
		client: openai.NewClientWithConfig(clientConfig),
		logger: logger,
	}
}

func (c *OpenAIClient) Complete(ctx context.Context, req *Request) (*Result, error) {
	if err := ValidateRequest(c.config.FilePolicy, req); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	endpoint := domain.EndpointQuery
	if req.File != nil {
		endpoint = domain.EndpointDocument
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.config.OpenAIModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userContent(req)},
		},
		Temperature: c.config.Temperature,
	})
	if err != nil {
		return nil, classifyOpenAIError(ctx, err)
	}

	text := ""
	if len(resp.Choices) > 0 {
		text = resp.Choices[0].Message.Content
	}
	if strings.TrimSpace(text) == "" {
		text = EmptyReplyNotice
	}

	c.logger.Info("openai reply received", "endpoint", endpoint, "model", resp.Model,
		"prompt_tokens", resp.Usage.PromptTokens, "completion_tokens", resp.Usage.CompletionTokens)
	return &Result{Text: text, Endpoint: endpoint}, nil
}

// userContent inlines plain-text attachments; other formats are only named.
func userContent(req *Request) string {
	if req.File == nil {
		return req.Text
	}

	var b strings.Builder
	if req.Text != "" {
		b.WriteString(req.Text)
		b.WriteString("\n\n")
	}
	ext := strings.ToLower(filepath.Ext(req.File.Name))
	if ext == ".txt" && utf8.Valid(req.File.Data) {
		fmt.Fprintf(&b, "Attached document %q:\n\n%s", req.File.Name, string(req.File.Data))
	} else {
		fmt.Fprintf(&b, "The user attached %q (%d bytes); its contents are not available as text.",
			req.File.Name, len(req.File.Data))
	}
	return b.String()
}

func classifyOpenAIError(ctx context.Context, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return domain.NewHTTPError("complete", apiErr.HTTPStatusCode,
			fmt.Sprintf("HTTP error! Status: %d - %s", apiErr.HTTPStatusCode, apiErr.Message))
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return domain.NewHTTPError("complete", reqErr.HTTPStatusCode,
			fmt.Sprintf("HTTP error! Status: %d - %s", reqErr.HTTPStatusCode, http.StatusText(reqErr.HTTPStatusCode)))
	}
	return classifyTransportError(ctx, err)
}
