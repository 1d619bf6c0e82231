package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/iyunix/go-juri/internal/domain"
)

const (
	acceptHeader     = "application/json, text/plain, */*"
	maxResponseBytes = 8 << 20
	maxErrorBody     = 512
)

// WebhookClient posts turns to the query or document webhook.
type WebhookClient struct {
	config  *Config
	client  *http.Client
	logger  Logger
	maxBody int64
}

// NewWebhookClient uses httpClient when given, otherwise a plain client. The per-request
// deadline always comes from config.Timeout.
func NewWebhookClient(config *Config, httpClient *http.Client, logger Logger) *WebhookClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &WebhookClient{config: config, client: httpClient, logger: logger, maxBody: maxResponseBytes}
}

func (c *WebhookClient) Complete(ctx context.Context, req *Request) (*Result, error) {
	if err := ValidateRequest(c.config.FilePolicy, req); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	endpoint := domain.EndpointQuery
	if req.File != nil {
		endpoint = domain.EndpointDocument
	}

	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}
	if int64(len(body)) > c.maxBody {
		c.logger.Error("webhook reply too large",
			"endpoint", endpoint, "status", resp.StatusCode, "limit_bytes", c.maxBody)
		return nil, domain.NewHTTPError("complete", http.StatusBadGateway,
			fmt.Sprintf("reply exceeds %d bytes", c.maxBody))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("webhook returned error status",
			"endpoint", endpoint, "status", resp.StatusCode, "duration_ms", time.Since(start).Milliseconds())
		return nil, domain.NewHTTPError("complete", resp.StatusCode, httpErrorMessage(resp, body))
	}

	text := ExtractReply(resp.Header.Get("Content-Type"), body)
	c.logger.Info("webhook reply received",
		"endpoint", endpoint, "status", resp.StatusCode, "bytes", len(body), "duration_ms", time.Since(start).Milliseconds())

	return &Result{Text: text, Endpoint: endpoint}, nil
}

func (c *WebhookClient) buildRequest(ctx context.Context, req *Request) (*http.Request, error) {
	var (
		body        io.Reader
		contentType string
		target      string
	)

	if req.File != nil {
		target = c.config.DocumentURL
		buf := &bytes.Buffer{}
		mw := multipart.NewWriter(buf)
		if req.Text != "" {
			if err := mw.WriteField("message", req.Text); err != nil {
				return nil, domain.NewValidationError("complete", "failed to encode message field")
			}
		}
		if c.config.SendConversationID && req.ConversationID != "" {
			if err := mw.WriteField("conversation_id", req.ConversationID); err != nil {
				return nil, domain.NewValidationError("complete", "failed to encode conversation_id field")
			}
		}
		part, err := mw.CreateFormFile("data", req.File.Name)
		if err != nil {
			return nil, domain.NewValidationError("complete", "failed to encode file")
		}
		if _, err := part.Write(req.File.Data); err != nil {
			return nil, domain.NewValidationError("complete", "failed to encode file")
		}
		if err := mw.Close(); err != nil {
			return nil, domain.NewValidationError("complete", "failed to encode form")
		}
		body = buf
		contentType = mw.FormDataContentType()
	} else {
		target = c.config.QueryURL
		payload := queryPayload{Message: req.Text}
		if c.config.SendConversationID {
			payload.ConversationID = req.ConversationID
		}
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, domain.NewValidationError("complete", "invalid payload")
		}
		body = bytes.NewReader(raw)
		contentType = "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, target, body)
	if err != nil {
		return nil, domain.NewNetworkError("complete", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", acceptHeader)
	return httpReq, nil
}

type queryPayload struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// classifyTransportError separates deadline expiry and caller cancellation from
// connection-level failures.
func classifyTransportError(ctx context.Context, err error) error {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return domain.NewTimeoutError("complete", err)
	case errors.Is(ctx.Err(), context.Canceled), errors.Is(err, context.Canceled):
		return domain.NewCancelledError("complete", err)
	default:
		return domain.NewNetworkError("complete", err)
	}
}

func httpErrorMessage(resp *http.Response, body []byte) string {
	msg := fmt.Sprintf("HTTP error! Status: %d - %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	detail := strings.TrimSpace(string(body))
	if detail == "" {
		return msg
	}
	if len(detail) > maxErrorBody {
		detail = detail[:maxErrorBody] + "..."
	}
	return msg + ": " + detail
}
