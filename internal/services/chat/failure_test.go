package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iyunix/go-juri/internal/domain"
)

func TestFailureText(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		title string
	}{
		{"timeout", domain.NewTimeoutError("complete", context.DeadlineExceeded), "Request Timeout"},
		{"network", domain.NewNetworkError("complete", errors.New("connection refused")), "Connection Issue"},
		{"cancelled", domain.NewCancelledError("complete", context.Canceled), "Request Cancelled"},
		{"server error", domain.NewHTTPError("complete", 502, "HTTP error! Status: 502 - Bad Gateway"), "Server Error"},
		{"not found", domain.NewHTTPError("complete", 404, "HTTP error! Status: 404 - Not Found"), "Service Not Found"},
		{"bad request", domain.NewHTTPError("complete", 400, "HTTP error! Status: 400 - Bad Request"), "Invalid Request"},
		{"other status", domain.NewHTTPError("complete", 418, "HTTP error! Status: 418"), "Unexpected Error"},
		{"plain error", errors.New("boom"), "Unexpected Error"},
		{"wrapped", fmt.Errorf("turn: %w", domain.NewTimeoutError("complete", nil)), "Request Timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := FailureText(tt.err)
			assert.True(t, strings.HasPrefix(text, "**"+tt.title+"**\n\n"), text)
			assert.Contains(t, text, "**Solutions:**\n- ")
			assert.True(t, strings.HasSuffix(text, "**Error:** "+tt.err.Error()))
		})
	}
}
