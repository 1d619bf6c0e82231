package services

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductionLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewProductionLogger(&buf, "juri", LogLevelInfo, true)

	logger.Debug("hidden")
	logger.With("component", "chat").Info("turn completed", "conversation_id", "c-1")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "turn completed", entry["msg"])
	assert.Equal(t, "juri", entry["service"])
	assert.Equal(t, "chat", entry["component"])
	assert.Equal(t, "c-1", entry["conversation_id"])
}

func TestProductionLoggerSetLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewProductionLogger(&buf, "juri", LogLevelError, false)

	logger.Warn("quiet")
	assert.Empty(t, buf.String())

	logger.SetLevel(LogLevelDebug)
	logger.Debug("loud")
	assert.Contains(t, buf.String(), "msg=loud")
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, LogLevelDebug, ParseLogLevel("debug"))
	assert.Equal(t, LogLevelWarn, ParseLogLevel("warning"))
	assert.Equal(t, LogLevelError, ParseLogLevel("ERROR"))
	assert.Equal(t, LogLevelInfo, ParseLogLevel(""))
}

func TestNewLoggerUnderTest(t *testing.T) {
	t.Setenv("GO_ENV", "test")
	_, ok := NewLogger("juri").(*NoOpLogger)
	assert.True(t, ok)
}
