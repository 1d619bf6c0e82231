package ratelimit

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, burst int) (*MemoryRateLimiter, *time.Time) {
	t.Helper()
	rl := NewMemoryRateLimiter(&Config{
		RequestsPerSecond: 1,
		Burst:             burst,
		IdleTTL:           time.Minute,
		CleanupPeriod:     time.Hour,
	})
	t.Cleanup(rl.Close)

	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }
	return rl, &clock
}

func TestAllowBurstThenRefill(t *testing.T) {
	rl, clock := newTestLimiter(t, 2)

	ok, info := rl.Allow("1.2.3.4")
	assert.True(t, ok)
	assert.Equal(t, 2, info.Limit)
	assert.Equal(t, 1, info.Remaining)

	ok, _ = rl.Allow("1.2.3.4")
	assert.True(t, ok)

	ok, info = rl.Allow("1.2.3.4")
	assert.False(t, ok)
	assert.Greater(t, info.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, info.RetryAfter, time.Second)

	ok, _ = rl.Allow("5.6.7.8")
	assert.True(t, ok, "clients have separate buckets")

	*clock = clock.Add(time.Second)
	ok, _ = rl.Allow("1.2.3.4")
	assert.True(t, ok)
}

func TestCleanupDropsIdleClients(t *testing.T) {
	rl, clock := newTestLimiter(t, 1)

	rl.Allow("1.2.3.4")
	*clock = clock.Add(2 * time.Minute)
	rl.Allow("5.6.7.8")
	rl.cleanup()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.clients, "1.2.3.4")
	assert.Contains(t, rl.clients, "5.6.7.8")
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultChatConfig().Validate())

	cfg := DefaultChatConfig()
	cfg.Burst = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultChatConfig()
	cfg.RequestsPerSecond = 0
	assert.Error(t, cfg.Validate())
}

func TestGetClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", GetClientIP(r))

	r.Header.Set("X-Real-IP", "10.0.0.2")
	assert.Equal(t, "10.0.0.2", GetClientIP(r))

	r.Header.Set("X-Forwarded-For", " 10.0.0.3 , 10.0.0.4")
	assert.Equal(t, "10.0.0.3", GetClientIP(r))
}
