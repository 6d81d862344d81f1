package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "MAX_MESSAGE_LENGTH", "EVENT_TIMEOUT", "JWT_TTL", "BACKPLANE", "WS_TRUST_USER_ID"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 1000, cfg.MaxMessageLength)
	assert.Equal(t, 10*time.Second, cfg.EventTimeout)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, "none", cfg.Backplane)
	assert.False(t, cfg.TrustUserID)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("MAX_MESSAGE_LENGTH", "250")
	t.Setenv("EVENT_TIMEOUT", "3s")
	t.Setenv("JWT_TTL", "1h")
	t.Setenv("WS_TRUST_USER_ID", "true")
	t.Setenv("BACKPLANE", "nats")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 250, cfg.MaxMessageLength)
	assert.Equal(t, 3*time.Second, cfg.EventTimeout)
	assert.Equal(t, time.Hour, cfg.JWTTTL)
	assert.True(t, cfg.TrustUserID)
	assert.Equal(t, "nats", cfg.Backplane)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestOrigins(t *testing.T) {
	cfg := &Config{AllowedOrigins: " http://a.test ,http://b.test,, "}
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Origins())

	assert.Empty(t, (&Config{}).Origins())
}
