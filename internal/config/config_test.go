package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret-at-least-16-chars!!")
	t.Setenv("GOOGLE_CLIENT_ID", "client.apps.googleusercontent.com")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Port)
	assert.Equal(t, "data/exam-prep.db", cfg.DBPath)
	assert.Equal(t, 30*24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "postmessage", cfg.GoogleRedirectURL)
	assert.Equal(t, "https://www.googleapis.com/oauth2/v3/certs", cfg.GoogleCertsURL)
	assert.Equal(t, "http://localhost:5173", cfg.FrontendURL)
	assert.Equal(t, 100, cfg.RateLimitRequests)
	assert.Equal(t, 15*time.Minute, cfg.RateLimitWindow)
	assert.Equal(t, int64(10<<20), cfg.MaxBodyBytes)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.CodeExchangeEnabled())
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "8081")
	t.Setenv("RATE_LIMIT_WINDOW", "1m")
	t.Setenv("GOOGLE_CLIENT_SECRET", "shh")
	t.Setenv("FRONTEND_URL", "https://exam-prep.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Port)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
	assert.Equal(t, "https://exam-prep.example.com", cfg.FrontendURL)
	assert.True(t, cfg.CodeExchangeEnabled())
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("GOOGLE_CLIENT_ID", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET is required")
	assert.Contains(t, err.Error(), "GOOGLE_CLIENT_ID is required")
}

func TestLoad_ParseError(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "not-an-int")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")
}

func TestValidate_Ranges(t *testing.T) {
	valid := Config{
		Port:              5000,
		DBPath:            ":memory:",
		JWTSecret:         "test-secret-at-least-16-chars!!",
		SessionTTL:        time.Hour,
		GoogleClientID:    "id",
		RateLimitRequests: 1,
		RateLimitWindow:   time.Second,
		MaxBodyBytes:      1,
		LogLevel:          "debug",
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"short secret", func(c *Config) { c.JWTSecret = "short" }, "at least 16"},
		{"port zero", func(c *Config) { c.Port = 0 }, "PORT"},
		{"port too big", func(c *Config) { c.Port = 70000 }, "PORT"},
		{"empty db path", func(c *Config) { c.DBPath = "" }, "DB_PATH"},
		{"zero ttl", func(c *Config) { c.SessionTTL = 0 }, "SESSION_TTL"},
		{"zero rate", func(c *Config) { c.RateLimitRequests = 0 }, "RATE_LIMIT_REQUESTS"},
		{"zero window", func(c *Config) { c.RateLimitWindow = 0 }, "RATE_LIMIT_WINDOW"},
		{"zero body", func(c *Config) { c.MaxBodyBytes = 0 }, "MAX_BODY_BYTES"},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, "LOG_LEVEL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}
