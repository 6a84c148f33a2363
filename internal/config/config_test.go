package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "FRONTEND_URL", "RESPONDER_URL", "RESPONDER_TIMEOUT", "LOG_LEVEL", "LOG_FORMAT", "LOG_FILE", "LOG_MAX_SIZE_MB", "LOG_MAX_BACKUPS", "CHAT_MARKDOWN", "CHAT_PERSONA"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "*", cfg.Server.FrontendURL)
	assert.Equal(t, DefaultResponderURL, cfg.Responder.Endpoint)
	assert.Zero(t, cfg.Responder.Timeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 10, cfg.Log.MaxSizeMB)
	assert.Equal(t, 3, cfg.Log.MaxBackups)
	assert.False(t, cfg.UI.Markdown)
	assert.Equal(t, "study-buddy", cfg.UI.PersonaID)
}

func TestLoadServerConfig(t *testing.T) {
	tests := []struct {
		name    string
		port    string
		want    string
		wantErr bool
	}{
		{"plain port", "9000", ":9000", false},
		{"colon form", ":9001", ":9001", false},
		{"host and port", "127.0.0.1:9002", "127.0.0.1:9002", false},
		{"embedded space", "90 00", "", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("PORT", tc.port)
			got, err := loadServerConfig()
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.Addr)
		})
	}
}

func TestLoadResponderConfig(t *testing.T) {
	t.Setenv("RESPONDER_URL", "https://tutor.example.com/api/chat")
	t.Setenv("RESPONDER_TIMEOUT", "45s")

	cfg, err := loadResponderConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://tutor.example.com/api/chat", cfg.Endpoint)
	assert.Equal(t, 45*time.Second, cfg.Timeout)
}

func TestLoadResponderConfigRejectsBadValues(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		timeout  string
	}{
		{"relative url", "/api/chat", ""},
		{"ftp scheme", "ftp://example.com/chat", ""},
		{"bad timeout", DefaultResponderURL, "soon"},
		{"negative timeout", DefaultResponderURL, "-1s"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("RESPONDER_URL", tc.endpoint)
			t.Setenv("RESPONDER_TIMEOUT", tc.timeout)
			_, err := loadResponderConfig()
			assert.Error(t, err)
		})
	}
}

func TestLoadLogConfig(t *testing.T) {
	t.Setenv("LOG_FORMAT", "JSON")
	t.Setenv("LOG_LEVEL", "Debug")
	t.Setenv("LOG_FILE", " /tmp/study-buddy.log ")
	t.Setenv("LOG_MAX_SIZE_MB", "0")
	t.Setenv("LOG_MAX_BACKUPS", "7")

	cfg, err := loadLogConfig()
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, "/tmp/study-buddy.log", cfg.File)
	assert.Equal(t, 10, cfg.MaxSizeMB)
	assert.Equal(t, 7, cfg.MaxBackups)

	t.Setenv("LOG_FORMAT", "xml")
	_, err = loadLogConfig()
	assert.Error(t, err)
}

func TestParseBoolEnv(t *testing.T) {
	t.Setenv("CHAT_MARKDOWN", "yes")
	_, err := loadUIConfig()
	assert.Error(t, err)

	t.Setenv("CHAT_MARKDOWN", "true")
	cfg, err := loadUIConfig()
	require.NoError(t, err)
	assert.True(t, cfg.Markdown)
}
