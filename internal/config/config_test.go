package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8000", cfg.ServerAddress())
	assert.Equal(t, 120*time.Second, cfg.RequestTimeout)
	assert.Equal(t, int64(20*1024*1024), cfg.MaxRequestBodySize)
	assert.Equal(t, "gemini-2.5-flash-image", cfg.GeminiModel)
	assert.Equal(t, time.Duration(0), cfg.GeminiTimeout)
	assert.Equal(t, 1920, cfg.MaxInputWidth)
	assert.Equal(t, 1080, cfg.MaxInputHeight)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowOrigins)
	assert.False(t, cfg.GeminiConfigured())
	assert.False(t, cfg.AzureConfigured())
}

func TestParse_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("GEMINI_API_KEY", "  secret  ")
	t.Setenv("GEMINI_BASE_URL", "http://localhost:1234/v1beta/")
	t.Setenv("GEMINI_TIMEOUT", "45s")
	t.Setenv("CORS_ALLOW_ORIGINS", "http://a.test,http://b.test")
	t.Setenv("AZURE_STORAGE_ACCOUNT", "acct")
	t.Setenv("AZURE_STORAGE_KEY", "key")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.GeminiAPIKey)
	assert.True(t, cfg.GeminiConfigured())
	assert.Equal(t, "http://localhost:1234/v1beta", cfg.GeminiBaseURL)
	assert.Equal(t, 45*time.Second, cfg.GeminiTimeout)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSAllowOrigins)
	assert.True(t, cfg.AzureConfigured())
	assert.Equal(t, "0.0.0.0:9090", cfg.ServerAddress())
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"non numeric port", "PORT", "http"},
		{"port out of range", "PORT", "70000"},
		{"zero body size", "MAX_REQUEST_BODY_SIZE", "0"},
		{"negative gemini timeout", "GEMINI_TIMEOUT", "-1s"},
		{"zero input width", "MAX_INPUT_WIDTH", "0"},
		{"zero font size", "WATERMARK_FONT_SIZE", "0"},
		{"unparseable duration", "REQUEST_TIMEOUT", "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Parse()
			assert.Error(t, err)
		})
	}
}
