package container

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go-fitting-room/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseConfig() *config.Config {
	return &config.Config{
		Port:               "8000",
		RequestTimeout:     time.Second,
		MaxRequestBodySize: 1 << 20,
		CORSAllowOrigins:   []string{"*"},
		GeminiModel:        "gemini-2.5-flash-image",
		MaxInputWidth:      1920,
		MaxInputHeight:     1080,
		WatermarkFontSize:  20,
		FetchTimeout:       time.Second,
	}
}

func TestNewContainer_WithoutAPIKey(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, err := NewContainer(baseConfig())
	require.NoError(t, err)
	assert.False(t, c.Service().Ready())
	assert.Equal(t, "gemini-2.5-flash-image", c.Service().Model())

	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"gemini_ready":false`)
}

func TestNewContainer_WithAPIKey(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := baseConfig()
	cfg.GeminiAPIKey = "test-key"

	c, err := NewContainer(cfg)
	require.NoError(t, err)
	assert.True(t, c.Service().Ready())
}

func TestNewContainer_NilConfig(t *testing.T) {
	_, err := NewContainer(nil)
	assert.Error(t, err)
}
