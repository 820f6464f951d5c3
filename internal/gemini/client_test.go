package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Options{APIKey: "test-key", BaseURL: server.URL + "/v1beta"})
	require.NoError(t, err)
	return client
}

func TestNewClient_MissingKey(t *testing.T) {
	_, err := NewClient(Options{APIKey: "   "})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestNewClient_Defaults(t *testing.T) {
	client, err := NewClient(Options{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, client.Model())
}

func TestGenerateContent_ReturnsInlineImage(t *testing.T) {
	imageBytes := []byte("\x89PNG fake image payload")

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1beta/models/gemini-2.5-flash-image:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		var req generateContentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		require.Len(t, req.Contents[0].Parts, 2)
		assert.Equal(t, "image/png", req.Contents[0].Parts[0].InlineData.MimeType)
		assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("person")), req.Contents[0].Parts[0].InlineData.Data)
		assert.Equal(t, "dress them", req.Contents[0].Parts[1].Text)
		assert.Equal(t, []string{"TEXT", "IMAGE"}, req.GenerationConfig.ResponseModalities)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"finishReason": "STOP",
				"content": map[string]any{
					"parts": []map[string]any{
						{"text": "Here you go"},
						{"inlineData": map[string]string{
							"mimeType": "image/png",
							"data":     base64.StdEncoding.EncodeToString(imageBytes),
						}},
					},
				},
			}},
		})
	})

	resp, err := client.GenerateContent(context.Background(), []Part{
		ImagePart("image/png", []byte("person")),
		TextPart("dress them"),
	})
	require.NoError(t, err)

	img, ok := resp.FirstImage()
	require.True(t, ok)
	assert.Equal(t, imageBytes, img.Data)
	assert.Equal(t, "image/png", img.MIMEType)
	assert.Equal(t, "Here you go", resp.Text)
	assert.Equal(t, "STOP", resp.FinishReason)
}

func TestGenerateContent_TextOnly(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"I cannot do that"}]}}]}`))
	})

	resp, err := client.GenerateContent(context.Background(), []Part{TextPart("x")})
	require.NoError(t, err)

	_, ok := resp.FirstImage()
	assert.False(t, ok)
	assert.Equal(t, "I cannot do that", resp.Text)
}

func TestGenerateContent_NoCandidates(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"promptFeedback":{"blockReason":"SAFETY"}}`))
	})

	resp, err := client.GenerateContent(context.Background(), []Part{TextPart("x")})
	require.NoError(t, err)
	assert.Empty(t, resp.Images)
	assert.Equal(t, "SAFETY", resp.BlockReason)
}

func TestGenerateContent_APIErrors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		contentType string
		body        string
		rateLimited bool
		contains    string
	}{
		{
			name:        "quota exhausted",
			status:      http.StatusTooManyRequests,
			contentType: "application/json",
			body:        `{"error":{"code":429,"message":"Resource has been exhausted","status":"RESOURCE_EXHAUSTED"}}`,
			rateLimited: true,
			contains:    "Resource has been exhausted",
		},
		{
			name:        "bad request",
			status:      http.StatusBadRequest,
			contentType: "application/json",
			body:        `{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`,
			contains:    "API key not valid",
		},
		{
			name:        "plain text body",
			status:      http.StatusBadGateway,
			contentType: "text/plain",
			body:        `upstream unavailable`,
			contains:    "upstream unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.GenerateContent(context.Background(), []Part{TextPart("x")})
			require.Error(t, err)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Contains(t, err.Error(), tt.contains)
			assert.Equal(t, tt.rateLimited, IsRateLimited(err))
		})
	}
}
