// Package gemini is a small REST client for the Gemini generateContent API,
// limited to what image editing needs: inline images plus a text prompt in,
// inline images plus optional text out.
package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-2.5-flash-image"
)

// ErrMissingAPIKey is returned by NewClient when no credential is configured.
var ErrMissingAPIKey = errors.New("gemini: API key is not configured")

// Options configures a Client.
type Options struct {
	APIKey  string
	BaseURL string
	Model   string
	// Timeout of zero leaves the HTTP client without a deadline.
	Timeout time.Duration
}

// Client calls a single Gemini model.
type Client struct {
	http  *resty.Client
	model string
}

// Part is one piece of request content: either text or inline bytes.
type Part struct {
	Text     string
	MIMEType string
	Data     []byte
}

// TextPart wraps a prompt string.
func TextPart(text string) Part {
	return Part{Text: text}
}

// ImagePart wraps encoded image bytes.
func ImagePart(mimeType string, data []byte) Part {
	return Part{MIMEType: mimeType, Data: data}
}

// Blob is an inline payload returned by the model.
type Blob struct {
	MIMEType string
	Data     []byte
}

// Response is the flattened first candidate.
type Response struct {
	Images       []Blob
	Text         string
	FinishReason string
	BlockReason  string
}

// FirstImage returns the first inline image, if any.
func (r *Response) FirstImage() (Blob, bool) {
	if r == nil || len(r.Images) == 0 {
		return Blob{}, false
	}
	return r.Images[0], true
}

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("gemini status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("gemini status %d", e.StatusCode)
}

// RateLimited reports quota exhaustion.
func (e *APIError) RateLimited() bool {
	if e.StatusCode == http.StatusTooManyRequests || e.Status == "RESOURCE_EXHAUSTED" {
		return true
	}
	return strings.Contains(strings.ToLower(e.Message), "quota")
}

// IsRateLimited reports whether err carries a rate-limit APIError.
func IsRateLimited(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.RateLimited()
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type generateContentRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
}

type generateContentResponse struct {
	Candidates     []candidate `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason,omitempty"`
	} `json:"promptFeedback,omitempty"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// NewClient constructs a client. It fails only when the API key is missing.
func NewClient(opts Options) (*Client, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := opts.Model
	if model == "" {
		model = DefaultModel
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetHeader("x-goog-api-key", apiKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "Go-Fitting-Room/1.0")
	if opts.Timeout > 0 {
		httpClient.SetTimeout(opts.Timeout)
	}

	return &Client{http: httpClient, model: model}, nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// GenerateContent sends parts as a single user turn and returns the first candidate.
func (c *Client) GenerateContent(ctx context.Context, parts []Part) (*Response, error) {
	payload := generateContentRequest{
		Contents: []content{{
			Role:  "user",
			Parts: encodeParts(parts),
		}},
		GenerationConfig: &generationConfig{
			ResponseModalities: []string{"TEXT", "IMAGE"},
		},
	}

	var result generateContentResponse
	var apiErr errorResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("model", c.model).
		SetBody(payload).
		SetResult(&result).
		SetError(&apiErr).
		Post("/models/{model}:generateContent")
	if err != nil {
		return nil, fmt.Errorf("invoke gemini: %w", err)
	}

	if resp.IsError() {
		e := &APIError{
			StatusCode: resp.StatusCode(),
			Status:     apiErr.Error.Status,
			Message:    apiErr.Error.Message,
		}
		if e.Message == "" {
			e.Message = strings.TrimSpace(resp.String())
		}
		return nil, e
	}

	return decodeResponse(&result)
}

func encodeParts(parts []Part) []part {
	out := make([]part, 0, len(parts))
	for _, p := range parts {
		if len(p.Data) > 0 {
			out = append(out, part{InlineData: &inlineData{
				MimeType: p.MIMEType,
				Data:     base64.StdEncoding.EncodeToString(p.Data),
			}})
			continue
		}
		out = append(out, part{Text: p.Text})
	}
	return out
}

func decodeResponse(raw *generateContentResponse) (*Response, error) {
	out := &Response{}
	if raw.PromptFeedback != nil {
		out.BlockReason = raw.PromptFeedback.BlockReason
	}
	if len(raw.Candidates) == 0 {
		return out, nil
	}

	cand := raw.Candidates[0]
	out.FinishReason = cand.FinishReason

	var texts []string
	for _, p := range cand.Content.Parts {
		if p.Text != "" {
			texts = append(texts, p.Text)
		}
		if p.InlineData == nil || p.InlineData.Data == "" {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
		if err != nil {
			return nil, fmt.Errorf("decode inline data: %w", err)
		}
		out.Images = append(out.Images, Blob{MIMEType: p.InlineData.MimeType, Data: data})
	}
	out.Text = strings.Join(texts, "\n")
	return out, nil
}
