package models

// ErrorResponse represents an error response.
// Detail carries the raw error text so callers can see what failed.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// RootResponse is the service banner returned by GET /
type RootResponse struct {
	Message  string `json:"message"`
	Status   string `json:"status"`
	Engine   string `json:"engine"`
	Model    string `json:"model"`
	APIReady bool   `json:"api_ready"`
}

// HealthResponse reports readiness of the model client
type HealthResponse struct {
	Status      string                 `json:"status"`
	GeminiReady bool                   `json:"gemini_ready"`
	Model       string                 `json:"model"`
	Version     string                 `json:"version"`
	Stats       map[string]interface{} `json:"stats,omitempty"`
}
