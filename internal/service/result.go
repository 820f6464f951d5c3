package service

import (
	"image"
	"time"
)

// FailureReason explains why a try-on fell back to the original image
type FailureReason string

const (
	ReasonNone          FailureReason = ""
	ReasonNotConfigured FailureReason = "not_configured"
	ReasonRateLimited   FailureReason = "rate_limited"
	ReasonUpstream      FailureReason = "upstream_error"
	ReasonNoImage       FailureReason = "no_image"
	ReasonInvalidImage  FailureReason = "invalid_image"
)

const (
	noResultText      = "Original - No AI result"
	maxErrorTextRunes = 30
)

// Result is the outcome of one generation attempt. Exactly one of Image
// (generated) or Reason (fallback) is set; Original is always the decoded
// person image so a fallback can be rendered from it.
type Result struct {
	Image    image.Image
	Original *image.RGBA
	Reason   FailureReason
	Detail   string
	Elapsed  time.Duration
}

// Generated reports whether the model produced a usable image.
func (r *Result) Generated() bool {
	return r.Reason == ReasonNone && r.Image != nil
}

// FallbackText is the watermark stamped on the original image.
func (r *Result) FallbackText() string {
	if r.Reason == ReasonNoImage {
		return noResultText
	}
	detail := []rune(r.Detail)
	if len(detail) > maxErrorTextRunes {
		detail = detail[:maxErrorTextRunes]
	}
	return "Error: " + string(detail)
}

func fallback(original *image.RGBA, reason FailureReason, detail string) *Result {
	return &Result{Original: original, Reason: reason, Detail: detail}
}
