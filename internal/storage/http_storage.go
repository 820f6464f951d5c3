package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultMaxObjectSize caps a single downloaded object.
const DefaultMaxObjectSize = 25 * 1024 * 1024

// Object is a downloaded payload with the type the server claimed for it.
type Object struct {
	URL         string
	ContentType string
	Data        []byte
}

// GarmentSource downloads the raw bytes behind a URL.
type GarmentSource interface {
	Fetch(ctx context.Context, rawURL string) (*Object, error)
}

// HTTPFetcher implements GarmentSource over plain HTTP(S)
type HTTPFetcher struct {
	client  *http.Client
	maxSize int64
	backoff time.Duration
}

// NewHTTPFetcher creates an HTTP fetcher with the given per-request timeout
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,

		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		MaxResponseHeaderBytes: 16 * 1024,
	}

	return &HTTPFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,

			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
		maxSize: DefaultMaxObjectSize,
		backoff: time.Second,
	}
}

func (h *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*Object, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	// Product pages often refuse non-browser agents
	req.Header.Set("Accept", "text/html,image/avif,image/webp,image/png,image/jpeg,*/*;q=0.8")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")

	// Retry logic (3 attempts) - only retry on transient errors
	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt < 3; attempt++ {
		resp, err = h.client.Do(req)

		if err != nil {
			lastErr = err
		}

		if err == nil && resp != nil && resp.StatusCode == http.StatusOK {
			break
		}

		if err == nil && resp != nil {
			func() {
				defer resp.Body.Close()

				if resp.StatusCode >= 400 && resp.StatusCode < 500 {
					lastErr = fmt.Errorf("client error: status code %d", resp.StatusCode)
					return
				}

				if resp.StatusCode >= 500 {
					lastErr = fmt.Errorf("server error: status code %d", resp.StatusCode)
				} else {
					lastErr = fmt.Errorf("unexpected status code %d", resp.StatusCode)
				}
			}()

			// 4xx is not retryable
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				resp = nil
				break
			}
		}

		if ctx.Err() != nil {
			resp = nil
			lastErr = ctx.Err()
			break
		}

		if attempt < 2 && (err != nil || (resp != nil && resp.StatusCode >= 500)) {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("failed to fetch %s: %w", rawURL, ctx.Err())
			case <-time.After(time.Duration(attempt+1) * h.backoff):
			}
		}

		if resp != nil && (err != nil || resp.StatusCode != http.StatusOK) {
			resp = nil
		}
	}

	if resp == nil || resp.StatusCode != http.StatusOK {
		if lastErr != nil {
			return nil, fmt.Errorf("failed to fetch %s after 3 attempts: %w", rawURL, lastErr)
		}
		return nil, fmt.Errorf("failed to fetch %s after 3 attempts: unknown error", rawURL)
	}

	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, h.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if int64(len(data)) > h.maxSize {
		return nil, fmt.Errorf("object exceeds max size of %d bytes", h.maxSize)
	}

	return &Object{
		URL:         resp.Request.URL.String(),
		ContentType: resp.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
