package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	vibeerrors "github.com/tessro/vibe/internal/errors"
	"golang.org/x/time/rate"
)

const (
	// Retry configuration for transient errors
	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond

	maxResponseSize = 4 << 20
)

// Client is a small JSON-over-HTTP client shared by the providers. It
// throttles outgoing requests and retries network failures and 5xx
// responses with exponential backoff.
type Client struct {
	name       string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	retryWait  time.Duration
	logger     *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another host, e.g. a test server.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithRate limits requests per second. Zero disables throttling.
func WithRate(perSecond float64) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRetryWait sets the first backoff interval.
func WithRetryWait(d time.Duration) Option {
	return func(c *Client) { c.retryWait = d }
}

func newClient(name, baseURL string, opts ...Option) *Client {
	c := &Client{
		name:       name,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retryWait:  baseRetryWait,
		logger:     log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("provider", name)
	return c
}

// Get fetches path with params and decodes the JSON body into result.
func (c *Client) Get(ctx context.Context, path string, params map[string]string, result any) error {
	fullURL := BuildURL(c.baseURL+path, params)
	c.logger.Debug("request", "url", fullURL)

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			wait := c.retryWait * time.Duration(1<<(attempt-1))
			c.logger.Debug("retrying", "attempt", attempt, "wait", wait, "err", lastErr)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = fmt.Errorf("%w: %w", vibeerrors.ErrNetworkError, err)
			continue
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		_ = resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		c.logger.Debug("response", "status", resp.StatusCode)

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			lastErr = &APIError{Provider: c.name, Status: resp.StatusCode, Message: "rate limited"}
			continue
		case resp.StatusCode >= 500:
			lastErr = &APIError{Provider: c.name, Status: resp.StatusCode, Message: "server error"}
			continue
		case resp.StatusCode >= 400:
			return &APIError{Provider: c.name, Status: resp.StatusCode, Message: errorMessage(body)}
		}

		if result != nil && len(body) > 0 {
			if err := json.Unmarshal(body, result); err != nil {
				return fmt.Errorf("parse %s response: %w", c.name, err)
			}
		}
		return nil
	}

	return fmt.Errorf("request failed after %d retries: %w", maxRetries, lastErr)
}

// errorMessage pulls a message out of the common error body shapes.
func errorMessage(body []byte) string {
	var shaped struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		ErrorMessage string `json:"errorMessage"`
	}
	if err := json.Unmarshal(body, &shaped); err == nil {
		if shaped.Error.Message != "" {
			return shaped.Error.Message
		}
		if shaped.ErrorMessage != "" {
			return shaped.ErrorMessage
		}
	}
	if len(body) > 200 {
		body = body[:200]
	}
	return string(body)
}

// APIError is a non-2xx response from a catalog.
type APIError struct {
	Provider string
	Status   int
	Message  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error %d: %s", e.Provider, e.Status, e.Message)
}

// Unwrap maps throttling onto the shared sentinel.
func (e *APIError) Unwrap() error {
	if e.Status == http.StatusTooManyRequests {
		return vibeerrors.ErrRateLimited
	}
	return nil
}

// BuildURL builds a URL with query parameters.
func BuildURL(path string, params map[string]string) string {
	if len(params) == 0 {
		return path
	}

	u, err := url.Parse(path)
	if err != nil {
		return path
	}
	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
