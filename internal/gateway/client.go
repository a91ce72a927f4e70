// Package gateway is the HTTP client for the backend's /api/gateway surface:
// entity schemas, field types, services, generation and generated records.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultTimeout bounds every gateway request.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 1 << 20

// Client talks to the gateway. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	limiter *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides DefaultTimeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying transport client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithRateLimit throttles outgoing requests to rps per second. A
// non-positive rps disables throttling.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// New creates a client for the gateway rooted at baseURL, e.g.
// "http://localhost:5000".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the gateway root the client was created with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// do performs one request and returns the JSON response body, or nil for
// 204 and non-JSON success responses.
func (c *Client) do(ctx context.Context, op, method, path string, body any) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &Error{Op: op, Message: err.Error(), Err: err}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%s: encoding body: %w", op, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			slog.WarnContext(ctx, "gateway: request timed out", "op", op, "method", method, "path", path)
			return nil, &Error{Op: op, Message: timeoutMessage, Err: fmt.Errorf("%w: %w", ErrTimeout, err)}
		}
		return nil, &Error{Op: op, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	slog.DebugContext(ctx, "gateway: request", "op", op, "method", method, "path", path,
		"status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &Error{Op: op, Status: resp.StatusCode, Message: errorMessage(resp.StatusCode, raw)}
	}
	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, &Error{Op: op, Message: timeoutMessage, Err: fmt.Errorf("%w: %w", ErrTimeout, err)}
		}
		return nil, &Error{Op: op, Status: resp.StatusCode, Message: err.Error(), Err: err}
	}
	if !strings.Contains(resp.Header.Get("Content-Type"), "json") {
		return nil, nil
	}
	return raw, nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}

// decode unmarshals a JSON body into v; an empty body leaves v untouched.
func decode(op string, raw []byte, v any) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%s: decoding response: %w", op, err)
	}
	return nil
}
