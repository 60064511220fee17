// Package api is the typed HTTP client for the Sahayak backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/iksnae/sahayak/internal"
)

// DefaultTimeout bounds every request unless overridden
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of an error response is read
const maxErrorBody = 64 << 10

// TokenSource supplies the bearer token at request time
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a function to TokenSource
type TokenFunc func() string

// Token returns f()
func (f TokenFunc) Token() string { return f() }

// Client talks to the backend. Every call is single shot with no retry.
type Client struct {
	baseURL string
	http    *http.Client

	mu     sync.RWMutex
	tokens TokenSource
}

// Option configures a Client
type Option func(*Client)

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithTokenSource sets where bearer tokens come from
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) {
		c.tokens = ts
	}
}

// NewClient creates a client for the API rooted at baseURL
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client was created with
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetTokenSource swaps the token source after construction
func (c *Client) SetTokenSource(ts TokenSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = ts
}

func (c *Client) token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.tokens == nil {
		return ""
	}
	return c.tokens.Token()
}

// Ping calls the API root
func (c *Client) Ping(ctx context.Context) (internal.APIMessage, error) {
	var msg internal.APIMessage
	err := c.do(ctx, "ping", http.MethodGet, "/", nil, &msg, false)
	return msg, err
}

// do sends one request and decodes a JSON response into out
func (c *Client) do(ctx context.Context, op, method, path string, body, out interface{}, auth bool) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &internal.APIError{Op: op, Err: fmt.Errorf("failed to encode request: %w", err)}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &internal.APIError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		token := c.token()
		if token == "" {
			return &internal.APIError{Op: op, Kind: internal.FailureUnauthorized, Err: internal.ErrNotAuthenticated}
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	internal.LogDebug("%s %s", method, path)
	resp, err := c.http.Do(req)
	if err != nil {
		return &internal.APIError{Op: op, Kind: internal.FailureNetwork, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &internal.APIError{
			Op:     op,
			Status: resp.StatusCode,
			Kind:   classify(op, resp.StatusCode),
			Detail: parseDetail(raw),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		kind := internal.FailureServer
		if isTransport(err) {
			kind = internal.FailureNetwork
		}
		return &internal.APIError{Op: op, Status: resp.StatusCode, Kind: kind, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

// classify maps an HTTP status to a failure kind
func classify(op string, status int) internal.FailureKind {
	switch {
	case status == http.StatusUnauthorized && op == opLogin:
		return internal.FailureInvalidCredentials
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return internal.FailureUnauthorized
	case status == http.StatusNotFound:
		return internal.FailureNotFound
	case status == http.StatusBadRequest, status == http.StatusConflict, status == http.StatusUnprocessableEntity:
		return internal.FailureValidation
	case status >= http.StatusInternalServerError:
		return internal.FailureServer
	default:
		return internal.FailureUnknown
	}
}

// parseDetail extracts the backend "detail" field. Validation errors carry a
// list of objects instead of a string; those are returned compacted.
func parseDetail(raw []byte) string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || len(body.Detail) == 0 {
		return strings.TrimSpace(string(raw))
	}
	var s string
	if err := json.Unmarshal(body.Detail, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, body.Detail); err != nil {
		return string(body.Detail)
	}
	return buf.String()
}

func isTransport(err error) bool {
	return errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
