// Package client talks to the Memoria REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/memoria-app/memoria/internal/apperr"
	"github.com/memoria-app/memoria/internal/service/credential"
)

const (
	defaultTimeout = 30 * time.Second
	maxErrorBody   = 64 << 10

	// HeaderRequestID carries a per-request uuid for log correlation.
	HeaderRequestID = "X-Request-ID"
)

// Client provides access to the Memoria API.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	creds          credential.Store
	logger         *zap.Logger
	onUnauthorized func()
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout bounds every request. The HTTP client is copied first so a
// shared one passed to WithHTTPClient is left untouched.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			hc := *c.httpClient
			hc.Timeout = timeout
			c.httpClient = &hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithUnauthorizedHandler installs fn to run when a protected call gets a 401.
func WithUnauthorizedHandler(fn func()) ClientOption {
	return func(c *Client) {
		c.onUnauthorized = fn
	}
}

// New creates a client rooted at baseURL. Bearer tokens are read from creds
// at request time.
func New(baseURL string, creds credential.Store, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		creds:      creds,
		logger:     zap.NewNop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// SetUnauthorizedHandler replaces the 401 hook after construction.
func (c *Client) SetUnauthorizedHandler(fn func()) {
	c.onUnauthorized = fn
}

type request struct {
	op          string
	method      string
	path        string
	body        io.Reader
	contentType string
	protected   bool
}

func jsonRequest(op, method, path string, payload any, protected bool) (request, error) {
	req := request{op: op, method: method, path: path, protected: protected}
	if payload == nil {
		return req, nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return request{}, fmt.Errorf("%s: marshal request: %w", op, err)
	}
	req.body = bytes.NewReader(body)
	req.contentType = "application/json"
	return req, nil
}

// do sends r and decodes a 2xx body into out when out is non-nil.
func (c *Client) do(ctx context.Context, r request, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, r.body)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", r.op, err)
	}

	requestID := uuid.NewString()
	c.setHeaders(httpReq, r, requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Warn("request failed",
			zap.String("op", r.op),
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		return &apperr.NetworkError{Op: r.op, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("request completed",
		zap.String("op", r.op),
		zap.String("method", r.method),
		zap.String("path", r.path),
		zap.Int("status", resp.StatusCode),
		zap.String("request_id", requestID),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode == http.StatusUnauthorized && r.protected {
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return &apperr.AuthError{Op: r.op}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.handleError(r.op, resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", r.op, err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request, r request, requestID string) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderRequestID, requestID)
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if !r.protected || c.creds == nil {
		return
	}
	if creds, ok := c.creds.Get(); ok {
		req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	}
}

// handleError turns a non-2xx response into an *apperr.APIError.
func (c *Client) handleError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &apperr.APIError{
		Op:      op,
		Status:  resp.StatusCode,
		Message: parseErrorMessage(body),
	}
}

// parseErrorMessage extracts a display message from an error body. It looks
// for "error", then "detail", then flattens field errors in key order.
func parseErrorMessage(body []byte) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}

	for _, key := range []string{"error", "detail"} {
		if msg, ok := payload[key].(string); ok && msg != "" {
			return msg
		}
	}

	keys := make([]string, 0, len(payload))
	for key := range payload {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var parts []string
	for _, key := range keys {
		parts = append(parts, flatten(payload[key])...)
	}
	return strings.Join(parts, ", ")
}

func flatten(v any) []string {
	switch val := v.(type) {
	case string:
		if val == "" {
			return nil
		}
		return []string{val}
	case []any:
		var out []string
		for _, item := range val {
			out = append(out, flatten(item)...)
		}
		return out
	default:
		return nil
	}
}
