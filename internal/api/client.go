// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/jeranaias/assist-tui/internal/logging"
	"github.com/jeranaias/assist-tui/internal/metrics"
)

const (
	// DefaultBaseURL is the local development backend.
	DefaultBaseURL = "http://localhost:8000/api/v1"

	// DefaultTimeout bounds every request that has no shorter context deadline.
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize caps JSON response bodies.
	MaxResponseSize = 10 * 1024 * 1024

	// RequestIDHeader carries a per-request UUID for correlating logs.
	RequestIDHeader = "X-Request-ID"
)

// TokenSource supplies the current bearer token. It is consulted on every
// request so a logout is visible immediately.
type TokenSource interface {
	Token() string
}

// StaticToken is a fixed TokenSource, mostly for tests and one-shot CLI use.
type StaticToken string

func (t StaticToken) Token() string { return string(t) }

// Client talks to the help-assistant API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	limiter    *rate.Limiter
	userAgent  string
	log        *logging.Logger
	metrics    *metrics.Metrics
}

// NewClient creates a client for baseURL. tokens may be nil when only
// public endpoints are used.
func NewClient(baseURL string, tokens TokenSource) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
				TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
			},
		},
		tokens:    tokens,
		userAgent: "assist-tui",
		log:       logging.Default().Component("api"),
	}
}

// WithTimeout sets the per-request timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	if timeout > 0 {
		c.httpClient.Timeout = timeout
	}
	return c
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// WithRateLimit caps outgoing requests per second. 0 disables limiting.
func (c *Client) WithRateLimit(perSec float64) *Client {
	if perSec <= 0 {
		c.limiter = nil
		return c
	}
	burst := int(perSec)
	if burst < 1 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Limit(perSec), burst)
	return c
}

// WithUserAgent sets the User-Agent header.
func (c *Client) WithUserAgent(ua string) *Client {
	if ua != "" {
		c.userAgent = ua
	}
	return c
}

// WithLogger sets the request logger.
func (c *Client) WithLogger(l *logging.Logger) *Client {
	if l != nil {
		c.log = l.Component("api")
	}
	return c
}

// WithMetrics enables request metrics.
func (c *Client) WithMetrics(m *metrics.Metrics) *Client {
	c.metrics = m
	return c
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// currentToken reads the token source fresh for every call.
func (c *Client) currentToken() string {
	if c.tokens == nil {
		return ""
	}
	return c.tokens.Token()
}

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

// call describes one API request.
type call struct {
	method string
	path   string // concrete path, e.g. /help-assistant/3
	route  string // templated path for metrics, e.g. /help-assistant/:id
	body   any

	// raw overrides body for non-JSON payloads such as multipart uploads.
	raw         io.Reader
	contentType string

	// public endpoints skip the bearer header.
	public bool
	// authFlow maps every non-2xx response to *AuthError.
	authFlow bool
}

// validator is implemented by response types that check field presence.
type validator interface {
	Validate() error
}

// do performs a JSON call and decodes the response into out (may be nil).
func (c *Client) do(ctx context.Context, cl call, out any) error {
	resp, err := c.send(ctx, cl)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := readResponse(resp)
	if err != nil {
		return &NetworkError{Op: cl.method + " " + cl.route, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.errorFor(cl, resp.StatusCode, body)
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		if out != nil {
			return fmt.Errorf("%w: empty body from %s %s", ErrInvalidResponse, cl.method, cl.route)
		}
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrInvalidResponse, cl.method, cl.route, err)
	}
	if v, ok := out.(validator); ok {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// send performs the HTTP exchange and returns the live response. The caller
// closes the body. Non-2xx statuses are not errors at this level.
func (c *Client) send(ctx context.Context, cl call) (*http.Response, error) {
	op := cl.method + " " + cl.route

	token := ""
	if !cl.public {
		token = c.currentToken()
		if token == "" {
			return nil, ErrNotAuthenticated
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &NetworkError{Op: op, Err: err}
		}
	}

	var reader io.Reader
	contentType := cl.contentType
	switch {
	case cl.raw != nil:
		reader = cl.raw
	case cl.body != nil:
		data, err := json.Marshal(cl.body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, c.baseURL+cl.path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(RequestIDHeader, requestID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	done := c.metrics.TrackInFlight()
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	done()

	// Keep the token out of anything that might dump the request later.
	req.Header.Del("Authorization")

	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	c.metrics.ObserveRequest(cl.method, cl.route, status, duration)
	c.log.LogRequest(cl.method, cl.route, status, duration, requestID, err)

	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	return resp, nil
}

// errorFor maps a non-2xx response to the error taxonomy.
func (c *Client) errorFor(cl call, status int, body []byte) error {
	msg := extractMessage(status, body)
	switch {
	case cl.authFlow:
		return &AuthError{Status: status, Message: msg}
	case isExpiryMessage(status, msg):
		return &SessionExpiredError{Status: status, Message: msg}
	default:
		return &APIError{Status: status, Message: msg, Method: cl.method, Path: cl.path}
	}
}

// readResponse reads a body with a size limit.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// IsNetwork reports whether err is a transport failure rather than an
// API answer.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}
