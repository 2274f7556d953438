package httpx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// RetryPolicy controls the retry behaviour for transient failures.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Jitter     float64
	RetryIf    func(resp *http.Response, err error) bool
}

// DefaultRetryPolicy implements a conservative retry strategy.
var DefaultRetryPolicy = RetryPolicy{
	MaxRetries: 3,
	BaseDelay:  250 * time.Millisecond,
	MaxDelay:   2 * time.Second,
	Jitter:     0.25,
}

// DefaultLogRetryAfter is the retry delay from which retries are logged at
// warn level instead of debug.
const DefaultLogRetryAfter = 10 * time.Second

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used by the helper.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithHeaders assigns default headers added to every request.
func WithHeaders(h http.Header) Option {
	return func(c *Client) {
		for k, values := range h {
			for _, v := range values {
				c.headers.Add(k, v)
			}
		}
	}
}

// WithRetryPolicy overrides the default retry configuration.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(c *Client) {
		c.retryPolicy = policy
	}
}

// WithLogger attaches a logger used for retry traces.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithLogRetryAfter sets the delay threshold from which a retry is logged as
// a warning. A non-positive value keeps every retry at debug level.
func WithLogRetryAfter(d time.Duration) Option {
	return func(c *Client) {
		c.logRetryAfter = d
	}
}

// Client wraps http.Client providing retry and backoff. It satisfies the
// executor contract Do(*http.Request) (*http.Response, error).
type Client struct {
	httpClient    *http.Client
	headers       http.Header
	retryPolicy   RetryPolicy
	logger        *zap.Logger
	logRetryAfter time.Duration
}

// NewClient creates a retrying Client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		headers:       make(http.Header),
		retryPolicy:   DefaultRetryPolicy,
		logger:        zap.NewNop(),
		logRetryAfter: DefaultLogRetryAfter,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.retryPolicy.MaxRetries < 0 {
		c.retryPolicy.MaxRetries = 0
	}
	if c.retryPolicy.BaseDelay <= 0 {
		c.retryPolicy.BaseDelay = DefaultRetryPolicy.BaseDelay
	}
	if c.retryPolicy.MaxDelay <= 0 {
		c.retryPolicy.MaxDelay = DefaultRetryPolicy.MaxDelay
	}
	return c
}

// Do executes the provided request and returns the response. Responses with
// a status of 400 or above are returned as *HTTPError once retries are
// exhausted; their bodies are already drained and closed.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("httpx: request is nil")
	}
	if req.Method == "" {
		return nil, errors.New("httpx: HTTP method is required")
	}
	if req.URL == nil {
		return nil, errors.New("httpx: request URL is required")
	}

	// Buffer the body once so every attempt can replay it.
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		data, err := ReadAllAndClose(req.Body)
		if err != nil {
			return nil, fmt.Errorf("httpx: read request body: %w", err)
		}
		req.Body = io.NopCloser(bytes.NewReader(data))
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		}
	}

	ctx := req.Context()
	backoff := NewBackoff(c.retryPolicy.BaseDelay, c.retryPolicy.MaxDelay, c.retryPolicy.Jitter)
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		httpReq, err := c.prepare(req, attempt)
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			closeBody(respBody(resp))
			if !c.shouldRetry(attempt, nil, err) {
				return nil, err
			}
			if err := c.backoff(ctx, req, attempt, backoff.ForAttempt(attempt), err); err != nil {
				return nil, err
			}
			continue
		}

		if resp.StatusCode < 400 {
			return resp, nil
		}

		httpErr := c.handleError(resp)
		if !c.shouldRetry(attempt, resp, httpErr) {
			return nil, httpErr
		}
		delay := backoff.ForAttempt(attempt)
		var he *HTTPError
		if errors.As(httpErr, &he) {
			if ra := he.RetryAfter(); ra > 0 {
				delay = min(ra, c.retryPolicy.MaxDelay)
			}
		}
		if err := c.backoff(ctx, req, attempt, delay, httpErr); err != nil {
			return nil, err
		}
	}
}

func (c *Client) prepare(req *http.Request, attempt int) (*http.Request, error) {
	httpReq := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("httpx: replay request body (attempt %d): %w", attempt+1, err)
		}
		httpReq.Body = body
	}

	for k, values := range c.headers {
		if httpReq.Header.Get(k) != "" {
			continue
		}
		for _, v := range values {
			httpReq.Header.Add(k, v)
		}
	}
	return httpReq, nil
}

func (c *Client) shouldRetry(attempt int, resp *http.Response, err error) bool {
	if attempt >= c.retryPolicy.MaxRetries {
		return false
	}
	if c.retryPolicy.RetryIf != nil {
		return c.retryPolicy.RetryIf(resp, err)
	}
	if resp == nil {
		if err == nil {
			return false
		}
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	return isRetryableStatus(resp.StatusCode)
}

func (c *Client) backoff(ctx context.Context, req *http.Request, attempt int, delay time.Duration, cause error) error {
	fields := []zap.Field{
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("attempt", attempt+1),
		zap.Duration("delay", delay),
		zap.Error(cause),
	}
	if c.logRetryAfter > 0 && delay >= c.logRetryAfter {
		c.logger.Warn("retrying request", fields...)
	} else {
		c.logger.Debug("retrying request", fields...)
	}
	return c.sleep(ctx, delay)
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func closeBody(rc io.ReadCloser) {
	if rc != nil {
		_ = rc.Close()
	}
}

func respBody(resp *http.Response) io.ReadCloser {
	if resp == nil {
		return nil
	}
	return resp.Body
}

func (c *Client) handleError(resp *http.Response) error {
	body, err := ReadAllAndClose(resp.Body)
	if err != nil {
		return fmt.Errorf("httpx: read error body: %w", err)
	}
	httpErr := &HTTPError{
		StatusCode: resp.StatusCode,
		Body:       body,
		Header:     resp.Header.Clone(),
	}
	if isJSON(resp.Header.Get("Content-Type")) {
		httpErr.JSON = decodeJSONBody(body)
	}
	return httpErr
}

// ReadAllAndClose drains the reader and ensures it is closed.
func ReadAllAndClose(rc io.ReadCloser) ([]byte, error) {
	if rc == nil {
		return nil, nil
	}
	defer closeBody(rc)
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func isJSON(contentType string) bool {
	if contentType == "" {
		return false
	}
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		contentType = contentType[:idx]
	}
	return strings.TrimSpace(contentType) == "application/json"
}
