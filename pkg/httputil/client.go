package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/edgeflare/pgrest/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const DefaultTimeout = 30 * time.Second

// Request describes one logical HTTP call. Body may be nil, []byte, string or
// any value encoding/json can marshal.
type Request struct {
	Method  string
	URL     string
	Headers http.Header
	Body    any
}

// Response represents an HTTP response with additional metadata
type Response struct {
	Headers    http.Header
	Request    *http.Request
	Body       []byte
	StatusCode int
}

// RequestFunc sends a request. Client.Do is one; Retry wraps one in another.
type RequestFunc func(ctx context.Context, req Request) (*Response, error)

// Client sends requests to a single backend. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	timeout    time.Duration
	logger     *zap.Logger
	headers    http.Header
	limiter    *rate.Limiter
	retry      *RetryConfig
	send       RequestFunc
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the underlying *http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout bounds every attempt, including reading the body.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.timeout = d }
}

// WithLogger sets the logger. A nil logger disables logging.
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		if logger == nil {
			logger = zap.NewNop()
		}
		c.logger = logger
	}
}

// WithRetry retries requests rejected with 429 Too Many Requests.
func WithRetry(cfg RetryConfig) ClientOption {
	return func(c *Client) { c.retry = &cfg }
}

// WithRateLimit throttles outgoing attempts to r per second with the given burst.
// Retries count against the same budget.
func WithRateLimit(r rate.Limit, burst int) ClientOption {
	return func(c *Client) {
		if r > 0 {
			c.limiter = rate.NewLimiter(r, max(burst, 1))
		}
	}
}

// WithHeader adds a header sent with every request. Request headers with the
// same key take precedence.
func WithHeader(key, value string) ClientOption {
	return func(c *Client) { c.headers.Add(key, value) }
}

// NewClient returns a Client. Without options it logs nothing, never retries
// and times out after DefaultTimeout.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
		logger:     zap.NewNop(),
		headers:    make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.timeout > 0 && c.httpClient.Timeout == 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}

	c.send = c.do
	if c.retry != nil {
		cfg := *c.retry
		if cfg.Notify == nil {
			logger := c.logger
			cfg.Notify = func(err error, next time.Duration) {
				logger.Info("retrying", zap.Error(err), zap.Duration("backoff", next))
			}
		}
		c.send = Retry(c.do, cfg)
	}
	return c
}

// Logger returns the client's logger.
func (c *Client) Logger() *zap.Logger {
	return c.logger
}

// Do sends req, retrying according to the client's configuration. Every
// attempt of one call carries the same X-Request-Id. A non-2xx response is
// returned together with an *APIError.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if _, ok := RequestID(ctx); !ok {
		ctx = WithRequestID(ctx, uuid.New().String())
	}

	body, err := encodeBody(req.Body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Body = body
	}

	return c.send(ctx, req)
}

// do performs exactly one attempt.
func (c *Client) do(ctx context.Context, r Request) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	body, err := encodeBody(r.Body)
	if err != nil {
		return nil, err
	}
	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, values := range c.headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	for key, values := range r.Headers {
		req.Header.Del(key)
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	reqID, ok := RequestID(ctx)
	if !ok {
		reqID = uuid.New().String()
	}
	req.Header.Set(RequestIDHeader, reqID)

	fields := []zap.Field{
		zap.String("req_id", reqID),
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()),
		zap.Int("attempt", attemptFrom(ctx)),
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		latency := time.Since(start)
		observe(req.Method, metrics.StatusTransportError, latency)
		c.logger.Error("request failed", append(fields, zap.Duration("latency", latency), zap.Error(err))...)
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Redacted(), err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	latency := time.Since(start)
	observe(req.Method, strconv.Itoa(resp.StatusCode), latency)
	fields = append(fields, zap.Int("status", resp.StatusCode), zap.Duration("latency", latency))
	if err != nil {
		c.logger.Error("failed to read response body", append(fields, zap.Error(err))...)
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	response := &Response{
		StatusCode: resp.StatusCode,
		Body:       data,
		Headers:    resp.Header,
		Request:    req,
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("response", fields...)
		return response, &APIError{
			StatusCode: resp.StatusCode,
			Method:     req.Method,
			URL:        req.URL.String(),
			Body:       data,
			Header:     resp.Header,
		}
	}

	c.logger.Debug("response", fields...)
	return response, nil
}

func observe(method, status string, latency time.Duration) {
	metrics.HTTPRequests.WithLabelValues(method, status).Inc()
	metrics.HTTPRequestDuration.WithLabelValues(method).Observe(latency.Seconds())
}

func encodeBody(payload any) ([]byte, error) {
	switch v := payload.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	case json.RawMessage:
		return v, nil
	default:
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal payload: %w", err)
		}
		return b, nil
	}
}
