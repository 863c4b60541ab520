package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"breeze-trading-bot/internal/logger"
)

const (
	DefaultTimeout   = 30 * time.Second
	RequestIDHeader  = "X-Request-Id"
	defaultUserAgent = "breeze-trading-bot"
)

// Client is a JSON-over-HTTP client with a fixed base URL and default
// headers. It never retries: a request is sent exactly once.
type Client struct {
	rc         *resty.Client
	baseURL    string
	timeout    time.Duration
	headers    map[string]string
	useLogging bool
}

// ClientOption configures the API client
type ClientOption func(*Client)

// WithTimeout bounds every request. Zero or negative keeps the default.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithHeader sets a default header for all requests
func WithHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.headers[key] = value
	}
}

// WithLogging times every request as a logged, traced operation.
func WithLogging(enabled bool) ClientOption {
	return func(c *Client) {
		c.useLogging = enabled
	}
}

// WithTransport replaces the underlying round tripper.
func WithTransport(rt http.RoundTripper) ClientOption {
	return func(c *Client) {
		c.rc.SetTransport(rt)
	}
}

// NewClient creates a new API client with the given options
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		rc:      resty.New(),
		timeout: DefaultTimeout,
		headers: map[string]string{
			"Accept":     "application/json",
			"User-Agent": defaultUserAgent,
		},
	}
	for _, opt := range opts {
		opt(c)
	}

	c.rc.SetBaseURL(c.baseURL).
		SetTimeout(c.timeout).
		SetRetryCount(0).
		SetHeaders(c.headers)
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Request represents an HTTP request configuration
type Request struct {
	Method  string
	Path    string
	Query   map[string]string
	Body    any
	Headers map[string]string
}

// Response is a fully read HTTP response. Non-2xx statuses are returned as
// responses, not errors; the caller decides what they mean.
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
	RequestID  string
	Duration   time.Duration
}

func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// ParseJSON decodes the response body into v.
func (r *Response) ParseJSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to parse JSON response: %w", err)
	}
	return nil
}

func (r *Response) String() string {
	return string(r.Body)
}

type FailureKind int

const (
	FailureConnection FailureKind = iota + 1
	FailureTimeout
	FailureEncoding
)

func (k FailureKind) String() string {
	switch k {
	case FailureTimeout:
		return "timeout"
	case FailureEncoding:
		return "encoding"
	default:
		return "connection"
	}
}

// RequestError is returned when no HTTP response was received.
type RequestError struct {
	Kind   FailureKind
	Method string
	URL    string
	Err    error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s %s: %s failure: %v", e.Method, e.URL, e.Kind, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Do executes the request once, bounded by the client timeout and ctx.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	requestID := uuid.NewString()
	r := c.rc.R().
		SetContext(ctx).
		SetHeader(RequestIDHeader, requestID)

	for key, value := range req.Headers {
		r.SetHeader(key, value)
	}
	if len(req.Query) > 0 {
		r.SetQueryParams(req.Query)
	}
	if req.Body != nil {
		body, err := json.Marshal(req.Body)
		if err != nil {
			return nil, &RequestError{Kind: FailureEncoding, Method: req.Method, URL: req.Path, Err: err}
		}
		r.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	var op *logger.OperationTimer
	if c.useLogging {
		op = logger.StartOperation(ctx, "http."+req.Method, "path", req.Path, "request_id", requestID)
		r.SetContext(op.Context())
	}

	start := time.Now()
	resp, err := r.Execute(req.Method, req.Path)
	duration := time.Since(start)
	if err != nil {
		kind := classify(err)
		if op != nil {
			op.EndWithError(err, "failure", kind.String())
		}
		return nil, &RequestError{Kind: kind, Method: req.Method, URL: c.baseURL + req.Path, Err: err}
	}
	if op != nil {
		op.End("status", resp.StatusCode(), "body_size", len(resp.Body()))
	}

	return &Response{
		StatusCode: resp.StatusCode(),
		Body:       resp.Body(),
		Headers:    resp.Header(),
		RequestID:  requestID,
		Duration:   duration,
	}, nil
}

// Get performs a GET request
func (c *Client) Get(ctx context.Context, path string, query, headers map[string]string) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodGet, Path: path, Query: query, Headers: headers})
}

// Post performs a POST request with a JSON body
func (c *Client) Post(ctx context.Context, path string, body any, headers map[string]string) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPost, Path: path, Body: body, Headers: headers})
}

// classify maps a transport error to a failure kind. Deadline expiry of the
// per-request context and net timeouts are both reported as timeouts.
func classify(err error) FailureKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailureTimeout
	}
	return FailureConnection
}

