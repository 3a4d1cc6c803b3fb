package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/suteetoe/winehouse/pkg/config"
	"go.uber.org/zap"
)

// TokenSource supplies the bearer token for outgoing calls and forgets it
// when the backend rejects the session.
type TokenSource interface {
	Token() string
	Clear()
}

// UnauthorizedHook is invoked after a 401 has cleared the token
type UnauthorizedHook func(ctx context.Context, method, path string)

// Observer receives timing for every backend call
type Observer func(method, route string, status int, elapsed time.Duration)

// Client wraps the remote REST backend. A Client is bound to at most one
// TokenSource; WithTokens returns a copy sharing the same transport.
type Client struct {
	rest           *resty.Client
	logger         *zap.Logger
	tokens         TokenSource
	onUnauthorized UnauthorizedHook
	observe        Observer
}

// Option configures a Client
type Option func(*Client)

// WithObserver installs a timing observer
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observe = o }
}

// WithUnauthorizedHook installs the global 401 handler
func WithUnauthorizedHook(h UnauthorizedHook) Option {
	return func(c *Client) { c.onUnauthorized = h }
}

// WithHTTPClient replaces the underlying transport client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		base := c.rest.BaseURL
		c.rest = resty.NewWithClient(hc).SetBaseURL(base)
		setDefaults(c.rest)
	}
}

// New creates a Client for the configured backend
func New(cfg config.APIConfig, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	rest := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount)
	setDefaults(rest)

	c := &Client{
		rest:   rest,
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func setDefaults(rest *resty.Client) {
	rest.SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
}

// WithTokens returns a copy of the client that authenticates with ts
func (c *Client) WithTokens(ts TokenSource) *Client {
	cp := *c
	cp.tokens = ts
	return &cp
}

// BaseURL returns the backend base URL
func (c *Client) BaseURL() string {
	return c.rest.BaseURL
}

type callOptions struct {
	anonymous bool
	query     map[string]string
}

// CallOption adjusts a single call
type CallOption func(*callOptions)

// Unauthenticated skips the bearer header (register, login)
func Unauthenticated() CallOption {
	return func(o *callOptions) { o.anonymous = true }
}

// Query adds query parameters to the call
func Query(params map[string]string) CallOption {
	return func(o *callOptions) {
		if o.query == nil {
			o.query = map[string]string{}
		}
		for k, v := range params {
			if v != "" {
				o.query[k] = v
			}
		}
	}
}

// Get issues a GET and decodes the response into out
func (c *Client) Get(ctx context.Context, path string, out any, opts ...CallOption) error {
	return c.Do(ctx, http.MethodGet, path, nil, out, opts...)
}

// Post issues a POST with a JSON body
func (c *Client) Post(ctx context.Context, path string, body, out any, opts ...CallOption) error {
	return c.Do(ctx, http.MethodPost, path, body, out, opts...)
}

// Put issues a PUT with a JSON body
func (c *Client) Put(ctx context.Context, path string, body, out any, opts ...CallOption) error {
	return c.Do(ctx, http.MethodPut, path, body, out, opts...)
}

// Patch issues a PATCH with an optional JSON body
func (c *Client) Patch(ctx context.Context, path string, body, out any, opts ...CallOption) error {
	return c.Do(ctx, http.MethodPatch, path, body, out, opts...)
}

// Delete issues a DELETE
func (c *Client) Delete(ctx context.Context, path string, out any, opts ...CallOption) error {
	return c.Do(ctx, http.MethodDelete, path, nil, out, opts...)
}

// Do performs the call, translating transport and status failures into *APIError
func (c *Client) Do(ctx context.Context, method, path string, body, out any, opts ...CallOption) error {
	var o callOptions
	for _, opt := range opts {
		opt(&o)
	}

	req := c.rest.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}
	if !o.anonymous && c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.SetAuthToken(token)
		}
	}
	if len(o.query) > 0 {
		req.SetQueryParams(o.query)
	}

	start := time.Now()
	resp, err := req.Execute(method, path)
	elapsed := time.Since(start)

	if err != nil {
		c.record(method, path, 0, elapsed)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		c.logger.Warn("Backend unreachable",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err))
		return &APIError{Method: method, Path: path, Message: err.Error(), Err: ErrUnavailable}
	}

	status := resp.StatusCode()
	c.record(method, path, status, elapsed)

	if status >= http.StatusBadRequest {
		return c.failure(ctx, method, path, status, resp.Body())
	}

	c.logger.Debug("Backend call successful",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", status),
		zap.Duration("latency", elapsed))

	if out == nil || len(resp.Body()) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func (c *Client) failure(ctx context.Context, method, path string, status int, body []byte) error {
	msg, fields := parseErrorBody(body)
	apiErr := &APIError{
		Status:  status,
		Method:  method,
		Path:    path,
		Message: msg,
		Fields:  fields,
		Err:     sentinelFor(status),
	}

	if status == http.StatusUnauthorized {
		c.logger.Warn("Backend rejected session, clearing token",
			zap.String("method", method),
			zap.String("path", path))
		if c.tokens != nil {
			c.tokens.Clear()
		}
		if c.onUnauthorized != nil {
			c.onUnauthorized(ctx, method, path)
		}
		return apiErr
	}

	logFn := c.logger.Warn
	if status >= http.StatusInternalServerError {
		logFn = c.logger.Error
	}
	logFn("Backend request returned error status",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", status),
		zap.String("message", msg))

	return apiErr
}

func (c *Client) record(method, path string, status int, elapsed time.Duration) {
	if c.observe != nil {
		c.observe(method, RouteOf(path), status, elapsed)
	}
}

var idSegment = regexp.MustCompile(`/[0-9]+(/|$)`)

// RouteOf collapses numeric path segments so metric labels stay bounded
func RouteOf(path string) string {
	for idSegment.MatchString(path) {
		path = idSegment.ReplaceAllString(path, "/:id$1")
	}
	return path
}

// StatusOf extracts the backend status code from err, 0 if none
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
