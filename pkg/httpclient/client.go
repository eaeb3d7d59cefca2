package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/angelmondragon/storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/types"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const maxResponseBytes = 4 << 20

// TokenSource yields the bearer token to attach, if any.
type TokenSource func(ctx context.Context) (string, bool)

// Response is a fully read backend response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Envelope decodes the body as the backend's standard envelope.
func (r *Response) Envelope() (*types.ServerResponse, error) {
	if r == nil {
		return nil, fmt.Errorf("nil response")
	}
	var env types.ServerResponse
	if err := json.Unmarshal(r.Body, &env); err != nil {
		return nil, fmt.Errorf("decoding response envelope: %w", err)
	}
	return &env, nil
}

// Client talks JSON to the storefront backend.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*Response]
	token   TokenSource
	logg    *logger.Logger
}

type Option func(*Client)

// WithTokenSource attaches Authorization headers from ts.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.token = ts }
}

// WithHTTPClient replaces the instrumented default transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(logg *logger.Logger) Option {
	return func(c *Client) { c.logg = logg }
}

// New builds a client for cfg.BaseURL. Requests are never retried.
func New(cfg config.APIConfig, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("api base url is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing api base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("api base url %q must be absolute", cfg.BaseURL)
	}

	c := &Client{
		baseURL: base,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if cfg.BreakerEnabled {
		c.breaker = newBreaker(cfg)
	}
	return c, nil
}

func newBreaker(cfg config.APIConfig) *gobreaker.CircuitBreaker[*Response] {
	maxFailures := cfg.BreakerMaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	return gobreaker.NewCircuitBreaker[*Response](gobreaker.Settings{
		Name:     "storefront-api",
		Interval: cfg.BreakerInterval,
		Timeout:  cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		// client errors say nothing about backend health
		IsSuccessful: func(err error) bool {
			return err == nil || !pkgerrors.HasCode(err, pkgerrors.CodeDependency)
		},
	})
}

func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.do(ctx, http.MethodPut, path, body)
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*Response, error) {
	if c.breaker == nil {
		return c.send(ctx, method, path, body)
	}
	resp, err := c.breaker.Execute(func() (*Response, error) {
		return c.send(ctx, method, path, body)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "storefront backend temporarily unavailable").
			WithDetails(map[string]any{"method": method, "path": path})
	}
	return resp, err
}

func (c *Client) send(ctx context.Context, method, path string, body any) (*Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "encoding request body")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.JoinPath(path).String(), reader)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		if token, ok := c.token(ctx); ok && token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	httpResp, err := c.http.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "storefront backend unreachable").
			WithDetails(map[string]any{"method": method, "path": path})
	}
	defer c.closeBody(ctx, httpResp.Body)

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading backend response")
	}

	resp := &Response{StatusCode: httpResp.StatusCode, Header: httpResp.Header, Body: raw}
	if err := checkResponse(method, path, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// checkResponse turns HTTP failures and failed envelopes into typed errors.
func checkResponse(method, path string, resp *Response) error {
	details := map[string]any{"method": method, "path": path, "status": resp.StatusCode}

	env, envErr := resp.Envelope()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		code := pkgerrors.FromHTTPStatus(resp.StatusCode)
		msg := http.StatusText(resp.StatusCode)
		if envErr == nil && env.Message != "" {
			msg = env.Message
		}
		return pkgerrors.New(code, msg).WithDetails(details)
	}

	if envErr == nil && !env.OK() {
		details["envelope_code"] = env.Code
		msg := env.Message
		if msg == "" {
			msg = "request rejected by backend"
		}
		return pkgerrors.New(pkgerrors.FromHTTPStatus(env.Code), msg).WithDetails(details)
	}
	return nil
}

func (c *Client) closeBody(ctx context.Context, body io.Closer) {
	if err := body.Close(); err != nil && c.logg != nil {
		c.logg.Warn(ctx, "closing backend response body failed")
	}
}
