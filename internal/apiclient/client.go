// Package apiclient is the HTTP helper used by API scenarios.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/shehryarbajwa/browserbase-e2e/internal/config"
	"github.com/shehryarbajwa/browserbase-e2e/internal/ratelimit"
)

// Options configures a Client
type Options struct {
	BaseURL  string
	Timeout  time.Duration
	Username string
	Password string
	// Headers are sent with every request; per-call headers win.
	Headers map[string]string
	// Limiter throttles requests per host. Nil disables throttling.
	Limiter    *ratelimit.Limiter
	HTTPClient *http.Client
}

func OptionsFromConfig(cfg config.APIConfig) Options {
	return Options{
		BaseURL:  cfg.BaseURL,
		Timeout:  cfg.Timeout,
		Username: cfg.Username,
		Password: cfg.Password,
		Headers:  cfg.Headers,
		Limiter:  ratelimit.NewLimiter(cfg.RequestsPerSecond, cfg.Burst),
	}
}

// Client sends JSON requests relative to a base URL
type Client struct {
	base   *url.URL
	opts   Options
	http   *http.Client
	logger *zap.Logger
}

// Response is a completed exchange. Data holds the decoded JSON body, if any.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
	Data   any
}

// Object returns Data as a JSON object, or nil when the body was not one
func (r *Response) Object() map[string]any {
	obj, _ := r.Data.(map[string]any)
	return obj
}

// HTTPError is returned for responses outside the 2xx range
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.URL, e.StatusCode, truncate(string(e.Body), 200))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func New(opts Options, logger *zap.Logger) (*Client, error) {
	var base *url.URL
	if opts.BaseURL != "" {
		u, err := url.Parse(opts.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid base url: %w", err)
		}
		base = u
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{base: base, opts: opts, http: hc, logger: logger}, nil
}

func (c *Client) Get(ctx context.Context, endpoint string, params url.Values, headers map[string]string) (*Response, error) {
	return c.Do(ctx, http.MethodGet, endpoint, params, nil, headers)
}

func (c *Client) Post(ctx context.Context, endpoint string, payload any, headers map[string]string) (*Response, error) {
	return c.Do(ctx, http.MethodPost, endpoint, nil, payload, headers)
}

func (c *Client) Put(ctx context.Context, endpoint string, payload any, headers map[string]string) (*Response, error) {
	return c.Do(ctx, http.MethodPut, endpoint, nil, payload, headers)
}

func (c *Client) Delete(ctx context.Context, endpoint string, params url.Values, headers map[string]string) (*Response, error) {
	return c.Do(ctx, http.MethodDelete, endpoint, params, nil, headers)
}

// Do sends one request. payload is sent as is when it is []byte, JSON-encoded otherwise.
func (c *Client) Do(ctx context.Context, method, endpoint string, params url.Values, payload any, headers map[string]string) (*Response, error) {
	target, err := c.resolve(endpoint, params)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	switch p := payload.(type) {
	case nil:
	case []byte:
		body = bytes.NewReader(p)
	default:
		data, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.opts.Headers {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if c.opts.Username != "" && c.opts.Password != "" {
		req.SetBasicAuth(c.opts.Username, c.opts.Password)
	}

	if c.opts.Limiter != nil {
		if err := c.opts.Limiter.Wait(ctx, target.Host); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	c.logger.Debug("sending request", zap.String("method", method), zap.String("url", target.String()))
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("request failed", zap.String("method", method), zap.String("url", target.String()), zap.Error(err))
		return nil, fmt.Errorf("%s %s: %w", method, target.String(), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	out := &Response{Status: resp.StatusCode, Header: resp.Header, Body: raw}
	if len(bytes.TrimSpace(raw)) > 0 && isJSON(resp.Header.Get("Content-Type"), raw) {
		if err := json.Unmarshal(raw, &out.Data); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("unexpected response status",
			zap.String("method", method),
			zap.String("url", target.String()),
			zap.Int("status", resp.StatusCode))
		return out, &HTTPError{
			Method:     method,
			URL:        target.String(),
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Body:       raw,
		}
	}

	c.logger.Debug("response received", zap.Int("status", resp.StatusCode), zap.Int("bytes", len(raw)))
	return out, nil
}

func isJSON(contentType string, body []byte) bool {
	if strings.Contains(contentType, "json") {
		return true
	}
	if contentType != "" {
		return false
	}
	return json.Valid(body)
}

func (c *Client) resolve(endpoint string, params url.Values) (*url.URL, error) {
	ref, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	u := ref
	if c.base != nil && !ref.IsAbs() {
		base := *c.base
		if !strings.HasSuffix(base.Path, "/") {
			base.Path += "/"
		}
		ref.Path = strings.TrimPrefix(ref.Path, "/")
		u = base.ResolveReference(ref)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("endpoint %q has no host and no base url is configured", endpoint)
	}
	if len(params) > 0 {
		q := u.Query()
		for k, vs := range params {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u, nil
}

// LoadPayload reads a JSON request body from disk
func LoadPayload(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("payload file error: %w", err)
	}
	var payload any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("payload file error: %s: %w", path, err)
	}
	return payload, nil
}

// ValidateResponse checks the response body is an object carrying every required key
func ValidateResponse(resp *Response, required ...string) error {
	obj := resp.Object()
	if obj == nil {
		return fmt.Errorf("response body is not a JSON object")
	}
	for _, key := range required {
		if _, ok := obj[key]; !ok {
			return fmt.Errorf("response missing required field: %s", key)
		}
	}
	return nil
}
