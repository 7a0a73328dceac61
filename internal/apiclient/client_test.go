package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shehryarbajwa/browserbase-e2e/internal/config"
	"github.com/shehryarbajwa/browserbase-e2e/internal/ratelimit"
)

type captured struct {
	method string
	path   string
	query  url.Values
	header http.Header
	body   []byte
}

func newServer(t *testing.T, status int, response string) (*httptest.Server, *captured) {
	t.Helper()
	got := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.method = r.Method
		got.path = r.URL.Path
		got.query = r.URL.Query()
		got.header = r.Header.Clone()
		got.body, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func newClient(t *testing.T, opts Options) *Client {
	t.Helper()
	c, err := New(opts, zap.NewNop())
	require.NoError(t, err)
	return c
}

func TestPostSendsJSONWithAuthAndHeaders(t *testing.T) {
	srv, got := newServer(t, http.StatusCreated, `{"id": 7, "name": "widget"}`)
	c := newClient(t, Options{
		BaseURL:  srv.URL + "/api",
		Username: "user",
		Password: "secret",
		Headers:  map[string]string{"X-Env": "qa", "X-Trace": "default"},
	})

	resp, err := c.Post(context.Background(), "/items", map[string]any{"name": "widget"}, map[string]string{"X-Trace": "call"})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/api/items", got.path)
	assert.JSONEq(t, `{"name":"widget"}`, string(got.body))
	assert.Equal(t, "application/json", got.header.Get("Content-Type"))
	assert.Equal(t, "qa", got.header.Get("X-Env"))
	assert.Equal(t, "call", got.header.Get("X-Trace"))
	user, pass, ok := (&http.Request{Header: got.header}).BasicAuth()
	require.True(t, ok)
	assert.Equal(t, "user", user)
	assert.Equal(t, "secret", pass)

	assert.Equal(t, http.StatusCreated, resp.Status)
	assert.Equal(t, "widget", resp.Object()["name"])
	assert.NoError(t, ValidateResponse(resp, "id", "name"))
	assert.EqualError(t, ValidateResponse(resp, "price"), "response missing required field: price")
}

func TestGetAndDeleteSendQueryParams(t *testing.T) {
	srv, got := newServer(t, http.StatusOK, `[1, 2]`)
	c := newClient(t, Options{BaseURL: srv.URL})

	resp, err := c.Get(context.Background(), "items", url.Values{"page": {"2"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "/items", got.path)
	assert.Equal(t, "2", got.query.Get("page"))
	assert.Empty(t, got.header.Get("Authorization"))
	assert.Len(t, resp.Data, 2)
	assert.Nil(t, resp.Object())
	assert.Error(t, ValidateResponse(resp, "id"))

	_, err = c.Delete(context.Background(), "items/3", url.Values{"force": {"true"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.MethodDelete, got.method)
	assert.Equal(t, "/items/3", got.path)
	assert.Equal(t, "true", got.query.Get("force"))
	assert.Empty(t, got.body)
}

func TestPutRawBytes(t *testing.T) {
	srv, got := newServer(t, http.StatusOK, `{}`)
	c := newClient(t, Options{BaseURL: srv.URL})

	_, err := c.Put(context.Background(), "/items/1", []byte(`{"raw":true}`), nil)
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, got.method)
	assert.Equal(t, `{"raw":true}`, string(got.body))
}

func TestNon2xxReturnsHTTPError(t *testing.T) {
	srv, _ := newServer(t, http.StatusUnprocessableEntity, `{"error": "invalid"}`)
	c := newClient(t, Options{BaseURL: srv.URL})

	resp, err := c.Post(context.Background(), "/items", map[string]string{}, nil)
	require.Error(t, err)

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusUnprocessableEntity, httpErr.StatusCode)
	assert.JSONEq(t, `{"error": "invalid"}`, string(httpErr.Body))
	require.NotNil(t, resp)
	assert.Equal(t, "invalid", resp.Object()["error"])
}

func TestAbsoluteEndpointWithoutBase(t *testing.T) {
	srv, got := newServer(t, http.StatusOK, `{}`)
	c := newClient(t, Options{})

	_, err := c.Get(context.Background(), srv.URL+"/health", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "/health", got.path)

	_, err = c.Get(context.Background(), "/relative", nil, nil)
	assert.Error(t, err)
}

func TestRateLimitHonoursContext(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, `{}`)
	c := newClient(t, Options{BaseURL: srv.URL, Limiter: ratelimit.NewLimiter(0.001, 1)})

	_, err := c.Get(context.Background(), "/a", nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Get(ctx, "/b", nil, nil)
	assert.Error(t, err)
}

func TestLoadPayload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "payload.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"title": "hello", "userId": 1}`), 0644))

	payload, err := LoadPayload(path)
	require.NoError(t, err)
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"title": "hello", "userId": 1}`, string(data))

	_, err = LoadPayload(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.DefaultConfig().API
	cfg.BaseURL = "https://api.example.com"
	opts := OptionsFromConfig(cfg)
	assert.Equal(t, "https://api.example.com", opts.BaseURL)
	assert.NotNil(t, opts.Limiter)
}
