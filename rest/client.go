// Package rest is the single chokepoint for calls to the platform API. It
// attaches the bearer token, retries exactly once after a silent refresh on
// a 401, and maps failure responses to typed errors, so individual call
// sites never reimplement the policy.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"

	"github.com/rs/zerolog"

	"github.com/fluentive/fluentive-go/session"
)

// Client executes authenticated requests against the platform API.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	store       *session.Store
	coordinator *session.Coordinator
	logger      zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client. It should share its cookie jar with
// the refresh coordinator so the refresh cookie set on login is available
// for the silent refresh.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) { c.httpClient = client }
}

// WithLogger sets the logger. Defaults to a disabled logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a Client for the API at baseURL. When no HTTP client is
// supplied one with a fresh cookie jar is built.
func NewClient(baseURL string, store *session.Store, coordinator *session.Coordinator, options ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		store:       store,
		coordinator: coordinator,
		logger:      zerolog.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}
	if c.httpClient == nil {
		jar, _ := cookiejar.New(nil)
		c.httpClient = &http.Client{Jar: jar}
	}
	return c
}

// HTTPClient returns the underlying HTTP client (and with it the cookie jar
// carrying the refresh cookie).
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// BaseURL returns the API base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type callConfig struct {
	method string
	body   any
	auth   bool
}

// CallOption adjusts a single call. Defaults: GET, no body, authenticated.
type CallOption func(*callConfig)

// WithMethod sets the HTTP method.
func WithMethod(method string) CallOption {
	return func(cfg *callConfig) { cfg.method = method }
}

// WithBody sets a JSON request body.
func WithBody(body any) CallOption {
	return func(cfg *callConfig) { cfg.body = body }
}

// WithoutAuth marks the call as not requiring a session: no bearer header is
// attached and a 401 is not retried.
func WithoutAuth() CallOption {
	return func(cfg *callConfig) { cfg.auth = false }
}

// Get issues an authenticated GET, decoding a JSON response into out.
func (c *Client) Get(ctx context.Context, path string, out any, options ...CallOption) error {
	return c.Call(ctx, path, out, options...)
}

// Post issues a POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any, options ...CallOption) error {
	return c.Call(ctx, path, out, append([]CallOption{WithMethod(http.MethodPost), WithBody(body)}, options...)...)
}

// Put issues a PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, out any, options ...CallOption) error {
	return c.Call(ctx, path, out, append([]CallOption{WithMethod(http.MethodPut), WithBody(body)}, options...)...)
}

// Patch issues a PATCH with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body, out any, options ...CallOption) error {
	return c.Call(ctx, path, out, append([]CallOption{WithMethod(http.MethodPatch), WithBody(body)}, options...)...)
}

// Delete issues an authenticated DELETE.
func (c *Client) Delete(ctx context.Context, path string, options ...CallOption) error {
	return c.Call(ctx, path, nil, append([]CallOption{WithMethod(http.MethodDelete)}, options...)...)
}

// Call executes one logical API call. On a 401 for an authenticated call it
// performs a single silent refresh; if that yields no token the call fails
// with ErrUnauthorized, otherwise the request is rebuilt with the new token
// and sent exactly once more. Never more than one refresh and one retry.
//
// A 2xx response with a JSON content type is decoded into out (when out is
// non-nil); any other 2xx, 204 included, resolves without touching out.
// Non-2xx responses become a *StatusError carrying the body text.
func (c *Client) Call(ctx context.Context, path string, out any, options ...CallOption) error {
	cfg := callConfig{method: http.MethodGet, auth: true}
	for _, opt := range options {
		opt(&cfg)
	}

	var payload []byte
	if cfg.body != nil {
		var err error
		payload, err = json.Marshal(cfg.body)
		if err != nil {
			return fmt.Errorf("%s %s: encode body: %w", cfg.method, path, err)
		}
	}

	usedToken := c.store.Get()
	resp, err := c.send(ctx, &cfg, path, payload, usedToken)
	if err != nil {
		return fmt.Errorf("%s %s: %w", cfg.method, path, err)
	}

	if resp.StatusCode == http.StatusUnauthorized && cfg.auth {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()

		// Drop the rejected token, or the refresh would hand it straight
		// back. A token swapped in by a concurrent refresh round is kept
		// and reused on the retry without another network refresh.
		if usedToken != "" && c.store.Get() == usedToken {
			c.store.Set("")
		}

		token, err := c.coordinator.Refresh(ctx)
		if err != nil {
			return fmt.Errorf("%s %s: %w", cfg.method, path, err)
		}
		if token == "" {
			return fmt.Errorf("%s %s: %w", cfg.method, path, ErrUnauthorized)
		}

		c.logger.Debug().Str("path", path).Msg("retrying after refresh")
		resp, err = c.send(ctx, &cfg, path, payload, token)
		if err != nil {
			return fmt.Errorf("%s %s: %w", cfg.method, path, err)
		}
		if resp.StatusCode == http.StatusUnauthorized {
			// The fresh token was rejected too; the session is gone.
			c.store.Set("")
		}
	}

	if err := c.consume(resp, out); err != nil {
		return fmt.Errorf("%s %s: %w", cfg.method, path, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, cfg *callConfig, path string, payload []byte, token string) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, cfg.method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if cfg.auth && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return c.httpClient.Do(req)
}

func (c *Client) consume(resp *http.Response, out any) error {
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode > 299 {
		text, _ := io.ReadAll(resp.Body)
		return &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(text))}
	}

	if out == nil || !strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
