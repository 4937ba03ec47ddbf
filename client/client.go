// Package client is a typed Go client of the NihongoWithMoeno HTTP API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/nihongowithmoeno/moeno/core"
)

const apiPrefix = "/api"

// Error is a non-success envelope returned by the API.
type Error struct {
	StatusCode  int
	Message     string
	Fields      map[string]string
	RateLimited bool
}

func (e *Error) Error() string {
	if e.RateLimited && e.Message == "" {
		return core.RateLimitMessage
	}
	return e.Message
}

// IsStatus reports whether err is an API error with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

type envelope struct {
	Success bool              `json:"success"`
	Data    json.RawMessage   `json:"data"`
	Message string            `json:"message"`
	Error   string            `json:"error"`
	Fields  map[string]string `json:"fields"`
}

type Option func(*Client)

// WithHTTPClient replaces the default http client (15s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.rest.HTTPClient = hc }
}

// WithToken starts the client with an existing session token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// Client is safe for concurrent use; the session token is shared by all calls.
type Client struct {
	baseURL string
	rest    *rest.Client

	mu    sync.RWMutex
	token string
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/") + apiPrefix,
		rest:    &rest.Client{HTTPClient: &http.Client{Timeout: 15 * time.Second}},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// do sends body as JSON and decodes the envelope's data into dest. It returns the envelope message.
func (c *Client) do(ctx context.Context, method rest.Method, path string, query map[string]string, body, dest interface{}) (string, error) {
	req := rest.Request{
		Method:      method,
		BaseURL:     c.baseURL + path,
		Headers:     map[string]string{"Accept": "application/json"},
		QueryParams: query,
	}
	if token := c.Token(); token != "" {
		req.Headers["Authorization"] = "Bearer " + token
	}
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return "", errors.Wrapf(err, "encoding %s %s", method, path)
		}
		req.Body = data
		req.Headers["Content-Type"] = "application/json"
	}

	res, err := c.rest.SendWithContext(ctx, req)
	if err != nil {
		return "", errors.Wrapf(err, "%s %s", method, path)
	}

	var env envelope
	if err := json.Unmarshal([]byte(res.Body), &env); err != nil {
		if res.StatusCode >= http.StatusBadRequest {
			return "", newError(res.StatusCode, envelope{Error: strings.TrimSpace(res.Body)})
		}
		return "", errors.Wrapf(err, "decoding %s %s", method, path)
	}
	if res.StatusCode >= http.StatusBadRequest || !env.Success {
		return "", newError(res.StatusCode, env)
	}

	if dest != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, dest); err != nil {
			return "", errors.Wrapf(err, "decoding %s %s data", method, path)
		}
	}
	return env.Message, nil
}

func newError(code int, env envelope) *Error {
	msg := env.Error
	if msg == "" {
		msg = fmt.Sprintf("request failed with status %d", code)
	}
	return &Error{
		StatusCode:  code,
		Message:     msg,
		Fields:      env.Fields,
		RateLimited: code == http.StatusTooManyRequests,
	}
}

// Health pings the service and returns its build.
func (c *Client) Health(ctx context.Context) (string, error) {
	var res struct {
		Status string `json:"status"`
		Build  string `json:"build"`
	}
	base := strings.TrimSuffix(c.baseURL, apiPrefix)
	r, err := c.rest.SendWithContext(ctx, rest.Request{Method: rest.Get, BaseURL: base + "/health"})
	if err != nil {
		return "", errors.Wrap(err, "health check")
	}
	var env envelope
	if err := json.Unmarshal([]byte(r.Body), &env); err != nil || !env.Success {
		return "", newError(r.StatusCode, env)
	}
	if err := json.Unmarshal(env.Data, &res); err != nil {
		return "", errors.Wrap(err, "decoding health")
	}
	return res.Build, nil
}
