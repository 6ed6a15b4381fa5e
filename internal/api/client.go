// Copyright (c) 2026 Keymaster Team
// Tunnelmaster - tunnel management console
// This source code is licensed under the MIT license found in the LICENSE file.

// Package api is the transport wrapper around the tunnel server's REST API.
// Every delivered response is an Envelope; CodeOK is the only success code.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/toeirei/tunnelmaster/internal/logging"
)

// CodeOK is the envelope code for application-level success.
const CodeOK = 0

// maxBodyBytes bounds how much of a response body is read.
const maxBodyBytes = 8 << 20

// Envelope is the {code, data, msg} wrapper of every delivered response.
type Envelope[T any] struct {
	Code int    `json:"code"`
	Data T      `json:"data"`
	Msg  string `json:"msg"`
}

// OK reports whether the envelope signals success.
func (e Envelope[T]) OK() bool { return e.Code == CodeOK }

// Client issues single-attempt requests against one API base URL. It does
// not retry and does not cache.
type Client struct {
	baseURL    string
	user       string
	password   string
	httpClient *http.Client

	timeout    time.Duration
	hasTimeout bool
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithBasicAuth sends the given credentials on every request.
func WithBasicAuth(user, password string) Option {
	return func(c *Client) {
		c.user, c.password = user, password
	}
}

// WithTimeout bounds each request. Zero means no client-side timeout. It
// applies on a copy of the http.Client, whatever the option order.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout, c.hasTimeout = d, true
	}
}

// NewClient validates baseURL and returns a ready Client.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(strings.TrimRight(baseURL, "/"))
	if baseURL == "" {
		return nil, errors.New("api url is required")
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("api url %q must start with http:// or https://", baseURL)
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.hasTimeout {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	return c, nil
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// Send performs one request and decodes the envelope. A TransportError is
// returned when no envelope could be produced. Any decoded envelope is
// returned as-is, whatever its code; Data is only decoded for CodeOK.
func Send[T any](ctx context.Context, c *Client, method, path string, body any) (Envelope[T], error) {
	var env Envelope[T]

	raw, err := c.roundTrip(ctx, method, path, body)
	if err != nil {
		return env, err
	}

	var wire Envelope[json.RawMessage]
	if err := json.Unmarshal(raw, &wire); err != nil {
		return env, &TransportError{Method: method, Path: path, StatusCode: http.StatusOK, Status: "malformed response envelope", Err: err}
	}
	env.Code, env.Msg = wire.Code, wire.Msg
	if wire.Code != CodeOK || len(wire.Data) == 0 || bytes.Equal(wire.Data, []byte("null")) {
		return env, nil
	}
	if err := json.Unmarshal(wire.Data, &env.Data); err != nil {
		return env, &TransportError{Method: method, Path: path, StatusCode: http.StatusOK, Status: "malformed response data", Err: err}
	}
	return env, nil
}

// Do is Send collapsed into a result: the data on success, an
// *ApplicationError for a non-zero code, a *TransportError otherwise.
func Do[T any](ctx context.Context, c *Client, method, path string, body any) (T, error) {
	env, err := Send[T](ctx, c, method, path, body)
	if err != nil {
		var zero T
		return zero, err
	}
	if !env.OK() {
		var zero T
		return zero, &ApplicationError{Code: env.Code, Msg: env.Msg}
	}
	return env.Data, nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.user != "" || c.password != "" {
		req.SetBasicAuth(c.user, c.password)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logging.Debugf("api %s %s [%s] failed after %s: %v", method, path, requestID, time.Since(start), err)
		return nil, &TransportError{Method: method, Path: path, Status: transportStatus(err), Err: err}
	}
	defer resp.Body.Close()

	respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	logging.Debugf("api %s %s [%s] -> %s in %s", method, path, requestID, resp.Status, time.Since(start))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		status := resp.Status
		if status == "" {
			status = fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
		}
		return nil, &TransportError{Method: method, Path: path, StatusCode: resp.StatusCode, Status: status}
	}
	if readErr != nil {
		return nil, &TransportError{Method: method, Path: path, StatusCode: resp.StatusCode, Status: "reading response body failed", Err: readErr}
	}
	return respBody, nil
}

func transportStatus(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "request canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "request timed out"
	default:
		return "server unreachable"
	}
}
