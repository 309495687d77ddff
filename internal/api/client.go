// Package api is the REST client for the article backend. Every error it
// returns is an *apierr.Error.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/user/kiji/internal/apierr"
)

// DefaultBaseURL is used when no base URL is configured.
const DefaultBaseURL = "http://localhost:8080"

const (
	defaultErrorMessage = "An error occurred"
	parseErrorMessage   = "Failed to parse response"
)

// Client issues requests against the backend base URL.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// New creates a Client. Request timeouts come from the client passed with
// WithHTTPClient; the default client has none.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// RequestOptions configures a single request. A nil *RequestOptions is a GET.
type RequestOptions struct {
	Method string
	Body   any
}

func (o *RequestOptions) method() string {
	if o == nil || o.Method == "" {
		return http.MethodGet
	}
	return o.Method
}

// fetch performs a request and decodes the JSON response into T.
// A 204 response yields a nil result without reading the body.
func fetch[T any](ctx context.Context, c *Client, endpoint string, opts *RequestOptions) (*T, error) {
	method := opts.method()
	start := time.Now()

	var body io.Reader
	if opts != nil && opts.Body != nil {
		payload, err := json.Marshal(opts.Body)
		if err != nil {
			return nil, apierr.New(err.Error(), apierr.StatusNetwork, endpoint, method, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, transportError(err, endpoint, method)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("api request failed", "method", method, "endpoint", endpoint, "error", err, "duration", time.Since(start))
		return nil, transportError(err, endpoint, method)
	}
	defer resp.Body.Close()

	c.logger.Debug("api request", "method", method, "endpoint", endpoint, "status", resp.StatusCode, "duration", time.Since(start))
	return handleResponse[T](resp, endpoint, method)
}

func handleResponse[T any](resp *http.Response, endpoint, method string) (*T, error) {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, responseError(resp, endpoint, method)
	}

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, apierr.New(parseErrorMessage, resp.StatusCode, endpoint, method, err)
	}
	return &out, nil
}

func responseError(resp *http.Response, endpoint, method string) *apierr.Error {
	raw, _ := io.ReadAll(resp.Body)

	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil || body == nil {
		msg := statusText(resp)
		if msg == "" {
			msg = defaultErrorMessage
		}
		return apierr.New(msg, resp.StatusCode, endpoint, method, nil)
	}

	msg := defaultErrorMessage
	if s, ok := body["error"].(string); ok && s != "" {
		msg = s
	} else if s, ok := body["message"].(string); ok && s != "" {
		msg = s
	}
	return apierr.New(msg, resp.StatusCode, endpoint, method, body)
}

// statusText strips the numeric code from resp.Status ("404 Not Found").
func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}

func transportError(err error, endpoint, method string) *apierr.Error {
	if apiErr, ok := apierr.As(err); ok {
		return apiErr
	}
	if isConnectivityError(err) {
		return apierr.New(apierr.MsgNetwork, apierr.StatusNetwork, endpoint, method, err)
	}
	return apierr.New(err.Error(), apierr.StatusNetwork, endpoint, method, err)
}

func isConnectivityError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var opErr *net.OpError
	var dnsErr *net.DNSError
	switch {
	case errors.As(err, &opErr), errors.As(err, &dnsErr):
		return true
	case errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, syscall.ECONNRESET), errors.Is(err, syscall.EHOSTUNREACH):
		return true
	}
	return false
}
