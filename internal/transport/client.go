// Package transport provides the authenticated JSON-over-HTTP client used
// by every remote source. Each client carries a circuit breaker: after a
// run of consecutive transport or server failures the remote is treated as
// unavailable and calls fail fast.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/sony/gobreaker"

	"github.com/churchmedia/pewsync/pkg/constants"
	"github.com/churchmedia/pewsync/pkg/errors"
	"github.com/churchmedia/pewsync/pkg/logging"
)

// DefaultHTTPTimeout is the default timeout for HTTP requests.
var DefaultHTTPTimeout = constants.DefaultHTTPTimeout

// Client provides HTTP client functionality with authentication.
type Client struct {
	name    string
	baseURL string
	http    *http.Client
	auth    Authenticator
	headers http.Header
	breaker *gobreaker.CircuitBreaker
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithHeader adds a header sent on every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers.Set(key, value)
	}
}

// WithBreakerThreshold sets how many consecutive failures open the breaker.
func WithBreakerThreshold(n uint32) Option {
	return func(c *Client) {
		c.breaker = newBreaker(c.name, n)
	}
}

// New creates a client for the named remote rooted at baseURL.
func New(name, baseURL string, auth Authenticator, opts ...Option) *Client {
	if auth == nil {
		auth = &NoAuth{}
	}
	c := &Client{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultHTTPTimeout},
		auth:    auth,
		headers: make(http.Header),
		breaker: newBreaker(name, constants.BreakerFailureThreshold),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newBreaker(name string, threshold uint32) *gobreaker.CircuitBreaker {
	if threshold == 0 {
		threshold = 1
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     constants.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("remote", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
	})
}

// Name returns the remote name used in errors.
func (c *Client) Name() string { return c.name }

// URL joins path to the base URL and appends query. Absolute URLs, such as
// next links returned by the remote, are used as they are.
func (c *Client) URL(path string, query url.Values) string {
	u := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		u = c.baseURL + "/" + strings.TrimLeft(path, "/")
	}
	if len(query) > 0 {
		sep := "?"
		if strings.Contains(u, "?") {
			sep = "&"
		}
		u += sep + query.Encode()
	}
	return u
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Endpoint   string
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Do performs a request with authentication applied and reads the whole
// body. Server errors and transport failures count against the breaker;
// client errors do not.
func (c *Client) Do(ctx context.Context, method, rawURL string, body io.Reader, header http.Header) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, errors.WrapResource("create", "request", method+" "+rawURL, err)
	}

	for k, values := range c.headers {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	for k, values := range header {
		req.Header.Del(k)
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil && (method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch) {
		if req.Header.Get("Content-Type") == "" {
			req.Header.Set("Content-Type", "application/json")
		}
	}
	c.auth.Apply(req)

	endpoint := req.URL.Path
	result, err := c.breaker.Execute(func() (any, error) {
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, errors.WrapResource("read", "response body", endpoint, err)
		}
		r := &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data, Endpoint: endpoint}
		if resp.StatusCode >= http.StatusInternalServerError {
			return r, c.apiError(r)
		}
		return r, nil
	})

	switch {
	case err == nil:
		return result.(*Response), nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return nil, &errors.APIError{
			Collection: c.name,
			Endpoint:   endpoint,
			Message:    "circuit breaker open",
			Err:        fmt.Errorf("%w: %w", errors.ErrRemoteUnavailable, err),
		}
	case ctx.Err() != nil:
		return nil, fmt.Errorf("%w: %s %s: %w", errors.ErrCanceled, method, endpoint, ctx.Err())
	}

	var apiErr *errors.APIError
	if errors.As(err, &apiErr) {
		return nil, err
	}
	return nil, &errors.APIError{
		Collection: c.name,
		Endpoint:   endpoint,
		Message:    err.Error(),
		Err:        fmt.Errorf("%w: %w", errors.ErrRemoteUnavailable, err),
	}
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, rawURL string) (*Response, error) {
	return c.Do(ctx, http.MethodGet, rawURL, nil, nil)
}

// JSON sends body encoded as JSON and decodes a 2xx response into target.
// A nil body sends no payload; a nil target discards the response.
func (c *Client) JSON(ctx context.Context, method, rawURL string, body, target any, header http.Header) (*Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, errors.WrapParse("json", "request body", err)
		}
		reader = bytes.NewReader(data)
	}
	resp, err := c.Do(ctx, method, rawURL, reader, header)
	if err != nil {
		return nil, err
	}
	if err := c.DecodeResponse(resp, target); err != nil {
		return resp, err
	}
	return resp, nil
}

func (c *Client) apiError(r *Response) *errors.APIError {
	return &errors.APIError{
		Collection: c.name,
		StatusCode: r.StatusCode,
		Endpoint:   r.Endpoint,
		Message:    snippet(r.Body),
	}
}
