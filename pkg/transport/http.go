package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// DefaultMaxResponseBytes caps how much of a reply body is read.
const DefaultMaxResponseBytes = 10 << 20

// HTTPClient submits requests as JSON over HTTP.
type HTTPClient struct {
	client   *http.Client
	baseURL  *url.URL
	header   http.Header
	limiter  *rate.Limiter
	maxBytes int64
	timeout  time.Duration
	err      error
}

// HTTPOption configures an HTTPClient.
type HTTPOption func(*HTTPClient)

// WithHTTPClient sets the underlying *http.Client. The client is never
// modified; WithTimeout applies to a copy.
func WithHTTPClient(hc *http.Client) HTTPOption {
	return func(c *HTTPClient) {
		if hc != nil {
			c.client = hc
		}
	}
}

// WithBaseURL resolves relative request URLs against base.
func WithBaseURL(base string) HTTPOption {
	return func(c *HTTPClient) {
		if base == "" {
			return
		}
		u, err := url.Parse(base)
		if err != nil {
			c.err = fmt.Errorf("transport: parse base url: %w", err)
			return
		}
		c.baseURL = u
	}
}

// WithHeader adds a header sent with every request.
func WithHeader(key, value string) HTTPOption {
	return func(c *HTTPClient) {
		c.header.Add(key, value)
	}
}

// WithTimeout sets the overall request timeout.
func WithTimeout(d time.Duration) HTTPOption {
	return func(c *HTTPClient) {
		c.timeout = d
	}
}

// WithRateLimit limits outgoing requests to rps with the given burst.
// Requests wait for a token and fail with a *TransportError if ctx ends first.
func WithRateLimit(rps float64, burst int) HTTPOption {
	return func(c *HTTPClient) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithMaxResponseBytes caps the reply body size.
func WithMaxResponseBytes(n int64) HTTPOption {
	return func(c *HTTPClient) {
		if n > 0 {
			c.maxBytes = n
		}
	}
}

// NewHTTPClient creates an HTTPClient.
func NewHTTPClient(opts ...HTTPOption) *HTTPClient {
	c := &HTTPClient{
		client:   &http.Client{Timeout: 30 * time.Second},
		header:   make(http.Header),
		maxBytes: DefaultMaxResponseBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.client
		hc.Timeout = c.timeout
		c.client = &hc
	}
	return c
}

// Do sends req and classifies the reply.
func (c *HTTPClient) Do(ctx context.Context, req *Request) (*Response, error) {
	method, err := NormalizeMethod(req.Method)
	if err != nil {
		return nil, err
	}
	req.Method = method

	if c.err != nil {
		return nil, &TransportError{Op: "resolve", Method: req.Method, URL: req.URL, Err: c.err}
	}

	target, err := c.resolve(req)
	if err != nil {
		return nil, &TransportError{Op: "resolve", Method: req.Method, URL: req.URL, Err: err}
	}

	var body io.Reader
	if req.Method != http.MethodGet && req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, &TransportError{Op: "encode", Method: req.Method, URL: req.URL, Err: err}
		}
		body = bytes.NewReader(data)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &TransportError{Op: "wait", Method: req.Method, URL: req.URL, Err: err}
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, &TransportError{Op: "send", Method: req.Method, URL: req.URL, Err: err}
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.ID != "" {
		httpReq.Header.Set("X-Request-ID", req.ID)
	}
	for k, vs := range c.header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	for k, vs := range req.Header {
		httpReq.Header.Del(k)
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Op: "send", Method: req.Method, URL: req.URL, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, &TransportError{Op: "read", Method: req.Method, URL: req.URL, Err: err}
	}
	if int64(len(data)) > c.maxBytes {
		return nil, &TransportError{Op: "read", Method: req.Method, URL: req.URL, Err: ErrResponseTooLarge}
	}

	return classify(req, resp.StatusCode, resp.Header, data)
}

// resolve builds the target URL. GET requests carry the body as a query.
func (c *HTTPClient) resolve(req *Request) (string, error) {
	u, err := url.Parse(req.URL)
	if err != nil {
		return "", err
	}
	if c.baseURL != nil && !u.IsAbs() {
		u = c.baseURL.ResolveReference(u)
	}
	if !u.IsAbs() {
		return "", fmt.Errorf("relative url %q without base url", req.URL)
	}

	if req.Method == http.MethodGet && len(req.Body) > 0 {
		q := u.Query()
		for k, v := range req.Body {
			q.Set(k, fmt.Sprint(v))
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
