package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// Client sends a request to a remote endpoint.
type Client interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// ClientFunc is a function that implements Client.
type ClientFunc func(ctx context.Context, req *Request) (*Response, error)

// Do calls f(ctx, req).
func (f ClientFunc) Do(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// Middleware wraps a Client with additional behaviour.
type Middleware func(Client) Client

// Chain wraps c with mw. The first middleware is the outermost.
func Chain(c Client, mw ...Middleware) Client {
	for i := len(mw) - 1; i >= 0; i-- {
		if mw[i] != nil {
			c = mw[i](c)
		}
	}
	return c
}

// Request is a single submission.
type Request struct {
	// ID correlates the request with its response and logs.
	ID string

	// Method is an upper-case HTTP verb.
	Method string

	// URL is absolute or relative to the client's base URL.
	URL string

	// Header holds extra headers for this request only.
	Header http.Header

	// Body is the form data, encoded as a JSON object.
	Body map[string]any
}

// NewRequest creates a Request with a fresh ID.
// It returns ErrInvalidMethod for verbs a form cannot submit with.
func NewRequest(method, url string, body map[string]any) (*Request, error) {
	m, err := NormalizeMethod(method)
	if err != nil {
		return nil, err
	}
	return &Request{
		ID:     uuid.NewString(),
		Method: m,
		URL:    url,
		Header: make(http.Header),
		Body:   body,
	}, nil
}

// NormalizeMethod upper-cases method and checks it is supported.
func NormalizeMethod(method string) (string, error) {
	m := strings.ToUpper(strings.TrimSpace(method))
	switch m {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodGet:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMethod, method)
	}
}

// Response is a successful reply.
type Response struct {
	RequestID  string
	StatusCode int
	Header     http.Header

	// Data is the raw response body.
	Data json.RawMessage
}

// Decode unmarshals the response body into v.
// An empty body leaves v untouched.
func (r *Response) Decode(v any) error {
	if r == nil || len(r.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return fmt.Errorf("transport: decode response: %w", err)
	}
	return nil
}

// Post sends body to url with POST.
func Post(ctx context.Context, c Client, url string, body map[string]any) (*Response, error) {
	return send(ctx, c, http.MethodPost, url, body)
}

// Put sends body to url with PUT.
func Put(ctx context.Context, c Client, url string, body map[string]any) (*Response, error) {
	return send(ctx, c, http.MethodPut, url, body)
}

// Patch sends body to url with PATCH.
func Patch(ctx context.Context, c Client, url string, body map[string]any) (*Response, error) {
	return send(ctx, c, http.MethodPatch, url, body)
}

// Delete sends body to url with DELETE.
func Delete(ctx context.Context, c Client, url string, body map[string]any) (*Response, error) {
	return send(ctx, c, http.MethodDelete, url, body)
}

func send(ctx context.Context, c Client, method, url string, body map[string]any) (*Response, error) {
	req, err := NewRequest(method, url, body)
	if err != nil {
		return nil, err
	}
	return c.Do(ctx, req)
}

// classify turns a raw reply into a Response or a *ResponseError.
func classify(req *Request, status int, header http.Header, data []byte) (*Response, error) {
	resp := &Response{
		RequestID:  req.ID,
		StatusCode: status,
		Header:     header,
		Data:       json.RawMessage(data),
	}
	if len(data) == 0 {
		resp.Data = nil
	}
	if status >= 200 && status < 300 {
		return resp, nil
	}
	return nil, &ResponseError{
		Method:   req.Method,
		URL:      req.URL,
		Response: resp,
		Body:     ParseErrorBody(data),
	}
}
