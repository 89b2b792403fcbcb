package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// RequestFrame is the websocket message carrying a Request.
type RequestFrame struct {
	ID     string         `json:"id"`
	Method string         `json:"method"`
	URL    string         `json:"url"`
	Header http.Header    `json:"header,omitempty"`
	Body   map[string]any `json:"body,omitempty"`
}

// ReplyFrame is the websocket message answering a RequestFrame.
type ReplyFrame struct {
	ID     string          `json:"id"`
	Status int             `json:"status"`
	Header http.Header     `json:"header,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// WSClient submits requests as JSON frames over a single websocket.
// One request is on the wire at a time.
type WSClient struct {
	conn         *websocket.Conn
	url          string
	writeTimeout time.Duration

	mu     sync.Mutex
	closed bool
}

// WSOption configures a WSClient.
type WSOption func(*wsConfig)

type wsConfig struct {
	header           http.Header
	handshakeTimeout time.Duration
	writeTimeout     time.Duration
}

// WithWSHeader adds a header to the websocket handshake.
func WithWSHeader(key, value string) WSOption {
	return func(c *wsConfig) {
		c.header.Add(key, value)
	}
}

// WithHandshakeTimeout bounds the websocket handshake.
func WithHandshakeTimeout(d time.Duration) WSOption {
	return func(c *wsConfig) {
		c.handshakeTimeout = d
	}
}

// WithWriteTimeout bounds each frame write.
func WithWriteTimeout(d time.Duration) WSOption {
	return func(c *wsConfig) {
		c.writeTimeout = d
	}
}

// DialWS connects to a websocket endpoint that speaks RequestFrame/ReplyFrame.
func DialWS(ctx context.Context, rawURL string, opts ...WSOption) (*WSClient, error) {
	cfg := wsConfig{
		header:           make(http.Header),
		handshakeTimeout: 10 * time.Second,
		writeTimeout:     10 * time.Second,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: cfg.handshakeTimeout,
	}
	conn, resp, err := dialer.DialContext(ctx, rawURL, cfg.header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, &TransportError{Op: "dial", Method: http.MethodGet, URL: rawURL, Err: err}
	}

	return &WSClient{
		conn:         conn,
		url:          rawURL,
		writeTimeout: cfg.writeTimeout,
	}, nil
}

// Do writes req as a frame and waits for the reply with the same ID.
// A read or write failure closes the client.
func (c *WSClient) Do(ctx context.Context, req *Request) (*Response, error) {
	method, err := NormalizeMethod(req.Method)
	if err != nil {
		return nil, err
	}
	req.Method = method

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, &TransportError{Op: "send", Method: req.Method, URL: req.URL, Err: ErrClosed}
	}
	if err := ctx.Err(); err != nil {
		return nil, &TransportError{Op: "send", Method: req.Method, URL: req.URL, Err: err}
	}

	c.conn.SetReadDeadline(time.Time{})
	// Unblock a pending read when ctx ends.
	stop := context.AfterFunc(ctx, func() {
		c.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	frame := RequestFrame{
		ID:     req.ID,
		Method: req.Method,
		URL:    req.URL,
		Header: req.Header,
		Body:   req.Body,
	}
	c.conn.SetWriteDeadline(c.deadline(ctx, c.writeTimeout))
	if err := c.conn.WriteJSON(frame); err != nil {
		c.closeLocked()
		return nil, &TransportError{Op: "send", Method: req.Method, URL: req.URL, Err: err}
	}

	for {
		var reply ReplyFrame
		if err := c.conn.ReadJSON(&reply); err != nil {
			c.closeLocked()
			if ctxErr := ctx.Err(); ctxErr != nil {
				err = ctxErr
			}
			return nil, &TransportError{Op: "read", Method: req.Method, URL: req.URL, Err: err}
		}
		if reply.ID != req.ID {
			// Not ours; replies are matched by ID.
			continue
		}
		return classify(req, reply.Status, reply.Header, reply.Data)
	}
}

// Close sends a close frame and closes the connection.
func (c *WSClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.conn.SetWriteDeadline(time.Now().Add(time.Second))
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.closeLocked()
}

func (c *WSClient) closeLocked() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if err := c.conn.Close(); err != nil {
		return fmt.Errorf("transport: close %s: %w", c.url, err)
	}
	return nil
}

func (c *WSClient) deadline(ctx context.Context, d time.Duration) time.Time {
	dl := time.Now().Add(d)
	if ctxDl, ok := ctx.Deadline(); ok && ctxDl.Before(dl) {
		return ctxDl
	}
	return dl
}
