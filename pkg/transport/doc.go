// Package transport is the boundary between a form and the remote endpoint
// that receives its data.
//
// A Client sends one Request and returns either a Response for a 2xx reply
// or an error. Failures come in two shapes:
//
//   - *ResponseError: the server answered with a non-2xx status. Its Body
//     carries the parsed error payload; Body.Structured() reports whether it
//     contained field messages.
//   - *TransportError: no response was received (dial failure, timeout,
//     cancellation, rate limiter wait).
//
// Two clients are provided. HTTPClient speaks JSON over net/http:
//
//	client := transport.NewHTTPClient(
//	    transport.WithBaseURL("https://api.example.com"),
//	    transport.WithTimeout(10*time.Second),
//	)
//	resp, err := transport.Post(ctx, client, "/users", map[string]any{"name": "Al"})
//
// WSClient carries the same requests as JSON frames over a websocket.
//
// Cross-cutting behaviour is added with Middleware and Chain:
//
//	client := transport.Chain(base, middleware.Logging(logger), middleware.Prometheus())
package transport
