package transport

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Sentinel errors for transport failures.
var (
	// ErrInvalidMethod is returned for HTTP verbs a form cannot submit with.
	ErrInvalidMethod = errors.New("transport: invalid method")

	// ErrClosed is returned when a request is sent on a closed client.
	ErrClosed = errors.New("transport: client closed")

	// ErrResponseTooLarge is returned when a reply exceeds the size limit.
	ErrResponseTooLarge = errors.New("transport: response too large")
)

// ErrorBody is the payload of a rejected request.
type ErrorBody struct {
	// Message is the top-level message, if the server sent one.
	Message string

	// Fields maps field names to messages. Empty when the server sent no
	// structured validation errors.
	Fields map[string][]string
}

// Structured reports whether the body carried field messages.
func (b ErrorBody) Structured() bool {
	return len(b.Fields) > 0
}

// ParseErrorBody extracts field messages from an error payload.
//
// Two shapes are understood:
//
//	{"message": "The given data was invalid.", "errors": {"email": ["..."]}}
//	{"email": ["..."], "name": "..."}
//
// Anything else, including non-JSON bodies, yields an ErrorBody with no
// fields.
func ParseErrorBody(data []byte) ErrorBody {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return ErrorBody{}
	}

	var body ErrorBody
	for _, key := range []string{"message", "error"} {
		if raw, ok := top[key]; ok {
			var s string
			if json.Unmarshal(raw, &s) == nil {
				if body.Message == "" {
					body.Message = s
				}
				delete(top, key)
			}
		}
	}

	if raw, ok := top["errors"]; ok {
		var nested map[string]json.RawMessage
		if json.Unmarshal(raw, &nested) == nil {
			body.Fields = fieldMessages(nested)
			return body
		}
	}

	body.Fields = fieldMessages(top)
	return body
}

// fieldMessages keeps entries whose value is a string or a list of strings.
func fieldMessages(raw map[string]json.RawMessage) map[string][]string {
	out := make(map[string][]string)
	for field, value := range raw {
		var list []string
		if json.Unmarshal(value, &list) == nil {
			if len(list) > 0 {
				out[field] = list
			}
			continue
		}
		var s string
		if json.Unmarshal(value, &s) == nil && s != "" {
			out[field] = []string{s}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// ResponseError is returned when the server answers with a non-2xx status.
type ResponseError struct {
	Method   string
	URL      string
	Response *Response
	Body     ErrorBody
}

func (e *ResponseError) Error() string {
	msg := fmt.Sprintf("transport: %s %s: status %d", e.Method, e.URL, e.StatusCode())
	if e.Body.Message != "" {
		msg += ": " + e.Body.Message
	}
	return msg
}

// StatusCode returns the HTTP status of the rejected request, or 0 when no
// Response is attached.
func (e *ResponseError) StatusCode() int {
	if e.Response == nil {
		return 0
	}
	return e.Response.StatusCode
}

// TransportError is returned when no response was received.
type TransportError struct {
	Op     string // resolve, encode, wait, send, read
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s %s: %s: %v", e.Method, e.URL, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *TransportError) Unwrap() error {
	return e.Err
}
