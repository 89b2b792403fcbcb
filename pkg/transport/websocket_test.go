package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/goleak"
)

// frameServer answers each RequestFrame with reply(frame).
func frameServer(t *testing.T, reply func(RequestFrame) (ReplyFrame, bool)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var frame RequestFrame
			if err := conn.ReadJSON(&frame); err != nil {
				return
			}
			out, ok := reply(frame)
			if !ok {
				continue
			}
			if err := conn.WriteJSON(out); err != nil {
				return
			}
		}
	}))
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http")
}

func TestWSClientRoundTrip(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ts := frameServer(t, func(f RequestFrame) (ReplyFrame, bool) {
		if f.Method != http.MethodPost || f.URL != "/forms/users" {
			return ReplyFrame{ID: f.ID, Status: http.StatusBadRequest}, true
		}
		data, _ := json.Marshal(map[string]any{"echo": f.Body["name"]})
		return ReplyFrame{ID: f.ID, Status: http.StatusCreated, Data: data}, true
	})
	defer ts.Close()

	client, err := DialWS(context.Background(), wsURL(ts))
	if err != nil {
		t.Fatalf("DialWS error: %v", err)
	}
	defer client.Close()

	resp, err := Post(context.Background(), client, "/forms/users", map[string]any{"name": "Al"})
	if err != nil {
		t.Fatalf("Post error: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("StatusCode = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	if string(resp.Data) != `{"echo":"Al"}` {
		t.Errorf("Data = %s", resp.Data)
	}
}

func TestWSClientValidationFailure(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ts := frameServer(t, func(f RequestFrame) (ReplyFrame, bool) {
		return ReplyFrame{
			ID:     f.ID,
			Status: http.StatusUnprocessableEntity,
			Data:   json.RawMessage(`{"errors":{"email":["invalid"]}}`),
		}, true
	})
	defer ts.Close()

	client, err := DialWS(context.Background(), wsURL(ts))
	if err != nil {
		t.Fatalf("DialWS error: %v", err)
	}
	defer client.Close()

	_, err = Patch(context.Background(), client, "/forms/users/1", map[string]any{"email": "x"})

	var rerr *ResponseError
	if !errors.As(err, &rerr) {
		t.Fatalf("Expected *ResponseError, got %T: %v", err, err)
	}
	if got := rerr.Body.Fields["email"]; len(got) != 1 || got[0] != "invalid" {
		t.Errorf("email messages = %v, want [invalid]", got)
	}
}

func TestWSClientSkipsForeignReplies(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		var frame RequestFrame
		if err := conn.ReadJSON(&frame); err != nil {
			return
		}
		conn.WriteJSON(ReplyFrame{ID: "someone-else", Status: http.StatusOK})
		conn.WriteJSON(ReplyFrame{ID: frame.ID, Status: http.StatusAccepted})
		conn.ReadMessage()
	}))
	defer ts.Close()

	client, err := DialWS(context.Background(), wsURL(ts))
	if err != nil {
		t.Fatalf("DialWS error: %v", err)
	}
	defer client.Close()

	resp, err := Post(context.Background(), client, "/x", nil)
	if err != nil {
		t.Fatalf("Post error: %v", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("StatusCode = %d, want %d", resp.StatusCode, http.StatusAccepted)
	}
}

func TestWSClientContextTimeout(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ts := frameServer(t, func(f RequestFrame) (ReplyFrame, bool) {
		return ReplyFrame{}, false
	})
	defer ts.Close()

	client, err := DialWS(context.Background(), wsURL(ts))
	if err != nil {
		t.Fatalf("DialWS error: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = Post(ctx, client, "/x", nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected context.DeadlineExceeded, got %v", err)
	}

	_, err = Post(context.Background(), client, "/x", nil)
	if !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed after a failed read, got %v", err)
	}
}

func TestDialWSFailure(t *testing.T) {
	_, err := DialWS(context.Background(), "ws://127.0.0.1:1/nowhere",
		WithHandshakeTimeout(200*time.Millisecond))

	var terr *TransportError
	if !errors.As(err, &terr) || terr.Op != "dial" {
		t.Errorf("Expected dial TransportError, got %v", err)
	}
}
