package devserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/formkit/pkg/transport"
)

// handleWebSocket serves request frames until the client goes away.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	for {
		var frame transport.RequestFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("websocket read ended", "error", err)
			}
			return
		}
		if err := conn.WriteJSON(s.replay(r, frame)); err != nil {
			s.logger.Debug("websocket write failed", "error", err)
			return
		}
	}
}

// replay runs frame through the router and captures the reply.
func (s *Server) replay(parent *http.Request, frame transport.RequestFrame) transport.ReplyFrame {
	reply := transport.ReplyFrame{ID: frame.ID}

	target := frame.URL
	if u, err := url.Parse(frame.URL); err == nil {
		target = u.RequestURI()
	}
	body, err := json.Marshal(frame.Body)
	if err != nil {
		reply.Status = http.StatusBadRequest
		reply.Data, _ = json.Marshal(message(err.Error()))
		return reply
	}

	req, err := http.NewRequestWithContext(parent.Context(), frame.Method, target, bytes.NewReader(body))
	if err != nil {
		reply.Status = http.StatusBadRequest
		reply.Data, _ = json.Marshal(message(err.Error()))
		return reply
	}
	for key, values := range frame.Header {
		req.Header[key] = values
	}
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = parent.RemoteAddr

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	reply.Status = rec.Code
	reply.Header = rec.Header()
	data := rec.Body.Bytes()
	switch {
	case len(data) == 0:
	case json.Valid(data):
		reply.Data = bytes.TrimSpace(data)
	default:
		reply.Data, _ = json.Marshal(string(data))
	}
	return reply
}
