package transport

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"log/slog"

	"github.com/codeready-toolchain/mobile-agent/pkg/protocol"
)

// controlHandler upgrades and services one control-channel connection:
// JSON envelope request/response, spec §4.2's system.hello push on
// connect, and ping/pong keepalive.
func (s *Server) controlHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("control upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	clientID := r.URL.Query().Get("clientId")
	presentedToken := r.Header.Get("Authorization")
	sess, err := s.sessions.Authenticate(presentedToken, clientID)
	if err != nil {
		_ = conn.WriteJSON(protocol.NewErrorResponse("", "", protocol.NewError(
			protocol.CodeAuthFailed, "authentication failed", nil), time.Now().UnixMilli()))
		return
	}
	defer s.sessions.Invalidate(sess.ID)

	hello, err := protocol.NewEvent(newEventID(), "system.hello", map[string]any{
		"sessionId": sess.ID,
		"serverTime": time.Now().UnixMilli(),
	}, time.Now().UnixMilli())
	if err == nil {
		_ = conn.WriteJSON(hello)
	}

	s.runKeepalive(conn)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		sess.Touch()

		req, decErr := protocol.Decode(data)
		if decErr != nil {
			now := time.Now().UnixMilli()
			agentErr, _ := decErr.(*protocol.Error)
			if agentErr == nil {
				agentErr = protocol.NewError(protocol.CodeInternalError, decErr.Error(), nil)
			}
			_ = conn.WriteJSON(protocol.NewErrorResponse("", "", agentErr, now))
			continue
		}

		resp := s.router.Dispatch(req)
		if err := conn.WriteJSON(resp); err != nil {
			return
		}
	}
}

// runKeepalive installs a ping ticker and pong deadline per the
// configured heartbeat interval/timeout.
func (s *Server) runKeepalive(conn *websocket.Conn) {
	interval := s.cfg.HeartbeatInterval
	timeout := s.cfg.HeartbeatTimeout
	if interval <= 0 {
		return
	}
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(timeout))
	})

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}()
}
