package transport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/codeready-toolchain/mobile-agent/pkg/protocol"
)

// BinaryFrameHandler processes an inbound binary frame. The default
// transport wiring has no registered handler (spec leaves inbound
// binary traffic unspecified beyond the header format; this core
// treats it as an outbound-only push channel), in which case frames are
// decoded for validation and otherwise discarded.
type BinaryFrameHandler func(conn *BinaryConn, frame *protocol.Frame)

// BinaryConn is a single binary-channel connection with a bounded,
// back-pressured outbound queue (spec §4.2: "a full outbound queue
// applies back-pressure rather than dropping frames").
type BinaryConn struct {
	conn    *websocket.Conn
	outbox  chan []byte
	closeCh chan struct{}
}

// Send enqueues a frame for delivery, blocking if the outbound queue is
// full until space frees up or the connection closes.
func (c *BinaryConn) Send(frame *protocol.Frame) error {
	data, err := protocol.EncodeFrame(frame)
	if err != nil {
		return err
	}
	select {
	case c.outbox <- data:
		return nil
	case <-c.closeCh:
		return websocket.ErrCloseSent
	}
}

func (s *Server) binaryHandler(w http.ResponseWriter, r *http.Request) {
	wsConn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("binary upgrade failed", "error", err)
		return
	}
	defer wsConn.Close()

	conn := &BinaryConn{
		conn:    wsConn,
		outbox:  make(chan []byte, s.cfg.OutboundQueueSize),
		closeCh: make(chan struct{}),
	}

	go func() {
		defer close(conn.closeCh)
		for {
			_, data, err := wsConn.ReadMessage()
			if err != nil {
				return
			}
			frame, err := protocol.DecodeFrame(data)
			if err != nil {
				continue
			}
			if s.onBinaryFrame != nil {
				s.onBinaryFrame(conn, frame)
			}
		}
	}()

	for {
		select {
		case data := <-conn.outbox:
			_ = wsConn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := wsConn.WriteMessage(websocket.BinaryMessage, data); err != nil {
				return
			}
		case <-conn.closeCh:
			return
		}
	}
}
