// Package transport implements the Transport Server (spec §4.2): three
// independent listeners (control, binary, event) bridging the wire
// protocol in pkg/protocol to the command router in pkg/router.
package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v5"
	"golang.org/x/sync/errgroup"

	"github.com/codeready-toolchain/mobile-agent/pkg/protocol"
	"github.com/codeready-toolchain/mobile-agent/pkg/router"
	"github.com/codeready-toolchain/mobile-agent/pkg/session"
)

// Config is the subset of agent configuration the transport needs.
type Config struct {
	ControlAddr         string
	BinaryAddr          string
	EventAddr           string
	MaxConnections       int
	HeartbeatInterval    time.Duration
	HeartbeatTimeout     time.Duration
	OutboundQueueSize    int // binary channel per-connection outbound buffer, spec floor 16
}

// Server owns the three listener processes and the shared upgrader.
// It does not itself know method semantics; every request envelope is
// handed to router.Dispatch.
type Server struct {
	cfg      Config
	router   *router.Router
	sessions *session.Manager
	upgrader websocket.Upgrader

	control *http.Server
	binary  *http.Server
	event   *http.Server

	eventHub      *eventHub
	onBinaryFrame BinaryFrameHandler
}

// OnBinaryFrame registers the callback invoked for every decoded
// inbound binary frame. Optional: with none registered, inbound frames
// are decoded (for validation) and discarded.
func (s *Server) OnBinaryFrame(h BinaryFrameHandler) {
	s.onBinaryFrame = h
}

// New wires a transport server to its dispatcher and session manager.
func New(cfg Config, r *router.Router, sessions *session.Manager) *Server {
	if cfg.OutboundQueueSize < 16 {
		cfg.OutboundQueueSize = 16
	}
	return &Server{
		cfg:      cfg,
		router:   r,
		sessions: sessions,
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		eventHub: newEventHub(),
	}
}

// Start binds the three configured addresses and serves on them in
// parallel, per spec §4.2's "the three channels come up independently".
// Binding happens synchronously (errors surface before Start returns);
// serving then runs until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	controlLn, err := net.Listen("tcp", s.cfg.ControlAddr)
	if err != nil {
		return fmt.Errorf("binding control listener: %w", err)
	}
	binaryLn, err := net.Listen("tcp", s.cfg.BinaryAddr)
	if err != nil {
		return fmt.Errorf("binding binary listener: %w", err)
	}
	eventLn, err := net.Listen("tcp", s.cfg.EventAddr)
	if err != nil {
		return fmt.Errorf("binding event listener: %w", err)
	}
	return s.ServeOn(ctx, controlLn, binaryLn, eventLn)
}

// ServeOn serves the three channels on pre-created listeners. Exported
// so tests can bind OS-assigned ports instead of the configured fixed
// ones, mirroring the teacher's StartWithListener test idiom.
func (s *Server) ServeOn(ctx context.Context, controlLn, binaryLn, eventLn net.Listener) error {
	s.control = s.newHTTPServer("/control", s.controlHandler)
	s.binary = s.newHTTPServer("/binary", s.binaryHandler)
	s.event = s.newHTTPServer("/events", s.eventHandler)

	g, gctx := errgroup.WithContext(ctx)
	for _, pair := range []struct {
		name   string
		server *http.Server
		ln     net.Listener
	}{
		{"control", s.control, controlLn}, {"binary", s.binary, binaryLn}, {"event", s.event, eventLn},
	} {
		srv, ln, name := pair.server, pair.ln, pair.name
		g.Go(func() error {
			slog.Info("transport listener starting", "channel", name, "addr", ln.Addr())
			if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("%s listener: %w", name, err)
			}
			return nil
		})
	}

	go func() {
		<-gctx.Done()
		_ = s.Stop(context.Background())
	}()

	return g.Wait()
}

// Stop gracefully shuts down every listener.
func (s *Server) Stop(ctx context.Context) error {
	var g errgroup.Group
	for _, srv := range []*http.Server{s.control, s.binary, s.event} {
		srv := srv
		if srv == nil {
			continue
		}
		g.Go(func() error { return srv.Shutdown(ctx) })
	}
	return g.Wait()
}

// Broadcast pushes an event envelope to every connected event-channel
// client, best-effort (spec §4.2: lossy delivery, never blocks).
func (s *Server) Broadcast(method string, payload any) error {
	now := time.Now().UnixMilli()
	ev, err := protocol.NewEvent(newEventID(), method, payload, now)
	if err != nil {
		return err
	}
	data, err := protocol.Encode(ev)
	if err != nil {
		return err
	}
	s.eventHub.broadcast(data)
	return nil
}

// newHTTPServer builds the echo instance for one channel, exposing its
// WebSocket upgrade route at the spec-mandated path (§6: /control,
// /binary, /events).
func (s *Server) newHTTPServer(path string, handler func(http.ResponseWriter, *http.Request)) *http.Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(securityHeaders())
	e.GET(path, func(c *echo.Context) error {
		handler(c.Response().Writer, c.Request())
		return nil
	})
	return &http.Server{Handler: e}
}

var eventIDCounter uint64

// newEventID mints a locally-unique event envelope id. Event envelopes
// are not request-scoped so a monotonic counter (rather than the
// request/response id-echo rule) is sufficient.
func newEventID() string {
	eventIDCounter++
	return fmt.Sprintf("evt-%d-%d", time.Now().UnixNano(), eventIDCounter)
}
