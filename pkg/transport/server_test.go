package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/mobile-agent/pkg/protocol"
	"github.com/codeready-toolchain/mobile-agent/pkg/router"
	"github.com/codeready-toolchain/mobile-agent/pkg/session"
)

type echoHandler struct{}

func (echoHandler) Method() string                { return "system.echo" }
func (echoHandler) Validate(json.RawMessage) error { return nil }
func (echoHandler) Handle(ctx router.Context, p json.RawMessage) (any, error) {
	return map[string]any{"echoed": true}, nil
}

// testServer brings up a Server on three ephemeral ports and returns
// dial URLs for each channel plus a teardown func.
type testServer struct {
	controlURL, binaryURL, eventURL string
	srv                             *Server
	stop                            func()
}

func startTestServer(t *testing.T, cfg Config, authToken string) *testServer {
	t.Helper()

	controlLn, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	binaryLn, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	eventLn, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	r := router.New()
	r.Register(echoHandler{})

	sessions := session.NewManager(authToken)
	srv := New(cfg, r, sessions)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ServeOn(ctx, controlLn, binaryLn, eventLn) }()

	ts := &testServer{
		controlURL: fmt.Sprintf("ws://%s/control", controlLn.Addr()),
		binaryURL:  fmt.Sprintf("ws://%s/binary", binaryLn.Addr()),
		eventURL:   fmt.Sprintf("ws://%s/events", eventLn.Addr()),
		srv:        srv,
		stop: func() {
			cancel()
			_ = srv.Stop(context.Background())
			<-errCh
		},
	}
	return ts
}

func TestControlChannelSendsHelloOnConnect(t *testing.T) {
	ts := startTestServer(t, Config{HeartbeatInterval: 0}, "")
	defer ts.stop()

	conn, _, err := websocket.DefaultDialer.Dial(ts.controlURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	var hello protocol.Envelope
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, "system.hello", hello.Method)
	assert.Equal(t, protocol.TypeEvent, hello.Type)
}

func TestControlChannelRejectsBadToken(t *testing.T) {
	ts := startTestServer(t, Config{}, "secret")
	defer ts.stop()

	conn, _, err := websocket.DefaultDialer.Dial(ts.controlURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	var resp protocol.Envelope
	require.NoError(t, conn.ReadJSON(&resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.CodeAuthFailed, resp.Error.Code)
}

func TestControlChannelDispatchesRequests(t *testing.T) {
	ts := startTestServer(t, Config{}, "")
	defer ts.stop()

	conn, _, err := websocket.DefaultDialer.Dial(ts.controlURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	var hello protocol.Envelope
	require.NoError(t, conn.ReadJSON(&hello))

	req := &protocol.Envelope{ID: "req-1", Type: protocol.TypeRequest, Method: "system.echo", Timestamp: time.Now().UnixMilli()}
	require.NoError(t, conn.WriteJSON(req))

	var resp protocol.Envelope
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "req-1", resp.ID)
	assert.Nil(t, resp.Error)
}

func TestBinaryChannelRoundTrips(t *testing.T) {
	ts := startTestServer(t, Config{OutboundQueueSize: 16}, "")
	defer ts.stop()

	received := make(chan *protocol.Frame, 1)
	ts.srv.OnBinaryFrame(func(conn *BinaryConn, frame *protocol.Frame) {
		received <- frame
		_ = conn.Send(&protocol.Frame{CorrelationID: frame.CorrelationID, PayloadType: protocol.PayloadScreenshotPNG, Data: []byte("ack")})
	})

	conn, _, err := websocket.DefaultDialer.Dial(ts.binaryURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	frame := &protocol.Frame{CorrelationID: "corr-1", PayloadType: protocol.PayloadScreenshotPNG, Data: []byte("hello")}
	data, err := protocol.EncodeFrame(frame)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, data))

	select {
	case got := <-received:
		assert.Equal(t, "corr-1", got.CorrelationID)
		assert.Equal(t, []byte("hello"), got.Data)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for binary frame")
	}

	_, respData, err := conn.ReadMessage()
	require.NoError(t, err)
	respFrame, err := protocol.DecodeFrame(respData)
	require.NoError(t, err)
	assert.Equal(t, []byte("ack"), respFrame.Data)
}

func TestEventChannelBroadcastIsLossyForSlowSubscriber(t *testing.T) {
	ts := startTestServer(t, Config{}, "")
	defer ts.stop()

	conn, _, err := websocket.DefaultDialer.Dial(ts.eventURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	for i := 0; i < 100; i++ {
		require.NoError(t, ts.srv.Broadcast("perf.sample", map[string]int{"i": i}))
	}

	// A slow reader must not have blocked Broadcast above; reading one
	// message confirms the connection is still alive.
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	require.NoError(t, err)
}
