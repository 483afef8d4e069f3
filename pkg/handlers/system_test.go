package handlers

import (
	"testing"
	"time"

	"github.com/codeready-toolchain/mobile-agent/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemCapabilitiesListsRegisteredMethods(t *testing.T) {
	rig := newTestRig()
	req := &protocol.Envelope{ID: "r1", Type: protocol.TypeRequest, Method: "system.capabilities"}
	resp := rig.router.Dispatch(req)

	require.Nil(t, resp.Error)
	var result struct {
		RegisteredMethods []string `json:"registeredMethods"`
		AgentVersion      string   `json:"agentVersion"`
	}
	require.NoError(t, decodeResult(resp, &result))
	assert.Contains(t, result.RegisteredMethods, "ui.click")
	assert.Contains(t, result.RegisteredMethods, "perf.start")
	assert.NotEmpty(t, result.AgentVersion)
}

func TestSystemHeartbeatReportsUptime(t *testing.T) {
	rig := newTestRig()
	req := &protocol.Envelope{ID: "r1", Type: protocol.TypeRequest, Method: "system.heartbeat"}
	resp := rig.router.Dispatch(req)

	require.Nil(t, resp.Error)
	var result struct {
		Uptime      int64  `json:"uptime"`
		FreeMemory  uint64 `json:"freeMemory"`
		TotalMemory uint64 `json:"totalMemory"`
		Timestamp   int64  `json:"timestamp"`
	}
	require.NoError(t, decodeResult(resp, &result))
	assert.GreaterOrEqual(t, result.Uptime, int64(0))
	assert.Greater(t, result.TotalMemory, uint64(0))
	assert.Greater(t, result.Timestamp, int64(0))
}

func TestSystemConfigureRejectsMissingKey(t *testing.T) {
	rig := newTestRig()
	req := &protocol.Envelope{ID: "r1", Type: protocol.TypeRequest, Method: "system.configure",
		Params: mustJSON(t, map[string]any{"value": 1})}
	resp := rig.router.Dispatch(req)

	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.CodeInternalError, resp.Error.Code)
}

func TestSystemConfigureAppliesKey(t *testing.T) {
	rig := newTestRig()
	var applied string
	rig.deps.ConfigureFn = func(key string, value any) error {
		applied = key
		return nil
	}

	req := &protocol.Envelope{ID: "r1", Type: protocol.TypeRequest, Method: "system.configure",
		Params: mustJSON(t, map[string]any{"key": "logLevel", "value": "debug"})}
	resp := rig.router.Dispatch(req)

	require.Nil(t, resp.Error)
	assert.Equal(t, "logLevel", applied)
}

func TestSystemShutdownInvokesCallback(t *testing.T) {
	rig := newTestRig()
	called := make(chan struct{}, 1)
	rig.deps.Shutdown = func() { called <- struct{}{} }

	req := &protocol.Envelope{ID: "r1", Type: protocol.TypeRequest, Method: "system.shutdown"}
	resp := rig.router.Dispatch(req)

	require.Nil(t, resp.Error)
	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatal("expected shutdown callback to fire")
	}
}
