package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/mobile-agent/pkg/config"
	"github.com/codeready-toolchain/mobile-agent/pkg/handlers"
	"github.com/codeready-toolchain/mobile-agent/pkg/resolver"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	// Port 0 lets the OS assign an ephemeral port per listener; tests
	// only exercise wiring, not real connections to fixed ports.
	cfg.ControlPort = 0
	cfg.BinaryPort = 0
	cfg.EventPort = 0
	cfg.PluginsDir = t.TempDir()
	return cfg
}

func TestNewWiresHandlersAndResolverDefaults(t *testing.T) {
	cfg := testConfig(t)
	a := New(cfg, handlers.DeviceInfo{Model: "test-device", SDK: 30})

	methods := a.router.Methods()
	assert.Contains(t, methods, "device.info")
	assert.Contains(t, methods, "ui.click")
	assert.Contains(t, methods, "perf.start")

	snap := a.resolver.Capabilities()
	assert.Equal(t, "memory", snap.ActiveStrategyNames[resolver.FamilyInput])
	assert.Equal(t, "memory", snap.ActiveStrategyNames[resolver.FamilyScreenCapture])
	assert.Equal(t, "memory", snap.ActiveStrategyNames[resolver.FamilyHierarchy])
}

func TestConfigureUpdatesResolverCapabilities(t *testing.T) {
	cfg := testConfig(t)
	a := New(cfg, handlers.DeviceInfo{})

	require.NoError(t, a.configure("privilegedShell", true))
	snap := a.resolver.Capabilities()
	assert.True(t, snap.PrivilegedShell)

	require.NoError(t, a.configure("platformApiLevel", float64(33)))
	snap = a.resolver.Capabilities()
	assert.Equal(t, 33, snap.PlatformAPILevel)

	err := a.configure("unknownKey", "x")
	assert.Error(t, err)
}

func TestStartStopLifecycle(t *testing.T) {
	cfg := testConfig(t)
	a := New(cfg, handlers.DeviceInfo{})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- a.Start(ctx) }()

	// give the listeners a moment to bind before tearing down
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("agent did not stop within timeout")
	}
}
