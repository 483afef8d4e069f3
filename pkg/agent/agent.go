// Package agent wires the transport, router, resolver, handlers, plugin
// registry, and performance engine into one running device-side Agent
// (spec §2's top-level component list).
package agent

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/mobile-agent/pkg/config"
	"github.com/codeready-toolchain/mobile-agent/pkg/handlers"
	"github.com/codeready-toolchain/mobile-agent/pkg/perf"
	"github.com/codeready-toolchain/mobile-agent/pkg/plugin"
	"github.com/codeready-toolchain/mobile-agent/pkg/resolver"
	"github.com/codeready-toolchain/mobile-agent/pkg/router"
	"github.com/codeready-toolchain/mobile-agent/pkg/session"
	"github.com/codeready-toolchain/mobile-agent/pkg/strategy"
	"github.com/codeready-toolchain/mobile-agent/pkg/transport"
)

// Agent is the running device-side process: every collaborator the spec
// names, wired together and driven through one Start/Stop lifecycle.
type Agent struct {
	cfg *config.Config

	router   *router.Router
	resolver *resolver.Resolver
	perf     *perf.Engine
	plugins  *plugin.Registry
	shell    *strategy.ShellExecutor
	sessions *session.Manager
	server   *transport.Server

	startedAt   time.Time
	deviceInfo  handlers.DeviceInfo
	forwardStop context.CancelFunc
}

// New wires every SPEC_FULL collaborator from cfg but does not start any
// listener or background goroutine — call Start to bring it up.
func New(cfg *config.Config, deviceInfo handlers.DeviceInfo) *Agent {
	a := &Agent{
		cfg:        cfg,
		router:     router.New(),
		resolver:   resolver.New(),
		shell:      strategy.NewShellExecutor(),
		sessions:   session.NewManager(cfg.AuthToken),
		deviceInfo: deviceInfo,
		startedAt:  time.Now(),
	}

	a.perf = perf.NewEngine(newSampleSessionID)
	a.plugins = plugin.New(plugin.Host{Router: a.router, Resolver: a.resolver})
	a.resolver.SetPluginLister(a.plugins)

	// Bootstrap strategies: in-memory backends standing in for the
	// out-of-scope OS-specific effectors (accessibility service, real
	// screen capture). Strategies that plugins register at Start time
	// are appended after these in their family's list; resolution still
	// picks a privileged or "accessibility" strategy over them when the
	// matching capability flag is set.
	a.resolver.RegisterStrategy(resolver.FamilyInput, resolver.Strategy{
		Name: "memory", Impl: strategy.Input(strategy.NewMemoryInput()),
	})
	a.resolver.RegisterStrategy(resolver.FamilyScreenCapture, resolver.Strategy{
		Name: "memory", Impl: strategy.Capture(strategy.NewMemoryCapture()),
	})
	a.resolver.RegisterStrategy(resolver.FamilyHierarchy, resolver.Strategy{
		Name: "memory", Impl: strategy.Hierarchy(strategy.NewMemoryHierarchy()),
	})

	handlers.Register(a.router, &handlers.Deps{
		Resolver:    a.resolver,
		Shell:       a.shell,
		Router:      a.router,
		Perf:        a.perf,
		StartedAt:   a.startedAt,
		DeviceInfo:  func() handlers.DeviceInfo { return a.deviceInfo },
		Shutdown:    func() { a.requestShutdown() },
		ConfigureFn: a.configure,
	})

	a.server = transport.New(transport.Config{
		ControlAddr:       cfg.ControlAddr(),
		BinaryAddr:        cfg.BinaryAddr(),
		EventAddr:         cfg.EventAddr(),
		MaxConnections:    cfg.MaxConnections,
		HeartbeatInterval: time.Duration(cfg.HeartbeatIntervalMS) * time.Millisecond,
		HeartbeatTimeout:  time.Duration(cfg.HeartbeatTimeoutMS) * time.Millisecond,
	}, a.router, a.sessions)

	return a
}

// Start brings up the transport listeners, starts every registered
// plugin, and forwards perf-engine samples onto the event channel. It
// blocks until ctx is cancelled or a listener fails.
func (a *Agent) Start(ctx context.Context) error {
	a.startedAt = time.Now()

	manifests, err := plugin.DiscoverManifests(a.cfg.PluginsDir)
	if err != nil {
		slog.Warn("plugin bundle discovery failed", "dir", a.cfg.PluginsDir, "error", err)
	}
	for _, m := range manifests {
		slog.Info("discovered plugin bundle manifest", "plugin_id", m.ID, "version", m.Version)
	}

	if err := a.plugins.StartAll(ctx); err != nil {
		slog.Warn("one or more plugins failed to start", "error", err)
	}

	sampleCh, unsubscribe := a.perf.Subscribe(64)
	forwardCtx, cancel := context.WithCancel(ctx)
	a.forwardStop = cancel
	go a.forwardSamples(forwardCtx, sampleCh)
	defer unsubscribe()

	slog.Info("agent starting",
		"control_addr", a.cfg.ControlAddr(),
		"binary_addr", a.cfg.BinaryAddr(),
		"event_addr", a.cfg.EventAddr())

	return a.server.Start(ctx)
}

// Stop shuts down the transport and every running plugin.
func (a *Agent) Stop(ctx context.Context) error {
	if a.forwardStop != nil {
		a.forwardStop()
	}
	a.plugins.StopAll(ctx)
	return a.server.Stop(ctx)
}

func (a *Agent) forwardSamples(ctx context.Context, ch <-chan perf.SampleEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := a.server.Broadcast("perf.sample", ev); err != nil {
				slog.Warn("failed to broadcast perf sample", "error", err)
			}
		}
	}
}

// requestShutdown is invoked by the system.shutdown handler (asynchronously,
// per its documented contract) to begin agent teardown.
func (a *Agent) requestShutdown() {
	slog.Info("shutdown requested via system.shutdown")
	if a.forwardStop != nil {
		a.forwardStop()
	}
	_ = a.server.Stop(context.Background())
}

// configure applies a system.configure key/value pair to the resolver's
// tracked capability flags. Unknown keys are rejected.
func (a *Agent) configure(key string, value any) error {
	caps := a.resolver.Capabilities()
	next := resolver.Capabilities{
		PrivilegedShell:  caps.PrivilegedShell,
		Accessibility:    caps.Accessibility,
		PlatformAPILevel: caps.PlatformAPILevel,
	}

	switch key {
	case "privilegedShell":
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("privilegedShell expects a bool, got %T", value)
		}
		next.PrivilegedShell = b
	case "accessibility":
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("accessibility expects a bool, got %T", value)
		}
		next.Accessibility = b
	case "platformApiLevel":
		n, ok := value.(float64) // JSON numbers decode to float64
		if !ok {
			return fmt.Errorf("platformApiLevel expects a number, got %T", value)
		}
		next.PlatformAPILevel = int(n)
	default:
		return fmt.Errorf("unknown configuration key %q", key)
	}

	a.resolver.UpdateCapabilities(next)
	return nil
}

// newSampleSessionID mints a performance-session id, used as perf.Engine's
// id generator.
func newSampleSessionID() (string, error) {
	raw, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	b := [16]byte(raw)
	return hex.EncodeToString(b[:]), nil
}
