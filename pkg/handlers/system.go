package handlers

import (
	"encoding/json"
	"time"

	"github.com/shirou/gopsutil/v4/mem"

	"github.com/codeready-toolchain/mobile-agent/pkg/protocol"
	"github.com/codeready-toolchain/mobile-agent/pkg/router"
	"github.com/codeready-toolchain/mobile-agent/pkg/version"
)

func registerSystem(r *router.Router, deps *Deps) {
	r.Register(&systemCapabilities{deps})
	r.Register(&systemHeartbeat{deps})
	r.Register(&systemConfigure{deps})
	r.Register(&systemShutdown{deps})
}

// systemCapabilities implements system.capabilities (spec §4.5, §6):
// reports capability flags, active strategies, loaded plugin ids, and
// the registered method catalogue.
type systemCapabilities struct{ deps *Deps }

func (h *systemCapabilities) Method() string                    { return "system.capabilities" }
func (h *systemCapabilities) Validate(json.RawMessage) error     { return nil }
func (h *systemCapabilities) Handle(router.Context, json.RawMessage) (any, error) {
	snap := h.deps.Resolver.Capabilities()
	return map[string]any{
		"agentVersion":      version.Full(),
		"privilegedShell":   snap.PrivilegedShell,
		"accessibility":     snap.Accessibility,
		"platformApiLevel":  snap.PlatformAPILevel,
		"activeStrategies":  snap.ActiveStrategyNames,
		"loadedPluginIds":   snap.LoadedPluginIDs,
		"registeredMethods": h.deps.Router.Methods(),
	}, nil
}

// systemHeartbeat implements system.heartbeat: a liveness probe
// reporting uptime and system memory since process start (spec §8
// scenario 1's literal result shape).
type systemHeartbeat struct{ deps *Deps }

func (h *systemHeartbeat) Method() string                { return "system.heartbeat" }
func (h *systemHeartbeat) Validate(json.RawMessage) error { return nil }
func (h *systemHeartbeat) Handle(router.Context, json.RawMessage) (any, error) {
	var freeMemory, totalMemory uint64
	if vm, err := mem.VirtualMemory(); err == nil {
		freeMemory = vm.Available
		totalMemory = vm.Total
	}
	return map[string]any{
		"uptime":      time.Since(h.deps.StartedAt).Milliseconds(),
		"freeMemory":  freeMemory,
		"totalMemory": totalMemory,
		"timestamp":   time.Now().UnixMilli(),
	}, nil
}

type configureParams struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// systemConfigure implements system.configure, applying a single
// runtime-settable configuration key.
type systemConfigure struct{ deps *Deps }

func (h *systemConfigure) Method() string { return "system.configure" }

func (h *systemConfigure) Validate(params json.RawMessage) error {
	var p configureParams
	if err := decodeParams(params, &p); err != nil {
		return err
	}
	if p.Key == "" {
		return errMissingField("key")
	}
	return nil
}

func (h *systemConfigure) Handle(_ router.Context, params json.RawMessage) (any, error) {
	var p configureParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if h.deps.ConfigureFn == nil {
		return nil, protocol.NewError(protocol.CodeInternalError, "configuration is not wired", nil)
	}
	if err := h.deps.ConfigureFn(p.Key, p.Value); err != nil {
		return nil, protocol.NewError(protocol.CodeInternalError, err.Error(), nil)
	}
	return map[string]any{"applied": true, "key": p.Key}, nil
}

// systemShutdown implements system.shutdown: requests a graceful agent
// stop and acknowledges before the process actually exits.
type systemShutdown struct{ deps *Deps }

func (h *systemShutdown) Method() string                { return "system.shutdown" }
func (h *systemShutdown) Validate(json.RawMessage) error { return nil }
func (h *systemShutdown) Handle(router.Context, json.RawMessage) (any, error) {
	if h.deps.Shutdown != nil {
		go h.deps.Shutdown()
	}
	return map[string]any{"shuttingDown": true}, nil
}
