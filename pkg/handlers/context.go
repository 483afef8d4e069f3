// Package handlers implements the device.*, ui.*, app.*, system.*, and
// perf.* method families (spec §4.6, method catalogue in spec §6).
package handlers

import (
	"time"

	"github.com/codeready-toolchain/mobile-agent/pkg/perf"
	"github.com/codeready-toolchain/mobile-agent/pkg/resolver"
	"github.com/codeready-toolchain/mobile-agent/pkg/router"
	"github.com/codeready-toolchain/mobile-agent/pkg/strategy"
)

// Deps bundles every collaborator the command handler families consult.
// Handlers are pure with respect to the envelope (spec §4.4): they reach
// transport-adjacent state only through these collaborators, never by
// touching frames directly.
type Deps struct {
	Resolver  *resolver.Resolver
	Shell     strategy.Shell
	Router    *router.Router // for system.capabilities' registeredMethods
	Perf      *perf.Engine
	StartedAt time.Time

	DeviceInfo   func() DeviceInfo
	Shutdown     func()
	ConfigureFn  func(key string, value any) error
}

// DeviceInfo is the static device-facts payload for device.info.
type DeviceInfo struct {
	Model           string `json:"model"`
	Brand           string `json:"brand"`
	SDK             int    `json:"sdk"`
	ScreenWidth     int    `json:"screenWidth"`
	ScreenHeight    int    `json:"screenHeight"`
	Density         float64 `json:"density"`
	Privileged      bool   `json:"privileged"`
}

// Register binds every built-in handler family to r.
func Register(r *router.Router, deps *Deps) {
	registerSystem(r, deps)
	registerDevice(r, deps)
	registerUI(r, deps)
	registerApp(r, deps)
	registerPerf(r, deps)
}
