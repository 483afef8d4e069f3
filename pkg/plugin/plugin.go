// Package plugin implements the Plugin Registry (spec §4.7): bundle
// discovery, manifest parsing, a LOADED→INITIALIZED→STARTED→
// STOPPED/ERROR lifecycle, and router/strategy handoff. Go has no safe
// in-process dynamic code loader, so a "bundle" here is a manifest
// paired with a constructor registered at build time rather than code
// loaded from disk at runtime (spec §9's platform-fallback note).
package plugin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cenkalti/backoff/v4"
	"github.com/codeready-toolchain/mobile-agent/pkg/resolver"
	"github.com/codeready-toolchain/mobile-agent/pkg/router"
)

// State is a plugin's position in its lifecycle state machine.
type State string

const (
	StateLoaded      State = "loaded"
	StateInitialized State = "initialized"
	StateStarted     State = "started"
	StateStopped     State = "stopped"
	StateError       State = "error"
)

// Manifest describes one installable plugin bundle.
type Manifest struct {
	ID           string   `yaml:"id"`
	Name         string   `yaml:"name"`
	Version      string   `yaml:"version"`
	Dependencies []string `yaml:"dependencies"`
}

// Host is the capability surface a plugin receives at Init, letting it
// register command handlers and strategies without reaching into agent
// internals directly.
type Host struct {
	Router   *router.Router
	Resolver *resolver.Resolver
	Events   *Bus
}

// Plugin is the contract every registered constructor must satisfy.
// Unload (spec §4.7) calls Stop then Destroy, after the registry has
// already unregistered every handler the plugin added during Init.
type Plugin interface {
	Init(ctx context.Context, host Host) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Destroy(ctx context.Context) error
}

// Constructor builds a fresh Plugin instance for a manifest.
type Constructor func() Plugin

var (
	ErrUnknownPlugin     = errors.New("plugin not registered")
	ErrAlreadyRegistered = errors.New("plugin already registered")
	ErrDependencyTimeout = errors.New("plugin dependency wait timed out")
)

type entry struct {
	manifest    Manifest
	constructor Constructor
	instance    Plugin

	mu                sync.Mutex
	state             State
	err               error
	registeredMethods []string
}

// Registry tracks every known plugin bundle and its lifecycle state.
type Registry struct {
	host Host

	mu      sync.RWMutex
	entries map[string]*entry
}

// New creates an empty registry bound to host. A nil host.Events is
// replaced with a new Bus, so a registry always has somewhere to publish
// lifecycle events.
func New(host Host) *Registry {
	if host.Events == nil {
		host.Events = NewBus(64)
	}
	return &Registry{host: host, entries: make(map[string]*entry)}
}

// RegisterBundle adds a manifest/constructor pair in state LOADED. This
// is the static-linking substitute for dynamic discovery: every plugin
// a build ships with calls this once during agent wiring.
func (r *Registry) RegisterBundle(m Manifest, c Constructor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[m.ID]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, m.ID)
	}
	r.entries[m.ID] = &entry{manifest: m, constructor: c, state: StateLoaded}
	return nil
}

// State reports a plugin's current lifecycle state.
func (r *Registry) State(id string) (State, error) {
	e, err := r.lookup(id)
	if err != nil {
		return "", err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state, nil
}

func (r *Registry) lookup(id string) (*entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlugin, id)
	}
	return e, nil
}

// LoadedPluginIDs satisfies resolver.PluginIDLister: every plugin that
// has reached STARTED.
func (r *Registry) LoadedPluginIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []string
	for id, e := range r.entries {
		e.mu.Lock()
		started := e.state == StateStarted
		e.mu.Unlock()
		if started {
			ids = append(ids, id)
		}
	}
	return ids
}

// Start drives one plugin from LOADED through INITIALIZED to STARTED,
// waiting for its declared dependencies to reach STARTED first (spec
// §4.7's dependency-ordered activation). An Init or Start failure rolls
// back any handlers the plugin had already registered, per spec §4.7's
// "partially registered handlers are rolled back".
func (r *Registry) Start(ctx context.Context, id string) error {
	e, err := r.lookup(id)
	if err != nil {
		return err
	}

	if err := r.waitForDependencies(ctx, e.manifest.Dependencies); err != nil {
		r.setState(e, StateError, err)
		return err
	}

	before := methodSet(r.host.Router.Methods())

	instance := e.constructor()
	if err := instance.Init(ctx, r.host); err != nil {
		r.unregisterMethods(newlyRegistered(before, r.host.Router.Methods()))
		r.setState(e, StateError, err)
		return fmt.Errorf("initializing plugin %s: %w", id, err)
	}
	registered := newlyRegistered(before, r.host.Router.Methods())

	e.mu.Lock()
	e.instance = instance
	e.registeredMethods = registered
	e.state = StateInitialized
	e.mu.Unlock()
	r.host.Events.Publish(Event{Topic: "plugin.initialized", PluginID: id})

	if err := instance.Start(ctx); err != nil {
		r.unregisterMethods(registered)
		r.setState(e, StateError, err)
		return fmt.Errorf("starting plugin %s: %w", id, err)
	}
	r.setState(e, StateStarted, nil)
	r.host.Events.Publish(Event{Topic: "plugin.started", PluginID: id})
	slog.Info("plugin started", "plugin_id", id, "registered_methods", registered)
	return nil
}

// Stop unloads a running plugin (spec §4.7 "Unload"): unregisters every
// handler it registered during Init, then calls its Stop and Destroy
// hooks in order, transitioning it to STOPPED.
func (r *Registry) Stop(ctx context.Context, id string) error {
	e, err := r.lookup(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	instance := e.instance
	methods := e.registeredMethods
	e.registeredMethods = nil
	e.mu.Unlock()
	if instance == nil {
		return nil
	}

	r.unregisterMethods(methods)

	if err := instance.Stop(ctx); err != nil {
		r.setState(e, StateError, err)
		return err
	}
	if err := instance.Destroy(ctx); err != nil {
		r.setState(e, StateError, err)
		return err
	}
	r.setState(e, StateStopped, nil)
	r.host.Events.Publish(Event{Topic: "plugin.stopped", PluginID: id})
	return nil
}

// methodSet snapshots a router method list for later diffing.
func methodSet(methods []string) map[string]struct{} {
	set := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		set[m] = struct{}{}
	}
	return set
}

// newlyRegistered returns the methods present in after but not in before.
func newlyRegistered(before map[string]struct{}, after []string) []string {
	var out []string
	for _, m := range after {
		if _, ok := before[m]; !ok {
			out = append(out, m)
		}
	}
	return out
}

func (r *Registry) unregisterMethods(methods []string) {
	for _, m := range methods {
		r.host.Router.Unregister(m)
	}
}

func (r *Registry) setState(e *entry, s State, err error) {
	e.mu.Lock()
	e.state = s
	e.err = err
	e.mu.Unlock()
}

// waitForDependencies polls with exponential backoff until every
// dependency id has reached STARTED, or the context is cancelled.
func (r *Registry) waitForDependencies(ctx context.Context, deps []string) error {
	if len(deps) == 0 {
		return nil
	}
	b := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
	return backoff.Retry(func() error {
		for _, dep := range deps {
			state, err := r.State(dep)
			if err != nil {
				return backoff.Permanent(fmt.Errorf("%w: dependency %s", ErrUnknownPlugin, dep))
			}
			if state != StateStarted {
				return fmt.Errorf("%w: %s", ErrDependencyTimeout, dep)
			}
		}
		return nil
	}, b)
}

// StartAll starts every registered plugin concurrently; dependency
// ordering is enforced per-plugin by waitForDependencies regardless of
// call order.
func (r *Registry) StartAll(ctx context.Context) error {
	r.mu.RLock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	var wg sync.WaitGroup
	errs := make([]error, len(ids))
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			errs[i] = r.Start(ctx, id)
		}(i, id)
	}
	wg.Wait()

	return errors.Join(errs...)
}

// StopAll stops every started plugin, best-effort.
func (r *Registry) StopAll(ctx context.Context) {
	r.mu.RLock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	for _, id := range ids {
		if err := r.Stop(ctx, id); err != nil {
			slog.Warn("plugin stop failed", "plugin_id", id, "error", err)
		}
	}
}

