// Package resolver implements the Capability Resolver (spec §4.5): runtime
// capability flags plus three strategy registries (input, screen-capture,
// hierarchy), with resolution policy per family.
package resolver

import "sync"

// Family identifies one of the three operation families strategies serve.
type Family string

const (
	FamilyInput        Family = "input"
	FamilyScreenCapture Family = "screenCapture"
	FamilyHierarchy     Family = "hierarchy"
)

// Strategy is a named, capability-aware backing implementation for one
// operation family. Modeled as a registered value (insertion-ordered
// list, resolved by predicate), not as an inheritance hierarchy, per
// spec §9's explicit design note.
type Strategy struct {
	Name              string
	RequiresPrivilege bool
	Impl              any // family-specific function set, opaque to the resolver
}

// Capabilities is the mutable capability state tracked by the resolver.
type Capabilities struct {
	PrivilegedShell  bool
	Accessibility    bool
	PlatformAPILevel int
}

// Snapshot is the immutable view exposed to handlers and plugins (spec §3).
type Snapshot struct {
	PrivilegedShell     bool
	Accessibility       bool
	PlatformAPILevel    int
	ActiveStrategyNames map[Family]string
	LoadedPluginIDs     []string
}

// PluginIDLister is satisfied by the plugin registry; the resolver asks
// it for loaded_plugin_ids rather than owning plugin state itself.
type PluginIDLister interface {
	LoadedPluginIDs() []string
}

// Resolver holds capability flags and per-family strategy lists, safe for
// concurrent mutation (register-strategy, update-capabilities) and
// resolution.
type Resolver struct {
	mu     sync.RWMutex
	caps   Capabilities
	lists  map[Family][]Strategy
	plugins PluginIDLister
}

// New creates a resolver with no registered strategies and all
// capabilities false.
func New() *Resolver {
	return &Resolver{
		lists: map[Family][]Strategy{
			FamilyInput:         nil,
			FamilyScreenCapture: nil,
			FamilyHierarchy:     nil,
		},
	}
}

// SetPluginLister wires the plugin registry so Capabilities() can report
// loaded_plugin_ids.
func (r *Resolver) SetPluginLister(p PluginIDLister) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plugins = p
}

// UpdateCapabilities replaces the tracked capability flags.
func (r *Resolver) UpdateCapabilities(c Capabilities) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.caps = c
}

// RegisterStrategy appends a strategy to its family's list. Registration
// is additive; resolution picks the first entry matching capabilities.
func (r *Resolver) RegisterStrategy(family Family, s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lists[family] = append(r.lists[family], s)
}

// Resolve picks the best available strategy for a family per the policy
// in spec §4.5. Returns (nil, false) when no strategy is registered.
func (r *Resolver) Resolve(family Family) (*Strategy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.resolveLocked(family)
}

// resolveLocked assumes the caller already holds at least an RLock.
func (r *Resolver) resolveLocked(family Family) (*Strategy, bool) {
	list := r.lists[family]
	if len(list) == 0 {
		return nil, false
	}

	switch family {
	case FamilyInput:
		if r.caps.PrivilegedShell {
			if s := firstWhere(list, func(s Strategy) bool { return s.RequiresPrivilege }); s != nil {
				return s, true
			}
		}
		if r.caps.Accessibility {
			if s := firstWhere(list, func(s Strategy) bool { return s.Name == "accessibility" }); s != nil {
				return s, true
			}
		}
		if s := firstWhere(list, func(s Strategy) bool { return !s.RequiresPrivilege }); s != nil {
			return s, true
		}
		return &list[0], true

	case FamilyScreenCapture:
		if r.caps.PrivilegedShell {
			if s := firstWhere(list, func(s Strategy) bool { return s.RequiresPrivilege }); s != nil {
				return s, true
			}
		}
		if s := firstWhere(list, func(s Strategy) bool { return !s.RequiresPrivilege }); s != nil {
			return s, true
		}
		return &list[0], true

	case FamilyHierarchy:
		if r.caps.Accessibility {
			if s := firstWhere(list, func(s Strategy) bool { return s.Name == "accessibility" }); s != nil {
				return s, true
			}
		}
		return &list[0], true

	default:
		return &list[0], true
	}
}

func firstWhere(list []Strategy, pred func(Strategy) bool) *Strategy {
	for i := range list {
		if pred(list[i]) {
			return &list[i]
		}
	}
	return nil
}

// Capabilities returns the current immutable snapshot.
func (r *Resolver) Capabilities() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	active := make(map[Family]string, 3)
	for _, f := range []Family{FamilyInput, FamilyScreenCapture, FamilyHierarchy} {
		if s, ok := r.resolveLocked(f); ok {
			active[f] = s.Name
		}
	}

	var pluginIDs []string
	if r.plugins != nil {
		pluginIDs = r.plugins.LoadedPluginIDs()
	}

	return Snapshot{
		PrivilegedShell:     r.caps.PrivilegedShell,
		Accessibility:       r.caps.Accessibility,
		PlatformAPILevel:    r.caps.PlatformAPILevel,
		ActiveStrategyNames: active,
		LoadedPluginIDs:     pluginIDs,
	}
}
