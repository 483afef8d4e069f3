package handlers

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/codeready-toolchain/mobile-agent/pkg/protocol"
	"github.com/codeready-toolchain/mobile-agent/pkg/resolver"
	"github.com/codeready-toolchain/mobile-agent/pkg/strategy"
)

func itoa(n int) string { return strconv.Itoa(n) }

// decodeParams unmarshals params into dst, returning a plain error on
// failure; the router turns it into an INTERNAL error response (9001
// from Validate, 9999 from Handle). Handlers decode again defensively
// since Validate may be a no-op for simple methods.
func decodeParams(params json.RawMessage, dst any) error {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, dst); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	return nil
}

// resolveInput looks up the active input strategy, returning a
// device.offline-shaped error when no strategy is registered.
func resolveInput(r *resolver.Resolver) (strategy.Input, *protocol.Error) {
	s, ok := r.Resolve(resolver.FamilyInput)
	if !ok {
		return nil, protocol.NewError(protocol.CodeDeviceOffline, "no input strategy available", nil)
	}
	impl, ok := s.Impl.(strategy.Input)
	if !ok {
		return nil, protocol.NewError(protocol.CodeInternalError, "input strategy misconfigured", nil)
	}
	return impl, nil
}

func resolveCapture(r *resolver.Resolver) (strategy.Capture, *protocol.Error) {
	s, ok := r.Resolve(resolver.FamilyScreenCapture)
	if !ok {
		return nil, protocol.NewError(protocol.CodeDeviceOffline, "no screen-capture strategy available", nil)
	}
	impl, ok := s.Impl.(strategy.Capture)
	if !ok {
		return nil, protocol.NewError(protocol.CodeInternalError, "screen-capture strategy misconfigured", nil)
	}
	return impl, nil
}

func resolveHierarchy(r *resolver.Resolver) (strategy.Hierarchy, *protocol.Error) {
	s, ok := r.Resolve(resolver.FamilyHierarchy)
	if !ok {
		return nil, protocol.NewError(protocol.CodeHierarchyUnavailable, "no hierarchy strategy available", nil)
	}
	impl, ok := s.Impl.(strategy.Hierarchy)
	if !ok {
		return nil, protocol.NewError(protocol.CodeInternalError, "hierarchy strategy misconfigured", nil)
	}
	return impl, nil
}

// elementNotFound builds the fixed error shape spec §8 scenario 3 names
// ("Element not found").
func elementNotFound(selectorDesc string) *protocol.Error {
	return protocol.NewError(protocol.CodeElementNotFound, "Element not found", map[string]any{
		"selector": selectorDesc,
	})
}

func errMissingField(name string) error {
	return fmt.Errorf("missing required field %q", name)
}

func toSelector(p SelectorParams) strategy.Selector {
	s := strategy.Selector{
		ResourceID:         p.ResourceID,
		Text:               p.Text,
		TextMatch:          strategy.TextMatch(orDefault(string(p.TextMatch), "exact")),
		ClassName:          p.ClassName,
		ContentDescription: p.ContentDescription,
		DescMatch:          strategy.DescMatch(orDefault(string(p.DescMatch), "exact")),
		PackageName:        p.PackageName,
		Enabled:            p.Enabled,
		Clickable:          p.Clickable,
		Scrollable:         p.Scrollable,
		Focusable:          p.Focusable,
		Checked:            p.Checked,
		Selected:           p.Selected,
	}
	if p.Child != nil {
		child := toSelector(*p.Child)
		s.Child = &child
	}
	if p.Parent != nil {
		parent := toSelector(*p.Parent)
		s.Parent = &parent
	}
	return s
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// SelectorParams is the wire shape of a selector argument, embedded by
// every ui.* method that targets an element.
type SelectorParams struct {
	ResourceID         string `json:"resourceId,omitempty"`
	Text               string `json:"text,omitempty"`
	TextMatch          string `json:"textMatch,omitempty"`
	ClassName          string `json:"className,omitempty"`
	ContentDescription string `json:"contentDescription,omitempty"`
	DescMatch          string `json:"descMatch,omitempty"`
	PackageName        string `json:"packageName,omitempty"`
	Enabled            *bool  `json:"enabled,omitempty"`
	Clickable          *bool  `json:"clickable,omitempty"`
	Scrollable         *bool  `json:"scrollable,omitempty"`
	Focusable          *bool  `json:"focusable,omitempty"`
	Checked            *bool  `json:"checked,omitempty"`
	Selected           *bool  `json:"selected,omitempty"`

	// Child and Parent restrict matches by tree position: Child requires a
	// descendant matching the nested selector, Parent requires an ancestor.
	Child  *SelectorParams `json:"child,omitempty"`
	Parent *SelectorParams `json:"parent,omitempty"`
}
