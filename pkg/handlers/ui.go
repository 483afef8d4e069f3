package handlers

import (
	"encoding/json"
	"time"

	"github.com/codeready-toolchain/mobile-agent/pkg/protocol"
	"github.com/codeready-toolchain/mobile-agent/pkg/router"
	"github.com/codeready-toolchain/mobile-agent/pkg/strategy"
)

func registerUI(r *router.Router, deps *Deps) {
	r.Register(&uiFind{deps})
	r.Register(&uiDump{deps})
	r.Register(&uiClick{deps})
	r.Register(&uiLongClick{deps})
	r.Register(&uiDoubleClick{deps})
	r.Register(&uiType{deps})
	r.Register(&uiSwipe{deps})
	r.Register(&uiScroll{deps})
	r.Register(&uiWaitFor{deps})
	r.Register(&uiToast{deps})
	r.Register(&uiGesture{deps})
	r.Register(&uiPinch{deps})
}

func dumpTree(deps *Deps) ([]strategy.Element, *protocol.Error) {
	h, err := resolveHierarchy(deps.Resolver)
	if err != nil {
		return nil, err
	}
	tree, derr := h.Dump()
	if derr != nil {
		return nil, protocol.NewError(protocol.CodeHierarchyUnavailable, derr.Error(), nil)
	}
	return tree, nil
}

type findParams struct {
	Selector SelectorParams `json:"selector"`
	All      bool           `json:"all,omitempty"`
}

type uiFind struct{ deps *Deps }

func (h *uiFind) Method() string { return "ui.find" }
func (h *uiFind) Validate(json.RawMessage) error { return nil }
func (h *uiFind) Handle(_ router.Context, params json.RawMessage) (any, error) {
	var p findParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	tree, herr := dumpTree(h.deps)
	if herr != nil {
		return nil, herr
	}
	sel := toSelector(p.Selector)
	if p.All {
		return map[string]any{"elements": strategy.FindAll(tree, sel)}, nil
	}
	el, ok := strategy.FindFirst(tree, sel)
	if !ok {
		return nil, elementNotFound(p.Selector.ResourceID + p.Selector.Text)
	}
	return map[string]any{"element": el}, nil
}

type uiDump struct{ deps *Deps }

func (h *uiDump) Method() string                { return "ui.dump" }
func (h *uiDump) Validate(json.RawMessage) error { return nil }
func (h *uiDump) Handle(router.Context, json.RawMessage) (any, error) {
	tree, herr := dumpTree(h.deps)
	if herr != nil {
		return nil, herr
	}
	return map[string]any{"elements": tree}, nil
}

func locate(deps *Deps, sp SelectorParams) (strategy.Element, *protocol.Error) {
	tree, herr := dumpTree(deps)
	if herr != nil {
		return strategy.Element{}, herr
	}
	el, ok := strategy.FindFirst(tree, toSelector(sp))
	if !ok {
		return strategy.Element{}, elementNotFound(sp.ResourceID + sp.Text)
	}
	return el, nil
}

// targetParams is the wire shape shared by ui.click/longClick/doubleClick:
// a tap target given either as a selector to resolve or as direct x/y
// coordinates (spec method catalogue: "x/y or selector").
type targetParams struct {
	Selector *SelectorParams `json:"selector,omitempty"`
	X        *int            `json:"x,omitempty"`
	Y        *int            `json:"y,omitempty"`
}

// resolveXY resolves a tap target, preferring explicit coordinates over a
// selector when both are present.
func resolveXY(deps *Deps, sel *SelectorParams, x, y *int) (int, int, *protocol.Error) {
	if x != nil && y != nil {
		return *x, *y, nil
	}
	if sel == nil {
		return 0, 0, protocol.NewError(protocol.CodeInternalError, "either selector or x/y is required", nil)
	}
	el, herr := locate(deps, *sel)
	if herr != nil {
		return 0, 0, herr
	}
	return el.Bounds.CenterX(), el.Bounds.CenterY(), nil
}

type uiClick struct{ deps *Deps }

func (h *uiClick) Method() string                { return "ui.click" }
func (h *uiClick) Validate(json.RawMessage) error { return nil }

// Handle resolves x/y or a selector and taps it. A selector miss is not a
// transport error: spec §8 scenario 3 requires a success-shaped result
// carrying an in-result failure indicator.
func (h *uiClick) Handle(_ router.Context, params json.RawMessage) (any, error) {
	var p targetParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	var x, y int
	switch {
	case p.X != nil && p.Y != nil:
		x, y = *p.X, *p.Y
	case p.Selector != nil:
		el, herr := locate(h.deps, *p.Selector)
		if herr != nil {
			if herr.Code == protocol.CodeElementNotFound {
				return map[string]any{"success": false, "error": "Element not found"}, nil
			}
			return nil, herr
		}
		if !el.Clickable {
			return nil, protocol.NewError(protocol.CodeElementNotVisible, "element is not clickable", nil)
		}
		x, y = el.Bounds.CenterX(), el.Bounds.CenterY()
	default:
		return nil, errMissingField("selector or x/y")
	}

	input, ierr := resolveInput(h.deps.Resolver)
	if ierr != nil {
		return nil, ierr
	}
	if err := input.Tap(x, y); err != nil {
		return nil, protocol.NewError(protocol.CodeGestureFailed, err.Error(), nil)
	}
	return map[string]any{"success": true, "x": x, "y": y}, nil
}

type longClickParams struct {
	Selector   *SelectorParams `json:"selector,omitempty"`
	X          *int            `json:"x,omitempty"`
	Y          *int            `json:"y,omitempty"`
	DurationMS int             `json:"durationMs,omitempty"`
}

type uiLongClick struct{ deps *Deps }

func (h *uiLongClick) Method() string                { return "ui.longClick" }
func (h *uiLongClick) Validate(json.RawMessage) error { return nil }
func (h *uiLongClick) Handle(_ router.Context, params json.RawMessage) (any, error) {
	var p longClickParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	x, y, herr := resolveXY(h.deps, p.Selector, p.X, p.Y)
	if herr != nil {
		return nil, herr
	}
	input, ierr := resolveInput(h.deps.Resolver)
	if ierr != nil {
		return nil, ierr
	}
	dur := time.Duration(p.DurationMS) * time.Millisecond
	if dur <= 0 {
		dur = 800 * time.Millisecond
	}
	if err := input.Swipe(x, y, x, y, dur); err != nil {
		return nil, protocol.NewError(protocol.CodeGestureFailed, err.Error(), nil)
	}
	return map[string]any{"success": true}, nil
}

type uiDoubleClick struct{ deps *Deps }

func (h *uiDoubleClick) Method() string                { return "ui.doubleClick" }
func (h *uiDoubleClick) Validate(json.RawMessage) error { return nil }
func (h *uiDoubleClick) Handle(_ router.Context, params json.RawMessage) (any, error) {
	var p targetParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	x, y, herr := resolveXY(h.deps, p.Selector, p.X, p.Y)
	if herr != nil {
		return nil, herr
	}
	input, ierr := resolveInput(h.deps.Resolver)
	if ierr != nil {
		return nil, ierr
	}
	if err := input.Tap(x, y); err != nil {
		return nil, protocol.NewError(protocol.CodeGestureFailed, err.Error(), nil)
	}
	time.Sleep(100 * time.Millisecond)
	if err := input.Tap(x, y); err != nil {
		return nil, protocol.NewError(protocol.CodeGestureFailed, err.Error(), nil)
	}
	return map[string]any{"success": true}, nil
}

type typeParams struct {
	Selector *SelectorParams `json:"selector,omitempty"`
	Text     string          `json:"text"`
}

type uiType struct{ deps *Deps }

func (h *uiType) Method() string { return "ui.type" }
func (h *uiType) Validate(params json.RawMessage) error {
	var p typeParams
	if err := decodeParams(params, &p); err != nil {
		return err
	}
	if p.Text == "" {
		return errMissingField("text")
	}
	return nil
}
func (h *uiType) Handle(_ router.Context, params json.RawMessage) (any, error) {
	var p typeParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.Selector != nil {
		el, herr := locate(h.deps, *p.Selector)
		if herr != nil {
			return nil, herr
		}
		input, ierr := resolveInput(h.deps.Resolver)
		if ierr != nil {
			return nil, ierr
		}
		if err := input.Tap(el.Bounds.CenterX(), el.Bounds.CenterY()); err != nil {
			return nil, protocol.NewError(protocol.CodeGestureFailed, err.Error(), nil)
		}
	}
	input, ierr := resolveInput(h.deps.Resolver)
	if ierr != nil {
		return nil, ierr
	}
	if err := input.Type(p.Text); err != nil {
		return nil, protocol.NewError(protocol.CodeGestureFailed, err.Error(), nil)
	}
	return map[string]any{"success": true}, nil
}

type uiSwipe struct{ deps *Deps }

func (h *uiSwipe) Method() string                { return "ui.swipe" }
func (h *uiSwipe) Validate(json.RawMessage) error { return nil }
func (h *uiSwipe) Handle(_ router.Context, params json.RawMessage) (any, error) {
	var raw swipeRaw
	if err := decodeParams(params, &raw); err != nil {
		return nil, err
	}
	input, ierr := resolveInput(h.deps.Resolver)
	if ierr != nil {
		return nil, ierr
	}
	dur := time.Duration(raw.DurationMS) * time.Millisecond
	if dur <= 0 {
		dur = 300 * time.Millisecond
	}
	if err := input.Swipe(raw.X1, raw.Y1, raw.X2, raw.Y2, dur); err != nil {
		return nil, protocol.NewError(protocol.CodeGestureFailed, err.Error(), nil)
	}
	return map[string]any{"success": true}, nil
}

type swipeRaw struct {
	X1         int `json:"x1"`
	Y1         int `json:"y1"`
	X2         int `json:"x2"`
	Y2         int `json:"y2"`
	DurationMS int `json:"durationMs,omitempty"`
}

type scrollParams struct {
	Selector   *SelectorParams `json:"selector,omitempty"`
	DirectionX int             `json:"directionX,omitempty"`
	DirectionY int             `json:"directionY,omitempty"`
}

type uiScroll struct{ deps *Deps }

func (h *uiScroll) Method() string                { return "ui.scroll" }
func (h *uiScroll) Validate(json.RawMessage) error { return nil }
func (h *uiScroll) Handle(_ router.Context, params json.RawMessage) (any, error) {
	var p scrollParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	cx, cy := 540, 960
	if p.Selector != nil {
		el, herr := locate(h.deps, *p.Selector)
		if herr != nil {
			return nil, herr
		}
		if !el.Scrollable {
			return nil, protocol.NewError(protocol.CodeElementNotVisible, "element is not scrollable", nil)
		}
		cx, cy = el.Bounds.CenterX(), el.Bounds.CenterY()
	}
	input, ierr := resolveInput(h.deps.Resolver)
	if ierr != nil {
		return nil, ierr
	}
	dx, dy := p.DirectionX, p.DirectionY
	if dx == 0 && dy == 0 {
		dy = -400
	}
	if err := input.Swipe(cx, cy, cx+dx, cy+dy, 300*time.Millisecond); err != nil {
		return nil, protocol.NewError(protocol.CodeGestureFailed, err.Error(), nil)
	}
	return map[string]any{"success": true}, nil
}

const (
	defaultWaitForTimeoutMS = 10000
	defaultWaitForPollMS    = 500
)

type waitForParams struct {
	Selector  SelectorParams `json:"selector"`
	Condition string         `json:"condition,omitempty"` // "exists" (default) or "gone"
	TimeoutMS *int           `json:"timeoutMs,omitempty"`
	PollMS    int            `json:"pollMs,omitempty"`
}

type uiWaitFor struct{ deps *Deps }

func (h *uiWaitFor) Method() string                { return "ui.waitFor" }
func (h *uiWaitFor) Validate(json.RawMessage) error { return nil }

// Handle polls dumpTree/FindFirst until condition is satisfied or the
// deadline passes. condition="exists" (default) is satisfied by a match;
// condition="gone" is satisfied by its absence. A miss or timeout is a
// success-shaped result, not a transport error (spec §8 boundary
// behaviour): {found, timedOut}, found reflecting whether the condition
// was satisfied. timeoutMs omitted defaults to 10s; timeoutMs=0 checks
// exactly once.
func (h *uiWaitFor) Handle(_ router.Context, params json.RawMessage) (any, error) {
	var p waitForParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	gone := p.Condition == "gone"

	timeoutMS := defaultWaitForTimeoutMS
	if p.TimeoutMS != nil {
		timeoutMS = *p.TimeoutMS
	}
	pollMS := p.PollMS
	if pollMS <= 0 {
		pollMS = defaultWaitForPollMS
	}

	sel := toSelector(p.Selector)
	deadline := time.Now().Add(time.Duration(timeoutMS) * time.Millisecond)

	for {
		tree, herr := dumpTree(h.deps)
		if herr != nil {
			return nil, herr
		}
		el, matched := strategy.FindFirst(tree, sel)
		if gone != matched {
			result := map[string]any{"found": true, "timedOut": false}
			if matched {
				result["element"] = el
			}
			return result, nil
		}
		if timeoutMS <= 0 || time.Now().After(deadline) {
			return map[string]any{"found": false, "timedOut": true}, nil
		}
		time.Sleep(time.Duration(pollMS) * time.Millisecond)
	}
}

type toastParams struct {
	Message  string `json:"message"`
	Duration int    `json:"durationMs,omitempty"`
}

type uiToast struct{ deps *Deps }

func (h *uiToast) Method() string { return "ui.toast" }
func (h *uiToast) Validate(params json.RawMessage) error {
	var p toastParams
	if err := decodeParams(params, &p); err != nil {
		return err
	}
	if p.Message == "" {
		return errMissingField("message")
	}
	return nil
}
func (h *uiToast) Handle(_ router.Context, params json.RawMessage) (any, error) {
	var p toastParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	_, err := h.deps.Shell.Run("cmd notification post -t toast "+quote(p.Message), false, 3*time.Second)
	if err != nil {
		return nil, protocol.NewError(protocol.CodeInternalError, err.Error(), nil)
	}
	return map[string]any{"shown": true}, nil
}

type gesturePoint struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type gestureParams struct {
	Points     []gesturePoint `json:"points"`
	DurationMS int            `json:"durationMs,omitempty"`
}

type uiGesture struct{ deps *Deps }

func (h *uiGesture) Method() string { return "ui.gesture" }
func (h *uiGesture) Validate(params json.RawMessage) error {
	var p gestureParams
	if err := decodeParams(params, &p); err != nil {
		return err
	}
	if len(p.Points) < 2 {
		return errMissingField("points")
	}
	return nil
}
func (h *uiGesture) Handle(_ router.Context, params json.RawMessage) (any, error) {
	var p gestureParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	input, ierr := resolveInput(h.deps.Resolver)
	if ierr != nil {
		return nil, ierr
	}
	dur := time.Duration(p.DurationMS) * time.Millisecond
	if dur <= 0 {
		dur = 300 * time.Millisecond
	}
	for i := 0; i < len(p.Points)-1; i++ {
		a, b := p.Points[i], p.Points[i+1]
		if err := input.Swipe(a.X, a.Y, b.X, b.Y, dur); err != nil {
			return nil, protocol.NewError(protocol.CodeGestureFailed, err.Error(), nil)
		}
	}
	return map[string]any{"success": true}, nil
}

type pinchParams struct {
	Selector SelectorParams `json:"selector"`
	Scale    float64        `json:"scale"`
}

type uiPinch struct{ deps *Deps }

func (h *uiPinch) Method() string { return "ui.pinch" }
func (h *uiPinch) Validate(params json.RawMessage) error {
	var p pinchParams
	if err := decodeParams(params, &p); err != nil {
		return err
	}
	if p.Scale == 0 {
		return errMissingField("scale")
	}
	return nil
}
func (h *uiPinch) Handle(_ router.Context, params json.RawMessage) (any, error) {
	var p pinchParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	el, herr := locate(h.deps, p.Selector)
	if herr != nil {
		return nil, herr
	}
	input, ierr := resolveInput(h.deps.Resolver)
	if ierr != nil {
		return nil, ierr
	}
	cx, cy := el.Bounds.CenterX(), el.Bounds.CenterY()
	spread := int(40 * p.Scale)
	if err := input.Swipe(cx-spread, cy, cx+spread, cy, 300*time.Millisecond); err != nil {
		return nil, protocol.NewError(protocol.CodeGestureFailed, err.Error(), nil)
	}
	return map[string]any{"success": true}, nil
}

func quote(s string) string { return "'" + s + "'" }
