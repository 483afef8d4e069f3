// Package strategy defines the capability-aware backing interfaces the
// command handlers resolve through pkg/resolver, plus an in-memory
// implementation of each and an os/exec-backed Shell (spec §4.6, §9's
// "strategies are registered values, not subclasses").
package strategy

import "time"

// Rect is an element's bounding rectangle in screen pixels.
type Rect struct {
	Left, Top, Right, Bottom int
}

// CenterX and CenterY return the rectangle's midpoint.
func (r Rect) CenterX() int { return (r.Left + r.Right) / 2 }
func (r Rect) CenterY() int { return (r.Top + r.Bottom) / 2 }

// Element is one node of a UI hierarchy dump.
type Element struct {
	ResourceID         string    `json:"resourceId,omitempty"`
	Text               string    `json:"text,omitempty"`
	ClassName          string    `json:"className,omitempty"`
	ContentDescription string    `json:"contentDescription,omitempty"`
	PackageName        string    `json:"packageName,omitempty"`
	Bounds             Rect      `json:"bounds"`
	Enabled            bool      `json:"enabled"`
	Clickable          bool      `json:"clickable"`
	Scrollable         bool      `json:"scrollable"`
	Focusable          bool      `json:"focusable"`
	Checked            bool      `json:"checked"`
	Selected           bool      `json:"selected"`
	Children           []Element `json:"children,omitempty"`
}

// Input is the strategy contract for the input family: tap, swipe, key
// delivery, and text entry.
type Input interface {
	Tap(x, y int) error
	Swipe(x1, y1, x2, y2 int, duration time.Duration) error
	Key(keyCode int) error
	Type(text string) error
}

// Capture is the strategy contract for the screen-capture family.
type Capture interface {
	// Screenshot returns PNG-encoded image bytes.
	Screenshot(quality, scale int) ([]byte, error)
}

// Hierarchy is the strategy contract for the UI-hierarchy family.
type Hierarchy interface {
	Dump() ([]Element, error)
}

// ShellResult is the outcome of running one shell command.
type ShellResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Shell executes host commands, optionally with elevated privilege. It
// underlies device.shell and the other handlers that shell out (app.*,
// several device.* methods, ui.toast).
type Shell interface {
	Run(command string, privileged bool, timeout time.Duration) (ShellResult, error)
}
