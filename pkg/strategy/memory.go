package strategy

import (
	"sync"
	"time"
)

// MemoryHierarchy is a test/bootstrap Hierarchy strategy backed by an
// in-memory tree, standing in for the out-of-scope accessibility-service
// bridge (spec §1: OS-specific effectors are pluggable strategy
// providers with a fixed contract; real providers register through
// pkg/resolver the same way this one does).
type MemoryHierarchy struct {
	mu   sync.RWMutex
	tree []Element
}

// NewMemoryHierarchy creates an empty in-memory hierarchy.
func NewMemoryHierarchy() *MemoryHierarchy {
	return &MemoryHierarchy{}
}

// SetTree replaces the current hierarchy snapshot.
func (m *MemoryHierarchy) SetTree(tree []Element) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tree = tree
}

// Dump returns the current hierarchy snapshot.
func (m *MemoryHierarchy) Dump() ([]Element, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Element, len(m.tree))
	copy(out, m.tree)
	return out, nil
}

// MemoryInput is a test/bootstrap Input strategy recording invocations
// without touching any real device.
type MemoryInput struct {
	mu    sync.Mutex
	Taps  []struct{ X, Y int }
	Keys  []int
	Types []string
}

// NewMemoryInput creates a recording, no-op input strategy.
func NewMemoryInput() *MemoryInput {
	return &MemoryInput{}
}

func (m *MemoryInput) Tap(x, y int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Taps = append(m.Taps, struct{ X, Y int }{x, y})
	return nil
}

func (m *MemoryInput) Swipe(x1, y1, x2, y2 int, duration time.Duration) error {
	return nil
}

func (m *MemoryInput) Key(keyCode int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Keys = append(m.Keys, keyCode)
	return nil
}

func (m *MemoryInput) Type(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Types = append(m.Types, text)
	return nil
}

// MemoryCapture is a test/bootstrap Capture strategy returning a fixed
// 1x1 PNG, so callers see a real PNG magic number without a real display.
type MemoryCapture struct{}

// NewMemoryCapture creates a fixed-output capture strategy.
func NewMemoryCapture() *MemoryCapture { return &MemoryCapture{} }

var onePixelPNG = []byte{
	0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A,
	0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x02, 0x00, 0x00, 0x00, 0x90, 0x77, 0x53,
	0xDE, 0x00, 0x00, 0x00, 0x0C, 0x49, 0x44, 0x41,
	0x54, 0x08, 0xD7, 0x63, 0xF8, 0xCF, 0xC0, 0x00,
	0x00, 0x03, 0x01, 0x01, 0x00, 0x18, 0xDD, 0x8D,
	0xB0, 0x00, 0x00, 0x00, 0x00, 0x49, 0x45, 0x4E,
	0x44, 0xAE, 0x42, 0x60, 0x82,
}

func (c *MemoryCapture) Screenshot(quality, scale int) ([]byte, error) {
	out := make([]byte, len(onePixelPNG))
	copy(out, onePixelPNG)
	return out, nil
}
