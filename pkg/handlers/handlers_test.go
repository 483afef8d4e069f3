package handlers

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/codeready-toolchain/mobile-agent/pkg/perf"
	"github.com/codeready-toolchain/mobile-agent/pkg/resolver"
	"github.com/codeready-toolchain/mobile-agent/pkg/router"
	"github.com/codeready-toolchain/mobile-agent/pkg/strategy"
)

// fakeShell is an in-memory strategy.Shell so handler tests never shell
// out to a real device. Responses are keyed by exact command string.
type fakeShell struct {
	responses map[string]strategy.ShellResult
	commands  []string
}

func newFakeShell() *fakeShell {
	return &fakeShell{responses: map[string]strategy.ShellResult{}}
}

func (s *fakeShell) Run(command string, _ bool, _ time.Duration) (strategy.ShellResult, error) {
	s.commands = append(s.commands, command)
	if r, ok := s.responses[command]; ok {
		return r, nil
	}
	return strategy.ShellResult{}, nil
}

// testRig wires up in-memory strategies so handler tests never shell out
// to a real device.
type testRig struct {
	deps      *Deps
	router    *router.Router
	hierarchy *strategy.MemoryHierarchy
	input     *strategy.MemoryInput
	shell     *fakeShell
}

func newTestRig() *testRig {
	res := resolver.New()
	hierarchy := strategy.NewMemoryHierarchy()
	input := strategy.NewMemoryInput()
	capture := strategy.NewMemoryCapture()
	shell := newFakeShell()

	res.RegisterStrategy(resolver.FamilyHierarchy, resolver.Strategy{Name: "memory", Impl: strategy.Hierarchy(hierarchy)})
	res.RegisterStrategy(resolver.FamilyInput, resolver.Strategy{Name: "memory", Impl: strategy.Input(input)})
	res.RegisterStrategy(resolver.FamilyScreenCapture, resolver.Strategy{Name: "memory", Impl: strategy.Capture(capture)})
	res.UpdateCapabilities(resolver.Capabilities{PrivilegedShell: true})

	r := router.New()
	deps := &Deps{
		Resolver:  res,
		Shell:     shell,
		Router:    r,
		Perf:      perf.NewEngine(func() (string, error) { return "sess-test", nil }),
		StartedAt: time.Now(),
	}
	Register(r, deps)

	return &testRig{deps: deps, router: r, hierarchy: hierarchy, input: input, shell: shell}
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return raw
}
