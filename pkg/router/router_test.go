package router

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/codeready-toolchain/mobile-agent/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubHandler struct {
	method    string
	validate  func(json.RawMessage) error
	handle    func(Context, json.RawMessage) (any, error)
}

func (s *stubHandler) Method() string { return s.method }
func (s *stubHandler) Validate(p json.RawMessage) error {
	if s.validate == nil {
		return nil
	}
	return s.validate(p)
}
func (s *stubHandler) Handle(ctx Context, p json.RawMessage) (any, error) {
	return s.handle(ctx, p)
}

func TestDispatchUnknownMethod(t *testing.T) {
	r := New()
	resp := r.Dispatch(&protocol.Envelope{ID: "R2", Type: protocol.TypeRequest, Method: "nope.nothing"})

	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.CodeMethodNotImplemented, resp.Error.Code)
	assert.Equal(t, protocol.CategoryInternal, resp.Error.Category)
	assert.Contains(t, resp.Error.Message, "Unknown method: nope.nothing")
}

func TestDispatchMissingMethod(t *testing.T) {
	r := New()
	resp := r.Dispatch(&protocol.Envelope{ID: "R1", Type: protocol.TypeRequest})
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.CodeInternalError, resp.Error.Code)
}

func TestDispatchSuccess(t *testing.T) {
	r := New()
	r.Register(&stubHandler{
		method: "system.heartbeat",
		handle: func(ctx Context, p json.RawMessage) (any, error) {
			return map[string]any{"uptime": 1}, nil
		},
	})

	resp := r.Dispatch(&protocol.Envelope{ID: "R1", Type: protocol.TypeRequest, Method: "system.heartbeat"})
	assert.Nil(t, resp.Error)
	assert.Equal(t, "R1", resp.ID)
	assert.JSONEq(t, `{"uptime":1}`, string(resp.Result))
}

func TestDispatchValidationFailure(t *testing.T) {
	r := New()
	r.Register(&stubHandler{
		method:   "ui.click",
		validate: func(p json.RawMessage) error { return errors.New("missing selector") },
		handle:   func(ctx Context, p json.RawMessage) (any, error) { return nil, nil },
	})

	resp := r.Dispatch(&protocol.Envelope{ID: "R1", Type: protocol.TypeRequest, Method: "ui.click"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.CodeInternalError, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "missing selector")
}

func TestDispatchAgentErrorPreservesCode(t *testing.T) {
	r := New()
	r.Register(&stubHandler{
		method: "ui.click",
		handle: func(ctx Context, p json.RawMessage) (any, error) {
			return nil, protocol.NewError(protocol.CodeElementNotFound, "Element not found", nil)
		},
	})

	resp := r.Dispatch(&protocol.Envelope{ID: "R3", Type: protocol.TypeRequest, Method: "ui.click"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.CodeElementNotFound, resp.Error.Code)
	assert.True(t, resp.Error.Recoverable)
}

func TestRegisterUnregisterRestoresPriorState(t *testing.T) {
	r := New()
	before := r.Methods()

	h := &stubHandler{method: "custom.ping", handle: func(Context, json.RawMessage) (any, error) { return "pong", nil }}
	r.Register(h)
	assert.Contains(t, r.Methods(), "custom.ping")

	r.Unregister(h.Method())
	assert.ElementsMatch(t, before, r.Methods())
}

func TestSplitMethodName(t *testing.T) {
	family, action, err := SplitMethodName("ui.click")
	require.NoError(t, err)
	assert.Equal(t, "ui", family)
	assert.Equal(t, "click", action)

	_, _, err = SplitMethodName("not-dotted")
	assert.Error(t, err)
}
