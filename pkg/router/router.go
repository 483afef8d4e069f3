// Package router implements the Command Router (spec §4.4): a dynamic
// mapping from dotted method name to handler, dispatching request
// envelopes to response envelopes.
package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/codeready-toolchain/mobile-agent/pkg/protocol"
)

// methodNameRegex enforces the dotted family.action naming convention
// used throughout the method catalogue (device.info, ui.click, ...).
var methodNameRegex = regexp.MustCompile(`^([\w][\w-]*)\.([\w][\w-]*)$`)

// SplitMethodName splits "family.action" into its two parts.
func SplitMethodName(name string) (family, action string, err error) {
	m := methodNameRegex.FindStringSubmatch(name)
	if m == nil {
		return "", "", fmt.Errorf("invalid method name %q: must be 'family.action'", name)
	}
	return m[1], m[2], nil
}

// Context carries per-dispatch request metadata to a handler.
type Context struct {
	RequestID string
	Metadata  *protocol.Metadata
}

// Handler is the operation contract from spec §4.4: handlers are pure
// with respect to the envelope — they do not read or write transport
// frames directly.
type Handler interface {
	Method() string
	Validate(params json.RawMessage) error
	Handle(ctx Context, params json.RawMessage) (result any, err error)
}

// Router maintains method-name -> handler with last-writer-wins
// re-registration, guarded for concurrent register/unregister/dispatch.
type Router struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// New creates an empty router.
func New() *Router {
	return &Router{handlers: make(map[string]Handler)}
}

// Register binds a handler to its method name, replacing any prior
// handler for that name.
func (r *Router) Register(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[h.Method()] = h
}

// Unregister removes the handler bound to method, if any.
func (r *Router) Unregister(method string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, method)
}

// Methods returns every currently registered method name.
func (r *Router) Methods() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for m := range r.handlers {
		out = append(out, m)
	}
	return out
}

// Dispatch implements the algorithm in spec §4.4 steps 1-7, always
// producing a response envelope (never an error return from Dispatch
// itself — failures are encoded into the response).
func (r *Router) Dispatch(req *protocol.Envelope) *protocol.Envelope {
	now := time.Now().UnixMilli()

	if req.Method == "" {
		return protocol.NewErrorResponse(req.ID, "", protocol.NewError(
			protocol.CodeInternalError, "missing method", nil), now)
	}

	r.mu.RLock()
	handler, ok := r.handlers[req.Method]
	r.mu.RUnlock()
	if !ok {
		return protocol.NewErrorResponse(req.ID, req.Method, protocol.NewError(
			protocol.CodeMethodNotImplemented, fmt.Sprintf("Unknown method: %s", req.Method), nil), now)
	}

	if err := handler.Validate(req.Params); err != nil {
		return protocol.NewErrorResponse(req.ID, req.Method, protocol.NewError(
			protocol.CodeInternalError, err.Error(), nil), now)
	}

	result, err := handler.Handle(Context{RequestID: req.ID, Metadata: req.Metadata}, req.Params)
	if err != nil {
		var agentErr *protocol.Error
		if errors.As(err, &agentErr) {
			return protocol.NewErrorResponse(req.ID, req.Method, agentErr, now)
		}
		return protocol.NewErrorResponse(req.ID, req.Method, protocol.NewError(
			protocol.CodeInternalUnknown, err.Error(), nil), now)
	}

	resp, encErr := protocol.NewResponse(req.ID, req.Method, result, now)
	if encErr != nil {
		return protocol.NewErrorResponse(req.ID, req.Method, protocol.NewError(
			protocol.CodeInternalUnknown, encErr.Error(), nil), now)
	}
	return resp
}
