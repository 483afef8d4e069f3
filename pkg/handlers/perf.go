package handlers

import (
	"encoding/json"

	"github.com/codeready-toolchain/mobile-agent/pkg/perf"
	"github.com/codeready-toolchain/mobile-agent/pkg/protocol"
	"github.com/codeready-toolchain/mobile-agent/pkg/router"
)

func registerPerf(r *router.Router, deps *Deps) {
	r.Register(&perfStart{deps})
	r.Register(&perfStop{deps})
	r.Register(&perfSnapshot{deps})
	r.Register(&perfStream{deps})
}

func toMetrics(names []string) []perf.Metric {
	out := make([]perf.Metric, len(names))
	for i, n := range names {
		out[i] = perf.Metric(n)
	}
	return out
}

type perfStartParams struct {
	PackageName string   `json:"packageName,omitempty"`
	Metrics     []string `json:"metrics"`
	IntervalMS  int      `json:"intervalMs,omitempty"`
}

type perfStart struct{ deps *Deps }

func (h *perfStart) Method() string { return "perf.start" }
func (h *perfStart) Validate(params json.RawMessage) error {
	var p perfStartParams
	if err := decodeParams(params, &p); err != nil {
		return err
	}
	if len(p.Metrics) == 0 {
		return errMissingField("metrics")
	}
	return nil
}
func (h *perfStart) Handle(_ router.Context, params json.RawMessage) (any, error) {
	var p perfStartParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	id, err := h.deps.Perf.Start(perf.StartParams{
		PackageName: p.PackageName,
		Metrics:     toMetrics(p.Metrics),
		IntervalMS:  p.IntervalMS,
	})
	if err != nil {
		return nil, protocol.NewError(protocol.CodeInternalError, err.Error(), nil)
	}
	return map[string]any{"sessionId": id}, nil
}

type sessionIDParams struct {
	SessionID string `json:"sessionId"`
}

type perfStop struct{ deps *Deps }

func (h *perfStop) Method() string { return "perf.stop" }
func (h *perfStop) Validate(params json.RawMessage) error {
	var p sessionIDParams
	if err := decodeParams(params, &p); err != nil {
		return err
	}
	if p.SessionID == "" {
		return errMissingField("sessionId")
	}
	return nil
}
func (h *perfStop) Handle(_ router.Context, params json.RawMessage) (any, error) {
	var p sessionIDParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	result, err := h.deps.Perf.Stop(p.SessionID)
	if err != nil {
		return nil, protocol.NewError(protocol.CodePerfSessionNotFound, err.Error(), nil)
	}
	return result, nil
}

type perfSnapshot struct{ deps *Deps }

func (h *perfSnapshot) Method() string { return "perf.snapshot" }
func (h *perfSnapshot) Validate(params json.RawMessage) error {
	var p perfStartParams
	if err := decodeParams(params, &p); err != nil {
		return err
	}
	if len(p.Metrics) == 0 {
		return errMissingField("metrics")
	}
	return nil
}
func (h *perfSnapshot) Handle(_ router.Context, params json.RawMessage) (any, error) {
	var p perfStartParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	sample, err := h.deps.Perf.Snapshot(perf.StartParams{
		PackageName: p.PackageName,
		Metrics:     toMetrics(p.Metrics),
	})
	if err != nil {
		return nil, protocol.NewError(protocol.CodeInternalError, err.Error(), nil)
	}
	return sample, nil
}

// perfStream implements perf.stream: it does not itself push samples
// (that is the transport event channel's job, fed by perf.Engine.
// Subscribe), it only echoes the session id back with streaming:true. It
// does not check that the id names a running perf session.
type perfStream struct{ deps *Deps }

func (h *perfStream) Method() string { return "perf.stream" }
func (h *perfStream) Validate(params json.RawMessage) error {
	var p sessionIDParams
	if err := decodeParams(params, &p); err != nil {
		return err
	}
	if p.SessionID == "" {
		return errMissingField("sessionId")
	}
	return nil
}
func (h *perfStream) Handle(_ router.Context, params json.RawMessage) (any, error) {
	var p sessionIDParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	return map[string]any{"sessionId": p.SessionID, "streaming": true}, nil
}
