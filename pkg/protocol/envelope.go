// Package protocol implements the agent's wire schema: the textual JSON
// envelope exchanged on the control and event channels, and the binary
// frame header exchanged on the binary channel.
package protocol

import (
	"encoding/json"
	"fmt"
)

// EnvelopeType enumerates the closed set of envelope kinds.
type EnvelopeType string

const (
	TypeRequest     EnvelopeType = "request"
	TypeResponse    EnvelopeType = "response"
	TypeEvent       EnvelopeType = "event"
	TypeStreamStart EnvelopeType = "stream_start"
	TypeStreamData  EnvelopeType = "stream_data"
	TypeStreamEnd   EnvelopeType = "stream_end"
	TypeCancel      EnvelopeType = "cancel"
)

// Metadata carries advisory, optional envelope metadata.
type Metadata struct {
	TimeoutMS int    `json:"timeoutMs,omitempty"`
	Retry     int    `json:"retry,omitempty"`
	Priority  string `json:"priority,omitempty"`
	TraceID   string `json:"traceId,omitempty"`
}

// Envelope is the universal message exchanged on the control and event
// channels. Exactly one of Result/Error is set on a response; id is
// echoed verbatim from the originating request.
type Envelope struct {
	ID        string          `json:"id"`
	Type      EnvelopeType    `json:"type"`
	Method    string          `json:"method,omitempty"`
	Params    json.RawMessage `json:"params,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     *Error          `json:"error,omitempty"`
	Metadata  *Metadata       `json:"metadata,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// Encode serializes an envelope to compact JSON. id, type, and timestamp
// are always emitted; all other fields are omitted when absent.
func Encode(e *Envelope) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encoding envelope: %w", err)
	}
	return data, nil
}

// Decode parses a textual envelope. Unknown fields are tolerated for
// forward compatibility (encoding/json already ignores them by default);
// missing required fields fail with an INTERNAL protocol error.
func Decode(data []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, NewError(CodeInternalError, fmt.Sprintf("malformed envelope: %v", err), nil)
	}
	if e.ID == "" {
		return nil, NewError(CodeInternalError, "missing id", nil)
	}
	if e.Type == "" {
		return nil, NewError(CodeInternalError, "missing type", nil)
	}
	if (e.Type == TypeRequest || e.Type == TypeEvent) && e.Method == "" {
		return nil, NewError(CodeInternalError, "missing method", nil)
	}
	return &e, nil
}

// NewResponse builds a success response envelope echoing the request id
// and method.
func NewResponse(requestID, method string, result any, timestamp int64) (*Envelope, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encoding result: %w", err)
	}
	return &Envelope{
		ID:        requestID,
		Type:      TypeResponse,
		Method:    method,
		Result:    raw,
		Timestamp: timestamp,
	}, nil
}

// NewErrorResponse builds a failure response envelope carrying the given
// AgentError.
func NewErrorResponse(requestID, method string, agentErr *Error, timestamp int64) *Envelope {
	return &Envelope{
		ID:        requestID,
		Type:      TypeResponse,
		Method:    method,
		Error:     agentErr,
		Timestamp: timestamp,
	}
}

// NewEvent builds a server-pushed event envelope. Events are not request
// scoped: id is a fresh identifier minted by the emitter.
func NewEvent(id, method string, result any, timestamp int64) (*Envelope, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encoding event payload: %w", err)
	}
	return &Envelope{
		ID:        id,
		Type:      TypeEvent,
		Method:    method,
		Result:    raw,
		Timestamp: timestamp,
	}, nil
}
