package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeOmitsAbsentOptionalFields(t *testing.T) {
	e := &Envelope{ID: "R1", Type: TypeRequest, Method: "system.heartbeat", Timestamp: 1000}

	data, err := Encode(e)
	require.NoError(t, err)

	var asMap map[string]any
	require.NoError(t, json.Unmarshal(data, &asMap))
	assert.Contains(t, asMap, "id")
	assert.Contains(t, asMap, "type")
	assert.Contains(t, asMap, "timestamp")
	assert.NotContains(t, asMap, "result")
	assert.NotContains(t, asMap, "error")
	assert.NotContains(t, asMap, "metadata")
}

func TestDecodeRoundTrip(t *testing.T) {
	original := &Envelope{ID: "R1", Type: TypeRequest, Method: "ui.click", Timestamp: 42}
	data, err := Encode(original)
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, original.ID, decoded.ID)
	assert.Equal(t, original.Type, decoded.Type)
	assert.Equal(t, original.Method, decoded.Method)
}

func TestDecodeToleratesUnknownFields(t *testing.T) {
	raw := []byte(`{"id":"R1","type":"request","method":"system.heartbeat","timestamp":1,"unknownField":"x"}`)
	_, err := Decode(raw)
	assert.NoError(t, err)
}

func TestDecodeFailsOnMissingID(t *testing.T) {
	raw := []byte(`{"type":"request","method":"system.heartbeat","timestamp":1}`)
	_, err := Decode(raw)
	assert.Error(t, err)
}

func TestDecodeFailsOnMissingMethodForRequest(t *testing.T) {
	raw := []byte(`{"id":"R1","type":"request","timestamp":1}`)
	_, err := Decode(raw)
	assert.Error(t, err)
}

func TestUnknownMethodErrorResponseShape(t *testing.T) {
	agentErr := NewError(CodeMethodNotImplemented, "Unknown method: nope.nothing", nil)
	resp := NewErrorResponse("R2", "nope.nothing", agentErr, 1)

	assert.Equal(t, 9002, resp.Error.Code)
	assert.Equal(t, CategoryInternal, resp.Error.Category)
	assert.Contains(t, resp.Error.Message, "Unknown method: nope.nothing")
}
