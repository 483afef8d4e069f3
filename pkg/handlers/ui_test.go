package handlers

import (
	"encoding/base64"
	"testing"

	"github.com/codeready-toolchain/mobile-agent/pkg/protocol"
	"github.com/codeready-toolchain/mobile-agent/pkg/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUIClickOnMissingElementReturnsSuccessShapedFailure(t *testing.T) {
	rig := newTestRig()
	rig.hierarchy.SetTree(nil)

	req := &protocol.Envelope{ID: "r1", Type: protocol.TypeRequest, Method: "ui.click",
		Params: mustJSON(t, map[string]any{"selector": map[string]any{"resourceId": "com.app:id/missing"}})}
	resp := rig.router.Dispatch(req)

	require.Nil(t, resp.Error)
	var result struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	require.NoError(t, decodeResult(resp, &result))
	assert.False(t, result.Success)
	assert.Equal(t, "Element not found", result.Error)
}

func TestUIClickWithCoordinatesTapsDirectly(t *testing.T) {
	rig := newTestRig()

	req := &protocol.Envelope{ID: "r1", Type: protocol.TypeRequest, Method: "ui.click",
		Params: mustJSON(t, map[string]any{"x": 42, "y": 84})}
	resp := rig.router.Dispatch(req)

	require.Nil(t, resp.Error)
	require.Len(t, rig.input.Taps, 1)
	assert.Equal(t, 42, rig.input.Taps[0].X)
	assert.Equal(t, 84, rig.input.Taps[0].Y)
}

func TestUIClickTapsElementCenter(t *testing.T) {
	rig := newTestRig()
	rig.hierarchy.SetTree([]strategy.Element{
		{ResourceID: "com.app:id/button", Clickable: true, Bounds: strategy.Rect{Left: 0, Top: 0, Right: 100, Bottom: 50}},
	})

	req := &protocol.Envelope{ID: "r1", Type: protocol.TypeRequest, Method: "ui.click",
		Params: mustJSON(t, map[string]any{"selector": map[string]any{"resourceId": "com.app:id/button"}})}
	resp := rig.router.Dispatch(req)

	require.Nil(t, resp.Error)
	require.Len(t, rig.input.Taps, 1)
	assert.Equal(t, 50, rig.input.Taps[0].X)
	assert.Equal(t, 25, rig.input.Taps[0].Y)
}

func TestUIWaitForZeroTimeoutChecksOnceAndReportsTimedOut(t *testing.T) {
	rig := newTestRig()
	rig.hierarchy.SetTree(nil)

	req := &protocol.Envelope{ID: "r1", Type: protocol.TypeRequest, Method: "ui.waitFor",
		Params: mustJSON(t, map[string]any{
			"selector":  map[string]any{"resourceId": "com.app:id/late"},
			"timeoutMs": 0,
		})}
	resp := rig.router.Dispatch(req)

	require.Nil(t, resp.Error)
	var result struct {
		Found    bool `json:"found"`
		TimedOut bool `json:"timedOut"`
	}
	require.NoError(t, decodeResult(resp, &result))
	assert.False(t, result.Found)
	assert.True(t, result.TimedOut)
}

func TestUIWaitForGoneConditionSatisfiedWhenAbsent(t *testing.T) {
	rig := newTestRig()
	rig.hierarchy.SetTree(nil)

	req := &protocol.Envelope{ID: "r1", Type: protocol.TypeRequest, Method: "ui.waitFor",
		Params: mustJSON(t, map[string]any{
			"selector":  map[string]any{"resourceId": "com.app:id/gone-already"},
			"condition": "gone",
			"timeoutMs": 0,
		})}
	resp := rig.router.Dispatch(req)

	require.Nil(t, resp.Error)
	var result struct {
		Found    bool `json:"found"`
		TimedOut bool `json:"timedOut"`
	}
	require.NoError(t, decodeResult(resp, &result))
	assert.True(t, result.Found)
	assert.False(t, result.TimedOut)
}

func TestUIWaitForFindsElementWithinTimeout(t *testing.T) {
	rig := newTestRig()
	rig.hierarchy.SetTree([]strategy.Element{{ResourceID: "com.app:id/ready"}})

	req := &protocol.Envelope{ID: "r1", Type: protocol.TypeRequest, Method: "ui.waitFor",
		Params: mustJSON(t, map[string]any{
			"selector":  map[string]any{"resourceId": "com.app:id/ready"},
			"timeoutMs": 500,
		})}
	resp := rig.router.Dispatch(req)

	require.Nil(t, resp.Error)
}

func TestDeviceScreenshotReturnsPNGMagicBytes(t *testing.T) {
	rig := newTestRig()
	req := &protocol.Envelope{ID: "r1", Type: protocol.TypeRequest, Method: "device.screenshot"}
	resp := rig.router.Dispatch(req)

	require.Nil(t, resp.Error)
	var result struct {
		Format string `json:"format"`
		Data   string `json:"data"`
	}
	require.NoError(t, decodeResult(resp, &result))
	assert.Equal(t, "png", result.Format)
	assert.NotEmpty(t, result.Data)
	png, err := base64.StdEncoding.DecodeString(result.Data)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(png), 8)
	assert.Equal(t, []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, png[:8])
}

func decodeResult(resp *protocol.Envelope, dst any) error {
	return decodeParams(resp.Result, dst)
}
