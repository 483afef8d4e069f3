package handlers

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/codeready-toolchain/mobile-agent/pkg/protocol"
	"github.com/codeready-toolchain/mobile-agent/pkg/router"
)

func registerDevice(r *router.Router, deps *Deps) {
	r.Register(&deviceInfo{deps})
	r.Register(&deviceScreenshot{deps})
	r.Register(&deviceShell{deps})
	r.Register(&deviceInputKey{deps})
	r.Register(&deviceWake{deps})
	r.Register(&deviceReboot{deps})
	r.Register(&deviceRotation{deps})
	r.Register(&deviceClipboard{deps})
}

type deviceInfo struct{ deps *Deps }

func (h *deviceInfo) Method() string                { return "device.info" }
func (h *deviceInfo) Validate(json.RawMessage) error { return nil }
func (h *deviceInfo) Handle(router.Context, json.RawMessage) (any, error) {
	if h.deps.DeviceInfo == nil {
		return DeviceInfo{}, nil
	}
	return h.deps.DeviceInfo(), nil
}

type screenshotParams struct {
	Quality int `json:"quality,omitempty"`
	Scale   int `json:"scale,omitempty"`
}

type deviceScreenshot struct{ deps *Deps }

func (h *deviceScreenshot) Method() string                { return "device.screenshot" }
func (h *deviceScreenshot) Validate(json.RawMessage) error { return nil }
func (h *deviceScreenshot) Handle(_ router.Context, params json.RawMessage) (any, error) {
	var p screenshotParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.Quality == 0 {
		p.Quality = 100
	}
	if p.Scale == 0 {
		p.Scale = 100
	}
	capture, cerr := resolveCapture(h.deps.Resolver)
	if cerr != nil {
		return nil, cerr
	}
	png, err := capture.Screenshot(p.Quality, p.Scale)
	if err != nil {
		return nil, protocol.NewError(protocol.CodeInternalError, err.Error(), nil)
	}
	return map[string]any{
		"format": "png",
		"data":   base64.StdEncoding.EncodeToString(png),
	}, nil
}

type shellParams struct {
	Command    string `json:"command"`
	Privileged bool   `json:"privileged,omitempty"`
	TimeoutMS  int    `json:"timeoutMs,omitempty"`
}

type deviceShell struct{ deps *Deps }

func (h *deviceShell) Method() string { return "device.shell" }
func (h *deviceShell) Validate(params json.RawMessage) error {
	var p shellParams
	if err := decodeParams(params, &p); err != nil {
		return err
	}
	if p.Command == "" {
		return errMissingField("command")
	}
	return nil
}
func (h *deviceShell) Handle(_ router.Context, params json.RawMessage) (any, error) {
	var p shellParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.Privileged && !h.deps.Resolver.Capabilities().PrivilegedShell {
		return nil, protocol.NewError(protocol.CodePrivilegeRequired, "privileged shell unavailable", nil)
	}
	timeout := time.Duration(p.TimeoutMS) * time.Millisecond
	result, err := h.deps.Shell.Run(p.Command, p.Privileged, timeout)
	if err != nil {
		return nil, protocol.NewError(protocol.CodeInternalError, err.Error(), nil)
	}
	return map[string]any{
		"exitCode": result.ExitCode,
		"stdout":   result.Stdout,
		"stderr":   result.Stderr,
	}, nil
}

type keyParams struct {
	KeyCode int `json:"keyCode"`
}

type deviceInputKey struct{ deps *Deps }

func (h *deviceInputKey) Method() string { return "device.inputKey" }
func (h *deviceInputKey) Validate(params json.RawMessage) error {
	var p keyParams
	return decodeParams(params, &p)
}
func (h *deviceInputKey) Handle(_ router.Context, params json.RawMessage) (any, error) {
	var p keyParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	input, ierr := resolveInput(h.deps.Resolver)
	if ierr != nil {
		return nil, ierr
	}
	if err := input.Key(p.KeyCode); err != nil {
		return nil, protocol.NewError(protocol.CodeGestureFailed, err.Error(), nil)
	}
	return map[string]any{"success": true}, nil
}

type deviceWake struct{ deps *Deps }

func (h *deviceWake) Method() string                { return "device.wake" }
func (h *deviceWake) Validate(json.RawMessage) error { return nil }
func (h *deviceWake) Handle(_ router.Context, _ json.RawMessage) (any, error) {
	result, err := h.deps.Shell.Run("input keyevent KEYCODE_WAKEUP", false, 5*time.Second)
	if err != nil {
		return nil, protocol.NewError(protocol.CodeDeviceOffline, err.Error(), nil)
	}
	return map[string]any{"success": result.ExitCode == 0}, nil
}

type deviceReboot struct{ deps *Deps }

func (h *deviceReboot) Method() string                { return "device.reboot" }
func (h *deviceReboot) Validate(json.RawMessage) error { return nil }
func (h *deviceReboot) Handle(_ router.Context, _ json.RawMessage) (any, error) {
	if !h.deps.Resolver.Capabilities().PrivilegedShell {
		return nil, protocol.NewError(protocol.CodePrivilegeRequired, "reboot requires privileged shell", nil)
	}
	_, err := h.deps.Shell.Run("reboot", true, 5*time.Second)
	if err != nil {
		return nil, protocol.NewError(protocol.CodeInternalError, err.Error(), nil)
	}
	return map[string]any{"rebooting": true}, nil
}

type rotationParams struct {
	// Rotation is omitted to read the current rotation; 0..3 to set it
	// (device.rotation | get/set rotation | rotation? (0..3) | rotation).
	Rotation *int `json:"rotation,omitempty"`
}

type deviceRotation struct{ deps *Deps }

func (h *deviceRotation) Method() string { return "device.rotation" }
func (h *deviceRotation) Validate(params json.RawMessage) error {
	var p rotationParams
	if err := decodeParams(params, &p); err != nil {
		return err
	}
	if p.Rotation != nil && (*p.Rotation < 0 || *p.Rotation > 3) {
		return fmt.Errorf("rotation must be 0..3")
	}
	return nil
}

// Handle reads the current rotation when Rotation is omitted, or sets it
// (requiring privileged shell) otherwise.
func (h *deviceRotation) Handle(_ router.Context, params json.RawMessage) (any, error) {
	var p rotationParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	if p.Rotation == nil {
		result, err := h.deps.Shell.Run("settings get system user_rotation", false, 3*time.Second)
		if err != nil {
			return nil, protocol.NewError(protocol.CodeDeviceOffline, err.Error(), nil)
		}
		current, perr := strconv.Atoi(strings.TrimSpace(result.Stdout))
		if perr != nil {
			return nil, protocol.NewError(protocol.CodeInternalError, "unable to parse current rotation", nil)
		}
		return map[string]any{"rotation": current}, nil
	}

	if !h.deps.Resolver.Capabilities().PrivilegedShell {
		return nil, protocol.NewError(protocol.CodePrivilegeRequired, "rotation requires privileged shell", nil)
	}
	_, err := h.deps.Shell.Run("settings put system user_rotation "+itoa(*p.Rotation), true, 3*time.Second)
	if err != nil {
		return nil, protocol.NewError(protocol.CodeInternalError, err.Error(), nil)
	}
	return map[string]any{"rotation": *p.Rotation}, nil
}

type clipboardParams struct {
	Text string `json:"text,omitempty"`
}

type deviceClipboard struct{ deps *Deps }

func (h *deviceClipboard) Method() string { return "device.clipboard" }
func (h *deviceClipboard) Validate(params json.RawMessage) error {
	var p clipboardParams
	return decodeParams(params, &p)
}
func (h *deviceClipboard) Handle(_ router.Context, params json.RawMessage) (any, error) {
	var p clipboardParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.Text == "" {
		result, err := h.deps.Shell.Run("cmd clipboard get", false, 3*time.Second)
		if err != nil {
			return nil, protocol.NewError(protocol.CodeInternalError, err.Error(), nil)
		}
		return map[string]any{"text": result.Stdout}, nil
	}
	input, ierr := resolveInput(h.deps.Resolver)
	if ierr != nil {
		return nil, ierr
	}
	if err := input.Type(p.Text); err != nil {
		return nil, protocol.NewError(protocol.CodeInternalError, err.Error(), nil)
	}
	return map[string]any{"set": true}, nil
}
