package handlers

import (
	"encoding/json"
	"time"

	"github.com/codeready-toolchain/mobile-agent/pkg/protocol"
	"github.com/codeready-toolchain/mobile-agent/pkg/router"
)

func registerApp(r *router.Router, deps *Deps) {
	r.Register(&appLaunch{deps})
	r.Register(&appStop{deps})
	r.Register(&appClear{deps})
	r.Register(&appInstall{deps})
	r.Register(&appUninstall{deps})
	r.Register(&appList{deps})
	r.Register(&appInfo{deps})
	r.Register(&appPermissions{deps})
}

type packageParams struct {
	PackageName string `json:"packageName"`
}

func (p packageParams) validate() error {
	if p.PackageName == "" {
		return errMissingField("packageName")
	}
	return nil
}

type appLaunch struct{ deps *Deps }

func (h *appLaunch) Method() string { return "app.launch" }
func (h *appLaunch) Validate(params json.RawMessage) error {
	var p packageParams
	if err := decodeParams(params, &p); err != nil {
		return err
	}
	return p.validate()
}
func (h *appLaunch) Handle(_ router.Context, params json.RawMessage) (any, error) {
	var p packageParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	result, err := h.deps.Shell.Run("monkey -p "+p.PackageName+" -c android.intent.category.LAUNCHER 1", false, 10*time.Second)
	if err != nil {
		return nil, protocol.NewError(protocol.CodeAppLaunchTimeout, err.Error(), nil)
	}
	if result.ExitCode != 0 {
		return nil, protocol.NewError(protocol.CodeAppLaunchTimeout, "launch failed: "+result.Stderr, nil)
	}
	return map[string]any{"launched": true}, nil
}

type appStop struct{ deps *Deps }

func (h *appStop) Method() string { return "app.stop" }
func (h *appStop) Validate(params json.RawMessage) error {
	var p packageParams
	if err := decodeParams(params, &p); err != nil {
		return err
	}
	return p.validate()
}
func (h *appStop) Handle(_ router.Context, params json.RawMessage) (any, error) {
	var p packageParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if _, err := h.deps.Shell.Run("am force-stop "+p.PackageName, false, 5*time.Second); err != nil {
		return nil, protocol.NewError(protocol.CodeInternalError, err.Error(), nil)
	}
	return map[string]any{"stopped": true}, nil
}

type appClear struct{ deps *Deps }

func (h *appClear) Method() string { return "app.clear" }
func (h *appClear) Validate(params json.RawMessage) error {
	var p packageParams
	if err := decodeParams(params, &p); err != nil {
		return err
	}
	return p.validate()
}
func (h *appClear) Handle(_ router.Context, params json.RawMessage) (any, error) {
	var p packageParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	result, err := h.deps.Shell.Run("pm clear "+p.PackageName, false, 10*time.Second)
	if err != nil {
		return nil, protocol.NewError(protocol.CodeInternalError, err.Error(), nil)
	}
	if result.ExitCode != 0 {
		return nil, protocol.NewError(protocol.CodeAppNotInstalled, "package not installed", nil)
	}
	return map[string]any{"cleared": true}, nil
}

type installParams struct {
	FilePath string `json:"filePath"`
}

type appInstall struct{ deps *Deps }

func (h *appInstall) Method() string { return "app.install" }
func (h *appInstall) Validate(params json.RawMessage) error {
	var p installParams
	if err := decodeParams(params, &p); err != nil {
		return err
	}
	if p.FilePath == "" {
		return errMissingField("filePath")
	}
	return nil
}
func (h *appInstall) Handle(_ router.Context, params json.RawMessage) (any, error) {
	var p installParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	result, err := h.deps.Shell.Run("pm install -r "+p.FilePath, false, 60*time.Second)
	if err != nil || result.ExitCode != 0 {
		return nil, protocol.NewError(protocol.CodeAppInstallFailed, "install failed", map[string]any{"stderr": result.Stderr})
	}
	return map[string]any{"installed": true}, nil
}

type appUninstall struct{ deps *Deps }

func (h *appUninstall) Method() string { return "app.uninstall" }
func (h *appUninstall) Validate(params json.RawMessage) error {
	var p packageParams
	if err := decodeParams(params, &p); err != nil {
		return err
	}
	return p.validate()
}
func (h *appUninstall) Handle(_ router.Context, params json.RawMessage) (any, error) {
	var p packageParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	result, err := h.deps.Shell.Run("pm uninstall "+p.PackageName, false, 30*time.Second)
	if err != nil || result.ExitCode != 0 {
		return nil, protocol.NewError(protocol.CodeAppNotInstalled, "uninstall failed", nil)
	}
	return map[string]any{"uninstalled": true}, nil
}

type appList struct{ deps *Deps }

func (h *appList) Method() string                { return "app.list" }
func (h *appList) Validate(json.RawMessage) error { return nil }
func (h *appList) Handle(router.Context, json.RawMessage) (any, error) {
	result, err := h.deps.Shell.Run("pm list packages", false, 10*time.Second)
	if err != nil {
		return nil, protocol.NewError(protocol.CodeInternalError, err.Error(), nil)
	}
	return map[string]any{"raw": result.Stdout}, nil
}

type appInfo struct{ deps *Deps }

func (h *appInfo) Method() string { return "app.info" }
func (h *appInfo) Validate(params json.RawMessage) error {
	var p packageParams
	if err := decodeParams(params, &p); err != nil {
		return err
	}
	return p.validate()
}
func (h *appInfo) Handle(_ router.Context, params json.RawMessage) (any, error) {
	var p packageParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	result, err := h.deps.Shell.Run("dumpsys package "+p.PackageName, false, 10*time.Second)
	if err != nil {
		return nil, protocol.NewError(protocol.CodeInternalError, err.Error(), nil)
	}
	if result.ExitCode != 0 {
		return nil, protocol.NewError(protocol.CodeAppNotInstalled, "package not installed", nil)
	}
	return map[string]any{"raw": result.Stdout}, nil
}

type appPermissions struct{ deps *Deps }

func (h *appPermissions) Method() string { return "app.permissions" }
func (h *appPermissions) Validate(params json.RawMessage) error {
	var p packageParams
	if err := decodeParams(params, &p); err != nil {
		return err
	}
	return p.validate()
}
func (h *appPermissions) Handle(_ router.Context, params json.RawMessage) (any, error) {
	var p packageParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if !h.deps.Resolver.Capabilities().PrivilegedShell {
		return nil, protocol.NewError(protocol.CodePrivilegeRequired, "permission listing requires privileged shell", nil)
	}
	result, err := h.deps.Shell.Run("dumpsys package "+p.PackageName+" | grep permission", true, 10*time.Second)
	if err != nil {
		return nil, protocol.NewError(protocol.CodeInternalError, err.Error(), nil)
	}
	return map[string]any{"raw": result.Stdout}, nil
}
