package strategy

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"
)

// ShellExecutor runs commands via os/exec, the lowest-privilege backend
// every other shell-driven strategy composes with. "Privileged" commands
// are expected to be prefixed by the host's elevation mechanism (su, adb
// shell, etc.) by the caller-supplied prefix.
type ShellExecutor struct {
	PrivilegedPrefix string // e.g. "su -c"; empty means run as-is
}

// NewShellExecutor creates a ShellExecutor with no privilege escalation
// prefix configured.
func NewShellExecutor() *ShellExecutor {
	return &ShellExecutor{}
}

// Run executes command through /bin/sh -c, honoring the timeout and
// optionally prefixing with the configured privileged invocation.
func (e *ShellExecutor) Run(command string, privileged bool, timeout time.Duration) (ShellResult, error) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	full := command
	if privileged && e.PrivilegedPrefix != "" {
		full = fmt.Sprintf("%s %q", e.PrivilegedPrefix, command)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", full)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return ShellResult{}, err
		}
	}

	return ShellResult{
		ExitCode: exitCode,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}, nil
}
