//go:build windows

package tactile

import (
	"os/exec"
	"syscall"
)

// setupProcessAttrs hides the console window that would otherwise flash up for
// every spawned process on Windows desktop sessions.
func setupProcessAttrs(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.HideWindow = true
}
