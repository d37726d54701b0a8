//go:build !windows

package tactile

import (
	"os/exec"
	"syscall"
)

// setupProcessAttrs configures the command to run in its own process group so
// that killing the command on timeout also kills its children.
func setupProcessAttrs(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}
