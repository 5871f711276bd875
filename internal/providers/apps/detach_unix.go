//go:build unix

package apps

import (
	"os/exec"
	"syscall"
)

// detach puts the child in its own session so it survives the host's
// process group being signalled.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
