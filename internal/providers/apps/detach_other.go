//go:build !unix

package apps

import "os/exec"

func detach(cmd *exec.Cmd) {}
