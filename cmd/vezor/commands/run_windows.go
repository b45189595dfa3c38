//go:build windows

package commands

import (
	"os"
	"os/exec"
)

func setProcessGroup(cmd *exec.Cmd) {}

func forwardSignal(cmd *exec.Cmd, sig os.Signal) {
	cmd.Process.Kill()
}
