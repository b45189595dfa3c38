//go:build unix

package commands

import (
	"os"
	"os/exec"
	"syscall"

	"github.com/mattn/go-isatty"
)

// setProcessGroup puts the child in its own process group. When stdin
// is a terminal, the child also takes terminal control so interactive
// programs keep working.
func setProcessGroup(cmd *exec.Cmd) {
	attr := &syscall.SysProcAttr{Setpgid: true}
	if isatty.IsTerminal(os.Stdin.Fd()) {
		attr.Ctty = int(os.Stdin.Fd())
		attr.Foreground = true
	}
	cmd.SysProcAttr = attr
}

func forwardSignal(cmd *exec.Cmd, sig os.Signal) {
	s, ok := sig.(syscall.Signal)
	if !ok {
		cmd.Process.Kill()
		return
	}
	syscall.Kill(cmd.Process.Pid, s)
}
