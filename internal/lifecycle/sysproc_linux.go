//go:build linux

package lifecycle

import (
	"os"
	"os/exec"
	"syscall"
)

// configureSysProcAttr puts the child in its own process group so that
// helpers it forks, such as a development reloader, are signalled with it.
// The child also receives SIGTERM when its parent dies, so a crashed bridge
// does not leave the converter holding the port.
func configureSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGTERM,
	}
}

// signalTree sends sig to the process group led by p, falling back to p
// alone if the group is already gone.
func signalTree(p *os.Process, sig syscall.Signal) error {
	if err := syscall.Kill(-p.Pid, sig); err == nil {
		return nil
	}
	return p.Signal(sig)
}
