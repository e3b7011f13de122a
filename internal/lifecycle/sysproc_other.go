//go:build !linux

package lifecycle

import (
	"os"
	"os/exec"
	"syscall"
)

// configureSysProcAttr is a no-op outside Linux; Pdeathsig is Linux-only.
func configureSysProcAttr(_ *exec.Cmd) {}

// signalTree signals p only. Processes it forked are not reached.
func signalTree(p *os.Process, sig syscall.Signal) error {
	return p.Signal(sig)
}
