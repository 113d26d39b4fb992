//go:build unix

package core

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"syscall"

	"rmate/internal/protocol"
	"rmate/util"
)

// childFD is the descriptor number of the first entry in ExtraFiles.
const childFD = 3

// detachProcess re-executes rmate in a new session with the editor
// socket as descriptor 3, then releases the parent's handle.
func detachProcess(conn *protocol.Conn, logger *util.Logger) error {
	fc, ok := conn.Socket().(interface{ File() (*os.File, error) })
	if !ok {
		return errNoDetach
	}
	f, err := fc.File()
	if err != nil {
		return fmt.Errorf("%w: %v", errNoDetach, err)
	}
	defer f.Close()

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("%w: %v", errNoDetach, err)
	}

	cmd := exec.Command(exe, os.Args[1:]...)
	cmd.Env = append(os.Environ(), DetachedEnv+"="+strconv.Itoa(childFD))
	cmd.ExtraFiles = []*os.File{f}
	cmd.Stderr = os.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: %v", errNoDetach, err)
	}
	logger.Debug("detached as pid %d", cmd.Process.Pid)
	cmd.Process.Release() //nolint:errcheck

	return conn.Release()
}
