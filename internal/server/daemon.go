package server

import (
	"os"
	"os/exec"
	"syscall"

	"github.com/dreamware/xfrase/internal/xerrors"
)

// daemonChildEnv marks a re-exec'd child as already detached, so it
// doesn't fork again (spec.md §4.9 "optional daemon mode").
const daemonChildEnv = "XFRASE_DAEMON_CHILD=1"

// Daemonize detaches the process from its controlling terminal: stdio
// is redirected to /dev/null, the working directory becomes "/", and
// the process runs in its own session (spec.md §4.9). Go cannot safely
// fork() a running multi-threaded runtime, so this re-execs the same
// binary with the same arguments in a new session and exits the parent,
// the same two-step detach every daemonizing Unix tool performs, just
// without an intermediate fork.
//
// Returns true in the parent (caller should exit immediately) and false
// in the (re-exec'd) child, which should continue starting the server.
func Daemonize() (isParent bool, err error) {
	for _, e := range os.Environ() {
		if e == daemonChildEnv {
			if chErr := os.Chdir("/"); chErr != nil {
				return false, xerrors.New("server.Daemonize", xerrors.IOError, chErr)
			}
			return false, nil
		}
	}

	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return false, xerrors.New("server.Daemonize", xerrors.IOError, err)
	}
	defer devNull.Close()

	cmd := exec.Command(os.Args[0], os.Args[1:]...)
	cmd.Env = append(os.Environ(), daemonChildEnv)
	cmd.Stdin = devNull
	cmd.Stdout = devNull
	cmd.Stderr = devNull
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return false, xerrors.New("server.Daemonize", xerrors.InternalError, err)
	}
	return true, nil
}
