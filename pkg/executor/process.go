package executor

import (
	"errors"
	"os/exec"
	"time"
)

// killWaitDelay bounds how long Wait keeps pipes open after the process group
// has been killed.
const killWaitDelay = 3 * time.Second

// ExitStatus extracts the exit code from the error returned by (*exec.Cmd).Wait.
// ok is false when err does not describe a process exit; a process killed by a
// signal reports -1.
func ExitStatus(err error) (code int, ok bool) {
	if err == nil {
		return 0, true
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return -1, false
	}
	return exitErr.ExitCode(), true
}

// Supervise places cmd in its own process group and arranges for context
// cancellation to kill the whole group rather than just the direct child.
// It must be called before cmd.Start.
func Supervise(cmd *exec.Cmd) {
	setProcessGroup(cmd)
	cmd.Cancel = func() error {
		return KillProcessGroup(cmd)
	}
	cmd.WaitDelay = killWaitDelay
}
