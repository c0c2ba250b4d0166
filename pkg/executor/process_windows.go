//go:build windows

package executor

import "os/exec"

func setProcessGroup(*exec.Cmd) {}

// KillProcessGroup kills the direct child; Windows has no process-group signal.
func KillProcessGroup(cmd *exec.Cmd) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}
