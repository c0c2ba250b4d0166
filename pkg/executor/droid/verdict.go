package droid

import (
	"fmt"
	"strings"
)

// resolveVerdict applies the process outcome to a drained result. Earlier
// failures are never overwritten and a zero exit never clears an in-stream
// error.
func resolveVerdict(res *Result, exitCode int, stderr string) {
	res.ExitCode = exitCode

	if exitCode != 0 {
		res.Success = false
		if res.Error == "" {
			msg := fmt.Sprintf("droid exited with code %d", exitCode)
			if stderr != "" {
				msg += ". stderr: " + stderr
			}
			res.Error = msg
		}
	}

	if res.SessionID == "" {
		res.Success = false
		if res.Error == "" {
			res.Error = "No session_id received from droid"
		}
	}

	if res.Success && res.AgentMessages == "" {
		res.Success = false
		res.Error = "No agent messages received from droid"
	}
}

func joinWarnings(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n")
}

func formatTimeoutError(secs int64) string {
	return fmt.Sprintf("Timeout after %d seconds", secs)
}

func formatTimeoutWarning(secs int64) string {
	return fmt.Sprintf("Droid execution timed out after %d seconds", secs)
}
