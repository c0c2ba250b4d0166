package droid

import "time"

// Result is the folded outcome of one droid run. Empty strings mean absent.
type Result struct {
	Success   bool   `json:"success"`
	SessionID string `json:"session_id,omitempty"`

	AgentMessages          string `json:"agent_messages"`
	AgentMessagesTruncated bool   `json:"agent_messages_truncated"`

	AllMessages          []map[string]any `json:"all_messages"`
	AllMessagesTruncated bool             `json:"all_messages_truncated"`

	Error     string `json:"error,omitempty"`
	Warnings  string `json:"warnings,omitempty"`
	ModelInfo string `json:"model_info,omitempty"`

	TimedOut bool          `json:"timed_out,omitempty"`
	ExitCode int           `json:"exit_code"`
	Duration time.Duration `json:"duration"`
}

// timeoutResult is returned when the run deadline fires first.
func timeoutResult(timeout time.Duration, warnings, modelInfo string) *Result {
	secs := int64(timeout / time.Second)
	return &Result{
		Success:     false,
		AllMessages: []map[string]any{},
		Error:       formatTimeoutError(secs),
		Warnings:    joinWarnings(warnings, formatTimeoutWarning(secs)),
		ModelInfo:   modelInfo,
		TimedOut:    true,
		ExitCode:    -1,
		Duration:    timeout,
	}
}
