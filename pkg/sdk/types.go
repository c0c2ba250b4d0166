package sdk

import (
	"github.com/supremeagent/droidexec/pkg/executor"
	"github.com/supremeagent/droidexec/pkg/executor/droid"
)

// ToolArgs is the caller-facing input of a droid run, shared by the MCP tool,
// the HTTP API and the CLI. Empty strings mean "not set".
type ToolArgs struct {
	Prompt                string `json:"PROMPT,omitempty"`
	File                  string `json:"file,omitempty"`
	Auto                  string `json:"auto,omitempty"`
	SessionID             string `json:"SESSION_ID,omitempty"`
	Cwd                   string `json:"cwd,omitempty"`
	Model                 string `json:"model,omitempty"`
	EnabledTools          string `json:"enabled_tools,omitempty"`
	DisabledTools         string `json:"disabled_tools,omitempty"`
	TimeoutSecs           int    `json:"timeout_secs,omitempty"`
	ReasoningEffort       string `json:"reasoning_effort,omitempty"`
	UseSpec               bool   `json:"use_spec,omitempty"`
	SpecModel             string `json:"spec_model,omitempty"`
	SkipPermissionsUnsafe bool   `json:"skip_permissions_unsafe,omitempty"`
	OutputFormat          string `json:"output_format,omitempty"`
}

// Output is the result contract returned to tool callers.
type Output struct {
	Success   bool   `json:"success" yaml:"success"`
	SessionID string `json:"SESSION_ID" yaml:"SESSION_ID"`
	Message   string `json:"message" yaml:"message"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
	Warnings  string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	ModelInfo string `json:"model_info,omitempty" yaml:"model_info,omitempty"`

	MessageTruncated bool `json:"message_truncated,omitempty" yaml:"message_truncated,omitempty"`
	EventsTruncated  bool `json:"events_truncated,omitempty" yaml:"events_truncated,omitempty"`
	TimedOut         bool `json:"timed_out,omitempty" yaml:"timed_out,omitempty"`
}

// NewOutput projects a run result onto the caller-facing contract.
func NewOutput(res *droid.Result) Output {
	if res == nil {
		return Output{}
	}
	return Output{
		Success:          res.Success,
		SessionID:        res.SessionID,
		Message:          res.AgentMessages,
		Error:            res.Error,
		Warnings:         res.Warnings,
		ModelInfo:        res.ModelInfo,
		MessageTruncated: res.AgentMessagesTruncated,
		EventsTruncated:  res.AllMessagesTruncated,
		TimedOut:         res.TimedOut,
	}
}

// RunResponse is returned after an asynchronous run is submitted.
type RunResponse struct {
	RunID  string             `json:"run_id"`
	Status executor.RunStatus `json:"status"`
}

// SubscribeOptions configures event subscription behavior.
type SubscribeOptions struct {
	// AfterSeq skips history up to and including this sequence number.
	AfterSeq uint64
}
