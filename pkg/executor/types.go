package executor

import (
	"time"
)

// RunStatus is the lifecycle state of one supervised run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
	RunStatusError     RunStatus = "error"
)

// Terminal reports whether no further transitions are expected.
func (s RunStatus) Terminal() bool {
	return s == RunStatusSucceeded || s == RunStatusFailed || s == RunStatusError
}

// Progress event types published while a run is in flight.
const (
	EventTypeProgress = "progress"
	EventTypeMessage  = "message"
	EventTypeTool     = "tool"
	EventTypeError    = "error"
	EventTypeDone     = "done"

	// EventTypeResult is the last event of every run and carries its outcome.
	EventTypeResult = "result"
)

// Event represents one streamed progress event of a run.
type Event struct {
	RunID     string    `json:"run_id,omitempty"`
	Seq       uint64    `json:"seq,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
	Type      string    `json:"type"`
	Content   any       `json:"content"`
}

// UnifiedContent is the normalized progress payload shared by all event types.
type UnifiedContent struct {
	Source     string `json:"source"`
	SourceType string `json:"source_type"`
	Category   string `json:"category"`
	Action     string `json:"action,omitempty"`
	Phase      string `json:"phase,omitempty"`
	Summary    string `json:"summary,omitempty"`
	Text       string `json:"text,omitempty"`
	ToolName   string `json:"tool_name,omitempty"`
	Status     string `json:"status,omitempty"`
	Raw        any    `json:"raw,omitempty"`
}
