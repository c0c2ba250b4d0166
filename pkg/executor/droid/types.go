// Package droid provides type definitions for the Droid executor stream-json protocol.
package droid

// Autonomy represents the permission level for Droid's file and system operations.
type Autonomy string

const (
	// AutonomyDefault passes no --auto flag; Droid stays read-only.
	AutonomyDefault Autonomy = ""
	// AutonomyLow allows file creation and edits in project directories (--auto low).
	AutonomyLow Autonomy = "low"
	// AutonomyMedium adds package installs, commits and local builds (--auto medium).
	AutonomyMedium Autonomy = "medium"
	// AutonomyHigh adds pushes, deployments and script execution (--auto high).
	AutonomyHigh Autonomy = "high"
)

// Valid reports whether a is a level Droid accepts.
func (a Autonomy) Valid() bool {
	switch a {
	case AutonomyDefault, AutonomyLow, AutonomyMedium, AutonomyHigh:
		return true
	}
	return false
}

// ReasoningEffort controls how much computation Droid spends on reasoning.
type ReasoningEffort string

const (
	ReasoningEffortLow    ReasoningEffort = "low"
	ReasoningEffortMedium ReasoningEffort = "medium"
	ReasoningEffortHigh   ReasoningEffort = "high"
)

func (r ReasoningEffort) Valid() bool {
	switch r {
	case "", ReasoningEffortLow, ReasoningEffortMedium, ReasoningEffortHigh:
		return true
	}
	return false
}

// OutputFormat selects the Droid output protocol (-o).
type OutputFormat string

const (
	OutputStreamJSON    OutputFormat = "stream-json"
	OutputStreamJSONRPC OutputFormat = "stream-jsonrpc"
)

func (f OutputFormat) Valid() bool {
	switch f {
	case "", OutputStreamJSON, OutputStreamJSONRPC:
		return true
	}
	return false
}

// EventType is the value of the "type" field in Droid stream-json output.
type EventType string

const (
	EventTypeSystem     EventType = "system"
	EventTypeMessage    EventType = "message"
	EventTypeToolCall   EventType = "tool_call"
	EventTypeToolResult EventType = "tool_result"
	EventTypeCompletion EventType = "completion"
	EventTypeError      EventType = "error"
)

// RoleAssistant marks message events produced by the agent itself.
const RoleAssistant = "assistant"
