package droid

import (
	"fmt"
	"strings"

	"github.com/supremeagent/droidexec/pkg/executor"
)

// Source identifies droid progress events.
const Source = "droid"

// EventTransformer converts a decoded droid stream event into a unified
// progress event.
func EventTransformer(evt Event) executor.Event {
	content := executor.UnifiedContent{
		Source:     Source,
		SourceType: string(evt.Type),
		Category:   "message",
		Action:     "responding",
		Raw:        evt.Raw,
	}
	eventType := executor.EventTypeMessage

	switch evt.Type {
	case EventTypeSystem:
		content.Category = "lifecycle"
		content.Action = "starting"
		content.Phase = "started"
		content.Summary = "Initializing session"
		if model := stringField(evt.Raw, "model"); model != "" {
			content.Summary = fmt.Sprintf("Initializing session, model: %s", model)
		}
		eventType = executor.EventTypeProgress

	case EventTypeMessage:
		content.Text = stringField(evt.Raw, "text")
		switch stringField(evt.Raw, "role") {
		case RoleAssistant:
			content.Summary = "Generating response"
		case "user":
			content.Summary = "User message"
			eventType = executor.EventTypeProgress
		default:
			content.Summary = "Message"
		}

	case EventTypeToolCall:
		eventType = executor.EventTypeTool
		content.Category = "tool"
		content.Phase = "started"
		content.ToolName = stringField(evt.Raw, "toolName")
		applyToolMapping(&content, content.ToolName)

	case EventTypeToolResult:
		eventType = executor.EventTypeTool
		content.Category = "tool"
		content.Phase = "completed"
		content.ToolName = stringField(evt.Raw, "toolName")
		applyToolMapping(&content, content.ToolName)
		if boolField(evt.Raw, "isError") {
			content.Phase = "failed"
			content.Status = "failed"
		} else {
			content.Status = "success"
		}

	case EventTypeCompletion:
		content.Category = "done"
		content.Action = "completed"
		content.Phase = "completed"
		content.Summary = "Task completed"
		content.Text = stringField(evt.Raw, "finalText")
		eventType = executor.EventTypeDone

	case EventTypeError:
		content.Category = "error"
		content.Action = "failed"
		content.Phase = "failed"
		content.Summary = "Execution failed"
		content.Text = stringField(evt.Raw, "message")
		eventType = executor.EventTypeError

	default:
		content.Category = "progress"
		content.Action = "thinking"
		content.Summary = "Processing"
		eventType = executor.EventTypeProgress
	}

	if content.Summary == "" {
		content.Summary = defaultSummary(content)
	}

	return executor.Event{
		Type:    eventType,
		Content: content,
	}
}

// applyToolMapping maps a droid tool name to human-readable action fields.
func applyToolMapping(content *executor.UnifiedContent, toolName string) {
	name := strings.ToLower(toolName)

	switch {
	case name == "read" || name == "ls":
		content.Action = "reading"
		content.Summary = "Reading files"
	case name == "grep" || name == "glob" || strings.Contains(name, "search"):
		content.Action = "searching"
		content.Summary = "Searching"
	case name == "edit" || name == "multiedit" || name == "create" || name == "applypatch":
		content.Action = "editing"
		content.Summary = "Editing code"
	case name == "execute":
		content.Action = "tool_running"
		content.Summary = "Running command"
	case name == "todowrite":
		content.Category = "progress"
		content.Action = "thinking"
		content.Summary = "Updating task list"
	case strings.Contains(name, "fetch") || strings.Contains(name, "url"):
		content.Action = "searching"
		content.Summary = "Fetching web page"
	default:
		content.Action = "tool_running"
		content.Summary = "Calling tool"
		if toolName != "" {
			content.Summary = fmt.Sprintf("Calling tool: %s", toolName)
		}
	}
}

func defaultSummary(content executor.UnifiedContent) string {
	switch content.Action {
	case "thinking":
		return "Thinking"
	case "reading":
		return "Reading files"
	case "searching":
		return "Searching"
	case "editing":
		return "Editing code"
	case "tool_running":
		return "Calling tool"
	case "responding":
		return "Generating response"
	case "completed":
		return "Completed"
	case "failed":
		return "Failed"
	case "starting":
		return "Starting"
	default:
		return "Processing"
	}
}
