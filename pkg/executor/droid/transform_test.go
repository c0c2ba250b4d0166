package droid

import (
	"testing"

	"github.com/supremeagent/droidexec/pkg/executor"
)

func transform(t *testing.T, line string) (executor.Event, executor.UnifiedContent) {
	t.Helper()
	evt, err := DecodeEvent([]byte(line))
	if err != nil {
		t.Fatalf("decode %s: %v", line, err)
	}
	out := EventTransformer(evt)
	uc, ok := out.Content.(executor.UnifiedContent)
	if !ok {
		t.Fatalf("expected UnifiedContent, got %T", out.Content)
	}
	return out, uc
}

func TestEventTransformer_System(t *testing.T) {
	evt, uc := transform(t, `{"type":"system","session_id":"s1","model":"gpt-5"}`)
	if evt.Type != executor.EventTypeProgress {
		t.Errorf("expected type 'progress', got %q", evt.Type)
	}
	if uc.Category != "lifecycle" {
		t.Errorf("expected category 'lifecycle', got %q", uc.Category)
	}
	if uc.Summary != "Initializing session, model: gpt-5" {
		t.Errorf("unexpected summary %q", uc.Summary)
	}
	if uc.Source != Source {
		t.Errorf("expected source %q, got %q", Source, uc.Source)
	}
}

func TestEventTransformer_AssistantMessage(t *testing.T) {
	evt, uc := transform(t, `{"type":"message","role":"assistant","text":"Hello!"}`)
	if evt.Type != executor.EventTypeMessage {
		t.Errorf("expected type 'message', got %q", evt.Type)
	}
	if uc.Text != "Hello!" {
		t.Errorf("expected text 'Hello!', got %q", uc.Text)
	}
}

func TestEventTransformer_UserMessage(t *testing.T) {
	evt, _ := transform(t, `{"type":"message","role":"user","text":"do it"}`)
	if evt.Type != executor.EventTypeProgress {
		t.Errorf("expected type 'progress', got %q", evt.Type)
	}
}

func TestEventTransformer_ToolCall(t *testing.T) {
	tests := []struct {
		tool   string
		action string
	}{
		{"Read", "reading"},
		{"Grep", "searching"},
		{"Edit", "editing"},
		{"Execute", "tool_running"},
		{"FetchUrl", "searching"},
		{"TodoWrite", "thinking"},
		{"Custom", "tool_running"},
	}
	for _, tt := range tests {
		evt, uc := transform(t, `{"type":"tool_call","toolName":"`+tt.tool+`"}`)
		if evt.Type != executor.EventTypeTool {
			t.Errorf("%s: expected type 'tool', got %q", tt.tool, evt.Type)
		}
		if uc.Action != tt.action {
			t.Errorf("%s: expected action %q, got %q", tt.tool, tt.action, uc.Action)
		}
		if uc.ToolName != tt.tool {
			t.Errorf("%s: expected tool name, got %q", tt.tool, uc.ToolName)
		}
		if uc.Phase != "started" {
			t.Errorf("%s: expected phase 'started', got %q", tt.tool, uc.Phase)
		}
	}
}

func TestEventTransformer_ToolResultError(t *testing.T) {
	_, uc := transform(t, `{"type":"tool_result","toolName":"Execute","isError":true}`)
	if uc.Phase != "failed" || uc.Status != "failed" {
		t.Errorf("expected failed tool result, got phase=%q status=%q", uc.Phase, uc.Status)
	}

	_, uc = transform(t, `{"type":"tool_result","toolName":"Execute"}`)
	if uc.Status != "success" {
		t.Errorf("expected success status, got %q", uc.Status)
	}
}

func TestEventTransformer_Completion(t *testing.T) {
	evt, uc := transform(t, `{"type":"completion","finalText":"All done"}`)
	if evt.Type != executor.EventTypeDone {
		t.Errorf("expected type 'done', got %q", evt.Type)
	}
	if uc.Text != "All done" {
		t.Errorf("expected final text, got %q", uc.Text)
	}
}

func TestEventTransformer_Error(t *testing.T) {
	evt, uc := transform(t, `{"type":"error","message":"boom"}`)
	if evt.Type != executor.EventTypeError {
		t.Errorf("expected type 'error', got %q", evt.Type)
	}
	if uc.Text != "boom" {
		t.Errorf("expected message text, got %q", uc.Text)
	}
}

func TestEventTransformer_Unknown(t *testing.T) {
	evt, uc := transform(t, `{"type":"heartbeat"}`)
	if evt.Type != executor.EventTypeProgress {
		t.Errorf("expected type 'progress', got %q", evt.Type)
	}
	if uc.Summary == "" {
		t.Error("expected a summary")
	}
}
