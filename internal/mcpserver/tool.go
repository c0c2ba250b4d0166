package mcpserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/supremeagent/droidexec/pkg/executor/droid"
	"github.com/supremeagent/droidexec/pkg/sdk"
)

// ToolName is the only tool this server exposes.
const ToolName = "droid"

const toolDescription = "Execute Droid CLI for AI-assisted coding tasks with configurable autonomy levels. " +
	"Returns success, SESSION_ID (reuse it to continue the conversation), message, " +
	"and error, warnings and model_info when present. " +
	"Place a DROID.md file in the working directory for project-specific context."

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func enumProp(description string, values ...string) map[string]any {
	return map[string]any{"type": "string", "description": description, "enum": values}
}

func droidTool() tool {
	return tool{
		Name:        ToolName,
		Description: toolDescription,
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"PROMPT":         stringProp("Instruction for task to send to droid (mutually exclusive with file)"),
				"file":           stringProp("Read prompt from file (mutually exclusive with PROMPT)"),
				"auto":           enumProp("Autonomy level (omit for read-only). Cannot be used with skip_permissions_unsafe", "low", "medium", "high"),
				"SESSION_ID":     stringProp("Resume a previously started Droid session"),
				"cwd":            stringProp("Working directory for execution (default: current directory)"),
				"model":          stringProp("Model to use (overrides default)"),
				"enabled_tools":  stringProp("Enable specific tools (comma or space separated)"),
				"disabled_tools": stringProp("Disable specific tools (comma or space separated)"),
				"timeout_secs": map[string]any{
					"type":        "integer",
					"minimum":     0,
					"description": "Timeout in seconds (default: 600, max: 3600)",
				},
				"reasoning_effort": enumProp("Reasoning effort level for supported models", "low", "medium", "high"),
				"use_spec": map[string]any{
					"type":        "boolean",
					"description": "Use specification mode (agent plans before executing)",
				},
				"spec_model": stringProp("Model to use for the specification phase (when use_spec is true)"),
				"skip_permissions_unsafe": map[string]any{
					"type":        "boolean",
					"description": "Skip ALL permission checks (DANGEROUS, only for isolated environments). Cannot be combined with auto",
				},
				"output_format": enumProp("Droid output format", "stream-json", "stream-jsonrpc"),
			},
		},
	}
}

// callDroid runs one tool call. Argument problems come back as invalid
// params; anything that kept droid from producing a result is an internal
// error. Failed runs are successful calls flagged with isError.
func (s *Server) callDroid(ctx context.Context, raw []byte) (*toolResult, *rpcError) {
	var args sdk.ToolArgs
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &args); err != nil {
			return nil, &rpcError{Code: codeInvalidParams, Message: fmt.Sprintf("invalid arguments: %v", err)}
		}
	}

	res, err := s.client.Execute(ctx, args)
	if err != nil {
		if isInvalidArgs(err) {
			return nil, &rpcError{Code: codeInvalidParams, Message: err.Error()}
		}
		logger.Errorf("droid run failed: %v", err)
		return nil, &rpcError{Code: codeInternalError, Message: fmt.Sprintf("Failed to execute droid: %v", err)}
	}

	out := sdk.NewOutput(res)
	text, err := sdk.EncodeOutput(out, sdk.FormatYAML)
	if err != nil {
		return nil, &rpcError{Code: codeInternalError, Message: err.Error()}
	}

	return &toolResult{
		Content:           []textContent{{Type: "text", Text: text}},
		StructuredContent: out,
		IsError:           !out.Success,
	}, nil
}

func isInvalidArgs(err error) bool {
	return errors.Is(err, sdk.ErrInvalidArgs) ||
		errors.Is(err, droid.ErrHighAutonomyDisabled) ||
		errors.Is(err, droid.ErrInvalidRequest)
}
