package httpapi

import (
	"github.com/supremeagent/droidexec/pkg/executor"
	"github.com/supremeagent/droidexec/pkg/sdk"
	"github.com/supremeagent/droidexec/pkg/store"
)

type RunRequest = sdk.ToolArgs
type RunResponse = sdk.RunResponse
type Run = store.Run
type RunEvent = executor.Event

// ErrorResponse is the body of every non-2xx JSON reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ModelsResponse lists the configured custom models.
type ModelsResponse struct {
	Models       []string `json:"models"`
	DefaultModel string   `json:"default_model,omitempty"`
}

// EventsResponse is a page of retained run events.
type EventsResponse struct {
	RunID     string     `json:"run_id"`
	Events    []RunEvent `json:"events"`
	LatestSeq uint64     `json:"latest_seq"`
}
