package droid

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrPromptRequired       = errors.New("droid: either a prompt or a file is required")
	ErrPromptBlank          = errors.New("droid: prompt must be a non-empty, non-whitespace string")
	ErrPromptAndFile        = errors.New("droid: prompt and file are mutually exclusive, provide only one")
	ErrUnsafeWithAutonomy   = errors.New("droid: skip-permissions-unsafe cannot be combined with an autonomy level")
	ErrHighAutonomyDisabled = errors.New("droid: high autonomy level is disabled in configuration, set allow_high_autonomy=true to enable")
	ErrInvalidRequest       = errors.New("droid: invalid request")
)

// Request describes one Droid execution. Prompt and File are mutually
// exclusive, as are SkipPermissionsUnsafe and Autonomy.
type Request struct {
	Prompt     string
	File       string
	WorkingDir string

	// SessionID resumes a previous conversation (--session-id).
	SessionID string

	Autonomy        Autonomy
	Model           string
	EnabledTools    string
	DisabledTools   string
	ExtraArgs       []string
	Timeout         time.Duration
	ReasoningEffort ReasoningEffort

	// UseSpec enables specification mode; SpecModel overrides its model.
	UseSpec   bool
	SpecModel string

	SkipPermissionsUnsafe bool
	OutputFormat          OutputFormat

	// Env overrides variables of the inherited host environment.
	Env map[string]string
}

// Validate checks the request invariants without touching the filesystem.
func (r Request) Validate() error {
	switch {
	case r.Prompt == "" && r.File == "":
		return ErrPromptRequired
	case r.Prompt != "" && r.File != "":
		return ErrPromptAndFile
	case r.File == "" && strings.TrimSpace(r.Prompt) == "":
		return ErrPromptBlank
	}

	if r.SkipPermissionsUnsafe && r.Autonomy != AutonomyDefault {
		return ErrUnsafeWithAutonomy
	}
	if !r.Autonomy.Valid() {
		return fmt.Errorf("%w: invalid auto level %q, must be one of: low, medium, high", ErrInvalidRequest, r.Autonomy)
	}
	if !r.ReasoningEffort.Valid() {
		return fmt.Errorf("%w: invalid reasoning_effort %q, must be one of: low, medium, high", ErrInvalidRequest, r.ReasoningEffort)
	}
	if !r.OutputFormat.Valid() {
		return fmt.Errorf("%w: invalid output_format %q, must be one of: stream-json, stream-jsonrpc", ErrInvalidRequest, r.OutputFormat)
	}
	if r.Timeout < 0 {
		return fmt.Errorf("%w: timeout must not be negative", ErrInvalidRequest)
	}
	return nil
}
