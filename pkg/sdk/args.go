package sdk

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/supremeagent/droidexec/pkg/executor/droid"
)

// ErrInvalidArgs is wrapped by every argument validation failure.
var ErrInvalidArgs = errors.New("invalid arguments")

// Normalize validates the arguments and turns them into a droid.Request.
// Relative cwd values resolve against baseDir (the process working directory
// when empty); a relative file resolves against the resulting cwd. Both are
// canonicalized.
func (a ToolArgs) Normalize(baseDir string) (droid.Request, error) {
	req := droid.Request{
		Prompt:                a.Prompt,
		SessionID:             a.SessionID,
		Autonomy:              droid.Autonomy(a.Auto),
		Model:                 a.Model,
		EnabledTools:          a.EnabledTools,
		DisabledTools:         a.DisabledTools,
		ReasoningEffort:       droid.ReasoningEffort(a.ReasoningEffort),
		UseSpec:               a.UseSpec,
		SpecModel:             a.SpecModel,
		SkipPermissionsUnsafe: a.SkipPermissionsUnsafe,
		OutputFormat:          droid.OutputFormat(a.OutputFormat),
		File:                  a.File,
	}
	if a.TimeoutSecs < 0 {
		return req, fmt.Errorf("%w: timeout_secs must not be negative", ErrInvalidArgs)
	}
	req.Timeout = time.Duration(a.TimeoutSecs) * time.Second

	// Shape checks first so a malformed call fails before touching the disk.
	if err := req.Validate(); err != nil {
		return req, fmt.Errorf("%w: %w", ErrInvalidArgs, err)
	}

	dir, err := resolveWorkingDir(baseDir, a.Cwd)
	if err != nil {
		return req, err
	}
	req.WorkingDir = dir

	if a.File != "" {
		file, err := resolveFile(dir, a.File)
		if err != nil {
			return req, err
		}
		req.File = file
	}
	return req, nil
}

func resolveWorkingDir(baseDir, cwd string) (string, error) {
	if baseDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("%w: failed to resolve current working directory: %v", ErrInvalidArgs, err)
		}
		baseDir = wd
	}
	if cwd == "" {
		cwd = baseDir
	} else if !filepath.IsAbs(cwd) {
		cwd = filepath.Join(baseDir, cwd)
	}

	resolved, err := filepath.EvalSymlinks(cwd)
	if err != nil {
		return "", fmt.Errorf("%w: working directory does not exist or is not accessible: %s (%v)", ErrInvalidArgs, cwd, err)
	}
	resolved, err = filepath.Abs(resolved)
	if err != nil {
		return "", fmt.Errorf("%w: working directory does not exist or is not accessible: %s (%v)", ErrInvalidArgs, cwd, err)
	}
	info, err := os.Stat(resolved)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: working directory is not a directory: %s", ErrInvalidArgs, resolved)
	}
	return resolved, nil
}

func resolveFile(dir, file string) (string, error) {
	if !filepath.IsAbs(file) {
		file = filepath.Join(dir, file)
	}
	resolved, err := filepath.EvalSymlinks(file)
	if err != nil {
		return "", fmt.Errorf("%w: file does not exist or is not accessible: %s (%v)", ErrInvalidArgs, file, err)
	}
	resolved, err = filepath.Abs(resolved)
	if err != nil {
		return "", fmt.Errorf("%w: file does not exist or is not accessible: %s (%v)", ErrInvalidArgs, file, err)
	}
	info, err := os.Stat(resolved)
	if err != nil || !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: file path is not a file: %s", ErrInvalidArgs, file)
	}
	return resolved, nil
}
