package droid

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/supremeagent/droidexec/pkg/executor"
)

// ErrSpawn is wrapped by every failure to start the droid process.
var ErrSpawn = errors.New("droid: failed to spawn process")

// CommandFunc builds the command for a launch. It is replaced in tests.
type CommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

// ResolveBinary returns DROID_BIN when set, otherwise the platform default.
func ResolveBinary() string {
	if bin := strings.TrimSpace(os.Getenv("DROID_BIN")); bin != "" {
		return bin
	}
	if runtime.GOOS == "windows" {
		return "droid.exe"
	}
	return "droid"
}

// BuildArgs constructs the droid exec argument vector. prompt is the composed
// instruction and is ignored when req.File is set.
func BuildArgs(req Request, prompt string) []string {
	format := req.OutputFormat
	if format == "" {
		format = OutputStreamJSON
	}
	args := []string{"exec", "-o", string(format), "--cwd", req.WorkingDir}

	if req.SkipPermissionsUnsafe {
		args = append(args, "--skip-permissions-unsafe")
	} else if req.Autonomy != AutonomyDefault {
		args = append(args, "--auto", string(req.Autonomy))
	}

	if req.ReasoningEffort != "" {
		args = append(args, "-r", string(req.ReasoningEffort))
	}
	if req.UseSpec {
		args = append(args, "--use-spec")
		if req.SpecModel != "" {
			args = append(args, "--spec-model", req.SpecModel)
		}
	}
	if req.Model != "" {
		args = append(args, "--model", req.Model)
	}
	if req.EnabledTools != "" {
		args = append(args, "--enabled-tools", req.EnabledTools)
	}
	if req.DisabledTools != "" {
		args = append(args, "--disabled-tools", req.DisabledTools)
	}
	if req.SessionID != "" {
		args = append(args, "--session-id", req.SessionID)
	}

	args = append(args, req.ExtraArgs...)

	if req.File != "" {
		args = append(args, "--file", req.File)
	} else {
		args = append(args, prompt)
	}
	return args
}

// process is a started droid child with its output pipes.
type process struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr io.ReadCloser
}

// launch starts binary with args. Cancelling ctx kills the child's whole
// process group.
func launch(ctx context.Context, command CommandFunc, binary string, req Request, args []string) (*process, error) {
	cmd := command(ctx, binary, args...)
	cmd.Dir = req.WorkingDir
	cmd.Env = executor.BuildCommandEnv(req.Env)
	cmd.Stdin = nil
	executor.Supervise(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stdout pipe: %v", ErrSpawn, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stderr pipe: %v", ErrSpawn, err)
	}

	logger.Debugf("launching %s %s", binary, strings.Join(redactPrompt(args, req), " "))

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: failed to spawn %s in %s: %v", ErrSpawn, binary, req.WorkingDir, err)
	}
	return &process{cmd: cmd, stdout: stdout, stderr: stderr}, nil
}

// redactPrompt replaces the trailing prompt argument for logging.
func redactPrompt(args []string, req Request) []string {
	if req.File != "" || len(args) == 0 {
		return args
	}
	out := make([]string, len(args))
	copy(out, args)
	out[len(out)-1] = fmt.Sprintf("<prompt %d bytes>", len(args[len(args)-1]))
	return out
}
