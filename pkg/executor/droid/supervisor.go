package droid

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/mylxsw/asteria/log"
	"github.com/supremeagent/droidexec/pkg/config"
	"github.com/supremeagent/droidexec/pkg/executor"
)

var logger = log.Module("droid")

// abandonGrace bounds how long a timed-out run waits for the killed child to
// be reaped before the timeout result is returned.
const abandonGrace = 5 * time.Second

// errKilled marks an execution whose child was killed because its context
// ended.
var errKilled = errors.New("droid: process killed")

// Options configures a Supervisor. Zero values select production defaults.
type Options struct {
	Config  *config.Config
	Binary  string
	Limits  Limits
	Command CommandFunc
}

// Supervisor runs droid executions against a fixed configuration. It is safe
// for concurrent use.
type Supervisor struct {
	cfg     *config.Config
	binary  string
	limits  Limits
	command CommandFunc
}

// New creates a Supervisor.
func New(opts Options) *Supervisor {
	cfg := opts.Config
	if cfg == nil {
		cfg = &config.Config{Models: config.NewRegistry()}
	}
	if cfg.Models == nil {
		cfg = &config.Config{Defaults: cfg.Defaults, Models: config.NewRegistry()}
	}
	binary := opts.Binary
	if binary == "" {
		binary = ResolveBinary()
	}
	command := opts.Command
	if command == nil {
		command = exec.CommandContext
	}
	return &Supervisor{
		cfg:     cfg,
		binary:  binary,
		limits:  opts.Limits.withDefaults(),
		command: command,
	}
}

// Config returns the configuration the supervisor was built with.
func (s *Supervisor) Config() *config.Config {
	return s.cfg
}

// RunOption customizes a single Run.
type RunOption func(*runOptions)

type runOptions struct {
	observer func(Event)
}

// WithObserver registers fn to receive every decoded event in stream order.
// fn runs on the draining goroutine and must not block.
func WithObserver(fn func(Event)) RunOption {
	return func(o *runOptions) {
		o.observer = fn
	}
}

// Resolve validates req and fills in configured defaults: model, autonomy,
// extra arguments and the clamped timeout.
func (s *Supervisor) Resolve(req Request) (Request, error) {
	if err := req.Validate(); err != nil {
		return req, err
	}

	defaults := s.cfg.Defaults
	if req.Model == "" {
		req.Model = defaults.DefaultModel
	}
	if req.Model == "" {
		req.Model = s.cfg.Models.DefaultRef()
	}
	if req.Autonomy == AutonomyDefault && !req.SkipPermissionsUnsafe {
		req.Autonomy = Autonomy(defaults.DefaultAutonomy())
	}

	extra := make([]string, 0, len(defaults.AdditionalArgs)+len(req.ExtraArgs))
	extra = append(extra, defaults.AdditionalArgs...)
	req.ExtraArgs = append(extra, req.ExtraArgs...)

	req.Timeout = defaults.ClampTimeout(req.Timeout)

	if err := req.Validate(); err != nil {
		return req, err
	}
	if req.Autonomy == AutonomyHigh && !defaults.HighAutonomyAllowed() {
		return req, ErrHighAutonomyDisabled
	}
	return req, nil
}

// Run executes req and folds the outcome into a Result. Only validation,
// spawn and cancellation failures are returned as errors; every other failure
// is reported through the Result. If the run deadline elapses first the child
// process group is killed and a timeout Result is returned.
func (s *Supervisor) Run(ctx context.Context, req Request, opts ...RunOption) (*Result, error) {
	var ro runOptions
	for _, opt := range opts {
		opt(&ro)
	}

	req, err := s.Resolve(req)
	if err != nil {
		return nil, err
	}

	projectContext, contextWarning := ReadProjectContext(req.WorkingDir)
	prompt := req.Prompt
	if req.File == "" {
		prompt = ComposePrompt(projectContext, req.Prompt)
	}

	modelInfo, modelWarning := s.cfg.Models.Describe(req.Model)
	warnings := joinWarnings(contextWarning, modelWarning)
	logger.Infof("running droid in %s: %s", req.WorkingDir, modelInfo)

	runCtx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		res, err := s.execute(runCtx, req, BuildArgs(req, prompt), ro.observer)
		done <- outcome{res: res, err: err}
	}()

	select {
	case out := <-done:
		return settle(ctx, req.Timeout, out, warnings, modelInfo)
	case <-runCtx.Done():
		select {
		case out := <-done:
			return settle(ctx, req.Timeout, out, warnings, modelInfo)
		case <-time.After(abandonGrace):
			logger.Warningf("droid did not exit within %s of being killed", abandonGrace)
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("droid: run cancelled: %w", err)
		}
		logger.Warningf("droid timed out after %s", req.Timeout)
		return timeoutResult(req.Timeout, warnings, modelInfo), nil
	}
}

type outcome struct {
	res *Result
	err error
}

// settle turns a finished execution into the Run result. A run that exited on
// its own is returned as is, even if the deadline passed in the meantime; only
// a child killed through the context becomes a timeout or cancellation.
func settle(ctx context.Context, timeout time.Duration, out outcome, warnings, modelInfo string) (*Result, error) {
	if errors.Is(out.err, errKilled) {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("droid: run cancelled: %w", err)
		}
		logger.Warningf("droid timed out after %s", timeout)
		return timeoutResult(timeout, warnings, modelInfo), nil
	}
	if out.err != nil {
		return nil, out.err
	}

	out.res.Warnings = warnings
	out.res.ModelInfo = modelInfo
	if !out.res.Success {
		logger.Warningf("droid run failed: %s", out.res.Error)
	}
	return out.res, nil
}

// execute launches droid and drains both streams to completion. stderr is
// collected before Wait, which closes the pipes.
func (s *Supervisor) execute(ctx context.Context, req Request, args []string, observe func(Event)) (*Result, error) {
	start := time.Now()

	proc, err := launch(ctx, s.command, s.binary, req, args)
	if err != nil {
		return nil, err
	}

	stderrCh := drainStderr(proc.stderr, s.limits.Stderr)
	agg := newAggregation(s.limits, observe)
	agg.drain(proc.stdout)
	stderr := <-stderrCh

	waitErr := proc.cmd.Wait()
	if ctx.Err() != nil && proc.cmd.ProcessState != nil && !proc.cmd.ProcessState.Exited() {
		return nil, fmt.Errorf("%w: %w", errKilled, ctx.Err())
	}
	code, exited := executor.ExitStatus(waitErr)
	if !exited {
		return nil, fmt.Errorf("droid: wait for process: %w", waitErr)
	}

	res := agg.result()
	resolveVerdict(res, code, stderr)
	res.Duration = time.Since(start)
	return res, nil
}
