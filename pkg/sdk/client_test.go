//go:build !windows

package sdk

import (
	"context"
	"errors"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supremeagent/droidexec/pkg/config"
	"github.com/supremeagent/droidexec/pkg/executor"
	"github.com/supremeagent/droidexec/pkg/executor/droid"
)

const okScript = `
echo '{"type":"system","session_id":"sess-1"}'
echo '{"type":"tool_call","toolName":"Read"}'
echo '{"type":"completion","finalText":"done","session_id":"sess-1"}'
`

func newTestSupervisor(script string) *droid.Supervisor {
	return droid.New(droid.Options{
		Config: &config.Config{Models: config.NewRegistry(config.ModelEntry{DisplayName: "GPT 5", Model: "gpt-5", Provider: "openai"})},
		Binary: "droid",
		Command: func(ctx context.Context, _ string, arg ...string) *exec.Cmd {
			return exec.CommandContext(ctx, "/bin/sh", append([]string{"-c", script, "droid"}, arg...)...)
		},
	})
}

func newTestClient(t *testing.T, script string, hooks Hooks) *Client {
	t.Helper()
	c := NewWithOptions(ClientOptions{Supervisor: newTestSupervisor(script), Hooks: hooks})
	t.Cleanup(c.Shutdown)
	return c
}

func TestClientExecute(t *testing.T) {
	var started, ended int
	var events []droid.EventType
	c := newTestClient(t, okScript, Hooks{
		OnRunStart: func(ctx context.Context, runID string, req droid.Request) { started++ },
		OnEvent:    func(ctx context.Context, runID string, evt droid.Event) { events = append(events, evt.Type) },
		OnRunEnd: func(ctx context.Context, runID string, res *droid.Result, err error, elapsed time.Duration) {
			ended++
		},
	})

	res, err := c.Execute(context.Background(), ToolArgs{Prompt: "hello", Cwd: t.TempDir()})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "sess-1", res.SessionID)
	assert.Equal(t, "GPT 5 [openai] (gpt-5)", res.ModelInfo)

	assert.Equal(t, 1, started)
	assert.Equal(t, 1, ended)
	assert.Equal(t, []droid.EventType{droid.EventTypeSystem, droid.EventTypeToolCall, droid.EventTypeCompletion}, events)

	runs := c.Runs()
	require.Len(t, runs, 1)
	assert.Equal(t, executor.RunStatusSucceeded, runs[0].Status)
}

func TestClientExecuteValidation(t *testing.T) {
	c := newTestClient(t, okScript, Hooks{})

	_, err := c.Execute(context.Background(), ToolArgs{})
	assert.ErrorIs(t, err, ErrInvalidArgs)
	assert.ErrorIs(t, err, droid.ErrPromptRequired)

	_, err = c.Execute(context.Background(), ToolArgs{Prompt: "p", File: "x.md"})
	assert.ErrorIs(t, err, droid.ErrPromptAndFile)

	assert.Empty(t, c.Runs())
}

func TestClientSubmitAndSubscribe(t *testing.T) {
	c := newTestClient(t, okScript, Hooks{})

	resp, err := c.Submit(ToolArgs{Prompt: "hello", Cwd: t.TempDir()})
	require.NoError(t, err)
	require.NotEmpty(t, resp.RunID)
	assert.Equal(t, executor.RunStatusRunning, resp.Status)

	ch, cancel, err := c.Subscribe(resp.RunID, SubscribeOptions{})
	require.NoError(t, err)
	defer cancel()

	var got []executor.Event
	timeout := time.After(10 * time.Second)
	for done := false; !done; {
		select {
		case evt, ok := <-ch:
			if !ok {
				done = true
				break
			}
			got = append(got, evt)
		case <-timeout:
			t.Fatal("timed out waiting for run events")
		}
	}

	require.Len(t, got, 4)
	for i, evt := range got {
		assert.Equal(t, uint64(i+1), evt.Seq)
		assert.Equal(t, resp.RunID, evt.RunID)
	}
	assert.Equal(t, executor.EventTypeResult, got[3].Type)

	run, err := c.Get(resp.RunID)
	require.NoError(t, err)
	assert.Equal(t, executor.RunStatusSucceeded, run.Status)
	require.NotNil(t, run.Result)
	assert.Equal(t, "done", run.Result.AgentMessages)
}

func TestClientSubscribeReplaysFinishedRun(t *testing.T) {
	c := newTestClient(t, okScript, Hooks{})

	_, err := c.Execute(context.Background(), ToolArgs{Prompt: "hello", Cwd: t.TempDir()})
	require.NoError(t, err)
	runID := c.Runs()[0].ID

	ch, cancel, err := c.Subscribe(runID, SubscribeOptions{AfterSeq: 2})
	require.NoError(t, err)
	defer cancel()

	var seqs []uint64
	for evt := range ch {
		seqs = append(seqs, evt.Seq)
	}
	assert.Equal(t, []uint64{3, 4}, seqs)
}

func TestClientUnknownRun(t *testing.T) {
	c := newTestClient(t, okScript, Hooks{})

	_, err := c.Get("missing")
	assert.True(t, errors.Is(err, executor.ErrRunNotFound))

	_, _, err = c.Subscribe("missing", SubscribeOptions{})
	assert.ErrorIs(t, err, executor.ErrRunNotFound)
}

func TestClientSubmitRejectsHighAutonomyWhenDisabled(t *testing.T) {
	disallow := false
	sup := droid.New(droid.Options{
		Config: &config.Config{Defaults: config.Defaults{AllowHighAutonomy: &disallow}, Models: config.NewRegistry()},
	})
	c := NewWithOptions(ClientOptions{Supervisor: sup})
	defer c.Shutdown()

	_, err := c.Submit(ToolArgs{Prompt: "p", Cwd: t.TempDir(), Auto: "high"})
	assert.ErrorIs(t, err, droid.ErrHighAutonomyDisabled)
	assert.Empty(t, c.Runs())
}

func TestClientShutdownKillsRuns(t *testing.T) {
	c := newTestClient(t, `echo '{"type":"system","session_id":"s"}'; sleep 30`, Hooks{})

	resp, err := c.Submit(ToolArgs{Prompt: "p", Cwd: t.TempDir(), TimeoutSecs: 60})
	require.NoError(t, err)

	time.Sleep(200 * time.Millisecond)
	done := make(chan struct{})
	go func() {
		c.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("shutdown did not finish")
	}

	run, err := c.Get(resp.RunID)
	require.NoError(t, err)
	assert.Equal(t, executor.RunStatusError, run.Status)

	_, err = c.Submit(ToolArgs{Prompt: "p", Cwd: t.TempDir()})
	assert.ErrorIs(t, err, executor.ErrClosed)
}

func TestClientEvictedRunLeavesNothingBehind(t *testing.T) {
	script := `
echo '{"type":"system","session_id":"s"}'
sleep 1
echo '{"type":"tool_call","toolName":"Read"}'
echo '{"type":"completion","finalText":"done","session_id":"s"}'
`
	c := NewWithOptions(ClientOptions{Supervisor: newTestSupervisor(script), MaxRuns: 1})
	defer c.Shutdown()

	first, err := c.Submit(ToolArgs{Prompt: "a", Cwd: t.TempDir()})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		evts, _ := c.ListEvents(context.Background(), first.RunID, 0, 0)
		return len(evts) > 0
	}, 5*time.Second, 20*time.Millisecond)

	second, err := c.Submit(ToolArgs{Prompt: "b", Cwd: t.TempDir()})
	require.NoError(t, err)

	_, err = c.Get(first.RunID)
	assert.ErrorIs(t, err, executor.ErrRunNotFound)

	// Both runs write more events after the eviction and then finish.
	require.Eventually(t, func() bool {
		run, err := c.Get(second.RunID)
		return err == nil && run.Status == executor.RunStatusSucceeded
	}, 10*time.Second, 20*time.Millisecond)
	c.Shutdown()

	evts, err := c.ListEvents(context.Background(), first.RunID, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, evts)
	_, _, err = c.Subscribe(first.RunID, SubscribeOptions{})
	assert.ErrorIs(t, err, executor.ErrRunNotFound)

	evts, err = c.ListEvents(context.Background(), second.RunID, 0, 0)
	require.NoError(t, err)
	require.Len(t, evts, 4)
	assert.Equal(t, executor.EventTypeResult, evts[3].Type)
}

func TestClientSubmitDuringShutdown(t *testing.T) {
	c := NewWithOptions(ClientOptions{Supervisor: newTestSupervisor(`sleep 30`)})
	cwd := t.TempDir()

	var (
		mu       sync.Mutex
		accepted []string
		wg       sync.WaitGroup
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := c.Submit(ToolArgs{Prompt: "p", Cwd: cwd, TimeoutSecs: 60})
			if err != nil {
				assert.ErrorIs(t, err, executor.ErrClosed)
				return
			}
			mu.Lock()
			accepted = append(accepted, resp.RunID)
			mu.Unlock()
		}()
	}

	time.Sleep(5 * time.Millisecond)
	c.Shutdown()
	wg.Wait()

	// Every run accepted before Shutdown returned has finished.
	mu.Lock()
	defer mu.Unlock()
	for _, id := range accepted {
		run, err := c.Get(id)
		require.NoError(t, err)
		assert.NotEqual(t, executor.RunStatusRunning, run.Status, "run %s still running after shutdown", id)
	}

	_, err := c.Submit(ToolArgs{Prompt: "p", Cwd: cwd})
	assert.ErrorIs(t, err, executor.ErrClosed)
}

func TestClientInstructionsListModels(t *testing.T) {
	c := newTestClient(t, okScript, Hooks{})
	assert.Contains(t, c.Instructions(), "GPT 5 (custom:GPT-5-0)")
	assert.Equal(t, []string{"GPT 5 (custom:GPT-5-0)"}, c.Models())
}
