package sdk

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mylxsw/asteria/log"
	"github.com/supremeagent/droidexec/pkg/config"
	"github.com/supremeagent/droidexec/pkg/executor"
	"github.com/supremeagent/droidexec/pkg/executor/droid"
	"github.com/supremeagent/droidexec/pkg/store"
	"github.com/supremeagent/droidexec/pkg/streaming"
)

// ClientOptions configures SDK client behavior.
type ClientOptions struct {
	Supervisor    *droid.Supervisor
	StreamManager *streaming.Manager
	EventStore    store.EventStore
	Hooks         Hooks

	// MaxRuns and RunTTL bound the asynchronous run store.
	MaxRuns int
	RunTTL  time.Duration
}

// Client is the SDK entry point for executing and tracking droid runs.
type Client struct {
	sup    *droid.Supervisor
	runs   *store.RunStore
	events store.EventStore
	stream *streaming.Manager
	hooks  Hooks

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// New creates an SDK client from the configuration files on disk.
func New() *Client {
	return NewWithOptions(ClientOptions{
		Supervisor: droid.New(droid.Options{Config: config.Load()}),
	})
}

// NewWithOptions creates an SDK client with custom dependencies.
func NewWithOptions(opts ClientOptions) *Client {
	if opts.Supervisor == nil {
		opts.Supervisor = droid.New(droid.Options{})
	}
	if opts.StreamManager == nil {
		opts.StreamManager = streaming.NewManager()
	}
	if opts.EventStore == nil {
		opts.EventStore = store.NewMemoryEventStore()
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		sup:    opts.Supervisor,
		events: opts.EventStore,
		stream: opts.StreamManager,
		hooks:  opts.Hooks,
		ctx:    ctx,
		cancel: cancel,
	}
	c.runs = store.NewRunStore(store.RunStoreOptions{
		MaxRuns: opts.MaxRuns,
		TTL:     opts.RunTTL,
		OnEvict: c.forget,
	})
	return c
}

// Config returns the configuration runs are resolved against.
func (c *Client) Config() *config.Config {
	return c.sup.Config()
}

// Execute runs droid synchronously and returns its result. Argument and
// launch failures are returned as errors; every other failure is reported in
// the result.
func (c *Client) Execute(ctx context.Context, args ToolArgs) (*droid.Result, error) {
	req, err := args.Normalize("")
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(c.ctx, cancel)
	defer stop()

	runID := uuid.NewString()
	c.runs.Create(runID)
	return c.execute(ctx, runID, req)
}

// Submit starts droid in the background and returns the run id immediately.
// Requests the supervisor would reject are rejected here, before a run exists.
func (c *Client) Submit(args ToolArgs) (RunResponse, error) {
	req, err := args.Normalize("")
	if err != nil {
		return RunResponse{}, err
	}
	if _, err := c.sup.Resolve(req); err != nil {
		return RunResponse{}, err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return RunResponse{}, executor.ErrClosed
	}
	runID := uuid.NewString()
	run := c.runs.Create(runID)
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		_, _ = c.execute(c.ctx, runID, req)
	}()

	return RunResponse{RunID: runID, Status: run.Status}, nil
}

func (c *Client) execute(ctx context.Context, runID string, req droid.Request) (*droid.Result, error) {
	start := time.Now()
	if c.hooks.OnRunStart != nil {
		c.hooks.OnRunStart(ctx, runID, req)
	}

	observe := func(evt droid.Event) {
		if c.hooks.OnEvent != nil {
			c.hooks.OnEvent(ctx, runID, evt)
		}
		if !c.runs.Contains(runID) {
			return
		}
		progress := droid.EventTransformer(evt)
		progress.RunID = runID
		c.record(progress)
	}

	res, err := c.sup.Run(ctx, req, droid.WithObserver(observe))
	if err != nil {
		log.Errorf("droid run failed: run=%s err=%v", runID, err)
	}

	if run, ok := c.runs.Complete(runID, res, err); ok {
		c.record(resultEvent(runID, run, res, err))
		c.stream.Close(runID)
	} else {
		// Evicted while running; drop whatever was recorded after the eviction.
		log.Warningf("run evicted before it finished: run=%s", runID)
		c.forget(runID)
	}

	if c.hooks.OnRunEnd != nil {
		c.hooks.OnRunEnd(ctx, runID, res, err, time.Since(start))
	}
	return res, err
}

func resultEvent(runID string, run store.Run, res *droid.Result, err error) executor.Event {
	content := map[string]any{"status": run.Status}
	if res != nil {
		content["output"] = NewOutput(res)
	}
	if err != nil {
		content["error"] = err.Error()
	}
	return executor.Event{RunID: runID, Type: executor.EventTypeResult, Content: content}
}

// record stores evt and publishes the stored copy to live subscribers.
func (c *Client) record(evt executor.Event) {
	stored, err := c.events.Append(context.Background(), evt)
	if err != nil {
		if c.hooks.OnStoreError != nil {
			c.hooks.OnStoreError(context.Background(), evt.RunID, evt, err)
		}
		log.Errorf("store append failed: run=%s type=%s err=%v", evt.RunID, evt.Type, err)
		return
	}
	c.stream.Publish(stored)
}

// forget drops everything kept for an evicted run.
func (c *Client) forget(runID string) {
	_ = c.events.Delete(context.Background(), runID)
	c.stream.Unregister(runID)
}

// Get returns the current state of a run.
func (c *Client) Get(runID string) (store.Run, error) {
	run, ok := c.runs.Get(runID)
	if !ok {
		return store.Run{}, executor.ErrRunNotFound
	}
	return run, nil
}

// Runs returns all retained runs, oldest first.
func (c *Client) Runs() []store.Run {
	return c.runs.List()
}

// ListEvents reads the retained events of a run.
func (c *Client) ListEvents(ctx context.Context, runID string, afterSeq uint64, limit int) ([]executor.Event, error) {
	return c.events.List(ctx, runID, store.ListOptions{AfterSeq: afterSeq, Limit: limit})
}

// LatestSeq returns the sequence number of the newest event recorded for a
// run, including events no longer retained.
func (c *Client) LatestSeq(ctx context.Context, runID string) (uint64, error) {
	return c.events.LatestSeq(ctx, runID)
}

// Subscribe streams the events of a run: retained history first, then live
// events until the run finishes. The returned cancel func stops the stream.
func (c *Client) Subscribe(runID string, opts SubscribeOptions) (<-chan executor.Event, func(), error) {
	if _, ok := c.runs.Get(runID); !ok {
		return nil, nil, executor.ErrRunNotFound
	}

	out := make(chan executor.Event, 100)
	live, unsubscribe := c.stream.Subscribe(runID)
	stop := make(chan struct{})
	stopOnce := sync.Once{}

	go func() {
		defer close(out)
		defer unsubscribe()

		lastSeq := opts.AfterSeq
		emit := func(evt executor.Event) bool {
			select {
			case out <- evt:
				if evt.Seq > lastSeq {
					lastSeq = evt.Seq
				}
				return true
			case <-stop:
				return false
			}
		}

		history, err := c.events.List(context.Background(), runID, store.ListOptions{AfterSeq: opts.AfterSeq})
		if err != nil {
			if c.hooks.OnStoreError != nil {
				c.hooks.OnStoreError(context.Background(), runID, executor.Event{RunID: runID, Type: "history"}, err)
			}
			return
		}
		for _, evt := range history {
			if !emit(evt) {
				return
			}
		}

		for {
			select {
			case evt, ok := <-live:
				if !ok {
					return
				}
				if evt.Seq > 0 && evt.Seq <= lastSeq {
					continue
				}
				if !emit(evt) {
					return
				}
			case <-stop:
				return
			}
		}
	}()

	cancel := func() {
		stopOnce.Do(func() {
			close(stop)
		})
	}
	return out, cancel, nil
}

// Models lists the custom models as "<display> (custom:<slug>-<index>)".
func (c *Client) Models() []string {
	return c.sup.Config().Models.List()
}

// Instructions describes the droid tool for protocol clients.
func (c *Client) Instructions() string {
	var b strings.Builder
	b.WriteString("This server provides a droid tool for AI-assisted coding tasks. " +
		"Use the droid tool to execute coding tasks via the Droid CLI with configurable autonomy levels. " +
		"Set autonomy level via the 'auto' parameter (low, medium, high) to control operation permissions. " +
		"Place a DROID.md file in the working directory for project-specific context.")

	if models := c.Models(); len(models) > 0 {
		b.WriteString("\n\nAvailable custom models from ~/.factory/config.json:")
		for _, m := range models {
			fmt.Fprintf(&b, "\n  - %s", m)
		}
	}
	return b.String()
}

// Shutdown cancels every in-flight run, killing its droid process, and waits
// for background runs to finish.
func (c *Client) Shutdown() {
	c.mu.Lock()
	c.closed = true
	c.cancel()
	c.mu.Unlock()

	c.wg.Wait()
}
