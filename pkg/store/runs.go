package store

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/supremeagent/droidexec/pkg/executor"
	"github.com/supremeagent/droidexec/pkg/executor/droid"
)

const (
	DefaultMaxRuns = 256
	DefaultRunTTL  = 2 * time.Hour
)

// Run is the record of one asynchronous execution.
type Run struct {
	ID        string             `json:"run_id"`
	Status    executor.RunStatus `json:"status"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
	Result    *droid.Result      `json:"result,omitempty"`
	Error     string             `json:"error,omitempty"`
}

// RunStoreOptions controls run retention.
type RunStoreOptions struct {
	MaxRuns int
	TTL     time.Duration
	// OnEvict is called with the id of every run that leaves the store.
	OnEvict func(runID string)
}

// RunStore is a bounded, expiring map of runs. The least recently touched run
// is evicted first.
type RunStore struct {
	mu   sync.Mutex
	runs *expirable.LRU[string, Run]
}

// NewRunStore creates a RunStore.
func NewRunStore(opts RunStoreOptions) *RunStore {
	if opts.MaxRuns <= 0 {
		opts.MaxRuns = DefaultMaxRuns
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultRunTTL
	}

	var onEvict expirable.EvictCallback[string, Run]
	if opts.OnEvict != nil {
		onEvict = func(key string, _ Run) {
			opts.OnEvict(key)
		}
	}
	return &RunStore{runs: expirable.NewLRU[string, Run](opts.MaxRuns, onEvict, opts.TTL)}
}

// Create registers a new running run.
func (s *RunStore) Create(id string) Run {
	now := time.Now()
	run := Run{ID: id, Status: executor.RunStatusRunning, CreatedAt: now, UpdatedAt: now}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs.Add(id, run)
	return run
}

// Get returns a snapshot of the run.
func (s *RunStore) Get(id string) (Run, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs.Get(id)
}

// Contains reports whether the run is still retained without touching its
// recency.
func (s *RunStore) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs.Contains(id)
}

// Complete records the terminal outcome of a run. A hard failure is recorded
// as RunStatusError; otherwise the result decides between succeeded and failed.
func (s *RunStore) Complete(id string, res *droid.Result, err error) (Run, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs.Peek(id)
	if !ok {
		return Run{}, false
	}

	run.UpdatedAt = time.Now()
	run.Result = res
	switch {
	case err != nil:
		run.Status = executor.RunStatusError
		run.Error = err.Error()
	case res != nil && res.Success:
		run.Status = executor.RunStatusSucceeded
	default:
		run.Status = executor.RunStatusFailed
		if res != nil {
			run.Error = res.Error
		}
	}
	s.runs.Add(id, run)
	return run, true
}

// List returns snapshots of all retained runs, oldest first.
func (s *RunStore) List() []Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs.Values()
}

// Len returns the number of retained runs.
func (s *RunStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs.Len()
}
