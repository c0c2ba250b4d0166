package store

import (
	"context"
	"sync"
	"time"

	"github.com/supremeagent/droidexec/pkg/executor"
)

// DefaultMaxEventsPerRun bounds the replayable history of one run.
const DefaultMaxEventsPerRun = 1000

// ListOptions controls event list query behavior.
type ListOptions struct {
	AfterSeq uint64
	Limit    int
}

// EventStore keeps the progress events of runs.
type EventStore interface {
	Append(ctx context.Context, evt executor.Event) (executor.Event, error)
	List(ctx context.Context, runID string, opts ListOptions) ([]executor.Event, error)
	LatestSeq(ctx context.Context, runID string) (uint64, error)
	Delete(ctx context.Context, runID string) error
}

// MemoryEventStore is the default in-memory EventStore implementation. Only
// the most recent events of each run are retained; sequence numbers keep
// increasing across dropped events.
type MemoryEventStore struct {
	mu        sync.RWMutex
	events    map[string][]executor.Event
	nextSeq   map[string]uint64
	maxPerRun int
}

// MemoryEventStoreOptions controls in-memory store retention.
type MemoryEventStoreOptions struct {
	// MaxEventsPerRun caps the history of each run. <= 0 selects the default.
	MaxEventsPerRun int
}

// NewMemoryEventStore creates an in-memory event store.
func NewMemoryEventStore() *MemoryEventStore {
	return NewMemoryEventStoreWithOptions(MemoryEventStoreOptions{})
}

// NewMemoryEventStoreWithOptions creates an in-memory store with custom options.
func NewMemoryEventStoreWithOptions(opts MemoryEventStoreOptions) *MemoryEventStore {
	if opts.MaxEventsPerRun <= 0 {
		opts.MaxEventsPerRun = DefaultMaxEventsPerRun
	}
	return &MemoryEventStore{
		events:    make(map[string][]executor.Event),
		nextSeq:   make(map[string]uint64),
		maxPerRun: opts.MaxEventsPerRun,
	}
}

func (s *MemoryEventStore) Append(ctx context.Context, evt executor.Event) (executor.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	evt.Seq = s.nextSeq[evt.RunID] + 1
	s.nextSeq[evt.RunID] = evt.Seq
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}

	events := append(s.events[evt.RunID], evt)
	if over := len(events) - s.maxPerRun; over > 0 {
		events = append(events[:0:0], events[over:]...)
	}
	s.events[evt.RunID] = events
	return evt, nil
}

func (s *MemoryEventStore) List(ctx context.Context, runID string, opts ListOptions) ([]executor.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src := s.events[runID]
	if len(src) == 0 {
		return nil, nil
	}

	out := make([]executor.Event, 0, len(src))
	for _, evt := range src {
		if opts.AfterSeq > 0 && evt.Seq <= opts.AfterSeq {
			continue
		}
		out = append(out, evt)
		if opts.Limit > 0 && len(out) >= opts.Limit {
			break
		}
	}

	return out, nil
}

// LatestSeq returns the sequence number of the newest event of a run, or zero
// when none was recorded.
func (s *MemoryEventStore) LatestSeq(ctx context.Context, runID string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.nextSeq[runID], nil
}

// Delete drops the history of a run.
func (s *MemoryEventStore) Delete(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.events, runID)
	delete(s.nextSeq, runID)
	return nil
}
