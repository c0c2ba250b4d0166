package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supremeagent/droidexec/pkg/executor"
	"github.com/supremeagent/droidexec/pkg/executor/droid"
)

func TestMemoryEventStore_AppendAssignsSeq(t *testing.T) {
	s := NewMemoryEventStore()
	ctx := context.Background()

	first, err := s.Append(ctx, executor.Event{RunID: "r1", Type: executor.EventTypeProgress})
	require.NoError(t, err)
	second, err := s.Append(ctx, executor.Event{RunID: "r1", Type: executor.EventTypeMessage})
	require.NoError(t, err)
	other, err := s.Append(ctx, executor.Event{RunID: "r2", Type: executor.EventTypeProgress})
	require.NoError(t, err)

	assert.Equal(t, uint64(1), first.Seq)
	assert.Equal(t, uint64(2), second.Seq)
	assert.Equal(t, uint64(1), other.Seq)
	assert.False(t, first.Timestamp.IsZero())

	latest, err := s.LatestSeq(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), latest)
}

func TestMemoryEventStore_ListFilters(t *testing.T) {
	s := NewMemoryEventStore()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := s.Append(ctx, executor.Event{RunID: "r", Type: executor.EventTypeProgress})
		require.NoError(t, err)
	}

	events, err := s.List(ctx, "r", ListOptions{AfterSeq: 2})
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, uint64(3), events[0].Seq)

	events, err = s.List(ctx, "r", ListOptions{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, events, 1)

	events, err = s.List(ctx, "missing", ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestMemoryEventStore_CapsHistory(t *testing.T) {
	s := NewMemoryEventStoreWithOptions(MemoryEventStoreOptions{MaxEventsPerRun: 3})
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		_, err := s.Append(ctx, executor.Event{RunID: "r", Type: executor.EventTypeProgress})
		require.NoError(t, err)
	}

	events, err := s.List(ctx, "r", ListOptions{})
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, uint64(8), events[0].Seq)
	assert.Equal(t, uint64(10), events[2].Seq)

	latest, err := s.LatestSeq(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, uint64(10), latest)
}

func TestMemoryEventStore_Delete(t *testing.T) {
	s := NewMemoryEventStore()
	ctx := context.Background()
	_, err := s.Append(ctx, executor.Event{RunID: "r", Type: executor.EventTypeProgress})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "r"))
	events, err := s.List(ctx, "r", ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, events)

	latest, err := s.LatestSeq(ctx, "r")
	require.NoError(t, err)
	assert.Zero(t, latest)
}

func TestMemoryEventStore_ConcurrentAppend(t *testing.T) {
	s := NewMemoryEventStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Append(ctx, executor.Event{RunID: "r", Type: executor.EventTypeProgress})
		}()
	}
	wg.Wait()

	latest, err := s.LatestSeq(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, uint64(50), latest)
}

func TestRunStore_Lifecycle(t *testing.T) {
	s := NewRunStore(RunStoreOptions{})

	run := s.Create("r1")
	assert.Equal(t, executor.RunStatusRunning, run.Status)

	got, ok := s.Get("r1")
	require.True(t, ok)
	assert.Equal(t, "r1", got.ID)

	done, ok := s.Complete("r1", &droid.Result{Success: true, SessionID: "s"}, nil)
	require.True(t, ok)
	assert.Equal(t, executor.RunStatusSucceeded, done.Status)
	assert.True(t, done.Status.Terminal())

	_, ok = s.Complete("missing", nil, nil)
	assert.False(t, ok)
}

func TestRunStore_CompleteStatuses(t *testing.T) {
	s := NewRunStore(RunStoreOptions{})

	s.Create("failed")
	run, _ := s.Complete("failed", &droid.Result{Error: "droid error: boom"}, nil)
	assert.Equal(t, executor.RunStatusFailed, run.Status)
	assert.Equal(t, "droid error: boom", run.Error)

	s.Create("errored")
	run, _ = s.Complete("errored", nil, errors.New("spawn failed"))
	assert.Equal(t, executor.RunStatusError, run.Status)
	assert.Equal(t, "spawn failed", run.Error)
}

func TestRunStore_EvictsOldestAndNotifies(t *testing.T) {
	var mu sync.Mutex
	var evicted []string
	s := NewRunStore(RunStoreOptions{
		MaxRuns: 2,
		TTL:     time.Hour,
		OnEvict: func(id string) {
			mu.Lock()
			defer mu.Unlock()
			evicted = append(evicted, id)
		},
	})

	s.Create("a")
	s.Create("b")
	s.Create("c")

	_, ok := s.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 2, s.Len())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a"}, evicted)
}

func TestRunStore_ContainsKeepsRecency(t *testing.T) {
	s := NewRunStore(RunStoreOptions{MaxRuns: 2, TTL: time.Hour})
	s.Create("a")
	s.Create("b")

	assert.True(t, s.Contains("a"))
	assert.False(t, s.Contains("missing"))

	s.Create("c")
	assert.False(t, s.Contains("a"))
	assert.True(t, s.Contains("b"))
}

func TestRunStore_List(t *testing.T) {
	s := NewRunStore(RunStoreOptions{})
	s.Create("a")
	s.Create("b")

	runs := s.List()
	require.Len(t, runs, 2)
	assert.Equal(t, "a", runs[0].ID)
	assert.Equal(t, "b", runs[1].ID)
}
