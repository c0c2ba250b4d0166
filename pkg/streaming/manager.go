package streaming

import (
	"sync"

	"github.com/mylxsw/asteria/log"
	"github.com/supremeagent/droidexec/pkg/executor"
)

// subscriberBuffer is the per-subscriber channel capacity. Events for a full
// subscriber are dropped rather than blocking the run.
const subscriberBuffer = 100

// Manager fans out live run events to subscribers.
type Manager struct {
	mu          sync.RWMutex
	subscribers map[string][]chan executor.Event
	closed      map[string]bool
}

// NewManager creates a new stream manager.
func NewManager() *Manager {
	return &Manager{
		subscribers: make(map[string][]chan executor.Event),
		closed:      make(map[string]bool),
	}
}

// Publish delivers evt to every subscriber of its run without blocking.
func (m *Manager) Publish(evt executor.Event) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed[evt.RunID] {
		return
	}
	for i, ch := range m.subscribers[evt.RunID] {
		select {
		case ch <- evt:
		default:
			log.Debugf("stream: run=%s subscriber %d channel full, event %d skipped", evt.RunID, i, evt.Seq)
		}
	}
}

// Subscribe subscribes to live events of a run. The channel is closed when
// the run finishes or unsubscribe is called. Subscribing to a finished run
// yields an already closed channel.
func (m *Manager) Subscribe(runID string) (<-chan executor.Event, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan executor.Event, subscriberBuffer)
	if m.closed[runID] {
		close(ch)
		return ch, func() {}
	}
	m.subscribers[runID] = append(m.subscribers[runID], ch)
	log.Debugf("stream: run=%s total_subscribers=%d", runID, len(m.subscribers[runID]))

	unsubscribe := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		subs := m.subscribers[runID]
		for i, sub := range subs {
			if sub == ch {
				m.subscribers[runID] = append(subs[:i], subs[i+1:]...)
				close(ch)
				break
			}
		}
	}

	return ch, unsubscribe
}

// Close marks a run finished and closes all of its subscriber channels.
func (m *Manager) Close(runID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed[runID] = true
	for _, ch := range m.subscribers[runID] {
		close(ch)
	}
	delete(m.subscribers, runID)
}

// Unregister forgets a run entirely, closing any remaining subscribers.
func (m *Manager) Unregister(runID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, ch := range m.subscribers[runID] {
		close(ch)
	}
	delete(m.subscribers, runID)
	delete(m.closed, runID)
}
