package streaming

import (
	"testing"
	"time"

	"github.com/supremeagent/droidexec/pkg/executor"
)

func TestManager(t *testing.T) {
	m := NewManager()
	runID := "test-run"

	ch, unsubscribe := m.Subscribe(runID)
	defer unsubscribe()

	go m.Publish(executor.Event{RunID: runID, Seq: 1, Type: executor.EventTypeMessage, Content: "world"})

	select {
	case evt := <-ch:
		if evt.Content != "world" {
			t.Errorf("unexpected event from subscriber: %v", evt)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for subscriber notification")
	}

	m.Close(runID)

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("subscriber channel should be closed")
		}
	case <-time.After(time.Second):
		t.Error("timed out waiting for channel close")
	}
}

func TestManager_SubscribeAfterClose(t *testing.T) {
	m := NewManager()
	m.Close("done-run")

	ch, unsubscribe := m.Subscribe("done-run")
	defer unsubscribe()

	if _, ok := <-ch; ok {
		t.Error("expected closed channel for finished run")
	}

	m.Unregister("done-run")
	ch2, unsubscribe2 := m.Subscribe("done-run")
	defer unsubscribe2()

	m.Publish(executor.Event{RunID: "done-run", Seq: 1, Type: executor.EventTypeProgress})
	select {
	case evt, ok := <-ch2:
		if !ok || evt.Seq != 1 {
			t.Errorf("expected live event after unregister, got %v (open=%v)", evt, ok)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event after unregister")
	}
}

func TestManager_OtherRunsAreIsolated(t *testing.T) {
	m := NewManager()
	ch, unsubscribe := m.Subscribe("a")
	defer unsubscribe()

	m.Publish(executor.Event{RunID: "b", Type: executor.EventTypeProgress})

	select {
	case evt := <-ch:
		t.Errorf("unexpected event for other run: %v", evt)
	default:
	}
}

func TestManager_FullSubscriberDoesNotBlock(t *testing.T) {
	m := NewManager()
	_, unsubscribe := m.Subscribe("r")
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*3; i++ {
			m.Publish(executor.Event{RunID: "r", Seq: uint64(i), Type: executor.EventTypeProgress})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
}

func TestManager_Unsubscribe(t *testing.T) {
	m := NewManager()
	ch, unsubscribe := m.Subscribe("r")
	unsubscribe()

	if _, ok := <-ch; ok {
		t.Error("expected closed channel after unsubscribe")
	}
	// Publishing to a run without subscribers and closing it must not touch
	// the already closed channel.
	m.Publish(executor.Event{RunID: "r", Type: executor.EventTypeProgress})
	m.Close("r")
}
