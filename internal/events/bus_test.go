package events

import (
	"errors"
	"testing"
	"time"
)

func recv(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case ev, ok := <-sub.C:
		if !ok {
			t.Fatal("subscription closed")
		}
		return ev
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}
	return nil
}

func TestPublishSubscribe(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	sub := bus.Subscribe(TopicTask, 10)

	bus.Publish(TopicTask, TaskStartedEvent{
		ID:        "task-1",
		Name:      "goto",
		Requester: "alice",
		Attempt:   1,
		Timestamp: time.Now(),
	})

	received := recv(t, sub)
	if received.TaskID() != "task-1" {
		t.Errorf("expected task ID 'task-1', got '%s'", received.TaskID())
	}
	if received.EventType() != EventTypeTaskStarted {
		t.Errorf("expected event type '%s', got '%s'", EventTypeTaskStarted, received.EventType())
	}
}

func TestMultipleSubscribers(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	sub1 := bus.Subscribe(TopicTask, 10)
	sub2 := bus.Subscribe(TopicTask, 10)

	bus.Publish(TopicTask, TaskFailedEvent{
		ID:        "task-2",
		Name:      "gather",
		Err:       errors.New("no oak_log nearby"),
		Timestamp: time.Now(),
	})

	for i, sub := range []*Subscription{sub1, sub2} {
		if got := recv(t, sub).TaskID(); got != "task-2" {
			t.Errorf("subscriber %d: expected task ID 'task-2', got '%s'", i+1, got)
		}
	}
}

// A full subscriber must never block the publisher, who is holding the
// agent's control baton.
func TestNonBlockingSend(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	sub := bus.Subscribe(TopicTask, 1)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			bus.Publish(TopicTask, TaskOutputEvent{ID: "task", Line: "digging"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("publisher blocked (expected non-blocking behavior)")
	}

	if got := sub.Dropped(); got != 9 {
		t.Errorf("expected 9 dropped events, got %d", got)
	}
	if recv(t, sub) == nil {
		t.Error("received nil event")
	}
}

func TestCloseSignalsSubscribers(t *testing.T) {
	bus := NewEventBus()
	sub := bus.Subscribe(TopicTask, 10)

	bus.Close()

	received := 0
	for range sub.C {
		received++
	}
	if received != 0 {
		t.Errorf("expected 0 events after close, got %d", received)
	}

	// Closing the subscription after the bus must not panic.
	sub.Close()
}

func TestPublishAfterClose(t *testing.T) {
	bus := NewEventBus()
	sub := bus.Subscribe(TopicTask, 10)

	bus.Close()

	defer func() {
		if r := recover(); r != nil {
			t.Errorf("publishing after close caused panic: %v", r)
		}
	}()

	bus.Publish(TopicTask, TaskStartedEvent{ID: "task-1"})

	if _, ok := <-sub.C; ok {
		t.Error("received event after bus was closed")
	}
}

func TestSubscribeAfterClose(t *testing.T) {
	bus := NewEventBus()
	bus.Close()

	sub := bus.SubscribeAll(1)
	if _, ok := <-sub.C; ok {
		t.Error("expected closed channel from a closed bus")
	}
	sub.Close()
}

func TestUnsubscribe(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	keep := bus.Subscribe(TopicAgent, 10)
	gone := bus.Subscribe(TopicAgent, 10)
	gone.Close()
	gone.Close()

	bus.Publish(TopicAgent, NoticeEvent{Source: "sustain", Text: "eating bread"})

	if _, ok := <-gone.C; ok {
		t.Error("closed subscription received an event")
	}
	if got := recv(t, keep).EventType(); got != EventTypeNotice {
		t.Errorf("expected %s, got %s", EventTypeNotice, got)
	}
}

func TestMultipleTopics(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	taskSub := bus.Subscribe(TopicTask, 10)
	agentSub := bus.Subscribe(TopicAgent, 10)

	bus.Publish(TopicTask, TaskStartedEvent{ID: "task-1", Name: "flatten"})
	bus.Publish(TopicAgent, DefenseEvent{Action: "attack", TargetID: 7, TargetName: "zombie"})

	if got := recv(t, taskSub).EventType(); got != EventTypeTaskStarted {
		t.Errorf("task channel: expected task event, got %s", got)
	}
	if got := recv(t, agentSub).EventType(); got != EventTypeDefense {
		t.Errorf("agent channel: expected defense event, got %s", got)
	}

	select {
	case <-taskSub.C:
		t.Error("task channel received unexpected event")
	case <-agentSub.C:
		t.Error("agent channel received unexpected event")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestSubscribeAll(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	all := bus.SubscribeAll(20)

	bus.Publish(TopicTask, TaskQueuedEvent{ID: "task-1", Name: "goto", Position: 2})
	bus.Publish(TopicAgent, StatusEvent{Current: "goto", Food: 20})

	receivedTypes := make(map[string]bool)
	for i := 0; i < 2; i++ {
		receivedTypes[recv(t, all).EventType()] = true
	}

	if !receivedTypes[EventTypeTaskQueued] {
		t.Error("SubscribeAll did not receive task event")
	}
	if !receivedTypes[EventTypeStatus] {
		t.Error("SubscribeAll did not receive status event")
	}

	select {
	case <-all.C:
		t.Error("received unexpected third event")
	case <-time.After(10 * time.Millisecond):
	}
}
