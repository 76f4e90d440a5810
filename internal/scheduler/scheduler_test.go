package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/rodentplay/rodentbot/internal/events"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestScheduler(t *testing.T) (*Scheduler, *events.Subscription) {
	t.Helper()
	bus := events.NewEventBus()
	sub := bus.Subscribe(events.TopicTask, 64)
	s := New(Config{Bus: bus})
	t.Cleanup(func() {
		s.Shutdown()
		bus.Close()
	})
	return s, sub
}

// waitFor drains sub until an event of the given type for the named task
// arrives.
func waitFor(t *testing.T, sub *events.Subscription, eventType, name string) events.Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-sub.C:
			if ev.EventType() == eventType && eventName(ev) == name {
				return ev
			}
		case <-deadline:
			t.Fatalf("timeout waiting for %s of %q", eventType, name)
			return nil
		}
	}
}

func eventName(ev events.Event) string {
	switch e := ev.(type) {
	case events.TaskQueuedEvent:
		return e.Name
	case events.TaskStartedEvent:
		return e.Name
	case events.TaskCompletedEvent:
		return e.Name
	case events.TaskFailedEvent:
		return e.Name
	case events.TaskPreemptedEvent:
		return e.Name
	case events.TaskCancelledEvent:
		return e.Name
	case events.TaskRejectedEvent:
		return e.Name
	}
	return ""
}

func recvInt(t *testing.T, ch <-chan int) int {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for task body")
		return 0
	}
}

// gated blocks in a suspension until gate closes, reporting each attempt.
func gated(gate <-chan struct{}, started chan<- int) Body {
	return func(ctx context.Context, x *Exec, args []string, requester string) error {
		started <- x.Attempt()
		return x.Suspend(func(ctx context.Context) error {
			select {
			case <-gate:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}
}

func noop(context.Context, *Exec, []string, string) error { return nil }

func TestSubmitStartsImmediatelyWhenIdle(t *testing.T) {
	s, sub := newTestScheduler(t)
	gate := make(chan struct{})
	started := make(chan int, 1)

	s.Control().Do(func() {
		require.NoError(t, s.Submit(NewTask("goto", gated(gate, started), []string{"1", "2", "3"}, "alice")))
		cur := s.Current()
		require.NotNil(t, cur)
		assert.Equal(t, TaskRunning, cur.Status)
		assert.Equal(t, 1, cur.Attempts)
		assert.Empty(t, s.Pending())
	})

	assert.Equal(t, 1, recvInt(t, started))
	close(gate)
	waitFor(t, sub, events.EventTypeTaskCompleted, "goto")

	s.Control().Do(func() {
		assert.Nil(t, s.Current())
	})
}

func TestTasksRunInSubmissionOrder(t *testing.T) {
	s, sub := newTestScheduler(t)

	var mu sync.Mutex
	var order []string
	record := func(ctx context.Context, x *Exec, args []string, requester string) error {
		if err := x.Yield(); err != nil {
			return err
		}
		mu.Lock()
		order = append(order, args[0])
		mu.Unlock()
		return nil
	}

	s.Control().Do(func() {
		for _, name := range []string{"a", "b", "c"} {
			require.NoError(t, s.Submit(NewTask(name, record, []string{name}, "alice")))
		}
		assert.Len(t, s.Pending(), 2)
	})

	waitFor(t, sub, events.EventTypeTaskCompleted, "c")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestQueuedEventReportsPosition(t *testing.T) {
	s, sub := newTestScheduler(t)
	gate := make(chan struct{})
	started := make(chan int, 1)

	s.Control().Do(func() {
		require.NoError(t, s.Submit(NewTask("first", gated(gate, started), nil, "alice")))
		require.NoError(t, s.Submit(NewTask("second", noop, nil, "bob")))
		require.NoError(t, s.Submit(NewTask("third", noop, nil, "bob")))
	})

	first := waitFor(t, sub, events.EventTypeTaskQueued, "first").(events.TaskQueuedEvent)
	second := waitFor(t, sub, events.EventTypeTaskQueued, "second").(events.TaskQueuedEvent)
	third := waitFor(t, sub, events.EventTypeTaskQueued, "third").(events.TaskQueuedEvent)
	assert.Equal(t, 0, first.Position)
	assert.Equal(t, 1, second.Position)
	assert.Equal(t, 2, third.Position)

	recvInt(t, started)
	close(gate)
	waitFor(t, sub, events.EventTypeTaskCompleted, "third")
}

func TestPreemptedTaskResumesBeforeNewerWork(t *testing.T) {
	s, sub := newTestScheduler(t)
	gate := make(chan struct{})
	started := make(chan int, 4)

	s.Control().Do(func() {
		require.NoError(t, s.Submit(NewTask("a", gated(gate, started), []string{"10", "64", "10"}, "alice")))
		require.NoError(t, s.Submit(NewTask("b", noop, nil, "bob")))
	})
	require.Equal(t, 1, recvInt(t, started))

	s.Control().Do(func() {
		s.Token().Arm(Target{ID: 7, Name: "zombie"})
	})
	waitFor(t, sub, events.EventTypeTaskPreempted, "a")

	s.Control().Do(func() {
		assert.Nil(t, s.Current())
		pending := s.Pending()
		require.Len(t, pending, 2)
		assert.Equal(t, "a", pending[0].Name)
		assert.Equal(t, TaskPending, pending[0].Status)
		assert.Equal(t, 1, pending[0].Attempts)
		assert.Equal(t, []string{"10", "64", "10"}, pending[0].Args)
		assert.Equal(t, "b", pending[1].Name)

		// Nothing starts while armed.
		s.Advance()
		assert.Nil(t, s.Current())

		s.Token().Disarm()
		cur := s.Current()
		require.NotNil(t, cur)
		assert.Equal(t, "a", cur.Name)
	})

	require.Equal(t, 2, recvInt(t, started))
	close(gate)
	waitFor(t, sub, events.EventTypeTaskCompleted, "a")
	waitFor(t, sub, events.EventTypeTaskCompleted, "b")
}

func TestCheckInterruptStopsLoopingBody(t *testing.T) {
	s, sub := newTestScheduler(t)
	steps := make(chan int, 100)

	body := func(ctx context.Context, x *Exec, args []string, requester string) error {
		for i := 0; ; i++ {
			if err := x.CheckInterrupt(); err != nil {
				return err
			}
			steps <- i
			if err := x.Sleep(time.Millisecond); err != nil {
				return err
			}
			if i == 50 {
				return errors.New("never preempted")
			}
		}
	}

	s.Control().Do(func() {
		require.NoError(t, s.Submit(NewTask("flatten", body, nil, "alice")))
	})
	recvInt(t, steps)

	s.Control().Do(func() {
		s.Token().Arm(Target{ID: 1, Name: "skeleton"})
	})
	waitFor(t, sub, events.EventTypeTaskPreempted, "flatten")

	s.Control().Do(func() {
		// Drop the re-queued task so cleanup does not restart it.
		assert.Equal(t, 1, s.Clear("test"))
	})
}

func TestArmedTokenDefersNewSubmissions(t *testing.T) {
	s, sub := newTestScheduler(t)

	s.Control().Do(func() {
		s.Token().Arm(Target{ID: 3, Name: "spider"})
		require.NoError(t, s.Submit(NewTask("deliver", noop, nil, "alice")))
		assert.Nil(t, s.Current())
		assert.Len(t, s.Pending(), 1)
		s.Token().Disarm()
	})

	waitFor(t, sub, events.EventTypeTaskCompleted, "deliver")
}

func TestFailureDoesNotBlockQueue(t *testing.T) {
	s, sub := newTestScheduler(t)

	failing := func(ctx context.Context, x *Exec, args []string, requester string) error {
		return Failf("no %s nearby", args[0])
	}
	panicking := func(ctx context.Context, x *Exec, args []string, requester string) error {
		panic("boom")
	}

	s.Control().Do(func() {
		require.NoError(t, s.Submit(NewTask("gather", failing, []string{"oak_log"}, "alice")))
		require.NoError(t, s.Submit(NewTask("broken", panicking, nil, "alice")))
		require.NoError(t, s.Submit(NewTask("goto", noop, nil, "alice")))
	})

	failed := waitFor(t, sub, events.EventTypeTaskFailed, "gather").(events.TaskFailedEvent)
	var te *TaskError
	require.ErrorAs(t, failed.Err, &te)
	assert.Equal(t, "no oak_log nearby", te.Reason)

	panicked := waitFor(t, sub, events.EventTypeTaskFailed, "broken").(events.TaskFailedEvent)
	assert.Contains(t, panicked.Err.Error(), "boom")

	waitFor(t, sub, events.EventTypeTaskCompleted, "goto")
}

func TestStayCancelsAndRejects(t *testing.T) {
	s, sub := newTestScheduler(t)
	gate := make(chan struct{})
	defer close(gate)
	started := make(chan int, 1)

	s.Control().Do(func() {
		require.NoError(t, s.Submit(NewTask("flatten", gated(gate, started), nil, "alice")))
		require.NoError(t, s.Submit(NewTask("goto", noop, nil, "alice")))
	})
	recvInt(t, started)

	s.Control().Do(func() {
		assert.Equal(t, 2, s.Stay())
		assert.True(t, s.State().Staying)
		assert.Empty(t, s.Pending())
	})

	cancelled := waitFor(t, sub, events.EventTypeTaskCancelled, "flatten").(events.TaskCancelledEvent)
	assert.Equal(t, "stay", cancelled.Reason)

	s.Control().Do(func() {
		assert.Nil(t, s.Current())
		err := s.Submit(NewTask("gather", noop, nil, "bob"))
		assert.ErrorIs(t, err, ErrStaying)
		assert.Empty(t, s.Pending())
	})
	waitFor(t, sub, events.EventTypeTaskRejected, "gather")

	s.Control().Do(func() {
		s.Resume()
		require.NoError(t, s.Submit(NewTask("gather", noop, nil, "bob")))
	})
	waitFor(t, sub, events.EventTypeTaskCompleted, "gather")
}

func TestResetKeepsSustainState(t *testing.T) {
	s, sub := newTestScheduler(t)
	gate := make(chan struct{})
	defer close(gate)
	started := make(chan int, 1)

	s.Control().Do(func() {
		require.NoError(t, s.Submit(NewTask("gather", gated(gate, started), nil, "alice")))
		st := s.State()
		st.Following = "alice"
		st.Guarding = "bob"
		st.Staying = true
		st.Eating = true
	})
	recvInt(t, started)

	s.Control().Do(func() {
		assert.Equal(t, 1, s.Reset())
		st := s.State()
		assert.False(t, st.Staying)
		assert.Empty(t, st.Following)
		assert.Empty(t, st.Guarding)
		assert.True(t, st.Eating, "eating belongs to the sustain monitor")
	})

	cancelled := waitFor(t, sub, events.EventTypeTaskCancelled, "gather").(events.TaskCancelledEvent)
	assert.Equal(t, "death", cancelled.Reason)
}

func TestCancellationWinsOverPreemption(t *testing.T) {
	s, sub := newTestScheduler(t)
	gate := make(chan struct{})
	defer close(gate)
	started := make(chan int, 1)

	s.Control().Do(func() {
		require.NoError(t, s.Submit(NewTask("goto", gated(gate, started), nil, "alice")))
	})
	recvInt(t, started)

	s.Control().Do(func() {
		s.Token().Arm(Target{ID: 9, Name: "creeper"})
		s.Drop("follow")
	})
	waitFor(t, sub, events.EventTypeTaskCancelled, "goto")

	s.Control().Do(func() {
		assert.Empty(t, s.Pending())
		s.Token().Disarm()
		assert.Nil(t, s.Current())
	})
}

func TestArgsAreCopied(t *testing.T) {
	args := []string{"oak_log", "4"}
	task := NewTask("gather", noop, args, "alice")
	args[0] = "dirt"

	assert.Equal(t, "oak_log", task.Args[0])
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, TaskPending, task.Status)
}

func TestShutdownCancelsRunningTask(t *testing.T) {
	bus := events.NewEventBus()
	defer bus.Close()
	sub := bus.Subscribe(events.TopicTask, 16)
	s := New(Config{Bus: bus})

	started := make(chan int, 1)
	s.Control().Do(func() {
		require.NoError(t, s.Submit(NewTask("goto", gated(make(chan struct{}), started), nil, "alice")))
	})
	recvInt(t, started)

	s.Shutdown()
	ev := waitFor(t, sub, events.EventTypeTaskCancelled, "goto").(events.TaskCancelledEvent)
	assert.Equal(t, "shutdown", ev.Reason)

	s.Control().Do(func() {
		assert.Error(t, s.Submit(NewTask("late", noop, nil, "alice")))
	})
}
