package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rodentplay/rodentbot/internal/events"
)

// Publisher receives lifecycle events. *events.EventBus satisfies it.
type Publisher interface {
	Publish(topic string, event events.Event)
}

// Config wires a Scheduler to its collaborators. Nil fields get defaults.
type Config struct {
	Control *Control
	Token   *Token
	State   *AgentState
	Bus     Publisher
	Logger  *zap.Logger
	Clock   func() time.Time
}

// Scheduler owns the task queue and the current task. At most one task is
// Running at a time, and none start while the token is armed or the agent
// is staying.
//
// All exported methods except Shutdown must be called while holding the
// Control baton.
type Scheduler struct {
	ctl    *Control
	queue  *Queue
	token  *Token
	state  *AgentState
	bus    Publisher
	logger *zap.Logger
	now    func() time.Time

	current       *Task
	suspendCancel context.CancelFunc

	base   context.Context
	stop   context.CancelFunc
	wg     sync.WaitGroup
	closed bool
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, events.Event) {}

// New creates a Scheduler and binds it to the token, so arming interrupts
// the running task and disarming pulls the next one.
func New(cfg Config) *Scheduler {
	if cfg.Control == nil {
		cfg.Control = &Control{}
	}
	if cfg.Token == nil {
		cfg.Token = NewToken()
	}
	if cfg.State == nil {
		cfg.State = &AgentState{}
	}
	if cfg.Bus == nil {
		cfg.Bus = nopPublisher{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	base, stop := context.WithCancel(context.Background())
	s := &Scheduler{
		ctl:    cfg.Control,
		queue:  NewQueue(),
		token:  cfg.Token,
		state:  cfg.State,
		bus:    cfg.Bus,
		logger: cfg.Logger.Named("scheduler"),
		now:    cfg.Clock,
		base:   base,
		stop:   stop,
	}
	s.token.interrupt = s.abortSuspension
	s.token.resume = s.Advance
	return s
}

// Control returns the baton guarding this scheduler.
func (s *Scheduler) Control() *Control { return s.ctl }

// Token returns the cancellation token bound to this scheduler.
func (s *Scheduler) Token() *Token { return s.token }

// State returns the agent state shared with monitors and commands.
func (s *Scheduler) State() *AgentState { return s.state }

// Submit accepts a task. It starts immediately when the agent is idle,
// otherwise it is appended to the queue. While staying, the task is rejected
// with ErrStaying.
func (s *Scheduler) Submit(task *Task) error {
	if s.closed {
		return fmt.Errorf("%w: shutting down", ErrCancelled)
	}
	if s.state.Staying {
		s.publish(events.TopicTask, events.TaskRejectedEvent{
			Name:      task.Name,
			Requester: task.Requester,
			Reason:    ErrStaying.Error(),
			Timestamp: s.now(),
		})
		return ErrStaying
	}

	if s.current == nil && !s.token.Armed() && s.queue.Len() == 0 {
		s.publish(events.TopicTask, events.TaskQueuedEvent{
			ID:        task.ID,
			Name:      task.Name,
			Args:      append([]string(nil), task.Args...),
			Requester: task.Requester,
			Timestamp: s.now(),
		})
		s.run(task)
		return nil
	}

	s.queue.Enqueue(task)
	s.logger.Debug("task queued",
		zap.String("task", task.Name),
		zap.String("id", task.ID),
		zap.Int("position", s.queue.Len()))
	s.publish(events.TopicTask, events.TaskQueuedEvent{
		ID:        task.ID,
		Name:      task.Name,
		Args:      append([]string(nil), task.Args...),
		Requester: task.Requester,
		Position:  s.queue.Len(),
		Timestamp: s.now(),
	})
	return nil
}

// Advance starts the head of the queue if nothing is running, the token is
// disarmed and the agent is not staying. Otherwise it does nothing.
func (s *Scheduler) Advance() {
	if s.closed || s.current != nil || s.token.Armed() || s.state.Staying {
		return
	}
	task, ok := s.queue.Dequeue()
	if !ok {
		return
	}
	s.run(task)
}

func (s *Scheduler) run(task *Task) {
	task.Status = TaskRunning
	task.Attempts++
	task.startedAt = s.now()
	s.current = task

	s.logger.Info("task started",
		zap.String("task", task.Name),
		zap.String("id", task.ID),
		zap.String("requester", task.Requester),
		zap.Int("attempt", task.Attempts))
	s.publish(events.TopicTask, events.TaskStartedEvent{
		ID:        task.ID,
		Name:      task.Name,
		Requester: task.Requester,
		Attempt:   task.Attempts,
		Timestamp: task.startedAt,
	})

	s.wg.Add(1)
	go s.execute(task)
}

// execute is the body goroutine. It takes the baton before the first line of
// the body runs and hands it back when the body returns.
func (s *Scheduler) execute(task *Task) {
	defer s.wg.Done()

	s.ctl.lock()
	defer s.ctl.unlock()

	x := &Exec{s: s, task: task}
	err := x.CheckInterrupt()
	if err == nil {
		err = s.invoke(x, task)
	}
	s.finish(task, err)
}

func (s *Scheduler) invoke(x *Exec, task *Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", task.Name, r)
		}
	}()
	return task.body(s.base, x, append([]string(nil), task.Args...), task.Requester)
}

// finish classifies the body's outcome and pulls the next task.
func (s *Scheduler) finish(task *Task, err error) {
	if s.current == task {
		s.current = nil
	}
	elapsed := s.now().Sub(task.startedAt)

	switch {
	case task.cancelReason != "" || errors.Is(err, ErrCancelled):
		reason := task.cancelReason
		if reason == "" {
			reason = "shutdown"
		}
		task.Status = TaskCancelled
		task.Err = err
		s.logger.Info("task cancelled", zap.String("task", task.Name), zap.String("reason", reason))
		s.publish(events.TopicTask, events.TaskCancelledEvent{
			ID:        task.ID,
			Name:      task.Name,
			Requester: task.Requester,
			Reason:    reason,
			Timestamp: s.now(),
		})

	case errors.Is(err, ErrPreempted):
		task.Status = TaskPreempted
		s.queue.EnqueuePriority(task)
		s.logger.Info("task preempted", zap.String("task", task.Name), zap.Int("attempt", task.Attempts))
		s.publish(events.TopicTask, events.TaskPreemptedEvent{
			ID:        task.ID,
			Name:      task.Name,
			Requester: task.Requester,
			Attempt:   task.Attempts,
			Timestamp: s.now(),
		})
		// The token is armed; Disarm will call Advance.
		return

	case err != nil:
		task.Status = TaskFailed
		task.Err = err
		s.logger.Warn("task failed", zap.String("task", task.Name), zap.Error(err))
		s.publish(events.TopicTask, events.TaskFailedEvent{
			ID:        task.ID,
			Name:      task.Name,
			Requester: task.Requester,
			Err:       err,
			Duration:  elapsed,
			Timestamp: s.now(),
		})

	default:
		task.Status = TaskCompleted
		s.logger.Info("task completed", zap.String("task", task.Name), zap.Duration("duration", elapsed))
		s.publish(events.TopicTask, events.TaskCompletedEvent{
			ID:        task.ID,
			Name:      task.Name,
			Requester: task.Requester,
			Duration:  elapsed,
			Timestamp: s.now(),
		})
	}

	s.Advance()
}

// CancelCurrent drops the running task. Its body observes ErrCancelled at
// its next interrupt check. Returns false when nothing is running.
func (s *Scheduler) CancelCurrent(reason string) bool {
	if s.current == nil {
		return false
	}
	if s.current.cancelReason == "" {
		s.current.cancelReason = reason
	}
	s.abortSuspension()
	return true
}

// Clear discards every pending task and returns how many were dropped.
func (s *Scheduler) Clear(reason string) int {
	dropped := s.queue.Clear()
	for _, t := range dropped {
		t.Status = TaskCancelled
		t.cancelReason = reason
	}
	if len(dropped) > 0 {
		s.publish(events.TopicTask, events.QueueClearedEvent{
			Count:     len(dropped),
			Reason:    reason,
			Timestamp: s.now(),
		})
	}
	return len(dropped)
}

// Drop cancels the running task and clears the queue. Follow, guard and
// death all go through here.
func (s *Scheduler) Drop(reason string) int {
	n := s.Clear(reason)
	if s.CancelCurrent(reason) {
		n++
	}
	return n
}

// Stay cancels the running task, clears the queue and rejects submissions
// until Resume.
func (s *Scheduler) Stay() int {
	s.state.Staying = true
	s.state.Following = ""
	return s.Drop("stay")
}

// Follow switches to following name. The running task and the queue are
// dropped and stay mode is lifted.
func (s *Scheduler) Follow(name string) int {
	s.state.Following = name
	s.state.Staying = false
	return s.Drop("follow")
}

// Guard switches to protecting name, with the same disposition change as
// Follow.
func (s *Scheduler) Guard(name string) int {
	s.state.Guarding = name
	s.state.Staying = false
	return s.Drop("guard")
}

// Reset returns the agent to a blank slate after death. The token is left to
// the defense monitor and Eating to the sustain monitor, which own them.
func (s *Scheduler) Reset() int {
	s.state.Staying = false
	s.state.Following = ""
	s.state.Guarding = ""
	return s.Drop("death")
}

// Resume lifts stay mode and advances.
func (s *Scheduler) Resume() {
	s.state.Staying = false
	s.Advance()
}

// Current returns a copy of the running task, or nil.
func (s *Scheduler) Current() *Task {
	return cloneTask(s.current)
}

// Pending returns copies of the queued tasks in run order.
func (s *Scheduler) Pending() []*Task {
	return s.queue.Snapshot()
}

// Busy reports whether a task is running.
func (s *Scheduler) Busy() bool {
	return s.current != nil
}

// Shutdown cancels the running task, clears the queue and waits for the
// body goroutine to return. It must be called WITHOUT holding the baton.
func (s *Scheduler) Shutdown() {
	s.ctl.Do(func() {
		if s.closed {
			return
		}
		s.Drop("shutdown")
		s.closed = true
		s.stop()
	})
	s.wg.Wait()
}

func (s *Scheduler) abortSuspension() {
	if s.suspendCancel != nil {
		s.suspendCancel()
	}
}

func (s *Scheduler) publish(topic string, ev events.Event) {
	s.bus.Publish(topic, ev)
}
