package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rodentplay/rodentbot/internal/events"
)

// Exec is a running task's handle on the scheduler. Every method must be
// called from the task body while it holds the control baton, which is
// always the case outside of Suspend.
type Exec struct {
	s    *Scheduler
	task *Task
}

// CheckInterrupt reports whether the task must stop now. Cancellation wins
// over preemption so a dropped task is never re-queued.
func (x *Exec) CheckInterrupt() error {
	if x.task.cancelReason != "" {
		return fmt.Errorf("%w: %s", ErrCancelled, x.task.cancelReason)
	}
	return x.s.token.CheckInterrupt()
}

// Suspend releases the control baton while fn runs, so monitors and commands
// can be served. ctx is cancelled when the token is armed or the task is
// dropped; fn should return promptly once that happens. The interrupt check
// on wake takes priority over fn's own result.
func (x *Exec) Suspend(fn func(ctx context.Context) error) error {
	if err := x.CheckInterrupt(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(x.s.base)
	x.s.suspendCancel = cancel

	var err error
	x.s.ctl.Suspend(func() {
		err = fn(ctx)
	})

	x.s.suspendCancel = nil
	cancel()

	if ierr := x.CheckInterrupt(); ierr != nil {
		return ierr
	}
	if err != nil && x.s.base.Err() != nil {
		return fmt.Errorf("%w: shutting down", ErrCancelled)
	}
	return err
}

// Sleep is a suspension point that waits for d.
func (x *Exec) Sleep(d time.Duration) error {
	return x.Suspend(func(ctx context.Context) error {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}

// Yield is a zero-length suspension point.
func (x *Exec) Yield() error {
	return x.Suspend(func(context.Context) error { return nil })
}

// Notify sends a progress line to the task's requester.
func (x *Exec) Notify(format string, args ...any) {
	x.s.publish(events.TopicTask, events.TaskOutputEvent{
		ID:        x.task.ID,
		Requester: x.task.Requester,
		Line:      fmt.Sprintf(format, args...),
		Timestamp: x.s.now(),
	})
}

// Attempt returns how many times the task has entered Running, including
// the current run.
func (x *Exec) Attempt() int {
	return x.task.Attempts
}

// State exposes the agent state to the body.
func (x *Exec) State() *AgentState {
	return x.s.state
}
