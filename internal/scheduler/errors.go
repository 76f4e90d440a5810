package scheduler

import (
	"errors"
	"fmt"
)

// ErrPreempted is returned from a suspension point or CheckInterrupt when
// self-defense has taken control. It must reach the Scheduler unchanged.
var ErrPreempted = errors.New("preempted for self-defense")

// ErrCancelled is returned once a disposition change dropped the task.
var ErrCancelled = errors.New("task cancelled")

// ErrStaying is returned by Submit while the agent is in stay mode.
var ErrStaying = errors.New("agent is staying put")

// TaskError is a recoverable task failure whose Reason is shown to the
// requester verbatim.
type TaskError struct {
	Reason string
	Err    error
}

func (e *TaskError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *TaskError) Unwrap() error { return e.Err }

// Failf builds a TaskError from a format string.
func Failf(format string, args ...any) error {
	return &TaskError{Reason: fmt.Sprintf(format, args...)}
}

// Interrupted reports whether err is a preemption or cancellation, the two
// outcomes task code must propagate instead of handling.
func Interrupted(err error) bool {
	return errors.Is(err, ErrPreempted) || errors.Is(err, ErrCancelled)
}
