package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the current state of a task.
type TaskStatus int

const (
	TaskPending   TaskStatus = iota // Waiting in the queue
	TaskRunning                     // Body executing
	TaskPreempted                   // Interrupted by self-defense, re-queued at the head
	TaskCompleted                   // Body returned nil
	TaskFailed                      // Body returned an error
	TaskCancelled                   // Dropped by a disposition change (stay, follow, guard, death)
)

func (s TaskStatus) String() string {
	switch s {
	case TaskPending:
		return "pending"
	case TaskRunning:
		return "running"
	case TaskPreempted:
		return "preempted"
	case TaskCompleted:
		return "completed"
	case TaskFailed:
		return "failed"
	case TaskCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status ends the task's lifecycle.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed || s == TaskCancelled
}

// Body is a resumable task procedure. It must call x.CheckInterrupt at every
// loop iteration and perform every wait through x.Suspend or x.Sleep, and it
// must return ErrPreempted and ErrCancelled unchanged.
type Body func(ctx context.Context, x *Exec, args []string, requester string) error

// Task represents one interruptible unit of agent work.
type Task struct {
	ID        string    // Unique identifier
	Name      string    // Command name used in acknowledgements and logs
	Args      []string  // Immutable argument list
	Requester string    // Who issued the task
	Status    TaskStatus
	Err       error     // Error if failed
	Attempts  int       // Number of times the task entered Running
	CreatedAt time.Time

	body         Body
	cancelReason string // non-empty once a disposition change dropped the task
	startedAt    time.Time
}

// NewTask creates a pending task. args is copied so later changes by the
// caller never reach the task.
func NewTask(name string, body Body, args []string, requester string) *Task {
	return &Task{
		ID:        uuid.NewString(),
		Name:      name,
		Args:      append([]string(nil), args...),
		Requester: requester,
		Status:    TaskPending,
		CreatedAt: time.Now(),
		body:      body,
	}
}

func cloneTask(task *Task) *Task {
	if task == nil {
		return nil
	}

	cp := *task
	if task.Args != nil {
		cp.Args = append([]string(nil), task.Args...)
	}
	return &cp
}
