package events

import (
	"time"
)

// Event is the base interface for all events.
type Event interface {
	EventType() string
	TaskID() string
}

// Topic constants
const (
	TopicTask  = "task"
	TopicAgent = "agent"
)

// Event type constants
const (
	EventTypeTaskQueued    = "task.queued"
	EventTypeTaskStarted   = "task.started"
	EventTypeTaskOutput    = "task.output"
	EventTypeTaskCompleted = "task.completed"
	EventTypeTaskFailed    = "task.failed"
	EventTypeTaskPreempted = "task.preempted"
	EventTypeTaskCancelled = "task.cancelled"
	EventTypeTaskRejected  = "task.rejected"
	EventTypeQueueCleared  = "queue.cleared"
	EventTypeDefense       = "agent.defense"
	EventTypeNotice        = "agent.notice"
	EventTypeStatus        = "agent.status"
)

// TaskQueuedEvent is published when a submitted task is accepted.
// Position is 1-based; 0 means the task started immediately.
type TaskQueuedEvent struct {
	ID        string
	Name      string
	Args      []string
	Requester string
	Position  int
	Timestamp time.Time
}

func (e TaskQueuedEvent) EventType() string { return EventTypeTaskQueued }
func (e TaskQueuedEvent) TaskID() string    { return e.ID }

// TaskStartedEvent is published when a task enters Running.
type TaskStartedEvent struct {
	ID        string
	Name      string
	Requester string
	Attempt   int
	Timestamp time.Time
}

func (e TaskStartedEvent) EventType() string { return EventTypeTaskStarted }
func (e TaskStartedEvent) TaskID() string    { return e.ID }

// TaskOutputEvent carries a progress line from a task body to its requester.
type TaskOutputEvent struct {
	ID        string
	Requester string
	Line      string
	Timestamp time.Time
}

func (e TaskOutputEvent) EventType() string { return EventTypeTaskOutput }
func (e TaskOutputEvent) TaskID() string    { return e.ID }

// TaskCompletedEvent is published when a task completes successfully.
type TaskCompletedEvent struct {
	ID        string
	Name      string
	Requester string
	Duration  time.Duration
	Timestamp time.Time
}

func (e TaskCompletedEvent) EventType() string { return EventTypeTaskCompleted }
func (e TaskCompletedEvent) TaskID() string    { return e.ID }

// TaskFailedEvent is published when a task fails.
type TaskFailedEvent struct {
	ID        string
	Name      string
	Requester string
	Err       error
	Duration  time.Duration
	Timestamp time.Time
}

func (e TaskFailedEvent) EventType() string { return EventTypeTaskFailed }
func (e TaskFailedEvent) TaskID() string    { return e.ID }

// TaskPreemptedEvent is published when self-defense interrupts a task. The
// task is back at the head of the queue by the time this is delivered.
type TaskPreemptedEvent struct {
	ID        string
	Name      string
	Requester string
	Attempt   int
	Timestamp time.Time
}

func (e TaskPreemptedEvent) EventType() string { return EventTypeTaskPreempted }
func (e TaskPreemptedEvent) TaskID() string    { return e.ID }

// TaskCancelledEvent is published when a task is dropped without finishing.
type TaskCancelledEvent struct {
	ID        string
	Name      string
	Requester string
	Reason    string
	Timestamp time.Time
}

func (e TaskCancelledEvent) EventType() string { return EventTypeTaskCancelled }
func (e TaskCancelledEvent) TaskID() string    { return e.ID }

// TaskRejectedEvent is published when a submission is refused.
type TaskRejectedEvent struct {
	Name      string
	Requester string
	Reason    string
	Timestamp time.Time
}

func (e TaskRejectedEvent) EventType() string { return EventTypeTaskRejected }
func (e TaskRejectedEvent) TaskID() string    { return "" }

// QueueClearedEvent is published when pending tasks are discarded in bulk.
type QueueClearedEvent struct {
	Count     int
	Reason    string
	Timestamp time.Time
}

func (e QueueClearedEvent) EventType() string { return EventTypeQueueCleared }
func (e QueueClearedEvent) TaskID() string    { return "" }

// DefenseEvent is an announcement from the defense monitor. Action is
// "attack" or "flee"; one is published per (TargetID, Action) engagement.
type DefenseEvent struct {
	Action     string
	TargetID   int
	TargetName string
	Text       string
	Timestamp  time.Time
}

func (e DefenseEvent) EventType() string { return EventTypeDefense }
func (e DefenseEvent) TaskID() string    { return "" }

// NoticeEvent is a free-form line the agent wants said out loud. Requester
// is empty for broadcast notices.
type NoticeEvent struct {
	Source    string
	Requester string
	Text      string
	Timestamp time.Time
}

func (e NoticeEvent) EventType() string { return EventTypeNotice }
func (e NoticeEvent) TaskID() string    { return "" }

// StatusEvent is a snapshot of the agent published after each monitor tick.
type StatusEvent struct {
	Current   string // name of the running task, "" when idle
	Pending   []string
	Defending bool
	Staying   bool
	Following string
	Guarding  string
	Eating    bool
	Food      int
	Health    float64
	Timestamp time.Time
}

func (e StatusEvent) EventType() string { return EventTypeStatus }
func (e StatusEvent) TaskID() string    { return "" }
