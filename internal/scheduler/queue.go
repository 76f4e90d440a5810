package scheduler

// Queue is the ordered collection of pending tasks. It is a plain sequential
// container: the Scheduler is its only mutator and always calls it while
// holding the Control baton.
type Queue struct {
	tasks []*Task
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Enqueue appends task at the tail.
func (q *Queue) Enqueue(task *Task) {
	task.Status = TaskPending
	q.tasks = append(q.tasks, task)
}

// EnqueuePriority inserts task at the head. Only preempted tasks go here so
// interrupted work resumes before newer requests.
func (q *Queue) EnqueuePriority(task *Task) {
	task.Status = TaskPending
	q.tasks = append([]*Task{task}, q.tasks...)
}

// Dequeue removes and returns the head. ok is false when the queue is empty.
func (q *Queue) Dequeue() (task *Task, ok bool) {
	if len(q.tasks) == 0 {
		return nil, false
	}
	task = q.tasks[0]
	q.tasks[0] = nil
	q.tasks = q.tasks[1:]
	return task, true
}

// Clear discards all pending tasks and returns them.
func (q *Queue) Clear() []*Task {
	dropped := q.tasks
	q.tasks = nil
	return dropped
}

// Len returns the number of pending tasks.
func (q *Queue) Len() int {
	return len(q.tasks)
}

// Snapshot returns copies of the pending tasks in order.
func (q *Queue) Snapshot() []*Task {
	out := make([]*Task, 0, len(q.tasks))
	for _, t := range q.tasks {
		out = append(out, cloneTask(t))
	}
	return out
}
