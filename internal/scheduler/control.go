package scheduler

import "sync"

// Control is the agent's single logical thread of control. Monitor ticks,
// inbound commands and task bodies only touch shared state (queue, current
// task, token, AgentState) while holding it. A task body gives it up only
// inside a suspension point, which is where everyone else gets to run.
type Control struct {
	mu sync.Mutex
}

// Do runs fn while holding the baton.
func (c *Control) Do(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn()
}

// Suspend releases the baton for the duration of fn and takes it back
// afterwards. The caller must hold the baton.
func (c *Control) Suspend(fn func()) {
	c.mu.Unlock()
	defer c.mu.Lock()
	fn()
}

func (c *Control) lock()   { c.mu.Lock() }
func (c *Control) unlock() { c.mu.Unlock() }
