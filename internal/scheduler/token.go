package scheduler

// Target identifies the threat currently driving preemption.
type Target struct {
	ID   int
	Name string
}

// Token is the process-wide cancellation token. Only the defense monitor
// arms and disarms it; the Scheduler and task bodies only read it.
type Token struct {
	armed  bool
	target *Target

	interrupt func() // aborts the running task's in-flight suspension
	resume    func() // Scheduler.Advance
}

// NewToken creates a disarmed token.
func NewToken() *Token {
	return &Token{}
}

// Arm raises the token. The running task's current suspension is aborted on
// a best-effort basis; the authoritative cut-over is its next CheckInterrupt.
func (t *Token) Arm(target Target) {
	t.armed = true
	t.target = &target
	if t.interrupt != nil {
		t.interrupt()
	}
}

// Disarm lowers the token, forgets the target and lets the Scheduler pull
// the next task.
func (t *Token) Disarm() {
	t.armed = false
	t.target = nil
	if t.resume != nil {
		t.resume()
	}
}

// Armed reports whether preemption is in effect.
func (t *Token) Armed() bool {
	return t.armed
}

// Target returns the threat driving preemption, if any.
func (t *Token) Target() (Target, bool) {
	if t.target == nil {
		return Target{}, false
	}
	return *t.target, true
}

// CheckInterrupt returns ErrPreempted while the token is armed.
func (t *Token) CheckInterrupt() error {
	if t.armed {
		return ErrPreempted
	}
	return nil
}
