package chat

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/rodentplay/rodentbot/internal/events"
	"github.com/rodentplay/rodentbot/internal/scheduler"
)

// Relay turns bus events into chat lines on a Transport.
type Relay struct {
	transport Transport
	logger    *zap.Logger
}

// NewRelay creates a Relay.
func NewRelay(t Transport, logger *zap.Logger) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{transport: t, logger: logger.Named("relay")}
}

// Run forwards rendered events until ctx is done or sub closes.
func (r *Relay) Run(ctx context.Context, sub *events.Subscription) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-sub.C:
			if !ok {
				return nil
			}
			line, ok := Render(ev)
			if !ok {
				continue
			}
			if err := r.transport.Send(ctx, line); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				r.logger.Warn("could not send chat line", zap.String("type", ev.EventType()), zap.Error(err))
			}
		}
	}
}

// Render returns the chat line for ev. ok is false for events that are not
// said out loud.
func Render(ev events.Event) (line string, ok bool) {
	switch e := ev.(type) {
	case events.TaskQueuedEvent:
		if e.Position == 0 {
			return "", false
		}
		return fmt.Sprintf("Task '%s' added to the queue. Position: %d.", e.Name, e.Position), true

	case events.TaskStartedEvent:
		if e.Attempt > 1 {
			return fmt.Sprintf("Resuming '%s' for %s.", e.Name, e.Requester), true
		}
		return fmt.Sprintf("On it, %s!", e.Requester), true

	case events.TaskOutputEvent:
		return e.Line, e.Line != ""

	case events.TaskCompletedEvent:
		return fmt.Sprintf("Task '%s' completed.", e.Name), true

	case events.TaskFailedEvent:
		return fmt.Sprintf("Error during '%s': %s", e.Name, Reason(e.Err)), true

	case events.TaskPreemptedEvent:
		return fmt.Sprintf("Task '%s' paused for self-defense.", e.Name), true

	case events.TaskCancelledEvent:
		return fmt.Sprintf("Task '%s' cancelled %s.", e.Name, cancelPhrase(e.Reason)), true

	case events.TaskRejectedEvent:
		return "I'm staying put, I can't accept new tasks. Say resume first.", true

	case events.QueueClearedEvent:
		if e.Count == 1 {
			return "Cleared 1 queued task.", true
		}
		return fmt.Sprintf("Cleared %d queued tasks.", e.Count), true

	case events.DefenseEvent:
		return e.Text, e.Text != ""

	case events.NoticeEvent:
		return e.Text, e.Text != ""
	}
	return "", false
}

// Reason is the requester-facing description of a task failure.
func Reason(err error) string {
	if err == nil {
		return "unknown error"
	}
	var te *scheduler.TaskError
	if errors.As(err, &te) {
		return te.Reason
	}
	return err.Error()
}

func cancelPhrase(reason string) string {
	switch reason {
	case "stay":
		return "to stay put"
	case "follow":
		return "to follow you"
	case "guard":
		return "to protect you"
	case "death":
		return "because I died"
	case "shutdown":
		return "for shutdown"
	case "":
		return "by request"
	default:
		return "(" + reason + ")"
	}
}
