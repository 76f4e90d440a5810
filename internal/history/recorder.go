package history

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/rodentplay/rodentbot/internal/events"
)

// Recorder writes task lifecycle events into a Store.
type Recorder struct {
	store  Store
	logger *zap.Logger
}

// NewRecorder creates a Recorder.
func NewRecorder(store Store, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{store: store, logger: logger.Named("history")}
}

// Run consumes sub until ctx is done or the subscription closes. Write
// failures are logged, never fatal.
func (r *Recorder) Run(ctx context.Context, sub *events.Subscription) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-sub.C:
			if !ok {
				return nil
			}
			if err := r.Handle(ctx, ev); err != nil {
				r.logger.Warn("could not record event", zap.String("type", ev.EventType()), zap.Error(err))
			}
		}
	}
}

// Handle records one event. Events that are not about a task are ignored.
func (r *Recorder) Handle(ctx context.Context, ev events.Event) error {
	switch e := ev.(type) {
	case events.TaskQueuedEvent:
		detail := fmt.Sprintf("position %d", e.Position)
		if e.Position == 0 {
			detail = "started immediately"
		}
		if err := r.store.SaveRun(ctx, Run{
			ID:        e.ID,
			Name:      e.Name,
			Requester: e.Requester,
			Args:      e.Args,
			Status:    "pending",
			CreatedAt: e.Timestamp,
		}); err != nil {
			return err
		}
		return r.store.AppendEntry(ctx, e.ID, e.EventType(), detail)

	case events.TaskStartedEvent:
		return r.step(ctx, e.ID, "running", e.Attempt, "", e.EventType(), fmt.Sprintf("attempt %d", e.Attempt))

	case events.TaskPreemptedEvent:
		return r.step(ctx, e.ID, "preempted", e.Attempt, "", e.EventType(), "")

	case events.TaskCompletedEvent:
		return r.step(ctx, e.ID, "completed", -1, "", e.EventType(), e.Duration.String())

	case events.TaskFailedEvent:
		msg := ""
		if e.Err != nil {
			msg = e.Err.Error()
		}
		return r.step(ctx, e.ID, "failed", -1, msg, e.EventType(), msg)

	case events.TaskCancelledEvent:
		return r.step(ctx, e.ID, "cancelled", -1, "", e.EventType(), e.Reason)
	}
	return nil
}

func (r *Recorder) step(ctx context.Context, id, status string, attempts int, errText, kind, detail string) error {
	err := r.store.UpdateStatus(ctx, id, status, attempts, errText)
	if errors.Is(err, ErrNotFound) {
		// Subscribed after the task was queued.
		return nil
	}
	if err != nil {
		return err
	}
	return r.store.AppendEntry(ctx, id, kind, detail)
}
