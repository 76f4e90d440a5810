package monitor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rodentplay/rodentbot/internal/scheduler"
)

// TickFunc is one monitor evaluation.
type TickFunc func(ctx context.Context) error

type schedule struct {
	name   string
	period time.Duration
	fn     TickFunc
	next   time.Time
}

// Loop drives every monitor from a single timer. Due schedules run in
// registration order inside one hold of the control baton, so a defense
// tick always precedes a sustain tick that falls due at the same instant.
type Loop struct {
	ctl       *scheduler.Control
	logger    *zap.Logger
	schedules []*schedule
	after     []func()
}

// NewLoop creates an empty loop.
func NewLoop(ctl *scheduler.Control, logger *zap.Logger) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{ctl: ctl, logger: logger.Named("loop")}
}

// Add registers a schedule. A new schedule is due immediately.
func (l *Loop) Add(name string, period time.Duration, fn TickFunc) {
	l.schedules = append(l.schedules, &schedule{name: name, period: period, fn: fn})
}

// AfterTicks registers fn to run, still holding the baton, after every batch
// of ticks.
func (l *Loop) AfterTicks(fn func()) {
	l.after = append(l.after, fn)
}

// RunDue runs every schedule due at now and returns their names in the order
// they ran.
func (l *Loop) RunDue(ctx context.Context, now time.Time) []string {
	var ran []string
	l.ctl.Do(func() {
		for _, s := range l.schedules {
			if !s.next.IsZero() && now.Before(s.next) {
				continue
			}
			s.next = now.Add(s.period)
			l.tick(ctx, s)
			ran = append(ran, s.name)
		}
		if len(ran) > 0 {
			for _, fn := range l.after {
				fn()
			}
		}
	})
	return ran
}

func (l *Loop) tick(ctx context.Context, s *schedule) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("monitor panicked", zap.String("monitor", s.name), zap.String("panic", fmt.Sprint(r)))
		}
	}()
	if err := s.fn(ctx); err != nil {
		l.logger.Warn("monitor tick failed", zap.String("monitor", s.name), zap.Error(err))
	}
}

// nextDue returns the earliest due time, or now when something is due.
func (l *Loop) nextDue(now time.Time) time.Time {
	var next time.Time
	l.ctl.Do(func() {
		for _, s := range l.schedules {
			if s.next.IsZero() {
				next = now
				return
			}
			if next.IsZero() || s.next.Before(next) {
				next = s.next
			}
		}
	})
	return next
}

// Run drives the schedules until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	if len(l.schedules) == 0 {
		<-ctx.Done()
		return nil
	}

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
			l.RunDue(ctx, time.Now())
			wait := time.Until(l.nextDue(time.Now()))
			if wait < 0 {
				wait = 0
			}
			timer.Reset(wait)
		}
	}
}
