package tasks

import (
	"context"

	"github.com/rodentplay/rodentbot/internal/scheduler"
	"github.com/rodentplay/rodentbot/internal/world"
)

// Deliver walks to the requester and tosses the amount of item named by
// DeliverArgs, or every unit when the amount is zero. If the requester
// cannot be found or reached the items are dropped where the agent stands.
func (l *Library) Deliver() scheduler.Body {
	return func(ctx context.Context, x *scheduler.Exec, args []string, requester string) error {
		item, amount, err := parseDeliver(args)
		if err != nil {
			return err
		}
		have := count(l.w.Items(), item)
		if have == 0 {
			return scheduler.Failf("I don't have any %s", item)
		}

		p, ok := l.w.Player(requester)
		if !ok {
			x.Notify("I can't find you, %s. I'll leave the %s here.", requester, item)
			return l.toss(x, item, amount, have)
		}

		x.Notify("Got it, %s! Bringing you %s.", requester, item)
		err = l.move(x, world.Near(p.Position, 2))
		if scheduler.Interrupted(err) {
			return err
		}
		if err != nil {
			x.Notify("I had trouble getting to you (%v). Dropping it here.", err)
		} else {
			x.Notify("Here you go, %s.", requester)
		}
		return l.toss(x, item, amount, have)
	}
}

func (l *Library) toss(x *scheduler.Exec, item string, amount, have int) error {
	if amount <= 0 || amount > have {
		amount = have
	}
	err := x.Suspend(func(ctx context.Context) error {
		return l.w.Toss(ctx, item, amount)
	})
	if scheduler.Interrupted(err) {
		return err
	}
	if err != nil {
		return &scheduler.TaskError{Reason: "I couldn't drop the " + item, Err: err}
	}
	x.Notify("Dropped %d x %s.", amount, item)
	return nil
}
