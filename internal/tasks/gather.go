package tasks

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/rodentplay/rodentbot/internal/scheduler"
	"github.com/rodentplay/rodentbot/internal/world"
)

var errNoProgress = errors.New("no reachable blocks left")

// Gather mines the quantity of blocks named by GatherArgs, or one batch of
// nearby blocks when the quantity is zero, then walks back to where it
// started. A preempted or cancelled gather does not walk back; resuming
// picks up from wherever the agent is.
func (l *Library) Gather() scheduler.Body {
	return func(ctx context.Context, x *scheduler.Exec, args []string, _ string) error {
		block, quantity, err := parseGather(args)
		if err != nil {
			return err
		}
		start := l.w.Self().Position

		if quantity > 0 {
			x.Notify("Goal: gather %d %s.", quantity, block)
		} else {
			x.Notify("Looking for %s nearby (one batch)...", block)
		}

		collected, err := l.gather(x, l.toolbelt(x), block, quantity)
		if scheduler.Interrupted(err) {
			return err
		}
		if errors.Is(err, errNoProgress) {
			x.Notify("No more %s I can reach.", block)
			err = nil
		}

		if err == nil && collected == 0 {
			err = scheduler.Failf("I couldn't find any %s nearby", block)
		} else {
			x.Notify("Done gathering %s. Collected: %d.", block, collected)
		}

		x.Notify("Heading back to where I started...")
		if merr := l.move(x, world.Near(start, l.cfg.ArriveRange)); merr != nil {
			if scheduler.Interrupted(merr) {
				return merr
			}
			x.Notify("I couldn't make it back to where I started.")
		}
		return err
	}
}

func (l *Library) gather(x *scheduler.Exec, belt *toolbelt, block string, quantity int) (int, error) {
	collected := 0
	for {
		if err := x.CheckInterrupt(); err != nil {
			return collected, err
		}

		want := l.cfg.GatherBatch
		if quantity > 0 {
			if collected >= quantity {
				return collected, nil
			}
			want = min(quantity-collected, l.cfg.GatherBatch)
		}

		found := l.w.FindBlocks(block, l.cfg.GatherRadius, want)
		if len(found) == 0 {
			return collected, nil
		}
		x.Notify("Wait here, I'll be back with %s of %s...", plural(len(found), "block"), block)

		before := collected
		for _, pos := range found {
			if quantity > 0 && collected >= quantity {
				break
			}
			if err := x.CheckInterrupt(); err != nil {
				return collected, err
			}

			ok, err := l.mineAt(x, belt, block, pos)
			if err != nil {
				return collected, err
			}
			if !ok {
				continue
			}
			collected++
			if quantity > 0 {
				x.Notify("Mined %s! Collected %d/%d.", block, collected, quantity)
			} else {
				x.Notify("Mined %s! Collected %d.", block, collected)
			}
		}

		if quantity <= 0 {
			return collected, nil
		}
		if collected == before {
			return collected, errNoProgress
		}
	}
}

// mineAt walks to pos and digs it. It reports false when the block should
// be skipped; the error is non-nil only for interrupts.
func (l *Library) mineAt(x *scheduler.Exec, belt *toolbelt, name string, pos world.Vec3) (bool, error) {
	if b, ok := l.w.BlockAt(pos); !ok || b.Name != name {
		return false, nil
	}

	if err := l.move(x, world.Near(pos, l.cfg.ArriveRange)); err != nil {
		if scheduler.Interrupted(err) {
			return false, err
		}
		l.logger.Debug("skipping unreachable block", zap.Stringer("pos", pos), zap.Error(err))
		return false, nil
	}

	// It may have changed while we walked.
	b, ok := l.w.BlockAt(pos)
	if !ok || b.Name != name || !l.w.CanDig(b) {
		return false, nil
	}

	if err := belt.ready(b); err != nil {
		return false, err
	}
	if err := l.dig(x, b); err != nil {
		if scheduler.Interrupted(err) {
			return false, err
		}
		x.Notify("Error mining %s: %v. Skipping.", name, err)
		return false, nil
	}
	return true, nil
}
