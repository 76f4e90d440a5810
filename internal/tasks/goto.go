package tasks

import (
	"context"
	"fmt"

	"github.com/rodentplay/rodentbot/internal/scheduler"
	"github.com/rodentplay/rodentbot/internal/world"
)

// Goto walks to the block named by GotoArgs.
func (l *Library) Goto() scheduler.Body {
	return func(ctx context.Context, x *scheduler.Exec, args []string, _ string) error {
		target, err := parseGoto(args)
		if err != nil {
			return err
		}
		x.Notify("Heading to %s!", target)
		err = l.move(x, world.Exact(target))
		if scheduler.Interrupted(err) {
			return err
		}
		if err != nil {
			return &scheduler.TaskError{Reason: fmt.Sprintf("I couldn't reach %s", target), Err: err}
		}
		return nil
	}
}
