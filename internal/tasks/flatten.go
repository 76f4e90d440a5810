package tasks

import (
	"context"
	"fmt"
	"math"

	"github.com/rodentplay/rodentbot/internal/scheduler"
	"github.com/rodentplay/rodentbot/internal/world"
)

const reach = 4.5

// FlattenLevels returns the vertical offsets cleared for a height argument.
// No height clears the feet level and the one below; a positive height
// clears that many levels up from the feet; a negative one clears |h|+1
// levels down; zero clears only the feet level.
func FlattenLevels(height *int) []int {
	if height == nil {
		return []int{0, -1}
	}
	h := *height
	var levels []int
	switch {
	case h > 0:
		for y := 0; y < h; y++ {
			levels = append(levels, y)
		}
	case h < 0:
		for y := 0; y >= h; y-- {
			levels = append(levels, y)
		}
	default:
		levels = []int{0}
	}
	return levels
}

// Flatten clears the length x width area named by FlattenArgs, centred on
// the agent's starting block, at the levels given by FlattenLevels. The
// agent's own feet cell is left alone.
func (l *Library) Flatten() scheduler.Body {
	return func(ctx context.Context, x *scheduler.Exec, args []string, _ string) error {
		length, width, height, err := parseFlatten(args)
		if err != nil {
			return err
		}
		levels := FlattenLevels(height)
		belt := l.toolbelt(x)
		origin := l.w.Self().Position.Floor()
		x.Notify("Flattening a %dx%d area, %s!", length, width, plural(len(levels), "level"))

		minDx, maxDx := -length/2, (length-1)/2
		minDz, maxDz := -width/2, (width-1)/2

		cleared, skipped := 0, 0
		for _, dy := range levels {
			for dx := minDx; dx <= maxDx; dx++ {
				for dz := minDz; dz <= maxDz; dz++ {
					if err := x.CheckInterrupt(); err != nil {
						return err
					}
					if dx == 0 && dy == 0 && dz == 0 {
						continue
					}

					b, ok := l.w.BlockAt(origin.Offset(dx, dy, dz))
					if !ok || b.Air() {
						continue
					}
					if !l.w.CanDig(b) {
						skipped++
						continue
					}

					done, err := l.clear(x, belt, b)
					if err != nil {
						return err
					}
					if done {
						cleared++
					} else {
						skipped++
					}
				}
			}
		}

		if skipped > 0 {
			x.Notify("Area flattened! Cleared %d, left %d I couldn't dig.", cleared, skipped)
		} else {
			x.Notify("Area flattened!")
		}
		return nil
	}
}

func (l *Library) clear(x *scheduler.Exec, belt *toolbelt, b world.Block) (bool, error) {
	self := l.w.Self().Position
	if self.DistanceSquared(b.Position) > reach*reach {
		if err := l.move(x, world.Near(b.Position, 2)); err != nil {
			if scheduler.Interrupted(err) {
				return false, err
			}
			return false, nil
		}
	}

	if err := belt.ready(b); err != nil {
		return false, err
	}

	if err := l.dig(x, b); err != nil {
		if scheduler.Interrupted(err) {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

// ValidateFlatten checks flatten arguments against the configured limits.
func ValidateFlatten(length, width int, height *int, maxSide, maxRise int) error {
	if length < 1 || length > maxSide || width < 1 || width > maxSide {
		return fmt.Errorf("length and width must be between 1 and %d", maxSide)
	}
	if height != nil && math.Abs(float64(*height)) > float64(maxRise) {
		return fmt.Errorf("height must be between -%d and %d", maxRise, maxRise)
	}
	return nil
}
