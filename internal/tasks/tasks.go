// Package tasks holds the queued task bodies: movement, gathering, area
// flattening and item delivery. Every body polls Exec.CheckInterrupt at each
// loop iteration and performs world I/O only through Exec.Suspend.
package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rodentplay/rodentbot/internal/gear"
	"github.com/rodentplay/rodentbot/internal/scheduler"
	"github.com/rodentplay/rodentbot/internal/world"
)

// World is what task bodies need from the game.
type World interface {
	world.Senses
	world.Mover
	world.Inventory
	world.Digger
}

// Config tunes the task bodies.
type Config struct {
	ArriveRange   float64       // how close Near goals must get
	AcquireSettle time.Duration // extra wait after an acquisition request
	GatherRadius  float64
	GatherBatch   int
}

// DefaultConfig returns the values used when a field is zero.
func DefaultConfig() Config {
	return Config{
		ArriveRange:   1,
		AcquireSettle: 1500 * time.Millisecond,
		GatherRadius:  64,
		GatherBatch:   20,
	}
}

// Library builds task bodies bound to one world.
type Library struct {
	w      World
	cfg    Config
	logger *zap.Logger
}

// New creates a Library.
func New(w World, cfg Config, logger *zap.Logger) *Library {
	def := DefaultConfig()
	if cfg.ArriveRange <= 0 {
		cfg.ArriveRange = def.ArriveRange
	}
	if cfg.GatherRadius <= 0 {
		cfg.GatherRadius = def.GatherRadius
	}
	if cfg.GatherBatch <= 0 {
		cfg.GatherBatch = def.GatherBatch
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Library{w: w, cfg: cfg, logger: logger.Named("tasks")}
}

// move sets a goal and waits for arrival.
func (l *Library) move(x *scheduler.Exec, g world.Goal) error {
	return x.Suspend(func(ctx context.Context) error {
		return l.w.Goto(ctx, g)
	})
}

func (l *Library) dig(x *scheduler.Exec, b world.Block) error {
	return x.Suspend(func(ctx context.Context) error {
		return l.w.Dig(ctx, b)
	})
}

func (l *Library) equip(x *scheduler.Exec, item string, slot world.Slot) error {
	return x.Suspend(func(ctx context.Context) error {
		return l.w.Equip(ctx, item, slot)
	})
}

// toolbelt holds the right tool for each block before it is dug. Each
// missing tool family is requested at most once per run and reported once.
type toolbelt struct {
	l      *Library
	x      *scheduler.Exec
	tried  map[string]bool
	warned map[string]bool
}

func (l *Library) toolbelt(x *scheduler.Exec) *toolbelt {
	return &toolbelt{l: l, x: x, tried: make(map[string]bool), warned: make(map[string]bool)}
}

// ready equips the best owned tool for b, requesting the diamond one when
// nothing that good is owned and acquisition is allowed. Without a tool the
// agent digs by hand. Only interrupts are returned.
func (t *toolbelt) ready(b world.Block) error {
	w := t.l.w
	if w.GameMode() == world.ModeCreative {
		return nil
	}
	kind := gear.ToolFor(b)
	tiers := gear.ToolTiers(kind)
	if tiers == nil {
		return nil
	}

	best, ok := gear.BestTool(tiers, w.Items())
	if (!ok || gear.TierIndex(tiers, best) > gear.DefaultFloor) && !t.tried[kind] && w.AcquireAllowed() {
		t.tried[kind] = true
		want := tiers[gear.DefaultFloor]
		err := t.x.Suspend(func(ctx context.Context) error {
			return w.Acquire(ctx, want, 1)
		})
		if scheduler.Interrupted(err) {
			return err
		}
		if err != nil {
			t.l.logger.Warn("tool request failed", zap.String("tool", want), zap.Error(err))
		}
		if err := t.x.Sleep(t.l.cfg.AcquireSettle); err != nil {
			return err
		}
		best, ok = gear.BestTool(tiers, w.Items())
	}
	if !ok {
		if !t.warned[kind] {
			t.warned[kind] = true
			t.x.Notify("I don't have %s, I'll dig by hand.", article(kind))
		}
		return nil
	}

	if held, has := w.Equipped(world.SlotHand); has && held.Name == best {
		return nil
	}
	err := t.l.equip(t.x, best, world.SlotHand)
	if scheduler.Interrupted(err) {
		return err
	}
	if err != nil {
		t.x.Notify("Couldn't equip my %s: %v", best, err)
	}
	return nil
}

func article(word string) string {
	if strings.ContainsRune("aeiou", rune(word[0])) {
		return "an " + word
	}
	return "a " + word
}

func count(items []world.Item, name string) int {
	n := 0
	for _, it := range items {
		if it.Name == name {
			n += it.Count
		}
	}
	return n
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
