package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rodentplay/rodentbot/internal/events"
	"github.com/rodentplay/rodentbot/internal/scheduler"
	"github.com/rodentplay/rodentbot/internal/world"
)

// ErrNoFood is returned when the agent is hungry and has nothing to eat.
var ErrNoFood = errors.New("no food available")

// SustainWorld is what the sustain monitor needs from the world.
type SustainWorld interface {
	world.Senses
	world.Inventory
}

// SustainConfig tunes the sustain monitor.
type SustainConfig struct {
	Threshold    int    // eat when food drops below this
	FallbackFood string // acquired when the inventory has nothing edible
}

// Sustain keeps the agent fed while it is otherwise idle.
type Sustain struct {
	world  SustainWorld
	sched  *scheduler.Scheduler
	bus    scheduler.Publisher
	logger *zap.Logger
	cfg    SustainConfig
}

// NewSustain creates a sustain monitor.
func NewSustain(w SustainWorld, sched *scheduler.Scheduler, bus scheduler.Publisher, logger *zap.Logger, cfg SustainConfig) *Sustain {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.FallbackFood == "" {
		cfg.FallbackFood = "bread"
	}
	return &Sustain{world: w, sched: sched, bus: bus, logger: logger.Named("sustain"), cfg: cfg}
}

// Tick eats one item when hungry. It yields to running tasks and to
// self-defense. Must be called while holding the control baton.
func (s *Sustain) Tick(ctx context.Context) error {
	state := s.sched.State()
	if s.sched.Busy() || s.sched.Token().Armed() || state.Eating {
		return nil
	}
	before := s.world.Food()
	if before >= s.cfg.Threshold {
		return nil
	}

	state.Eating = true
	defer func() { state.Eating = false }()

	food, ok := bestFood(s.world.Items())
	if !ok && s.world.GameMode() != world.ModeCreative && s.world.AcquireAllowed() {
		if err := s.world.Acquire(ctx, s.cfg.FallbackFood, 1); err != nil {
			return fmt.Errorf("acquire %s: %w", s.cfg.FallbackFood, err)
		}
		food, ok = bestFood(s.world.Items())
	}
	if !ok {
		return ErrNoFood
	}

	prev, hadPrev := s.world.Equipped(world.SlotHand)
	if err := s.world.Equip(ctx, food.Name, world.SlotHand); err != nil {
		return fmt.Errorf("hold %s: %w", food.Name, err)
	}
	if err := s.world.Consume(ctx); err != nil {
		return fmt.Errorf("eat %s: %w", food.Name, err)
	}
	if hadPrev && prev.Name != food.Name {
		if err := s.world.Equip(ctx, prev.Name, world.SlotHand); err != nil {
			s.logger.Warn("could not re-equip", zap.String("item", prev.Name), zap.Error(err))
		}
	}

	after := s.world.Food()
	s.logger.Info("ate", zap.String("item", food.Name), zap.Int("food_before", before), zap.Int("food_after", after))
	s.bus.Publish(events.TopicAgent, events.NoticeEvent{
		Source:    "sustain",
		Text:      fmt.Sprintf("Ate %s (hunger %d/20).", food.Name, after),
		Timestamp: time.Now(),
	})
	return nil
}

// bestFood picks the most nourishing edible stack.
func bestFood(items []world.Item) (world.Item, bool) {
	var best world.Item
	for _, it := range items {
		if it.FoodPoints > best.FoodPoints && it.Count > 0 {
			best = it
		}
	}
	return best, best.FoodPoints > 0
}
