package monitor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rodentplay/rodentbot/internal/events"
	"github.com/rodentplay/rodentbot/internal/gear"
	"github.com/rodentplay/rodentbot/internal/scheduler"
	"github.com/rodentplay/rodentbot/internal/world"
)

// GuardConfig tunes the guard monitor.
type GuardConfig struct {
	Radius      float64
	StrikeRange float64
	Hostiles    []string
}

// Guard attacks hostiles near the player named in AgentState.Guarding.
// Self-defense takes precedence: while the token is armed it does nothing.
// It also stands aside while a task is running.
type Guard struct {
	world    DefenseWorld
	gear     *gear.Policy
	sched    *scheduler.Scheduler
	bus      scheduler.Publisher
	logger   *zap.Logger
	cfg      GuardConfig
	hostiles map[string]bool

	target int
}

// NewGuard creates a guard monitor.
func NewGuard(w DefenseWorld, policy *gear.Policy, sched *scheduler.Scheduler, bus scheduler.Publisher, logger *zap.Logger, cfg GuardConfig) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.StrikeRange <= 0 {
		cfg.StrikeRange = 1.5
	}
	return &Guard{
		world:    w,
		gear:     policy,
		sched:    sched,
		bus:      bus,
		logger:   logger.Named("guard"),
		cfg:      cfg,
		hostiles: hostileSet(cfg.Hostiles),
	}
}

// Tick runs one evaluation. Must be called while holding the control baton.
func (g *Guard) Tick(ctx context.Context) error {
	state := g.sched.State()
	name := state.Guarding
	if name == "" {
		g.target = 0
		return nil
	}
	if g.sched.Token().Armed() {
		return nil
	}

	player, ok := g.world.Player(name)
	if !ok || player.Health <= 0 {
		g.Stop()
		g.notice(fmt.Sprintf("No longer guarding %s (gone or dead).", name))
		return nil
	}

	// A running task owns movement; only self-defense may take it over.
	if g.sched.Busy() {
		if g.target != 0 {
			g.world.StopAttacking()
			g.target = 0
		}
		return nil
	}

	threat, found := nearestHostile(g.world.Entities(), g.hostiles, player.Position, g.cfg.Radius, g.world.Self().ID)
	if !found {
		if g.target != 0 {
			g.world.StopAttacking()
			g.target = 0
		}
		if g.world.Moving() {
			g.world.Stop()
		}
		return nil
	}

	var err error
	if rerr := g.gear.Refresh(ctx, g.world.GameMode() != world.ModeCreative); rerr != nil {
		g.logger.Warn("gear refresh failed", zap.Error(rerr))
		err = fmt.Errorf("refresh gear: %w", rerr)
	}
	if threat.ID != g.target {
		g.target = threat.ID
		g.logger.Info("guard engaging", zap.String("player", name), zap.String("hostile", threat.Name), zap.Int("id", threat.ID))
	}
	g.world.SetGoal(world.Follow(threat.ID, g.cfg.StrikeRange))
	g.world.Attack(threat.ID)
	return err
}

// Stop ends guarding and drops the goal.
func (g *Guard) Stop() {
	g.sched.State().Guarding = ""
	g.target = 0
	g.world.StopAttacking()
	g.world.Stop()
}

func (g *Guard) notice(text string) {
	g.bus.Publish(events.TopicAgent, events.NoticeEvent{Source: "guard", Text: text, Timestamp: time.Now()})
}
