// Package agent wires the scheduler, monitors and task library to a world
// and turns chat lines into commands.
package agent

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/rodentplay/rodentbot/internal/config"
	"github.com/rodentplay/rodentbot/internal/events"
	"github.com/rodentplay/rodentbot/internal/flavor"
	"github.com/rodentplay/rodentbot/internal/gear"
	"github.com/rodentplay/rodentbot/internal/history"
	"github.com/rodentplay/rodentbot/internal/monitor"
	"github.com/rodentplay/rodentbot/internal/scheduler"
	"github.com/rodentplay/rodentbot/internal/tasks"
	"github.com/rodentplay/rodentbot/internal/world"
)

// Options configures an Agent. World, Bus and Config are required.
type Options struct {
	Config  *config.Config
	World   world.World
	Bus     *events.EventBus
	History history.Store     // nil disables the history command
	Flavor  *flavor.Generator // nil always uses the configured fallback lines
	Logger  *zap.Logger
}

// Agent is one bot: its scheduler, monitors and command table.
type Agent struct {
	cfg     *config.Config
	world   world.World
	bus     *events.EventBus
	history history.Store
	flavor  *flavor.Generator
	logger  *zap.Logger

	sched   *scheduler.Scheduler
	gear    *gear.Policy
	defense *monitor.Defense
	sustain *monitor.Sustain
	guard   *monitor.Guard
	loop    *monitor.Loop
	tasks   *tasks.Library

	commands map[string]handler
	spawned  atomic.Bool
	bg       sync.WaitGroup
}

// New builds an Agent and registers its monitors on the loop in priority
// order: defense, guard, follow, sustain.
func New(opts Options) (*Agent, error) {
	if opts.Config == nil || opts.World == nil || opts.Bus == nil {
		return nil, fmt.Errorf("agent: config, world and bus are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := opts.Config

	sched := scheduler.New(scheduler.Config{Bus: opts.Bus, Logger: logger})
	policy := gear.NewPolicy(opts.World, logger)

	a := &Agent{
		cfg:     cfg,
		world:   opts.World,
		bus:     opts.Bus,
		history: opts.History,
		flavor:  opts.Flavor,
		logger:  logger.Named("agent"),
		sched:   sched,
		gear:    policy,
		defense: monitor.NewDefense(opts.World, policy, sched, opts.Bus, logger, monitor.DefenseConfig{
			Radius:          cfg.Defense.Radius,
			FleeDistance:    cfg.Defense.FleeDistance,
			StrikeRange:     cfg.Defense.StrikeRange,
			Hostiles:        cfg.Defense.Hostiles,
			LostTargetGrace: cfg.Defense.LostTargetGrace,
		}),
		sustain: monitor.NewSustain(opts.World, sched, opts.Bus, logger, monitor.SustainConfig{
			Threshold:    cfg.Sustain.Threshold,
			FallbackFood: cfg.Sustain.FallbackFood,
		}),
		guard: monitor.NewGuard(opts.World, policy, sched, opts.Bus, logger, monitor.GuardConfig{
			Radius:      cfg.Guard.Radius,
			StrikeRange: cfg.Defense.StrikeRange,
			Hostiles:    cfg.Defense.Hostiles,
		}),
		loop: monitor.NewLoop(sched.Control(), logger),
		tasks: tasks.New(opts.World, tasks.Config{
			AcquireSettle: cfg.Tasks.AcquireSettle,
			GatherRadius:  cfg.Tasks.GatherRadius,
			GatherBatch:   cfg.Tasks.GatherBatch,
		}, logger),
	}
	a.commands = a.commandTable()

	a.loop.Add("defense", cfg.Defense.Tick, a.defense.Tick)
	a.loop.Add("guard", cfg.Guard.Tick, a.guard.Tick)
	a.loop.Add("follow", cfg.Guard.Tick, a.followTick)
	a.loop.Add("sustain", cfg.Sustain.Tick, a.sustain.Tick)
	a.loop.AfterTicks(a.publishStatus)
	return a, nil
}

// Scheduler returns the agent's scheduler.
func (a *Agent) Scheduler() *scheduler.Scheduler { return a.sched }

// Loop returns the monitor loop.
func (a *Agent) Loop() *monitor.Loop { return a.loop }

// Defense returns the defense monitor.
func (a *Agent) Defense() *monitor.Defense { return a.defense }

// Run drives the monitors until ctx is done.
func (a *Agent) Run(ctx context.Context) error {
	return a.loop.Run(ctx)
}

// Shutdown stops the running task and waits for background replies. It must
// be called without holding the control baton.
func (a *Agent) Shutdown() {
	a.sched.Shutdown()
	a.bg.Wait()
}

// followTick keeps a follow goal alive once self-defense or a task stopped
// it, and gives up on players that left.
func (a *Agent) followTick(ctx context.Context) error {
	state := a.sched.State()
	name := state.Following
	if name == "" || a.sched.Token().Armed() || a.sched.Busy() {
		return nil
	}
	p, ok := a.world.Player(name)
	if !ok || p.Health <= 0 {
		state.Following = ""
		a.world.Stop()
		a.say("", fmt.Sprintf("I lost track of %s.", name))
		return nil
	}
	if !a.world.Moving() {
		a.world.SetGoal(world.Follow(p.ID, a.cfg.Tasks.FollowRange))
	}
	return nil
}

// Status snapshots the agent. Must be called while holding the baton.
func (a *Agent) Status() events.StatusEvent {
	state := a.sched.State()
	ev := events.StatusEvent{
		Defending: a.sched.Token().Armed(),
		Staying:   state.Staying,
		Following: state.Following,
		Guarding:  state.Guarding,
		Eating:    state.Eating,
		Food:      a.world.Food(),
		Health:    a.world.Self().Health,
		Timestamp: time.Now(),
	}
	if cur := a.sched.Current(); cur != nil {
		ev.Current = cur.Name
	}
	for _, t := range a.sched.Pending() {
		ev.Pending = append(ev.Pending, t.Name)
	}
	return ev
}

func (a *Agent) publishStatus() {
	a.bus.Publish(events.TopicAgent, a.Status())
}

// say publishes a reply. requester is empty for broadcast lines.
func (a *Agent) say(requester, text string) {
	a.bus.Publish(events.TopicAgent, events.NoticeEvent{
		Source:    "agent",
		Requester: requester,
		Text:      text,
		Timestamp: time.Now(),
	})
}
