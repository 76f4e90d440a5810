// Package monitor holds the periodic evaluators that run between task
// suspension points: self-defense, guarding a player and keeping fed.
package monitor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rodentplay/rodentbot/internal/events"
	"github.com/rodentplay/rodentbot/internal/gear"
	"github.com/rodentplay/rodentbot/internal/scheduler"
	"github.com/rodentplay/rodentbot/internal/world"
)

// DefenseState is the self-defense state machine's state.
type DefenseState int

const (
	DefenseIdle     DefenseState = iota // No threat
	DefenseEngaging                     // Armed and attacking the threat
	DefenseFleeing                      // Unarmed, moving away from the threat
)

func (s DefenseState) String() string {
	switch s {
	case DefenseIdle:
		return "idle"
	case DefenseEngaging:
		return "attack"
	case DefenseFleeing:
		return "flee"
	default:
		return "unknown"
	}
}

// DefenseWorld is what the defense monitor needs from the world.
type DefenseWorld interface {
	world.Senses
	world.Mover
	world.Combat
}

// DefenseConfig tunes the defense monitor.
type DefenseConfig struct {
	Radius       float64
	FleeDistance float64
	StrikeRange  float64
	Hostiles     []string
	// LostTargetGrace is how many consecutive empty scans are tolerated
	// before standing down. 0 stands down on the first one.
	LostTargetGrace int
}

// engagement tracks what has been said and done about one target. It is
// replaced wholesale when the target or the chosen action changes.
type engagement struct {
	target    world.Entity
	action    DefenseState
	announced bool
	fleePoint world.Vec3
}

// Defense preempts tasks when a hostile comes close, and either fights it
// or runs from it. It is the only writer of the cancellation token.
type Defense struct {
	world    DefenseWorld
	gear     *gear.Policy
	sched    *scheduler.Scheduler
	bus      scheduler.Publisher
	logger   *zap.Logger
	cfg      DefenseConfig
	hostiles map[string]bool

	state  DefenseState
	eng    *engagement
	missed int
}

// NewDefense creates an idle defense monitor.
func NewDefense(w DefenseWorld, policy *gear.Policy, sched *scheduler.Scheduler, bus scheduler.Publisher, logger *zap.Logger, cfg DefenseConfig) *Defense {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.StrikeRange <= 0 {
		cfg.StrikeRange = 1.5
	}
	return &Defense{
		world:    w,
		gear:     policy,
		sched:    sched,
		bus:      bus,
		logger:   logger.Named("defense"),
		cfg:      cfg,
		hostiles: hostileSet(cfg.Hostiles),
	}
}

// State returns the current state.
func (d *Defense) State() DefenseState { return d.state }

// Target returns the tracked threat, if any.
func (d *Defense) Target() (world.Entity, bool) {
	if d.eng == nil {
		return world.Entity{}, false
	}
	return d.eng.target, true
}

// Tick runs one evaluation. Must be called while holding the control baton.
func (d *Defense) Tick(ctx context.Context) error {
	self := d.world.Self()
	threat, found := nearestHostile(d.world.Entities(), d.hostiles, self.Position, d.cfg.Radius, self.ID)

	if !found {
		if d.state == DefenseIdle {
			return nil
		}
		if d.missed < d.cfg.LostTargetGrace {
			d.missed++
			return nil
		}
		d.standDown()
		return nil
	}
	d.missed = 0

	token := d.sched.Token()
	if d.state == DefenseIdle {
		d.sched.State().Staying = false
		if cur := d.sched.Current(); cur != nil {
			d.world.Stop()
			d.notice(fmt.Sprintf("Self-defense! Pausing %s.", cur.Name))
		}
		token.Arm(scheduler.Target{ID: threat.ID, Name: threat.Name})
	} else if t, ok := token.Target(); !ok || t.ID != threat.ID {
		token.Arm(scheduler.Target{ID: threat.ID, Name: threat.Name})
	}

	action := d.chooseAction()
	if d.settled(threat, action) {
		d.eng.target = threat
		d.state = action
		d.assertGoal()
		return nil
	}

	var gearErr error
	if err := d.gear.Refresh(ctx, d.allowAcquire()); err != nil {
		gearErr = fmt.Errorf("refresh gear: %w", err)
		d.logger.Warn("gear refresh failed", zap.Error(err))
	}
	action = d.chooseAction()

	if !d.settled(threat, action) {
		d.eng = &engagement{target: threat, action: action}
		if action == DefenseFleeing {
			away := self.Position.Sub(threat.Position).Normalize().Scale(d.cfg.FleeDistance)
			d.eng.fleePoint = self.Position.Add(away)
		}
		d.announce()
	}
	d.eng.target = threat
	d.state = action
	d.assertGoal()
	return gearErr
}

// settled reports whether threat and action match an announced engagement.
func (d *Defense) settled(threat world.Entity, action DefenseState) bool {
	return d.eng != nil && d.eng.announced && d.eng.target.ID == threat.ID && d.eng.action == action
}

func (d *Defense) chooseAction() DefenseState {
	if d.gear.Armed() {
		return DefenseEngaging
	}
	return DefenseFleeing
}

func (d *Defense) allowAcquire() bool {
	return d.world.GameMode() != world.ModeCreative
}

func (d *Defense) announce() {
	text := fmt.Sprintf("Fighting the %s!", d.eng.target.Name)
	if d.eng.action == DefenseFleeing {
		text = fmt.Sprintf("%s too close! Running away...", capitalize(d.eng.target.Name))
	}
	d.eng.announced = true
	d.logger.Info("engaging",
		zap.String("action", d.eng.action.String()),
		zap.Int("target", d.eng.target.ID),
		zap.String("name", d.eng.target.Name))
	d.bus.Publish(events.TopicAgent, events.DefenseEvent{
		Action:     d.eng.action.String(),
		TargetID:   d.eng.target.ID,
		TargetName: d.eng.target.Name,
		Text:       text,
		Timestamp:  time.Now(),
	})
}

func (d *Defense) assertGoal() {
	switch d.eng.action {
	case DefenseEngaging:
		d.world.SetGoal(world.Follow(d.eng.target.ID, d.cfg.StrikeRange))
		d.world.Attack(d.eng.target.ID)
	case DefenseFleeing:
		d.world.StopAttacking()
		d.world.SetGoal(world.Near(d.eng.fleePoint, 1))
	}
}

// standDown is the only way back to normal task execution.
func (d *Defense) standDown() {
	d.logger.Info("threat cleared")
	d.world.Stop()
	d.world.StopAttacking()
	d.eng = nil
	d.missed = 0
	d.state = DefenseIdle
	d.sched.Token().Disarm()
}

// Reset forgets the engagement after death. Call it after the scheduler was
// reset so the disarm finds nothing to advance.
func (d *Defense) Reset() {
	wasArmed := d.state != DefenseIdle || d.sched.Token().Armed()
	d.eng = nil
	d.missed = 0
	d.state = DefenseIdle
	if wasArmed {
		d.sched.Token().Disarm()
	}
}

func (d *Defense) notice(text string) {
	d.bus.Publish(events.TopicAgent, events.NoticeEvent{Source: "defense", Text: text, Timestamp: time.Now()})
}

// nearestHostile picks the closest hostile strictly inside radius, skipping
// the entity with id skip.
func nearestHostile(entities []world.Entity, hostiles map[string]bool, origin world.Vec3, radius float64, skip int) (world.Entity, bool) {
	var best world.Entity
	found := false
	bestDist := radius * radius
	for _, e := range entities {
		if e.ID == skip || e.Player || !hostiles[strings.ToLower(e.Name)] {
			continue
		}
		if dist := origin.DistanceSquared(e.Position); dist < bestDist {
			best, bestDist, found = e, dist, true
		}
	}
	return best, found
}

func hostileSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n != "" {
			set[n] = true
		}
	}
	return set
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
