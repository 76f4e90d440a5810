package agent

import (
	"context"

	"go.uber.org/zap"
)

const (
	greetingPrompt = "You are a small helper bot in a block game. Greet the players in one short friendly line."
	respawnPrompt  = "You are a small helper bot in a block game and you just respawned after dying. Say one short line about being back."
)

// HandleDeath drops everything the agent was doing: self-defense, guard,
// follow, the current task, the queue and any movement.
func (a *Agent) HandleDeath() {
	a.sched.Control().Do(func() {
		n := a.sched.Reset()
		a.defense.Reset()
		a.guard.Stop()
		a.logger.Info("agent died", zap.Int("dropped_tasks", n))
	})
}

// HandleSpawn announces the agent: a greeting the first time, a respawn line
// afterwards. The flavor generator runs without the baton.
func (a *Agent) HandleSpawn(ctx context.Context) {
	if a.spawned.CompareAndSwap(false, true) {
		a.say("", a.flavor.Line(ctx, greetingPrompt, a.cfg.Flavor.Greeting))
		return
	}
	a.say("", a.flavor.Line(ctx, respawnPrompt, a.cfg.Flavor.Respawn))
}
