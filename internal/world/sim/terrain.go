package sim

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/rodentplay/rodentbot/internal/world"
)

const groundY = 64

// Flatland lays a square of grass over dirt and stone around the origin,
// with a few trees, and puts the agent on top.
func (w *World) Flatland(radius int) {
	for x := -radius; x <= radius; x++ {
		for z := -radius; z <= radius; z++ {
			w.SetBlock(world.Vec3{X: float64(x), Y: groundY - 1, Z: float64(z)}, "grass_block")
			w.SetBlock(world.Vec3{X: float64(x), Y: groundY - 2, Z: float64(z)}, "dirt")
			w.SetBlock(world.Vec3{X: float64(x), Y: groundY - 3, Z: float64(z)}, "stone")
			w.SetBlock(world.Vec3{X: float64(x), Y: groundY - 4, Z: float64(z)}, "bedrock")
		}
	}
	for _, trunk := range [][2]int{{6, 4}, {-7, 3}, {2, -9}, {-4, -6}} {
		if abs(trunk[0]) > radius || abs(trunk[1]) > radius {
			continue
		}
		for y := groundY; y < groundY+4; y++ {
			w.SetBlock(world.Vec3{X: float64(trunk[0]), Y: float64(y), Z: float64(trunk[1])}, "oak_log")
		}
	}
	w.Teleport(world.Vec3{X: 0.5, Y: groundY, Z: 0.5})
	w.mu.Lock()
	w.spawn = w.self.Position
	w.mu.Unlock()
}

// Hostiles drives ambient danger for offline play: every interval a hostile
// may appear near the agent, live ones close in, and the attacked one takes
// a hit. It returns when ctx is done.
func (w *World) Hostiles(ctx context.Context, names []string, interval time.Duration, chance float64) {
	if len(names) == 0 || interval <= 0 {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		w.Step()
		w.approach(1.5)
		w.Hurt(w.bites(2))

		if len(w.Entities()) < 3 && rand.Float64() < chance {
			self := w.Self().Position
			angle := rand.Float64() * 2 * math.Pi
			offset := world.Vec3{X: 8 * math.Cos(angle), Z: 8 * math.Sin(angle)}
			w.Spawn(world.Entity{
				Name:     names[rand.IntN(len(names))],
				Position: self.Add(offset),
			})
		}
	}
}

// approach moves every non-player entity up to step blocks toward the agent.
func (w *World) approach(step float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for id, e := range w.entities {
		if e.Player {
			continue
		}
		delta := w.self.Position.Sub(e.Position)
		if delta.DistanceSquared(world.Vec3{}) <= step*step {
			continue
		}
		e.Position = e.Position.Add(delta.Normalize().Scale(step))
		w.entities[id] = e
	}
}

// bites returns the damage dealt by hostiles within reach of the agent.
func (w *World) bites(reach float64) float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	damage := 0.0
	for _, e := range w.entities {
		if !e.Player && e.Position.DistanceSquared(w.self.Position) <= reach*reach {
			damage += 2
		}
	}
	return damage
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
