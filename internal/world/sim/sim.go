// Package sim is an in-memory world used by the CLI's offline mode and by
// tests. Movement, digging and acquisition take real (configurable) time and
// honour context cancellation, so suspension points behave like they would
// against a live server.
package sim

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/rodentplay/rodentbot/internal/world"
)

const (
	selfID   = 1
	maxFood  = 20
	hitPower = 4.0
)

// Config tunes the simulation.
type Config struct {
	Speed          float64       // blocks per second; <= 0 arrives instantly
	DigDelay       time.Duration // time to break one block
	AcquireDelay   time.Duration // time for an acquisition request to land
	AcquireAllowed bool
	GameMode       string
	Food           int
	Recipes        map[string]map[string]int // output -> ingredient -> count
}

// DefaultConfig returns settings that feel responsive in the console.
func DefaultConfig() Config {
	return Config{
		Speed:          8,
		DigDelay:       150 * time.Millisecond,
		AcquireDelay:   300 * time.Millisecond,
		AcquireAllowed: true,
		GameMode:       world.ModeSurvival,
		Food:           maxFood,
		Recipes: map[string]map[string]int{
			"oak_planks":     {"oak_log": 1},
			"stick":          {"oak_planks": 1},
			"crafting_table": {"oak_planks": 4},
			"wooden_sword":   {"oak_planks": 2, "stick": 1},
		},
	}
}

// World is a thread-safe simulated world.World.
type World struct {
	mu  sync.Mutex
	cfg Config

	self     world.Entity
	entities map[int]world.Entity
	blocks   map[world.Vec3]world.Block
	items    []world.Item
	equipped map[world.Slot]world.Item
	food     int

	goal     world.Goal
	moving   bool
	goalSeq  int
	replaced chan struct{} // closed whenever the goal changes

	attacking int
	nextID    int

	chat      []string
	attacks   []int
	used      []string
	equipErrs map[string]error

	spawn   world.Vec3
	onDeath func()
}

// New creates an empty world with the agent at the origin.
func New(cfg Config) *World {
	if cfg.GameMode == "" {
		cfg.GameMode = world.ModeSurvival
	}
	return &World{
		cfg:       cfg,
		self:      world.Entity{ID: selfID, Name: "rodent", Player: true, Health: 20},
		entities:  make(map[int]world.Entity),
		blocks:    make(map[world.Vec3]world.Block),
		equipped:  make(map[world.Slot]world.Item),
		food:      cfg.Food,
		replaced:  make(chan struct{}),
		nextID:    100,
		equipErrs: make(map[string]error),
	}
}

// --- Senses ---

func (w *World) Self() world.Entity {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.self
}

func (w *World) Entities() []world.Entity {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]world.Entity, 0, len(w.entities))
	for _, e := range w.entities {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (w *World) Player(name string) (world.Entity, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, e := range w.entities {
		if e.Player && e.Name == name {
			return e, true
		}
	}
	return world.Entity{}, false
}

func (w *World) BlockAt(pos world.Vec3) (world.Block, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, ok := w.blocks[pos.Floor()]
	return b, ok
}

func (w *World) FindBlocks(name string, maxDistance float64, count int) []world.Vec3 {
	w.mu.Lock()
	defer w.mu.Unlock()

	limit := maxDistance * maxDistance
	var found []world.Vec3
	for pos, b := range w.blocks {
		if b.Name == name && pos.DistanceSquared(w.self.Position) <= limit {
			found = append(found, pos)
		}
	}
	origin := w.self.Position
	sort.Slice(found, func(i, j int) bool {
		di, dj := found[i].DistanceSquared(origin), found[j].DistanceSquared(origin)
		if di != dj {
			return di < dj
		}
		return found[i].String() < found[j].String()
	})
	if count > 0 && len(found) > count {
		found = found[:count]
	}
	return found
}

func (w *World) Food() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.food
}

func (w *World) GameMode() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cfg.GameMode
}

// --- Mover ---

func (w *World) SetGoal(g world.Goal) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.setGoalLocked(g)
}

func (w *World) setGoalLocked(g world.Goal) int {
	w.goal = g
	w.moving = g.Kind != world.GoalNone
	w.goalSeq++
	close(w.replaced)
	w.replaced = make(chan struct{})
	return w.goalSeq
}

func (w *World) Goto(ctx context.Context, g world.Goal) error {
	w.mu.Lock()
	seq := w.setGoalLocked(g)
	replaced := w.replaced
	dest, err := w.destinationLocked(g)
	if err != nil {
		w.moving = false
		w.mu.Unlock()
		return err
	}
	travel := w.travelTimeLocked(dest)
	w.mu.Unlock()

	timer := time.NewTimer(travel)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-replaced:
		return world.ErrMovementInterrupted
	case <-ctx.Done():
		w.mu.Lock()
		if w.goalSeq == seq {
			w.moving = false
			w.goal = world.Goal{}
		}
		w.mu.Unlock()
		return ctx.Err()
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.goalSeq != seq {
		return world.ErrMovementInterrupted
	}
	w.self.Position = dest
	w.moving = false
	return nil
}

func (w *World) destinationLocked(g world.Goal) (world.Vec3, error) {
	switch g.Kind {
	case world.GoalNear, world.GoalExact:
		return g.Point, nil
	case world.GoalFollow:
		e, ok := w.entities[g.EntityID]
		if !ok {
			return world.Vec3{}, fmt.Errorf("entity %d is gone", g.EntityID)
		}
		return e.Position, nil
	}
	return w.self.Position, nil
}

func (w *World) travelTimeLocked(dest world.Vec3) time.Duration {
	if w.cfg.Speed <= 0 {
		return 0
	}
	dist := math.Sqrt(dest.DistanceSquared(w.self.Position))
	return time.Duration(dist / w.cfg.Speed * float64(time.Second))
}

func (w *World) Stop() {
	w.SetGoal(world.Goal{})
}

func (w *World) Moving() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.moving
}

// Goal returns the active movement goal.
func (w *World) Goal() world.Goal {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.goal
}

// --- Combat ---

func (w *World) Attack(entityID int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.attacking = entityID
	w.attacks = append(w.attacks, entityID)
}

func (w *World) StopAttacking() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.attacking = 0
}

// Attacking returns the entity being attacked, or 0.
func (w *World) Attacking() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.attacking
}

// Attacks returns every Attack call in order.
func (w *World) Attacks() []int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]int(nil), w.attacks...)
}

// --- Digger ---

func (w *World) CanDig(b world.Block) bool {
	return !b.Air() && b.Name != "bedrock"
}

func (w *World) Dig(ctx context.Context, b world.Block) error {
	if !w.CanDig(b) {
		return fmt.Errorf("cannot dig %s", b.Name)
	}
	if err := sleep(ctx, w.cfg.DigDelay); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	pos := b.Position.Floor()
	cur, ok := w.blocks[pos]
	if !ok || cur.Air() {
		return fmt.Errorf("no block at %s", pos)
	}
	delete(w.blocks, pos)
	w.addLocked(cur.Name, 1, 0)
	return nil
}

// --- Chat ---

func (w *World) Chat(msg string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.chat = append(w.chat, msg)
}

// ChatLog returns every line sent through Chat.
func (w *World) ChatLog() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.chat...)
}

// --- Administration ---

// Spawn adds an entity and returns its id.
func (w *World) Spawn(e world.Entity) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nextID++
	e.ID = w.nextID
	if e.Health == 0 {
		e.Health = 20
	}
	w.entities[e.ID] = e
	return e.ID
}

// Despawn removes an entity.
func (w *World) Despawn(id int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.entities, id)
	if w.attacking == id {
		w.attacking = 0
	}
}

// MoveEntity teleports an entity.
func (w *World) MoveEntity(id int, pos world.Vec3) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if e, ok := w.entities[id]; ok {
		e.Position = pos
		w.entities[id] = e
	}
}

// Teleport moves the agent.
func (w *World) Teleport(pos world.Vec3) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.self.Position = pos
}

// SetBlock places a block; an empty or "air" name removes it.
func (w *World) SetBlock(pos world.Vec3, name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	pos = pos.Floor()
	if name == "" || name == "air" {
		delete(w.blocks, pos)
		return
	}
	w.blocks[pos] = world.Block{Name: name, Position: pos, Material: material(name)}
}

// Give adds count units of item to the inventory. foodPoints > 0 marks the
// item edible.
func (w *World) Give(item string, count, foodPoints int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.addLocked(item, count, foodPoints)
}

// SetFood sets the hunger bar.
func (w *World) SetFood(food int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.food = food
}

// SetAcquireAllowed toggles acquisition.
func (w *World) SetAcquireAllowed(ok bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cfg.AcquireAllowed = ok
}

// FailEquip makes every Equip of item return err. A nil err clears it.
func (w *World) FailEquip(item string, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err == nil {
		delete(w.equipErrs, item)
		return
	}
	w.equipErrs[item] = err
}

// Step advances combat by one swing: the attacked entity loses health and
// disappears at zero. Returns the id of an entity that died, or 0.
func (w *World) Step() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, ok := w.entities[w.attacking]
	if !ok {
		return 0
	}
	e.Health -= hitPower
	if e.Health > 0 {
		w.entities[e.ID] = e
		return 0
	}
	delete(w.entities, e.ID)
	w.attacking = 0
	return e.ID
}

// OnDeath registers fn to run, without the world lock, whenever the agent
// dies.
func (w *World) OnDeath(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onDeath = fn
}

// Hurt takes health from the agent. At zero it dies: the world is Reset, the
// agent respawns at its spawn point and Hurt reports true.
func (w *World) Hurt(amount float64) bool {
	w.mu.Lock()
	w.self.Health -= amount
	if w.self.Health > 0 {
		w.mu.Unlock()
		return false
	}
	w.resetLocked()
	w.self.Position = w.spawn
	fn := w.onDeath
	w.mu.Unlock()

	if fn != nil {
		fn()
	}
	return true
}

// Reset clears the inventory, equipment and goal, as after a death.
func (w *World) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.resetLocked()
}

func (w *World) resetLocked() {
	w.items = nil
	w.equipped = make(map[world.Slot]world.Item)
	w.food = maxFood
	w.attacking = 0
	w.self.Health = 20
	w.setGoalLocked(world.Goal{})
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func material(name string) string {
	switch name {
	case "stone", "cobblestone", "deepslate", "andesite", "granite", "diorite":
		return "rock"
	case "oak_log", "birch_log", "spruce_log", "oak_planks":
		return "wood"
	case "dirt", "grass_block", "sand", "gravel":
		return "dirt"
	case "coal_ore", "iron_ore", "gold_ore", "diamond_ore", "redstone_ore":
		return "ore"
	}
	return ""
}
