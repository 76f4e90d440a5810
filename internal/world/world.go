// Package world declares the narrow interfaces through which the agent core
// talks to the game world. Connection handling, protocol and path finding
// live behind these interfaces.
package world

import (
	"context"
	"errors"
)

// ErrMovementInterrupted is returned by Goto when the goal was replaced or
// stopped before arrival.
var ErrMovementInterrupted = errors.New("movement interrupted")

// GoalKind selects how a movement goal is satisfied.
type GoalKind int

const (
	GoalNone   GoalKind = iota // Stop moving
	GoalNear                   // Reach within Range of Point
	GoalExact                  // Reach the block at Point
	GoalFollow                 // Keep within Range of entity EntityID
)

// Goal is a movement target. Setting a new goal replaces the previous one.
type Goal struct {
	Kind     GoalKind
	Point    Vec3
	Range    float64
	EntityID int
}

// Near builds a GoalNear.
func Near(p Vec3, r float64) Goal { return Goal{Kind: GoalNear, Point: p, Range: r} }

// Exact builds a GoalExact.
func Exact(p Vec3) Goal { return Goal{Kind: GoalExact, Point: p} }

// Follow builds a GoalFollow.
func Follow(entityID int, r float64) Goal { return Goal{Kind: GoalFollow, EntityID: entityID, Range: r} }

// Mover executes movement goals.
type Mover interface {
	// SetGoal replaces the active goal without waiting. A GoalNone goal stops.
	SetGoal(g Goal)
	// Goto sets g and blocks until arrival, replacement or ctx cancellation.
	Goto(ctx context.Context, g Goal) error
	// Stop cancels the active goal.
	Stop()
	// Moving reports whether a goal is in progress.
	Moving() bool
}

// Armory is the equipment view used by the gear policy.
type Armory interface {
	Items() []Item
	Equipped(slot Slot) (Item, bool)
	Equip(ctx context.Context, item string, slot Slot) error
	// Acquire requests count units of item from outside the world (e.g. an
	// operator give command). It blocks until the request has had time to
	// resolve; callers re-scan the inventory afterwards.
	Acquire(ctx context.Context, item string, count int) error
	// AcquireAllowed is false in restricted or sandbox modes.
	AcquireAllowed() bool
}

// Inventory adds the remaining item primitives.
type Inventory interface {
	Armory
	Unequip(ctx context.Context, slot Slot) error
	Consume(ctx context.Context) error
	// Activate uses the held item the way a right click would.
	Activate(ctx context.Context) error
	Toss(ctx context.Context, item string, count int) error
	Craft(ctx context.Context, item string, count int) error
}

// Senses answers entity and block queries.
type Senses interface {
	Self() Entity
	Entities() []Entity
	Player(name string) (Entity, bool)
	BlockAt(pos Vec3) (Block, bool)
	FindBlocks(name string, maxDistance float64, count int) []Vec3
	Food() int
	GameMode() string
}

// Combat drives melee attacks.
type Combat interface {
	Attack(entityID int)
	StopAttacking()
}

// Digger breaks blocks.
type Digger interface {
	CanDig(b Block) bool
	Dig(ctx context.Context, b Block) error
}

// World is the complete collaborator surface.
type World interface {
	Senses
	Mover
	Inventory
	Combat
	Digger
	// Chat sends a line to the in-game chat.
	Chat(msg string)
}
