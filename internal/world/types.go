package world

import (
	"fmt"
	"math"
)

// Vec3 is a position in the world.
type Vec3 struct {
	X, Y, Z float64
}

// Add returns v+o.
func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

// Sub returns v-o.
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

// Scale returns v*f.
func (v Vec3) Scale(f float64) Vec3 { return Vec3{v.X * f, v.Y * f, v.Z * f} }

// DistanceSquared returns the squared distance between v and o.
func (v Vec3) DistanceSquared(o Vec3) float64 {
	d := v.Sub(o)
	return d.X*d.X + d.Y*d.Y + d.Z*d.Z
}

// Normalize returns the unit vector in v's direction. The zero vector
// normalizes to the unit X axis so callers always get a usable direction.
func (v Vec3) Normalize() Vec3 {
	l := math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
	if l == 0 {
		return Vec3{X: 1}
	}
	return v.Scale(1 / l)
}

// Floor rounds every component down to a block coordinate.
func (v Vec3) Floor() Vec3 {
	return Vec3{math.Floor(v.X), math.Floor(v.Y), math.Floor(v.Z)}
}

// Offset returns v moved by whole blocks.
func (v Vec3) Offset(dx, dy, dz int) Vec3 {
	return Vec3{v.X + float64(dx), v.Y + float64(dy), v.Z + float64(dz)}
}

func (v Vec3) String() string {
	return fmt.Sprintf("(%.0f, %.0f, %.0f)", v.X, v.Y, v.Z)
}

// Entity is anything the world reports: players, mobs, dropped items.
type Entity struct {
	ID       int
	Name     string // lower-case type name for mobs, username for players
	Player   bool
	Position Vec3
	Health   float64
}

// Item is an inventory stack.
type Item struct {
	Name       string
	Count      int
	FoodPoints int // > 0 for edible items
}

// Block is a world block at a fixed position.
type Block struct {
	Name     string
	Position Vec3
	Material string // tool family hint: "rock", "wood", "dirt", ...
}

// Air reports whether the block is empty space.
func (b Block) Air() bool {
	return b.Name == "" || b.Name == "air"
}

// Slot is an equipment destination.
type Slot string

const (
	SlotHead  Slot = "head"
	SlotTorso Slot = "torso"
	SlotLegs  Slot = "legs"
	SlotFeet  Slot = "feet"
	SlotHand  Slot = "hand"
)

// ParseSlot maps user input to a slot.
func ParseSlot(s string) (Slot, error) {
	switch Slot(s) {
	case SlotHead, SlotTorso, SlotLegs, SlotFeet, SlotHand:
		return Slot(s), nil
	}
	return "", fmt.Errorf("unknown equipment slot %q", s)
}

// GameMode values relevant to acquisition.
const (
	ModeSurvival = "survival"
	ModeCreative = "creative"
)
