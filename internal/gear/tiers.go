package gear

import (
	"strings"

	"github.com/rodentplay/rodentbot/internal/world"
)

// DefaultFloor is the diamond-equivalent tier index. Anything worse is
// upgraded by acquisition when that is allowed.
const DefaultFloor = 1

var materials = []string{"netherite", "diamond", "iron", "golden", "chainmail", "leather"}

var armorPiece = map[world.Slot]string{
	world.SlotHead:  "helmet",
	world.SlotTorso: "chestplate",
	world.SlotLegs:  "leggings",
	world.SlotFeet:  "boots",
}

// WeaponTiers lists melee weapons best to worst.
var WeaponTiers = []string{
	"netherite_sword",
	"diamond_sword",
	"iron_sword",
	"stone_sword",
	"golden_sword",
	"wooden_sword",
}

// PickaxeTiers lists pickaxes best to worst.
var PickaxeTiers = []string{
	"netherite_pickaxe",
	"diamond_pickaxe",
	"iron_pickaxe",
	"stone_pickaxe",
	"golden_pickaxe",
	"wooden_pickaxe",
}

// AxeTiers lists axes best to worst.
var AxeTiers = []string{
	"netherite_axe",
	"diamond_axe",
	"iron_axe",
	"stone_axe",
	"golden_axe",
	"wooden_axe",
}

// ShovelTiers lists shovels best to worst.
var ShovelTiers = []string{
	"netherite_shovel",
	"diamond_shovel",
	"iron_shovel",
	"stone_shovel",
	"golden_shovel",
	"wooden_shovel",
}

// Tool families a block can call for.
const (
	ToolNone    = ""
	ToolPickaxe = "pickaxe"
	ToolAxe     = "axe"
	ToolShovel  = "shovel"
)

var (
	axeWords     = []string{"log", "planks", "wood", "fence", "door", "crafting_table", "bookshelf"}
	shovelWords  = []string{"dirt", "sand", "grass", "gravel", "clay", "snow", "mycelium", "podzol", "farmland"}
	pickaxeWords = []string{"ore", "stone", "cobble", "brick", "deepslate", "netherrack", "obsidian", "andesite", "granite", "diorite"}
)

// ToolFor returns the tool family that digs b fastest. The block's material
// hint wins; otherwise the name decides. ToolNone means bare hands are fine.
func ToolFor(b world.Block) string {
	switch b.Material {
	case "wood":
		return ToolAxe
	case "dirt":
		return ToolShovel
	case "rock", "ore":
		return ToolPickaxe
	}
	name := strings.ToLower(b.Name)
	switch {
	case containsAny(name, axeWords):
		return ToolAxe
	case containsAny(name, shovelWords):
		return ToolShovel
	case containsAny(name, pickaxeWords):
		return ToolPickaxe
	}
	return ToolNone
}

// ToolTiers returns the best-to-worst list for a tool family, or nil.
func ToolTiers(kind string) []string {
	switch kind {
	case ToolPickaxe:
		return PickaxeTiers
	case ToolAxe:
		return AxeTiers
	case ToolShovel:
		return ShovelTiers
	}
	return nil
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// Slots is the order in which the policy visits equipment slots.
var Slots = []world.Slot{world.SlotHead, world.SlotTorso, world.SlotLegs, world.SlotFeet, world.SlotHand}

// Tiers returns the best-to-worst item list for slot.
func Tiers(slot world.Slot) []string {
	if slot == world.SlotHand {
		return WeaponTiers
	}
	piece, ok := armorPiece[slot]
	if !ok {
		return nil
	}
	out := make([]string, len(materials))
	for i, m := range materials {
		out[i] = m + "_" + piece
	}
	return out
}

// TierIndex returns item's position in tiers, or len(tiers) when it is not
// listed. Lower is better.
func TierIndex(tiers []string, item string) int {
	for i, name := range tiers {
		if name == item {
			return i
		}
	}
	return len(tiers)
}

// bestOwned returns the best tier index present in items, or len(tiers).
func bestOwned(tiers []string, items []world.Item) int {
	best := len(tiers)
	for _, it := range items {
		if it.Count <= 0 {
			continue
		}
		if idx := TierIndex(tiers, it.Name); idx < best {
			best = idx
		}
	}
	return best
}

// BestTool returns the best item from tiers found in items.
func BestTool(tiers []string, items []world.Item) (string, bool) {
	idx := bestOwned(tiers, items)
	if idx >= len(tiers) {
		return "", false
	}
	return tiers[idx], true
}
