package gear

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rodentplay/rodentbot/internal/world"
)

// fakeArmory records calls and lets tests script acquisition.
type fakeArmory struct {
	items        []world.Item
	equipped     map[world.Slot]world.Item
	allowAcquire bool
	grants       map[string]bool // items Acquire actually delivers
	failEquip    map[string]error

	equips   []string
	acquires []string
}

func newFakeArmory(items ...string) *fakeArmory {
	a := &fakeArmory{
		equipped:  make(map[world.Slot]world.Item),
		grants:    make(map[string]bool),
		failEquip: make(map[string]error),
	}
	for _, name := range items {
		a.items = append(a.items, world.Item{Name: name, Count: 1})
	}
	return a
}

func (a *fakeArmory) Items() []world.Item { return append([]world.Item(nil), a.items...) }

func (a *fakeArmory) Equipped(slot world.Slot) (world.Item, bool) {
	it, ok := a.equipped[slot]
	return it, ok
}

func (a *fakeArmory) Equip(ctx context.Context, item string, slot world.Slot) error {
	a.equips = append(a.equips, item)
	if err := a.failEquip[item]; err != nil {
		return err
	}
	a.equipped[slot] = world.Item{Name: item, Count: 1}
	return nil
}

func (a *fakeArmory) Acquire(ctx context.Context, item string, count int) error {
	a.acquires = append(a.acquires, item)
	if a.grants[item] {
		a.items = append(a.items, world.Item{Name: item, Count: count})
	}
	return nil
}

func (a *fakeArmory) AcquireAllowed() bool { return a.allowAcquire }

func TestTiers(t *testing.T) {
	assert.Equal(t, "diamond_helmet", Tiers(world.SlotHead)[DefaultFloor])
	assert.Equal(t, "leather_boots", Tiers(world.SlotFeet)[5])
	assert.Equal(t, WeaponTiers, Tiers(world.SlotHand))
	assert.Nil(t, Tiers(world.Slot("tail")))

	assert.Equal(t, 2, TierIndex(WeaponTiers, "iron_sword"))
	assert.Equal(t, len(WeaponTiers), TierIndex(WeaponTiers, "stick"))
}

func TestRefreshEquipsBestOwned(t *testing.T) {
	a := newFakeArmory("iron_sword", "wooden_sword", "golden_helmet", "diamond_helmet", "leather_boots")
	p := NewPolicy(a, nil)

	require.NoError(t, p.Refresh(context.Background(), false))

	assert.Equal(t, "diamond_helmet", a.equipped[world.SlotHead].Name)
	assert.Equal(t, "leather_boots", a.equipped[world.SlotFeet].Name)
	assert.Equal(t, "iron_sword", a.equipped[world.SlotHand].Name)
	_, ok := a.equipped[world.SlotTorso]
	assert.False(t, ok)
	assert.Empty(t, a.acquires)
}

func TestRefreshIsIdempotent(t *testing.T) {
	a := newFakeArmory("iron_sword", "chainmail_chestplate")
	p := NewPolicy(a, nil)
	ctx := context.Background()

	require.NoError(t, p.Refresh(ctx, false))
	first := len(a.equips)
	require.Equal(t, 2, first)

	require.NoError(t, p.Refresh(ctx, false))
	assert.Len(t, a.equips, first, "second refresh must not equip again")
}

func TestRefreshNeverDowngrades(t *testing.T) {
	a := newFakeArmory("netherite_sword", "diamond_sword", "wooden_sword")
	a.equipped[world.SlotHand] = world.Item{Name: "diamond_sword", Count: 1}
	a.items = a.items[1:] // netherite gone from the inventory
	p := NewPolicy(a, nil)

	require.NoError(t, p.Refresh(context.Background(), false))
	assert.Equal(t, "diamond_sword", a.equipped[world.SlotHand].Name)
	assert.Empty(t, a.equips)
}

func TestUnknownEquippedItemCountsAsWorst(t *testing.T) {
	a := newFakeArmory("wooden_sword")
	a.equipped[world.SlotHand] = world.Item{Name: "bread", Count: 1}
	p := NewPolicy(a, nil)

	require.NoError(t, p.Refresh(context.Background(), false))
	assert.Equal(t, "wooden_sword", a.equipped[world.SlotHand].Name)
}

func TestRefreshAcquiresFloorOncePerSlot(t *testing.T) {
	a := newFakeArmory("iron_sword")
	a.allowAcquire = true
	for _, slot := range Slots {
		a.grants[Tiers(slot)[DefaultFloor]] = true
	}
	p := NewPolicy(a, nil)

	require.NoError(t, p.Refresh(context.Background(), true))

	assert.Equal(t, []string{
		"diamond_helmet", "diamond_chestplate", "diamond_leggings", "diamond_boots", "diamond_sword",
	}, a.acquires)
	for _, slot := range Slots {
		assert.Equal(t, Tiers(slot)[DefaultFloor], a.equipped[slot].Name)
	}

	// Everything at the floor now: no further requests.
	require.NoError(t, p.Refresh(context.Background(), true))
	assert.Len(t, a.acquires, 5)
}

func TestRefreshAcquireIgnoredKeepsBestOwned(t *testing.T) {
	a := newFakeArmory("iron_sword")
	a.allowAcquire = true
	p := NewPolicy(a, nil)

	require.NoError(t, p.Refresh(context.Background(), true))
	assert.Equal(t, "iron_sword", a.equipped[world.SlotHand].Name)
	assert.Contains(t, a.acquires, "diamond_sword")
}

func TestRefreshSkipsAcquireWhenDisallowed(t *testing.T) {
	a := newFakeArmory()
	a.allowAcquire = false
	p := NewPolicy(a, nil)

	require.NoError(t, p.Refresh(context.Background(), true))
	assert.Empty(t, a.acquires)

	a.allowAcquire = true
	require.NoError(t, p.Refresh(context.Background(), false))
	assert.Empty(t, a.acquires)
}

func TestEquipFailureIsNonFatal(t *testing.T) {
	a := newFakeArmory("diamond_helmet", "iron_sword")
	boom := errors.New("slot locked")
	a.failEquip["diamond_helmet"] = boom
	p := NewPolicy(a, nil)

	err := p.Refresh(context.Background(), false)
	require.Error(t, err)

	var ee *EquipError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, world.SlotHead, ee.Slot)
	assert.ErrorIs(t, err, boom)

	// The remaining slots were still handled.
	assert.Equal(t, "iron_sword", a.equipped[world.SlotHand].Name)
}

func TestRefreshStopsOnCancelledContext(t *testing.T) {
	a := newFakeArmory("iron_sword")
	p := NewPolicy(a, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, p.Refresh(ctx, false), context.Canceled)
	assert.Empty(t, a.equips)
}

func TestHasWeaponAtLeast(t *testing.T) {
	a := newFakeArmory()
	p := NewPolicy(a, nil)
	assert.False(t, p.Armed())

	a.equipped[world.SlotHand] = world.Item{Name: "iron_sword"}
	assert.False(t, p.Armed())
	assert.True(t, p.HasWeaponAtLeast(2))
	assert.True(t, p.WithFloor(2).Armed())

	a.equipped[world.SlotHand] = world.Item{Name: "diamond_sword"}
	assert.True(t, p.Armed())
}

func TestBestTool(t *testing.T) {
	items := []world.Item{{Name: "stone_pickaxe", Count: 1}, {Name: "iron_pickaxe", Count: 1}, {Name: "dirt", Count: 3}}
	tool, ok := BestTool(PickaxeTiers, items)
	require.True(t, ok)
	assert.Equal(t, "iron_pickaxe", tool)

	_, ok = BestTool(PickaxeTiers, items[2:])
	assert.False(t, ok)
}

func TestToolFor(t *testing.T) {
	tests := []struct {
		block world.Block
		want  string
	}{
		{world.Block{Name: "oak_log", Material: "wood"}, ToolAxe},
		{world.Block{Name: "birch_planks"}, ToolAxe},
		{world.Block{Name: "dirt", Material: "dirt"}, ToolShovel},
		{world.Block{Name: "sand"}, ToolShovel},
		{world.Block{Name: "gravel"}, ToolShovel},
		{world.Block{Name: "grass_block"}, ToolShovel},
		{world.Block{Name: "stone", Material: "rock"}, ToolPickaxe},
		{world.Block{Name: "iron_ore", Material: "ore"}, ToolPickaxe},
		{world.Block{Name: "deepslate_diamond_ore"}, ToolPickaxe},
		{world.Block{Name: "cobblestone"}, ToolPickaxe},
		{world.Block{Name: "bedrock"}, ToolNone},
		{world.Block{Name: "torch"}, ToolNone},
	}
	for _, tt := range tests {
		t.Run(tt.block.Name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToolFor(tt.block))
		})
	}
}

func TestToolTiers(t *testing.T) {
	assert.Equal(t, "diamond_axe", ToolTiers(ToolAxe)[DefaultFloor])
	assert.Equal(t, "diamond_shovel", ToolTiers(ToolShovel)[DefaultFloor])
	assert.Equal(t, PickaxeTiers, ToolTiers(ToolPickaxe))
	assert.Nil(t, ToolTiers(ToolNone))

	tool, ok := BestTool(AxeTiers, []world.Item{{Name: "stone_axe", Count: 1}, {Name: "diamond_pickaxe", Count: 1}})
	require.True(t, ok)
	assert.Equal(t, "stone_axe", tool)
}
