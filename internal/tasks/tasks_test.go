package tasks

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/rodentplay/rodentbot/internal/events"
	"github.com/rodentplay/rodentbot/internal/scheduler"
	"github.com/rodentplay/rodentbot/internal/world"
	"github.com/rodentplay/rodentbot/internal/world/sim"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var origin = world.Vec3{X: 0, Y: 64, Z: 0}

type harness struct {
	world *sim.World
	sched *scheduler.Scheduler
	lib   *Library
	sub   *events.Subscription
}

func newHarness(t *testing.T, mutate func(*sim.Config)) *harness {
	t.Helper()
	cfg := sim.DefaultConfig()
	cfg.Speed = 0
	cfg.DigDelay = 0
	cfg.AcquireDelay = 0
	cfg.AcquireAllowed = false
	if mutate != nil {
		mutate(&cfg)
	}
	w := sim.New(cfg)
	w.Teleport(origin)

	bus := events.NewEventBus()
	h := &harness{
		world: w,
		sched: scheduler.New(scheduler.Config{Bus: bus}),
		lib:   New(w, Config{AcquireSettle: time.Millisecond}, nil),
		sub:   bus.Subscribe(events.TopicTask, 256),
	}
	t.Cleanup(func() {
		h.sched.Shutdown()
		bus.Close()
	})
	return h
}

func (h *harness) submit(t *testing.T, name string, body scheduler.Body, args []string, requester string) {
	t.Helper()
	h.sched.Control().Do(func() {
		require.NoError(t, h.sched.Submit(scheduler.NewTask(name, body, args, requester)))
	})
}

// wait returns the first terminal or preemption event, plus every output
// line seen before it.
func (h *harness) wait(t *testing.T) (events.Event, []string) {
	t.Helper()
	var lines []string
	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev := <-h.sub.C:
			switch e := ev.(type) {
			case events.TaskOutputEvent:
				lines = append(lines, e.Line)
			case events.TaskCompletedEvent, events.TaskFailedEvent,
				events.TaskPreemptedEvent, events.TaskCancelledEvent:
				return ev, lines
			}
		case <-deadline:
			t.Fatal("timeout waiting for task outcome")
			return nil, lines
		}
	}
}

func (h *harness) count(item string) int {
	return count(h.world.Items(), item)
}

func TestGotoArrives(t *testing.T) {
	h := newHarness(t, nil)
	dest := world.Vec3{X: 10, Y: 64, Z: -4}

	h.submit(t, "goto", h.lib.Goto(), GotoArgs(dest), "alice")
	ev, lines := h.wait(t)

	require.IsType(t, events.TaskCompletedEvent{}, ev)
	assert.Equal(t, dest, h.world.Self().Position)
	assert.Contains(t, lines, "Heading to (10, 64, -4)!")
}

func TestGotoPreemptedAndResumed(t *testing.T) {
	h := newHarness(t, func(c *sim.Config) { c.Speed = 1 })
	dest := world.Vec3{X: 100, Y: 64, Z: 0}

	h.submit(t, "goto", h.lib.Goto(), GotoArgs(dest), "alice")
	require.Eventually(t, h.world.Moving, time.Second, time.Millisecond)

	h.sched.Control().Do(func() {
		h.sched.Token().Arm(scheduler.Target{ID: 7, Name: "zombie"})
	})
	ev, _ := h.wait(t)
	require.IsType(t, events.TaskPreemptedEvent{}, ev)

	h.sched.Control().Do(func() {
		pending := h.sched.Pending()
		require.Len(t, pending, 1)
		assert.Equal(t, "goto", pending[0].Name)
	})

	// Put the agent on the target so the resumed walk is instant.
	h.world.Teleport(dest)
	h.sched.Control().Do(func() {
		h.sched.Token().Disarm()
	})

	ev, _ = h.wait(t)
	require.IsType(t, events.TaskCompletedEvent{}, ev)
}

func TestGotoCancelledByStay(t *testing.T) {
	h := newHarness(t, func(c *sim.Config) { c.Speed = 1 })

	h.submit(t, "goto", h.lib.Goto(), GotoArgs(world.Vec3{X: 100, Y: 64}), "alice")
	require.Eventually(t, h.world.Moving, time.Second, time.Millisecond)

	h.sched.Control().Do(func() { h.sched.Stay() })

	ev, _ := h.wait(t)
	cancelled, ok := ev.(events.TaskCancelledEvent)
	require.True(t, ok, "expected cancellation, got %T", ev)
	assert.Equal(t, "stay", cancelled.Reason)
}

func TestGatherCollectsAndReturns(t *testing.T) {
	h := newHarness(t, nil)
	h.world.SetBlock(world.Vec3{X: 3, Y: 64, Z: 0}, "oak_log")
	h.world.SetBlock(world.Vec3{X: 5, Y: 64, Z: 0}, "oak_log")
	h.world.SetBlock(world.Vec3{X: 9, Y: 64, Z: 0}, "oak_log")

	h.submit(t, "gather", h.lib.Gather(), GatherArgs("oak_log", 2), "alice")
	ev, lines := h.wait(t)

	require.IsType(t, events.TaskCompletedEvent{}, ev)
	assert.Equal(t, 2, h.count("oak_log"))
	assert.Equal(t, origin, h.world.Self().Position, "agent walks back to its start")
	assert.Contains(t, lines, "Mined oak_log! Collected 2/2.")
	assert.Contains(t, lines, "I don't have an axe, I'll dig by hand.")

	_, ok := h.world.BlockAt(world.Vec3{X: 9, Y: 64, Z: 0})
	assert.True(t, ok, "the farthest block is left alone")
}

func TestGatherOneBatch(t *testing.T) {
	h := newHarness(t, nil)
	for x := 2; x <= 4; x++ {
		h.world.SetBlock(world.Vec3{X: float64(x), Y: 64, Z: 1}, "stone")
	}

	h.submit(t, "gather", h.lib.Gather(), GatherArgs("stone", 0), "alice")
	ev, _ := h.wait(t)

	require.IsType(t, events.TaskCompletedEvent{}, ev)
	assert.Equal(t, 3, h.count("stone"))
}

func TestGatherAcquiresPickaxe(t *testing.T) {
	h := newHarness(t, func(c *sim.Config) { c.AcquireAllowed = true })
	h.world.SetBlock(world.Vec3{X: 2, Y: 64, Z: 0}, "stone")

	h.submit(t, "gather", h.lib.Gather(), GatherArgs("stone", 1), "alice")
	ev, _ := h.wait(t)

	require.IsType(t, events.TaskCompletedEvent{}, ev)
	held, ok := h.world.Equipped(world.SlotHand)
	require.True(t, ok)
	assert.Equal(t, "diamond_pickaxe", held.Name)
}

func TestGatherPicksToolForBlock(t *testing.T) {
	tests := []struct {
		block string
		want  string
	}{
		{"oak_log", "diamond_axe"},
		{"dirt", "diamond_shovel"},
		{"iron_ore", "diamond_pickaxe"},
	}
	for _, tt := range tests {
		t.Run(tt.block, func(t *testing.T) {
			h := newHarness(t, func(c *sim.Config) { c.AcquireAllowed = true })
			h.world.SetBlock(world.Vec3{X: 2, Y: 64, Z: 0}, tt.block)

			h.submit(t, "gather", h.lib.Gather(), GatherArgs(tt.block, 1), "alice")
			ev, _ := h.wait(t)

			require.IsType(t, events.TaskCompletedEvent{}, ev)
			held, ok := h.world.Equipped(world.SlotHand)
			require.True(t, ok)
			assert.Equal(t, tt.want, held.Name)
			assert.Equal(t, 1, h.count(tt.want))
			assert.Equal(t, 1, h.count(tt.block))
		})
	}
}

func TestGatherUsesOwnedToolWithoutAcquiring(t *testing.T) {
	h := newHarness(t, nil)
	h.world.Give("stone_axe", 1, 0)
	h.world.Give("diamond_pickaxe", 1, 0)
	h.world.SetBlock(world.Vec3{X: 2, Y: 64, Z: 0}, "birch_log")

	h.submit(t, "gather", h.lib.Gather(), GatherArgs("birch_log", 1), "alice")
	ev, lines := h.wait(t)

	require.IsType(t, events.TaskCompletedEvent{}, ev)
	held, ok := h.world.Equipped(world.SlotHand)
	require.True(t, ok)
	assert.Equal(t, "stone_axe", held.Name)
	assert.NotContains(t, lines, "I don't have an axe, I'll dig by hand.")
}

func TestGatherNothingFound(t *testing.T) {
	h := newHarness(t, nil)

	h.submit(t, "gather", h.lib.Gather(), GatherArgs("diamond_ore", 3), "alice")
	ev, _ := h.wait(t)

	failed, ok := ev.(events.TaskFailedEvent)
	require.True(t, ok, "expected failure, got %T", ev)
	var te *scheduler.TaskError
	require.True(t, errors.As(failed.Err, &te))
	assert.Equal(t, "I couldn't find any diamond_ore nearby", te.Reason)
}

func TestGatherStopsWhenNothingIsDiggable(t *testing.T) {
	h := newHarness(t, nil)
	h.world.SetBlock(world.Vec3{X: 2, Y: 64, Z: 0}, "bedrock")

	h.submit(t, "gather", h.lib.Gather(), GatherArgs("bedrock", 5), "alice")
	ev, lines := h.wait(t)

	require.IsType(t, events.TaskFailedEvent{}, ev)
	assert.Contains(t, lines, "No more bedrock I can reach.")
}

func TestFlattenLevels(t *testing.T) {
	h := func(v int) *int { return &v }
	tests := []struct {
		name   string
		height *int
		want   []int
	}{
		{"default", nil, []int{0, -1}},
		{"up", h(3), []int{0, 1, 2}},
		{"down", h(-2), []int{0, -1, -2}},
		{"feet only", h(0), []int{0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FlattenLevels(tt.height))
		})
	}
}

func TestValidateFlatten(t *testing.T) {
	h := func(v int) *int { return &v }
	assert.NoError(t, ValidateFlatten(5, 5, nil, 10, 5))
	assert.NoError(t, ValidateFlatten(10, 1, h(-5), 10, 5))
	assert.Error(t, ValidateFlatten(0, 5, nil, 10, 5))
	assert.Error(t, ValidateFlatten(5, 11, nil, 10, 5))
	assert.Error(t, ValidateFlatten(5, 5, h(6), 10, 5))
}

func TestFlattenClearsArea(t *testing.T) {
	h := newHarness(t, nil)
	dirt := []world.Vec3{
		{X: 1, Y: 64, Z: 0},
		{X: 0, Y: 63, Z: 0},
		{X: -1, Y: 63, Z: -1},
	}
	for _, p := range dirt {
		h.world.SetBlock(p, "dirt")
	}
	h.world.SetBlock(world.Vec3{X: 1, Y: 63, Z: 1}, "bedrock")
	h.world.SetBlock(world.Vec3{X: 3, Y: 63, Z: 0}, "dirt") // outside 3x3

	h.submit(t, "flatten", h.lib.Flatten(), FlattenArgs(3, 3, nil), "alice")
	ev, lines := h.wait(t)

	require.IsType(t, events.TaskCompletedEvent{}, ev)
	for _, p := range dirt {
		_, ok := h.world.BlockAt(p)
		assert.False(t, ok, "expected %s cleared", p)
	}
	_, ok := h.world.BlockAt(world.Vec3{X: 1, Y: 63, Z: 1})
	assert.True(t, ok, "bedrock stays")
	_, ok = h.world.BlockAt(world.Vec3{X: 3, Y: 63, Z: 0})
	assert.True(t, ok, "outside the area stays")
	assert.Contains(t, lines, "Area flattened! Cleared 3, left 1 I couldn't dig.")
}

func TestFlattenSkipsFeetCell(t *testing.T) {
	h := newHarness(t, nil)
	h.world.SetBlock(origin, "dirt")

	zero := 0
	h.submit(t, "flatten", h.lib.Flatten(), FlattenArgs(1, 1, &zero), "alice")
	ev, _ := h.wait(t)

	require.IsType(t, events.TaskCompletedEvent{}, ev)
	_, ok := h.world.BlockAt(origin)
	assert.True(t, ok)
}

func TestFlattenEquipsToolPerMaterial(t *testing.T) {
	h := newHarness(t, func(c *sim.Config) { c.AcquireAllowed = true })
	h.world.SetBlock(world.Vec3{X: -1, Y: 64, Z: 0}, "stone")
	h.world.SetBlock(world.Vec3{X: 1, Y: 64, Z: 0}, "sand")

	zero := 0
	h.submit(t, "flatten", h.lib.Flatten(), FlattenArgs(3, 1, &zero), "alice")
	ev, _ := h.wait(t)

	require.IsType(t, events.TaskCompletedEvent{}, ev)
	assert.Equal(t, 1, h.count("diamond_pickaxe"))
	assert.Equal(t, 1, h.count("diamond_shovel"))
	assert.Equal(t, 0, h.count("diamond_axe"))
}

func TestDeliverToRequester(t *testing.T) {
	h := newHarness(t, nil)
	alice := world.Vec3{X: 6, Y: 64, Z: 2}
	h.world.Spawn(world.Entity{Name: "alice", Player: true, Position: alice, Health: 20})
	h.world.Give("bread", 3, 0)

	h.submit(t, "deliver", h.lib.Deliver(), DeliverArgs("bread", 2), "alice")
	ev, lines := h.wait(t)

	require.IsType(t, events.TaskCompletedEvent{}, ev)
	assert.Equal(t, alice, h.world.Self().Position)
	assert.Equal(t, 1, h.count("bread"))
	assert.Contains(t, lines, "Here you go, alice.")
}

func TestDeliverWithoutRequesterDropsInPlace(t *testing.T) {
	h := newHarness(t, nil)
	h.world.Give("stick", 4, 0)

	h.submit(t, "deliver", h.lib.Deliver(), DeliverArgs("stick", 0), "bob")
	ev, lines := h.wait(t)

	require.IsType(t, events.TaskCompletedEvent{}, ev)
	assert.Equal(t, origin, h.world.Self().Position)
	assert.Equal(t, 0, h.count("stick"))
	assert.Contains(t, lines, "I can't find you, bob. I'll leave the stick here.")
}

func TestDeliverMissingItemFails(t *testing.T) {
	h := newHarness(t, nil)

	h.submit(t, "deliver", h.lib.Deliver(), DeliverArgs("diamond", 1), "alice")
	ev, _ := h.wait(t)

	require.IsType(t, events.TaskFailedEvent{}, ev)
}

func TestBodiesRejectMalformedArgs(t *testing.T) {
	h := newHarness(t, nil)

	h.submit(t, "goto", h.lib.Goto(), []string{"1", "north", "3"}, "alice")
	ev, _ := h.wait(t)

	failed, ok := ev.(events.TaskFailedEvent)
	require.True(t, ok, "expected failure, got %T", ev)
	var te *scheduler.TaskError
	require.True(t, errors.As(failed.Err, &te))
	assert.Equal(t, "I can't make sense of the goto arguments", te.Reason)
	assert.Equal(t, origin, h.world.Self().Position)
}

func TestArgsDecode(t *testing.T) {
	target, err := parseGoto(GotoArgs(world.Vec3{X: 1.5, Y: 64, Z: -3}))
	require.NoError(t, err)
	assert.Equal(t, world.Vec3{X: 1.5, Y: 64, Z: -3}, target)

	block, n, err := parseGather([]string{"stone"})
	require.NoError(t, err)
	assert.Equal(t, "stone", block)
	assert.Zero(t, n)

	_, _, err = parseGather([]string{"stone", "-2"})
	assert.Error(t, err)

	length, width, height, err := parseFlatten([]string{"4", "2"})
	require.NoError(t, err)
	assert.Equal(t, 4, length)
	assert.Equal(t, 2, width)
	assert.Nil(t, height)

	_, _, _, err = parseFlatten([]string{"0", "2"})
	assert.Error(t, err)

	_, _, err = parseDeliver(nil)
	assert.Error(t, err)
}
