package agent

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/rodentplay/rodentbot/internal/scheduler"
	"github.com/rodentplay/rodentbot/internal/tasks"
	"github.com/rodentplay/rodentbot/internal/world"
)

func (a *Agent) submit(name string, body scheduler.Body, args []string, requester string) {
	err := a.sched.Submit(scheduler.NewTask(name, body, args, requester))
	if err != nil && !errors.Is(err, scheduler.ErrStaying) {
		a.logger.Warn("submit failed", zap.String("task", name), zap.Error(err))
	}
}

func (a *Agent) cmdGoto(ctx context.Context, requester string, cmd Command) {
	switch len(cmd.Args) {
	case 3:
		var coords [3]int
		for i, s := range cmd.Args {
			v, err := strconv.Atoi(s)
			if err != nil {
				a.say(requester, "Those coordinates aren't valid.")
				return
			}
			coords[i] = v
		}
		target := world.Vec3{X: float64(coords[0]), Y: float64(coords[1]), Z: float64(coords[2])}
		a.submit("goto", a.tasks.Goto(), tasks.GotoArgs(target), requester)

	case 1:
		a.approach(requester, cmd.Args[0], "I can't find the player "+cmd.Args[0]+".")

	case 0:
		if following := a.sched.State().Following; following != "" {
			a.approach(requester, following, "I was following "+following+" but I can't find them anymore.")
			return
		}
		fallthrough

	default:
		a.say(requester, "Usage: "+a.usage("goto <x> <y> <z>")+" or "+a.usage("goto <player>"))
	}
}

// approach walks toward a player without queueing.
func (a *Agent) approach(requester, name, missing string) {
	p, ok := a.world.Player(name)
	if !ok {
		a.say(requester, missing)
		return
	}
	a.world.SetGoal(world.Near(p.Position, 1))
	a.say(requester, fmt.Sprintf("Heading to %s!", name))
}

func (a *Agent) cmdCome(ctx context.Context, requester string, cmd Command) {
	p, ok := a.world.Player(requester)
	if !ok {
		a.say(requester, "I can't come to you because I can't find you.")
		return
	}
	a.world.SetGoal(world.Near(p.Position, 1))
	a.say(requester, fmt.Sprintf("Coming to you, %s!", requester))
}

func (a *Agent) cmdFlatten(ctx context.Context, requester string, cmd Command) {
	maxSide, maxRise := a.cfg.Tasks.FlattenMaxSide, a.cfg.Tasks.FlattenMaxRise
	usage := fmt.Sprintf("Usage: %s. Length and width 1-%d, height -%d to %d.",
		a.usage("flatten <length> <width> [height]"), maxSide, maxRise, maxRise)
	if len(cmd.Args) < 2 || len(cmd.Args) > 3 {
		a.say(requester, usage)
		return
	}

	length, err1 := strconv.Atoi(cmd.Args[0])
	width, err2 := strconv.Atoi(cmd.Args[1])
	if err1 != nil || err2 != nil {
		a.say(requester, usage)
		return
	}
	var height *int
	if len(cmd.Args) == 3 {
		h, err := strconv.Atoi(cmd.Args[2])
		if err != nil {
			a.say(requester, usage)
			return
		}
		height = &h
	}
	if err := tasks.ValidateFlatten(length, width, height, maxSide, maxRise); err != nil {
		a.say(requester, "Can't flatten that: "+err.Error()+".")
		return
	}
	a.submit("flatten", a.tasks.Flatten(), tasks.FlattenArgs(length, width, height), requester)
}

func (a *Agent) cmdGather(ctx context.Context, requester string, cmd Command) {
	if len(cmd.Args) == 0 {
		a.say(requester, "Usage: "+a.usage("gather <block> [quantity]"))
		return
	}

	words := cmd.Args
	quantity := 0
	if len(words) > 1 {
		if n, err := strconv.Atoi(words[len(words)-1]); err == nil {
			words = words[:len(words)-1]
			if n > 0 {
				quantity = n
			} else {
				a.say(requester, fmt.Sprintf("Quantity %d isn't valid, I'll gather one batch.", n))
			}
		}
	}
	block := blockName(strings.Join(words, "_"))
	a.submit("gather", a.tasks.Gather(), tasks.GatherArgs(block, quantity), requester)
}

func (a *Agent) cmdDeliver(ctx context.Context, requester string, cmd Command) {
	if len(cmd.Args) == 0 || len(cmd.Args) > 2 {
		a.say(requester, "Usage: "+a.usage("deliver <item> [quantity]"))
		return
	}
	item := blockName(cmd.Args[0])
	amount := 0
	if len(cmd.Args) == 2 {
		if n, err := strconv.Atoi(cmd.Args[1]); err == nil && n > 0 {
			amount = n
		}
	}
	a.submit("deliver", a.tasks.Deliver(), tasks.DeliverArgs(item, amount), requester)
}

func (a *Agent) cmdFollow(ctx context.Context, requester string, cmd Command) {
	p, ok := a.world.Player(requester)
	if !ok {
		a.say(requester, fmt.Sprintf("I can't find you to follow you, %s.", requester))
		return
	}
	if a.sched.State().Guarding != "" {
		a.guard.Stop()
	}
	a.sched.Follow(requester)
	a.world.SetGoal(world.Follow(p.ID, a.cfg.Tasks.FollowRange))
	a.say(requester, fmt.Sprintf("I'll follow you, %s!", requester))
}

func (a *Agent) cmdStay(ctx context.Context, requester string, cmd Command) {
	if a.sched.State().Guarding != "" {
		a.guard.Stop()
	}
	a.sched.Stay()
	a.world.Stop()
	a.say(requester, "I'll stay here!")
}

func (a *Agent) cmdResume(ctx context.Context, requester string, cmd Command) {
	a.sched.Resume()
	a.say(requester, "Ready to move again!")
}

func (a *Agent) cmdGuard(ctx context.Context, requester string, cmd Command) {
	if _, ok := a.world.Player(requester); !ok {
		a.say(requester, fmt.Sprintf("I can't find you, %s.", requester))
		return
	}
	state := a.sched.State()
	if state.Guarding == requester {
		a.say(requester, fmt.Sprintf("I'm already protecting you, %s.", requester))
		return
	}
	if state.Staying {
		a.say(requester, "I'll stop staying put so I can protect you better.")
	}
	a.sched.Guard(requester)
	a.say(requester, fmt.Sprintf("I'll protect you, %s!", requester))
}

func (a *Agent) cmdUnguard(ctx context.Context, requester string, cmd Command) {
	name := a.sched.State().Guarding
	if name == "" {
		a.say(requester, "I wasn't protecting anyone.")
		return
	}
	a.guard.Stop()
	a.say(requester, fmt.Sprintf("Okay %s, I'll stop protecting you.", name))
}

func (a *Agent) cmdInventory(ctx context.Context, requester string, cmd Command) {
	var parts []string
	for _, it := range a.world.Items() {
		parts = append(parts, fmt.Sprintf("%s x %d", it.Name, it.Count))
	}
	if len(parts) == 0 {
		a.say(requester, "My inventory is empty.")
		return
	}
	a.say(requester, "Inventory: "+strings.Join(parts, ", "))
}

func (a *Agent) cmdEquip(ctx context.Context, requester string, cmd Command) {
	if len(cmd.Args) != 2 {
		a.say(requester, "Usage: "+a.usage("equip <slot> <item>"))
		return
	}
	slot, err := world.ParseSlot(strings.ToLower(cmd.Args[0]))
	if err != nil {
		a.say(requester, err.Error())
		return
	}
	item := blockName(cmd.Args[1])
	if count(a.world.Items(), item) == 0 {
		a.say(requester, fmt.Sprintf("I don't have %s.", item))
		return
	}
	if err := a.world.Equip(ctx, item, slot); err != nil {
		a.say(requester, fmt.Sprintf("I couldn't equip %s: %v", item, err))
		return
	}
	a.say(requester, fmt.Sprintf("Equipped %s in %s.", item, slot))
}

// cmdUse equips item in hand and activates it. Without an item it
// activates whatever is already held.
func (a *Agent) cmdUse(ctx context.Context, requester string, cmd Command) {
	if len(cmd.Args) > 1 {
		a.say(requester, "Usage: "+a.usage("use [item]"))
		return
	}
	if len(cmd.Args) == 0 {
		held, ok := a.world.Equipped(world.SlotHand)
		if !ok {
			a.say(requester, "I'm not holding anything to use.")
			return
		}
		if err := a.world.Activate(ctx); err != nil {
			a.say(requester, fmt.Sprintf("I couldn't use %s: %v", held.Name, err))
			return
		}
		a.say(requester, fmt.Sprintf("Used %s.", held.Name))
		return
	}

	item := blockName(cmd.Args[0])
	if count(a.world.Items(), item) == 0 {
		a.say(requester, fmt.Sprintf("I don't have %s to use.", item))
		return
	}
	if err := a.world.Equip(ctx, item, world.SlotHand); err != nil {
		a.say(requester, fmt.Sprintf("I couldn't equip or use %s: %v", item, err))
		return
	}
	if err := a.world.Activate(ctx); err != nil {
		a.say(requester, fmt.Sprintf("I couldn't equip or use %s: %v", item, err))
		return
	}
	a.say(requester, fmt.Sprintf("Used %s.", item))
}

func (a *Agent) cmdUnequip(ctx context.Context, requester string, cmd Command) {
	if len(cmd.Args) != 1 {
		a.say(requester, "Usage: "+a.usage("unequip <slot>"))
		return
	}
	slot, err := world.ParseSlot(strings.ToLower(cmd.Args[0]))
	if err != nil {
		a.say(requester, err.Error())
		return
	}
	if err := a.world.Unequip(ctx, slot); err != nil {
		a.say(requester, fmt.Sprintf("I couldn't unequip: %v", err))
		return
	}
	a.say(requester, fmt.Sprintf("Unequipped my %s.", slot))
}

func (a *Agent) cmdCraft(ctx context.Context, requester string, cmd Command) {
	if len(cmd.Args) == 0 || len(cmd.Args) > 2 {
		a.say(requester, "Usage: "+a.usage("craft <item> [quantity]"))
		return
	}
	item := blockName(cmd.Args[0])
	n := 1
	if len(cmd.Args) == 2 {
		if v, err := strconv.Atoi(cmd.Args[1]); err == nil && v > 0 {
			n = v
		}
	}
	if err := a.world.Craft(ctx, item, n); err != nil {
		a.say(requester, fmt.Sprintf("Error crafting %s: %v", item, err))
		return
	}
	a.say(requester, fmt.Sprintf("Crafted %d x %s.", n, item))
}

func (a *Agent) cmdHunger(ctx context.Context, requester string, cmd Command) {
	food := a.world.Food()
	switch {
	case food >= 18:
		a.say(requester, fmt.Sprintf("I'm not hungry. My food level is %d/20.", food))
	case food >= 10:
		a.say(requester, fmt.Sprintf("I'm a little hungry. My food level is %d/20.", food))
	default:
		a.say(requester, fmt.Sprintf("I'm starving! My food level is %d/20. I need to eat something!", food))
	}
}

func (a *Agent) cmdQueue(ctx context.Context, requester string, cmd Command) {
	var b strings.Builder
	if cur := a.sched.Current(); cur != nil {
		fmt.Fprintf(&b, "Doing: %s for %s.", cur.Name, cur.Requester)
	} else if a.sched.Token().Armed() {
		b.WriteString("Defending myself.")
	} else {
		b.WriteString("Idle.")
	}

	pending := a.sched.Pending()
	if len(pending) == 0 {
		b.WriteString(" Queue is empty.")
	} else {
		b.WriteString(" Queue:")
		for i, t := range pending {
			sep := ","
			if i == len(pending)-1 {
				sep = "."
			}
			fmt.Fprintf(&b, " %d. %s (%s)%s", i+1, t.Name, t.Requester, sep)
		}
	}
	a.say(requester, b.String())
}

func (a *Agent) cmdHistory(ctx context.Context, requester string, cmd Command) {
	if a.history == nil {
		a.say(requester, "I'm not keeping a history.")
		return
	}
	runs, err := a.history.Recent(ctx, a.cfg.History.Limit)
	if err != nil {
		a.logger.Warn("history lookup failed", zap.Error(err))
		a.say(requester, "I couldn't read my history.")
		return
	}
	if len(runs) == 0 {
		a.say(requester, "Nothing in my history yet.")
		return
	}
	parts := make([]string, 0, len(runs))
	for _, r := range runs {
		parts = append(parts, fmt.Sprintf("%s %s (%s)", r.Name, r.Status, r.Requester))
	}
	a.say(requester, "Recent: "+strings.Join(parts, ", "))
}

// cmdChat generates the reply off the baton; the generator can take
// seconds.
func (a *Agent) cmdChat(ctx context.Context, requester string, cmd Command) {
	if cmd.Text == "" {
		a.say(requester, "Please write something after "+a.usage("chat")+".")
		return
	}
	a.bg.Add(1)
	go func() {
		defer a.bg.Done()
		a.say(requester, a.flavor.Line(ctx, cmd.Text, "I don't have much to say right now."))
	}()
}

func (a *Agent) cmdHelp(ctx context.Context, requester string, cmd Command) {
	a.say(requester, "Commands: "+a.usage("")+
		"follow, stay, resume, come, goto <x> <y> <z>, flatten <length> <width> [height], "+
		"gather <block> [qty], deliver <item> [qty], guard, unguard, inventory, "+
		"equip <slot> <item>, unequip <slot>, use [item], craft <item> [qty], hunger, queue, history, chat <text>.")
}

func count(items []world.Item, name string) int {
	n := 0
	for _, it := range items {
		if it.Name == name {
			n += it.Count
		}
	}
	return n
}
