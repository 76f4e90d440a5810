package sim

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rodentplay/rodentbot/internal/world"
)

// ErrAcquireDisabled is returned by Acquire when acquisition is turned off.
var ErrAcquireDisabled = errors.New("acquisition disabled")

func (w *World) Items() []world.Item {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]world.Item(nil), w.items...)
}

func (w *World) Equipped(slot world.Slot) (world.Item, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	it, ok := w.equipped[slot]
	return it, ok
}

func (w *World) Equip(ctx context.Context, item string, slot world.Slot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if err, ok := w.equipErrs[item]; ok {
		return err
	}
	idx := w.indexLocked(item)
	if idx < 0 {
		return fmt.Errorf("no %s in inventory", item)
	}
	it := w.items[idx]
	it.Count = 1
	w.equipped[slot] = it
	return nil
}

func (w *World) Unequip(ctx context.Context, slot world.Slot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.equipped[slot]; !ok {
		return fmt.Errorf("nothing equipped in %s", slot)
	}
	delete(w.equipped, slot)
	return nil
}

func (w *World) Acquire(ctx context.Context, item string, count int) error {
	w.mu.Lock()
	allowed := w.cfg.AcquireAllowed
	delay := w.cfg.AcquireDelay
	w.mu.Unlock()

	if !allowed {
		return ErrAcquireDisabled
	}
	if err := sleep(ctx, delay); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.addLocked(item, count, 0)
	return nil
}

func (w *World) AcquireAllowed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cfg.AcquireAllowed
}

// Consume eats the held item.
func (w *World) Consume(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	held, ok := w.equipped[world.SlotHand]
	if !ok || held.FoodPoints <= 0 {
		return errors.New("not holding food")
	}
	w.removeLocked(held.Name, 1)
	if w.indexLocked(held.Name) < 0 {
		delete(w.equipped, world.SlotHand)
	}
	w.food += held.FoodPoints
	if w.food > maxFood {
		w.food = maxFood
	}
	return nil
}

// Activate uses the held item. Food is eaten; anything else is recorded.
func (w *World) Activate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	held, ok := w.equipped[world.SlotHand]
	if ok && held.FoodPoints <= 0 {
		w.used = append(w.used, held.Name)
	}
	w.mu.Unlock()

	if !ok {
		return errors.New("nothing in hand")
	}
	if held.FoodPoints > 0 {
		return w.Consume(ctx)
	}
	return nil
}

// Used returns the non-food items activated so far, oldest first.
func (w *World) Used() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.used...)
}

func (w *World) Toss(ctx context.Context, item string, count int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if have := w.countLocked(item); have < count {
		return fmt.Errorf("only have %d %s", have, item)
	}
	w.removeLocked(item, count)
	w.dropEquippedLocked(item)
	return nil
}

func (w *World) Craft(ctx context.Context, item string, count int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	recipe, ok := w.cfg.Recipes[item]
	if !ok {
		return fmt.Errorf("no recipe for %s", item)
	}
	names := make([]string, 0, len(recipe))
	for name := range recipe {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if need := recipe[name] * count; w.countLocked(name) < need {
			return fmt.Errorf("need %d %s to craft %d %s", need, name, count, item)
		}
	}
	for _, name := range names {
		w.removeLocked(name, recipe[name]*count)
		w.dropEquippedLocked(name)
	}
	w.addLocked(item, count, 0)
	return nil
}

func (w *World) indexLocked(item string) int {
	for i, it := range w.items {
		if it.Name == item {
			return i
		}
	}
	return -1
}

func (w *World) countLocked(item string) int {
	n := 0
	for _, it := range w.items {
		if it.Name == item {
			n += it.Count
		}
	}
	return n
}

func (w *World) addLocked(item string, count, foodPoints int) {
	if count <= 0 {
		return
	}
	if foodPoints == 0 {
		foodPoints = foodValue(item)
	}
	if i := w.indexLocked(item); i >= 0 {
		w.items[i].Count += count
		return
	}
	w.items = append(w.items, world.Item{Name: item, Count: count, FoodPoints: foodPoints})
}

func (w *World) removeLocked(item string, count int) {
	kept := w.items[:0]
	for _, it := range w.items {
		if it.Name == item && count > 0 {
			take := min(count, it.Count)
			it.Count -= take
			count -= take
		}
		if it.Count > 0 {
			kept = append(kept, it)
		}
	}
	w.items = kept
}

func (w *World) dropEquippedLocked(item string) {
	if w.indexLocked(item) >= 0 {
		return
	}
	for slot, it := range w.equipped {
		if it.Name == item {
			delete(w.equipped, slot)
		}
	}
}

func foodValue(item string) int {
	switch item {
	case "bread":
		return 5
	case "cooked_beef", "cooked_porkchop":
		return 8
	case "apple":
		return 4
	case "baked_potato":
		return 5
	case "carrot":
		return 3
	}
	return 0
}

// FoodValue exposes the nourishment table used when items are acquired.
func FoodValue(item string) int { return foodValue(item) }
