// Package gear decides which armor and weapon the agent wears.
package gear

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/rodentplay/rodentbot/internal/world"
)

// EquipError reports a failed equip. It is never fatal: the caller carries
// on with whatever is currently worn.
type EquipError struct {
	Slot world.Slot
	Item string
	Err  error
}

func (e *EquipError) Error() string {
	return fmt.Sprintf("equip %s to %s: %v", e.Item, e.Slot, e.Err)
}

func (e *EquipError) Unwrap() error { return e.Err }

// Policy upgrades the loadout to the best owned items, acquiring the floor
// tier when allowed. It only ever moves to a strictly better tier, so
// running it again without inventory changes is a no-op.
type Policy struct {
	armory world.Armory
	floor  int
	logger *zap.Logger
}

// NewPolicy creates a Policy with the diamond floor.
func NewPolicy(armory world.Armory, logger *zap.Logger) *Policy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Policy{armory: armory, floor: DefaultFloor, logger: logger.Named("gear")}
}

// WithFloor returns a copy of p using a different floor tier index.
func (p *Policy) WithFloor(floor int) *Policy {
	cp := *p
	cp.floor = floor
	return &cp
}

// Floor returns the floor tier index.
func (p *Policy) Floor() int { return p.floor }

// Refresh visits every slot. Equip and acquisition failures are collected
// and returned joined; a non-nil result still leaves the best achievable
// loadout in place. Only ctx cancellation stops it early.
func (p *Policy) Refresh(ctx context.Context, allowAcquire bool) error {
	var errs []error
	for _, slot := range Slots {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.refreshSlot(ctx, slot, allowAcquire); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *Policy) refreshSlot(ctx context.Context, slot world.Slot, allowAcquire bool) error {
	tiers := Tiers(slot)

	current := len(tiers)
	if it, ok := p.armory.Equipped(slot); ok {
		current = TierIndex(tiers, it.Name)
	}

	candidate := min(current, bestOwned(tiers, p.armory.Items()))

	var acquireErr error
	if candidate > p.floor && allowAcquire && p.armory.AcquireAllowed() {
		want := tiers[p.floor]
		p.logger.Debug("acquiring", zap.String("slot", string(slot)), zap.String("item", want))
		if err := p.armory.Acquire(ctx, want, 1); err != nil {
			acquireErr = fmt.Errorf("acquire %s: %w", want, err)
		} else {
			candidate = min(candidate, bestOwned(tiers, p.armory.Items()))
		}
	}

	if candidate >= current {
		return acquireErr
	}

	item := tiers[candidate]
	if err := p.armory.Equip(ctx, item, slot); err != nil {
		p.logger.Warn("equip failed", zap.String("slot", string(slot)), zap.String("item", item), zap.Error(err))
		return errors.Join(acquireErr, &EquipError{Slot: slot, Item: item, Err: err})
	}
	p.logger.Info("equipped", zap.String("slot", string(slot)), zap.String("item", item))
	return acquireErr
}

// HasWeaponAtLeast reports whether the held item is a melee weapon at tier
// index floor or better.
func (p *Policy) HasWeaponAtLeast(floor int) bool {
	held, ok := p.armory.Equipped(world.SlotHand)
	if !ok {
		return false
	}
	return TierIndex(WeaponTiers, held.Name) <= floor
}

// Armed reports whether the held weapon meets the policy's floor.
func (p *Policy) Armed() bool {
	return p.HasWeaponAtLeast(p.floor)
}
