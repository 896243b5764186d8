package action

import (
	"errors"
	"time"

	"github.com/cory-johannsen/fiefdom/internal/game/actor"
	"github.com/cory-johannsen/fiefdom/internal/game/progression"
)

// Recovery amounts.
const (
	BreadStamina = 20
	FishStamina  = 15
	MealHP       = 5
	RestStamina  = 10
	HealHP       = 30
)

// Prayer grants vigor, which lowers stamina costs.
const (
	PrayerVigor    = 0.2
	PrayerDuration = 30 * time.Minute
)

// TrainXP is the skill experience bought by one TRAIN.
const TrainXP = 20

// UpgradePrice is the gold cost per level of an income upgrade.
const UpgradePrice = 100

func restore(a *actor.Actor, stamina, hp int) (int, int) {
	ds := min(stamina, actor.MaxStamina-a.Status.Stamina)
	dh := min(hp, actor.MaxHP-a.Status.HP)
	a.Status.Stamina += ds
	a.Status.HP += dh
	return ds, dh
}

type eatPayload struct {
	Food actor.Resource `json:"food"`
}

func eat(c *Context) error {
	var p eatPayload
	if err := c.Decode(&p); err != nil {
		return err
	}
	if p.Food == "" {
		p.Food = actor.Bread
	}
	gain := BreadStamina
	if p.Food == actor.Fish {
		gain = FishStamina
	}
	if c.Actor.Status.Stamina >= actor.MaxStamina && c.Actor.Status.HP >= actor.MaxHP {
		return rejectf("You are not hungry")
	}
	if err := c.Take(p.Food, 1); err != nil {
		return err
	}
	ds, dh := restore(c.Actor, gain, MealHP)
	return c.succeed("You eat some %s (+%d stamina, +%d hp)", p.Food, ds, dh)
}

func rest(c *Context) error {
	if c.Actor.Status.Stamina >= actor.MaxStamina {
		return rejectf("You are already rested")
	}
	ds, _ := restore(c.Actor, RestStamina, 0)
	return c.succeed("You rest (+%d stamina)", ds)
}

func heal(c *Context) error {
	if c.Actor.Status.HP >= actor.MaxHP {
		return rejectf("You are not wounded")
	}
	_, dh := restore(c.Actor, 0, HealHP)
	c.TrackXP(actor.Cooking, 5)
	return c.succeed("You dress your wounds (+%d hp)", dh)
}

// pray refreshes the vigor buff rather than stacking it.
func pray(c *Context) error {
	kept := c.Actor.Buffs[:0]
	for _, b := range c.Actor.Buffs {
		if b.Kind != actor.BuffVigor {
			kept = append(kept, b)
		}
	}
	c.Actor.Buffs = append(kept, actor.Buff{
		Kind:      actor.BuffVigor,
		Magnitude: PrayerVigor,
		ExpiresAt: c.Now.Add(PrayerDuration),
	})
	c.TrackXP(actor.Leadership, 5)
	return c.succeed("You feel invigorated")
}

type trainPayload struct {
	Skill actor.Skill `json:"skill"`
}

func train(c *Context) error {
	var p trainPayload
	if err := c.Decode(&p); err != nil {
		return err
	}
	if !p.Skill.Valid() {
		return rejectf("There is no skill called %s", p.Skill)
	}
	g := c.TrackXP(p.Skill, TrainXP)
	if g.SkillLevelUp > 0 {
		return c.succeed("Your %s improves to level %d", p.Skill, c.Actor.Skills[p.Skill].Level)
	}
	return c.succeed("You train %s", p.Skill)
}

type equipPayload struct {
	ItemID string `json:"itemId"`
}

// equip moves an inventory item into its slot, swapping out any occupant.
func equip(c *Context) error {
	var p equipPayload
	if err := c.Decode(&p); err != nil {
		return err
	}
	idx := -1
	for i, it := range c.Actor.Inventory {
		if it.ID == p.ItemID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return rejectf("You do not carry that item")
	}
	it := c.Actor.Inventory[idx]
	def, ok := actor.Items[it.Kind]
	if !ok {
		return rejectf("You cannot equip %s", article(it.Kind))
	}
	c.Actor.Inventory = append(c.Actor.Inventory[:idx], c.Actor.Inventory[idx+1:]...)
	if old := c.Actor.Equipment[def.Slot]; old != nil {
		c.Actor.Inventory = append(c.Actor.Inventory, *old)
	}
	c.Actor.Equipment[def.Slot] = &it
	return c.succeed("You equip %s", article(it.Kind))
}

type unequipPayload struct {
	Slot actor.Slot `json:"slot"`
}

func unequip(c *Context) error {
	var p unequipPayload
	if err := c.Decode(&p); err != nil {
		return err
	}
	it := c.Actor.Equipment[p.Slot]
	if it == nil {
		return rejectf("Nothing is equipped in your %s slot", p.Slot)
	}
	delete(c.Actor.Equipment, p.Slot)
	c.Actor.Inventory = append(c.Actor.Inventory, *it)
	return c.succeed("You stow your %s", it.Kind)
}

type switchRolePayload struct {
	Role actor.Role `json:"role"`
}

// switchRole changes occupation. The ruler role is only granted by promotion
// and is never left voluntarily.
func switchRole(c *Context) error {
	var p switchRolePayload
	if err := c.Decode(&p); err != nil {
		return err
	}
	if p.Role == actor.RulerRole {
		return rejectf("The %s role must be won by siege", actor.RulerRole)
	}
	if c.Actor.Role == actor.RulerRole {
		return rejectf("A %s cannot abandon the throne", actor.RulerRole)
	}
	err := progression.SwitchRole(c.Actor, p.Role)
	switch {
	case errors.Is(err, progression.ErrSameRole):
		return rejectf("You are already a %s", p.Role)
	case errors.Is(err, progression.ErrRoleNotSelectable):
		return rejectf("There is no role called %s", p.Role)
	case err != nil:
		return err
	}
	return c.succeed("You become a %s (level %d)", p.Role, c.Actor.Status.Level)
}

type upgradePayload struct {
	Upgrade string `json:"upgrade"`
}

// buyUpgrade raises an income upgrade one level for UpgradePrice × next level.
func buyUpgrade(c *Context) error {
	var p upgradePayload
	if err := c.Decode(&p); err != nil {
		return err
	}
	if _, ok := actor.PassiveIncome[p.Upgrade]; !ok {
		return rejectf("There is no upgrade called %s", p.Upgrade)
	}
	next := c.Actor.Upgrades[p.Upgrade] + 1
	if err := c.Take(actor.Gold, UpgradePrice*next); err != nil {
		return err
	}
	c.Actor.Upgrades[p.Upgrade] = next
	c.TrackXP(actor.Trading, 10)
	return c.succeed("Your %s is now level %d", p.Upgrade, next)
}

// retire hands the caller a snapshot of the finished character and starts
// a fresh one under the same id.
func retire(c *Context) error {
	if c.Actor.Role == actor.RulerRole {
		return rejectf("A %s cannot retire while holding a region", actor.RulerRole)
	}
	snap := c.Actor.Clone()
	snap.Retired = true
	snap.LastActive = c.Now
	c.Result.CharacterSnapshot = snap

	fresh := actor.New(c.Actor.ID, c.Actor.Name, c.Now)
	fresh.CreatedAt = c.Now
	*c.Actor = *fresh
	return c.succeed("%s retires after reaching level %d", snap.Name, snap.Status.Level)
}
