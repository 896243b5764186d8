package action

import (
	"github.com/cory-johannsen/fiefdom/internal/game/actor"
)

// recipe is a fixed-output crafting action; its inputs are its cost entry.
type recipe struct {
	output actor.Resource
	amount int
	skill  actor.Skill
	xp     float64
	// role, when set, is the only role allowed to craft.
	role actor.Role
	// hammer wears the equipped hammer.
	hammer bool
}

var recipes = map[Kind]recipe{
	MillFlour:  {output: actor.Flour, amount: 2, skill: actor.Farming, xp: 8},
	BakeBread:  {output: actor.Bread, amount: 2, skill: actor.Cooking, xp: 10},
	SmeltIron:  {output: actor.Iron, amount: 1, skill: actor.Smithing, xp: 10},
	ForgeSword: {output: actor.Swords, amount: 1, skill: actor.Smithing, xp: 15, role: actor.RoleBlacksmith, hammer: true},
	ForgeArmor: {output: actor.Armor, amount: 1, skill: actor.Smithing, xp: 15, role: actor.RoleBlacksmith, hammer: true},
}

func craft(c *Context) error {
	r := recipes[c.Request.Kind]
	if r.role != "" && c.Actor.Role != r.role {
		return rejectf("Only a %s can do that", r.role)
	}
	if r.hammer {
		it := c.Actor.Equipment[actor.SlotTool]
		if it == nil || it.Kind != actor.ItemHammer {
			return rejectf("You need a hammer equipped")
		}
		if c.DamageTool(actor.SlotTool, 1) {
			return failf("Your hammer broke")
		}
	}
	c.Give(r.output, r.amount)
	c.TrackXP(r.skill, r.xp)
	return c.succeed("You make %d %s", r.amount, r.output)
}

type craftToolPayload struct {
	Item string `json:"item"`
}

// craftTool mints a new item into the inventory.
func craftTool(c *Context) error {
	var p craftToolPayload
	if err := c.Decode(&p); err != nil {
		return err
	}
	if _, ok := actor.Items[p.Item]; !ok {
		return rejectf("You do not know how to make %s", article(p.Item))
	}
	it := actor.NewItem(p.Item)
	c.Actor.Inventory = append(c.Actor.Inventory, it)
	c.TrackXP(actor.Smithing, 10)
	c.Result.Data["itemId"] = it.ID
	return c.succeed("You craft %s", article(p.Item))
}

type repairPayload struct {
	Slot actor.Slot `json:"slot"`
}

// repairTool restores an equipped item to full durability.
func repairTool(c *Context) error {
	var p repairPayload
	if err := c.Decode(&p); err != nil {
		return err
	}
	if p.Slot == "" {
		p.Slot = actor.SlotTool
	}
	it := c.Actor.Equipment[p.Slot]
	if it == nil {
		return rejectf("Nothing is equipped in your %s slot", p.Slot)
	}
	if it.Durability >= it.MaxDurability {
		return rejectf("Your %s needs no repair", it.Kind)
	}
	restored := it.MaxDurability - it.Durability
	it.Durability = it.MaxDurability
	c.Result.Durability[p.Slot] += restored
	c.TrackXP(actor.Smithing, 5)
	return c.succeed("You repair your %s", it.Kind)
}
