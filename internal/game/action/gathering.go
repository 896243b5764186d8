package action

import (
	"github.com/cory-johannsen/fiefdom/internal/game/actor"
	"github.com/cory-johannsen/fiefdom/internal/game/world"
)

// GatherXP is the skill experience granted by one gathering action.
const GatherXP = 10

// gatherSpec describes one raw-resource action.
type gatherSpec struct {
	resource actor.Resource
	amount   int
	skill    actor.Skill
	// tool is the item kind required in the tool slot; empty needs none.
	tool string
	// specialist gains one extra unit.
	specialist actor.Role
	verb       string
}

var gatherSpecs = map[Kind]gatherSpec{
	ChopWood:     {resource: actor.Wood, amount: 3, skill: actor.Woodcutting, tool: actor.ItemAxe, specialist: actor.RoleWoodcutter, verb: "chop"},
	MineStone:    {resource: actor.Stone, amount: 3, skill: actor.Mining, tool: actor.ItemPickaxe, specialist: actor.RoleMiner, verb: "quarry"},
	MineOre:      {resource: actor.IronOre, amount: 2, skill: actor.Mining, tool: actor.ItemPickaxe, specialist: actor.RoleMiner, verb: "mine"},
	HarvestGrain: {resource: actor.Grain, amount: 4, skill: actor.Farming, tool: actor.ItemHoe, specialist: actor.RoleFarmer, verb: "harvest"},
	Fish:         {resource: actor.Fish, amount: 2, skill: actor.Fishing, tool: actor.ItemRod, verb: "catch"},
	Hunt:         {resource: actor.Hide, amount: 2, skill: actor.Combat, specialist: actor.RoleSoldier, verb: "skin"},
}

func article(word string) string {
	switch word[0] {
	case 'a', 'e', 'i', 'o', 'u':
		return "an " + word
	}
	return "a " + word
}

// gather runs a tool-driven gathering action. The tool wears by one; if it
// breaks the action fails with its cost spent and nothing gathered.
func gather(c *Context) error {
	spec := gatherSpecs[c.Request.Kind]
	if spec.tool != "" {
		it := c.Actor.Equipment[actor.SlotTool]
		if it == nil || it.Kind != spec.tool {
			return rejectf("You need %s equipped", article(spec.tool))
		}
	}
	if c.Request.Kind == HarvestGrain && c.snapshot.Season == world.Winter {
		return rejectf("Nothing grows in winter")
	}

	if spec.tool != "" && c.DamageTool(actor.SlotTool, 1) {
		return failf("Your %s broke", spec.tool)
	}
	n := spec.amount
	if spec.specialist != "" && c.Actor.Role == spec.specialist {
		n++
	}
	c.Give(spec.resource, n)
	c.TrackXP(spec.skill, GatherXP)
	return c.succeed("You %s %d %s", spec.verb, n, spec.resource)
}

// forage needs no tool and finds between one and three herbs.
func forage(c *Context) error {
	n := c.engine.roller.Between("forage", 1, 3)
	c.Give(actor.Herbs, n)
	c.TrackXP(actor.Farming, GatherXP/2)
	return c.succeed("You forage %d herbs", n)
}
