package action

import (
	"errors"
	"slices"

	"github.com/cory-johannsen/fiefdom/internal/game/actor"
	"github.com/cory-johannsen/fiefdom/internal/game/world"
)

// Region management constants.
const (
	WallRepairHP    = 100
	LawLegitimacy   = 10
	ReinforceXPUnit = 0.5
)

type contributePayload struct {
	Building string `json:"building"`
	Amount   int    `json:"amount"`
}

// contribute gives building material toward the settlement building's next level.
func contribute(c *Context) error {
	var p contributePayload
	if err := c.Decode(&p); err != nil {
		return err
	}
	def, ok := world.Buildings[p.Building]
	if !ok {
		return rejectf("There is no building called %s", p.Building)
	}
	have := c.Actor.Quantity(def.Material)
	if have == 0 {
		return rejectf("You have no %s to give", def.Material)
	}
	w, err := c.World()
	if err != nil {
		return err
	}
	res, err := w.Contribute(p.Building, c.Actor.ID, p.Amount, have)
	if errors.Is(err, world.ErrUnknownBuilding) {
		return rejectf("There is no building called %s", p.Building)
	}
	if err != nil {
		return err
	}
	if res.Given == 0 {
		return rejectf("The %s needs nothing more", p.Building)
	}
	if err := c.Take(def.Material, res.Given); err != nil {
		return err
	}
	c.TrackXP(def.Skill, float64(res.Given))
	c.Result.Data["given"] = res.Given
	c.Result.Data["level"] = res.NewLevel
	if res.Leveled {
		c.event("%s reached level %d", p.Building, res.NewLevel)
		return c.succeed("You give %d %s and the %s rises to level %d", res.Given, def.Material, p.Building, res.NewLevel)
	}
	return c.succeed("You give %d %s to the %s", res.Given, def.Material, p.Building)
}

type reinforcePayload struct {
	Resource actor.Resource `json:"resource"`
	Amount   int            `json:"amount"`
}

// reinforceGarrison moves swords or armor into the home region's garrison.
func reinforceGarrison(c *Context) error {
	var p reinforcePayload
	if err := c.Decode(&p); err != nil {
		return err
	}
	if p.Resource != actor.Swords && p.Resource != actor.Armor {
		return rejectf("The garrison only takes swords or armor")
	}
	r, err := c.HomeRegion()
	if err != nil {
		return err
	}
	if err := c.Take(p.Resource, p.Amount); err != nil {
		return err
	}
	if p.Resource == actor.Swords {
		r.Garrison.Swords += p.Amount
	} else {
		r.Garrison.Armor += p.Amount
	}
	c.TrackXP(actor.Leadership, float64(p.Amount)*ReinforceXPUnit)
	return c.succeed("You send %d %s to the garrison of %s", p.Amount, p.Resource, r.Name)
}

// repairWalls restores fortification hp in the home region.
func repairWalls(c *Context) error {
	r, err := c.HomeRegion()
	if err != nil {
		return err
	}
	if r.Siege != nil {
		return rejectf("The walls cannot be mended during a siege")
	}
	if r.Fortification.HP >= r.Fortification.MaxHP {
		return rejectf("The walls of %s are sound", r.Name)
	}
	gained := min(WallRepairHP, r.Fortification.MaxHP-r.Fortification.HP)
	r.Fortification.HP += gained
	c.TrackXP(actor.Leadership, 5)
	return c.succeed("You repair the walls of %s (+%d hp)", r.Name, gained)
}

type lawPayload struct {
	Law string `json:"law"`
}

// ruling returns the home region if the acting player rules it.
func ruling(c *Context) (*world.Region, error) {
	if c.Actor.Role != actor.RulerRole {
		return nil, rejectf("Only a %s may decree laws", actor.RulerRole)
	}
	r, err := c.HomeRegion()
	if err != nil {
		return nil, err
	}
	if r.RulerID != c.Actor.ID {
		return nil, rejectf("You do not rule %s", r.Name)
	}
	return r, nil
}

func spendLegitimacy(a *actor.Actor) {
	a.Status.Legitimacy = max(0, a.Status.Legitimacy-LawLegitimacy)
}

func enactLaw(c *Context) error {
	var p lawPayload
	if err := c.Decode(&p); err != nil {
		return err
	}
	if _, err := ruling(c); err != nil {
		return err
	}
	if c.engine.laws == nil || !c.engine.laws.Has(p.Law) {
		return rejectf("There is no law called %s", p.Law)
	}
	w, err := c.World()
	if err != nil {
		return err
	}
	if w.HasLaw(p.Law) {
		return rejectf("%s is already law", p.Law)
	}
	w.Laws = append(w.Laws, p.Law)
	spendLegitimacy(c.Actor)
	c.TrackXP(actor.Leadership, 10)
	return c.succeed("You decree %s", p.Law)
}

func repealLaw(c *Context) error {
	var p lawPayload
	if err := c.Decode(&p); err != nil {
		return err
	}
	if _, err := ruling(c); err != nil {
		return err
	}
	w, err := c.World()
	if err != nil {
		return err
	}
	i := slices.Index(w.Laws, p.Law)
	if i < 0 {
		return rejectf("%s is not law", p.Law)
	}
	w.Laws = slices.Delete(w.Laws, i, i+1)
	spendLegitimacy(c.Actor)
	c.TrackXP(actor.Leadership, 10)
	return c.succeed("You repeal %s", p.Law)
}
