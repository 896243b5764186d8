package action

import (
	"github.com/cory-johannsen/fiefdom/internal/game/actor"
	"github.com/cory-johannsen/fiefdom/internal/game/siege"
	"github.com/cory-johannsen/fiefdom/internal/game/world"
)

type siegePayload struct {
	Region string `json:"region"`
	Lane   int    `json:"lane"`
	Target string `json:"target"`
}

// siegeEnv binds the siege machine's callbacks to records in this transaction.
func (c *Context) siegeEnv() siege.Env {
	return siege.Env{
		Now:    c.Now,
		Roller: c.engine.roller,
		Absorb: func(playerID string, dmg int) (int, error) {
			p, ok, err := c.Player(playerID)
			if err != nil || !ok {
				return 0, err
			}
			got := min(dmg, p.Quantity(actor.Armor))
			if got <= 0 {
				return 0, nil
			}
			if p == c.Actor {
				if err := c.Take(actor.Armor, got); err != nil {
					return 0, err
				}
				return got, nil
			}
			if err := p.Spend(actor.Armor, got); err != nil {
				return 0, err
			}
			return got, nil
		},
		Ruler: func(rulerID string) (siege.RulerInfo, error) {
			if rulerID == c.Actor.ID {
				return siege.RulerInfo{LastActive: c.Now, HP: c.Actor.Status.HP}, nil
			}
			p, ok, err := c.Player(rulerID)
			if err != nil || !ok {
				return siege.RulerInfo{}, err
			}
			return siege.RulerInfo{LastActive: p.LastActive, HP: p.Status.HP}, nil
		},
	}
}

// runSiege loads the target region and applies one siege operation to it.
// Siege rejections refuse the action; failed results commit.
func runSiege(c *Context) error {
	var p siegePayload
	if err := c.Decode(&p); err != nil {
		return err
	}
	r, err := c.Region(p.Region)
	if err != nil {
		return err
	}
	env := c.siegeEnv()

	swordsBefore := c.Actor.Quantity(actor.Swords)
	var res siege.Result
	switch c.Request.Kind {
	case StartSiege:
		res, err = siege.Start(r, c.Actor, env)
	case AttackGate:
		res, err = siege.AttackGate(r, c.Actor, env)
	case MoveLane:
		res, err = siege.MoveLane(r, c.Actor, p.Lane, env)
	case AttackBoss:
		res, err = siege.AttackBoss(r, c.Actor, env)
	case ClaimThrone:
		armor := c.Actor.Quantity(actor.Armor)
		res, err = siege.ClaimThrone(r, c.Actor, env)
		if err == nil {
			c.Result.Consumed[actor.Armor] += armor - c.Actor.Quantity(actor.Armor)
		}
	case DonateArmor:
		armor := c.Actor.Quantity(actor.Armor)
		res, err = siege.DonateArmor(r, c.Actor, p.Target, env)
		if err == nil {
			c.Result.Consumed[actor.Armor] += armor - c.Actor.Quantity(actor.Armor)
		}
	case SunderArmor:
		res, err = siege.SunderArmor(r, c.Actor, p.Target, env)
	case SiegeStatus:
		return siegeStatus(c, r, env)
	}
	if err != nil {
		if rej, ok := siege.AsRejection(err); ok {
			return rejectf("%s", rej.Message)
		}
		return err
	}
	if spent := swordsBefore - c.Actor.Quantity(actor.Swords); spent > 0 {
		c.Result.Consumed[actor.Swords] += spent
	}
	return siegeOutcome(c, r, res)
}

func siegeStatus(c *Context, r *world.Region, env siege.Env) error {
	if r.Siege == nil {
		c.Result.Data["siege"] = siege.Status(r, c.Now)
		return c.succeed("There is no siege in %s", r.Name)
	}
	res, status, err := siege.Observe(r, env)
	if err != nil {
		return err
	}
	c.Result.Data["siege"] = status
	return siegeOutcome(c, r, res)
}

// siegeOutcome copies a siege result into the action result and grants
// combat experience for damage dealt.
func siegeOutcome(c *Context, r *world.Region, res siege.Result) error {
	c.Result.Events = append(c.Result.Events, res.Events...)
	if res.Damage > 0 {
		c.TrackXP(actor.Combat, max(1, float64(res.Damage)/5))
	}
	if res.Ended {
		c.Result.Data["ended"] = true
		if res.Suppressed {
			c.Result.Data["suppressed"] = true
		}
	}
	if res.WinnerID != "" {
		c.Result.SiegeWinnerID = res.WinnerID
		c.Result.TargetRegionID = r.ID
	}
	if res.Failed {
		return failf("%s", res.Message)
	}
	return c.succeed("%s", res.Message)
}
