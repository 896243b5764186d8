package siege

import (
	"fmt"
	"math"

	"github.com/cory-johannsen/fiefdom/internal/game/actor"
	"github.com/cory-johannsen/fiefdom/internal/game/world"
)

// RulerBuffer is the fraction of seat-armor drain the garrison absorbs for the ruler.
func RulerBuffer(garrisonArmor int) float64 {
	return math.Min(MaxRulerBuffer, float64(garrisonArmor)*BufferPerArmor)
}

// Momentum is the throne progress rate for a participant's damage record.
func Momentum(damageDealt int) float64 {
	return 1 + float64(damageDealt)*MomentumPerDamage
}

type throneRates struct {
	id    string
	occ   *world.Occupier
	drain float64
	rate  float64
}

func (t *throneRates) timeToEject() float64 {
	if t.drain <= 0 {
		return math.Inf(1)
	}
	return t.occ.Armor / t.drain
}

func (t *throneRates) timeToWin() float64 {
	if t.rate <= 0 {
		return math.Inf(1)
	}
	return (ThroneGoal - t.occ.Progress) / t.rate
}

// StewardHolds reports whether a PVE steward still bars challengers from
// making throne progress.
func StewardHolds(t *world.Throne) bool {
	return t.Mode == world.ThronePVE && t.ChampionHP > 0
}

// rates computes each occupier's drain and progress rate. While the steward
// stands only the ruler advances.
func rates(r *world.Region) []throneRates {
	s := r.Siege
	held := StewardHolds(s.Throne)
	out := make([]throneRates, 0, len(s.Throne.Occupiers))
	for _, id := range sortedKeys(s.Throne.Occupiers) {
		drain := DrainPerSecond
		if id == r.RulerID {
			drain *= 1 - RulerBuffer(r.Garrison.Armor)
		}
		dealt := 0
		if p, _ := s.Participant(id); p != nil {
			dealt = p.Stats.DamageDealt
		}
		rate := Momentum(dealt)
		if held && id != r.RulerID {
			rate = 0
		}
		out = append(out, throneRates{id: id, occ: s.Throne.Occupiers[id], drain: drain, rate: rate})
	}
	return out
}

// tickThrone applies the seconds elapsed since LastTick to every occupier at
// once. The first occupier to reach ThroneGoal before their armor runs out
// wins; occupiers whose armor reaches zero first are ejected.
//
// Postcondition: every remaining occupier has Armor > 0 and 0 <= Progress < ThroneGoal,
// or the siege has ended.
func tickThrone(r *world.Region, env Env, res *Result) {
	s := r.Siege
	t := s.Throne
	elapsed := env.Now.Sub(t.LastTick).Seconds()
	if elapsed <= 0 {
		return
	}
	t.LastTick = env.Now

	all := rates(r)
	winner := -1
	bestWin := math.Inf(1)
	for i := range all {
		tw := all[i].timeToWin()
		if tw <= elapsed && tw <= all[i].timeToEject() && tw < bestWin {
			winner = i
			bestWin = tw
		}
	}
	if winner >= 0 {
		all[winner].occ.Progress = ThroneGoal
		resolve(r, all[winner].id, res)
		return
	}

	for _, x := range all {
		x.occ.Armor -= x.drain * elapsed
		x.occ.Progress = math.Min(ThroneGoal, x.occ.Progress+x.rate*elapsed)
		if x.occ.Armor <= 0 {
			delete(t.Occupiers, x.id)
			res.event("%s is ejected from the throne", x.id)
		}
	}
}

// resolve ends the siege in favor of winnerID.
func resolve(r *world.Region, winnerID string, res *Result) {
	res.Ended = true
	if winnerID == r.RulerID {
		res.Suppressed = true
		res.event("revolt suppressed by %s", winnerID)
	} else {
		res.WinnerID = winnerID
		res.event("%s seizes the throne", winnerID)
	}
	r.Siege = nil
}

func endedMessage(res Result, r *world.Region) string {
	if res.Suppressed {
		return fmt.Sprintf("The revolt in %s has been crushed", r.Name)
	}
	return fmt.Sprintf("%s has seized the throne of %s", res.WinnerID, r.Name)
}

// throne advances the race and returns the live siege, or a finished
// result when the tick itself ended the siege.
func throne(r *world.Region, env Env) (*world.ActiveSiege, Result, bool, error) {
	s, err := active(r)
	if err != nil {
		return nil, Result{}, false, err
	}
	if s.Phase != world.PhaseThrone || s.Throne == nil {
		return nil, Result{}, false, reject("The throne room has not been reached")
	}
	var res Result
	tickThrone(r, env, &res)
	if res.Ended {
		res.Failed = true
		res.Message = endedMessage(res, r)
		return nil, res, true, nil
	}
	return s, res, false, nil
}

// ClaimThrone seats a challenger or the ruler, staking all of their armor.
func ClaimThrone(r *world.Region, a *actor.Actor, env Env) (Result, error) {
	s, res, done, err := throne(r, env)
	if err != nil || done {
		return res, err
	}
	p, attacker := enroll(r, a)
	if !attacker && a.ID != r.RulerID {
		return Result{}, reject("Only challengers and the ruler may claim the throne")
	}
	if _, seated := s.Throne.Occupiers[a.ID]; seated {
		return Result{}, reject("You already hold a seat")
	}
	if p.Downed() {
		return Result{}, reject("You are too wounded to fight")
	}
	stake := a.Quantity(actor.Armor)
	if stake < 1 {
		return Result{}, reject("You need armor to claim a seat")
	}
	a.Resources[actor.Armor] = 0
	s.Throne.Occupiers[a.ID] = &world.Occupier{Armor: float64(stake), JoinedAt: env.Now}
	p.Stats.Actions++
	res.Message = fmt.Sprintf("You claim a seat with %d armor", stake)
	return res, nil
}

// DonateArmor moves one armor from a to a seated occupier.
func DonateArmor(r *world.Region, a *actor.Actor, targetID string, env Env) (Result, error) {
	s, res, done, err := throne(r, env)
	if err != nil || done {
		return res, err
	}
	occ, ok := s.Throne.Occupiers[targetID]
	if !ok {
		return Result{}, reject("%s does not hold a seat", targetID)
	}
	if err := a.Spend(actor.Armor, 1); err != nil {
		return Result{}, reject("You have no armor to give")
	}
	p, _ := enroll(r, a)
	occ.Armor++
	p.Stats.Actions++
	res.Message = fmt.Sprintf("You reinforce %s (armor %.1f)", targetID, occ.Armor)
	return res, nil
}

// SunderArmor strips one armor from a seated occupier. The garrison absorbs
// the blow for the ruler while it has armor left.
func SunderArmor(r *world.Region, a *actor.Actor, targetID string, env Env) (Result, error) {
	s, res, done, err := throne(r, env)
	if err != nil || done {
		return res, err
	}
	if targetID == a.ID {
		return Result{}, reject("You cannot sunder your own armor")
	}
	occ, ok := s.Throne.Occupiers[targetID]
	if !ok {
		return Result{}, reject("%s does not hold a seat", targetID)
	}
	p, _ := enroll(r, a)
	if p.Downed() {
		return Result{}, reject("You are too wounded to fight")
	}
	p.Stats.Actions++
	if targetID == r.RulerID && r.Garrison.Armor > 0 {
		r.Garrison.Armor--
		res.Message = "The garrison's armor absorbs your blow"
		return res, nil
	}
	occ.Armor = math.Max(0, occ.Armor-1)
	res.Message = fmt.Sprintf("You sunder %s's armor (%.1f left)", targetID, occ.Armor)
	if occ.Armor <= 0 {
		delete(s.Throne.Occupiers, targetID)
		res.event("%s is ejected from the throne", targetID)
		res.Message = fmt.Sprintf("You knock %s from the throne", targetID)
	}
	return res, nil
}

// attackChampion strikes the ruler's champion or the steward. Damage dealt
// counts toward the attacker's throne momentum. Felling the steward opens the
// race to challengers; felling the champion unseats the ruler.
func attackChampion(r *world.Region, a *actor.Actor, env Env) (Result, error) {
	s, res, done, err := throne(r, env)
	if err != nil || done {
		return res, err
	}
	t := s.Throne
	p, attacker := enroll(r, a)
	if !attacker {
		return Result{}, reject("The %s fights for your side", championName(t))
	}
	if p.Downed() {
		return Result{}, reject("You are too wounded to fight")
	}
	if t.ChampionHP <= 0 {
		return Result{}, reject("The %s has already fallen", championName(t))
	}
	dmg := strike(r, a, true)
	dealt := min(dmg, t.ChampionHP)
	t.ChampionHP -= dealt
	p.Stats.DamageDealt += dealt
	p.Stats.Actions++
	res.Damage = dealt
	res.Message = fmt.Sprintf("You strike the %s for %d damage (momentum %.2f)", championName(t), dealt, Momentum(p.Stats.DamageDealt))
	if t.ChampionHP > 0 {
		return res, nil
	}

	res.event("%s falls", championName(t))
	if t.Mode == world.ThronePVE {
		res.Message = "The steward falls! The throne is open to challengers"
		return res, nil
	}
	res.Message = "The champion falls!"
	if _, seated := t.Occupiers[r.RulerID]; seated {
		delete(t.Occupiers, r.RulerID)
		res.event("%s is unseated", r.RulerID)
		res.Message = fmt.Sprintf("The champion falls! %s is thrown from the throne", r.RulerID)
	}
	return res, nil
}

func championName(t *world.Throne) string {
	if t.Mode == world.ThronePVP {
		return "champion"
	}
	return "steward"
}

// Observe advances the siege clocks and reports its state.
func Observe(r *world.Region, env Env) (Result, map[string]any, error) {
	res, err := Advance(r, env)
	if err != nil {
		return Result{}, nil, err
	}
	if res.Ended {
		res.Message = endedMessage(res, r)
	} else {
		res.Message = fmt.Sprintf("Siege of %s: %s", r.Name, r.Siege.Phase)
	}
	return res, Status(r, env.Now), nil
}
