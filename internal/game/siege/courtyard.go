package siege

import (
	"fmt"

	"github.com/cory-johannsen/fiefdom/internal/game/actor"
	"github.com/cory-johannsen/fiefdom/internal/game/world"
)

// ensureBoss initializes the courtyard boss on the first action of the phase.
func ensureBoss(r *world.Region, env Env) {
	s := r.Siege
	if s.MaxBossHP > 0 {
		return
	}
	hp := BossBaseHP + BossHPPerArmor*r.Garrison.Armor
	s.BossHP = hp
	s.MaxBossHP = hp
	s.BossTargetLane = env.Roller.Pick("boss_lane", Lanes)
	s.NextBossAttackAt = env.Now.Add(BossAttackInterval)
}

// ArcherChance is the per-attack volley probability for a fortification level.
func ArcherChance(level int) float64 {
	return ArcherBase + ArcherPerLevel*float64(level)
}

// runBoss replays every boss attack due by env.Now, at most MaxBossCatchUp
// of them; remaining missed attacks are dropped.
func runBoss(r *world.Region, env Env, res *Result) error {
	s := r.Siege
	n := 0
	for !env.Now.Before(s.NextBossAttackAt) {
		if n == MaxBossCatchUp {
			s.NextBossAttackAt = env.Now.Add(BossAttackInterval)
			break
		}
		if err := bossAttack(r, env, res); err != nil {
			return err
		}
		s.NextBossAttackAt = s.NextBossAttackAt.Add(BossAttackInterval)
		n++
	}
	return nil
}

func bossAttack(r *world.Region, env Env, res *Result) error {
	s := r.Siege
	lane := s.BossTargetLane
	for _, id := range sortedKeys(s.Attackers) {
		p := s.Attackers[id]
		if p.Lane == lane && !p.Downed() {
			if err := hit(r, id, p, true, LaneDamage, env, res); err != nil {
				return err
			}
		}
	}
	for _, id := range sortedKeys(s.Defenders) {
		p := s.Defenders[id]
		if p.Lane == lane && !p.Downed() {
			if err := hit(r, id, p, false, LaneDamage, env, res); err != nil {
				return err
			}
		}
	}
	if env.Roller.Chance("archer_volley", ArcherChance(r.Fortification.Level)) {
		res.event("archer volley")
		if err := volley(r, s.Attackers, true, env, res); err != nil {
			return err
		}
		if err := volley(r, s.Defenders, false, env, res); err != nil {
			return err
		}
	}
	s.BossTargetLane = env.Roller.Pick("boss_lane", Lanes)
	return nil
}

// volley strikes every standing participant of one side, whatever their lane.
func volley(r *world.Region, side map[string]*world.Participant, attacker bool, env Env, res *Result) error {
	for _, id := range sortedKeys(side) {
		p := side[id]
		if p.Downed() {
			continue
		}
		if err := hit(r, id, p, attacker, ArcherDamage, env, res); err != nil {
			return err
		}
	}
	return nil
}

// hit applies dmg to a participant: armor absorbs first, then hp.
// Defenders draw on the garrison's armor; attackers on their own.
func hit(r *world.Region, id string, p *world.Participant, attacker bool, dmg int, env Env, res *Result) error {
	absorbed := 0
	if attacker {
		if env.Absorb != nil {
			got, err := env.Absorb(id, dmg)
			if err != nil {
				return fmt.Errorf("absorbing damage for %s: %w", id, err)
			}
			absorbed = min(max(0, got), dmg)
		}
	} else {
		absorbed = min(dmg, r.Garrison.Armor)
		r.Garrison.Armor -= absorbed
	}
	rest := dmg - absorbed
	if rest <= 0 {
		return nil
	}
	taken := min(rest, p.HP)
	p.HP -= taken
	p.Stats.DamageTaken += taken
	if p.Downed() {
		res.event("%s is downed", id)
	}
	return nil
}

// MoveLane moves a courtyard participant to lane.
func MoveLane(r *world.Region, a *actor.Actor, lane int, env Env) (Result, error) {
	s, err := active(r)
	if err != nil {
		return Result{}, err
	}
	if s.Phase != world.PhaseCourtyard {
		return Result{}, reject("Lanes only matter in the courtyard")
	}
	if lane < 0 || lane >= Lanes {
		return Result{}, reject("Lane must be between 0 and %d", Lanes-1)
	}
	res, err := Advance(r, env)
	if err != nil {
		return Result{}, err
	}
	p, _ := enroll(r, a)
	if p.Downed() {
		res.Failed = true
		res.Message = "You are too wounded to move"
		return res, nil
	}
	p.Lane = lane
	p.Stats.Actions++
	res.Message = fmt.Sprintf("You move to lane %d", lane)
	if lane == s.BossTargetLane {
		res.Message += "; the boss is watching this lane"
	}
	return res, nil
}

// AttackBoss strikes the courtyard boss, or the throne room champion.
// A sword is drawn from the attacker, then from the garrison for defenders,
// else the blow is unarmed.
func AttackBoss(r *world.Region, a *actor.Actor, env Env) (Result, error) {
	s, err := active(r)
	if err != nil {
		return Result{}, err
	}
	switch s.Phase {
	case world.PhaseBreach:
		return Result{}, reject("Break the gate first")
	case world.PhaseThrone:
		return attackChampion(r, a, env)
	}

	res, err := Advance(r, env)
	if err != nil {
		return Result{}, err
	}
	p, attacker := enroll(r, a)
	if p.Downed() {
		res.Failed = true
		res.Message = "You are too wounded to fight"
		return res, nil
	}

	dmg := strike(r, a, attacker)
	dealt := min(dmg, s.BossHP)
	s.BossHP -= dealt
	p.Stats.DamageDealt += dealt
	p.Stats.Actions++
	res.Damage = dealt
	res.Message = fmt.Sprintf("You strike the boss for %d damage (%d/%d)", dealt, s.BossHP, s.MaxBossHP)

	if s.BossHP == 0 {
		if err := enterThrone(r, env, &res); err != nil {
			return Result{}, err
		}
		res.Transitioned = true
		res.Message = fmt.Sprintf("The boss falls! The throne room is open (%s)", s.Throne.Mode)
	}
	return res, nil
}

func strike(r *world.Region, a *actor.Actor, attacker bool) int {
	if a.Spend(actor.Swords, 1) == nil {
		return ArmedDamage
	}
	if !attacker && r.Garrison.Swords > 0 {
		r.Garrison.Swords--
		return ArmedDamage
	}
	return UnarmedDamage
}

// enterThrone seeds the throne race. An incumbent active within
// RulerActiveWindow is seated for a PVP race; otherwise a steward holds the hall.
func enterThrone(r *world.Region, env Env, res *Result) error {
	s := r.Siege
	t := &world.Throne{
		Mode:      world.ThronePVE,
		Occupiers: map[string]*world.Occupier{},
		LastTick:  env.Now,
	}
	if r.RulerID != "" && env.Ruler != nil {
		info, err := env.Ruler(r.RulerID)
		if err != nil {
			return fmt.Errorf("loading ruler %s: %w", r.RulerID, err)
		}
		if !info.LastActive.IsZero() && env.Now.Sub(info.LastActive) <= RulerActiveWindow {
			t.Mode = world.ThronePVP
			t.Occupiers[r.RulerID] = &world.Occupier{Armor: RulerSeatArmor, Progress: RulerHeadStart, JoinedAt: env.Now}
			t.ChampionHP = ChampionHPFactor * info.HP
			if _, ok := s.Defenders[r.RulerID]; !ok {
				if _, att := s.Attackers[r.RulerID]; !att {
					s.Defenders[r.RulerID] = &world.Participant{HP: ParticipantHP}
				}
			}
		}
	}
	if t.Mode == world.ThronePVE {
		t.ChampionHP = StewardHP
	}
	t.MaxChampionHP = t.ChampionHP
	s.Throne = t
	s.Phase = world.PhaseThrone
	res.event("phase %s %s", world.PhaseThrone, t.Mode)
	return nil
}
