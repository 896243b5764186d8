// Package siege implements the three-phase contest for control of a region:
// BREACH, then COURTYARD, then THRONE_ROOM, after which the siege is deleted.
//
// Every operation first advances the siege's lazy clocks to Env.Now, then
// applies the acting player's move. Nothing here touches storage; callers
// load and persist the region and any player records.
package siege

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/cory-johannsen/fiefdom/internal/game/actor"
	"github.com/cory-johannsen/fiefdom/internal/game/world"
)

// Breach tunables.
const (
	MinSwordsToStart = 500
	MinGateHP        = 1000
	ArmedDamage      = 25
	UnarmedDamage    = 2
	ParticipantHP    = 100
)

// Courtyard tunables.
const (
	Lanes              = 3
	BossBaseHP         = 10000
	BossHPPerArmor     = 20
	BossAttackInterval = 5 * time.Second
	LaneDamage         = 15
	ArcherDamage       = 5
	ArcherBase         = 0.15
	ArcherPerLevel     = 0.05
)

// MaxBossCatchUp bounds the boss attacks replayed by one action.
const MaxBossCatchUp = 720

// Throne room tunables.
const (
	RulerActiveWindow = 60 * time.Second
	RulerSeatArmor    = 100
	RulerHeadStart    = 20
	ChampionHPFactor  = 5
	StewardHP         = 5000
	ThroneGoal        = 100.0
	DrainPerSecond    = 1.0
	MaxRulerBuffer    = 0.8
	BufferPerArmor    = 0.001
	MomentumPerDamage = 1.0 / 200
)

// Rejection is a validation failure: the action is refused and nothing is
// committed.
type Rejection struct {
	Message string
}

func (r *Rejection) Error() string { return r.Message }

func reject(format string, args ...any) error {
	return &Rejection{Message: fmt.Sprintf(format, args...)}
}

// AsRejection unwraps a *Rejection from err.
func AsRejection(err error) (*Rejection, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}

// Roller supplies the siege's random decisions; satisfied by *chance.Roller.
type Roller interface {
	Chance(label string, p float64) bool
	Pick(label string, n int) int
}

// RulerInfo is what the courtyard needs to know about the incumbent.
type RulerInfo struct {
	LastActive time.Time
	HP         int
}

// Env carries the clock, randomness, and cross-record callbacks.
type Env struct {
	Now    time.Time
	Roller Roller
	// Absorb spends up to dmg of playerID's own armor resource and returns
	// the amount absorbed.
	Absorb func(playerID string, dmg int) (int, error)
	// Ruler loads the incumbent ruler's state.
	Ruler func(rulerID string) (RulerInfo, error)
}

// Result reports what one operation did.
type Result struct {
	Message string
	// Failed marks an action that committed its side effects but did not
	// achieve its aim, such as attacking after being downed by the boss.
	Failed       bool
	Damage       int
	Transitioned bool
	Ended        bool
	Suppressed   bool
	WinnerID     string
	Events       []string
}

func (r *Result) event(format string, args ...any) {
	r.Events = append(r.Events, fmt.Sprintf(format, args...))
}

// Start opens a siege against region on behalf of attacker.
// The attacker's swords are checked, not consumed.
//
// Postcondition: on success region.Siege is in BREACH with
// GateHP == max(MinGateHP, fortification hp) and the attacker enrolled.
func Start(r *world.Region, a *actor.Actor, env Env) (Result, error) {
	if r.Siege != nil {
		return Result{}, reject("A siege is already underway in %s", r.Name)
	}
	if r.RulerID == a.ID {
		return Result{}, reject("You cannot besiege your own region")
	}
	if have := a.Quantity(actor.Swords); have < MinSwordsToStart {
		return Result{}, reject("You need at least %d swords to start a siege (have %d)", MinSwordsToStart, have)
	}
	gate := max(MinGateHP, r.Fortification.HP)
	r.Siege = &world.ActiveSiege{
		InstigatorID: a.ID,
		Phase:        world.PhaseBreach,
		StartedAt:    env.Now,
		Attackers:    map[string]*world.Participant{},
		Defenders:    map[string]*world.Participant{},
		GateHP:       gate,
		MaxGateHP:    gate,
	}
	enroll(r, a)
	return Result{Message: fmt.Sprintf("You raise your banner before the gates of %s (gate %d hp)", r.Name, gate)}, nil
}

// enroll returns a's participant record, creating it on first action.
// Rulers and residents defend; everyone else attacks.
func enroll(r *world.Region, a *actor.Actor) (*world.Participant, bool) {
	s := r.Siege
	if p, attacker := s.Participant(a.ID); p != nil {
		return p, attacker
	}
	p := &world.Participant{HP: ParticipantHP}
	if a.ID == r.RulerID || a.RegionID == r.ID {
		s.Defenders[a.ID] = p
		return p, false
	}
	s.Attackers[a.ID] = p
	return p, true
}

func active(r *world.Region) (*world.ActiveSiege, error) {
	if r.Siege == nil {
		return nil, reject("There is no siege in %s", r.Name)
	}
	if r.Siege.Attackers == nil {
		r.Siege.Attackers = map[string]*world.Participant{}
	}
	if r.Siege.Defenders == nil {
		r.Siege.Defenders = map[string]*world.Participant{}
	}
	return r.Siege, nil
}

// Advance runs the lazy clocks of the current phase up to env.Now.
func Advance(r *world.Region, env Env) (Result, error) {
	s, err := active(r)
	if err != nil {
		return Result{}, err
	}
	var res Result
	switch s.Phase {
	case world.PhaseCourtyard:
		ensureBoss(r, env)
		if err := runBoss(r, env, &res); err != nil {
			return Result{}, err
		}
	case world.PhaseThrone:
		tickThrone(r, env, &res)
	}
	return res, nil
}

// AttackGate batters the gate: one sword for ArmedDamage, else UnarmedDamage.
//
// Postcondition: GateHP >= 0; GateHP == 0 moves the siege to COURTYARD.
func AttackGate(r *world.Region, a *actor.Actor, env Env) (Result, error) {
	s, err := active(r)
	if err != nil {
		return Result{}, err
	}
	if s.Phase != world.PhaseBreach {
		return Result{}, reject("The gate of %s has already fallen", r.Name)
	}
	p, _ := enroll(r, a)
	if p.Downed() {
		return Result{}, reject("You are too wounded to fight")
	}

	dmg := UnarmedDamage
	if a.Spend(actor.Swords, 1) == nil {
		dmg = ArmedDamage
	}
	dealt := min(dmg, s.GateHP)
	s.GateHP -= dealt
	p.Stats.DamageDealt += dealt
	p.Stats.Actions++

	res := Result{Damage: dealt, Message: fmt.Sprintf("You strike the gate for %d damage (%d/%d)", dealt, s.GateHP, s.MaxGateHP)}
	if s.GateHP == 0 {
		s.Phase = world.PhaseCourtyard
		res.Transitioned = true
		res.Message = "The gate shatters! The courtyard lies open."
		res.event("phase %s", world.PhaseCourtyard)
	}
	return res, nil
}

// Status summarizes the siege for display.
func Status(r *world.Region, now time.Time) map[string]any {
	s := r.Siege
	if s == nil {
		return map[string]any{"region": r.ID, "active": false}
	}
	out := map[string]any{
		"region":    r.ID,
		"active":    true,
		"phase":     string(s.Phase),
		"attackers": len(s.Attackers),
		"defenders": len(s.Defenders),
	}
	switch s.Phase {
	case world.PhaseBreach:
		out["gateHp"] = s.GateHP
		out["maxGateHp"] = s.MaxGateHP
	case world.PhaseCourtyard:
		out["bossHp"] = s.BossHP
		out["maxBossHp"] = s.MaxBossHP
		out["bossTargetLane"] = s.BossTargetLane
		out["nextBossAttackIn"] = max(0, s.NextBossAttackAt.Sub(now).Seconds())
	case world.PhaseThrone:
		if t := s.Throne; t != nil {
			seats := make(map[string]any, len(t.Occupiers))
			for _, id := range sortedKeys(t.Occupiers) {
				o := t.Occupiers[id]
				seats[id] = map[string]any{"armor": o.Armor, "progress": o.Progress}
			}
			out["mode"] = string(t.Mode)
			out["occupiers"] = seats
			out["championHp"] = t.ChampionHP
			out["stewardHolds"] = StewardHolds(t)
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
