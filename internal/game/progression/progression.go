// Package progression applies skill and character experience and manages
// role-scoped progression snapshots.
package progression

import (
	"errors"
	"fmt"
	"math"

	"github.com/cory-johannsen/fiefdom/internal/game/actor"
)

// SkillGrowth multiplies a skill's MaxXP on every level gained.
const SkillGrowth = 1.5

// LevelThresholds is the ascending character XP table.
var LevelThresholds = []int{0, 100, 250, 500, 900, 1400, 2100, 3000, 4200, 5700}

// LevelForXP returns the count of thresholds that are <= xp.
//
// Postcondition: 1 <= result <= len(LevelThresholds) for xp >= 0.
func LevelForXP(xp int) int {
	n := 0
	for _, th := range LevelThresholds {
		if th <= xp {
			n++
		}
	}
	return n
}

// Gain reports the effect of one TrackXP call.
type Gain struct {
	Skill        actor.Skill
	Amount       float64
	SkillLevelUp int
	NewLevel     int
}

// TrackXP adds amount, raised by boost, to skill and to the character total.
// Skill levels normalize in a loop so XP < MaxXP always holds afterwards.
//
// Precondition: amount >= 0; 0 <= boost.
// Postcondition: a.Skills[skill].XP < a.Skills[skill].MaxXP.
// Postcondition: NewLevel is non-zero only when the character level rose.
func TrackXP(a *actor.Actor, skill actor.Skill, amount, boost float64) Gain {
	if amount < 0 {
		amount = 0
	}
	gained := amount * (1 + boost)

	rec, ok := a.Skills[skill]
	if !ok {
		rec = actor.DefaultSkillRecord()
	}
	rec.XP += gained
	g := Gain{Skill: skill, Amount: gained}
	for rec.MaxXP > 0 && rec.XP >= rec.MaxXP {
		rec.XP -= rec.MaxXP
		rec.Level++
		rec.MaxXP *= SkillGrowth
		g.SkillLevelUp++
	}
	if a.Skills == nil {
		a.Skills = make(map[actor.Skill]actor.SkillRecord)
	}
	a.Skills[skill] = rec

	before := a.Status.Level
	a.Status.XP += int(math.Round(gained))
	if lvl := LevelForXP(a.Status.XP); lvl > before {
		a.Status.Level = lvl
		g.NewLevel = lvl
	}
	return g
}

// ErrSameRole is returned when switching to the held role.
var ErrSameRole = errors.New("already holds role")

// ErrRoleNotSelectable is returned for roles that cannot be chosen directly.
var ErrRoleNotSelectable = errors.New("role is not selectable")

// Snapshot captures a's current role-scoped progression.
func Snapshot(a *actor.Actor) actor.RoleSnapshot {
	skills := make(map[actor.Skill]actor.SkillRecord, len(a.Skills))
	for k, v := range a.Skills {
		skills[k] = v
	}
	return actor.RoleSnapshot{Level: a.Status.Level, XP: a.Status.XP, Skills: skills}
}

// SwitchRole saves the outgoing role's progression into RoleStats and either
// restores the saved snapshot for next or starts it from fresh defaults.
//
// Precondition: a has been initialized with EnsureDefaults.
// Postcondition: on success a.Role == next and RoleStats[previous] holds the outgoing state.
func SwitchRole(a *actor.Actor, next actor.Role) error {
	if !next.Valid() {
		return fmt.Errorf("switching to %q: %w", next, ErrRoleNotSelectable)
	}
	if next == a.Role {
		return fmt.Errorf("switching to %s: %w", next, ErrSameRole)
	}
	SetRole(a, next)
	return nil
}

// SetRole performs the snapshot/restore without selection checks. Promotion
// uses it to move actors into and out of the ruler role.
func SetRole(a *actor.Actor, next actor.Role) {
	if a.RoleStats == nil {
		a.RoleStats = make(map[actor.Role]actor.RoleSnapshot)
	}
	if next == a.Role {
		return
	}
	a.RoleStats[a.Role] = Snapshot(a)

	if saved, ok := a.RoleStats[next]; ok {
		a.Status.Level = saved.Level
		a.Status.XP = saved.XP
		a.Skills = make(map[actor.Skill]actor.SkillRecord, len(saved.Skills))
		for k, v := range saved.Skills {
			a.Skills[k] = v
		}
	} else {
		a.Status.Level = 1
		a.Status.XP = 0
		a.Skills = make(map[actor.Skill]actor.SkillRecord, len(actor.AllSkills))
	}
	for _, s := range actor.AllSkills {
		if _, ok := a.Skills[s]; !ok {
			a.Skills[s] = actor.DefaultSkillRecord()
		}
	}
	a.Role = next
}

// SyncRoleStats refreshes the held role's snapshot from live state.
func SyncRoleStats(a *actor.Actor) {
	if a.RoleStats == nil {
		a.RoleStats = make(map[actor.Role]actor.RoleSnapshot)
	}
	a.RoleStats[a.Role] = Snapshot(a)
}
