// Package actor defines the per-player aggregate mutated by action resolution.
package actor

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Stamina and hp bounds.
const (
	MaxStamina = 100
	MaxHP      = 100
)

// StaminaRegenPerMinute is the passive stamina recovered per idle minute.
const StaminaRegenPerMinute = 1

// DefaultRegenCap bounds the idle time credited by ApplyRegen.
const DefaultRegenCap = 60 * time.Minute

// ErrInsufficient is returned when a resource spend would go negative.
var ErrInsufficient = errors.New("insufficient resources")

// Status is the actor's vital and career state.
type Status struct {
	Stamina    int `json:"stamina"`
	HP         int `json:"hp"`
	Level      int `json:"level"`
	XP         int `json:"xp"`
	Legitimacy int `json:"legitimacy"`
}

// SkillRecord is one skill's progression. Invariant: XP < MaxXP after normalization.
type SkillRecord struct {
	Level int     `json:"level"`
	XP    float64 `json:"xp"`
	MaxXP float64 `json:"maxXp"`
}

// DefaultSkillRecord is the record a skill starts from.
func DefaultSkillRecord() SkillRecord {
	return SkillRecord{Level: 1, XP: 0, MaxXP: 100}
}

// Item is a unique durable item instance.
type Item struct {
	ID            string `json:"id"`
	Kind          string `json:"kind"`
	Durability    int    `json:"durability"`
	MaxDurability int    `json:"maxDurability"`
}

// NewItem mints a fresh item of kind at full durability.
//
// Precondition: kind must be a key of Items.
func NewItem(kind string) Item {
	def := Items[kind]
	return Item{ID: uuid.NewString(), Kind: kind, Durability: def.MaxDurability, MaxDurability: def.MaxDurability}
}

// Buff is a temporary modifier.
type Buff struct {
	Kind      string    `json:"kind"`
	Magnitude float64   `json:"magnitude"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Process is a timed production that completes at ReadyAt.
type Process struct {
	ID       string    `json:"id"`
	Kind     string    `json:"kind"`
	Location string    `json:"location"`
	ReadyAt  time.Time `json:"readyAt"`
}

// RoleSnapshot is the progression saved for a role while another role is held.
type RoleSnapshot struct {
	Level  int                   `json:"level"`
	XP     int                   `json:"xp"`
	Skills map[Skill]SkillRecord `json:"skills"`
}

// Actor is a player's full mutable game state.
type Actor struct {
	ID         string                `json:"id"`
	Name       string                `json:"name"`
	Role       Role                  `json:"role"`
	RegionID   string                `json:"regionId"`
	Resources  map[Resource]int      `json:"resources"`
	Status     Status                `json:"status"`
	Skills     map[Skill]SkillRecord `json:"skills"`
	Equipment  map[Slot]*Item        `json:"equipment"`
	Inventory  []Item                `json:"inventory"`
	Buffs      []Buff                `json:"activeBuffs"`
	Processes  []Process             `json:"activeProcesses"`
	RoleStats  map[Role]RoleSnapshot `json:"roleStats"`
	Upgrades   map[string]int        `json:"upgrades"`
	Retired    bool                  `json:"retired,omitempty"`
	LastActive time.Time             `json:"lastActive"`
	RegenAt    time.Time             `json:"regenAt,omitempty"`
	CreatedAt  time.Time             `json:"createdAt"`
}

// New creates an actor with default substructures.
//
// Postcondition: the returned actor satisfies every EnsureDefaults invariant.
func New(id, name string, now time.Time) *Actor {
	a := &Actor{ID: id, Name: name}
	a.EnsureDefaults(now)
	return a
}

// EnsureDefaults fills every missing substructure with role-appropriate
// defaults. Existing data is never overwritten.
//
// Postcondition: all maps are non-nil; every skill has a record; Role is valid.
func (a *Actor) EnsureDefaults(now time.Time) {
	if a.Name == "" {
		a.Name = a.ID
	}
	if !a.Role.Valid() {
		a.Role = BaseRole
	}
	if a.Resources == nil {
		a.Resources = map[Resource]int{Gold: 50, Bread: 3}
	}
	if a.Status.Level == 0 {
		a.Status = Status{Stamina: MaxStamina, HP: MaxHP, Level: 1, XP: a.Status.XP, Legitimacy: a.Status.Legitimacy}
	}
	if a.Skills == nil {
		a.Skills = make(map[Skill]SkillRecord, len(AllSkills))
	}
	for _, s := range AllSkills {
		if _, ok := a.Skills[s]; !ok {
			a.Skills[s] = DefaultSkillRecord()
		}
	}
	if a.Equipment == nil {
		a.Equipment = make(map[Slot]*Item)
		if kind, ok := StartingTool[a.Role]; ok {
			it := NewItem(kind)
			a.Equipment[SlotTool] = &it
		}
	}
	if a.Inventory == nil {
		a.Inventory = []Item{}
	}
	if a.Buffs == nil {
		a.Buffs = []Buff{}
	}
	if a.Processes == nil {
		a.Processes = []Process{}
	}
	if a.RoleStats == nil {
		a.RoleStats = make(map[Role]RoleSnapshot)
	}
	if a.Upgrades == nil {
		a.Upgrades = make(map[string]int)
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	if a.LastActive.IsZero() {
		a.LastActive = now
	}
}

// Regen reports what ApplyRegen granted.
type Regen struct {
	Minutes int `json:"minutes"`
	Stamina int `json:"stamina"`
	Gold    int `json:"gold"`
}

// ApplyRegen credits passive stamina and upgrade income for each whole
// minute since RegenAt (LastActive when RegenAt is unset), capped at limit.
// RegenAt advances only by the minutes credited, so partial minutes carry
// over to the next call. LastActive is not modified.
//
// Precondition: EnsureDefaults has been called.
// Postcondition: Status.Stamina <= MaxStamina; no resource decreases; RegenAt <= now.
func (a *Actor) ApplyRegen(now time.Time, limit time.Duration) Regen {
	if limit <= 0 {
		limit = DefaultRegenCap
	}
	from := a.RegenAt
	if from.IsZero() {
		from = a.LastActive
	}
	elapsed := now.Sub(from)
	if elapsed < 0 {
		a.RegenAt = now
		return Regen{}
	}
	if elapsed > limit {
		from = now.Add(-limit)
		elapsed = limit
	}
	minutes := int(elapsed / time.Minute)
	a.RegenAt = from.Add(time.Duration(minutes) * time.Minute)
	if minutes == 0 {
		return Regen{}
	}

	var r Regen
	r.Minutes = minutes
	if a.Status.Stamina < MaxStamina {
		gain := minutes * StaminaRegenPerMinute
		if a.Status.Stamina+gain > MaxStamina {
			gain = MaxStamina - a.Status.Stamina
		}
		a.Status.Stamina += gain
		r.Stamina = gain
	}
	for upgrade, rate := range PassiveIncome {
		if lvl := a.Upgrades[upgrade]; lvl > 0 {
			r.Gold += minutes * rate * lvl
		}
	}
	if r.Gold > 0 {
		a.Resources[Gold] += r.Gold
	}
	return r
}

// Quantity returns the held amount of res.
func (a *Actor) Quantity(res Resource) int {
	return a.Resources[res]
}

// Has reports whether at least n of res is held.
func (a *Actor) Has(res Resource, n int) bool {
	return a.Resources[res] >= n
}

// Add credits n of res.
//
// Precondition: n >= 0.
func (a *Actor) Add(res Resource, n int) {
	if n <= 0 {
		return
	}
	if a.Resources == nil {
		a.Resources = make(map[Resource]int)
	}
	a.Resources[res] += n
}

// Spend debits n of res.
//
// Postcondition: on error no quantity changed.
func (a *Actor) Spend(res Resource, n int) error {
	if n < 0 {
		return fmt.Errorf("spending %d %s: negative amount", n, res)
	}
	if a.Resources[res] < n {
		return fmt.Errorf("spending %d %s (have %d): %w", n, res, a.Resources[res], ErrInsufficient)
	}
	a.Resources[res] -= n
	return nil
}

// BuffMagnitude sums the magnitude of unexpired buffs of kind.
func (a *Actor) BuffMagnitude(kind string, now time.Time) float64 {
	var total float64
	for _, b := range a.Buffs {
		if b.Kind == kind && now.Before(b.ExpiresAt) {
			total += b.Magnitude
		}
	}
	return total
}

// PruneBuffs drops expired buffs.
func (a *Actor) PruneBuffs(now time.Time) {
	kept := a.Buffs[:0]
	for _, b := range a.Buffs {
		if now.Before(b.ExpiresAt) {
			kept = append(kept, b)
		}
	}
	a.Buffs = kept
}

// Clone returns a deep copy of a.
func (a *Actor) Clone() *Actor {
	out := *a
	out.Resources = maps.Clone(a.Resources)
	out.Skills = maps.Clone(a.Skills)
	out.Upgrades = maps.Clone(a.Upgrades)
	out.Inventory = slices.Clone(a.Inventory)
	out.Buffs = slices.Clone(a.Buffs)
	out.Processes = slices.Clone(a.Processes)
	if a.Equipment != nil {
		out.Equipment = make(map[Slot]*Item, len(a.Equipment))
		for slot, it := range a.Equipment {
			if it == nil {
				out.Equipment[slot] = nil
				continue
			}
			cp := *it
			out.Equipment[slot] = &cp
		}
	}
	if a.RoleStats != nil {
		out.RoleStats = make(map[Role]RoleSnapshot, len(a.RoleStats))
		for role, snap := range a.RoleStats {
			snap.Skills = maps.Clone(snap.Skills)
			out.RoleStats[role] = snap
		}
	}
	return &out
}
