// Package world defines the per-room shared state: the world snapshot
// (season, weather, tick, laws, settlement) and named regions.
package world

import (
	"errors"
	"fmt"
	"slices"

	"github.com/cory-johannsen/fiefdom/internal/game/actor"
)

// Season is one quarter of the game year.
type Season string

const (
	Spring Season = "SPRING"
	Summer Season = "SUMMER"
	Autumn Season = "AUTUMN"
	Winter Season = "WINTER"
)

// Seasons lists seasons in calendar order.
var Seasons = []Season{Spring, Summer, Autumn, Winter}

// Next returns the season that follows s.
func (s Season) Next() Season {
	i := slices.Index(Seasons, s)
	return Seasons[(i+1)%len(Seasons)]
}

// Weather is the current sky condition.
type Weather string

const (
	Clear Weather = "CLEAR"
	Rain  Weather = "RAIN"
	Storm Weather = "STORM"
	Snow  Weather = "SNOW"
	Fog   Weather = "FOG"
)

// WeatherKinds lists every weather condition.
var WeatherKinds = []Weather{Clear, Rain, Storm, Snow, Fog}

// Clock cadence in ticks.
const (
	TicksPerWeather = 6
	TicksPerSeason  = 96
)

// Building is one settlement structure.
type Building struct {
	Level         int            `json:"level"`
	Progress      int            `json:"progress"`
	Contributions map[string]int `json:"contributions"`
}

// BuildingDef is the static description of a settlement building.
type BuildingDef struct {
	// Skill is boosted when the building reaches level 2.
	Skill actor.Skill
	// Material is the resource contributed toward the next level.
	Material actor.Resource
}

// Buildings maps building IDs to their definitions.
var Buildings = map[string]BuildingDef{
	"farmstead":   {Skill: actor.Farming, Material: actor.Wood},
	"sawmill":     {Skill: actor.Woodcutting, Material: actor.Stone},
	"quarry":      {Skill: actor.Mining, Material: actor.Wood},
	"forge":       {Skill: actor.Smithing, Material: actor.Iron},
	"kitchen":     {Skill: actor.Cooking, Material: actor.Stone},
	"dock":        {Skill: actor.Fishing, Material: actor.Wood},
	"market_hall": {Skill: actor.Trading, Material: actor.Stone},
	"barracks":    {Skill: actor.Combat, Material: actor.Iron},
	"chapel":      {Skill: actor.Leadership, Material: actor.Stone},
}

// BuildingForSkill returns the building linked to skill.
func BuildingForSkill(skill actor.Skill) (string, bool) {
	for id, def := range Buildings {
		if def.Skill == skill {
			return id, true
		}
	}
	return "", false
}

// Requirement is the progress needed to leave level.
func Requirement(level int) int {
	return 50 * level
}

// MaxXPBoost caps the settlement XP bonus.
const MaxXPBoost = 0.10

// ErrUnknownBuilding is returned for building IDs missing from Buildings.
var ErrUnknownBuilding = errors.New("unknown building")

// World is the per-room shared snapshot.
type World struct {
	Season     Season               `json:"season"`
	Weather    Weather              `json:"weather"`
	GameTick   int64                `json:"gameTick"`
	Laws       []string             `json:"laws"`
	Settlement map[string]*Building `json:"settlement"`
}

// New returns a world at tick 0 in clear spring weather with every building at level 1.
func New() *World {
	w := &World{}
	w.EnsureDefaults()
	return w
}

// EnsureDefaults fills missing fields without overwriting existing ones.
//
// Postcondition: every entry of Buildings exists in Settlement.
func (w *World) EnsureDefaults() {
	if w.Season == "" {
		w.Season = Spring
	}
	if w.Weather == "" {
		w.Weather = Clear
	}
	if w.Laws == nil {
		w.Laws = []string{}
	}
	if w.Settlement == nil {
		w.Settlement = make(map[string]*Building, len(Buildings))
	}
	for id := range Buildings {
		b, ok := w.Settlement[id]
		if !ok || b == nil {
			b = &Building{Level: 1}
			w.Settlement[id] = b
		}
		if b.Level < 1 {
			b.Level = 1
		}
		if b.Contributions == nil {
			b.Contributions = make(map[string]int)
		}
	}
}

// Hour returns the game hour derived from the tick counter.
func (w *World) Hour() GameHour {
	return GameHour(w.GameTick % 24)
}

// HasLaw reports whether law is active.
func (w *World) HasLaw(law string) bool {
	return slices.Contains(w.Laws, law)
}

// XPBoost returns the settlement bonus for skill: 5% per level above 1,
// capped at MaxXPBoost, and zero below level 2.
func (w *World) XPBoost(skill actor.Skill) float64 {
	id, ok := BuildingForSkill(skill)
	if !ok {
		return 0
	}
	b := w.Settlement[id]
	if b == nil || b.Level < 2 {
		return 0
	}
	return min(MaxXPBoost, 0.05*float64(b.Level-1))
}

// Contribution reports the outcome of Contribute.
type Contribution struct {
	Given    int
	Leveled  bool
	NewLevel int
}

// Contribute applies up to offered units from a player holding have units
// toward building's next level. The caller debits Given from the player.
//
// Postcondition: Given == min(offered, remaining requirement, have).
// Postcondition: reaching the requirement exactly raises Level by one and
// clears Progress and Contributions.
func (w *World) Contribute(buildingID, playerID string, offered, have int) (Contribution, error) {
	if _, ok := Buildings[buildingID]; !ok {
		return Contribution{}, fmt.Errorf("contributing to %q: %w", buildingID, ErrUnknownBuilding)
	}
	w.EnsureDefaults()
	b := w.Settlement[buildingID]
	remaining := Requirement(b.Level) - b.Progress
	given := min(offered, remaining, have)
	if given <= 0 {
		return Contribution{NewLevel: b.Level}, nil
	}
	b.Progress += given
	b.Contributions[playerID] += given
	c := Contribution{Given: given, NewLevel: b.Level}
	if b.Progress >= Requirement(b.Level) {
		b.Level++
		b.Progress = 0
		b.Contributions = make(map[string]int)
		c.Leveled = true
		c.NewLevel = b.Level
	}
	return c, nil
}

// Roller picks uniform indexes; satisfied by *chance.Roller.
type Roller interface {
	Pick(label string, n int) int
}

// Advance moves the world forward one tick, rotating the season every
// TicksPerSeason ticks and then rerolling weather every TicksPerWeather ticks.
//
// Postcondition: GameTick increases by exactly one.
func (w *World) Advance(r Roller) (weatherChanged, seasonChanged bool) {
	w.EnsureDefaults()
	w.GameTick++
	if w.GameTick%TicksPerSeason == 0 {
		w.Season = w.Season.Next()
		seasonChanged = true
	}
	if w.GameTick%TicksPerWeather == 0 {
		next := WeatherKinds[r.Pick("weather", len(WeatherKinds))]
		if w.Season != Winter && next == Snow {
			next = Rain
		}
		weatherChanged = next != w.Weather
		w.Weather = next
	}
	return weatherChanged, seasonChanged
}
