package world

import "time"

// Garrison is the region's stockpiled defense.
type Garrison struct {
	Swords int `json:"swords"`
	Armor  int `json:"armor"`
	Morale int `json:"morale"`
}

// Fortification is the region's walls.
type Fortification struct {
	HP    int `json:"hp"`
	MaxHP int `json:"maxHp"`
	Level int `json:"level"`
}

// Region is one named territory. Invariant: at most one ActiveSiege.
type Region struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Garrison      Garrison      `json:"garrison"`
	Fortification Fortification `json:"fortification"`
	RulerID       string        `json:"rulerId,omitempty"`
	Siege         *ActiveSiege  `json:"activeSiege,omitempty"`
}

// Phase is a siege state.
type Phase string

const (
	PhaseBreach    Phase = "BREACH"
	PhaseCourtyard Phase = "COURTYARD"
	PhaseThrone    Phase = "THRONE_ROOM"
)

// Rank orders phases; transitions only ever increase it.
func (p Phase) Rank() int {
	switch p {
	case PhaseBreach:
		return 0
	case PhaseCourtyard:
		return 1
	case PhaseThrone:
		return 2
	}
	return -1
}

// ParticipantStats accumulates a participant's siege record.
type ParticipantStats struct {
	DamageDealt int `json:"damageDealt"`
	DamageTaken int `json:"damageTaken"`
	Actions     int `json:"actions"`
}

// Participant is one player's position in a siege.
type Participant struct {
	Lane  int              `json:"lane"`
	HP    int              `json:"hp"`
	Stats ParticipantStats `json:"stats"`
}

// Downed reports whether the participant can no longer fight.
func (p *Participant) Downed() bool {
	return p.HP <= 0
}

// ThroneMode selects who holds the throne when the courtyard falls.
type ThroneMode string

const (
	ThronePVP ThroneMode = "PVP"
	ThronePVE ThroneMode = "PVE"
)

// Occupier is a seat in the throne race.
// Invariant: Armor >= 0 and 0 <= Progress <= 100 after every tick.
type Occupier struct {
	Armor    float64   `json:"armor"`
	Progress float64   `json:"progress"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Throne is the THRONE_ROOM phase state.
type Throne struct {
	Mode      ThroneMode           `json:"mode"`
	Occupiers map[string]*Occupier `json:"occupiers"`
	LastTick  time.Time            `json:"lastTick"`
	// ChampionHP is the ruler's champion (PVP) or the steward (PVE).
	ChampionHP    int `json:"championHp"`
	MaxChampionHP int `json:"maxChampionHp"`
}

// ActiveSiege is the single contest for a region.
type ActiveSiege struct {
	InstigatorID string                  `json:"instigatorId"`
	Phase        Phase                   `json:"phase"`
	StartedAt    time.Time               `json:"startedAt"`
	Attackers    map[string]*Participant `json:"attackers"`
	Defenders    map[string]*Participant `json:"defenders"`

	GateHP    int `json:"gateHp"`
	MaxGateHP int `json:"maxGateHp"`

	BossHP           int       `json:"bossHp"`
	MaxBossHP        int       `json:"maxBossHp"`
	BossTargetLane   int       `json:"bossTargetLane"`
	NextBossAttackAt time.Time `json:"nextBossAttackAt"`

	Throne *Throne `json:"throne,omitempty"`
}

// Participant returns playerID's record and whether it is on the attacking
// side. A nil record means playerID has not joined.
func (s *ActiveSiege) Participant(playerID string) (p *Participant, attacker bool) {
	if p, ok := s.Attackers[playerID]; ok {
		return p, true
	}
	if p, ok := s.Defenders[playerID]; ok {
		return p, false
	}
	return nil, false
}
