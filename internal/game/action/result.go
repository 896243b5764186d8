package action

import (
	"fmt"

	"github.com/cory-johannsen/fiefdom/internal/game/actor"
)

// LocalResult is what one resolved action did, returned to the caller.
type LocalResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	// Yields and Consumed are every resource unit credited to and debited
	// from the acting player, costs included.
	Yields   map[actor.Resource]int `json:"yields,omitempty"`
	Consumed map[actor.Resource]int `json:"consumed,omitempty"`
	// StaminaSpent is the effective stamina cost charged.
	StaminaSpent int                     `json:"staminaSpent,omitempty"`
	XP           map[actor.Skill]float64 `json:"xp,omitempty"`
	// Durability holds per-slot durability deltas (negative for wear).
	Durability map[actor.Slot]int `json:"durability,omitempty"`
	Jackpot    bool               `json:"jackpot,omitempty"`
	Regen      *actor.Regen       `json:"regen,omitempty"`
	NewLevel   int                `json:"newLevel,omitempty"`
	// RoleChanged is the role now held, when it changed.
	RoleChanged actor.Role `json:"roleChanged,omitempty"`
	// CharacterSnapshot is the retired character, for RETIRE.
	CharacterSnapshot *actor.Actor `json:"characterSnapshot,omitempty"`
	SiegeWinnerID     string       `json:"siegeWinnerId,omitempty"`
	TargetRegionID    string       `json:"targetRegionId,omitempty"`
	// Data carries kind-specific detail such as quotes and siege status.
	Data   map[string]any `json:"data,omitempty"`
	Events []string       `json:"events,omitempty"`
}

func newResult() *LocalResult {
	return &LocalResult{
		Yields:     map[actor.Resource]int{},
		Consumed:   map[actor.Resource]int{},
		XP:         map[actor.Skill]float64{},
		Durability: map[actor.Slot]int{},
		Data:       map[string]any{},
	}
}

// compact drops empty maps so results serialize cleanly.
func (r *LocalResult) compact() {
	if len(r.Yields) == 0 {
		r.Yields = nil
	}
	if len(r.Consumed) == 0 {
		r.Consumed = nil
	}
	if len(r.XP) == 0 {
		r.XP = nil
	}
	if len(r.Durability) == 0 {
		r.Durability = nil
	}
	if len(r.Data) == 0 {
		r.Data = nil
	}
}

// Outcome is the engine's answer to one resolve call.
type Outcome struct {
	Success bool         `json:"success"`
	Data    *LocalResult `json:"data,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// Rejection refuses an action: the transaction is abandoned and nothing,
// including its cost, is committed.
type Rejection struct {
	Message string
}

func (r *Rejection) Error() string { return r.Message }

// Failure ends an action unsuccessfully but commits everything done so far,
// costs included. Tool breakage is the canonical case.
type Failure struct {
	Message string
}

func (f *Failure) Error() string { return f.Message }

func rejectf(format string, args ...any) error {
	return &Rejection{Message: fmt.Sprintf(format, args...)}
}

func failf(format string, args ...any) error {
	return &Failure{Message: fmt.Sprintf(format, args...)}
}
