package cost

import (
	"fmt"
	"math"

	"github.com/cory-johannsen/fiefdom/internal/game/actor"
	"github.com/cory-johannsen/fiefdom/internal/game/world"
)

// Stamina multipliers by season and weather.
var (
	SeasonMultiplier = map[world.Season]float64{
		world.Spring: 1.0,
		world.Summer: 0.9,
		world.Autumn: 1.0,
		world.Winter: 1.25,
	}
	WeatherMultiplier = map[world.Weather]float64{
		world.Clear: 1.0,
		world.Rain:  1.1,
		world.Storm: 1.3,
		world.Snow:  1.2,
		world.Fog:   1.05,
	}
)

// NightMultiplier applies between 22:00 and 04:59.
const NightMultiplier = 1.15

// MinMultiplier floors the combined modulation.
const MinMultiplier = 0.5

// Conditions are the world factors that modulate stamina.
type Conditions struct {
	Season  world.Season
	Weather world.Weather
	Hour    world.GameHour
	// Vigor is the summed magnitude of the actor's active vigor buffs.
	Vigor float64
	Laws  []string
}

// ConditionsFor derives Conditions from a world snapshot and an actor's buffs.
func ConditionsFor(w *world.World, vigor float64) Conditions {
	if w == nil {
		w = world.New()
	}
	return Conditions{Season: w.Season, Weather: w.Weather, Hour: w.Hour(), Vigor: vigor, Laws: w.Laws}
}

// LawHook lets active laws rewrite a stamina cost.
type LawHook interface {
	AdjustStamina(law, kind string, stamina int) (int, error)
}

// Multiplier returns the combined modulation for c.
//
// Postcondition: result >= MinMultiplier.
func Multiplier(c Conditions) float64 {
	m := 1.0
	if v, ok := SeasonMultiplier[c.Season]; ok {
		m *= v
	}
	if v, ok := WeatherMultiplier[c.Weather]; ok {
		m *= v
	}
	if c.Vigor > 0 {
		m *= 1 - c.Vigor
	}
	if c.Hour.IsNight() {
		m *= NightMultiplier
	}
	return math.Max(MinMultiplier, m)
}

// EffectiveStamina computes ceil(base × multiplier), then lets each active
// law rewrite the result in order.
//
// Postcondition: result >= 0.
func EffectiveStamina(kind string, base int, c Conditions, hook LawHook) (int, error) {
	st := 0
	if base > 0 {
		// epsilon keeps products like 10×0.9 from rounding up
		st = int(math.Ceil(float64(base)*Multiplier(c) - 1e-9))
	}
	if hook != nil {
		for _, law := range c.Laws {
			adj, err := hook.AdjustStamina(law, kind, st)
			if err != nil {
				return 0, fmt.Errorf("applying law %q to %s: %w", law, kind, err)
			}
			st = adj
		}
	}
	return max(0, st), nil
}

// Quote is a resolved, affordable price.
type Quote struct {
	Kind      string
	Stamina   int
	Resources map[actor.Resource]int
}

// Shortfall describes why an actor cannot pay.
type Shortfall struct {
	Resource actor.Resource // empty for stamina
	Need     int
	Have     int
}

// Message renders the player-facing reason.
func (s Shortfall) Message() string {
	what := string(s.Resource)
	if what == "" {
		what = "stamina"
	}
	return fmt.Sprintf("Not enough %s (need %d, have %d)", what, s.Need, s.Have)
}

// Error satisfies error.
func (s *Shortfall) Error() string { return s.Message() }

// Resolve prices kind for a under c.
//
// Postcondition: returns a Quote the actor can pay, or a *Shortfall, or a
// lookup/hook error. a is never modified.
func Resolve(t Table, kind string, a *actor.Actor, c Conditions, hook LawHook) (Quote, error) {
	e, err := t.Lookup(kind)
	if err != nil {
		return Quote{}, err
	}
	st, err := EffectiveStamina(kind, e.Stamina, c, hook)
	if err != nil {
		return Quote{}, err
	}
	for _, res := range e.sortedResources() {
		need := e.Resources[res]
		if have := a.Quantity(res); have < need {
			return Quote{}, &Shortfall{Resource: res, Need: need, Have: have}
		}
	}
	if a.Status.Stamina < st {
		return Quote{}, &Shortfall{Need: st, Have: a.Status.Stamina}
	}
	resources := make(map[actor.Resource]int, len(e.Resources))
	for r, n := range e.Resources {
		if n > 0 {
			resources[r] = n
		}
	}
	return Quote{Kind: kind, Stamina: st, Resources: resources}, nil
}

// Deduct charges q to a. It must follow a successful Resolve on the same actor state.
//
// Postcondition: every resource stays >= 0.
func Deduct(a *actor.Actor, q Quote) error {
	if a.Status.Stamina < q.Stamina {
		return &Shortfall{Need: q.Stamina, Have: a.Status.Stamina}
	}
	for r, n := range q.Resources {
		if !a.Has(r, n) {
			return &Shortfall{Resource: r, Need: n, Have: a.Quantity(r)}
		}
	}
	for r, n := range q.Resources {
		a.Resources[r] -= n
	}
	a.Status.Stamina -= q.Stamina
	return nil
}
