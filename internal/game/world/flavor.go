package world

// skyByPeriod sets the scene for each part of the day.
var skyByPeriod = map[TimePeriod]string{
	PeriodMidnight:  "The keep is cloaked in darkness; only the watchfires burn.",
	PeriodLateNight: "The night presses close over the fields, silent and still.",
	PeriodDawn:      "A pale blush edges the hills as the cocks crow.",
	PeriodMorning:   "Morning light floods the market square.",
	PeriodAfternoon: "The sun hangs high over the tilled strips.",
	PeriodDusk:      "The sky burns orange as the gates are barred.",
	PeriodEvening:   "Smoke rises from hearths as the first stars appear.",
	PeriodNight:     "Stars wheel above the sleeping village.",
}

var skyByWeather = map[Weather]string{
	Clear: "",
	Rain:  "A steady rain turns the lanes to mud.",
	Storm: "Thunder rolls and the wind lashes the thatch.",
	Snow:  "Snow drifts against the palisade.",
	Fog:   "A thick fog hides the far fields.",
}

// Describe returns a sentence or two setting the scene for the current
// hour and weather.
//
// Postcondition: Returns a non-empty string.
func (w *World) Describe() string {
	s := skyByPeriod[w.Hour().Period()]
	if extra := skyByWeather[w.Weather]; extra != "" {
		s += " " + extra
	}
	return s
}
