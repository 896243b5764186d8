package world

import "fmt"

// TimePeriod is a named phase of the game day.
type TimePeriod string

const (
	PeriodMidnight  TimePeriod = "Midnight"
	PeriodLateNight TimePeriod = "Late Night"
	PeriodDawn      TimePeriod = "Dawn"
	PeriodMorning   TimePeriod = "Morning"
	PeriodAfternoon TimePeriod = "Afternoon"
	PeriodDusk      TimePeriod = "Dusk"
	PeriodEvening   TimePeriod = "Evening"
	PeriodNight     TimePeriod = "Night"
)

// GameHour is a game-clock hour in [0, 23].
type GameHour int

// Period returns the named time period for this hour.
//
// Precondition: h is in [0, 23].
// Postcondition: Returns one of the eight TimePeriod constants.
func (h GameHour) Period() TimePeriod {
	switch {
	case h == 0:
		return PeriodMidnight
	case h >= 1 && h <= 4:
		return PeriodLateNight
	case h >= 5 && h <= 6:
		return PeriodDawn
	case h >= 7 && h <= 11:
		return PeriodMorning
	case h >= 12 && h <= 16:
		return PeriodAfternoon
	case h >= 17 && h <= 18:
		return PeriodDusk
	case h >= 19 && h <= 21:
		return PeriodEvening
	default: // 22-23
		return PeriodNight
	}
}

// IsNight reports whether the hour falls between 22:00 and 04:59.
func (h GameHour) IsNight() bool {
	switch h.Period() {
	case PeriodNight, PeriodMidnight, PeriodLateNight:
		return true
	}
	return false
}

// String returns the hour in "HH:00" format.
func (h GameHour) String() string {
	return fmt.Sprintf("%02d:00", int(h))
}
