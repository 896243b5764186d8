// Package records names the documents the engine reads and writes in the
// shared store, and defines the small denormalized records kept beside them.
package records

import (
	"fmt"
	"time"

	"github.com/cory-johannsen/fiefdom/internal/game/actor"
)

func room(roomID string) string { return "rooms/" + roomID }

// Player is the key of a player's Actor.
func Player(roomID, playerID string) string { return room(roomID) + "/players/" + playerID }

// World is the key of a room's World.
func World(roomID string) string { return room(roomID) + "/world" }

// Region is the key of one Region.
func Region(roomID, regionID string) string { return room(roomID) + "/regions/" + regionID }

// Market is the key of a room's Market.
func Market(roomID string) string { return room(roomID) + "/market" }

// Trades is the key of a room's TradeBook.
func Trades(roomID string) string { return room(roomID) + "/trades" }

// ProfileKey is the key of a player's public Profile.
func ProfileKey(roomID, playerID string) string { return room(roomID) + "/profiles/" + playerID }

// Retired is the key of one Retirement.
func Retired(roomID, playerID string, at time.Time) string {
	return fmt.Sprintf("%s/retired/%s/%d", room(roomID), playerID, at.Unix())
}

// Profile is the public view of a player, mirrored after commit.
type Profile struct {
	Name     string     `json:"name"`
	Role     actor.Role `json:"role"`
	Level    int        `json:"level"`
	RegionID string     `json:"region"`
}

// ProfileOf derives the public view of a.
func ProfileOf(a *actor.Actor) Profile {
	return Profile{Name: a.Name, Role: a.Role, Level: a.Status.Level, RegionID: a.RegionID}
}

// Retirement is the permanent record of a retired character.
type Retirement struct {
	PlayerID  string       `json:"playerId"`
	RetiredAt time.Time    `json:"retiredAt"`
	Snapshot  *actor.Actor `json:"snapshot"`
}
