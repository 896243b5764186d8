// Package promotion hands a region to the winner of a siege.
package promotion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/fiefdom/internal/game/actor"
	"github.com/cory-johannsen/fiefdom/internal/game/progression"
	"github.com/cory-johannsen/fiefdom/internal/game/records"
	"github.com/cory-johannsen/fiefdom/internal/game/world"
	"github.com/cory-johannsen/fiefdom/internal/storage"
)

// CrownLegitimacy is granted to a newly crowned ruler.
const CrownLegitimacy = 100

var (
	// ErrUnknownRegion is returned when the contested region does not exist.
	ErrUnknownRegion = errors.New("unknown region")
	// ErrUnknownPlayer is returned when the winner has no player record.
	ErrUnknownPlayer = errors.New("unknown player")
)

// Promotion reports what Promote changed.
type Promotion struct {
	RegionID  string
	WinnerID  string
	DeposedID string
	// Vacated is the region the winner ruled before, left without a ruler.
	Vacated string
	// Noop is set when the winner already ruled the region.
	Noop bool
}

// Pipeline moves the ruler role between players.
type Pipeline struct {
	store      storage.Store
	maxRetries int
	clock      func() time.Time
	logger     *zap.Logger
}

// New creates a Pipeline.
//
// Precondition: store must be non-nil.
func New(store storage.Store, maxRetries int, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{store: store, maxRetries: maxRetries, clock: time.Now, logger: logger}
}

// Promote demotes the region's current ruler to the base role with zero
// legitimacy, crowns winnerID with CrownLegitimacy and reassigns them to the
// region, records the new ruler on the region, and mirrors both players'
// public profiles. Everything commits in one transaction.
//
// Postcondition: on success region.RulerID == winnerID and the winner holds actor.RulerRole.
func (p *Pipeline) Promote(ctx context.Context, roomID, regionID, winnerID string) (Promotion, error) {
	var out Promotion
	err := storage.Run(ctx, p.store, p.maxRetries, nil, func(tx *storage.Tx) error {
		out = Promotion{RegionID: regionID, WinnerID: winnerID}
		now := p.clock()

		var region world.Region
		ok, err := tx.Get(records.Region(roomID, regionID), &region)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("promoting in %s: %w", regionID, ErrUnknownRegion)
		}
		if region.RulerID == winnerID {
			out.Noop = true
			return nil
		}

		winner, err := loadPlayer(tx, roomID, winnerID, now)
		if err != nil {
			return err
		}
		if winner == nil {
			return fmt.Errorf("promoting %s: %w", winnerID, ErrUnknownPlayer)
		}

		if region.RulerID != "" {
			prior, err := loadPlayer(tx, roomID, region.RulerID, now)
			if err != nil {
				return err
			}
			if prior != nil {
				depose(prior)
				if err := putPlayer(tx, roomID, prior); err != nil {
					return err
				}
			}
			out.DeposedID = region.RulerID
		}

		if winner.Role == actor.RulerRole && winner.RegionID != "" && winner.RegionID != regionID {
			if err := vacate(tx, roomID, winner.RegionID, winnerID); err != nil {
				return err
			}
			out.Vacated = winner.RegionID
		}
		crown(winner, regionID)
		region.RulerID = winnerID
		if err := tx.Put(records.Region(roomID, regionID), &region); err != nil {
			return err
		}
		return putPlayer(tx, roomID, winner)
	})
	if err != nil {
		return Promotion{}, err
	}
	if !out.Noop {
		p.logger.Info("region changed hands",
			zap.String("room", roomID),
			zap.String("region", regionID),
			zap.String("winner", winnerID),
			zap.String("deposed", out.DeposedID),
		)
	}
	return out, nil
}

func depose(a *actor.Actor) {
	progression.SetRole(a, actor.BaseRole)
	a.Status.Legitimacy = 0
}

func crown(a *actor.Actor, regionID string) {
	progression.SetRole(a, actor.RulerRole)
	a.Status.Legitimacy = CrownLegitimacy
	a.RegionID = regionID
}

// vacate clears rulerID from a region they no longer hold.
func vacate(tx *storage.Tx, roomID, regionID, rulerID string) error {
	var r world.Region
	ok, err := tx.Get(records.Region(roomID, regionID), &r)
	if err != nil || !ok || r.RulerID != rulerID {
		return err
	}
	r.RulerID = ""
	return tx.Put(records.Region(roomID, regionID), &r)
}

func loadPlayer(tx *storage.Tx, roomID, id string, now time.Time) (*actor.Actor, error) {
	var a actor.Actor
	ok, err := tx.Get(records.Player(roomID, id), &a)
	if err != nil || !ok {
		return nil, err
	}
	a.EnsureDefaults(now)
	return &a, nil
}

// putPlayer stages the player and its public profile.
func putPlayer(tx *storage.Tx, roomID string, a *actor.Actor) error {
	if err := tx.Put(records.Player(roomID, a.ID), a); err != nil {
		return err
	}
	return tx.Put(records.ProfileKey(roomID, a.ID), records.ProfileOf(a))
}
