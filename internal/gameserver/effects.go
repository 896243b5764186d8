package gameserver

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/fiefdom/internal/actionlog"
	"github.com/cory-johannsen/fiefdom/internal/game/action"
	"github.com/cory-johannsen/fiefdom/internal/game/actor"
	"github.com/cory-johannsen/fiefdom/internal/game/promotion"
	"github.com/cory-johannsen/fiefdom/internal/game/records"
	"github.com/cory-johannsen/fiefdom/internal/storage"
)

// Archive receives every committed action; satisfied by *actionlog.Writer.
type Archive interface {
	Append(e actionlog.Entry) error
}

// Promoter hands a region to a siege winner; satisfied by *promotion.Pipeline.
type Promoter interface {
	Promote(ctx context.Context, roomID, regionID, winnerID string) (promotion.Promotion, error)
}

// DefaultEffectsTimeout bounds the post-commit work of one action.
const DefaultEffectsTimeout = 5 * time.Second

// Effects runs the post-commit work of the engine. Every step is best
// effort: failures are logged and never change the outcome already returned.
type Effects struct {
	store    storage.Store
	promoter Promoter
	archive  Archive
	timeout  time.Duration
	logger   *zap.Logger
}

// NewEffects creates Effects. promoter and archive may be nil.
//
// Precondition: store must be non-nil.
func NewEffects(store storage.Store, promoter Promoter, archive Archive, logger *zap.Logger) *Effects {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Effects{store: store, promoter: promoter, archive: archive, timeout: DefaultEffectsTimeout, logger: logger}
}

// AfterCommit implements action.Effects. The work is detached from ctx's
// cancellation, since the action has already committed, and bounded by its
// own timeout.
func (e *Effects) AfterCommit(ctx context.Context, c action.Committed) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.timeout)
	defer cancel()

	log := e.logger.With(
		zap.String("room", c.Room),
		zap.String("player", c.PlayerID),
		zap.String("action", string(c.Kind)),
	)
	r := c.Result
	if !r.Success {
		log.Warn("action failed", zap.String("message", r.Message))
	}

	if snap := r.CharacterSnapshot; snap != nil {
		rec := records.Retirement{PlayerID: c.PlayerID, RetiredAt: c.At, Snapshot: snap}
		if err := storage.Save(ctx, e.store, records.Retired(c.Room, c.PlayerID, c.At), rec); err != nil {
			log.Error("recording retirement", zap.Error(err))
		}
	}

	if r.NewLevel > 0 || r.RoleChanged != "" || r.CharacterSnapshot != nil {
		if err := storage.Save(ctx, e.store, records.ProfileKey(c.Room, c.PlayerID), records.ProfileOf(c.Actor)); err != nil {
			log.Error("mirroring profile", zap.Error(err))
		}
	}

	if r.SiegeWinnerID != "" && e.promoter != nil {
		p, err := e.promoter.Promote(ctx, c.Room, r.TargetRegionID, r.SiegeWinnerID)
		if err != nil {
			log.Error("promoting siege winner",
				zap.String("region", r.TargetRegionID),
				zap.String("winner", r.SiegeWinnerID),
				zap.Error(err),
			)
		} else if !p.Noop {
			log.Info("siege winner crowned",
				zap.String("region", p.RegionID),
				zap.String("winner", p.WinnerID),
				zap.String("deposed", p.DeposedID),
			)
		}
	}

	if e.archive != nil {
		entry := actionlog.Entry{
			At:       c.At,
			Room:     c.Room,
			PlayerID: c.PlayerID,
			Kind:     string(c.Kind),
			Success:  r.Success,
			Message:  r.Message,
			Yields:   resourceCounts(r.Yields),
			Consumed: resourceCounts(r.Consumed),
			Stamina:  r.StaminaSpent,
			Events:   r.Events,
		}
		if err := e.archive.Append(entry); err != nil {
			log.Error("archiving action", zap.Error(err))
		}
	}
}

func resourceCounts(m map[actor.Resource]int) map[string]int {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[string(k)] = v
	}
	return out
}
