package gameserver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/fiefdom/internal/actionlog"
	"github.com/cory-johannsen/fiefdom/internal/config"
	"github.com/cory-johannsen/fiefdom/internal/game/action"
	"github.com/cory-johannsen/fiefdom/internal/game/chance"
	"github.com/cory-johannsen/fiefdom/internal/game/cost"
	"github.com/cory-johannsen/fiefdom/internal/game/promotion"
	"github.com/cory-johannsen/fiefdom/internal/game/world"
	"github.com/cory-johannsen/fiefdom/internal/observability"
	"github.com/cory-johannsen/fiefdom/internal/scripting"
	"github.com/cory-johannsen/fiefdom/internal/storage"
)

// Realm is every in-process component behind the realm service.
type Realm struct {
	Engine   *action.Engine
	Clock    *WorldClock
	Laws     *scripting.LawBook
	Promoter *promotion.Pipeline
	Archive  *actionlog.Writer
}

// NewRealm loads content, seeds configured rooms and wires the engine.
//
// Precondition: store and logger must be non-nil.
// Postcondition: on success the caller must Close the Realm.
func NewRealm(ctx context.Context, cfg config.Config, store storage.Store, logger *zap.Logger) (*Realm, error) {
	start := time.Now()
	table := cost.DefaultTable()
	if cfg.Content.CostsFile != "" {
		t, err := cost.LoadTableFromFile(cfg.Content.CostsFile)
		if err != nil {
			return nil, err
		}
		table = t
	}

	laws := scripting.NewLawBook(cfg.Content.ScriptInstructionLimit, logger.Named("laws"))
	if cfg.Content.LawsDir != "" {
		if err := laws.LoadDir(cfg.Content.LawsDir); err != nil {
			laws.Close()
			return nil, fmt.Errorf("loading laws: %w", err)
		}
	}

	if cfg.Content.RealmFile != "" {
		realm, err := world.LoadRealmFromFile(cfg.Content.RealmFile)
		if err != nil {
			laws.Close()
			return nil, err
		}
		for _, room := range cfg.World.Rooms {
			created, err := SeedRealm(ctx, store, room, realm, cfg.Engine.MaxCASRetries)
			if err != nil {
				laws.Close()
				return nil, fmt.Errorf("seeding room %s: %w", room, err)
			}
			if len(created) > 0 {
				observability.ForRoom(logger, room).Info("seeded regions", zap.Strings("regions", created))
			}
		}
	}

	metrics, err := observability.NewActionMetrics(nil)
	if err != nil {
		laws.Close()
		return nil, err
	}

	r := &Realm{
		Laws:     laws,
		Promoter: promotion.New(store, cfg.Engine.MaxCASRetries, logger.Named("promotion")),
	}
	var archive Archive
	if cfg.ActionLog.Dir != "" {
		r.Archive = actionlog.NewWriter(cfg.ActionLog.Dir, "actions")
		archive = r.Archive
	}
	roller := chance.NewRoller(chance.NewCryptoSource(), logger.Named("chance"))

	r.Engine, err = action.NewEngine(action.Deps{
		Store:   store,
		Table:   table,
		Laws:    laws,
		Roller:  roller,
		Logger:  logger.Named("engine"),
		Metrics: metrics,
		Effects: NewEffects(store, r.Promoter, archive, logger.Named("effects")),
	}, action.Options{
		MaxRetries:    cfg.Engine.MaxCASRetries,
		JackpotChance: cfg.Engine.JackpotChance,
		RegenCap:      cfg.Engine.RegenCap,
	})
	if err != nil {
		_ = r.Close()
		return nil, err
	}
	if cfg.World.TickInterval > 0 {
		r.Clock = NewWorldClock(store, roller, cfg.World.Rooms, cfg.World.TickInterval, cfg.Engine.MaxCASRetries, logger.Named("clock"))
	}

	logger.Info("realm ready",
		zap.Int("cost_entries", len(table)),
		zap.Int("laws", len(laws.Laws())),
		zap.Strings("rooms", cfg.World.Rooms),
		zap.Duration("elapsed", time.Since(start)),
	)
	return r, nil
}

// Close releases the law VM and flushes the archive.
func (r *Realm) Close() error {
	var errs []error
	if r.Archive != nil {
		errs = append(errs, r.Archive.Close())
	}
	if r.Laws != nil {
		r.Laws.Close()
	}
	return errors.Join(errs...)
}
