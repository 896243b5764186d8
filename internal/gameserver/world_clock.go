package gameserver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/fiefdom/internal/game/records"
	"github.com/cory-johannsen/fiefdom/internal/game/world"
	"github.com/cory-johannsen/fiefdom/internal/observability"
	"github.com/cory-johannsen/fiefdom/internal/storage"
)

// Tick describes one room's world after the clock advanced it.
type Tick struct {
	Room           string
	GameTick       int64
	Hour           world.GameHour
	Season         world.Season
	Weather        world.Weather
	WeatherChanged bool
	SeasonChanged  bool
	// Description sets the scene; see world.World.Describe.
	Description string
}

// WorldClock advances the stored World of each configured room once per
// interval and notifies subscribers.
//
// Invariant: each room's GameTick increases by exactly one per successful Tick.
type WorldClock struct {
	store      storage.Store
	roller     world.Roller
	rooms      []string
	interval   time.Duration
	maxRetries int
	logger     *zap.Logger

	mu          sync.Mutex
	subscribers map[chan<- Tick]struct{}
}

// NewWorldClock creates a stopped WorldClock.
//
// Precondition: store and roller must be non-nil; interval > 0.
func NewWorldClock(store storage.Store, roller world.Roller, rooms []string, interval time.Duration, maxRetries int, logger *zap.Logger) *WorldClock {
	if interval <= 0 {
		panic("gameserver.NewWorldClock: interval must be > 0")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorldClock{
		store:       store,
		roller:      roller,
		rooms:       rooms,
		interval:    interval,
		maxRetries:  maxRetries,
		logger:      logger,
		subscribers: make(map[chan<- Tick]struct{}),
	}
}

// Subscribe registers ch to receive every Tick. Full channels drop ticks.
//
// Precondition: ch must not be nil.
func (c *WorldClock) Subscribe(ch chan<- Tick) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribers[ch] = struct{}{}
}

// Unsubscribe removes ch.
func (c *WorldClock) Unsubscribe(ch chan<- Tick) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subscribers, ch)
}

// Tick advances every room once. A room without a stored World starts from
// world.New. Rooms fail independently; the joined error names each.
func (c *WorldClock) Tick(ctx context.Context) error {
	var errs []error
	for _, room := range c.rooms {
		t, err := c.advance(ctx, room)
		if err != nil {
			errs = append(errs, fmt.Errorf("room %s: %w", room, err))
			continue
		}
		if t.WeatherChanged || t.SeasonChanged {
			observability.ForRoom(c.logger, room).Info("world changed",
				zap.Int64("tick", t.GameTick),
				zap.String("season", string(t.Season)),
				zap.String("weather", string(t.Weather)),
				zap.String("description", t.Description),
			)
		}
		c.publish(t)
	}
	return errors.Join(errs...)
}

func (c *WorldClock) advance(ctx context.Context, room string) (Tick, error) {
	t := Tick{Room: room}
	err := storage.CompareAndSwap(ctx, c.store, records.World(room), c.maxRetries, func(w *world.World, _ bool) (bool, error) {
		t.WeatherChanged, t.SeasonChanged = w.Advance(c.roller)
		t.GameTick = w.GameTick
		t.Hour = w.Hour()
		t.Season = w.Season
		t.Weather = w.Weather
		t.Description = w.Describe()
		return true, nil
	})
	return t, err
}

func (c *WorldClock) publish(t Tick) {
	c.mu.Lock()
	subs := make([]chan<- Tick, 0, len(c.subscribers))
	for ch := range c.subscribers {
		subs = append(subs, ch)
	}
	c.mu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- t:
		default:
		}
	}
}

// Start runs Tick every interval until ctx is cancelled or stop is called.
// Calling stop is idempotent.
func (c *WorldClock) Start(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := c.Tick(ctx); err != nil && ctx.Err() == nil {
					c.logger.Error("world tick failed", zap.Error(err))
				}
			}
		}
	}()
	return cancel
}
