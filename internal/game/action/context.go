package action

import (
	"fmt"
	"time"

	"github.com/cory-johannsen/fiefdom/internal/game/actor"
	"github.com/cory-johannsen/fiefdom/internal/game/cost"
	"github.com/cory-johannsen/fiefdom/internal/game/market"
	"github.com/cory-johannsen/fiefdom/internal/game/progression"
	"github.com/cory-johannsen/fiefdom/internal/game/records"
	"github.com/cory-johannsen/fiefdom/internal/game/world"
	"github.com/cory-johannsen/fiefdom/internal/storage"
)

// Context is the exclusive mutation scope handed to a handler. All reads of
// shared records go through it so they join the transaction's version check,
// and everything loaded through it is written back on commit.
type Context struct {
	Room    string
	Now     time.Time
	Actor   *actor.Actor
	Request Request
	Result  *LocalResult

	engine *Engine
	tx     *storage.Tx

	// snapshot is the world read outside the transaction for cost modulation.
	snapshot *world.World
	world    *world.World
	regions  map[string]*world.Region
	market   *market.Market
	trades   *market.TradeBook
	players  map[string]*actor.Actor
}

func newContext(e *Engine, tx *storage.Tx, room string, now time.Time, a *actor.Actor, req Request, snapshot *world.World) *Context {
	return &Context{
		Room:     room,
		Now:      now,
		Actor:    a,
		Request:  req,
		Result:   newResult(),
		engine:   e,
		tx:       tx,
		snapshot: snapshot,
		regions:  map[string]*world.Region{},
		players:  map[string]*actor.Actor{},
	}
}

// Decode decodes the request payload into p.
func (c *Context) Decode(p any) error {
	if err := c.Request.Decode(p); err != nil {
		return rejectf("Invalid %s request", c.Request.Kind)
	}
	return nil
}

// TrackXP credits skill experience, boosted by the settlement building
// linked to skill.
func (c *Context) TrackXP(skill actor.Skill, amount float64) progression.Gain {
	g := progression.TrackXP(c.Actor, skill, amount, c.snapshot.XPBoost(skill))
	c.Result.XP[skill] += g.Amount
	return g
}

// DamageTool wears the item in slot by n. An item reaching zero durability
// is destroyed and DamageTool reports true.
func (c *Context) DamageTool(slot actor.Slot, n int) bool {
	it := c.Actor.Equipment[slot]
	if it == nil || n <= 0 {
		return false
	}
	it.Durability -= n
	c.Result.Durability[slot] -= n
	if it.Durability > 0 {
		return false
	}
	delete(c.Actor.Equipment, slot)
	c.event("%s broke", it.Kind)
	return true
}

// Give credits n of res to the acting player and records the yield.
func (c *Context) Give(res actor.Resource, n int) {
	if n <= 0 {
		return
	}
	c.Actor.Add(res, n)
	c.Result.Yields[res] += n
}

// Take debits n of res from the acting player and records the consumption.
// An insufficient balance rejects the action.
func (c *Context) Take(res actor.Resource, n int) error {
	if n <= 0 {
		return nil
	}
	if have := c.Actor.Quantity(res); have < n {
		return rejectf("%s", cost.Shortfall{Resource: res, Need: n, Have: have}.Message())
	}
	if err := c.Actor.Spend(res, n); err != nil {
		return err
	}
	c.Result.Consumed[res] += n
	return nil
}

// World loads the room's world for update.
func (c *Context) World() (*world.World, error) {
	if c.world != nil {
		return c.world, nil
	}
	w := world.New()
	if _, err := c.tx.Get(records.World(c.Room), w); err != nil {
		return nil, err
	}
	w.EnsureDefaults()
	c.world = w
	return w, nil
}

// Region loads a region for update. Unknown regions reject the action.
func (c *Context) Region(id string) (*world.Region, error) {
	if r, ok := c.regions[id]; ok {
		return r, nil
	}
	var r world.Region
	ok, err := c.tx.Get(records.Region(c.Room, id), &r)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, rejectf("There is no region called %s", id)
	}
	c.regions[id] = &r
	return &r, nil
}

// HomeRegion loads the acting player's own region.
func (c *Context) HomeRegion() (*world.Region, error) {
	if c.Actor.RegionID == "" {
		return nil, rejectf("You do not belong to any region")
	}
	return c.Region(c.Actor.RegionID)
}

// Market loads the room's market for update.
func (c *Context) Market() (*market.Market, error) {
	if c.market != nil {
		return c.market, nil
	}
	m := market.New()
	if _, err := c.tx.Get(records.Market(c.Room), m); err != nil {
		return nil, err
	}
	m.EnsureDefaults()
	c.market = m
	return m, nil
}

// Trades loads the room's trade book for update.
func (c *Context) Trades() (*market.TradeBook, error) {
	if c.trades != nil {
		return c.trades, nil
	}
	b := market.NewTradeBook()
	if _, err := c.tx.Get(records.Trades(c.Room), b); err != nil {
		return nil, err
	}
	b.EnsureDefaults()
	c.trades = b
	return b, nil
}

// Player loads another player for update. The acting player is returned as
// itself. Missing players report false.
func (c *Context) Player(id string) (*actor.Actor, bool, error) {
	if id == c.Actor.ID {
		return c.Actor, true, nil
	}
	if p, ok := c.players[id]; ok {
		return p, true, nil
	}
	var p actor.Actor
	ok, err := c.tx.Get(records.Player(c.Room, id), &p)
	if err != nil || !ok {
		return nil, false, err
	}
	p.EnsureDefaults(c.Now)
	c.players[id] = &p
	return &p, true, nil
}

func (c *Context) event(format string, args ...any) {
	c.Result.Events = append(c.Result.Events, fmt.Sprintf(format, args...))
}

func (c *Context) succeed(format string, args ...any) error {
	c.Result.Message = fmt.Sprintf(format, args...)
	return nil
}

// flush stages every record loaded through c, and the acting player.
func (c *Context) flush() error {
	if err := c.tx.Put(records.Player(c.Room, c.Actor.ID), c.Actor); err != nil {
		return err
	}
	if c.world != nil {
		if err := c.tx.Put(records.World(c.Room), c.world); err != nil {
			return err
		}
	}
	for id, r := range c.regions {
		if err := c.tx.Put(records.Region(c.Room, id), r); err != nil {
			return err
		}
	}
	if c.market != nil {
		if err := c.tx.Put(records.Market(c.Room), c.market); err != nil {
			return err
		}
	}
	if c.trades != nil {
		if err := c.tx.Put(records.Trades(c.Room), c.trades); err != nil {
			return err
		}
	}
	for id, p := range c.players {
		if err := c.tx.Put(records.Player(c.Room, id), p); err != nil {
			return err
		}
	}
	return nil
}
