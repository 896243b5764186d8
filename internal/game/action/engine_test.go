package action

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/fiefdom/internal/game/actor"
	"github.com/cory-johannsen/fiefdom/internal/game/chance"
	"github.com/cory-johannsen/fiefdom/internal/game/cost"
	"github.com/cory-johannsen/fiefdom/internal/game/market"
	"github.com/cory-johannsen/fiefdom/internal/game/records"
	"github.com/cory-johannsen/fiefdom/internal/game/world"
	"github.com/cory-johannsen/fiefdom/internal/storage"
	"github.com/cory-johannsen/fiefdom/internal/storage/memory"
)

const room = "test"

// epoch is the fixed engine clock; the seeded world sits at game hour 12.
var epoch = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

type fakeLaws map[string]func(kind string, stamina int) int

func (f fakeLaws) Has(id string) bool {
	_, ok := f[id]
	return ok
}

func (f fakeLaws) AdjustStamina(law, kind string, stamina int) (int, error) {
	if fn, ok := f[law]; ok && fn != nil {
		return fn(kind, stamina), nil
	}
	return stamina, nil
}

type recordingEffects struct {
	mu   sync.Mutex
	seen []Committed
}

func (r *recordingEffects) AfterCommit(_ context.Context, c Committed) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, c)
}

type fixture struct {
	t       require.TestingT
	store   *memory.Store
	engine  *Engine
	effects *recordingEffects
	now     time.Time
}

type option func(*Deps, *Options)

func withSource(src chance.Source) option {
	return func(d *Deps, _ *Options) { d.Roller = chance.NewRoller(src, nil) }
}

func withLaws(l Laws) option {
	return func(d *Deps, _ *Options) { d.Laws = l }
}

func withJackpot(p float64) option {
	return func(_ *Deps, o *Options) { o.JackpotChance = p }
}

func withRetries(n int) option {
	return func(_ *Deps, o *Options) { o.MaxRetries = n }
}

func withLogger(l *zap.Logger) option {
	return func(d *Deps, _ *Options) { d.Logger = l }
}

func newFixture(t require.TestingT, opts ...option) *fixture {
	f := &fixture{t: t, store: memory.New(), effects: &recordingEffects{}, now: epoch}
	d := Deps{
		Store:   f.store,
		Roller:  chance.NewRoller(chance.NewSequenceSource(chance.Never), nil),
		Clock:   func() time.Time { return f.now },
		Effects: f.effects,
	}
	var o Options
	for _, opt := range opts {
		opt(&d, &o)
	}
	e, err := NewEngine(d, o)
	require.NoError(t, err)
	f.engine = e

	w := world.New()
	w.GameTick = 12
	f.save(records.World(room), w)
	return f
}

func (f *fixture) save(key string, v any) {
	require.NoError(f.t, storage.Save(context.Background(), f.store, key, v))
}

func (f *fixture) player(id string, mutate func(a *actor.Actor)) *actor.Actor {
	a := actor.New(id, id, f.now)
	if mutate != nil {
		mutate(a)
	}
	f.save(records.Player(room, id), a)
	return a
}

func (f *fixture) load(id string) *actor.Actor {
	var a actor.Actor
	ok, err := storage.Load(context.Background(), f.store, records.Player(room, id), &a)
	require.NoError(f.t, err)
	require.True(f.t, ok, "player %s missing", id)
	return &a
}

func (f *fixture) region(id string) *world.Region {
	var r world.Region
	ok, err := storage.Load(context.Background(), f.store, records.Region(room, id), &r)
	require.NoError(f.t, err)
	require.True(f.t, ok)
	return &r
}

func (f *fixture) version(key string) int64 {
	doc, err := f.store.Get(context.Background(), key)
	if err != nil {
		return 0
	}
	return doc.Version
}

func (f *fixture) resolve(playerID string, raw any) Outcome {
	return f.engine.Resolve(context.Background(), room, playerID, raw)
}

func act(kind Kind, payload map[string]any) map[string]any {
	m := map[string]any{"type": string(kind)}
	for k, v := range payload {
		m[k] = v
	}
	return m
}

func TestEveryKindHasHandlerAndCost(t *testing.T) {
	table := cost.DefaultTable()
	for _, k := range AllKinds {
		_, ok := handlerFor(k)
		assert.True(t, ok, "%s has no handler", k)
		_, err := table.Lookup(string(k))
		assert.NoError(t, err, "%s has no cost entry", k)
	}
	assert.Len(t, table, len(AllKinds))
}

func TestResolve_UnknownAction(t *testing.T) {
	f := newFixture(t)
	out := f.resolve("alice", "DANCE")
	assert.False(t, out.Success)
	assert.Equal(t, "Unknown action", out.Error)
	assert.Zero(t, f.version(records.Player(room, "alice")))
	assert.Empty(t, f.effects.seen)
}

func TestResolve_InvalidPayload(t *testing.T) {
	f := newFixture(t)
	f.player("alice", nil)
	before := f.version(records.Player(room, "alice"))

	out := f.resolve("alice", act(Buy, map[string]any{"resource": "dragons", "quantity": 1}))
	assert.False(t, out.Success)
	assert.Equal(t, "Invalid BUY request", out.Error)
	assert.Equal(t, before, f.version(records.Player(room, "alice")))
}

func TestResolve_FirstActionCreatesPlayer(t *testing.T) {
	f := newFixture(t)
	out := f.resolve("newcomer", "FORAGE")
	require.True(t, out.Success, out.Error)

	a := f.load("newcomer")
	assert.Equal(t, actor.BaseRole, a.Role)
	assert.Equal(t, actor.MaxStamina-5, a.Status.Stamina)
	assert.Equal(t, 1, a.Quantity(actor.Herbs))
}

func TestResolve_ChopWood(t *testing.T) {
	f := newFixture(t)
	f.player("alice", nil)

	out := f.resolve("alice", "CHOP_WOOD")
	require.True(t, out.Success, out.Error)
	assert.Equal(t, 3, out.Data.Yields[actor.Wood])
	assert.Equal(t, 8, out.Data.StaminaSpent)
	assert.Equal(t, -1, out.Data.Durability[actor.SlotTool])
	assert.InDelta(t, GatherXP, out.Data.XP[actor.Woodcutting], 1e-9)

	a := f.load("alice")
	assert.Equal(t, 3, a.Quantity(actor.Wood))
	assert.Equal(t, actor.MaxStamina-8, a.Status.Stamina)
	assert.Equal(t, 49, a.Equipment[actor.SlotTool].Durability)
	assert.Equal(t, epoch, a.LastActive.UTC())

	require.Len(t, f.effects.seen, 1)
	assert.Equal(t, ChopWood, f.effects.seen[0].Kind)
	assert.Equal(t, 3, f.effects.seen[0].Actor.Quantity(actor.Wood))
}

func TestResolve_InsufficientStaminaLeavesPlayerUntouched(t *testing.T) {
	f := newFixture(t)
	f.player("alice", func(a *actor.Actor) { a.Status.Stamina = 3 })
	before, err := f.store.Get(context.Background(), records.Player(room, "alice"))
	require.NoError(t, err)

	out := f.resolve("alice", "CHOP_WOOD")
	assert.False(t, out.Success)
	assert.Equal(t, "Not enough stamina (need 8, have 3)", out.Error)

	after, err := f.store.Get(context.Background(), records.Player(room, "alice"))
	require.NoError(t, err)
	assert.Equal(t, before.Version, after.Version)
	assert.Equal(t, before.Data, after.Data)
	assert.Empty(t, f.effects.seen)
}

func TestResolve_InsufficientResourceNamesIt(t *testing.T) {
	f := newFixture(t)
	f.player("alice", nil)
	out := f.resolve("alice", "MILL_FLOUR")
	assert.False(t, out.Success)
	assert.Equal(t, "Not enough grain (need 3, have 0)", out.Error)
}

func TestResolve_HandlerRejectionRefundsCost(t *testing.T) {
	f := newFixture(t)
	f.player("alice", nil)
	before := f.version(records.Player(room, "alice"))

	out := f.resolve("alice", act(Sell, map[string]any{"resource": "wood", "quantity": 5}))
	assert.False(t, out.Success)
	assert.Equal(t, "Not enough wood (need 5, have 0)", out.Error)
	assert.Equal(t, before, f.version(records.Player(room, "alice")))
	assert.Equal(t, actor.MaxStamina, f.load("alice").Status.Stamina)
}

func TestResolve_ToolBreakageKeepsCost(t *testing.T) {
	f := newFixture(t)
	f.player("alice", func(a *actor.Actor) { a.Equipment[actor.SlotTool].Durability = 1 })

	out := f.resolve("alice", "CHOP_WOOD")
	assert.False(t, out.Success)
	assert.Equal(t, "Your axe broke", out.Error)
	require.NotNil(t, out.Data)
	assert.Equal(t, 8, out.Data.StaminaSpent)
	assert.Zero(t, out.Data.Yields[actor.Wood])

	a := f.load("alice")
	assert.Equal(t, actor.MaxStamina-8, a.Status.Stamina)
	assert.Nil(t, a.Equipment[actor.SlotTool])
	assert.Zero(t, a.Quantity(actor.Wood))
	require.Len(t, f.effects.seen, 1)
	assert.False(t, f.effects.seen[0].Result.Success)
}

func TestResolve_Jackpot(t *testing.T) {
	f := newFixture(t, withSource(chance.NewSequenceSource(chance.Always)), withJackpot(1))
	f.player("alice", nil)

	out := f.resolve("alice", "CHOP_WOOD")
	require.True(t, out.Success, out.Error)
	assert.True(t, out.Data.Jackpot)
	assert.Equal(t, JackpotGold, out.Data.Yields[actor.Gold])
	assert.Equal(t, 50+JackpotGold, f.load("alice").Quantity(actor.Gold))
}

func TestResolve_RegenReported(t *testing.T) {
	f := newFixture(t)
	f.player("alice", func(a *actor.Actor) {
		a.Status.Stamina = 50
		a.LastActive = epoch.Add(-30 * time.Minute)
	})

	out := f.resolve("alice", "REST")
	require.True(t, out.Success, out.Error)
	require.NotNil(t, out.Data.Regen)
	assert.Equal(t, 30, out.Data.Regen.Stamina)
	assert.Equal(t, 50+30+RestStamina, f.load("alice").Status.Stamina)
}

func TestResolve_RegenAccruesAcrossRapidActions(t *testing.T) {
	f := newFixture(t)
	f.save(records.Region(room, "vale"), &world.Region{ID: "vale", Name: "Vale"})
	f.player("alice", func(a *actor.Actor) {
		a.Status.Stamina = 50
		a.Upgrades[actor.UpgradeMillShare] = 1
	})

	regen := 0
	for i := 1; i <= 12; i++ {
		f.now = epoch.Add(time.Duration(i) * 50 * time.Second)
		out := f.resolve("alice", act(SiegeStatus, map[string]any{"region": "vale"}))
		require.True(t, out.Success, out.Error)
		if out.Data.Regen != nil {
			regen += out.Data.Regen.Minutes
		}
	}
	a := f.load("alice")
	assert.Equal(t, 10, regen)
	assert.Equal(t, 60, a.Status.Stamina)
	assert.Equal(t, 60, a.Quantity(actor.Gold))
	assert.Equal(t, epoch.Add(10*time.Minute), a.RegenAt.UTC())
}

func TestResolve_LevelUpReported(t *testing.T) {
	f := newFixture(t)
	f.player("alice", func(a *actor.Actor) { a.Status.XP = 95 })

	out := f.resolve("alice", "CHOP_WOOD")
	require.True(t, out.Success, out.Error)
	assert.Equal(t, 2, out.Data.NewLevel)
	assert.Equal(t, 2, f.load("alice").Status.Level)
}

func TestResolve_SwitchRoleReported(t *testing.T) {
	f := newFixture(t)
	f.player("alice", nil)

	out := f.resolve("alice", act(SwitchRole, map[string]any{"role": "MINER"}))
	require.True(t, out.Success, out.Error)
	assert.Equal(t, actor.RoleMiner, out.Data.RoleChanged)
	assert.Equal(t, 20, out.Data.Consumed[actor.Gold])

	a := f.load("alice")
	assert.Equal(t, actor.RoleMiner, a.Role)
	assert.Contains(t, a.RoleStats, actor.RolePeasant)

	out = f.resolve("alice", act(SwitchRole, map[string]any{"role": "LORD"}))
	assert.False(t, out.Success)
}

func TestResolve_RetireSnapshots(t *testing.T) {
	f := newFixture(t)
	f.player("alice", func(a *actor.Actor) {
		a.Status.XP = 300
		a.Status.Level = 3
		a.Resources[actor.Wood] = 40
	})

	out := f.resolve("alice", "RETIRE")
	require.True(t, out.Success, out.Error)
	require.NotNil(t, out.Data.CharacterSnapshot)
	assert.True(t, out.Data.CharacterSnapshot.Retired)
	assert.Equal(t, 40, out.Data.CharacterSnapshot.Quantity(actor.Wood))

	a := f.load("alice")
	assert.Equal(t, 1, a.Status.Level)
	assert.Zero(t, a.Quantity(actor.Wood))
}

func TestResolve_CropsGrowAcrossCalls(t *testing.T) {
	f := newFixture(t)
	f.player("alice", func(a *actor.Actor) { a.Resources[actor.Grain] = 2 })

	out := f.resolve("alice", "PLANT_CROP")
	require.True(t, out.Success, out.Error)

	out = f.resolve("alice", "COLLECT_HARVEST")
	assert.False(t, out.Success)
	assert.Equal(t, "Nothing is ready to harvest", out.Error)

	f.now = epoch.Add(CropGrowTime)
	out = f.resolve("alice", "COLLECT_HARVEST")
	require.True(t, out.Success, out.Error)
	assert.Equal(t, CropYield, out.Data.Yields[actor.Grain])
	a := f.load("alice")
	assert.Equal(t, 1+CropYield, a.Quantity(actor.Grain))
	assert.Empty(t, a.Processes)
}

// Scenario: BUY at basePrice 10, baseStock 100, stock 50 prices the first unit near 23.78.
func TestResolve_BuyOnTheCurve(t *testing.T) {
	f := newFixture(t)
	f.player("alice", nil)
	m := market.New()
	m.Goods[actor.Iron] = &market.Good{BasePrice: 10, BaseStock: 100, Stock: 50}
	f.save(records.Market(room), m)

	out := f.resolve("alice", act(Buy, map[string]any{"resource": "iron", "quantity": 1}))
	require.True(t, out.Success, out.Error)
	quote := out.Data.Data["quote"].(map[string]any)
	assert.InDelta(t, 23.78, quote["unitFirst"].(float64), 0.01)
	assert.Equal(t, 24, quote["total"])
	assert.Equal(t, 24, out.Data.Consumed[actor.Gold])

	a := f.load("alice")
	assert.Equal(t, 1, a.Quantity(actor.Iron))
	assert.Equal(t, 50-24, a.Quantity(actor.Gold))

	var after market.Market
	_, err := storage.Load(context.Background(), f.store, records.Market(room), &after)
	require.NoError(t, err)
	assert.Equal(t, 49, after.Goods[actor.Iron].Stock)
}

func TestResolve_SellRoundsDown(t *testing.T) {
	f := newFixture(t)
	f.player("alice", func(a *actor.Actor) { a.Resources[actor.Wood] = 10 })

	out := f.resolve("alice", act(Sell, map[string]any{"resource": "wood", "quantity": 10}))
	require.True(t, out.Success, out.Error)
	q, err := market.New().QuoteSell(actor.Wood, 10)
	require.NoError(t, err)
	assert.Equal(t, q.Total, out.Data.Yields[actor.Gold])
	assert.Equal(t, 50+q.Total, f.load("alice").Quantity(actor.Gold))
}

func TestResolve_TradeRouteMerchantOnly(t *testing.T) {
	f := newFixture(t)
	f.player("alice", func(a *actor.Actor) { a.Resources[actor.Fish] = 4 })
	f.player("bob", func(a *actor.Actor) {
		a.Role = actor.RoleMerchant
		a.Resources[actor.Fish] = 4
	})

	out := f.resolve("alice", act(TradeRoute, map[string]any{"resource": "fish", "quantity": 4}))
	assert.False(t, out.Success)

	out = f.resolve("bob", act(TradeRoute, map[string]any{"resource": "fish", "quantity": 4}))
	require.True(t, out.Success, out.Error)
	q, _ := market.New().QuoteRoute(actor.Fish, 4)
	assert.Equal(t, q.Total, out.Data.Yields[actor.Gold])
	assert.Zero(t, f.load("bob").Quantity(actor.Fish))
}

// Scenario: CONTRIBUTE 30 toward a 50-unit requirement with 20 progressed
// gives 30 and levels the building.
func TestResolve_ContributeLevelsBuilding(t *testing.T) {
	f := newFixture(t)
	w := world.New()
	w.GameTick = 12
	w.Settlement["quarry"].Progress = 20
	w.Settlement["quarry"].Contributions["bob"] = 20
	f.save(records.World(room), w)
	f.player("alice", func(a *actor.Actor) { a.Resources[actor.Wood] = 45 })

	out := f.resolve("alice", act(Contribute, map[string]any{"building": "quarry", "amount": 40}))
	require.True(t, out.Success, out.Error)
	assert.Equal(t, 30, out.Data.Data["given"])
	assert.Equal(t, 2, out.Data.Data["level"])
	assert.Equal(t, 15, f.load("alice").Quantity(actor.Wood))

	var after world.World
	_, err := storage.Load(context.Background(), f.store, records.World(room), &after)
	require.NoError(t, err)
	b := after.Settlement["quarry"]
	assert.Equal(t, 2, b.Level)
	assert.Zero(t, b.Progress)
	assert.Empty(t, b.Contributions)
}

func TestResolve_GiftIsAtomic(t *testing.T) {
	f := newFixture(t)
	f.player("alice", func(a *actor.Actor) { a.Resources[actor.Wood] = 10 })
	f.player("bob", nil)

	out := f.resolve("alice", act(Gift, map[string]any{"to": "nobody", "resource": "wood", "amount": 4}))
	assert.False(t, out.Success)
	assert.Equal(t, 10, f.load("alice").Quantity(actor.Wood))

	out = f.resolve("alice", act(Gift, map[string]any{"to": "bob", "resource": "wood", "amount": 4}))
	require.True(t, out.Success, out.Error)
	assert.Equal(t, 6, f.load("alice").Quantity(actor.Wood))
	assert.Equal(t, 4, f.load("bob").Quantity(actor.Wood))

	out = f.resolve("alice", act(Gift, map[string]any{"to": "alice", "resource": "wood", "amount": 1}))
	assert.False(t, out.Success)
}

func TestResolve_TradeEscrow(t *testing.T) {
	f := newFixture(t)
	f.player("alice", func(a *actor.Actor) { a.Resources[actor.Wood] = 10 })
	f.player("bob", func(a *actor.Actor) { a.Resources[actor.Stone] = 3 })
	f.player("carol", nil)

	out := f.resolve("alice", act(TradeOffer, map[string]any{
		"to":   "bob",
		"give": map[string]any{"wood": 10},
		"want": map[string]any{"stone": 3},
	}))
	require.True(t, out.Success, out.Error)
	offerID := out.Data.Data["offerId"].(string)
	assert.Zero(t, f.load("alice").Quantity(actor.Wood))

	out = f.resolve("carol", act(TradeAccept, map[string]any{"offerId": offerID}))
	assert.False(t, out.Success)
	assert.Equal(t, "That offer is not for you", out.Error)

	out = f.resolve("bob", act(TradeAccept, map[string]any{"offerId": offerID}))
	require.True(t, out.Success, out.Error)

	alice, bob := f.load("alice"), f.load("bob")
	assert.Equal(t, 3, alice.Quantity(actor.Stone))
	assert.Equal(t, 10, bob.Quantity(actor.Wood))
	assert.Zero(t, bob.Quantity(actor.Stone))

	out = f.resolve("bob", act(TradeAccept, map[string]any{"offerId": offerID}))
	assert.False(t, out.Success)
}

func TestResolve_TradeCancelRefunds(t *testing.T) {
	f := newFixture(t)
	f.player("alice", func(a *actor.Actor) { a.Resources[actor.Fish] = 5 })
	f.player("bob", nil)

	out := f.resolve("alice", act(TradeOffer, map[string]any{
		"give": map[string]any{"fish": 5},
		"want": map[string]any{"gold": 30},
	}))
	require.True(t, out.Success, out.Error)
	offerID := out.Data.Data["offerId"].(string)

	out = f.resolve("bob", act(TradeCancel, map[string]any{"offerId": offerID}))
	assert.False(t, out.Success)

	out = f.resolve("alice", act(TradeCancel, map[string]any{"offerId": offerID}))
	require.True(t, out.Success, out.Error)
	assert.Equal(t, 5, f.load("alice").Quantity(actor.Fish))
}

func TestResolve_UnaffordableAcceptLeavesOfferOpen(t *testing.T) {
	f := newFixture(t)
	f.player("alice", func(a *actor.Actor) { a.Resources[actor.Wood] = 2 })
	f.player("bob", nil)

	out := f.resolve("alice", act(TradeOffer, map[string]any{
		"give": map[string]any{"wood": 2},
		"want": map[string]any{"iron": 1},
	}))
	require.True(t, out.Success, out.Error)
	offerID := out.Data.Data["offerId"].(string)

	out = f.resolve("bob", act(TradeAccept, map[string]any{"offerId": offerID}))
	assert.False(t, out.Success)

	var book market.TradeBook
	_, err := storage.Load(context.Background(), f.store, records.Trades(room), &book)
	require.NoError(t, err)
	assert.Contains(t, book.Offers, offerID)
	assert.Zero(t, f.load("bob").Quantity(actor.Wood))
}

func TestResolve_LawsChangeCosts(t *testing.T) {
	laws := fakeLaws{"corvee": func(kind string, st int) int {
		if kind == string(ChopWood) {
			return st + 2
		}
		return st
	}}
	f := newFixture(t, withLaws(laws))
	f.save(records.Region(room, "vale"), &world.Region{ID: "vale", Name: "Vale", RulerID: "lord"})
	f.player("lord", func(a *actor.Actor) {
		a.Role = actor.RulerRole
		a.RegionID = "vale"
		a.Status.Legitimacy = 100
	})
	f.player("alice", nil)

	out := f.resolve("alice", act(EnactLaw, map[string]any{"law": "corvee"}))
	assert.False(t, out.Success)

	out = f.resolve("lord", act(EnactLaw, map[string]any{"law": "tithe"}))
	assert.False(t, out.Success)
	assert.Equal(t, "There is no law called tithe", out.Error)

	out = f.resolve("lord", act(EnactLaw, map[string]any{"law": "corvee"}))
	require.True(t, out.Success, out.Error)
	assert.Equal(t, 100-LawLegitimacy, f.load("lord").Status.Legitimacy)

	out = f.resolve("alice", "CHOP_WOOD")
	require.True(t, out.Success, out.Error)
	assert.Equal(t, 10, out.Data.StaminaSpent)

	out = f.resolve("lord", act(RepealLaw, map[string]any{"law": "corvee"}))
	require.True(t, out.Success, out.Error)
	out = f.resolve("alice", "CHOP_WOOD")
	require.True(t, out.Success, out.Error)
	assert.Equal(t, 8, out.Data.StaminaSpent)
}

func TestResolve_GarrisonAndWalls(t *testing.T) {
	f := newFixture(t)
	f.save(records.Region(room, "vale"), &world.Region{
		ID: "vale", Name: "Vale",
		Fortification: world.Fortification{Level: 1, HP: 950, MaxHP: 1000},
	})
	f.player("alice", func(a *actor.Actor) {
		a.RegionID = "vale"
		a.Resources[actor.Swords] = 10
		a.Resources[actor.Stone] = 5
	})

	out := f.resolve("alice", act(ReinforceGarrison, map[string]any{"resource": "swords", "amount": 10}))
	require.True(t, out.Success, out.Error)
	out = f.resolve("alice", "REPAIR_WALLS")
	require.True(t, out.Success, out.Error)

	r := f.region("vale")
	assert.Equal(t, 10, r.Garrison.Swords)
	assert.Equal(t, 1000, r.Fortification.HP)
	assert.Zero(t, f.load("alice").Quantity(actor.Swords))
}

// Scenario: an unarmed, unarmored attacker does 2 damage to a 1000 hp gate.
func TestResolve_UnarmedGateAttack(t *testing.T) {
	f := newFixture(t)
	f.save(records.Region(room, "vale"), &world.Region{
		ID: "vale", Name: "Vale", RulerID: "lord",
		Siege: &world.ActiveSiege{
			InstigatorID: "bob",
			Phase:        world.PhaseBreach,
			StartedAt:    epoch,
			GateHP:       1000,
			MaxGateHP:    1000,
		},
	})
	f.player("alice", nil)

	out := f.resolve("alice", act(AttackGate, map[string]any{"region": "vale"}))
	require.True(t, out.Success, out.Error)

	r := f.region("vale")
	require.NotNil(t, r.Siege)
	assert.Equal(t, 998, r.Siege.GateHP)
	assert.Equal(t, world.PhaseBreach, r.Siege.Phase)
	assert.Contains(t, r.Siege.Attackers, "alice")
}

func TestResolve_StartSiege(t *testing.T) {
	f := newFixture(t)
	f.save(records.Region(room, "vale"), &world.Region{
		ID: "vale", Name: "Vale", RulerID: "lord",
		Fortification: world.Fortification{Level: 2, HP: 2500, MaxHP: 2500},
	})
	f.player("alice", func(a *actor.Actor) { a.Resources[actor.Swords] = 499 })

	out := f.resolve("alice", act(StartSiege, map[string]any{"region": "vale"}))
	assert.False(t, out.Success)
	assert.Equal(t, 100, f.load("alice").Status.Stamina)

	f.player("alice", func(a *actor.Actor) { a.Resources[actor.Swords] = 500 })
	out = f.resolve("alice", act(StartSiege, map[string]any{"region": "vale"}))
	require.True(t, out.Success, out.Error)
	r := f.region("vale")
	require.NotNil(t, r.Siege)
	assert.Equal(t, 2500, r.Siege.GateHP)
	assert.Equal(t, 500, f.load("alice").Quantity(actor.Swords))

	out = f.resolve("alice", act(StartSiege, map[string]any{"region": "nowhere"}))
	assert.False(t, out.Success)
	assert.Equal(t, "There is no region called nowhere", out.Error)
}

func TestResolve_ThroneWinnerSignalled(t *testing.T) {
	f := newFixture(t)
	f.save(records.Region(room, "vale"), &world.Region{
		ID: "vale", Name: "Vale", RulerID: "lord",
		Siege: &world.ActiveSiege{
			InstigatorID: "alice",
			Phase:        world.PhaseThrone,
			StartedAt:    epoch.Add(-time.Hour),
			Attackers:    map[string]*world.Participant{"alice": {HP: 100}},
			Defenders:    map[string]*world.Participant{},
			Throne: &world.Throne{
				Mode:      world.ThronePVE,
				Occupiers: map[string]*world.Occupier{"alice": {Armor: 50, Progress: 95}},
				LastTick:  epoch,
			},
		},
	})
	f.player("alice", nil)
	f.now = epoch.Add(10 * time.Second)

	out := f.resolve("alice", act(SiegeStatus, map[string]any{"region": "vale"}))
	require.True(t, out.Success, out.Error)
	assert.Equal(t, "alice", out.Data.SiegeWinnerID)
	assert.Equal(t, "vale", out.Data.TargetRegionID)
	assert.Nil(t, f.region("vale").Siege)
}

func TestResolve_SiegeStatusWithoutSiege(t *testing.T) {
	f := newFixture(t)
	f.save(records.Region(room, "vale"), &world.Region{ID: "vale", Name: "Vale"})
	f.player("alice", nil)

	out := f.resolve("alice", act(SiegeStatus, map[string]any{"region": "vale"}))
	require.True(t, out.Success, out.Error)
	status := out.Data.Data["siege"].(map[string]any)
	assert.Equal(t, false, status["active"])
}

func TestResolve_ConcurrentBuysSerialize(t *testing.T) {
	f := newFixture(t, withRetries(200))
	players := []string{"a", "b", "c", "d"}
	for _, id := range players {
		f.player(id, func(a *actor.Actor) { a.Resources[actor.Gold] = 1000 })
	}

	const buys = 5
	var wg sync.WaitGroup
	for _, id := range players {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for i := 0; i < buys; i++ {
				out := f.resolve(id, act(Buy, map[string]any{"resource": "wood", "quantity": 1}))
				assert.True(t, out.Success, out.Error)
			}
		}(id)
	}
	wg.Wait()

	var m market.Market
	_, err := storage.Load(context.Background(), f.store, records.Market(room), &m)
	require.NoError(t, err)
	assert.Equal(t, market.DefaultGoods[actor.Wood].BaseStock-len(players)*buys, m.Goods[actor.Wood].Stock)
	for _, id := range players {
		assert.Equal(t, buys, f.load(id).Quantity(actor.Wood))
	}
}

func TestResolve_TimeoutIsReported(t *testing.T) {
	f := newFixture(t)
	f.player("alice", nil)
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	out := f.engine.Resolve(ctx, room, "alice", "CHOP_WOOD")
	assert.False(t, out.Success)
	assert.Contains(t, out.Error, "timed out")
	assert.Zero(t, f.load("alice").Quantity(actor.Wood))
}

func TestResolve_LogsOneLinePerAction(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	f := newFixture(t, withLogger(zap.New(core)))
	f.player("alice", nil)

	out := f.resolve("alice", "CHOP_WOOD")
	require.True(t, out.Success, out.Error)

	entries := logs.FilterMessage("action resolved").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "alice", fields["player"])
	assert.Equal(t, "CHOP_WOOD", fields["action"])
	assert.Equal(t, true, fields["success"])
}
