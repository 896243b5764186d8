package action

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/cory-johannsen/fiefdom/internal/game/actor"
	"github.com/cory-johannsen/fiefdom/internal/game/chance"
	"github.com/cory-johannsen/fiefdom/internal/game/cost"
	"github.com/cory-johannsen/fiefdom/internal/game/progression"
	"github.com/cory-johannsen/fiefdom/internal/game/records"
	"github.com/cory-johannsen/fiefdom/internal/game/world"
	"github.com/cory-johannsen/fiefdom/internal/observability"
	"github.com/cory-johannsen/fiefdom/internal/storage"
)

// Jackpot constants.
const (
	DefaultJackpotChance = 0.005
	JackpotGold          = 25
)

// DefaultMaxRetries bounds optimistic re-runs of one action.
const DefaultMaxRetries = 8

// Laws is the law registry consulted for costs and decrees;
// satisfied by *scripting.LawBook.
type Laws interface {
	cost.LawHook
	Has(id string) bool
}

// Committed describes an action after its transaction committed.
type Committed struct {
	Room     string
	PlayerID string
	Kind     Kind
	Result   *LocalResult
	// Actor is the acting player as committed.
	Actor *actor.Actor
	At    time.Time
}

// Effects runs side effects that must not block or fail the transaction:
// profile mirrors, retirement records, promotion and archiving.
type Effects interface {
	AfterCommit(ctx context.Context, c Committed)
}

// Options tune the engine.
type Options struct {
	MaxRetries    int
	JackpotChance float64
	RegenCap      time.Duration
}

// Deps are the engine's collaborators. Store is required; the rest default.
type Deps struct {
	Store   storage.Store
	Table   cost.Table
	Laws    Laws
	Roller  *chance.Roller
	Clock   func() time.Time
	Logger  *zap.Logger
	Metrics *observability.ActionMetrics
	Tracer  trace.Tracer
	Effects Effects
}

// Engine resolves actions.
type Engine struct {
	store     storage.Store
	table     cost.Table
	laws      Laws
	roller    *chance.Roller
	clock     func() time.Time
	logger    *zap.Logger
	metrics   *observability.ActionMetrics
	tracer    trace.Tracer
	effects   Effects
	validator *Validator
	opts      Options
}

// NewEngine builds an Engine.
//
// Precondition: d.Store must be non-nil.
// Postcondition: Returns a ready Engine or an error if the payload schemas fail to compile.
func NewEngine(d Deps, opts Options) (*Engine, error) {
	if d.Store == nil {
		return nil, errors.New("action engine requires a store")
	}
	v, err := NewValidator()
	if err != nil {
		return nil, err
	}
	if d.Table == nil {
		d.Table = cost.DefaultTable()
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Roller == nil {
		d.Roller = chance.NewRoller(chance.NewCryptoSource(), d.Logger)
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.Tracer == nil {
		d.Tracer = otel.Tracer("github.com/cory-johannsen/fiefdom/internal/game/action")
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.RegenCap <= 0 {
		opts.RegenCap = actor.DefaultRegenCap
	}
	return &Engine{
		store:     d.Store,
		table:     d.Table,
		laws:      d.Laws,
		roller:    d.Roller,
		clock:     d.Clock,
		logger:    d.Logger,
		metrics:   d.Metrics,
		tracer:    d.Tracer,
		effects:   d.Effects,
		validator: v,
		opts:      opts,
	}, nil
}

// handler is the mutation bound to one kind.
type handler func(*Context) error

// handlerFor dispatches on the closed Kind set.
func handlerFor(k Kind) (handler, bool) {
	switch k {
	case ChopWood, MineStone, MineOre, HarvestGrain, Fish, Hunt:
		return gather, true
	case Forage:
		return forage, true
	case MillFlour, BakeBread, SmeltIron, ForgeSword, ForgeArmor:
		return craft, true
	case CraftTool:
		return craftTool, true
	case RepairTool:
		return repairTool, true
	case PlantCrop:
		return plantCrop, true
	case CollectHarvest:
		return collectHarvest, true
	case Eat:
		return eat, true
	case Rest:
		return rest, true
	case Heal:
		return heal, true
	case Pray:
		return pray, true
	case Train:
		return train, true
	case Equip:
		return equip, true
	case Unequip:
		return unequip, true
	case SwitchRole:
		return switchRole, true
	case BuyUpgrade:
		return buyUpgrade, true
	case Retire:
		return retire, true
	case Contribute:
		return contribute, true
	case ReinforceGarrison:
		return reinforceGarrison, true
	case RepairWalls:
		return repairWalls, true
	case EnactLaw:
		return enactLaw, true
	case RepealLaw:
		return repealLaw, true
	case Buy:
		return buy, true
	case Sell:
		return sell, true
	case TradeRoute:
		return tradeRoute, true
	case Gift:
		return gift, true
	case TradeOffer:
		return tradeOffer, true
	case TradeAccept:
		return tradeAccept, true
	case TradeCancel:
		return tradeCancel, true
	case StartSiege, AttackGate, MoveLane, AttackBoss, ClaimThrone, DonateArmor, SunderArmor, SiegeStatus:
		return runSiege, true
	}
	return nil, false
}

func failed(msg string) Outcome {
	return Outcome{Success: false, Data: &LocalResult{Message: msg}, Error: msg}
}

// Resolve runs one action for one player in one room.
//
// Postcondition: rejected actions (unknown kind, bad payload, unaffordable
// cost, handler validation) leave the store unchanged. Failed actions
// commit their cost and side effects. Infrastructure errors and timeouts
// are reported in Outcome.Error and never panic.
func (e *Engine) Resolve(ctx context.Context, roomID, playerID string, raw any) Outcome {
	start := e.clock()
	req, err := ParseRequest(raw)
	if err != nil {
		return failed("Unknown action")
	}
	kind := string(req.Kind)

	ctx, span := e.tracer.Start(ctx, "action.Resolve", trace.WithAttributes(
		attribute.String("room", roomID),
		attribute.String("player", playerID),
		attribute.String("action", kind),
	))
	defer span.End()

	if err := e.validator.Validate(req); err != nil {
		e.metrics.RecordRejected(ctx, kind)
		return failed(fmt.Sprintf("Invalid %s request", req.Kind))
	}
	h, ok := handlerFor(req.Kind)
	if !ok {
		return failed("Unknown action")
	}

	// Cost conditions come from a snapshot read outside the transaction.
	snapshot := world.New()
	if _, err := storage.Load(ctx, e.store, records.World(roomID), snapshot); err != nil {
		return e.infraFailure(ctx, span, req.Kind, roomID, playerID, err)
	}
	snapshot.EnsureDefaults()

	var (
		result    *LocalResult
		committed *actor.Actor
		rejection *Rejection
	)
	onRetry := func(attempt int, err error) {
		e.metrics.RecordConflict(ctx, kind)
		e.logger.Warn("action conflict, retrying",
			zap.String("room", roomID),
			zap.String("player", playerID),
			zap.String("action", kind),
			zap.Int("attempt", attempt),
		)
	}
	err = storage.Run(ctx, e.store, e.opts.MaxRetries, onRetry, func(tx *storage.Tx) error {
		now := e.clock()
		rejection = nil
		c, err := e.begin(tx, roomID, playerID, req, snapshot, now)
		if err != nil {
			return err
		}
		result = c.Result
		level, role := c.Actor.Status.Level, c.Actor.Role
		if err := e.charge(c); err != nil {
			return settle(err, &rejection)
		}
		if err := h(c); err != nil {
			var fail *Failure
			if !errors.As(err, &fail) {
				return settle(err, &rejection)
			}
			c.Result.Success = false
			c.Result.Message = fail.Message
		} else {
			c.Result.Success = true
			e.jackpot(c)
		}
		finish(c, level, role)
		committed = c.Actor.Clone()
		return c.flush()
	})

	if rejection != nil {
		e.metrics.RecordRejected(ctx, kind)
		span.SetAttributes(attribute.Bool("rejected", true))
		return failed(rejection.Message)
	}
	if err != nil {
		return e.infraFailure(ctx, span, req.Kind, roomID, playerID, err)
	}

	result.compact()
	e.afterCommit(ctx, Committed{
		Room:     roomID,
		PlayerID: playerID,
		Kind:     req.Kind,
		Result:   result,
		Actor:    committed,
		At:       e.clock(),
	}, start)
	span.SetAttributes(attribute.Bool("success", result.Success))
	if !result.Success {
		return Outcome{Success: false, Data: result, Error: result.Message}
	}
	return Outcome{Success: true, Data: result}
}

// errRejected aborts a transaction without committing.
var errRejected = errors.New("action rejected")

// settle converts a handler or cost error into an abort. Rejections are
// captured for the caller; anything else propagates as an infrastructure error.
func settle(err error, out **Rejection) error {
	var rej *Rejection
	if errors.As(err, &rej) {
		*out = rej
		return errRejected
	}
	return err
}

// begin loads and prepares the acting player.
func (e *Engine) begin(tx *storage.Tx, roomID, playerID string, req Request, snapshot *world.World, now time.Time) (*Context, error) {
	a := &actor.Actor{ID: playerID}
	if _, err := tx.Get(records.Player(roomID, playerID), a); err != nil {
		return nil, err
	}
	a.ID = playerID
	a.EnsureDefaults(now)
	c := newContext(e, tx, roomID, now, a, req, snapshot)

	regen := a.ApplyRegen(now, e.opts.RegenCap)
	if regen.Minutes > 0 {
		c.Result.Regen = &regen
	}
	a.PruneBuffs(now)
	return c, nil
}

// charge checks and deducts the action's cost as one step.
func (e *Engine) charge(c *Context) error {
	conds := cost.ConditionsFor(c.snapshot, c.Actor.BuffMagnitude(actor.BuffVigor, c.Now))
	var hook cost.LawHook
	if e.laws != nil {
		hook = e.laws
	}
	q, err := cost.Resolve(e.table, string(c.Request.Kind), c.Actor, conds, hook)
	if err != nil {
		var sf *cost.Shortfall
		if errors.As(err, &sf) {
			return rejectf("%s", sf.Message())
		}
		return err
	}
	if err := cost.Deduct(c.Actor, q); err != nil {
		return rejectf("%s", err.Error())
	}
	c.Result.StaminaSpent = q.Stamina
	for res, n := range q.Resources {
		c.Result.Consumed[res] += n
	}
	return nil
}

func (e *Engine) jackpot(c *Context) {
	if e.roller.Chance("jackpot", e.opts.JackpotChance) {
		c.Give(actor.Gold, JackpotGold)
		c.Result.Jackpot = true
		c.event("jackpot: %d gold", JackpotGold)
	}
}

// finish records last activity and reports level and role changes against
// the state the action started from.
func finish(c *Context, level int, role actor.Role) {
	c.Actor.LastActive = c.Now
	if c.Actor.Role != role {
		c.Result.RoleChanged = c.Actor.Role
	} else if c.Actor.Status.Level > level {
		c.Result.NewLevel = c.Actor.Status.Level
	}
	progression.SyncRoleStats(c.Actor)
}

func (e *Engine) infraFailure(ctx context.Context, span trace.Span, k Kind, roomID, playerID string, err error) Outcome {
	e.metrics.RecordFailure(ctx, string(k))
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	e.logger.Error("action failed",
		zap.String("room", roomID),
		zap.String("player", playerID),
		zap.String("action", string(k)),
		zap.Error(err),
	)
	msg := "The realm did not answer, try again"
	if errors.Is(err, context.DeadlineExceeded) {
		msg = "The action timed out; it may or may not have taken effect"
	}
	return Outcome{Success: false, Error: msg}
}

func (e *Engine) afterCommit(ctx context.Context, c Committed, start time.Time) {
	elapsed := e.clock().Sub(start)
	e.logger.Info("action resolved",
		zap.String("room", c.Room),
		zap.String("player", c.PlayerID),
		zap.String("action", string(c.Kind)),
		zap.Bool("success", c.Result.Success),
		zap.String("message", c.Result.Message),
		zap.Duration("elapsed", elapsed),
	)
	kind := string(c.Kind)
	if c.Result.Success {
		e.metrics.RecordSuccess(ctx, kind)
	} else {
		e.metrics.RecordFailure(ctx, kind)
	}
	e.metrics.RecordDuration(ctx, kind, float64(elapsed.Microseconds())/1000)
	e.metrics.RecordFlow(ctx, string(c.Kind.Category()), flow(c.Result.Yields), flow(c.Result.Consumed))

	if e.effects != nil {
		e.effects.AfterCommit(ctx, c)
	}
}

func flow(m map[actor.Resource]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[string(k)] = v
	}
	return out
}
