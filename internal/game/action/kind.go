// Package action resolves one player action against the shared store: it
// parses and validates the request, charges its cost, dispatches to the
// handler for its Kind, and commits the result as one optimistic transaction.
package action

import (
	"errors"
	"fmt"
)

// Kind identifies an action. The set is closed; every Kind has a handler
// and a cost entry.
type Kind string

// Gathering.
const (
	ChopWood     Kind = "CHOP_WOOD"
	MineStone    Kind = "MINE_STONE"
	MineOre      Kind = "MINE_ORE"
	HarvestGrain Kind = "HARVEST_GRAIN"
	Fish         Kind = "FISH"
	Forage       Kind = "FORAGE"
	Hunt         Kind = "HUNT"
)

// Crafting.
const (
	MillFlour  Kind = "MILL_FLOUR"
	BakeBread  Kind = "BAKE_BREAD"
	SmeltIron  Kind = "SMELT_IRON"
	ForgeSword Kind = "FORGE_SWORD"
	ForgeArmor Kind = "FORGE_ARMOR"
	CraftTool  Kind = "CRAFT_TOOL"
	RepairTool Kind = "REPAIR_TOOL"
)

// Timed processes.
const (
	PlantCrop      Kind = "PLANT_CROP"
	CollectHarvest Kind = "COLLECT_HARVEST"
)

// Management.
const (
	Eat        Kind = "EAT"
	Rest       Kind = "REST"
	Heal       Kind = "HEAL"
	Pray       Kind = "PRAY"
	Train      Kind = "TRAIN"
	Equip      Kind = "EQUIP"
	Unequip    Kind = "UNEQUIP"
	SwitchRole Kind = "SWITCH_ROLE"
	BuyUpgrade Kind = "BUY_UPGRADE"
	Retire     Kind = "RETIRE"
)

// Settlement and region.
const (
	Contribute        Kind = "CONTRIBUTE"
	ReinforceGarrison Kind = "REINFORCE_GARRISON"
	RepairWalls       Kind = "REPAIR_WALLS"
	EnactLaw          Kind = "ENACT_LAW"
	RepealLaw         Kind = "REPEAL_LAW"
)

// Market.
const (
	Buy        Kind = "BUY"
	Sell       Kind = "SELL"
	TradeRoute Kind = "TRADE_ROUTE"
)

// Escrow.
const (
	Gift        Kind = "GIFT"
	TradeOffer  Kind = "TRADE_OFFER"
	TradeAccept Kind = "TRADE_ACCEPT"
	TradeCancel Kind = "TRADE_CANCEL"
)

// Siege.
const (
	StartSiege  Kind = "START_SIEGE"
	AttackGate  Kind = "ATTACK_GATE"
	MoveLane    Kind = "MOVE_LANE"
	AttackBoss  Kind = "ATTACK_BOSS"
	ClaimThrone Kind = "CLAIM_THRONE"
	DonateArmor Kind = "DONATE_ARMOR"
	SunderArmor Kind = "SUNDER_ARMOR"
	SiegeStatus Kind = "SIEGE_STATUS"
)

// Category groups kinds for metrics and path classification.
type Category string

const (
	CategoryGathering  Category = "gathering"
	CategoryCrafting   Category = "crafting"
	CategoryProcess    Category = "process"
	CategoryManagement Category = "management"
	CategoryRegion     Category = "region"
	CategoryMarket     Category = "market"
	CategoryEscrow     Category = "escrow"
	CategorySiege      Category = "siege"
)

var categories = map[Kind]Category{
	ChopWood: CategoryGathering, MineStone: CategoryGathering, MineOre: CategoryGathering,
	HarvestGrain: CategoryGathering, Fish: CategoryGathering, Forage: CategoryGathering, Hunt: CategoryGathering,

	MillFlour: CategoryCrafting, BakeBread: CategoryCrafting, SmeltIron: CategoryCrafting,
	ForgeSword: CategoryCrafting, ForgeArmor: CategoryCrafting, CraftTool: CategoryCrafting, RepairTool: CategoryCrafting,

	PlantCrop: CategoryProcess, CollectHarvest: CategoryProcess,

	Eat: CategoryManagement, Rest: CategoryManagement, Heal: CategoryManagement, Pray: CategoryManagement,
	Train: CategoryManagement, Equip: CategoryManagement, Unequip: CategoryManagement,
	SwitchRole: CategoryManagement, BuyUpgrade: CategoryManagement, Retire: CategoryManagement,

	Contribute: CategoryRegion, ReinforceGarrison: CategoryRegion, RepairWalls: CategoryRegion,
	EnactLaw: CategoryRegion, RepealLaw: CategoryRegion,

	Buy: CategoryMarket, Sell: CategoryMarket, TradeRoute: CategoryMarket,

	Gift: CategoryEscrow, TradeOffer: CategoryEscrow, TradeAccept: CategoryEscrow, TradeCancel: CategoryEscrow,

	StartSiege: CategorySiege, AttackGate: CategorySiege, MoveLane: CategorySiege, AttackBoss: CategorySiege,
	ClaimThrone: CategorySiege, DonateArmor: CategorySiege, SunderArmor: CategorySiege, SiegeStatus: CategorySiege,
}

// AllKinds lists every kind in declaration order.
var AllKinds = []Kind{
	ChopWood, MineStone, MineOre, HarvestGrain, Fish, Forage, Hunt,
	MillFlour, BakeBread, SmeltIron, ForgeSword, ForgeArmor, CraftTool, RepairTool,
	PlantCrop, CollectHarvest,
	Eat, Rest, Heal, Pray, Train, Equip, Unequip, SwitchRole, BuyUpgrade, Retire,
	Contribute, ReinforceGarrison, RepairWalls, EnactLaw, RepealLaw,
	Buy, Sell, TradeRoute,
	Gift, TradeOffer, TradeAccept, TradeCancel,
	StartSiege, AttackGate, MoveLane, AttackBoss, ClaimThrone, DonateArmor, SunderArmor, SiegeStatus,
}

// ErrUnknownAction is returned for a kind outside the enumeration.
var ErrUnknownAction = errors.New("unknown action")

// ParseKind returns the Kind named s.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if _, ok := categories[k]; !ok {
		return "", fmt.Errorf("%q: %w", s, ErrUnknownAction)
	}
	return k, nil
}

// Category returns k's family.
func (k Kind) Category() Category {
	return categories[k]
}

// Global reports whether k touches records beyond the acting player
// (world, region, market, trade book or other players).
func (k Kind) Global() bool {
	switch k.Category() {
	case CategoryRegion, CategoryMarket, CategoryEscrow, CategorySiege:
		return true
	}
	return false
}
