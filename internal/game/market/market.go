// Package market prices goods on a bonding curve over current stock.
package market

import (
	"errors"
	"fmt"
	"math"

	"github.com/cory-johannsen/fiefdom/internal/game/actor"
)

// Curve parameters.
const (
	Exponent  = 1.25
	MinFactor = 0.2
	MaxFactor = 10.0
	SellRatio = 0.8
)

var (
	// ErrUnknownGood is returned for resources the market does not trade.
	ErrUnknownGood = errors.New("good not traded")
	// ErrOutOfStock is returned when a buy exceeds the available stock.
	ErrOutOfStock = errors.New("insufficient market stock")
	// ErrInvalidQuantity is returned for non-positive quantities.
	ErrInvalidQuantity = errors.New("quantity must be positive")
)

// Good is one traded resource.
type Good struct {
	BasePrice float64 `json:"basePrice"`
	BaseStock int     `json:"baseStock"`
	Stock     int     `json:"stock"`
}

// Price returns the unit price at stock s.
//
// Postcondition: BasePrice×MinFactor <= result <= BasePrice×MaxFactor.
func Price(basePrice float64, baseStock, stock int) float64 {
	ratio := float64(baseStock) / float64(max(1, stock))
	factor := math.Pow(ratio, Exponent)
	factor = math.Min(MaxFactor, math.Max(MinFactor, factor))
	return basePrice * factor
}

// BuyPrice is the unit price the market charges at the current stock.
func (g Good) BuyPrice() float64 {
	return Price(g.BasePrice, g.BaseStock, g.Stock)
}

// SellPrice is the unit price the market pays at the current stock.
func (g Good) SellPrice() float64 {
	return g.BuyPrice() * SellRatio
}

// Market is a room's stock book.
type Market struct {
	Goods map[actor.Resource]*Good `json:"goods"`
}

// DefaultGoods is the opening stock book.
var DefaultGoods = map[actor.Resource]Good{
	actor.Wood:    {BasePrice: 4, BaseStock: 200},
	actor.Stone:   {BasePrice: 5, BaseStock: 200},
	actor.IronOre: {BasePrice: 8, BaseStock: 150},
	actor.Iron:    {BasePrice: 15, BaseStock: 100},
	actor.Grain:   {BasePrice: 3, BaseStock: 300},
	actor.Flour:   {BasePrice: 5, BaseStock: 200},
	actor.Bread:   {BasePrice: 8, BaseStock: 150},
	actor.Fish:    {BasePrice: 6, BaseStock: 150},
	actor.Herbs:   {BasePrice: 7, BaseStock: 100},
	actor.Hide:    {BasePrice: 9, BaseStock: 100},
	actor.Swords:  {BasePrice: 20, BaseStock: 100},
	actor.Armor:   {BasePrice: 25, BaseStock: 100},
}

// New returns a market stocked at every good's base stock.
func New() *Market {
	m := &Market{}
	m.EnsureDefaults()
	return m
}

// EnsureDefaults adds any missing default goods at base stock.
func (m *Market) EnsureDefaults() {
	if m.Goods == nil {
		m.Goods = make(map[actor.Resource]*Good, len(DefaultGoods))
	}
	for res, g := range DefaultGoods {
		if _, ok := m.Goods[res]; !ok {
			g := g
			g.Stock = g.BaseStock
			m.Goods[res] = &g
		}
	}
}

func (m *Market) good(res actor.Resource) (*Good, error) {
	g, ok := m.Goods[res]
	if !ok || g == nil {
		return nil, fmt.Errorf("%s: %w", res, ErrUnknownGood)
	}
	return g, nil
}

// Quote is the integrated price of a bulk order.
type Quote struct {
	Resource actor.Resource
	Quantity int
	// Total is gold charged (buy, rounded up) or paid (sell, rounded down).
	Total int
	// Exact is the unrounded integral.
	Exact float64
	// UnitFirst and UnitLast bracket the slippage.
	UnitFirst float64
	UnitLast  float64
}

// QuoteBuy prices buying qty units one at a time on a projection of stock.
// The market is not modified.
func (m *Market) QuoteBuy(res actor.Resource, qty int) (Quote, error) {
	if qty <= 0 {
		return Quote{}, ErrInvalidQuantity
	}
	g, err := m.good(res)
	if err != nil {
		return Quote{}, err
	}
	if qty > g.Stock {
		return Quote{}, fmt.Errorf("buying %d %s (stock %d): %w", qty, res, g.Stock, ErrOutOfStock)
	}
	projection := *g
	q := Quote{Resource: res, Quantity: qty}
	for i := 0; i < qty; i++ {
		unit := projection.BuyPrice()
		if i == 0 {
			q.UnitFirst = unit
		}
		q.UnitLast = unit
		q.Exact += unit
		projection.Stock--
	}
	q.Total = int(math.Ceil(q.Exact - 1e-9))
	return q, nil
}

// QuoteSell prices selling qty units one at a time on a projection of stock.
// The market is not modified.
func (m *Market) QuoteSell(res actor.Resource, qty int) (Quote, error) {
	if qty <= 0 {
		return Quote{}, ErrInvalidQuantity
	}
	g, err := m.good(res)
	if err != nil {
		return Quote{}, err
	}
	projection := *g
	q := Quote{Resource: res, Quantity: qty}
	for i := 0; i < qty; i++ {
		unit := projection.SellPrice()
		if i == 0 {
			q.UnitFirst = unit
		}
		q.UnitLast = unit
		q.Exact += unit
		projection.Stock++
	}
	q.Total = int(math.Floor(q.Exact + 1e-9))
	return q, nil
}

// Buy replays the per-unit loop against live stock.
//
// Postcondition: on success stock decreased by qty and the returned quote
// equals QuoteBuy before the call.
func (m *Market) Buy(res actor.Resource, qty int) (Quote, error) {
	q, err := m.QuoteBuy(res, qty)
	if err != nil {
		return Quote{}, err
	}
	g := m.Goods[res]
	for i := 0; i < qty; i++ {
		g.Stock--
	}
	return q, nil
}

// Sell replays the per-unit loop against live stock.
//
// Postcondition: on success stock increased by qty.
func (m *Market) Sell(res actor.Resource, qty int) (Quote, error) {
	q, err := m.QuoteSell(res, qty)
	if err != nil {
		return Quote{}, err
	}
	g := m.Goods[res]
	for i := 0; i < qty; i++ {
		g.Stock++
	}
	return q, nil
}

// RoutePremium multiplies the sell price paid by a distant market.
const RoutePremium = 1.25

// QuoteRoute prices shipping qty units to a distant market: the sell curve
// times RoutePremium, integrated on a projection. Local stock is untouched.
func (m *Market) QuoteRoute(res actor.Resource, qty int) (Quote, error) {
	q, err := m.QuoteSell(res, qty)
	if err != nil {
		return Quote{}, err
	}
	q.Exact *= RoutePremium
	q.UnitFirst *= RoutePremium
	q.UnitLast *= RoutePremium
	q.Total = int(math.Floor(q.Exact + 1e-9))
	return q, nil
}
