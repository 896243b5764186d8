package action

import (
	"errors"

	"github.com/cory-johannsen/fiefdom/internal/game/actor"
	"github.com/cory-johannsen/fiefdom/internal/game/market"
)

type orderPayload struct {
	Resource actor.Resource `json:"resource"`
	Quantity int            `json:"quantity"`
}

func quoteData(q market.Quote) map[string]any {
	return map[string]any{
		"resource":  string(q.Resource),
		"quantity":  q.Quantity,
		"total":     q.Total,
		"unitFirst": q.UnitFirst,
		"unitLast":  q.UnitLast,
	}
}

func marketRejection(err error, res actor.Resource) error {
	switch {
	case errors.Is(err, market.ErrUnknownGood):
		return rejectf("The market does not trade %s", res)
	case errors.Is(err, market.ErrOutOfStock):
		return rejectf("The market does not have that much %s", res)
	case errors.Is(err, market.ErrInvalidQuantity):
		return rejectf("Invalid quantity")
	}
	return err
}

// buy pays the integrated bonding-curve price, rounded up.
func buy(c *Context) error {
	var p orderPayload
	if err := c.Decode(&p); err != nil {
		return err
	}
	if p.Resource == actor.Gold {
		return rejectf("Gold cannot be bought")
	}
	m, err := c.Market()
	if err != nil {
		return err
	}
	q, err := m.QuoteBuy(p.Resource, p.Quantity)
	if err != nil {
		return marketRejection(err, p.Resource)
	}
	if err := c.Take(actor.Gold, q.Total); err != nil {
		return err
	}
	if _, err := m.Buy(p.Resource, p.Quantity); err != nil {
		return marketRejection(err, p.Resource)
	}
	c.Give(p.Resource, p.Quantity)
	c.TrackXP(actor.Trading, float64(p.Quantity))
	c.Result.Data["quote"] = quoteData(q)
	return c.succeed("You buy %d %s for %d gold", p.Quantity, p.Resource, q.Total)
}

// sell receives the integrated sell price, rounded down.
func sell(c *Context) error {
	var p orderPayload
	if err := c.Decode(&p); err != nil {
		return err
	}
	if p.Resource == actor.Gold {
		return rejectf("Gold cannot be sold")
	}
	m, err := c.Market()
	if err != nil {
		return err
	}
	if err := c.Take(p.Resource, p.Quantity); err != nil {
		return err
	}
	q, err := m.Sell(p.Resource, p.Quantity)
	if err != nil {
		return marketRejection(err, p.Resource)
	}
	c.Give(actor.Gold, q.Total)
	c.TrackXP(actor.Trading, float64(p.Quantity))
	c.Result.Data["quote"] = quoteData(q)
	return c.succeed("You sell %d %s for %d gold", p.Quantity, p.Resource, q.Total)
}

// tradeRoute ships goods to a distant market at a premium. Local stock is
// unaffected; only merchants run routes.
func tradeRoute(c *Context) error {
	var p orderPayload
	if err := c.Decode(&p); err != nil {
		return err
	}
	if c.Actor.Role != actor.RoleMerchant {
		return rejectf("Only a %s can run a trade route", actor.RoleMerchant)
	}
	if p.Resource == actor.Gold {
		return rejectf("Gold cannot be shipped")
	}
	m, err := c.Market()
	if err != nil {
		return err
	}
	q, err := m.QuoteRoute(p.Resource, p.Quantity)
	if err != nil {
		return marketRejection(err, p.Resource)
	}
	if err := c.Take(p.Resource, p.Quantity); err != nil {
		return err
	}
	c.Give(actor.Gold, q.Total)
	c.TrackXP(actor.Trading, 2*float64(p.Quantity))
	c.Result.Data["quote"] = quoteData(q)
	return c.succeed("Your caravan sells %d %s abroad for %d gold", p.Quantity, p.Resource, q.Total)
}
