package action

import (
	"errors"
	"sort"

	"github.com/cory-johannsen/fiefdom/internal/game/actor"
	"github.com/cory-johannsen/fiefdom/internal/game/market"
)

type giftPayload struct {
	To       string         `json:"to"`
	Resource actor.Resource `json:"resource"`
	Amount   int            `json:"amount"`
}

// gift moves resources to another player in the same transaction as the
// debit, so neither side can commit alone.
func gift(c *Context) error {
	var p giftPayload
	if err := c.Decode(&p); err != nil {
		return err
	}
	if p.To == c.Actor.ID {
		return rejectf("You cannot gift yourself")
	}
	to, ok, err := c.Player(p.To)
	if err != nil {
		return err
	}
	if !ok {
		return rejectf("There is no player called %s", p.To)
	}
	if err := c.Take(p.Resource, p.Amount); err != nil {
		return err
	}
	to.Add(p.Resource, p.Amount)
	return c.succeed("You give %d %s to %s", p.Amount, p.Resource, to.Name)
}

type offerPayload struct {
	To   string                 `json:"to"`
	Give map[actor.Resource]int `json:"give"`
	Want map[actor.Resource]int `json:"want"`
}

func sortedGoods(goods map[actor.Resource]int) []actor.Resource {
	out := make([]actor.Resource, 0, len(goods))
	for r := range goods {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func offerRejection(err error) error {
	switch {
	case errors.Is(err, market.ErrTooManyOffers):
		return rejectf("You already have %d open offers", market.MaxOpenOffers)
	case errors.Is(err, market.ErrUnknownGood), errors.Is(err, market.ErrInvalidQuantity), errors.Is(err, market.ErrInvalidOffer):
		return rejectf("That offer makes no sense")
	case errors.Is(err, market.ErrUnknownOffer):
		return rejectf("There is no such offer")
	}
	return err
}

// tradeOffer escrows the offered goods in the room's trade book.
func tradeOffer(c *Context) error {
	var p offerPayload
	if err := c.Decode(&p); err != nil {
		return err
	}
	if p.To != "" {
		if _, ok, err := c.Player(p.To); err != nil {
			return err
		} else if !ok {
			return rejectf("There is no player called %s", p.To)
		}
	}
	book, err := c.Trades()
	if err != nil {
		return err
	}
	o, err := book.Open(c.Actor.ID, p.To, p.Give, p.Want, c.Now)
	if err != nil {
		return offerRejection(err)
	}
	for _, res := range sortedGoods(p.Give) {
		if err := c.Take(res, p.Give[res]); err != nil {
			return err
		}
	}
	c.Result.Data["offerId"] = o.ID
	return c.succeed("Your offer %s is posted", o.ID)
}

type offerRef struct {
	OfferID string `json:"offerId"`
}

// tradeAccept settles both sides of an offer atomically: the accepter pays
// Want to the offerer and receives the escrowed Give.
func tradeAccept(c *Context) error {
	var p offerRef
	if err := c.Decode(&p); err != nil {
		return err
	}
	book, err := c.Trades()
	if err != nil {
		return err
	}
	o, err := book.Take(p.OfferID)
	if err != nil {
		return offerRejection(err)
	}
	if o.From == c.Actor.ID {
		return rejectf("You cannot accept your own offer")
	}
	if o.To != "" && o.To != c.Actor.ID {
		return rejectf("That offer is not for you")
	}
	from, ok, err := c.Player(o.From)
	if err != nil {
		return err
	}
	if !ok {
		return rejectf("The trader is gone")
	}
	for _, res := range sortedGoods(o.Want) {
		if err := c.Take(res, o.Want[res]); err != nil {
			return err
		}
		from.Add(res, o.Want[res])
	}
	for _, res := range sortedGoods(o.Give) {
		c.Give(res, o.Give[res])
	}
	c.TrackXP(actor.Trading, 5)
	return c.succeed("You accept %s's offer", from.Name)
}

// tradeCancel returns escrowed goods to the offerer.
func tradeCancel(c *Context) error {
	var p offerRef
	if err := c.Decode(&p); err != nil {
		return err
	}
	book, err := c.Trades()
	if err != nil {
		return err
	}
	o, ok := book.Offers[p.OfferID]
	if !ok {
		return rejectf("There is no such offer")
	}
	if o.From != c.Actor.ID {
		return rejectf("That offer is not yours")
	}
	if _, err := book.Take(p.OfferID); err != nil {
		return offerRejection(err)
	}
	for _, res := range sortedGoods(o.Give) {
		c.Give(res, o.Give[res])
	}
	return c.succeed("You withdraw your offer")
}
