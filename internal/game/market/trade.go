package market

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/cory-johannsen/fiefdom/internal/game/actor"
)

// MaxOpenOffers bounds the offers one player may have in the book.
const MaxOpenOffers = 5

var (
	// ErrUnknownOffer is returned for an offer id not in the book.
	ErrUnknownOffer = errors.New("unknown trade offer")
	// ErrTooManyOffers is returned when a player already has MaxOpenOffers.
	ErrTooManyOffers = errors.New("too many open offers")
	// ErrInvalidOffer is returned for empty or malformed offers.
	ErrInvalidOffer = errors.New("invalid trade offer")
)

// Offer holds escrowed goods from one player awaiting acceptance.
// An empty To means anyone may accept.
type Offer struct {
	ID        string                 `json:"id"`
	From      string                 `json:"from"`
	To        string                 `json:"to,omitempty"`
	Give      map[actor.Resource]int `json:"give"`
	Want      map[actor.Resource]int `json:"want"`
	CreatedAt time.Time              `json:"createdAt"`
}

// TradeBook is a room's escrow of open offers.
type TradeBook struct {
	Offers map[string]*Offer `json:"offers"`
}

// NewTradeBook returns an empty book.
func NewTradeBook() *TradeBook {
	return &TradeBook{Offers: make(map[string]*Offer)}
}

// EnsureDefaults fills a missing offer map.
func (b *TradeBook) EnsureDefaults() {
	if b.Offers == nil {
		b.Offers = make(map[string]*Offer)
	}
}

// ValidateGoods checks a give/want map: known resources, positive amounts.
func ValidateGoods(goods map[actor.Resource]int) error {
	for res, n := range goods {
		if !res.Valid() {
			return fmt.Errorf("%s: %w", res, ErrUnknownGood)
		}
		if n <= 0 {
			return fmt.Errorf("%d %s: %w", n, res, ErrInvalidQuantity)
		}
	}
	return nil
}

// Open records a new offer. The caller has already escrowed Give.
//
// Postcondition: on success the returned offer is in the book under a fresh id.
func (b *TradeBook) Open(from, to string, give, want map[actor.Resource]int, now time.Time) (*Offer, error) {
	b.EnsureDefaults()
	if len(give) == 0 && len(want) == 0 {
		return nil, fmt.Errorf("offer gives and wants nothing: %w", ErrInvalidOffer)
	}
	if err := ValidateGoods(give); err != nil {
		return nil, err
	}
	if err := ValidateGoods(want); err != nil {
		return nil, err
	}
	if to == from {
		return nil, fmt.Errorf("offer to self: %w", ErrInvalidOffer)
	}
	if len(b.OffersFrom(from)) >= MaxOpenOffers {
		return nil, ErrTooManyOffers
	}
	o := &Offer{ID: uuid.NewString(), From: from, To: to, Give: give, Want: want, CreatedAt: now}
	b.Offers[o.ID] = o
	return o, nil
}

// Take removes and returns the offer with id.
func (b *TradeBook) Take(id string) (*Offer, error) {
	o, ok := b.Offers[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrUnknownOffer)
	}
	delete(b.Offers, id)
	return o, nil
}

// OffersFrom lists from's open offers, oldest first.
func (b *TradeBook) OffersFrom(from string) []*Offer {
	var out []*Offer
	for _, o := range b.Offers {
		if o.From == from {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
