package domain

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"
)

type Venue string

const (
	VenueHyperliquid Venue = "hyperliquid"
	VenueLighter     Venue = "lighter"
)

// PriceLevel is the resting liquidity at one price point.
type PriceLevel struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// OrderBook is the venue independent book every adapter produces.
// Bids are strictly descending and asks strictly ascending by price.
// A book is never mutated once built, the next observation replaces it.
type OrderBook struct {
	Bids       []PriceLevel `json:"bids"`
	Asks       []PriceLevel `json:"asks"`
	Spread     float64      `json:"spread"`
	MidPrice   float64      `json:"midPrice"`
	ObservedAt time.Time    `json:"observedAt"`

	// LastUpdateID is the venue sequence (offset) of the frame the book came from, 0 if the venue has none.
	LastUpdateID int64 `json:"lastUpdateId"`
}

// NewOrderBook sorts both sides, merges duplicated prices and derives spread and mid price.
// A book with an empty side or a non-positive best price is rejected.
func NewOrderBook(bids, asks []PriceLevel, observedAt time.Time) (*OrderBook, error) {
	if err := validateLevels(bids); err != nil {
		return nil, fmt.Errorf("bids: %w", err)
	}
	if err := validateLevels(asks); err != nil {
		return nil, fmt.Errorf("asks: %w", err)
	}

	bids = normalizeDepth(bids, false)
	asks = normalizeDepth(asks, true)

	if len(bids) == 0 || len(asks) == 0 {
		return nil, ErrEmptySide
	}

	bestBid := bids[0].Price
	bestAsk := asks[0].Price
	if bestBid <= 0 || bestAsk <= 0 {
		return nil, ErrInvalidMidPrice
	}

	return &OrderBook{
		Bids:       bids,
		Asks:       asks,
		Spread:     bestAsk - bestBid,
		MidPrice:   (bestBid + bestAsk) / 2,
		ObservedAt: observedAt,
	}, nil
}

func (ob *OrderBook) BestBid() PriceLevel {
	return ob.Bids[0]
}

func (ob *OrderBook) BestAsk() PriceLevel {
	return ob.Asks[0]
}

// SpreadBps returns the spread relative to the mid price in basis points.
func (ob *OrderBook) SpreadBps() float64 {
	if ob.MidPrice <= 0 {
		return 0
	}
	return ob.Spread / ob.MidPrice * 10000
}

// Levels returns the side a market order of the given side consumes.
func (ob *OrderBook) Levels(side Side) []PriceLevel {
	if side == SideBuy {
		return ob.Asks
	}
	return ob.Bids
}

// TakeSnapshot returns a copy of the book limited to limit levels per side. limit <= 0 keeps everything.
func (ob *OrderBook) TakeSnapshot(limit int) *OrderBook {
	snapshot := *ob
	snapshot.Bids = limitDepth(ob.Bids, limit)
	snapshot.Asks = limitDepth(ob.Asks, limit)
	return &snapshot
}

func limitDepth(depth []PriceLevel, limit int) []PriceLevel {
	if limit > 0 && len(depth) > limit {
		depth = depth[:limit]
	}

	out := make([]PriceLevel, len(depth))
	copy(out, depth)
	return out
}

func validateLevels(depth []PriceLevel) error {
	for _, level := range depth {
		if math.IsNaN(level.Price) || math.IsInf(level.Price, 0) || level.Price < 0 {
			return fmt.Errorf("%w: price %v", ErrInvalidLevel, level.Price)
		}
		if math.IsNaN(level.Size) || math.IsInf(level.Size, 0) || level.Size < 0 {
			return fmt.Errorf("%w: size %v", ErrInvalidLevel, level.Size)
		}
	}
	return nil
}

// normalizeDepth returns a sorted copy where every price appears once.
func normalizeDepth(depth []PriceLevel, isAsks bool) []PriceLevel {
	sorted := make([]PriceLevel, len(depth))
	copy(sorted, depth)

	if isAsks {
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Price < sorted[j].Price
		})
	} else {
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Price > sorted[j].Price
		})
	}

	merged := sorted[:0]
	for _, level := range sorted {
		if n := len(merged); n > 0 && merged[n-1].Price == level.Price {
			merged[n-1].Size += level.Size
			continue
		}
		merged = append(merged, level)
	}

	return merged
}

// ParsePriceLevel converts a venue price/size string pair.
func ParsePriceLevel(price, size string) (PriceLevel, error) {
	p, err := strconv.ParseFloat(price, 64)
	if err != nil {
		return PriceLevel{}, fmt.Errorf("%w: price %q", ErrMalformedPayload, price)
	}
	s, err := strconv.ParseFloat(size, 64)
	if err != nil {
		return PriceLevel{}, fmt.Errorf("%w: size %q", ErrMalformedPayload, size)
	}

	return PriceLevel{Price: p, Size: s}, nil
}
