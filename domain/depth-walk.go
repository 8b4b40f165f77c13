package domain

import "fmt"

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case SideBuy, SideSell:
		return Side(s), nil
	}
	return "", fmt.Errorf("unknown side %q", s)
}

// FillResult is the outcome of walking the book for a market order.
type FillResult struct {
	TotalCost       float64 `json:"totalCost"`
	AveragePrice    float64 `json:"averagePrice"`
	SlippagePercent float64 `json:"slippagePercent"`
	FilledAmount    float64 `json:"filledAmount"`
}

// IsPartial reports whether the book could not absorb the requested amount.
func (r *FillResult) IsPartial(requested float64) bool {
	return r.FilledAmount < requested
}

// SimulateFill greedily consumes levels on the side a market order of the given
// side would hit: asks ascending for buys, bids descending for sells.
// It returns false when nothing can be filled.
func SimulateFill(book *OrderBook, amount float64, side Side) (*FillResult, bool) {
	if book == nil || amount <= 0 || book.MidPrice <= 0 {
		return nil, false
	}

	remaining := amount
	totalCost := 0.0

	for _, level := range book.Levels(side) {
		if remaining <= 0 {
			break
		}

		fill := min(remaining, level.Size)
		totalCost += fill * level.Price
		remaining -= fill
	}

	filled := amount - remaining
	if filled <= 0 {
		return nil, false
	}

	averagePrice := totalCost / filled

	return &FillResult{
		TotalCost:       totalCost,
		AveragePrice:    averagePrice,
		SlippagePercent: (averagePrice - book.MidPrice) / book.MidPrice * 100,
		FilledAmount:    filled,
	}, true
}

// MaxFillable is the total size resting on the side a market order of the given side consumes.
func MaxFillable(book *OrderBook, side Side) float64 {
	if book == nil {
		return 0
	}

	total := 0.0
	for _, level := range book.Levels(side) {
		total += level.Size
	}
	return total
}
