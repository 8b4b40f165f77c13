package domain

// SpreadRecord is one tick of the spread series, in basis points.
// A nil field means the venue had no valid book on that tick.
type SpreadRecord struct {
	Time        string   `json:"time"`
	TimestampMs int64    `json:"timestamp"`
	Hyperliquid *float64 `json:"hyperliquidSpread,omitempty"`
	Lighter     *float64 `json:"lighterSpread,omitempty"`
}

func (r *SpreadRecord) HasData() bool {
	return r.Hyperliquid != nil || r.Lighter != nil
}

// SlippageRecord is one tick of the slippage series at the tracked amount, in percent.
type SlippageRecord struct {
	Time        string  `json:"time"`
	TimestampMs int64   `json:"timestamp"`
	Amount      float64 `json:"amount"`

	HyperliquidBuy  *float64 `json:"hlBuySlippage,omitempty"`
	HyperliquidSell *float64 `json:"hlSellSlippage,omitempty"`
	LighterBuy      *float64 `json:"lighterBuySlippage,omitempty"`
	LighterSell     *float64 `json:"lighterSellSlippage,omitempty"`

	HyperliquidBidLevels *int `json:"hlBidLevels,omitempty"`
	HyperliquidAskLevels *int `json:"hlAskLevels,omitempty"`
	LighterBidLevels     *int `json:"lighterBidLevels,omitempty"`
	LighterAskLevels     *int `json:"lighterAskLevels,omitempty"`
}

func (r *SlippageRecord) HasData() bool {
	return r.HyperliquidBuy != nil || r.HyperliquidSell != nil ||
		r.LighterBuy != nil || r.LighterSell != nil
}
