package usecase

import (
	"time"

	"github.com/spooky-finn/liquidity-bridge/domain"
)

// MarketMonitor is the read/control surface the transports drive.
type MarketMonitor interface {
	Status() *Status
	Books(depth int) *Books
	SpreadHistory(limit int) []domain.SpreadRecord
	SlippageHistory(limit int) []domain.SlippageRecord
	Quote(amount float64) (*Quote, error)
	SelectMarket(key string) error
	SetTrackedAmount(amount float64) error
}

var _ MarketMonitor = (*SyncCoordinator)(nil)

type VenueStatus struct {
	// Listed is false when the selected market has no identifier on the venue.
	Listed    bool `json:"listed"`
	Connected bool `json:"connected"`
	// Loading stays true until a tick has seen the first book for the market.
	Loading       bool   `json:"loading"`
	LastUpdatedMs int64  `json:"lastUpdated"`
	StreamState   string `json:"streamState,omitempty"`
}

type Status struct {
	Market        string      `json:"market"`
	Session       string      `json:"session"`
	Markets       []string    `json:"markets"`
	TrackedAmount float64     `json:"trackedAmount"`
	NextTickInMs  int64       `json:"nextTickInMs"`
	Hyperliquid   VenueStatus `json:"hyperliquid"`
	Lighter       VenueStatus `json:"lighter"`
	// LastSpread is the newest spread record, nil until a tick has stored one.
	LastSpread *domain.SpreadRecord `json:"lastSpread,omitempty"`
}

type Books struct {
	Market      string            `json:"market"`
	Hyperliquid *domain.OrderBook `json:"hyperliquid"`
	Lighter     *domain.OrderBook `json:"lighter"`
}

// VenueQuote is the depth walk of one venue's latest book at the quoted amount.
// Buy or Sell is nil when that side cannot fill anything.
type VenueQuote struct {
	Buy         *domain.FillResult `json:"buy"`
	Sell        *domain.FillResult `json:"sell"`
	PartialBuy  bool               `json:"partialBuy"`
	PartialSell bool               `json:"partialSell"`
	MaxBuy      float64            `json:"maxBuy"`
	MaxSell     float64            `json:"maxSell"`
}

type Quote struct {
	Market      string      `json:"market"`
	Amount      float64     `json:"amount"`
	Hyperliquid *VenueQuote `json:"hyperliquid"`
	Lighter     *VenueQuote `json:"lighter"`
}

// OnlySide returns a copy of the quote with the other side's fill cleared.
func (q *Quote) OnlySide(side domain.Side) *Quote {
	out := *q
	out.Hyperliquid = q.Hyperliquid.onlySide(side)
	out.Lighter = q.Lighter.onlySide(side)
	return &out
}

func (q *VenueQuote) onlySide(side domain.Side) *VenueQuote {
	if q == nil {
		return nil
	}

	out := *q
	if side == domain.SideBuy {
		out.Sell, out.PartialSell, out.MaxSell = nil, false, 0
	} else {
		out.Buy, out.PartialBuy, out.MaxBuy = nil, false, 0
	}
	return &out
}

func (c *SyncCoordinator) Status() *Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := &Status{
		Markets:       c.registry.Keys(),
		TrackedAmount: c.trackedAmount,
		NextTickInMs:  c.nextTickInLocked().Milliseconds(),
		Hyperliquid:   c.venueStatusLocked(domain.VenueHyperliquid),
		Lighter:       c.venueStatusLocked(domain.VenueLighter),
	}

	if c.market != nil {
		status.Market = c.market.Key
		status.Session = c.session.String()
		status.Hyperliquid.Listed = c.market.HasSnapshotVenue()
		status.Lighter.Listed = c.market.HasStreamVenue()
	}
	if c.stream != nil {
		status.Lighter.StreamState = c.stream.State().String()
	}
	if last, ok := c.spreadHistory.Last(); ok {
		status.LastSpread = &last
	}

	return status
}

func (c *SyncCoordinator) venueStatusLocked(venue domain.Venue) VenueStatus {
	state := c.venues[venue]

	status := VenueStatus{
		Connected: state.connected,
		Loading:   state.book == nil,
	}
	if !state.lastUpdated.IsZero() {
		status.LastUpdatedMs = state.lastUpdated.UnixMilli()
	}
	return status
}

// NextTickIn is the time left until the next tick, the full interval before the first one.
func (c *SyncCoordinator) NextTickIn() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.nextTickInLocked()
}

func (c *SyncCoordinator) nextTickInLocked() time.Duration {
	if c.lastTick.IsZero() {
		return c.cfg.Interval
	}

	left := c.cfg.Interval - c.now().Sub(c.lastTick)
	if left < 0 {
		return 0
	}
	return left
}

// Books returns copies of the books published by the last tick, limited to depth
// levels per side (0 keeps all).
func (c *SyncCoordinator) Books(depth int) *Books {
	c.mu.RLock()
	defer c.mu.RUnlock()

	books := &Books{}
	if c.market != nil {
		books.Market = c.market.Key
	}
	if book := c.venues[domain.VenueHyperliquid].book; book != nil {
		books.Hyperliquid = book.TakeSnapshot(depth)
	}
	if book := c.venues[domain.VenueLighter].book; book != nil {
		books.Lighter = book.TakeSnapshot(depth)
	}
	return books
}

// SpreadHistory returns up to limit newest records, oldest first. limit <= 0 returns all.
func (c *SyncCoordinator) SpreadHistory(limit int) []domain.SpreadRecord {
	return c.spreadHistory.Recent(limit)
}

func (c *SyncCoordinator) SlippageHistory(limit int) []domain.SlippageRecord {
	return c.slippageHistory.Recent(limit)
}

// Quote walks both published books for an arbitrary amount, independent of the tracked amount.
func (c *SyncCoordinator) Quote(amount float64) (*Quote, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	quote := &Quote{
		Amount:      amount,
		Hyperliquid: quoteBook(c.venues[domain.VenueHyperliquid].book, amount),
		Lighter:     quoteBook(c.venues[domain.VenueLighter].book, amount),
	}
	if c.market != nil {
		quote.Market = c.market.Key
	}
	return quote, nil
}

func quoteBook(book *domain.OrderBook, amount float64) *VenueQuote {
	if book == nil {
		return nil
	}

	quote := &VenueQuote{
		MaxBuy:  domain.MaxFillable(book, domain.SideBuy),
		MaxSell: domain.MaxFillable(book, domain.SideSell),
	}
	if fill, ok := domain.SimulateFill(book, amount, domain.SideBuy); ok {
		quote.Buy = fill
		quote.PartialBuy = fill.IsPartial(amount)
	}
	if fill, ok := domain.SimulateFill(book, amount, domain.SideSell); ok {
		quote.Sell = fill
		quote.PartialSell = fill.IsPartial(amount)
	}
	return quote
}

func (c *SyncCoordinator) TrackedAmount() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.trackedAmount
}
