package usecase

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/spooky-finn/liquidity-bridge/config"
	"github.com/spooky-finn/liquidity-bridge/domain"
	"github.com/spooky-finn/liquidity-bridge/helpers"
	"github.com/spooky-finn/liquidity-bridge/history"
	promclient "github.com/spooky-finn/liquidity-bridge/infrastructure/prometheus"
)

var logger = log.New(os.Stdout, "[sync-coordinator] ", log.LstdFlags)

const (
	spreadPlaces   = 2
	slippagePlaces = 4
)

type SyncCoordinatorConfig struct {
	Interval        time.Duration
	FetchTimeout    time.Duration
	TrackedAmount   float64
	HistoryCapacity int
}

// SyncCoordinator is the single timing authority. Every tick it pulls a fresh
// Hyperliquid book, reads the latest Lighter book and appends one record per
// series to the bounded history.
type SyncCoordinator struct {
	registry    *domain.MarketRegistry
	connManager domain.ConnManager
	metrics     *promclient.Metrics
	cfg         SyncCoordinatorConfig
	now         func() time.Time

	spreadHistory   *history.Ring[domain.SpreadRecord]
	slippageHistory *history.Ring[domain.SlippageRecord]

	// last successful snapshot venue fetch, kept across failed ticks
	snapshotSlot *domain.BookSlot

	ticking  atomic.Bool
	switchMu sync.Mutex

	mu            sync.RWMutex
	market        *domain.Market
	session       uuid.UUID
	stream        domain.ProviderStreamClient
	trackedAmount float64
	lastTick      time.Time
	venues        map[domain.Venue]*venueState
}

// venueState is what presentation sees of one venue, refreshed on ticks.
type venueState struct {
	book        *domain.OrderBook
	lastUpdated time.Time
	connected   bool
}

func NewSyncCoordinator(
	registry *domain.MarketRegistry,
	connManager domain.ConnManager,
	metrics *promclient.Metrics,
	cfg SyncCoordinatorConfig,
) *SyncCoordinator {
	return &SyncCoordinator{
		registry:        registry,
		connManager:     connManager,
		metrics:         metrics,
		cfg:             cfg,
		now:             time.Now,
		spreadHistory:   history.NewRing[domain.SpreadRecord](cfg.HistoryCapacity),
		slippageHistory: history.NewRing[domain.SlippageRecord](cfg.HistoryCapacity),
		snapshotSlot:    domain.NewBookSlot(),
		trackedAmount:   cfg.TrackedAmount,
		venues:          newVenueStates(),
	}
}

func newVenueStates() map[domain.Venue]*venueState {
	return map[domain.Venue]*venueState{
		domain.VenueHyperliquid: {},
		domain.VenueLighter:     {},
	}
}

// SelectMarket resets every piece of coordinator state, tears down the previous
// stream client and connects a new one for the market. It returns once the new
// client is connecting, so the next tick already sees the new market.
func (c *SyncCoordinator) SelectMarket(key string) error {
	market, err := c.registry.Resolve(key)
	if err != nil {
		return err
	}

	c.switchMu.Lock()
	defer c.switchMu.Unlock()

	session := uuid.New()

	c.mu.Lock()
	previous := c.stream
	c.session = session
	c.market = market
	c.stream = nil
	c.lastTick = time.Time{}
	c.venues = newVenueStates()
	c.snapshotSlot.Reset()
	c.spreadHistory.Reset()
	c.slippageHistory.Reset()

	if market.HasStreamVenue() {
		c.stream = c.connManager.NewStreamClient(*market.StreamMarketID, &streamObserver{
			coordinator: c,
			session:     session,
		})
	}
	next := c.stream
	c.mu.Unlock()

	c.metrics.ResetVenue(string(domain.VenueHyperliquid))
	c.metrics.ResetVenue(string(domain.VenueLighter))

	// outside c.mu: Disconnect waits for running listener callbacks, which take c.mu
	if previous != nil {
		previous.Disconnect()
	}
	if next != nil {
		if err := next.Connect(); err != nil {
			logger.Printf("failed to connect stream for %s: %s", market, err)
		}
	}

	logger.Printf("market %s selected (session %s)", market, session)
	return nil
}

// SetTrackedAmount changes the trade size used for the slippage series from the next tick on.
func (c *SyncCoordinator) SetTrackedAmount(amount float64) error {
	if err := validateAmount(amount); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.trackedAmount = amount
	return nil
}

// Run ticks once immediately and then on every interval until ctx is done.
// The stream client is disconnected on return.
func (c *SyncCoordinator) Run(ctx context.Context) error {
	defer c.Close()

	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	c.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.Tick(ctx)
		}
	}
}

// Close disconnects the current stream client.
func (c *SyncCoordinator) Close() {
	c.switchMu.Lock()
	defer c.switchMu.Unlock()

	c.mu.Lock()
	stream := c.stream
	c.stream = nil
	c.mu.Unlock()

	if stream != nil {
		stream.Disconnect()
	}
}

// Tick runs one reconciliation. A tick started while another one is still
// fetching is skipped.
func (c *SyncCoordinator) Tick(ctx context.Context) {
	if !c.ticking.CompareAndSwap(false, true) {
		logger.Printf("previous tick still running, skipped")
		return
	}
	defer c.ticking.Store(false)

	c.mu.RLock()
	market, session, stream, amount := c.market, c.session, c.stream, c.trackedAmount
	c.mu.RUnlock()

	if market == nil {
		return
	}

	// the ticker counts its interval from here, not from when the fetch returns
	started := c.now()

	var fetched *domain.OrderBook
	if market.HasSnapshotVenue() {
		fetchCtx, cancel := context.WithTimeout(ctx, c.cfg.FetchTimeout)
		fetched = c.connManager.SyncAPI().FetchSnapshot(fetchCtx, market.SnapshotSymbol)
		cancel()
	}

	var streamBook *domain.OrderBook
	if stream != nil {
		streamBook = stream.Latest()
	}

	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if session != c.session {
		logger.Printf("market switched during the tick, result for %s dropped", market)
		return
	}

	if fetched != nil {
		c.snapshotSlot.Store(fetched, now)
		c.venues[domain.VenueHyperliquid].connected = true
		c.metrics.SetConnected(string(domain.VenueHyperliquid), true)
	}
	snapshotBook, _ := c.snapshotSlot.Load()

	c.publish(domain.VenueHyperliquid, snapshotBook, now)
	c.publish(domain.VenueLighter, streamBook, now)

	spread, slippage := c.buildRecords(now, amount, snapshotBook, streamBook)
	if spread.HasData() {
		c.spreadHistory.Push(*spread)
	}
	if slippage.HasData() {
		c.slippageHistory.Push(*slippage)
	}

	c.lastTick = started
	c.metrics.IncTick()

	if config.DebugMode {
		logger.Printf("tick %s: hyperliquid %s | lighter %s", market, levelsLabel(snapshotBook), levelsLabel(streamBook))
	}
}

// publish exposes the book read this tick. Caller must hold c.mu.
func (c *SyncCoordinator) publish(venue domain.Venue, book *domain.OrderBook, now time.Time) {
	if book == nil {
		return
	}

	state := c.venues[venue]
	state.book = book
	state.lastUpdated = now

	c.metrics.ObserveBook(string(venue), book.SpreadBps(), book.MidPrice, len(book.Bids), len(book.Asks))
}

func (c *SyncCoordinator) buildRecords(
	now time.Time, amount float64, snapshotBook, streamBook *domain.OrderBook,
) (*domain.SpreadRecord, *domain.SlippageRecord) {
	label := helpers.WallClockLabel(now)
	spread := &domain.SpreadRecord{
		Time:        label,
		TimestampMs: now.UnixMilli(),
	}
	slippage := &domain.SlippageRecord{
		Time:        label,
		TimestampMs: now.UnixMilli(),
		Amount:      amount,
	}

	if snapshotBook != nil {
		spread.Hyperliquid = helpers.RoundPtr(snapshotBook.SpreadBps(), spreadPlaces)
		slippage.HyperliquidBuy = c.slippageAt(domain.VenueHyperliquid, snapshotBook, amount, domain.SideBuy)
		slippage.HyperliquidSell = c.slippageAt(domain.VenueHyperliquid, snapshotBook, amount, domain.SideSell)
		slippage.HyperliquidBidLevels = helpers.IntPtr(len(snapshotBook.Bids))
		slippage.HyperliquidAskLevels = helpers.IntPtr(len(snapshotBook.Asks))
	}

	if streamBook != nil {
		spread.Lighter = helpers.RoundPtr(streamBook.SpreadBps(), spreadPlaces)
		slippage.LighterBuy = c.slippageAt(domain.VenueLighter, streamBook, amount, domain.SideBuy)
		slippage.LighterSell = c.slippageAt(domain.VenueLighter, streamBook, amount, domain.SideSell)
		slippage.LighterBidLevels = helpers.IntPtr(len(streamBook.Bids))
		slippage.LighterAskLevels = helpers.IntPtr(len(streamBook.Asks))
	}

	return spread, slippage
}

func (c *SyncCoordinator) slippageAt(venue domain.Venue, book *domain.OrderBook, amount float64, side domain.Side) *float64 {
	fill, ok := domain.SimulateFill(book, amount, side)
	if !ok {
		return nil
	}

	c.metrics.ObserveSlippage(string(venue), string(side), fill.SlippagePercent)
	return helpers.RoundPtr(fill.SlippagePercent, slippagePlaces)
}

// setStreamConnected records a connectivity change reported by the stream client of session.
func (c *SyncCoordinator) setStreamConnected(session uuid.UUID, connected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if session != c.session {
		return
	}

	state := c.venues[domain.VenueLighter]
	if state.connected == connected {
		return
	}
	state.connected = connected
	c.metrics.SetConnected(string(domain.VenueLighter), connected)
}

// streamObserver binds stream callbacks to the market selection that created the client.
type streamObserver struct {
	coordinator *SyncCoordinator
	session     uuid.UUID
}

func (o *streamObserver) OnBookUpdated(_ *domain.OrderBook) {
	o.coordinator.setStreamConnected(o.session, true)
}

func (o *streamObserver) OnConnectivityLost(err error) {
	o.coordinator.setStreamConnected(o.session, false)
}

func (o *streamObserver) OnConnectivityClosed() {
	o.coordinator.setStreamConnected(o.session, false)
}

func validateAmount(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return fmt.Errorf("%w: %v", domain.ErrInvalidAmount, amount)
	}
	return nil
}

func levelsLabel(book *domain.OrderBook) string {
	if book == nil {
		return "-"
	}
	levels := helpers.IntToString(int64(len(book.Bids))) + "/" + helpers.IntToString(int64(len(book.Asks))) + " levels"
	return fmt.Sprintf("%s, best %g/%g", levels, book.BestBid().Price, book.BestAsk().Price)
}
