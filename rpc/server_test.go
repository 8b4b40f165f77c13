package rpc

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/spooky-finn/liquidity-bridge/domain"
	"github.com/spooky-finn/liquidity-bridge/history"
	"github.com/spooky-finn/liquidity-bridge/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type fakeCoordinator struct {
	mu            sync.Mutex
	market        string
	trackedAmount float64
	depths        []int
	limits        []int
	spread        *history.Ring[domain.SpreadRecord]
}

func (f *fakeCoordinator) Status() *usecase.Status {
	f.mu.Lock()
	defer f.mu.Unlock()

	return &usecase.Status{
		Market:        f.market,
		Markets:       []string{"BTC_SPOT", "ETH_SPOT"},
		TrackedAmount: f.trackedAmount,
		NextTickInMs:  1500,
		Hyperliquid:   usecase.VenueStatus{Listed: true, Connected: true},
		Lighter:       usecase.VenueStatus{Listed: true, Loading: true, StreamState: "connecting"},
	}
}

func (f *fakeCoordinator) Books(depth int) *usecase.Books {
	f.mu.Lock()
	f.depths = append(f.depths, depth)
	f.mu.Unlock()

	book, _ := domain.NewOrderBook(
		[]domain.PriceLevel{{Price: 99, Size: 1}},
		[]domain.PriceLevel{{Price: 101, Size: 2}},
		time.Unix(1700000000, 0),
	)
	return &usecase.Books{Market: f.market, Hyperliquid: book}
}

func (f *fakeCoordinator) SpreadHistory(limit int) []domain.SpreadRecord {
	f.mu.Lock()
	f.limits = append(f.limits, limit)
	f.mu.Unlock()

	if f.spread != nil {
		return f.spread.Recent(limit)
	}
	v := 1.25
	return []domain.SpreadRecord{{Time: "12:00:00", TimestampMs: 1700000000000, Hyperliquid: &v}}
}

func (f *fakeCoordinator) SlippageHistory(limit int) []domain.SlippageRecord {
	f.mu.Lock()
	f.limits = append(f.limits, limit)
	f.mu.Unlock()

	return []domain.SlippageRecord{}
}

func (f *fakeCoordinator) Quote(amount float64) (*usecase.Quote, error) {
	return &usecase.Quote{
		Market: f.market,
		Amount: amount,
		Hyperliquid: &usecase.VenueQuote{
			Buy:    &domain.FillResult{TotalCost: 202, AveragePrice: 101, SlippagePercent: 1, FilledAmount: 2},
			MaxBuy: 2,
		},
	}, nil
}

func (f *fakeCoordinator) SelectMarket(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.market = key
	return nil
}

func (f *fakeCoordinator) SetTrackedAmount(amount float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.trackedAmount = amount
	return nil
}

func newTestClient(t *testing.T, coordinator usecase.MarketMonitor) *MarketMonitorClient {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	gs := NewGRPCServer(NewServer(coordinator, &ValidationServiceConfig{
		AvailableMarkets: []string{"BTC_SPOT", "ETH_SPOT"},
		MaxDepth:         10,
	}))
	go gs.Serve(lis)
	t.Cleanup(gs.Stop)

	conn, err := grpc.DialContext(context.Background(), "bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return NewMarketMonitorClient(conn)
}

func TestServer_GetStatus(t *testing.T) {
	coordinator := &fakeCoordinator{market: "ETH_SPOT", trackedAmount: 5}
	client := newTestClient(t, coordinator)

	resp, err := client.GetStatus(context.Background())
	require.NoError(t, err)

	fields := resp.AsMap()
	assert.Equal(t, "ETH_SPOT", fields["market"])
	assert.Equal(t, 5.0, fields["trackedAmount"])
	assert.Equal(t, 1500.0, fields["nextTickInMs"])
	assert.Equal(t, []any{"BTC_SPOT", "ETH_SPOT"}, fields["markets"])

	lighter := fields["lighter"].(map[string]any)
	assert.Equal(t, true, lighter["loading"])
	assert.Equal(t, "connecting", lighter["streamState"])
}

func TestServer_GetBooksClampsDepth(t *testing.T) {
	coordinator := &fakeCoordinator{market: "ETH_SPOT"}
	client := newTestClient(t, coordinator)

	resp, err := client.GetBooks(context.Background(), 3)
	require.NoError(t, err)
	_, err = client.GetBooks(context.Background(), 0)
	require.NoError(t, err)
	_, err = client.GetBooks(context.Background(), 500)
	require.NoError(t, err)

	assert.Equal(t, []int{3, 10, 10}, coordinator.depths)

	fields := resp.AsMap()
	hl := fields["hyperliquid"].(map[string]any)
	assert.Equal(t, 100.0, hl["midPrice"])
	assert.Nil(t, fields["lighter"])
}

func TestServer_History(t *testing.T) {
	coordinator := &fakeCoordinator{}
	client := newTestClient(t, coordinator)

	spread, err := client.GetSpreadHistory(context.Background(), 20)
	require.NoError(t, err)
	records := spread.AsMap()["records"].([]any)
	require.Len(t, records, 1)
	assert.Equal(t, 1.25, records[0].(map[string]any)["hyperliquidSpread"])

	slippage, err := client.GetSlippageHistory(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, slippage.AsMap()["records"])

	assert.Equal(t, []int{20, 0}, coordinator.limits)
}

func TestServer_HistoryReturnsWholeBuffer(t *testing.T) {
	spread := history.NewRing[domain.SpreadRecord](2000)
	for i := 0; i < 1500; i++ {
		v := float64(i)
		spread.Push(domain.SpreadRecord{TimestampMs: int64(i), Hyperliquid: &v})
	}
	client := newTestClient(t, &fakeCoordinator{spread: spread})

	resp, err := client.GetSpreadHistory(context.Background(), 0)
	require.NoError(t, err)
	records := resp.AsMap()["records"].([]any)
	require.Len(t, records, 1500)
	assert.Equal(t, 0.0, records[0].(map[string]any)["timestamp"])
	assert.Equal(t, 1499.0, records[1499].(map[string]any)["timestamp"])

	resp, err = client.GetSpreadHistory(context.Background(), 1200)
	require.NoError(t, err)
	assert.Len(t, resp.AsMap()["records"], 1200)
}

func TestServer_Quote(t *testing.T) {
	client := newTestClient(t, &fakeCoordinator{market: "ETH_SPOT"})

	resp, err := client.Quote(context.Background(), 2)
	require.NoError(t, err)

	hl := resp.AsMap()["hyperliquid"].(map[string]any)
	assert.Equal(t, 101.0, hl["buy"].(map[string]any)["averagePrice"])
	assert.Nil(t, hl["sell"])

	_, err = client.Quote(context.Background(), -1)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestServer_SelectMarket(t *testing.T) {
	coordinator := &fakeCoordinator{market: "ETH_SPOT"}
	client := newTestClient(t, coordinator)

	require.NoError(t, client.SelectMarket(context.Background(), "btc_spot"))
	assert.Equal(t, "btc_spot", coordinator.market)

	err := client.SelectMarket(context.Background(), "DOGE_SPOT")
	assert.Equal(t, codes.NotFound, status.Code(err))
	assert.Equal(t, "btc_spot", coordinator.market)
}

func TestServer_SetTrackedAmount(t *testing.T) {
	coordinator := &fakeCoordinator{}
	client := newTestClient(t, coordinator)

	require.NoError(t, client.SetTrackedAmount(context.Background(), 2.5))
	assert.Equal(t, 2.5, coordinator.trackedAmount)

	err := client.SetTrackedAmount(context.Background(), 0)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Equal(t, 2.5, coordinator.trackedAmount)
}

func TestToStatusError(t *testing.T) {
	assert.Equal(t, codes.NotFound, status.Code(toStatusError(domain.ErrUnknownMarket)))
	assert.Equal(t, codes.InvalidArgument, status.Code(toStatusError(domain.ErrInvalidAmount)))
	assert.Equal(t, codes.Internal, status.Code(toStatusError(assert.AnError)))
}
