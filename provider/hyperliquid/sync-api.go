package hyperliquid

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/spooky-finn/liquidity-bridge/config"
	"github.com/spooky-finn/liquidity-bridge/domain"
	promclient "github.com/spooky-finn/liquidity-bridge/infrastructure/prometheus"
)

var logger = log.New(os.Stdout, "[hyperliquid] ", log.LstdFlags)

const DefaultInfoEndpoint = "https://api.hyperliquid.xyz/info"

var ErrUnexpectedStatus = errors.New("unexpected response status")

type L2BookRequest struct {
	Type string `json:"type"`
	Coin string `json:"coin"`
}

type L2Level struct {
	Px string `json:"px"`
	Sz string `json:"sz"`
	N  int    `json:"n"`
}

// L2BookResponse carries levels as [bids, asks].
type L2BookResponse struct {
	Coin   string      `json:"coin"`
	Time   int64       `json:"time"`
	Levels [][]L2Level `json:"levels"`
}

// HyperliquidSyncAPI is the pull source: one POST to the info endpoint per snapshot.
type HyperliquidSyncAPI struct {
	endpoint   string
	httpClient *http.Client
	metrics    *promclient.Metrics
	now        func() time.Time
}

func NewHyperliquidSyncAPI(endpoint string, timeout time.Duration, metrics *promclient.Metrics) *HyperliquidSyncAPI {
	if endpoint == "" {
		endpoint = DefaultInfoEndpoint
	}

	return &HyperliquidSyncAPI{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		metrics:    metrics,
		now:        time.Now,
	}
}

// FetchSnapshot returns the current book for coin, or nil on any failure.
// Failures are logged and never retried here, the next tick is the retry.
func (api *HyperliquidSyncAPI) FetchSnapshot(ctx context.Context, coin string) *domain.OrderBook {
	book, err := api.OrderBookSnapshot(ctx, coin)
	if err != nil {
		api.metrics.IncSnapshotFetch(fetchResult(err))
		logger.Printf("snapshot for %s dropped: %s", coin, err)
		return nil
	}

	api.metrics.IncSnapshotFetch("ok")
	if config.DebugMode {
		logger.Printf("snapshot for %s: %d bids / %d asks, mid=%v", coin, len(book.Bids), len(book.Asks), book.MidPrice)
	}

	return book
}

func (api *HyperliquidSyncAPI) OrderBookSnapshot(ctx context.Context, coin string) (*domain.OrderBook, error) {
	body, err := json.Marshal(L2BookRequest{Type: "l2Book", Coin: coin})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, api.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build l2Book request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := api.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get order book snapshot: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d, data: %s", ErrUnexpectedStatus, res.StatusCode, raw)
	}

	data := &L2BookResponse{}
	if err = json.Unmarshal(raw, data); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal response body: %s, data: %s", domain.ErrMalformedPayload, err, raw)
	}

	return api.toOrderBook(data)
}

func (api *HyperliquidSyncAPI) toOrderBook(data *L2BookResponse) (*domain.OrderBook, error) {
	if len(data.Levels) != 2 {
		return nil, fmt.Errorf("%w: expected [bids, asks] levels, got %d arrays", domain.ErrMalformedPayload, len(data.Levels))
	}

	bids, err := parseLevels(data.Levels[0])
	if err != nil {
		return nil, err
	}
	asks, err := parseLevels(data.Levels[1])
	if err != nil {
		return nil, err
	}

	// the venue time is not reliable enough to compare with the stream venue
	return domain.NewOrderBook(bids, asks, api.now())
}

func parseLevels(levels []L2Level) ([]domain.PriceLevel, error) {
	result := make([]domain.PriceLevel, len(levels))
	for i, l := range levels {
		level, err := domain.ParsePriceLevel(l.Px, l.Sz)
		if err != nil {
			return nil, err
		}
		result[i] = level
	}
	return result, nil
}

func fetchResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrMalformedPayload), errors.Is(err, domain.ErrInvalidLevel):
		return "malformed"
	case errors.Is(err, domain.ErrEmptySide), errors.Is(err, domain.ErrInvalidMidPrice):
		return "invalid"
	case errors.Is(err, ErrUnexpectedStatus):
		return "status"
	}
	return "transport"
}
