package domain

import (
	"fmt"
	"sort"
	"strings"
)

// Market maps one market key to the identifiers each venue uses for it.
// An empty SnapshotSymbol or a nil StreamMarketID means the venue does not list the market.
type Market struct {
	Key            string `json:"key"`
	SnapshotSymbol string `json:"snapshotSymbol,omitempty"`
	StreamMarketID *int   `json:"streamMarketId,omitempty"`
}

func NewMarket(key string, snapshotSymbol string, streamMarketID *int) (*Market, error) {
	key = strings.ToUpper(strings.TrimSpace(key))
	if key == "" {
		return nil, fmt.Errorf("market key must not be empty")
	}
	if snapshotSymbol == "" && streamMarketID == nil {
		return nil, fmt.Errorf("market %s is not listed on any venue", key)
	}
	if streamMarketID != nil && *streamMarketID < 0 {
		return nil, fmt.Errorf("market %s: stream market id must not be negative", key)
	}

	return &Market{
		Key:            key,
		SnapshotSymbol: snapshotSymbol,
		StreamMarketID: streamMarketID,
	}, nil
}

func (m *Market) HasSnapshotVenue() bool {
	return m.SnapshotSymbol != ""
}

func (m *Market) HasStreamVenue() bool {
	return m.StreamMarketID != nil
}

func (m *Market) String() string {
	return m.Key
}

// MarketRegistry is the static market table loaded from configuration.
type MarketRegistry struct {
	markets map[string]*Market
}

func NewMarketRegistry(markets ...*Market) *MarketRegistry {
	r := &MarketRegistry{
		markets: make(map[string]*Market, len(markets)),
	}
	for _, m := range markets {
		r.markets[m.Key] = m
	}
	return r
}

func (r *MarketRegistry) Resolve(key string) (*Market, error) {
	m, ok := r.markets[strings.ToUpper(strings.TrimSpace(key))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMarket, key)
	}
	return m, nil
}

func (r *MarketRegistry) Keys() []string {
	keys := make([]string, 0, len(r.markets))
	for k := range r.markets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
