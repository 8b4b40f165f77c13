// Package config holds the bridge configuration and the static market table.
package config

import (
	"fmt"
	"time"

	"github.com/spooky-finn/liquidity-bridge/domain"
)

// DebugMode turns on per-frame and per-tick logging.
var DebugMode = false

type Config struct {
	Debug       bool                   `toml:"debug"`
	Hyperliquid HyperliquidConfig      `toml:"hyperliquid"`
	Lighter     LighterConfig          `toml:"lighter"`
	Sync        SyncConfig             `toml:"sync"`
	Server      ServerConfig           `toml:"server"`
	Markets     map[string]MarketEntry `toml:"markets" ignored:"true"`
}

type HyperliquidConfig struct {
	InfoURL string        `toml:"info_url" split_words:"true"`
	Timeout time.Duration `toml:"timeout"`
}

type LighterConfig struct {
	StreamURL            string        `toml:"stream_url" split_words:"true"`
	HandshakeTimeout     time.Duration `toml:"handshake_timeout" split_words:"true"`
	ReadTimeout          time.Duration `toml:"read_timeout" split_words:"true"`
	ReconnectBaseDelay   time.Duration `toml:"reconnect_base_delay" split_words:"true"`
	MaxReconnectAttempts int           `toml:"max_reconnect_attempts" split_words:"true"`
}

type SyncConfig struct {
	Interval        time.Duration `toml:"interval"`
	FetchTimeout    time.Duration `toml:"fetch_timeout" split_words:"true"`
	TrackedAmount   float64       `toml:"tracked_amount" split_words:"true"`
	HistoryCapacity int           `toml:"history_capacity" split_words:"true"`
	DefaultMarket   string        `toml:"default_market" split_words:"true"`
}

type ServerConfig struct {
	GRPCAddr string `toml:"grpc_addr" split_words:"true"`
	HTTPAddr string `toml:"http_addr" split_words:"true"`
}

// MarketEntry is one row of the market table. Lighter is nil when the market is not listed there.
type MarketEntry struct {
	Hyperliquid string `toml:"hyperliquid"`
	Lighter     *int   `toml:"lighter"`
}

func Defaults() Config {
	ethSpotLighterID := 2048

	return Config{
		Hyperliquid: HyperliquidConfig{
			InfoURL: "https://api.hyperliquid.xyz/info",
			Timeout: 5 * time.Second,
		},
		Lighter: LighterConfig{
			StreamURL:            "wss://mainnet.zklighter.elliot.ai/stream",
			HandshakeTimeout:     5 * time.Second,
			ReadTimeout:          60 * time.Second,
			ReconnectBaseDelay:   time.Second,
			MaxReconnectAttempts: 5,
		},
		Sync: SyncConfig{
			Interval:        2 * time.Second,
			FetchTimeout:    1500 * time.Millisecond,
			TrackedAmount:   5,
			HistoryCapacity: 14400, // 8 hours at 2s
			DefaultMarket:   "ETH_SPOT",
		},
		Server: ServerConfig{
			GRPCAddr: ":50051",
			HTTPAddr: ":8080",
		},
		Markets: map[string]MarketEntry{
			// UETH/USDC on Hyperliquid spot vs ETH/USDC on Lighter
			"ETH_SPOT": {Hyperliquid: "@151", Lighter: &ethSpotLighterID},
		},
	}
}

func (c *Config) Validate() error {
	if c.Hyperliquid.InfoURL == "" {
		return fmt.Errorf("hyperliquid.info_url must be set")
	}
	if c.Lighter.StreamURL == "" {
		return fmt.Errorf("lighter.stream_url must be set")
	}
	if c.Lighter.ReconnectBaseDelay <= 0 {
		return fmt.Errorf("lighter.reconnect_base_delay must be positive")
	}
	if c.Lighter.MaxReconnectAttempts < 0 {
		return fmt.Errorf("lighter.max_reconnect_attempts must not be negative")
	}
	if c.Sync.Interval <= 0 {
		return fmt.Errorf("sync.interval must be positive")
	}
	if c.Sync.FetchTimeout <= 0 {
		return fmt.Errorf("sync.fetch_timeout must be positive")
	}
	if c.Sync.TrackedAmount <= 0 {
		return fmt.Errorf("sync.tracked_amount: %w", domain.ErrInvalidAmount)
	}
	if c.Sync.HistoryCapacity <= 0 {
		return fmt.Errorf("sync.history_capacity must be positive")
	}
	if len(c.Markets) == 0 {
		return fmt.Errorf("at least one market must be configured")
	}

	registry, err := c.MarketRegistry()
	if err != nil {
		return err
	}
	if _, err := registry.Resolve(c.Sync.DefaultMarket); err != nil {
		return fmt.Errorf("sync.default_market: %w", err)
	}

	return nil
}

// MarketRegistry builds the domain market table from the configured entries.
func (c *Config) MarketRegistry() (*domain.MarketRegistry, error) {
	markets := make([]*domain.Market, 0, len(c.Markets))
	for key, entry := range c.Markets {
		m, err := domain.NewMarket(key, entry.Hyperliquid, entry.Lighter)
		if err != nil {
			return nil, fmt.Errorf("markets: %w", err)
		}
		markets = append(markets, m)
	}

	return domain.NewMarketRegistry(markets...), nil
}
