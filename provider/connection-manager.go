package provider

import (
	"log"
	"os"

	"github.com/spooky-finn/liquidity-bridge/config"
	"github.com/spooky-finn/liquidity-bridge/domain"
	promclient "github.com/spooky-finn/liquidity-bridge/infrastructure/prometheus"
	"github.com/spooky-finn/liquidity-bridge/provider/hyperliquid"
	"github.com/spooky-finn/liquidity-bridge/provider/lighter"
)

var logger = log.New(os.Stdout, "[conn-manager] ", log.LstdFlags)

// ConnectionManager owns the venue adapters: one shared Hyperliquid client and a
// factory for per-market Lighter stream clients.
type ConnectionManager struct {
	HyperliquidSyncAPI *hyperliquid.HyperliquidSyncAPI
	lighterOpts        lighter.Options
}

func NewConnectionManager(cfg *config.Config, metrics *promclient.Metrics) *ConnectionManager {
	return &ConnectionManager{
		HyperliquidSyncAPI: hyperliquid.NewHyperliquidSyncAPI(cfg.Hyperliquid.InfoURL, cfg.Hyperliquid.Timeout, metrics),
		lighterOpts: lighter.Options{
			Endpoint:             cfg.Lighter.StreamURL,
			HandshakeTimeout:     cfg.Lighter.HandshakeTimeout,
			ReadTimeout:          cfg.Lighter.ReadTimeout,
			ReconnectBaseDelay:   cfg.Lighter.ReconnectBaseDelay,
			MaxReconnectAttempts: cfg.Lighter.MaxReconnectAttempts,
			Metrics:              metrics,
		},
	}
}

func (cm *ConnectionManager) SyncAPI() domain.ProviderSyncAPI {
	return cm.HyperliquidSyncAPI
}

// NewStreamClient returns an unconnected client for the market, the caller owns its lifecycle.
func (cm *ConnectionManager) NewStreamClient(marketID int, listener domain.StreamListener) domain.ProviderStreamClient {
	if config.DebugMode {
		logger.Printf("new stream client for %s at %s", lighter.ChannelName(marketID), cm.lighterOpts.Endpoint)
	}
	return lighter.NewStreamClient(marketID, listener, cm.lighterOpts)
}

var _ domain.ConnManager = (*ConnectionManager)(nil)
