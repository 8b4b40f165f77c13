package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "bridge.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, cfg.Sync.Interval)
	assert.Equal(t, 14400, cfg.Sync.HistoryCapacity)
	assert.Equal(t, 5.0, cfg.Sync.TrackedAmount)
	assert.Equal(t, 5, cfg.Lighter.MaxReconnectAttempts)

	registry, err := cfg.MarketRegistry()
	require.NoError(t, err)
	m, err := registry.Resolve("ETH_SPOT")
	require.NoError(t, err)
	assert.Equal(t, "@151", m.SnapshotSymbol)
	assert.Equal(t, 2048, *m.StreamMarketID)
}

func TestLoad_File(t *testing.T) {
	path := writeConfigFile(t, `
debug = true

[sync]
interval = "500ms"
tracked_amount = 2.5
default_market = "BTC_PERP"

[lighter]
max_reconnect_attempts = 3

[markets.BTC_PERP]
hyperliquid = "BTC"
lighter = 1

[markets.HYPE]
hyperliquid = "HYPE"
`)
	t.Cleanup(func() { DebugMode = false })

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Debug)
	assert.True(t, DebugMode)
	assert.Equal(t, 500*time.Millisecond, cfg.Sync.Interval)
	assert.Equal(t, 2.5, cfg.Sync.TrackedAmount)
	assert.Equal(t, 3, cfg.Lighter.MaxReconnectAttempts)
	// untouched keys keep their defaults
	assert.Equal(t, 1500*time.Millisecond, cfg.Sync.FetchTimeout)

	// markets from the file replace the default table
	assert.Len(t, cfg.Markets, 2)
	assert.NotContains(t, cfg.Markets, "ETH_SPOT")
	assert.Nil(t, cfg.Markets["HYPE"].Lighter)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LIQBRIDGE_SYNC_INTERVAL", "3s")
	t.Setenv("LIQBRIDGE_SYNC_TRACKED_AMOUNT", "10")
	t.Setenv("LIQBRIDGE_LIGHTER_STREAM_URL", "ws://localhost:9999/stream")
	t.Setenv("LIQBRIDGE_SERVER_GRPC_ADDR", ":6000")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, cfg.Sync.Interval)
	assert.Equal(t, 10.0, cfg.Sync.TrackedAmount)
	assert.Equal(t, "ws://localhost:9999/stream", cfg.Lighter.StreamURL)
	assert.Equal(t, ":6000", cfg.Server.GRPCAddr)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"UnknownDefaultMarket", "[sync]\ndefault_market = \"NOPE\"\n"},
		{"NonPositiveAmount", "[sync]\ntracked_amount = 0.0\n"},
		{"ZeroInterval", "[sync]\ninterval = \"0s\"\n"},
		{"MarketWithoutVenue", "[sync]\ndefault_market = \"X\"\n[markets.X]\nhyperliquid = \"\"\n"},
		{"BrokenToml", "[sync\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfigFile(t, tt.content))
			assert.Error(t, err)
		})
	}
}
