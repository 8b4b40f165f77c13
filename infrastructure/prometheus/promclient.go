package promclient

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the bridge's collector set. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	SpreadBps       *prometheus.GaugeVec
	SlippagePercent *prometheus.GaugeVec
	MidPrice        *prometheus.GaugeVec
	BookLevels      *prometheus.GaugeVec
	VenueConnected  *prometheus.GaugeVec

	SyncTicks        prometheus.Counter
	SnapshotFetches  *prometheus.CounterVec
	StreamFrames     *prometheus.CounterVec
	StreamReconnects prometheus.Counter
	HTTPRequests     *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		SpreadBps: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "liquidity_bridge_spread_bps",
			Help: "latest spread of the venue book in basis points",
		}, []string{"venue"}),
		SlippagePercent: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "liquidity_bridge_slippage_percent",
			Help: "simulated slippage at the tracked amount",
		}, []string{"venue", "side"}),
		MidPrice: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "liquidity_bridge_mid_price",
			Help: "latest mid price of the venue book",
		}, []string{"venue"}),
		BookLevels: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "liquidity_bridge_book_levels",
			Help: "number of price levels in the latest venue book",
		}, []string{"venue", "side"}),
		VenueConnected: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "liquidity_bridge_venue_connected",
			Help: "1 when the venue is delivering data for the selected market",
		}, []string{"venue"}),

		SyncTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "liquidity_bridge_sync_ticks_total",
			Help: "coordinator ticks executed",
		}),
		SnapshotFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "liquidity_bridge_snapshot_fetch_total",
			Help: "snapshot venue fetches by result",
		}, []string{"result"}),
		StreamFrames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "liquidity_bridge_stream_frames_total",
			Help: "stream venue frames by result",
		}, []string{"result"}),
		StreamReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "liquidity_bridge_stream_reconnects_total",
			Help: "scheduled stream reconnection attempts",
		}),
		HTTPRequests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "liquidity_bridge_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"method", "path", "status"}),
	}

	m.registry.MustRegister(
		m.SpreadBps,
		m.SlippagePercent,
		m.MidPrice,
		m.BookLevels,
		m.VenueConnected,
		m.SyncTicks,
		m.SnapshotFetches,
		m.StreamFrames,
		m.StreamReconnects,
		m.HTTPRequests,
		collectors.NewGoCollector(),
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveBook(venue string, spreadBps, midPrice float64, bidLevels, askLevels int) {
	if m == nil {
		return
	}
	m.SpreadBps.WithLabelValues(venue).Set(spreadBps)
	m.MidPrice.WithLabelValues(venue).Set(midPrice)
	m.BookLevels.WithLabelValues(venue, "bid").Set(float64(bidLevels))
	m.BookLevels.WithLabelValues(venue, "ask").Set(float64(askLevels))
}

func (m *Metrics) ObserveSlippage(venue, side string, percent float64) {
	if m == nil {
		return
	}
	m.SlippagePercent.WithLabelValues(venue, side).Set(percent)
}

func (m *Metrics) SetConnected(venue string, connected bool) {
	if m == nil {
		return
	}
	v := 0.0
	if connected {
		v = 1
	}
	m.VenueConnected.WithLabelValues(venue).Set(v)
}

// ResetVenue drops the per-venue series, used when the selected market changes.
func (m *Metrics) ResetVenue(venue string) {
	if m == nil {
		return
	}
	m.SpreadBps.DeleteLabelValues(venue)
	m.MidPrice.DeleteLabelValues(venue)
	for _, side := range []string{"bid", "ask"} {
		m.BookLevels.DeleteLabelValues(venue, side)
	}
	for _, side := range []string{"buy", "sell"} {
		m.SlippagePercent.DeleteLabelValues(venue, side)
	}
	m.SetConnected(venue, false)
}

func (m *Metrics) IncTick() {
	if m == nil {
		return
	}
	m.SyncTicks.Inc()
}

func (m *Metrics) IncSnapshotFetch(result string) {
	if m == nil {
		return
	}
	m.SnapshotFetches.WithLabelValues(result).Inc()
}

func (m *Metrics) IncStreamFrame(result string) {
	if m == nil {
		return
	}
	m.StreamFrames.WithLabelValues(result).Inc()
}

func (m *Metrics) IncReconnect() {
	if m == nil {
		return
	}
	m.StreamReconnects.Inc()
}

func (m *Metrics) ObserveHTTP(method, path, status string, seconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, path, status).Observe(seconds)
}
