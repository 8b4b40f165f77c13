package lighter

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spooky-finn/liquidity-bridge/config"
	"github.com/spooky-finn/liquidity-bridge/domain"
	"github.com/spooky-finn/liquidity-bridge/helpers"
	promclient "github.com/spooky-finn/liquidity-bridge/infrastructure/prometheus"
)

var logger = log.New(os.Stdout, "[lighter] ", log.LstdFlags)

const (
	DefaultStreamEndpoint = "wss://mainnet.zklighter.elliot.ai/stream"

	defaultHandshakeTimeout     = 5 * time.Second
	defaultReadTimeout          = 60 * time.Second
	defaultReconnectBaseDelay   = time.Second
	defaultMaxReconnectAttempts = 5

	writeWait = 10 * time.Second
)

type Options struct {
	Endpoint         string
	HandshakeTimeout time.Duration
	// ReadTimeout is the longest silence tolerated before the connection is considered lost. 0 disables it.
	ReadTimeout time.Duration
	// Attempt n waits ReconnectBaseDelay * n.
	ReconnectBaseDelay   time.Duration
	MaxReconnectAttempts int
	Metrics              *promclient.Metrics
}

func (o Options) withDefaults() Options {
	if o.Endpoint == "" {
		o.Endpoint = DefaultStreamEndpoint
	}
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = defaultHandshakeTimeout
	}
	if o.ReadTimeout < 0 {
		o.ReadTimeout = defaultReadTimeout
	}
	if o.ReconnectBaseDelay <= 0 {
		o.ReconnectBaseDelay = defaultReconnectBaseDelay
	}
	if o.MaxReconnectAttempts < 0 {
		o.MaxReconnectAttempts = defaultMaxReconnectAttempts
	}
	return o
}

// StreamClient keeps one market's order book subscription alive and holds the
// latest valid book it received.
//
// State machine: disconnected -> connecting -> subscribed -> disconnected (on close
// or error) -> connecting (after backoff) ... Disconnect moves it to closed for good.
// Every connection attempt belongs to a session; work left over from an older
// session (a late frame, a fired timer, a finished dial) is discarded.
type StreamClient struct {
	marketID int
	opts     Options
	dialer   *websocket.Dialer
	listener domain.StreamListener
	latest   *domain.BookSlot
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu             sync.Mutex
	state          domain.ConnState
	conn           *websocket.Conn
	session        uint64
	attempts       int
	reconnectTimer *time.Timer

	// held while a listener callback runs, Disconnect waits on it
	notifyMu sync.Mutex
}

func NewStreamClient(marketID int, listener domain.StreamListener, opts Options) *StreamClient {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	return &StreamClient{
		marketID: marketID,
		opts:     opts,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: opts.HandshakeTimeout,
		},
		listener: listener,
		latest:   domain.NewBookSlot(),
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
		state:    domain.ConnStateDisconnected,
	}
}

// Connect enters the state machine. It is a no-op while connecting or subscribed,
// and resets the reconnection attempt counter otherwise.
func (c *StreamClient) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case domain.ConnStateClosed:
		return domain.ErrClientClosed
	case domain.ConnStateConnecting, domain.ConnStateSubscribed:
		return nil
	}

	c.stopReconnectTimer()
	c.attempts = 0
	c.session++
	c.state = domain.ConnStateConnecting

	go c.dial(c.session)
	return nil
}

// Disconnect closes the client for good: the pending reconnect is cancelled, the
// transport is closed and no listener callback runs once it returns.
// It must not be called from a listener callback.
func (c *StreamClient) Disconnect() {
	c.mu.Lock()
	if c.state == domain.ConnStateClosed {
		c.mu.Unlock()
		return
	}

	c.state = domain.ConnStateClosed
	c.session++
	c.stopReconnectTimer()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	c.cancel()

	if conn != nil {
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait),
		)
		_ = conn.Close()
	}

	// wait out a callback that was already running
	c.notifyMu.Lock()
	c.notifyMu.Unlock()

	logger.Printf("disconnected from %s", ChannelName(c.marketID))
}

func (c *StreamClient) State() domain.ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Latest returns the most recent valid book, nil before the first one.
func (c *StreamClient) Latest() *domain.OrderBook {
	book, _ := c.latest.Load()
	return book
}

// Attempts is the number of reconnects scheduled since the last successful subscription.
func (c *StreamClient) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.attempts
}

func (c *StreamClient) dial(session uint64) {
	ctx, cancel := context.WithTimeout(c.ctx, c.opts.HandshakeTimeout)
	conn, _, err := c.dialer.DialContext(ctx, c.opts.Endpoint, nil)
	cancel()

	c.mu.Lock()
	if !c.isCurrent(session) {
		c.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return
	}

	if err != nil {
		c.mu.Unlock()
		c.handleDisconnect(session, fmt.Errorf("dial %s: %w", c.opts.Endpoint, err))
		return
	}

	c.conn = conn
	c.state = domain.ConnStateSubscribed
	c.attempts = 0

	req := NewSubscribeRequest(c.marketID)
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	err = conn.WriteJSON(req)
	c.mu.Unlock()

	if err != nil {
		c.handleDisconnect(session, fmt.Errorf("failed to send subscribe msg for channel=%s: %w", ChannelName(c.marketID), err))
		return
	}

	logger.Printf("subscribing to the %s", helpers.ToJsonString(req))
	go c.readLoop(session, conn)
}

func (c *StreamClient) readLoop(session uint64, conn *websocket.Conn) {
	for {
		if c.opts.ReadTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(c.opts.ReadTimeout))
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			c.handleDisconnect(session, err)
			return
		}

		c.handleFrame(session, msg)
	}
}

func (c *StreamClient) handleFrame(session uint64, msg []byte) {
	book, err := ParseFrame(msg, c.marketID, c.now())
	if err != nil {
		if errors.Is(err, ErrNotOrderBookFrame) {
			c.opts.Metrics.IncStreamFrame("ignored")
			return
		}

		c.opts.Metrics.IncStreamFrame("dropped")
		logger.Printf("frame dropped: %s", err)
		return
	}

	delivered := c.deliver(session, func() {
		c.latest.Store(book, book.ObservedAt)
		c.listener.OnBookUpdated(book)
	})
	if !delivered {
		return
	}

	c.opts.Metrics.IncStreamFrame("accepted")
	if config.DebugMode {
		logger.Printf("book %s: %d bids / %d asks, offset=%d", ChannelName(c.marketID), len(book.Bids), len(book.Asks), book.LastUpdateID)
	}
}

// handleDisconnect notifies the listener and then schedules the next attempt.
func (c *StreamClient) handleDisconnect(session uint64, cause error) {
	c.mu.Lock()
	if !c.isCurrent(session) {
		c.mu.Unlock()
		return
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.state = domain.ConnStateDisconnected
	c.mu.Unlock()

	clean := websocket.IsCloseError(cause, websocket.CloseNormalClosure, websocket.CloseGoingAway)
	if clean {
		logger.Printf("connection to %s closed by the venue", ChannelName(c.marketID))
	} else {
		logger.Printf("connection to %s lost: %s", ChannelName(c.marketID), cause)
	}

	c.deliver(session, func() {
		if !clean {
			c.listener.OnConnectivityLost(cause)
		}
		c.listener.OnConnectivityClosed()
	})

	c.scheduleReconnect(session)
}

func (c *StreamClient) scheduleReconnect(session uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isCurrent(session) || c.state != domain.ConnStateDisconnected {
		return
	}

	if c.attempts >= c.opts.MaxReconnectAttempts {
		logger.Printf("giving up on %s after %d reconnect attempts", ChannelName(c.marketID), c.attempts)
		return
	}

	c.attempts++
	delay := c.opts.ReconnectBaseDelay * time.Duration(c.attempts)
	c.opts.Metrics.IncReconnect()
	logger.Printf("reconnecting to %s in %s (%d/%d)", ChannelName(c.marketID), delay, c.attempts, c.opts.MaxReconnectAttempts)

	c.reconnectTimer = time.AfterFunc(delay, func() {
		c.redial(session)
	})
}

func (c *StreamClient) redial(session uint64) {
	c.mu.Lock()
	if !c.isCurrent(session) || c.state != domain.ConnStateDisconnected {
		c.mu.Unlock()
		return
	}
	c.reconnectTimer = nil
	c.state = domain.ConnStateConnecting
	c.mu.Unlock()

	c.dial(session)
}

// deliver runs fn unless the session is over. Caller must not hold c.mu.
func (c *StreamClient) deliver(session uint64, fn func()) bool {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	live := c.isCurrent(session)
	c.mu.Unlock()

	if !live {
		return false
	}

	fn()
	return true
}

// isCurrent reports whether work from session may still touch the client. Caller must hold c.mu.
func (c *StreamClient) isCurrent(session uint64) bool {
	return session == c.session && c.state != domain.ConnStateClosed
}

// stopReconnectTimer cancels a scheduled reconnect. Caller must hold c.mu.
func (c *StreamClient) stopReconnectTimer() {
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
}
