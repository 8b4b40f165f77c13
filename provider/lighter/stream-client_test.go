package lighter

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spooky-finn/liquidity-bridge/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const updateFrame = `{"type":"update/order_book","channel":"order_book/2048","order_book":{"asks":[{"price":"3001","size":"1"}],"bids":[{"price":"2999","size":"1"}],"offset":43}}`

type recordingListener struct {
	mu     sync.Mutex
	books  []*domain.OrderBook
	lost   []error
	closed int
}

func (l *recordingListener) OnBookUpdated(book *domain.OrderBook) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.books = append(l.books, book)
}

func (l *recordingListener) OnConnectivityLost(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lost = append(l.lost, err)
}

func (l *recordingListener) OnConnectivityClosed() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed++
}

func (l *recordingListener) counts() (books, lost, closed int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.books), len(l.lost), l.closed
}

func newStreamServer(t *testing.T, handler func(conn *websocket.Conn)) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handler(conn)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// expectSubscribe reads the first client message and sends the initial snapshot.
func expectSubscribe(t *testing.T, conn *websocket.Conn) bool {
	var req SubscribeRequest
	if err := conn.ReadJSON(&req); err != nil {
		return false
	}
	assert.Equal(t, NewSubscribeRequest(2048), req)

	return conn.WriteMessage(websocket.TextMessage, []byte(subscribedFrame)) == nil
}

// drain blocks until the client goes away.
func drain(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func newTestClient(t *testing.T, endpoint string, listener domain.StreamListener, opts Options) *StreamClient {
	t.Helper()

	opts.Endpoint = endpoint
	if opts.ReconnectBaseDelay == 0 {
		opts.ReconnectBaseDelay = 5 * time.Millisecond
	}
	if opts.MaxReconnectAttempts == 0 {
		opts.MaxReconnectAttempts = 3
	}

	client := NewStreamClient(2048, listener, opts)
	t.Cleanup(client.Disconnect)
	return client
}

func TestStreamClient_SubscribesAndPublishesBooks(t *testing.T) {
	srv := newStreamServer(t, func(conn *websocket.Conn) {
		if !expectSubscribe(t, conn) {
			return
		}
		conn.WriteMessage(websocket.TextMessage, []byte(updateFrame))
		drain(conn)
	})

	listener := &recordingListener{}
	client := newTestClient(t, wsURL(srv), listener, Options{})

	assert.Equal(t, domain.ConnStateDisconnected, client.State())
	assert.Nil(t, client.Latest())

	require.NoError(t, client.Connect())
	// a second Connect while connecting is a no-op
	require.NoError(t, client.Connect())

	assert.Eventually(t, func() bool {
		books, _, _ := listener.counts()
		return books == 2
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, domain.ConnStateSubscribed, client.State())
	require.NotNil(t, client.Latest())
	assert.Equal(t, int64(43), client.Latest().LastUpdateID)
	assert.Equal(t, 3000.0, client.Latest().MidPrice)
}

func TestStreamClient_DropsInvalidFrames(t *testing.T) {
	frames := []string{
		`not json`,
		`{"type":"pong"}`,
		`{"type":"update/order_book","channel":"order_book/2048","order_book":{"asks":[{"price":"1","size":"1"}],"bids":[{"price":"0","size":"1"}]}}`,
		`{"type":"update/order_book","channel":"order_book/2048","order_book":{"asks":[],"bids":[{"price":"1","size":"1"}]}}`,
	}
	srv := newStreamServer(t, func(conn *websocket.Conn) {
		if !expectSubscribe(t, conn) {
			return
		}
		for _, frame := range frames {
			conn.WriteMessage(websocket.TextMessage, []byte(frame))
		}
		conn.WriteMessage(websocket.TextMessage, []byte(updateFrame))
		drain(conn)
	})

	listener := &recordingListener{}
	client := newTestClient(t, wsURL(srv), listener, Options{})
	require.NoError(t, client.Connect())

	assert.Eventually(t, func() bool {
		books, _, _ := listener.counts()
		return books == 2
	}, 2*time.Second, 5*time.Millisecond)

	// the bad frames neither reached the listener nor replaced the latest book
	assert.Equal(t, int64(43), client.Latest().LastUpdateID)
	_, lost, closed := listener.counts()
	assert.Zero(t, lost)
	assert.Zero(t, closed)
	assert.Equal(t, domain.ConnStateSubscribed, client.State())
}

func TestStreamClient_ReconnectsAfterVenueClose(t *testing.T) {
	var mu sync.Mutex
	connections := 0

	srv := newStreamServer(t, func(conn *websocket.Conn) {
		mu.Lock()
		connections++
		n := connections
		mu.Unlock()

		if !expectSubscribe(t, conn) {
			return
		}
		if n == 1 {
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
			return
		}
		drain(conn)
	})

	listener := &recordingListener{}
	client := newTestClient(t, wsURL(srv), listener, Options{})
	require.NoError(t, client.Connect())

	assert.Eventually(t, func() bool {
		books, _, closed := listener.counts()
		return books == 2 && closed == 1
	}, 2*time.Second, 5*time.Millisecond)

	assert.Eventually(t, func() bool {
		return client.State() == domain.ConnStateSubscribed
	}, time.Second, 5*time.Millisecond)

	// a clean close is not reported as an error, the counter resets once subscribed again
	_, lost, _ := listener.counts()
	assert.Zero(t, lost)
	assert.Equal(t, 0, client.Attempts())

	mu.Lock()
	assert.Equal(t, 2, connections)
	mu.Unlock()
}

func TestStreamClient_GivesUpAfterMaxAttempts(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := wsURL(srv)
	srv.Close()

	listener := &recordingListener{}
	client := newTestClient(t, endpoint, listener, Options{
		ReconnectBaseDelay:   time.Millisecond,
		MaxReconnectAttempts: 3,
	})
	require.NoError(t, client.Connect())

	// the first attempt plus three reconnects
	assert.Eventually(t, func() bool {
		_, lost, _ := listener.counts()
		return lost == 4
	}, 2*time.Second, 5*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	_, lost, closed := listener.counts()
	assert.Equal(t, 4, lost)
	assert.Equal(t, 4, closed)
	assert.Equal(t, domain.ConnStateDisconnected, client.State())
	assert.Equal(t, 3, client.Attempts())

	// an explicit Connect starts over with a fresh budget
	require.NoError(t, client.Connect())
	assert.Eventually(t, func() bool {
		_, lost, _ := listener.counts()
		return lost == 8
	}, 2*time.Second, 5*time.Millisecond)
}

func TestStreamClient_ReadTimeoutCountsAsLoss(t *testing.T) {
	srv := newStreamServer(t, func(conn *websocket.Conn) {
		var req SubscribeRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		drain(conn)
	})

	listener := &recordingListener{}
	client := newTestClient(t, wsURL(srv), listener, Options{
		ReadTimeout:          30 * time.Millisecond,
		ReconnectBaseDelay:   time.Second,
		MaxReconnectAttempts: 1,
	})
	require.NoError(t, client.Connect())

	assert.Eventually(t, func() bool {
		_, lost, _ := listener.counts()
		return lost == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, domain.ConnStateDisconnected, client.State())
}

func TestStreamClient_DisconnectStopsEverything(t *testing.T) {
	srv := newStreamServer(t, func(conn *websocket.Conn) {
		if !expectSubscribe(t, conn) {
			return
		}
		ticker := time.NewTicker(2 * time.Millisecond)
		defer ticker.Stop()
		for range ticker.C {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(updateFrame)); err != nil {
				return
			}
		}
	})

	listener := &recordingListener{}
	client := newTestClient(t, wsURL(srv), listener, Options{})
	require.NoError(t, client.Connect())

	assert.Eventually(t, func() bool {
		books, _, _ := listener.counts()
		return books > 3
	}, 2*time.Second, 5*time.Millisecond)

	client.Disconnect()
	books, lost, closed := listener.counts()

	time.Sleep(50 * time.Millisecond)
	booksAfter, lostAfter, closedAfter := listener.counts()
	assert.Equal(t, books, booksAfter)
	assert.Equal(t, lost, lostAfter)
	assert.Equal(t, closed, closedAfter)

	assert.Equal(t, domain.ConnStateClosed, client.State())
	assert.ErrorIs(t, client.Connect(), domain.ErrClientClosed)

	// idempotent
	client.Disconnect()
}
