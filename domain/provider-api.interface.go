package domain

import "context"

// ProviderSyncAPI is a pull source: each call performs one request and returns
// a fresh book, or nil when the venue produced nothing usable.
type ProviderSyncAPI interface {
	FetchSnapshot(ctx context.Context, symbol string) *OrderBook
}

type ConnState int32

const (
	ConnStateDisconnected ConnState = iota
	ConnStateConnecting
	ConnStateSubscribed
	ConnStateClosed
)

func (s ConnState) String() string {
	switch s {
	case ConnStateDisconnected:
		return "disconnected"
	case ConnStateConnecting:
		return "connecting"
	case ConnStateSubscribed:
		return "subscribed"
	case ConnStateClosed:
		return "closed"
	}
	return "unknown"
}

// StreamListener receives the three signals of a push source.
// Callbacks run on the client's goroutines and must not block.
type StreamListener interface {
	OnBookUpdated(book *OrderBook)
	OnConnectivityLost(err error)
	OnConnectivityClosed()
}

// ProviderStreamClient is a push source owning its own latest-value slot.
type ProviderStreamClient interface {
	Connect() error
	Disconnect()
	State() ConnState
	Latest() *OrderBook
}
