package domain

import "errors"

var (
	ErrEmptySide        = errors.New("order book side is empty")
	ErrInvalidMidPrice  = errors.New("order book mid price is not positive")
	ErrInvalidLevel     = errors.New("invalid price level")
	ErrMalformedPayload = errors.New("malformed payload")

	ErrUnknownMarket = errors.New("unknown market")
	ErrInvalidAmount = errors.New("trade amount must be positive")

	// The stream client was shut down by its owner and will not reconnect.
	ErrClientClosed = errors.New("stream client is closed")
)
