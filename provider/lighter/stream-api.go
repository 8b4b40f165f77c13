package lighter

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spooky-finn/liquidity-bridge/domain"
)

const (
	MessageTypeSubscribed = "subscribed/order_book"
	MessageTypeUpdate     = "update/order_book"
	MessageTypePong       = "pong"
)

// ErrNotOrderBookFrame marks frames the client has no use for (pongs, acks, other channels).
var ErrNotOrderBookFrame = errors.New("not an order book frame")

type SubscribeRequest struct {
	Type    string `json:"type"`
	Channel string `json:"channel"`
}

type OrderLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

type OrderBookData struct {
	Code   int          `json:"code"`
	Asks   []OrderLevel `json:"asks"`
	Bids   []OrderLevel `json:"bids"`
	Offset int64        `json:"offset"`
	Nonce  int64        `json:"nonce"`
}

type Message struct {
	Type      string         `json:"type"`
	Channel   string         `json:"channel,omitempty"`
	OrderBook *OrderBookData `json:"order_book,omitempty"`
}

func ChannelName(marketID int) string {
	return fmt.Sprintf("order_book/%d", marketID)
}

func NewSubscribeRequest(marketID int) SubscribeRequest {
	return SubscribeRequest{
		Type:    "subscribe",
		Channel: ChannelName(marketID),
	}
}

// ParseFrame turns an order book frame of the given market into a canonical book.
// Initial snapshots and updates are both treated as complete books.
func ParseFrame(raw []byte, marketID int, observedAt time.Time) (*domain.OrderBook, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrMalformedPayload, err)
	}

	if msg.Type != MessageTypeSubscribed && msg.Type != MessageTypeUpdate {
		return nil, ErrNotOrderBookFrame
	}
	if !isMarketChannel(msg.Channel, marketID) {
		return nil, ErrNotOrderBookFrame
	}
	if msg.OrderBook == nil || msg.OrderBook.Bids == nil || msg.OrderBook.Asks == nil {
		return nil, fmt.Errorf("%w: %s frame without bids/asks", domain.ErrMalformedPayload, msg.Type)
	}

	bids, err := parseLevels(msg.OrderBook.Bids)
	if err != nil {
		return nil, err
	}
	asks, err := parseLevels(msg.OrderBook.Asks)
	if err != nil {
		return nil, err
	}

	book, err := domain.NewOrderBook(bids, asks, observedAt)
	if err != nil {
		return nil, err
	}
	book.LastUpdateID = msg.OrderBook.Offset

	return book, nil
}

// isMarketChannel accepts frames without a channel and channels naming the market
// as either order_book/<id> or order_book:<id>.
func isMarketChannel(channel string, marketID int) bool {
	if channel == "" {
		return true
	}

	idx := strings.LastIndexAny(channel, "/:")
	if idx < 0 {
		return false
	}

	id, err := strconv.Atoi(channel[idx+1:])
	return err == nil && id == marketID
}

func parseLevels(levels []OrderLevel) ([]domain.PriceLevel, error) {
	result := make([]domain.PriceLevel, len(levels))
	for i, l := range levels {
		level, err := domain.ParsePriceLevel(l.Price, l.Size)
		if err != nil {
			return nil, err
		}
		result[i] = level
	}
	return result, nil
}
