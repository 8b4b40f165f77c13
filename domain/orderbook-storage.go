package domain

import (
	"sync"
	"time"
)

// BookSlot holds the most recent book of one venue. Last write wins.
type BookSlot struct {
	mu        sync.RWMutex
	book      *OrderBook
	updatedAt time.Time
}

func NewBookSlot() *BookSlot {
	return &BookSlot{}
}

func (s *BookSlot) Store(book *OrderBook, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.book = book
	s.updatedAt = at
}

// Load returns the stored book (nil if none) and the time it was stored.
func (s *BookSlot) Load() (*OrderBook, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.book, s.updatedAt
}

func (s *BookSlot) Reset() {
	s.Store(nil, time.Time{})
}
