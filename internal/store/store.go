package store

import (
	"sync"

	"github.com/TemirB/storefront-checkout/internal/domain"
)

// Orders is the in-memory, append-only order log. It lives as long as the
// process and is never persisted.
type Orders struct {
	mu     sync.RWMutex
	orders []domain.Order
}

func New() *Orders {
	return &Orders{}
}

func (s *Orders) Append(o domain.Order) {
	s.mu.Lock()
	s.orders = append(s.orders, o)
	s.mu.Unlock()
}

func (s *Orders) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}

// Find scans newest first.
func (s *Orders) Find(id string) (domain.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.orders) - 1; i >= 0; i-- {
		if s.orders[i].ID == id {
			return s.orders[i], true
		}
	}
	return domain.Order{}, false
}

// Recent returns up to limit orders, newest first.
func (s *Orders) Recent(limit int) []domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.orders) {
		limit = len(s.orders)
	}
	out := make([]domain.Order, 0, limit)
	for i := len(s.orders) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.orders[i])
	}
	return out
}
