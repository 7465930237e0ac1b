package storage

import (
	"fmt"
	"sync"

	"github.com/uhyunpark/ratebook/pkg/order"
)

// InMemoryStore is an OrderStore for tests and ephemeral runs.
type InMemoryStore struct {
	mu     sync.Mutex
	orders []order.Order // index i holds id i+1
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) ReadAll() ([]order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]order.Order(nil), s.orders...), nil
}

func (s *InMemoryStore) ReadCount() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.orders)), nil
}

func (s *InMemoryStore) Get(id int64) (order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id < 1 || id > int64(len(s.orders)) {
		return order.Order{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return s.orders[id-1], nil
}

func (s *InMemoryStore) Range(fromID, toID int64) ([]order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fromID < 1 {
		fromID = 1
	}
	if n := int64(len(s.orders)); toID > n {
		toID = n
	}
	if toID < fromID {
		return nil, nil
	}
	return append([]order.Order(nil), s.orders[fromID-1:toID]...), nil
}

func (s *InMemoryStore) Append(o order.Order) (order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o.ID = int64(len(s.orders)) + 1
	s.orders = append(s.orders, o)
	return o, nil
}

func (s *InMemoryStore) Close() error { return nil }

var _ OrderStore = (*InMemoryStore)(nil)
