package storage

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"

	"github.com/uhyunpark/ratebook/pkg/order"
)

// PebbleStore keeps the order book in a Pebble database.
// Appends are serialized so id assignment and the count stay consistent;
// reads go straight to Pebble and see a consistent snapshot per iterator.
type PebbleStore struct {
	mu sync.Mutex // guards id assignment
	db *pebble.DB
}

// NewPebbleStore opens (or creates) a Pebble database at path
func NewPebbleStore(path string) (*PebbleStore, error) {
	return NewPebbleStoreWithOptions(path, &pebble.Options{})
}

// NewPebbleStoreWithOptions opens a Pebble database with caller-supplied options
// (an in-memory vfs in tests, cache tuning in production).
func NewPebbleStoreWithOptions(path string, opts *pebble.Options) (*PebbleStore, error) {
	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble db at %s: %w", path, err)
	}
	return &PebbleStore{db: db}, nil
}

func (s *PebbleStore) Close() error { return s.db.Close() }

// ReadCount returns the stored order count (0 for a fresh database)
func (s *PebbleStore) ReadCount() (int64, error) {
	val, closer, err := s.db.Get(countKey())
	if errors.Is(err, pebble.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get order count: %w", err)
	}
	defer closer.Close()
	return decodeCount(val)
}

// Get loads one order by id
func (s *PebbleStore) Get(id int64) (order.Order, error) {
	val, closer, err := s.db.Get(orderKey(id))
	if errors.Is(err, pebble.ErrNotFound) {
		return order.Order{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to get order %d: %w", id, err)
	}
	defer closer.Close()
	return decodeOrder(val)
}

// ReadAll scans every order in id order
func (s *PebbleStore) ReadAll() ([]order.Order, error) {
	prefix := []byte(prefixOrder)
	return s.scan(prefix, keyUpperBound(prefix))
}

// Range scans orders with fromID <= id <= toID
func (s *PebbleStore) Range(fromID, toID int64) ([]order.Order, error) {
	if toID < fromID {
		return nil, nil
	}
	return s.scan(orderKey(fromID), orderKey(toID+1))
}

func (s *PebbleStore) scan(lower, upper []byte) ([]order.Order, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: lower,
		UpperBound: upper,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open iterator: %w", err)
	}
	defer iter.Close()

	var orders []order.Order
	for iter.First(); iter.Valid(); iter.Next() {
		o, err := decodeOrder(iter.Value())
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("order scan: %w", err)
	}
	return orders, nil
}

// Append stores o under the next id. The order and the new count are
// written in one synced batch.
func (s *PebbleStore) Append(o order.Order) (order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count, err := s.ReadCount()
	if err != nil {
		return order.Order{}, err
	}
	o.ID = count + 1

	data, err := encodeOrder(o)
	if err != nil {
		return order.Order{}, err
	}

	batch := s.db.NewBatch()
	defer batch.Close()
	if err := batch.Set(orderKey(o.ID), data, nil); err != nil {
		return order.Order{}, fmt.Errorf("failed to stage order: %w", err)
	}
	if err := batch.Set(countKey(), encodeCount(o.ID), nil); err != nil {
		return order.Order{}, fmt.Errorf("failed to stage count: %w", err)
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return order.Order{}, fmt.Errorf("failed to save order: %w", err)
	}
	return o, nil
}

var _ OrderStore = (*PebbleStore)(nil)
