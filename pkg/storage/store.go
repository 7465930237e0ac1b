package storage

import (
	"errors"

	"github.com/uhyunpark/ratebook/pkg/order"
)

// ErrNotFound is returned by Get for an unknown order id.
var ErrNotFound = errors.New("order not found")

// OrderStore persists the order book. Ids are assigned by the store,
// start at 1 and increase by one per appended order.
type OrderStore interface {
	// ReadAll returns a point-in-time snapshot of every order, ordered by id.
	ReadAll() ([]order.Order, error)
	// ReadCount returns the number of orders stored so far.
	ReadCount() (int64, error)
	// Get returns a single order by id.
	Get(id int64) (order.Order, error)
	// Range returns orders with fromID <= id <= toID, ordered by id.
	Range(fromID, toID int64) ([]order.Order, error)
	// Append assigns the next id to o and stores it together with the new count.
	Append(o order.Order) (order.Order, error)
	Close() error
}
