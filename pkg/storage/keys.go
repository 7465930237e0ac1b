package storage

import (
	"fmt"
)

// Order book key schema for Pebble storage:
//
//   ord:<id, 20-digit zero padded> → Order (JSON)
//   meta:count                     → number of orders ever stored (8-byte big endian)
//
// Zero padding keeps lexicographic key order equal to id order, so a
// prefix scan returns the book in insertion order.

const (
	prefixOrder = "ord:"
	keyCount    = "meta:count"
)

// orderKey returns the key for an order
// Format: "ord:{id:020d}"
func orderKey(id int64) []byte {
	return []byte(fmt.Sprintf("%s%020d", prefixOrder, id))
}

func countKey() []byte { return []byte(keyCount) }

// keyUpperBound returns the exclusive upper bound for a prefix scan
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
