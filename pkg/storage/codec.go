package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/uhyunpark/ratebook/pkg/order"
)

func encodeOrder(o order.Order) ([]byte, error) {
	b, err := json.Marshal(o)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order %d: %w", o.ID, err)
	}
	return b, nil
}

func decodeOrder(b []byte) (order.Order, error) {
	var o order.Order
	if err := json.Unmarshal(b, &o); err != nil {
		return order.Order{}, fmt.Errorf("failed to unmarshal order: %w", err)
	}
	return o, nil
}

func encodeCount(n int64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], uint64(n))
	return k[:]
}

func decodeCount(b []byte) (int64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("corrupt order count: %d bytes", len(b))
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}
