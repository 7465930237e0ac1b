package api

import (
	"github.com/uhyunpark/ratebook/pkg/order"
	"github.com/uhyunpark/ratebook/pkg/rate"
)

// API response types for REST endpoints and WebSocket messages

// ==============================
// REST Response Types
// ==============================

// PairsResponse lists every tradable pair priced at one unit.
// Message is set instead of rates when the book has nothing to trade.
type PairsResponse struct {
	Rates   []rate.PairRate `json:"rates"`
	Message string          `json:"message,omitempty"`
}

// HealthResponse is returned by /health
type HealthResponse struct {
	Status  string `json:"status"`
	Clients int    `json:"clients"` // connected websocket clients
}

// ErrorResponse is returned for all errors
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ==============================
// WebSocket Types
// ==============================

const (
	ChannelRates  = "rates"  // rateOnTime updates from the broadcast scheduler
	ChannelOrders = "orders" // newly created orders
)

// WSSubscribeRequest is sent by client to subscribe to channels
type WSSubscribeRequest struct {
	Op       string   `json:"op"`       // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"` // e.g., ["rates", "orders"]
}

// OrderEvent is pushed on the orders channel after an order is stored
type OrderEvent struct {
	Type  string      `json:"type"` // "newOrders"
	Order order.Order `json:"order"`
}
