package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// OrderSide represents buy or sell
type OrderSide string

const (
	Buy  OrderSide = "buy"
	Sell OrderSide = "sell"
)

// OrderType represents the order type
type OrderType string

const (
	Market    OrderType = "market"
	Limit     OrderType = "limit"
	Stop      OrderType = "stop"
	StopLimit OrderType = "stop_limit"
)

// OrderStatus represents where an order is in its lifecycle
type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusSubmitted       OrderStatus = "submitted"
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusCancelled       OrderStatus = "cancelled"
	OrderStatusRejected        OrderStatus = "rejected"
)

// Valid reports whether s is a known side.
func (s OrderSide) Valid() bool {
	switch s {
	case Buy, Sell:
		return true
	}
	return false
}

// UnmarshalJSON rejects sides outside the closed set.
func (s *OrderSide) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if !OrderSide(v).Valid() {
		return fmt.Errorf("unknown order side %q", v)
	}
	*s = OrderSide(v)
	return nil
}

// Valid reports whether t is a known order type.
func (t OrderType) Valid() bool {
	switch t {
	case Market, Limit, Stop, StopLimit:
		return true
	}
	return false
}

// RequiresLimitPrice reports whether a limit price must accompany the order.
func (t OrderType) RequiresLimitPrice() bool {
	return t == Limit || t == StopLimit
}

// UsesStopPrice reports whether a stop price is meaningful for the order.
func (t OrderType) UsesStopPrice() bool {
	return t == Stop || t == StopLimit
}

// UnmarshalJSON rejects types outside the closed set.
func (t *OrderType) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if !OrderType(v).Valid() {
		return fmt.Errorf("unknown order type %q", v)
	}
	*t = OrderType(v)
	return nil
}

// OrderRequest is what the caller asks the broker to do.
type OrderRequest struct {
	SymbolID   string    `json:"symbol_id"`
	Side       OrderSide `json:"side"`
	Type       OrderType `json:"order_type"`
	Quantity   float64   `json:"quantity"`
	LimitPrice *float64  `json:"limit_price,omitempty"`
	StopPrice  *float64  `json:"stop_price,omitempty"`
	PersonaID  string    `json:"persona_id"`
}

// Validate checks the request before it is sent anywhere.
func (r *OrderRequest) Validate() error {
	switch {
	case r.SymbolID == "":
		return fmt.Errorf("symbol is required")
	case !r.Side.Valid():
		return fmt.Errorf("side must be 'buy' or 'sell'")
	case !r.Type.Valid():
		return fmt.Errorf("unknown order type %q", r.Type)
	case r.Quantity <= 0:
		return fmt.Errorf("quantity must be positive")
	case r.Type.RequiresLimitPrice() && r.LimitPrice == nil:
		return fmt.Errorf("limit price is required for %s orders", r.Type)
	case r.LimitPrice != nil && *r.LimitPrice <= 0:
		return fmt.Errorf("limit price must be positive")
	}
	return nil
}

// Order is an order as tracked by the adapter.
type Order struct {
	ID                 string         `json:"id"`
	Request            OrderRequest   `json:"request"`
	Status             OrderStatus    `json:"status"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	FilledQuantity     float64        `json:"filled_quantity"`
	AverageFilledPrice *float64       `json:"average_filled_price,omitempty"`
	Extensions         map[string]any `json:"extensions,omitempty"`
	PersonaID          string         `json:"persona_id"`
}
