package events

import (
	"time"

	"github.com/klinvest/broker-etrade/pkg/models"
)

// =============================================================================
// Event Payload Definitions
// =============================================================================
// - Use primitive types where possible (string, float64, bool)
// - Use pointers for optional fields
// - Always include account_id and persona_id for order payloads
// =============================================================================

// OrderSubmittedPayload is the payload for order.submitted.v1 events
type OrderSubmittedPayload struct {
	OrderID       string    `json:"order_id"`
	ClientOrderID string    `json:"client_order_id,omitempty"`
	AccountID     string    `json:"account_id"`
	PersonaID     string    `json:"persona_id,omitempty"`
	Symbol        string    `json:"symbol"`
	Side          string    `json:"side"`
	Type          string    `json:"type"`
	Quantity      float64   `json:"quantity"`
	LimitPrice    *float64  `json:"limit_price,omitempty"`
	StopPrice     *float64  `json:"stop_price,omitempty"`
	Sandbox       bool      `json:"sandbox"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// OrderRejectedPayload is the payload for order.rejected.v1 events
type OrderRejectedPayload struct {
	OrderID    string    `json:"order_id"`
	AccountID  string    `json:"account_id"`
	PersonaID  string    `json:"persona_id,omitempty"`
	Symbol     string    `json:"symbol"`
	Side       string    `json:"side"`
	Type       string    `json:"type"`
	Quantity   float64   `json:"quantity"`
	Reason     string    `json:"reason"`
	RejectedAt time.Time `json:"rejected_at"`
}

// SessionAuthenticatedPayload is the payload for session.authenticated.v1 events
type SessionAuthenticatedPayload struct {
	Environment     string    `json:"environment"` // sandbox, production
	AuthenticatedAt time.Time `json:"authenticated_at"`
}

// NewOrderEvent builds the submitted or rejected event for an order outcome
// and returns it with its topic.
func NewOrderEvent(source, accountID string, order *models.Order, sandbox bool) (string, *Event) {
	req := order.Request

	if order.Status == models.OrderStatusRejected {
		reason, _ := order.Extensions["error"].(string)
		payload := OrderRejectedPayload{
			OrderID:    order.ID,
			AccountID:  accountID,
			PersonaID:  order.PersonaID,
			Symbol:     req.SymbolID,
			Side:       string(req.Side),
			Type:       string(req.Type),
			Quantity:   req.Quantity,
			Reason:     reason,
			RejectedAt: order.UpdatedAt,
		}
		return TopicOrderRejected, NewEvent(EventTypeOrderRejected, source, payload).WithCorrelationID(order.ID)
	}

	clientOrderID, _ := order.Extensions["client_order_id"].(string)
	payload := OrderSubmittedPayload{
		OrderID:       order.ID,
		ClientOrderID: clientOrderID,
		AccountID:     accountID,
		PersonaID:     order.PersonaID,
		Symbol:        req.SymbolID,
		Side:          string(req.Side),
		Type:          string(req.Type),
		Quantity:      req.Quantity,
		LimitPrice:    req.LimitPrice,
		StopPrice:     req.StopPrice,
		Sandbox:       sandbox,
		SubmittedAt:   order.CreatedAt,
	}
	return TopicOrderSubmitted, NewEvent(EventTypeOrderSubmitted, source, payload).WithCorrelationID(order.ID)
}
