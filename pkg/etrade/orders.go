package etrade

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/url"
	"strconv"
	"time"

	"github.com/klinvest/broker-etrade/pkg/models"
)

// Vendor order constants. Only single-leg equity orders are placed.
const (
	securityTypeEquity   = "EQ"
	orderTermGoodForDay  = "GOOD_FOR_DAY"
	marketSessionRegular = "REGULAR"
	quantityTypeQuantity = "QUANTITY"
)

// PlaceOrderRequest is the request document for orders/place.
type PlaceOrderRequest struct {
	PlaceOrderRequest PlaceOrder `json:"PlaceOrderRequest"`
}

type PlaceOrder struct {
	OrderType     string        `json:"orderType"`
	ClientOrderID string        `json:"clientOrderId"`
	Order         []OrderDetail `json:"Order"`
}

type OrderDetail struct {
	AllOrNone     bool         `json:"allOrNone"`
	PriceType     string       `json:"priceType"`
	OrderTerm     string       `json:"orderTerm"`
	MarketSession string       `json:"marketSession"`
	LimitPrice    *float64     `json:"limitPrice,omitempty"`
	StopPrice     *float64     `json:"stopPrice,omitempty"`
	Instrument    []Instrument `json:"Instrument"`
}

type Instrument struct {
	Product      Product `json:"Product"`
	OrderAction  string  `json:"orderAction"`
	QuantityType string  `json:"quantityType"`
	Quantity     float64 `json:"quantity"`
}

type Product struct {
	SecurityType string `json:"securityType"`
	Symbol       string `json:"symbol"`
}

type placeOrderResponse struct {
	PlaceOrderResponse struct {
		OrderIds []struct {
			OrderID int64 `json:"orderId"`
		} `json:"OrderIds"`
	} `json:"PlaceOrderResponse"`
}

// PriceType maps an order type to E*TRADE's priceType.
func PriceType(t models.OrderType) string {
	switch t {
	case models.Limit:
		return "LIMIT"
	case models.Stop:
		return "STOP"
	case models.StopLimit:
		return "STOP_LIMIT"
	default:
		return "MARKET"
	}
}

// OrderAction maps an order side to E*TRADE's orderAction.
func OrderAction(s models.OrderSide) string {
	if s == models.Sell {
		return "SELL"
	}
	return "BUY"
}

// NewClientOrderID returns "KL" followed by 16 hex digits.
func NewClientOrderID() string {
	return fmt.Sprintf("KL%016x", rand.Uint64())
}

// BuildPlaceOrderRequest renders req as a single-leg equity order.
func BuildPlaceOrderRequest(req *models.OrderRequest, clientOrderID string) *PlaceOrderRequest {
	detail := OrderDetail{
		AllOrNone:     false,
		PriceType:     PriceType(req.Type),
		OrderTerm:     orderTermGoodForDay,
		MarketSession: marketSessionRegular,
		LimitPrice:    req.LimitPrice,
		Instrument: []Instrument{{
			Product: Product{
				SecurityType: securityTypeEquity,
				Symbol:       req.SymbolID,
			},
			OrderAction:  OrderAction(req.Side),
			QuantityType: quantityTypeQuantity,
			Quantity:     req.Quantity,
		}},
	}
	if req.Type.UsesStopPrice() {
		detail.StopPrice = req.StopPrice
	}

	return &PlaceOrderRequest{
		PlaceOrderRequest: PlaceOrder{
			OrderType:     securityTypeEquity,
			ClientOrderID: clientOrderID,
			Order:         []OrderDetail{detail},
		},
	}
}

// SubmitOrder places an order and returns it in the submitted state. The
// order ID is the first vendor order ID, or the client order ID when the
// response carries none.
func (c *Client) SubmitOrder(ctx context.Context, accountKey string, req *models.OrderRequest) (*models.Order, error) {
	clientOrderID := NewClientOrderID()
	body := BuildPlaceOrderRequest(req, clientOrderID)
	path := fmt.Sprintf("/v1/accounts/%s/orders/place", url.PathEscape(accountKey))

	var resp placeOrderResponse
	if err := c.post(ctx, "orders.place", path, body, &resp); err != nil {
		return nil, err
	}

	orderID := clientOrderID
	if ids := resp.PlaceOrderResponse.OrderIds; len(ids) > 0 {
		orderID = strconv.FormatInt(ids[0].OrderID, 10)
	}

	now := time.Now().UTC()
	return &models.Order{
		ID:             orderID,
		Request:        *req,
		Status:         models.OrderStatusSubmitted,
		CreatedAt:      now,
		UpdatedAt:      now,
		FilledQuantity: 0,
		Extensions: map[string]any{
			"client_order_id": clientOrderID,
		},
		PersonaID: req.PersonaID,
	}, nil
}
