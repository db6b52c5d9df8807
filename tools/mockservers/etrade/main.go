package main

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/google/uuid"
)

// =============================================================================
// E*TRADE Mock Server
// =============================================================================
// This server simulates the E*TRADE API for local runs and integration tests.
// It supports:
// - OAuth token legs (request_token, access_token)
// - Account list and balances
// - Portfolio positions
// - Order placement
// Every API call must carry an OAuth Authorization header. Signatures are
// not verified.
// =============================================================================

// Verifier is the code the mock accepts on the access token leg.
const Verifier = "MOCK1"

type Server struct {
	mu            sync.RWMutex
	accounts      []Account
	balances      map[string]float64
	positions     map[string][]Position
	requestTokens map[string]string
	accessTokens  map[string]string
	orders        map[string][]PlacedOrder
	nextOrderID   int64
}

type Account struct {
	AccountID     string `json:"accountId"`
	AccountIDKey  string `json:"accountIdKey"`
	AccountName   string `json:"accountName"`
	AccountType   string `json:"accountType"`
	AccountMode   string `json:"accountMode"`
	AccountStatus string `json:"accountStatus"`
}

type Position struct {
	PositionID   int64   `json:"positionId"`
	SymbolDesc   string  `json:"symbolDescription"`
	Quantity     float64 `json:"quantity"`
	CostPerShare float64 `json:"costPerShare"`
	MarketValue  float64 `json:"marketValue"`
	TotalGain    float64 `json:"totalGain"`
	TotalGainPct float64 `json:"totalGainPct"`
	Product      struct {
		Symbol       string `json:"symbol"`
		SecurityType string `json:"securityType"`
	} `json:"Product"`
	Quick struct {
		LastTrade float64 `json:"lastTrade"`
	} `json:"Quick"`
}

type PlacedOrder struct {
	OrderID       int64     `json:"orderId"`
	ClientOrderID string    `json:"clientOrderId"`
	Symbol        string    `json:"symbol"`
	Action        string    `json:"orderAction"`
	PriceType     string    `json:"priceType"`
	Quantity      float64   `json:"quantity"`
	PlacedAt      time.Time `json:"placedAt"`
}

func NewServer() *Server {
	s := &Server{}
	s.initState()
	return s
}

func (s *Server) initState() {
	s.accounts = []Account{
		{AccountID: "84110000", AccountIDKey: "dBZOKt9xDrtRSAOl4MSiiA", AccountName: "Brokerage", AccountType: "INDIVIDUAL", AccountMode: "MARGIN", AccountStatus: "ACTIVE"},
		{AccountID: "84110001", AccountIDKey: "JIdOIAcSpwR1Jva7RQBraQ", AccountName: "", AccountType: "IRA", AccountMode: "CASH", AccountStatus: "ACTIVE"},
	}
	s.balances = map[string]float64{
		"dBZOKt9xDrtRSAOl4MSiiA": 100000.00,
		"JIdOIAcSpwR1Jva7RQBraQ": 25000.00,
	}
	s.positions = map[string][]Position{
		"dBZOKt9xDrtRSAOl4MSiiA": {
			newPosition(1, "AAPL", 10, 150.00, 178.25),
			newPosition(2, "MSFT", 5, 380.00, 410.50),
		},
	}
	s.requestTokens = make(map[string]string)
	s.accessTokens = make(map[string]string)
	s.orders = make(map[string][]PlacedOrder)
	s.nextOrderID = 500
}

func newPosition(id int64, symbol string, qty, cost, last float64) Position {
	p := Position{
		PositionID:   id,
		SymbolDesc:   symbol,
		Quantity:     qty,
		CostPerShare: cost,
		MarketValue:  qty * last,
		TotalGain:    qty * (last - cost),
		TotalGainPct: (last - cost) / cost * 100,
	}
	p.Product.Symbol = symbol
	p.Product.SecurityType = "EQ"
	p.Quick.LastTrade = last
	return p
}

func main() {
	server := NewServer()

	app := fiber.New(fiber.Config{
		AppName: "E*TRADE Mock Server",
	})

	app.Use(logger.New())
	server.routes(app)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8093"
	}

	log.Printf("E*TRADE Mock Server starting on port %s", port)
	log.Fatal(app.Listen(":" + port))
}

func (s *Server) routes(app *fiber.App) {
	// OAuth signature middleware
	app.Use(func(c *fiber.Ctx) error {
		if c.Path() == "/health" || strings.HasPrefix(c.Path(), "/admin/") {
			return c.Next()
		}
		if !strings.HasPrefix(c.Get("Authorization"), "OAuth ") {
			return vendorError(c, 401, 1002, "oauth_problem=signature_invalid")
		}
		return c.Next()
	})

	// OAuth
	app.Get("/oauth/request_token", s.requestToken)
	app.Get("/oauth/access_token", s.accessToken)

	// Accounts
	app.Get("/v1/accounts/list", s.listAccounts)
	app.Get("/v1/accounts/:key/balance", s.getBalance)
	app.Get("/v1/accounts/:key/portfolio", s.getPortfolio)

	// Orders
	app.Post("/v1/accounts/:key/orders/place", s.placeOrder)

	// Admin endpoints
	app.Post("/admin/reset", s.reset)
	app.Get("/admin/state", s.getState)

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy", "service": "etrade-mock"})
	})
}

func vendorError(c *fiber.Ctx, status, code int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"Error": fiber.Map{"code": code, "message": message},
	})
}

// oauthParam extracts one parameter from an OAuth Authorization header
func oauthParam(header, key string) string {
	header = strings.TrimPrefix(header, "OAuth ")
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || k != key {
			continue
		}
		v, err := url.QueryUnescape(strings.Trim(v, `"`))
		if err != nil {
			return ""
		}
		return v
	}
	return ""
}

// =============================================================================
// OAuth
// =============================================================================

func (s *Server) requestToken(c *fiber.Ctx) error {
	token := "req-" + uuid.New().String()
	secret := uuid.New().String()

	s.mu.Lock()
	s.requestTokens[token] = secret
	s.mu.Unlock()

	values := url.Values{}
	values.Set("oauth_token", token)
	values.Set("oauth_token_secret", secret)
	values.Set("oauth_callback_confirmed", "true")

	c.Set(fiber.HeaderContentType, "application/x-www-form-urlencoded")
	return c.SendString(values.Encode())
}

func (s *Server) accessToken(c *fiber.Ctx) error {
	header := c.Get("Authorization")
	token := oauthParam(header, "oauth_token")
	verifier := oauthParam(header, "oauth_verifier")

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.requestTokens[token]; !ok {
		return c.Status(401).SendString("oauth_problem=token_rejected")
	}
	if verifier != Verifier {
		return c.Status(401).SendString("oauth_problem=verifier_invalid")
	}
	delete(s.requestTokens, token)

	access := "acc-" + uuid.New().String()
	secret := uuid.New().String()
	s.accessTokens[access] = secret

	values := url.Values{}
	values.Set("oauth_token", access)
	values.Set("oauth_token_secret", secret)

	c.Set(fiber.HeaderContentType, "application/x-www-form-urlencoded")
	return c.SendString(values.Encode())
}

// =============================================================================
// Accounts
// =============================================================================

func (s *Server) listAccounts(c *fiber.Ctx) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return c.JSON(fiber.Map{
		"AccountListResponse": fiber.Map{
			"Accounts": fiber.Map{"Account": s.accounts},
		},
	})
}

func (s *Server) accountID(key string) (string, bool) {
	for _, a := range s.accounts {
		if a.AccountIDKey == key {
			return a.AccountID, true
		}
	}
	return "", false
}

func (s *Server) getBalance(c *fiber.Ctx) error {
	key := c.Params("key")

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.accountID(key)
	if !ok {
		return vendorError(c, 404, 100, "Invalid account key")
	}

	cash := s.balances[key]
	var longValue float64
	for _, p := range s.positions[key] {
		longValue += p.MarketValue
	}

	return c.JSON(fiber.Map{
		"BalanceResponse": fiber.Map{
			"accountId": id,
			"Computed": fiber.Map{
				"RealTimeValues": fiber.Map{
					"totalAccountValue": cash + longValue,
					"netMv":             longValue,
					"totalLongValue":    longValue,
				},
			},
		},
	})
}

func (s *Server) getPortfolio(c *fiber.Ctx) error {
	key := c.Params("key")

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.accountID(key)
	if !ok {
		return vendorError(c, 404, 100, "Invalid account key")
	}

	positions := s.positions[key]
	if len(positions) == 0 {
		// E*TRADE answers an empty portfolio with no content
		return c.SendStatus(204)
	}

	return c.JSON(fiber.Map{
		"PortfolioResponse": fiber.Map{
			"AccountPortfolio": []fiber.Map{
				{"accountId": id, "Position": positions},
			},
		},
	})
}

// =============================================================================
// Orders
// =============================================================================

type placeOrderRequest struct {
	PlaceOrderRequest struct {
		OrderType     string `json:"orderType"`
		ClientOrderID string `json:"clientOrderId"`
		Order         []struct {
			PriceType  string   `json:"priceType"`
			LimitPrice *float64 `json:"limitPrice"`
			StopPrice  *float64 `json:"stopPrice"`
			Instrument []struct {
				Product struct {
					Symbol string `json:"symbol"`
				} `json:"Product"`
				OrderAction string  `json:"orderAction"`
				Quantity    float64 `json:"quantity"`
			} `json:"Instrument"`
		} `json:"Order"`
	} `json:"PlaceOrderRequest"`
}

func (s *Server) placeOrder(c *fiber.Ctx) error {
	key := c.Params("key")

	var req placeOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return vendorError(c, 400, 101, "Invalid request body")
	}

	po := req.PlaceOrderRequest
	if len(po.Order) == 0 || len(po.Order[0].Instrument) == 0 {
		return vendorError(c, 400, 102, "Order must contain one instrument")
	}
	detail := po.Order[0]
	inst := detail.Instrument[0]
	if inst.Product.Symbol == "" || inst.Quantity <= 0 {
		return vendorError(c, 400, 103, "Invalid symbol or quantity")
	}
	if (detail.PriceType == "LIMIT" || detail.PriceType == "STOP_LIMIT") && detail.LimitPrice == nil {
		return vendorError(c, 400, 104, "Limit price is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accountID(key); !ok {
		return vendorError(c, 404, 100, "Invalid account key")
	}

	s.nextOrderID++
	order := PlacedOrder{
		OrderID:       s.nextOrderID,
		ClientOrderID: po.ClientOrderID,
		Symbol:        inst.Product.Symbol,
		Action:        inst.OrderAction,
		PriceType:     detail.PriceType,
		Quantity:      inst.Quantity,
		PlacedAt:      time.Now(),
	}
	s.orders[key] = append(s.orders[key], order)

	return c.JSON(fiber.Map{
		"PlaceOrderResponse": fiber.Map{
			"orderType": po.OrderType,
			"OrderIds":  []fiber.Map{{"orderId": order.OrderID}},
			"Order": []fiber.Map{{
				"messages": fiber.Map{
					"Message": []fiber.Map{{
						"type":        "WARNING",
						"code":        1026,
						"description": fmt.Sprintf("Order %d placed", order.OrderID),
					}},
				},
			}},
		},
	})
}

// =============================================================================
// Admin
// =============================================================================

func (s *Server) reset(c *fiber.Ctx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initState()
	return c.JSON(fiber.Map{"status": "reset complete"})
}

func (s *Server) getState(c *fiber.Ctx) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return c.JSON(fiber.Map{
		"accounts":       s.accounts,
		"orders":         s.orders,
		"request_tokens": len(s.requestTokens),
		"access_tokens":  len(s.accessTokens),
	})
}
