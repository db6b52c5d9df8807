package etrade

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/klinvest/broker-etrade/pkg/models"
)

// MockClient is an in-memory BrokerageClient for tests
type MockClient struct {
	mu          sync.RWMutex
	accounts    []models.AccountSummary
	positions   map[string][]models.Position
	orders      map[string]*models.Order
	nextOrderID int64

	// Err* make the matching call fail when set
	ListAccountsErr error
	PositionsErr    error
	SubmitOrderErr  error

	// SubmittedKeys records the account key of each SubmitOrder call
	SubmittedKeys []string
}

// NewMockClient creates a mock with one sandbox brokerage account
func NewMockClient() *MockClient {
	return &MockClient{
		accounts: []models.AccountSummary{
			{
				ID:       "84110000",
				Name:     "Mock Brokerage",
				BrokerID: BrokerID,
				IsPaper:  true,
				Balance: models.AccountBalance{
					Currency:      "USD",
					TotalEquity:   100000,
					AvailableCash: 25000,
					BuyingPower:   75000,
				},
				Positions: []models.Position{},
				Extensions: map[string]any{
					"account_id_key": "mock-key-84110000",
				},
			},
		},
		positions:   make(map[string][]models.Position),
		orders:      make(map[string]*models.Order),
		nextOrderID: 1000,
	}
}

// SetAccounts replaces the account list
func (c *MockClient) SetAccounts(accounts []models.AccountSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accounts = accounts
}

// SetPositions sets the holdings returned for an account key
func (c *MockClient) SetPositions(accountKey string, positions []models.Position) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.positions[accountKey] = positions
}

// ListAccounts returns the configured accounts
func (c *MockClient) ListAccounts(ctx context.Context) ([]models.AccountSummary, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.ListAccountsErr != nil {
		return nil, c.ListAccountsErr
	}

	out := make([]models.AccountSummary, len(c.accounts))
	copy(out, c.accounts)
	for i := range out {
		out[i].UpdatedAt = time.Now().UTC()
	}
	return out, nil
}

// GetPositions returns the holdings for an account key
func (c *MockClient) GetPositions(ctx context.Context, accountKey string) ([]models.Position, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.PositionsErr != nil {
		return nil, c.PositionsErr
	}

	positions := c.positions[accountKey]
	out := make([]models.Position, len(positions))
	copy(out, positions)
	return out, nil
}

// SubmitOrder accepts the order with a sequential numeric ID
func (c *MockClient) SubmitOrder(ctx context.Context, accountKey string, req *models.OrderRequest) (*models.Order, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.SubmittedKeys = append(c.SubmittedKeys, accountKey)

	if c.SubmitOrderErr != nil {
		return nil, c.SubmitOrderErr
	}

	c.nextOrderID++
	now := time.Now().UTC()
	order := &models.Order{
		ID:        strconv.FormatInt(c.nextOrderID, 10),
		Request:   *req,
		Status:    models.OrderStatusSubmitted,
		CreatedAt: now,
		UpdatedAt: now,
		Extensions: map[string]any{
			"client_order_id": NewClientOrderID(),
		},
		PersonaID: req.PersonaID,
	}
	c.orders[order.ID] = order
	return order, nil
}

// Order returns a submitted order by ID
func (c *MockClient) Order(id string) (*models.Order, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	order, ok := c.orders[id]
	if !ok {
		return nil, fmt.Errorf("order not found: %s", id)
	}
	return order, nil
}
