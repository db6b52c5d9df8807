package etrade

import (
	"context"

	"github.com/klinvest/broker-etrade/pkg/models"
)

// BrokerageClient defines the E*TRADE operations the broker session needs
type BrokerageClient interface {
	ListAccounts(ctx context.Context) ([]models.AccountSummary, error)
	GetPositions(ctx context.Context, accountKey string) ([]models.Position, error)
	SubmitOrder(ctx context.Context, accountKey string, req *models.OrderRequest) (*models.Order, error)
}

// Ensure Client and MockClient implement BrokerageClient
var _ BrokerageClient = (*Client)(nil)
var _ BrokerageClient = (*MockClient)(nil)
