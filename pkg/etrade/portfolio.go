package etrade

import (
	"context"
	"fmt"
	"net/url"

	"github.com/klinvest/broker-etrade/pkg/models"
)

// PortfolioPosition is one holding in the portfolio response.
type PortfolioPosition struct {
	PositionID   int64    `json:"positionId"`
	SymbolDesc   string   `json:"symbolDescription"`
	Quantity     float64  `json:"quantity"`
	CostPerShare *float64 `json:"costPerShare"`
	MarketValue  float64  `json:"marketValue"`
	TotalGain    float64  `json:"totalGain"`
	TotalGainPct float64  `json:"totalGainPct"`
	Product      struct {
		Symbol       string `json:"symbol"`
		SecurityType string `json:"securityType"`
	} `json:"Product"`
	Quick *struct {
		LastTrade *float64 `json:"lastTrade"`
	} `json:"Quick"`
}

type portfolioResponse struct {
	PortfolioResponse *struct {
		AccountPortfolio []struct {
			AccountID string              `json:"accountId"`
			Position  []PortfolioPosition `json:"Position"`
		} `json:"AccountPortfolio"`
	} `json:"PortfolioResponse"`
}

// GetPositions returns the normalized holdings of an account. Every level of
// the response may be absent; an empty portfolio is an empty slice.
func (c *Client) GetPositions(ctx context.Context, accountKey string) ([]models.Position, error) {
	path := fmt.Sprintf("/v1/accounts/%s/portfolio", url.PathEscape(accountKey))

	var resp portfolioResponse
	if err := c.get(ctx, "accounts.portfolio", path, &resp); err != nil {
		return nil, err
	}

	positions := []models.Position{}
	if resp.PortfolioResponse == nil {
		return positions, nil
	}
	for _, portfolio := range resp.PortfolioResponse.AccountPortfolio {
		for _, p := range portfolio.Position {
			if p.Product.Symbol == "" {
				continue
			}
			positions = append(positions, toPosition(p))
		}
	}
	return positions, nil
}

func toPosition(p PortfolioPosition) models.Position {
	var avg float64
	if p.CostPerShare != nil {
		avg = *p.CostPerShare
	}

	// last trade, then cost basis, then 0
	current := avg
	if p.Quick != nil && p.Quick.LastTrade != nil {
		current = *p.Quick.LastTrade
	}

	return models.Position{
		SymbolID:             p.Product.Symbol,
		Quantity:             p.Quantity,
		AveragePrice:         avg,
		CurrentPrice:         current,
		UnrealizedPnL:        p.TotalGain,
		UnrealizedPnLPercent: p.TotalGainPct,
	}
}
