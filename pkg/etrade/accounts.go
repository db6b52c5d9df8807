package etrade

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/klinvest/broker-etrade/pkg/logger"
	"github.com/klinvest/broker-etrade/pkg/models"
)

// maxAccountFetches bounds how many accounts are enriched at once.
const maxAccountFetches = 4

// Account is an entry of the account list response.
type Account struct {
	AccountID     string `json:"accountId"`
	AccountIDKey  string `json:"accountIdKey"`
	AccountName   string `json:"accountName"`
	AccountType   string `json:"accountType"`
	AccountMode   string `json:"accountMode"`
	AccountStatus string `json:"accountStatus"`
}

type accountListResponse struct {
	AccountListResponse struct {
		Accounts struct {
			Account []Account `json:"Account"`
		} `json:"Accounts"`
	} `json:"AccountListResponse"`
}

// RealTimeValues carries the balance figures used for normalization. Absent
// values decode as 0.
type RealTimeValues struct {
	TotalAccountValue float64 `json:"totalAccountValue"`
	NetMv             float64 `json:"netMv"`
	TotalLongValue    float64 `json:"totalLongValue"`
}

type balanceResponse struct {
	BalanceResponse struct {
		AccountID string `json:"accountId"`
		Computed  *struct {
			RealTimeValues *RealTimeValues `json:"RealTimeValues"`
		} `json:"Computed"`
	} `json:"BalanceResponse"`
}

// ListRawAccounts returns the account list without balances or positions.
func (c *Client) ListRawAccounts(ctx context.Context) ([]Account, error) {
	var resp accountListResponse
	if err := c.get(ctx, "accounts.list", "/v1/accounts/list", &resp); err != nil {
		return nil, err
	}
	return resp.AccountListResponse.Accounts.Account, nil
}

// ListAccounts returns every account with its balance and positions. A failed
// balance call yields a zero balance and a failed portfolio call yields no
// positions; neither fails the listing. Accounts are enriched concurrently
// and returned in vendor order.
func (c *Client) ListAccounts(ctx context.Context) ([]models.AccountSummary, error) {
	raw, err := c.ListRawAccounts(ctx)
	if err != nil {
		return nil, err
	}

	valid := make([]Account, 0, len(raw))
	for _, acct := range raw {
		if acct.AccountID == "" {
			logger.Warn().Str("account_id_key", acct.AccountIDKey).Msg("skipping E*TRADE account without accountId")
			continue
		}
		valid = append(valid, acct)
	}

	accounts := make([]models.AccountSummary, len(valid))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxAccountFetches)
	for i, acct := range valid {
		g.Go(func() error {
			accounts[i] = c.summarize(gctx, acct)
			return nil
		})
	}
	g.Wait()

	return accounts, nil
}

func (c *Client) summarize(ctx context.Context, acct Account) models.AccountSummary {
	balance, err := c.GetBalance(ctx, acct.AccountIDKey)
	if err != nil {
		logger.Warn().Err(err).Str("account_id", acct.AccountID).Msg("balance unavailable, using zero balance")
		balance = models.ZeroBalance("USD")
	}

	positions, err := c.GetPositions(ctx, acct.AccountIDKey)
	if err != nil {
		logger.Warn().Err(err).Str("account_id", acct.AccountID).Msg("portfolio unavailable, using empty positions")
		positions = []models.Position{}
	}

	name := acct.AccountName
	if name == "" {
		name = fmt.Sprintf("E*TRADE %s", acct.AccountID)
	}

	return models.AccountSummary{
		ID:        acct.AccountID,
		Name:      name,
		BrokerID:  BrokerID,
		IsPaper:   c.config.Sandbox,
		Balance:   balance,
		Positions: positions,
		UpdatedAt: time.Now().UTC(),
		Extensions: map[string]any{
			"account_id_key": acct.AccountIDKey,
		},
	}
}

// GetBalance returns the normalized balance of an account.
func (c *Client) GetBalance(ctx context.Context, accountKey string) (models.AccountBalance, error) {
	path := fmt.Sprintf("/v1/accounts/%s/balance?instType=BROKERAGE&realTimeNAV=true", url.PathEscape(accountKey))

	var resp balanceResponse
	if err := c.get(ctx, "accounts.balance", path, &resp); err != nil {
		return models.AccountBalance{}, err
	}

	balance := models.ZeroBalance("USD")
	if computed := resp.BalanceResponse.Computed; computed != nil && computed.RealTimeValues != nil {
		rt := computed.RealTimeValues
		balance.TotalEquity = rt.TotalAccountValue
		balance.AvailableCash = rt.NetMv
		balance.BuyingPower = rt.TotalLongValue
	}
	return balance, nil
}
