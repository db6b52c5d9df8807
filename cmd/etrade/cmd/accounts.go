package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/klinvest/broker-etrade/cmd/etrade/internal/output"
	"github.com/klinvest/broker-etrade/pkg/etrade"
	"github.com/klinvest/broker-etrade/pkg/models"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List accounts and balances",
	Long:  "List every E*TRADE account with its balance.",
	RunE:  runAccounts,
}

var positionsCmd = &cobra.Command{
	Use:   "positions",
	Short: "Show positions of an account",
	Long:  "Show the holdings of an account with unrealized gain or loss.",
	RunE:  runPositions,
}

var orderCmd = &cobra.Command{
	Use:   "order",
	Short: "Order commands",
}

var orderPlaceCmd = &cobra.Command{
	Use:   "place",
	Short: "Place an equity order",
	Long: `Place an equity order.

Examples:
  etrade order place --account 84110000 --symbol AAPL --side buy --qty 10
  etrade order place --account 84110000 --symbol MSFT --side sell --type limit --qty 5 --limit 410.50`,
	RunE: runOrderPlace,
}

var (
	accountFlag string
	symbolFlag  string
	sideFlag    string
	typeFlag    string
	qtyFlag     float64
	limitFlag   float64
	stopFlag    float64
)

func init() {
	rootCmd.AddCommand(accountsCmd)
	rootCmd.AddCommand(positionsCmd)
	rootCmd.AddCommand(orderCmd)
	orderCmd.AddCommand(orderPlaceCmd)

	positionsCmd.Flags().StringVarP(&accountFlag, "account", "a", "", "account id (required)")
	positionsCmd.MarkFlagRequired("account")

	orderPlaceCmd.Flags().StringVarP(&accountFlag, "account", "a", "", "account id (required)")
	orderPlaceCmd.Flags().StringVarP(&symbolFlag, "symbol", "s", "", "ticker symbol (required)")
	orderPlaceCmd.Flags().StringVar(&sideFlag, "side", "buy", "buy or sell")
	orderPlaceCmd.Flags().StringVarP(&typeFlag, "type", "t", "market", "market, limit, stop, stop_limit")
	orderPlaceCmd.Flags().Float64VarP(&qtyFlag, "qty", "q", 0, "number of shares (required)")
	orderPlaceCmd.Flags().Float64Var(&limitFlag, "limit", 0, "limit price")
	orderPlaceCmd.Flags().Float64Var(&stopFlag, "stop", 0, "stop price")
	orderPlaceCmd.MarkFlagRequired("account")
	orderPlaceCmd.MarkFlagRequired("symbol")
	orderPlaceCmd.MarkFlagRequired("qty")
}

func runAccounts(cmd *cobra.Command, args []string) error {
	c, err := requireAuth()
	if err != nil {
		output.Error(err.Error())
		return nil
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	accounts, err := c.ListAccounts(ctx)
	if err != nil {
		output.Error(err.Error())
		return nil
	}

	if getFormat() == "json" {
		return output.JSON(accounts)
	}

	if len(accounts) == 0 {
		output.Info("No accounts found")
		return nil
	}

	output.Header(fmt.Sprintf("Accounts (%s)", environment(c.IsSandbox())))
	fmt.Println()

	rows := make([][]string, 0, len(accounts))
	for _, a := range accounts {
		rows = append(rows, []string{
			a.ID,
			a.Name,
			output.Money(a.Balance.TotalEquity, a.Balance.Currency),
			output.Money(a.Balance.AvailableCash, a.Balance.Currency),
			output.Money(a.Balance.BuyingPower, a.Balance.Currency),
			fmt.Sprintf("%d", len(a.Positions)),
		})
	}
	output.Table([]string{"Account", "Name", "Equity", "Cash", "Buying Power", "Positions"}, rows)
	return nil
}

func runPositions(cmd *cobra.Command, args []string) error {
	c, err := requireAuth()
	if err != nil {
		output.Error(err.Error())
		return nil
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	key, err := resolveAccountKey(ctx, c, accountFlag)
	if err != nil {
		output.Error(err.Error())
		return nil
	}

	positions, err := c.GetPositions(ctx, key)
	if err != nil {
		output.Error(err.Error())
		return nil
	}

	if getFormat() == "json" {
		return output.JSON(positions)
	}

	if len(positions) == 0 {
		output.Info("No positions")
		return nil
	}

	output.Header("Positions for " + accountFlag)
	fmt.Println()

	rows := make([][]string, 0, len(positions))
	for _, p := range positions {
		rows = append(rows, []string{
			p.SymbolID,
			fmt.Sprintf("%.4g", p.Quantity),
			output.Money(p.AveragePrice, "USD"),
			output.Money(p.CurrentPrice, "USD"),
			output.PnL(p.UnrealizedPnL, p.UnrealizedPnLPercent),
		})
	}
	output.Table([]string{"Symbol", "Qty", "Avg Price", "Price", "Unrealized P&L"}, rows)
	return nil
}

func runOrderPlace(cmd *cobra.Command, args []string) error {
	req := &models.OrderRequest{
		SymbolID: symbolFlag,
		Side:     models.OrderSide(sideFlag),
		Type:     models.OrderType(typeFlag),
		Quantity: qtyFlag,
	}
	if limitFlag > 0 {
		req.LimitPrice = &limitFlag
	}
	if stopFlag > 0 {
		req.StopPrice = &stopFlag
	}
	if err := req.Validate(); err != nil {
		output.Error(err.Error())
		return nil
	}

	c, err := requireAuth()
	if err != nil {
		output.Error(err.Error())
		return nil
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	key, err := resolveAccountKey(ctx, c, accountFlag)
	if err != nil {
		output.Error(err.Error())
		return nil
	}

	order, err := c.SubmitOrder(ctx, key, req)
	if err != nil {
		output.Error("Order failed: " + err.Error())
		return nil
	}

	if getFormat() == "json" {
		return output.JSON(order)
	}

	output.Success("Order placed")
	fmt.Println()
	output.KeyValue([][]string{
		{"Order ID", order.ID},
		{"Symbol", order.Request.SymbolID},
		{"Side", string(order.Request.Side)},
		{"Type", string(order.Request.Type)},
		{"Quantity", fmt.Sprintf("%.4g", order.Request.Quantity)},
		{"Status", output.FormatStatus(string(order.Status))},
	})
	return nil
}

// resolveAccountKey maps a displayed account id to the accountIdKey used in
// E*TRADE paths.
func resolveAccountKey(ctx context.Context, c *etrade.Client, accountID string) (string, error) {
	accounts, err := c.ListRawAccounts(ctx)
	if err != nil {
		return "", err
	}
	for _, a := range accounts {
		if a.AccountID == accountID {
			return a.AccountIDKey, nil
		}
	}
	return "", fmt.Errorf("account %s not found", accountID)
}
