package models

import "time"

// AccountSummary is a brokerage account with its balance and holdings.
type AccountSummary struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	BrokerID   string         `json:"broker_id"`
	IsPaper    bool           `json:"is_paper"`
	Balance    AccountBalance `json:"balance"`
	Positions  []Position     `json:"positions"`
	UpdatedAt  time.Time      `json:"updated_at"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// AccountBalance holds monetary totals. Missing vendor values are zero.
type AccountBalance struct {
	Currency      string  `json:"currency"`
	TotalEquity   float64 `json:"total_equity"`
	AvailableCash float64 `json:"available_cash"`
	BuyingPower   float64 `json:"buying_power"`
	LockedCash    float64 `json:"locked_cash"`
}

// ZeroBalance is the balance reported when the vendor returns nothing usable.
func ZeroBalance(currency string) AccountBalance {
	return AccountBalance{Currency: currency}
}

// Position is a single holding.
type Position struct {
	SymbolID             string  `json:"symbol_id"`
	Quantity             float64 `json:"quantity"`
	AveragePrice         float64 `json:"average_price"`
	CurrentPrice         float64 `json:"current_price"`
	UnrealizedPnL        float64 `json:"unrealized_pnl"`
	UnrealizedPnLPercent float64 `json:"unrealized_pnl_percent"`
}
