// Package market
package market

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Balance represents an asset balance from an exchange
type Balance struct {
	Asset     string          `json:"asset"`     // Asset symbol (e.g., "BTC", "USDC")
	Available decimal.Decimal `json:"available"` // Available balance for trading
	Locked    decimal.Decimal `json:"locked"`    // Balance locked in orders
	Total     decimal.Decimal `json:"total"`     // Total balance (available + locked)
}

// SplitSymbol splits a pair such as "BTC/USDC" or "BTC-USDC" into base and quote.
// It returns empty strings when the symbol has no separator.
func SplitSymbol(symbol string) (base, quote string) {
	for _, sep := range []string{"/", "-"} {
		if parts := strings.Split(symbol, sep); len(parts) == 2 {
			return strings.ToUpper(parts[0]), strings.ToUpper(parts[1])
		}
	}
	return "", ""
}
