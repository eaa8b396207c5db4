// Package order
package order

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	TypeMarket = "market"

	SideBuy  = "buy"
	SideSell = "sell"
)

// Normalized order statuses shared by every exchange adapter.
const (
	StatusNew             = "NEW"
	StatusPartiallyFilled = "PARTIALLY_FILLED"
	StatusFilled          = "FILLED"
	StatusCanceled        = "CANCELED"
	StatusRejected        = "REJECTED"
	StatusExpired         = "EXPIRED"
	StatusUnknown         = "UNKNOWN"
)

// OrderRequest represents a new order to be submitted.
type OrderRequest struct {
	Symbol        string
	Side          string // "buy" or "sell"
	Type          string // only "market" is placed by the trader
	Quantity      decimal.Decimal
	ClientOrderID string
}

// OrderResponse represents the response from the exchange.
type OrderResponse struct {
	OrderID       string
	ClientOrderID string
	Status        string
	FilledQty     float64
	AvgPrice      float64
	Timestamp     time.Time
	Symbol        string
	Side          string
	Type          string
	Quantity      decimal.Decimal
	UpdatedAt     time.Time
}

// IsFilled reports whether the whole order was executed.
func (o OrderResponse) IsFilled() bool { return o.Status == StatusFilled }

// IsPending reports whether the exchange may still fill the order.
func (o OrderResponse) IsPending() bool {
	return o.Status == StatusNew || o.Status == StatusPartiallyFilled
}

// NormalizeStatus maps exchange specific status strings onto the shared set.
func NormalizeStatus(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, " ", "_")
	switch s {
	case "NEW", "ACCEPTED", "PENDING_NEW", "OPEN", "PENDING":
		return StatusNew
	case "PARTIALLY_FILLED", "PARTIAL_FILL":
		return StatusPartiallyFilled
	case "FILLED", "DONE", "CLOSED":
		return StatusFilled
	case "CANCELED", "CANCELLED", "PENDING_CANCEL":
		return StatusCanceled
	case "REJECTED":
		return StatusRejected
	case "EXPIRED", "EXPIRED_IN_MATCH":
		return StatusExpired
	default:
		return StatusUnknown
	}
}

// OrderManager interface for journaling order lifecycle.
type OrderManager interface {
	SaveOrder(ctx context.Context, order OrderResponse) error
	GetOrders(ctx context.Context, symbol string, start, end time.Time) ([]OrderResponse, error)
}
