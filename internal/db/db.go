// Package db
package db

import (
	_ "embed"

	"github.com/amirphl/ema-trader/internal/journal"
	"github.com/amirphl/ema-trader/internal/order"
)

// Schema creates the journal tables. Every statement is idempotent.
//
//go:embed schema.sql
var Schema string

// Storage is the journal the trader writes orders and events to. It is an
// audit trail only; the position state is never restored from it.
type Storage interface {
	order.OrderManager
	journal.Journaler
	Close() error
}
