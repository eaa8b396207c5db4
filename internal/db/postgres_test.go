package db

import (
	"context"
	"testing"
	"time"

	dbconf "github.com/amirphl/ema-trader/internal/db/conf"
	"github.com/amirphl/ema-trader/internal/journal"
	"github.com/amirphl/ema-trader/internal/order"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupPostgres(t *testing.T) *Default {
	t.Helper()
	cfg, cleanup := dbconf.NewTestConfig(t, Schema)
	t.Cleanup(cleanup)

	storage, err := New(*cfg)
	require.NoError(t, err)
	return storage
}

func TestPostgres_Orders(t *testing.T) {
	storage := setupPostgres(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	o := order.OrderResponse{
		OrderID:   "42",
		Status:    order.StatusNew,
		Symbol:    "BTC/USDC",
		Side:      order.SideBuy,
		Type:      order.TypeMarket,
		Quantity:  decimal.RequireFromString("0.1"),
		Timestamp: now,
	}
	require.NoError(t, storage.SaveOrder(ctx, o))

	o.Status = order.StatusFilled
	o.FilledQty = 0.1
	o.AvgPrice = 65000.5
	o.UpdatedAt = now.Add(time.Second)
	require.NoError(t, storage.SaveOrder(ctx, o))

	orders, err := storage.GetOrders(ctx, "BTC/USDC", now.Add(-time.Minute), now.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, order.StatusFilled, orders[0].Status)
	assert.True(t, decimal.RequireFromString("0.1").Equal(orders[0].Quantity))
	assert.Equal(t, 65000.5, orders[0].AvgPrice)
}

func TestPostgres_Events(t *testing.T) {
	storage := setupPostgres(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, storage.LogEvent(ctx, journal.Event{
		Time:        now,
		Type:        journal.TypeSignal,
		Description: "buy",
		Data:        map[string]any{"price": 100.5},
	}))
	require.NoError(t, storage.Migrate(ctx))

	events, err := storage.GetEvents(ctx, journal.TypeSignal, now.Add(-time.Minute), now.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "buy", events[0].Description)
	assert.Equal(t, 100.5, events[0].Data["price"])
}

func TestPostgres_OuterTransactionRollback(t *testing.T) {
	storage := setupPostgres(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	tx, err := storage.GetDB().BeginTx(ctx, nil)
	require.NoError(t, err)

	txCtx := WithTransaction(ctx, tx)
	require.NoError(t, storage.LogEvent(txCtx, journal.Event{
		Time:        now,
		Type:        journal.TypeError,
		Description: "transient",
	}))

	inTx, err := storage.GetEvents(txCtx, journal.TypeError, now.Add(-time.Minute), now.Add(time.Minute))
	require.NoError(t, err)
	assert.Len(t, inTx, 1)

	require.NoError(t, tx.Rollback())

	after, err := storage.GetEvents(ctx, journal.TypeError, now.Add(-time.Minute), now.Add(time.Minute))
	require.NoError(t, err)
	assert.Empty(t, after)
}
