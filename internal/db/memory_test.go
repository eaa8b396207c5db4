package db

import (
	"context"
	"testing"
	"time"

	"github.com/amirphl/ema-trader/internal/journal"
	"github.com/amirphl/ema-trader/internal/order"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorage_Orders(t *testing.T) {
	var storage Storage = NewMemory()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"b", "a", "c"} {
		require.NoError(t, storage.SaveOrder(ctx, order.OrderResponse{
			OrderID:   id,
			Symbol:    "BTC/USDC",
			Side:      order.SideBuy,
			Status:    order.StatusNew,
			Quantity:  decimal.NewFromFloat(0.1),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, storage.SaveOrder(ctx, order.OrderResponse{OrderID: "x", Symbol: "ETH/USDC", Timestamp: base}))

	// upsert by id
	require.NoError(t, storage.SaveOrder(ctx, order.OrderResponse{OrderID: "a", Symbol: "BTC/USDC", Status: order.StatusFilled, Timestamp: base.Add(time.Minute)}))

	orders, err := storage.GetOrders(ctx, "btc/usdc", base, base.Add(2*time.Minute))
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "b", orders[0].OrderID)
	assert.Equal(t, "a", orders[1].OrderID)
	assert.Equal(t, order.StatusFilled, orders[1].Status)
	assert.NoError(t, storage.Close())
}

func TestMemoryStorage_Events(t *testing.T) {
	storage := NewMemory()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, storage.LogEvent(ctx, journal.Event{Time: base, Type: journal.TypeOrder, Description: "first"}))
	require.NoError(t, storage.LogEvent(ctx, journal.Event{Time: base.Add(time.Hour), Type: journal.TypeOrder, Description: "late"}))
	require.NoError(t, storage.LogEvent(ctx, journal.Event{Time: base, Type: journal.TypeError, Description: "other"}))

	events, err := storage.GetEvents(ctx, journal.TypeOrder, base, base.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "first", events[0].Description)
}
