// Package exchangetest provides a testify mock of exchange.Exchange.
package exchangetest

import (
	"context"

	"github.com/amirphl/ema-trader/internal/candle"
	"github.com/amirphl/ema-trader/internal/market"
	"github.com/amirphl/ema-trader/internal/order"
	"github.com/stretchr/testify/mock"
)

type MockExchange struct {
	mock.Mock
}

func (m *MockExchange) Name() string {
	return "mock"
}

func (m *MockExchange) FetchBalances(ctx context.Context) (map[string]market.Balance, error) {
	args := m.Called(ctx)
	balances, _ := args.Get(0).(map[string]market.Balance)
	return balances, args.Error(1)
}

func (m *MockExchange) FetchLatestCandles(ctx context.Context, symbol, timeframe string, limit int) ([]candle.Candle, error) {
	args := m.Called(ctx, symbol, timeframe, limit)
	candles, _ := args.Get(0).([]candle.Candle)
	return candles, args.Error(1)
}

func (m *MockExchange) SubmitOrder(ctx context.Context, req order.OrderRequest) (order.OrderResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(order.OrderResponse)
	return resp, args.Error(1)
}

func (m *MockExchange) GetOrderStatus(ctx context.Context, symbol, orderID string) (order.OrderResponse, error) {
	args := m.Called(ctx, symbol, orderID)
	resp, _ := args.Get(0).(order.OrderResponse)
	return resp, args.Error(1)
}
