package exchange_test

import (
	"context"
	"testing"
	"time"

	"github.com/amirphl/ema-trader/internal/candle"
	"github.com/amirphl/ema-trader/internal/exchange"
	"github.com/amirphl/ema-trader/internal/exchange/exchangetest"
	"github.com/amirphl/ema-trader/internal/order"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPaperExchange_FillsAtLastClose(t *testing.T) {
	backing := new(exchangetest.MockExchange)
	candles := []candle.Candle{
		{Timestamp: time.Unix(0, 0).UTC(), Open: 1, High: 1, Low: 1, Close: 100, Volume: 1},
		{Timestamp: time.Unix(60, 0).UTC(), Open: 1, High: 1, Low: 1, Close: 105.5, Volume: 1},
	}
	backing.On("FetchLatestCandles", mock.Anything, "BTC/USDC", "1m", 100).Return(candles, nil)

	p := exchange.NewPaperExchange(backing, zap.NewNop().Sugar())
	assert.Equal(t, "paper-mock", p.Name())

	req := order.OrderRequest{Symbol: "BTC/USDC", Side: order.SideBuy, Type: order.TypeMarket, Quantity: decimal.RequireFromString("0.1")}
	_, err := p.SubmitOrder(context.Background(), req)
	assert.Equal(t, exchange.KindRejected, exchange.KindOf(err), "no price seen yet")

	_, err = p.FetchLatestCandles(context.Background(), "BTC/USDC", "1m", 100)
	require.NoError(t, err)

	resp, err := p.SubmitOrder(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, order.StatusFilled, resp.Status)
	assert.Equal(t, 105.5, resp.AvgPrice)
	assert.InDelta(t, 0.1, resp.FilledQty, 1e-12)

	status, err := p.GetOrderStatus(context.Background(), "BTC/USDC", resp.OrderID)
	require.NoError(t, err)
	assert.Equal(t, resp, status)

	backing.AssertNotCalled(t, "SubmitOrder", mock.Anything, mock.Anything)
}

func TestPaperExchange_RejectsNonMarket(t *testing.T) {
	p := exchange.NewPaperExchange(new(exchangetest.MockExchange), zap.NewNop().Sugar())
	_, err := p.SubmitOrder(context.Background(), order.OrderRequest{Symbol: "BTC/USDC", Side: order.SideBuy, Type: "limit", Quantity: decimal.NewFromInt(1)})
	assert.Equal(t, exchange.KindRejected, exchange.KindOf(err))

	_, err = p.GetOrderStatus(context.Background(), "BTC/USDC", "missing")
	assert.Error(t, err)
}
