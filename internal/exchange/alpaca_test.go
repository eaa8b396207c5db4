package exchange

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/amirphl/ema-trader/internal/order"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAlpacaTrading struct {
	account   *alpaca.Account
	positions []alpaca.Position
	placed    alpaca.PlaceOrderRequest
	order     *alpaca.Order
	err       error
}

func (f *fakeAlpacaTrading) GetAccount() (*alpaca.Account, error)     { return f.account, f.err }
func (f *fakeAlpacaTrading) GetPositions() ([]alpaca.Position, error) { return f.positions, f.err }
func (f *fakeAlpacaTrading) GetOrder(string) (*alpaca.Order, error)   { return f.order, f.err }
func (f *fakeAlpacaTrading) PlaceOrder(req alpaca.PlaceOrderRequest) (*alpaca.Order, error) {
	f.placed = req
	return f.order, f.err
}

type fakeAlpacaBars struct {
	symbol string
	req    marketdata.GetCryptoBarsRequest
	bars   []marketdata.CryptoBar
}

func (f *fakeAlpacaBars) GetCryptoBars(symbol string, req marketdata.GetCryptoBarsRequest) ([]marketdata.CryptoBar, error) {
	f.symbol = symbol
	f.req = req
	return f.bars, nil
}

func TestAlpacaSymbol(t *testing.T) {
	assert.Equal(t, "BTC/USD", alpacaSymbol("btc-usd"))
	assert.Equal(t, "BTC/USD", alpacaSymbol("BTC/USD"))
	assert.Equal(t, "BTCUSD", alpacaSymbol("btcusd"))
}

func TestAlpacaTimeFrame(t *testing.T) {
	tf, err := alpacaTimeFrame("15m")
	require.NoError(t, err)
	assert.Equal(t, marketdata.NewTimeFrame(15, marketdata.Min), tf)

	tf, err = alpacaTimeFrame("4h")
	require.NoError(t, err)
	assert.Equal(t, marketdata.NewTimeFrame(4, marketdata.Hour), tf)

	_, err = alpacaTimeFrame("7m")
	assert.Error(t, err)
}

func TestAlpacaFetchLatestCandles(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 10, 0, 0, time.UTC)
	bars := &fakeAlpacaBars{}
	for i := 0; i < 4; i++ {
		bars.bars = append(bars.bars, marketdata.CryptoBar{
			Timestamp: now.Add(time.Duration(i-4) * time.Minute),
			Open:      10, High: 12, Low: 9, Close: 10 + float64(i)/2, Volume: 3,
		})
	}
	a := &AlpacaExchange{trading: &fakeAlpacaTrading{}, bars: bars, now: func() time.Time { return now }}

	candles, err := a.FetchLatestCandles(context.Background(), "BTC-USD", "1m", 2)
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, "BTC/USD", bars.symbol)
	assert.Equal(t, now.Add(-4*time.Minute), bars.req.Start)
	assert.Equal(t, 11.0, candles[0].Close)
	assert.Equal(t, 11.5, candles[1].Close)
}

func TestAlpacaSubmitOrder(t *testing.T) {
	filled := decimal.RequireFromString("0.1")
	avg := decimal.RequireFromString("43000")
	trading := &fakeAlpacaTrading{order: &alpaca.Order{
		ID:             "o-1",
		Status:         "filled",
		FilledQty:      filled,
		FilledAvgPrice: &avg,
		Side:           alpaca.Sell,
		Type:           alpaca.Market,
	}}
	a := &AlpacaExchange{trading: trading, bars: &fakeAlpacaBars{}, now: time.Now}

	resp, err := a.SubmitOrder(context.Background(), order.OrderRequest{
		Symbol:   "BTC/USD",
		Side:     order.SideSell,
		Type:     order.TypeMarket,
		Quantity: filled,
	})
	require.NoError(t, err)
	assert.Equal(t, alpaca.Sell, trading.placed.Side)
	assert.Equal(t, alpaca.Market, trading.placed.Type)
	assert.True(t, filled.Equal(*trading.placed.Qty))
	assert.Equal(t, order.StatusFilled, resp.Status)
	assert.Equal(t, 43000.0, resp.AvgPrice)
	assert.Equal(t, "sell", resp.Side)
}

func TestAlpacaErrorClassification(t *testing.T) {
	a := &AlpacaExchange{bars: &fakeAlpacaBars{}, now: time.Now}
	req := order.OrderRequest{Symbol: "BTC/USD", Side: order.SideBuy, Type: order.TypeMarket, Quantity: decimal.NewFromInt(1)}

	a.trading = &fakeAlpacaTrading{err: &alpaca.APIError{StatusCode: http.StatusForbidden, Message: "insufficient balance for USD"}}
	_, err := a.SubmitOrder(context.Background(), req)
	assert.Equal(t, KindInsufficientBalance, KindOf(err))

	a.trading = &fakeAlpacaTrading{err: &alpaca.APIError{StatusCode: http.StatusUnprocessableEntity, Message: "qty must be > 0"}}
	_, err = a.SubmitOrder(context.Background(), req)
	assert.Equal(t, KindRejected, KindOf(err))

	a.trading = &fakeAlpacaTrading{err: &alpaca.APIError{StatusCode: http.StatusUnauthorized, Message: "unauthorized."}}
	_, err = a.FetchBalances(context.Background())
	assert.Equal(t, KindFatal, KindOf(err))

	a.trading = &fakeAlpacaTrading{err: &alpaca.APIError{StatusCode: http.StatusServiceUnavailable}}
	_, err = a.GetOrderStatus(context.Background(), "BTC/USD", "o-1")
	assert.Equal(t, KindTransient, KindOf(err))
}

func TestAlpacaFetchBalances(t *testing.T) {
	a := &AlpacaExchange{
		trading: &fakeAlpacaTrading{
			account:   &alpaca.Account{Currency: "USD", Cash: decimal.NewFromInt(1000)},
			positions: []alpaca.Position{{Symbol: "BTCUSD", Qty: decimal.RequireFromString("0.2")}},
		},
		bars: &fakeAlpacaBars{},
		now:  time.Now,
	}

	balances, err := a.FetchBalances(context.Background())
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(1000).Equal(balances["USD"].Available))
	assert.True(t, decimal.RequireFromString("0.2").Equal(balances["BTC"].Total))
}
