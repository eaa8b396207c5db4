package exchange

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/amirphl/ema-trader/internal/order"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	wallex "github.com/wallexchange/wallex-go"
)

type fakeWallexClient struct {
	candles    []*wallex.Candle
	candlesErr error
	placed     *wallex.OrderParams
	order      *wallex.Order
	orderErr   error
	balances   map[string]*wallex.Balance

	gotResolution string
	gotFrom       time.Time
}

func (f *fakeWallexClient) Candles(symbol, resolution string, from, to time.Time) ([]*wallex.Candle, error) {
	f.gotResolution = resolution
	f.gotFrom = from
	return f.candles, f.candlesErr
}

func (f *fakeWallexClient) PlaceOrder(params *wallex.OrderParams) (*wallex.Order, error) {
	f.placed = params
	return f.order, f.orderErr
}

func (f *fakeWallexClient) Order(clientOrderID string) (*wallex.Order, error) {
	return f.order, f.orderErr
}

func (f *fakeWallexClient) Balances() (map[string]*wallex.Balance, error) {
	return f.balances, nil
}

func wallexNumber(s string) *wallex.Number {
	n := wallex.Number(s)
	return &n
}

func TestWallexResolution(t *testing.T) {
	tests := map[string]string{"1m": "1", "15m": "15", "1h": "60", "4h": "240", "1d": "1D"}
	for tf, want := range tests {
		got, err := wallexResolution(tf)
		require.NoError(t, err)
		assert.Equal(t, want, got, tf)
	}
	_, err := wallexResolution("2w")
	assert.Error(t, err)
}

func TestWallexFetchLatestCandles(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 30, 0, time.UTC)
	fake := &fakeWallexClient{}
	for i := 0; i < 5; i++ {
		fake.candles = append(fake.candles, &wallex.Candle{
			Timestamp: now.Add(time.Duration(i-5) * time.Minute),
			Open:      "100", High: "110", Low: "90", Close: wallex.Number("10" + string(rune('0'+i))), Volume: "1",
		})
	}
	w := &WallexExchange{client: fake, now: func() time.Time { return now }}

	candles, err := w.FetchLatestCandles(context.Background(), "BTC/USDT", "1m", 3)
	require.NoError(t, err)
	require.Len(t, candles, 3)
	assert.Equal(t, 102.0, candles[0].Close)
	assert.Equal(t, 104.0, candles[2].Close)
	assert.Equal(t, "1", fake.gotResolution)
	assert.Equal(t, now.Add(-5*time.Minute), fake.gotFrom)
}

func TestWallexFetchLatestCandles_Errors(t *testing.T) {
	w := &WallexExchange{client: &fakeWallexClient{candlesErr: errors.New("i/o timeout")}, now: time.Now}
	_, err := w.FetchLatestCandles(context.Background(), "BTC/USDT", "1m", 3)
	assert.Equal(t, KindTransient, KindOf(err))

	bad := &fakeWallexClient{candles: []*wallex.Candle{{Timestamp: time.Now(), Open: "x", High: "1", Low: "1", Close: "1", Volume: "1"}}}
	w = &WallexExchange{client: bad, now: time.Now}
	_, err = w.FetchLatestCandles(context.Background(), "BTC/USDT", "1m", 3)
	assert.Equal(t, KindData, KindOf(err))
}

func TestWallexSubmitOrder(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	fake := &fakeWallexClient{order: &wallex.Order{
		ClientOrderID: "w-1",
		Status:        "FILLED",
		ExecutedQty:   wallexNumber("0.1"),
		ExecutedPrice: wallexNumber("42000"),
		CreatedAt:     created,
	}}
	w := &WallexExchange{client: fake, now: time.Now}

	resp, err := w.SubmitOrder(context.Background(), order.OrderRequest{
		Symbol:        "BTC/USDT",
		Side:          order.SideBuy,
		Type:          order.TypeMarket,
		Quantity:      decimal.RequireFromString("0.1"),
		ClientOrderID: "ema_buy_1714564800000",
	})
	require.NoError(t, err)
	assert.Equal(t, "ema_buy_1714564800000", fake.placed.ClientID)
	assert.Equal(t, "BTCUSDT", fake.placed.Symbol)
	assert.Equal(t, "BUY", fake.placed.Side)
	assert.Equal(t, "MARKET", fake.placed.Type)
	assert.Equal(t, wallex.Number("0.1"), fake.placed.Quantity)
	assert.Equal(t, "w-1", resp.OrderID)
	assert.True(t, resp.IsFilled())
	assert.Equal(t, 42000.0, resp.AvgPrice)
}

func TestWallexSubmitOrder_KeepsClientIDWhenResponseOmitsIt(t *testing.T) {
	fake := &fakeWallexClient{order: &wallex.Order{Status: "NEW"}}
	w := &WallexExchange{client: fake, now: time.Now}

	resp, err := w.SubmitOrder(context.Background(), order.OrderRequest{
		Symbol:        "BTC/USDT",
		Side:          order.SideSell,
		Type:          order.TypeMarket,
		Quantity:      decimal.RequireFromString("0.1"),
		ClientOrderID: "ema_sell_1714564800000",
	})
	require.NoError(t, err)
	assert.Equal(t, "ema_sell_1714564800000", resp.ClientOrderID)
	assert.Equal(t, "ema_sell_1714564800000", resp.OrderID)
	assert.True(t, resp.IsPending())
}

func TestWallexSubmitOrder_Insufficient(t *testing.T) {
	w := &WallexExchange{client: &fakeWallexClient{orderErr: errors.New("insufficient balance")}, now: time.Now}
	_, err := w.SubmitOrder(context.Background(), order.OrderRequest{
		Symbol:   "BTC/USDT",
		Side:     order.SideBuy,
		Type:     order.TypeMarket,
		Quantity: decimal.RequireFromString("0.1"),
	})
	assert.Equal(t, KindInsufficientBalance, KindOf(err))
}

func TestWallexFetchBalances(t *testing.T) {
	fake := &fakeWallexClient{balances: map[string]*wallex.Balance{
		"USDT": {Value: "100.5", Locked: "10"},
	}}
	w := &WallexExchange{client: fake, now: time.Now}

	balances, err := w.FetchBalances(context.Background())
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("110.5").Equal(balances["USDT"].Total))
}
