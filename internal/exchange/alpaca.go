package exchange

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/amirphl/ema-trader/internal/candle"
	"github.com/amirphl/ema-trader/internal/market"
	"github.com/amirphl/ema-trader/internal/order"
	"github.com/amirphl/ema-trader/internal/tfutils"
	"github.com/shopspring/decimal"
)

type alpacaTrading interface {
	GetAccount() (*alpaca.Account, error)
	GetPositions() ([]alpaca.Position, error)
	PlaceOrder(req alpaca.PlaceOrderRequest) (*alpaca.Order, error)
	GetOrder(orderID string) (*alpaca.Order, error)
}

type alpacaBars interface {
	GetCryptoBars(symbol string, req marketdata.GetCryptoBarsRequest) ([]marketdata.CryptoBar, error)
}

// AlpacaExchange trades crypto pairs such as BTC/USD on Alpaca.
type AlpacaExchange struct {
	trading alpacaTrading
	bars    alpacaBars
	now     func() time.Time
}

func NewAlpacaExchange(apiKey, apiSecret, baseURL string) *AlpacaExchange {
	return &AlpacaExchange{
		trading: alpaca.NewClient(alpaca.ClientOpts{
			APIKey:    apiKey,
			APISecret: apiSecret,
			BaseURL:   baseURL,
		}),
		bars: marketdata.NewClient(marketdata.ClientOpts{
			APIKey:    apiKey,
			APISecret: apiSecret,
		}),
		now: time.Now,
	}
}

func (a *AlpacaExchange) Name() string {
	return "alpaca"
}

// alpacaSymbol returns the BASE/QUOTE form Alpaca uses for crypto.
func alpacaSymbol(symbol string) string {
	base, quote := market.SplitSymbol(symbol)
	if base == "" {
		return strings.ToUpper(symbol)
	}
	return base + "/" + quote
}

func alpacaTimeFrame(timeframe string) (marketdata.TimeFrame, error) {
	switch {
	case timeframe == "1d":
		return marketdata.NewTimeFrame(1, marketdata.Day), nil
	case strings.HasSuffix(timeframe, "h"):
		return marketdata.NewTimeFrame(tfutils.TimeframeMinutes(timeframe)/60, marketdata.Hour), nil
	case strings.HasSuffix(timeframe, "m") && tfutils.IsValidTimeframe(timeframe):
		return marketdata.NewTimeFrame(tfutils.TimeframeMinutes(timeframe), marketdata.Min), nil
	default:
		return marketdata.TimeFrame{}, fmt.Errorf("unsupported timeframe: %s", timeframe)
	}
}

func (a *AlpacaExchange) wrap(op string, err error, orderOp bool) error {
	var apiErr *alpaca.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusUnauthorized || (apiErr.StatusCode == http.StatusForbidden && !orderOp):
			return NewError(KindFatal, op, err)
		case apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500:
			return NewError(KindTransient, op, err)
		case orderOp:
			// 403 on orders means buying power or position too small.
			if apiErr.StatusCode == http.StatusForbidden || strings.Contains(strings.ToLower(apiErr.Message), "insufficient") {
				return NewError(KindInsufficientBalance, op, err)
			}
			return NewError(KindRejected, op, err)
		case apiErr.StatusCode == http.StatusNotFound || apiErr.StatusCode == http.StatusUnprocessableEntity:
			return NewError(KindFatal, op, err)
		}
	}
	fallback := KindTransient
	if orderOp {
		fallback = KindRejected
	}
	return NewError(classifyMessage(err, fallback), op, err)
}

func (a *AlpacaExchange) FetchLatestCandles(ctx context.Context, symbol, timeframe string, limit int) ([]candle.Candle, error) {
	const op = "alpaca.FetchLatestCandles"
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tf, err := alpacaTimeFrame(timeframe)
	if err != nil {
		return nil, NewError(KindFatal, op, err)
	}

	end := a.now().UTC()
	start := end.Add(-tfutils.GetTimeframeDuration(timeframe) * time.Duration(limit+2))
	bars, err := a.bars.GetCryptoBars(alpacaSymbol(symbol), marketdata.GetCryptoBarsRequest{
		TimeFrame: tf,
		Start:     start,
		End:       end,
	})
	if err != nil {
		return nil, a.wrap(op, fmt.Errorf("fetching bars: %w", err), false)
	}

	candles := make([]candle.Candle, 0, len(bars))
	for _, bar := range bars {
		candles = append(candles, candle.Candle{
			Timestamp: bar.Timestamp.UTC(),
			Open:      bar.Open,
			High:      bar.High,
			Low:       bar.Low,
			Close:     bar.Close,
			Volume:    bar.Volume,
			Symbol:    symbol,
			Timeframe: timeframe,
			Source:    a.Name(),
		})
	}

	candles, err = candle.Normalize(candles)
	if err != nil {
		return nil, NewError(KindData, op, err)
	}
	return lastN(candles, limit), nil
}

// FetchBalances reports account cash under its currency and every open
// position under its base asset.
func (a *AlpacaExchange) FetchBalances(ctx context.Context) (map[string]market.Balance, error) {
	const op = "alpaca.FetchBalances"
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	acct, err := a.trading.GetAccount()
	if err != nil {
		return nil, a.wrap(op, err, false)
	}
	positions, err := a.trading.GetPositions()
	if err != nil {
		return nil, a.wrap(op, err, false)
	}

	currency := acct.Currency
	if currency == "" {
		currency = "USD"
	}
	balances := map[string]market.Balance{
		currency: {Asset: currency, Available: acct.Cash, Total: acct.Cash},
	}
	for _, p := range positions {
		base, _ := market.SplitSymbol(alpacaSymbol(p.Symbol))
		if base == "" {
			// positions come back as BTCUSD
			base = strings.TrimSuffix(p.Symbol, currency)
		}
		balances[base] = market.Balance{Asset: base, Available: p.Qty, Total: p.Qty}
	}
	return balances, nil
}

func (a *AlpacaExchange) SubmitOrder(ctx context.Context, req order.OrderRequest) (order.OrderResponse, error) {
	const op = "alpaca.SubmitOrder"
	if err := ctx.Err(); err != nil {
		return order.OrderResponse{}, err
	}
	if !req.Quantity.IsPositive() {
		return order.OrderResponse{}, NewError(KindRejected, op, fmt.Errorf("quantity must be positive, got %s", req.Quantity))
	}

	side := alpaca.Buy
	if req.Side == order.SideSell {
		side = alpaca.Sell
	}
	qty := req.Quantity
	o, err := a.trading.PlaceOrder(alpaca.PlaceOrderRequest{
		Symbol:        alpacaSymbol(req.Symbol),
		Qty:           &qty,
		Side:          side,
		Type:          alpaca.Market,
		TimeInForce:   alpaca.GTC,
		ClientOrderID: req.ClientOrderID,
	})
	if err != nil {
		return order.OrderResponse{}, a.wrap(op, err, true)
	}

	out := alpacaOrder(o)
	out.Symbol = req.Symbol
	return out, nil
}

func (a *AlpacaExchange) GetOrderStatus(ctx context.Context, symbol, orderID string) (order.OrderResponse, error) {
	const op = "alpaca.GetOrderStatus"
	if err := ctx.Err(); err != nil {
		return order.OrderResponse{}, err
	}
	o, err := a.trading.GetOrder(orderID)
	if err != nil {
		return order.OrderResponse{}, a.wrap(op, err, false)
	}
	out := alpacaOrder(o)
	out.Symbol = symbol
	return out, nil
}

func alpacaOrder(o *alpaca.Order) order.OrderResponse {
	var qty decimal.Decimal
	if o.Qty != nil {
		qty = *o.Qty
	}
	filled, _ := o.FilledQty.Float64()
	avg := 0.0
	if o.FilledAvgPrice != nil {
		avg, _ = o.FilledAvgPrice.Float64()
	}
	return order.OrderResponse{
		OrderID:       o.ID,
		ClientOrderID: o.ClientOrderID,
		Status:        order.NormalizeStatus(string(o.Status)),
		FilledQty:     filled,
		AvgPrice:      avg,
		Timestamp:     o.CreatedAt.UTC(),
		Side:          strings.ToLower(string(o.Side)),
		Type:          strings.ToLower(string(o.Type)),
		Quantity:      qty,
		UpdatedAt:     o.UpdatedAt.UTC(),
	}
}
