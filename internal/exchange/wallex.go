package exchange

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/amirphl/ema-trader/internal/candle"
	"github.com/amirphl/ema-trader/internal/market"
	"github.com/amirphl/ema-trader/internal/order"
	"github.com/amirphl/ema-trader/internal/tfutils"
	"github.com/shopspring/decimal"
	wallex "github.com/wallexchange/wallex-go"
)

// wallexClient is the subset of the wallex-go client the adapter calls.
type wallexClient interface {
	Candles(symbol, resolution string, from, to time.Time) ([]*wallex.Candle, error)
	PlaceOrder(params *wallex.OrderParams) (*wallex.Order, error)
	Order(clientOrderID string) (*wallex.Order, error)
	Balances() (map[string]*wallex.Balance, error)
}

type WallexExchange struct {
	client wallexClient
	now    func() time.Time
}

func NewWallexExchange(apiKey string) *WallexExchange {
	return &WallexExchange{
		client: wallex.New(wallex.ClientOptions{APIKey: apiKey}),
		now:    time.Now,
	}
}

func (w *WallexExchange) Name() string {
	return "wallex"
}

// wallexResolution converts a timeframe to the resolution the candles endpoint expects:
// minutes for intraday, 1D for daily.
func wallexResolution(timeframe string) (string, error) {
	if timeframe == "1d" {
		return "1D", nil
	}
	minutes := tfutils.TimeframeMinutes(timeframe)
	if minutes <= 0 {
		return "", fmt.Errorf("unsupported timeframe: %s", timeframe)
	}
	return strconv.Itoa(minutes), nil
}

func (w *WallexExchange) wrap(op string, err error, fallback Kind) error {
	return NewError(classifyMessage(err, fallback), op, err)
}

func (w *WallexExchange) FetchLatestCandles(ctx context.Context, symbol, timeframe string, limit int) ([]candle.Candle, error) {
	const op = "wallex.FetchLatestCandles"
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resolution, err := wallexResolution(timeframe)
	if err != nil {
		return nil, NewError(KindFatal, op, err)
	}

	// Two spare candles cover the one in progress and clock skew.
	end := w.now().UTC()
	start := end.Add(-tfutils.GetTimeframeDuration(timeframe) * time.Duration(limit+2))

	raw, err := w.client.Candles(NormalizeSymbol(symbol), resolution, start, end)
	if err != nil {
		return nil, w.wrap(op, fmt.Errorf("fetching candles: %w", err), KindTransient)
	}

	candles := make([]candle.Candle, 0, len(raw))
	for _, wc := range raw {
		if wc == nil {
			continue
		}
		c, err := wallexCandle(wc)
		if err != nil {
			return nil, NewError(KindData, op, err)
		}
		c.Symbol = symbol
		c.Timeframe = timeframe
		c.Source = w.Name()
		candles = append(candles, c)
	}

	candles, err = candle.Normalize(candles)
	if err != nil {
		return nil, NewError(KindData, op, err)
	}
	return lastN(candles, limit), nil
}

func wallexCandle(wc *wallex.Candle) (candle.Candle, error) {
	fields := []wallex.Number{wc.Open, wc.High, wc.Low, wc.Close, wc.Volume}
	values := make([]float64, len(fields))
	for i, n := range fields {
		v, err := strconv.ParseFloat(string(n), 64)
		if err != nil {
			return candle.Candle{}, fmt.Errorf("candle at %s: %w", wc.Timestamp, err)
		}
		values[i] = v
	}
	return candle.Candle{
		Timestamp: wc.Timestamp.UTC().Truncate(time.Minute),
		Open:      values[0],
		High:      values[1],
		Low:       values[2],
		Close:     values[3],
		Volume:    values[4],
	}, nil
}

func (w *WallexExchange) SubmitOrder(ctx context.Context, req order.OrderRequest) (order.OrderResponse, error) {
	const op = "wallex.SubmitOrder"
	if err := ctx.Err(); err != nil {
		return order.OrderResponse{}, err
	}
	if !req.Quantity.IsPositive() {
		return order.OrderResponse{}, NewError(KindRejected, op, fmt.Errorf("quantity must be positive, got %s", req.Quantity))
	}

	params := &wallex.OrderParams{
		Symbol:   NormalizeSymbol(req.Symbol),
		Type:     strings.ToUpper(req.Type),
		Side:     strings.ToUpper(req.Side),
		Quantity: wallex.Number(req.Quantity.String()),
		ClientID: req.ClientOrderID,
	}
	resp, err := w.client.PlaceOrder(params)
	if err != nil {
		return order.OrderResponse{}, w.wrap(op, err, KindRejected)
	}

	out := wallexOrder(resp)
	if out.ClientOrderID == "" {
		out.OrderID = req.ClientOrderID
		out.ClientOrderID = req.ClientOrderID
	}
	out.Symbol = req.Symbol
	out.Side = req.Side
	out.Type = req.Type
	out.Quantity = req.Quantity
	return out, nil
}

func (w *WallexExchange) GetOrderStatus(ctx context.Context, symbol, orderID string) (order.OrderResponse, error) {
	const op = "wallex.GetOrderStatus"
	if err := ctx.Err(); err != nil {
		return order.OrderResponse{}, err
	}

	resp, err := w.client.Order(orderID)
	if err != nil {
		return order.OrderResponse{}, w.wrap(op, err, KindTransient)
	}

	out := wallexOrder(resp)
	out.Symbol = symbol
	return out, nil
}

func wallexOrder(o *wallex.Order) order.OrderResponse {
	qty, _ := decimal.NewFromString(string(o.OrigQty))
	return order.OrderResponse{
		OrderID:       o.ClientOrderID,
		ClientOrderID: o.ClientOrderID,
		Status:        order.NormalizeStatus(o.Status),
		FilledQty:     numberValue(o.ExecutedQty),
		AvgPrice:      numberValue(o.ExecutedPrice),
		Timestamp:     o.CreatedAt.UTC(),
		Side:          strings.ToLower(o.Side),
		Type:          strings.ToLower(o.Type),
		Quantity:      qty,
		UpdatedAt:     o.CreatedAt.UTC(),
	}
}

func (w *WallexExchange) FetchBalances(ctx context.Context) (map[string]market.Balance, error) {
	const op = "wallex.FetchBalances"
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := w.client.Balances()
	if err != nil {
		return nil, w.wrap(op, fmt.Errorf("fetching balances: %w", err), KindTransient)
	}

	balances := make(map[string]market.Balance, len(raw))
	for asset, wb := range raw {
		if wb == nil {
			continue
		}
		available, err := decimal.NewFromString(string(wb.Value))
		if err != nil {
			return nil, NewError(KindData, op, fmt.Errorf("balance of %s: %w", asset, err))
		}
		locked, err := decimal.NewFromString(string(wb.Locked))
		if err != nil {
			return nil, NewError(KindData, op, fmt.Errorf("locked balance of %s: %w", asset, err))
		}
		balances[asset] = market.Balance{
			Asset:     asset,
			Available: available,
			Locked:    locked,
			Total:     available.Add(locked),
		}
	}
	return balances, nil
}

// numberValue safely dereferences *wallex.Number.
func numberValue(n *wallex.Number) float64 {
	if n == nil {
		return 0
	}
	out, _ := strconv.ParseFloat(string(*n), 64)
	return out
}
