package exchange

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/amirphl/ema-trader/internal/candle"
	"github.com/amirphl/ema-trader/internal/market"
	"github.com/amirphl/ema-trader/internal/order"
	"github.com/amirphl/ema-trader/internal/tfutils"
	"github.com/shopspring/decimal"
)

var errNoCredentials = errors.New("api key/secret required for signed endpoints")

// BinanceExchange implements the spot endpoints the trader needs on top of go-binance.
type BinanceExchange struct {
	client     *binance.Client
	recvWindow int64
	now        func() time.Time
}

func NewBinanceExchange(apiKey, apiSecret, baseURL string) *BinanceExchange {
	client := binance.NewClient(apiKey, apiSecret)
	if baseURL != "" {
		client.BaseURL = strings.TrimRight(baseURL, "/")
	}
	client.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	return &BinanceExchange{
		client:     client,
		recvWindow: 5000,
		now:        time.Now,
	}
}

func (b *BinanceExchange) Name() string {
	return "binance"
}

func (b *BinanceExchange) signed() error {
	if b.client.APIKey == "" || b.client.SecretKey == "" {
		return errNoCredentials
	}
	return nil
}

// classifyBinance maps a Binance API error onto a Kind. Codes follow the spot
// API error list; code 0 means the body was not a Binance error, as with
// gateway pages in front of the API.
func classifyBinance(apiErr *common.APIError, orderOp bool) Kind {
	switch apiErr.Code {
	case 0, -1003, -1015, -1021: // gateway, rate limits, timestamp outside recvWindow
		return KindTransient
	case -1002, -1022, -2014, -2015: // unauthorized, bad signature, bad api key
		return KindFatal
	case -1121: // invalid symbol
		return KindFatal
	case -2010:
		if strings.Contains(strings.ToLower(apiErr.Message), "insufficient balance") {
			return KindInsufficientBalance
		}
		return KindRejected
	case -1013, -1111, -1100, -1102, -1106, -2011:
		return KindRejected
	}

	if orderOp {
		return KindRejected
	}
	return KindTransient
}

// isTransport reports whether err happened before a response was read.
func isTransport(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr)
}

// wrap classifies errors of read endpoints. Anything that is neither an API
// error nor a transport failure is a response we could not decode.
func (b *BinanceExchange) wrap(op string, err error, orderOp bool) error {
	var apiErr *common.APIError
	switch {
	case errors.As(err, &apiErr):
		return NewError(classifyBinance(apiErr, orderOp), op, err)
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, errNoCredentials):
		return NewError(KindFatal, op, err)
	case isTransport(err):
		return NewError(KindTransient, op, err)
	default:
		return NewError(KindData, op, err)
	}
}

// FetchLatestCandles fetches the most recent klines. The last one is usually
// the candle still in progress.
func (b *BinanceExchange) FetchLatestCandles(ctx context.Context, symbol, timeframe string, limit int) ([]candle.Candle, error) {
	const op = "binance.FetchLatestCandles"
	if !tfutils.IsValidTimeframe(timeframe) {
		return nil, NewError(KindFatal, op, fmt.Errorf("unsupported timeframe: %s", timeframe))
	}

	klines, err := b.client.NewKlinesService().
		Symbol(NormalizeSymbol(symbol)).
		Interval(timeframe).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, b.wrap(op, fmt.Errorf("fetching klines: %w", err), false)
	}

	candles := make([]candle.Candle, 0, len(klines))
	for i, k := range klines {
		if k == nil {
			continue
		}
		c, err := parseKline(k)
		if err != nil {
			return nil, NewError(KindData, op, fmt.Errorf("kline %d: %w", i, err))
		}
		c.Symbol = symbol
		c.Timeframe = timeframe
		c.Source = b.Name()
		candles = append(candles, c)
	}

	candles, err = candle.Normalize(candles)
	if err != nil {
		return nil, NewError(KindData, op, err)
	}
	return candles, nil
}

func parseKline(k *binance.Kline) (candle.Candle, error) {
	fields := []string{k.Open, k.High, k.Low, k.Close, k.Volume}
	values := make([]float64, len(fields))
	for i, s := range fields {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return candle.Candle{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		values[i] = v
	}
	return candle.Candle{
		Timestamp: time.UnixMilli(k.OpenTime).UTC(),
		Open:      values[0],
		High:      values[1],
		Low:       values[2],
		Close:     values[3],
		Volume:    values[4],
	}, nil
}

// FetchBalances retrieves free and locked amounts of every asset on the account.
func (b *BinanceExchange) FetchBalances(ctx context.Context) (map[string]market.Balance, error) {
	const op = "binance.FetchBalances"
	if err := b.signed(); err != nil {
		return nil, b.wrap(op, err, false)
	}

	account, err := b.client.NewGetAccountService().Do(ctx, binance.WithRecvWindow(b.recvWindow))
	if err != nil {
		return nil, b.wrap(op, fmt.Errorf("fetching account: %w", err), false)
	}

	balances := make(map[string]market.Balance, len(account.Balances))
	for _, bal := range account.Balances {
		free, err := decimal.NewFromString(bal.Free)
		if err != nil {
			return nil, NewError(KindData, op, fmt.Errorf("free balance of %s: %w", bal.Asset, err))
		}
		locked, err := decimal.NewFromString(bal.Locked)
		if err != nil {
			return nil, NewError(KindData, op, fmt.Errorf("locked balance of %s: %w", bal.Asset, err))
		}
		balances[bal.Asset] = market.Balance{
			Asset:     bal.Asset,
			Available: free,
			Locked:    locked,
			Total:     free.Add(locked),
		}
	}
	return balances, nil
}

// binanceOrder holds the fields shared by the order placement RESULT response
// and the order query response.
type binanceOrder struct {
	OrderID       int64
	ClientOrderID string
	Status        string
	Side          string
	Type          string
	OrigQty       string
	ExecutedQty   string
	QuoteQty      string
	Created       int64
	Updated       int64
}

func (o binanceOrder) toResponse(symbol string) order.OrderResponse {
	updated := o.Updated
	if updated == 0 {
		updated = o.Created
	}

	qty, _ := decimal.NewFromString(o.OrigQty)
	executed, _ := strconv.ParseFloat(o.ExecutedQty, 64)
	quote, _ := strconv.ParseFloat(o.QuoteQty, 64)
	avg := 0.0
	if executed > 0 {
		avg = quote / executed
	}

	return order.OrderResponse{
		OrderID:       strconv.FormatInt(o.OrderID, 10),
		ClientOrderID: o.ClientOrderID,
		Status:        order.NormalizeStatus(o.Status),
		FilledQty:     executed,
		AvgPrice:      avg,
		Timestamp:     time.UnixMilli(o.Created).UTC(),
		Symbol:        symbol,
		Side:          strings.ToLower(o.Side),
		Type:          strings.ToLower(o.Type),
		Quantity:      qty,
		UpdatedAt:     time.UnixMilli(updated).UTC(),
	}
}

// SubmitOrder places a market order. Once Binance has answered with a
// success status the order counts as placed: a body that cannot be decoded
// yields an UNKNOWN response keyed by the client order id, never an error.
func (b *BinanceExchange) SubmitOrder(ctx context.Context, req order.OrderRequest) (order.OrderResponse, error) {
	const op = "binance.SubmitOrder"
	if !req.Quantity.IsPositive() {
		return order.OrderResponse{}, NewError(KindRejected, op, fmt.Errorf("quantity must be positive, got %s", req.Quantity))
	}
	if err := b.signed(); err != nil {
		return order.OrderResponse{}, b.wrap(op, err, true)
	}

	svc := b.client.NewCreateOrderService().
		Symbol(NormalizeSymbol(req.Symbol)).
		Side(binance.SideType(strings.ToUpper(req.Side))).
		Type(binance.OrderType(strings.ToUpper(req.Type))).
		Quantity(req.Quantity.String()).
		NewOrderRespType(binance.NewOrderRespTypeRESULT)
	if req.ClientOrderID != "" {
		svc = svc.NewClientOrderID(req.ClientOrderID)
	}

	res, err := svc.Do(ctx, binance.WithRecvWindow(b.recvWindow))
	if err != nil {
		var apiErr *common.APIError
		if errors.As(err, &apiErr) || errors.Is(err, context.Canceled) || isTransport(err) {
			return order.OrderResponse{}, b.wrap(op, err, true)
		}
		return b.unreadableOrder(req), nil
	}

	return binanceOrder{
		OrderID:       res.OrderID,
		ClientOrderID: res.ClientOrderID,
		Status:        string(res.Status),
		Side:          string(res.Side),
		Type:          string(res.Type),
		OrigQty:       res.OrigQuantity,
		ExecutedQty:   res.ExecutedQuantity,
		QuoteQty:      res.CummulativeQuoteQuantity,
		Created:       res.TransactTime,
	}.toResponse(req.Symbol), nil
}

func (b *BinanceExchange) unreadableOrder(req order.OrderRequest) order.OrderResponse {
	now := b.now().UTC()
	return order.OrderResponse{
		OrderID:       req.ClientOrderID,
		ClientOrderID: req.ClientOrderID,
		Status:        order.StatusUnknown,
		Timestamp:     now,
		Symbol:        req.Symbol,
		Side:          req.Side,
		Type:          req.Type,
		Quantity:      req.Quantity,
		UpdatedAt:     now,
	}
}

// GetOrderStatus looks an order up by exchange id, or by client order id when
// orderID is not numeric.
func (b *BinanceExchange) GetOrderStatus(ctx context.Context, symbol, orderID string) (order.OrderResponse, error) {
	const op = "binance.GetOrderStatus"
	if err := b.signed(); err != nil {
		return order.OrderResponse{}, b.wrap(op, err, false)
	}

	svc := b.client.NewGetOrderService().Symbol(NormalizeSymbol(symbol))
	if id, err := strconv.ParseInt(orderID, 10, 64); err == nil {
		svc = svc.OrderID(id)
	} else {
		svc = svc.OrigClientOrderID(orderID)
	}

	res, err := svc.Do(ctx, binance.WithRecvWindow(b.recvWindow))
	if err != nil {
		return order.OrderResponse{}, b.wrap(op, fmt.Errorf("fetching order: %w", err), false)
	}

	return binanceOrder{
		OrderID:       res.OrderID,
		ClientOrderID: res.ClientOrderID,
		Status:        string(res.Status),
		Side:          string(res.Side),
		Type:          string(res.Type),
		OrigQty:       res.OrigQuantity,
		ExecutedQty:   res.ExecutedQuantity,
		QuoteQty:      res.CummulativeQuoteQuantity,
		Created:       res.Time,
		Updated:       res.UpdateTime,
	}.toResponse(symbol), nil
}
