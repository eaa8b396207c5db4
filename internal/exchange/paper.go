package exchange

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/amirphl/ema-trader/internal/candle"
	"github.com/amirphl/ema-trader/internal/market"
	"github.com/amirphl/ema-trader/internal/order"
	"go.uber.org/zap"
)

// PaperExchange proxies market data and balances to a real exchange and fills
// market orders locally at the last fetched close.
type PaperExchange struct {
	real Exchange
	log  *zap.SugaredLogger
	now  func() time.Time

	mu           sync.Mutex
	lastClose    map[string]float64
	orders       map[string]order.OrderResponse
	orderCounter int64
}

func NewPaperExchange(real Exchange, log *zap.SugaredLogger) *PaperExchange {
	return &PaperExchange{
		real:         real,
		log:          log,
		now:          time.Now,
		lastClose:    make(map[string]float64),
		orders:       make(map[string]order.OrderResponse),
		orderCounter: 1000,
	}
}

func (p *PaperExchange) Name() string {
	return "paper-" + p.real.Name()
}

// ===== PROXY FUNCTIONS =====

func (p *PaperExchange) FetchLatestCandles(ctx context.Context, symbol, timeframe string, limit int) ([]candle.Candle, error) {
	candles, err := p.real.FetchLatestCandles(ctx, symbol, timeframe, limit)
	if err != nil {
		return nil, err
	}
	if len(candles) > 0 {
		p.mu.Lock()
		p.lastClose[NormalizeSymbol(symbol)] = candles[len(candles)-1].Close
		p.mu.Unlock()
	}
	return candles, nil
}

func (p *PaperExchange) FetchBalances(ctx context.Context) (map[string]market.Balance, error) {
	return p.real.FetchBalances(ctx)
}

// ===== SIMULATED FUNCTIONS =====

func (p *PaperExchange) SubmitOrder(ctx context.Context, req order.OrderRequest) (order.OrderResponse, error) {
	const op = "paper.SubmitOrder"
	if err := ctx.Err(); err != nil {
		return order.OrderResponse{}, err
	}
	if req.Type != order.TypeMarket {
		return order.OrderResponse{}, NewError(KindRejected, op, fmt.Errorf("order type %q not supported, only market orders are", req.Type))
	}
	if !req.Quantity.IsPositive() {
		return order.OrderResponse{}, NewError(KindRejected, op, fmt.Errorf("quantity must be positive, got %s", req.Quantity))
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	price, ok := p.lastClose[NormalizeSymbol(req.Symbol)]
	if !ok {
		return order.OrderResponse{}, NewError(KindRejected, op, fmt.Errorf("no price seen yet for %s", req.Symbol))
	}

	p.orderCounter++
	now := p.now().UTC()
	qty, _ := req.Quantity.Float64()
	resp := order.OrderResponse{
		OrderID:       fmt.Sprintf("paper_%d_%d", now.Unix(), p.orderCounter),
		ClientOrderID: req.ClientOrderID,
		Status:        order.StatusFilled,
		FilledQty:     qty,
		AvgPrice:      price,
		Timestamp:     now,
		Symbol:        req.Symbol,
		Side:          req.Side,
		Type:          req.Type,
		Quantity:      req.Quantity,
		UpdatedAt:     now,
	}
	p.orders[resp.OrderID] = resp

	p.log.Infof("PaperExchange | Order filled: OrderID=%s, Symbol=%s, Side=%s, Price=%.8f, Quantity=%s",
		resp.OrderID, req.Symbol, req.Side, price, req.Quantity)
	return resp, nil
}

func (p *PaperExchange) GetOrderStatus(ctx context.Context, symbol, orderID string) (order.OrderResponse, error) {
	if err := ctx.Err(); err != nil {
		return order.OrderResponse{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	resp, ok := p.orders[orderID]
	if !ok {
		return order.OrderResponse{}, NewError(KindRejected, "paper.GetOrderStatus", fmt.Errorf("unknown order %s", orderID))
	}
	return resp, nil
}
