// Package executor turns position decisions into market orders.
package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/amirphl/ema-trader/internal/db"
	"github.com/amirphl/ema-trader/internal/exchange"
	"github.com/amirphl/ema-trader/internal/journal"
	"github.com/amirphl/ema-trader/internal/notifier"
	"github.com/amirphl/ema-trader/internal/order"
	"github.com/amirphl/ema-trader/internal/position"
	"github.com/amirphl/ema-trader/internal/strategy/signal"
	"github.com/amirphl/ema-trader/internal/utils"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Config controls how orders are placed and when a submission counts as done.
type Config struct {
	Symbol   string
	Quantity decimal.Decimal

	// ConfirmOrders makes the state advance only on a FILLED order. Without it
	// a submission that returns without error is enough.
	ConfirmOrders   bool
	ConfirmAttempts int
	ConfirmDelay    time.Duration

	// DryRun logs the order and advances the state without calling the exchange.
	DryRun bool
}

type Executor struct {
	cfg      Config
	exchange exchange.Exchange
	storage  db.Storage
	notifier notifier.Notifier
	log      *zap.SugaredLogger
	clock    utils.Clock
}

// New creates an executor. storage and n may be nil.
func New(cfg Config, ex exchange.Exchange, storage db.Storage, n notifier.Notifier, log *zap.SugaredLogger, clock utils.Clock) *Executor {
	if cfg.ConfirmAttempts < 1 {
		cfg.ConfirmAttempts = 1
	}
	if clock == nil {
		clock = utils.RealClock{}
	}
	return &Executor{cfg: cfg, exchange: ex, storage: storage, notifier: n, log: log, clock: clock}
}

// Execute places at most one market order for the transition action asks for
// and returns the state that follows. On error the state is returned
// unchanged. The response is nil when no order was placed.
func (e *Executor) Execute(ctx context.Context, state position.State, action signal.Action, price float64) (position.State, *order.OrderResponse, error) {
	d := position.Decide(state, action)
	if !d.Order {
		return state, nil, nil
	}

	side := string(d.Side)
	req := order.OrderRequest{
		Symbol:        e.cfg.Symbol,
		Side:          side,
		Type:          order.TypeMarket,
		Quantity:      e.cfg.Quantity,
		ClientOrderID: fmt.Sprintf("ema_%s_%d", side, e.clock.Now().UnixMilli()),
	}

	e.log.Infof("Executor | [%s] Placing market %s order for %s at ~%.2f", e.cfg.Symbol, side, req.Quantity, price)

	if e.cfg.DryRun {
		resp := e.dryRunResponse(req, price)
		e.log.Infof("Executor | [%s] Dry run, %s order not sent", e.cfg.Symbol, side)
		e.record(ctx, resp)
		e.announce(ctx, resp, state, d.Next)
		return d.Next, &resp, nil
	}

	resp, err := e.exchange.SubmitOrder(ctx, req)
	if err != nil {
		return state, nil, fmt.Errorf("submit %s order: %w", side, err)
	}
	e.log.Infof("Executor | [%s] %s order submitted: id=%s status=%s", e.cfg.Symbol, side, resp.OrderID, resp.Status)
	if resp.Status == order.StatusUnknown {
		e.log.Warnf("Executor | [%s] %s order %s was accepted but its status is unknown", e.cfg.Symbol, side, resp.ClientOrderID)
	}

	if e.cfg.ConfirmOrders {
		resp, err = e.confirm(ctx, resp)
		e.record(ctx, resp)
		if err != nil {
			return state, &resp, err
		}
		e.log.Infof("Executor | [%s] %s order %s filled at %.2f", e.cfg.Symbol, side, resp.OrderID, resp.AvgPrice)
	} else {
		e.record(ctx, resp)
	}

	e.announce(ctx, resp, state, d.Next)
	return d.Next, &resp, nil
}

// confirm polls the order until it is filled, leaves the pending states or
// the attempts run out. An UNKNOWN order is polled like a pending one.
func (e *Executor) confirm(ctx context.Context, resp order.OrderResponse) (order.OrderResponse, error) {
	const op = "executor.confirm"
	for attempt := 1; ; attempt++ {
		if resp.IsFilled() {
			return resp, nil
		}
		if !resp.IsPending() && resp.Status != order.StatusUnknown {
			return resp, exchange.NewError(exchange.KindRejected, op,
				fmt.Errorf("order %s ended with status %s", resp.OrderID, resp.Status))
		}
		if attempt > e.cfg.ConfirmAttempts {
			return resp, exchange.NewError(exchange.KindRejected, op,
				fmt.Errorf("order %s still %s after %d checks", resp.OrderID, resp.Status, e.cfg.ConfirmAttempts))
		}

		if err := utils.Sleep(ctx, e.clock, e.cfg.ConfirmDelay); err != nil {
			return resp, err
		}

		latest, err := e.exchange.GetOrderStatus(ctx, e.cfg.Symbol, resp.OrderID)
		if err != nil {
			if exchange.KindOf(err) == exchange.KindFatal {
				return resp, err
			}
			e.log.Warnf("Executor | [%s] Checking order %s failed (attempt %d/%d): %v",
				e.cfg.Symbol, resp.OrderID, attempt, e.cfg.ConfirmAttempts, err)
			continue
		}
		resp = latest
	}
}

func (e *Executor) dryRunResponse(req order.OrderRequest, price float64) order.OrderResponse {
	now := e.clock.Now().UTC()
	qty, _ := req.Quantity.Float64()
	return order.OrderResponse{
		OrderID:       "dry_" + req.ClientOrderID,
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
}

// record journals the order. Failures are logged only.
func (e *Executor) record(ctx context.Context, resp order.OrderResponse) {
	if e.storage == nil {
		return
	}
	if resp.Symbol == "" {
		resp.Symbol = e.cfg.Symbol
	}
	if err := e.storage.SaveOrder(ctx, resp); err != nil {
		e.log.Errorf("Executor | [%s] Error saving order: %v", e.cfg.Symbol, err)
	}
	err := e.storage.LogEvent(ctx, journal.Event{
		Time:        e.clock.Now().UTC(),
		Type:        journal.TypeOrder,
		Description: fmt.Sprintf("%s_order_%s", resp.Side, strings.ToLower(resp.Status)),
		Data:        map[string]any{"symbol": e.cfg.Symbol, "order": resp, "dry_run": e.cfg.DryRun},
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		e.log.Errorf("Executor | [%s] Error logging event: %v", e.cfg.Symbol, err)
	}
}

func (e *Executor) announce(ctx context.Context, resp order.OrderResponse, from, to position.State) {
	if e.notifier == nil {
		return
	}
	msg := fmt.Sprintf("[ORDER %s]\nSide: %s\nSymbol: %s\nQty: %s\nAvgPrice: %.2f\nOrderID: %s\nPosition: %s -> %s\nTime: %s",
		resp.Status, resp.Side, e.cfg.Symbol, e.cfg.Quantity, resp.AvgPrice, resp.OrderID, from, to,
		e.clock.Now().UTC().Format(time.RFC3339))
	if err := e.notifier.SendWithRetry(ctx, msg); err != nil {
		e.log.Errorf("Executor | [%s] Error sending notification: %v", e.cfg.Symbol, err)
	}
}
