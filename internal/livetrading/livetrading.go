// Package livetrading runs the poll-compute-decide-act loop.
package livetrading

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amirphl/ema-trader/internal/exchange"
	"github.com/amirphl/ema-trader/internal/executor"
	"github.com/amirphl/ema-trader/internal/journal"
	"github.com/amirphl/ema-trader/internal/market"
	"github.com/amirphl/ema-trader/internal/notifier"
	"github.com/amirphl/ema-trader/internal/position"
	"github.com/amirphl/ema-trader/internal/strategy"
	"github.com/amirphl/ema-trader/internal/strategy/signal"
	"github.com/amirphl/ema-trader/internal/utils"
	"go.uber.org/zap"
)

type Config struct {
	Interval    time.Duration
	CandleLimit int
	// HaltOnRejection stops the loop on rejected orders instead of carrying on.
	HaltOnRejection bool
}

// Trader owns one strategy on one symbol. The position state is passed in and
// returned by every iteration; the tracker only keeps history for reporting.
type Trader struct {
	cfg      Config
	exchange exchange.Exchange
	strategy strategy.Strategy
	executor *executor.Executor
	journal  journal.Journaler
	notifier notifier.Notifier
	log      *zap.SugaredLogger
	clock    utils.Clock
	tracker  *position.Tracker
	quote    string
}

// New creates a trader. j and n may be nil.
func New(cfg Config, ex exchange.Exchange, strat strategy.Strategy, exec *executor.Executor, j journal.Journaler, n notifier.Notifier, log *zap.SugaredLogger, clock utils.Clock) *Trader {
	if clock == nil {
		clock = utils.RealClock{}
	}
	_, quote := market.SplitSymbol(strat.Symbol())
	return &Trader{
		cfg:      cfg,
		exchange: ex,
		strategy: strat,
		executor: exec,
		journal:  j,
		notifier: n,
		log:      log,
		clock:    clock,
		tracker:  position.NewTracker(),
		quote:    quote,
	}
}

// Tracker exposes the transition history.
func (t *Trader) Tracker() *position.Tracker {
	return t.tracker
}

// RunOnce performs a single fetch, compute, detect and act iteration.
func (t *Trader) RunOnce(ctx context.Context, state position.State) (position.State, error) {
	const op = "livetrading.RunOnce"

	candles, err := t.exchange.FetchLatestCandles(ctx, t.strategy.Symbol(), t.strategy.Timeframe(), t.cfg.CandleLimit)
	if err != nil {
		return state, fmt.Errorf("fetch candles: %w", err)
	}

	sig, series, err := t.strategy.Evaluate(candles)
	if err != nil {
		kind := exchange.KindFatal
		if errors.Is(err, strategy.ErrInsufficientData) {
			kind = exchange.KindData
		}
		return state, exchange.NewError(kind, op, err)
	}

	last, _ := series.Last()
	t.log.Infof("Price: %.2f %s | EMA short: %.2f | EMA long: %.2f | Distance to cross: %.5f",
		last.Close, t.quote, last.EMAShort, last.EMALong, last.EMADiff)

	if sig.Action != signal.None {
		t.log.Infof("Trader | [%s] %s signal: %s (position %s)", t.strategy.Symbol(), sig.Action, sig.Reason, state)
		t.logEvent(ctx, journal.TypeSignal, sig.Reason, map[string]any{
			"action":   string(sig.Action),
			"price":    sig.TriggerPrice,
			"position": string(state),
			"ema_diff": last.EMADiff,
		})
	}

	next, resp, err := t.executor.Execute(ctx, state, sig.Action, sig.TriggerPrice)
	if next != state {
		orderID := ""
		if resp != nil {
			orderID = resp.OrderID
		}
		t.tracker.Record(t.clock.Now().UTC(), next, sig.Action, orderID)
		t.log.Infof("Trader | [%s] Position %s -> %s", t.strategy.Symbol(), state, next)
		t.logEvent(ctx, journal.TypeState, "position_changed", map[string]any{
			"from":     string(state),
			"to":       string(next),
			"order_id": orderID,
		})
	}
	return next, err
}

// Run repeats RunOnce every interval until ctx is canceled or a fatal error
// occurs. Cancellation is a clean stop and returns nil.
func (t *Trader) Run(ctx context.Context, state position.State) error {
	t.log.Infof("Trader | Starting %s on %s %s every %s (position %s)",
		t.strategy.Name(), t.strategy.Symbol(), t.strategy.Timeframe(), t.cfg.Interval, state)

	for {
		next, err := t.RunOnce(ctx, state)
		state = next
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			if t.handleError(ctx, err) {
				t.log.Errorf("Trader | Stopping with position %s", state)
				return err
			}
		}

		if err := utils.Sleep(ctx, t.clock, t.cfg.Interval); err != nil {
			break
		}
	}

	t.log.Infof("Trader | Stopped with position %s", state)
	return nil
}

// handleError applies the error policy and reports whether the loop must stop.
func (t *Trader) handleError(ctx context.Context, err error) bool {
	kind := exchange.KindOf(err)
	switch kind {
	case exchange.KindTransient, exchange.KindData:
		t.log.Warnf("Trader | %s error, retrying in %s: %v", kind, t.cfg.Interval, err)
		return false
	case exchange.KindRejected, exchange.KindInsufficientBalance:
		t.log.Errorf("Trader | Order failed (%s): %v", kind, err)
		t.surface(ctx, kind, err)
		return t.cfg.HaltOnRejection
	default:
		t.log.Errorf("Trader | Fatal error: %v", err)
		t.surface(ctx, kind, err)
		return true
	}
}

func (t *Trader) surface(ctx context.Context, kind exchange.Kind, err error) {
	t.logEvent(ctx, journal.TypeError, kind.String(), map[string]any{
		"symbol": t.strategy.Symbol(),
		"error":  err.Error(),
	})
	if t.notifier == nil {
		return
	}
	msg := fmt.Sprintf("ERROR [%s] %s: %v", t.strategy.Symbol(), kind, err)
	if nerr := t.notifier.SendWithRetry(ctx, msg); nerr != nil {
		t.log.Errorf("Trader | Error sending notification: %v", nerr)
	}
}

func (t *Trader) logEvent(ctx context.Context, eventType, description string, data map[string]any) {
	if t.journal == nil {
		return
	}
	err := t.journal.LogEvent(ctx, journal.Event{
		Time:        t.clock.Now().UTC(),
		Type:        eventType,
		Description: description,
		Data:        data,
	})
	if err != nil {
		t.log.Errorf("Trader | Error logging event: %v", err)
	}
}
