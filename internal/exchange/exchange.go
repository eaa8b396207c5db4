// Package exchange
package exchange

import (
	"context"
	"strings"
	"time"

	"github.com/amirphl/ema-trader/internal/candle"
	"github.com/amirphl/ema-trader/internal/market"
	"github.com/amirphl/ema-trader/internal/order"
)

// Exchange is the interface for all supported exchanges.
type Exchange interface {
	Name() string
	FetchBalances(ctx context.Context) (map[string]market.Balance, error)
	// FetchLatestCandles returns up to limit most recent candles, oldest first.
	FetchLatestCandles(ctx context.Context, symbol, timeframe string, limit int) ([]candle.Candle, error)
	SubmitOrder(ctx context.Context, req order.OrderRequest) (order.OrderResponse, error)
	GetOrderStatus(ctx context.Context, symbol, orderID string) (order.OrderResponse, error)
}

// NormalizeSymbol converts e.g. btc/usdc or btc-usdc to BTCUSDC
func NormalizeSymbol(symbol string) string {
	s := strings.ReplaceAll(symbol, "/", "")
	return strings.ToUpper(strings.ReplaceAll(s, "-", ""))
}

// FetchBalancesWithRetry retries transient balance failures with exponential
// backoff capped at one minute. Other kinds are returned immediately.
func FetchBalancesWithRetry(ctx context.Context, ex Exchange, attempts int, delay time.Duration) (map[string]market.Balance, error) {
	var balances map[string]market.Balance
	err := retry(ctx, attempts, delay, func() error {
		var err error
		balances, err = ex.FetchBalances(ctx)
		return err
	})
	return balances, err
}

// retry wraps a function with retry logic for transient errors, using exponential backoff.
func retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	backoff := delay
	var err error
	for i := 1; i <= attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if KindOf(err) != KindTransient || i == attempts {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < time.Minute {
			backoff *= 2
			if backoff > time.Minute {
				backoff = time.Minute
			}
		}
	}
	return err
}

func lastN(candles []candle.Candle, n int) []candle.Candle {
	if n > 0 && len(candles) > n {
		return candles[len(candles)-n:]
	}
	return candles
}
