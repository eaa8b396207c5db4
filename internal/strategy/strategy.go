package strategy

import (
	"errors"
	"fmt"

	"github.com/amirphl/ema-trader/internal/candle"
	"github.com/amirphl/ema-trader/internal/strategy/signal"
)

// ErrInsufficientData is returned when a series is too short to compare two rows.
var ErrInsufficientData = errors.New("at least 2 candles are required for crossover detection")

// Strategy is the interface for trading strategies driven by the poll loop.
type Strategy interface {
	Name() string
	Symbol() string
	Timeframe() string
	WarmupPeriod() int // Returns the number of candles needed before signals are meaningful
	Evaluate(candles []candle.Candle) (signal.Signal, Series, error)
}

type EMACrossover struct {
	symbol    string
	timeframe string
	short     int
	long      int
}

func NewEMACrossover(symbol, timeframe string, short, long int) (*EMACrossover, error) {
	if short < 1 || short >= long {
		return nil, fmt.Errorf("invalid ema periods: short=%d long=%d (need 1 <= short < long)", short, long)
	}
	return &EMACrossover{symbol: symbol, timeframe: timeframe, short: short, long: long}, nil
}

func (s *EMACrossover) Name() string {
	return fmt.Sprintf("EMA Crossover %d/%d", s.short, s.long)
}

func (s *EMACrossover) Symbol() string    { return s.symbol }
func (s *EMACrossover) Timeframe() string { return s.timeframe }

// WarmupPeriod is informational only; the EMA is seeded at the first close so
// signals are computed from the second candle on.
func (s *EMACrossover) WarmupPeriod() int { return s.long }

// Evaluate computes the EMA columns over candles and classifies the last two rows.
func (s *EMACrossover) Evaluate(candles []candle.Candle) (signal.Signal, Series, error) {
	if len(candles) < 2 {
		return signal.Signal{}, nil, fmt.Errorf("%w: got %d", ErrInsufficientData, len(candles))
	}

	series, err := Compute(candles, s.short, s.long)
	if err != nil {
		return signal.Signal{}, nil, err
	}

	last, _ := series.Last()
	action := DetectCrossover(series)

	reason := "no EMA crossover"
	switch action {
	case signal.Buy:
		reason = "EMA bullish crossover"
	case signal.Sell:
		reason = "EMA bearish crossover"
	}

	lastCandle := last.Candle
	return signal.Signal{
		Time:         last.Timestamp,
		Action:       action,
		Reason:       reason,
		StrategyName: s.Name(),
		TriggerPrice: last.Close,
		Candle:       &lastCandle,
	}, series, nil
}
