package strategy

import (
	"fmt"

	"github.com/amirphl/ema-trader/internal/candle"
	"github.com/amirphl/ema-trader/internal/indicator"
)

// Row is a candle enriched with the EMA columns.
type Row struct {
	candle.Candle
	EMAShort float64
	EMALong  float64
	EMADiff  float64
}

// Series is a candle series, oldest first, with EMA columns for every row.
type Series []Row

// Compute recomputes both EMAs over the full close history. The returned
// series has the same length as candles.
func Compute(candles []candle.Candle, shortPeriod, longPeriod int) (Series, error) {
	if shortPeriod < 1 || longPeriod < 1 {
		return nil, fmt.Errorf("ema periods must be >= 1 (short=%d, long=%d)", shortPeriod, longPeriod)
	}
	if shortPeriod >= longPeriod {
		return nil, fmt.Errorf("short ema period %d must be less than long period %d", shortPeriod, longPeriod)
	}

	closes := candle.Closes(candles)
	short, err := indicator.CalculateEMA(closes, shortPeriod)
	if err != nil {
		return nil, fmt.Errorf("short ema: %w", err)
	}
	long, err := indicator.CalculateEMA(closes, longPeriod)
	if err != nil {
		return nil, fmt.Errorf("long ema: %w", err)
	}

	series := make(Series, len(candles))
	for i := range candles {
		series[i] = Row{
			Candle:   candles[i],
			EMAShort: short[i],
			EMALong:  long[i],
			EMADiff:  short[i] - long[i],
		}
	}
	return series, nil
}

// Last returns the most recent row and false when the series is empty.
func (s Series) Last() (Row, bool) {
	if len(s) == 0 {
		return Row{}, false
	}
	return s[len(s)-1], true
}
