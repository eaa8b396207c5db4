// Package candle
package candle

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	Symbol    string    `json:"symbol"`
	Timeframe string    `json:"timeframe"`
	Source    string    `json:"source"`
}

// Validate checks if a candle has valid data
func (c *Candle) Validate() error {
	if c.Timestamp.IsZero() {
		return errors.New("candle timestamp is zero")
	}
	if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 {
		return errors.New("candle prices must be positive")
	}
	if c.High < c.Low {
		return errors.New("candle high cannot be less than low")
	}
	if c.Open < c.Low || c.Open > c.High {
		return errors.New("candle open price must be between high and low")
	}
	if c.Close < c.Low || c.Close > c.High {
		return errors.New("candle close price must be between high and low")
	}
	if c.Volume < 0 {
		return errors.New("candle volume cannot be negative")
	}
	if c.Symbol == "" {
		return errors.New("candle symbol cannot be empty")
	}
	if c.Timeframe == "" {
		return errors.New("candle timeframe cannot be empty")
	}
	return nil
}

// Closes extracts the close column, preserving order.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// SortByTime orders candles oldest first in place.
func SortByTime(candles []Candle) {
	sort.SliceStable(candles, func(i, j int) bool {
		return candles[i].Timestamp.Before(candles[j].Timestamp)
	})
}

// Normalize sorts the candles, drops duplicated timestamps (keeping the latest
// copy, which carries the freshest close of an in-progress candle) and returns
// the first validation error it meets.
func Normalize(candles []Candle) ([]Candle, error) {
	SortByTime(candles)
	out := make([]Candle, 0, len(candles))
	for i := range candles {
		if err := candles[i].Validate(); err != nil {
			return nil, fmt.Errorf("invalid candle at %s: %w", candles[i].Timestamp.Format(time.RFC3339), err)
		}
		if n := len(out); n > 0 && out[n-1].Timestamp.Equal(candles[i].Timestamp) {
			out[n-1] = candles[i]
			continue
		}
		out = append(out, candles[i])
	}
	return out, nil
}
