// Package tfutils
package tfutils

import (
	"fmt"
	"time"
)

// supported maps every candle timeframe the exchanges agree on to its duration.
var supported = map[string]time.Duration{
	"1m":  time.Minute,
	"3m":  3 * time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"30m": 30 * time.Minute,
	"1h":  time.Hour,
	"2h":  2 * time.Hour,
	"4h":  4 * time.Hour,
	"1d":  24 * time.Hour,
}

// ParseTimeframe parses timeframe string (e.g., "5m", "1h") to time.Duration
func ParseTimeframe(timeframe string) (time.Duration, error) {
	d, ok := supported[timeframe]
	if !ok {
		return 0, fmt.Errorf("unsupported timeframe: %q", timeframe)
	}
	return d, nil
}

// GetTimeframeDuration returns the duration for a given timeframe, or zero when unknown
func GetTimeframeDuration(timeframe string) time.Duration {
	return supported[timeframe]
}

func TimeframeMinutes(timeframe string) int {
	return int(supported[timeframe] / time.Minute)
}

// GetSupportedTimeframes returns all supported timeframes, shortest first
func GetSupportedTimeframes() []string {
	return []string{"1m", "3m", "5m", "15m", "30m", "1h", "2h", "4h", "1d"}
}

// IsValidTimeframe checks if a timeframe is supported
func IsValidTimeframe(timeframe string) bool {
	return GetTimeframeDuration(timeframe) > 0
}
