package strategy

import "github.com/amirphl/ema-trader/internal/strategy/signal"

// DetectCrossover compares the last two rows of the series. Buy when the short
// EMA moves from strictly below to strictly above the long EMA, Sell on the
// opposite move, None otherwise. Equality on either row is never a cross.
// A series with fewer than two rows yields None.
func DetectCrossover(s Series) signal.Action {
	if len(s) < 2 {
		return signal.None
	}
	prev, last := s[len(s)-2], s[len(s)-1]

	switch {
	case prev.EMAShort < prev.EMALong && last.EMAShort > last.EMALong:
		return signal.Buy
	case prev.EMAShort > prev.EMALong && last.EMAShort < last.EMALong:
		return signal.Sell
	default:
		return signal.None
	}
}
