package indicator

import "fmt"

// CalculateEMA returns the exponential moving average of values using the
// smoothing factor 2/(period+1), seeded with the first observation:
//
//	ema[0] = values[0]
//	ema[i] = alpha*values[i] + (1-alpha)*ema[i-1]
//
// The result has the same length as values.
func CalculateEMA(values []float64, period int) ([]float64, error) {
	if period < 1 {
		return nil, fmt.Errorf("ema period must be >= 1, got %d", period)
	}
	ema := make([]float64, len(values))
	if len(values) == 0 {
		return ema, nil
	}
	alpha := 2.0 / float64(period+1)
	ema[0] = values[0]
	for i := 1; i < len(values); i++ {
		ema[i] = alpha*values[i] + (1-alpha)*ema[i-1]
	}
	return ema, nil
}

// EMA adapts CalculateEMA to the Indicator interface.
type EMA struct {
	Period int
}

func (e EMA) Name() string { return fmt.Sprintf("EMA(%d)", e.Period) }

func (e EMA) Calculate(values []float64) ([]float64, error) {
	return CalculateEMA(values, e.Period)
}
