package signal

import (
	"time"

	"github.com/amirphl/ema-trader/internal/candle"
)

// Action is the discrete trade decision derived from a candle series.
type Action string

const (
	Buy  Action = "buy"
	Sell Action = "sell"
	None Action = "none"
)

func (a Action) String() string { return string(a) }

type Signal struct {
	Time         time.Time      `json:"time"`
	Action       Action         `json:"action"`
	Reason       string         `json:"reason"` // crossover direction or why none fired
	StrategyName string         `json:"strategy_name"`
	TriggerPrice float64        `json:"trigger_price"`
	Candle       *candle.Candle `json:"candle"`
}
