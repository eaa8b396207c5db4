// Package position
package position

import (
	"fmt"
	"time"

	"github.com/amirphl/ema-trader/internal/strategy/signal"
)

// State is the single-asset position: either holding nothing or holding the
// bought quantity.
type State string

const (
	Flat State = "flat"
	Long State = "long"
)

func (s State) String() string { return string(s) }

// Side is the order side a transition requires.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Decision tells the executor whether to trade and which state follows a
// successful submission.
type Decision struct {
	Order bool
	Side  Side
	Next  State
}

// Decide is the transition table:
//
//	flat + buy  -> long (buy order)
//	long + sell -> flat (sell order)
//
// Any other pair leaves the state as is and places no order.
func Decide(current State, action signal.Action) Decision {
	switch {
	case current == Flat && action == signal.Buy:
		return Decision{Order: true, Side: SideBuy, Next: Long}
	case current == Long && action == signal.Sell:
		return Decision{Order: true, Side: SideSell, Next: Flat}
	default:
		return Decision{Next: current}
	}
}

// Transition records one state change.
type Transition struct {
	From    State
	To      State
	Action  signal.Action
	OrderID string
	Time    time.Time
}

// Tracker remembers the current state and the recent transitions for status
// reporting. It lives in memory only.
type Tracker struct {
	current        State
	history        []Transition
	maxHistorySize int
}

func NewTracker() *Tracker {
	return &Tracker{
		current:        Flat,
		history:        make([]Transition, 0),
		maxHistorySize: 1000, // Keep last 1000 transitions
	}
}

// Current returns the current state
func (t *Tracker) Current() State {
	return t.current
}

// Record stores a transition made at the given time when the state actually
// changes.
func (t *Tracker) Record(at time.Time, next State, action signal.Action, orderID string) {
	if next == t.current {
		return
	}
	t.history = append(t.history, Transition{
		From:    t.current,
		To:      next,
		Action:  action,
		OrderID: orderID,
		Time:    at,
	})
	if len(t.history) > t.maxHistorySize {
		t.history = t.history[1:]
	}
	t.current = next
}

// History returns a copy of the recorded transitions, oldest first.
func (t *Tracker) History() []Transition {
	out := make([]Transition, len(t.history))
	copy(out, t.history)
	return out
}

func (t *Tracker) String() string {
	return fmt.Sprintf("Tracker{current: %s, transitions: %d}", t.current, len(t.history))
}
