package exchange

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies failures so the trading loop can pick a policy.
type Kind int

const (
	// KindTransient covers network failures, rate limits and server errors.
	KindTransient Kind = iota
	// KindData means the exchange answered with unusable market data.
	KindData
	// KindRejected means the exchange refused or did not fill an order.
	KindRejected
	// KindInsufficientBalance is an order rejection caused by missing funds.
	KindInsufficientBalance
	// KindFatal covers failures retrying cannot fix: bad credentials, unknown symbol.
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindData:
		return "data"
	case KindRejected:
		return "rejected"
	case KindInsufficientBalance:
		return "insufficient_balance"
	case KindFatal:
		return "fatal"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is an exchange failure tagged with its Kind.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError wraps err with a kind. A nil err yields nil.
func NewError(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain. Unclassified
// errors, including timeouts, are transient; cancellation is fatal because it
// only happens on shutdown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.Canceled) {
		return KindFatal
	}
	return KindTransient
}

// classifyMessage guesses a kind from an SDK error message when the SDK gives
// nothing structured.
func classifyMessage(err error, fallback Kind) Kind {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "insufficient"):
		return KindInsufficientBalance
	case strings.Contains(msg, "unauthorized"), strings.Contains(msg, "forbidden"),
		strings.Contains(msg, "invalid api"), strings.Contains(msg, "api key"),
		strings.Contains(msg, "status code: 401"), strings.Contains(msg, "status code: 403"):
		return KindFatal
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "connection"),
		strings.Contains(msg, "eof"), strings.Contains(msg, "temporar"),
		strings.Contains(msg, "too many"), strings.Contains(msg, "rate limit"),
		strings.Contains(msg, "429"), strings.Contains(msg, "502"),
		strings.Contains(msg, "503"), strings.Contains(msg, "504"):
		return KindTransient
	default:
		return fallback
	}
}
