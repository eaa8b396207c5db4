package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeStatus(t *testing.T) {
	tests := map[string]string{
		"NEW":              StatusNew,
		"accepted":         StatusNew,
		"pending_new":      StatusNew,
		"PARTIALLY_FILLED": StatusPartiallyFilled,
		"partially filled": StatusPartiallyFilled,
		"filled":           StatusFilled,
		"Cancelled":        StatusCanceled,
		"REJECTED":         StatusRejected,
		"EXPIRED":          StatusExpired,
		"something else":   StatusUnknown,
		"":                 StatusUnknown,
	}
	for raw, expected := range tests {
		assert.Equal(t, expected, NormalizeStatus(raw), raw)
	}
}

func TestOrderResponseStatusHelpers(t *testing.T) {
	assert.True(t, OrderResponse{Status: StatusFilled}.IsFilled())
	assert.False(t, OrderResponse{Status: StatusFilled}.IsPending())
	assert.True(t, OrderResponse{Status: StatusNew}.IsPending())
	assert.True(t, OrderResponse{Status: StatusPartiallyFilled}.IsPending())
	assert.False(t, OrderResponse{Status: StatusRejected}.IsPending())
	assert.False(t, OrderResponse{Status: StatusRejected}.IsFilled())
}
