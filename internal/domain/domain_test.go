package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPositiveAmount(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{name: "two places", in: "10.25", want: "10.25"},
		{name: "rounded half even down", in: "10.125", want: "10.12"},
		{name: "rounded half even up", in: "10.135", want: "10.14"},
		{name: "zero", in: "0", wantErr: ErrInvalidAmount},
		{name: "rounds to zero", in: "0.004", wantErr: ErrInvalidAmount},
		{name: "negative", in: "-5", wantErr: ErrInvalidAmount},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := PositiveAmount(decimal.RequireFromString(tc.in))
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				require.ErrorIs(t, err, ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.StringFixed(MoneyPlaces))
		})
	}
}

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, OrderStatusPending.CanTransitionTo(OrderStatusConfirmed))
	assert.True(t, OrderStatusPending.CanTransitionTo(OrderStatusCancelled))
	assert.True(t, OrderStatusPending.CanTransitionTo(OrderStatusFailed))
	assert.True(t, OrderStatusConfirmed.CanTransitionTo(OrderStatusProcessing))
	assert.True(t, OrderStatusShipped.CanTransitionTo(OrderStatusDelivered))
	assert.True(t, OrderStatusFailed.CanTransitionTo(OrderStatusRefunded))

	assert.False(t, OrderStatusConfirmed.CanTransitionTo(OrderStatusPending))
	assert.False(t, OrderStatusConfirmed.CanTransitionTo(OrderStatusCancelled))
	assert.False(t, OrderStatusDelivered.CanTransitionTo(OrderStatusShipped))
	assert.False(t, OrderStatusCancelled.CanTransitionTo(OrderStatusConfirmed))
	assert.False(t, OrderStatusPending.CanTransitionTo(OrderStatusShipped))
}

func TestOrder_Stamp(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	var o Order
	o.Stamp(OrderStatusShipped, at)
	require.NotNil(t, o.ShippedAt)
	assert.Equal(t, at, *o.ShippedAt)
	assert.Nil(t, o.ConfirmedAt)
}

func TestCheckoutError_Unwrap(t *testing.T) {
	err := error(&CheckoutError{
		OrderID: "o1",
		Stage:   CheckoutStageDebiting,
		State:   CheckoutStateUnchanged,
		Err:     ErrInsufficientBalance,
	})
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	var chErr *CheckoutError
	require.True(t, errors.As(err, &chErr))
	assert.False(t, chErr.MoneyMoved)

	assert.ErrorIs(t, ErrAlreadyPaid, ErrOrderState)
	assert.ErrorIs(t, NewValidationError("items", "must not be empty"), ErrValidation)
}
