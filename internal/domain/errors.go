package domain

import (
	"errors"
	"fmt"
)

var (
	ErrRecordNotFound    = errors.New("record not found")
	ErrPasswordMissMatch = errors.New("password mismatch")
	ErrDuplicateKey      = errors.New("duplicate key")
	ErrPersistence       = errors.New("persistence failure")

	ErrValidation    = errors.New("validation error")
	ErrInvalidAmount = fmt.Errorf("%w: amount must be greater than zero", ErrValidation)

	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrProductUnavailable     = errors.New("product unavailable")
	ErrConcurrentModification = errors.New("concurrent modification")

	ErrOrderState         = errors.New("order state error")
	ErrOrderNotPending    = fmt.Errorf("%w: order is not pending", ErrOrderState)
	ErrAlreadyPaid        = fmt.Errorf("%w: order is already paid", ErrOrderState)
	ErrCheckoutInProgress = fmt.Errorf("%w: checkout is already in progress", ErrOrderState)
	ErrRefundInProgress   = fmt.Errorf("%w: refund is already in progress", ErrOrderState)
	ErrInvalidTransition  = fmt.Errorf("%w: status transition is not allowed", ErrOrderState)
)

// ValidationError ошибка входных данных с указанием поля.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

type CheckoutStage string

const (
	CheckoutStageValidating     CheckoutStage = "validating"
	CheckoutStageDebiting       CheckoutStage = "debiting"
	CheckoutStageRecording      CheckoutStage = "recording"
	CheckoutStageMarkingPaid    CheckoutStage = "marking-paid"
	CheckoutStageStockAdjusting CheckoutStage = "stock-adjusting"
	CheckoutStageConfirming     CheckoutStage = "confirming"
)

type CheckoutState string

const (
	// CheckoutStateUnchanged заказ и баланс не изменились.
	CheckoutStateUnchanged     CheckoutState = "unchanged"
	CheckoutStatePaymentFailed CheckoutState = "payment-failed"
	CheckoutStateOrderFailed   CheckoutState = "order-failed"
	// CheckoutStateIncomplete деньги списаны и записаны, но заказ не доведен до confirmed.
	CheckoutStateIncomplete CheckoutState = "incomplete"
)

// CheckoutError ошибка оформления заказа. Stage - шаг, на котором произошла ошибка, State - состояние,
// в котором остался заказ, MoneyMoved - было ли списание с баланса.
type CheckoutError struct {
	OrderID    string
	Stage      CheckoutStage
	State      CheckoutState
	MoneyMoved bool
	Err        error
}

func (e *CheckoutError) Error() string {
	return fmt.Sprintf("checkout order %s failed at %s (%s): %s", e.OrderID, e.Stage, e.State, e.Err.Error())
}

func (e *CheckoutError) Unwrap() error {
	return e.Err
}
