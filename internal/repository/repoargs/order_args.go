package repoargs

import (
	"time"

	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/shopspring/decimal"
)

type CreateOrder struct {
	UserID          string
	Items           []domain.OrderItem
	TotalAmount     decimal.Decimal
	ShippingAddress string
	Note            string
}

type OrderSortField string

const (
	OrderSortCreatedAt   OrderSortField = "created_at"
	OrderSortTotalAmount OrderSortField = "total_amount"
)

type OrderFilter struct {
	UserID               string
	Status               domain.OrderStatus
	PaymentStatus        domain.PaymentStatus
	WithUnrecordedDebits bool
	// WithoutRefundRecord заказы без записи refund в журнале.
	WithoutRefundRecord  bool
	SortBy               OrderSortField
	SortOrder            SortOrder
	Limit                uint
	Offset               uint
}

// ClaimCheckout захват заказа под попытку оплаты. Захват возможен, если заказ ожидает оплаты и
// нет живой попытки (живая - начатая после StaleBefore).
type ClaimCheckout struct {
	OrderID     string
	AttemptID   string
	At          time.Time
	StaleBefore time.Time
}

type ClaimRefund struct {
	OrderID     string
	At          time.Time
	StaleBefore time.Time
}

// OrderTransition условное обновление заказа. Пустые условия не проверяются, пустые значения не пишутся.
// Если условия не выполнены, репозиторий возвращает domain.ErrRecordNotFound.
type OrderTransition struct {
	OrderID string

	// условия
	AttemptID   string
	FromStatus  []domain.OrderStatus
	FromPayment []domain.PaymentStatus
	// StaleBefore требует отсутствия живой попытки оплаты.
	StaleBefore time.Time

	// изменения
	Status              domain.OrderStatus
	PaymentStatus       domain.PaymentStatus
	TransactionID       string
	RefundTransactionID string
	TrackingNumber      string
	FailureReason       string
	UnrecordedDebit     *domain.UnrecordedDebit
	ReleaseAttempt      bool
	// RefundCredit ставит (RefundCreditSet) или снимает (RefundCreditClear) отметку о зачислении возврата.
	RefundCreditSet     bool
	RefundCreditClear   bool
	At                  time.Time
}

// StatusTimestampColumn имя поля с отметкой времени для статуса заказа.
func StatusTimestampColumn(status domain.OrderStatus) string {
	switch status {
	case domain.OrderStatusConfirmed:
		return "confirmed_at"
	case domain.OrderStatusProcessing:
		return "processing_at"
	case domain.OrderStatusShipped:
		return "shipped_at"
	case domain.OrderStatusDelivered:
		return "delivered_at"
	case domain.OrderStatusCancelled:
		return "cancelled_at"
	case domain.OrderStatusFailed:
		return "failed_at"
	case domain.OrderStatusRefunded:
		return "refunded_at"
	case domain.OrderStatusPending:
	}
	return ""
}
