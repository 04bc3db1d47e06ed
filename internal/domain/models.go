package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID             string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Username       string
	Password       string
	Role           Role
	Name           string
	Avatar         string
	Balance        decimal.Decimal
	BalanceVersion int64
	// DeletedAt мягкое удаление. Удаленный пользователь не входит в систему и не виден в списках.
	DeletedAt *time.Time
}

func (u *User) Deleted() bool {
	return u.DeletedAt != nil
}

// BalanceChange результат успешного изменения баланса.
type BalanceChange struct {
	UserID    string
	Balance   decimal.Decimal
	Version   int64
	UpdatedAt time.Time
}

// Transaction неизменяемая запись журнала операций по балансу.
type Transaction struct {
	ID             string
	Seq            int64
	UserID         string
	Type           TransactionType
	Amount         decimal.Decimal
	Balance        decimal.Decimal
	BalanceVersion int64
	Status         TransactionStatus
	Description    string
	ReferenceID    string
	CreatedAt      time.Time
}

type Product struct {
	ID          string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Name        string
	Description string
	SKU         string
	Category    string
	Images      []string
	Price       decimal.Decimal
	Stock       int64
	Status      ProductStatus
}

// OrderItem снимок товара на момент создания заказа.
type OrderItem struct {
	ProductID string
	Quantity  int64
	Price     decimal.Decimal
	Name      string
	Image     string
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(i.Quantity))
}

// UnrecordedDebit списание, которое прошло по балансу, но не попало в журнал.
type UnrecordedDebit struct {
	Amount         decimal.Decimal
	Balance        decimal.Decimal
	BalanceVersion int64
	At             time.Time
}

type Order struct {
	ID                  string
	UserID              string
	Items               []OrderItem
	TotalAmount         decimal.Decimal
	Status              OrderStatus
	PaymentStatus       PaymentStatus
	ShippingAddress     string
	Note                string
	TrackingNumber      string
	FailureReason       string
	TransactionID       string
	RefundTransactionID string
	PaymentAttemptID    string
	PaymentAttemptAt    *time.Time
	RefundClaimedAt     *time.Time
	// RefundCreditAt отметка о начале зачисления возврата. Пока она стоит, повторное зачисление запрещено.
	RefundCreditAt      *time.Time
	UnrecordedDebits    []UnrecordedDebit
	CreatedAt           time.Time
	UpdatedAt           time.Time
	PaidAt              *time.Time
	ConfirmedAt         *time.Time
	ProcessingAt        *time.Time
	ShippedAt           *time.Time
	DeliveredAt         *time.Time
	CancelledAt         *time.Time
	FailedAt            *time.Time
	RefundedAt          *time.Time
}

// Stamp проставляет отметку времени, соответствующую статусу.
func (o *Order) Stamp(status OrderStatus, at time.Time) {
	t := at
	switch status {
	case OrderStatusConfirmed:
		o.ConfirmedAt = &t
	case OrderStatusProcessing:
		o.ProcessingAt = &t
	case OrderStatusShipped:
		o.ShippedAt = &t
	case OrderStatusDelivered:
		o.DeliveredAt = &t
	case OrderStatusCancelled:
		o.CancelledAt = &t
	case OrderStatusFailed:
		o.FailedAt = &t
	case OrderStatusRefunded:
		o.RefundedAt = &t
	case OrderStatusPending:
	}
}

// LedgerDrift пользователь, у которого число изменений баланса не совпадает с числом записей журнала.
type LedgerDrift struct {
	UserID            string
	Balance           decimal.Decimal
	BalanceVersion    int64
	RecordedMutations int64
}

// CartItem позиция корзины. В хранилище лежат только товар и количество.
type CartItem struct {
	ProductID string
	Quantity  int64
}

type Cart struct {
	UserID    string
	Items     []CartItem
	UpdatedAt time.Time
}

// OrderStats сводка по заказам пользователя или по всем заказам.
type OrderStats struct {
	TotalOrders     int64
	TotalAmount     decimal.Decimal
	PendingOrders   int64
	CompletedOrders int64
	CancelledOrders int64
}

// AverageAmount средняя сумма заказа, ноль при отсутствии заказов.
func (s OrderStats) AverageAmount() decimal.Decimal {
	if s.TotalOrders == 0 {
		return decimal.Zero
	}
	return Quantize(s.TotalAmount.Div(decimal.NewFromInt(s.TotalOrders)))
}
