package mongorepo

import (
	"time"

	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type userModel struct {
	ID             string          `bson:"_id"`
	Username       string          `bson:"username"`
	Password       string          `bson:"password"`
	Role           string          `bson:"role"`
	Name           string          `bson:"name"`
	Avatar         string          `bson:"avatar"`
	Balance        bson.Decimal128 `bson:"balance"`
	BalanceVersion int64           `bson:"balance_version"`
	CreatedAt      time.Time       `bson:"created_at"`
	UpdatedAt      time.Time       `bson:"updated_at"`
	DeletedAt      *time.Time      `bson:"deleted_at,omitempty"`
}

func fromUserModel(m *userModel) *domain.User {
	return &domain.User{
		ID:             m.ID,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
		Username:       m.Username,
		Password:       m.Password,
		Role:           domain.Role(m.Role),
		Name:           m.Name,
		Avatar:         m.Avatar,
		Balance:        fromDecimal128(m.Balance),
		BalanceVersion: m.BalanceVersion,
		DeletedAt:      m.DeletedAt,
	}
}

type transactionModel struct {
	ID             string          `bson:"_id"`
	Seq            int64           `bson:"seq"`
	UserID         string          `bson:"user_id"`
	Type           string          `bson:"type"`
	Amount         bson.Decimal128 `bson:"amount"`
	Balance        bson.Decimal128 `bson:"balance"`
	BalanceVersion int64           `bson:"balance_version"`
	Status         string          `bson:"status"`
	Description    string          `bson:"description"`
	ReferenceID    string          `bson:"reference_id"`
	CreatedAt      time.Time       `bson:"created_at"`
}

func fromTransactionModel(m *transactionModel) *domain.Transaction {
	return &domain.Transaction{
		ID:             m.ID,
		Seq:            m.Seq,
		UserID:         m.UserID,
		Type:           domain.TransactionType(m.Type),
		Amount:         fromDecimal128(m.Amount),
		Balance:        fromDecimal128(m.Balance),
		BalanceVersion: m.BalanceVersion,
		Status:         domain.TransactionStatus(m.Status),
		Description:    m.Description,
		ReferenceID:    m.ReferenceID,
		CreatedAt:      m.CreatedAt,
	}
}

type productModel struct {
	ID          string          `bson:"_id"`
	Name        string          `bson:"name"`
	Description string          `bson:"description"`
	SKU         string          `bson:"sku"`
	Category    string          `bson:"category"`
	Images      []string        `bson:"images"`
	Price       bson.Decimal128 `bson:"price"`
	Stock       int64           `bson:"stock"`
	Status      string          `bson:"status"`
	CreatedAt   time.Time       `bson:"created_at"`
	UpdatedAt   time.Time       `bson:"updated_at"`
}

func fromProductModel(m *productModel) *domain.Product {
	return &domain.Product{
		ID:          m.ID,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
		Name:        m.Name,
		Description: m.Description,
		SKU:         m.SKU,
		Category:    m.Category,
		Images:      m.Images,
		Price:       fromDecimal128(m.Price),
		Stock:       m.Stock,
		Status:      domain.ProductStatus(m.Status),
	}
}

type orderItemModel struct {
	ProductID string          `bson:"product_id"`
	Quantity  int64           `bson:"quantity"`
	Price     bson.Decimal128 `bson:"price"`
	Name      string          `bson:"name"`
	Image     string          `bson:"image"`
}

type unrecordedDebitModel struct {
	Amount         bson.Decimal128 `bson:"amount"`
	Balance        bson.Decimal128 `bson:"balance"`
	BalanceVersion int64           `bson:"balance_version"`
	At             time.Time       `bson:"at"`
}

func toUnrecordedDebitModel(d domain.UnrecordedDebit) unrecordedDebitModel {
	return unrecordedDebitModel{
		Amount:         toDecimal128(d.Amount),
		Balance:        toDecimal128(d.Balance),
		BalanceVersion: d.BalanceVersion,
		At:             d.At,
	}
}

type orderModel struct {
	ID                  string                 `bson:"_id"`
	UserID              string                 `bson:"user_id"`
	Items               []orderItemModel       `bson:"items"`
	TotalAmount         bson.Decimal128        `bson:"total_amount"`
	Status              string                 `bson:"status"`
	PaymentStatus       string                 `bson:"payment_status"`
	ShippingAddress     string                 `bson:"shipping_address"`
	Note                string                 `bson:"note"`
	TrackingNumber      string                 `bson:"tracking_number"`
	FailureReason       string                 `bson:"failure_reason"`
	TransactionID       string                 `bson:"transaction_id"`
	RefundTransactionID string                 `bson:"refund_transaction_id"`
	PaymentAttemptID    string                 `bson:"payment_attempt_id"`
	PaymentAttemptAt    *time.Time             `bson:"payment_attempt_at"`
	RefundClaimedAt     *time.Time             `bson:"refund_claimed_at"`
	RefundCreditAt      *time.Time             `bson:"refund_credit_at"`
	UnrecordedDebits    []unrecordedDebitModel `bson:"unrecorded_debits"`
	CreatedAt           time.Time              `bson:"created_at"`
	UpdatedAt           time.Time              `bson:"updated_at"`
	PaidAt              *time.Time             `bson:"paid_at"`
	ConfirmedAt         *time.Time             `bson:"confirmed_at"`
	ProcessingAt        *time.Time             `bson:"processing_at"`
	ShippedAt           *time.Time             `bson:"shipped_at"`
	DeliveredAt         *time.Time             `bson:"delivered_at"`
	CancelledAt         *time.Time             `bson:"cancelled_at"`
	FailedAt            *time.Time             `bson:"failed_at"`
	RefundedAt          *time.Time             `bson:"refunded_at"`
}

func fromOrderModel(m *orderModel) *domain.Order {
	items := make([]domain.OrderItem, len(m.Items))
	for i, item := range m.Items {
		items[i] = domain.OrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     fromDecimal128(item.Price),
			Name:      item.Name,
			Image:     item.Image,
		}
	}
	debits := make([]domain.UnrecordedDebit, len(m.UnrecordedDebits))
	for i, d := range m.UnrecordedDebits {
		debits[i] = domain.UnrecordedDebit{
			Amount:         fromDecimal128(d.Amount),
			Balance:        fromDecimal128(d.Balance),
			BalanceVersion: d.BalanceVersion,
			At:             d.At,
		}
	}
	return &domain.Order{
		ID:                  m.ID,
		UserID:              m.UserID,
		Items:               items,
		TotalAmount:         fromDecimal128(m.TotalAmount),
		Status:              domain.OrderStatus(m.Status),
		PaymentStatus:       domain.PaymentStatus(m.PaymentStatus),
		ShippingAddress:     m.ShippingAddress,
		Note:                m.Note,
		TrackingNumber:      m.TrackingNumber,
		FailureReason:       m.FailureReason,
		TransactionID:       m.TransactionID,
		RefundTransactionID: m.RefundTransactionID,
		PaymentAttemptID:    m.PaymentAttemptID,
		PaymentAttemptAt:    m.PaymentAttemptAt,
		RefundClaimedAt:     m.RefundClaimedAt,
		RefundCreditAt:      m.RefundCreditAt,
		UnrecordedDebits:    debits,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
		PaidAt:              m.PaidAt,
		ConfirmedAt:         m.ConfirmedAt,
		ProcessingAt:        m.ProcessingAt,
		ShippedAt:           m.ShippedAt,
		DeliveredAt:         m.DeliveredAt,
		CancelledAt:         m.CancelledAt,
		FailedAt:            m.FailedAt,
		RefundedAt:          m.RefundedAt,
	}
}

// toDecimal128 денежные значения хранятся как Decimal128, чтобы избежать ошибок двоичной арифметики.
type cartItemModel struct {
	ProductID string `bson:"product_id"`
	Quantity  int64  `bson:"quantity"`
}

type cartModel struct {
	UserID    string          `bson:"_id"`
	Items     []cartItemModel `bson:"items"`
	UpdatedAt time.Time       `bson:"updated_at"`
}

func fromCartModel(m *cartModel) *domain.Cart {
	items := make([]domain.CartItem, len(m.Items))
	for i, item := range m.Items {
		items[i] = domain.CartItem(item)
	}
	return &domain.Cart{UserID: m.UserID, Items: items, UpdatedAt: m.UpdatedAt}
}

type orderStatsModel struct {
	TotalOrders     int64           `bson:"total_orders"`
	TotalAmount     bson.Decimal128 `bson:"total_amount"`
	PendingOrders   int64           `bson:"pending_orders"`
	CompletedOrders int64           `bson:"completed_orders"`
	CancelledOrders int64           `bson:"cancelled_orders"`
}

func toDecimal128(d decimal.Decimal) bson.Decimal128 {
	v, err := bson.ParseDecimal128(d.StringFixed(domain.MoneyPlaces))
	if err != nil {
		// StringFixed всегда дает корректную десятичную строку.
		panic(err)
	}
	return v
}

func fromDecimal128(v bson.Decimal128) decimal.Decimal {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}
