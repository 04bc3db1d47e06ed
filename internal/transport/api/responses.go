package api

import (
	"time"

	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/fsdevblog/groph-shop/internal/service"
	"github.com/shopspring/decimal"
)

// Денежные поля отдаются строкой с двумя знаками после запятой, без перевода во float.

type UserResponse struct {
	ID        string      `json:"id"`
	Username  string      `json:"login"`
	Role      domain.Role `json:"role"`
	Name      string      `json:"name,omitempty"`
	Avatar    string      `json:"avatar,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

func newUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Role:      u.Role,
		Name:      u.Name,
		Avatar:    u.Avatar,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// ProfileResponse пользователь вместе с балансом. Отдается владельцу и администратору.
type ProfileResponse struct {
	UserResponse
	Balance string `json:"balance"`
}

func newProfileResponse(u *domain.User) ProfileResponse {
	return ProfileResponse{UserResponse: newUserResponse(u), Balance: money(u.Balance)}
}

type BalanceResponse struct {
	Balance   string    `json:"balance"`
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

type TransactionResponse struct {
	ID          string                   `json:"id"`
	Type        domain.TransactionType   `json:"type"`
	Amount      string                   `json:"amount"`
	Balance     string                   `json:"balance"`
	Status      domain.TransactionStatus `json:"status"`
	Description string                   `json:"description,omitempty"`
	ReferenceID string                   `json:"reference_id,omitempty"`
	CreatedAt   time.Time                `json:"created_at"`
}

func newTransactionResponse(t *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:          t.ID,
		Type:        t.Type,
		Amount:      money(t.Amount),
		Balance:     money(t.Balance),
		Status:      t.Status,
		Description: t.Description,
		ReferenceID: t.ReferenceID,
		CreatedAt:   t.CreatedAt,
	}
}

type ProductResponse struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description,omitempty"`
	SKU         string               `json:"sku"`
	Category    string               `json:"category,omitempty"`
	Images      []string             `json:"images"`
	Price       string               `json:"price"`
	Stock       int64                `json:"stock"`
	Status      domain.ProductStatus `json:"status"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

func newProductResponse(p *domain.Product) ProductResponse {
	images := p.Images
	if images == nil {
		images = []string{}
	}
	return ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		SKU:         p.SKU,
		Category:    p.Category,
		Images:      images,
		Price:       money(p.Price),
		Stock:       p.Stock,
		Status:      p.Status,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

type CartLineResponse struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
	Name      string `json:"name"`
	Price     string `json:"price"`
	Subtotal  string `json:"subtotal"`
	Image     string `json:"image,omitempty"`
	Stock     int64  `json:"stock"`
	Available bool   `json:"available"`
}

type CartResponse struct {
	UserID    string             `json:"user_id"`
	Items     []CartLineResponse `json:"items"`
	Total     string             `json:"total"`
	UpdatedAt time.Time          `json:"updated_at"`
}

func newCartResponse(v *service.CartView) CartResponse {
	return CartResponse{
		UserID: v.UserID,
		Items: mapSlice(v.Lines, func(l *service.CartLine) CartLineResponse {
			return CartLineResponse{
				ProductID: l.ProductID,
				Quantity:  l.Quantity,
				Name:      l.Name,
				Price:     money(l.Price),
				Subtotal:  money(l.Subtotal()),
				Image:     l.Image,
				Stock:     l.Stock,
				Available: l.Available,
			}
		}),
		Total:     money(v.Total),
		UpdatedAt: v.UpdatedAt,
	}
}

type OrderStatsResponse struct {
	TotalOrders        int64  `json:"total_orders"`
	TotalAmount        string `json:"total_amount"`
	PendingOrders      int64  `json:"pending_orders"`
	CompletedOrders    int64  `json:"completed_orders"`
	CancelledOrders    int64  `json:"cancelled_orders"`
	AverageOrderAmount string `json:"average_order_amount"`
}

func newOrderStatsResponse(st *domain.OrderStats) OrderStatsResponse {
	return OrderStatsResponse{
		TotalOrders:        st.TotalOrders,
		TotalAmount:        money(st.TotalAmount),
		PendingOrders:      st.PendingOrders,
		CompletedOrders:    st.CompletedOrders,
		CancelledOrders:    st.CancelledOrders,
		AverageOrderAmount: money(st.AverageAmount()),
	}
}

type OrderItemResponse struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
	Price     string `json:"price"`
	Subtotal  string `json:"subtotal"`
	Name      string `json:"name"`
	Image     string `json:"image,omitempty"`
}

type OrderResponse struct {
	ID                  string               `json:"id"`
	Items               []OrderItemResponse  `json:"items"`
	TotalAmount         string               `json:"total_amount"`
	Status              domain.OrderStatus   `json:"status"`
	PaymentStatus       domain.PaymentStatus `json:"payment_status"`
	ShippingAddress     string               `json:"shipping_address"`
	Note                string               `json:"note,omitempty"`
	TrackingNumber      string               `json:"tracking_number,omitempty"`
	FailureReason       string               `json:"failure_reason,omitempty"`
	TransactionID       string               `json:"transaction_id,omitempty"`
	RefundTransactionID string               `json:"refund_transaction_id,omitempty"`
	CreatedAt           time.Time            `json:"created_at"`
	UpdatedAt           time.Time            `json:"updated_at"`
	PaidAt              *time.Time           `json:"paid_at,omitempty"`
	ConfirmedAt         *time.Time           `json:"confirmed_at,omitempty"`
	ProcessingAt        *time.Time           `json:"processing_at,omitempty"`
	ShippedAt           *time.Time           `json:"shipped_at,omitempty"`
	DeliveredAt         *time.Time           `json:"delivered_at,omitempty"`
	CancelledAt         *time.Time           `json:"cancelled_at,omitempty"`
	FailedAt            *time.Time           `json:"failed_at,omitempty"`
	RefundedAt          *time.Time           `json:"refunded_at,omitempty"`
}

func newOrderResponse(o *domain.Order) OrderResponse {
	return OrderResponse{
		ID: o.ID,
		Items: mapSlice(o.Items, func(i *domain.OrderItem) OrderItemResponse {
			return OrderItemResponse{
				ProductID: i.ProductID,
				Quantity:  i.Quantity,
				Price:     money(i.Price),
				Subtotal:  money(i.Subtotal()),
				Name:      i.Name,
				Image:     i.Image,
			}
		}),
		TotalAmount:         money(o.TotalAmount),
		Status:              o.Status,
		PaymentStatus:       o.PaymentStatus,
		ShippingAddress:     o.ShippingAddress,
		Note:                o.Note,
		TrackingNumber:      o.TrackingNumber,
		FailureReason:       o.FailureReason,
		TransactionID:       o.TransactionID,
		RefundTransactionID: o.RefundTransactionID,
		CreatedAt:           o.CreatedAt,
		UpdatedAt:           o.UpdatedAt,
		PaidAt:              o.PaidAt,
		ConfirmedAt:         o.ConfirmedAt,
		ProcessingAt:        o.ProcessingAt,
		ShippedAt:           o.ShippedAt,
		DeliveredAt:         o.DeliveredAt,
		CancelledAt:         o.CancelledAt,
		FailedAt:            o.FailedAt,
		RefundedAt:          o.RefundedAt,
	}
}

type CheckoutResponse struct {
	Status      string              `json:"status"`
	Order       OrderResponse       `json:"order"`
	Transaction TransactionResponse `json:"transaction"`
	Balance     string              `json:"balance"`
}

type LedgerDriftResponse struct {
	UserID            string `json:"user_id"`
	Balance           string `json:"balance"`
	BalanceVersion    int64  `json:"balance_version"`
	RecordedMutations int64  `json:"recorded_mutations"`
}

type ReconciliationResponse struct {
	GeneratedAt        time.Time             `json:"generated_at"`
	Clean              bool                  `json:"clean"`
	LedgerDrift        []LedgerDriftResponse `json:"ledger_drift"`
	UnrecordedDebits   []OrderResponse       `json:"unrecorded_debits"`
	PendingRefunds     []OrderResponse       `json:"pending_refunds"`
	StalledPayments    []OrderResponse       `json:"stalled_payments"`
	UnsettledPayments  []TransactionResponse `json:"unsettled_payments"`
	UnconfirmedRefunds []OrderResponse       `json:"unconfirmed_refunds"`
}

func newReconciliationResponse(r *service.ReconciliationReport) ReconciliationResponse {
	return ReconciliationResponse{
		GeneratedAt: r.GeneratedAt,
		Clean:       r.Empty(),
		LedgerDrift: mapSlice(r.LedgerDrift, func(d *domain.LedgerDrift) LedgerDriftResponse {
			return LedgerDriftResponse{
				UserID:            d.UserID,
				Balance:           money(d.Balance),
				BalanceVersion:    d.BalanceVersion,
				RecordedMutations: d.RecordedMutations,
			}
		}),
		UnrecordedDebits:   mapSlice(r.UnrecordedDebits, newOrderResponse),
		PendingRefunds:     mapSlice(r.PendingRefunds, newOrderResponse),
		StalledPayments:    mapSlice(r.StalledPayments, newOrderResponse),
		UnsettledPayments:  mapSlice(r.UnsettledPayments, newTransactionResponse),
		UnconfirmedRefunds: mapSlice(r.UnconfirmedRefunds, newOrderResponse),
	}
}

func money(d decimal.Decimal) string {
	return d.StringFixed(domain.MoneyPlaces)
}
