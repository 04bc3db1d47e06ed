package memrepo

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/fsdevblog/groph-shop/internal/repository/repoargs"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderRepository struct {
	s  *Store
	tx *txConn
}

func NewOrderRepository(s *Store) *OrderRepository {
	return &OrderRepository{s: s}
}

func (r *OrderRepository) Create(_ context.Context, args repoargs.CreateOrder) (*domain.Order, error) {
	defer r.s.lockWrite(r.tx)()

	if _, ok := r.s.users[args.UserID]; !ok {
		return nil, fmt.Errorf("[repository/creating order] %w: unknown user %s", domain.ErrPersistence, args.UserID)
	}
	t := now()
	o := domain.Order{
		ID:              uuid.NewString(),
		UserID:          args.UserID,
		Items:           slices.Clone(args.Items),
		TotalAmount:     args.TotalAmount,
		Status:          domain.OrderStatusPending,
		PaymentStatus:   domain.PaymentStatusPending,
		ShippingAddress: args.ShippingAddress,
		Note:            args.Note,
		CreatedAt:       t,
		UpdatedAt:       t,
	}
	put(r.tx, r.s.orders, o.ID, o)
	return cloneOrder(o), nil
}

func (r *OrderRepository) FindByID(_ context.Context, id string) (*domain.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	o, ok := r.s.orders[id]
	if !ok {
		return nil, fmt.Errorf("[repository/finding order %s] %w", id, domain.ErrRecordNotFound)
	}
	return cloneOrder(o), nil
}

func (r *OrderRepository) List(_ context.Context, filter repoargs.OrderFilter) ([]domain.Order, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var matched []domain.Order
	for _, o := range r.s.orders {
		if filter.UserID != "" && o.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if filter.PaymentStatus != "" && o.PaymentStatus != filter.PaymentStatus {
			continue
		}
		if filter.WithUnrecordedDebits && len(o.UnrecordedDebits) == 0 {
			continue
		}
		if filter.WithoutRefundRecord && o.RefundTransactionID != "" {
			continue
		}
		matched = append(matched, *cloneOrder(o))
	}

	slices.SortFunc(matched, func(a, b domain.Order) int {
		var c int
		if filter.SortBy == repoargs.OrderSortTotalAmount {
			c = a.TotalAmount.Cmp(b.TotalAmount)
		} else {
			c = a.CreatedAt.Compare(b.CreatedAt)
		}
		if c == 0 {
			c = cmp.Compare(a.ID, b.ID)
		}
		if filter.SortOrder != repoargs.SortAsc {
			c = -c
		}
		return c
	})
	return paginate(matched, filter.Limit, filter.Offset), int64(len(matched)), nil
}

func (r *OrderRepository) ClaimCheckout(_ context.Context, claim repoargs.ClaimCheckout) (*domain.Order, error) {
	defer r.s.lockWrite(r.tx)()

	o, ok := r.s.orders[claim.OrderID]
	if !ok || o.Status != domain.OrderStatusPending || !o.PaymentStatus.Payable() ||
		liveAttempt(o, claim.StaleBefore) {
		return nil, fmt.Errorf("[repository/claiming checkout of order %s] %w", claim.OrderID, domain.ErrRecordNotFound)
	}
	at := claim.At
	o.PaymentAttemptID = claim.AttemptID
	o.PaymentAttemptAt = &at
	o.UpdatedAt = now()
	put(r.tx, r.s.orders, o.ID, o)
	return cloneOrder(o), nil
}

func (r *OrderRepository) ClaimRefund(_ context.Context, claim repoargs.ClaimRefund) (*domain.Order, error) {
	defer r.s.lockWrite(r.tx)()

	o, ok := r.s.orders[claim.OrderID]
	if !ok || o.Status != domain.OrderStatusFailed || o.PaymentStatus != domain.PaymentStatusPaid ||
		(o.RefundClaimedAt != nil && !o.RefundClaimedAt.Before(claim.StaleBefore)) {
		return nil, fmt.Errorf("[repository/claiming refund of order %s] %w", claim.OrderID, domain.ErrRecordNotFound)
	}
	at := claim.At
	o.RefundClaimedAt = &at
	o.UpdatedAt = now()
	put(r.tx, r.s.orders, o.ID, o)
	return cloneOrder(o), nil
}

func (r *OrderRepository) Transition(_ context.Context, tr repoargs.OrderTransition) (*domain.Order, error) {
	defer r.s.lockWrite(r.tx)()

	o, ok := r.s.orders[tr.OrderID]
	if !ok || !transitionAllowed(o, tr) {
		return nil, fmt.Errorf("[repository/transitioning order %s] %w", tr.OrderID, domain.ErrRecordNotFound)
	}

	at := tr.At
	if tr.Status != "" {
		o.Status = tr.Status
		o.Stamp(tr.Status, at)
	}
	if tr.PaymentStatus != "" {
		o.PaymentStatus = tr.PaymentStatus
		if tr.PaymentStatus == domain.PaymentStatusPaid {
			o.PaidAt = &at
		}
	}
	if tr.TransactionID != "" {
		o.TransactionID = tr.TransactionID
	}
	if tr.RefundTransactionID != "" {
		o.RefundTransactionID = tr.RefundTransactionID
	}
	if tr.TrackingNumber != "" {
		o.TrackingNumber = tr.TrackingNumber
	}
	if tr.FailureReason != "" {
		o.FailureReason = tr.FailureReason
	}
	if tr.UnrecordedDebit != nil {
		o.UnrecordedDebits = append(slices.Clone(o.UnrecordedDebits), *tr.UnrecordedDebit)
	}
	if tr.ReleaseAttempt {
		o.PaymentAttemptID = ""
		o.PaymentAttemptAt = nil
	}
	switch {
	case tr.RefundCreditSet:
		o.RefundCreditAt = &at
	case tr.RefundCreditClear:
		o.RefundCreditAt = nil
	}
	o.UpdatedAt = now()
	put(r.tx, r.s.orders, o.ID, o)
	return cloneOrder(o), nil
}

func (r *OrderRepository) Stats(_ context.Context, userID string) (*domain.OrderStats, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	stats := domain.OrderStats{TotalAmount: decimal.Zero}
	for _, o := range r.s.orders {
		if userID != "" && o.UserID != userID {
			continue
		}
		stats.TotalOrders++
		stats.TotalAmount = stats.TotalAmount.Add(o.TotalAmount)
		switch o.Status {
		case domain.OrderStatusPending:
			stats.PendingOrders++
		case domain.OrderStatusDelivered:
			stats.CompletedOrders++
		case domain.OrderStatusCancelled:
			stats.CancelledOrders++
		}
	}
	return &stats, nil
}

func transitionAllowed(o domain.Order, tr repoargs.OrderTransition) bool {
	if tr.AttemptID != "" && o.PaymentAttemptID != tr.AttemptID {
		return false
	}
	if len(tr.FromStatus) > 0 && !slices.Contains(tr.FromStatus, o.Status) {
		return false
	}
	if len(tr.FromPayment) > 0 && !slices.Contains(tr.FromPayment, o.PaymentStatus) {
		return false
	}
	if !tr.StaleBefore.IsZero() && liveAttempt(o, tr.StaleBefore) {
		return false
	}
	return true
}

func liveAttempt(o domain.Order, staleBefore time.Time) bool {
	return o.PaymentAttemptID != "" && o.PaymentAttemptAt != nil && !o.PaymentAttemptAt.Before(staleBefore)
}

func cloneOrder(o domain.Order) *domain.Order {
	o.Items = slices.Clone(o.Items)
	o.UnrecordedDebits = slices.Clone(o.UnrecordedDebits)
	return &o
}
