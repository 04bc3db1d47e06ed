package pgrepo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/fsdevblog/groph-shop/internal/repository/repoargs"
	"github.com/fsdevblog/groph-shop/pkg/uow"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const orderColumns = `id, user_id, items, total_amount, status, payment_status, shipping_address, note,
	tracking_number, failure_reason, transaction_id, refund_transaction_id, payment_attempt_id, payment_attempt_at,
	refund_claimed_at, refund_credit_at, unrecorded_debits, created_at, updated_at, paid_at, confirmed_at, processing_at, shipped_at,
	delivered_at, cancelled_at, failed_at, refunded_at`

type orderItemRow struct {
	ProductID string          `json:"product_id"`
	Quantity  int64           `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Name      string          `json:"name"`
	Image     string          `json:"image"`
}

type unrecordedDebitRow struct {
	Amount         decimal.Decimal `json:"amount"`
	Balance        decimal.Decimal `json:"balance"`
	BalanceVersion int64           `json:"balance_version"`
	At             time.Time       `json:"at"`
}

type OrderRepository struct {
	conn uow.DBTX
}

func NewOrderRepository(conn uow.DBTX) *OrderRepository {
	return &OrderRepository{conn: conn}
}

func (r *OrderRepository) Create(ctx context.Context, o repoargs.CreateOrder) (*domain.Order, error) {
	items := make([]orderItemRow, len(o.Items))
	for i, item := range o.Items {
		items[i] = orderItemRow(item)
	}
	row := r.conn.QueryRow(ctx,
		`INSERT INTO orders (id, user_id, items, total_amount, shipping_address, note)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+orderColumns,
		uuid.NewString(), o.UserID, items, o.TotalAmount, o.ShippingAddress, o.Note,
	)
	order, err := scanOrder(row)
	if err != nil {
		return nil, convertErr(err, "creating order")
	}
	return order, nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	order, err := scanOrder(r.conn.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		return nil, convertErr(err, "finding order %s", id)
	}
	return order, nil
}

func (r *OrderRepository) List(ctx context.Context, filter repoargs.OrderFilter) ([]domain.Order, int64, error) {
	var conds []string
	var args []any
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.PaymentStatus != "" {
		args = append(args, string(filter.PaymentStatus))
		conds = append(conds, fmt.Sprintf("payment_status = $%d", len(args)))
	}
	if filter.WithUnrecordedDebits {
		conds = append(conds, "jsonb_array_length(unrecorded_debits) > 0")
	}
	if filter.WithoutRefundRecord {
		conds = append(conds, "refund_transaction_id = ''")
	}
	var where string
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	if err := r.conn.QueryRow(ctx, `SELECT count(*) FROM orders`+where, args...).Scan(&total); err != nil {
		return nil, 0, convertErr(err, "counting orders")
	}

	sortBy := "created_at"
	if filter.SortBy == repoargs.OrderSortTotalAmount {
		sortBy = "total_amount"
	}
	direction := "DESC"
	if filter.SortOrder == repoargs.SortAsc {
		direction = "ASC"
	}
	query := fmt.Sprintf(`SELECT %s FROM orders%s ORDER BY %s %s, id %s%s`,
		orderColumns, where, sortBy, direction, direction, limitOffset(filter.Limit, filter.Offset))

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, convertErr(err, "listing orders")
	}
	orders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Order, error) {
		o, scanErr := scanOrder(row)
		if scanErr != nil {
			return domain.Order{}, scanErr
		}
		return *o, nil
	})
	if err != nil {
		return nil, 0, convertErr(err, "listing orders")
	}
	return orders, total, nil
}

func (r *OrderRepository) ClaimCheckout(ctx context.Context, claim repoargs.ClaimCheckout) (*domain.Order, error) {
	row := r.conn.QueryRow(ctx,
		`UPDATE orders
		SET payment_attempt_id = $2, payment_attempt_at = $3, updated_at = now()
		WHERE id = $1
			AND status = 'pending'
			AND payment_status IN ('pending', 'failed')
			AND (payment_attempt_id = '' OR payment_attempt_at < $4)
		RETURNING `+orderColumns,
		claim.OrderID, claim.AttemptID, claim.At, claim.StaleBefore,
	)
	order, err := scanOrder(row)
	if err != nil {
		return nil, convertErr(err, "claiming checkout of order %s", claim.OrderID)
	}
	return order, nil
}

func (r *OrderRepository) ClaimRefund(ctx context.Context, claim repoargs.ClaimRefund) (*domain.Order, error) {
	row := r.conn.QueryRow(ctx,
		`UPDATE orders
		SET refund_claimed_at = $2, updated_at = now()
		WHERE id = $1
			AND status = 'failed'
			AND payment_status = 'paid'
			AND (refund_claimed_at IS NULL OR refund_claimed_at < $3)
		RETURNING `+orderColumns,
		claim.OrderID, claim.At, claim.StaleBefore,
	)
	order, err := scanOrder(row)
	if err != nil {
		return nil, convertErr(err, "claiming refund of order %s", claim.OrderID)
	}
	return order, nil
}

// Transition собирает условный UPDATE из непустых полей перехода.
func (r *OrderRepository) Transition(ctx context.Context, tr repoargs.OrderTransition) (*domain.Order, error) {
	b := newUpdateBuilder("orders", tr.OrderID)

	if tr.Status != "" {
		b.set("status", string(tr.Status))
		if col := repoargs.StatusTimestampColumn(tr.Status); col != "" {
			b.set(col, tr.At)
		}
	}
	if tr.PaymentStatus != "" {
		b.set("payment_status", string(tr.PaymentStatus))
		if tr.PaymentStatus == domain.PaymentStatusPaid {
			b.set("paid_at", tr.At)
		}
	}
	if tr.TransactionID != "" {
		b.set("transaction_id", tr.TransactionID)
	}
	if tr.RefundTransactionID != "" {
		b.set("refund_transaction_id", tr.RefundTransactionID)
	}
	if tr.TrackingNumber != "" {
		b.set("tracking_number", tr.TrackingNumber)
	}
	if tr.FailureReason != "" {
		b.set("failure_reason", tr.FailureReason)
	}
	if tr.UnrecordedDebit != nil {
		b.setExpr("unrecorded_debits", "unrecorded_debits || jsonb_build_array($%d::jsonb)",
			unrecordedDebitRow(*tr.UnrecordedDebit))
	}
	if tr.ReleaseAttempt {
		b.set("payment_attempt_id", "")
		b.set("payment_attempt_at", nil)
	}
	switch {
	case tr.RefundCreditSet:
		b.set("refund_credit_at", tr.At)
	case tr.RefundCreditClear:
		b.set("refund_credit_at", nil)
	}

	if tr.AttemptID != "" {
		b.where("payment_attempt_id = $%d", tr.AttemptID)
	}
	if len(tr.FromStatus) > 0 {
		statuses := make([]string, len(tr.FromStatus))
		for i, s := range tr.FromStatus {
			statuses[i] = string(s)
		}
		b.where("status = ANY($%d)", statuses)
	}
	if len(tr.FromPayment) > 0 {
		statuses := make([]string, len(tr.FromPayment))
		for i, s := range tr.FromPayment {
			statuses[i] = string(s)
		}
		b.where("payment_status = ANY($%d)", statuses)
	}
	if !tr.StaleBefore.IsZero() {
		b.where("(payment_attempt_id = '' OR payment_attempt_at < $%d)", tr.StaleBefore)
	}

	query, args := b.build(orderColumns)
	order, err := scanOrder(r.conn.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, convertErr(err, "transitioning order %s", tr.OrderID)
	}
	return order, nil
}

// Stats агрегирует заказы одним запросом. Пустой userID - по всем пользователям.
func (r *OrderRepository) Stats(ctx context.Context, userID string) (*domain.OrderStats, error) {
	var stats domain.OrderStats
	err := r.conn.QueryRow(ctx,
		`SELECT count(*),
			coalesce(sum(total_amount), 0),
			count(*) FILTER (WHERE status = 'pending'),
			count(*) FILTER (WHERE status = 'delivered'),
			count(*) FILTER (WHERE status = 'cancelled')
		FROM orders
		WHERE $1 = '' OR user_id = $1`,
		userID,
	).Scan(&stats.TotalOrders, &stats.TotalAmount, &stats.PendingOrders, &stats.CompletedOrders, &stats.CancelledOrders)
	if err != nil {
		return nil, convertErr(err, "counting order stats")
	}
	return &stats, nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	var status, paymentStatus string
	var items []orderItemRow
	var debits []unrecordedDebitRow
	if err := row.Scan(
		&o.ID,
		&o.UserID,
		&items,
		&o.TotalAmount,
		&status,
		&paymentStatus,
		&o.ShippingAddress,
		&o.Note,
		&o.TrackingNumber,
		&o.FailureReason,
		&o.TransactionID,
		&o.RefundTransactionID,
		&o.PaymentAttemptID,
		&o.PaymentAttemptAt,
		&o.RefundClaimedAt,
		&o.RefundCreditAt,
		&debits,
		&o.CreatedAt,
		&o.UpdatedAt,
		&o.PaidAt,
		&o.ConfirmedAt,
		&o.ProcessingAt,
		&o.ShippedAt,
		&o.DeliveredAt,
		&o.CancelledAt,
		&o.FailedAt,
		&o.RefundedAt,
	); err != nil {
		return nil, err //nolint:wrapcheck
	}
	o.Status = domain.OrderStatus(status)
	o.PaymentStatus = domain.PaymentStatus(paymentStatus)
	o.Items = make([]domain.OrderItem, len(items))
	for i, item := range items {
		o.Items[i] = domain.OrderItem(item)
	}
	o.UnrecordedDebits = make([]domain.UnrecordedDebit, len(debits))
	for i, d := range debits {
		o.UnrecordedDebits[i] = domain.UnrecordedDebit(d)
	}
	return &o, nil
}
