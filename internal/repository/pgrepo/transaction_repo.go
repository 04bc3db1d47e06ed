package pgrepo

import (
	"context"
	"fmt"

	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/fsdevblog/groph-shop/internal/repository/repoargs"
	"github.com/fsdevblog/groph-shop/pkg/uow"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const transactionColumns = `id, seq, user_id, type, amount, balance, balance_version, status, description,
	reference_id, created_at`

type TransactionRepository struct {
	conn uow.DBTX
}

func NewTransactionRepository(conn uow.DBTX) *TransactionRepository {
	return &TransactionRepository{conn: conn}
}

func (r *TransactionRepository) Create(
	ctx context.Context,
	t repoargs.CreateTransaction,
) (*domain.Transaction, error) {
	row := r.conn.QueryRow(ctx,
		`INSERT INTO transactions
		(id, user_id, type, amount, balance, balance_version, status, description, reference_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+transactionColumns,
		uuid.NewString(),
		t.UserID,
		string(t.Type),
		t.Amount,
		t.Balance,
		t.BalanceVersion,
		string(t.Status),
		t.Description,
		t.ReferenceID,
	)
	transaction, err := scanTransaction(row)
	if err != nil {
		return nil, convertErr(err, "creating transaction")
	}
	return transaction, nil
}

// List возвращает записи пользователя от новых к старым. Порядок задается seq, он совпадает с порядком вставки.
func (r *TransactionRepository) List(
	ctx context.Context,
	filter repoargs.TransactionFilter,
) ([]domain.Transaction, int64, error) {
	where := `WHERE user_id = $1 AND ($2 = '' OR type = $2)`
	args := []any{filter.UserID, string(filter.Type)}

	var total int64
	if err := r.conn.QueryRow(ctx, `SELECT count(*) FROM transactions `+where, args...).Scan(&total); err != nil {
		return nil, 0, convertErr(err, "counting transactions of user %s", filter.UserID)
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions ` + where + ` ORDER BY seq DESC` +
		limitOffset(filter.Limit, filter.Offset)
	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, convertErr(err, "listing transactions of user %s", filter.UserID)
	}
	transactions, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Transaction, error) {
		t, scanErr := scanTransaction(row)
		if scanErr != nil {
			return domain.Transaction{}, scanErr
		}
		return *t, nil
	})
	if err != nil {
		return nil, 0, convertErr(err, "listing transactions of user %s", filter.UserID)
	}
	return transactions, total, nil
}

func (r *TransactionRepository) FindByReference(
	ctx context.Context,
	userID string,
	referenceID string,
	txType domain.TransactionType,
) (*domain.Transaction, error) {
	row := r.conn.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		WHERE user_id = $1 AND reference_id = $2 AND type = $3
		ORDER BY seq LIMIT 1`,
		userID, referenceID, string(txType),
	)
	t, err := scanTransaction(row)
	if err != nil {
		return nil, convertErr(err, "finding %s transaction by reference %s", txType, referenceID)
	}
	return t, nil
}

// FindLedgerDrift ищет пользователей, у которых версия баланса не совпадает с количеством записей журнала.
func (r *TransactionRepository) FindLedgerDrift(ctx context.Context, limit uint) ([]domain.LedgerDrift, error) {
	rows, err := r.conn.Query(ctx,
		`SELECT u.id, u.balance, u.balance_version, count(t.id)
		FROM users u
		LEFT JOIN transactions t ON t.user_id = u.id
		GROUP BY u.id
		HAVING u.balance_version <> count(t.id)
		ORDER BY u.id`+limitOffset(limit, 0),
	)
	if err != nil {
		return nil, convertErr(err, "finding ledger drift")
	}
	drift, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.LedgerDrift, error) {
		var d domain.LedgerDrift
		scanErr := row.Scan(&d.UserID, &d.Balance, &d.BalanceVersion, &d.RecordedMutations)
		return d, scanErr //nolint:wrapcheck
	})
	if err != nil {
		return nil, convertErr(err, "finding ledger drift")
	}
	return drift, nil
}

// FindUnsettledPayments ищет записи payment, заказ которых не оплачен и не возвращен, старые первыми.
func (r *TransactionRepository) FindUnsettledPayments(ctx context.Context, limit uint) ([]domain.Transaction, error) {
	rows, err := r.conn.Query(ctx,
		`SELECT t.id, t.seq, t.user_id, t.type, t.amount, t.balance, t.balance_version, t.status,
			t.description, t.reference_id, t.created_at
		FROM transactions t
		LEFT JOIN orders o ON o.id = t.reference_id
		WHERE t.type = 'payment'
			AND (o.id IS NULL OR o.payment_status NOT IN ('paid', 'refunded'))
		ORDER BY t.seq`+limitOffset(limit, 0),
	)
	if err != nil {
		return nil, convertErr(err, "finding unsettled payments")
	}
	payments, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Transaction, error) {
		t, scanErr := scanTransaction(row)
		if scanErr != nil {
			return domain.Transaction{}, scanErr
		}
		return *t, nil
	})
	if err != nil {
		return nil, convertErr(err, "finding unsettled payments")
	}
	return payments, nil
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var t domain.Transaction
	var txType, status string
	if err := row.Scan(
		&t.ID,
		&t.Seq,
		&t.UserID,
		&txType,
		&t.Amount,
		&t.Balance,
		&t.BalanceVersion,
		&status,
		&t.Description,
		&t.ReferenceID,
		&t.CreatedAt,
	); err != nil {
		return nil, err //nolint:wrapcheck
	}
	t.Type = domain.TransactionType(txType)
	t.Status = domain.TransactionStatus(status)
	return &t, nil
}

// limitOffset возвращает фрагмент запроса LIMIT/OFFSET. Нулевой limit - без ограничения.
func limitOffset(limit, offset uint) string {
	var s string
	if limit > 0 {
		s += fmt.Sprintf(" LIMIT %d", limit)
	}
	if offset > 0 {
		s += fmt.Sprintf(" OFFSET %d", offset)
	}
	return s
}
