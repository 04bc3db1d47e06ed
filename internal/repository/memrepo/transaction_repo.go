package memrepo

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/fsdevblog/groph-shop/internal/repository/repoargs"
	"github.com/google/uuid"
)

type TransactionRepository struct {
	s  *Store
	tx *txConn
}

func NewTransactionRepository(s *Store) *TransactionRepository {
	return &TransactionRepository{s: s}
}

func (r *TransactionRepository) Create(
	_ context.Context,
	args repoargs.CreateTransaction,
) (*domain.Transaction, error) {
	defer r.s.lockWrite(r.tx)()

	if _, ok := r.s.users[args.UserID]; !ok {
		return nil, fmt.Errorf("[repository/creating transaction] %w: unknown user %s", domain.ErrPersistence, args.UserID)
	}
	r.s.seq++
	t := domain.Transaction{
		ID:             uuid.NewString(),
		Seq:            r.s.seq,
		UserID:         args.UserID,
		Type:           args.Type,
		Amount:         args.Amount,
		Balance:        args.Balance,
		BalanceVersion: args.BalanceVersion,
		Status:         args.Status,
		Description:    args.Description,
		ReferenceID:    args.ReferenceID,
		CreatedAt:      now(),
	}
	r.s.transactions = append(r.s.transactions, t)
	r.tx.onRollback(func() {
		r.s.transactions = slices.DeleteFunc(r.s.transactions, func(x domain.Transaction) bool { return x.ID == t.ID })
	})
	return &t, nil
}

// List возвращает записи пользователя от новых к старым и общее количество записей под фильтр.
func (r *TransactionRepository) List(
	_ context.Context,
	filter repoargs.TransactionFilter,
) ([]domain.Transaction, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var matched []domain.Transaction
	for _, t := range slices.Backward(r.s.transactions) {
		if t.UserID != filter.UserID {
			continue
		}
		if filter.Type != "" && t.Type != filter.Type {
			continue
		}
		matched = append(matched, t)
	}
	return paginate(matched, filter.Limit, filter.Offset), int64(len(matched)), nil
}

func (r *TransactionRepository) FindByReference(
	_ context.Context,
	userID string,
	referenceID string,
	txType domain.TransactionType,
) (*domain.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, t := range r.s.transactions {
		if t.UserID == userID && t.ReferenceID == referenceID && t.Type == txType {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("[repository/finding %s transaction by reference %s] %w",
		txType, referenceID, domain.ErrRecordNotFound)
}

func (r *TransactionRepository) FindLedgerDrift(_ context.Context, limit uint) ([]domain.LedgerDrift, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	recorded := make(map[string]int64, len(r.s.users))
	for _, t := range r.s.transactions {
		recorded[t.UserID]++
	}

	var drift []domain.LedgerDrift
	for _, user := range r.s.users {
		if user.BalanceVersion == recorded[user.ID] {
			continue
		}
		drift = append(drift, domain.LedgerDrift{
			UserID:            user.ID,
			Balance:           user.Balance,
			BalanceVersion:    user.BalanceVersion,
			RecordedMutations: recorded[user.ID],
		})
	}
	slices.SortFunc(drift, func(a, b domain.LedgerDrift) int {
		return cmp.Compare(a.UserID, b.UserID)
	})
	return paginate(drift, limit, 0), nil
}

// FindUnsettledPayments ищет записи payment, заказ которых не оплачен и не возвращен, старые первыми.
func (r *TransactionRepository) FindUnsettledPayments(_ context.Context, limit uint) ([]domain.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var unsettled []domain.Transaction
	for _, t := range r.s.transactions {
		if t.Type != domain.TransactionTypePayment {
			continue
		}
		o, ok := r.s.orders[t.ReferenceID]
		if ok && (o.PaymentStatus == domain.PaymentStatusPaid || o.PaymentStatus == domain.PaymentStatusRefunded) {
			continue
		}
		unsettled = append(unsettled, t)
	}
	return paginate(unsettled, limit, 0), nil
}

func paginate[T any](items []T, limit, offset uint) []T {
	if offset >= uint(len(items)) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < uint(len(items)) {
		items = items[:limit]
	}
	return items
}
