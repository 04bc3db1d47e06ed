package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/fsdevblog/groph-shop/internal/repository/repoargs"
	"github.com/shopspring/decimal"
)

// TransactionRecorder добавляет записи в журнал операций. Записи только добавляются.
type TransactionRecorder struct {
	txRepo TransactionRepository
}

func NewTransactionRecorder(txRepo TransactionRepository) *TransactionRecorder {
	return &TransactionRecorder{txRepo: txRepo}
}

type RecordArgs struct {
	UserID string
	Type   domain.TransactionType
	Amount decimal.Decimal
	// Change результат изменения баланса, которое фиксирует запись.
	Change      *domain.BalanceChange
	Description string
	ReferenceID string
}

// Record фиксирует в журнале уже примененное изменение баланса.
func (r *TransactionRecorder) Record(ctx context.Context, args RecordArgs) (*domain.Transaction, error) {
	amount, err := domain.PositiveAmount(args.Amount)
	if err != nil {
		return nil, err
	}
	if !args.Type.Valid() {
		return nil, domain.NewValidationError("type", "unknown transaction type")
	}
	if args.Change == nil {
		return nil, errors.New("recording transaction: balance change is required")
	}

	tx, err := r.txRepo.Create(ctx, repoargs.CreateTransaction{
		UserID:         args.UserID,
		Type:           args.Type,
		Amount:         amount,
		Balance:        domain.Quantize(args.Change.Balance),
		BalanceVersion: args.Change.Version,
		Status:         domain.TransactionStatusCompleted,
		Description:    args.Description,
		ReferenceID:    args.ReferenceID,
	})
	if err != nil {
		return nil, fmt.Errorf("recording %s transaction of user %s: %w", args.Type, args.UserID, err)
	}
	return tx, nil
}
