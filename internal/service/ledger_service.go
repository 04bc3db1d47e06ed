package service

import (
	"context"
	"fmt"

	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/fsdevblog/groph-shop/internal/repository/repoargs"
	"github.com/fsdevblog/groph-shop/pkg/uow"
	"github.com/shopspring/decimal"
)

type LedgerService struct {
	userRepo UserRepository
	txRepo   TransactionRepository
	mutator  *BalanceMutator
	recorder *TransactionRecorder
}

func NewLedgerService(u uow.UOW) (*LedgerService, error) {
	userRepo, err := uow.GetRepositoryAs[UserRepository](u, uow.RepositoryName(repoargs.UserRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	txRepo, err := uow.GetRepositoryAs[TransactionRepository](u, uow.RepositoryName(repoargs.TransactionRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &LedgerService{
		userRepo: userRepo,
		txRepo:   txRepo,
		mutator:  NewBalanceMutator(userRepo),
		recorder: NewTransactionRecorder(txRepo),
	}, nil
}

// GetBalance возвращает текущий баланс пользователя.
func (s *LedgerService) GetBalance(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("getting balance: %w", err)
	}
	return user, nil
}

type BalanceOperationArgs struct {
	UserID      string
	Amount      decimal.Decimal
	Description string
}

// Deposit зачисляет сумму на баланс и записывает операцию в журнал.
func (s *LedgerService) Deposit(ctx context.Context, args BalanceOperationArgs) (*domain.Transaction, error) {
	return s.apply(ctx, domain.TransactionTypeDeposit, args)
}

// Withdraw списывает сумму с баланса и записывает операцию в журнал. При недостатке средств возвращает
// domain.ErrInsufficientBalance.
func (s *LedgerService) Withdraw(ctx context.Context, args BalanceOperationArgs) (*domain.Transaction, error) {
	return s.apply(ctx, domain.TransactionTypeWithdraw, args)
}

// apply читает баланс, применяет изменение условной записью и фиксирует его в журнале.
// domain.ErrConcurrentModification возвращается вызывающему без повторов.
func (s *LedgerService) apply(
	ctx context.Context,
	txType domain.TransactionType,
	args BalanceOperationArgs,
) (*domain.Transaction, error) {
	amount, err := domain.PositiveAmount(args.Amount)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", txType, err)
	}

	user, err := s.userRepo.FindByID(ctx, args.UserID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", txType, err)
	}

	change, err := s.mutator.Mutate(ctx, repoargs.BalanceMutation{
		UserID:    user.ID,
		Expected:  user.Balance,
		Delta:     amount,
		Direction: txType.Direction(),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", txType, err)
	}

	tx, err := s.recorder.Record(ctx, RecordArgs{
		UserID:      user.ID,
		Type:        txType,
		Amount:      amount,
		Change:      change,
		Description: args.Description,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: balance changed to %s but not recorded: %w",
			txType, change.Balance.StringFixed(domain.MoneyPlaces), err)
	}
	return tx, nil
}

type ListTransactionsArgs struct {
	UserID string
	Type   domain.TransactionType
	Limit  uint
	Offset uint
}

// ListTransactions возвращает записи журнала пользователя от новых к старым и их общее количество.
func (s *LedgerService) ListTransactions(
	ctx context.Context,
	args ListTransactionsArgs,
) ([]domain.Transaction, int64, error) {
	if args.Type != "" && !args.Type.Valid() {
		return nil, 0, domain.NewValidationError("type", "unknown transaction type")
	}
	items, total, err := s.txRepo.List(ctx, repoargs.TransactionFilter{
		UserID: args.UserID,
		Type:   args.Type,
		Limit:  args.Limit,
		Offset: args.Offset,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("listing transactions: %w", err)
	}
	return items, total, nil
}
