package service

import (
	"context"
	"fmt"

	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/fsdevblog/groph-shop/internal/repository/repoargs"
	"github.com/shopspring/decimal"
)

// BalanceMutator единственный компонент, который пишет баланс пользователя.
type BalanceMutator struct {
	userRepo UserRepository
}

func NewBalanceMutator(userRepo UserRepository) *BalanceMutator {
	return &BalanceMutator{userRepo: userRepo}
}

// Mutate применяет изменение к прочитанному ранее балансу args.Expected и записывает результат,
// только если баланс в хранилище не изменился с момента чтения.
//
// Ошибки:
//   - domain.ErrInvalidAmount: Delta после округления не положительна;
//   - domain.ErrInsufficientBalance: списание увело бы баланс в минус;
//   - domain.ErrConcurrentModification: баланс изменился после чтения. Повтор - забота вызывающего.
func (m *BalanceMutator) Mutate(ctx context.Context, args repoargs.BalanceMutation) (*domain.BalanceChange, error) {
	delta, err := domain.PositiveAmount(args.Delta)
	if err != nil {
		return nil, err
	}
	expected := domain.Quantize(args.Expected)

	var next decimal.Decimal
	switch args.Direction {
	case domain.DirectionCredit:
		next = expected.Add(delta)
	case domain.DirectionDebit:
		next = expected.Sub(delta)
		if next.IsNegative() {
			return nil, fmt.Errorf("mutating balance of user %s: %w", args.UserID, domain.ErrInsufficientBalance)
		}
	default:
		return nil, domain.NewValidationError("direction", "must be credit or debit")
	}

	change, err := m.userRepo.SwapBalance(ctx, repoargs.BalanceSwap{
		UserID:   args.UserID,
		Expected: expected,
		New:      next,
	})
	if err != nil {
		return nil, fmt.Errorf("mutating balance of user %s: %w", args.UserID, err)
	}
	return change, nil
}
