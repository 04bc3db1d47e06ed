package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/fsdevblog/groph-shop/internal/repository/repoargs"
)

// StockAdjuster единственный компонент, который меняет остатки товаров.
type StockAdjuster struct {
	productRepo ProductRepository
}

func NewStockAdjuster(productRepo ProductRepository) *StockAdjuster {
	return &StockAdjuster{productRepo: productRepo}
}

// Adjust меняет остаток одним условным обновлением и возвращает новый остаток. Если условие не выполнено,
// товар перечитывается только чтобы назвать причину: domain.ErrRecordNotFound, domain.ErrProductUnavailable
// или domain.ErrInsufficientStock.
func (a *StockAdjuster) Adjust(ctx context.Context, args repoargs.StockAdjustment) (int64, error) {
	if args.Quantity <= 0 {
		return 0, domain.NewValidationError("quantity", "must be a positive integer")
	}
	if args.Direction != domain.DirectionDebit && args.Direction != domain.DirectionCredit {
		return 0, domain.NewValidationError("direction", "must be credit or debit")
	}

	product, err := a.productRepo.AdjustStock(ctx, args)
	if err == nil {
		return product.Stock, nil
	}
	if !errors.Is(err, domain.ErrRecordNotFound) {
		return 0, fmt.Errorf("adjusting stock of product %s: %w", args.ProductID, err)
	}

	current, findErr := a.productRepo.FindByID(ctx, args.ProductID)
	if findErr != nil {
		return 0, fmt.Errorf("adjusting stock of product %s: %w", args.ProductID, findErr)
	}
	if args.RequireActive && current.Status != domain.ProductStatusActive {
		return 0, fmt.Errorf("adjusting stock of product %s: %w", args.ProductID, domain.ErrProductUnavailable)
	}
	return 0, fmt.Errorf("adjusting stock of product %s (have %d, want %d): %w",
		args.ProductID, current.Stock, args.Quantity, domain.ErrInsufficientStock)
}
