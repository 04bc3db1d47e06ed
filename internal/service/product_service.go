package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/fsdevblog/groph-shop/internal/repository/repoargs"
	"github.com/fsdevblog/groph-shop/pkg/uow"
	"github.com/shopspring/decimal"
)

type ProductService struct {
	productRepo ProductRepository
	adjuster    *StockAdjuster
}

func NewProductService(u uow.UOW) (*ProductService, error) {
	productRepo, err := uow.GetRepositoryAs[ProductRepository](u, uow.RepositoryName(repoargs.ProductRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &ProductService{
		productRepo: productRepo,
		adjuster:    NewStockAdjuster(productRepo),
	}, nil
}

type CreateProductArgs struct {
	Name        string
	Description string
	SKU         string
	Category    string
	Images      []string
	Price       decimal.Decimal
	Stock       int64
	Status      domain.ProductStatus
}

func (s *ProductService) Create(ctx context.Context, args CreateProductArgs) (*domain.Product, error) {
	name := strings.TrimSpace(args.Name)
	if name == "" {
		return nil, domain.NewValidationError("name", "must not be empty")
	}
	sku := strings.TrimSpace(args.SKU)
	if sku == "" {
		return nil, domain.NewValidationError("sku", "must not be empty")
	}
	price, err := domain.PositiveAmount(args.Price)
	if err != nil {
		return nil, domain.NewValidationError("price", "must be greater than zero")
	}
	if args.Stock < 0 {
		return nil, domain.NewValidationError("stock", "must not be negative")
	}
	status := args.Status
	if status == "" {
		status = domain.ProductStatusDraft
	}
	if !status.Valid() {
		return nil, domain.NewValidationError("status", "unknown product status")
	}

	product, err := s.productRepo.Create(ctx, repoargs.CreateProduct{
		Name:        name,
		Description: args.Description,
		SKU:         sku,
		Category:    args.Category,
		Images:      args.Images,
		Price:       price,
		Stock:       args.Stock,
		Status:      status,
	})
	if err != nil {
		return nil, fmt.Errorf("creating product: %w", err)
	}
	return product, nil
}

func (s *ProductService) Get(ctx context.Context, id string) (*domain.Product, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting product: %w", err)
	}
	return product, nil
}

// AdjustStock ручное изменение остатка администратором. Статус товара не проверяется.
func (s *ProductService) AdjustStock(
	ctx context.Context,
	id string,
	quantity int64,
	direction domain.DirectionType,
) (*domain.Product, error) {
	if _, err := s.adjuster.Adjust(ctx, repoargs.StockAdjustment{
		ProductID: id,
		Quantity:  quantity,
		Direction: direction,
	}); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *ProductService) UpdateStatus(
	ctx context.Context,
	id string,
	status domain.ProductStatus,
) (*domain.Product, error) {
	if !status.Valid() {
		return nil, domain.NewValidationError("status", "unknown product status")
	}
	product, err := s.productRepo.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, fmt.Errorf("updating product status: %w", err)
	}
	return product, nil
}

type UpdateProductArgs struct {
	ID          string
	Name        *string
	Description *string
	SKU         *string
	Category    *string
	Images      []string
	Price       *decimal.Decimal
	Status      *domain.ProductStatus
}

// Update правит карточку товара. Остаток меняет только AdjustStock.
func (s *ProductService) Update(ctx context.Context, args UpdateProductArgs) (*domain.Product, error) {
	update := repoargs.UpdateProduct{
		ID:          args.ID,
		Description: args.Description,
		Category:    args.Category,
		Images:      args.Images,
		Status:      args.Status,
	}
	if args.Name != nil {
		name := strings.TrimSpace(*args.Name)
		if name == "" {
			return nil, domain.NewValidationError("name", "must not be empty")
		}
		update.Name = &name
	}
	if args.SKU != nil {
		sku := strings.TrimSpace(*args.SKU)
		if sku == "" {
			return nil, domain.NewValidationError("sku", "must not be empty")
		}
		update.SKU = &sku
	}
	if args.Price != nil {
		price, err := domain.PositiveAmount(*args.Price)
		if err != nil {
			return nil, domain.NewValidationError("price", "must be greater than zero")
		}
		update.Price = &price
	}
	if args.Status != nil && !args.Status.Valid() {
		return nil, domain.NewValidationError("status", "unknown product status")
	}
	if update.Name == nil && update.Description == nil && update.SKU == nil && update.Category == nil &&
		update.Images == nil && update.Price == nil && update.Status == nil {
		return nil, domain.NewValidationError("body", "nothing to update")
	}

	product, err := s.productRepo.Update(ctx, update)
	if err != nil {
		return nil, fmt.Errorf("updating product: %w", err)
	}
	return product, nil
}

// Delete мягко удаляет товар переводом в статус deleted. Заказы с ним остаются как есть.
func (s *ProductService) Delete(ctx context.Context, id string) (*domain.Product, error) {
	return s.UpdateStatus(ctx, id, domain.ProductStatusDeleted)
}
