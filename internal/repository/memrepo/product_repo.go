package memrepo

import (
	"context"
	"fmt"
	"slices"

	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/fsdevblog/groph-shop/internal/repository/repoargs"
	"github.com/google/uuid"
)

type ProductRepository struct {
	s  *Store
	tx *txConn
}

func NewProductRepository(s *Store) *ProductRepository {
	return &ProductRepository{s: s}
}

func (r *ProductRepository) Create(_ context.Context, args repoargs.CreateProduct) (*domain.Product, error) {
	defer r.s.lockWrite(r.tx)()

	if _, ok := r.s.skus[args.SKU]; ok {
		return nil, fmt.Errorf("[repository/creating product] %w", domain.ErrDuplicateKey)
	}
	t := now()
	p := domain.Product{
		ID:          uuid.NewString(),
		CreatedAt:   t,
		UpdatedAt:   t,
		Name:        args.Name,
		Description: args.Description,
		SKU:         args.SKU,
		Category:    args.Category,
		Images:      slices.Clone(args.Images),
		Price:       args.Price,
		Stock:       args.Stock,
		Status:      args.Status,
	}
	put(r.tx, r.s.products, p.ID, p)
	put(r.tx, r.s.skus, p.SKU, p.ID)
	return cloneProduct(p), nil
}

func (r *ProductRepository) FindByID(_ context.Context, id string) (*domain.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.products[id]
	if !ok {
		return nil, fmt.Errorf("[repository/finding product %s] %w", id, domain.ErrRecordNotFound)
	}
	return cloneProduct(p), nil
}

func (r *ProductRepository) FindByIDs(_ context.Context, ids []string) ([]domain.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	products := make([]domain.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.s.products[id]; ok {
			products = append(products, *cloneProduct(p))
		}
	}
	return products, nil
}

func (r *ProductRepository) AdjustStock(
	_ context.Context,
	args repoargs.StockAdjustment,
) (*domain.Product, error) {
	defer r.s.lockWrite(r.tx)()

	p, ok := r.s.products[args.ProductID]
	miss := fmt.Errorf("[repository/adjusting stock of product %s] %w", args.ProductID, domain.ErrRecordNotFound)
	if !ok {
		return nil, miss
	}
	if args.RequireActive && p.Status != domain.ProductStatusActive {
		return nil, miss
	}
	if args.Direction == domain.DirectionDebit {
		if p.Stock < args.Quantity {
			return nil, miss
		}
		p.Stock -= args.Quantity
	} else {
		p.Stock += args.Quantity
	}
	p.UpdatedAt = now()
	put(r.tx, r.s.products, p.ID, p)
	return cloneProduct(p), nil
}

func (r *ProductRepository) UpdateStatus(
	_ context.Context,
	id string,
	status domain.ProductStatus,
) (*domain.Product, error) {
	defer r.s.lockWrite(r.tx)()

	p, ok := r.s.products[id]
	if !ok {
		return nil, fmt.Errorf("[repository/updating product %s status] %w", id, domain.ErrRecordNotFound)
	}
	p.Status = status
	p.UpdatedAt = now()
	put(r.tx, r.s.products, id, p)
	return cloneProduct(p), nil
}

func (r *ProductRepository) Update(_ context.Context, args repoargs.UpdateProduct) (*domain.Product, error) {
	defer r.s.lockWrite(r.tx)()

	p, ok := r.s.products[args.ID]
	if !ok {
		return nil, fmt.Errorf("[repository/updating product %s] %w", args.ID, domain.ErrRecordNotFound)
	}
	if args.SKU != nil && *args.SKU != p.SKU {
		if _, taken := r.s.skus[*args.SKU]; taken {
			return nil, fmt.Errorf("[repository/updating product %s] %w", args.ID, domain.ErrDuplicateKey)
		}
		prevSKU := p.SKU
		put(r.tx, r.s.skus, *args.SKU, p.ID)
		delete(r.s.skus, prevSKU)
		r.tx.onRollback(func() { r.s.skus[prevSKU] = p.ID })
		p.SKU = *args.SKU
	}
	if args.Name != nil {
		p.Name = *args.Name
	}
	if args.Description != nil {
		p.Description = *args.Description
	}
	if args.Category != nil {
		p.Category = *args.Category
	}
	if args.Images != nil {
		p.Images = slices.Clone(args.Images)
	}
	if args.Price != nil {
		p.Price = *args.Price
	}
	if args.Status != nil {
		p.Status = *args.Status
	}
	p.UpdatedAt = now()
	put(r.tx, r.s.products, p.ID, p)
	return cloneProduct(p), nil
}

func cloneProduct(p domain.Product) *domain.Product {
	p.Images = slices.Clone(p.Images)
	return &p
}
