package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/fsdevblog/groph-shop/internal/repository/repoargs"
	"github.com/fsdevblog/groph-shop/pkg/uow"
	"github.com/shopspring/decimal"
)

// CartService корзина пользователя. В корзине хранятся только товар и количество, цена и остаток
// подставляются из каталога при каждом чтении. Корзина не резервирует товар и не трогает баланс.
type CartService struct {
	uow         uow.UOW
	cartRepo    CartRepository
	productRepo ProductRepository
}

func NewCartService(u uow.UOW) (*CartService, error) {
	cartRepo, err := uow.GetRepositoryAs[CartRepository](u, uow.RepositoryName(repoargs.CartRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	productRepo, err := uow.GetRepositoryAs[ProductRepository](u, uow.RepositoryName(repoargs.ProductRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &CartService{uow: u, cartRepo: cartRepo, productRepo: productRepo}, nil
}

// CartLine позиция корзины с текущими данными товара.
type CartLine struct {
	ProductID string
	Quantity  int64
	Name      string
	Price     decimal.Decimal
	Image     string
	Stock     int64
	Available bool
}

func (l CartLine) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(l.Quantity))
}

type CartView struct {
	UserID    string
	Lines     []CartLine
	Total     decimal.Decimal
	UpdatedAt time.Time
}

// Get возвращает корзину. Если корзины еще нет, создает пустую.
func (s *CartService) Get(ctx context.Context, userID string) (*CartView, error) {
	cart, err := s.cartRepo.FindByUserID(ctx, userID)
	if errors.Is(err, domain.ErrRecordNotFound) {
		cart, err = s.cartRepo.Save(ctx, repoargs.SaveCart{UserID: userID, Items: []domain.CartItem{}})
	}
	if err != nil {
		return nil, fmt.Errorf("getting cart: %w", err)
	}
	products, err := s.productRepo.FindByIDs(ctx, cartProductIDs(cart.Items))
	if err != nil {
		return nil, fmt.Errorf("getting cart: %w", err)
	}
	return buildCartView(cart, products), nil
}

type CartItemArgs struct {
	ProductID string
	Quantity  int64
}

// Upsert заменяет содержимое корзины. Каждый товар должен существовать, продаваться и иметь
// достаточный остаток на момент записи. Пустой список очищает корзину.
func (s *CartService) Upsert(ctx context.Context, userID string, items []CartItemArgs) (*CartView, error) {
	if err := validateCartItems(items); err != nil {
		return nil, fmt.Errorf("updating cart: %w", err)
	}

	cartItems := make([]domain.CartItem, len(items))
	for i, item := range items {
		cartItems[i] = domain.CartItem(item)
	}

	var view *CartView
	txErr := s.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		productRepo, err := uow.GetAs[ProductRepository](tx, uow.RepositoryName(repoargs.ProductRepoName))
		if err != nil {
			return err //nolint:wrapcheck
		}
		cartRepo, err := uow.GetAs[CartRepository](tx, uow.RepositoryName(repoargs.CartRepoName))
		if err != nil {
			return err //nolint:wrapcheck
		}

		products, err := productRepo.FindByIDs(c, cartProductIDs(cartItems))
		if err != nil {
			return err //nolint:wrapcheck
		}
		if err := checkCartStock(cartItems, products); err != nil {
			return err
		}

		cart, err := cartRepo.Save(c, repoargs.SaveCart{UserID: userID, Items: cartItems})
		if err != nil {
			return err //nolint:wrapcheck
		}
		view = buildCartView(cart, products)
		return nil
	})
	if txErr != nil {
		return nil, fmt.Errorf("updating cart: %w", txErr)
	}
	return view, nil
}

func (s *CartService) Clear(ctx context.Context, userID string) (*CartView, error) {
	cart, err := s.cartRepo.Save(ctx, repoargs.SaveCart{UserID: userID, Items: []domain.CartItem{}})
	if err != nil {
		return nil, fmt.Errorf("clearing cart: %w", err)
	}
	return buildCartView(cart, nil), nil
}

// Validate проверяет, что корзину можно оформить прямо сейчас: все товары продаются и остатка хватает.
// Пустая и несуществующая корзина валидны.
func (s *CartService) Validate(ctx context.Context, userID string) (*CartView, error) {
	cart, err := s.cartRepo.FindByUserID(ctx, userID)
	if errors.Is(err, domain.ErrRecordNotFound) {
		return &CartView{UserID: userID, Lines: []CartLine{}, Total: decimal.Zero}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("validating cart: %w", err)
	}
	products, err := s.productRepo.FindByIDs(ctx, cartProductIDs(cart.Items))
	if err != nil {
		return nil, fmt.Errorf("validating cart: %w", err)
	}
	if err := checkCartStock(cart.Items, products); err != nil {
		return nil, fmt.Errorf("validating cart: %w", err)
	}
	return buildCartView(cart, products), nil
}

func validateCartItems(items []CartItemArgs) error {
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item.ProductID == "" {
			return domain.NewValidationError("items.product_id", "must not be empty")
		}
		if item.Quantity <= 0 {
			return domain.NewValidationError("items.quantity", "must be greater than zero")
		}
		if _, ok := seen[item.ProductID]; ok {
			return domain.NewValidationError("items", "products must be unique")
		}
		seen[item.ProductID] = struct{}{}
	}
	return nil
}

func checkCartStock(items []domain.CartItem, products []domain.Product) error {
	byID := productsByID(products)
	for _, item := range items {
		p, ok := byID[item.ProductID]
		if !ok || p.Status == domain.ProductStatusDeleted {
			return fmt.Errorf("product %s: %w", item.ProductID, domain.ErrRecordNotFound)
		}
		if p.Status != domain.ProductStatusActive {
			return fmt.Errorf("product %s: %w", p.ID, domain.ErrProductUnavailable)
		}
		if p.Stock < item.Quantity {
			return fmt.Errorf("product %s (have %d, want %d): %w",
				p.ID, p.Stock, item.Quantity, domain.ErrInsufficientStock)
		}
	}
	return nil
}

// buildCartView собирает корзину для ответа. Позиции удаленных и пропавших товаров не показываются.
func buildCartView(cart *domain.Cart, products []domain.Product) *CartView {
	byID := productsByID(products)
	view := &CartView{
		UserID:    cart.UserID,
		Lines:     make([]CartLine, 0, len(cart.Items)),
		Total:     decimal.Zero,
		UpdatedAt: cart.UpdatedAt,
	}
	for _, item := range cart.Items {
		p, ok := byID[item.ProductID]
		if !ok || p.Status == domain.ProductStatusDeleted {
			continue
		}
		line := CartLine{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Name:      p.Name,
			Price:     domain.Quantize(p.Price),
			Stock:     p.Stock,
			Available: p.Status == domain.ProductStatusActive && p.Stock >= item.Quantity,
		}
		if len(p.Images) > 0 {
			line.Image = p.Images[0]
		}
		view.Lines = append(view.Lines, line)
		view.Total = view.Total.Add(line.Subtotal())
	}
	view.Total = domain.Quantize(view.Total)
	return view
}

func cartProductIDs(items []domain.CartItem) []string {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ProductID
	}
	return ids
}

func productsByID(products []domain.Product) map[string]domain.Product {
	byID := make(map[string]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return byID
}
