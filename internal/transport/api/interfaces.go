package api

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/fsdevblog/groph-shop/internal/service"
)

// UserServicer интерфейс исключительно для моков.
type UserServicer interface {
	Register(ctx context.Context, args service.RegisterUserArgs) (*domain.User, string, error)
	Login(ctx context.Context, args service.LoginUserArgs) (*domain.User, string, error)
	Get(ctx context.Context, userID string) (*domain.User, error)
	UpdateProfile(ctx context.Context, args service.UpdateProfileArgs) (*domain.User, error)
	List(ctx context.Context, args service.ListUsersArgs) ([]domain.User, int64, error)
	Delete(ctx context.Context, userID string) (*domain.User, error)
}

type LedgerServicer interface {
	GetBalance(ctx context.Context, userID string) (*domain.User, error)
	Deposit(ctx context.Context, args service.BalanceOperationArgs) (*domain.Transaction, error)
	Withdraw(ctx context.Context, args service.BalanceOperationArgs) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, args service.ListTransactionsArgs) ([]domain.Transaction, int64, error)
}

type OrderServicer interface {
	Create(ctx context.Context, args service.CreateOrderArgs) (*domain.Order, error)
	Get(ctx context.Context, orderID, userID string) (*domain.Order, error)
	List(ctx context.Context, args service.ListOrdersArgs) ([]domain.Order, int64, error)
	Cancel(ctx context.Context, orderID, userID string) (*domain.Order, error)
	UpdateStatus(ctx context.Context, args service.UpdateOrderStatusArgs) (*domain.Order, error)
	Stats(ctx context.Context, userID string) (*domain.OrderStats, error)
}

type CheckoutServicer interface {
	Checkout(ctx context.Context, orderID, userID string) (*service.CheckoutResult, error)
}

type CartServicer interface {
	Get(ctx context.Context, userID string) (*service.CartView, error)
	Upsert(ctx context.Context, userID string, items []service.CartItemArgs) (*service.CartView, error)
	Clear(ctx context.Context, userID string) (*service.CartView, error)
	Validate(ctx context.Context, userID string) (*service.CartView, error)
}

type ProductServicer interface {
	Create(ctx context.Context, args service.CreateProductArgs) (*domain.Product, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
	AdjustStock(ctx context.Context, id string, quantity int64, direction domain.DirectionType) (*domain.Product, error)
	UpdateStatus(ctx context.Context, id string, status domain.ProductStatus) (*domain.Product, error)
	Update(ctx context.Context, args service.UpdateProductArgs) (*domain.Product, error)
	Delete(ctx context.Context, id string) (*domain.Product, error)
}

type ReconciliationServicer interface {
	Report(ctx context.Context, limit uint) (*service.ReconciliationReport, error)
}

// HealthChecker проверяет доступность хранилища.
type HealthChecker interface {
	Ping(ctx context.Context) error
}
