package service

import (
	"context"

	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/fsdevblog/groph-shop/internal/repository/repoargs"
)

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

type PasswordHasher interface {
	HashPassword(password string) (string, error)
	ComparePassword(password string, hashedPassword string) bool
}

type UserRepository interface {
	CreateUser(ctx context.Context, user repoargs.CreateUser) (*domain.User, error)
	FindUserByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	// SwapBalance записывает новый баланс, только если текущий равен ожидаемому. Иначе
	// возвращает domain.ErrConcurrentModification.
	SwapBalance(ctx context.Context, swap repoargs.BalanceSwap) (*domain.BalanceChange, error)
	UpdateUser(ctx context.Context, args repoargs.UpdateUser) (*domain.User, error)
	List(ctx context.Context, filter repoargs.UserFilter) ([]domain.User, int64, error)
	// SoftDelete помечает пользователя удаленным. Уже удаленный - domain.ErrRecordNotFound.
	SoftDelete(ctx context.Context, args repoargs.SoftDeleteUser) (*domain.User, error)
}

type TransactionRepository interface {
	Create(ctx context.Context, transaction repoargs.CreateTransaction) (*domain.Transaction, error)
	List(ctx context.Context, filter repoargs.TransactionFilter) ([]domain.Transaction, int64, error)
	FindByReference(
		ctx context.Context,
		userID string,
		referenceID string,
		txType domain.TransactionType,
	) (*domain.Transaction, error)
	FindLedgerDrift(ctx context.Context, limit uint) ([]domain.LedgerDrift, error)
	// FindUnsettledPayments возвращает записи payment, заказ которых не оплачен и не возвращен.
	FindUnsettledPayments(ctx context.Context, limit uint) ([]domain.Transaction, error)
}

type ProductRepository interface {
	Create(ctx context.Context, product repoargs.CreateProduct) (*domain.Product, error)
	FindByID(ctx context.Context, id string) (*domain.Product, error)
	FindByIDs(ctx context.Context, ids []string) ([]domain.Product, error)
	// AdjustStock возвращает domain.ErrRecordNotFound, если условие изменения остатка не выполнено.
	AdjustStock(ctx context.Context, adjustment repoargs.StockAdjustment) (*domain.Product, error)
	UpdateStatus(ctx context.Context, id string, status domain.ProductStatus) (*domain.Product, error)
	Update(ctx context.Context, args repoargs.UpdateProduct) (*domain.Product, error)
}

type OrderRepository interface {
	Create(ctx context.Context, order repoargs.CreateOrder) (*domain.Order, error)
	FindByID(ctx context.Context, id string) (*domain.Order, error)
	List(ctx context.Context, filter repoargs.OrderFilter) ([]domain.Order, int64, error)
	ClaimCheckout(ctx context.Context, claim repoargs.ClaimCheckout) (*domain.Order, error)
	ClaimRefund(ctx context.Context, claim repoargs.ClaimRefund) (*domain.Order, error)
	Transition(ctx context.Context, transition repoargs.OrderTransition) (*domain.Order, error)
	// Stats считает сводку по заказам пользователя, пустой userID - по всем заказам.
	Stats(ctx context.Context, userID string) (*domain.OrderStats, error)
}

type CartRepository interface {
	// FindByUserID возвращает domain.ErrRecordNotFound, если корзина еще не создавалась.
	FindByUserID(ctx context.Context, userID string) (*domain.Cart, error)
	Save(ctx context.Context, args repoargs.SaveCart) (*domain.Cart, error)
}
