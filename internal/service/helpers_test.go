package service

import (
	"io"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/fsdevblog/groph-shop/internal/repository/memrepo"
	"github.com/fsdevblog/groph-shop/internal/repository/repoargs"
	"github.com/fsdevblog/groph-shop/internal/service/mocks"
	"github.com/fsdevblog/groph-shop/pkg/uow"
	uowmocks "github.com/fsdevblog/groph-shop/pkg/uow/mocks"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

func discardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// repoMocks моки всех репозиториев, зарегистрированные в моке unit of work.
type repoMocks struct {
	ctrl     *gomock.Controller
	uow      *uowmocks.MockUOW
	tx       *uowmocks.MockTX
	users    *mocks.MockUserRepository
	orders   *mocks.MockOrderRepository
	products *mocks.MockProductRepository
	txs      *mocks.MockTransactionRepository
	carts    *mocks.MockCartRepository
}

func newRepoMocks(t *testing.T) *repoMocks {
	ctrl := gomock.NewController(t)
	m := &repoMocks{
		ctrl:     ctrl,
		uow:      uowmocks.NewMockUOW(ctrl),
		tx:       uowmocks.NewMockTX(ctrl),
		users:    mocks.NewMockUserRepository(ctrl),
		orders:   mocks.NewMockOrderRepository(ctrl),
		products: mocks.NewMockProductRepository(ctrl),
		txs:      mocks.NewMockTransactionRepository(ctrl),
		carts:    mocks.NewMockCartRepository(ctrl),
	}
	repos := map[repoargs.RepositoryName]uow.Repository{
		repoargs.UserRepoName:        m.users,
		repoargs.OrderRepoName:       m.orders,
		repoargs.ProductRepoName:     m.products,
		repoargs.TransactionRepoName: m.txs,
		repoargs.CartRepoName:        m.carts,
	}
	for name, repo := range repos {
		m.uow.EXPECT().GetRepository(uow.RepositoryName(name)).Return(repo, nil).AnyTimes()
		m.tx.EXPECT().Get(uow.RepositoryName(name)).Return(repo, nil).AnyTimes()
	}
	return m
}

// memEnv сервисы поверх хранилища в памяти.
type memEnv struct {
	store    *memrepo.Store
	services *AppServices
}

func newMemEnv(t *testing.T) *memEnv {
	t.Helper()
	store := memrepo.New()
	u, err := memrepo.NewUnitOfWork(store)
	require.NoError(t, err)
	services, err := Factory(u, FactoryArgs{
		JWTSecret:     []byte("test-secret"),
		Hasher:        plainHasher{},
		CheckoutLease: time.Minute,
		Logger:        discardLogger(),
	})
	require.NoError(t, err)
	return &memEnv{store: store, services: services}
}

func (e *memEnv) user(t *testing.T, balance string) *domain.User {
	t.Helper()
	user, _, err := e.services.UserService.Register(t.Context(), RegisterUserArgs{
		Username: gofakeit.Username() + gofakeit.DigitN(6),
		Password: "password",
	})
	require.NoError(t, err)
	if amount := money(balance); amount.IsPositive() {
		_, err = e.services.LedgerService.Deposit(t.Context(), BalanceOperationArgs{UserID: user.ID, Amount: amount})
		require.NoError(t, err)
	}
	return user
}

func (e *memEnv) product(t *testing.T, price string, stock int64) *domain.Product {
	t.Helper()
	p, err := e.services.ProductService.Create(t.Context(), CreateProductArgs{
		Name:   gofakeit.ProductName(),
		SKU:    gofakeit.UUID(),
		Images: []string{gofakeit.URL()},
		Price:  money(price),
		Stock:  stock,
		Status: domain.ProductStatusActive,
	})
	require.NoError(t, err)
	return p
}

func (e *memEnv) order(t *testing.T, userID string, items ...OrderItemArgs) *domain.Order {
	t.Helper()
	o, err := e.services.OrderService.Create(t.Context(), CreateOrderArgs{
		UserID:          userID,
		Items:           items,
		ShippingAddress: "221B Baker Street, London",
	})
	require.NoError(t, err)
	return o
}

// plainHasher не хеширует, чтобы не тратить время тестов на bcrypt.
type plainHasher struct{}

func (plainHasher) HashPassword(password string) (string, error) {
	return "plain:" + password, nil
}

func (plainHasher) ComparePassword(password, hashedPassword string) bool {
	return "plain:"+password == hashedPassword
}
