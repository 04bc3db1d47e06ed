package memrepo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/fsdevblog/groph-shop/internal/repository/repoargs"
	"github.com/fsdevblog/groph-shop/pkg/uow"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type StoreTestSuite struct {
	suite.Suite
	store    *Store
	users    *UserRepository
	products *ProductRepository
	orders   *OrderRepository
	txs      *TransactionRepository
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}

func (s *StoreTestSuite) SetupTest() {
	s.store = New()
	s.users = NewUserRepository(s.store)
	s.products = NewProductRepository(s.store)
	s.orders = NewOrderRepository(s.store)
	s.txs = NewTransactionRepository(s.store)
}

func (s *StoreTestSuite) createUser() *domain.User {
	user, err := s.users.CreateUser(s.T().Context(), repoargs.CreateUser{
		Username: gofakeit.Username(),
		Password: gofakeit.Password(true, true, true, false, false, 12),
	})
	s.Require().NoError(err)
	return user
}

func (s *StoreTestSuite) TestCreateUser_Duplicate() {
	user := s.createUser()
	_, err := s.users.CreateUser(s.T().Context(), repoargs.CreateUser{Username: user.Username, Password: "x"})
	s.Require().ErrorIs(err, domain.ErrDuplicateKey)
	s.Equal(domain.RoleUser, user.Role)
	s.True(user.Balance.IsZero())
}

func (s *StoreTestSuite) TestSwapBalance() {
	user := s.createUser()

	change, err := s.users.SwapBalance(s.T().Context(), repoargs.BalanceSwap{
		UserID:   user.ID,
		Expected: decimal.Zero,
		New:      decimal.RequireFromString("15.50"),
	})
	s.Require().NoError(err)
	s.Equal("15.50", change.Balance.StringFixed(2))
	s.Equal(int64(1), change.Version)

	// устаревшее ожидаемое значение
	_, err = s.users.SwapBalance(s.T().Context(), repoargs.BalanceSwap{
		UserID:   user.ID,
		Expected: decimal.Zero,
		New:      decimal.NewFromInt(1),
	})
	s.Require().ErrorIs(err, domain.ErrConcurrentModification)

	// неизвестный пользователь - тоже потеря блокировки, а не not found
	_, err = s.users.SwapBalance(s.T().Context(), repoargs.BalanceSwap{UserID: "missing"})
	s.Require().ErrorIs(err, domain.ErrConcurrentModification)

	stored, err := s.users.FindByID(s.T().Context(), user.ID)
	s.Require().NoError(err)
	s.Equal("15.50", stored.Balance.StringFixed(2))
}

func (s *StoreTestSuite) TestAdjustStock() {
	p, err := s.products.Create(s.T().Context(), repoargs.CreateProduct{
		Name:   gofakeit.ProductName(),
		SKU:    gofakeit.UUID(),
		Price:  decimal.NewFromInt(10),
		Stock:  3,
		Status: domain.ProductStatusActive,
	})
	s.Require().NoError(err)

	updated, err := s.products.AdjustStock(s.T().Context(), repoargs.StockAdjustment{
		ProductID: p.ID, Quantity: 2, Direction: domain.DirectionDebit, RequireActive: true,
	})
	s.Require().NoError(err)
	s.Equal(int64(1), updated.Stock)

	_, err = s.products.AdjustStock(s.T().Context(), repoargs.StockAdjustment{
		ProductID: p.ID, Quantity: 2, Direction: domain.DirectionDebit,
	})
	s.Require().ErrorIs(err, domain.ErrRecordNotFound)

	_, err = s.products.UpdateStatus(s.T().Context(), p.ID, domain.ProductStatusInactive)
	s.Require().NoError(err)
	_, err = s.products.AdjustStock(s.T().Context(), repoargs.StockAdjustment{
		ProductID: p.ID, Quantity: 1, Direction: domain.DirectionDebit, RequireActive: true,
	})
	s.Require().ErrorIs(err, domain.ErrRecordNotFound)

	updated, err = s.products.AdjustStock(s.T().Context(), repoargs.StockAdjustment{
		ProductID: p.ID, Quantity: 5, Direction: domain.DirectionCredit,
	})
	s.Require().NoError(err)
	s.Equal(int64(6), updated.Stock)
}

func (s *StoreTestSuite) TestOrderClaimAndTransition() {
	user := s.createUser()
	order, err := s.orders.Create(s.T().Context(), repoargs.CreateOrder{
		UserID:          user.ID,
		Items:           []domain.OrderItem{{ProductID: "p1", Quantity: 1, Price: decimal.NewFromInt(5)}},
		TotalAmount:     decimal.NewFromInt(5),
		ShippingAddress: gofakeit.Street(),
	})
	s.Require().NoError(err)
	s.Equal(domain.OrderStatusPending, order.Status)
	s.Equal(domain.PaymentStatusPending, order.PaymentStatus)

	now := time.Now()
	claim := repoargs.ClaimCheckout{OrderID: order.ID, AttemptID: "a1", At: now, StaleBefore: now.Add(-time.Minute)}
	_, err = s.orders.ClaimCheckout(s.T().Context(), claim)
	s.Require().NoError(err)

	// живая попытка не дает захватить заказ повторно и отменить его
	claim.AttemptID = "a2"
	_, err = s.orders.ClaimCheckout(s.T().Context(), claim)
	s.Require().ErrorIs(err, domain.ErrRecordNotFound)
	_, err = s.orders.Transition(s.T().Context(), repoargs.OrderTransition{
		OrderID:     order.ID,
		FromStatus:  []domain.OrderStatus{domain.OrderStatusPending},
		StaleBefore: now.Add(-time.Minute),
		Status:      domain.OrderStatusCancelled,
		At:          now,
	})
	s.Require().ErrorIs(err, domain.ErrRecordNotFound)

	// чужой attempt id
	_, err = s.orders.Transition(s.T().Context(), repoargs.OrderTransition{
		OrderID: order.ID, AttemptID: "a2", PaymentStatus: domain.PaymentStatusPaid, At: now,
	})
	s.Require().ErrorIs(err, domain.ErrRecordNotFound)

	paid, err := s.orders.Transition(s.T().Context(), repoargs.OrderTransition{
		OrderID:       order.ID,
		AttemptID:     "a1",
		PaymentStatus: domain.PaymentStatusPaid,
		TransactionID: "t1",
		At:            now,
	})
	s.Require().NoError(err)
	s.Equal(domain.PaymentStatusPaid, paid.PaymentStatus)
	s.NotNil(paid.PaidAt)
	s.Equal("a1", paid.PaymentAttemptID)

	confirmed, err := s.orders.Transition(s.T().Context(), repoargs.OrderTransition{
		OrderID:        order.ID,
		AttemptID:      "a1",
		Status:         domain.OrderStatusConfirmed,
		ReleaseAttempt: true,
		At:             now,
	})
	s.Require().NoError(err)
	s.Equal(domain.OrderStatusConfirmed, confirmed.Status)
	s.NotNil(confirmed.ConfirmedAt)
	s.Empty(confirmed.PaymentAttemptID)
	s.Nil(confirmed.PaymentAttemptAt)
}

func (s *StoreTestSuite) TestFindUnsettledPayments() {
	user := s.createUser()
	now := time.Now()
	orderIDs := make([]string, 2)
	for i := range orderIDs {
		order, err := s.orders.Create(s.T().Context(), repoargs.CreateOrder{
			UserID:      user.ID,
			Items:       []domain.OrderItem{{ProductID: "p1", Quantity: 1, Price: decimal.NewFromInt(5)}},
			TotalAmount: decimal.NewFromInt(5),
		})
		s.Require().NoError(err)
		orderIDs[i] = order.ID
		_, err = s.txs.Create(s.T().Context(), repoargs.CreateTransaction{
			UserID:         user.ID,
			Type:           domain.TransactionTypePayment,
			Amount:         decimal.NewFromInt(5),
			BalanceVersion: int64(i + 1),
			Status:         domain.TransactionStatusCompleted,
			ReferenceID:    order.ID,
		})
		s.Require().NoError(err)
	}

	payments, err := s.txs.FindUnsettledPayments(s.T().Context(), 10)
	s.Require().NoError(err)
	s.Require().Len(payments, 2)
	s.Equal(orderIDs[0], payments[0].ReferenceID)

	_, err = s.orders.Transition(s.T().Context(), repoargs.OrderTransition{
		OrderID: orderIDs[0], PaymentStatus: domain.PaymentStatusPaid, TransactionID: payments[0].ID, At: now,
	})
	s.Require().NoError(err)

	payments, err = s.txs.FindUnsettledPayments(s.T().Context(), 10)
	s.Require().NoError(err)
	s.Require().Len(payments, 1)
	s.Equal(orderIDs[1], payments[0].ReferenceID)
}

func (s *StoreTestSuite) TestTransition_RefundCreditMark() {
	user := s.createUser()
	order, err := s.orders.Create(s.T().Context(), repoargs.CreateOrder{
		UserID:      user.ID,
		Items:       []domain.OrderItem{{ProductID: "p1", Quantity: 1, Price: decimal.NewFromInt(5)}},
		TotalAmount: decimal.NewFromInt(5),
	})
	s.Require().NoError(err)

	now := time.Now()
	marked, err := s.orders.Transition(s.T().Context(), repoargs.OrderTransition{
		OrderID: order.ID, RefundCreditSet: true, At: now,
	})
	s.Require().NoError(err)
	s.Require().NotNil(marked.RefundCreditAt)

	stored, err := s.orders.FindByID(s.T().Context(), order.ID)
	s.Require().NoError(err)
	s.Require().NotNil(stored.RefundCreditAt)

	cleared, err := s.orders.Transition(s.T().Context(), repoargs.OrderTransition{
		OrderID: order.ID, RefundCreditClear: true, At: now,
	})
	s.Require().NoError(err)
	s.Nil(cleared.RefundCreditAt)
}

func (s *StoreTestSuite) TestListTransactions_NewestFirst() {
	user := s.createUser()
	for i := range 5 {
		_, err := s.txs.Create(s.T().Context(), repoargs.CreateTransaction{
			UserID:         user.ID,
			Type:           domain.TransactionTypeDeposit,
			Amount:         decimal.NewFromInt(int64(i + 1)),
			BalanceVersion: int64(i + 1),
			Status:         domain.TransactionStatusCompleted,
		})
		s.Require().NoError(err)
	}

	items, total, err := s.txs.List(s.T().Context(), repoargs.TransactionFilter{UserID: user.ID, Limit: 2, Offset: 1})
	s.Require().NoError(err)
	s.Equal(int64(5), total)
	s.Require().Len(items, 2)
	s.Equal("4", items[0].Amount.String())
	s.Equal("3", items[1].Amount.String())

	items, total, err = s.txs.List(s.T().Context(), repoargs.TransactionFilter{
		UserID: user.ID, Type: domain.TransactionTypeRefund,
	})
	s.Require().NoError(err)
	s.Zero(total)
	s.Empty(items)
}

func (s *StoreTestSuite) TestFindLedgerDrift() {
	user := s.createUser()
	_, err := s.users.SwapBalance(s.T().Context(), repoargs.BalanceSwap{
		UserID: user.ID, Expected: decimal.Zero, New: decimal.NewFromInt(10),
	})
	s.Require().NoError(err)

	drift, err := s.txs.FindLedgerDrift(s.T().Context(), 10)
	s.Require().NoError(err)
	s.Require().Len(drift, 1)
	s.Equal(user.ID, drift[0].UserID)
	s.Equal(int64(1), drift[0].BalanceVersion)
	s.Zero(drift[0].RecordedMutations)
}

func (s *StoreTestSuite) TestInTx_RollbackOnError() {
	unitOfWork, err := NewUnitOfWork(s.store)
	s.Require().NoError(err)

	boom := errors.New("boom")
	txErr := unitOfWork.Do(s.T().Context(), func(ctx context.Context, tx uow.TX) error {
		repo, repoErr := uow.GetAs[*UserRepository](tx, uow.RepositoryName(repoargs.UserRepoName))
		s.Require().NoError(repoErr)
		_, createErr := repo.CreateUser(ctx, repoargs.CreateUser{Username: "rolled-back", Password: "x"})
		s.Require().NoError(createErr)
		return boom
	})
	s.Require().ErrorIs(txErr, boom)

	_, err = s.users.FindUserByUsername(s.T().Context(), "rolled-back")
	s.Require().ErrorIs(err, domain.ErrRecordNotFound)
}

func (s *StoreTestSuite) TestInTx_RollbackKeepsOutsideWrites() {
	user := s.createUser()
	unitOfWork, err := NewUnitOfWork(s.store)
	s.Require().NoError(err)

	swapped := make(chan error, 1)
	boom := errors.New("boom")
	txErr := unitOfWork.Do(s.T().Context(), func(ctx context.Context, tx uow.TX) error {
		repo, repoErr := uow.GetAs[*UserRepository](tx, uow.RepositoryName(repoargs.UserRepoName))
		s.Require().NoError(repoErr)
		_, createErr := repo.CreateUser(ctx, repoargs.CreateUser{Username: "rolled-back", Password: "x"})
		s.Require().NoError(createErr)

		// запись вне единицы работы ждет ее завершения и не затирается откатом
		go func() {
			_, swapErr := s.users.SwapBalance(context.Background(), repoargs.BalanceSwap{
				UserID: user.ID, Expected: decimal.Zero, New: decimal.NewFromInt(7),
			})
			swapped <- swapErr
		}()
		return boom
	})
	s.Require().ErrorIs(txErr, boom)
	s.Require().NoError(<-swapped)

	stored, err := s.users.FindByID(s.T().Context(), user.ID)
	s.Require().NoError(err)
	s.Equal("7.00", stored.Balance.StringFixed(2))
	s.Equal(int64(1), stored.BalanceVersion)

	_, err = s.users.FindUserByUsername(s.T().Context(), "rolled-back")
	s.Require().ErrorIs(err, domain.ErrRecordNotFound)
}

func (s *StoreTestSuite) TestInTx_RollbackRemovesOwnRecords() {
	user := s.createUser()
	unitOfWork, err := NewUnitOfWork(s.store)
	s.Require().NoError(err)

	_, err = s.txs.Create(s.T().Context(), repoargs.CreateTransaction{
		UserID: user.ID, Type: domain.TransactionTypeDeposit, Amount: decimal.NewFromInt(1),
		Status: domain.TransactionStatusCompleted,
	})
	s.Require().NoError(err)

	boom := errors.New("boom")
	txErr := unitOfWork.Do(s.T().Context(), func(ctx context.Context, tx uow.TX) error {
		repo, repoErr := uow.GetAs[*TransactionRepository](tx, uow.RepositoryName(repoargs.TransactionRepoName))
		s.Require().NoError(repoErr)
		_, createErr := repo.Create(ctx, repoargs.CreateTransaction{
			UserID: user.ID, Type: domain.TransactionTypeWithdraw, Amount: decimal.NewFromInt(1),
			Status: domain.TransactionStatusCompleted,
		})
		s.Require().NoError(createErr)
		return boom
	})
	s.Require().ErrorIs(txErr, boom)

	items, total, err := s.txs.List(s.T().Context(), repoargs.TransactionFilter{UserID: user.ID})
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Equal(domain.TransactionTypeDeposit, items[0].Type)
}
