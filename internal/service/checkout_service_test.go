package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/fsdevblog/groph-shop/internal/repository/repoargs"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
)

type CheckoutServiceTestSuite struct {
	suite.Suite
	m           *repoMocks
	service     *CheckoutService
	order       *domain.Order
	user        *domain.User
	transitions []repoargs.OrderTransition
}

func TestCheckoutServiceSuite(t *testing.T) {
	suite.Run(t, new(CheckoutServiceTestSuite))
}

func (s *CheckoutServiceTestSuite) SetupTest() {
	s.m = newRepoMocks(s.T())
	var err error
	s.service, err = NewCheckoutService(s.m.uow, time.Minute, discardLogger())
	s.Require().NoError(err)
	s.service.now = func() time.Time { return fixedNow }

	s.user = &domain.User{ID: "u1", Balance: money("100.00"), BalanceVersion: 1}
	s.order = &domain.Order{
		ID:     "o1",
		UserID: s.user.ID,
		Items: []domain.OrderItem{
			{ProductID: "p1", Quantity: 2, Price: money("10.00")},
			{ProductID: "p2", Quantity: 1, Price: money("20.00")},
		},
		TotalAmount:   money("40.00"),
		Status:        domain.OrderStatusPending,
		PaymentStatus: domain.PaymentStatusPending,
	}
	s.transitions = nil
}

func (s *CheckoutServiceTestSuite) TearDownTest() {
	s.m.ctrl.Finish()
}

// expectPreconditions настраивает чтения, которые выполняются до захвата заказа.
func (s *CheckoutServiceTestSuite) expectPreconditions() {
	s.m.orders.EXPECT().FindByID(gomock.Any(), s.order.ID).Return(s.order, nil)
	s.m.txs.EXPECT().FindByReference(gomock.Any(), s.user.ID, s.order.ID, domain.TransactionTypePayment).
		Return(nil, domain.ErrRecordNotFound)
	s.m.users.EXPECT().FindByID(gomock.Any(), s.user.ID).Return(s.user, nil)
	s.m.products.EXPECT().FindByIDs(gomock.Any(), []string{"p1", "p2"}).Return([]domain.Product{
		{ID: "p1", Stock: 5, Status: domain.ProductStatusActive},
		{ID: "p2", Stock: 1, Status: domain.ProductStatusActive},
	}, nil)
}

func (s *CheckoutServiceTestSuite) expectClaimAndDebit() {
	s.m.orders.EXPECT().ClaimCheckout(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, claim repoargs.ClaimCheckout) (*domain.Order, error) {
			s.Equal(s.order.ID, claim.OrderID)
			s.NotEmpty(claim.AttemptID)
			s.Equal(fixedNow.Add(-time.Minute), claim.StaleBefore)
			claimed := *s.order
			claimed.PaymentAttemptID = claim.AttemptID
			return &claimed, nil
		})
	s.m.users.EXPECT().SwapBalance(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, swap repoargs.BalanceSwap) (*domain.BalanceChange, error) {
			s.Equal("100.00", swap.Expected.StringFixed(2))
			s.Equal("60.00", swap.New.StringFixed(2))
			return &domain.BalanceChange{UserID: s.user.ID, Balance: swap.New, Version: 2}, nil
		})
}

// recordTransitions сохраняет все обновления заказа и возвращает заказ с примененным статусом.
func (s *CheckoutServiceTestSuite) recordTransitions(times int) {
	s.m.orders.EXPECT().Transition(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, tr repoargs.OrderTransition) (*domain.Order, error) {
			s.transitions = append(s.transitions, tr)
			o := *s.order
			if tr.Status != "" {
				o.Status = tr.Status
			}
			if tr.PaymentStatus != "" {
				o.PaymentStatus = tr.PaymentStatus
			}
			return &o, nil
		}).Times(times)
}

func (s *CheckoutServiceTestSuite) expectStock(productID string, err error) {
	s.m.products.EXPECT().AdjustStock(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, adj repoargs.StockAdjustment) (*domain.Product, error) {
			s.Equal(productID, adj.ProductID)
			s.Equal(domain.DirectionDebit, adj.Direction)
			s.True(adj.RequireActive)
			if err != nil {
				return nil, err
			}
			return &domain.Product{ID: productID}, nil
		})
}

func (s *CheckoutServiceTestSuite) TestCheckout_Success() {
	s.expectPreconditions()
	s.expectClaimAndDebit()
	s.m.txs.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, args repoargs.CreateTransaction) (*domain.Transaction, error) {
			s.Equal(domain.TransactionTypePayment, args.Type)
			s.Equal(s.order.ID, args.ReferenceID)
			s.Equal("40.00", args.Amount.StringFixed(2))
			s.Equal("60.00", args.Balance.StringFixed(2))
			return &domain.Transaction{ID: "t1", Amount: args.Amount, Balance: args.Balance}, nil
		})
	s.recordTransitions(2)
	s.expectStock("p1", nil)
	s.expectStock("p2", nil)

	res, err := s.service.Checkout(s.T().Context(), s.order.ID, s.user.ID)
	s.Require().NoError(err)
	s.Equal("60.00", res.Balance.StringFixed(2))
	s.Equal("t1", res.Transaction.ID)
	s.Equal(domain.OrderStatusConfirmed, res.Order.Status)

	s.Require().Len(s.transitions, 2)
	paid, confirmed := s.transitions[0], s.transitions[1]
	s.Equal(domain.PaymentStatusPaid, paid.PaymentStatus)
	s.Equal("t1", paid.TransactionID)
	s.NotEmpty(paid.AttemptID)
	s.Equal(domain.OrderStatusConfirmed, confirmed.Status)
	s.Equal(paid.AttemptID, confirmed.AttemptID)
	s.True(confirmed.ReleaseAttempt)
}

func (s *CheckoutServiceTestSuite) TestCheckout_RecordFailureMarksPaymentFailed() {
	s.expectPreconditions()
	s.expectClaimAndDebit()
	s.m.txs.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil, domain.ErrPersistence)
	s.recordTransitions(1)

	_, err := s.service.Checkout(s.T().Context(), s.order.ID, s.user.ID)
	s.Require().ErrorIs(err, domain.ErrPersistence)

	var chErr *domain.CheckoutError
	s.Require().ErrorAs(err, &chErr)
	s.Equal(domain.CheckoutStageRecording, chErr.Stage)
	s.Equal(domain.CheckoutStatePaymentFailed, chErr.State)
	s.True(chErr.MoneyMoved)

	s.Require().Len(s.transitions, 1)
	tr := s.transitions[0]
	s.Equal(domain.PaymentStatusFailed, tr.PaymentStatus)
	s.Empty(tr.Status)
	s.True(tr.ReleaseAttempt)
	s.Require().NotNil(tr.UnrecordedDebit)
	s.Equal("40.00", tr.UnrecordedDebit.Amount.StringFixed(2))
	s.Equal("60.00", tr.UnrecordedDebit.Balance.StringFixed(2))
	s.Equal(int64(2), tr.UnrecordedDebit.BalanceVersion)
}

func (s *CheckoutServiceTestSuite) TestCheckout_StockFailureRestocksAndFailsOrder() {
	s.expectPreconditions()
	s.expectClaimAndDebit()
	s.m.txs.EXPECT().Create(gomock.Any(), gomock.Any()).
		Return(&domain.Transaction{ID: "t1", Balance: money("60.00")}, nil)
	s.recordTransitions(2)
	s.expectStock("p1", nil)
	s.expectStock("p2", domain.ErrRecordNotFound)
	// классификация неудачного списания
	s.m.products.EXPECT().FindByID(gomock.Any(), "p2").
		Return(&domain.Product{ID: "p2", Stock: 0, Status: domain.ProductStatusActive}, nil)
	// возврат уже списанного остатка p1
	s.m.products.EXPECT().AdjustStock(gomock.Any(), repoargs.StockAdjustment{
		ProductID: "p1", Quantity: 2, Direction: domain.DirectionCredit,
	}).Return(&domain.Product{ID: "p1", Stock: 5}, nil)

	_, err := s.service.Checkout(s.T().Context(), s.order.ID, s.user.ID)
	s.Require().ErrorIs(err, domain.ErrInsufficientStock)

	var chErr *domain.CheckoutError
	s.Require().ErrorAs(err, &chErr)
	s.Equal(domain.CheckoutStageStockAdjusting, chErr.Stage)
	s.Equal(domain.CheckoutStateOrderFailed, chErr.State)
	s.True(chErr.MoneyMoved)

	s.Require().Len(s.transitions, 2)
	s.Equal(domain.PaymentStatusPaid, s.transitions[0].PaymentStatus)
	failed := s.transitions[1]
	s.Equal(domain.OrderStatusFailed, failed.Status)
	s.Empty(failed.PaymentStatus)
	s.NotEmpty(failed.FailureReason)
	s.True(failed.ReleaseAttempt)
}

func (s *CheckoutServiceTestSuite) TestCheckout_DebitConflictReleasesClaim() {
	s.expectPreconditions()
	s.m.orders.EXPECT().ClaimCheckout(gomock.Any(), gomock.Any()).Return(s.order, nil)
	s.m.users.EXPECT().SwapBalance(gomock.Any(), gomock.Any()).Return(nil, domain.ErrConcurrentModification)
	s.recordTransitions(1)

	_, err := s.service.Checkout(s.T().Context(), s.order.ID, s.user.ID)
	s.Require().ErrorIs(err, domain.ErrConcurrentModification)

	var chErr *domain.CheckoutError
	s.Require().ErrorAs(err, &chErr)
	s.Equal(domain.CheckoutStageDebiting, chErr.Stage)
	s.Equal(domain.CheckoutStateUnchanged, chErr.State)
	s.False(chErr.MoneyMoved)

	s.Require().Len(s.transitions, 1)
	s.True(s.transitions[0].ReleaseAttempt)
	s.Empty(s.transitions[0].PaymentStatus)
}

func (s *CheckoutServiceTestSuite) TestCheckout_LostClaimIsInProgress() {
	s.expectPreconditions()
	s.m.orders.EXPECT().ClaimCheckout(gomock.Any(), gomock.Any()).Return(nil, domain.ErrRecordNotFound)
	attemptAt := fixedNow.Add(-time.Second)
	inProgress := *s.order
	inProgress.PaymentAttemptID = "other"
	inProgress.PaymentAttemptAt = &attemptAt
	s.m.orders.EXPECT().FindByID(gomock.Any(), s.order.ID).Return(&inProgress, nil)

	_, err := s.service.Checkout(s.T().Context(), s.order.ID, s.user.ID)
	s.Require().ErrorIs(err, domain.ErrCheckoutInProgress)
	s.Require().ErrorIs(err, domain.ErrOrderState)
}

func (s *CheckoutServiceTestSuite) TestCheckout_ResumesRecordedPayment() {
	s.m.orders.EXPECT().FindByID(gomock.Any(), s.order.ID).Return(s.order, nil)
	s.m.txs.EXPECT().FindByReference(gomock.Any(), s.user.ID, s.order.ID, domain.TransactionTypePayment).
		Return(&domain.Transaction{ID: "t0", Balance: money("60.00")}, nil)
	// деньги уже списаны: баланс и каталог не читаются, повторного списания нет
	s.m.users.EXPECT().FindByID(gomock.Any(), gomock.Any()).Times(0)
	s.m.users.EXPECT().SwapBalance(gomock.Any(), gomock.Any()).Times(0)
	s.m.products.EXPECT().FindByIDs(gomock.Any(), gomock.Any()).Times(0)
	s.m.orders.EXPECT().ClaimCheckout(gomock.Any(), gomock.Any()).Return(s.order, nil)
	s.recordTransitions(2)
	s.expectStock("p1", nil)
	s.expectStock("p2", nil)

	res, err := s.service.Checkout(s.T().Context(), s.order.ID, s.user.ID)
	s.Require().NoError(err)
	s.Equal("t0", res.Transaction.ID)
	s.Equal("t0", s.transitions[0].TransactionID)
	s.Equal(domain.PaymentStatusPaid, s.transitions[0].PaymentStatus)
}

func (s *CheckoutServiceTestSuite) TestCheckout_ResumedPaymentWithUnavailableProductFailsOrder() {
	s.m.orders.EXPECT().FindByID(gomock.Any(), s.order.ID).Return(s.order, nil)
	s.m.txs.EXPECT().FindByReference(gomock.Any(), s.user.ID, s.order.ID, domain.TransactionTypePayment).
		Return(&domain.Transaction{ID: "t0", Balance: money("60.00")}, nil)
	s.m.orders.EXPECT().ClaimCheckout(gomock.Any(), gomock.Any()).Return(s.order, nil)
	s.recordTransitions(2)
	s.expectStock("p1", domain.ErrProductUnavailable)

	_, err := s.service.Checkout(s.T().Context(), s.order.ID, s.user.ID)
	s.Require().ErrorIs(err, domain.ErrProductUnavailable)
	var chErr *domain.CheckoutError
	s.Require().ErrorAs(err, &chErr)
	s.Equal(domain.CheckoutStageStockAdjusting, chErr.Stage)
	s.Equal(domain.CheckoutStateOrderFailed, chErr.State)
	s.True(chErr.MoneyMoved)

	s.Require().Len(s.transitions, 2)
	s.Equal(domain.PaymentStatusPaid, s.transitions[0].PaymentStatus)
	s.Equal(domain.OrderStatusFailed, s.transitions[1].Status)
}

func (s *CheckoutServiceTestSuite) TestCheckout_DebitBoundedBeforeLeaseExpires() {
	s.expectPreconditions()
	s.m.orders.EXPECT().ClaimCheckout(gomock.Any(), gomock.Any()).Return(s.order, nil)
	s.m.users.EXPECT().SwapBalance(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ repoargs.BalanceSwap) (*domain.BalanceChange, error) {
			deadline, ok := ctx.Deadline()
			s.Require().True(ok)
			s.LessOrEqual(time.Until(deadline), 30*time.Second)
			return nil, domain.ErrConcurrentModification
		})
	s.recordTransitions(1)

	_, err := s.service.Checkout(context.Background(), s.order.ID, s.user.ID)
	s.Require().Error(err)
	var chErr *domain.CheckoutError
	s.Require().ErrorAs(err, &chErr)
	s.Equal(domain.CheckoutStageDebiting, chErr.Stage)
	s.False(chErr.MoneyMoved)
}

func (s *CheckoutServiceTestSuite) TestCheckout_Preconditions() {
	paid := *s.order
	paid.PaymentStatus = domain.PaymentStatusPaid
	paid.Status = domain.OrderStatusConfirmed
	cancelled := *s.order
	cancelled.Status = domain.OrderStatusCancelled
	foreign := *s.order
	foreign.UserID = "u2"

	cases := []struct {
		name    string
		order   *domain.Order
		wantErr error
	}{
		{name: "already paid", order: &paid, wantErr: domain.ErrAlreadyPaid},
		{name: "not pending", order: &cancelled, wantErr: domain.ErrOrderNotPending},
		{name: "foreign order", order: &foreign, wantErr: domain.ErrRecordNotFound},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.m.orders.EXPECT().FindByID(gomock.Any(), s.order.ID).Return(tc.order, nil)

			_, err := s.service.Checkout(s.T().Context(), s.order.ID, s.user.ID)
			s.Require().ErrorIs(err, tc.wantErr)
			var chErr *domain.CheckoutError
			s.Require().ErrorAs(err, &chErr)
			s.Equal(domain.CheckoutStageValidating, chErr.Stage)
			s.False(chErr.MoneyMoved)
		})
	}
}

func TestCheckout_Scenarios(t *testing.T) {
	t.Run("balance 100, total 40", func(t *testing.T) {
		env := newMemEnv(t)
		user := env.user(t, "100.00")
		product := env.product(t, "20.00", 5)
		order := env.order(t, user.ID, OrderItemArgs{ProductID: product.ID, Quantity: 2})
		require.Equal(t, "40.00", order.TotalAmount.StringFixed(2))

		res, err := env.services.CheckoutService.Checkout(t.Context(), order.ID, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "60.00", res.Balance.StringFixed(2))
		assert.Equal(t, domain.OrderStatusConfirmed, res.Order.Status)
		assert.Equal(t, domain.PaymentStatusPaid, res.Order.PaymentStatus)
		assert.Equal(t, res.Transaction.ID, res.Order.TransactionID)
		assert.NotNil(t, res.Order.PaidAt)
		assert.NotNil(t, res.Order.ConfirmedAt)
		assert.Empty(t, res.Order.PaymentAttemptID)

		payments, total, err := env.services.LedgerService.ListTransactions(t.Context(), ListTransactionsArgs{
			UserID: user.ID, Type: domain.TransactionTypePayment,
		})
		require.NoError(t, err)
		require.Equal(t, int64(1), total)
		assert.Equal(t, "40.00", payments[0].Amount.StringFixed(2))
		assert.Equal(t, "60.00", payments[0].Balance.StringFixed(2))
		assert.Equal(t, order.ID, payments[0].ReferenceID)

		stocked, err := env.services.ProductService.Get(t.Context(), product.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(3), stocked.Stock)

		// повторная оплата отклоняется и не списывает деньги
		_, err = env.services.CheckoutService.Checkout(t.Context(), order.ID, user.ID)
		require.ErrorIs(t, err, domain.ErrAlreadyPaid)
		require.ErrorIs(t, err, domain.ErrOrderState)
		current, err := env.services.LedgerService.GetBalance(t.Context(), user.ID)
		require.NoError(t, err)
		assert.Equal(t, "60.00", current.Balance.StringFixed(2))
	})

	t.Run("balance 10, total 40", func(t *testing.T) {
		env := newMemEnv(t)
		user := env.user(t, "10.00")
		product := env.product(t, "40.00", 1)
		order := env.order(t, user.ID, OrderItemArgs{ProductID: product.ID, Quantity: 1})

		_, err := env.services.CheckoutService.Checkout(t.Context(), order.ID, user.ID)
		require.ErrorIs(t, err, domain.ErrInsufficientBalance)
		var chErr *domain.CheckoutError
		require.ErrorAs(t, err, &chErr)
		assert.False(t, chErr.MoneyMoved)

		current, err := env.services.LedgerService.GetBalance(t.Context(), user.ID)
		require.NoError(t, err)
		assert.Equal(t, "10.00", current.Balance.StringFixed(2))
		_, total, err := env.services.LedgerService.ListTransactions(t.Context(), ListTransactionsArgs{
			UserID: user.ID, Type: domain.TransactionTypePayment,
		})
		require.NoError(t, err)
		assert.Zero(t, total)

		stored, err := env.services.OrderService.Get(t.Context(), order.ID, user.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusPending, stored.Status)
		assert.Equal(t, domain.PaymentStatusPending, stored.PaymentStatus)
		assert.Empty(t, stored.PaymentAttemptID)
	})

	t.Run("deactivated product", func(t *testing.T) {
		env := newMemEnv(t)
		user := env.user(t, "50.00")
		product := env.product(t, "5.00", 3)
		order := env.order(t, user.ID, OrderItemArgs{ProductID: product.ID, Quantity: 1})
		_, err := env.services.ProductService.UpdateStatus(t.Context(), product.ID, domain.ProductStatusInactive)
		require.NoError(t, err)

		_, err = env.services.CheckoutService.Checkout(t.Context(), order.ID, user.ID)
		require.ErrorIs(t, err, domain.ErrProductUnavailable)
	})
}

func TestCheckout_ConcurrentAttemptsDebitOnce(t *testing.T) {
	env := newMemEnv(t)
	user := env.user(t, "100.00")
	product := env.product(t, "30.00", 10)
	order := env.order(t, user.ID, OrderItemArgs{ProductID: product.ID, Quantity: 1})

	var succeeded atomic.Int32
	g, ctx := errgroup.WithContext(t.Context())
	for range 8 {
		g.Go(func() error {
			_, err := env.services.CheckoutService.Checkout(ctx, order.ID, user.ID)
			switch {
			case err == nil:
				succeeded.Inc()
			case errors.Is(err, domain.ErrOrderState), errors.Is(err, domain.ErrConcurrentModification):
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, int32(1), succeeded.Load())

	current, err := env.services.LedgerService.GetBalance(t.Context(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "70.00", current.Balance.StringFixed(2))

	_, total, err := env.services.LedgerService.ListTransactions(t.Context(), ListTransactionsArgs{
		UserID: user.ID, Type: domain.TransactionTypePayment,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestCheckout_RecordedPaymentSettlesAfterProductDisappears(t *testing.T) {
	env := newMemEnv(t)
	user := env.user(t, "100.00")
	product := env.product(t, "40.00", 1)
	order := env.order(t, user.ID, OrderItemArgs{ProductID: product.ID, Quantity: 1})

	checkout := env.services.CheckoutService
	prevOrders := checkout.orderRepo
	checkout.orderRepo = &failingPaidMark{OrderRepository: prevOrders}
	_, err := checkout.Checkout(t.Context(), order.ID, user.ID)
	checkout.orderRepo = prevOrders

	require.ErrorIs(t, err, domain.ErrPersistence)
	var chErr *domain.CheckoutError
	require.ErrorAs(t, err, &chErr)
	assert.Equal(t, domain.CheckoutStageMarkingPaid, chErr.Stage)
	assert.Equal(t, domain.CheckoutStateIncomplete, chErr.State)
	assert.True(t, chErr.MoneyMoved)

	// оплата записана: отмена заказа вернула бы заказ без денег
	_, err = env.services.OrderService.Cancel(t.Context(), order.ID, user.ID)
	require.ErrorIs(t, err, domain.ErrAlreadyPaid)

	_, err = env.services.ProductService.UpdateStatus(t.Context(), product.ID, domain.ProductStatusInactive)
	require.NoError(t, err)

	report, err := env.services.ReconciliationService.Report(t.Context(), 10)
	require.NoError(t, err)
	require.Len(t, report.UnsettledPayments, 1)
	assert.Equal(t, order.ID, report.UnsettledPayments[0].ReferenceID)
	assert.False(t, report.Empty())

	_, err = checkout.Checkout(t.Context(), order.ID, user.ID)
	require.ErrorIs(t, err, domain.ErrProductUnavailable)
	require.ErrorAs(t, err, &chErr)
	assert.Equal(t, domain.CheckoutStageStockAdjusting, chErr.Stage)
	assert.Equal(t, domain.CheckoutStateOrderFailed, chErr.State)
	assert.True(t, chErr.MoneyMoved)

	stored, err := env.services.OrderService.Get(t.Context(), order.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusFailed, stored.Status)
	assert.Equal(t, domain.PaymentStatusPaid, stored.PaymentStatus)

	balance, err := env.services.LedgerService.GetBalance(t.Context(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "60.00", balance.Balance.StringFixed(2))

	report, err = env.services.ReconciliationService.Report(t.Context(), 10)
	require.NoError(t, err)
	assert.Empty(t, report.UnsettledPayments)
	require.Len(t, report.PendingRefunds, 1)
	assert.Equal(t, order.ID, report.PendingRefunds[0].ID)
	assert.Empty(t, report.LedgerDrift)
}

// failingPaidMark один раз отказывает в отметке заказа оплаченным.
type failingPaidMark struct {
	OrderRepository
	failed atomic.Bool
}

func (f *failingPaidMark) Transition(ctx context.Context, tr repoargs.OrderTransition) (*domain.Order, error) {
	if tr.PaymentStatus == domain.PaymentStatusPaid && f.failed.CompareAndSwap(false, true) {
		return nil, domain.ErrPersistence
	}
	return f.OrderRepository.Transition(ctx, tr) //nolint:wrapcheck
}
