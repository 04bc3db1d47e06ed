package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/fsdevblog/groph-shop/internal/repository/repoargs"
	"github.com/fsdevblog/groph-shop/pkg/uow"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	DefaultCheckoutLease = time.Minute
	// settleTimeout ограничивает шаги, которые выполняются после списания без контекста вызывающего.
	settleTimeout = 30 * time.Second
)

type CheckoutService struct {
	userRepo    UserRepository
	orderRepo   OrderRepository
	productRepo ProductRepository
	txRepo      TransactionRepository
	mutator     *BalanceMutator
	recorder    *TransactionRecorder
	adjuster    *StockAdjuster
	lease       time.Duration
	now         func() time.Time
	l           *logrus.Entry
}

func NewCheckoutService(u uow.UOW, lease time.Duration, l *logrus.Logger) (*CheckoutService, error) {
	userRepo, err := uow.GetRepositoryAs[UserRepository](u, uow.RepositoryName(repoargs.UserRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	orderRepo, err := uow.GetRepositoryAs[OrderRepository](u, uow.RepositoryName(repoargs.OrderRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	productRepo, err := uow.GetRepositoryAs[ProductRepository](u, uow.RepositoryName(repoargs.ProductRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	txRepo, err := uow.GetRepositoryAs[TransactionRepository](u, uow.RepositoryName(repoargs.TransactionRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	if lease <= 0 {
		lease = DefaultCheckoutLease
	}
	return &CheckoutService{
		userRepo:    userRepo,
		orderRepo:   orderRepo,
		productRepo: productRepo,
		txRepo:      txRepo,
		mutator:     NewBalanceMutator(userRepo),
		recorder:    NewTransactionRecorder(txRepo),
		adjuster:    NewStockAdjuster(productRepo),
		lease:       lease,
		now:         func() time.Time { return time.Now().UTC() },
		l:           l.WithField("module", "checkout"),
	}, nil
}

type CheckoutResult struct {
	Order       *domain.Order
	Transaction *domain.Transaction
	Balance     decimal.Decimal
}

// checkoutRun состояние одной попытки оплаты.
type checkoutRun struct {
	order     *domain.Order
	user      *domain.User
	attemptID string
	// payment запись журнала об оплате заказа, если она уже существует.
	payment *domain.Transaction
	change  *domain.BalanceChange
}

// Checkout оплачивает заказ с баланса пользователя и подтверждает его.
//
// Алгоритм работы:
//  1. Проверяет предусловия без изменений: заказ pending и не оплачен, баланса хватает, товары активны
//     и их достаточно.
//  2. Захватывает заказ под попытку оплаты. Параллельная попытка получит domain.ErrCheckoutInProgress.
//  3. Списывает сумму заказа с баланса.
//  4. Записывает оплату в журнал. Если запись не удалась, заказ получает payment_status=failed,
//     а списание сохраняется в unrecorded_debits.
//  5. Помечает заказ оплаченным.
//  6. Списывает остатки по всем позициям. Если не удалось, уже списанное возвращается, заказ
//     переходит в failed, оплата остается paid.
//  7. Подтверждает заказ.
//
// Если оплата по заказу уже записана в журнал, а заказ не отмечен оплаченным, шаги 1, 3 и 4
// пропускаются: заказ сразу отмечается оплаченным, а проверка товаров происходит на шаге 6.
//
// Шаги до списания включительно ограничены половиной срока захвата, чтобы захват не истек
// посреди списания. Шаги после списания выполняются на контексте, который не отменяется вместе с ctx.
// Ошибки возвращаются как *domain.CheckoutError.
func (s *CheckoutService) Checkout(ctx context.Context, orderID, userID string) (*CheckoutResult, error) {
	preCtx, cancelPre := context.WithTimeout(ctx, s.lease/2)
	defer cancelPre()

	run, err := s.validate(preCtx, orderID, userID)
	if err != nil {
		return nil, s.fail(orderID, domain.CheckoutStageValidating, domain.CheckoutStateUnchanged, false, err)
	}

	resumed := run.payment != nil
	if err := s.claim(preCtx, run); err != nil {
		if resumed {
			return nil, s.fail(orderID, domain.CheckoutStageValidating, domain.CheckoutStateIncomplete, true, err)
		}
		return nil, s.fail(orderID, domain.CheckoutStageValidating, domain.CheckoutStateUnchanged, false, err)
	}

	if !resumed {
		if err := s.debit(preCtx, run); err != nil {
			s.release(run)
			return nil, s.fail(orderID, domain.CheckoutStageDebiting, domain.CheckoutStateUnchanged, false, err)
		}
	}

	settleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
	defer cancel()
	return s.settle(settleCtx, run)
}

func (s *CheckoutService) settle(ctx context.Context, run *checkoutRun) (*CheckoutResult, error) {
	orderID := run.order.ID

	if run.payment == nil {
		payment, err := s.recordPayment(ctx, run)
		if err != nil {
			return nil, s.fail(orderID, domain.CheckoutStageRecording, domain.CheckoutStatePaymentFailed, true, err)
		}
		run.payment = payment
	}

	if _, err := s.orderRepo.Transition(ctx, repoargs.OrderTransition{
		OrderID:       orderID,
		AttemptID:     run.attemptID,
		PaymentStatus: domain.PaymentStatusPaid,
		TransactionID: run.payment.ID,
		At:            s.now(),
	}); err != nil {
		s.release(run)
		return nil, s.fail(orderID, domain.CheckoutStageMarkingPaid, domain.CheckoutStateIncomplete, true, err)
	}

	if err := s.reserveStock(ctx, run); err != nil {
		return nil, s.fail(orderID, domain.CheckoutStageStockAdjusting, domain.CheckoutStateOrderFailed, true, err)
	}

	confirmed, err := s.orderRepo.Transition(ctx, repoargs.OrderTransition{
		OrderID:        orderID,
		AttemptID:      run.attemptID,
		Status:         domain.OrderStatusConfirmed,
		ReleaseAttempt: true,
		At:             s.now(),
	})
	if err != nil {
		s.release(run)
		return nil, s.fail(orderID, domain.CheckoutStageConfirming, domain.CheckoutStateIncomplete, true, err)
	}

	return &CheckoutResult{
		Order:       confirmed,
		Transaction: run.payment,
		Balance:     run.payment.Balance,
	}, nil
}

// validate проверяет предусловия оплаты, ничего не меняя.
func (s *CheckoutService) validate(ctx context.Context, orderID, userID string) (*checkoutRun, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	if order.UserID != userID {
		return nil, fmt.Errorf("order %s: %w", orderID, domain.ErrRecordNotFound)
	}
	if err := s.payable(order); err != nil {
		return nil, err
	}

	run := &checkoutRun{order: order}

	// оплата уже записана в журнал, но заказ не успели пометить оплаченным: деньги списаны, поэтому
	// баланс и товары не проверяются, заказ доводится до paid
	payment, err := s.txRepo.FindByReference(ctx, userID, orderID, domain.TransactionTypePayment)
	switch {
	case err == nil:
		run.payment = payment
		return run, nil
	case !errors.Is(err, domain.ErrRecordNotFound):
		return nil, err //nolint:wrapcheck
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	run.user = user
	if user.Balance.LessThan(order.TotalAmount) {
		return nil, fmt.Errorf("balance %s, order total %s: %w",
			user.Balance.StringFixed(domain.MoneyPlaces),
			order.TotalAmount.StringFixed(domain.MoneyPlaces),
			domain.ErrInsufficientBalance)
	}

	if err := s.checkProducts(ctx, order); err != nil {
		return nil, err
	}
	return run, nil
}

func (s *CheckoutService) payable(order *domain.Order) error {
	switch {
	case order.PaymentStatus == domain.PaymentStatusPaid:
		return domain.ErrAlreadyPaid
	case order.Status != domain.OrderStatusPending || !order.PaymentStatus.Payable():
		return domain.ErrOrderNotPending
	case hasLiveAttempt(order, s.now().Add(-s.lease)):
		return domain.ErrCheckoutInProgress
	}
	return nil
}

func (s *CheckoutService) checkProducts(ctx context.Context, order *domain.Order) error {
	ids := make([]string, len(order.Items))
	for i, item := range order.Items {
		ids[i] = item.ProductID
	}
	products, err := s.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return err //nolint:wrapcheck
	}
	byID := make(map[string]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	for _, item := range order.Items {
		p, ok := byID[item.ProductID]
		if !ok || p.Status != domain.ProductStatusActive {
			return fmt.Errorf("product %s: %w", item.ProductID, domain.ErrProductUnavailable)
		}
		if p.Stock < item.Quantity {
			return fmt.Errorf("product %s (have %d, want %d): %w",
				p.ID, p.Stock, item.Quantity, domain.ErrInsufficientStock)
		}
	}
	return nil
}

// claim захватывает заказ под попытку оплаты. Проигранный захват классифицируется по перечитанному заказу.
func (s *CheckoutService) claim(ctx context.Context, run *checkoutRun) error {
	at := s.now()
	attemptID := uuid.NewString()
	claimed, err := s.orderRepo.ClaimCheckout(ctx, repoargs.ClaimCheckout{
		OrderID:     run.order.ID,
		AttemptID:   attemptID,
		At:          at,
		StaleBefore: at.Add(-s.lease),
	})
	if err == nil {
		run.order = claimed
		run.attemptID = attemptID
		return nil
	}
	if !errors.Is(err, domain.ErrRecordNotFound) {
		return err //nolint:wrapcheck
	}

	current, findErr := s.orderRepo.FindByID(ctx, run.order.ID)
	if findErr != nil {
		return findErr //nolint:wrapcheck
	}
	if stateErr := s.payable(current); stateErr != nil {
		return stateErr
	}
	return domain.ErrCheckoutInProgress
}

func (s *CheckoutService) debit(ctx context.Context, run *checkoutRun) error {
	change, err := s.mutator.Mutate(ctx, repoargs.BalanceMutation{
		UserID:    run.user.ID,
		Expected:  run.user.Balance,
		Delta:     run.order.TotalAmount,
		Direction: domain.DirectionDebit,
	})
	if err != nil {
		return err
	}
	run.change = change
	return nil
}

// recordPayment записывает оплату в журнал. Если записать не удалось, заказ получает payment_status=failed
// и списание без записи в журнале.
func (s *CheckoutService) recordPayment(ctx context.Context, run *checkoutRun) (*domain.Transaction, error) {
	payment, err := s.recorder.Record(ctx, RecordArgs{
		UserID:      run.user.ID,
		Type:        domain.TransactionTypePayment,
		Amount:      run.order.TotalAmount,
		Change:      run.change,
		Description: "payment for order " + run.order.ID,
		ReferenceID: run.order.ID,
	})
	if err == nil {
		return payment, nil
	}

	at := s.now()
	_, markErr := s.orderRepo.Transition(ctx, repoargs.OrderTransition{
		OrderID:       run.order.ID,
		AttemptID:     run.attemptID,
		PaymentStatus: domain.PaymentStatusFailed,
		UnrecordedDebit: &domain.UnrecordedDebit{
			Amount:         run.order.TotalAmount,
			Balance:        run.change.Balance,
			BalanceVersion: run.change.Version,
			At:             at,
		},
		ReleaseAttempt: true,
		At:             at,
	})
	s.l.WithError(err).WithFields(logrus.Fields{
		"order_id":        run.order.ID,
		"user_id":         run.user.ID,
		"amount":          run.order.TotalAmount.StringFixed(domain.MoneyPlaces),
		"balance_version": run.change.Version,
	}).Error("balance debited but payment is not recorded")
	if markErr != nil {
		s.l.WithError(markErr).WithField("order_id", run.order.ID).
			Error("failed to mark order payment as failed")
		return nil, errors.Join(err, markErr)
	}
	return nil, err
}

// reserveStock списывает остатки по всем позициям заказа. При неудаче возвращает уже списанное
// и переводит заказ в failed.
func (s *CheckoutService) reserveStock(ctx context.Context, run *checkoutRun) error {
	reserved := make([]domain.OrderItem, 0, len(run.order.Items))
	for _, item := range run.order.Items {
		_, err := s.adjuster.Adjust(ctx, repoargs.StockAdjustment{
			ProductID:     item.ProductID,
			Quantity:      item.Quantity,
			Direction:     domain.DirectionDebit,
			RequireActive: true,
		})
		if err == nil {
			reserved = append(reserved, item)
			continue
		}

		s.restock(ctx, run.order.ID, reserved)
		if _, failErr := s.orderRepo.Transition(ctx, repoargs.OrderTransition{
			OrderID:        run.order.ID,
			AttemptID:      run.attemptID,
			Status:         domain.OrderStatusFailed,
			FailureReason:  err.Error(),
			ReleaseAttempt: true,
			At:             s.now(),
		}); failErr != nil {
			s.l.WithError(failErr).WithField("order_id", run.order.ID).Error("failed to mark order as failed")
			return errors.Join(err, failErr)
		}
		s.l.WithError(err).WithField("order_id", run.order.ID).
			Warn("order paid but stock is not available, order failed")
		return err
	}
	return nil
}

func (s *CheckoutService) restock(ctx context.Context, orderID string, items []domain.OrderItem) {
	for _, item := range items {
		if _, err := s.adjuster.Adjust(ctx, repoargs.StockAdjustment{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Direction: domain.DirectionCredit,
		}); err != nil {
			s.l.WithError(err).WithFields(logrus.Fields{
				"order_id":   orderID,
				"product_id": item.ProductID,
				"quantity":   item.Quantity,
			}).Error("failed to restock product")
		}
	}
}

// release снимает захват заказа. Ошибка только логируется: захват все равно истечет.
func (s *CheckoutService) release(run *checkoutRun) {
	ctx, cancel := context.WithTimeout(context.Background(), settleTimeout)
	defer cancel()
	if _, err := s.orderRepo.Transition(ctx, repoargs.OrderTransition{
		OrderID:        run.order.ID,
		AttemptID:      run.attemptID,
		ReleaseAttempt: true,
		At:             s.now(),
	}); err != nil {
		s.l.WithError(err).WithField("order_id", run.order.ID).Warn("failed to release checkout claim")
	}
}

func (s *CheckoutService) fail(
	orderID string,
	stage domain.CheckoutStage,
	state domain.CheckoutState,
	moneyMoved bool,
	err error,
) error {
	return &domain.CheckoutError{
		OrderID:    orderID,
		Stage:      stage,
		State:      state,
		MoneyMoved: moneyMoved,
		Err:        err,
	}
}
