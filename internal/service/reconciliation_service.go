package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/fsdevblog/groph-shop/internal/repository/repoargs"
	"github.com/fsdevblog/groph-shop/pkg/uow"
	"github.com/sirupsen/logrus"
)

const (
	refundCreditAttempts = 5
	refundRetryDelay     = 50 * time.Millisecond
	// refundUnrecordedNote дописывается к причине сбоя заказа, если возврат зачислен без записи в журнале.
	refundUnrecordedNote = "refund credited without ledger record"
	// refundUncertainNote зачисление начиналось раньше, но его исход неизвестен. Повторно не зачисляется.
	refundUncertainNote = "refund credit outcome unknown, check ledger"
)

// errCreditUncertain зачисление могло пройти: хранилище не подтвердило ни успех, ни отказ.
var errCreditUncertain = errors.New("credit outcome unknown")

type ReconciliationService struct {
	userRepo  UserRepository
	orderRepo OrderRepository
	txRepo    TransactionRepository
	mutator   *BalanceMutator
	recorder  *TransactionRecorder
	lease     time.Duration
	now       func() time.Time
	l         *logrus.Entry
}

func NewReconciliationService(u uow.UOW, lease time.Duration, l *logrus.Logger) (*ReconciliationService, error) {
	userRepo, err := uow.GetRepositoryAs[UserRepository](u, uow.RepositoryName(repoargs.UserRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	orderRepo, err := uow.GetRepositoryAs[OrderRepository](u, uow.RepositoryName(repoargs.OrderRepoName))
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
	return &ReconciliationService{
		userRepo:  userRepo,
		orderRepo: orderRepo,
		txRepo:    txRepo,
		mutator:   NewBalanceMutator(userRepo),
		recorder:  NewTransactionRecorder(txRepo),
		lease:     lease,
		now:       func() time.Time { return time.Now().UTC() },
		l:         l.WithField("module", "reconciliation"),
	}, nil
}

// ReconciliationReport расхождения между балансами, журналом и заказами.
type ReconciliationReport struct {
	GeneratedAt time.Time
	// LedgerDrift пользователи, у которых изменений баланса больше или меньше, чем записей журнала.
	LedgerDrift []domain.LedgerDrift
	// UnrecordedDebits заказы со списаниями, которые не попали в журнал.
	UnrecordedDebits []domain.Order
	// PendingRefunds оплаченные заказы в failed, деньги по которым еще не вернули.
	PendingRefunds []domain.Order
	// StalledPayments оплаченные заказы, которые так и остались в pending.
	StalledPayments []domain.Order
	// UnsettledPayments записи payment, заказ которых так и не отмечен оплаченным.
	UnsettledPayments []domain.Transaction
	// UnconfirmedRefunds возвращенные заказы без записи refund в журнале.
	UnconfirmedRefunds []domain.Order
}

func (r *ReconciliationReport) Empty() bool {
	return len(r.LedgerDrift) == 0 && len(r.UnrecordedDebits) == 0 &&
		len(r.PendingRefunds) == 0 && len(r.StalledPayments) == 0 &&
		len(r.UnsettledPayments) == 0 && len(r.UnconfirmedRefunds) == 0
}

// Report собирает отчет о расхождениях. limit ограничивает каждый раздел отчета.
func (s *ReconciliationService) Report(ctx context.Context, limit uint) (*ReconciliationReport, error) {
	drift, err := s.txRepo.FindLedgerDrift(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("reconciliation report: %w", err)
	}
	unrecorded, _, err := s.orderRepo.List(ctx, repoargs.OrderFilter{WithUnrecordedDebits: true, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("reconciliation report: %w", err)
	}
	refunds, err := s.RefundCandidates(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("reconciliation report: %w", err)
	}
	stalled, _, err := s.orderRepo.List(ctx, repoargs.OrderFilter{
		Status:        domain.OrderStatusPending,
		PaymentStatus: domain.PaymentStatusPaid,
		SortOrder:     repoargs.SortAsc,
		Limit:         limit,
	})
	if err != nil {
		return nil, fmt.Errorf("reconciliation report: %w", err)
	}
	unsettled, err := s.txRepo.FindUnsettledPayments(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("reconciliation report: %w", err)
	}
	unconfirmed, _, err := s.orderRepo.List(ctx, repoargs.OrderFilter{
		Status:              domain.OrderStatusRefunded,
		WithoutRefundRecord: true,
		SortOrder:           repoargs.SortAsc,
		Limit:               limit,
	})
	if err != nil {
		return nil, fmt.Errorf("reconciliation report: %w", err)
	}

	return &ReconciliationReport{
		GeneratedAt:        s.now(),
		LedgerDrift:        drift,
		UnrecordedDebits:   unrecorded,
		PendingRefunds:     refunds,
		StalledPayments:    stalled,
		UnsettledPayments:  unsettled,
		UnconfirmedRefunds: unconfirmed,
	}, nil
}

// RefundCandidates возвращает оплаченные заказы в статусе failed, старые первыми.
func (s *ReconciliationService) RefundCandidates(ctx context.Context, limit uint) ([]domain.Order, error) {
	orders, _, err := s.orderRepo.List(ctx, repoargs.OrderFilter{
		Status:        domain.OrderStatusFailed,
		PaymentStatus: domain.PaymentStatusPaid,
		SortOrder:     repoargs.SortAsc,
		Limit:         limit,
	})
	if err != nil {
		return nil, fmt.Errorf("listing refund candidates: %w", err)
	}
	return orders, nil
}

// Refund возвращает пользователю сумму оплаченного заказа, который не удалось выполнить.
//
// Алгоритм работы:
//  1. Захватывает заказ под возврат. Параллельный возврат получит domain.ErrRefundInProgress.
//  2. Если запись refund по заказу уже есть, зачисление пропускается.
//  3. Ставит на заказ отметку refund_credit_at. Если отметка уже стоит, а записи refund нет, зачисление
//     пропускается: прошлая попытка могла зачислить деньги.
//  4. Зачисляет сумму заказа, перечитывая баланс при потере блокировки (до refundCreditAttempts раз).
//     Если зачисление точно не прошло, отметка снимается.
//  5. Записывает refund в журнал и переводит заказ в refunded.
//
// Если запись refund не сделана, заказ все равно переводится в refunded, чтобы деньги не вернули дважды.
// Такие заказы попадают в отчет в UnconfirmedRefunds.
func (s *ReconciliationService) Refund(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("refunding order: %w", err)
	}
	if order.Status == domain.OrderStatusRefunded {
		return order, nil
	}
	if order.Status != domain.OrderStatusFailed || order.PaymentStatus != domain.PaymentStatusPaid {
		return nil, fmt.Errorf("refunding order %s (%s/%s): %w",
			orderID, order.Status, order.PaymentStatus, domain.ErrInvalidTransition)
	}

	at := s.now()
	order, err = s.orderRepo.ClaimRefund(ctx, repoargs.ClaimRefund{
		OrderID:     orderID,
		At:          at,
		StaleBefore: at.Add(-s.lease),
	})
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return nil, fmt.Errorf("refunding order %s: %w", orderID, domain.ErrRefundInProgress)
		}
		return nil, fmt.Errorf("refunding order %s: %w", orderID, err)
	}

	refund, err := s.txRepo.FindByReference(ctx, order.UserID, order.ID, domain.TransactionTypeRefund)
	if err != nil && !errors.Is(err, domain.ErrRecordNotFound) {
		return nil, fmt.Errorf("refunding order %s: %w", orderID, err)
	}
	note := refundUnrecordedNote
	if refund == nil {
		if order.RefundCreditAt != nil {
			s.l.WithFields(logrus.Fields{
				"order_id":         order.ID,
				"user_id":          order.UserID,
				"refund_credit_at": order.RefundCreditAt,
			}).Error("refund credit was started earlier and is not recorded, credit skipped")
			refund = &domain.Transaction{}
			note = refundUncertainNote
		} else {
			refund, err = s.creditOnce(ctx, order)
			if err != nil {
				return nil, fmt.Errorf("refunding order %s: %w", orderID, err)
			}
		}
	}

	transition := repoargs.OrderTransition{
		OrderID:       order.ID,
		FromStatus:    []domain.OrderStatus{domain.OrderStatusFailed},
		FromPayment:   []domain.PaymentStatus{domain.PaymentStatusPaid},
		Status:        domain.OrderStatusRefunded,
		PaymentStatus: domain.PaymentStatusRefunded,
		At:            s.now(),
	}
	if refund.ID != "" {
		transition.RefundTransactionID = refund.ID
	} else {
		transition.FailureReason = joinReason(order.FailureReason, note)
	}
	refunded, err := s.orderRepo.Transition(ctx, transition)
	if err != nil {
		return nil, fmt.Errorf("refunding order %s: %w", orderID, err)
	}
	s.l.WithFields(logrus.Fields{
		"order_id": order.ID,
		"user_id":  order.UserID,
		"amount":   order.TotalAmount.StringFixed(domain.MoneyPlaces),
	}).Info("order refunded")
	return refunded, nil
}

// creditOnce ставит отметку о зачислении и зачисляет возврат. Отметка снимается, только если
// зачисление точно не прошло.
func (s *ReconciliationService) creditOnce(ctx context.Context, order *domain.Order) (*domain.Transaction, error) {
	if _, err := s.orderRepo.Transition(ctx, repoargs.OrderTransition{
		OrderID:         order.ID,
		FromStatus:      []domain.OrderStatus{domain.OrderStatusFailed},
		FromPayment:     []domain.PaymentStatus{domain.PaymentStatusPaid},
		RefundCreditSet: true,
		At:              s.now(),
	}); err != nil {
		return nil, err //nolint:wrapcheck
	}

	refund, err := s.creditAndRecord(ctx, order)
	if err == nil {
		return refund, nil
	}
	if errors.Is(err, errCreditUncertain) {
		s.l.WithError(err).WithField("order_id", order.ID).Error("refund credit outcome unknown")
		return nil, err
	}

	clearCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
	defer cancel()
	if _, clearErr := s.orderRepo.Transition(clearCtx, repoargs.OrderTransition{
		OrderID:           order.ID,
		RefundCreditClear: true,
		At:                s.now(),
	}); clearErr != nil {
		s.l.WithError(clearErr).WithField("order_id", order.ID).Error("failed to clear refund credit mark")
		return nil, errors.Join(err, clearErr)
	}
	return nil, err
}

// creditAndRecord зачисляет сумму заказа и записывает refund. Если зачисление прошло, а запись нет,
// возвращает пустую запись без ошибки.
func (s *ReconciliationService) creditAndRecord(ctx context.Context, order *domain.Order) (*domain.Transaction, error) {
	change, err := s.credit(ctx, order)
	if err != nil {
		return nil, err
	}

	refund, err := s.recorder.Record(ctx, RecordArgs{
		UserID:      order.UserID,
		Type:        domain.TransactionTypeRefund,
		Amount:      order.TotalAmount,
		Change:      change,
		Description: "refund for order " + order.ID,
		ReferenceID: order.ID,
	})
	if err != nil {
		s.l.WithError(err).WithFields(logrus.Fields{
			"order_id":        order.ID,
			"user_id":         order.UserID,
			"balance_version": change.Version,
		}).Error("balance credited but refund is not recorded")
		return &domain.Transaction{}, nil
	}
	return refund, nil
}

// credit зачисляет сумму заказа. Здесь вызывающий - сам сервис, поэтому потеря блокировки повторяется
// с перечитыванием баланса.
func (s *ReconciliationService) credit(ctx context.Context, order *domain.Order) (*domain.BalanceChange, error) {
	var lastErr error
	for attempt := range refundCreditAttempts {
		if attempt > 0 {
			delay := backoff(refundRetryDelay, attempt, 0.5)
			select {
			case <-ctx.Done():
				return nil, errors.Join(lastErr, ctx.Err())
			case <-time.After(delay):
			}
		}

		user, err := s.userRepo.FindByID(ctx, order.UserID)
		if err != nil {
			return nil, err //nolint:wrapcheck
		}
		change, err := s.mutator.Mutate(ctx, repoargs.BalanceMutation{
			UserID:    user.ID,
			Expected:  user.Balance,
			Delta:     order.TotalAmount,
			Direction: domain.DirectionCredit,
		})
		if err == nil {
			return change, nil
		}
		if !errors.Is(err, domain.ErrConcurrentModification) {
			if creditRejected(err) {
				return nil, err
			}
			return nil, errors.Join(errCreditUncertain, err)
		}
		lastErr = err
	}
	return nil, fmt.Errorf("crediting after %d attempts: %w", refundCreditAttempts, lastErr)
}

// creditRejected ошибки, при которых баланс гарантированно не изменился.
func creditRejected(err error) bool {
	return errors.Is(err, domain.ErrValidation) ||
		errors.Is(err, domain.ErrInsufficientBalance) ||
		errors.Is(err, domain.ErrRecordNotFound)
}

func joinReason(reason, note string) string {
	if reason == "" {
		return note
	}
	return reason + "; " + note
}
