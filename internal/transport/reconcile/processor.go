// Package reconcile периодически сверяет балансы, журнал операций и заказы и возвращает деньги
// по оплаченным заказам, которые не удалось выполнить.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/sirupsen/logrus"
)

const (
	defaultServiceTimeout         = 3 * time.Second
	defaultRefundTimeout          = 10 * time.Second
	defaultInterval               = time.Minute
	defaultLimitPerIteration uint = 100
	defaultWorkers           uint = 4
)

// Processor фоновая сверка. На каждом тике пишет в лог отчет о расхождениях и, если включено,
// оформляет возвраты.
type Processor struct {
	svs               Servicer
	l                 *logrus.Entry
	interval          time.Duration
	limitPerIteration uint
	workers           uint
	autoRefund        bool
}

// New создает новый экземпляр процессора сверки. Автовозврат по умолчанию включен.
func New(svs Servicer, l *logrus.Logger) *Processor {
	loggerEntry := l.WithFields(logrus.Fields{
		"component": "reconcile",
		"module":    "processor",
	})

	return &Processor{
		svs:               svs,
		l:                 loggerEntry,
		interval:          defaultInterval,
		limitPerIteration: defaultLimitPerIteration,
		workers:           defaultWorkers,
		autoRefund:        true,
	}
}

// SetInterval устанавливает паузу между итерациями. Непозитивное значение игнорируется.
func (p *Processor) SetInterval(interval time.Duration) *Processor {
	if interval > 0 {
		p.interval = interval
	}
	return p
}

// SetLimitPerIteration устанавливает кол-во заказов, обрабатываемых в одной итерации.
func (p *Processor) SetLimitPerIteration(limit uint) *Processor {
	p.limitPerIteration = limit
	return p
}

// SetWorkers устанавливает кол-во воркеров, оформляющих возвраты.
func (p *Processor) SetWorkers(workers uint) *Processor {
	if workers > 0 {
		p.workers = workers
	}
	return p
}

func (p *Processor) SetAutoRefund(enabled bool) *Processor {
	p.autoRefund = enabled
	return p
}

// Run запускает сверку по таймеру до отмены контекста. Первая итерация выполняется сразу.
//
// Алгоритм работы:
//  1. Запрашивает отчет о расхождениях и пишет каждое расхождение в лог с уровнем error.
//  2. Если автовозврат включен, запрашивает заказы под возврат (не больше SetLimitPerIteration).
//  3. Раздает заказы N воркерам (SetWorkers), каждый оформляет возврат через сервисный слой.
func (p *Processor) Run(ctx context.Context) {
	p.l.WithFields(logrus.Fields{
		"interval":          p.interval.String(),
		"limitPerIteration": p.limitPerIteration,
		"workers":           p.workers,
		"autoRefund":        p.autoRefund,
	}).Info("Starting")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if err := p.process(ctx); err != nil && !errors.Is(err, ErrNoOrders) {
			p.l.WithError(err).Error("process error")
		}

		select {
		case <-ctx.Done():
			p.l.Info("Got stop signal, exiting...")
			return
		case <-ticker.C:
		}
	}
}

// process выполняет одну итерацию сверки. Возвращает ErrNoOrders, если возвращать нечего.
func (p *Processor) process(ctx context.Context) error {
	if err := p.report(ctx); err != nil {
		return fmt.Errorf("process: %w", err)
	}
	if !p.autoRefund {
		return nil
	}

	orders, err := p.produce(ctx)
	if err != nil {
		return fmt.Errorf("process: %w", err)
	}

	var refunded, skipped, failed int
	for _, result := range p.runWorkers(ctx, orders) {
		l := p.l.WithFields(logrus.Fields{
			"worker":  result.WorkerID,
			"orderID": result.Order.ID,
			"userID":  result.Order.UserID,
		})
		switch {
		case result.Error == nil:
			refunded++
		case errors.Is(result.Error, domain.ErrRefundInProgress), errors.Is(result.Error, domain.ErrInvalidTransition):
			// заказ забрал другой экземпляр или он уже сменил статус.
			l.WithError(result.Error).Debug("refund skipped")
			skipped++
		default:
			l.WithError(result.Error).Error("refund order")
			failed++
		}
	}
	p.l.WithFields(logrus.Fields{
		"refunded": refunded,
		"skipped":  skipped,
		"failed":   failed,
	}).Info("refunds processed")
	return nil
}

// report пишет в лог отчет о расхождениях.
func (p *Processor) report(ctx context.Context) error {
	reqCtx, cancel := context.WithTimeout(ctx, defaultServiceTimeout)
	defer cancel()

	report, err := p.svs.Report(reqCtx, p.limitPerIteration)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	if report.Empty() {
		p.l.Debug("no discrepancies")
		return nil
	}

	for _, drift := range report.LedgerDrift {
		p.l.WithFields(logrus.Fields{
			"userID":            drift.UserID,
			"balance":           drift.Balance.StringFixed(domain.MoneyPlaces),
			"balanceVersion":    drift.BalanceVersion,
			"recordedMutations": drift.RecordedMutations,
		}).Error("ledger drift")
	}
	for _, order := range report.UnrecordedDebits {
		for _, debit := range order.UnrecordedDebits {
			p.l.WithFields(logrus.Fields{
				"orderID":        order.ID,
				"userID":         order.UserID,
				"amount":         debit.Amount.StringFixed(domain.MoneyPlaces),
				"balanceVersion": debit.BalanceVersion,
			}).Error("unrecorded debit")
		}
	}
	for _, order := range report.StalledPayments {
		p.l.WithFields(logrus.Fields{
			"orderID": order.ID,
			"userID":  order.UserID,
			"paidAt":  order.PaidAt,
		}).Error("paid order stalled in pending")
	}
	for _, payment := range report.UnsettledPayments {
		p.l.WithFields(logrus.Fields{
			"orderID":       payment.ReferenceID,
			"userID":        payment.UserID,
			"transactionID": payment.ID,
			"amount":        payment.Amount.StringFixed(domain.MoneyPlaces),
		}).Error("payment recorded for unpaid order")
	}
	for _, order := range report.UnconfirmedRefunds {
		p.l.WithFields(logrus.Fields{
			"orderID": order.ID,
			"userID":  order.UserID,
		}).Error("refund credit not confirmed")
	}
	if n := len(report.PendingRefunds); n > 0 {
		p.l.WithField("orders", n).Warn("paid orders waiting for refund")
	}
	return nil
}

// produce получает список заказов для возврата. Возвращает ErrNoOrders, если заказы отсутствуют.
func (p *Processor) produce(ctx context.Context) ([]domain.Order, error) {
	produceCtx, cancel := context.WithTimeout(ctx, defaultServiceTimeout)
	defer cancel()

	orders, err := p.svs.RefundCandidates(produceCtx, p.limitPerIteration)
	if err != nil {
		return nil, fmt.Errorf("produce: %w", err)
	}
	if len(orders) == 0 {
		return nil, ErrNoOrders
	}
	return orders, nil
}

// workerResult результат возврата по одному заказу.
type workerResult struct {
	WorkerID uint
	Order    *domain.Order
	Error    error
}

// runWorkers раздает заказы воркерам и ждет конца их работы (fan-out/fan-in).
func (p *Processor) runWorkers(ctx context.Context, orders []domain.Order) []workerResult {
	var taskCh = make(chan *domain.Order, len(orders))
	for i := range orders {
		taskCh <- &orders[i]
	}
	close(taskCh)

	wg := new(sync.WaitGroup)
	wg.Add(int(p.workers)) // nolint:gosec

	var resultCh = make(chan workerResult, len(orders))
	for i := range p.workers {
		go p.worker(ctx, wg, i+1, taskCh, resultCh)
	}
	wg.Wait()
	close(resultCh)

	var results = make([]workerResult, 0, len(orders))
	for result := range resultCh {
		results = append(results, result)
	}
	return results
}

func (p *Processor) worker(
	ctx context.Context,
	wg *sync.WaitGroup,
	workerID uint,
	taskCh <-chan *domain.Order,
	resultCh chan<- workerResult,
) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-taskCh:
			if !ok {
				return
			}
			reqCtx, cancel := context.WithTimeout(ctx, defaultRefundTimeout)
			_, err := p.svs.Refund(reqCtx, task.ID)
			cancel()
			resultCh <- workerResult{WorkerID: workerID, Order: task, Error: err}
		}
	}
}
