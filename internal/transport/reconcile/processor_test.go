package reconcile

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/fsdevblog/groph-shop/internal/service"
	"github.com/fsdevblog/groph-shop/internal/transport/reconcile/mocks"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
	"go.uber.org/atomic"
)

type ProcessorTestSuite struct {
	suite.Suite
	processor   *Processor
	mockService *mocks.MockServicer
	ctrl        *gomock.Controller
}

func (s *ProcessorTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockService = mocks.NewMockServicer(s.ctrl)

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.DebugLevel)

	s.processor = New(s.mockService, logger).SetWorkers(3)
}

func (s *ProcessorTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestProcessorSuite(t *testing.T) {
	suite.Run(t, new(ProcessorTestSuite))
}

func (s *ProcessorTestSuite) failedOrders(n int) []domain.Order {
	orders := make([]domain.Order, n)
	for i := range orders {
		orders[i] = domain.Order{
			ID:            gofakeit.UUID(),
			UserID:        gofakeit.UUID(),
			Status:        domain.OrderStatusFailed,
			PaymentStatus: domain.PaymentStatusPaid,
			TotalAmount:   decimal.NewFromInt(int64(gofakeit.Number(1, 500))),
		}
	}
	return orders
}

func (s *ProcessorTestSuite) expectCleanReport() {
	s.mockService.EXPECT().
		Report(gomock.Any(), s.processor.limitPerIteration).
		Return(&service.ReconciliationReport{GeneratedAt: time.Now()}, nil)
}

// TestProcess_NoOrders нет заказов для возврата.
func (s *ProcessorTestSuite) TestProcess_NoOrders() {
	s.expectCleanReport()
	s.mockService.EXPECT().
		RefundCandidates(gomock.Any(), s.processor.limitPerIteration).
		Return([]domain.Order{}, nil)

	err := s.processor.process(s.T().Context())
	s.ErrorIs(err, ErrNoOrders)
}

// TestProcess_RefundsEveryCandidate каждый заказ возвращается ровно один раз.
func (s *ProcessorTestSuite) TestProcess_RefundsEveryCandidate() {
	orders := s.failedOrders(7)
	s.expectCleanReport()
	s.mockService.EXPECT().
		RefundCandidates(gomock.Any(), s.processor.limitPerIteration).
		Return(orders, nil)

	calls := atomic.NewInt32(0)
	for _, order := range orders {
		s.mockService.EXPECT().Refund(gomock.Any(), order.ID).DoAndReturn(
			func(_ context.Context, id string) (*domain.Order, error) {
				calls.Inc()
				return &domain.Order{ID: id, Status: domain.OrderStatusRefunded}, nil
			}).Times(1)
	}

	s.Require().NoError(s.processor.process(s.T().Context()))
	s.Equal(int32(len(orders)), calls.Load())
}

// TestProcess_RefundErrors ошибки отдельных возвратов не прерывают итерацию.
func (s *ProcessorTestSuite) TestProcess_RefundErrors() {
	orders := s.failedOrders(3)
	s.expectCleanReport()
	s.mockService.EXPECT().RefundCandidates(gomock.Any(), gomock.Any()).Return(orders, nil)

	s.mockService.EXPECT().Refund(gomock.Any(), orders[0].ID).Return(nil, domain.ErrRefundInProgress)
	s.mockService.EXPECT().Refund(gomock.Any(), orders[1].ID).Return(nil, errors.New("store is down"))
	s.mockService.EXPECT().Refund(gomock.Any(), orders[2].ID).Return(&orders[2], nil)

	s.Require().NoError(s.processor.process(s.T().Context()))
}

// TestProcess_AutoRefundDisabled без автовозврата только отчет.
func (s *ProcessorTestSuite) TestProcess_AutoRefundDisabled() {
	s.processor.SetAutoRefund(false)

	orders := s.failedOrders(1)
	s.mockService.EXPECT().Report(gomock.Any(), gomock.Any()).Return(&service.ReconciliationReport{
		LedgerDrift: []domain.LedgerDrift{
			{UserID: gofakeit.UUID(), Balance: decimal.NewFromInt(5), BalanceVersion: 2, RecordedMutations: 1},
		},
		UnrecordedDebits: []domain.Order{{
			ID: gofakeit.UUID(),
			UnrecordedDebits: []domain.UnrecordedDebit{
				{Amount: decimal.NewFromInt(5), BalanceVersion: 2, At: time.Now()},
			},
		}},
		PendingRefunds: orders,
	}, nil)
	s.mockService.EXPECT().RefundCandidates(gomock.Any(), gomock.Any()).Times(0)
	s.mockService.EXPECT().Refund(gomock.Any(), gomock.Any()).Times(0)

	s.Require().NoError(s.processor.process(s.T().Context()))
}

// TestProcess_ReportError ошибка отчета прерывает итерацию до возвратов.
func (s *ProcessorTestSuite) TestProcess_ReportError() {
	reportErr := errors.New("store is down")
	s.mockService.EXPECT().Report(gomock.Any(), gomock.Any()).Return(nil, reportErr)
	s.mockService.EXPECT().RefundCandidates(gomock.Any(), gomock.Any()).Times(0)

	s.Require().ErrorIs(s.processor.process(s.T().Context()), reportErr)
}

// TestRun_StopsOnCancel Run выполняет первую итерацию сразу и выходит после отмены контекста.
func (s *ProcessorTestSuite) TestRun_StopsOnCancel() {
	s.processor.SetInterval(time.Hour)

	ctx, cancel := context.WithCancel(s.T().Context())
	s.mockService.EXPECT().Report(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, uint) (*service.ReconciliationReport, error) {
			cancel()
			return &service.ReconciliationReport{}, nil
		})
	s.mockService.EXPECT().RefundCandidates(gomock.Any(), gomock.Any()).Return(nil, nil)

	done := make(chan struct{})
	go func() {
		s.processor.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		s.Fail("processor did not stop")
	}
}
