package api

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/fsdevblog/groph-shop/internal/repository/repoargs"
	"github.com/fsdevblog/groph-shop/internal/service"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type OrderHandlerTestSuite struct {
	routerSuite
	userID string
	jwt    string
}

func TestOrderHandlerSuite(t *testing.T) {
	suite.Run(t, new(OrderHandlerTestSuite))
}

func (s *OrderHandlerTestSuite) SetupTest() {
	s.routerSuite.SetupTest()
	s.userID = gofakeit.UUID()
	s.jwt = s.token(s.userID, domain.RoleUser)
}

func (s *OrderHandlerTestSuite) order() *domain.Order {
	now := time.Now()
	return &domain.Order{
		ID:     gofakeit.UUID(),
		UserID: s.userID,
		Items: []domain.OrderItem{
			{ProductID: gofakeit.UUID(), Quantity: 2, Price: decimal.RequireFromString("20"), Name: gofakeit.ProductName()},
		},
		TotalAmount:     decimal.RequireFromString("40"),
		Status:          domain.OrderStatusPending,
		PaymentStatus:   domain.PaymentStatusPending,
		ShippingAddress: gofakeit.Street(),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (s *OrderHandlerTestSuite) TestCreate() {
	order := s.order()
	productID := order.Items[0].ProductID

	s.mockOrderService.EXPECT().Create(gomock.Any(), service.CreateOrderArgs{
		UserID:          s.userID,
		Items:           []service.OrderItemArgs{{ProductID: productID, Quantity: 2}},
		ShippingAddress: order.ShippingAddress,
	}).Return(order, nil)
	s.mockOrderService.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil, domain.ErrInsufficientStock)

	var body OrderResponse
	status := s.requestJSON(http.MethodPost, OrdersRoute, map[string]any{
		"items":            []map[string]any{{"product_id": productID, "quantity": 2}},
		"shipping_address": order.ShippingAddress,
	}, s.jwt, &body)
	s.Equal(http.StatusCreated, status)
	s.Equal(order.ID, body.ID)
	s.Equal("40.00", body.TotalAmount)
	s.Require().Len(body.Items, 1)
	s.Equal("20.00", body.Items[0].Price)
	s.Equal("40.00", body.Items[0].Subtotal)

	s.Equal(http.StatusConflict, s.status(http.MethodPost, OrdersRoute, map[string]any{
		"items":            []map[string]any{{"product_id": productID, "quantity": 100}},
		"shipping_address": order.ShippingAddress,
	}, s.jwt))

	cases := []struct {
		name    string
		payload any
	}{
		{name: "no items", payload: map[string]any{"items": []any{}, "shipping_address": order.ShippingAddress}},
		{name: "zero quantity", payload: map[string]any{
			"items":            []map[string]any{{"product_id": productID, "quantity": 0}},
			"shipping_address": order.ShippingAddress,
		}},
		{name: "no address", payload: map[string]any{
			"items": []map[string]any{{"product_id": productID, "quantity": 1}},
		}},
	}
	for _, t := range cases {
		s.Run(t.name, func() {
			s.Equal(http.StatusUnprocessableEntity, s.status(http.MethodPost, OrdersRoute, t.payload, s.jwt))
		})
	}
}

func (s *OrderHandlerTestSuite) TestIndex() {
	orders := []domain.Order{*s.order()}
	s.mockOrderService.EXPECT().List(gomock.Any(), service.ListOrdersArgs{
		UserID:        s.userID,
		Status:        domain.OrderStatusPending,
		PaymentStatus: domain.PaymentStatusPending,
		SortBy:        repoargs.OrderSortTotalAmount,
		SortOrder:     repoargs.SortAsc,
		Limit:         defaultPageSize,
	}).Return(orders, int64(1), nil)

	var body PageResponse[OrderResponse]
	status := s.requestJSON(http.MethodGet,
		OrdersRoute+"?status=pending&payment_status=pending&sort_by=total_amount&sort_order=asc",
		nil, s.jwt, &body)
	s.Equal(http.StatusOK, status)
	s.Equal(int64(1), body.Total)
	s.Equal(int64(1), body.Pages)
	s.Require().Len(body.Items, 1)
	s.Equal(orders[0].ID, body.Items[0].ID)

	s.Equal(http.StatusUnprocessableEntity, s.status(http.MethodGet, OrdersRoute+"?sort_by=name", nil, s.jwt))
	s.Equal(http.StatusUnauthorized, s.status(http.MethodGet, OrdersRoute, nil, ""))
}

func (s *OrderHandlerTestSuite) TestShowAndCancel() {
	order := s.order()
	s.mockOrderService.EXPECT().Get(gomock.Any(), order.ID, s.userID).Return(order, nil)
	s.mockOrderService.EXPECT().Get(gomock.Any(), "foreign", s.userID).
		Return(nil, fmt.Errorf("getting order: %w", domain.ErrRecordNotFound))
	s.mockOrderService.EXPECT().Cancel(gomock.Any(), order.ID, s.userID).
		Return(nil, domain.ErrAlreadyPaid)

	var body OrderResponse
	s.Equal(http.StatusOK, s.requestJSON(http.MethodGet, replaceID(OrderRoute, order.ID), nil, s.jwt, &body))
	s.Equal(domain.PaymentStatusPending, body.PaymentStatus)

	s.Equal(http.StatusNotFound, s.status(http.MethodGet, replaceID(OrderRoute, "foreign"), nil, s.jwt))

	var errBody map[string]string
	status := s.requestJSON(http.MethodPost, replaceID(OrderCancelRoute, order.ID), nil, s.jwt, &errBody)
	s.Equal(http.StatusConflict, status)
	s.Equal(domain.ErrAlreadyPaid.Error(), errBody["error"])
}

func (s *OrderHandlerTestSuite) TestCheckout() {
	order := s.order()
	order.Status = domain.OrderStatusConfirmed
	order.PaymentStatus = domain.PaymentStatusPaid
	payment := &domain.Transaction{
		ID:      gofakeit.UUID(),
		Type:    domain.TransactionTypePayment,
		Amount:  decimal.RequireFromString("40"),
		Balance: decimal.RequireFromString("60"),
	}
	s.mockCheckoutService.EXPECT().Checkout(gomock.Any(), order.ID, s.userID).Return(&service.CheckoutResult{
		Order:       order,
		Transaction: payment,
		Balance:     payment.Balance,
	}, nil)

	var body CheckoutResponse
	status := s.requestJSON(http.MethodPost, replaceID(OrderCheckoutRoute, order.ID), nil, s.jwt, &body)
	s.Equal(http.StatusOK, status)
	s.Equal("success", body.Status)
	s.Equal("60.00", body.Balance)
	s.Equal(domain.OrderStatusConfirmed, body.Order.Status)
	s.Equal(payment.ID, body.Transaction.ID)
}

func (s *OrderHandlerTestSuite) TestCheckout_Errors() {
	cases := []struct {
		name           string
		err            error
		wantStatus     int
		wantStage      string
		wantMoneyMoved bool
		wantMessage    string
	}{
		{
			name: "insufficient balance",
			err: &domain.CheckoutError{
				Stage: domain.CheckoutStageValidating, State: domain.CheckoutStateUnchanged,
				Err: domain.ErrInsufficientBalance,
			},
			wantStatus:  http.StatusPaymentRequired,
			wantStage:   string(domain.CheckoutStageValidating),
			wantMessage: domain.ErrInsufficientBalance.Error(),
		}, {
			name: "already paid",
			err: &domain.CheckoutError{
				Stage: domain.CheckoutStageValidating, State: domain.CheckoutStateUnchanged,
				Err: domain.ErrAlreadyPaid,
			},
			wantStatus:  http.StatusConflict,
			wantStage:   string(domain.CheckoutStageValidating),
			wantMessage: domain.ErrAlreadyPaid.Error(),
		}, {
			name: "stock failed after payment",
			err: &domain.CheckoutError{
				Stage: domain.CheckoutStageStockAdjusting, State: domain.CheckoutStateOrderFailed,
				MoneyMoved: true, Err: fmt.Errorf("reserving stock: %w", domain.ErrInsufficientStock),
			},
			wantStatus:     http.StatusConflict,
			wantStage:      string(domain.CheckoutStageStockAdjusting),
			wantMoneyMoved: true,
			wantMessage:    domain.ErrInsufficientStock.Error(),
		}, {
			name: "record failed after debit",
			err: &domain.CheckoutError{
				Stage: domain.CheckoutStageRecording, State: domain.CheckoutStatePaymentFailed,
				MoneyMoved: true, Err: fmt.Errorf("recording payment: %w", domain.ErrPersistence),
			},
			wantStatus:     http.StatusInternalServerError,
			wantStage:      string(domain.CheckoutStageRecording),
			wantMoneyMoved: true,
			wantMessage:    "checkout failed",
		},
	}
	for _, t := range cases {
		s.Run(t.name, func() {
			orderID := gofakeit.UUID()
			s.mockCheckoutService.EXPECT().Checkout(gomock.Any(), orderID, s.userID).Return(nil, t.err)

			var body struct {
				Error      string `json:"error"`
				Stage      string `json:"stage"`
				State      string `json:"state"`
				MoneyMoved bool   `json:"money_moved"`
			}
			status := s.requestJSON(http.MethodPost, replaceID(OrderCheckoutRoute, orderID), nil, s.jwt, &body)
			s.Equal(t.wantStatus, status)
			s.Equal(t.wantStage, body.Stage)
			s.Equal(t.wantMoneyMoved, body.MoneyMoved)
			s.Equal(t.wantMessage, body.Error)
		})
	}
}

func (s *OrderHandlerTestSuite) TestCheckout_NotFound() {
	orderID := gofakeit.UUID()
	s.mockCheckoutService.EXPECT().Checkout(gomock.Any(), orderID, s.userID).DoAndReturn(
		func(ctx context.Context, _, _ string) (*service.CheckoutResult, error) {
			_, hasDeadline := ctx.Deadline()
			s.True(hasDeadline)
			return nil, fmt.Errorf("reading order: %w", domain.ErrRecordNotFound)
		})

	s.Equal(http.StatusNotFound, s.status(http.MethodPost, replaceID(OrderCheckoutRoute, orderID), nil, s.jwt))
}

func (s *OrderHandlerTestSuite) TestStats() {
	s.mockOrderService.EXPECT().Stats(gomock.Any(), s.userID).Return(&domain.OrderStats{
		TotalOrders:     3,
		TotalAmount:     decimal.RequireFromString("10"),
		PendingOrders:   1,
		CompletedOrders: 1,
		CancelledOrders: 1,
	}, nil)

	// статический маршрут не должен уйти в /user/orders/:id
	var body OrderStatsResponse
	s.Equal(http.StatusOK, s.requestJSON(http.MethodGet, OrderStatsRoute, nil, s.jwt, &body))
	s.Equal(int64(3), body.TotalOrders)
	s.Equal("10.00", body.TotalAmount)
	s.Equal("3.33", body.AverageOrderAmount)
	s.Equal(int64(1), body.CancelledOrders)
}
