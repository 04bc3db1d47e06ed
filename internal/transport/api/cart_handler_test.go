package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/fsdevblog/groph-shop/internal/service"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type CartHandlerTestSuite struct {
	routerSuite
	userID string
	jwt    string
}

func TestCartHandlerSuite(t *testing.T) {
	suite.Run(t, new(CartHandlerTestSuite))
}

func (s *CartHandlerTestSuite) SetupTest() {
	s.routerSuite.SetupTest()
	s.userID = gofakeit.UUID()
	s.jwt = s.token(s.userID, domain.RoleUser)
}

func (s *CartHandlerTestSuite) view(lines ...service.CartLine) *service.CartView {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return &service.CartView{UserID: s.userID, Lines: lines, Total: total, UpdatedAt: time.Now()}
}

func (s *CartHandlerTestSuite) TestShow() {
	s.mockCartService.EXPECT().Get(gomock.Any(), s.userID).Return(s.view(), nil)

	var body CartResponse
	s.Equal(http.StatusOK, s.requestJSON(http.MethodGet, CartRoute, nil, s.jwt, &body))
	s.Empty(body.Items)
	s.Equal("0.00", body.Total)

	s.Equal(http.StatusUnauthorized, s.status(http.MethodGet, CartRoute, nil, ""))
}

func (s *CartHandlerTestSuite) TestUpsert() {
	productID := gofakeit.UUID()
	s.mockCartService.EXPECT().
		Upsert(gomock.Any(), s.userID, []service.CartItemArgs{{ProductID: productID, Quantity: 3}}).
		Return(s.view(service.CartLine{
			ProductID: productID, Quantity: 3, Name: "pen", Price: decimal.RequireFromString("1.5"),
			Stock: 10, Available: true,
		}), nil)
	s.mockCartService.EXPECT().
		Upsert(gomock.Any(), s.userID, []service.CartItemArgs{{ProductID: productID, Quantity: 50}}).
		Return(nil, domain.ErrInsufficientStock)

	var body CartResponse
	s.Equal(http.StatusOK, s.requestJSON(http.MethodPut, CartRoute, map[string]any{
		"items": []map[string]any{{"product_id": productID, "quantity": 3}},
	}, s.jwt, &body))
	s.Require().Len(body.Items, 1)
	s.Equal("4.50", body.Items[0].Subtotal)
	s.Equal("4.50", body.Total)

	s.Equal(http.StatusConflict, s.status(http.MethodPut, CartRoute, map[string]any{
		"items": []map[string]any{{"product_id": productID, "quantity": 50}},
	}, s.jwt))
	s.Equal(http.StatusUnprocessableEntity, s.status(http.MethodPut, CartRoute, map[string]any{
		"items": []map[string]any{{"product_id": productID, "quantity": 0}},
	}, s.jwt))
}

func (s *CartHandlerTestSuite) TestClear() {
	s.mockCartService.EXPECT().Clear(gomock.Any(), s.userID).Return(s.view(), nil)

	var body CartResponse
	s.Equal(http.StatusOK, s.requestJSON(http.MethodDelete, CartRoute, nil, s.jwt, &body))
	s.Empty(body.Items)
}

func (s *CartHandlerTestSuite) TestValidate() {
	gomock.InOrder(
		s.mockCartService.EXPECT().Validate(gomock.Any(), s.userID).Return(s.view(), nil),
		s.mockCartService.EXPECT().Validate(gomock.Any(), s.userID).Return(nil, domain.ErrProductUnavailable),
	)

	s.Equal(http.StatusOK, s.status(http.MethodPost, CartValidateRoute, nil, s.jwt))
	s.Equal(http.StatusConflict, s.status(http.MethodPost, CartValidateRoute, nil, s.jwt))
}
