package api

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/fsdevblog/groph-shop/internal/logger"
	"github.com/fsdevblog/groph-shop/internal/service/tokens"
	"github.com/fsdevblog/groph-shop/internal/transport/api/mocks"
	"github.com/fsdevblog/groph-shop/internal/transport/api/testutils"
	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/suite"
)

const adminLogin = "root"

// routerSuite общая обвязка тестов обработчиков: роутер на моках сервисов и выпуск токенов.
type routerSuite struct {
	suite.Suite
	router    *gin.Engine
	jwtSecret []byte

	mockUserService     *mocks.MockUserServicer
	mockLedgerService   *mocks.MockLedgerServicer
	mockOrderService    *mocks.MockOrderServicer
	mockCheckoutService *mocks.MockCheckoutServicer
	mockCartService     *mocks.MockCartServicer
	mockProductService  *mocks.MockProductServicer
	mockReconService    *mocks.MockReconciliationServicer
	mockHealthChecker   *mocks.MockHealthChecker
}

func (s *routerSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
}

func (s *routerSuite) SetupTest() {
	mockCtrl := gomock.NewController(s.T())

	s.jwtSecret = []byte("super secret key")
	s.mockUserService = mocks.NewMockUserServicer(mockCtrl)
	s.mockLedgerService = mocks.NewMockLedgerServicer(mockCtrl)
	s.mockOrderService = mocks.NewMockOrderServicer(mockCtrl)
	s.mockCheckoutService = mocks.NewMockCheckoutServicer(mockCtrl)
	s.mockCartService = mocks.NewMockCartServicer(mockCtrl)
	s.mockProductService = mocks.NewMockProductServicer(mockCtrl)
	s.mockReconService = mocks.NewMockReconciliationServicer(mockCtrl)
	s.mockHealthChecker = mocks.NewMockHealthChecker(mockCtrl)

	router, err := New(RouterArgs{
		Logger:                logger.New(io.Discard, ""),
		UserService:           s.mockUserService,
		LedgerService:         s.mockLedgerService,
		OrderService:          s.mockOrderService,
		CheckoutService:       s.mockCheckoutService,
		CartService:           s.mockCartService,
		ProductService:        s.mockProductService,
		ReconciliationService: s.mockReconService,
		HealthChecker:         s.mockHealthChecker,
		JWTSecretKey:          s.jwtSecret,
		AdminLogins:           []string{adminLogin},
	})
	s.Require().NoError(err)
	s.router = router
}

func (s *routerSuite) token(userID string, role domain.Role) string {
	token, err := tokens.GenerateUserJWT(userID, role, time.Hour, s.jwtSecret)
	s.Require().NoError(err)
	return token
}

// request выполняет запрос к роутеру. payload сериализуется в json, если не nil. Пустой token - без авторизации.
func (s *routerSuite) request(method, url string, payload any, token string) *http.Response {
	args := testutils.RequestArgs{Router: s.router, Method: method, URL: RouteGroup + url}
	opts := []func(*testutils.RequestOptions){testutils.WithJSON()}
	if payload != nil {
		body, err := testutils.JSONBody(payload)
		s.Require().NoError(err)
		args.Body = body
	}
	if token != "" {
		opts = append(opts, testutils.WithBearer(token))
	}
	return testutils.MakeRequest(args, opts...)
}

// requestJSON выполняет запрос и декодирует тело ответа в dst.
func (s *routerSuite) requestJSON(method, url string, payload any, token string, dst any) int {
	res := s.request(method, url, payload, token)
	s.Require().NoError(testutils.DecodeJSON(res, dst))
	return res.StatusCode
}

func (s *routerSuite) status(method, url string, payload any, token string) int {
	res := s.request(method, url, payload, token)
	defer func() {
		s.Require().NoError(res.Body.Close())
	}()
	return res.StatusCode
}

func replaceID(route, id string) string {
	return strings.Replace(route, ":id", id, 1)
}
