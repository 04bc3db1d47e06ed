package api

import (
	"fmt"
	"time"

	"github.com/fsdevblog/groph-shop/internal/transport/api/middlewares"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	DefaultServiceTimeout = 3 * time.Second
)

const (
	RouteGroup         = "/api"
	HealthRoute        = "/health"
	RegisterRoute      = "/user/register"
	LoginRoute         = "/user/login"
	BalanceRoute       = "/user/balance"
	DepositRoute       = "/user/balance/deposit"
	WithdrawRoute      = "/user/balance/withdraw"
	TransactionsRoute  = "/user/transactions"
	ProfileRoute       = "/user/me"
	CartRoute          = "/user/cart"
	CartValidateRoute  = "/user/cart/validate"
	OrdersRoute        = "/user/orders"
	OrderStatsRoute    = "/user/orders/stats"
	OrderRoute         = "/user/orders/:id"
	OrderCancelRoute   = "/user/orders/:id/cancel"
	OrderCheckoutRoute = "/user/orders/:id/checkout"
	ProductRoute       = "/products/:id"

	AdminProductsRoute       = "/admin/products"
	AdminProductRoute        = "/admin/products/:id"
	AdminProductStockRoute   = "/admin/products/:id/stock"
	AdminProductStatusRoute  = "/admin/products/:id/status"
	AdminOrderStatusRoute    = "/admin/orders/:id/status"
	AdminOrderStatsRoute     = "/admin/orders/stats"
	AdminUsersRoute          = "/admin/users"
	AdminUserRoute           = "/admin/users/:id"
	AdminReconciliationRoute = "/admin/reconciliation"
)

type RouterArgs struct {
	Logger                *logrus.Logger
	UserService           UserServicer
	LedgerService         LedgerServicer
	OrderService          OrderServicer
	CheckoutService       CheckoutServicer
	CartService           CartServicer
	ProductService        ProductServicer
	ReconciliationService ReconciliationServicer
	HealthChecker         HealthChecker
	JWTSecretKey          []byte
	// AdminLogins логины, которые при регистрации получают роль администратора.
	AdminLogins []string
}

func New(args RouterArgs) (*gin.Engine, error) {
	if err := registerValidators(); err != nil {
		return nil, fmt.Errorf("router: %w", err)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	if args.Logger != nil {
		r.Use(middlewares.Logger(args.Logger))
	}
	r.Use(middlewares.Errors())

	authHandler := NewAuthHandler(args.UserService, args.AdminLogins)
	balanceHandler := NewBalanceHandler(args.LedgerService)
	ordersHandler := NewOrdersHandler(args.OrderService, args.CheckoutService)
	productsHandler := NewProductsHandler(args.ProductService)
	profileHandler := NewProfileHandler(args.UserService)
	cartHandler := NewCartHandler(args.CartService)
	adminHandler := NewAdminHandler(args.ProductService, args.OrderService, args.ReconciliationService, args.UserService)
	healthHandler := NewHealthHandler(args.HealthChecker)

	api := r.Group(RouteGroup)

	api.GET(HealthRoute, healthHandler.Index)
	api.POST(RegisterRoute, middlewares.NonAuthRequired(args.JWTSecretKey), authHandler.Register)
	api.POST(LoginRoute, middlewares.NonAuthRequired(args.JWTSecretKey), authHandler.Login)

	api.Use(middlewares.AuthRequired(args.JWTSecretKey))
	// ниже все роуты группы требуют авторизованного пользователя.
	api.GET(BalanceRoute, balanceHandler.Index)
	api.POST(DepositRoute, balanceHandler.Deposit)
	api.POST(WithdrawRoute, balanceHandler.Withdraw)
	api.GET(TransactionsRoute, balanceHandler.Transactions)

	api.GET(ProfileRoute, profileHandler.Show)
	api.PUT(ProfileRoute, profileHandler.Update)

	api.GET(CartRoute, cartHandler.Show)
	api.PUT(CartRoute, cartHandler.Upsert)
	api.DELETE(CartRoute, cartHandler.Clear)
	api.POST(CartValidateRoute, cartHandler.Validate)

	api.POST(OrdersRoute, ordersHandler.Create)
	api.GET(OrdersRoute, ordersHandler.Index)
	api.GET(OrderStatsRoute, ordersHandler.Stats)
	api.GET(OrderRoute, ordersHandler.Show)
	api.POST(OrderCancelRoute, ordersHandler.Cancel)
	api.POST(OrderCheckoutRoute, ordersHandler.Checkout)

	api.GET(ProductRoute, productsHandler.Show)

	admin := api.Group("", middlewares.AdminRequired())
	admin.POST(AdminProductsRoute, adminHandler.CreateProduct)
	admin.PUT(AdminProductRoute, adminHandler.UpdateProduct)
	admin.DELETE(AdminProductRoute, adminHandler.DeleteProduct)
	admin.PATCH(AdminProductStockRoute, adminHandler.AdjustStock)
	admin.PATCH(AdminProductStatusRoute, adminHandler.UpdateProductStatus)
	admin.PATCH(AdminOrderStatusRoute, adminHandler.UpdateOrderStatus)
	admin.GET(AdminOrderStatsRoute, adminHandler.OrderStats)
	admin.GET(AdminUsersRoute, adminHandler.Users)
	admin.GET(AdminUserRoute, adminHandler.ShowUser)
	admin.PUT(AdminUserRoute, adminHandler.UpdateUser)
	admin.DELETE(AdminUserRoute, adminHandler.DeleteUser)
	admin.GET(AdminReconciliationRoute, adminHandler.Reconciliation)
	return r, nil
}
