package service

import (
	"fmt"
	"time"

	"github.com/fsdevblog/groph-shop/pkg/uow"
	"github.com/sirupsen/logrus"
)

type AppServices struct {
	UserService           *UserService
	LedgerService         *LedgerService
	ProductService        *ProductService
	OrderService          *OrderService
	CheckoutService       *CheckoutService
	ReconciliationService *ReconciliationService
	CartService           *CartService
}

type FactoryArgs struct {
	JWTSecret     []byte
	Hasher        PasswordHasher
	CheckoutLease time.Duration
	Logger        *logrus.Logger
}

func Factory(unitOfWork uow.UOW, args FactoryArgs) (*AppServices, error) {
	userService, err := NewUserService(unitOfWork, args.Hasher, args.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("service factory: %s", err.Error())
	}

	ledgerService, err := NewLedgerService(unitOfWork)
	if err != nil {
		return nil, fmt.Errorf("service factory: %s", err.Error())
	}

	productService, err := NewProductService(unitOfWork)
	if err != nil {
		return nil, fmt.Errorf("service factory: %s", err.Error())
	}

	orderService, err := NewOrderService(unitOfWork, args.CheckoutLease)
	if err != nil {
		return nil, fmt.Errorf("service factory: %s", err.Error())
	}

	checkoutService, err := NewCheckoutService(unitOfWork, args.CheckoutLease, args.Logger)
	if err != nil {
		return nil, fmt.Errorf("service factory: %s", err.Error())
	}

	reconciliationService, err := NewReconciliationService(unitOfWork, args.CheckoutLease, args.Logger)
	if err != nil {
		return nil, fmt.Errorf("service factory: %s", err.Error())
	}

	cartService, err := NewCartService(unitOfWork)
	if err != nil {
		return nil, fmt.Errorf("service factory: %s", err.Error())
	}

	return &AppServices{
		UserService:           userService,
		LedgerService:         ledgerService,
		ProductService:        productService,
		OrderService:          orderService,
		CheckoutService:       checkoutService,
		ReconciliationService: reconciliationService,
		CartService:           cartService,
	}, nil
}
