package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsdevblog/groph-shop/internal/config"
	"github.com/fsdevblog/groph-shop/internal/service"
	"github.com/fsdevblog/groph-shop/internal/service/psswd"
	"github.com/fsdevblog/groph-shop/internal/transport/api"
	"github.com/fsdevblog/groph-shop/internal/transport/reconcile"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 5 * time.Second
)

type App struct {
	Config *config.Config
	Logger *logrus.Logger
}

func New(conf *config.Config, l *logrus.Logger) *App {
	return &App{
		Config: conf,
		Logger: l,
	}
}

// Run поднимает хранилище, http сервер и фоновую сверку и блокируется до сигнала остановки или
// ошибки одного из компонентов. По сигналу сервер завершает текущие запросы.
func (a *App) Run() error {
	notifyCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.Logger.WithFields(logrus.Fields{
		"address":  a.Config.RunAddress,
		"storage":  a.Config.StorageDriver,
		"lease":    a.Config.CheckoutLease.String(),
		"refunds":  a.Config.AutoRefund,
		"interval": a.Config.ReconcileInterval.String(),
	}).Info("Starting app")

	store, err := openStorage(notifyCtx, a.Config, a.Logger)
	if err != nil {
		return fmt.Errorf("app run: %w", err)
	}
	defer store.close()

	services, err := service.Factory(store.uow, service.FactoryArgs{
		JWTSecret:     []byte(a.Config.JWTSecret),
		Hasher:        psswd.NewBcrypt(a.Config.BcryptCost),
		CheckoutLease: a.Config.CheckoutLease,
		Logger:        a.Logger,
	})
	if err != nil {
		return fmt.Errorf("app run: %s", err.Error())
	}

	router, err := api.New(api.RouterArgs{
		Logger:                a.Logger,
		UserService:           services.UserService,
		LedgerService:         services.LedgerService,
		OrderService:          services.OrderService,
		CheckoutService:       services.CheckoutService,
		CartService:           services.CartService,
		ProductService:        services.ProductService,
		ReconciliationService: services.ReconciliationService,
		HealthChecker:         store.health,
		JWTSecretKey:          []byte(a.Config.JWTSecret),
		AdminLogins:           a.Config.AdminLogins,
	})
	if err != nil {
		return fmt.Errorf("app run: %s", err.Error())
	}

	server := &http.Server{
		Addr:              a.Config.RunAddress,
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	processor := reconcile.New(services.ReconciliationService, a.Logger).
		SetInterval(a.Config.ReconcileInterval).
		SetWorkers(a.Config.ReconcileWorkers).
		SetAutoRefund(a.Config.AutoRefund)

	g, ctx := errgroup.WithContext(notifyCtx)

	g.Go(func() error {
		if runErr := server.ListenAndServe(); runErr != nil && !errors.Is(runErr, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", runErr)
		}
		return nil
	})

	g.Go(func() error {
		processor.Run(ctx)
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		a.Logger.Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			return fmt.Errorf("http server shutdown: %w", shutdownErr)
		}
		return nil
	})

	return g.Wait() //nolint:wrapcheck
}
