package app

import (
	"context"
	"fmt"

	"github.com/fsdevblog/groph-shop/internal/config"
	"github.com/fsdevblog/groph-shop/internal/repository/memrepo"
	"github.com/fsdevblog/groph-shop/internal/repository/mongorepo"
	"github.com/fsdevblog/groph-shop/internal/repository/pgrepo"
	"github.com/fsdevblog/groph-shop/internal/transport/api"
	"github.com/fsdevblog/groph-shop/pkg/uow"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// storage выбранное хранилище: unit of work с зарегистрированными репозиториями, проверка доступности
// и освобождение соединений.
type storage struct {
	uow    *uow.UnitOfWork
	health api.HealthChecker
	close  func()
}

func openStorage(ctx context.Context, conf *config.Config, l *logrus.Logger) (*storage, error) {
	switch conf.StorageDriver {
	case config.DriverPostgres:
		return openPostgres(ctx, conf, l)
	case config.DriverMongo:
		return openMongo(ctx, conf, l)
	case config.DriverMemory:
		l.Warn("using in-memory storage, data is lost on restart")
		store := memrepo.New()
		unitOfWork, err := memrepo.NewUnitOfWork(store)
		if err != nil {
			return nil, fmt.Errorf("open memory storage: %w", err)
		}
		return &storage{uow: unitOfWork, health: store, close: func() {}}, nil
	default:
		return nil, fmt.Errorf("open storage: unknown driver %q", conf.StorageDriver)
	}
}

func openPostgres(ctx context.Context, conf *config.Config, l *logrus.Logger) (*storage, error) {
	pool, err := pgrepo.Connect(ctx, conf.MigrationsDir, conf.DatabaseDSN, l)
	if err != nil {
		return nil, fmt.Errorf("open postgres storage: %w", err)
	}
	unitOfWork, err := pgrepo.NewUnitOfWork(pool)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("open postgres storage: %w", err)
	}
	return &storage{uow: unitOfWork, health: pool, close: pool.Close}, nil
}

func openMongo(ctx context.Context, conf *config.Config, l *logrus.Logger) (*storage, error) {
	client, db, err := mongorepo.Connect(ctx, conf.MongoURI, conf.MongoDatabase, l)
	if err != nil {
		return nil, fmt.Errorf("open mongo storage: %w", err)
	}
	disconnect := func() {
		if dErr := client.Disconnect(context.Background()); dErr != nil {
			l.WithError(dErr).Error("mongo disconnect")
		}
	}
	unitOfWork, err := mongorepo.NewUnitOfWork(client, db, conf.MongoTransactions)
	if err != nil {
		disconnect()
		return nil, fmt.Errorf("open mongo storage: %w", err)
	}
	return &storage{uow: unitOfWork, health: mongoPinger{client: client}, close: disconnect}, nil
}

type mongoPinger struct {
	client *mongo.Client
}

func (p mongoPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx, readpref.Primary()) //nolint:wrapcheck
}
