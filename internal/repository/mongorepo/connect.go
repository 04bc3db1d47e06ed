// Package mongorepo репозитории поверх документного хранилища MongoDB.
package mongorepo

import (
	"context"
	"fmt"
	"time"

	"github.com/fsdevblog/groph-shop/internal/repository/repoargs"
	"github.com/fsdevblog/groph-shop/pkg/uow"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

const (
	colUsers        = "users"
	colProducts     = "products"
	colOrders       = "orders"
	colTransactions = "transactions"
	colCounters     = "counters"
	colCarts        = "carts"

	maxConnectAttempts   = 30
	connectRetryInterval = 3 * time.Second
)

// Connect подключается к mongo, повторяя попытки пока сервер не ответит на ping, и создает индексы.
func Connect(ctx context.Context, uri, database string, l *logrus.Logger) (*mongo.Client, *mongo.Database, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("init mongo client: %w", err)
	}

	var attempts uint
	for {
		pingErr := client.Ping(ctx, readpref.Primary())
		if pingErr == nil {
			break
		}
		attempts++
		if attempts >= maxConnectAttempts {
			_ = client.Disconnect(ctx)
			return nil, nil, fmt.Errorf("init mongo connection after %d attempts: %w", attempts, pingErr)
		}
		l.WithError(pingErr).
			WithField("CurrentAttempt", fmt.Sprintf("#%d / %d", attempts, maxConnectAttempts)).
			Warnf("init mongo connection error, retrying in %.f seconds", connectRetryInterval.Seconds())
		select {
		case <-ctx.Done():
			_ = client.Disconnect(context.WithoutCancel(ctx))
			return nil, nil, fmt.Errorf("init mongo connection: %w", ctx.Err())
		case <-time.After(connectRetryInterval):
		}
	}

	db := client.Database(database)
	if err := Migrate(ctx, db); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, err
	}
	return client, db, nil
}

// Migrate создает индексы всех коллекций.
func Migrate(ctx context.Context, db *mongo.Database) error {
	for col, models := range migrationIndexes() {
		if _, err := db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colUsers: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "deleted_at", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		colProducts: {
			{Keys: bson.D{{Key: "sku", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		colOrders: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "payment_status", Value: 1}}},
		},
		colTransactions: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "seq", Value: -1}}},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "reference_id", Value: 1}, {Key: "type", Value: 1}}},
			{Keys: bson.D{{Key: "type", Value: 1}, {Key: "seq", Value: 1}}},
		},
	}
}

// NewUnitOfWork создает unit of work поверх базы и регистрирует в нем репозитории mongo.
func NewUnitOfWork(client *mongo.Client, db *mongo.Database, transactions bool) (*uow.UnitOfWork, error) {
	u := uow.NewUnitOfWork(uow.NewMongoTransactor(client, db, transactions))

	factories := map[repoargs.RepositoryName]uow.RepositoryFactory{
		repoargs.UserRepoName: func(c uow.Conn) uow.Repository {
			return NewUserRepository(dbFromConn(c))
		},
		repoargs.OrderRepoName: func(c uow.Conn) uow.Repository {
			return NewOrderRepository(dbFromConn(c))
		},
		repoargs.ProductRepoName: func(c uow.Conn) uow.Repository {
			return NewProductRepository(dbFromConn(c))
		},
		repoargs.TransactionRepoName: func(c uow.Conn) uow.Repository {
			return NewTransactionRepository(dbFromConn(c))
		},
		repoargs.CartRepoName: func(c uow.Conn) uow.Repository {
			return NewCartRepository(dbFromConn(c))
		},
	}
	for name, factory := range factories {
		if err := u.Register(uow.RepositoryName(name), factory); err != nil {
			return nil, fmt.Errorf("register mongo repositories: %w", err)
		}
	}
	return u, nil
}

func dbFromConn(c uow.Conn) *mongo.Database {
	db, err := uow.ConnAs[*mongo.Database](c)
	if err != nil {
		panic(err)
	}
	return db
}

func now() time.Time {
	return time.Now().UTC()
}
