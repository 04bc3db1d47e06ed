package uow

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/mongo"
)

// MongoTransactor выполняет единицу работы в сессии mongo. Транзакции требуют replica set,
// поэтому на standalone инстансе их можно выключить - тогда fn выполняется без транзакции.
type MongoTransactor struct {
	client       *mongo.Client
	db           *mongo.Database
	transactions bool
}

func NewMongoTransactor(client *mongo.Client, db *mongo.Database, transactions bool) *MongoTransactor {
	return &MongoTransactor{client: client, db: db, transactions: transactions}
}

func (m *MongoTransactor) Conn() Conn {
	return m.db
}

func (m *MongoTransactor) InTx(ctx context.Context, fn func(context.Context, Conn) error) error {
	if !m.transactions {
		return fn(ctx, m.db)
	}

	sess, sessErr := m.client.StartSession()
	if sessErr != nil {
		return fmt.Errorf("start mongo session: %w", sessErr)
	}
	defer sess.EndSession(ctx)

	_, err := sess.WithTransaction(ctx, func(sc context.Context) (any, error) {
		return nil, fn(sc, m.db)
	})
	return err //nolint:wrapcheck
}
