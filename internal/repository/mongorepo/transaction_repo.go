package mongorepo

import (
	"context"

	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/fsdevblog/groph-shop/internal/repository/repoargs"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const transactionSeqCounter = "transactions"

type TransactionRepository struct {
	col      *mongo.Collection
	users    *mongo.Collection
	counters *mongo.Collection
}

func NewTransactionRepository(db *mongo.Database) *TransactionRepository {
	return &TransactionRepository{
		col:      db.Collection(colTransactions),
		users:    db.Collection(colUsers),
		counters: db.Collection(colCounters),
	}
}

func (r *TransactionRepository) Create(
	ctx context.Context,
	args repoargs.CreateTransaction,
) (*domain.Transaction, error) {
	seq, err := r.nextSeq(ctx)
	if err != nil {
		return nil, convertErr(err, "creating transaction")
	}
	m := transactionModel{
		ID:             uuid.NewString(),
		Seq:            seq,
		UserID:         args.UserID,
		Type:           string(args.Type),
		Amount:         toDecimal128(args.Amount),
		Balance:        toDecimal128(args.Balance),
		BalanceVersion: args.BalanceVersion,
		Status:         string(args.Status),
		Description:    args.Description,
		ReferenceID:    args.ReferenceID,
		CreatedAt:      now(),
	}
	if _, err := r.col.InsertOne(ctx, m); err != nil {
		return nil, convertErr(err, "creating transaction")
	}
	return fromTransactionModel(&m), nil
}

// nextSeq монотонный счетчик записей журнала.
func (r *TransactionRepository) nextSeq(ctx context.Context) (int64, error) {
	var counter struct {
		Value int64 `bson:"value"`
	}
	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": transactionSeqCounter},
		bson.M{"$inc": bson.M{"value": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	return counter.Value, err //nolint:wrapcheck
}

func (r *TransactionRepository) List(
	ctx context.Context,
	filter repoargs.TransactionFilter,
) ([]domain.Transaction, int64, error) {
	query := bson.M{"user_id": filter.UserID}
	if filter.Type != "" {
		query["type"] = string(filter.Type)
	}

	total, err := r.col.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, convertErr(err, "counting transactions of user %s", filter.UserID)
	}

	opts := options.Find().SetSort(bson.D{{Key: "seq", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	if filter.Offset > 0 {
		opts.SetSkip(int64(filter.Offset))
	}
	cur, err := r.col.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, convertErr(err, "listing transactions of user %s", filter.UserID)
	}
	var models []transactionModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, 0, convertErr(err, "listing transactions of user %s", filter.UserID)
	}

	transactions := make([]domain.Transaction, len(models))
	for i := range models {
		transactions[i] = *fromTransactionModel(&models[i])
	}
	return transactions, total, nil
}

func (r *TransactionRepository) FindByReference(
	ctx context.Context,
	userID string,
	referenceID string,
	txType domain.TransactionType,
) (*domain.Transaction, error) {
	var m transactionModel
	err := r.col.FindOne(ctx,
		bson.M{"user_id": userID, "reference_id": referenceID, "type": string(txType)},
		options.FindOne().SetSort(bson.D{{Key: "seq", Value: 1}}),
	).Decode(&m)
	if err != nil {
		return nil, convertErr(err, "finding %s transaction by reference %s", txType, referenceID)
	}
	return fromTransactionModel(&m), nil
}

// FindLedgerDrift сравнивает balance_version пользователя с количеством его записей журнала.
func (r *TransactionRepository) FindLedgerDrift(ctx context.Context, limit uint) ([]domain.LedgerDrift, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$lookup", Value: bson.M{
			"from":         colTransactions,
			"localField":   "_id",
			"foreignField": "user_id",
			"as":           "recorded",
		}}},
		{{Key: "$project", Value: bson.M{
			"balance":         1,
			"balance_version": 1,
			"recorded":        bson.M{"$size": "$recorded"},
		}}},
		{{Key: "$match", Value: bson.M{
			"$expr": bson.M{"$ne": bson.A{"$balance_version", "$recorded"}},
		}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	}
	if limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: int64(limit)}})
	}

	cur, err := r.users.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, convertErr(err, "finding ledger drift")
	}
	var rows []struct {
		ID             string          `bson:"_id"`
		Balance        bson.Decimal128 `bson:"balance"`
		BalanceVersion int64           `bson:"balance_version"`
		Recorded       int64           `bson:"recorded"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, convertErr(err, "finding ledger drift")
	}

	drift := make([]domain.LedgerDrift, len(rows))
	for i, row := range rows {
		drift[i] = domain.LedgerDrift{
			UserID:            row.ID,
			Balance:           fromDecimal128(row.Balance),
			BalanceVersion:    row.BalanceVersion,
			RecordedMutations: row.Recorded,
		}
	}
	return drift, nil
}

// FindUnsettledPayments ищет записи payment, заказ которых не оплачен и не возвращен, старые первыми.
func (r *TransactionRepository) FindUnsettledPayments(ctx context.Context, limit uint) ([]domain.Transaction, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"type": string(domain.TransactionTypePayment)}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         colOrders,
			"localField":   "reference_id",
			"foreignField": "_id",
			"as":           "order",
		}}},
		{{Key: "$match", Value: bson.M{
			"order.payment_status": bson.M{"$not": bson.M{"$in": bson.A{
				string(domain.PaymentStatusPaid),
				string(domain.PaymentStatusRefunded),
			}}},
		}}},
		{{Key: "$project", Value: bson.M{"order": 0}}},
		{{Key: "$sort", Value: bson.M{"seq": 1}}},
	}
	if limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: int64(limit)}})
	}

	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, convertErr(err, "finding unsettled payments")
	}
	var models []transactionModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, convertErr(err, "finding unsettled payments")
	}
	payments := make([]domain.Transaction, len(models))
	for i := range models {
		payments[i] = *fromTransactionModel(&models[i])
	}
	return payments, nil
}
