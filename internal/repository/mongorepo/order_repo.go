package mongorepo

import (
	"context"
	"time"

	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/fsdevblog/groph-shop/internal/repository/repoargs"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type OrderRepository struct {
	col *mongo.Collection
}

func NewOrderRepository(db *mongo.Database) *OrderRepository {
	return &OrderRepository{col: db.Collection(colOrders)}
}

func (r *OrderRepository) Create(ctx context.Context, args repoargs.CreateOrder) (*domain.Order, error) {
	items := make([]orderItemModel, len(args.Items))
	for i, item := range args.Items {
		items[i] = orderItemModel{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     toDecimal128(item.Price),
			Name:      item.Name,
			Image:     item.Image,
		}
	}
	t := now()
	m := orderModel{
		ID:               uuid.NewString(),
		UserID:           args.UserID,
		Items:            items,
		TotalAmount:      toDecimal128(args.TotalAmount),
		Status:           string(domain.OrderStatusPending),
		PaymentStatus:    string(domain.PaymentStatusPending),
		ShippingAddress:  args.ShippingAddress,
		Note:             args.Note,
		UnrecordedDebits: []unrecordedDebitModel{},
		CreatedAt:        t,
		UpdatedAt:        t,
	}
	if _, err := r.col.InsertOne(ctx, m); err != nil {
		return nil, convertErr(err, "creating order")
	}
	return fromOrderModel(&m), nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	var m orderModel
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		return nil, convertErr(err, "finding order %s", id)
	}
	return fromOrderModel(&m), nil
}

func (r *OrderRepository) List(ctx context.Context, filter repoargs.OrderFilter) ([]domain.Order, int64, error) {
	query := bson.M{}
	if filter.UserID != "" {
		query["user_id"] = filter.UserID
	}
	if filter.Status != "" {
		query["status"] = string(filter.Status)
	}
	if filter.PaymentStatus != "" {
		query["payment_status"] = string(filter.PaymentStatus)
	}
	if filter.WithUnrecordedDebits {
		query["unrecorded_debits.0"] = bson.M{"$exists": true}
	}
	if filter.WithoutRefundRecord {
		query["refund_transaction_id"] = ""
	}

	total, err := r.col.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, convertErr(err, "counting orders")
	}

	sortBy := "created_at"
	if filter.SortBy == repoargs.OrderSortTotalAmount {
		sortBy = "total_amount"
	}
	direction := -1
	if filter.SortOrder == repoargs.SortAsc {
		direction = 1
	}
	opts := options.Find().SetSort(bson.D{{Key: sortBy, Value: direction}, {Key: "_id", Value: direction}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	if filter.Offset > 0 {
		opts.SetSkip(int64(filter.Offset))
	}

	cur, err := r.col.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, convertErr(err, "listing orders")
	}
	var models []orderModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, 0, convertErr(err, "listing orders")
	}
	orders := make([]domain.Order, len(models))
	for i := range models {
		orders[i] = *fromOrderModel(&models[i])
	}
	return orders, total, nil
}

func (r *OrderRepository) ClaimCheckout(ctx context.Context, claim repoargs.ClaimCheckout) (*domain.Order, error) {
	filter := bson.M{
		"_id":            claim.OrderID,
		"status":         string(domain.OrderStatusPending),
		"payment_status": bson.M{"$in": bson.A{string(domain.PaymentStatusPending), string(domain.PaymentStatusFailed)}},
		"$or":            noLiveAttempt(claim.StaleBefore),
	}
	update := bson.M{"$set": bson.M{
		"payment_attempt_id": claim.AttemptID,
		"payment_attempt_at": claim.At,
		"updated_at":         now(),
	}}
	return r.findAndModify(ctx, filter, update, "claiming checkout of order %s", claim.OrderID)
}

func (r *OrderRepository) ClaimRefund(ctx context.Context, claim repoargs.ClaimRefund) (*domain.Order, error) {
	filter := bson.M{
		"_id":            claim.OrderID,
		"status":         string(domain.OrderStatusFailed),
		"payment_status": string(domain.PaymentStatusPaid),
		"$or": bson.A{
			bson.M{"refund_claimed_at": nil},
			bson.M{"refund_claimed_at": bson.M{"$lt": claim.StaleBefore}},
		},
	}
	update := bson.M{"$set": bson.M{"refund_claimed_at": claim.At, "updated_at": now()}}
	return r.findAndModify(ctx, filter, update, "claiming refund of order %s", claim.OrderID)
}

func (r *OrderRepository) Transition(ctx context.Context, tr repoargs.OrderTransition) (*domain.Order, error) {
	filter := bson.M{"_id": tr.OrderID}
	if tr.AttemptID != "" {
		filter["payment_attempt_id"] = tr.AttemptID
	}
	if len(tr.FromStatus) > 0 {
		statuses := make(bson.A, len(tr.FromStatus))
		for i, s := range tr.FromStatus {
			statuses[i] = string(s)
		}
		filter["status"] = bson.M{"$in": statuses}
	}
	if len(tr.FromPayment) > 0 {
		statuses := make(bson.A, len(tr.FromPayment))
		for i, s := range tr.FromPayment {
			statuses[i] = string(s)
		}
		filter["payment_status"] = bson.M{"$in": statuses}
	}
	if !tr.StaleBefore.IsZero() {
		filter["$or"] = noLiveAttempt(tr.StaleBefore)
	}

	set := bson.M{"updated_at": now()}
	if tr.Status != "" {
		set["status"] = string(tr.Status)
		if col := repoargs.StatusTimestampColumn(tr.Status); col != "" {
			set[col] = tr.At
		}
	}
	if tr.PaymentStatus != "" {
		set["payment_status"] = string(tr.PaymentStatus)
		if tr.PaymentStatus == domain.PaymentStatusPaid {
			set["paid_at"] = tr.At
		}
	}
	if tr.TransactionID != "" {
		set["transaction_id"] = tr.TransactionID
	}
	if tr.RefundTransactionID != "" {
		set["refund_transaction_id"] = tr.RefundTransactionID
	}
	if tr.TrackingNumber != "" {
		set["tracking_number"] = tr.TrackingNumber
	}
	if tr.FailureReason != "" {
		set["failure_reason"] = tr.FailureReason
	}
	if tr.ReleaseAttempt {
		set["payment_attempt_id"] = ""
		set["payment_attempt_at"] = nil
	}
	switch {
	case tr.RefundCreditSet:
		set["refund_credit_at"] = tr.At
	case tr.RefundCreditClear:
		set["refund_credit_at"] = nil
	}

	update := bson.M{"$set": set}
	if tr.UnrecordedDebit != nil {
		update["$push"] = bson.M{"unrecorded_debits": toUnrecordedDebitModel(*tr.UnrecordedDebit)}
	}
	return r.findAndModify(ctx, filter, update, "transitioning order %s", tr.OrderID)
}

func (r *OrderRepository) findAndModify(
	ctx context.Context,
	filter, update bson.M,
	format string,
	args ...any,
) (*domain.Order, error) {
	var m orderModel
	err := r.col.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&m)
	if err != nil {
		return nil, convertErr(err, format, args...)
	}
	return fromOrderModel(&m), nil
}

// noLiveAttempt условие отсутствия попытки оплаты, начатой после staleBefore.
func noLiveAttempt(staleBefore time.Time) bson.A {
	return bson.A{
		bson.M{"payment_attempt_id": ""},
		bson.M{"payment_attempt_at": nil},
		bson.M{"payment_attempt_at": bson.M{"$lt": staleBefore}},
	}
}

// Stats считает сводку одной агрегацией. На пустой выборке $group не возвращает документов.
func (r *OrderRepository) Stats(ctx context.Context, userID string) (*domain.OrderStats, error) {
	countStatus := func(status domain.OrderStatus) bson.M {
		return bson.M{"$sum": bson.M{"$cond": bson.A{bson.M{"$eq": bson.A{"$status", string(status)}}, 1, 0}}}
	}
	var pipeline mongo.Pipeline
	if userID != "" {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: bson.M{"user_id": userID}}})
	}
	pipeline = append(pipeline, bson.D{{Key: "$group", Value: bson.M{
		"_id":              nil,
		"total_orders":     bson.M{"$sum": 1},
		"total_amount":     bson.M{"$sum": "$total_amount"},
		"pending_orders":   countStatus(domain.OrderStatusPending),
		"completed_orders": countStatus(domain.OrderStatusDelivered),
		"cancelled_orders": countStatus(domain.OrderStatusCancelled),
	}}})

	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, convertErr(err, "counting order stats")
	}
	var models []orderStatsModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, convertErr(err, "counting order stats")
	}
	if len(models) == 0 {
		return &domain.OrderStats{TotalAmount: decimal.Zero}, nil
	}
	m := models[0]
	return &domain.OrderStats{
		TotalOrders:     m.TotalOrders,
		TotalAmount:     fromDecimal128(m.TotalAmount),
		PendingOrders:   m.PendingOrders,
		CompletedOrders: m.CompletedOrders,
		CancelledOrders: m.CancelledOrders,
	}, nil
}
