package mongorepo

import (
	"context"
	"fmt"
	"regexp"

	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/fsdevblog/groph-shop/internal/repository/repoargs"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type UserRepository struct {
	col *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{col: db.Collection(colUsers)}
}

func (r *UserRepository) CreateUser(ctx context.Context, args repoargs.CreateUser) (*domain.User, error) {
	role := args.Role
	if role == "" {
		role = domain.RoleUser
	}
	t := now()
	m := userModel{
		ID:        uuid.NewString(),
		Username:  args.Username,
		Password:  args.Password,
		Role:      string(role),
		Balance:   toDecimal128(decimal.Zero),
		CreatedAt: t,
		UpdatedAt: t,
	}
	if _, err := r.col.InsertOne(ctx, m); err != nil {
		return nil, convertErr(err, "creating user")
	}
	return fromUserModel(&m), nil
}

func (r *UserRepository) FindUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	var m userModel
	if err := r.col.FindOne(ctx, bson.M{"username": username}).Decode(&m); err != nil {
		return nil, convertErr(err, "finding user by username %s", username)
	}
	return fromUserModel(&m), nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	var m userModel
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		return nil, convertErr(err, "finding user %s", id)
	}
	return fromUserModel(&m), nil
}

// SwapBalance findOneAndUpdate с фильтром по текущему балансу. Отсутствие документа под фильтр -
// потеря блокировки.
func (r *UserRepository) SwapBalance(ctx context.Context, swap repoargs.BalanceSwap) (*domain.BalanceChange, error) {
	var m userModel
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"_id": swap.UserID, "balance": toDecimal128(swap.Expected)},
		bson.M{
			"$set": bson.M{"balance": toDecimal128(swap.New), "updated_at": now()},
			"$inc": bson.M{"balance_version": 1},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("[repository/swapping balance of user %s] %w",
				swap.UserID, domain.ErrConcurrentModification)
		}
		return nil, convertErr(err, "swapping balance of user %s", swap.UserID)
	}
	return &domain.BalanceChange{
		UserID:    m.ID,
		Balance:   fromDecimal128(m.Balance),
		Version:   m.BalanceVersion,
		UpdatedAt: m.UpdatedAt,
	}, nil
}

func (r *UserRepository) UpdateUser(ctx context.Context, args repoargs.UpdateUser) (*domain.User, error) {
	set := bson.M{"updated_at": now()}
	if args.Name != nil {
		set["name"] = *args.Name
	}
	if args.Avatar != nil {
		set["avatar"] = *args.Avatar
	}
	var m userModel
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"_id": args.ID, "deleted_at": nil},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&m)
	if err != nil {
		return nil, convertErr(err, "updating user %s", args.ID)
	}
	return fromUserModel(&m), nil
}

func (r *UserRepository) List(ctx context.Context, filter repoargs.UserFilter) ([]domain.User, int64, error) {
	query := bson.M{"deleted_at": nil}
	if filter.Role != "" {
		query["role"] = string(filter.Role)
	}
	if filter.Search != "" {
		pattern := bson.Regex{Pattern: regexp.QuoteMeta(filter.Search), Options: "i"}
		query["$or"] = bson.A{bson.M{"username": pattern}, bson.M{"name": pattern}}
	}

	total, err := r.col.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, convertErr(err, "counting users")
	}

	sortBy := "created_at"
	switch filter.SortBy {
	case repoargs.UserSortUsername:
		sortBy = "username"
	case repoargs.UserSortName:
		sortBy = "name"
	case repoargs.UserSortCreatedAt:
	}
	direction := 1
	if filter.SortOrder == repoargs.SortDesc {
		direction = -1
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
		return nil, 0, convertErr(err, "listing users")
	}
	var models []userModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, 0, convertErr(err, "listing users")
	}
	users := make([]domain.User, len(models))
	for i := range models {
		users[i] = *fromUserModel(&models[i])
	}
	return users, total, nil
}

func (r *UserRepository) SoftDelete(ctx context.Context, args repoargs.SoftDeleteUser) (*domain.User, error) {
	var m userModel
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"_id": args.ID, "deleted_at": nil},
		bson.M{"$set": bson.M{"deleted_at": args.At, "updated_at": args.At}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&m)
	if err != nil {
		return nil, convertErr(err, "deleting user %s", args.ID)
	}
	return fromUserModel(&m), nil
}
