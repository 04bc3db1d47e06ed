package mongorepo

import (
	"context"

	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/fsdevblog/groph-shop/internal/repository/repoargs"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// CartRepository хранит одну корзину на пользователя, _id документа - id пользователя.
type CartRepository struct {
	col *mongo.Collection
}

func NewCartRepository(db *mongo.Database) *CartRepository {
	return &CartRepository{col: db.Collection(colCarts)}
}

func (r *CartRepository) FindByUserID(ctx context.Context, userID string) (*domain.Cart, error) {
	var m cartModel
	if err := r.col.FindOne(ctx, bson.M{"_id": userID}).Decode(&m); err != nil {
		return nil, convertErr(err, "finding cart of user %s", userID)
	}
	return fromCartModel(&m), nil
}

func (r *CartRepository) Save(ctx context.Context, args repoargs.SaveCart) (*domain.Cart, error) {
	items := make([]cartItemModel, len(args.Items))
	for i, item := range args.Items {
		items[i] = cartItemModel(item)
	}
	m := cartModel{UserID: args.UserID, Items: items, UpdatedAt: now()}

	var saved cartModel
	err := r.col.FindOneAndReplace(ctx,
		bson.M{"_id": args.UserID},
		m,
		options.FindOneAndReplace().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&saved)
	if err != nil {
		return nil, convertErr(err, "saving cart of user %s", args.UserID)
	}
	return fromCartModel(&saved), nil
}
