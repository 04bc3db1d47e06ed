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

type ProductRepository struct {
	col *mongo.Collection
}

func NewProductRepository(db *mongo.Database) *ProductRepository {
	return &ProductRepository{col: db.Collection(colProducts)}
}

func (r *ProductRepository) Create(ctx context.Context, args repoargs.CreateProduct) (*domain.Product, error) {
	t := now()
	images := args.Images
	if images == nil {
		images = []string{}
	}
	m := productModel{
		ID:          uuid.NewString(),
		Name:        args.Name,
		Description: args.Description,
		SKU:         args.SKU,
		Category:    args.Category,
		Images:      images,
		Price:       toDecimal128(args.Price),
		Stock:       args.Stock,
		Status:      string(args.Status),
		CreatedAt:   t,
		UpdatedAt:   t,
	}
	if _, err := r.col.InsertOne(ctx, m); err != nil {
		return nil, convertErr(err, "creating product")
	}
	return fromProductModel(&m), nil
}

func (r *ProductRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	var m productModel
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		return nil, convertErr(err, "finding product %s", id)
	}
	return fromProductModel(&m), nil
}

func (r *ProductRepository) FindByIDs(ctx context.Context, ids []string) ([]domain.Product, error) {
	if len(ids) == 0 {
		return []domain.Product{}, nil
	}
	cur, err := r.col.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, convertErr(err, "finding products")
	}
	var models []productModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, convertErr(err, "finding products")
	}
	products := make([]domain.Product, len(models))
	for i := range models {
		products[i] = *fromProductModel(&models[i])
	}
	return products, nil
}

func (r *ProductRepository) AdjustStock(
	ctx context.Context,
	args repoargs.StockAdjustment,
) (*domain.Product, error) {
	filter := bson.M{"_id": args.ProductID}
	delta := args.Quantity
	if args.Direction == domain.DirectionDebit {
		filter["stock"] = bson.M{"$gte": args.Quantity}
		delta = -args.Quantity
	}
	if args.RequireActive {
		filter["status"] = string(domain.ProductStatusActive)
	}

	var m productModel
	err := r.col.FindOneAndUpdate(ctx, filter,
		bson.M{
			"$inc": bson.M{"stock": delta},
			"$set": bson.M{"updated_at": now()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&m)
	if err != nil {
		return nil, convertErr(err, "adjusting stock of product %s", args.ProductID)
	}
	return fromProductModel(&m), nil
}

func (r *ProductRepository) UpdateStatus(
	ctx context.Context,
	id string,
	status domain.ProductStatus,
) (*domain.Product, error) {
	var m productModel
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"status": string(status), "updated_at": now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&m)
	if err != nil {
		return nil, convertErr(err, "updating product %s status", id)
	}
	return fromProductModel(&m), nil
}

func (r *ProductRepository) Update(ctx context.Context, args repoargs.UpdateProduct) (*domain.Product, error) {
	set := bson.M{"updated_at": now()}
	if args.Name != nil {
		set["name"] = *args.Name
	}
	if args.Description != nil {
		set["description"] = *args.Description
	}
	if args.SKU != nil {
		set["sku"] = *args.SKU
	}
	if args.Category != nil {
		set["category"] = *args.Category
	}
	if args.Images != nil {
		set["images"] = args.Images
	}
	if args.Price != nil {
		set["price"] = toDecimal128(*args.Price)
	}
	if args.Status != nil {
		set["status"] = string(*args.Status)
	}

	var m productModel
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"_id": args.ID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&m)
	if err != nil {
		return nil, convertErr(err, "updating product %s", args.ID)
	}
	return fromProductModel(&m), nil
}
