package pgrepo

import (
	"context"

	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/fsdevblog/groph-shop/internal/repository/repoargs"
	"github.com/fsdevblog/groph-shop/pkg/uow"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const productColumns = `id, name, description, sku, category, images, price, stock, status, created_at, updated_at`

type ProductRepository struct {
	conn uow.DBTX
}

func NewProductRepository(conn uow.DBTX) *ProductRepository {
	return &ProductRepository{conn: conn}
}

func (r *ProductRepository) Create(ctx context.Context, p repoargs.CreateProduct) (*domain.Product, error) {
	images := p.Images
	if images == nil {
		images = []string{}
	}
	row := r.conn.QueryRow(ctx,
		`INSERT INTO products (id, name, description, sku, category, images, price, stock, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+productColumns,
		uuid.NewString(), p.Name, p.Description, p.SKU, p.Category, images, p.Price, p.Stock, string(p.Status),
	)
	product, err := scanProduct(row)
	if err != nil {
		return nil, convertErr(err, "creating product")
	}
	return product, nil
}

func (r *ProductRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	product, err := scanProduct(r.conn.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		return nil, convertErr(err, "finding product %s", id)
	}
	return product, nil
}

func (r *ProductRepository) FindByIDs(ctx context.Context, ids []string) ([]domain.Product, error) {
	rows, err := r.conn.Query(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, convertErr(err, "finding products")
	}
	products, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Product, error) {
		p, scanErr := scanProduct(row)
		if scanErr != nil {
			return domain.Product{}, scanErr
		}
		return *p, nil
	})
	if err != nil {
		return nil, convertErr(err, "finding products")
	}
	return products, nil
}

// AdjustStock изменяет остаток одним условным UPDATE. Если условие не выполнено, RETURNING не вернет строк
// и ошибка будет domain.ErrRecordNotFound.
func (r *ProductRepository) AdjustStock(ctx context.Context, a repoargs.StockAdjustment) (*domain.Product, error) {
	delta := a.Quantity
	if a.Direction == domain.DirectionDebit {
		delta = -a.Quantity
	}
	row := r.conn.QueryRow(ctx,
		`UPDATE products
		SET stock = stock + $2, updated_at = now()
		WHERE id = $1 AND stock + $2 >= 0 AND (NOT $3 OR status = 'active')
		RETURNING `+productColumns,
		a.ProductID, delta, a.RequireActive,
	)
	product, err := scanProduct(row)
	if err != nil {
		return nil, convertErr(err, "adjusting stock of product %s", a.ProductID)
	}
	return product, nil
}

func (r *ProductRepository) UpdateStatus(
	ctx context.Context,
	id string,
	status domain.ProductStatus,
) (*domain.Product, error) {
	row := r.conn.QueryRow(ctx,
		`UPDATE products SET status = $2, updated_at = now() WHERE id = $1 RETURNING `+productColumns,
		id, string(status),
	)
	product, err := scanProduct(row)
	if err != nil {
		return nil, convertErr(err, "updating product %s status", id)
	}
	return product, nil
}

func (r *ProductRepository) Update(ctx context.Context, args repoargs.UpdateProduct) (*domain.Product, error) {
	b := newUpdateBuilder("products", args.ID)
	if args.Name != nil {
		b.set("name", *args.Name)
	}
	if args.Description != nil {
		b.set("description", *args.Description)
	}
	if args.SKU != nil {
		b.set("sku", *args.SKU)
	}
	if args.Category != nil {
		b.set("category", *args.Category)
	}
	if args.Images != nil {
		b.set("images", args.Images)
	}
	if args.Price != nil {
		b.set("price", *args.Price)
	}
	if args.Status != nil {
		b.set("status", string(*args.Status))
	}

	query, queryArgs := b.build(productColumns)
	product, err := scanProduct(r.conn.QueryRow(ctx, query, queryArgs...))
	if err != nil {
		return nil, convertErr(err, "updating product %s", args.ID)
	}
	return product, nil
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	var status string
	if err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.SKU,
		&p.Category,
		&p.Images,
		&p.Price,
		&p.Stock,
		&status,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err //nolint:wrapcheck
	}
	p.Status = domain.ProductStatus(status)
	return &p, nil
}
