package pgrepo

import (
	"context"

	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/fsdevblog/groph-shop/internal/repository/repoargs"
	"github.com/fsdevblog/groph-shop/pkg/uow"
	"github.com/jackc/pgx/v5"
)

type cartItemRow struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

type CartRepository struct {
	conn uow.DBTX
}

func NewCartRepository(conn uow.DBTX) *CartRepository {
	return &CartRepository{conn: conn}
}

func (r *CartRepository) FindByUserID(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := scanCart(r.conn.QueryRow(ctx, `SELECT user_id, items, updated_at FROM carts WHERE user_id = $1`, userID))
	if err != nil {
		return nil, convertErr(err, "finding cart of user %s", userID)
	}
	return cart, nil
}

// Save заменяет корзину целиком через upsert по user_id.
func (r *CartRepository) Save(ctx context.Context, args repoargs.SaveCart) (*domain.Cart, error) {
	items := make([]cartItemRow, len(args.Items))
	for i, item := range args.Items {
		items[i] = cartItemRow(item)
	}
	row := r.conn.QueryRow(ctx,
		`INSERT INTO carts (user_id, items, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (user_id) DO UPDATE SET items = EXCLUDED.items, updated_at = EXCLUDED.updated_at
		RETURNING user_id, items, updated_at`,
		args.UserID, items,
	)
	cart, err := scanCart(row)
	if err != nil {
		return nil, convertErr(err, "saving cart of user %s", args.UserID)
	}
	return cart, nil
}

func scanCart(row pgx.Row) (*domain.Cart, error) {
	var cart domain.Cart
	var items []cartItemRow
	if err := row.Scan(&cart.UserID, &items, &cart.UpdatedAt); err != nil {
		return nil, err //nolint:wrapcheck
	}
	cart.Items = make([]domain.CartItem, len(items))
	for i, item := range items {
		cart.Items[i] = domain.CartItem(item)
	}
	return &cart, nil
}
