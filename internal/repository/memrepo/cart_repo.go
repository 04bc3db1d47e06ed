package memrepo

import (
	"context"
	"fmt"
	"slices"

	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/fsdevblog/groph-shop/internal/repository/repoargs"
)

type CartRepository struct {
	s  *Store
	tx *txConn
}

func (r *CartRepository) FindByUserID(_ context.Context, userID string) (*domain.Cart, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	cart, ok := r.s.carts[userID]
	if !ok {
		return nil, fmt.Errorf("[repository/finding cart of user %s] %w", userID, domain.ErrRecordNotFound)
	}
	cart.Items = slices.Clone(cart.Items)
	return &cart, nil
}

func (r *CartRepository) Save(_ context.Context, args repoargs.SaveCart) (*domain.Cart, error) {
	defer r.s.lockWrite(r.tx)()

	if _, ok := r.s.users[args.UserID]; !ok {
		return nil, fmt.Errorf("[repository/saving cart] %w: unknown user %s", domain.ErrPersistence, args.UserID)
	}
	cart := domain.Cart{
		UserID:    args.UserID,
		Items:     slices.Clone(args.Items),
		UpdatedAt: now(),
	}
	if cart.Items == nil {
		cart.Items = []domain.CartItem{}
	}
	put(r.tx, r.s.carts, cart.UserID, cart)

	cart.Items = slices.Clone(cart.Items)
	return &cart, nil
}
