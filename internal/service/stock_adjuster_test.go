package service

import (
	"errors"
	"testing"

	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/fsdevblog/groph-shop/internal/repository/repoargs"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
)

func TestStockAdjuster_ClassifiesMiss(t *testing.T) {
	cases := []struct {
		name    string
		current *domain.Product
		findErr error
		active  bool
		wantErr error
	}{
		{
			name:    "inactive product",
			current: &domain.Product{ID: "p1", Stock: 10, Status: domain.ProductStatusInactive},
			active:  true,
			wantErr: domain.ErrProductUnavailable,
		},
		{
			name:    "not enough stock",
			current: &domain.Product{ID: "p1", Stock: 1, Status: domain.ProductStatusActive},
			active:  true,
			wantErr: domain.ErrInsufficientStock,
		},
		{
			name:    "missing product",
			findErr: domain.ErrRecordNotFound,
			wantErr: domain.ErrRecordNotFound,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := newRepoMocks(t)
			args := repoargs.StockAdjustment{
				ProductID: "p1", Quantity: 2, Direction: domain.DirectionDebit, RequireActive: tc.active,
			}
			m.products.EXPECT().AdjustStock(gomock.Any(), args).Return(nil, domain.ErrRecordNotFound)
			m.products.EXPECT().FindByID(gomock.Any(), "p1").Return(tc.current, tc.findErr)

			_, err := NewStockAdjuster(m.products).Adjust(t.Context(), args)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestStockAdjuster_RejectsBadInput(t *testing.T) {
	adjuster := NewStockAdjuster(nil)
	_, err := adjuster.Adjust(t.Context(), repoargs.StockAdjustment{ProductID: "p1", Direction: domain.DirectionDebit})
	require.ErrorIs(t, err, domain.ErrValidation)
	_, err = adjuster.Adjust(t.Context(), repoargs.StockAdjustment{ProductID: "p1", Quantity: 1, Direction: "up"})
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestStockAdjuster_NeverOversells(t *testing.T) {
	env := newMemEnv(t)
	product := env.product(t, "1.00", 7)
	adjuster := env.services.CheckoutService.adjuster

	var sold atomic.Int64
	g, ctx := errgroup.WithContext(t.Context())
	for range 20 {
		g.Go(func() error {
			_, err := adjuster.Adjust(ctx, repoargs.StockAdjustment{
				ProductID: product.ID, Quantity: 2, Direction: domain.DirectionDebit, RequireActive: true,
			})
			if err == nil {
				sold.Add(2)
				return nil
			}
			if errors.Is(err, domain.ErrInsufficientStock) {
				return nil
			}
			return err
		})
	}
	require.NoError(t, g.Wait())

	current, err := env.services.ProductService.Get(t.Context(), product.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(6), sold.Load())
	assert.Equal(t, int64(1), current.Stock)
}
