package service

import (
	"context"
	"testing"
	"time"

	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/fsdevblog/groph-shop/internal/repository/repoargs"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBalanceMutator_Mutate(t *testing.T) {
	cases := []struct {
		name      string
		expected  string
		delta     string
		direction domain.DirectionType
		wantNew   string
		swapErr   error
		wantErr   error
	}{
		{name: "credit", expected: "10.00", delta: "5.255", direction: domain.DirectionCredit, wantNew: "15.26"},
		{name: "debit to zero", expected: "40.00", delta: "40", direction: domain.DirectionDebit, wantNew: "0.00"},
		{
			name: "lock lost", expected: "40.00", delta: "1", direction: domain.DirectionDebit, wantNew: "39.00",
			swapErr: domain.ErrConcurrentModification, wantErr: domain.ErrConcurrentModification,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := newRepoMocks(t)
			m.users.EXPECT().SwapBalance(gomock.Any(), gomock.Any()).DoAndReturn(
				func(_ context.Context, swap repoargs.BalanceSwap) (*domain.BalanceChange, error) {
					assert.Equal(t, tc.expected, swap.Expected.StringFixed(2))
					assert.Equal(t, tc.wantNew, swap.New.StringFixed(2))
					if tc.swapErr != nil {
						return nil, tc.swapErr
					}
					return &domain.BalanceChange{UserID: swap.UserID, Balance: swap.New, Version: 1, UpdatedAt: time.Now()}, nil
				})

			change, err := NewBalanceMutator(m.users).Mutate(t.Context(), repoargs.BalanceMutation{
				UserID:    "u1",
				Expected:  decimal.RequireFromString(tc.expected),
				Delta:     decimal.RequireFromString(tc.delta),
				Direction: tc.direction,
			})
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantNew, change.Balance.StringFixed(2))
		})
	}
}

func TestBalanceMutator_RejectsWithoutWrite(t *testing.T) {
	cases := []struct {
		name    string
		args    repoargs.BalanceMutation
		wantErr error
	}{
		{
			name: "overdraft",
			args: repoargs.BalanceMutation{
				UserID: "u1", Expected: decimal.NewFromInt(10), Delta: decimal.NewFromInt(40),
				Direction: domain.DirectionDebit,
			},
			wantErr: domain.ErrInsufficientBalance,
		},
		{
			name: "rounds to zero",
			args: repoargs.BalanceMutation{
				UserID: "u1", Expected: decimal.NewFromInt(10), Delta: decimal.RequireFromString("0.004"),
				Direction: domain.DirectionCredit,
			},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name: "unknown direction",
			args: repoargs.BalanceMutation{
				UserID: "u1", Expected: decimal.NewFromInt(10), Delta: decimal.NewFromInt(1),
			},
			wantErr: domain.ErrValidation,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := newRepoMocks(t)
			// SwapBalance не ожидается: gomock упадет при любом вызове
			_, err := NewBalanceMutator(m.users).Mutate(t.Context(), tc.args)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}
