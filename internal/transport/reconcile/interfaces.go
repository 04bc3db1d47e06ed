package reconcile

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/fsdevblog/groph-shop/internal/service"
)

type Servicer interface {
	Report(ctx context.Context, limit uint) (*service.ReconciliationReport, error)
	RefundCandidates(ctx context.Context, limit uint) ([]domain.Order, error)
	Refund(ctx context.Context, orderID string) (*domain.Order, error)
}
