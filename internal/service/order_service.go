package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/fsdevblog/groph-shop/internal/repository/repoargs"
	"github.com/fsdevblog/groph-shop/pkg/uow"
	"github.com/shopspring/decimal"
)

const minShippingAddressLen = 10

type OrderService struct {
	uow       uow.UOW
	orderRepo OrderRepository
	txRepo    TransactionRepository
	lease     time.Duration
	now       func() time.Time
}

func NewOrderService(u uow.UOW, checkoutLease time.Duration) (*OrderService, error) {
	orderRepo, err := uow.GetRepositoryAs[OrderRepository](u, uow.RepositoryName(repoargs.OrderRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	txRepo, err := uow.GetRepositoryAs[TransactionRepository](u, uow.RepositoryName(repoargs.TransactionRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	if checkoutLease <= 0 {
		checkoutLease = DefaultCheckoutLease
	}
	return &OrderService{
		uow:       u,
		orderRepo: orderRepo,
		txRepo:    txRepo,
		lease:     checkoutLease,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

type OrderItemArgs struct {
	ProductID string
	Quantity  int64
}

type CreateOrderArgs struct {
	UserID          string
	Items           []OrderItemArgs
	ShippingAddress string
	Note            string
}

// Create создает заказ в статусе pending. Цена, название и первая картинка товара копируются в позицию
// заказа, чтобы последующие правки каталога не меняли историю.
//
// Чтение товаров и вставка заказа выполняются в одной единице работы.
func (s *OrderService) Create(ctx context.Context, args CreateOrderArgs) (*domain.Order, error) {
	if err := validateCreateOrder(args); err != nil {
		return nil, fmt.Errorf("creating order: %w", err)
	}

	var order *domain.Order
	txErr := s.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		productRepo, err := uow.GetAs[ProductRepository](tx, uow.RepositoryName(repoargs.ProductRepoName))
		if err != nil {
			return err //nolint:wrapcheck
		}
		orderRepo, err := uow.GetAs[OrderRepository](tx, uow.RepositoryName(repoargs.OrderRepoName))
		if err != nil {
			return err //nolint:wrapcheck
		}

		ids := make([]string, len(args.Items))
		for i, item := range args.Items {
			ids[i] = item.ProductID
		}
		products, err := productRepo.FindByIDs(c, ids)
		if err != nil {
			return err //nolint:wrapcheck
		}

		items, total, err := snapshotItems(args.Items, products)
		if err != nil {
			return err
		}

		order, err = orderRepo.Create(c, repoargs.CreateOrder{
			UserID:          args.UserID,
			Items:           items,
			TotalAmount:     total,
			ShippingAddress: strings.TrimSpace(args.ShippingAddress),
			Note:            args.Note,
		})
		return err //nolint:wrapcheck
	})
	if txErr != nil {
		return nil, fmt.Errorf("creating order: %w", txErr)
	}
	return order, nil
}

func validateCreateOrder(args CreateOrderArgs) error {
	if len(args.Items) == 0 {
		return domain.NewValidationError("items", "must not be empty")
	}
	seen := make(map[string]struct{}, len(args.Items))
	for _, item := range args.Items {
		if item.ProductID == "" {
			return domain.NewValidationError("items.product_id", "must not be empty")
		}
		if item.Quantity <= 0 {
			return domain.NewValidationError("items.quantity", "must be greater than zero")
		}
		if _, ok := seen[item.ProductID]; ok {
			return domain.NewValidationError("items", "products must be unique")
		}
		seen[item.ProductID] = struct{}{}
	}
	if utf8.RuneCountInString(strings.TrimSpace(args.ShippingAddress)) < minShippingAddressLen {
		return domain.NewValidationError("shipping_address",
			fmt.Sprintf("must be at least %d characters", minShippingAddressLen))
	}
	return nil
}

// snapshotItems проверяет доступность товаров и собирает позиции заказа с общей суммой.
func snapshotItems(
	requested []OrderItemArgs,
	products []domain.Product,
) ([]domain.OrderItem, decimal.Decimal, error) {
	byID := productsByID(products)

	items := make([]domain.OrderItem, 0, len(requested))
	total := decimal.Zero
	for _, req := range requested {
		p, ok := byID[req.ProductID]
		if !ok {
			return nil, decimal.Zero, fmt.Errorf("product %s: %w", req.ProductID, domain.ErrRecordNotFound)
		}
		if p.Status != domain.ProductStatusActive {
			return nil, decimal.Zero, fmt.Errorf("product %s: %w", p.ID, domain.ErrProductUnavailable)
		}
		if p.Stock < req.Quantity {
			return nil, decimal.Zero, fmt.Errorf("product %s (have %d, want %d): %w",
				p.ID, p.Stock, req.Quantity, domain.ErrInsufficientStock)
		}
		item := domain.OrderItem{
			ProductID: p.ID,
			Quantity:  req.Quantity,
			Price:     domain.Quantize(p.Price),
			Name:      p.Name,
		}
		if len(p.Images) > 0 {
			item.Image = p.Images[0]
		}
		items = append(items, item)
		total = total.Add(item.Subtotal())
	}
	return items, domain.Quantize(total), nil
}

// Get возвращает заказ пользователя. Чужой заказ неотличим от несуществующего.
func (s *OrderService) Get(ctx context.Context, orderID, userID string) (*domain.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("getting order: %w", err)
	}
	if userID != "" && order.UserID != userID {
		return nil, fmt.Errorf("getting order %s: %w", orderID, domain.ErrRecordNotFound)
	}
	return order, nil
}

type ListOrdersArgs struct {
	UserID        string
	Status        domain.OrderStatus
	PaymentStatus domain.PaymentStatus
	SortBy        repoargs.OrderSortField
	SortOrder     repoargs.SortOrder
	Limit         uint
	Offset        uint
}

func (s *OrderService) List(ctx context.Context, args ListOrdersArgs) ([]domain.Order, int64, error) {
	if args.Status != "" && !args.Status.Valid() {
		return nil, 0, domain.NewValidationError("status", "unknown order status")
	}
	if args.PaymentStatus != "" && !args.PaymentStatus.Valid() {
		return nil, 0, domain.NewValidationError("payment_status", "unknown payment status")
	}
	orders, total, err := s.orderRepo.List(ctx, repoargs.OrderFilter{
		UserID:        args.UserID,
		Status:        args.Status,
		PaymentStatus: args.PaymentStatus,
		SortBy:        args.SortBy,
		SortOrder:     args.SortOrder,
		Limit:         args.Limit,
		Offset:        args.Offset,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("listing orders: %w", err)
	}
	return orders, total, nil
}

// Stats сводка по заказам пользователя. Пустой userID - по всем заказам.
func (s *OrderService) Stats(ctx context.Context, userID string) (*domain.OrderStats, error) {
	stats, err := s.orderRepo.Stats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("getting order stats: %w", err)
	}
	return stats, nil
}

// Cancel отменяет заказ пользователя. Отмена возможна только из pending, пока заказ не оплачен и по нему
// не идет оплата. Заказ с записанным платежом считается оплаченным, даже если его статус оплаты
// еще не обновлен: такой заказ дооформляет повторный checkout.
func (s *OrderService) Cancel(ctx context.Context, orderID, userID string) (*domain.Order, error) {
	order, err := s.Get(ctx, orderID, userID)
	if err != nil {
		return nil, fmt.Errorf("cancelling order: %w", err)
	}
	if err := s.cancellable(order); err != nil {
		return nil, fmt.Errorf("cancelling order %s: %w", orderID, err)
	}
	_, err = s.txRepo.FindByReference(ctx, order.UserID, orderID, domain.TransactionTypePayment)
	if err == nil {
		return nil, fmt.Errorf("cancelling order %s: %w", orderID, domain.ErrAlreadyPaid)
	}
	if !errors.Is(err, domain.ErrRecordNotFound) {
		return nil, fmt.Errorf("cancelling order %s: %w", orderID, err)
	}

	at := s.now()
	cancelled, err := s.orderRepo.Transition(ctx, repoargs.OrderTransition{
		OrderID:     orderID,
		FromStatus:  []domain.OrderStatus{domain.OrderStatusPending},
		FromPayment: []domain.PaymentStatus{domain.PaymentStatusPending, domain.PaymentStatusFailed},
		StaleBefore: at.Add(-s.lease),
		Status:      domain.OrderStatusCancelled,
		At:          at,
	})
	if err == nil {
		return cancelled, nil
	}
	if !errors.Is(err, domain.ErrRecordNotFound) {
		return nil, fmt.Errorf("cancelling order %s: %w", orderID, err)
	}

	// заказ изменился между чтением и обновлением
	current, findErr := s.orderRepo.FindByID(ctx, orderID)
	if findErr != nil {
		return nil, fmt.Errorf("cancelling order %s: %w", orderID, findErr)
	}
	if stateErr := s.cancellable(current); stateErr != nil {
		return nil, fmt.Errorf("cancelling order %s: %w", orderID, stateErr)
	}
	return nil, fmt.Errorf("cancelling order %s: %w", orderID, domain.ErrConcurrentModification)
}

func (s *OrderService) cancellable(order *domain.Order) error {
	switch {
	case order.PaymentStatus == domain.PaymentStatusPaid:
		return domain.ErrAlreadyPaid
	case order.Status != domain.OrderStatusPending || !order.PaymentStatus.Payable():
		return domain.ErrOrderNotPending
	case hasLiveAttempt(order, s.now().Add(-s.lease)):
		return domain.ErrCheckoutInProgress
	}
	return nil
}

// adminStatuses статусы, в которые заказ переводит администратор.
var adminStatuses = map[domain.OrderStatus]struct{}{
	domain.OrderStatusProcessing: {},
	domain.OrderStatusShipped:    {},
	domain.OrderStatusDelivered:  {},
}

type UpdateOrderStatusArgs struct {
	OrderID        string
	Status         domain.OrderStatus
	TrackingNumber string
}

// UpdateStatus двигает оплаченный заказ по этапам доставки: confirmed -> processing -> shipped -> delivered.
func (s *OrderService) UpdateStatus(ctx context.Context, args UpdateOrderStatusArgs) (*domain.Order, error) {
	if _, ok := adminStatuses[args.Status]; !ok {
		return nil, fmt.Errorf("updating order status: %w", domain.ErrInvalidTransition)
	}
	if args.TrackingNumber != "" && args.Status != domain.OrderStatusShipped {
		return nil, domain.NewValidationError("tracking_number", "allowed only for shipped status")
	}

	order, err := s.orderRepo.FindByID(ctx, args.OrderID)
	if err != nil {
		return nil, fmt.Errorf("updating order status: %w", err)
	}
	if !order.Status.CanTransitionTo(args.Status) {
		return nil, fmt.Errorf("updating order %s status %s -> %s: %w",
			order.ID, order.Status, args.Status, domain.ErrInvalidTransition)
	}

	updated, err := s.orderRepo.Transition(ctx, repoargs.OrderTransition{
		OrderID:        order.ID,
		FromStatus:     []domain.OrderStatus{order.Status},
		Status:         args.Status,
		TrackingNumber: args.TrackingNumber,
		At:             s.now(),
	})
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return nil, fmt.Errorf("updating order %s status: %w", order.ID, domain.ErrConcurrentModification)
		}
		return nil, fmt.Errorf("updating order %s status: %w", order.ID, err)
	}
	return updated, nil
}

// hasLiveAttempt сообщает, идет ли по заказу оплата, начатая после staleBefore.
func hasLiveAttempt(order *domain.Order, staleBefore time.Time) bool {
	return order.PaymentAttemptID != "" && order.PaymentAttemptAt != nil &&
		!order.PaymentAttemptAt.Before(staleBefore)
}
