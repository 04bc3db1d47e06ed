package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/fsdevblog/groph-shop/internal/repository/repoargs"
	"github.com/fsdevblog/groph-shop/internal/service"
	"github.com/gin-gonic/gin"
)

type OrdersHandler struct {
	orderSvs    OrderServicer
	checkoutSvs CheckoutServicer
}

func NewOrdersHandler(orderSvs OrderServicer, checkoutSvs CheckoutServicer) *OrdersHandler {
	return &OrdersHandler{
		orderSvs:    orderSvs,
		checkoutSvs: checkoutSvs,
	}
}

type OrderItemParams struct {
	ProductID string `binding:"required,max_bytes=64" json:"product_id"`
	Quantity  int64  `binding:"required,min=1"        json:"quantity"`
}

type CreateOrderParams struct {
	Items           []OrderItemParams `binding:"required,min=1,max=100,dive"       json:"items"`
	ShippingAddress string            `binding:"required,max=500,max_bytes=2000"   json:"shipping_address"`
	Note            string            `binding:"omitempty,max=1000,max_bytes=4000" json:"note"`
}

// Create POST RouteGroup + OrdersRoute.
func (o *OrdersHandler) Create(c *gin.Context) {
	currentUserID := getUserIDFromContext(c)

	var params CreateOrderParams
	if !bindJSON(c, &params) {
		return
	}

	items := make([]service.OrderItemArgs, len(params.Items))
	for i, item := range params.Items {
		items[i] = service.OrderItemArgs{ProductID: item.ProductID, Quantity: item.Quantity}
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	order, err := o.orderSvs.Create(reqCtx, service.CreateOrderArgs{
		UserID:          currentUserID,
		Items:           items,
		ShippingAddress: params.ShippingAddress,
		Note:            params.Note,
	})
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newOrderResponse(order))
}

type OrdersQuery struct {
	PageQuery
	Status        domain.OrderStatus   `form:"status"`
	PaymentStatus domain.PaymentStatus `form:"payment_status"`
	SortBy        string               `binding:"omitempty,oneof=created_at total_amount" form:"sort_by"`
	SortOrder     string               `binding:"omitempty,oneof=asc desc"                form:"sort_order"`
}

// Index GET RouteGroup + OrdersRoute.
func (o *OrdersHandler) Index(c *gin.Context) {
	currentUserID := getUserIDFromContext(c)

	var query OrdersQuery
	if !bindQuery(c, &query) {
		return
	}
	page, size, offset := query.limits()

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	orders, total, err := o.orderSvs.List(reqCtx, service.ListOrdersArgs{
		UserID:        currentUserID,
		Status:        query.Status,
		PaymentStatus: query.PaymentStatus,
		SortBy:        repoargs.OrderSortField(query.SortBy),
		SortOrder:     repoargs.SortOrder(query.SortOrder),
		Limit:         size,
		Offset:        offset,
	})
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, newPageResponse(mapSlice(orders, newOrderResponse), total, page, size))
}

// Stats GET RouteGroup + OrderStatsRoute. Сводка по заказам текущего пользователя.
func (o *OrdersHandler) Stats(c *gin.Context) {
	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	stats, err := o.orderSvs.Stats(reqCtx, getUserIDFromContext(c))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, newOrderStatsResponse(stats))
}

// Show GET RouteGroup + OrderRoute. Чужой заказ - 404.
func (o *OrdersHandler) Show(c *gin.Context) {
	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	order, err := o.orderSvs.Get(reqCtx, c.Param("id"), getUserIDFromContext(c))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, newOrderResponse(order))
}

// Cancel POST RouteGroup + OrderCancelRoute.
func (o *OrdersHandler) Cancel(c *gin.Context) {
	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	order, err := o.orderSvs.Cancel(reqCtx, c.Param("id"), getUserIDFromContext(c))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, newOrderResponse(order))
}

// Checkout POST RouteGroup + OrderCheckoutRoute. Оплата заказа с баланса пользователя.
//
// Ошибка оплаты содержит шаг, на котором она произошла, и признак того, что деньги уже списаны.
func (o *OrdersHandler) Checkout(c *gin.Context) {
	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	result, err := o.checkoutSvs.Checkout(reqCtx, c.Param("id"), getUserIDFromContext(c))
	if err != nil {
		var checkoutErr *domain.CheckoutError
		if !errors.As(err, &checkoutErr) {
			abortWithServiceError(c, err)
			return
		}

		status, msg := classifyError(checkoutErr.Err)
		if msg == "" {
			msg = "checkout failed"
		}
		_ = c.Error(err).SetType(gin.ErrorTypePrivate)
		c.AbortWithStatusJSON(status, gin.H{
			"error":       msg,
			"stage":       checkoutErr.Stage,
			"state":       checkoutErr.State,
			"money_moved": checkoutErr.MoneyMoved,
		})
		return
	}

	c.JSON(http.StatusOK, CheckoutResponse{
		Status:      "success",
		Order:       newOrderResponse(result.Order),
		Transaction: newTransactionResponse(result.Transaction),
		Balance:     money(result.Balance),
	})
}
