package api

import (
	"context"
	"net/http"

	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/fsdevblog/groph-shop/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const defaultReportLimit uint = 100

type AdminHandler struct {
	productSvs ProductServicer
	orderSvs   OrderServicer
	reconSvs   ReconciliationServicer
	userSvs    UserServicer
}

func NewAdminHandler(
	productSvs ProductServicer,
	orderSvs OrderServicer,
	reconSvs ReconciliationServicer,
	userSvs UserServicer,
) *AdminHandler {
	return &AdminHandler{
		productSvs: productSvs,
		orderSvs:   orderSvs,
		reconSvs:   reconSvs,
		userSvs:    userSvs,
	}
}

type CreateProductParams struct {
	Name        string               `binding:"required,max=255,max_bytes=1020"   json:"name"`
	Description string               `binding:"omitempty,max=5000"                json:"description"`
	SKU         string               `binding:"required,max=64,max_bytes=64"      json:"sku"`
	Category    string               `binding:"omitempty,max=100"                 json:"category"`
	Images      []string             `binding:"omitempty,max=20,dive,url"         json:"images"`
	Price       decimal.Decimal      `binding:"decimal_gt=0"                      json:"price"`
	Stock       int64                `binding:"min=0"                             json:"stock"`
	Status      domain.ProductStatus `binding:"omitempty,oneof=draft active inactive" json:"status"`
}

// CreateProduct POST RouteGroup + AdminProductsRoute.
func (h *AdminHandler) CreateProduct(c *gin.Context) {
	var params CreateProductParams
	if !bindJSON(c, &params) {
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	product, err := h.productSvs.Create(reqCtx, service.CreateProductArgs{
		Name:        params.Name,
		Description: params.Description,
		SKU:         params.SKU,
		Category:    params.Category,
		Images:      params.Images,
		Price:       params.Price,
		Stock:       params.Stock,
		Status:      params.Status,
	})
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newProductResponse(product))
}

// UpdateProductParams частичная правка товара. Остаток здесь не меняется, для него есть AdjustStock.
type UpdateProductParams struct {
	Name        *string               `binding:"omitempty,min=1,max=255,max_bytes=1020"     json:"name"`
	Description *string               `binding:"omitempty,max=5000"                         json:"description"`
	SKU         *string               `binding:"omitempty,min=1,max=64,max_bytes=64"        json:"sku"`
	Category    *string               `binding:"omitempty,max=100"                          json:"category"`
	Images      []string              `binding:"omitempty,max=20,dive,url"                  json:"images"`
	Price       *decimal.Decimal      `binding:"omitempty,decimal_gt=0"                     json:"price"`
	Status      *domain.ProductStatus `binding:"omitempty,oneof=draft active inactive deleted" json:"status"`
}

// UpdateProduct PUT RouteGroup + AdminProductRoute.
func (h *AdminHandler) UpdateProduct(c *gin.Context) {
	var params UpdateProductParams
	if !bindJSON(c, &params) {
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	product, err := h.productSvs.Update(reqCtx, service.UpdateProductArgs{
		ID:          c.Param("id"),
		Name:        params.Name,
		Description: params.Description,
		SKU:         params.SKU,
		Category:    params.Category,
		Images:      params.Images,
		Price:       params.Price,
		Status:      params.Status,
	})
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, newProductResponse(product))
}

// DeleteProduct DELETE RouteGroup + AdminProductRoute. Мягкое удаление, товар остается в старых заказах.
func (h *AdminHandler) DeleteProduct(c *gin.Context) {
	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	product, err := h.productSvs.Delete(reqCtx, c.Param("id"))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, newProductResponse(product))
}

type AdjustStockParams struct {
	Quantity  int64                `binding:"required,min=1"                 json:"quantity"`
	Direction domain.DirectionType `binding:"required,oneof=debit credit"    json:"direction"`
}

// AdjustStock PATCH RouteGroup + AdminProductStockRoute. Списание больше остатка - 409.
func (h *AdminHandler) AdjustStock(c *gin.Context) {
	var params AdjustStockParams
	if !bindJSON(c, &params) {
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	product, err := h.productSvs.AdjustStock(reqCtx, c.Param("id"), params.Quantity, params.Direction)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, newProductResponse(product))
}

type ProductStatusParams struct {
	Status domain.ProductStatus `binding:"required,oneof=draft active inactive deleted" json:"status"`
}

// UpdateProductStatus PATCH RouteGroup + AdminProductStatusRoute.
func (h *AdminHandler) UpdateProductStatus(c *gin.Context) {
	var params ProductStatusParams
	if !bindJSON(c, &params) {
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	product, err := h.productSvs.UpdateStatus(reqCtx, c.Param("id"), params.Status)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, newProductResponse(product))
}

type OrderStatusParams struct {
	Status         domain.OrderStatus `binding:"required,oneof=processing shipped delivered" json:"status"`
	TrackingNumber string             `binding:"omitempty,max=100,max_bytes=100"          json:"tracking_number"`
}

// UpdateOrderStatus PATCH RouteGroup + AdminOrderStatusRoute. Недопустимый переход - 409.
func (h *AdminHandler) UpdateOrderStatus(c *gin.Context) {
	var params OrderStatusParams
	if !bindJSON(c, &params) {
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	order, err := h.orderSvs.UpdateStatus(reqCtx, service.UpdateOrderStatusArgs{
		OrderID:        c.Param("id"),
		Status:         params.Status,
		TrackingNumber: params.TrackingNumber,
	})
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, newOrderResponse(order))
}

type OrderStatsQuery struct {
	UserID string `binding:"omitempty,max_bytes=64" form:"user_id"`
}

// OrderStats GET RouteGroup + AdminOrderStatsRoute. Без user_id - по всем заказам.
func (h *AdminHandler) OrderStats(c *gin.Context) {
	var query OrderStatsQuery
	if !bindQuery(c, &query) {
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	stats, err := h.orderSvs.Stats(reqCtx, query.UserID)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, newOrderStatsResponse(stats))
}

type ReconciliationQuery struct {
	Limit uint `binding:"omitempty,min=1,max=1000" form:"limit"`
}

// Reconciliation GET RouteGroup + AdminReconciliationRoute. Отчет о расхождениях баланса, журнала и заказов.
func (h *AdminHandler) Reconciliation(c *gin.Context) {
	var query ReconciliationQuery
	if !bindQuery(c, &query) {
		return
	}
	limit := query.Limit
	if limit == 0 {
		limit = defaultReportLimit
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	report, err := h.reconSvs.Report(reqCtx, limit)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, newReconciliationResponse(report))
}
