package api

import (
	"context"
	"net/http"

	"github.com/fsdevblog/groph-shop/internal/service"
	"github.com/gin-gonic/gin"
)

type CartHandler struct {
	cartSvs CartServicer
}

func NewCartHandler(cartSvs CartServicer) *CartHandler {
	return &CartHandler{cartSvs: cartSvs}
}

// Show GET RouteGroup + CartRoute.
func (h *CartHandler) Show(c *gin.Context) {
	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	cart, err := h.cartSvs.Get(reqCtx, getUserIDFromContext(c))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, newCartResponse(cart))
}

type UpsertCartParams struct {
	Items []OrderItemParams `binding:"required,max=100,dive" json:"items"`
}

// Upsert PUT RouteGroup + CartRoute. Заменяет корзину целиком. Товара нет на складе - 409.
func (h *CartHandler) Upsert(c *gin.Context) {
	var params UpsertCartParams
	if !bindJSON(c, &params) {
		return
	}

	items := make([]service.CartItemArgs, len(params.Items))
	for i, item := range params.Items {
		items[i] = service.CartItemArgs{ProductID: item.ProductID, Quantity: item.Quantity}
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	cart, err := h.cartSvs.Upsert(reqCtx, getUserIDFromContext(c), items)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, newCartResponse(cart))
}

// Clear DELETE RouteGroup + CartRoute.
func (h *CartHandler) Clear(c *gin.Context) {
	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	cart, err := h.cartSvs.Clear(reqCtx, getUserIDFromContext(c))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, newCartResponse(cart))
}

// Validate POST RouteGroup + CartValidateRoute. 200 - корзину можно оформить, 409 - нет.
func (h *CartHandler) Validate(c *gin.Context) {
	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	cart, err := h.cartSvs.Validate(reqCtx, getUserIDFromContext(c))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, newCartResponse(cart))
}
