package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

type ProductsHandler struct {
	productSvs ProductServicer
}

func NewProductsHandler(productSvs ProductServicer) *ProductsHandler {
	return &ProductsHandler{productSvs: productSvs}
}

// Show GET RouteGroup + ProductRoute.
func (h *ProductsHandler) Show(c *gin.Context) {
	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	product, err := h.productSvs.Get(reqCtx, c.Param("id"))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, newProductResponse(product))
}
