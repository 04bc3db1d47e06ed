package repoargs

import (
	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/shopspring/decimal"
)

type CreateProduct struct {
	Name        string
	Description string
	SKU         string
	Category    string
	Images      []string
	Price       decimal.Decimal
	Stock       int64
	Status      domain.ProductStatus
}

// StockAdjustment атомарное изменение остатка. Списание применяется, только если остатка хватает,
// а при RequireActive еще и товар активен.
type StockAdjustment struct {
	ProductID     string
	Quantity      int64
	Direction     domain.DirectionType
	RequireActive bool
}

// UpdateProduct правка карточки товара. nil поля не меняются. Остаток меняется только через StockAdjustment.
type UpdateProduct struct {
	ID          string
	Name        *string
	Description *string
	SKU         *string
	Category    *string
	Images      []string
	Price       *decimal.Decimal
	Status      *domain.ProductStatus
}
