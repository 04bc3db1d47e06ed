package repoargs

import (
	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/shopspring/decimal"
)

type CreateTransaction struct {
	UserID         string
	Type           domain.TransactionType
	Amount         decimal.Decimal
	Balance        decimal.Decimal
	BalanceVersion int64
	Status         domain.TransactionStatus
	Description    string
	ReferenceID    string
}

type TransactionFilter struct {
	UserID string
	Type   domain.TransactionType
	Limit  uint
	Offset uint
}
