package api

import (
	"context"
	"net/http"

	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/fsdevblog/groph-shop/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type BalanceHandler struct {
	svs LedgerServicer
}

func NewBalanceHandler(svs LedgerServicer) *BalanceHandler {
	return &BalanceHandler{
		svs: svs,
	}
}

// Index GET RouteGroup + BalanceRoute.
func (b *BalanceHandler) Index(c *gin.Context) {
	currentUserID := getUserIDFromContext(c)

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	user, err := b.svs.GetBalance(reqCtx, currentUserID)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, BalanceResponse{
		Balance:   money(user.Balance),
		Version:   user.BalanceVersion,
		UpdatedAt: user.UpdatedAt,
	})
}

type BalanceOperationParams struct {
	Amount      decimal.Decimal `binding:"decimal_gt=0"               json:"amount"`
	Description string          `binding:"omitempty,max=255,max_bytes=1020" json:"description"`
}

// Deposit POST RouteGroup + DepositRoute.
func (b *BalanceHandler) Deposit(c *gin.Context) {
	b.operate(c, b.svs.Deposit)
}

// Withdraw POST RouteGroup + WithdrawRoute. Недостаток средств - 402.
func (b *BalanceHandler) Withdraw(c *gin.Context) {
	b.operate(c, b.svs.Withdraw)
}

func (b *BalanceHandler) operate(
	c *gin.Context,
	op func(context.Context, service.BalanceOperationArgs) (*domain.Transaction, error),
) {
	currentUserID := getUserIDFromContext(c)

	var params BalanceOperationParams
	if !bindJSON(c, &params) {
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	transaction, err := op(reqCtx, service.BalanceOperationArgs{
		UserID:      currentUserID,
		Amount:      params.Amount,
		Description: params.Description,
	})
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, newTransactionResponse(transaction))
}

type TransactionsQuery struct {
	PageQuery
	Type domain.TransactionType `form:"type"`
}

// Transactions GET RouteGroup + TransactionsRoute. Журнал операций от новых к старым.
func (b *BalanceHandler) Transactions(c *gin.Context) {
	currentUserID := getUserIDFromContext(c)

	var query TransactionsQuery
	if !bindQuery(c, &query) {
		return
	}
	page, size, offset := query.limits()

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	transactions, total, err := b.svs.ListTransactions(reqCtx, service.ListTransactionsArgs{
		UserID: currentUserID,
		Type:   query.Type,
		Limit:  size,
		Offset: offset,
	})
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, newPageResponse(mapSlice(transactions, newTransactionResponse), total, page, size))
}
