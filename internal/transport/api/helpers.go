package api

import (
	"errors"
	"net/http"

	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/fsdevblog/groph-shop/internal/transport/api/middlewares"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

const (
	defaultPageSize uint = 20
	maxPageSize     uint = 100
)

// getUserIDFromContext берет из контекста gin ID текущего юзера. ID устанавливается в
// middlewares.AuthRequired. Если значения в контексте нет - вернется пустая строка.
func getUserIDFromContext(c *gin.Context) string {
	userID, exist := c.Get(middlewares.CurrentUserIDKey)
	if !exist {
		return ""
	}
	id, _ := userID.(string)
	return id
}

// bindJSON разбирает тело запроса. Ошибки валидации - 422, нечитаемое тело - 400.
func bindJSON(c *gin.Context, params any) bool {
	return bind(c, c.ShouldBindJSON(params))
}

func bindQuery(c *gin.Context, params any) bool {
	return bind(c, c.ShouldBindQuery(params))
}

func bind(c *gin.Context, bindErr error) bool {
	if bindErr == nil {
		return true
	}
	var valErrs validator.ValidationErrors
	if errors.As(bindErr, &valErrs) {
		fields := make([]gin.H, len(valErrs))
		for i, fe := range valErrs {
			fields[i] = gin.H{"field": fe.Field(), "rule": fe.Tag(), "param": fe.Param()}
		}
		_ = c.Error(bindErr).SetType(gin.ErrorTypeBind)
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": "validation error", "fields": fields})
		return false
	}
	_ = c.AbortWithError(http.StatusBadRequest, bindErr).SetType(gin.ErrorTypeBind)
	return false
}

// publicErrors ошибки сервисов, текст которых можно показать клиенту. Более частные ошибки идут раньше
// общих, так как ErrOrderNotPending и прочие оборачивают ErrOrderState.
var publicErrors = []struct {
	err    error
	status int
}{
	{domain.ErrInvalidAmount, http.StatusUnprocessableEntity},
	{domain.ErrValidation, http.StatusUnprocessableEntity},
	{domain.ErrInsufficientBalance, http.StatusPaymentRequired},
	{domain.ErrInsufficientStock, http.StatusConflict},
	{domain.ErrProductUnavailable, http.StatusConflict},
	{domain.ErrConcurrentModification, http.StatusConflict},
	{domain.ErrDuplicateKey, http.StatusConflict},
	{domain.ErrAlreadyPaid, http.StatusConflict},
	{domain.ErrOrderNotPending, http.StatusConflict},
	{domain.ErrCheckoutInProgress, http.StatusConflict},
	{domain.ErrRefundInProgress, http.StatusConflict},
	{domain.ErrInvalidTransition, http.StatusConflict},
	{domain.ErrOrderState, http.StatusConflict},
	{domain.ErrRecordNotFound, http.StatusNotFound},
}

// classifyError возвращает http статус и публичный текст ошибки. Пустой текст - ошибка приватная.
func classifyError(err error) (int, string) {
	var valErr *domain.ValidationError
	if errors.As(err, &valErr) {
		return http.StatusUnprocessableEntity, valErr.Error()
	}
	for _, pe := range publicErrors {
		if errors.Is(err, pe.err) {
			return pe.status, pe.err.Error()
		}
	}
	return http.StatusInternalServerError, ""
}

// abortWithServiceError прерывает запрос со статусом, соответствующим ошибке сервиса. Полная ошибка
// остается в контексте для логгера, клиенту уходит только публичный текст.
func abortWithServiceError(c *gin.Context, err error) {
	status, msg := classifyError(err)
	if msg == "" {
		_ = c.AbortWithError(status, err).SetType(gin.ErrorTypePrivate)
		return
	}
	_ = c.AbortWithError(status, err).SetType(gin.ErrorTypePublic).SetMeta(msg)
}

type PageQuery struct {
	Page uint `binding:"omitempty,min=1"         form:"page"`
	Size uint `binding:"omitempty,min=1,max=100" form:"size"`
}

// limits возвращает нормализованные номер и размер страницы, а также смещение.
func (q PageQuery) limits() (page, size, offset uint) {
	page, size = q.Page, q.Size
	if page == 0 {
		page = 1
	}
	if size == 0 {
		size = defaultPageSize
	}
	size = min(size, maxPageSize)
	return page, size, (page - 1) * size
}

type PageResponse[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  uint  `json:"page"`
	Size  uint  `json:"size"`
	Pages int64 `json:"pages"`
}

func newPageResponse[T any](items []T, total int64, page, size uint) PageResponse[T] {
	pages := total / int64(size)
	if total%int64(size) != 0 {
		pages++
	}
	return PageResponse[T]{Items: items, Total: total, Page: page, Size: size, Pages: pages}
}

func mapSlice[S, T any](src []S, fn func(*S) T) []T {
	out := make([]T, len(src))
	for i := range src {
		out[i] = fn(&src[i])
	}
	return out
}
