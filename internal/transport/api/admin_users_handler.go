package api

import (
	"context"
	"net/http"

	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/fsdevblog/groph-shop/internal/repository/repoargs"
	"github.com/fsdevblog/groph-shop/internal/service"
	"github.com/gin-gonic/gin"
)

type UsersQuery struct {
	PageQuery
	Role      domain.Role `binding:"omitempty,oneof=user admin"                form:"role"`
	Search    string      `binding:"omitempty,max=100"                          form:"search"`
	SortBy    string      `binding:"omitempty,oneof=created_at username name"  form:"sort_by"`
	SortOrder string      `binding:"omitempty,oneof=asc desc"                   form:"sort_order"`
}

// Users GET RouteGroup + AdminUsersRoute. Удаленные пользователи не показываются.
func (h *AdminHandler) Users(c *gin.Context) {
	var query UsersQuery
	if !bindQuery(c, &query) {
		return
	}
	page, size, offset := query.limits()

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	users, total, err := h.userSvs.List(reqCtx, service.ListUsersArgs{
		Role:      query.Role,
		Search:    query.Search,
		SortBy:    repoargs.UserSortField(query.SortBy),
		SortOrder: repoargs.SortOrder(query.SortOrder),
		Limit:     size,
		Offset:    offset,
	})
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, newPageResponse(mapSlice(users, newProfileResponse), total, page, size))
}

// ShowUser GET RouteGroup + AdminUserRoute.
func (h *AdminHandler) ShowUser(c *gin.Context) {
	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	user, err := h.userSvs.Get(reqCtx, c.Param("id"))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, newProfileResponse(user))
}

// UpdateUser PUT RouteGroup + AdminUserRoute. Баланс так не меняется: только через журнал операций.
func (h *AdminHandler) UpdateUser(c *gin.Context) {
	var params UpdateProfileParams
	if !bindJSON(c, &params) {
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	user, err := h.userSvs.UpdateProfile(reqCtx, service.UpdateProfileArgs{
		UserID: c.Param("id"),
		Name:   params.Name,
		Avatar: params.Avatar,
	})
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, newProfileResponse(user))
}

// DeleteUser DELETE RouteGroup + AdminUserRoute. Повторное удаление - 404.
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	if _, err := h.userSvs.Delete(reqCtx, c.Param("id")); err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
