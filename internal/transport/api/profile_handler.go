package api

import (
	"context"
	"net/http"

	"github.com/fsdevblog/groph-shop/internal/service"
	"github.com/gin-gonic/gin"
)

type ProfileHandler struct {
	userSvs UserServicer
}

func NewProfileHandler(userSvs UserServicer) *ProfileHandler {
	return &ProfileHandler{userSvs: userSvs}
}

// Show GET RouteGroup + ProfileRoute.
func (h *ProfileHandler) Show(c *gin.Context) {
	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	user, err := h.userSvs.Get(reqCtx, getUserIDFromContext(c))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, newProfileResponse(user))
}

type UpdateProfileParams struct {
	Name   *string `binding:"omitempty,min=2,max=100,max_bytes=400" json:"name"`
	Avatar *string `binding:"omitempty,url,max=2048"                json:"avatar"`
}

// Update PUT RouteGroup + ProfileRoute. Нужно хотя бы одно поле.
func (h *ProfileHandler) Update(c *gin.Context) {
	var params UpdateProfileParams
	if !bindJSON(c, &params) {
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	user, err := h.userSvs.UpdateProfile(reqCtx, service.UpdateProfileArgs{
		UserID: getUserIDFromContext(c),
		Name:   params.Name,
		Avatar: params.Avatar,
	})
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, newProfileResponse(user))
}
