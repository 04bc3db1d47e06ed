package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const healthTimeout = time.Second

type HealthHandler struct {
	checker HealthChecker
}

func NewHealthHandler(checker HealthChecker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

// Index GET HealthRoute. 503, если хранилище недоступно.
func (h *HealthHandler) Index(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c, healthTimeout)
	defer cancel()

	if err := h.checker.Ping(ctx); err != nil {
		_ = c.Error(err).SetType(gin.ErrorTypePrivate)
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
