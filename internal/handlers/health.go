package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const readyTimeout = 2 * time.Second

// Healthz is a liveness probe. It never touches game state.
func Healthz(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Readyz reports 503 until the Redis backing rate limits answers.
func Readyz(pinger Pinger, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
		defer cancel()

		if err := pinger.Ping(ctx); err != nil {
			logger.Warn("readiness check failed", zap.Error(err))
			c.String(http.StatusServiceUnavailable, "NOT READY")
			return
		}
		c.String(http.StatusOK, "OK")
	}
}
