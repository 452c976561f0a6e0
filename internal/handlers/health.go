package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sadwiik06/SocialFlow/internal/database"
	"github.com/sadwiik06/SocialFlow/internal/logger"
	"go.uber.org/zap"
)

// Health reports whether the store answers
func (h *Handlers) Health(c *gin.Context) {
	db := database.Check(c.Request.Context(), h.store)
	if db.Status != "ok" {
		logger.Log.Warn("Health check failed", zap.String("error", db.Error))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": db})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"database": db,
		"time":     time.Now().UTC(),
	})
}
