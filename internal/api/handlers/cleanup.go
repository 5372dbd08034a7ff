package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// CleanupRunner performs one manual archive sweep.
type CleanupRunner interface {
	RunCleanup(ctx context.Context) (int64, error)
}

// CleanupHandler exposes the manual cleanup trigger.
type CleanupHandler struct {
	cleanup CleanupRunner
	logger  *logrus.Logger
}

func NewCleanupHandler(cleanup CleanupRunner, logger *logrus.Logger) *CleanupHandler {
	return &CleanupHandler{cleanup: cleanup, logger: logger}
}

// Run archives expired signals immediately.
func (h *CleanupHandler) Run(c *gin.Context) {
	archived, err := h.cleanup.RunCleanup(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Manual cleanup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"archived": archived})
}
