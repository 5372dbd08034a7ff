package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/carloscae/E2-Outreach-Dashboard/internal/models"
	"github.com/carloscae/E2-Outreach-Dashboard/internal/store"
	"github.com/carloscae/E2-Outreach-Dashboard/internal/utils"
)

const defaultSignalLimit = 50

// SignalHandler serves the dashboard signal views and feedback capture.
type SignalHandler struct {
	signals  *store.SignalRepository
	feedback *store.FeedbackRepository
	logger   *logrus.Logger
}

func NewSignalHandler(signals *store.SignalRepository, feedback *store.FeedbackRepository, logger *logrus.Logger) *SignalHandler {
	return &SignalHandler{signals: signals, feedback: feedback, logger: logger}
}

// List returns the dashboard view: signals joined with their analysis and
// feedback counts, newest first.
func (h *SignalHandler) List(c *gin.Context) {
	limit := defaultSignalLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 200 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer between 1 and 200"})
			return
		}
		limit = parsed
	}

	signals, err := h.signals.ListForDashboard(c.Request.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list signals")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list signals"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"signals": signals, "count": len(signals)})
}

// Get returns a single raw signal.
func (h *SignalHandler) Get(c *gin.Context) {
	signal, err := h.signals.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "signal not found"})
			return
		}
		h.logger.WithError(err).Error("Failed to get signal")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get signal"})
		return
	}
	c.JSON(http.StatusOK, signal)
}

type feedbackRequest struct {
	UserEmail   string  `json:"user_email" binding:"required"`
	IsUseful    bool    `json:"is_useful"`
	ActionTaken *string `json:"action_taken"`
	Notes       *string `json:"notes"`
}

// CreateFeedback records a team member's verdict on a signal.
func (h *SignalHandler) CreateFeedback(c *gin.Context) {
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	fb := &models.Feedback{
		SignalID:    c.Param("id"),
		UserEmail:   req.UserEmail,
		IsUseful:    req.IsUseful,
		ActionTaken: req.ActionTaken,
		Notes:       req.Notes,
	}
	if err := h.feedback.Create(c.Request.Context(), fb); err != nil {
		switch {
		case utils.IsValidationError(err):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "signal not found"})
		default:
			h.logger.WithError(err).Error("Failed to create feedback")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create feedback"})
		}
		return
	}
	c.JSON(http.StatusCreated, fb)
}

// ListFeedback returns all feedback entries for a signal, newest first.
func (h *SignalHandler) ListFeedback(c *gin.Context) {
	entries, err := h.feedback.ListBySignal(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logger.WithError(err).Error("Failed to list feedback")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list feedback"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"feedback": entries, "count": len(entries)})
}
