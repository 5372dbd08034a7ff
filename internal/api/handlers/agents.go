// Package handlers contains the gin HTTP handlers for the dashboard and
// the admin pipeline triggers.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/carloscae/E2-Outreach-Dashboard/internal/agent"
	"github.com/carloscae/E2-Outreach-Dashboard/internal/store"
	"github.com/carloscae/E2-Outreach-Dashboard/internal/tools"
)

// CollectorRunner triggers one LLM-driven collection pass.
type CollectorRunner interface {
	Run(ctx context.Context, geo string, daysBack int) (*agent.CollectorResult, error)
}

// LightweightRunner triggers one rule-based collection pass.
type LightweightRunner interface {
	Run(ctx context.Context, geo string, daysBack int) (*agent.LightweightResult, error)
}

// PublisherRunner triggers one publisher discovery pass.
type PublisherRunner interface {
	Run(ctx context.Context, geo string) (*agent.PublisherResult, error)
}

// AnalyzerRunner triggers one scoring pass.
type AnalyzerRunner interface {
	Run(ctx context.Context) (*agent.AnalyzerResult, error)
}

// HighPriorityNotifier pushes alerts for freshly scored signals.
type HighPriorityNotifier interface {
	NotifyHighPriority(ctx context.Context, items []store.AnalyzedWithSignal)
}

// AnalyzedLister feeds the notifier after an analysis pass.
type AnalyzedLister interface {
	ListWithSignal(ctx context.Context, limit int) ([]store.AnalyzedWithSignal, error)
}

// AgentHandler exposes the pipeline stages as admin endpoints.
type AgentHandler struct {
	collector   CollectorRunner
	lightweight LightweightRunner
	publishers  PublisherRunner
	analyzer    AnalyzerRunner
	analyzed    AnalyzedLister
	notifier    HighPriorityNotifier
	logger      *logrus.Logger
}

func NewAgentHandler(
	collector CollectorRunner,
	lightweight LightweightRunner,
	publishers PublisherRunner,
	analyzer AnalyzerRunner,
	analyzed AnalyzedLister,
	notifier HighPriorityNotifier,
	logger *logrus.Logger,
) *AgentHandler {
	return &AgentHandler{
		collector:   collector,
		lightweight: lightweight,
		publishers:  publishers,
		analyzer:    analyzer,
		analyzed:    analyzed,
		notifier:    notifier,
		logger:      logger,
	}
}

type collectRequest struct {
	Geo      string `json:"geo"`
	DaysBack int    `json:"days_back"`
}

// Collect runs the LLM collector stage synchronously.
func (h *AgentHandler) Collect(c *gin.Context) {
	var req collectRequest
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}
	}

	result, err := h.collector.Run(c.Request.Context(), req.Geo, req.DaysBack)
	if err != nil {
		h.logger.WithError(err).Error("Collection pass failed")
		status := http.StatusInternalServerError
		response := gin.H{"error": err.Error()}
		if result != nil {
			// Tool side effects before the failure are already committed.
			response["partial_result"] = result
		}
		c.JSON(status, response)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CollectLightweight runs the no-model collection path.
func (h *AgentHandler) CollectLightweight(c *gin.Context) {
	var req collectRequest
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}
	}

	result, err := h.lightweight.Run(c.Request.Context(), req.Geo, req.DaysBack)
	if err != nil {
		h.logger.WithError(err).Error("Lightweight collection failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// CollectPublishers runs the publisher discovery stage synchronously.
func (h *AgentHandler) CollectPublishers(c *gin.Context) {
	var req collectRequest
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}
	}

	result, err := h.publishers.Run(c.Request.Context(), req.Geo)
	if err != nil {
		if errors.Is(err, tools.ErrSerperNotConfigured) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		h.logger.WithError(err).Error("Publisher discovery failed")
		response := gin.H{"error": err.Error()}
		if result != nil {
			response["partial_result"] = result
		}
		c.JSON(http.StatusInternalServerError, response)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Analyze runs the scoring stage and alerts on new HIGH priority results.
func (h *AgentHandler) Analyze(c *gin.Context) {
	result, err := h.analyzer.Run(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Analysis pass failed")
		response := gin.H{"error": err.Error()}
		if result != nil {
			response["partial_result"] = result
		}
		c.JSON(http.StatusInternalServerError, response)
		return
	}

	if result.SignalsScored > 0 && h.notifier != nil && h.analyzed != nil {
		if recent, listErr := h.analyzed.ListWithSignal(c.Request.Context(), result.SignalsScored); listErr == nil {
			h.notifier.NotifyHighPriority(c.Request.Context(), recent)
		} else {
			h.logger.WithError(listErr).Warn("Skipping high-priority alert, failed to list analyses")
		}
	}

	c.JSON(http.StatusOK, result)
}
