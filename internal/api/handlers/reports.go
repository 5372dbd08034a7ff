package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/carloscae/E2-Outreach-Dashboard/internal/agent"
	"github.com/carloscae/E2-Outreach-Dashboard/internal/store"
)

const defaultReportLimit = 20

// ReporterRunner compiles and optionally dispatches a report window.
type ReporterRunner interface {
	Run(ctx context.Context, opts agent.ReportOptions) (*agent.ReporterResult, error)
	Preview(ctx context.Context, opts agent.ReportOptions) (*agent.ReporterResult, error)
}

// ReportHandler serves stored reports and the compile/preview triggers.
type ReportHandler struct {
	reports  *store.ReportRepository
	reporter ReporterRunner
	logger   *logrus.Logger
}

func NewReportHandler(reports *store.ReportRepository, reporter ReporterRunner, logger *logrus.Logger) *ReportHandler {
	return &ReportHandler{reports: reports, reporter: reporter, logger: logger}
}

// List returns stored reports, newest first.
func (h *ReportHandler) List(c *gin.Context) {
	limit := defaultReportLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer between 1 and 100"})
			return
		}
		limit = parsed
	}

	reports, err := h.reports.List(c.Request.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list reports")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list reports"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports, "count": len(reports)})
}

// Get returns a single stored report.
func (h *ReportHandler) Get(c *gin.Context) {
	report, err := h.reports.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
			return
		}
		h.logger.WithError(err).Error("Failed to get report")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get report"})
		return
	}
	c.JSON(http.StatusOK, report)
}

type reportRunRequest struct {
	CycleStart      string   `json:"cycle_start"`
	CycleEnd        string   `json:"cycle_end"`
	RecipientEmails []string `json:"recipient_emails"`
}

func parseReportTime(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		t, err = time.Parse("2006-01-02", raw)
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r reportRunRequest) options() (agent.ReportOptions, error) {
	start, err := parseReportTime(r.CycleStart)
	if err != nil {
		return agent.ReportOptions{}, fmt.Errorf("invalid cycle_start: %w", err)
	}
	end, err := parseReportTime(r.CycleEnd)
	if err != nil {
		return agent.ReportOptions{}, fmt.Errorf("invalid cycle_end: %w", err)
	}
	if start != nil && end != nil && end.Before(*start) {
		return agent.ReportOptions{}, errors.New("cycle_end must not precede cycle_start")
	}
	return agent.ReportOptions{CycleStart: start, CycleEnd: end, RecipientEmails: r.RecipientEmails}, nil
}

// Run compiles a report window, persists the report and emails it. The
// body may override the window bounds and the recipient list.
func (h *ReportHandler) Run(c *gin.Context) {
	var req reportRunRequest
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}
	}
	opts, err := req.options()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.reporter.Run(c.Request.Context(), opts)
	if err != nil {
		h.logger.WithError(err).Error("Report run failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// Preview compiles and renders a window without persisting or sending
// anything. Bounds come from the cycle_start/cycle_end query params.
func (h *ReportHandler) Preview(c *gin.Context) {
	req := reportRunRequest{
		CycleStart: c.Query("cycle_start"),
		CycleEnd:   c.Query("cycle_end"),
	}
	opts, err := req.options()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.reporter.Preview(c.Request.Context(), opts)
	if err != nil {
		h.logger.WithError(err).Error("Report preview failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"markdown": result.Markdown,
		"html":     result.HTML,
		"stats":    result.Stats,
	})
}
