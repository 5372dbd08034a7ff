// Package api wires the HTTP surface: public dashboard reads and
// admin-guarded pipeline triggers.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/carloscae/E2-Outreach-Dashboard/internal/api/handlers"
	"github.com/carloscae/E2-Outreach-Dashboard/internal/middleware"
)

// Handlers bundles everything SetupRoutes mounts.
type Handlers struct {
	Health  *handlers.HealthHandler
	Signals *handlers.SignalHandler
	Reports *handlers.ReportHandler
	Agents  *handlers.AgentHandler
	Cleanup *handlers.CleanupHandler
	Admin   *middleware.AdminMiddleware
}

// SetupRoutes mounts the API. Read endpoints are public; anything that
// triggers a pipeline stage or mutates state beyond feedback requires the
// admin key.
func SetupRoutes(router *gin.Engine, h Handlers) {
	router.GET("/health", h.Health.Check)

	v1 := router.Group("/api/v1")
	{
		signals := v1.Group("/signals")
		{
			signals.GET("", h.Signals.List)
			signals.GET("/:id", h.Signals.Get)
			signals.GET("/:id/feedback", h.Signals.ListFeedback)
			signals.POST("/:id/feedback", h.Signals.CreateFeedback)
		}

		reports := v1.Group("/reports")
		{
			reports.GET("", h.Reports.List)
			reports.GET("/:id", h.Reports.Get)
		}

		admin := v1.Group("/", h.Admin.RequireAdminAuth())
		{
			agents := admin.Group("/agents")
			{
				agents.POST("/collect", h.Agents.Collect)
				agents.POST("/collect/lightweight", h.Agents.CollectLightweight)
				agents.POST("/collect/publishers", h.Agents.CollectPublishers)
				agents.POST("/analyze", h.Agents.Analyze)
			}
			admin.POST("/reports/run", h.Reports.Run)
			admin.GET("/reports/preview", h.Reports.Preview)
			admin.POST("/cleanup/run", h.Cleanup.Run)
		}
	}
}
