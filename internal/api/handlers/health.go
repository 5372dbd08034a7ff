package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

var startTime = time.Now()

// HealthChecker is implemented by the database and redis connections.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// RosterStats exposes the partner cache state for the health payload.
type RosterStats interface {
	Stats() (count int, age time.Duration)
}

// HealthHandler reports service and host health.
type HealthHandler struct {
	db     HealthChecker
	redis  HealthChecker
	roster RosterStats
}

func NewHealthHandler(db, redis HealthChecker, roster RosterStats) *HealthHandler {
	return &HealthHandler{db: db, redis: redis, roster: roster}
}

type healthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Uptime    string            `json:"uptime"`
	Services  map[string]string `json:"services"`
	Roster    rosterHealth      `json:"roster_cache"`
	System    systemHealth      `json:"system"`
}

type rosterHealth struct {
	Bookies  int    `json:"bookies"`
	CacheAge string `json:"cache_age"`
}

type systemHealth struct {
	MemoryUsedPercent float64 `json:"memory_used_percent"`
	CPUPercent        float64 `json:"cpu_percent"`
}

// Check reports overall health. Any unhealthy dependency degrades the
// response to 503.
func (h *HealthHandler) Check(c *gin.Context) {
	ctx := c.Request.Context()
	services := make(map[string]string)

	if h.db != nil {
		if err := h.db.HealthCheck(ctx); err != nil {
			services["database"] = "unhealthy: " + err.Error()
		} else {
			services["database"] = "healthy"
		}
	} else {
		services["database"] = "unhealthy: not configured"
	}

	if h.redis != nil {
		if err := h.redis.HealthCheck(ctx); err != nil {
			services["redis"] = "unhealthy: " + err.Error()
		} else {
			services["redis"] = "healthy"
		}
	} else {
		services["redis"] = "unhealthy: not configured"
	}

	status := "healthy"
	for _, s := range services {
		if s != "healthy" {
			status = "unhealthy"
			break
		}
	}

	response := healthResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(startTime).String(),
		Services:  services,
		System:    collectSystemHealth(),
	}
	if h.roster != nil {
		count, age := h.roster.Stats()
		response.Roster = rosterHealth{Bookies: count, CacheAge: age.Round(time.Second).String()}
	}

	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, response)
}

func collectSystemHealth() systemHealth {
	var sys systemHealth
	if vm, err := mem.VirtualMemory(); err == nil {
		sys.MemoryUsedPercent = vm.UsedPercent
	}
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		sys.CPUPercent = percents[0]
	}
	return sys
}
