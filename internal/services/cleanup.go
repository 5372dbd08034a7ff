// Package services holds the background workers that run alongside the
// HTTP server.
package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/carloscae/E2-Outreach-Dashboard/internal/config"
	"github.com/carloscae/E2-Outreach-Dashboard/internal/store"
)

// CleanupService archives expired signals on a fixed interval so the
// dashboard and analyzer only see live opportunities.
type CleanupService struct {
	signals *store.SignalRepository
	cfg     config.CleanupConfig
	logger  *logrus.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewCleanupService(signals *store.SignalRepository, cfg config.CleanupConfig, logger *logrus.Logger) *CleanupService {
	ctx, cancel := context.WithCancel(context.Background())
	return &CleanupService{
		signals: signals,
		cfg:     cfg,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start runs an immediate sweep and then a periodic one until Stop.
func (c *CleanupService) Start() {
	interval := time.Duration(c.cfg.CleanupIntervalMinutes) * time.Minute
	c.logger.WithFields(logrus.Fields{
		"retention_days":   c.cfg.SignalRetentionDays,
		"interval_minutes": c.cfg.CleanupIntervalMinutes,
	}).Info("Starting cleanup service")

	go func() {
		c.sweep()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-c.ctx.Done():
				return
			case <-ticker.C:
				c.sweep()
			}
		}
	}()
}

// Stop halts the periodic sweeps.
func (c *CleanupService) Stop() {
	c.logger.Info("Stopping cleanup service")
	c.cancel()
}

// RunCleanup performs one manual sweep and returns the archived count.
func (c *CleanupService) RunCleanup(ctx context.Context) (int64, error) {
	return c.signals.ArchiveExpired(ctx, time.Now().UTC())
}

func (c *CleanupService) sweep() {
	ctx, cancel := context.WithTimeout(c.ctx, 30*time.Second)
	defer cancel()

	archived, err := c.signals.ArchiveExpired(ctx, time.Now().UTC())
	if err != nil {
		c.logger.WithError(err).Error("Signal cleanup sweep failed")
		return
	}
	if archived > 0 {
		c.logger.WithField("archived", archived).Info("Archived expired signals")
	}
}

// RetentionTTL converts the configured retention window to a duration for
// stamping new signals' expiry.
func RetentionTTL(cfg config.CleanupConfig) time.Duration {
	return time.Duration(cfg.SignalRetentionDays) * 24 * time.Hour
}
