package services

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carloscae/E2-Outreach-Dashboard/internal/config"
	"github.com/carloscae/E2-Outreach-Dashboard/internal/store"
)

func testServiceLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestCleanupServiceRunCleanup(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	mockPool.ExpectExec("UPDATE signals").
		WithArgs(pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))

	svc := NewCleanupService(store.NewSignalRepository(mockPool), config.CleanupConfig{
		SignalRetentionDays:    30,
		CleanupIntervalMinutes: 60,
	}, testServiceLogger())

	archived, err := svc.RunCleanup(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, archived)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestRetentionTTL(t *testing.T) {
	ttl := RetentionTTL(config.CleanupConfig{SignalRetentionDays: 30})
	assert.Equal(t, 30*24*time.Hour, ttl)
}
