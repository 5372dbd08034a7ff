package store

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carloscae/E2-Outreach-Dashboard/internal/models"
)

func TestFeedbackRepository_Create(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewFeedbackRepository(mockPool, logrus.New())
	fb := &models.Feedback{
		SignalID:  "sig-1",
		UserEmail: "ops@example.com",
		IsUseful:  true,
	}

	mockPool.ExpectQuery("SELECT id FROM signals").
		WithArgs("sig-1").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("sig-1"))
	mockPool.ExpectExec("INSERT INTO signal_feedback").
		WithArgs(pgxmock.AnyArg(), fb.SignalID, fb.UserEmail, true, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Create(context.Background(), fb)
	assert.NoError(t, err)
	assert.NotEmpty(t, fb.ID)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestFeedbackRepository_Create_SignalMissing(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewFeedbackRepository(mockPool, logrus.New())

	mockPool.ExpectQuery("SELECT id FROM signals").
		WithArgs("ghost").
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	err = repo.Create(context.Background(), &models.Feedback{
		SignalID:  "ghost",
		UserEmail: "ops@example.com",
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFeedbackRepository_ListBySignal(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewFeedbackRepository(mockPool, logrus.New())
	notes := "took to the partnerships call"

	mockPool.ExpectQuery("FROM signal_feedback").
		WithArgs("sig-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "signal_id", "user_email", "is_useful", "action_taken", "notes", "created_at",
		}).AddRow("fb-1", "sig-1", "ops@example.com", true, nil, &notes, time.Now().UTC()))

	out, err := repo.ListBySignal(context.Background(), "sig-1")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.True(t, out[0].IsUseful)
	require.NotNil(t, out[0].Notes)
	assert.Equal(t, notes, *out[0].Notes)
}
