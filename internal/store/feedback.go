package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/carloscae/E2-Outreach-Dashboard/internal/models"
	"github.com/carloscae/E2-Outreach-Dashboard/internal/utils"
)

// FeedbackRepository persists human feedback on signals. Rows are append
// only; a signal may accumulate any number of feedback entries.
type FeedbackRepository struct {
	db     DatabasePool
	logger *logrus.Logger
}

func NewFeedbackRepository(db DatabasePool, logger *logrus.Logger) *FeedbackRepository {
	return &FeedbackRepository{db: db, logger: logger}
}

// Create stores one feedback entry. The referenced signal must exist.
func (r *FeedbackRepository) Create(ctx context.Context, fb *models.Feedback) error {
	if fb.SignalID == "" {
		return utils.NewValidationError("signal_id")
	}
	if fb.UserEmail == "" {
		return utils.NewValidationError("user_email")
	}

	var exists string
	err := r.db.QueryRow(ctx, `SELECT id FROM signals WHERE id = $1`, fb.SignalID).Scan(&exists)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to verify signal: %w", err)
	}

	fb.ID = uuid.New().String()
	fb.CreatedAt = time.Now().UTC()

	_, err = r.db.Exec(ctx, `
		INSERT INTO signal_feedback (id, signal_id, user_email, is_useful, action_taken, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		fb.ID, fb.SignalID, fb.UserEmail, fb.IsUseful, fb.ActionTaken, fb.Notes, fb.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert feedback: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"signal_id": fb.SignalID,
		"is_useful": fb.IsUseful,
	}).Debug("Feedback recorded")
	return nil
}

// ListBySignal returns feedback for one signal, newest first.
func (r *FeedbackRepository) ListBySignal(ctx context.Context, signalID string) ([]models.Feedback, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, signal_id, user_email, is_useful, action_taken, notes, created_at
		FROM signal_feedback
		WHERE signal_id = $1
		ORDER BY created_at DESC`, signalID)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}
	defer rows.Close()

	var out []models.Feedback
	for rows.Next() {
		var fb models.Feedback
		if err := rows.Scan(&fb.ID, &fb.SignalID, &fb.UserEmail, &fb.IsUseful,
			&fb.ActionTaken, &fb.Notes, &fb.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}
		out = append(out, fb)
	}
	return out, rows.Err()
}
