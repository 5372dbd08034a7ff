package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/carloscae/E2-Outreach-Dashboard/internal/models"
	"github.com/carloscae/E2-Outreach-Dashboard/internal/utils"
)

// SignalRepository handles database operations for raw signals.
type SignalRepository struct {
	pool DatabasePool
}

// NewSignalRepository creates a new signal repository.
func NewSignalRepository(pool DatabasePool) *SignalRepository {
	return &SignalRepository{pool: pool}
}

// Create validates and inserts a new signal. The signal's ID and
// CollectedAt are assigned here; the caller's values are ignored.
func (r *SignalRepository) Create(ctx context.Context, signal *models.Signal) error {
	if !signal.Valid() {
		return utils.NewValidationError("invalid signal: entity fields, non-empty evidence and a 0-10 preliminary score are required")
	}

	signal.ID = uuid.New().String()
	signal.CollectedAt = time.Now().UTC()

	evidence, err := json.Marshal(signal.Evidence)
	if err != nil {
		return fmt.Errorf("failed to marshal evidence: %w", err)
	}
	sourceURLs, err := json.Marshal(signal.SourceURLs)
	if err != nil {
		return fmt.Errorf("failed to marshal source urls: %w", err)
	}

	query := `
		INSERT INTO signals (id, entity_name, entity_type, geo, signal_type, evidence,
			preliminary_score, source_urls, collected_at, agent_run_id, signal_category, expires_at, is_archived)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, false)
	`
	_, err = r.pool.Exec(ctx, query,
		signal.ID, signal.EntityName, signal.EntityType, signal.Geo, signal.SignalType,
		evidence, signal.PreliminaryScore, sourceURLs, signal.CollectedAt,
		signal.AgentRunID, signal.SignalCategory, signal.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert signal: %w", err)
	}

	return nil
}

// GetByID fetches a single signal.
func (r *SignalRepository) GetByID(ctx context.Context, id string) (*models.Signal, error) {
	query := `
		SELECT id, entity_name, entity_type, geo, signal_type, evidence,
			preliminary_score, source_urls, collected_at, agent_run_id, signal_category, expires_at, is_archived
		FROM signals
		WHERE id = $1
	`
	signal, err := scanSignal(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get signal: %w", err)
	}
	return signal, nil
}

// ListUnanalyzed returns the most recently collected signals that have no
// analysis yet, newest first. Archived signals are skipped.
func (r *SignalRepository) ListUnanalyzed(ctx context.Context, limit int) ([]models.Signal, error) {
	query := `
		SELECT s.id, s.entity_name, s.entity_type, s.geo, s.signal_type, s.evidence,
			s.preliminary_score, s.source_urls, s.collected_at, s.agent_run_id, s.signal_category, s.expires_at, s.is_archived
		FROM signals s
		LEFT JOIN analyzed_signals a ON a.signal_id = s.id
		WHERE a.id IS NULL AND s.is_archived = false
		ORDER BY s.collected_at DESC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list unanalyzed signals: %w", err)
	}
	defer rows.Close()

	var signals []models.Signal
	for rows.Next() {
		signal, err := scanSignal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan signal: %w", err)
		}
		signals = append(signals, *signal)
	}
	return signals, rows.Err()
}

// ArchiveExpired marks every expired, still-active signal as archived and
// returns the number of rows updated.
func (r *SignalRepository) ArchiveExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE signals
		SET is_archived = true
		WHERE is_archived = false AND expires_at IS NOT NULL AND expires_at < $1
	`
	tag, err := r.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to archive expired signals: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListForDashboard returns signals joined with their analysis and feedback
// count for display, newest first. Archived signals are excluded.
func (r *SignalRepository) ListForDashboard(ctx context.Context, limit int) ([]models.DashboardSignal, error) {
	query := `
		SELECT s.id, s.entity_name, s.entity_type, s.geo, s.signal_type, s.evidence,
			s.preliminary_score, s.source_urls, s.collected_at,
			a.final_score, a.priority, a.score_breakdown, a.ai_reasoning,
			(SELECT COUNT(*) FROM signal_feedback f WHERE f.signal_id = s.id) AS feedback_count
		FROM signals s
		LEFT JOIN analyzed_signals a ON a.signal_id = s.id
		WHERE s.is_archived = false
		ORDER BY s.collected_at DESC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list dashboard signals: %w", err)
	}
	defer rows.Close()

	var out []models.DashboardSignal
	for rows.Next() {
		var (
			ds            models.DashboardSignal
			evidenceJSON  []byte
			sourceJSON    []byte
			breakdownJSON []byte
		)
		err := rows.Scan(
			&ds.ID, &ds.EntityName, &ds.EntityType, &ds.Geo, &ds.SignalType,
			&evidenceJSON, &ds.PreliminaryScore, &sourceJSON, &ds.CollectedAt,
			&ds.FinalScore, &ds.Priority, &breakdownJSON, &ds.AIReasoning,
			&ds.FeedbackCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dashboard signal: %w", err)
		}
		if err := json.Unmarshal(evidenceJSON, &ds.Evidence); err != nil {
			return nil, fmt.Errorf("failed to unmarshal evidence: %w", err)
		}
		if sourceJSON != nil {
			if err := json.Unmarshal(sourceJSON, &ds.SourceURLs); err != nil {
				return nil, fmt.Errorf("failed to unmarshal source urls: %w", err)
			}
		}
		if breakdownJSON != nil {
			var breakdown models.ScoreBreakdown
			if err := json.Unmarshal(breakdownJSON, &breakdown); err != nil {
				return nil, fmt.Errorf("failed to unmarshal score breakdown: %w", err)
			}
			ds.ScoreBreakdown = &breakdown
		}
		out = append(out, ds)
	}
	return out, rows.Err()
}

func scanSignal(row pgx.Row) (*models.Signal, error) {
	var (
		signal       models.Signal
		evidenceJSON []byte
		sourceJSON   []byte
	)
	err := row.Scan(
		&signal.ID, &signal.EntityName, &signal.EntityType, &signal.Geo, &signal.SignalType,
		&evidenceJSON, &signal.PreliminaryScore, &sourceJSON, &signal.CollectedAt,
		&signal.AgentRunID, &signal.SignalCategory, &signal.ExpiresAt, &signal.IsArchived,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(evidenceJSON, &signal.Evidence); err != nil {
		return nil, fmt.Errorf("failed to unmarshal evidence: %w", err)
	}
	if sourceJSON != nil {
		if err := json.Unmarshal(sourceJSON, &signal.SourceURLs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal source urls: %w", err)
		}
	}
	return &signal, nil
}
