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
)

// AnalyzedSignalRepository handles database operations for scored verdicts.
type AnalyzedSignalRepository struct {
	pool DatabasePool
}

// NewAnalyzedSignalRepository creates a new analyzed-signal repository.
func NewAnalyzedSignalRepository(pool DatabasePool) *AnalyzedSignalRepository {
	return &AnalyzedSignalRepository{pool: pool}
}

// AnalyzedWithSignal joins an analysis with display fields from its source
// signal, for dashboards and report compilation.
type AnalyzedWithSignal struct {
	models.AnalyzedSignal
	EntityName string            `json:"entity_name"`
	EntityType models.EntityType `json:"entity_type"`
	Geo        string            `json:"geo"`
	SignalType string            `json:"signal_type"`
}

// Create inserts a new analysis after verifying none exists for the signal.
// The check-then-insert is best-effort under concurrent writers; the batch
// pipeline runs a single writer per stage.
func (r *AnalyzedSignalRepository) Create(ctx context.Context, analysis *models.AnalyzedSignal) error {
	existing, err := r.GetBySignalID(ctx, analysis.SignalID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if existing != nil {
		return ErrAlreadyAnalyzed
	}

	analysis.ID = uuid.New().String()
	analysis.AnalyzedAt = time.Now().UTC()

	breakdown, err := json.Marshal(analysis.ScoreBreakdown)
	if err != nil {
		return fmt.Errorf("failed to marshal score breakdown: %w", err)
	}
	riskFlags, err := json.Marshal(analysis.RiskFlags)
	if err != nil {
		return fmt.Errorf("failed to marshal risk flags: %w", err)
	}
	actions, err := json.Marshal(analysis.RecommendedActions)
	if err != nil {
		return fmt.Errorf("failed to marshal recommended actions: %w", err)
	}

	query := `
		INSERT INTO analyzed_signals (id, signal_id, final_score, score_breakdown, priority,
			risk_flags, recommended_actions, ai_reasoning, analyzed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = r.pool.Exec(ctx, query,
		analysis.ID, analysis.SignalID, analysis.FinalScore, breakdown, analysis.Priority,
		riskFlags, actions, analysis.AIReasoning, analysis.AnalyzedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert analyzed signal: %w", err)
	}

	return nil
}

// GetBySignalID fetches the analysis for a signal, or ErrNotFound.
func (r *AnalyzedSignalRepository) GetBySignalID(ctx context.Context, signalID string) (*models.AnalyzedSignal, error) {
	query := `
		SELECT id, signal_id, final_score, score_breakdown, priority,
			risk_flags, recommended_actions, ai_reasoning, analyzed_at
		FROM analyzed_signals
		WHERE signal_id = $1
	`
	analysis, err := scanAnalyzedSignal(r.pool.QueryRow(ctx, query, signalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get analyzed signal: %w", err)
	}
	return analysis, nil
}

// ListWithSignal returns the most recent analyses joined with their source
// signal's display fields, newest first. The fetch is bounded by limit; the
// report compiler filters the window in-process.
func (r *AnalyzedSignalRepository) ListWithSignal(ctx context.Context, limit int) ([]AnalyzedWithSignal, error) {
	query := `
		SELECT a.id, a.signal_id, a.final_score, a.score_breakdown, a.priority,
			a.risk_flags, a.recommended_actions, a.ai_reasoning, a.analyzed_at,
			s.entity_name, s.entity_type, s.geo, s.signal_type
		FROM analyzed_signals a
		JOIN signals s ON s.id = a.signal_id
		ORDER BY a.analyzed_at DESC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyzed signals: %w", err)
	}
	defer rows.Close()

	var out []AnalyzedWithSignal
	for rows.Next() {
		var (
			item          AnalyzedWithSignal
			breakdownJSON []byte
			riskJSON      []byte
			actionsJSON   []byte
		)
		err := rows.Scan(
			&item.ID, &item.SignalID, &item.FinalScore, &breakdownJSON, &item.Priority,
			&riskJSON, &actionsJSON, &item.AIReasoning, &item.AnalyzedAt,
			&item.EntityName, &item.EntityType, &item.Geo, &item.SignalType,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analyzed signal: %w", err)
		}
		if err := unmarshalAnalysisFields(&item.AnalyzedSignal, breakdownJSON, riskJSON, actionsJSON); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func scanAnalyzedSignal(row pgx.Row) (*models.AnalyzedSignal, error) {
	var (
		analysis      models.AnalyzedSignal
		breakdownJSON []byte
		riskJSON      []byte
		actionsJSON   []byte
	)
	err := row.Scan(
		&analysis.ID, &analysis.SignalID, &analysis.FinalScore, &breakdownJSON, &analysis.Priority,
		&riskJSON, &actionsJSON, &analysis.AIReasoning, &analysis.AnalyzedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := unmarshalAnalysisFields(&analysis, breakdownJSON, riskJSON, actionsJSON); err != nil {
		return nil, err
	}
	return &analysis, nil
}

func unmarshalAnalysisFields(analysis *models.AnalyzedSignal, breakdownJSON, riskJSON, actionsJSON []byte) error {
	if err := json.Unmarshal(breakdownJSON, &analysis.ScoreBreakdown); err != nil {
		return fmt.Errorf("failed to unmarshal score breakdown: %w", err)
	}
	if riskJSON != nil {
		if err := json.Unmarshal(riskJSON, &analysis.RiskFlags); err != nil {
			return fmt.Errorf("failed to unmarshal risk flags: %w", err)
		}
	}
	if actionsJSON != nil {
		if err := json.Unmarshal(actionsJSON, &analysis.RecommendedActions); err != nil {
			return fmt.Errorf("failed to unmarshal recommended actions: %w", err)
		}
	}
	return nil
}
