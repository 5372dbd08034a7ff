package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/carloscae/E2-Outreach-Dashboard/internal/models"
)

// AgentRunRepository records pipeline stage executions. A run is started
// when a stage begins and completed exactly once when it ends; Complete on
// an already finished run is rejected.
type AgentRunRepository struct {
	db     DatabasePool
	logger *logrus.Logger
}

func NewAgentRunRepository(db DatabasePool, logger *logrus.Logger) *AgentRunRepository {
	return &AgentRunRepository{db: db, logger: logger}
}

// Start creates the run row and returns it with its id and start time set.
func (r *AgentRunRepository) Start(ctx context.Context, agentType models.AgentType, inputParams map[string]any) (*models.AgentRun, error) {
	run := &models.AgentRun{
		ID:          uuid.New().String(),
		AgentType:   agentType,
		InputParams: inputParams,
		StartedAt:   time.Now().UTC(),
	}

	paramsJSON, err := json.Marshal(run.InputParams)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal input params: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO agent_runs (id, agent_type, input_params, started_at)
		VALUES ($1, $2, $3, $4)`,
		run.ID, string(run.AgentType), paramsJSON, run.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert agent run: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"run_id":     run.ID,
		"agent_type": agentType,
	}).Info("Agent run started")
	return run, nil
}

// RunResult carries the terminal state of a run. Error is nil for
// successful runs.
type RunResult struct {
	OutputSummary map[string]any
	TokenUsage    *models.TokenUsage
	Error         *string
}

// Complete finalizes the run, recording its outcome and duration. The
// update only matches rows that have not completed yet, so a second call
// for the same run returns ErrNotFound.
func (r *AgentRunRepository) Complete(ctx context.Context, runID string, result RunResult) error {
	var startedAt time.Time
	err := r.db.QueryRow(ctx, `
		SELECT started_at FROM agent_runs WHERE id = $1 AND completed_at IS NULL`, runID).Scan(&startedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load agent run: %w", err)
	}

	completedAt := time.Now().UTC()
	durationMs := completedAt.Sub(startedAt).Milliseconds()

	summaryJSON, err := json.Marshal(result.OutputSummary)
	if err != nil {
		return fmt.Errorf("failed to marshal output summary: %w", err)
	}
	var usageJSON []byte
	if result.TokenUsage != nil {
		usageJSON, err = json.Marshal(result.TokenUsage)
		if err != nil {
			return fmt.Errorf("failed to marshal token usage: %w", err)
		}
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE agent_runs
		SET output_summary = $2, token_usage = $3, error = $4, duration_ms = $5, completed_at = $6
		WHERE id = $1 AND completed_at IS NULL`,
		runID, summaryJSON, usageJSON, result.Error, durationMs, completedAt)
	if err != nil {
		return fmt.Errorf("failed to complete agent run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	entry := r.logger.WithFields(logrus.Fields{
		"run_id":      runID,
		"duration_ms": durationMs,
	})
	if result.Error != nil {
		entry.WithField("error", *result.Error).Warn("Agent run completed with error")
	} else {
		entry.Info("Agent run completed")
	}
	return nil
}

// GetByID returns one run with its jsonb fields decoded.
func (r *AgentRunRepository) GetByID(ctx context.Context, runID string) (*models.AgentRun, error) {
	var (
		run         models.AgentRun
		paramsJSON  []byte
		summaryJSON []byte
		usageJSON   []byte
	)
	err := r.db.QueryRow(ctx, `
		SELECT id, agent_type, input_params, output_summary, token_usage, duration_ms, error, started_at, completed_at
		FROM agent_runs WHERE id = $1`, runID).Scan(
		&run.ID, &run.AgentType, &paramsJSON, &summaryJSON, &usageJSON,
		&run.DurationMs, &run.Error, &run.StartedAt, &run.CompletedAt)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query agent run: %w", err)
	}

	if len(paramsJSON) > 0 {
		if err := json.Unmarshal(paramsJSON, &run.InputParams); err != nil {
			return nil, fmt.Errorf("failed to decode input params: %w", err)
		}
	}
	if len(summaryJSON) > 0 {
		if err := json.Unmarshal(summaryJSON, &run.OutputSummary); err != nil {
			return nil, fmt.Errorf("failed to decode output summary: %w", err)
		}
	}
	if len(usageJSON) > 0 {
		run.TokenUsage = &models.TokenUsage{}
		if err := json.Unmarshal(usageJSON, run.TokenUsage); err != nil {
			return nil, fmt.Errorf("failed to decode token usage: %w", err)
		}
	}
	return &run, nil
}
