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

// ReportRepository handles database operations for compiled reports.
type ReportRepository struct {
	pool DatabasePool
}

// NewReportRepository creates a new report repository.
func NewReportRepository(pool DatabasePool) *ReportRepository {
	return &ReportRepository{pool: pool}
}

// Create inserts a new report row. Every commit-mode compilation inserts a
// fresh row; windows are not deduplicated.
func (r *ReportRepository) Create(ctx context.Context, report *models.Report) error {
	report.ID = uuid.New().String()
	report.CreatedAt = time.Now().UTC()

	stats, err := json.Marshal(report.SummaryStats)
	if err != nil {
		return fmt.Errorf("failed to marshal summary stats: %w", err)
	}

	query := `
		INSERT INTO reports (id, cycle_start, cycle_end, content_markdown, content_html, summary_stats, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.pool.Exec(ctx, query,
		report.ID, report.CycleStart, report.CycleEnd,
		report.ContentMarkdown, report.ContentHTML, stats, report.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}
	return nil
}

// MarkSent records a successful email dispatch. A report is sent at most
// once; a second call returns ErrAlreadySent and leaves the row untouched.
func (r *ReportRepository) MarkSent(ctx context.Context, id string) error {
	query := `
		UPDATE reports
		SET sent_at = $2
		WHERE id = $1 AND sent_at IS NULL
	`
	tag, err := r.pool.Exec(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to mark report sent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadySent
	}
	return nil
}

// GetByID fetches a single report.
func (r *ReportRepository) GetByID(ctx context.Context, id string) (*models.Report, error) {
	query := `
		SELECT id, cycle_start, cycle_end, content_markdown, content_html, summary_stats, sent_at, created_at
		FROM reports
		WHERE id = $1
	`
	report, err := scanReport(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return report, nil
}

// List returns the most recent reports, newest first.
func (r *ReportRepository) List(ctx context.Context, limit int) ([]models.Report, error) {
	query := `
		SELECT id, cycle_start, cycle_end, content_markdown, content_html, summary_stats, sent_at, created_at
		FROM reports
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var reports []models.Report
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, *report)
	}
	return reports, rows.Err()
}

func scanReport(row pgx.Row) (*models.Report, error) {
	var (
		report    models.Report
		statsJSON []byte
	)
	err := row.Scan(
		&report.ID, &report.CycleStart, &report.CycleEnd,
		&report.ContentMarkdown, &report.ContentHTML, &statsJSON,
		&report.SentAt, &report.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if statsJSON != nil {
		if err := json.Unmarshal(statsJSON, &report.SummaryStats); err != nil {
			return nil, fmt.Errorf("failed to unmarshal summary stats: %w", err)
		}
	}
	return &report, nil
}
