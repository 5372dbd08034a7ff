package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carloscae/E2-Outreach-Dashboard/internal/models"
	"github.com/carloscae/E2-Outreach-Dashboard/internal/utils"
)

func validSignal() *models.Signal {
	return &models.Signal{
		EntityName:       "SuperBet Brasil",
		EntityType:       models.EntityBookmaker,
		Geo:              "BR",
		SignalType:       "market_entry",
		PreliminaryScore: 7.5,
		Evidence: []models.SignalEvidence{
			{Source: "newsapi", Headline: "SuperBet launches in Brazil", Confidence: 0.8},
		},
		SourceURLs: []string{"https://example.com/superbet-brazil"},
	}
}

func TestSignalRepository_Create(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewSignalRepository(mockPool)
	signal := validSignal()

	mockPool.ExpectExec("INSERT INTO signals").
		WithArgs(pgxmock.AnyArg(), signal.EntityName, signal.EntityType, signal.Geo, signal.SignalType,
			pgxmock.AnyArg(), signal.PreliminaryScore, pgxmock.AnyArg(), pgxmock.AnyArg(),
			signal.AgentRunID, signal.SignalCategory, signal.ExpiresAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Create(context.Background(), signal)
	assert.NoError(t, err)
	assert.NotEmpty(t, signal.ID)
	assert.False(t, signal.CollectedAt.IsZero())
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestSignalRepository_Create_Invalid(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewSignalRepository(mockPool)

	tests := []struct {
		name   string
		mutate func(*models.Signal)
	}{
		{"empty entity name", func(s *models.Signal) { s.EntityName = "" }},
		{"no evidence", func(s *models.Signal) { s.Evidence = nil }},
		{"score above range", func(s *models.Signal) { s.PreliminaryScore = 10.5 }},
		{"negative score", func(s *models.Signal) { s.PreliminaryScore = -1 }},
		{"empty geo", func(s *models.Signal) { s.Geo = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signal := validSignal()
			tt.mutate(signal)
			err := repo.Create(context.Background(), signal)
			assert.Error(t, err)
			assert.True(t, utils.IsValidationError(err))
		})
	}
	// No database calls should have happened.
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestSignalRepository_GetByID(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewSignalRepository(mockPool)
	collectedAt := time.Now().UTC()
	evidence, _ := json.Marshal([]models.SignalEvidence{{Source: "rss", Confidence: 0.6}})
	sourceURLs, _ := json.Marshal([]string{"https://example.com/a"})

	mockPool.ExpectQuery("SELECT id, entity_name, entity_type").
		WithArgs("sig-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "entity_name", "entity_type", "geo", "signal_type", "evidence",
			"preliminary_score", "source_urls", "collected_at", "agent_run_id",
			"signal_category", "expires_at", "is_archived",
		}).AddRow("sig-1", "Bet365", "bookmaker", "BR", "promotion_launch", evidence,
			6.0, sourceURLs, collectedAt, nil, nil, nil, false))

	signal, err := repo.GetByID(context.Background(), "sig-1")
	require.NoError(t, err)
	assert.Equal(t, "Bet365", signal.EntityName)
	assert.Equal(t, models.EntityBookmaker, signal.EntityType)
	assert.Len(t, signal.Evidence, 1)
	assert.Equal(t, []string{"https://example.com/a"}, signal.SourceURLs)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestSignalRepository_GetByID_NotFound(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewSignalRepository(mockPool)

	mockPool.ExpectQuery("SELECT id, entity_name, entity_type").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "entity_name", "entity_type", "geo", "signal_type", "evidence",
			"preliminary_score", "source_urls", "collected_at", "agent_run_id",
			"signal_category", "expires_at", "is_archived",
		}))

	_, err = repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSignalRepository_ListUnanalyzed(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewSignalRepository(mockPool)
	evidence, _ := json.Marshal([]models.SignalEvidence{{Source: "newsapi", Confidence: 0.7}})

	mockPool.ExpectQuery("LEFT JOIN analyzed_signals").
		WithArgs(50).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "entity_name", "entity_type", "geo", "signal_type", "evidence",
			"preliminary_score", "source_urls", "collected_at", "agent_run_id",
			"signal_category", "expires_at", "is_archived",
		}).
			AddRow("sig-2", "KTO", "bookmaker", "BR", "market_entry", evidence,
				8.0, nil, time.Now().UTC(), nil, nil, nil, false).
			AddRow("sig-3", "Placard", "bookmaker", "PT", "sponsorship", evidence,
				5.5, nil, time.Now().UTC(), nil, nil, nil, false))

	signals, err := repo.ListUnanalyzed(context.Background(), 50)
	require.NoError(t, err)
	assert.Len(t, signals, 2)
	assert.Equal(t, "KTO", signals[0].EntityName)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestSignalRepository_ArchiveExpired(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewSignalRepository(mockPool)
	now := time.Now().UTC()

	mockPool.ExpectExec("UPDATE signals").
		WithArgs(now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))

	n, err := repo.ArchiveExpired(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestSignalRepository_ListForDashboard(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewSignalRepository(mockPool)
	evidence, _ := json.Marshal([]models.SignalEvidence{{Source: "reddit", Confidence: 0.5}})
	breakdown, _ := json.Marshal(models.ScoreBreakdown{
		MarketEntryMomentum: 3, E2PartnershipFit: 4, Actionability: 2, DataConfidence: 2,
	})
	finalScore := 11
	priority := models.PriorityHigh
	reasoning := "strong entry momentum in a core geo"

	mockPool.ExpectQuery("feedback_count").
		WithArgs(20).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "entity_name", "entity_type", "geo", "signal_type", "evidence",
			"preliminary_score", "source_urls", "collected_at",
			"final_score", "priority", "score_breakdown", "ai_reasoning", "feedback_count",
		}).
			AddRow("sig-4", "Betano", "bookmaker", "BR", "market_entry", evidence,
				7.0, nil, time.Now().UTC(), &finalScore, &priority, breakdown, &reasoning, 2).
			AddRow("sig-5", "NovaCasa", "bookmaker", "BR", "licensing", evidence,
				4.0, nil, time.Now().UTC(), nil, nil, nil, nil, 0))

	out, err := repo.ListForDashboard(context.Background(), 20)
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, "Betano", out[0].EntityName)
	require.NotNil(t, out[0].FinalScore)
	assert.Equal(t, 11, *out[0].FinalScore)
	require.NotNil(t, out[0].ScoreBreakdown)
	assert.Equal(t, 4, out[0].ScoreBreakdown.E2PartnershipFit)
	assert.Equal(t, 2, out[0].FeedbackCount)

	// Unanalyzed signal keeps nil analysis fields.
	assert.Nil(t, out[1].FinalScore)
	assert.Nil(t, out[1].Priority)
	assert.Nil(t, out[1].ScoreBreakdown)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
