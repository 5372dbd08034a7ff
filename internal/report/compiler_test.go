package report

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carloscae/E2-Outreach-Dashboard/internal/models"
	"github.com/carloscae/E2-Outreach-Dashboard/internal/store"
)

var analyzedJoinColumns = []string{
	"id", "signal_id", "final_score", "score_breakdown", "priority",
	"risk_flags", "recommended_actions", "ai_reasoning", "analyzed_at",
	"entity_name", "entity_type", "geo", "signal_type",
}

func testReportLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func analyzedRow(id string, score int, priority models.Priority, analyzedAt time.Time, entity, geo string) []any {
	breakdown, _ := json.Marshal(models.ScoreBreakdown{MarketEntryMomentum: 3, E2PartnershipFit: 3, Actionability: 2, DataConfidence: 2})
	risk, _ := json.Marshal(models.RiskFlags{})
	actions, _ := json.Marshal([]string{"Reach out"})
	return []any{
		id, "sig-" + id, score, breakdown, priority,
		risk, actions, "solid opportunity", analyzedAt,
		entity, models.EntityBookmaker, geo, "expansion",
	}
}

func TestCompilerFiltersWindowInclusive(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cycleStart := base.AddDate(0, 0, 4) // Mar 5
	cycleEnd := base.AddDate(0, 0, 14)  // Mar 15

	rows := pgxmock.NewRows(analyzedJoinColumns).
		AddRow(analyzedRow("a", 11, models.PriorityHigh, base, "EarlyBet", "BR")...).                 // Mar 1, before window
		AddRow(analyzedRow("b", 8, models.PriorityMedium, base.AddDate(0, 0, 9), "MidBet", "BR")...). // Mar 10, inside
		AddRow(analyzedRow("c", 12, models.PriorityHigh, cycleEnd, "EdgeBet", "MX")...).              // boundary, inclusive
		AddRow(analyzedRow("d", 5, models.PriorityLow, base.AddDate(0, 0, 19), "LateBet", "BR")...)   // Mar 20, after window
	mockPool.ExpectQuery("JOIN signals").WithArgs(100).WillReturnRows(rows)

	compiler := NewCompiler(store.NewAnalyzedSignalRepository(mockPool), testReportLogger())
	agg, err := compiler.Compile(context.Background(), cycleStart, cycleEnd)
	require.NoError(t, err)

	assert.Equal(t, 2, agg.Stats.TotalSignals)
	assert.Equal(t, 1, agg.Stats.HighPriority)
	assert.Equal(t, 1, agg.Stats.MediumPriority)
	assert.Equal(t, 0, agg.Stats.LowPriority)
	assert.InDelta(t, 10.0, agg.Stats.AvgScore, 0.001)
	assert.Equal(t, map[string]int{"BR": 1, "MX": 1}, agg.Stats.ByGeo)
	assert.Equal(t, map[string]int{"expansion": 2}, agg.Stats.BySignalType)
	require.Len(t, agg.High, 1)
	assert.Equal(t, "EdgeBet", agg.High[0].EntityName)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestCompilerEmptyWindowIsValid(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	mockPool.ExpectQuery("JOIN signals").WithArgs(100).
		WillReturnRows(pgxmock.NewRows(analyzedJoinColumns))

	compiler := NewCompiler(store.NewAnalyzedSignalRepository(mockPool), testReportLogger())
	agg, err := compiler.Compile(context.Background(), time.Now().Add(-14*24*time.Hour), time.Now())
	require.NoError(t, err)

	assert.Equal(t, 0, agg.Stats.TotalSignals)
	assert.Zero(t, agg.Stats.AvgScore)
	assert.Empty(t, agg.High)

	markdown := RenderMarkdown(agg)
	assert.Contains(t, markdown, "No signals were analyzed in this window.")
}

func TestAggregateTopSignalsOrdersByPriority(t *testing.T) {
	agg := &Aggregate{
		High:   []store.AnalyzedWithSignal{{EntityName: "HighBet"}},
		Medium: []store.AnalyzedWithSignal{{EntityName: "MidBet"}},
		Low:    []store.AnalyzedWithSignal{{EntityName: "LowBet"}},
	}

	top := agg.TopSignals(2)
	require.Len(t, top, 2)
	assert.Equal(t, "HighBet", top[0].EntityName)
	assert.Equal(t, "MidBet", top[1].EntityName)
}
