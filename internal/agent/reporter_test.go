package agent

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carloscae/E2-Outreach-Dashboard/internal/config"
	"github.com/carloscae/E2-Outreach-Dashboard/internal/llm"
	"github.com/carloscae/E2-Outreach-Dashboard/internal/models"
	"github.com/carloscae/E2-Outreach-Dashboard/internal/report"
	"github.com/carloscae/E2-Outreach-Dashboard/internal/store"
)

type fakeEmail struct {
	err        error
	sent       int
	subjects   []string
	recipients []string
}

func (f *fakeEmail) Send(_ context.Context, subject, _ string, recipients []string) error {
	if f.err != nil {
		return f.err
	}
	f.sent++
	f.subjects = append(f.subjects, subject)
	f.recipients = recipients
	return nil
}

func newTestReporter(client *scriptedClient, mockPool pgxmock.PgxPoolIface, email *fakeEmail) *Reporter {
	logger := testAgentLogger()
	return NewReporter(
		NewLoop(client, logger),
		report.NewCompiler(store.NewAnalyzedSignalRepository(mockPool), logger),
		store.NewReportRepository(mockPool),
		email,
		store.NewAgentRunRepository(mockPool, logger),
		config.ReportConfig{CycleDays: 14, MaxIterations: 5},
		1024,
		logger,
	)
}

func expectReporterRunStart(mockPool pgxmock.PgxPoolIface) {
	mockPool.ExpectExec("INSERT INTO agent_runs").
		WithArgs(pgxmock.AnyArg(), "reporter", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
}

var analyzedJoinColumns = []string{
	"id", "signal_id", "final_score", "score_breakdown", "priority",
	"risk_flags", "recommended_actions", "ai_reasoning", "analyzed_at",
	"entity_name", "entity_type", "geo", "signal_type",
}

func recentAnalyzedRow(id string, score int, priority models.Priority) []any {
	breakdown, _ := json.Marshal(models.ScoreBreakdown{MarketEntryMomentum: 3, E2PartnershipFit: 3, Actionability: 2, DataConfidence: 2})
	risk, _ := json.Marshal(models.RiskFlags{})
	actions, _ := json.Marshal([]string{"Reach out"})
	return []any{
		id, "sig-" + id, score, breakdown, priority,
		risk, actions, "reasoning", time.Now().UTC().Add(-24 * time.Hour),
		"NovaBet", models.EntityBookmaker, "BR", "market_entry",
	}
}

func TestReporterRunSendsAndMarksSent(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	client := &scriptedClient{responses: []*llm.Response{
		toolUseResponse("call_1", "generate_report_section",
			`{"section": "executive_summary", "content": "Strong cycle for Brazil."}`),
		textResponse("report drafted"),
	}}

	expectReporterRunStart(mockPool)
	mockPool.ExpectQuery("JOIN signals").
		WithArgs(100).
		WillReturnRows(pgxmock.NewRows(analyzedJoinColumns).
			AddRow(recentAnalyzedRow("a1", 11, models.PriorityHigh)...))
	mockPool.ExpectExec("INSERT INTO reports").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mockPool.ExpectExec("UPDATE reports").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	expectRunComplete(mockPool)

	email := &fakeEmail{}
	reporter := newTestReporter(client, mockPool, email)

	result, err := reporter.Run(context.Background(), ReportOptions{})
	require.NoError(t, err)
	assert.True(t, result.EmailSent)
	assert.Equal(t, 1, email.sent)
	assert.NotEmpty(t, result.ReportID)
	assert.Contains(t, result.Markdown, "Strong cycle for Brazil.")
	assert.Contains(t, result.Markdown, "NovaBet")
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestReporterRunEmailFailureLeavesReportUnsent(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	client := &scriptedClient{responses: []*llm.Response{textResponse("no sections")}}

	expectReporterRunStart(mockPool)
	mockPool.ExpectQuery("JOIN signals").
		WithArgs(100).
		WillReturnRows(pgxmock.NewRows(analyzedJoinColumns).
			AddRow(recentAnalyzedRow("a1", 11, models.PriorityHigh)...))
	mockPool.ExpectExec("INSERT INTO reports").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	// No UPDATE reports expectation; the sent_at guard is never touched.
	expectRunComplete(mockPool)

	email := &fakeEmail{err: errors.New("smtp unavailable")}
	reporter := newTestReporter(client, mockPool, email)

	result, err := reporter.Run(context.Background(), ReportOptions{})
	require.NoError(t, err)
	assert.False(t, result.EmailSent)
	assert.Contains(t, result.EmailError, "smtp unavailable")
	assert.NotEmpty(t, result.ReportID)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestReporterRunEmptyWindowSkipsReport(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	expectReporterRunStart(mockPool)
	mockPool.ExpectQuery("JOIN signals").
		WithArgs(100).
		WillReturnRows(pgxmock.NewRows(analyzedJoinColumns))
	expectRunComplete(mockPool)

	email := &fakeEmail{}
	reporter := newTestReporter(&scriptedClient{}, mockPool, email)

	result, err := reporter.Run(context.Background(), ReportOptions{})
	require.NoError(t, err)
	assert.Empty(t, result.ReportID)
	assert.False(t, result.EmailSent)
	assert.Equal(t, 0, email.sent)
	assert.Equal(t, 0, result.Stats.TotalSignals)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestReporterRunHonorsWindowAndRecipients(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	client := &scriptedClient{responses: []*llm.Response{textResponse("no sections")}}

	expectReporterRunStart(mockPool)
	mockPool.ExpectQuery("JOIN signals").
		WithArgs(100).
		WillReturnRows(pgxmock.NewRows(analyzedJoinColumns).
			AddRow(recentAnalyzedRow("a1", 11, models.PriorityHigh)...))
	mockPool.ExpectExec("INSERT INTO reports").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mockPool.ExpectExec("UPDATE reports").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	expectRunComplete(mockPool)

	email := &fakeEmail{}
	reporter := newTestReporter(client, mockPool, email)

	cycleEnd := time.Now().UTC()
	cycleStart := cycleEnd.AddDate(0, 0, -7)
	result, err := reporter.Run(context.Background(), ReportOptions{
		CycleStart:      &cycleStart,
		CycleEnd:        &cycleEnd,
		RecipientEmails: []string{"ceo@e2.bet"},
	})
	require.NoError(t, err)
	assert.True(t, result.EmailSent)
	assert.Equal(t, cycleStart, result.PeriodStart)
	assert.Equal(t, cycleEnd, result.PeriodEnd)
	assert.Equal(t, []string{"ceo@e2.bet"}, result.Recipients)
	assert.Equal(t, []string{"ceo@e2.bet"}, email.recipients)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestReporterRunCustomWindowExcludesOlderAnalyses(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	expectReporterRunStart(mockPool)
	mockPool.ExpectQuery("JOIN signals").
		WithArgs(100).
		WillReturnRows(pgxmock.NewRows(analyzedJoinColumns).
			AddRow(recentAnalyzedRow("a1", 11, models.PriorityHigh)...))
	expectRunComplete(mockPool)

	email := &fakeEmail{}
	reporter := newTestReporter(&scriptedClient{}, mockPool, email)

	// The only analysis is from yesterday; a window ending ten days ago
	// must not pick it up.
	cycleEnd := time.Now().UTC().AddDate(0, 0, -10)
	cycleStart := cycleEnd.AddDate(0, 0, -14)
	result, err := reporter.Run(context.Background(), ReportOptions{CycleStart: &cycleStart, CycleEnd: &cycleEnd})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Stats.TotalSignals)
	assert.Empty(t, result.ReportID)
	assert.Equal(t, 0, email.sent)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestReporterPreviewDoesNotPersist(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	mockPool.ExpectQuery("JOIN signals").
		WithArgs(100).
		WillReturnRows(pgxmock.NewRows(analyzedJoinColumns).
			AddRow(recentAnalyzedRow("a1", 8, models.PriorityMedium)...))

	email := &fakeEmail{}
	reporter := newTestReporter(&scriptedClient{}, mockPool, email)

	result, err := reporter.Preview(context.Background(), ReportOptions{})
	require.NoError(t, err)
	assert.Empty(t, result.ReportID)
	assert.Equal(t, 0, email.sent)
	assert.Equal(t, 1, result.Stats.TotalSignals)
	assert.Contains(t, result.Markdown, "NovaBet")
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestReporterNarrativeFailureShipsDataOnlyReport(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	client := &scriptedClient{err: errors.New("model overloaded"), errAt: 1}

	expectReporterRunStart(mockPool)
	mockPool.ExpectQuery("JOIN signals").
		WithArgs(100).
		WillReturnRows(pgxmock.NewRows(analyzedJoinColumns).
			AddRow(recentAnalyzedRow("a1", 11, models.PriorityHigh)...))
	mockPool.ExpectExec("INSERT INTO reports").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mockPool.ExpectExec("UPDATE reports").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	expectRunComplete(mockPool)

	email := &fakeEmail{}
	reporter := newTestReporter(client, mockPool, email)

	result, err := reporter.Run(context.Background(), ReportOptions{})
	require.NoError(t, err)
	assert.True(t, result.EmailSent)
	assert.NotContains(t, result.Markdown, "Executive Summary")
	assert.Contains(t, result.Markdown, "NovaBet")
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
