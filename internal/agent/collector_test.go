package agent

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carloscae/E2-Outreach-Dashboard/internal/config"
	"github.com/carloscae/E2-Outreach-Dashboard/internal/llm"
	"github.com/carloscae/E2-Outreach-Dashboard/internal/partner"
	"github.com/carloscae/E2-Outreach-Dashboard/internal/store"
)

type fakeRoster struct {
	bookies []partner.Bookie
	promos  map[string]int
}

func (f *fakeRoster) FetchBookies(context.Context) ([]partner.Bookie, error) {
	return f.bookies, nil
}

func (f *fakeRoster) PromotionCount(_ context.Context, bookieID string) (int, error) {
	return f.promos[bookieID], nil
}

func testResolver() *partner.Resolver {
	roster := &fakeRoster{
		bookies: []partner.Bookie{{ID: "b1", Name: "Bet365", Slug: "bet365"}},
		promos:  map[string]int{"b1": 5},
	}
	return partner.NewResolver(roster, partner.NewRosterCache(time.Hour), 0.7, testAgentLogger())
}

func expectRunStart(mockPool pgxmock.PgxPoolIface) {
	mockPool.ExpectExec("INSERT INTO agent_runs").
		WithArgs(pgxmock.AnyArg(), "collector", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
}

func expectRunComplete(mockPool pgxmock.PgxPoolIface) {
	mockPool.ExpectQuery("SELECT started_at FROM agent_runs").
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"started_at"}).AddRow(time.Now().UTC().Add(-time.Minute)))
	mockPool.ExpectExec("UPDATE agent_runs").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
}

func newTestCollector(client *scriptedClient, mockPool pgxmock.PgxPoolIface, cfg config.CollectorConfig) *Collector {
	logger := testAgentLogger()
	return NewCollector(
		NewLoop(client, logger),
		nil, nil, nil, nil,
		testResolver(),
		store.NewSignalRepository(mockPool),
		store.NewAgentRunRepository(mockPool, logger),
		cfg,
		1024,
		30*24*time.Hour,
		logger,
	)
}

func TestCollectorStoresSignalAndCompletesRun(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	client := &scriptedClient{responses: []*llm.Response{
		toolUseResponse("call_1", "store_signal", `{
			"entity_name": "NovaBet",
			"entity_type": "bookmaker",
			"signal_type": "market_entry",
			"evidence_headline": "NovaBet enters Brazil",
			"evidence_url": "https://example.com/novabet",
			"evidence_source": "newsapi",
			"preliminary_score": 8,
			"reasoning": "Fresh market entrant with licensing news"
		}`),
		textResponse("collection complete"),
	}}

	expectRunStart(mockPool)
	mockPool.ExpectExec("INSERT INTO signals").
		WithArgs(pgxmock.AnyArg(), "NovaBet", pgxmock.AnyArg(), "BR", "market_entry",
			pgxmock.AnyArg(), 8.0, pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	expectRunComplete(mockPool)

	collector := newTestCollector(client, mockPool, config.CollectorConfig{
		MaxIterations: 10,
		MinSearches:   0,
		DefaultDays:   7,
	})

	result, err := collector.Run(context.Background(), "BR", 7)
	require.NoError(t, err)
	assert.Equal(t, 1, result.SignalsStored)
	assert.Equal(t, 2, result.Iterations)
	assert.False(t, result.HitCeiling)
	assert.Len(t, result.StoredSignals, 1)
	assert.Equal(t, []string{"NovaBet"}, result.EntitiesDiscovered)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestCollectorReportsQueriesAndEntities(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	// Two stored signals for the same entity, spelled differently.
	client := &scriptedClient{responses: []*llm.Response{
		toolUseResponse("call_1", "store_signal", `{
			"entity_name": "NovaBet",
			"signal_type": "market_entry",
			"evidence_headline": "NovaBet enters Brazil",
			"evidence_url": "https://example.com/novabet",
			"preliminary_score": 8,
			"reasoning": "Fresh market entrant"
		}`),
		toolUseResponse("call_2", "store_signal", `{
			"entity_name": "novabet",
			"signal_type": "sponsorship",
			"evidence_headline": "NovaBet sponsors Serie B club",
			"evidence_url": "https://example.com/novabet-sponsor",
			"preliminary_score": 6,
			"reasoning": "Sponsorship push"
		}`),
		textResponse("done"),
	}}

	expectRunStart(mockPool)
	for i := 0; i < 2; i++ {
		mockPool.ExpectExec("INSERT INTO signals").
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	expectRunComplete(mockPool)

	collector := newTestCollector(client, mockPool, config.CollectorConfig{
		MaxIterations: 10,
		DefaultDays:   7,
	})

	result, err := collector.Run(context.Background(), "BR", 7)
	require.NoError(t, err)
	assert.Equal(t, 2, result.SignalsStored)
	// Entity names are deduplicated case-insensitively.
	assert.Equal(t, []string{"NovaBet"}, result.EntitiesDiscovered)
	assert.Empty(t, result.SearchQueriesUsed)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestCollectorStateRecordsDistinctQueries(t *testing.T) {
	state := &collectorState{queries: make(map[string]bool)}
	state.recordQuery("apostas brasil licenciamento")
	state.recordQuery("  Apostas Brasil licenciamento ")
	state.recordQuery("novos patrocinadores serie a")

	assert.Equal(t, 2, state.distinctQueries())
	assert.Equal(t, []string{
		"apostas brasil licenciamento",
		"novos patrocinadores serie a",
	}, state.queryOrder)
}

func TestCollectorRejectsSignalWithoutReasoning(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	client := &scriptedClient{responses: []*llm.Response{
		toolUseResponse("call_1", "store_signal", `{
			"entity_name": "NovaBet",
			"signal_type": "market_entry",
			"preliminary_score": 8
		}`),
		textResponse("done"),
	}}

	expectRunStart(mockPool)
	expectRunComplete(mockPool)

	collector := newTestCollector(client, mockPool, config.CollectorConfig{
		MaxIterations: 10,
		DefaultDays:   7,
	})

	result, err := collector.Run(context.Background(), "BR", 7)
	require.NoError(t, err)
	assert.Equal(t, 0, result.SignalsStored)

	// The model saw the rejection as an error tool result.
	second := client.requests[1]
	last := second.Messages[len(second.Messages)-1]
	require.Len(t, last.Content, 1)
	assert.True(t, last.Content[0].IsError)
	assert.Contains(t, last.Content[0].Content, "reasoning")
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestCollectorInjectsMinSearchCorrection(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	// The model tries to stop immediately twice; the run only ends at
	// the iteration ceiling since no searches ever happen.
	client := &scriptedClient{responses: []*llm.Response{
		textResponse("nothing to do"),
		textResponse("still nothing"),
	}}

	expectRunStart(mockPool)
	expectRunComplete(mockPool)

	collector := newTestCollector(client, mockPool, config.CollectorConfig{
		MaxIterations: 2,
		MinSearches:   3,
		DefaultDays:   7,
	})

	result, err := collector.Run(context.Background(), "BR", 7)
	require.NoError(t, err)
	assert.True(t, result.HitCeiling)
	assert.Equal(t, 0, result.SearchesRun)

	second := client.requests[1]
	last := second.Messages[len(second.Messages)-1]
	require.Len(t, last.Content, 1)
	assert.Contains(t, last.Content[0].Text, "only performed 0 search(es)")
	assert.Contains(t, last.Content[0].Text, "at least 3 searches")
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestCollectorPartnershipCheckFlagsAffiliates(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	client := &scriptedClient{responses: []*llm.Response{
		toolUseResponse("call_1", "check_partnership", `{"entity_name": "Bet365"}`),
		textResponse("skipping existing partner"),
	}}

	expectRunStart(mockPool)
	expectRunComplete(mockPool)

	collector := newTestCollector(client, mockPool, config.CollectorConfig{
		MaxIterations: 10,
		DefaultDays:   7,
	})

	result, err := collector.Run(context.Background(), "BR", 7)
	require.NoError(t, err)
	assert.Equal(t, 1, result.PartnerSkips)

	second := client.requests[1]
	last := second.Messages[len(second.Messages)-1]
	require.Len(t, last.Content, 1)
	assert.False(t, last.Content[0].IsError)
	assert.Contains(t, last.Content[0].Content, "AFFILIATE_PARTNER")
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
