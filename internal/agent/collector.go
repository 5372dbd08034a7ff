package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/carloscae/E2-Outreach-Dashboard/internal/config"
	"github.com/carloscae/E2-Outreach-Dashboard/internal/models"
	"github.com/carloscae/E2-Outreach-Dashboard/internal/partner"
	"github.com/carloscae/E2-Outreach-Dashboard/internal/store"
	"github.com/carloscae/E2-Outreach-Dashboard/internal/tools"
	"github.com/carloscae/E2-Outreach-Dashboard/internal/utils"
)

// signalSummary is the display shape stages hand to prompt builders.
type signalSummary struct {
	ID               string
	EntityName       string
	EntityType       string
	Geo              string
	SignalType       string
	PreliminaryScore float64
	Evidence         []models.SignalEvidence
}

// CollectorResult summarizes one collection pass.
type CollectorResult struct {
	RunID              string            `json:"run_id"`
	SignalsStored      int               `json:"signals_stored"`
	SearchesRun        int               `json:"searches_run"`
	Iterations         int               `json:"iterations"`
	TokenUsage         models.TokenUsage `json:"token_usage"`
	StoredSignals      []string          `json:"stored_signals,omitempty"`
	EntitiesDiscovered []string          `json:"entities_discovered"`
	SearchQueriesUsed  []string          `json:"search_queries_used"`
	HitCeiling         bool              `json:"hit_ceiling"`
	PartnerSkips       int               `json:"partner_skips"`
}

// Collector runs the discovery stage: an agent conversation over the
// search, partnership and storage tools.
type Collector struct {
	loop      *Loop
	news      *tools.NewsService
	reddit    *tools.RedditService
	trends    *tools.TrendsService
	sites     *tools.SiteAnalyzer
	resolver  *partner.Resolver
	signals   *store.SignalRepository
	runs      *store.AgentRunRepository
	cfg       config.CollectorConfig
	maxTokens int
	signalTTL time.Duration
	logger    *logrus.Logger
}

func NewCollector(
	loop *Loop,
	news *tools.NewsService,
	reddit *tools.RedditService,
	trends *tools.TrendsService,
	sites *tools.SiteAnalyzer,
	resolver *partner.Resolver,
	signals *store.SignalRepository,
	runs *store.AgentRunRepository,
	cfg config.CollectorConfig,
	maxTokens int,
	signalTTL time.Duration,
	logger *logrus.Logger,
) *Collector {
	return &Collector{
		loop:      loop,
		news:      news,
		reddit:    reddit,
		trends:    trends,
		sites:     sites,
		resolver:  resolver,
		signals:   signals,
		runs:      runs,
		cfg:       cfg,
		maxTokens: maxTokens,
		signalTTL: signalTTL,
		logger:    logger,
	}
}

// collectorState tracks per-run progress shared by the tool handlers.
type collectorState struct {
	mu            sync.Mutex
	queries       map[string]bool
	queryOrder    []string
	signalsStored []string
	entities      []string
	partnerSkips  int
}

func (s *collectorState) recordQuery(q string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(strings.TrimSpace(q))
	if !s.queries[key] {
		s.queries[key] = true
		s.queryOrder = append(s.queryOrder, strings.TrimSpace(q))
	}
}

func (s *collectorState) distinctQueries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queries)
}

func (s *collectorState) recordEntity(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, seen := range s.entities {
		if strings.EqualFold(seen, name) {
			return
		}
	}
	s.entities = append(s.entities, name)
}

// Run executes one collection pass for a geo. The agent run record is
// completed whether the pass succeeds or fails.
func (c *Collector) Run(ctx context.Context, geo string, daysBack int) (*CollectorResult, error) {
	if geo == "" {
		geo = "BR"
	}
	if daysBack <= 0 {
		daysBack = c.cfg.DefaultDays
	}

	run, err := c.runs.Start(ctx, models.AgentCollector, map[string]any{"geo": geo, "days_back": daysBack})
	if err != nil {
		return nil, err
	}

	state := &collectorState{queries: make(map[string]bool)}
	loopResult, loopErr := c.loop.Run(ctx, LoopConfig{
		System:        buildCollectorSystemPrompt(geo, c.cfg.MinSearches, daysBack),
		InitialPrompt: buildCollectorUserPrompt(geo, daysBack),
		Tools:         c.toolSpecs(run.ID, geo, daysBack, state),
		MaxIterations: c.cfg.MaxIterations,
		MaxTokens:     c.maxTokens,
		Precondition: func() (string, bool) {
			distinct := state.distinctQueries()
			if distinct >= c.cfg.MinSearches {
				return "", true
			}
			return fmt.Sprintf("You've only performed %d search(es). Please perform at least %d searches using DIFFERENT signal categories (market_entry, expansion, sponsorship, licensing, growth). Try queries you haven't used yet.",
				distinct, c.cfg.MinSearches), false
		},
	})

	result := &CollectorResult{
		RunID:              run.ID,
		SignalsStored:      len(state.signalsStored),
		SearchesRun:        state.distinctQueries(),
		StoredSignals:      state.signalsStored,
		EntitiesDiscovered: state.entities,
		SearchQueriesUsed:  state.queryOrder,
		PartnerSkips:       state.partnerSkips,
	}
	if loopResult != nil {
		result.Iterations = loopResult.Iterations
		result.TokenUsage = loopResult.Usage
		result.HitCeiling = loopResult.HitCeiling
	}

	c.completeRun(ctx, run.ID, result, loopErr)
	if loopErr != nil {
		return result, loopErr
	}

	c.logger.WithFields(logrus.Fields{
		"run_id":   run.ID,
		"signals":  result.SignalsStored,
		"searches": result.SearchesRun,
	}).Info("Collection pass finished")
	return result, nil
}

func (c *Collector) completeRun(ctx context.Context, runID string, result *CollectorResult, loopErr error) {
	summary := map[string]any{
		"signals_stored": result.SignalsStored,
		"searches_run":   result.SearchesRun,
		"iterations":     result.Iterations,
		"hit_ceiling":    result.HitCeiling,
	}
	var runErr *string
	if loopErr != nil {
		msg := loopErr.Error()
		runErr = &msg
	}
	if err := c.runs.Complete(ctx, runID, store.RunResult{
		OutputSummary: summary,
		TokenUsage:    &result.TokenUsage,
		Error:         runErr,
	}); err != nil {
		c.logger.WithError(err).WithField("run_id", runID).Error("Failed to complete agent run")
	}
}

func (c *Collector) toolSpecs(runID, geo string, daysBack int, state *collectorState) []ToolSpec {
	return []ToolSpec{
		{
			Definition: searchNewsDefinition(),
			Handler:    c.handleSearchNews(geo, daysBack, state),
		},
		{
			Definition: socialSentimentDefinition(),
			Handler:    c.handleSocialSentiment(geo),
		},
		{
			Definition: trendInterestDefinition(),
			Handler:    c.handleTrendInterest(geo),
		},
		{
			Definition: checkPartnershipDefinition(),
			Handler:    c.handleCheckPartnership(state),
		},
		{
			Definition: analyzeSiteDefinition(),
			Handler:    c.handleAnalyzeSite(),
		},
		{
			Definition: storeSignalDefinition(),
			Handler:    c.handleStoreSignal(runID, geo, state),
		},
	}
}

func (c *Collector) handleSearchNews(geo string, daysBack int, state *collectorState) ToolHandler {
	return func(ctx context.Context, input json.RawMessage) (string, error) {
		var args struct {
			Keywords []string `json:"keywords"`
			Language string   `json:"language"`
		}
		if err := json.Unmarshal(input, &args); err != nil {
			return "", fmt.Errorf("invalid search_industry_news input: %w", err)
		}
		if len(args.Keywords) == 0 {
			return "", errors.New("keywords are required")
		}

		state.recordQuery(strings.Join(args.Keywords, " "))

		result, err := c.news.Search(ctx, args.Keywords, tools.NewsSearchOptions{
			Language: args.Language,
			Region:   strings.ToLower(geo),
			DaysBack: daysBack,
		})
		if err != nil {
			return "", err
		}
		return marshalToolOutput(result)
	}
}

func (c *Collector) handleSocialSentiment(geo string) ToolHandler {
	return func(ctx context.Context, input json.RawMessage) (string, error) {
		var args struct {
			EntityName string `json:"entity_name"`
		}
		if err := json.Unmarshal(input, &args); err != nil || args.EntityName == "" {
			return "", errors.New("entity_name is required")
		}

		result, err := c.reddit.SearchMentions(ctx, args.EntityName, strings.ToLower(geo))
		if err != nil {
			return "", err
		}
		return marshalToolOutput(result)
	}
}

func (c *Collector) handleTrendInterest(geo string) ToolHandler {
	return func(ctx context.Context, input json.RawMessage) (string, error) {
		var args struct {
			Keyword string `json:"keyword"`
		}
		if err := json.Unmarshal(input, &args); err != nil || args.Keyword == "" {
			return "", errors.New("keyword is required")
		}

		data, err := c.trends.Check(ctx, args.Keyword, strings.ToUpper(geo))
		if err != nil {
			return "", err
		}
		return marshalToolOutput(data)
	}
}

func (c *Collector) handleCheckPartnership(state *collectorState) ToolHandler {
	return func(ctx context.Context, input json.RawMessage) (string, error) {
		var args struct {
			EntityName string `json:"entity_name"`
		}
		if err := json.Unmarshal(input, &args); err != nil || args.EntityName == "" {
			return "", errors.New("entity_name is required")
		}

		match := c.resolver.Resolve(ctx, args.EntityName)
		if match.Tier == partner.TierAffiliatePartner {
			state.mu.Lock()
			state.partnerSkips++
			state.mu.Unlock()
		}
		return marshalToolOutput(match)
	}
}

func (c *Collector) handleAnalyzeSite() ToolHandler {
	return func(ctx context.Context, input json.RawMessage) (string, error) {
		var args struct {
			URL string `json:"url"`
		}
		if err := json.Unmarshal(input, &args); err != nil || args.URL == "" {
			return "", errors.New("url is required")
		}

		analysis, err := c.sites.Analyze(ctx, args.URL)
		if err != nil {
			return "", err
		}
		return marshalToolOutput(analysis)
	}
}

func (c *Collector) handleStoreSignal(runID, geo string, state *collectorState) ToolHandler {
	return func(ctx context.Context, input json.RawMessage) (string, error) {
		var args struct {
			EntityName          string  `json:"entity_name"`
			EntityType          string  `json:"entity_type"`
			Geo                 string  `json:"geo"`
			SignalType          string  `json:"signal_type"`
			EvidenceHeadline    string  `json:"evidence_headline"`
			EvidenceURL         string  `json:"evidence_url"`
			EvidenceSource      string  `json:"evidence_source"`
			EvidenceDescription string  `json:"evidence_description"`
			PreliminaryScore    float64 `json:"preliminary_score"`
			Reasoning           string  `json:"reasoning"`
			SignalCategory      string  `json:"signal_category"`
		}
		if err := json.Unmarshal(input, &args); err != nil {
			return "", fmt.Errorf("invalid store_signal input: %w", err)
		}
		if args.Reasoning == "" {
			return "", errors.New("reasoning is required for every stored signal")
		}
		if args.Geo == "" {
			args.Geo = strings.ToUpper(geo)
		}
		if args.EntityType == "" {
			args.EntityType = string(models.EntityBookmaker)
		}
		if args.EvidenceSource == "" {
			args.EvidenceSource = "collector"
		}

		description := args.EvidenceDescription
		if description == "" {
			description = args.Reasoning
		}

		expiresAt := time.Now().UTC().Add(c.signalTTL)
		signal := &models.Signal{
			EntityName:       args.EntityName,
			EntityType:       models.EntityType(strings.ToLower(args.EntityType)),
			Geo:              strings.ToUpper(args.Geo),
			SignalType:       strings.ToLower(args.SignalType),
			PreliminaryScore: args.PreliminaryScore,
			Evidence: []models.SignalEvidence{{
				Source:      args.EvidenceSource,
				Headline:    args.EvidenceHeadline,
				Description: description,
				URL:         args.EvidenceURL,
				Confidence:  args.PreliminaryScore / 10,
			}},
			SourceURLs: []string{args.EvidenceURL},
			AgentRunID: &runID,
			ExpiresAt:  &expiresAt,
		}
		if args.SignalCategory != "" {
			category := strings.ToLower(args.SignalCategory)
			signal.SignalCategory = &category
		}

		if err := c.signals.Create(ctx, signal); err != nil {
			if utils.IsValidationError(err) {
				return "", fmt.Errorf("signal rejected: %w", err)
			}
			return "", err
		}

		state.mu.Lock()
		state.signalsStored = append(state.signalsStored, signal.ID)
		state.mu.Unlock()
		state.recordEntity(signal.EntityName)

		return fmt.Sprintf(`{"stored": true, "signal_id": %q}`, signal.ID), nil
	}
}

func marshalToolOutput(v any) (string, error) {
	out, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to serialize tool output: %w", err)
	}
	return string(out), nil
}
