package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/carloscae/E2-Outreach-Dashboard/internal/config"
	"github.com/carloscae/E2-Outreach-Dashboard/internal/models"
	"github.com/carloscae/E2-Outreach-Dashboard/internal/store"
	"github.com/carloscae/E2-Outreach-Dashboard/internal/tools"
	"github.com/carloscae/E2-Outreach-Dashboard/internal/utils"
)

// PublisherResult summarizes one publisher discovery pass.
type PublisherResult struct {
	RunID              string            `json:"run_id"`
	SignalsStored      int               `json:"signals_stored"`
	Iterations         int               `json:"iterations"`
	TokenUsage         models.TokenUsage `json:"token_usage"`
	StoredSignals      []string          `json:"stored_signals,omitempty"`
	EntitiesDiscovered []string          `json:"entities_discovered"`
	SearchQueriesUsed  []string          `json:"search_queries_used"`
	HitCeiling         bool              `json:"hit_ceiling"`
}

// PublisherCollector runs the publisher discovery stage: an agent
// conversation over Google search, site analysis and storage tools,
// hunting Brazilian sports publishers without betting integrations.
type PublisherCollector struct {
	loop      *Loop
	serper    *tools.SerperService
	sites     *tools.SiteAnalyzer
	signals   *store.SignalRepository
	runs      *store.AgentRunRepository
	cfg       config.CollectorConfig
	maxTokens int
	signalTTL time.Duration
	logger    *logrus.Logger
}

func NewPublisherCollector(
	loop *Loop,
	serper *tools.SerperService,
	sites *tools.SiteAnalyzer,
	signals *store.SignalRepository,
	runs *store.AgentRunRepository,
	cfg config.CollectorConfig,
	maxTokens int,
	signalTTL time.Duration,
	logger *logrus.Logger,
) *PublisherCollector {
	return &PublisherCollector{
		loop:      loop,
		serper:    serper,
		sites:     sites,
		signals:   signals,
		runs:      runs,
		cfg:       cfg,
		maxTokens: maxTokens,
		signalTTL: signalTTL,
		logger:    logger,
	}
}

// Run executes one publisher discovery pass for a geo. The pass needs
// a Serper key; without one it fails before an agent run is recorded.
func (c *PublisherCollector) Run(ctx context.Context, geo string) (*PublisherResult, error) {
	if !c.serper.Configured() {
		return nil, tools.ErrSerperNotConfigured
	}
	if geo == "" {
		geo = "BR"
	}

	run, err := c.runs.Start(ctx, models.AgentCollector, map[string]any{"type": "publisher", "geo": strings.ToLower(geo)})
	if err != nil {
		return nil, err
	}

	state := &collectorState{queries: make(map[string]bool)}
	loopResult, loopErr := c.loop.Run(ctx, LoopConfig{
		System:        buildPublisherSystemPrompt(geo),
		InitialPrompt: buildPublisherUserPrompt(geo, c.cfg.PublisherLimit),
		Tools:         c.toolSpecs(run.ID, geo, state),
		MaxIterations: c.cfg.PublisherMaxIterations,
		MaxTokens:     c.maxTokens,
	})

	result := &PublisherResult{
		RunID:              run.ID,
		SignalsStored:      len(state.signalsStored),
		StoredSignals:      state.signalsStored,
		EntitiesDiscovered: state.entities,
		SearchQueriesUsed:  state.queryOrder,
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
		"run_id":     run.ID,
		"signals":    result.SignalsStored,
		"publishers": len(result.EntitiesDiscovered),
	}).Info("Publisher discovery pass finished")
	return result, nil
}

func (c *PublisherCollector) completeRun(ctx context.Context, runID string, result *PublisherResult, loopErr error) {
	summary := map[string]any{
		"signals_stored":        result.SignalsStored,
		"publishers_discovered": len(result.EntitiesDiscovered),
		"iterations":            result.Iterations,
		"hit_ceiling":           result.HitCeiling,
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

func (c *PublisherCollector) toolSpecs(runID, geo string, state *collectorState) []ToolSpec {
	return []ToolSpec{
		{
			Definition: discoverPublishersDefinition(),
			Handler:    c.handleDiscoverPublishers(state),
		},
		{
			Definition: searchPublishersDefinition(),
			Handler:    c.handleSearchPublishers(geo, state),
		},
		{
			Definition: analyzePublisherDefinition(),
			Handler:    c.handleAnalyzePublisher(),
		},
		{
			Definition: publisherTrafficDefinition(),
			Handler:    c.handlePublisherTraffic(),
		},
		{
			Definition: storePublisherSignalDefinition(),
			Handler:    c.handleStorePublisherSignal(runID, geo, state),
		},
	}
}

func (c *PublisherCollector) handleDiscoverPublishers(state *collectorState) ToolHandler {
	return func(ctx context.Context, input json.RawMessage) (string, error) {
		var args struct {
			Limit int `json:"limit"`
		}
		if err := json.Unmarshal(input, &args); err != nil {
			return "", fmt.Errorf("invalid discover_publishers input: %w", err)
		}
		if args.Limit <= 0 || args.Limit > c.cfg.PublisherLimit {
			args.Limit = c.cfg.PublisherLimit
		}

		hits, err := c.serper.DiscoverPublishers(ctx, args.Limit)
		if err != nil {
			return "", err
		}
		for _, hit := range hits {
			state.recordEntity(hit.Domain)
		}
		return marshalToolOutput(hits)
	}
}

func (c *PublisherCollector) handleSearchPublishers(geo string, state *collectorState) ToolHandler {
	return func(ctx context.Context, input json.RawMessage) (string, error) {
		var args struct {
			Query string `json:"query"`
		}
		if err := json.Unmarshal(input, &args); err != nil || strings.TrimSpace(args.Query) == "" {
			return "", errors.New("query is required")
		}

		state.recordQuery(args.Query)

		result, err := c.serper.Search(ctx, args.Query, strings.ToLower(geo))
		if err != nil {
			return "", err
		}
		return marshalToolOutput(result)
	}
}

func (c *PublisherCollector) handleAnalyzePublisher() ToolHandler {
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

func (c *PublisherCollector) handlePublisherTraffic() ToolHandler {
	return func(ctx context.Context, input json.RawMessage) (string, error) {
		var args struct {
			PublisherName string `json:"publisher_name"`
		}
		if err := json.Unmarshal(input, &args); err != nil || args.PublisherName == "" {
			return "", errors.New("publisher_name is required")
		}

		presence, err := c.serper.CheckPresence(ctx, args.PublisherName)
		if err != nil {
			return "", err
		}
		return marshalToolOutput(presence)
	}
}

func (c *PublisherCollector) handleStorePublisherSignal(runID, geo string, state *collectorState) ToolHandler {
	return func(ctx context.Context, input json.RawMessage) (string, error) {
		var args struct {
			PublisherName    string   `json:"publisher_name"`
			PublisherURL     string   `json:"publisher_url"`
			SportsFocus      []string `json:"sports_focus"`
			TrafficScore     int      `json:"traffic_score"`
			BettingDetection *struct {
				HasBetting bool    `json:"has_betting"`
				Confidence float64 `json:"confidence"`
			} `json:"betting_detection"`
			PreliminaryScore float64 `json:"preliminary_score"`
			Reasoning        string  `json:"reasoning"`
		}
		if err := json.Unmarshal(input, &args); err != nil {
			return "", fmt.Errorf("invalid store_publisher_signal input: %w", err)
		}
		if args.Reasoning == "" {
			return "", errors.New("reasoning is required for every stored signal")
		}
		if args.PublisherName == "" || args.PublisherURL == "" {
			return "", errors.New("publisher_name and publisher_url are required")
		}

		evidence := []models.SignalEvidence{{
			Source:      "Publisher Analysis",
			Headline:    fmt.Sprintf("Sports publisher: %s", args.PublisherName),
			Description: fmt.Sprintf("%s Sports focus: %s.", args.Reasoning, strings.Join(args.SportsFocus, ", ")),
			URL:         args.PublisherURL,
			Confidence:  args.PreliminaryScore / 10,
		}}
		if args.BettingDetection != nil {
			status := "No existing betting integration detected"
			if args.BettingDetection.HasBetting {
				status = "Existing betting integration detected"
			}
			evidence = append(evidence, models.SignalEvidence{
				Source:     "Betting Detection",
				Headline:   status,
				URL:        args.PublisherURL,
				Confidence: args.BettingDetection.Confidence,
			})
		}
		if args.TrafficScore > 0 {
			evidence = append(evidence, models.SignalEvidence{
				Source:     "Traffic Analysis",
				Headline:   fmt.Sprintf("Search presence score %d/10", args.TrafficScore),
				URL:        args.PublisherURL,
				Confidence: float64(args.TrafficScore) / 10,
			})
		}

		expiresAt := time.Now().UTC().Add(c.signalTTL)
		signal := &models.Signal{
			EntityName:       args.PublisherName,
			EntityType:       models.EntityPublisher,
			Geo:              strings.ToUpper(geo),
			SignalType:       "publisher_opportunity",
			PreliminaryScore: args.PreliminaryScore,
			Evidence:         evidence,
			SourceURLs:       []string{args.PublisherURL},
			AgentRunID:       &runID,
			ExpiresAt:        &expiresAt,
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
		state.recordEntity(publisherDomain(args.PublisherURL, args.PublisherName))

		return fmt.Sprintf(`{"stored": true, "signal_id": %q}`, signal.ID), nil
	}
}

// publisherDomain reduces a publisher URL to its bare domain, falling
// back to the publisher name when the URL does not parse.
func publisherDomain(rawURL, fallback string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return fallback
	}
	return strings.TrimPrefix(strings.ToLower(parsed.Host), "www.")
}
