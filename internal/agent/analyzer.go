package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/carloscae/E2-Outreach-Dashboard/internal/config"
	"github.com/carloscae/E2-Outreach-Dashboard/internal/models"
	"github.com/carloscae/E2-Outreach-Dashboard/internal/partner"
	"github.com/carloscae/E2-Outreach-Dashboard/internal/scoring"
	"github.com/carloscae/E2-Outreach-Dashboard/internal/store"
)

// AnalyzerResult summarizes one scoring pass.
type AnalyzerResult struct {
	RunID          string            `json:"run_id"`
	SignalsFetched int               `json:"signals_fetched"`
	SignalsScored  int               `json:"signals_scored"`
	Iterations     int               `json:"iterations"`
	TokenUsage     models.TokenUsage `json:"token_usage"`
	HitCeiling     bool              `json:"hit_ceiling"`
}

// Analyzer runs the scoring stage: it feeds a batch of unanalyzed
// signals to the model and persists the verdicts it hands back through
// the score_signal tool.
type Analyzer struct {
	loop      *Loop
	resolver  *partner.Resolver
	signals   *store.SignalRepository
	analyzed  *store.AnalyzedSignalRepository
	runs      *store.AgentRunRepository
	cfg       config.AnalyzerConfig
	maxTokens int
	logger    *logrus.Logger
}

func NewAnalyzer(
	loop *Loop,
	resolver *partner.Resolver,
	signals *store.SignalRepository,
	analyzed *store.AnalyzedSignalRepository,
	runs *store.AgentRunRepository,
	cfg config.AnalyzerConfig,
	maxTokens int,
	logger *logrus.Logger,
) *Analyzer {
	return &Analyzer{
		loop:      loop,
		resolver:  resolver,
		signals:   signals,
		analyzed:  analyzed,
		runs:      runs,
		cfg:       cfg,
		maxTokens: maxTokens,
		logger:    logger,
	}
}

type analyzerState struct {
	mu     sync.Mutex
	scored int
	batch  map[string]bool
}

// Run scores up to one batch of unanalyzed signals. An empty batch is a
// successful no-op with zero token usage.
func (a *Analyzer) Run(ctx context.Context) (*AnalyzerResult, error) {
	run, err := a.runs.Start(ctx, models.AgentAnalyzer, map[string]any{"batch_size": a.cfg.BatchSize})
	if err != nil {
		return nil, err
	}

	pending, err := a.signals.ListUnanalyzed(ctx, a.cfg.BatchSize)
	if err != nil {
		a.completeRun(ctx, run.ID, &AnalyzerResult{RunID: run.ID}, err)
		return nil, err
	}

	result := &AnalyzerResult{RunID: run.ID, SignalsFetched: len(pending)}
	if len(pending) == 0 {
		a.completeRun(ctx, run.ID, result, nil)
		a.logger.Info("No unanalyzed signals, skipping analysis pass")
		return result, nil
	}

	state := &analyzerState{batch: make(map[string]bool, len(pending))}
	summaries := make([]signalSummary, 0, len(pending))
	for _, s := range pending {
		state.batch[s.ID] = true
		summaries = append(summaries, signalSummary{
			ID:               s.ID,
			EntityName:       s.EntityName,
			EntityType:       string(s.EntityType),
			Geo:              s.Geo,
			SignalType:       s.SignalType,
			PreliminaryScore: s.PreliminaryScore,
			Evidence:         s.Evidence,
		})
	}

	loopResult, loopErr := a.loop.Run(ctx, LoopConfig{
		System:        analyzerSystemPrompt,
		InitialPrompt: buildAnalyzerUserPrompt(summaries),
		Tools: []ToolSpec{
			{Definition: scoreSignalDefinition(), Handler: a.handleScoreSignal(state)},
			{Definition: checkPartnershipDefinition(), Handler: a.handleCheckPartnership()},
		},
		MaxIterations: a.cfg.MaxIterations,
		MaxTokens:     a.maxTokens,
	})

	if loopResult != nil {
		result.Iterations = loopResult.Iterations
		result.TokenUsage = loopResult.Usage
		result.HitCeiling = loopResult.HitCeiling
	}
	result.SignalsScored = state.scored

	a.completeRun(ctx, run.ID, result, loopErr)
	if loopErr != nil {
		return result, loopErr
	}

	a.logger.WithFields(logrus.Fields{
		"run_id":  run.ID,
		"fetched": result.SignalsFetched,
		"scored":  result.SignalsScored,
	}).Info("Analysis pass finished")
	return result, nil
}

func (a *Analyzer) completeRun(ctx context.Context, runID string, result *AnalyzerResult, loopErr error) {
	summary := map[string]any{
		"signals_fetched": result.SignalsFetched,
		"signals_scored":  result.SignalsScored,
		"iterations":      result.Iterations,
		"hit_ceiling":     result.HitCeiling,
	}
	var runErr *string
	if loopErr != nil {
		msg := loopErr.Error()
		runErr = &msg
	}
	if err := a.runs.Complete(ctx, runID, store.RunResult{
		OutputSummary: summary,
		TokenUsage:    &result.TokenUsage,
		Error:         runErr,
	}); err != nil {
		a.logger.WithError(err).WithField("run_id", runID).Error("Failed to complete agent run")
	}
}

func (a *Analyzer) handleScoreSignal(state *analyzerState) ToolHandler {
	return func(ctx context.Context, input json.RawMessage) (string, error) {
		var args struct {
			SignalID            string           `json:"signal_id"`
			MarketEntryMomentum int              `json:"market_entry_momentum"`
			E2PartnershipFit    int              `json:"e2_partnership_fit"`
			Actionability       int              `json:"actionability"`
			DataConfidence      int              `json:"data_confidence"`
			RiskFlags           models.RiskFlags `json:"risk_flags"`
			RecommendedActions  []string         `json:"recommended_actions"`
			Reasoning           string           `json:"reasoning"`
		}
		if err := json.Unmarshal(input, &args); err != nil {
			return "", fmt.Errorf("invalid score_signal input: %w", err)
		}
		if args.SignalID == "" {
			return "", errors.New("signal_id is required")
		}
		if args.Reasoning == "" {
			return "", errors.New("reasoning is required")
		}
		if !state.batch[args.SignalID] {
			return "", fmt.Errorf("signal %s is not part of this batch", args.SignalID)
		}

		breakdown, final := scoring.FinalScore(models.ScoreBreakdown{
			MarketEntryMomentum: args.MarketEntryMomentum,
			E2PartnershipFit:    args.E2PartnershipFit,
			Actionability:       args.Actionability,
			DataConfidence:      args.DataConfidence,
		})
		priority := scoring.PriorityFor(final)

		analysis := &models.AnalyzedSignal{
			SignalID:           args.SignalID,
			FinalScore:         final,
			ScoreBreakdown:     breakdown,
			Priority:           priority,
			RiskFlags:          args.RiskFlags,
			RecommendedActions: args.RecommendedActions,
			AIReasoning:        args.Reasoning,
		}
		if err := a.analyzed.Create(ctx, analysis); err != nil {
			if errors.Is(err, store.ErrAlreadyAnalyzed) {
				return "", fmt.Errorf("signal %s has already been scored", args.SignalID)
			}
			return "", err
		}

		state.mu.Lock()
		state.scored++
		state.mu.Unlock()

		return fmt.Sprintf(`{"scored": true, "signal_id": %q, "final_score": %d, "priority": %q}`,
			args.SignalID, final, priority), nil
	}
}

func (a *Analyzer) handleCheckPartnership() ToolHandler {
	return func(ctx context.Context, input json.RawMessage) (string, error) {
		var args struct {
			EntityName string `json:"entity_name"`
		}
		if err := json.Unmarshal(input, &args); err != nil || args.EntityName == "" {
			return "", errors.New("entity_name is required")
		}
		return marshalToolOutput(a.resolver.Resolve(ctx, args.EntityName))
	}
}
