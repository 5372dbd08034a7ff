package agent

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/carloscae/E2-Outreach-Dashboard/internal/extract"
	"github.com/carloscae/E2-Outreach-Dashboard/internal/models"
	"github.com/carloscae/E2-Outreach-Dashboard/internal/partner"
	"github.com/carloscae/E2-Outreach-Dashboard/internal/store"
	"github.com/carloscae/E2-Outreach-Dashboard/internal/tools"
)

var lightweightQueries = [][]string{
	{"betting", "brazil", "license"},
	{"apostas", "esportivas", "lançamento"},
	{"bookmaker", "expansion", "latam"},
	{"sportsbook", "sponsorship", "brasileirão"},
}

// LightweightResult summarizes one rule-based collection pass.
type LightweightResult struct {
	RunID          string   `json:"run_id"`
	ArticlesSeen   int      `json:"articles_seen"`
	EntitiesFound  int      `json:"entities_found"`
	SignalsStored  int      `json:"signals_stored"`
	SkippedPartner int      `json:"skipped_partner"`
	StoredSignals  []string `json:"stored_signals,omitempty"`
}

// LightweightCollector is the no-model fallback path. It runs fixed
// queries against the news sources, extracts entities with the regex
// pipeline, filters out existing partners and stores the rest.
// It consumes zero model tokens.
type LightweightCollector struct {
	news      *tools.NewsService
	resolver  *partner.Resolver
	signals   *store.SignalRepository
	runs      *store.AgentRunRepository
	signalTTL time.Duration
	logger    *logrus.Logger
}

func NewLightweightCollector(
	news *tools.NewsService,
	resolver *partner.Resolver,
	signals *store.SignalRepository,
	runs *store.AgentRunRepository,
	signalTTL time.Duration,
	logger *logrus.Logger,
) *LightweightCollector {
	return &LightweightCollector{
		news:      news,
		resolver:  resolver,
		signals:   signals,
		runs:      runs,
		signalTTL: signalTTL,
		logger:    logger,
	}
}

// Run executes one lightweight pass. Individual query failures degrade
// to fewer articles rather than aborting the pass.
func (c *LightweightCollector) Run(ctx context.Context, geo string, daysBack int) (*LightweightResult, error) {
	if geo == "" {
		geo = "BR"
	}
	if daysBack <= 0 {
		daysBack = 7
	}

	run, err := c.runs.Start(ctx, models.AgentCollector, map[string]any{
		"geo": geo, "days_back": daysBack, "mode": "lightweight",
	})
	if err != nil {
		return nil, err
	}

	result := &LightweightResult{RunID: run.ID}

	var refs []extract.ArticleRef
	seen := make(map[string]bool)
	for _, keywords := range lightweightQueries {
		searchResult, err := c.news.Search(ctx, keywords, tools.NewsSearchOptions{
			Region:   strings.ToLower(geo),
			DaysBack: daysBack,
		})
		if err != nil {
			c.logger.WithError(err).WithField("keywords", keywords).Warn("Lightweight query failed")
			continue
		}
		for _, article := range searchResult.Articles {
			if article.URL == "" || seen[article.URL] {
				continue
			}
			seen[article.URL] = true
			refs = append(refs, extract.ArticleRef{
				Title:       article.Title,
				Description: article.Description,
				URL:         article.URL,
				Source:      article.Source,
			})
		}
	}
	result.ArticlesSeen = len(refs)

	grouped := extract.FromArticles(refs)
	result.EntitiesFound = len(grouped)

	for _, group := range grouped {
		match := c.resolver.Resolve(ctx, group.Entity.Name)
		if match.Tier == partner.TierAffiliatePartner {
			result.SkippedPartner++
			continue
		}

		signal := c.buildSignal(run.ID, geo, group, match)
		if err := c.signals.Create(ctx, signal); err != nil {
			c.logger.WithError(err).WithField("entity", group.Entity.Name).Warn("Failed to store lightweight signal")
			continue
		}
		result.SignalsStored++
		result.StoredSignals = append(result.StoredSignals, signal.ID)
	}

	c.completeRun(ctx, run.ID, result)

	c.logger.WithFields(logrus.Fields{
		"run_id":   run.ID,
		"articles": result.ArticlesSeen,
		"entities": result.EntitiesFound,
		"signals":  result.SignalsStored,
	}).Info("Lightweight collection pass finished")
	return result, nil
}

func (c *LightweightCollector) buildSignal(runID, geo string, group extract.GroupedEntity, match partner.Match) *models.Signal {
	evidence := make([]models.SignalEvidence, 0, len(group.Articles))
	urls := make([]string, 0, len(group.Articles))
	for _, article := range group.Articles {
		evidence = append(evidence, models.SignalEvidence{
			Source:      article.Source,
			Headline:    article.Title,
			Description: article.Description,
			URL:         article.URL,
			Confidence:  confidenceWeight(group.Entity.Confidence),
		})
		urls = append(urls, article.URL)
	}

	// Headline count and extraction confidence drive the score; a
	// KNOWN_BOOKIE already on the roster ranks lower than a fresh name.
	score := 3.0 + float64(len(group.Articles))
	if group.Entity.Confidence == extract.ConfidenceHigh {
		score += 2
	}
	if match.Tier == partner.TierKnownBookie {
		score -= 2
	}
	if score > 10 {
		score = 10
	}
	if score < 0 {
		score = 0
	}

	expiresAt := time.Now().UTC().Add(c.signalTTL)
	category := "lightweight"
	return &models.Signal{
		EntityName:       group.Entity.Name,
		EntityType:       models.EntityBookmaker,
		Geo:              strings.ToUpper(geo),
		SignalType:       "market_mention",
		PreliminaryScore: score,
		Evidence:         evidence,
		SourceURLs:       urls,
		AgentRunID:       &runID,
		SignalCategory:   &category,
		ExpiresAt:        &expiresAt,
	}
}

func (c *LightweightCollector) completeRun(ctx context.Context, runID string, result *LightweightResult) {
	usage := models.TokenUsage{}
	if err := c.runs.Complete(ctx, runID, store.RunResult{
		OutputSummary: map[string]any{
			"mode":            "lightweight",
			"articles_seen":   result.ArticlesSeen,
			"entities_found":  result.EntitiesFound,
			"signals_stored":  result.SignalsStored,
			"skipped_partner": result.SkippedPartner,
		},
		TokenUsage: &usage,
	}); err != nil {
		c.logger.WithError(err).WithField("run_id", runID).Error("Failed to complete agent run")
	}
}

func confidenceWeight(confidence string) float64 {
	switch confidence {
	case extract.ConfidenceHigh:
		return 0.9
	case extract.ConfidenceMedium:
		return 0.6
	default:
		return 0.3
	}
}
