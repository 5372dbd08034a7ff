package models

import (
	"time"
)

// EntityType classifies the kind of business entity a signal refers to.
type EntityType string

const (
	EntityBookmaker EntityType = "bookmaker"
	EntityPublisher EntityType = "publisher"
	EntityApp       EntityType = "app"
	EntityChannel   EntityType = "channel"
)

// Priority is the outreach priority tier assigned by the analyzer.
type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

// SignalEvidence is a single piece of supporting evidence attached to a signal.
// A signal must carry at least one evidence entry to be valid.
type SignalEvidence struct {
	Source      string     `json:"source"`
	Headline    string     `json:"headline,omitempty"`
	Description string     `json:"description,omitempty"`
	URL         string     `json:"url,omitempty"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	Confidence  float64    `json:"confidence"` // 0-1
}

// Signal represents a raw discovered partnership opportunity.
// Signals are created once by the collector and never mutated afterwards,
// except for the archival flags managed by the cleanup service.
type Signal struct {
	ID               string           `json:"id" db:"id"`
	EntityName       string           `json:"entity_name" db:"entity_name"`
	EntityType       EntityType       `json:"entity_type" db:"entity_type"`
	Geo              string           `json:"geo" db:"geo"`
	SignalType       string           `json:"signal_type" db:"signal_type"`
	Evidence         []SignalEvidence `json:"evidence" db:"evidence"`
	PreliminaryScore float64          `json:"preliminary_score" db:"preliminary_score"`
	SourceURLs       []string         `json:"source_urls" db:"source_urls"`
	CollectedAt      time.Time        `json:"collected_at" db:"collected_at"`
	AgentRunID       *string          `json:"agent_run_id,omitempty" db:"agent_run_id"`
	SignalCategory   *string          `json:"signal_category,omitempty" db:"signal_category"`
	ExpiresAt        *time.Time       `json:"expires_at,omitempty" db:"expires_at"`
	IsArchived       bool             `json:"is_archived" db:"is_archived"`
}

// Valid reports whether the signal satisfies the store-time invariants:
// non-empty identity fields, at least one evidence entry, and a
// preliminary score within [0,10].
func (s *Signal) Valid() bool {
	return s.EntityName != "" &&
		s.EntityType != "" &&
		s.Geo != "" &&
		s.SignalType != "" &&
		len(s.Evidence) > 0 &&
		s.PreliminaryScore >= 0 &&
		s.PreliminaryScore <= 10
}

// Expired reports whether the signal's expiry deadline has passed.
func (s *Signal) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && now.After(*s.ExpiresAt)
}

// ScoreBreakdown holds the four rubric sub-scores. The final score is
// always the sum of these values after clamping.
type ScoreBreakdown struct {
	MarketEntryMomentum int `json:"marketEntryMomentum"` // 0-4
	E2PartnershipFit    int `json:"e2PartnershipFit"`    // 0-4
	Actionability       int `json:"actionability"`       // 0-3
	DataConfidence      int `json:"dataConfidence"`      // 0-3
}

// Sum returns the total of the four sub-scores.
func (b ScoreBreakdown) Sum() int {
	return b.MarketEntryMomentum + b.E2PartnershipFit + b.Actionability + b.DataConfidence
}

// RiskFlags are advisory concerns raised during analysis. They do not
// affect the score.
type RiskFlags struct {
	Regulatory   bool     `json:"regulatory,omitempty"`
	Reputational bool     `json:"reputational,omitempty"`
	Financial    bool     `json:"financial,omitempty"`
	Notes        []string `json:"notes,omitempty"`
}

// AnalyzedSignal is the scored verdict for exactly one signal. At most
// one analysis exists per signal, enforced at write time.
type AnalyzedSignal struct {
	ID                 string         `json:"id" db:"id"`
	SignalID           string         `json:"signal_id" db:"signal_id"`
	FinalScore         int            `json:"final_score" db:"final_score"`
	ScoreBreakdown     ScoreBreakdown `json:"score_breakdown" db:"score_breakdown"`
	Priority           Priority       `json:"priority" db:"priority"`
	RiskFlags          RiskFlags      `json:"risk_flags" db:"risk_flags"`
	RecommendedActions []string       `json:"recommended_actions" db:"recommended_actions"`
	AIReasoning        string         `json:"ai_reasoning" db:"ai_reasoning"`
	AnalyzedAt         time.Time      `json:"analyzed_at" db:"analyzed_at"`
}

// DashboardSignal joins a signal with its analysis and feedback count for
// display. Unanalyzed signals carry nil analysis fields.
type DashboardSignal struct {
	ID               string           `json:"id"`
	EntityName       string           `json:"entity_name"`
	EntityType       EntityType       `json:"entity_type"`
	Geo              string           `json:"geo"`
	SignalType       string           `json:"signal_type"`
	PreliminaryScore float64          `json:"preliminary_score"`
	Evidence         []SignalEvidence `json:"evidence"`
	SourceURLs       []string         `json:"source_urls"`
	CollectedAt      time.Time        `json:"collected_at"`
	FinalScore       *int             `json:"final_score,omitempty"`
	Priority         *Priority        `json:"priority,omitempty"`
	ScoreBreakdown   *ScoreBreakdown  `json:"score_breakdown,omitempty"`
	AIReasoning      *string          `json:"ai_reasoning,omitempty"`
	FeedbackCount    int              `json:"feedback_count"`
}

// Feedback is a human thumbs up/down on a signal. Append-only.
type Feedback struct {
	ID          string    `json:"id" db:"id"`
	SignalID    string    `json:"signal_id" db:"signal_id"`
	UserEmail   string    `json:"user_email" db:"user_email"`
	IsUseful    bool      `json:"is_useful" db:"is_useful"`
	ActionTaken *string   `json:"action_taken,omitempty" db:"action_taken"`
	Notes       *string   `json:"notes,omitempty" db:"notes"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
