package models

import "time"

// AgentType identifies which pipeline stage an agent run belongs to.
type AgentType string

const (
	AgentCollector AgentType = "collector"
	AgentAnalyzer  AgentType = "analyzer"
	AgentReporter  AgentType = "reporter"
)

// TokenUsage accumulates model token counts across an agent run.
type TokenUsage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
	TotalTokens  int `json:"totalTokens"`
}

// Add accumulates another usage sample into the total.
func (u *TokenUsage) Add(in, out int) {
	u.InputTokens += in
	u.OutputTokens += out
	u.TotalTokens += in + out
}

// AgentRun is the provenance record for one execution of a pipeline stage.
// A run is created when the stage starts and completed exactly once when it
// ends, whether it succeeded or failed.
type AgentRun struct {
	ID            string         `json:"id" db:"id"`
	AgentType     AgentType      `json:"agent_type" db:"agent_type"`
	InputParams   map[string]any `json:"input_params,omitempty" db:"input_params"`
	OutputSummary map[string]any `json:"output_summary,omitempty" db:"output_summary"`
	TokenUsage    *TokenUsage    `json:"token_usage,omitempty" db:"token_usage"`
	DurationMs    *int64         `json:"duration_ms,omitempty" db:"duration_ms"`
	Error         *string        `json:"error,omitempty" db:"error"`
	StartedAt     time.Time      `json:"started_at" db:"started_at"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty" db:"completed_at"`
}
