package scoring

import "github.com/carloscae/E2-Outreach-Dashboard/internal/models"

// Sub-score ranges. Momentum and fit weigh heavier than the two
// supporting dimensions.
const (
	MaxMomentum      = 4
	MaxFit           = 4
	MaxActionability = 3
	MaxConfidence    = 3

	MaxFinalScore = MaxMomentum + MaxFit + MaxActionability + MaxConfidence

	highThreshold   = 10
	mediumThreshold = 7
)

// clamp bounds v to [0, max]. Out-of-range model output is corrected, not
// rejected.
func clamp(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

// Normalize returns the breakdown with every sub-score clamped to its range.
func Normalize(b models.ScoreBreakdown) models.ScoreBreakdown {
	return models.ScoreBreakdown{
		MarketEntryMomentum: clamp(b.MarketEntryMomentum, MaxMomentum),
		E2PartnershipFit:    clamp(b.E2PartnershipFit, MaxFit),
		Actionability:       clamp(b.Actionability, MaxActionability),
		DataConfidence:      clamp(b.DataConfidence, MaxConfidence),
	}
}

// FinalScore clamps the breakdown and returns it with the summed total.
func FinalScore(b models.ScoreBreakdown) (models.ScoreBreakdown, int) {
	normalized := Normalize(b)
	return normalized, normalized.Sum()
}

// PriorityFor maps a final score to an outreach tier.
func PriorityFor(score int) models.Priority {
	switch {
	case score >= highThreshold:
		return models.PriorityHigh
	case score >= mediumThreshold:
		return models.PriorityMedium
	default:
		return models.PriorityLow
	}
}
