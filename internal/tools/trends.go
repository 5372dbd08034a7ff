package tools

import (
	"context"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"
	"github.com/sirupsen/logrus"
)

// Trend direction labels.
const (
	TrendRising    = "rising"
	TrendStable    = "stable"
	TrendDeclining = "declining"
)

const trendWindowDays = 30

// InterestPoint is one day of search interest, 0-100.
type InterestPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// TrendData is the interest profile for one keyword.
type TrendData struct {
	Keyword          string          `json:"keyword"`
	InterestOverTime []InterestPoint `json:"interestOverTime"`
	AverageInterest  int             `json:"averageInterest"`
	Trend            string          `json:"trend"`
	RelatedQueries   []string        `json:"relatedQueries"`
}

// InterestProvider supplies the raw interest series for a keyword.
// The default provider synthesizes plausible data; a real Google Trends
// or SerpAPI provider slots in behind the same signature.
type InterestProvider func(ctx context.Context, keyword, geo string) ([]InterestPoint, error)

// TrendsService answers search-interest questions with a rate limit
// matching what Google tolerates.
type TrendsService struct {
	provider InterestProvider
	limiter  *RateLimiter
	logger   *logrus.Logger
}

func NewTrendsService(provider InterestProvider, logger *logrus.Logger) *TrendsService {
	if provider == nil {
		provider = SimulatedInterest
	}
	return &TrendsService{
		provider: provider,
		limiter:  NewRateLimiter(30, time.Hour, 5*time.Second),
		logger:   logger,
	}
}

// Check fetches the interest series and classifies its direction. The
// classification compares the smoothed average of the most recent half
// window against the earliest one, with a 10% dead band.
func (s *TrendsService) Check(ctx context.Context, keyword, geo string) (*TrendData, error) {
	if allowed, retryAfter := s.limiter.Allow(); !allowed {
		s.logger.WithField("retry_after", retryAfter).Warn("Trends rate limited")
		return nil, &RateLimitedError{RetryAfter: retryAfter}
	}

	points, err := s.provider(ctx, keyword, geo)
	if err != nil {
		return nil, err
	}

	values := make([]float64, len(points))
	var sum float64
	for i, p := range points {
		values[i] = p.Value
		sum += p.Value
	}
	avg := 0
	if len(values) > 0 {
		avg = int(math.Round(sum / float64(len(values))))
	}

	return &TrendData{
		Keyword:          keyword,
		InterestOverTime: points,
		AverageInterest:  avg,
		Trend:            classifyTrend(values),
		RelatedQueries:   relatedQueries(keyword),
	}, nil
}

// RateLimitedError tells the agent when to retry a trends lookup.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return "trends rate limited, retry after " + e.RetryAfter.String()
}

// classifyTrend smooths the series with an SMA over half the window and
// compares the last smoothed value against the first.
func classifyTrend(values []float64) string {
	if len(values) < 4 {
		return TrendStable
	}

	period := len(values) / 2
	sma := trend.NewSmaWithPeriod[float64](period)
	smoothed := helper.ChanToSlice(sma.Compute(helper.SliceToChan(values)))
	if len(smoothed) == 0 {
		return TrendStable
	}

	first := smoothed[0]
	last := smoothed[len(smoothed)-1]
	switch {
	case first == 0:
		return TrendStable
	case last > first*1.1:
		return TrendRising
	case last < first*0.9:
		return TrendDeclining
	default:
		return TrendStable
	}
}

// SimulatedInterest synthesizes a plausible 30-day series keyed off how
// established the brand name is. Stands in until a real trends provider
// is wired.
func SimulatedInterest(_ context.Context, keyword, _ string) ([]InterestPoint, error) {
	lower := strings.ToLower(keyword)

	baseInterest := 30.0
	trendMultiplier := 1.0
	switch {
	case strings.Contains(lower, "bet365") || strings.Contains(lower, "betano") || strings.Contains(lower, "stake"):
		baseInterest = 70
		trendMultiplier = 1.1
	case strings.Contains(lower, "apostas") || strings.Contains(lower, "betting"):
		baseInterest = 50
		trendMultiplier = 1.05
	case strings.Contains(lower, "casa de apostas") || strings.Contains(lower, "bookmaker"):
		baseInterest = 45
		trendMultiplier = 1.02
	}

	now := time.Now()
	points := make([]InterestPoint, 0, trendWindowDays)
	for i := trendWindowDays - 1; i >= 0; i-- {
		date := now.AddDate(0, 0, -i)
		noise := (rand.Float64() - 0.5) * 20
		dayMultiplier := 1 + float64(trendWindowDays-i)*(trendMultiplier-1)/trendWindowDays
		value := math.Round(baseInterest*dayMultiplier + noise)
		value = math.Max(0, math.Min(100, value))
		points = append(points, InterestPoint{
			Date:  date.Format("2006-01-02"),
			Value: value,
		})
	}
	return points, nil
}

func relatedQueries(keyword string) []string {
	return []string{
		keyword + " app",
		keyword + " bonus",
		keyword + " cadastro",
		keyword + " odds",
	}
}
