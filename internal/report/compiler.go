// Package report compiles the biweekly outreach digest: it aggregates
// analyzed signals over a window, renders markdown and HTML, and
// dispatches the result by email.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/carloscae/E2-Outreach-Dashboard/internal/models"
	"github.com/carloscae/E2-Outreach-Dashboard/internal/store"
)

// analysisFetchLimit bounds the compiler's read. Windows holding more
// analyses than this are undercounted; acceptable at current volumes.
const analysisFetchLimit = 100

// Sections is the optional model-written narrative included in a report.
// Missing sections degrade to the data-only rendering.
type Sections struct {
	Title            string
	ExecutiveSummary string
	MarketTrends     string
	Recommendations  string
}

// Aggregate is the compiled, render-ready view of one reporting window.
type Aggregate struct {
	CycleStart time.Time
	CycleEnd   time.Time
	Stats      models.SummaryStats
	High       []store.AnalyzedWithSignal
	Medium     []store.AnalyzedWithSignal
	Low        []store.AnalyzedWithSignal
	Sections   Sections
}

// Compiler builds report aggregates from the evidence store.
type Compiler struct {
	analyzed *store.AnalyzedSignalRepository
	logger   *logrus.Logger
}

func NewCompiler(analyzed *store.AnalyzedSignalRepository, logger *logrus.Logger) *Compiler {
	return &Compiler{analyzed: analyzed, logger: logger}
}

// Compile aggregates every analysis whose analyzed_at falls inside the
// inclusive [cycleStart, cycleEnd] window. An empty window compiles to a
// valid zero-signal aggregate.
func (c *Compiler) Compile(ctx context.Context, cycleStart, cycleEnd time.Time) (*Aggregate, error) {
	items, err := c.analyzed.ListWithSignal(ctx, analysisFetchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch analyses: %w", err)
	}

	agg := &Aggregate{
		CycleStart: cycleStart,
		CycleEnd:   cycleEnd,
		Stats: models.SummaryStats{
			ByGeo:        make(map[string]int),
			BySignalType: make(map[string]int),
		},
	}

	scoreSum := 0
	for _, item := range items {
		if item.AnalyzedAt.Before(cycleStart) || item.AnalyzedAt.After(cycleEnd) {
			continue
		}

		agg.Stats.TotalSignals++
		agg.Stats.ByGeo[item.Geo]++
		agg.Stats.BySignalType[item.SignalType]++
		scoreSum += item.FinalScore

		switch item.Priority {
		case models.PriorityHigh:
			agg.Stats.HighPriority++
			agg.High = append(agg.High, item)
		case models.PriorityMedium:
			agg.Stats.MediumPriority++
			agg.Medium = append(agg.Medium, item)
		default:
			agg.Stats.LowPriority++
			agg.Low = append(agg.Low, item)
		}
	}
	if agg.Stats.TotalSignals > 0 {
		agg.Stats.AvgScore = float64(scoreSum) / float64(agg.Stats.TotalSignals)
	}

	c.logger.WithFields(logrus.Fields{
		"cycle_start": cycleStart.Format("2006-01-02"),
		"cycle_end":   cycleEnd.Format("2006-01-02"),
		"total":       agg.Stats.TotalSignals,
		"high":        agg.Stats.HighPriority,
	}).Info("Compiled report window")
	return agg, nil
}

// StatsSummary renders the aggregate counters as a short plain-text block.
func (a *Aggregate) StatsSummary() string {
	return fmt.Sprintf("Total signals: %d\nHigh priority: %d\nMedium priority: %d\nLow priority: %d\nAverage score: %.1f",
		a.Stats.TotalSignals, a.Stats.HighPriority, a.Stats.MediumPriority, a.Stats.LowPriority, a.Stats.AvgScore)
}

// TopSignals returns the highest-priority signals for prompt context,
// capped at n.
func (a *Aggregate) TopSignals(n int) []store.AnalyzedWithSignal {
	var top []store.AnalyzedWithSignal
	for _, bucket := range [][]store.AnalyzedWithSignal{a.High, a.Medium, a.Low} {
		for _, item := range bucket {
			if len(top) >= n {
				return top
			}
			top = append(top, item)
		}
	}
	return top
}
