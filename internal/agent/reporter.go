package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/carloscae/E2-Outreach-Dashboard/internal/config"
	"github.com/carloscae/E2-Outreach-Dashboard/internal/models"
	"github.com/carloscae/E2-Outreach-Dashboard/internal/report"
	"github.com/carloscae/E2-Outreach-Dashboard/internal/store"
)

// ReportOptions overrides the default reporting window and recipient
// list for a single run. Nil bounds fall back to the configured cycle
// and an empty recipient list falls back to the sender's configured
// recipients.
type ReportOptions struct {
	CycleStart      *time.Time
	CycleEnd        *time.Time
	RecipientEmails []string
}

// ReporterResult summarizes one report compilation.
type ReporterResult struct {
	RunID       string              `json:"run_id"`
	ReportID    string              `json:"report_id,omitempty"`
	Markdown    string              `json:"markdown"`
	HTML        string              `json:"-"`
	Stats       models.SummaryStats `json:"stats"`
	PeriodStart time.Time           `json:"period_start"`
	PeriodEnd   time.Time           `json:"period_end"`
	EmailSent   bool                `json:"email_sent"`
	EmailError  string              `json:"email_error,omitempty"`
	Recipients  []string            `json:"recipients,omitempty"`
	Iterations  int                 `json:"iterations"`
	TokenUsage  models.TokenUsage   `json:"token_usage"`
}

// Reporter compiles the reporting window and optionally asks the model
// for narrative sections. Narrative generation is best-effort: a model
// failure degrades to the data-only rendering, never a failed report.
type Reporter struct {
	loop      *Loop
	compiler  *report.Compiler
	reports   *store.ReportRepository
	email     report.EmailSender
	runs      *store.AgentRunRepository
	cfg       config.ReportConfig
	maxTokens int
	logger    *logrus.Logger
	now       func() time.Time
}

func NewReporter(
	loop *Loop,
	compiler *report.Compiler,
	reports *store.ReportRepository,
	email report.EmailSender,
	runs *store.AgentRunRepository,
	cfg config.ReportConfig,
	maxTokens int,
	logger *logrus.Logger,
) *Reporter {
	return &Reporter{
		loop:      loop,
		compiler:  compiler,
		reports:   reports,
		email:     email,
		runs:      runs,
		cfg:       cfg,
		maxTokens: maxTokens,
		logger:    logger,
		now:       time.Now,
	}
}

// Preview compiles and renders the current window without persisting or
// sending anything.
func (r *Reporter) Preview(ctx context.Context, opts ReportOptions) (*ReporterResult, error) {
	agg, err := r.compile(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &ReporterResult{
		Markdown:    report.RenderMarkdown(agg),
		HTML:        report.RenderHTML(agg),
		Stats:       agg.Stats,
		PeriodStart: agg.CycleStart,
		PeriodEnd:   agg.CycleEnd,
	}, nil
}

// Run compiles the window, generates narrative sections, persists the
// report row and sends the email. The row is marked sent only after a
// successful dispatch; a failed send leaves a sendable row behind.
func (r *Reporter) Run(ctx context.Context, opts ReportOptions) (*ReporterResult, error) {
	input := map[string]any{"cycle_days": r.cfg.CycleDays}
	if opts.CycleStart != nil || opts.CycleEnd != nil {
		input["custom_window"] = true
	}
	run, err := r.runs.Start(ctx, models.AgentReporter, input)
	if err != nil {
		return nil, err
	}

	result := &ReporterResult{RunID: run.ID}
	agg, err := r.compile(ctx, opts)
	if err != nil {
		r.completeRun(ctx, run.ID, result, err)
		return nil, err
	}

	result.Stats = agg.Stats
	result.PeriodStart = agg.CycleStart
	result.PeriodEnd = agg.CycleEnd
	if agg.Stats.TotalSignals == 0 {
		// Nothing to report on. No row is persisted and no email goes out.
		r.logger.Info("No analyzed signals in the report window")
		r.completeRun(ctx, run.ID, result, nil)
		return result, nil
	}

	r.generateSections(ctx, agg, result)

	result.Markdown = report.RenderMarkdown(agg)
	result.HTML = report.RenderHTML(agg)

	row := &models.Report{
		CycleStart:      agg.CycleStart,
		CycleEnd:        agg.CycleEnd,
		ContentMarkdown: result.Markdown,
		ContentHTML:     result.HTML,
		SummaryStats:    agg.Stats,
	}
	if err := r.reports.Create(ctx, row); err != nil {
		r.completeRun(ctx, run.ID, result, err)
		return nil, err
	}
	result.ReportID = row.ID

	recipients := opts.RecipientEmails
	if len(recipients) == 0 {
		recipients = r.cfg.RecipientEmails
	}
	result.Recipients = recipients

	subject := fmt.Sprintf("E2 Market Intelligence: %d High Priority Opportunities (%s - %s)",
		agg.Stats.HighPriority,
		agg.CycleStart.Format("Jan 2"), agg.CycleEnd.Format("Jan 2, 2006"))
	if err := r.email.Send(ctx, subject, result.HTML, opts.RecipientEmails); err != nil {
		// The report row stays unsent and can be re-dispatched later.
		result.EmailError = err.Error()
		r.logger.WithError(err).WithField("report_id", row.ID).Error("Failed to send report email")
	} else if err := r.reports.MarkSent(ctx, row.ID); err != nil {
		if !errors.Is(err, store.ErrAlreadySent) {
			r.logger.WithError(err).WithField("report_id", row.ID).Error("Failed to mark report sent")
		}
		result.EmailSent = true
	} else {
		result.EmailSent = true
	}

	r.completeRun(ctx, run.ID, result, nil)
	return result, nil
}

func (r *Reporter) compile(ctx context.Context, opts ReportOptions) (*report.Aggregate, error) {
	cycleEnd := r.now().UTC()
	if opts.CycleEnd != nil {
		cycleEnd = opts.CycleEnd.UTC()
	}
	cycleStart := cycleEnd.AddDate(0, 0, -r.cfg.CycleDays)
	if opts.CycleStart != nil {
		cycleStart = opts.CycleStart.UTC()
	}
	return r.compiler.Compile(ctx, cycleStart, cycleEnd)
}

// generateSections asks the model for narrative prose. Failures are
// logged and swallowed; the report ships without prose.
func (r *Reporter) generateSections(ctx context.Context, agg *report.Aggregate, result *ReporterResult) {
	if agg.Stats.TotalSignals == 0 {
		return
	}

	sections := &sectionCollector{}
	loopResult, err := r.loop.Run(ctx, LoopConfig{
		System:        reporterSystemPrompt,
		InitialPrompt: buildReporterUserPrompt(agg.StatsSummary(), agg.TopSignals(10)),
		Tools: []ToolSpec{
			{Definition: reportSectionDefinition(), Handler: sections.handleSection},
			{Definition: finalizeReportDefinition(), Handler: sections.handleFinalize},
		},
		MaxIterations: r.cfg.MaxIterations,
		MaxTokens:     r.maxTokens,
	})
	if loopResult != nil {
		result.Iterations = loopResult.Iterations
		result.TokenUsage = loopResult.Usage
	}
	if err != nil {
		r.logger.WithError(err).Warn("Narrative generation failed, shipping data-only report")
		return
	}

	agg.Sections = sections.snapshot()
}

func (r *Reporter) completeRun(ctx context.Context, runID string, result *ReporterResult, runFailure error) {
	summary := map[string]any{
		"report_id":  result.ReportID,
		"email_sent": result.EmailSent,
		"iterations": result.Iterations,
		"total":      result.Stats.TotalSignals,
	}
	var runErr *string
	if runFailure != nil {
		msg := runFailure.Error()
		runErr = &msg
	}
	if err := r.runs.Complete(ctx, runID, store.RunResult{
		OutputSummary: summary,
		TokenUsage:    &result.TokenUsage,
		Error:         runErr,
	}); err != nil {
		r.logger.WithError(err).WithField("run_id", runID).Error("Failed to complete agent run")
	}
}

type sectionCollector struct {
	mu       sync.Mutex
	sections report.Sections
}

func (s *sectionCollector) handleSection(_ context.Context, input json.RawMessage) (string, error) {
	var args struct {
		Section string `json:"section"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return "", fmt.Errorf("invalid generate_report_section input: %w", err)
	}
	if args.Content == "" {
		return "", errors.New("content is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch args.Section {
	case "executive_summary":
		s.sections.ExecutiveSummary = args.Content
	case "market_trends":
		s.sections.MarketTrends = args.Content
	case "recommendations":
		s.sections.Recommendations = args.Content
	default:
		return "", fmt.Errorf("unknown section %q", args.Section)
	}
	return fmt.Sprintf(`{"accepted": true, "section": %q}`, args.Section), nil
}

func (s *sectionCollector) handleFinalize(_ context.Context, input json.RawMessage) (string, error) {
	var args struct {
		Title string `json:"title"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return "", fmt.Errorf("invalid finalize_report input: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if args.Title != "" {
		s.sections.Title = args.Title
	}
	return `{"finalized": true}`, nil
}

func (s *sectionCollector) snapshot() report.Sections {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sections
}
