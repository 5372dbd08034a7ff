package report

import (
	"fmt"
	"html"
	"strings"

	"github.com/carloscae/E2-Outreach-Dashboard/internal/store"
)

// RenderMarkdown produces the markdown body for an aggregate. The same
// aggregate always renders the same document.
func RenderMarkdown(agg *Aggregate) string {
	var b strings.Builder

	title := agg.Sections.Title
	if title == "" {
		title = fmt.Sprintf("Market Intelligence Report: %s - %s",
			agg.CycleStart.Format("Jan 2, 2006"), agg.CycleEnd.Format("Jan 2, 2006"))
	}
	fmt.Fprintf(&b, "# %s\n\n", title)

	if agg.Sections.ExecutiveSummary != "" {
		b.WriteString("## Executive Summary\n\n")
		b.WriteString(strings.TrimSpace(agg.Sections.ExecutiveSummary))
		b.WriteString("\n\n")
	}

	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "- **Total signals:** %d\n", agg.Stats.TotalSignals)
	fmt.Fprintf(&b, "- **High priority:** %d\n", agg.Stats.HighPriority)
	fmt.Fprintf(&b, "- **Medium priority:** %d\n", agg.Stats.MediumPriority)
	fmt.Fprintf(&b, "- **Low priority:** %d\n", agg.Stats.LowPriority)
	fmt.Fprintf(&b, "- **Average score:** %.1f / 14\n\n", agg.Stats.AvgScore)

	if agg.Stats.TotalSignals == 0 {
		b.WriteString("No signals were analyzed in this window.\n")
		return b.String()
	}

	writeBucket(&b, "High Priority Opportunities", agg.High)
	writeBucket(&b, "Medium Priority", agg.Medium)
	writeBucket(&b, "Low Priority", agg.Low)

	if len(agg.Stats.ByGeo) > 0 {
		b.WriteString("## By Geography\n\n")
		for geo, count := range agg.Stats.ByGeo {
			fmt.Fprintf(&b, "- %s: %d\n", geo, count)
		}
		b.WriteString("\n")
	}

	if agg.Sections.MarketTrends != "" {
		b.WriteString("## Market Trends\n\n")
		b.WriteString(strings.TrimSpace(agg.Sections.MarketTrends))
		b.WriteString("\n\n")
	}
	if agg.Sections.Recommendations != "" {
		b.WriteString("## Recommendations\n\n")
		b.WriteString(strings.TrimSpace(agg.Sections.Recommendations))
		b.WriteString("\n")
	}

	return b.String()
}

func writeBucket(b *strings.Builder, heading string, items []store.AnalyzedWithSignal) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n\n", heading)
	for _, item := range items {
		fmt.Fprintf(b, "### %s (%s, %s)\n\n", item.EntityName, item.EntityType, item.Geo)
		fmt.Fprintf(b, "- **Score:** %d/14 (%s)\n", item.FinalScore, item.Priority)
		fmt.Fprintf(b, "- **Signal type:** %s\n", item.SignalType)
		if len(item.RecommendedActions) > 0 {
			fmt.Fprintf(b, "- **Next steps:** %s\n", strings.Join(item.RecommendedActions, "; "))
		}
		if flags := riskFlagLabels(item); len(flags) > 0 {
			fmt.Fprintf(b, "- **Risk flags:** %s\n", strings.Join(flags, ", "))
		}
		if item.AIReasoning != "" {
			fmt.Fprintf(b, "\n%s\n", strings.TrimSpace(item.AIReasoning))
		}
		b.WriteString("\n")
	}
}

func riskFlagLabels(item store.AnalyzedWithSignal) []string {
	var flags []string
	if item.RiskFlags.Regulatory {
		flags = append(flags, "regulatory")
	}
	if item.RiskFlags.Reputational {
		flags = append(flags, "reputational")
	}
	if item.RiskFlags.Financial {
		flags = append(flags, "financial")
	}
	return flags
}

// RenderHTML produces the email-ready HTML body from the same aggregate.
// It is a line-oriented conversion of the markdown structure, not a full
// markdown parser; the renderers only emit headings, lists and paragraphs.
func RenderHTML(agg *Aggregate) string {
	markdown := RenderMarkdown(agg)

	var b strings.Builder
	b.WriteString(`<html><body style="font-family: Arial, sans-serif; max-width: 720px; margin: 0 auto; color: #1a1a2e;">`)

	inList := false
	closeList := func() {
		if inList {
			b.WriteString("</ul>")
			inList = false
		}
	}

	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			closeList()
		case strings.HasPrefix(trimmed, "### "):
			closeList()
			fmt.Fprintf(&b, "<h3>%s</h3>", htmlInline(trimmed[4:]))
		case strings.HasPrefix(trimmed, "## "):
			closeList()
			fmt.Fprintf(&b, "<h2>%s</h2>", htmlInline(trimmed[3:]))
		case strings.HasPrefix(trimmed, "# "):
			closeList()
			fmt.Fprintf(&b, "<h1>%s</h1>", htmlInline(trimmed[2:]))
		case strings.HasPrefix(trimmed, "- "):
			if !inList {
				b.WriteString("<ul>")
				inList = true
			}
			fmt.Fprintf(&b, "<li>%s</li>", htmlInline(trimmed[2:]))
		default:
			closeList()
			fmt.Fprintf(&b, "<p>%s</p>", htmlInline(trimmed))
		}
	}
	closeList()
	b.WriteString("</body></html>")
	return b.String()
}

// htmlInline escapes a line and converts **bold** spans.
func htmlInline(s string) string {
	escaped := html.EscapeString(s)
	for {
		start := strings.Index(escaped, "**")
		if start < 0 {
			break
		}
		end := strings.Index(escaped[start+2:], "**")
		if end < 0 {
			break
		}
		inner := escaped[start+2 : start+2+end]
		escaped = escaped[:start] + "<strong>" + inner + "</strong>" + escaped[start+2+end+2:]
	}
	return escaped
}
