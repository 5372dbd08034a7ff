package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
)

// Indicator types found on a publisher page.
const (
	IndicatorOddsWidget     = "odds_widget"
	IndicatorAffiliateLink  = "affiliate_link"
	IndicatorBookmakerFrame = "bookmaker_iframe"
	IndicatorBettingScript  = "betting_script"
)

// Recommendation labels for outreach triage.
const (
	RecommendationHighOpportunity = "HIGH_OPPORTUNITY"
	RecommendationLowPriority     = "LOW_PRIORITY"
)

// SiteIndicator is one piece of betting-integration evidence on a page.
type SiteIndicator struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Evidence    string `json:"evidence,omitempty"`
}

// SiteAnalysis is the verdict on whether a publisher already carries
// betting integrations. A clean site is the opportunity.
type SiteAnalysis struct {
	URL            string          `json:"url"`
	Domain         string          `json:"domain"`
	Title          string          `json:"title"`
	HasBetting     bool            `json:"hasBetting"`
	Confidence     float64         `json:"confidence"`
	Indicators     []SiteIndicator `json:"indicators"`
	Recommendation string          `json:"recommendation"`
	AnalyzedAt     time.Time       `json:"analyzedAt"`
}

var (
	// Decimal odds pairs like "2.50" next to betting vocabulary.
	oddsPattern  = regexp.MustCompile(`\b\d\.\d{2}\b`)
	bettingWords = []string{"odds", "aposta", "apostar", "bet now", "palpite", "bônus de aposta"}

	affiliateParams  = []string{"btag", "affid", "aff_id", "affiliate", "subid", "clickid"}
	bookmakerDomains = []string{"bet365", "betano", "sportingbet", "betfair", "kto", "estrelabet", "superbet", "pixbet", "stake"}
	scriptKeywords   = []string{"oddsserve", "betslip", "oddsfeed", "sportradar", "betradar", "widgets.bet"}
)

// SiteAnalyzer inspects publisher pages for existing betting
// integrations.
type SiteAnalyzer struct {
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewSiteAnalyzer(logger *logrus.Logger) *SiteAnalyzer {
	return &SiteAnalyzer{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// Analyze fetches the page and scans it for odds widgets, affiliate
// links, bookmaker iframes and betting scripts.
func (a *SiteAnalyzer) Analyze(ctx context.Context, pageURL string) (*SiteAnalysis, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil || parsed.Host == "" {
		return nil, fmt.Errorf("invalid url %q", pageURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build site request: %w", err)
	}
	req.Header.Set("User-Agent", "E2-Market-Intelligence/1.0")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("site fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("site returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	analysis := &SiteAnalysis{
		URL:        pageURL,
		Domain:     parsed.Host,
		Title:      strings.TrimSpace(doc.Find("title").First().Text()),
		Indicators: collectIndicators(doc),
		AnalyzedAt: time.Now().UTC(),
	}

	analysis.HasBetting = len(analysis.Indicators) > 0
	analysis.Confidence = confidenceFor(len(analysis.Indicators))
	if analysis.HasBetting {
		analysis.Recommendation = RecommendationLowPriority
	} else {
		analysis.Recommendation = RecommendationHighOpportunity
	}

	a.logger.WithFields(logrus.Fields{
		"domain":     analysis.Domain,
		"indicators": len(analysis.Indicators),
	}).Debug("Site analysis complete")
	return analysis, nil
}

func collectIndicators(doc *goquery.Document) []SiteIndicator {
	var indicators []SiteIndicator

	// Odds widgets: decimal odds near betting vocabulary.
	bodyText := strings.ToLower(doc.Find("body").Text())
	if oddsPattern.MatchString(bodyText) {
		for _, word := range bettingWords {
			if strings.Contains(bodyText, word) {
				indicators = append(indicators, SiteIndicator{
					Type:        IndicatorOddsWidget,
					Description: "decimal odds displayed alongside betting vocabulary",
					Evidence:    word,
				})
				break
			}
		}
	}

	// Affiliate links: tracking parameters on outbound anchors.
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		lower := strings.ToLower(href)
		for _, param := range affiliateParams {
			if strings.Contains(lower, param+"=") {
				indicators = append(indicators, SiteIndicator{
					Type:        IndicatorAffiliateLink,
					Description: "outbound link carries an affiliate tracking parameter",
					Evidence:    truncate(href, 120),
				})
				return false
			}
		}
		return true
	})

	// Bookmaker iframes.
	doc.Find("iframe[src]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		src, _ := sel.Attr("src")
		lower := strings.ToLower(src)
		for _, domain := range bookmakerDomains {
			if strings.Contains(lower, domain) {
				indicators = append(indicators, SiteIndicator{
					Type:        IndicatorBookmakerFrame,
					Description: "embedded bookmaker content",
					Evidence:    truncate(src, 120),
				})
				return false
			}
		}
		return true
	})

	// Betting scripts and widget SDKs.
	doc.Find("script[src]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		src, _ := sel.Attr("src")
		lower := strings.ToLower(src)
		for _, keyword := range scriptKeywords {
			if strings.Contains(lower, keyword) {
				indicators = append(indicators, SiteIndicator{
					Type:        IndicatorBettingScript,
					Description: "third party betting script",
					Evidence:    truncate(src, 120),
				})
				return false
			}
		}
		return true
	})

	return indicators
}

func confidenceFor(indicatorCount int) float64 {
	switch {
	case indicatorCount == 0:
		return 0.8
	case indicatorCount == 1:
		return 0.6
	case indicatorCount == 2:
		return 0.8
	default:
		return 0.95
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
