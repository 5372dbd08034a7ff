package tools

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/carloscae/E2-Outreach-Dashboard/internal/database"
)

const newsAPIBase = "https://newsapi.org/v2"

// NewsSearchOptions narrow a news search.
type NewsSearchOptions struct {
	Language string
	Region   string
	DaysBack int
	Limit    int
}

// NewsSearchResult merges NewsAPI and RSS hits for one query.
type NewsSearchResult struct {
	Articles    []Article `json:"articles"`
	FromCache   bool      `json:"fromCache"`
	RateLimited bool      `json:"rateLimited"`
	Errors      []string  `json:"errors,omitempty"`
}

// NewsService searches NewsAPI and the curated RSS feeds, caching merged
// results in redis so repeated agent queries don't burn the NewsAPI
// budget.
type NewsService struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *RateLimiter
	rss        *RSSFetcher
	cache      *database.RedisClient
	cacheTTL   time.Duration
	logger     *logrus.Logger
}

// NewNewsService wires the news search. cache may be nil, which disables
// caching but not searching.
func NewNewsService(apiKey string, limiter *RateLimiter, rss *RSSFetcher, cache *database.RedisClient, cacheTTL time.Duration, logger *logrus.Logger) *NewsService {
	return &NewsService{
		apiKey:     apiKey,
		baseURL:    newsAPIBase,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    limiter,
		rss:        rss,
		cache:      cache,
		cacheTTL:   cacheTTL,
		logger:     logger,
	}
}

// SetBaseURL overrides the NewsAPI endpoint. Used by tests.
func (s *NewsService) SetBaseURL(url string) {
	s.baseURL = url
}

// Search runs one merged news search. NewsAPI being rate limited or
// unconfigured degrades to RSS-only results rather than failing.
func (s *NewsService) Search(ctx context.Context, keywords []string, opts NewsSearchOptions) (*NewsSearchResult, error) {
	if len(keywords) == 0 {
		return nil, fmt.Errorf("at least one keyword is required")
	}
	if opts.DaysBack <= 0 {
		opts.DaysBack = 7
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}

	cacheKey := s.cacheKey(keywords, opts)
	if cached := s.fromCache(ctx, cacheKey); cached != nil {
		return cached, nil
	}

	result := &NewsSearchResult{}

	apiArticles, rateLimited, err := s.searchNewsAPI(ctx, keywords, opts)
	if err != nil {
		s.logger.WithError(err).Warn("NewsAPI search failed, continuing with RSS only")
		result.Errors = append(result.Errors, err.Error())
	}
	result.RateLimited = rateLimited

	rssArticles := s.rss.Search(ctx, keywords, opts.Region, opts.DaysBack, opts.Limit)

	result.Articles = mergeArticles(apiArticles, rssArticles, opts.Limit)

	s.toCache(ctx, cacheKey, result)
	return result, nil
}

func (s *NewsService) searchNewsAPI(ctx context.Context, keywords []string, opts NewsSearchOptions) ([]Article, bool, error) {
	if s.apiKey == "" {
		return nil, false, nil
	}

	if allowed, retryAfter := s.limiter.Allow(); !allowed {
		s.logger.WithField("retry_after", retryAfter).Warn("NewsAPI rate limited")
		return nil, true, nil
	}

	params := url.Values{}
	params.Set("q", strings.Join(keywords, " OR "))
	params.Set("pageSize", fmt.Sprintf("%d", opts.Limit))
	params.Set("sortBy", "publishedAt")
	params.Set("from", time.Now().AddDate(0, 0, -opts.DaysBack).Format("2006-01-02"))
	if opts.Language != "" {
		params.Set("language", opts.Language)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/everything?"+params.Encode(), nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to build NewsAPI request: %w", err)
	}
	req.Header.Set("X-Api-Key", s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("NewsAPI request failed: %w", err)
	}
	defer resp.Body.Close()

	var payload struct {
		Status   string `json:"status"`
		Message  string `json:"message"`
		Articles []struct {
			Source struct {
				Name string `json:"name"`
			} `json:"source"`
			Title       string    `json:"title"`
			Description string    `json:"description"`
			URL         string    `json:"url"`
			PublishedAt time.Time `json:"publishedAt"`
		} `json:"articles"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, false, fmt.Errorf("failed to decode NewsAPI response: %w", err)
	}
	if payload.Status != "ok" {
		return nil, false, fmt.Errorf("NewsAPI error: %s", payload.Message)
	}

	articles := make([]Article, 0, len(payload.Articles))
	for _, a := range payload.Articles {
		articles = append(articles, Article{
			Title:       a.Title,
			Description: a.Description,
			URL:         a.URL,
			Source:      a.Source.Name,
			PublishedAt: a.PublishedAt,
			Quality:     3,
		})
	}
	return articles, false, nil
}

// mergeArticles combines both feeds, deduplicates by URL and keeps the
// quality-then-recency order.
func mergeArticles(a, b []Article, limit int) []Article {
	seen := make(map[string]bool)
	var merged []Article
	for _, article := range append(a, b...) {
		if article.URL == "" || seen[article.URL] {
			continue
		}
		seen[article.URL] = true
		merged = append(merged, article)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Quality != merged[j].Quality {
			return merged[i].Quality > merged[j].Quality
		}
		return merged[i].PublishedAt.After(merged[j].PublishedAt)
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

func (s *NewsService) cacheKey(keywords []string, opts NewsSearchOptions) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s|%d", strings.Join(keywords, ","), opts.Language, opts.Region, opts.DaysBack)))
	return "news:search:" + hex.EncodeToString(sum[:8])
}

func (s *NewsService) fromCache(ctx context.Context, key string) *NewsSearchResult {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, key)
	if err != nil || raw == "" {
		return nil
	}
	var result NewsSearchResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil
	}
	result.FromCache = true
	return &result
}

func (s *NewsService) toCache(ctx context.Context, key string, result *NewsSearchResult) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, string(raw), s.cacheTTL); err != nil {
		s.logger.WithError(err).Debug("Failed to cache news search result")
	}
}
