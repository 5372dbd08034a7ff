package tools

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/sirupsen/logrus"
)

// RSSSource is one curated industry feed.
type RSSSource struct {
	Name     string
	URL      string
	Region   string
	Quality  int
	Language string
}

// Curated feeds for the LatAm betting market. Quality weights ranking;
// these are real trade publications, not SEO farms.
func DefaultRSSSources() []RSSSource {
	return []RSSSource{
		{Name: "SBC Americas", URL: "https://sbcamericas.com/feed/", Region: "latam", Quality: 5, Language: "en"},
		{Name: "iGaming Brazil", URL: "https://igamingbrazil.com/feed/", Region: "br", Quality: 5, Language: "pt"},
		{Name: "Yogonet Latam", URL: "https://www.yogonet.com/latinoamerica/rss/noticias.xml", Region: "latam", Quality: 4, Language: "es"},
		{Name: "Gaming Post", URL: "https://gamingpost.com.br/feed/", Region: "br", Quality: 4, Language: "pt"},
		{Name: "iGaming Business", URL: "https://igamingbusiness.com/feed/", Region: "global", Quality: 5, Language: "en"},
	}
}

// Article is one normalized news item, from RSS or NewsAPI.
type Article struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"publishedAt"`
	Quality     int       `json:"quality"`
	Language    string    `json:"language,omitempty"`
}

// RSSFetcher pulls and filters the curated industry feeds.
type RSSFetcher struct {
	sources []RSSSource
	parser  *gofeed.Parser
	timeout time.Duration
	logger  *logrus.Logger
}

func NewRSSFetcher(sources []RSSSource, logger *logrus.Logger) *RSSFetcher {
	if len(sources) == 0 {
		sources = DefaultRSSSources()
	}
	parser := gofeed.NewParser()
	parser.UserAgent = "E2-Market-Intelligence/1.0"
	return &RSSFetcher{
		sources: sources,
		parser:  parser,
		timeout: 10 * time.Second,
		logger:  logger,
	}
}

// Search fetches all region-relevant feeds concurrently and returns
// articles matching any keyword, ranked by quality then recency. Feed
// failures are logged and skipped.
func (f *RSSFetcher) Search(ctx context.Context, keywords []string, region string, maxDaysOld, limit int) []Article {
	if maxDaysOld <= 0 {
		maxDaysOld = 30
	}
	if limit <= 0 {
		limit = 20
	}

	sources := f.sourcesForRegion(region)

	var (
		mu  sync.Mutex
		all []Article
		wg  sync.WaitGroup
	)
	for _, source := range sources {
		wg.Add(1)
		go func(src RSSSource) {
			defer wg.Done()
			articles := f.fetchFeed(ctx, src)
			mu.Lock()
			all = append(all, articles...)
			mu.Unlock()
		}(source)
	}
	wg.Wait()

	cutoff := time.Now().AddDate(0, 0, -maxDaysOld)
	matched := make([]Article, 0, len(all))
	for _, article := range all {
		if article.PublishedAt.Before(cutoff) {
			continue
		}
		if matchesKeywords(article, keywords) {
			matched = append(matched, article)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Quality != matched[j].Quality {
			return matched[i].Quality > matched[j].Quality
		}
		return matched[i].PublishedAt.After(matched[j].PublishedAt)
	})

	if len(matched) > limit {
		matched = matched[:limit]
	}
	f.logger.WithFields(logrus.Fields{
		"keywords": keywords,
		"matched":  len(matched),
		"sources":  len(sources),
	}).Debug("RSS search complete")
	return matched
}

// Recent returns the latest articles without keyword filtering.
func (f *RSSFetcher) Recent(ctx context.Context, region string, limit int) []Article {
	if limit <= 0 {
		limit = 30
	}

	var all []Article
	for _, source := range f.sourcesForRegion(region) {
		all = append(all, f.fetchFeed(ctx, source)...)
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].PublishedAt.After(all[j].PublishedAt)
	})
	if len(all) > limit {
		all = all[:limit]
	}
	return all
}

func (f *RSSFetcher) sourcesForRegion(region string) []RSSSource {
	if region == "" {
		return f.sources
	}
	var out []RSSSource
	for _, s := range f.sources {
		if s.Region == region || s.Region == "global" || s.Region == "latam" {
			out = append(out, s)
		}
	}
	return out
}

func (f *RSSFetcher) fetchFeed(ctx context.Context, source RSSSource) []Article {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	feed, err := f.parser.ParseURLWithContext(source.URL, ctx)
	if err != nil {
		f.logger.WithError(err).WithField("source", source.Name).Warn("RSS feed fetch failed")
		return nil
	}

	articles := make([]Article, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item.Title == "" || item.Link == "" {
			continue
		}
		published := time.Now()
		if item.PublishedParsed != nil {
			published = *item.PublishedParsed
		}
		description := item.Description
		if len(description) > 500 {
			description = description[:500]
		}
		articles = append(articles, Article{
			Title:       item.Title,
			Description: description,
			URL:         item.Link,
			Source:      source.Name,
			PublishedAt: published,
			Quality:     source.Quality,
			Language:    source.Language,
		})
	}
	return articles
}

func matchesKeywords(article Article, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	text := strings.ToLower(article.Title + " " + article.Description)
	for _, kw := range keywords {
		if strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
