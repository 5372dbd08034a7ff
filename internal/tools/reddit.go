package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const redditBase = "https://www.reddit.com"

var brazilSubreddits = []string{"brasil", "investimentos", "futebol", "sportsbook"}
var globalSubreddits = []string{"sportsbook", "gambling"}

// Keyword lists cover Portuguese and English since the Brazil market
// discussions mix both.
var positiveKeywords = []string{
	"recomendo", "melhor", "excelente", "ótimo", "confiável", "rápido", "pagou",
	"recommend", "great", "excellent", "reliable", "fast", "paid", "legit",
	"bom", "legal", "funciona", "works", "good",
}

var negativeKeywords = []string{
	"golpe", "scam", "fraude", "não pagou", "roubou", "evite", "péssimo",
	"fraud", "avoid", "terrible", "worst", "stolen", "never paid",
	"ruim", "problema", "cuidado", "warning", "bad", "issue",
}

// RedditPost is one search hit from the public JSON API.
type RedditPost struct {
	Title       string    `json:"title"`
	SelfText    string    `json:"selftext"`
	URL         string    `json:"url"`
	Subreddit   string    `json:"subreddit"`
	Author      string    `json:"author"`
	Score       int       `json:"score"`
	NumComments int       `json:"numComments"`
	CreatedAt   time.Time `json:"createdAt"`
	Permalink   string    `json:"permalink"`
}

// SentimentCounts tallies keyword sentiment across posts.
type SentimentCounts struct {
	Positive int `json:"positive"`
	Negative int `json:"negative"`
	Neutral  int `json:"neutral"`
}

// RedditSearchResult is the social signal for one entity.
type RedditSearchResult struct {
	Posts               []RedditPost    `json:"posts"`
	SubredditsSearched  []string        `json:"subredditsSearched"`
	MentionCount        int             `json:"mentionCount"`
	SentimentIndicators SentimentCounts `json:"sentimentIndicators"`
}

// RedditService queries Reddit's public JSON search. No auth needed for
// public posts; a minimum gap between requests keeps us polite.
type RedditService struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger

	mu          sync.Mutex
	minGap      time.Duration
	lastRequest time.Time
}

func NewRedditService(logger *logrus.Logger) *RedditService {
	return &RedditService{
		baseURL:    redditBase,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
		minGap:     2 * time.Second,
	}
}

// SetBaseURL overrides the endpoint and disables the request gap. Used by
// tests.
func (s *RedditService) SetBaseURL(url string) {
	s.baseURL = url
	s.minGap = 0
}

// SearchMentions looks for posts about one bookmaker across the
// region-relevant subreddits plus a sitewide search, then tallies keyword
// sentiment. Individual search failures degrade to fewer posts.
func (s *RedditService) SearchMentions(ctx context.Context, entityName, region string) (*RedditSearchResult, error) {
	subreddits := globalSubreddits
	if region == "" || strings.EqualFold(region, "br") {
		subreddits = brazilSubreddits
	}

	var all []RedditPost
	for _, subreddit := range subreddits {
		posts, err := s.search(ctx, entityName, subreddit, 10)
		if err != nil {
			s.logger.WithError(err).WithField("subreddit", subreddit).Warn("Reddit search failed")
			continue
		}
		all = append(all, posts...)
	}

	general, err := s.search(ctx, entityName+" betting OR apostas", "", 15)
	if err != nil {
		s.logger.WithError(err).Warn("Reddit sitewide search failed")
	}
	all = append(all, general...)

	unique := dedupePosts(all)
	sort.Slice(unique, func(i, j int) bool { return unique[i].Score > unique[j].Score })

	sentiment := SentimentCounts{}
	for _, post := range unique {
		switch classifySentiment(post.Title + " " + post.SelfText) {
		case 1:
			sentiment.Positive++
		case -1:
			sentiment.Negative++
		default:
			sentiment.Neutral++
		}
	}

	mentionCount := len(unique)
	if len(unique) > 20 {
		unique = unique[:20]
	}

	return &RedditSearchResult{
		Posts:               unique,
		SubredditsSearched:  subreddits,
		MentionCount:        mentionCount,
		SentimentIndicators: sentiment,
	}, nil
}

func (s *RedditService) search(ctx context.Context, query, subreddit string, limit int) ([]RedditPost, error) {
	s.waitGap()

	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", fmt.Sprintf("%d", limit))
	params.Set("sort", "relevance")
	params.Set("t", "month")

	endpoint := s.baseURL + "/search.json?" + params.Encode()
	if subreddit != "" {
		params.Set("restrict_sr", "1")
		endpoint = s.baseURL + "/r/" + subreddit + "/search.json?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build reddit request: %w", err)
	}
	req.Header.Set("User-Agent", "E2-Market-Intelligence/1.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reddit request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reddit returned status %d", resp.StatusCode)
	}

	var payload struct {
		Data struct {
			Children []struct {
				Data struct {
					Title       string  `json:"title"`
					SelfText    string  `json:"selftext"`
					URL         string  `json:"url"`
					Subreddit   string  `json:"subreddit"`
					Author      string  `json:"author"`
					Score       int     `json:"score"`
					NumComments int     `json:"num_comments"`
					CreatedUTC  float64 `json:"created_utc"`
					Permalink   string  `json:"permalink"`
				} `json:"data"`
			} `json:"children"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode reddit response: %w", err)
	}

	posts := make([]RedditPost, 0, len(payload.Data.Children))
	for _, child := range payload.Data.Children {
		post := child.Data
		text := post.SelfText
		if len(text) > 500 {
			text = text[:500]
		}
		author := post.Author
		if author == "" {
			author = "[deleted]"
		}
		posts = append(posts, RedditPost{
			Title:       post.Title,
			SelfText:    text,
			URL:         post.URL,
			Subreddit:   post.Subreddit,
			Author:      author,
			Score:       post.Score,
			NumComments: post.NumComments,
			CreatedAt:   time.Unix(int64(post.CreatedUTC), 0).UTC(),
			Permalink:   redditBase + post.Permalink,
		})
	}
	return posts, nil
}

func (s *RedditService) waitGap() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.minGap == 0 {
		return
	}
	if elapsed := time.Since(s.lastRequest); elapsed < s.minGap {
		time.Sleep(s.minGap - elapsed)
	}
	s.lastRequest = time.Now()
}

func dedupePosts(posts []RedditPost) []RedditPost {
	seen := make(map[string]bool)
	var out []RedditPost
	for _, post := range posts {
		if seen[post.Permalink] {
			continue
		}
		seen[post.Permalink] = true
		out = append(out, post)
	}
	return out
}

// classifySentiment returns 1, -1 or 0 for positive, negative or neutral.
func classifySentiment(text string) int {
	lower := strings.ToLower(text)
	var positive, negative int
	for _, kw := range positiveKeywords {
		if strings.Contains(lower, kw) {
			positive++
		}
	}
	for _, kw := range negativeKeywords {
		if strings.Contains(lower, kw) {
			negative++
		}
	}
	switch {
	case positive > negative:
		return 1
	case negative > positive:
		return -1
	default:
		return 0
	}
}
