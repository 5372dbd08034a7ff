package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const serperAPIBase = "https://google.serper.dev"

// ErrSerperNotConfigured is returned when no Serper API key is set.
var ErrSerperNotConfigured = errors.New("serper api key not configured")

// Queries used to surface Brazilian sports publishers. Kept in
// Portuguese on purpose; the target market searches in pt-BR.
var publisherDiscoveryQueries = []string{
	"esportes notícias brasil",
	"futebol brasileiro portal",
	"placar ao vivo site:.com.br",
	"brasileirão cobertura",
	"notícias esportivas brasil",
	"portal esportes brasil",
}

// SerperOrganic is one organic result from a Serper search.
type SerperOrganic struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet,omitempty"`
}

// SerperSearchResult is the slice of a Serper response the pipeline
// cares about.
type SerperSearchResult struct {
	Query        string          `json:"query"`
	TotalResults int64           `json:"totalResults"`
	Organic      []SerperOrganic `json:"organic"`
}

// PublisherHit is one candidate publisher surfaced by discovery.
type PublisherHit struct {
	Domain string `json:"domain"`
	Title  string `json:"title"`
	URL    string `json:"url"`
}

// SearchPresence estimates how much search footprint a publisher has.
// TrafficScore is a 1-10 proxy derived from result volume.
type SearchPresence struct {
	PublisherName string   `json:"publisherName"`
	TrafficScore  int      `json:"trafficScore"`
	TotalResults  int64    `json:"totalResults"`
	TopMentions   []string `json:"topMentions"`
	HasTrend      bool     `json:"hasTrend"`
}

// SerperService runs Google searches through the Serper API. Used by
// the publisher discovery pass.
type SerperService struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewSerperService(apiKey string, logger *logrus.Logger) *SerperService {
	return &SerperService{
		apiKey:     apiKey,
		baseURL:    serperAPIBase,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

// SetBaseURL overrides the Serper endpoint. Used by tests.
func (s *SerperService) SetBaseURL(url string) {
	s.baseURL = url
}

// Configured reports whether an API key is present.
func (s *SerperService) Configured() bool {
	return s.apiKey != ""
}

// Search runs one web search localized to the given country code.
func (s *SerperService) Search(ctx context.Context, query, gl string) (*SerperSearchResult, error) {
	if s.apiKey == "" {
		return nil, ErrSerperNotConfigured
	}
	if query = strings.TrimSpace(query); query == "" {
		return nil, errors.New("query is required")
	}
	if gl == "" {
		gl = "br"
	}

	body, err := json.Marshal(map[string]any{
		"q":   query,
		"gl":  strings.ToLower(gl),
		"hl":  "pt-br",
		"num": 20,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode serper request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build serper request: %w", err)
	}
	req.Header.Set("X-API-KEY", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("serper request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("serper returned status %d", resp.StatusCode)
	}

	var payload struct {
		SearchInformation struct {
			TotalResults int64 `json:"totalResults"`
		} `json:"searchInformation"`
		Organic []SerperOrganic `json:"organic"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode serper response: %w", err)
	}

	return &SerperSearchResult{
		Query:        query,
		TotalResults: payload.SearchInformation.TotalResults,
		Organic:      payload.Organic,
	}, nil
}

// DiscoverPublishers runs the fixed Brazilian sports-media queries and
// returns distinct publisher domains, first seen wins. A failing query
// is skipped; the pass works with whatever the other queries return.
func (s *SerperService) DiscoverPublishers(ctx context.Context, limit int) ([]PublisherHit, error) {
	if s.apiKey == "" {
		return nil, ErrSerperNotConfigured
	}
	if limit <= 0 {
		limit = 30
	}

	seen := make(map[string]bool)
	var hits []PublisherHit
	for _, query := range publisherDiscoveryQueries {
		if len(hits) >= limit {
			break
		}
		result, err := s.Search(ctx, query, "br")
		if err != nil {
			s.logger.WithError(err).WithField("query", query).Warn("Publisher discovery query failed")
			continue
		}
		for _, organic := range result.Organic {
			domain := extractDomain(organic.Link)
			if domain == "" || seen[domain] {
				continue
			}
			seen[domain] = true
			hits = append(hits, PublisherHit{Domain: domain, Title: organic.Title, URL: organic.Link})
			if len(hits) >= limit {
				break
			}
		}
	}
	return hits, nil
}

// CheckPresence estimates a publisher's audience from its search
// footprint. The autocomplete trend adds one point, capped at 10.
func (s *SerperService) CheckPresence(ctx context.Context, publisherName string) (*SearchPresence, error) {
	if s.apiKey == "" {
		return nil, ErrSerperNotConfigured
	}
	if publisherName = strings.TrimSpace(publisherName); publisherName == "" {
		return nil, errors.New("publisher_name is required")
	}

	result, err := s.Search(ctx, publisherName, "br")
	if err != nil {
		return nil, err
	}

	presence := &SearchPresence{
		PublisherName: publisherName,
		TotalResults:  result.TotalResults,
		TrafficScore:  trafficScoreFor(result.TotalResults),
	}
	for _, organic := range result.Organic {
		presence.TopMentions = append(presence.TopMentions, organic.Title)
		if len(presence.TopMentions) == 5 {
			break
		}
	}

	if hasTrend, err := s.autocompleteTrend(ctx, publisherName); err != nil {
		s.logger.WithError(err).Debug("Serper autocomplete failed")
	} else if hasTrend {
		presence.HasTrend = true
		if presence.TrafficScore < 10 {
			presence.TrafficScore++
		}
	}
	return presence, nil
}

func (s *SerperService) autocompleteTrend(ctx context.Context, name string) (bool, error) {
	body, err := json.Marshal(map[string]any{"q": name, "gl": "br"})
	if err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/autocomplete", bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("X-API-KEY", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("serper autocomplete returned status %d", resp.StatusCode)
	}

	var payload struct {
		Suggestions []struct {
			Value string `json:"value"`
		} `json:"suggestions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return false, err
	}
	return len(payload.Suggestions) > 1, nil
}

// trafficScoreFor maps raw search result volume onto the 1-10 proxy.
func trafficScoreFor(totalResults int64) int {
	switch {
	case totalResults > 100000:
		return 10
	case totalResults > 50000:
		return 8
	case totalResults > 10000:
		return 6
	case totalResults > 1000:
		return 4
	case totalResults > 100:
		return 2
	default:
		return 1
	}
}

// extractDomain normalizes a link to its bare host, without "www.".
func extractDomain(link string) string {
	parsed, err := url.Parse(link)
	if err != nil || parsed.Host == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(parsed.Host), "www.")
}
