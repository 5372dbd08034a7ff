// Package extract pulls candidate operator names out of article text
// without calling the model. The lightweight collector builds on it to
// keep token spend near zero.
package extract

import (
	"regexp"
	"sort"
	"strings"
)

// Confidence levels for an extracted entity.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// Source labels describing how an entity was found.
const (
	SourceKnownOperator   = "known_operator"
	SourcePatternMatch    = "pattern_match"
	SourceCapitalizedWord = "capitalized_word"
)

var bookmakerSuffixes = []string{
	"bet", "bets", "betting", "apostas", "aposta",
	"gaming", "casino", "poker", "sports", "sport",
	"win", "play", "game", "odds", "lucky",
}

// Major operators recognized outright.
var knownOperators = []string{
	"bet365", "betfair", "betano", "betway", "bwin", "betclic",
	"pinnacle", "unibet", "william hill", "ladbrokes", "paddy power",
	"parimatch", "stake", "coolbet", "pokerstars", "draftkings",
	"fanduel", "caesars", "pointsbet", "betmgm", "barstool",
	"1xbet", "22bet", "melbet", "mostbet", "linebet",
	"superbet", "sportingbet", "novibet", "leovegas", "mrgreen",
	"pixbet", "galera bet", "estrelabet", "kto",
	"rivalo", "bodog", "betsson", "netbet", "betcris",
	"caliente", "codere", "luckia", "interapuestas",
}

var industryPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\w+(?:bet|bets|betting|apostas|gaming|casino|poker|play))`),
	regexp.MustCompile(`(?i)operator\s+(\w+)`),
	regexp.MustCompile(`(?i)bookmaker\s+(\w+)`),
	regexp.MustCompile(`(?i)(\w+)\s+(?:launches?|expands?|enters?|announced?)`),
	regexp.MustCompile(`(?i)license\s+(?:to|for)\s+(\w+)`),
}

var capitalizedPattern = regexp.MustCompile(`\b([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)\b`)

var commonWords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "new": true,
	"latest": true, "top": true, "best": true,
	"brazil": true, "brasil": true, "latam": true, "america": true, "europe": true,
	"january": true, "february": true, "march": true, "april": true, "may": true,
	"june": true, "july": true, "august": true, "september": true,
	"october": true, "november": true, "december": true,
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true,
	"friday": true, "saturday": true, "sunday": true,
	"partners": true, "partnership": true, "launches": true, "launch": true,
	"announces": true, "expands": true,
	"news": true, "update": true, "report": true, "market": true,
	"industry": true, "sector": true,
}

// Entity is one candidate operator name found in text.
type Entity struct {
	Name       string `json:"name"`
	Confidence string `json:"confidence"`
	Context    string `json:"context"`
	Source     string `json:"source"`
}

// ArticleRef is the minimal article shape extraction works over.
type ArticleRef struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url"`
	Source      string `json:"source"`
}

// GroupedEntity is one entity with every article that mentioned it.
type GroupedEntity struct {
	Entity   Entity       `json:"entity"`
	Articles []ArticleRef `json:"articles"`
}

// FromHeadline extracts candidate operator names from one headline.
// Known operators score high; suffix and industry-pattern hits score
// medium.
func FromHeadline(headline string) []Entity {
	var entities []Entity
	seen := make(map[string]bool)
	lower := strings.ToLower(headline)

	for _, operator := range knownOperators {
		if !strings.Contains(lower, operator) {
			continue
		}
		name := capitalizeWords(operator)
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		entities = append(entities, Entity{
			Name:       name,
			Confidence: ConfidenceHigh,
			Context:    headline,
			Source:     SourceKnownOperator,
		})
	}

	for _, pattern := range industryPatterns {
		for _, match := range pattern.FindAllStringSubmatch(headline, -1) {
			candidate := match[0]
			if len(match) > 1 && match[1] != "" {
				candidate = match[1]
			}
			name := capitalizeWords(candidate)
			key := strings.ToLower(name)
			if len(name) < 3 || seen[key] || commonWords[key] {
				continue
			}
			seen[key] = true
			entities = append(entities, Entity{
				Name:       name,
				Confidence: ConfidenceMedium,
				Context:    headline,
				Source:     SourcePatternMatch,
			})
		}
	}

	for _, match := range capitalizedPattern.FindAllStringSubmatch(headline, -1) {
		name := match[1]
		key := strings.ToLower(name)
		if seen[key] || commonWords[key] || !hasBettingSuffix(key) {
			continue
		}
		seen[key] = true
		entities = append(entities, Entity{
			Name:       name,
			Confidence: ConfidenceMedium,
			Context:    headline,
			Source:     SourceCapitalizedWord,
		})
	}

	return entities
}

// FromArticles extracts entities across articles, grouping mentions.
// Repeated mentions upgrade confidence to high. Results are ordered by
// confidence then mention count.
func FromArticles(articles []ArticleRef) []GroupedEntity {
	grouped := make(map[string]*GroupedEntity)
	var order []string

	for _, article := range articles {
		text := article.Title
		if article.Description != "" {
			text += " " + article.Description
		}
		for _, entity := range FromHeadline(text) {
			key := strings.ToLower(entity.Name)
			entry, ok := grouped[key]
			if !ok {
				entry = &GroupedEntity{Entity: entity}
				grouped[key] = entry
				order = append(order, key)
			}
			if entity.Confidence == ConfidenceHigh || len(entry.Articles) > 0 {
				entry.Entity.Confidence = ConfidenceHigh
			}
			entry.Articles = append(entry.Articles, ArticleRef{
				Title:  article.Title,
				URL:    article.URL,
				Source: article.Source,
			})
		}
	}

	out := make([]GroupedEntity, 0, len(order))
	for _, key := range order {
		out = append(out, *grouped[key])
	}
	sort.SliceStable(out, func(i, j int) bool {
		ci, cj := confidenceRank(out[i].Entity.Confidence), confidenceRank(out[j].Entity.Confidence)
		if ci != cj {
			return ci < cj
		}
		return len(out[i].Articles) > len(out[j].Articles)
	})
	return out
}

func confidenceRank(c string) int {
	switch c {
	case ConfidenceHigh:
		return 0
	case ConfidenceMedium:
		return 1
	default:
		return 2
	}
}

func hasBettingSuffix(lowerName string) bool {
	for _, suffix := range bookmakerSuffixes {
		if strings.HasSuffix(lowerName, suffix) {
			return true
		}
	}
	return false
}

func capitalizeWords(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
	}
	return strings.Join(words, " ")
}
