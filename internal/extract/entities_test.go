package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromHeadline_KnownOperator(t *testing.T) {
	entities := FromHeadline("Betano announces expansion into Brazil market")

	require.NotEmpty(t, entities)
	assert.Equal(t, "Betano", entities[0].Name)
	assert.Equal(t, ConfidenceHigh, entities[0].Confidence)
	assert.Equal(t, SourceKnownOperator, entities[0].Source)
}

func TestFromHeadline_MultiWordOperator(t *testing.T) {
	entities := FromHeadline("Galera Bet sponsors Brazilian football team")

	names := make([]string, 0, len(entities))
	for _, e := range entities {
		names = append(names, e.Name)
	}
	assert.Contains(t, names, "Galera Bet")
}

func TestFromHeadline_SuffixPattern(t *testing.T) {
	entities := FromHeadline("New operator Ganhabet launches mobile app")

	var found bool
	for _, e := range entities {
		if e.Name == "Ganhabet" {
			found = true
			assert.Equal(t, ConfidenceMedium, e.Confidence)
		}
	}
	assert.True(t, found, "suffix-matched operator should be extracted")
}

func TestFromHeadline_FiltersCommonWords(t *testing.T) {
	entities := FromHeadline("Market update: industry report for Brazil")
	for _, e := range entities {
		assert.NotContains(t, []string{"Market", "Industry", "Report", "Brazil"}, e.Name)
	}
}

func TestFromHeadline_NoDuplicates(t *testing.T) {
	entities := FromHeadline("Bet365 and bet365 report record profits")

	count := 0
	for _, e := range entities {
		if e.Name == "Bet365" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestFromArticles_GroupsAndUpgradesConfidence(t *testing.T) {
	articles := []ArticleRef{
		{Title: "Ganhabet launches mobile app", URL: "https://x/1", Source: "iGaming Brazil"},
		{Title: "Ganhabet secures payment deal", URL: "https://x/2", Source: "SBC Americas"},
		{Title: "Quiet day in the sector", URL: "https://x/3", Source: "Yogonet"},
	}

	grouped := FromArticles(articles)
	require.NotEmpty(t, grouped)

	var ganhabet *GroupedEntity
	for i := range grouped {
		if grouped[i].Entity.Name == "Ganhabet" {
			ganhabet = &grouped[i]
		}
	}
	require.NotNil(t, ganhabet)
	assert.Len(t, ganhabet.Articles, 2)
	// Two mentions upgrade a medium hit to high.
	assert.Equal(t, ConfidenceHigh, ganhabet.Entity.Confidence)
}
