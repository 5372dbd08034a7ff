package partner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRosterClient struct {
	bookies    []Bookie
	fetchErr   error
	promotions map[string]int
	promoErr   error
	fetchCalls int
}

func (f *fakeRosterClient) FetchBookies(ctx context.Context) ([]Bookie, error) {
	f.fetchCalls++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.bookies, nil
}

func (f *fakeRosterClient) PromotionCount(ctx context.Context, bookieID string) (int, error) {
	if f.promoErr != nil {
		return 0, f.promoErr
	}
	return f.promotions[bookieID], nil
}

func testRoster() []Bookie {
	return []Bookie{
		{ID: "1", Name: "Bet365", Slug: "bet365"},
		{ID: "2", Name: "Example Bet", Slug: "example-bet"},
		{ID: "3", Name: "Betano", Slug: "betano"},
	}
}

func newTestResolver(client RosterClient) *Resolver {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewResolver(client, NewRosterCache(time.Hour), 0.7, logger)
}

func TestResolver_AffiliatePartner(t *testing.T) {
	client := &fakeRosterClient{
		bookies:    testRoster(),
		promotions: map[string]int{"1": 12},
	}
	resolver := newTestResolver(client)

	match := resolver.Resolve(context.Background(), "bet365")
	assert.Equal(t, TierAffiliatePartner, match.Tier)
	require.NotNil(t, match.Bookie)
	assert.Equal(t, "Bet365", match.Bookie.Name)
	assert.Equal(t, 12, match.Bookie.PromotionsCount)
	assert.Equal(t, 1.0, match.Similarity)
}

func TestResolver_KnownBookie(t *testing.T) {
	client := &fakeRosterClient{bookies: testRoster()}
	resolver := newTestResolver(client)

	match := resolver.Resolve(context.Background(), "ExampleBet")
	assert.Equal(t, TierKnownBookie, match.Tier)
	require.NotNil(t, match.Bookie)
	assert.Equal(t, "Example Bet", match.Bookie.Name)
	assert.GreaterOrEqual(t, match.Similarity, 0.7)
}

func TestResolver_NewProspect(t *testing.T) {
	client := &fakeRosterClient{bookies: testRoster()}
	resolver := newTestResolver(client)

	match := resolver.Resolve(context.Background(), "TotallyNewBrand")
	assert.Equal(t, TierNewProspect, match.Tier)
	assert.Nil(t, match.Bookie)
	assert.Zero(t, match.Similarity)
}

func TestResolver_FailOpenOnFetchError(t *testing.T) {
	client := &fakeRosterClient{fetchErr: errors.New("endpoint down")}
	resolver := newTestResolver(client)

	match := resolver.Resolve(context.Background(), "Bet365")
	assert.Equal(t, TierNewProspect, match.Tier)
	assert.Nil(t, match.Bookie)
}

func TestResolver_RosterCached(t *testing.T) {
	client := &fakeRosterClient{bookies: testRoster()}
	resolver := newTestResolver(client)

	resolver.Resolve(context.Background(), "Bet365")
	resolver.Resolve(context.Background(), "Betano")
	assert.Equal(t, 1, client.fetchCalls)

	resolver.cache.Invalidate()
	resolver.Resolve(context.Background(), "Bet365")
	assert.Equal(t, 2, client.fetchCalls)
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b     string
		expected float64
	}{
		{"Bet365", "bet365", 1},
		{"Example Bet", "Example Bet Casino", 0.9},
		{"", "bet365", 0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.expected, Similarity(tt.a, tt.b), 0.001, "%q vs %q", tt.a, tt.b)
	}

	// Close misspelling stays above the match threshold.
	assert.Greater(t, Similarity("Betanno", "Betano"), 0.7)
	// Unrelated names stay well below it.
	assert.Less(t, Similarity("SuperNova Gaming", "Bet365"), 0.5)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "example-bet", Slugify("Example Bet"))
	assert.Equal(t, "betao-da-sorte", Slugify("  Betão da Sorte "))
}
