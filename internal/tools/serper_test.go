package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serperStub(t *testing.T, totalResults int64, suggestions int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("X-API-KEY"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.NotEmpty(t, body["q"])

		switch r.URL.Path {
		case "/search":
			fmt.Fprintf(w, `{
				"searchInformation": {"totalResults": %d},
				"organic": [
					{"title": "Globo Esporte", "link": "https://www.ge.globo.com/futebol"},
					{"title": "Lance!", "link": "https://www.lance.com.br"},
					{"title": "GE again", "link": "https://ge.globo.com/brasileirao"}
				]
			}`, totalResults)
		case "/autocomplete":
			w.Write([]byte(`{"suggestions": [`))
			for i := 0; i < suggestions; i++ {
				if i > 0 {
					w.Write([]byte(","))
				}
				fmt.Fprintf(w, `{"value": "suggestion %d"}`, i)
			}
			w.Write([]byte(`]}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
}

func TestSerperService_Search(t *testing.T) {
	server := serperStub(t, 250000, 0)
	defer server.Close()

	service := NewSerperService("test-key", testToolLogger())
	service.SetBaseURL(server.URL)

	result, err := service.Search(context.Background(), "portal esportes brasil", "br")
	require.NoError(t, err)
	assert.Equal(t, int64(250000), result.TotalResults)
	require.Len(t, result.Organic, 3)
	assert.Equal(t, "Globo Esporte", result.Organic[0].Title)
}

func TestSerperService_NotConfigured(t *testing.T) {
	service := NewSerperService("", testToolLogger())

	_, err := service.Search(context.Background(), "anything", "br")
	assert.ErrorIs(t, err, ErrSerperNotConfigured)

	_, err = service.DiscoverPublishers(context.Background(), 10)
	assert.ErrorIs(t, err, ErrSerperNotConfigured)

	assert.False(t, service.Configured())
}

func TestSerperService_DiscoverPublishersDedupesDomains(t *testing.T) {
	server := serperStub(t, 1000, 0)
	defer server.Close()

	service := NewSerperService("test-key", testToolLogger())
	service.SetBaseURL(server.URL)

	hits, err := service.DiscoverPublishers(context.Background(), 30)
	require.NoError(t, err)
	// Every discovery query returns the same three links; two distinct
	// domains once www. is stripped and duplicates are dropped.
	require.Len(t, hits, 2)
	assert.Equal(t, "ge.globo.com", hits[0].Domain)
	assert.Equal(t, "lance.com.br", hits[1].Domain)
}

func TestSerperService_DiscoverPublishersHonorsLimit(t *testing.T) {
	server := serperStub(t, 1000, 0)
	defer server.Close()

	service := NewSerperService("test-key", testToolLogger())
	service.SetBaseURL(server.URL)

	hits, err := service.DiscoverPublishers(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "ge.globo.com", hits[0].Domain)
}

func TestSerperService_CheckPresence(t *testing.T) {
	server := serperStub(t, 250000, 3)
	defer server.Close()

	service := NewSerperService("test-key", testToolLogger())
	service.SetBaseURL(server.URL)

	presence, err := service.CheckPresence(context.Background(), "Globo Esporte")
	require.NoError(t, err)
	// Volume ladder gives 10 and the autocomplete trend cannot push
	// past the cap.
	assert.Equal(t, 10, presence.TrafficScore)
	assert.True(t, presence.HasTrend)
	assert.Equal(t, int64(250000), presence.TotalResults)
	assert.Equal(t, []string{"Globo Esporte", "Lance!", "GE again"}, presence.TopMentions)
}

func TestSerperService_CheckPresenceLowVolume(t *testing.T) {
	server := serperStub(t, 500, 0)
	defer server.Close()

	service := NewSerperService("test-key", testToolLogger())
	service.SetBaseURL(server.URL)

	presence, err := service.CheckPresence(context.Background(), "obscure portal")
	require.NoError(t, err)
	assert.Equal(t, 2, presence.TrafficScore)
	assert.False(t, presence.HasTrend)
}

func TestTrafficScoreLadder(t *testing.T) {
	cases := []struct {
		totalResults int64
		want         int
	}{
		{500000, 10},
		{60000, 8},
		{20000, 6},
		{5000, 4},
		{500, 2},
		{50, 1},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, trafficScoreFor(tc.totalResults), "totalResults=%d", tc.totalResults)
	}
}
