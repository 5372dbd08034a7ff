package partner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultPageSize = 100
	// The roster tops out around 1500 bookies; pages beyond the cap are
	// not worth waiting for.
	defaultMaxPages = 15
)

// GraphQLClient talks to the partner platform's GraphQL API.
type GraphQLClient struct {
	url        string
	token      string
	pageSize   int
	maxPages   int
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewGraphQLClient(url, token string, logger *logrus.Logger) *GraphQLClient {
	return &GraphQLClient{
		url:        url,
		token:      token,
		pageSize:   defaultPageSize,
		maxPages:   defaultMaxPages,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

// SetPaging overrides the roster paging bounds. Zero values keep the
// defaults.
func (c *GraphQLClient) SetPaging(pageSize, maxPages int) {
	if pageSize > 0 {
		c.pageSize = pageSize
	}
	if maxPages > 0 {
		c.maxPages = maxPages
	}
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlError struct {
	Message string `json:"message"`
}

// execute posts one GraphQL query and decodes the data payload into out.
func (c *GraphQLClient) execute(ctx context.Context, query string, variables map[string]any, out any) error {
	body, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("failed to marshal graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build graphql request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("graphql request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("graphql endpoint returned status %d", resp.StatusCode)
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []graphqlError  `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("failed to decode graphql response: %w", err)
	}
	if len(envelope.Errors) > 0 {
		return fmt.Errorf("graphql query error: %s", envelope.Errors[0].Message)
	}
	return json.Unmarshal(envelope.Data, out)
}

const bookiesQuery = `
	query GetBookies($first: Int!, $page: Int!) {
		bookies(first: $first, page: $page) {
			data {
				id
				name
				slug
			}
			paginatorInfo {
				hasMorePages
			}
		}
	}
`

// FetchBookies pages through the full roster. Fetching is best-effort: a
// failed page logs a warning and returns what was collected so far.
func (c *GraphQLClient) FetchBookies(ctx context.Context) ([]Bookie, error) {
	var all []Bookie

	for page := 1; page <= c.maxPages; page++ {
		var data struct {
			Bookies struct {
				Data          []Bookie `json:"data"`
				PaginatorInfo struct {
					HasMorePages bool `json:"hasMorePages"`
				} `json:"paginatorInfo"`
			} `json:"bookies"`
		}
		if err := c.execute(ctx, bookiesQuery, map[string]any{"first": c.pageSize, "page": page}, &data); err != nil {
			if page == 1 {
				return nil, fmt.Errorf("failed to fetch bookie roster: %w", err)
			}
			c.logger.WithError(err).WithField("page", page).Warn("Roster page fetch failed, keeping partial roster")
			break
		}

		all = append(all, data.Bookies.Data...)
		if !data.Bookies.PaginatorInfo.HasMorePages {
			break
		}
	}

	c.logger.WithField("bookies", len(all)).Debug("Fetched partner roster")
	return all, nil
}

const promotionsQuery = `
	query GetBookiePromotions($id: ID!) {
		bookie(filter: { id: $id }) {
			promotions(first: 1) {
				paginatorInfo {
					total
				}
			}
		}
	}
`

// PromotionCount returns the number of active promotions for one bookie.
func (c *GraphQLClient) PromotionCount(ctx context.Context, bookieID string) (int, error) {
	var data struct {
		Bookie *struct {
			Promotions struct {
				PaginatorInfo struct {
					Total int `json:"total"`
				} `json:"paginatorInfo"`
			} `json:"promotions"`
		} `json:"bookie"`
	}
	if err := c.execute(ctx, promotionsQuery, map[string]any{"id": bookieID}, &data); err != nil {
		return 0, fmt.Errorf("failed to fetch promotion count: %w", err)
	}
	if data.Bookie == nil {
		return 0, nil
	}
	return data.Bookie.Promotions.PaginatorInfo.Total, nil
}
