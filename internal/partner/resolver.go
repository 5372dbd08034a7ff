package partner

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// RosterClient fetches roster data from the partner platform.
type RosterClient interface {
	FetchBookies(ctx context.Context) ([]Bookie, error)
	PromotionCount(ctx context.Context, bookieID string) (int, error)
}

// RosterCache holds the bookie roster with a refresh deadline. Safe for
// concurrent use.
type RosterCache struct {
	mu          sync.Mutex
	bookies     []Bookie
	lastRefresh time.Time
	ttl         time.Duration
}

func NewRosterCache(ttl time.Duration) *RosterCache {
	return &RosterCache{ttl: ttl}
}

// get returns the cached roster and whether it is still fresh.
func (c *RosterCache) get(now time.Time) ([]Bookie, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.bookies) == 0 || now.Sub(c.lastRefresh) >= c.ttl {
		return nil, false
	}
	return c.bookies, true
}

func (c *RosterCache) put(bookies []Bookie, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bookies = bookies
	c.lastRefresh = now
}

// Invalidate forces the next lookup to refetch the roster.
func (c *RosterCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastRefresh = time.Time{}
	c.bookies = nil
}

// Stats reports cache size and age for the health endpoint.
func (c *RosterCache) Stats() (count int, age time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastRefresh.IsZero() {
		return len(c.bookies), 0
	}
	return len(c.bookies), time.Since(c.lastRefresh)
}

// Resolver classifies entity names against the partner roster.
type Resolver struct {
	client    RosterClient
	cache     *RosterCache
	threshold float64
	logger    *logrus.Logger
	now       func() time.Time
}

func NewResolver(client RosterClient, cache *RosterCache, threshold float64, logger *logrus.Logger) *Resolver {
	return &Resolver{
		client:    client,
		cache:     cache,
		threshold: threshold,
		logger:    logger,
		now:       time.Now,
	}
}

// roster returns the cached bookie list, refreshing it when stale.
func (r *Resolver) roster(ctx context.Context) ([]Bookie, error) {
	now := r.now()
	if bookies, ok := r.cache.get(now); ok {
		return bookies, nil
	}

	bookies, err := r.client.FetchBookies(ctx)
	if err != nil {
		return nil, err
	}
	r.cache.put(bookies, now)
	return bookies, nil
}

// Resolve checks an entity name against the roster and returns its
// partnership tier. A roster fetch failure resolves to NEW_PROSPECT rather
// than blocking the pipeline; unknown entities are the interesting case
// and a false NEW_PROSPECT only costs a manual double check.
func (r *Resolver) Resolve(ctx context.Context, entityName string) Match {
	bookies, err := r.roster(ctx)
	if err != nil {
		r.logger.WithError(err).WithField("entity", entityName).Warn("Roster unavailable, treating entity as new prospect")
		return Match{Tier: TierNewProspect}
	}

	best := r.bestMatch(entityName, bookies)
	if best == nil {
		return Match{Tier: TierNewProspect}
	}

	promotions, err := r.client.PromotionCount(ctx, best.Bookie.ID)
	if err != nil {
		r.logger.WithError(err).WithField("bookie", best.Bookie.Name).Warn("Promotion lookup failed, assuming none")
		promotions = 0
	}
	best.Bookie.PromotionsCount = promotions

	if promotions > 0 {
		best.Tier = TierAffiliatePartner
	} else {
		best.Tier = TierKnownBookie
	}
	return *best
}

// bestMatch scans the roster for the highest-similarity bookie at or above
// the threshold. Both the display name and the slug form are compared.
func (r *Resolver) bestMatch(entityName string, bookies []Bookie) *Match {
	var best *Match
	slug := Slugify(entityName)

	for i := range bookies {
		bookie := bookies[i]
		similarity := Similarity(entityName, bookie.Name)
		if s := Similarity(slug, bookie.Slug); s > similarity {
			similarity = s
		}
		if similarity < r.threshold {
			continue
		}
		if best == nil || similarity > best.Similarity {
			best = &Match{Bookie: &bookie, Similarity: similarity}
		}
	}
	return best
}
