package partner

// Tier classifies how an entity relates to the existing partner roster.
type Tier string

const (
	// TierNewProspect means the entity matched no roster bookie.
	TierNewProspect Tier = "NEW_PROSPECT"
	// TierKnownBookie means the entity matched a roster bookie with no
	// active promotions.
	TierKnownBookie Tier = "KNOWN_BOOKIE"
	// TierAffiliatePartner means the entity matched a roster bookie that
	// has active promotions.
	TierAffiliatePartner Tier = "AFFILIATE_PARTNER"
)

// Bookie is one roster entry from the partner platform.
type Bookie struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Slug            string `json:"slug"`
	PromotionsCount int    `json:"promotionsCount"`
}

// Match is the outcome of resolving an entity name against the roster.
// Bookie is nil for NEW_PROSPECT.
type Match struct {
	Tier       Tier    `json:"tier"`
	Bookie     *Bookie `json:"bookie,omitempty"`
	Similarity float64 `json:"similarity"`
}
