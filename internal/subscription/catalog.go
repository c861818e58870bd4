package subscription

import (
	"context"
	"time"

	"spacepurchase/internal/types"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

const catalogCacheSize = 4096

type featureFetcher interface {
	GetCatalogFeatures(ctx context.Context, orgID string, featureIDs ...string) ([]types.CatalogFeature, error)
}

// CatalogCache memoizes product catalog entitlement flags per organization.
// Entries expire after the configured TTL and are dropped explicitly after a
// purchase that changes the entitlement.
type CatalogCache struct {
	fetcher featureFetcher
	cache   *lru.LRU[string, bool]
}

// NewCatalogCache creates a CatalogCache backed by fetcher.
func NewCatalogCache(fetcher featureFetcher, ttl time.Duration) *CatalogCache {
	return &CatalogCache{
		fetcher: fetcher,
		cache:   lru.NewLRU[string, bool](catalogCacheSize, nil, ttl),
	}
}

func catalogKey(orgID, featureID string) string {
	return orgID + "/" + featureID
}

// IsEnabled reports whether featureID is enabled for the organization. A
// feature missing from the upstream response counts as disabled.
func (c *CatalogCache) IsEnabled(ctx context.Context, orgID, featureID string) (bool, error) {
	key := catalogKey(orgID, featureID)
	if enabled, ok := c.cache.Get(key); ok {
		return enabled, nil
	}

	features, err := c.fetcher.GetCatalogFeatures(ctx, orgID, featureID)
	if err != nil {
		return false, err
	}

	enabled := false
	for _, f := range features {
		if f.Sys.FeatureID == featureID {
			enabled = f.Enabled
			break
		}
	}
	c.cache.Add(key, enabled)
	return enabled, nil
}

// Invalidate drops the cached flag so the next lookup hits upstream.
func (c *CatalogCache) Invalidate(orgID, featureID string) {
	c.cache.Remove(catalogKey(orgID, featureID))
}
