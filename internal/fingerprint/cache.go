package fingerprint

import (
	"github.com/patrickmn/go-cache"

	"github.com/kosarica/feed-service/internal/types"
)

// Cache holds the last written fingerprint per supplier id. Entries never
// expire and live only as long as the process, so a restart reprocesses every
// supplier. An entry exists only after that supplier's feed was written.
type Cache struct {
	store *cache.Cache
}

// NewCache creates an empty fingerprint cache
func NewCache() *Cache {
	return &Cache{
		store: cache.New(cache.NoExpiration, 0),
	}
}

// Get returns the cached fingerprint for a supplier
func (c *Cache) Get(supplierID string) (string, bool) {
	v, ok := c.store.Get(supplierID)
	if !ok {
		return "", false
	}
	fp, ok := v.(string)
	return fp, ok
}

// Set records the fingerprint of a successfully written feed
func (c *Cache) Set(supplierID, fp string) {
	c.store.Set(supplierID, fp, cache.NoExpiration)
}

// Delete forgets a supplier, forcing its next refresh
func (c *Cache) Delete(supplierID string) {
	c.store.Delete(supplierID)
}

// Flush forgets every supplier
func (c *Cache) Flush() {
	c.store.Flush()
}

// Len returns the number of cached suppliers
func (c *Cache) Len() int {
	return c.store.ItemCount()
}

// Check fingerprints the worksheets and reports whether they differ from the
// cached value. It does not update the cache; callers call Set once the feed
// has been written.
func (c *Cache) Check(supplierID string, worksheets []types.Worksheet) (fp string, changed bool) {
	fp = Compute(worksheets)
	cached, ok := c.Get(supplierID)
	return fp, !ok || cached != fp
}
