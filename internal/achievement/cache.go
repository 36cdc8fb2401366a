package achievement

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultCatalogTTL is how long a loaded catalog is served before reloading.
const DefaultCatalogTTL = 30 * time.Second

// CatalogCache holds the active catalog for the whole process. A stale or
// empty cache reloads from the store on the next Get.
type CatalogCache struct {
	mu       sync.Mutex
	store    Store
	ttl      time.Duration
	now      func() time.Time
	catalog  []Achievement
	loadedAt time.Time
}

func NewCatalogCache(store Store, ttl time.Duration) *CatalogCache {
	if ttl <= 0 {
		ttl = DefaultCatalogTTL
	}
	return &CatalogCache{
		store: store,
		ttl:   ttl,
		now:   time.Now,
	}
}

// SetClock replaces the time source.
func (c *CatalogCache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func (c *CatalogCache) Get(ctx context.Context) ([]Achievement, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.catalog != nil && c.now().Sub(c.loadedAt) < c.ttl {
		return c.catalog, nil
	}
	catalog, err := c.store.ActiveCatalog(ctx)
	if err != nil {
		return nil, err
	}
	c.catalog = catalog
	c.loadedAt = c.now()
	log.Debug("Achievement catalog loaded", "entries", len(catalog))
	return catalog, nil
}

// Invalidate drops the cached catalog.
func (c *CatalogCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.catalog = nil
}

// Warm reloads the catalog regardless of its age.
func (c *CatalogCache) Warm(ctx context.Context) error {
	c.Invalidate()
	_, err := c.Get(ctx)
	return err
}
