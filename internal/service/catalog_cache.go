package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/user/gunvortv/internal/logging"
	"github.com/user/gunvortv/internal/metrics"
	"github.com/user/gunvortv/internal/model"
	"golang.org/x/sync/singleflight"
)

const (
	creatorsKey = "catalog:creators"
	catalogKey  = "catalog:snapshot"
)

// CacheState lifecycle of the catalog cache
type CacheState int

const (
	CacheEmpty CacheState = iota
	CachePopulated
)

func (s CacheState) String() string {
	if s == CachePopulated {
		return "populated"
	}
	return "empty"
}

// CatalogCache owns the normalized snapshots for one revalidation window.
// Safe for concurrent use; a failed load leaves it untouched.
type CatalogCache struct {
	source  CatalogSource
	store   *cache.Cache
	ttl     time.Duration
	sf      singleflight.Group
	version atomic.Uint64
}

// NewCatalogCache creates an empty cache. A ttl of 0 keeps snapshots until Refresh.
func NewCatalogCache(source CatalogSource, ttl time.Duration) *CatalogCache {
	expiry := ttl
	if ttl <= 0 {
		expiry = cache.NoExpiration
	}
	return &CatalogCache{
		source: source,
		store:  cache.New(expiry, 10*time.Minute),
		ttl:    expiry,
	}
}

// State reports whether a content snapshot is currently held
func (c *CatalogCache) State() CacheState {
	if _, ok := c.store.Get(catalogKey); ok {
		return CachePopulated
	}
	return CacheEmpty
}

// LoadCreators returns the cached creators, fetching them on a miss
func (c *CatalogCache) LoadCreators(ctx context.Context) ([]model.Creator, error) {
	if v, ok := c.store.Get(creatorsKey); ok {
		return v.([]model.Creator), nil
	}
	v, err, _ := c.sf.Do(creatorsKey, func() (interface{}, error) {
		if v, ok := c.store.Get(creatorsKey); ok {
			return v, nil
		}
		// shared by every waiting caller, so one disconnect must not cancel it
		creators, err := c.fetchCreators(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.store.Set(creatorsKey, creators, c.ttl)
		return creators, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.Creator), nil
}

// LoadContentItems returns the normalized content of the current snapshot
func (c *CatalogCache) LoadContentItems(ctx context.Context) ([]model.ContentItem, error) {
	snap, err := c.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Items, nil
}

// Snapshot returns the cached catalog, building it on a miss.
// Concurrent cold callers share one load.
func (c *CatalogCache) Snapshot(ctx context.Context) (*Catalog, error) {
	if v, ok := c.store.Get(catalogKey); ok {
		return v.(*Catalog), nil
	}
	v, err, _ := c.sf.Do(catalogKey, func() (interface{}, error) {
		if v, ok := c.store.Get(catalogKey); ok {
			return v, nil
		}
		loadCtx := context.WithoutCancel(ctx)
		creators, err := c.LoadCreators(loadCtx)
		if err != nil {
			return nil, err
		}
		snap, err := c.build(loadCtx, creators)
		if err != nil {
			return nil, err
		}
		c.store.Set(catalogKey, snap, c.ttl)
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Catalog), nil
}

// Refresh reloads both documents and swaps the snapshot in.
// On failure the previous snapshot stays in place.
func (c *CatalogCache) Refresh(ctx context.Context) (*Catalog, error) {
	v, err, _ := c.sf.Do("catalog:refresh", func() (interface{}, error) {
		creators, err := c.fetchCreators(ctx)
		if err != nil {
			return nil, err
		}
		snap, err := c.build(ctx, creators)
		if err != nil {
			return nil, err
		}
		c.store.Set(creatorsKey, creators, c.ttl)
		c.store.Set(catalogKey, snap, c.ttl)
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Catalog), nil
}

// Invalidate drops the held snapshots
func (c *CatalogCache) Invalidate() {
	c.store.Delete(catalogKey)
	c.store.Delete(creatorsKey)
}

func (c *CatalogCache) fetchCreators(ctx context.Context) ([]model.Creator, error) {
	data, err := c.source.Fetch(ctx, ResourceCreators)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, &FetchError{Resource: ResourceCreators, Err: errors.New("source not configured")}
	}
	creators, err := NormalizeCreators(data)
	if err != nil {
		return nil, &FetchError{Resource: ResourceCreators, Err: err}
	}
	metrics.CatalogItems.WithLabelValues(string(ResourceCreators)).Set(float64(len(creators)))
	return creators, nil
}

func (c *CatalogCache) build(ctx context.Context, creators []model.Creator) (*Catalog, error) {
	data, err := c.source.Fetch(ctx, ResourceContent)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, &FetchError{Resource: ResourceContent, Err: errors.New("source not configured")}
	}
	items, collections, err := NormalizeContent(data, creators)
	if err != nil {
		return nil, &FetchError{Resource: ResourceContent, Err: err}
	}

	// a separate curated document overrides collections embedded in the content document
	curatedDoc, err := c.source.Fetch(ctx, ResourceCollections)
	if err != nil {
		return nil, err
	}
	if curatedDoc != nil {
		curated, err := NormalizeCollections(curatedDoc)
		if err != nil {
			return nil, &FetchError{Resource: ResourceCollections, Err: err}
		}
		collections = curated
	}

	snap := NewCatalog(items, creators, collections)
	snap.Version = c.version.Add(1)

	metrics.CatalogItems.WithLabelValues(string(ResourceContent)).Set(float64(len(items)))
	metrics.CatalogItems.WithLabelValues(string(ResourceCollections)).Set(float64(len(snap.Collections())))
	logging.Info().
		Int("items", len(items)).
		Int("creators", len(creators)).
		Int("collections", len(snap.Collections())).
		Uint64("version", snap.Version).
		Msg(fmt.Sprintf("[CatalogCache] snapshot loaded, revalidate in %s", ttlString(c.ttl)))
	return snap, nil
}

func ttlString(ttl time.Duration) string {
	if ttl == cache.NoExpiration {
		return "never"
	}
	return ttl.String()
}
