package service

import (
	"context"
	"strings"
	"time"

	"github.com/user/gunvortv/internal/metrics"
	"github.com/user/gunvortv/internal/model"
	"github.com/user/gunvortv/internal/utils"
)

// CatalogService query layer over the cached catalog snapshot
type CatalogService struct {
	cache       *CatalogCache
	searchCache *utils.QueryCache[[]model.ContentItem]
}

// NewCatalogService creates the query layer
func NewCatalogService(cache *CatalogCache) *CatalogService {
	return &CatalogService{
		cache:       cache,
		searchCache: utils.NewQueryCache[[]model.ContentItem](1000, time.Hour),
	}
}

// Cache underlying snapshot cache
func (s *CatalogService) Cache() *CatalogCache {
	return s.cache
}

// ContentByID nil when absent
func (s *CatalogService) ContentByID(ctx context.Context, id string) (*model.ContentItem, error) {
	snap, err := s.cache.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.ContentByID(id), nil
}

// CreatorByID nil when absent
func (s *CatalogService) CreatorByID(ctx context.Context, id string) (*model.Creator, error) {
	snap, err := s.cache.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.CreatorByID(id), nil
}

func (s *CatalogService) ContentByType(ctx context.Context, t model.ContentType) ([]model.ContentItem, error) {
	snap, err := s.cache.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.ContentByType(t), nil
}

func (s *CatalogService) Featured(ctx context.Context, n int) ([]model.FeaturedItem, error) {
	snap, err := s.cache.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Featured(n), nil
}

func (s *CatalogService) CreatorContent(ctx context.Context, creatorID string) ([]model.ContentItem, error) {
	snap, err := s.cache.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.CreatorContent(creatorID), nil
}

func (s *CatalogService) Collections(ctx context.Context) ([]model.Collection, error) {
	snap, err := s.cache.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Collections(), nil
}

// CollectionByID stored or derived collection with its items, nil when absent
func (s *CatalogService) CollectionByID(ctx context.Context, id string) (*model.Collection, []model.ContentItem, error) {
	snap, err := s.cache.Snapshot(ctx)
	if err != nil {
		return nil, nil, err
	}
	col := snap.CollectionByID(id)
	if col == nil {
		return nil, nil, nil
	}
	return col, snap.ItemsFor(col.ContentIDs), nil
}

// CollectionBySlug nil for unknown slugs
func (s *CatalogService) CollectionBySlug(ctx context.Context, slug string) (*SlugCollection, error) {
	if _, ok := LookupCollectionFilter(slug); !ok {
		return nil, nil
	}
	snap, err := s.cache.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.CollectionBySlug(slug), nil
}

// RelatedContent random order, capped at MaxRelated
func (s *CatalogService) RelatedContent(ctx context.Context, contentID string, t model.ContentType, genres []string) ([]model.ContentItem, error) {
	snap, err := s.cache.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Related(contentID, t, genres), nil
}

// SearchContent results are cached per query and snapshot version
func (s *CatalogService) SearchContent(ctx context.Context, query string) ([]model.ContentItem, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return []model.ContentItem{}, nil
	}
	snap, err := s.cache.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	if items, ok := s.searchCache.Get(snap.Version, q); ok {
		metrics.SearchCacheHits.Inc()
		return items, nil
	}
	metrics.SearchCacheMisses.Inc()

	items := snap.Search(q)
	s.searchCache.Set(snap.Version, q, items)
	return items, nil
}

// RandomContentItem nil on an empty catalog
func (s *CatalogService) RandomContentItem(ctx context.Context) (*model.ContentItem, error) {
	snap, err := s.cache.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Random(), nil
}

// Refresh reloads the catalog and drops search results of older snapshots
func (s *CatalogService) Refresh(ctx context.Context) error {
	if _, err := s.cache.Refresh(ctx); err != nil {
		return err
	}
	s.searchCache.Reset()
	return nil
}
