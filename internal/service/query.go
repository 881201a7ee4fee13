package service

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"time"

	"github.com/user/gunvortv/internal/model"
)

const (
	// MaxRelated caps related content results
	MaxRelated = 10

	featuredPlaceholder   = "https://placehold.co/1200x500.png"
	collectionPlaceholder = "https://placehold.co/600x400.png"
)

// Catalog immutable normalized snapshot.
// Query methods never mutate it; a refresh builds a new one.
type Catalog struct {
	Items    []model.ContentItem
	Creators []model.Creator
	Version  uint64
	LoadedAt time.Time

	collections  []model.Collection
	itemIndex    map[string]int
	creatorIndex map[string]int
}

// NewCatalog indexes normalized records. Curated collections win over derived ones.
func NewCatalog(items []model.ContentItem, creators []model.Creator, curated []model.Collection) *Catalog {
	c := &Catalog{
		Items:        items,
		Creators:     creators,
		LoadedAt:     time.Now(),
		itemIndex:    make(map[string]int, len(items)),
		creatorIndex: make(map[string]int, len(creators)),
	}
	for i, item := range items {
		c.itemIndex[item.ID] = i
	}
	for i, creator := range creators {
		c.creatorIndex[creator.ID] = i
	}
	if len(curated) > 0 {
		c.collections = curated
	} else {
		c.collections = deriveCollections(items)
	}
	return c
}

// ContentByID returns nil when the id is unknown
func (c *Catalog) ContentByID(id string) *model.ContentItem {
	i, ok := c.itemIndex[id]
	if !ok {
		return nil
	}
	item := c.Items[i]
	return &item
}

// CreatorByID returns nil when the id is unknown
func (c *Catalog) CreatorByID(id string) *model.Creator {
	i, ok := c.creatorIndex[id]
	if !ok {
		return nil
	}
	creator := c.Creators[i]
	return &creator
}

// ContentByType items of one kind in catalog order
func (c *Catalog) ContentByType(t model.ContentType) []model.ContentItem {
	out := []model.ContentItem{}
	for _, item := range c.Items {
		if item.Type == t {
			out = append(out, item)
		}
	}
	return out
}

// Featured carousel entries: items with artwork and a description first,
// else the head of the catalog with placeholder artwork
func (c *Catalog) Featured(n int) []model.FeaturedItem {
	out := []model.FeaturedItem{}
	if n <= 0 {
		return out
	}
	for _, item := range c.Items {
		if len(out) == n {
			return out
		}
		if item.ImageURL != "" && item.Description != "" {
			out = append(out, featured(item))
		}
	}
	if len(out) > 0 {
		return out
	}
	for _, item := range c.Items {
		if len(out) == n {
			break
		}
		out = append(out, featured(item))
	}
	return out
}

func featured(item model.ContentItem) model.FeaturedItem {
	img := item.ImageURL
	if img == "" {
		img = featuredPlaceholder
	}
	return model.FeaturedItem{ID: item.ID, Title: item.Title, ImageURL: img, Link: item.Link()}
}

// CreatorContent items linked to the creator from either side
func (c *Catalog) CreatorContent(creatorID string) []model.ContentItem {
	linked := map[string]bool{}
	if creator := c.CreatorByID(creatorID); creator != nil {
		for _, id := range creator.ContentIDs {
			linked[id] = true
		}
	}
	out := []model.ContentItem{}
	for _, item := range c.Items {
		if linked[item.ID] || item.HasCreator(creatorID) {
			out = append(out, item)
		}
	}
	return out
}

// Collections curated or derived, deterministic for a snapshot
func (c *Catalog) Collections() []model.Collection {
	return c.collections
}

// CollectionByID returns nil when the id is unknown
func (c *Catalog) CollectionByID(id string) *model.Collection {
	for i := range c.collections {
		if c.collections[i].ID == id {
			col := c.collections[i]
			return &col
		}
	}
	return nil
}

// ItemsFor resolves ids in order, skipping unknown ones
func (c *Catalog) ItemsFor(ids []string) []model.ContentItem {
	out := make([]model.ContentItem, 0, len(ids))
	for _, id := range ids {
		if i, ok := c.itemIndex[id]; ok {
			out = append(out, c.Items[i])
		}
	}
	return out
}

// Search case-insensitive substring match on title, description, genres and tags
func (c *Catalog) Search(query string) []model.ContentItem {
	out := []model.ContentItem{}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return out
	}
	for _, item := range c.Items {
		if matchesQuery(item, q) {
			out = append(out, item)
		}
	}
	return out
}

func matchesQuery(item model.ContentItem, q string) bool {
	if strings.Contains(strings.ToLower(item.Title), q) || strings.Contains(strings.ToLower(item.Description), q) {
		return true
	}
	for _, g := range item.Genre {
		if strings.Contains(strings.ToLower(g), q) {
			return true
		}
	}
	for _, t := range item.Tags {
		if strings.Contains(strings.ToLower(t), q) {
			return true
		}
	}
	return false
}

// Related candidates for contentID in random order, at most MaxRelated.
// An empty type matches any kind; genres filter only candidates that have genres.
func (c *Catalog) Related(contentID string, t model.ContentType, genres []string) []model.ContentItem {
	out := []model.ContentItem{}
	if _, ok := c.itemIndex[contentID]; !ok {
		return out
	}
	for _, item := range c.Items {
		if item.ID == contentID {
			continue
		}
		if t != "" && item.Type != t {
			continue
		}
		if len(genres) > 0 && len(item.Genre) > 0 && !sharesGenre(item.Genre, genres) {
			continue
		}
		out = append(out, item)
	}
	rand.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	if len(out) > MaxRelated {
		out = out[:MaxRelated]
	}
	return out
}

func sharesGenre(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if strings.EqualFold(x, y) {
				return true
			}
		}
	}
	return false
}

// Random uniform pick, nil on an empty catalog
func (c *Catalog) Random() *model.ContentItem {
	if len(c.Items) == 0 {
		return nil
	}
	item := c.Items[rand.IntN(len(c.Items))]
	return &item
}

// deriveCollections groups items by collectionIds, sorted by collection id
func deriveCollections(items []model.ContentItem) []model.Collection {
	groups := map[string]*model.Collection{}
	for _, item := range items {
		for _, cid := range item.CollectionIDs {
			col, ok := groups[cid]
			if !ok {
				col = &model.Collection{ID: cid, Name: titleFromID(cid)}
				groups[cid] = col
			}
			if col.ImageURL == "" && item.ImageURL != "" {
				col.ImageURL = item.ImageURL
			}
			if n := len(col.ContentIDs); n > 0 && col.ContentIDs[n-1] == item.ID {
				continue
			}
			col.ContentIDs = append(col.ContentIDs, item.ID)
		}
	}

	out := make([]model.Collection, 0, len(groups))
	for _, col := range groups {
		if col.ImageURL == "" {
			col.ImageURL = collectionPlaceholder
		}
		col.Description = fmt.Sprintf("%s on Gunvor.TV", col.Name)
		out = append(out, *col)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}
