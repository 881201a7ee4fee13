package service

import (
	"sort"
	"strings"
	"time"

	"github.com/user/gunvortv/internal/model"
)

// CollectionFilter static descriptor behind a slug-routed collection.
// Zero-valued fields are not applied.
type CollectionFilter struct {
	Title       string
	Language    string
	Type        model.ContentType
	MaxDuration int      // seconds, exclusive
	Genres      []string // item must carry one of these
	GenresIfAny []string // checked only when the item has genres
	Tags        []string // lowercase; title/description substrings also match
}

// SlugCollection resolved slug collection
type SlugCollection struct {
	Slug  string              `json:"slug"`
	Title string              `json:"title"`
	Items []model.ContentItem `json:"items"`
}

var collectionFilters = map[string]CollectionFilter{
	"somali_films":       {Title: "Somali Films", Language: "Somali", Type: model.TypeMovie, Tags: []string{"somali movies"}},
	"somali_series":      {Title: "Somali Musalsal", Language: "Somali", Type: model.TypeSeries, Tags: []string{"somali musalsal"}},
	"somali_short_films": {Title: "Somali Short Films", Language: "Somali", Type: model.TypeMovie, MaxDuration: 2400, GenresIfAny: []string{"Somali Short Film"}},
	"hindi_films":        {Title: "Hindi Films", Language: "Hindi", Type: model.TypeMovie},
	"hindi_series":       {Title: "Hindi Musalsal", Language: "Hindi", Type: model.TypeSeries},
	"hindi_short_films":  {Title: "Hindi Short Films", Language: "Hindi", Type: model.TypeMovie, MaxDuration: 2400},
	"recap_kdrama":       {Title: "Recap Kdrama", Type: model.TypeSeries, Tags: []string{"kdrama", "recap"}},
	"hollywood":          {Title: "Hollywood Movies & Series", Language: "English", Tags: []string{"hollywood"}},
	"cartoon":            {Title: "Cartoons", Type: model.TypeSeries, Tags: []string{"cartoon", "animation"}},
	"recaps":             {Title: "Recaps", Type: model.TypeSeries, Tags: []string{"recap"}},
	"documentary":        {Title: "Documentaries", Type: model.TypeMovie, Genres: []string{"Documentary"}},
	"others":             {Title: "Other Collections", Tags: []string{"other", "miscellaneous"}},
}

var slugAliases = map[string]string{
	"somali_short_film": "somali_short_films",
}

// normalizeSlug treats "-" and "_" alike, case-insensitive
func normalizeSlug(slug string) string {
	s := strings.ToLower(strings.TrimSpace(slug))
	s = strings.ReplaceAll(s, "-", "_")
	if alias, ok := slugAliases[s]; ok {
		return alias
	}
	return s
}

// LookupCollectionFilter returns the descriptor registered for slug
func LookupCollectionFilter(slug string) (CollectionFilter, bool) {
	f, ok := collectionFilters[normalizeSlug(slug)]
	return f, ok
}

// CollectionSlugs registered slugs, sorted
func CollectionSlugs() []string {
	slugs := make([]string, 0, len(collectionFilters))
	for slug := range collectionFilters {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	return slugs
}

// CollectionBySlug applies the slug's descriptor over the catalog, nil for unknown slugs
func (c *Catalog) CollectionBySlug(slug string) *SlugCollection {
	key := normalizeSlug(slug)
	f, ok := collectionFilters[key]
	if !ok {
		return nil
	}

	items := []model.ContentItem{}
	for _, item := range c.Items {
		if f.Match(item) {
			items = append(items, item)
		}
	}
	sortByReleaseDesc(items)
	return &SlugCollection{Slug: key, Title: f.Title, Items: items}
}

// Match ANDs every present predicate
func (f CollectionFilter) Match(item model.ContentItem) bool {
	if f.Language != "" && !strings.EqualFold(item.Language, f.Language) {
		return false
	}
	if f.Type != "" && item.Type != f.Type {
		return false
	}
	if f.MaxDuration > 0 && (item.DurationInSeconds == nil || *item.DurationInSeconds >= f.MaxDuration) {
		return false
	}
	if len(f.Genres) > 0 && !sharesGenre(item.Genre, f.Genres) {
		return false
	}
	if len(f.GenresIfAny) > 0 && len(item.Genre) > 0 && !sharesGenre(item.Genre, f.GenresIfAny) {
		return false
	}
	if len(f.Tags) > 0 && !f.matchTags(item) {
		return false
	}
	return true
}

func (f CollectionFilter) matchTags(item model.ContentItem) bool {
	for _, t := range item.Tags {
		for _, want := range f.Tags {
			if strings.ToLower(t) == want {
				return true
			}
		}
	}
	title := strings.ToLower(item.Title)
	desc := strings.ToLower(item.Description)
	for _, want := range f.Tags {
		if strings.Contains(title, want) || strings.Contains(desc, want) {
			return true
		}
	}
	return false
}

// sortByReleaseDesc newest first among dated items; undated items keep their slots
func sortByReleaseDesc(items []model.ContentItem) {
	type dated struct {
		item model.ContentItem
		at   time.Time
	}
	slots := make([]int, 0, len(items))
	sorted := make([]dated, 0, len(items))
	for i, item := range items {
		if t, ok := parseReleaseDate(item.ReleaseDate); ok {
			slots = append(slots, i)
			sorted = append(sorted, dated{item, t})
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].at.After(sorted[j].at)
	})
	for k, i := range slots {
		items[i] = sorted[k].item
	}
}

var releaseDateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01", "2006"}

func parseReleaseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range releaseDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
