package service

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/user/gunvortv/internal/model"
)

func testCatalog() *Catalog {
	items := []model.ContentItem{
		{ID: "m1", Title: "Desert Wind", Description: "A caravan crosses the sand.", Type: model.TypeMovie, Genre: []string{"Action"}, ImageURL: "https://img/m1.jpg", CollectionIDs: []string{"action", "featured"}, Creators: []model.CreatorRef{{ID: "c1", Name: "Jane"}}},
		{ID: "m2", Title: "Harbor Lights", Description: "Night in Mogadishu port.", Type: model.TypeMovie, Genre: []string{"Action"}, CollectionIDs: []string{"action"}},
		{ID: "s1", Title: "Family Ties", Description: "A family drama.", Type: model.TypeSeries, Genre: []string{"Drama"}, Tags: []string{"Musalsal"}, ImageURL: "https://img/s1.jpg"},
	}
	creators := []model.Creator{
		{ID: "c1", Name: "Jane", ContentIDs: []string{"m1"}},
		{ID: "c2", Name: "Rob", ContentIDs: []string{"s1"}},
	}
	return NewCatalog(items, creators, nil)
}

func ids(items []model.ContentItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestContentByID(t *testing.T) {
	c := testCatalog()
	a, b := c.ContentByID("m1"), c.ContentByID("m1")
	if a == nil || !reflect.DeepEqual(a, b) {
		t.Fatalf("ContentByID not idempotent: %+v vs %+v", a, b)
	}
	if c.ContentByID("missing") != nil {
		t.Error("unknown id should return nil")
	}
	if c.CreatorByID("c2") == nil || c.CreatorByID("nobody") != nil {
		t.Error("CreatorByID lookup wrong")
	}
}

func TestContentByType(t *testing.T) {
	c := testCatalog()
	if got := ids(c.ContentByType(model.TypeMovie)); !reflect.DeepEqual(got, []string{"m1", "m2"}) {
		t.Errorf("movies = %v", got)
	}
	if got := ids(c.ContentByType(model.TypeSeries)); !reflect.DeepEqual(got, []string{"s1"}) {
		t.Errorf("series = %v", got)
	}
}

func TestRelatedScenario(t *testing.T) {
	c := testCatalog()
	got := ids(c.Related("m1", model.TypeMovie, []string{"Action"}))
	if !reflect.DeepEqual(got, []string{"m2"}) {
		t.Fatalf("Related = %v, want [m2]", got)
	}
}

func TestRelatedContract(t *testing.T) {
	items := make([]model.ContentItem, 0, 30)
	for i := 0; i < 25; i++ {
		items = append(items, model.ContentItem{ID: fmt.Sprintf("m%d", i), Title: "M", Type: model.TypeMovie, Genre: []string{"Action"}})
	}
	for i := 0; i < 5; i++ {
		items = append(items, model.ContentItem{ID: fmt.Sprintf("s%d", i), Title: "S", Type: model.TypeSeries})
	}
	c := NewCatalog(items, nil, nil)

	for run := 0; run < 20; run++ {
		got := c.Related("m0", model.TypeMovie, []string{"Action"})
		if len(got) > MaxRelated {
			t.Fatalf("len = %d, exceeds cap", len(got))
		}
		for _, it := range got {
			if it.ID == "m0" {
				t.Fatal("source item included")
			}
			if it.Type != model.TypeMovie {
				t.Fatalf("type mismatch: %s is %s", it.ID, it.Type)
			}
		}
	}

	// no type and no genres matches everything but the source
	all := c.Related("m0", "", nil)
	if len(all) != MaxRelated {
		t.Errorf("unfiltered related len = %d", len(all))
	}

	if got := c.Related("unknown", model.TypeMovie, nil); len(got) != 0 {
		t.Errorf("unknown source returned %v", ids(got))
	}
}

func TestRelatedKeepsCandidatesWithoutGenres(t *testing.T) {
	c := NewCatalog([]model.ContentItem{
		{ID: "a", Title: "A", Type: model.TypeMovie, Genre: []string{"Action"}},
		{ID: "b", Title: "B", Type: model.TypeMovie},
		{ID: "c", Title: "C", Type: model.TypeMovie, Genre: []string{"Romance"}},
	}, nil, nil)
	got := map[string]bool{}
	for _, it := range c.Related("a", model.TypeMovie, []string{"action"}) {
		got[it.ID] = true
	}
	if !got["b"] || got["c"] || len(got) != 1 {
		t.Errorf("Related = %v, want only b", got)
	}
}

func TestSearch(t *testing.T) {
	c := testCatalog()
	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{}},
		{"   ", []string{}},
		{"harbor", []string{"m2"}},
		{"MOGADISHU", []string{"m2"}},
		{"drama", []string{"s1"}},
		{"action", []string{"m1", "m2"}},
		{"musalsal", []string{"s1"}},
		{"zzz", []string{}},
	}
	for _, tt := range tests {
		if got := ids(c.Search(tt.query)); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Search(%q) = %v, want %v", tt.query, got, tt.want)
		}
	}
}

func TestRandom(t *testing.T) {
	c := testCatalog()
	for i := 0; i < 10; i++ {
		if it := c.Random(); it == nil || c.ContentByID(it.ID) == nil {
			t.Fatalf("Random returned %v", it)
		}
	}
	if NewCatalog(nil, nil, nil).Random() != nil {
		t.Error("Random on empty catalog should be nil")
	}
}

func TestCreatorContentBothDirections(t *testing.T) {
	c := testCatalog()
	if got := ids(c.CreatorContent("c1")); !reflect.DeepEqual(got, []string{"m1"}) {
		t.Errorf("c1 content = %v", got)
	}
	// s1 does not list c2, only the creator's contentIds does
	if got := ids(c.CreatorContent("c2")); !reflect.DeepEqual(got, []string{"s1"}) {
		t.Errorf("c2 content = %v", got)
	}
}

func TestFeatured(t *testing.T) {
	c := testCatalog()
	got := c.Featured(5)
	if len(got) != 2 || got[0].ID != "m1" || got[1].ID != "s1" {
		t.Fatalf("Featured = %+v", got)
	}
	if got[0].Link != "/movie/m1" || got[1].Link != "/series/s1" {
		t.Errorf("links = %q, %q", got[0].Link, got[1].Link)
	}

	bare := NewCatalog([]model.ContentItem{{ID: "x", Title: "X", Type: model.TypeMovie}}, nil, nil)
	fb := bare.Featured(3)
	if len(fb) != 1 || fb[0].ImageURL != featuredPlaceholder {
		t.Errorf("fallback = %+v", fb)
	}
}

func TestDerivedCollections(t *testing.T) {
	c := testCatalog()
	cols := c.Collections()
	if len(cols) != 2 {
		t.Fatalf("collections = %+v", cols)
	}
	if cols[0].ID != "action" || cols[1].ID != "featured" {
		t.Errorf("not sorted by id: %s, %s", cols[0].ID, cols[1].ID)
	}
	if cols[0].Name != "Action" || !reflect.DeepEqual(cols[0].ContentIDs, []string{"m1", "m2"}) {
		t.Errorf("action = %+v", cols[0])
	}
	if cols[0].ImageURL != "https://img/m1.jpg" {
		t.Errorf("image = %q", cols[0].ImageURL)
	}

	// same snapshot input, same output
	again := testCatalog().Collections()
	if !reflect.DeepEqual(cols, again) {
		t.Error("derivation not deterministic")
	}

	col := c.CollectionByID("featured")
	if col == nil || !reflect.DeepEqual(ids(c.ItemsFor(col.ContentIDs)), []string{"m1"}) {
		t.Errorf("CollectionByID(featured) = %+v", col)
	}
	if c.CollectionByID("nope") != nil {
		t.Error("unknown collection should be nil")
	}
}

func TestCuratedCollectionsWin(t *testing.T) {
	curated := []model.Collection{{ID: "picks", Name: "Picks", ContentIDs: []string{"s1", "ghost"}}}
	c := NewCatalog(testCatalog().Items, nil, curated)
	cols := c.Collections()
	if len(cols) != 1 || cols[0].ID != "picks" {
		t.Fatalf("collections = %+v", cols)
	}
	if got := ids(c.ItemsFor(cols[0].ContentIDs)); !reflect.DeepEqual(got, []string{"s1"}) {
		t.Errorf("ItemsFor = %v", got)
	}
}
