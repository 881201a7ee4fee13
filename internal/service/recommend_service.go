package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"github.com/patrickmn/go-cache"
	"github.com/user/gunvortv/internal/config"
	"github.com/user/gunvortv/internal/logging"
	"github.com/user/gunvortv/internal/model"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultRecommendations = 5
	MaxRecommendations     = 20

	suggestionTTL      = time.Hour
	promptCatalogLimit = 200
	promptDescRunes    = 160
)

// RecommendService wishlist-based recommendations and free-text discovery
type RecommendService struct {
	catalog  *CatalogService
	enabled  bool
	generate generateFunc
	store    *cache.Cache
	sf       singleflight.Group
}

// NewRecommendService a nil store gets a private one
func NewRecommendService(cfg config.GeminiConfig, catalog *CatalogService, store *cache.Cache) *RecommendService {
	if store == nil {
		store = NewAIStore()
	}
	return &RecommendService{
		catalog:  catalog,
		enabled:  cfg.APIKey != "",
		generate: newGenerator(cfg),
		store:    store,
	}
}

func (s *RecommendService) Enabled() bool {
	return s.enabled
}

// pick one model answer entry; title is accepted when the id is missing
type pick struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Reason string `json:"reason"`
}

// Recommend up to limit catalog items for a user with the given wishlist.
// Wishlisted items and ids the catalog does not know are dropped.
func (s *RecommendService) Recommend(ctx context.Context, wishlist []string, limit int) ([]model.Suggestion, error) {
	if !s.Enabled() {
		return nil, ErrAIDisabled
	}
	limit = clampLimit(limit)
	snap, err := s.catalog.Cache().Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	owned := make(map[string]bool, len(wishlist))
	for _, id := range wishlist {
		owned[id] = true
	}
	ids := slices.Sorted(maps.Keys(owned))
	key := "rec:" + strconv.FormatUint(snap.Version, 10) + ":" + strconv.Itoa(limit) + ":" + digest(strings.Join(ids, ","))

	return s.suggest(ctx, key, func() string {
		return recommendPrompt(snap, owned, limit)
	}, snap, owned, limit)
}

// Discover catalog items matching a free-text request
func (s *RecommendService) Discover(ctx context.Context, prompt string, limit int) ([]model.Suggestion, error) {
	if !s.Enabled() {
		return nil, ErrAIDisabled
	}
	limit = clampLimit(limit)
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return []model.Suggestion{}, nil
	}
	snap, err := s.catalog.Cache().Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	key := "discover:" + strconv.FormatUint(snap.Version, 10) + ":" + strconv.Itoa(limit) + ":" + digest(strings.ToLower(prompt))
	return s.suggest(ctx, key, func() string {
		return discoverPrompt(snap, prompt, limit)
	}, snap, nil, limit)
}

func (s *RecommendService) suggest(ctx context.Context, key string, prompt func() string, snap *Catalog, skip map[string]bool, limit int) ([]model.Suggestion, error) {
	if v, ok := s.store.Get(key); ok {
		return v.([]model.Suggestion), nil
	}

	ch := s.sf.DoChan(key, func() (interface{}, error) {
		gctx, cancel := detached(ctx)
		defer cancel()
		text, err := s.generate(gctx, prompt(), true)
		if err != nil {
			return nil, err
		}
		picks, err := parsePicks(text)
		if err != nil {
			return nil, err
		}
		out := resolvePicks(snap, picks, skip, limit)
		s.store.Set(key, out, suggestionTTL)
		return out, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			logging.Warn().Err(res.Err).Str("key", key).Msg("[RecommendService] generation failed")
			return nil, res.Err
		}
		return res.Val.([]model.Suggestion), nil
	}
}

// parsePicks accepts a JSON array of objects or of plain titles,
// optionally wrapped in a markdown code fence
func parsePicks(text string) ([]pick, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}

	var picks []pick
	if err := json.Unmarshal([]byte(text), &picks); err == nil {
		return picks, nil
	}
	var titles []string
	if err := json.Unmarshal([]byte(text), &titles); err == nil {
		picks = make([]pick, 0, len(titles))
		for _, t := range titles {
			picks = append(picks, pick{Title: t})
		}
		return picks, nil
	}
	// {"suggestions": [...]} shape
	var wrapped struct {
		Suggestions json.RawMessage `json:"suggestions"`
	}
	if err := json.Unmarshal([]byte(text), &wrapped); err == nil && len(wrapped.Suggestions) > 0 {
		return parsePicks(string(wrapped.Suggestions))
	}
	return nil, fmt.Errorf("unexpected model answer: %.80q", text)
}

func resolvePicks(snap *Catalog, picks []pick, skip map[string]bool, limit int) []model.Suggestion {
	byTitle := make(map[string]string, len(snap.Items))
	for _, item := range snap.Items {
		t := strings.ToLower(strings.TrimSpace(item.Title))
		if _, dup := byTitle[t]; !dup {
			byTitle[t] = item.ID
		}
	}

	out := []model.Suggestion{}
	seen := map[string]bool{}
	for _, p := range picks {
		if len(out) == limit {
			break
		}
		id := strings.TrimSpace(p.ID)
		if snap.ContentByID(id) == nil {
			id = byTitle[strings.ToLower(strings.TrimSpace(p.Title))]
		}
		item := snap.ContentByID(id)
		if item == nil || skip[id] || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, model.Suggestion{Content: *item, Reason: strings.TrimSpace(p.Reason)})
	}
	return out
}

func recommendPrompt(snap *Catalog, owned map[string]bool, limit int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a recommendation expert for a Somali streaming catalog. "+
		"Recommend up to %d items the user has not saved yet. Prefer genres and creators similar "+
		"to the saved items. Use only ids from the catalog below. Answer with a JSON array of "+
		`objects {"id": string, "reason": string}; reasons are one short sentence.`+"\n\n", limit)

	b.WriteString("Saved items:\n")
	saved := 0
	for _, item := range snap.Items {
		if owned[item.ID] {
			writePromptItem(&b, &item)
			saved++
		}
	}
	if saved == 0 {
		b.WriteString("(none, recommend popular and well rated items)\n")
	}

	b.WriteString("\nCatalog:\n")
	writePromptCatalog(&b, snap, owned)
	return b.String()
}

func discoverPrompt(snap *Catalog, request string, limit int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You help viewers find something to watch in a Somali streaming catalog. "+
		"Pick up to %d items from the catalog below that fit the request. Use only ids from the "+
		`catalog. Answer with a JSON array of objects {"id": string, "reason": string}.`+"\n\n", limit)
	fmt.Fprintf(&b, "Request: %s\n\nCatalog:\n", request)
	writePromptCatalog(&b, snap, nil)
	return b.String()
}

func writePromptCatalog(b *strings.Builder, snap *Catalog, skip map[string]bool) {
	n := 0
	for i := range snap.Items {
		if n == promptCatalogLimit {
			break
		}
		if skip[snap.Items[i].ID] {
			continue
		}
		writePromptItem(b, &snap.Items[i])
		n++
	}
}

func writePromptItem(b *strings.Builder, item *model.ContentItem) {
	fmt.Fprintf(b, "- id: %s | title: %s | type: %s | genre: %s | %s\n",
		item.ID, item.Title, item.Type, strings.Join(item.Genre, ", "), truncateRunes(item.Description, promptDescRunes))
}

func truncateRunes(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultRecommendations
	}
	return min(limit, MaxRecommendations)
}

func digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:8])
}
