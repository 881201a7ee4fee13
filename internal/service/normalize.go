package service

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"github.com/user/gunvortv/internal/logging"
	"github.com/user/gunvortv/internal/metrics"
	"github.com/user/gunvortv/internal/model"
)

var (
	errNotObject   = errors.New("not an object")
	errMissingID   = errors.New("missing id")
	errMissingName = errors.New("missing title")
	errUnknownType = errors.New("unknown type")
	errDuplicateID = errors.New("duplicate id")
)

// typeAliases raw type values accepted for each canonical kind
var typeAliases = map[string]model.ContentType{
	"movie":      model.TypeMovie,
	"movies":     model.TypeMovie,
	"film":       model.TypeMovie,
	"short_film": model.TypeMovie,
	"short-film": model.TypeMovie,
	"series":     model.TypeSeries,
	"tv":         model.TypeSeries,
	"show":       model.TypeSeries,
}

// FormatDuration renders seconds as "1h 1min", "2min" or "45s".
// Returns "" for nil or negative input.
func FormatDuration(seconds *int) string {
	if seconds == nil || *seconds < 0 {
		return ""
	}
	s := *seconds
	if s == 0 {
		return "0min"
	}
	h := s / 3600
	m := (s % 3600) / 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dmin", h, m)
	case m > 0:
		return fmt.Sprintf("%dmin", m)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

// NormalizeCreators maps a raw creators document.
// Accepts a bare array or an object holding it under "creators" or "items".
func NormalizeCreators(data []byte) ([]model.Creator, error) {
	records, _, err := decodeDocument(data, "creators", "items")
	if err != nil {
		return nil, err
	}

	creators := make([]model.Creator, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for i, rec := range records {
		c, err := normalizeCreator(rec)
		if err == nil {
			if _, dup := seen[c.ID]; dup {
				err = errDuplicateID
			}
		}
		if err != nil {
			dropRecord(ResourceCreators, i, err)
			continue
		}
		seen[c.ID] = struct{}{}
		creators = append(creators, c)
	}
	return creators, nil
}

// NormalizeContent maps a raw content document and joins it to creators.
// Collections embedded in the document are returned alongside the items.
func NormalizeContent(data []byte, creators []model.Creator) ([]model.ContentItem, []model.Collection, error) {
	records, wrapper, err := decodeDocument(data, "items", "content", "contentItems")
	if err != nil {
		return nil, nil, err
	}

	ix := newCreatorIndex(creators)
	items := make([]model.ContentItem, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for i, rec := range records {
		item, err := normalizeContentItem(rec, ix)
		if err == nil {
			if _, dup := seen[item.ID]; dup {
				err = errDuplicateID
			}
		}
		if err != nil {
			dropRecord(ResourceContent, i, err)
			continue
		}
		seen[item.ID] = struct{}{}
		items = append(items, item)
	}

	var collections []model.Collection
	if wrapper != nil {
		collections = normalizeCollectionList(wrapper["collections"])
	}
	return items, collections, nil
}

// NormalizeCollections maps a standalone curated collections document
func NormalizeCollections(data []byte) ([]model.Collection, error) {
	records, _, err := decodeDocument(data, "collections", "items")
	if err != nil {
		return nil, err
	}
	list := make([]interface{}, len(records))
	for i, rec := range records {
		list[i] = rec
	}
	return normalizeCollectionList(list), nil
}

// decodeDocument returns the record array and, for wrapped documents, the wrapper object
func decodeDocument(data []byte, keys ...string) ([]map[string]interface{}, map[string]interface{}, error) {
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("decode document: %w", err)
	}

	var list []interface{}
	var wrapper map[string]interface{}
	switch v := doc.(type) {
	case []interface{}:
		list = v
	case map[string]interface{}:
		wrapper = v
		for _, key := range keys {
			if arr, ok := v[key].([]interface{}); ok {
				list = arr
				break
			}
		}
	case nil:
	default:
		return nil, nil, fmt.Errorf("decode document: unexpected %T at top level", doc)
	}

	records := make([]map[string]interface{}, len(list))
	for i, el := range list {
		// a nil entry is dropped by the record normalizers
		rec, _ := el.(map[string]interface{})
		records[i] = rec
	}
	return records, wrapper, nil
}

func dropRecord(resource Resource, index int, err error) {
	logging.Debug().Str("resource", string(resource)).Int("index", index).Str("reason", err.Error()).Msg("[Normalize] record dropped")
	metrics.CatalogDroppedRecords.WithLabelValues(string(resource), err.Error()).Inc()
}

func normalizeCreator(rec map[string]interface{}) (model.Creator, error) {
	if rec == nil {
		return model.Creator{}, errNotObject
	}
	id := strings.TrimSpace(toString(rec["id"]))
	if id == "" {
		return model.Creator{}, errMissingID
	}
	name := strings.TrimSpace(toString(rec["name"]))
	if name == "" {
		return model.Creator{}, errors.New("missing name")
	}

	return model.Creator{
		ID:               id,
		Name:             name,
		AvatarURL:        firstString(rec, "avatarUrl", "avatar_url", "imageUrl"),
		Bio:              firstString(rec, "bio"),
		SocialMediaLinks: socialLinks(first(rec, "socialMediaLinks", "social_media_links")),
		ContentIDs:       stringList(first(rec, "contentIds", "content_ids")),
	}, nil
}

// socialLinks accepts {"twitter": url} or [{"platform": "twitter", "url": url}]
func socialLinks(v interface{}) map[string]string {
	links := map[string]string{}
	switch val := v.(type) {
	case map[string]interface{}:
		for platform, url := range val {
			if s := strings.TrimSpace(toString(url)); s != "" {
				links[platform] = s
			}
		}
	case []interface{}:
		for _, el := range val {
			m, ok := el.(map[string]interface{})
			if !ok {
				continue
			}
			platform := strings.TrimSpace(toString(m["platform"]))
			url := strings.TrimSpace(toString(m["url"]))
			if platform != "" && url != "" {
				links[platform] = url
			}
		}
	}
	if len(links) == 0 {
		return nil
	}
	return links
}

func normalizeContentItem(rec map[string]interface{}, ix *creatorIndex) (model.ContentItem, error) {
	if rec == nil {
		return model.ContentItem{}, errNotObject
	}
	id := strings.TrimSpace(toString(rec["id"]))
	if id == "" {
		return model.ContentItem{}, errMissingID
	}
	title := strings.TrimSpace(toString(rec["title"]))
	if title == "" {
		return model.ContentItem{}, errMissingName
	}

	rawSeasons, _ := rec["seasons"].([]interface{})
	contentType, ok := coerceType(rec["type"], len(rawSeasons) > 0)
	if !ok {
		return model.ContentItem{}, errUnknownType
	}

	item := model.ContentItem{
		ID:            id,
		Title:         title,
		Description:   toString(rec["description"]),
		Type:          contentType,
		ImageURL:      firstString(rec, "imageUrl", "image_url", "posterUrl"),
		VideoURL:      firstString(rec, "videoUrl", "video_url"),
		Genre:         stringList(first(rec, "genre", "genres")),
		Language:      firstString(rec, "language"),
		ReleaseDate:   firstString(rec, "releaseDate", "release_date"),
		Tags:          stringList(rec["tags"]),
		CollectionIDs: stringList(first(rec, "collectionIds", "collection_ids")),
	}

	if r, ok := toFloat(rec["rating"]); ok && r >= 0 && r <= 10 {
		item.Rating = &r
	}

	item.Duration, item.DurationInSeconds = normalizeDuration(rec)
	item.Creators = ix.resolve(id, rec)

	if contentType == model.TypeSeries {
		item.Seasons = normalizeSeasons(rawSeasons)
	}

	return item, nil
}

// coerceType maps raw type values to the canonical kind.
// A missing type is inferred from the presence of seasons.
func coerceType(v interface{}, hasSeasons bool) (model.ContentType, bool) {
	raw := strings.ToLower(strings.TrimSpace(toString(v)))
	if raw == "" {
		if hasSeasons {
			return model.TypeSeries, true
		}
		return model.TypeMovie, true
	}
	t, ok := typeAliases[raw]
	return t, ok
}

// normalizeDuration prefers an explicit duration string over formatted seconds
func normalizeDuration(rec map[string]interface{}) (string, *int) {
	keys := []string{"durationInSeconds", "duration_in_seconds"}
	var explicit string
	if s, ok := rec["duration"].(string); ok {
		explicit = strings.TrimSpace(s)
	} else {
		keys = append(keys, "duration")
	}

	var secs *int
	for _, key := range keys {
		if n, ok := toInt(rec[key]); ok && n >= 0 {
			secs = &n
			break
		}
	}

	if explicit != "" {
		return explicit, secs
	}
	return FormatDuration(secs), secs
}

func normalizeSeasons(raw []interface{}) []model.Season {
	seasons := make([]model.Season, 0, len(raw))
	seen := map[int]struct{}{}
	for _, el := range raw {
		m, ok := el.(map[string]interface{})
		if !ok {
			continue
		}
		n, ok := toInt(first(m, "seasonNumber", "season_number", "season"))
		if !ok || n <= 0 {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}

		rawEpisodes, _ := m["episodes"].([]interface{})
		seasons = append(seasons, model.Season{SeasonNumber: n, Episodes: normalizeEpisodes(rawEpisodes)})
	}
	sort.SliceStable(seasons, func(i, j int) bool {
		return seasons[i].SeasonNumber < seasons[j].SeasonNumber
	})
	if len(seasons) == 0 {
		return nil
	}
	return seasons
}

func normalizeEpisodes(raw []interface{}) []model.Episode {
	episodes := make([]model.Episode, 0, len(raw))
	for _, el := range raw {
		m, ok := el.(map[string]interface{})
		if !ok {
			continue
		}
		n, _ := toInt(first(m, "episodeNumber", "episode_number", "episode"))
		duration, _ := normalizeDuration(m)
		episodes = append(episodes, model.Episode{
			EpisodeNumber: n,
			Title:         toString(m["title"]),
			Description:   toString(m["description"]),
			VideoURL:      firstString(m, "videoUrl", "video_url"),
			Duration:      duration,
		})
	}
	sort.SliceStable(episodes, func(i, j int) bool {
		return episodes[i].EpisodeNumber < episodes[j].EpisodeNumber
	})
	return episodes
}

func normalizeCollectionList(v interface{}) []model.Collection {
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	collections := make([]model.Collection, 0, len(list))
	seen := map[string]struct{}{}
	for i, el := range list {
		m, ok := el.(map[string]interface{})
		if !ok {
			dropRecord(ResourceCollections, i, errNotObject)
			continue
		}
		id := strings.TrimSpace(toString(m["id"]))
		if id == "" {
			dropRecord(ResourceCollections, i, errMissingID)
			continue
		}
		if _, dup := seen[id]; dup {
			dropRecord(ResourceCollections, i, errDuplicateID)
			continue
		}
		seen[id] = struct{}{}

		name := firstString(m, "name", "title")
		if name == "" {
			name = titleFromID(id)
		}
		collections = append(collections, model.Collection{
			ID:          id,
			Name:        name,
			Description: toString(m["description"]),
			ContentIDs:  stringList(first(m, "contentIds", "content_ids")),
			ImageURL:    firstString(m, "imageUrl", "image_url"),
		})
	}
	return collections
}

// creatorIndex resolves creator references for content records
type creatorIndex struct {
	byID      map[string]model.Creator
	byContent map[string][]string // content id -> creator ids, from Creator.ContentIDs
}

func newCreatorIndex(creators []model.Creator) *creatorIndex {
	ix := &creatorIndex{
		byID:      make(map[string]model.Creator, len(creators)),
		byContent: map[string][]string{},
	}
	for _, c := range creators {
		ix.byID[c.ID] = c
		for _, contentID := range c.ContentIDs {
			ix.byContent[contentID] = append(ix.byContent[contentID], c.ID)
		}
	}
	return ix
}

// resolve collects creator ids from every reference form, keeps resolvable ones once
func (ix *creatorIndex) resolve(contentID string, rec map[string]interface{}) []model.CreatorRef {
	var refs []model.CreatorRef
	pos := map[string]int{}

	add := func(id, role string) {
		id = strings.TrimSpace(id)
		creator, ok := ix.byID[id]
		if !ok {
			return
		}
		if i, dup := pos[id]; dup {
			if refs[i].Role == "" {
				refs[i].Role = role
			}
			return
		}
		pos[id] = len(refs)
		refs = append(refs, model.CreatorRef{ID: id, Name: creator.Name, Role: role})
	}

	if primary := firstString(rec, "creatorId", "creator_id"); primary != "" {
		add(primary, "")
	} else {
		for _, id := range stringList(first(rec, "creator_ids", "creatorIds")) {
			add(id, "")
		}
	}

	if inline, ok := rec["creators"].([]interface{}); ok {
		for _, el := range inline {
			switch v := el.(type) {
			case map[string]interface{}:
				add(toString(v["id"]), strings.TrimSpace(toString(v["role"])))
			case string:
				add(v, "")
			}
		}
	}

	for _, id := range ix.byContent[contentID] {
		add(id, "")
	}
	return refs
}

// first returns the first present value among keys
func first(rec map[string]interface{}, keys ...string) interface{} {
	for _, key := range keys {
		if v, ok := rec[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

// firstString returns the first non-empty trimmed string among keys
func firstString(rec map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if s := strings.TrimSpace(toString(rec[key])); s != "" {
			return s
		}
	}
	return ""
}

// stringList accepts a comma separated string or an array
func stringList(v interface{}) []string {
	var out []string
	switch val := v.(type) {
	case string:
		for _, part := range strings.Split(val, ",") {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, s)
			}
		}
	case []interface{}:
		for _, el := range val {
			if s := strings.TrimSpace(toString(el)); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func toInt(v interface{}) (int, bool) {
	switch val := v.(type) {
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return 0, false
		}
		return int(val), true
	case int:
		return val, true
	case int64:
		return int(val), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(val))
		return n, err == nil
	}
	return 0, false
}

func toFloat(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, !math.IsNaN(val) && !math.IsInf(val, 0)
	case int:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	}
	return 0, false
}

// toString converts a decoded JSON value to string
func toString(v interface{}) string {
	if v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case float64:
		// JSON numbers decode as float64
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	case map[string]interface{}, []interface{}:
		return ""
	default:
		return fmt.Sprintf("%v", val)
	}
}

// titleFromID "new-releases" -> "New Releases"
func titleFromID(id string) string {
	words := strings.FieldsFunc(id, func(r rune) bool {
		return r == '-' || r == '_' || r == ' '
	})
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToTitle(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
