package model

// ContentType canonical content kind
type ContentType string

const (
	TypeMovie  ContentType = "movie"
	TypeSeries ContentType = "series"
)

// Valid reports whether t is one of the canonical kinds
func (t ContentType) Valid() bool {
	return t == TypeMovie || t == TypeSeries
}

// ContentItem a movie or series after normalization
type ContentItem struct {
	ID                string       `json:"id"`
	Title             string       `json:"title"`
	Description       string       `json:"description"`
	Type              ContentType  `json:"type"`
	ImageURL          string       `json:"imageUrl,omitempty"`
	VideoURL          string       `json:"videoUrl,omitempty"`
	Genre             []string     `json:"genre,omitempty"`
	Rating            *float64     `json:"rating,omitempty"` // 0-10
	Duration          string       `json:"duration,omitempty"`
	DurationInSeconds *int         `json:"durationInSeconds,omitempty"`
	Language          string       `json:"language,omitempty"`
	ReleaseDate       string       `json:"releaseDate,omitempty"` // ISO date
	Tags              []string     `json:"tags,omitempty"`
	CollectionIDs     []string     `json:"collectionIds,omitempty"`
	Creators          []CreatorRef `json:"creators,omitempty"`
	Seasons           []Season     `json:"seasons,omitempty"` // series only
}

// HasCreator reports whether the item links to the given creator
func (c *ContentItem) HasCreator(creatorID string) bool {
	for _, ref := range c.Creators {
		if ref.ID == creatorID {
			return true
		}
	}
	return false
}

// Link relative page path of the item
func (c *ContentItem) Link() string {
	return "/" + string(c.Type) + "/" + c.ID
}

// Season ordered by SeasonNumber
type Season struct {
	SeasonNumber int       `json:"seasonNumber"`
	Episodes     []Episode `json:"episodes"`
}

// Episode owned by exactly one season
type Episode struct {
	EpisodeNumber int    `json:"episodeNumber"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	VideoURL      string `json:"videoUrl,omitempty"`
	Duration      string `json:"duration,omitempty"`
}

// CreatorRef resolved creator reference embedded in content
type CreatorRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}

// Creator director, writer or channel
type Creator struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	AvatarURL        string            `json:"avatarUrl,omitempty"`
	Bio              string            `json:"bio,omitempty"`
	SocialMediaLinks map[string]string `json:"socialMediaLinks,omitempty"` // platform -> url
	ContentIDs       []string          `json:"contentIds,omitempty"`       // weak back-reference
}

// Collection named, ordered grouping of content ids
type Collection struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	ContentIDs  []string `json:"contentIds"`
	ImageURL    string   `json:"imageUrl,omitempty"`
}

// FeaturedItem carousel entry on the home page
type FeaturedItem struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	ImageURL string `json:"imageUrl"`
	Link     string `json:"link"`
}

// Suggestion AI-picked catalog item
type Suggestion struct {
	Content ContentItem `json:"content"`
	Reason  string      `json:"reason,omitempty"`
}
