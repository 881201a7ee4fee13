package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/user/gunvortv/internal/logging"
	"github.com/user/gunvortv/internal/middleware"
	"github.com/user/gunvortv/internal/model"
	"github.com/user/gunvortv/internal/service"
	"github.com/user/gunvortv/internal/utils"
)

const homeFeaturedCount = 5

// Home featured carousel plus movie and series rows
func (h *Handler) Home(c *gin.Context) {
	ctx := c.Request.Context()

	featured, err := h.Catalog.Featured(ctx, homeFeaturedCount)
	featured = listOrEmpty(c, featured, err)
	movies, err := h.Catalog.ContentByType(ctx, model.TypeMovie)
	movies = listOrEmpty(c, movies, err)
	series, err := h.Catalog.ContentByType(ctx, model.TypeSeries)
	series = listOrEmpty(c, series, err)

	utils.Success(c, gin.H{
		"featured": featured,
		"movies":   movies,
		"series":   series,
	})
}

func (h *Handler) Movies(c *gin.Context) {
	h.listByType(c, model.TypeMovie)
}

func (h *Handler) Series(c *gin.Context) {
	h.listByType(c, model.TypeSeries)
}

func (h *Handler) listByType(c *gin.Context, t model.ContentType) {
	items, err := h.Catalog.ContentByType(c.Request.Context(), t)
	utils.Success(c, listOrEmpty(c, items, err))
}

// MovieDetail 404 unless the id names a movie
func (h *Handler) MovieDetail(c *gin.Context) {
	h.detail(c, model.TypeMovie)
}

// SeriesDetail 404 unless the id names a series
func (h *Handler) SeriesDetail(c *gin.Context) {
	h.detail(c, model.TypeSeries)
}

func (h *Handler) detail(c *gin.Context, t model.ContentType) {
	ctx := c.Request.Context()
	item, ok := h.loadContent(c)
	if !ok {
		return
	}
	if item.Type != t {
		utils.NotFound(c, string(t)+" not found")
		return
	}

	related, err := h.Catalog.RelatedContent(ctx, item.ID, item.Type, item.Genre)
	data := gin.H{
		"content": item,
		"related": listOrEmpty(c, related, err),
	}
	if userID := middleware.GetUserID(c); userID != "" {
		inWishlist, err := h.Repos.Wishlist.IsInWishlist(userID, item.ID)
		if err != nil {
			logging.Warn().Err(err).Msg("[Wishlist] lookup failed")
		}
		data["inWishlist"] = inWishlist
	}
	utils.Success(c, data)
}

// Content any item by id
func (h *Handler) Content(c *gin.Context) {
	if item, ok := h.loadContent(c); ok {
		utils.Success(c, item)
	}
}

// Related items of the same type sharing a genre
func (h *Handler) Related(c *gin.Context) {
	item, ok := h.loadContent(c)
	if !ok {
		return
	}
	related, err := h.Catalog.RelatedContent(c.Request.Context(), item.ID, item.Type, item.Genre)
	utils.Success(c, listOrEmpty(c, related, err))
}

// ContentSummary short AI summary of the item's description
func (h *Handler) ContentSummary(c *gin.Context) {
	item, ok := h.loadContent(c)
	if !ok {
		return
	}
	if strings.TrimSpace(item.Description) == "" {
		utils.NotFound(c, "no description to summarize")
		return
	}

	summary, err := h.Summary.Summarize(c.Request.Context(), item)
	if errors.Is(err, service.ErrAIDisabled) {
		utils.ServiceUnavailable(c, "summaries are not available")
		return
	}
	if err != nil {
		logging.Warn().Err(err).Str("content_id", item.ID).Msg("[Summary] generation failed")
		utils.Error(c, http.StatusBadGateway, "summary generation failed")
		return
	}
	utils.Success(c, gin.H{"id": item.ID, "summary": summary})
}

// loadContent resolves :id, answering 404 or 503 itself
func (h *Handler) loadContent(c *gin.Context) (*model.ContentItem, bool) {
	item, err := h.Catalog.ContentByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.catalogError(c, err)
		return nil, false
	}
	if item == nil {
		utils.NotFound(c, "content not found")
		return nil, false
	}
	return item, true
}

func (h *Handler) Random(c *gin.Context) {
	item, err := h.Catalog.RandomContentItem(c.Request.Context())
	if err != nil {
		h.catalogError(c, err)
		return
	}
	if item == nil {
		utils.NotFound(c, "catalog is empty")
		return
	}
	utils.Success(c, item)
}

// Search case-insensitive substring match over title, description, genre and tags
func (h *Handler) Search(c *gin.Context) {
	query := c.Query("q")
	items, err := h.Catalog.SearchContent(c.Request.Context(), query)
	utils.Success(c, gin.H{
		"query":   query,
		"results": listOrEmpty(c, items, err),
	})
}

func (h *Handler) Collections(c *gin.Context) {
	cols, err := h.Catalog.Collections(c.Request.Context())
	utils.Success(c, gin.H{
		"collections": listOrEmpty(c, cols, err),
		"slugs":       service.CollectionSlugs(),
	})
}

// Collection resolves a filter slug first, then a stored collection id
func (h *Handler) Collection(c *gin.Context) {
	ctx := c.Request.Context()
	slug := c.Param("slug")

	if sc, err := h.Catalog.CollectionBySlug(ctx, slug); err != nil {
		h.catalogError(c, err)
		return
	} else if sc != nil {
		utils.Success(c, collectionView{
			ID:    sc.Slug,
			Title: sc.Title,
			Items: sc.Items,
		})
		return
	}

	col, items, err := h.collectionByID(ctx, slug)
	if err != nil {
		h.catalogError(c, err)
		return
	}
	if col == nil {
		utils.NotFound(c, "collection not found")
		return
	}
	utils.Success(c, collectionView{
		ID:          col.ID,
		Title:       col.Name,
		Description: col.Description,
		ImageURL:    col.ImageURL,
		Items:       items,
	})
}

type collectionView struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Description string              `json:"description,omitempty"`
	ImageURL    string              `json:"imageUrl,omitempty"`
	Items       []model.ContentItem `json:"items"`
}

func (h *Handler) collectionByID(ctx context.Context, id string) (*model.Collection, []model.ContentItem, error) {
	col, items, err := h.Catalog.CollectionByID(ctx, id)
	if items == nil {
		items = []model.ContentItem{}
	}
	return col, items, err
}

// Creator profile with content linked in either direction
func (h *Handler) Creator(c *gin.Context) {
	ctx := c.Request.Context()
	creator, err := h.Catalog.CreatorByID(ctx, c.Param("id"))
	if err != nil {
		h.catalogError(c, err)
		return
	}
	if creator == nil {
		utils.NotFound(c, "creator not found")
		return
	}
	content, err := h.Catalog.CreatorContent(ctx, creator.ID)
	utils.Success(c, gin.H{
		"creator": creator,
		"content": listOrEmpty(c, content, err),
	})
}
