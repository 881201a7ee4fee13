package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/user/gunvortv/internal/logging"
	"github.com/user/gunvortv/internal/middleware"
	"github.com/user/gunvortv/internal/model"
	"github.com/user/gunvortv/internal/service"
	"github.com/user/gunvortv/internal/utils"
)

type discoverRequest struct {
	Prompt string `json:"prompt" binding:"required,max=500"`
	Limit  int    `json:"limit" binding:"omitempty,min=1,max=20"`
}

// Recommendations picks for the signed-in user based on their wishlist
func (h *Handler) Recommendations(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	entries, err := h.Repos.Wishlist.ListByUser(middleware.GetUserID(c))
	if err != nil {
		logging.Error().Err(err).Msg("[Suggest] wishlist load failed")
		utils.InternalServerError(c, "")
		return
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ContentID)
	}

	items, err := h.Suggest.Recommend(c.Request.Context(), ids, limit)
	h.suggestions(c, items, err)
}

// Discover catalog items for a free-text request
func (h *Handler) Discover(c *gin.Context) {
	var req discoverRequest
	if !bind(c, &req) {
		return
	}
	items, err := h.Suggest.Discover(c.Request.Context(), req.Prompt, req.Limit)
	h.suggestions(c, items, err)
}

func (h *Handler) suggestions(c *gin.Context, items []model.Suggestion, err error) {
	var fe *service.FetchError
	switch {
	case err == nil:
		utils.Success(c, nonNil(items))
	case errors.Is(err, service.ErrAIDisabled):
		utils.ServiceUnavailable(c, "suggestions are not available")
	case errors.As(err, &fe):
		h.catalogError(c, err)
	default:
		logging.Warn().Err(err).Str("path", c.FullPath()).Msg("[Suggest] generation failed")
		utils.Error(c, http.StatusBadGateway, "suggestion generation failed")
	}
}
