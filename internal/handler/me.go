package handler

import (
	"errors"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/user/gunvortv/internal/logging"
	"github.com/user/gunvortv/internal/middleware"
	"github.com/user/gunvortv/internal/model"
	"github.com/user/gunvortv/internal/repository"
	"github.com/user/gunvortv/internal/utils"
)

type updateProfileRequest struct {
	DisplayName string `json:"displayName" binding:"required,min=1,max=50"`
	PhotoURL    string `json:"photoURL" binding:"omitempty,url"`
}

// Me current user's profile
func (h *Handler) Me(c *gin.Context) {
	if user, ok := h.currentUser(c); ok {
		utils.Success(c, user)
	}
}

// UpdateMe edits display name and photo; the user's reviews follow
func (h *Handler) UpdateMe(c *gin.Context) {
	var req updateProfileRequest
	if !bind(c, &req) {
		return
	}
	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		utils.BadRequest(c, "displayName is required")
		return
	}

	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	if err := h.Repos.User.UpdateProfile(user.ID, displayName, req.PhotoURL); err != nil {
		logging.Error().Err(err).Msg("[Profile] update failed")
		utils.InternalServerError(c, "")
		return
	}
	user.DisplayName = displayName
	user.PhotoURL = req.PhotoURL

	if err := h.Repos.Review.RefreshAuthor(user.ID, user.DisplayName, user.PhotoURL); err != nil {
		logging.Warn().Err(err).Str("user_id", user.ID).Msg("[Profile] refresh review authors failed")
	}
	h.saveSessionUser(c, user)
	utils.Success(c, user)
}

// DeleteMe removes the account with its wishlist and reviews
func (h *Handler) DeleteMe(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if err := h.Repos.DeleteAccount(userID); err != nil {
		logging.Error().Err(err).Str("user_id", userID).Msg("[Profile] delete account failed")
		utils.InternalServerError(c, "")
		return
	}

	middleware.SetTokenCookie(c, "", 0)
	session := sessions.Default(c)
	session.Clear()
	session.Save()

	logging.Info().Str("user_id", userID).Msg("[Profile] account deleted")
	utils.SuccessWithMessage(c, "account deleted", nil)
}

// Wishlist newest first, each entry joined with its catalog item when available
func (h *Handler) Wishlist(c *gin.Context) {
	items, err := h.Repos.Wishlist.ListByUser(middleware.GetUserID(c))
	if err != nil {
		logging.Error().Err(err).Msg("[Wishlist] list failed")
		utils.InternalServerError(c, "")
		return
	}

	ctx := c.Request.Context()
	for _, item := range items {
		content, err := h.Catalog.ContentByID(ctx, item.ContentID)
		if err != nil {
			// catalog down, entries are still listed without content
			logging.Warn().Err(err).Msg("[Wishlist] content join skipped")
			break
		}
		item.Content = content
	}
	if items == nil {
		items = []*model.WishlistItem{}
	}
	utils.Success(c, items)
}

// AddToWishlist idempotent per user and content
func (h *Handler) AddToWishlist(c *gin.Context) {
	content, err := h.Catalog.ContentByID(c.Request.Context(), c.Param("contentId"))
	if err != nil {
		h.catalogError(c, err)
		return
	}
	if content == nil {
		utils.NotFound(c, "content not found")
		return
	}

	item, created, err := h.Repos.Wishlist.Add(middleware.GetUserID(c), content.ID)
	if errors.Is(err, repository.ErrRecordNotFound) {
		utils.Conflict(c, "wishlist changed concurrently, retry")
		return
	}
	if err != nil {
		logging.Error().Err(err).Msg("[Wishlist] add failed")
		utils.InternalServerError(c, "")
		return
	}
	item.Content = content
	if created {
		utils.Created(c, item)
		return
	}
	utils.Success(c, item)
}

// RemoveFromWishlist accepts the entry id or the content id
func (h *Handler) RemoveFromWishlist(c *gin.Context) {
	userID := middleware.GetUserID(c)
	id := c.Param("id")

	err := h.Repos.Wishlist.Remove(userID, id)
	if errors.Is(err, repository.ErrRecordNotFound) {
		err = h.Repos.Wishlist.RemoveByContent(userID, id)
	}
	if errors.Is(err, repository.ErrRecordNotFound) {
		utils.NotFound(c, "wishlist entry not found")
		return
	}
	if err != nil {
		logging.Error().Err(err).Msg("[Wishlist] remove failed")
		utils.InternalServerError(c, "")
		return
	}
	utils.SuccessWithMessage(c, "removed from wishlist", nil)
}
