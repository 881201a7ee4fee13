package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/user/gunvortv/internal/logging"
	"github.com/user/gunvortv/internal/middleware"
	"github.com/user/gunvortv/internal/model"
	"github.com/user/gunvortv/internal/repository"
	"github.com/user/gunvortv/internal/utils"
)

type createReviewRequest struct {
	Rating int    `json:"rating" binding:"required,min=1,max=5"`
	Text   string `json:"text" binding:"max=2000"`
}

type updateReviewRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Text    string `json:"text" binding:"max=2000"`
	Version int    `json:"version" binding:"required,min=1"`
}

// ContentReviews newest first
func (h *Handler) ContentReviews(c *gin.Context) {
	reviews, err := h.Repos.Review.ListByContent(c.Param("id"))
	if err != nil {
		logging.Error().Err(err).Msg("[Review] list failed")
		utils.InternalServerError(c, "")
		return
	}
	utils.Success(c, nonNil(reviews))
}

// MyReviews the signed-in user's reviews
func (h *Handler) MyReviews(c *gin.Context) {
	reviews, err := h.Repos.Review.ListByUser(middleware.GetUserID(c))
	if err != nil {
		logging.Error().Err(err).Msg("[Review] list failed")
		utils.InternalServerError(c, "")
		return
	}
	utils.Success(c, nonNil(reviews))
}

// CreateReview author fields are taken from the account
func (h *Handler) CreateReview(c *gin.Context) {
	var req createReviewRequest
	if !bind(c, &req) {
		return
	}
	item, ok := h.loadContent(c)
	if !ok {
		return
	}
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	review := &model.Review{
		UserID:          user.ID,
		UserDisplayName: user.DisplayName,
		UserAvatarURL:   user.PhotoURL,
		ContentID:       item.ID,
		Rating:          req.Rating,
		Text:            req.Text,
	}
	if err := h.Repos.Review.Create(review); err != nil {
		logging.Error().Err(err).Msg("[Review] create failed")
		utils.InternalServerError(c, "")
		return
	}
	utils.Created(c, review)
}

// UpdateReview rejects stale versions with 409
func (h *Handler) UpdateReview(c *gin.Context) {
	var req updateReviewRequest
	if !bind(c, &req) {
		return
	}
	review, ok := h.ownReview(c)
	if !ok {
		return
	}

	review.Rating = req.Rating
	review.Text = req.Text
	review.Version = req.Version
	err := h.Repos.Review.Update(review)
	if errors.Is(err, repository.ErrEditConflict) {
		utils.Conflict(c, "review was changed elsewhere, reload and retry")
		return
	}
	if err != nil {
		logging.Error().Err(err).Msg("[Review] update failed")
		utils.InternalServerError(c, "")
		return
	}
	utils.Success(c, review)
}

func (h *Handler) DeleteReview(c *gin.Context) {
	review, ok := h.ownReview(c)
	if !ok {
		return
	}
	err := h.Repos.Review.Delete(review.ID, review.UserID)
	if errors.Is(err, repository.ErrRecordNotFound) {
		utils.NotFound(c, "review not found")
		return
	}
	if err != nil {
		logging.Error().Err(err).Msg("[Review] delete failed")
		utils.InternalServerError(c, "")
		return
	}
	utils.SuccessWithMessage(c, "review deleted", nil)
}

// ownReview loads :id and checks the signed-in user wrote it
func (h *Handler) ownReview(c *gin.Context) (*model.Review, bool) {
	review, err := h.Repos.Review.FindByID(c.Param("id"))
	if err != nil {
		logging.Error().Err(err).Msg("[Review] find failed")
		utils.InternalServerError(c, "")
		return nil, false
	}
	if review == nil {
		utils.NotFound(c, "review not found")
		return nil, false
	}
	if review.UserID != middleware.GetUserID(c) {
		utils.Forbidden(c, "you can only change your own reviews")
		return nil, false
	}
	return review, true
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
