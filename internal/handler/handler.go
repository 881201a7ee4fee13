package handler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/user/gunvortv/internal/config"
	"github.com/user/gunvortv/internal/logging"
	"github.com/user/gunvortv/internal/middleware"
	"github.com/user/gunvortv/internal/model"
	"github.com/user/gunvortv/internal/notifier"
	"github.com/user/gunvortv/internal/repository"
	"github.com/user/gunvortv/internal/service"
	"github.com/user/gunvortv/internal/utils"
)

const sessionUserKey = "userinfo"

// Handler HTTP handlers
type Handler struct {
	Repos    *repository.Repositories
	Config   *config.Config
	Catalog  *service.CatalogService
	Summary  *service.SummaryService
	Suggest  *service.RecommendService
	Google   *service.GoogleOAuth // nil when Google sign-in is disabled
	Notifier notifier.Notifier
}

// NewHandler wires handlers to their services
func NewHandler(repos *repository.Repositories, cfg *config.Config, catalog *service.CatalogService) *Handler {
	aiStore := service.NewAIStore()
	return &Handler{
		Repos:    repos,
		Config:   cfg,
		Catalog:  catalog,
		Summary:  service.NewSummaryService(cfg.Gemini, aiStore),
		Suggest:  service.NewRecommendService(cfg.Gemini, catalog, aiStore),
		Google:   service.NewGoogleOAuth(cfg.Google),
		Notifier: notifier.NewEmailNotifier(cfg),
	}
}

// Health liveness and catalog cache state
func (h *Handler) Health(c *gin.Context) {
	utils.Success(c, gin.H{
		"status":  "ok",
		"catalog": h.Catalog.Cache().State().String(),
	})
}

// catalogError answers a failed catalog read.
// An unreachable source is 503 so an outage never looks like a missing item.
func (h *Handler) catalogError(c *gin.Context, err error) {
	var fe *service.FetchError
	if errors.As(err, &fe) {
		logging.Error().Err(err).Str("resource", string(fe.Resource)).Str("path", c.FullPath()).Msg("[Catalog] source unavailable")
		utils.ServiceUnavailable(c, "")
		return
	}
	logging.Error().Err(err).Str("path", c.FullPath()).Msg("[Catalog] query failed")
	utils.InternalServerError(c, "")
}

// listOrEmpty logs a failed list read and degrades to an empty list
func listOrEmpty[T any](c *gin.Context, items []T, err error) []T {
	if err != nil {
		logging.Error().Err(err).Str("path", c.FullPath()).Msg("[Catalog] list degraded to empty")
		return []T{}
	}
	if items == nil {
		return []T{}
	}
	return items
}

// bind decodes the JSON body and reports the first validation failure
func bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		utils.BadRequest(c, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request body"
	}
	fe := verrs[0]
	field := lowerFirst(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "url":
		return field + " must be a valid URL"
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	}
	return field + " is invalid"
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// signIn issues the token cookie and stores the session user
func (h *Handler) signIn(c *gin.Context, user *model.User) error {
	token, err := middleware.GenerateToken(user.ID, user.Email, h.Config.AppSecret, h.Config.JWTExpiry)
	if err != nil {
		return err
	}
	middleware.SetTokenCookie(c, token, h.Config.JWTExpiry)
	h.saveSessionUser(c, user)
	return nil
}

func (h *Handler) saveSessionUser(c *gin.Context, user *model.User) {
	session := sessions.Default(c)
	session.Set(sessionUserKey, model.NewSessionUser(user))
	if err := session.Save(); err != nil {
		logging.Warn().Err(err).Msg("[Auth] save session failed")
	}
}

// currentUser loads the signed-in account, answering 401 when it is gone
func (h *Handler) currentUser(c *gin.Context) (*model.User, bool) {
	user, err := h.Repos.User.FindByID(middleware.GetUserID(c))
	if err != nil {
		logging.Error().Err(err).Msg("[Auth] load user failed")
		utils.InternalServerError(c, "")
		return nil, false
	}
	if user == nil {
		utils.Unauthorized(c, "account no longer exists")
		return nil, false
	}
	return user, true
}
